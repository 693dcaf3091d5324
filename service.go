package auth

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel/attribute"
)

const defaultDispatchTimeout = 30 * time.Second

// ServiceConfig holds the orchestrator settings that do not come from
// its collaborators.
type ServiceConfig struct {
	MailFrom             string
	BaseURL              string
	VerificationTokenTTL time.Duration
	// ActivationPath is where the activation route is mounted, default
	// DefaultActivationPath
	ActivationPath string
	// EmailTemplate overrides the built in verification email (pongo2 syntax)
	EmailTemplate string
}

// ServiceConfigFrom derives the orchestrator settings from Config
func ServiceConfigFrom(cfg Config) ServiceConfig {
	return ServiceConfig{
		MailFrom:             cfg.MailFrom,
		BaseURL:              cfg.BaseURL(),
		VerificationTokenTTL: cfg.VerificationTokenTTL,
		ActivationPath:       cfg.ActivationPath,
	}
}

// AuthService implements the login, signup, refresh rotation, logout and
// email verification flows on top of its collaborators.
type AuthService struct {
	users           UserService
	sessions        SessionStore
	tokens          VerificationTokenStore
	generator       *VerificationTokenGenerator
	signer          *TokenService
	mailer          Mailer
	email           *VerificationEmail
	mailFrom        string
	logger          Logger
	activity        ActivitySink
	now             func() time.Time
	dispatchTimeout time.Duration
	dispatches      sync.WaitGroup
}

// NewAuthService wires the orchestrator
func NewAuthService(
	users UserService,
	sessions SessionStore,
	tokens VerificationTokenStore,
	signer *TokenService,
	mailer Mailer,
	cfg ServiceConfig,
) (*AuthService, error) {
	if users == nil || sessions == nil || tokens == nil || signer == nil || mailer == nil {
		return nil, goerrors.Wrap(ErrInvalidConfig, goerrors.CategoryInternal, "auth service collaborators must not be nil").
			WithTextCode(TextCodeInvalidConfig)
	}

	email, err := NewVerificationEmail(cfg.BaseURL, cfg.EmailTemplate)
	if err != nil {
		return nil, err
	}
	email.WithActivationPath(cfg.ActivationPath)

	return &AuthService{
		users:           users,
		sessions:        sessions,
		tokens:          tokens,
		generator:       NewVerificationTokenGenerator(tokens, cfg.VerificationTokenTTL),
		signer:          signer,
		mailer:          mailer,
		email:           email,
		mailFrom:        cfg.MailFrom,
		logger:          defLogger{},
		activity:        noopActivitySink{},
		now:             time.Now,
		dispatchTimeout: defaultDispatchTimeout,
	}, nil
}

func (s *AuthService) WithLogger(logger Logger) *AuthService {
	if logger != nil {
		s.logger = logger
		s.generator.WithLogger(logger)
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *AuthService) WithActivitySink(sink ActivitySink) *AuthService {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithClock sets the time source for session and verification expiry.
// The signer keeps its own clock.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
		s.generator.WithClock(now)
	}
	return s
}

func (s *AuthService) WithDispatchTimeout(d time.Duration) *AuthService {
	if d > 0 {
		s.dispatchTimeout = d
	}
	return s
}

// Signer returns the TokenService used by this service
func (s *AuthService) Signer() *TokenService {
	return s.signer
}

// Wait blocks until in flight verification emails are handed to the mailer.
func (s *AuthService) Wait() {
	s.dispatches.Wait()
}

// RegisterUser creates an inactive user, persists a verification token
// and sends the activation email in the background. A nil user and nil
// error means the email is already registered.
func (s *AuthService) RegisterUser(ctx context.Context, payload SignupPayload) (user *User, err error) {
	ctx, span := startSpan(ctx, "auth.RegisterUser")
	defer func() { endSpan(span, err) }()

	if err := payload.Validate(); err != nil {
		return nil, validationError(err, ContextUser)
	}

	user, err = s.users.CreateUser(ctx, payload)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, nil
	}

	token, err := s.generator.Generate(ctx, user.ID)
	if err != nil {
		s.logger.Error("RegisterUser failed to generate verification token: %s", err)
		return nil, err
	}

	s.dispatchVerification(ctx, user, token)
	s.emit(ctx, ActivityEventSignup, user.ID, nil)

	return user, nil
}

// AuthenticateUser checks credentials. A nil user and nil error means the
// credentials did not match. Inactive users fail with ErrEmailNotVerified.
func (s *AuthService) AuthenticateUser(ctx context.Context, payload LoginPayload) (*User, error) {
	if err := payload.Validate(); err != nil {
		return nil, validationError(err, ContextAuth)
	}

	user, err := s.users.ValidateUser(ctx, payload)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, nil
	}

	if !user.IsActive {
		return nil, ErrEmailNotVerified
	}

	return user, nil
}

// Login authenticates the user, issues a token pair and opens a session
// for the refresh token.
func (s *AuthService) Login(ctx context.Context, payload LoginPayload, meta SessionMeta) (pair *TokenPair, err error) {
	ctx, span := startSpan(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	user, err := s.AuthenticateUser(ctx, payload)
	if err != nil {
		s.emit(ctx, ActivityEventLoginFailure, 0, map[string]any{
			"email": payload.Email,
			"error": err.Error(),
		})
		return nil, err
	}

	if user == nil {
		s.emit(ctx, ActivityEventLoginFailure, 0, map[string]any{
			"email": payload.Email,
			"error": ErrInvalidCredentials.Message,
		})
		return nil, ErrInvalidCredentials
	}

	pair, err = s.signer.SignPair(user.Payload())
	if err != nil {
		return nil, wrapInternal(err, "failed to sign tokens")
	}

	pair.RefreshExpiresAt = s.now().Add(s.signer.RefreshTTL())
	opts := []SessionOption{WithIPAddress(meta.IPAddress)}
	if meta.UserAgent != "" {
		opts = append(opts, WithDeviceInfo(DescribeDevice(meta.UserAgent)))
	}

	if _, err = s.sessions.Save(ctx, user.ID, pair.RefreshToken, pair.RefreshExpiresAt, opts...); err != nil {
		s.logger.Error("Login failed to save session for user %d: %s", user.ID, err)
		return nil, wrapInternal(err, "failed to save session")
	}

	span.SetAttributes(attribute.Int64("auth.user_id", user.ID))
	s.emit(ctx, ActivityEventLoginSuccess, user.ID, map[string]any{
		"ip_address":  meta.IPAddress,
		"device_info": DescribeDevice(meta.UserAgent),
	})

	return pair, nil
}

// Refresh exchanges a refresh token for a new pair, rotating the session
// row. A token is accepted at most once.
func (s *AuthService) Refresh(ctx context.Context, oldToken string) (pair *TokenPair, err error) {
	ctx, span := startSpan(ctx, "auth.Refresh")
	defer func() {
		if err != nil {
			s.emit(ctx, ActivityEventRefreshFailure, 0, map[string]any{"error": err.Error()})
		}
		endSpan(span, err)
	}()

	if oldToken == "" {
		return nil, ErrMissingRefreshToken
	}

	res := s.signer.VerifyRefresh(oldToken)
	switch res.Status {
	case TokenValid:
	case TokenExpired:
		return nil, ErrRefreshTokenExpired
	default:
		s.logger.Debug("Refresh rejected token: %s", res.Status)
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetUser(ctx, UserFilter{ID: res.Claims.UID, Email: res.Claims.Email})
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	session, err := s.sessions.Find(ctx, user.ID, oldToken)
	if err != nil {
		return nil, wrapInternal(err, "failed to find session")
	}

	if !session.IsLive(s.now()) {
		return nil, ErrInvalidRefreshToken
	}

	pair, err = s.signer.SignPair(user.Payload())
	if err != nil {
		return nil, wrapInternal(err, "failed to sign tokens")
	}
	pair.RefreshExpiresAt = s.now().Add(s.signer.RefreshTTL())

	if _, err = s.sessions.Update(ctx, user.ID, pair.RefreshToken, oldToken, pair.RefreshExpiresAt); err != nil {
		if IsNotFound(err) {
			s.logger.Warn("Refresh lost rotation race for user %d", user.ID)
			return nil, ErrInvalidRefreshToken
		}
		return nil, wrapInternal(err, "failed to rotate session")
	}

	span.SetAttributes(attribute.Int64("auth.user_id", user.ID))
	s.emit(ctx, ActivityEventRefreshSuccess, user.ID, nil)

	return pair, nil
}

// Logout deletes the session bound to refreshToken. Missing rows and
// expired tokens are not errors. Tokens that fail verification for any
// other reason yield ErrInvalidRefreshToken; callers clear the cookie
// regardless.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (err error) {
	ctx, span := startSpan(ctx, "auth.Logout")
	defer func() { endSpan(span, err) }()

	if refreshToken == "" {
		return nil
	}

	res := s.signer.VerifyRefresh(refreshToken)
	switch res.Status {
	case TokenValid:
	case TokenExpired:
		s.logger.Debug("Logout with expired refresh token")
		return nil
	default:
		return ErrInvalidRefreshToken
	}

	userID := res.Claims.UID
	if err = s.sessions.Delete(ctx, userID, refreshToken); err != nil {
		if !IsNotFound(err) {
			return wrapInternal(err, "failed to delete session")
		}
		err = nil
	}

	s.emit(ctx, ActivityEventLogout, userID, nil)
	return nil
}

// RevokeSessions ends every session of userID, none of their refresh tokens
// can be rotated afterwards. The session store must implement SessionRevoker.
func (s *AuthService) RevokeSessions(ctx context.Context, userID int64) (n int64, err error) {
	ctx, span := startSpan(ctx, "auth.RevokeSessions", attribute.Int64("auth.user_id", userID))
	defer func() { endSpan(span, err) }()

	revoker, ok := s.sessions.(SessionRevoker)
	if !ok {
		return 0, goerrors.Wrap(ErrInvalidConfig, goerrors.CategoryInternal, "session store cannot revoke sessions").
			WithTextCode(TextCodeInvalidConfig)
	}

	n, err = revoker.RevokeAll(ctx, userID)
	if err != nil {
		return 0, wrapInternal(err, "failed to revoke sessions")
	}

	s.logger.Info("revoked %d sessions for user %d", n, userID)
	s.emit(ctx, ActivityEventSessionsRevoked, userID, map[string]any{"sessions": n})
	return n, nil
}

// GenerateVerificationToken persists a new verification token for userID
func (s *AuthService) GenerateVerificationToken(ctx context.Context, userID int64) (string, error) {
	return s.generator.Generate(ctx, userID)
}

// VerifyEmail redeems a verification token and activates the user.
// Redemption is single use: the token row is deleted on success. Expired
// tokens are reported and left in place.
func (s *AuthService) VerifyEmail(ctx context.Context, userID int64, token string) (user *User, err error) {
	ctx, span := startSpan(ctx, "auth.VerifyEmail", attribute.Int64("auth.user_id", userID))
	defer func() { endSpan(span, err) }()

	if token == "" {
		return nil, ErrInvalidVerificationToken
	}

	record, err := s.tokens.Find(ctx, userID, token)
	if err != nil {
		return nil, wrapInternal(err, "failed to find verification token")
	}

	if record == nil {
		return nil, ErrInvalidVerificationToken
	}

	if record.IsExpired(s.now()) {
		return nil, ErrVerificationTokenExpired
	}

	user, err = s.users.ActivateUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err = s.tokens.Delete(ctx, record); err != nil && !IsNotFound(err) {
		s.logger.Error("VerifyEmail failed to delete token for user %d: %s", userID, err)
		return nil, wrapInternal(err, "failed to consume verification token")
	}

	s.emit(ctx, ActivityEventEmailVerified, userID, nil)
	return user, nil
}

// ResendVerificationEmail issues a fresh token for an inactive user. Older
// tokens stay redeemable until they expire.
func (s *AuthService) ResendVerificationEmail(ctx context.Context, email string) (err error) {
	ctx, span := startSpan(ctx, "auth.ResendVerificationEmail")
	defer func() { endSpan(span, err) }()

	if err := (ResendVerificationPayload{Email: email}).Validate(); err != nil {
		return validationError(err, ContextUser)
	}

	user, err := s.users.GetUser(ctx, UserFilter{Email: email})
	if err != nil {
		return err
	}

	if user == nil {
		return ErrResendUserNotFound
	}

	if user.IsActive {
		return ErrAlreadyVerified
	}

	token, err := s.generator.Generate(ctx, user.ID)
	if err != nil {
		return err
	}

	s.dispatchVerification(ctx, user, token)
	s.emit(ctx, ActivityEventVerificationResent, user.ID, nil)
	return nil
}

// dispatchVerification sends the activation email detached from the
// request. Failures are logged and never reach the caller.
func (s *AuthService) dispatchVerification(ctx context.Context, user *User, token string) {
	recipient := *user
	expiresIn := s.generator.TTL().String()

	s.dispatches.Add(1)
	go func(ctx context.Context) {
		defer s.dispatches.Done()

		ctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
		defer cancel()

		subject, html, err := s.email.Render(&recipient, token, expiresIn)
		if err == nil {
			err = s.mailer.SendEmail(ctx, s.mailFrom, recipient.Email, subject, html)
		}

		if err != nil {
			s.logger.Error("failed to send verification email to user %d: %s", recipient.ID, err)
			s.emit(ctx, ActivityEventEmailDispatchError, recipient.ID, map[string]any{"error": err.Error()})
			return
		}

		s.logger.Debug("verification email sent to user %d", recipient.ID)
	}(context.WithoutCancel(ctx))
}

func (s *AuthService) emit(ctx context.Context, eventType ActivityEventType, userID int64, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink error for %s: %s", eventType, err)
	}
}
