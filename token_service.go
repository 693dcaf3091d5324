package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenStatus is the outcome of verifying a signed credential.
type TokenStatus int

const (
	TokenValid TokenStatus = iota
	TokenExpired
	TokenNotYetValid
	TokenMalformed
)

func (s TokenStatus) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenExpired:
		return "expired"
	case TokenNotYetValid:
		return "not_yet_valid"
	default:
		return "malformed"
	}
}

// VerifyResult is the tagged result of TokenService.Verify. Claims is only
// set when Status is TokenValid.
type VerifyResult struct {
	Status TokenStatus
	Claims *JWTClaims
	Cause  error
}

// Valid reports whether the token verified
func (r VerifyResult) Valid() bool {
	return r.Status == TokenValid && r.Claims != nil
}

// Err maps the outcome to the error taxonomy, nil when valid.
func (r VerifyResult) Err() error {
	switch r.Status {
	case TokenValid:
		return nil
	case TokenExpired:
		return ErrTokenExpired
	case TokenNotYetValid:
		return ErrTokenNotYetValid
	default:
		if r.Cause == nil {
			return ErrTokenMalformed
		}
		return errors.Wrap(r.Cause, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code).
			WithMetadata(map[string]any{MetaContext: ContextAuth})
	}
}

// TokenConfig configures the TokenService. AccessSecret and RefreshSecret
// must both be set and must differ, so that a token of one kind never
// verifies as the other.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenService signs and verifies access and refresh tokens using HS256
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
	logger        Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg TokenConfig, logger Logger) (*TokenService, error) {
	if logger == nil {
		logger = defLogger{}
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.Wrap(ErrInvalidConfig, errors.CategoryInternal, "access and refresh secrets are required").
			WithTextCode(TextCodeInvalidConfig)
	}

	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.Wrap(ErrInvalidConfig, errors.CategoryInternal, "access and refresh secrets must differ").
			WithTextCode(TextCodeInvalidConfig)
	}

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}

	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
		logger:        logger,
	}, nil
}

// WithClock replaces the time source used to stamp and check tokens.
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		ts.now = now
	}
	return ts
}

// AccessTTL is the access token lifetime
func (ts *TokenService) AccessTTL() time.Duration {
	return ts.accessTTL
}

// RefreshTTL is the refresh token lifetime, also used for sessions.
func (ts *TokenService) RefreshTTL() time.Duration {
	return ts.refreshTTL
}

// SignAccess signs a short lived access token. An explicit secret takes
// precedence over the configured ACCESS_SECRET.
func (ts *TokenService) SignAccess(payload TokenPayload, secret ...string) (string, error) {
	return ts.sign(payload, TokenKindAccess, ts.accessTTL, resolveSecret(ts.accessSecret, secret))
}

// SignRefresh signs a refresh token. An explicit secret takes precedence
// over the configured REFRESH_SECRET.
func (ts *TokenService) SignRefresh(payload TokenPayload, secret ...string) (string, error) {
	return ts.sign(payload, TokenKindRefresh, ts.refreshTTL, resolveSecret(ts.refreshSecret, secret))
}

// SignPair signs an access and a refresh token from the same payload.
func (ts *TokenService) SignPair(payload TokenPayload) (*TokenPair, error) {
	access, err := ts.SignAccess(payload)
	if err != nil {
		return nil, err
	}

	refresh, err := ts.SignRefresh(payload)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: ts.now().Add(ts.refreshTTL),
	}, nil
}

// VerifyAccess verifies tok with the configured access secret
func (ts *TokenService) VerifyAccess(tok string) VerifyResult {
	return ts.verifyKind(tok, ts.accessSecret, TokenKindAccess)
}

// VerifyRefresh verifies tok with the configured refresh secret
func (ts *TokenService) VerifyRefresh(tok string) VerifyResult {
	return ts.verifyKind(tok, ts.refreshSecret, TokenKindRefresh)
}

// Verify parses tok with the given secret and reports a tagged outcome.
// Signature, algorithm and structure failures are all TokenMalformed.
func (ts *TokenService) Verify(tok, secret string) VerifyResult {
	return ts.verify(tok, []byte(secret))
}

func (ts *TokenService) verifyKind(tok string, secret []byte, kind TokenKind) VerifyResult {
	res := ts.verify(tok, secret)
	if res.Valid() && res.Claims.Kind != "" && res.Claims.Kind != kind {
		ts.logger.Warn("TokenService rejected token of kind %s, expected %s", res.Claims.Kind, kind)
		return VerifyResult{Status: TokenMalformed, Cause: fmt.Errorf("unexpected token kind: %s", res.Claims.Kind)}
	}
	return res
}

func (ts *TokenService) verify(tok string, secret []byte) VerifyResult {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tok, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return VerifyResult{Status: TokenExpired, Cause: err}
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return VerifyResult{Status: TokenNotYetValid, Cause: err}
		default:
			return VerifyResult{Status: TokenMalformed, Cause: err}
		}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService verify could not decode claims")
		return VerifyResult{Status: TokenMalformed}
	}

	return VerifyResult{Status: TokenValid, Claims: claims}
}

func (ts *TokenService) sign(payload TokenPayload, kind TokenKind, ttl time.Duration, secret []byte) (string, error) {
	claims := newClaims(payload, kind, ts.now(), ttl)
	claims.Issuer = ts.issuer

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT").
			WithTextCode(TextCodeInternalError).
			WithCode(errors.CodeInternal)
	}
	return signed, nil
}

func resolveSecret(configured []byte, explicit []string) []byte {
	if len(explicit) > 0 && explicit[0] != "" {
		return []byte(explicit[0])
	}
	return configured
}
