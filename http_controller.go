package auth

import (
	"fmt"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RefreshCookieName is the cookie carrying the refresh token
const RefreshCookieName = "refreshToken"

const headerUserAgent = "User-Agent"

type AuthControllerRoutes struct {
	Login              string
	Signup             string
	Logout             string
	LogoutAll          string
	Refresh            string
	Activate           string
	ResendVerification string
	Me                 string
}

// CookieConfig controls how the refresh token cookie is written
type CookieConfig struct {
	Name   string
	Path   string
	Domain string
	Secure bool
	MaxAge time.Duration
}

type AuthController struct {
	Service *AuthService
	Logger  Logger
	Routes  *AuthControllerRoutes
	Cookie  CookieConfig
}

type AuthControllerOption func(*AuthController) *AuthController

// NewAuthController returns the JSON controller for the auth flows.
// The refresh cookie is Secure in production and lives as long as the
// refresh token.
func NewAuthController(service *AuthService, production bool, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Service: service,
		Logger:  defLogger{},
		Routes: &AuthControllerRoutes{
			Login:              "/login",
			Signup:             "/signup",
			Logout:             "/logout",
			LogoutAll:          "/logout-all",
			Refresh:            "/refresh",
			Activate:           "/activate/:userId/:token",
			ResendVerification: "/resend-verification",
			Me:                 "/me",
		},
		Cookie: CookieConfig{
			Name:   RefreshCookieName,
			Path:   "/",
			Secure: production,
			MaxAge: service.Signer().RefreshTTL(),
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithCookieConfig(cfg CookieConfig) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if cfg.Name == "" {
			cfg.Name = RefreshCookieName
		}
		if cfg.Path == "" {
			cfg.Path = "/"
		}
		if cfg.MaxAge <= 0 {
			cfg.MaxAge = c.Cookie.MaxAge
		}
		c.Cookie = cfg
		return c
	}
}

// RegisterAuthRoutes mounts the controller on r. guard protects the
// routes that require an identity, it is usually jwtware.Guard. The
// refresh cookie is cleared on logout even when guard rejects the call.
func RegisterAuthRoutes[T any](r router.Router[T], controller *AuthController, guard router.MiddlewareFunc) {
	r.Post(controller.Routes.Login, controller.Login).SetName("auth.login")
	r.Post(controller.Routes.Signup, controller.Signup).SetName("auth.signup")
	r.Post(controller.Routes.Logout, controller.Logout, controller.clearCookieFirst, guard).SetName("auth.logout")
	r.Post(controller.Routes.LogoutAll, controller.LogoutAll, controller.clearCookieFirst, guard).SetName("auth.logout-all")
	r.Post(controller.Routes.Refresh, controller.Refresh).SetName("auth.refresh")
	r.Get(controller.Routes.Activate, controller.Activate).SetName("auth.activate")
	r.Post(controller.Routes.ResendVerification, controller.ResendVerification).SetName("auth.resend-verification")
	r.Get(controller.Routes.Me, controller.Me, guard).SetName("auth.me")
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := LoginPayload{}
	if err := a.parse(ctx, &payload, ContextAuth); err != nil {
		return err
	}

	pair, err := a.Service.Login(ctx.Context(), payload, SessionMeta{
		UserAgent: ctx.Header(headerUserAgent),
		IPAddress: ctx.IP(),
	})
	if err != nil {
		return err
	}

	a.setRefreshCookie(ctx, pair.RefreshToken)
	return Send(ctx, router.StatusOK, ContextAuth, map[string]any{"accessToken": pair.AccessToken})
}

func (a *AuthController) Signup(ctx router.Context) error {
	payload := SignupPayload{}
	if err := a.parse(ctx, &payload, ContextUser); err != nil {
		return err
	}

	user, err := a.Service.RegisterUser(ctx.Context(), payload)
	if err != nil {
		return err
	}

	if user == nil {
		return ErrUserConflict
	}

	return Send(ctx, router.StatusCreated, ContextUser, map[string]any{
		"id":       user.ID,
		"email":    user.Email,
		"name":     user.Name,
		"isActive": user.IsActive,
		"message":  fmt.Sprintf("Verification email sent to %s", user.Email),
	})
}

// Logout always clears the refresh cookie, even when the token was rejected.
func (a *AuthController) Logout(ctx router.Context) error {
	err := a.Service.Logout(ctx.Context(), ctx.Cookies(a.Cookie.Name))
	a.clearRefreshCookie(ctx)
	if err != nil {
		return err
	}

	return Send(ctx, router.StatusOK, ContextAuth, map[string]any{"message": "Logged out"})
}

// LogoutAll revokes every session of the caller, signing out other
// devices as well.
func (a *AuthController) LogoutAll(ctx router.Context) error {
	claims, ok := GetClaims(ctx.Context())
	if !ok {
		return ErrNotAuthorized
	}

	n, err := a.Service.RevokeSessions(ctx.Context(), claims.UID)
	if err != nil {
		return err
	}

	return Send(ctx, router.StatusOK, ContextAuth, map[string]any{
		"message":  "Logged out from all sessions",
		"sessions": n,
	})
}

func (a *AuthController) Refresh(ctx router.Context) error {
	pair, err := a.Service.Refresh(ctx.Context(), ctx.Cookies(a.Cookie.Name))
	if err != nil {
		if IsTokenExpired(err) {
			a.clearRefreshCookie(ctx)
		}
		return err
	}

	a.setRefreshCookie(ctx, pair.RefreshToken)
	return Send(ctx, router.StatusOK, ContextAuth, map[string]any{"accessToken": pair.AccessToken})
}

func (a *AuthController) Activate(ctx router.Context) error {
	userID, err := strconv.ParseInt(ctx.Param("userId"), 10, 64)
	if err != nil {
		return ErrInvalidVerificationToken
	}

	user, err := a.Service.VerifyEmail(ctx.Context(), userID, ctx.Param("token"))
	if err != nil {
		return err
	}

	return Send(ctx, router.StatusOK, ContextUser, map[string]any{
		"id":       user.ID,
		"email":    user.Email,
		"isActive": user.IsActive,
	})
}

func (a *AuthController) ResendVerification(ctx router.Context) error {
	payload := ResendVerificationPayload{}
	if err := a.parse(ctx, &payload, ContextUser); err != nil {
		return err
	}

	if err := a.Service.ResendVerificationEmail(ctx.Context(), payload.Email); err != nil {
		return err
	}

	return Send(ctx, router.StatusOK, ContextUser, map[string]any{
		"message": fmt.Sprintf("Verification email sent to %s", payload.Email),
	})
}

// Me returns the identity attached by the identity middleware
func (a *AuthController) Me(ctx router.Context) error {
	claims, ok := GetClaims(ctx.Context())
	if !ok {
		return ErrNotAuthorized
	}

	return Send(ctx, router.StatusOK, ContextUser, map[string]any{
		"id":    claims.UID,
		"email": claims.Email,
	})
}

type validatable interface {
	Validate() error
}

func (a *AuthController) parse(ctx router.Context, payload validatable, errCtx string) error {
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("failed to parse request body: %s", err)
		return goerrors.Wrap(err, goerrors.CategoryBadInput, ErrInvalidPayload.Message).
			WithTextCode(TextCodeInvalidPayload).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{MetaContext: errCtx})
	}
	return validationError(payload.Validate(), errCtx)
}

// clearCookieFirst expires the refresh cookie before the rest of the chain
// runs, so a rejected logout still drops the client's credential.
func (a *AuthController) clearCookieFirst(next router.HandlerFunc) router.HandlerFunc {
	return func(ctx router.Context) error {
		a.clearRefreshCookie(ctx)
		return next(ctx)
	}
}

func (a *AuthController) setRefreshCookie(ctx router.Context, token string) {
	ctx.Cookie(&router.Cookie{
		Name:     a.Cookie.Name,
		Value:    token,
		Path:     a.Cookie.Path,
		Domain:   a.Cookie.Domain,
		MaxAge:   int(a.Cookie.MaxAge.Seconds()),
		Expires:  time.Now().Add(a.Cookie.MaxAge),
		HTTPOnly: true,
		Secure:   a.Cookie.Secure,
		SameSite: router.CookieSameSiteStrictMode,
	})
}

func (a *AuthController) clearRefreshCookie(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     a.Cookie.Name,
		Value:    "",
		Path:     a.Cookie.Path,
		Domain:   a.Cookie.Domain,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.Cookie.Secure,
		SameSite: router.CookieSameSiteStrictMode,
	})
}
