package jwtware

import (
	"errors"
	"strings"

	"github.com/goliatone/go-router"

	auth "github.com/goliatone/go-auth-sessions"
)

var (
	defaultTokenLookup = "header:" + router.HeaderAuthorization
	// ErrJWTMissing means the request carries no credential at all
	ErrJWTMissing = errors.New("missing JWT")
	// ErrJWTMalformed means a credential is present but not in the expected scheme
	ErrJWTMalformed = errors.New("malformed JWT")
)

// TokenVerifier verifies access tokens. *auth.TokenService implements it.
type TokenVerifier interface {
	VerifyAccess(token string) auth.VerifyResult
}

type Config struct {
	// Filter skips the middleware when it returns true
	Filter func(router.Context) bool
	// Verifier is required
	Verifier TokenVerifier
	// ContextKey is the Locals key holding *auth.JWTClaims, default "user"
	ContextKey string
	// FailureKey is the Locals key holding the auth.TokenStatus of a
	// rejected credential, default "auth_failure"
	FailureKey string
	// TokenLookup is a comma separated list of source:name pairs,
	// default "header:Authorization". Supported sources: header, query, cookie.
	TokenLookup string
	AuthScheme  string
	// ErrorHandler renders Guard failures, default returns the error so the
	// server level error handler can map it.
	ErrorHandler router.ErrorHandler
}

// New returns the identity middleware. It never rejects a request: a
// valid access token attaches claims, an invalid one records why it
// failed, and a missing one leaves the request anonymous. Use Guard on
// routes that require an identity.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return next(ctx)
			}

			raw, err := ExtractRawToken(ctx, extractors)
			if err != nil {
				if errors.Is(err, ErrJWTMalformed) {
					recordFailure(ctx, cfg, auth.TokenMalformed)
				}
				return next(ctx)
			}

			res := cfg.Verifier.VerifyAccess(raw)
			if !res.Valid() {
				recordFailure(ctx, cfg, res.Status)
				return next(ctx)
			}

			ctx.Locals(cfg.ContextKey, res.Claims)
			ctx.SetContext(auth.WithClaimsContext(ctx.Context(), res.Claims))

			return next(ctx)
		}
	}
}

// Guard rejects requests that reached it without an identity. It does not
// verify tokens itself, it relies on New having run first. When New
// recorded a failure the specific error is returned, otherwise
// auth.ErrNotAuthorized.
func Guard(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if _, ok := FromLocals(ctx, cfg.ContextKey); ok {
				return next(ctx)
			}

			if status, ok := ctx.Locals(cfg.FailureKey).(auth.TokenStatus); ok {
				return cfg.ErrorHandler(ctx, auth.AccessFailureError(status))
			}

			return cfg.ErrorHandler(ctx, auth.ErrNotAuthorized)
		}
	}
}

// FromLocals returns the claims attached by New
func FromLocals(c router.Context, key ...string) (*auth.JWTClaims, bool) {
	k := "user"
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	claims, ok := c.Locals(k).(*auth.JWTClaims)
	return claims, ok && claims != nil
}

func recordFailure(c router.Context, cfg Config, status auth.TokenStatus) {
	c.Locals(cfg.FailureKey, status)
	c.SetContext(auth.WithTokenFailureContext(c.Context(), status))
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Verifier == nil {
		panic("AUTH: JWT middleware configuration: Verifier is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.FailureKey == "" {
		cfg.FailureKey = "auth_failure"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ router.Context, err error) error {
			return err
		}
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

// ExtractRawToken runs extractors in order. It returns ErrJWTMalformed if
// any source held a credential in the wrong shape and none held a valid
// one, and ErrJWTMissing if no source held anything.
func ExtractRawToken(c router.Context, extractors []JWTExtractor) (string, error) {
	err := ErrJWTMissing
	for _, extractor := range extractors {
		raw, exErr := extractor(c)
		if raw != "" && exErr == nil {
			return raw, nil
		}
		if errors.Is(exErr, ErrJWTMalformed) {
			err = ErrJWTMalformed
		}
	}
	return "", err
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token
	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c router.Context) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	authScheme = strings.TrimSpace(authScheme)
	return func(c router.Context) (string, error) {
		a := strings.TrimSpace(c.Header(header))
		if a == "" {
			return "", ErrJWTMissing
		}
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissing
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissing
		}
		return token, nil
	}
}
