package jwtware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-sessions"
	"github.com/goliatone/go-auth-sessions/middleware/jwtware"
)

func newSigner(t *testing.T, now func() time.Time) *auth.TokenService {
	t.Helper()

	ts, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
	}, nil)
	require.NoError(t, err)
	if now != nil {
		ts.WithClock(now)
	}
	return ts
}

type identity struct {
	UID     int64  `json:"uid"`
	Failure string `json:"failure"`
}

// newApp mounts the identity middleware and a handler reporting what it saw
func newApp(cfg jwtware.Config) *fiber.App {
	srv := router.NewFiberAdapter(func(app *fiber.App) *fiber.App { return app })

	r := srv.Router()
	r.Use(jwtware.New(cfg))
	r.Get("/whoami", func(ctx router.Context) error {
		out := identity{}
		if claims, ok := auth.GetClaims(ctx.Context()); ok {
			out.UID = claims.UID
		}
		if status, ok := auth.GetTokenFailure(ctx.Context()); ok {
			out.Failure = status.String()
		}
		return ctx.JSON(http.StatusOK, out)
	})
	r.Get("/private", func(ctx router.Context) error {
		claims, _ := jwtware.FromLocals(ctx)
		return ctx.SendString(claims.Email)
	}, jwtware.Guard(cfg))

	return srv.WrappedRouter()
}

func whoami(t *testing.T, app *fiber.App, req *http.Request) identity {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := identity{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestJWTWare_HeaderExtraction(t *testing.T) {
	signer := newSigner(t, nil)
	app := newApp(jwtware.Config{Verifier: signer})

	valid, err := signer.SignAccess(auth.TokenPayload{ID: 12345, Email: "a@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   identity
	}{
		{"valid token", "Bearer " + valid, identity{UID: 12345}},
		{"lowercase scheme", "bearer " + valid, identity{UID: 12345}},
		{"missing header", "", identity{}},
		{"wrong scheme", "Basic " + valid, identity{Failure: "malformed"}},
		{"garbage token", "Bearer malformed.token.structure", identity{Failure: "malformed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set(router.HeaderAuthorization, tt.header)
			}
			assert.Equal(t, tt.want, whoami(t, app, req))
		})
	}
}

func TestJWTWare_ExpiredToken(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	issuedInPast := newSigner(t, func() time.Time { return past })
	expired, err := issuedInPast.SignAccess(auth.TokenPayload{ID: 1})
	require.NoError(t, err)

	app := newApp(jwtware.Config{Verifier: newSigner(t, nil)})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(router.HeaderAuthorization, "Bearer "+expired)
	assert.Equal(t, identity{Failure: "expired"}, whoami(t, app, req))
}

func TestJWTWare_RefreshTokenIsNotAnAccessToken(t *testing.T) {
	signer := newSigner(t, nil)
	refresh, err := signer.SignRefresh(auth.TokenPayload{ID: 1})
	require.NoError(t, err)

	app := newApp(jwtware.Config{Verifier: signer})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(router.HeaderAuthorization, "Bearer "+refresh)
	assert.Equal(t, identity{Failure: "malformed"}, whoami(t, app, req))
}

func TestJWTWare_CustomTokenLookup(t *testing.T) {
	signer := newSigner(t, nil)
	valid, err := signer.SignAccess(auth.TokenPayload{ID: 7})
	require.NoError(t, err)

	app := newApp(jwtware.Config{
		Verifier:    signer,
		TokenLookup: "header:X-Token,query:jwt,cookie:jwt_cookie",
		AuthScheme:  "Token",
	})

	t.Run("header with custom scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-Token", "Token "+valid)
		assert.Equal(t, int64(7), whoami(t, app, req).UID)
	})

	t.Run("query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami?jwt="+valid, nil)
		assert.Equal(t, int64(7), whoami(t, app, req).UID)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: "jwt_cookie", Value: valid})
		assert.Equal(t, int64(7), whoami(t, app, req).UID)
	})
}

func TestJWTWare_FilterFunction(t *testing.T) {
	signer := newSigner(t, nil)
	valid, err := signer.SignAccess(auth.TokenPayload{ID: 7})
	require.NoError(t, err)

	app := newApp(jwtware.Config{
		Verifier: signer,
		Filter:   func(c router.Context) bool { return c.Query("skip") == "1" },
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami?skip=1", nil)
	req.Header.Set(router.HeaderAuthorization, "Bearer "+valid)
	assert.Equal(t, identity{}, whoami(t, app, req))
}

func TestJWTWare_Guard(t *testing.T) {
	signer := newSigner(t, nil)
	valid, err := signer.SignAccess(auth.TokenPayload{ID: 7, Email: "seven@example.com"})
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	expired, err := newSigner(t, func() time.Time { return past }).SignAccess(auth.TokenPayload{ID: 7})
	require.NoError(t, err)

	var seen error
	cfg := jwtware.Config{
		Verifier: signer,
		ErrorHandler: func(c router.Context, err error) error {
			seen = err
			return c.SendStatus(http.StatusUnauthorized)
		},
	}
	app := newApp(cfg)

	tests := []struct {
		name    string
		header  string
		status  int
		wantErr error
	}{
		{"valid", "Bearer " + valid, http.StatusOK, nil},
		{"missing", "", http.StatusUnauthorized, auth.ErrNotAuthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, auth.ErrAccessTokenExpired},
		{"malformed", "Bearer abc", http.StatusUnauthorized, auth.ErrInvalidAccessToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set(router.HeaderAuthorization, tt.header)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.wantErr, seen)

			if tt.status == http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, "seven@example.com", string(body))
			}
		})
	}
}

func TestJWTWare_RequiresVerifier(t *testing.T) {
	assert.Panics(t, func() { jwtware.New(jwtware.Config{}) })
}
