package auth

import (
	"context"
)

var claimsCtxKey = &contextKey{"claims"}
var tokenFailureCtxKey = &contextKey{"token_failure"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the verified claims in the given context
func WithClaimsContext(r context.Context, claims *JWTClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the verified claims from the standard context
func GetClaims(ctx context.Context) (*JWTClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*JWTClaims)
	return raw, ok && raw != nil
}

// WithTokenFailureContext records why the request credential was rejected,
// so a guard further down can report the specific failure.
func WithTokenFailureContext(r context.Context, status TokenStatus) context.Context {
	return context.WithValue(r, tokenFailureCtxKey, status)
}

// GetTokenFailure returns the recorded credential failure, if any
func GetTokenFailure(ctx context.Context) (TokenStatus, bool) {
	raw, ok := ctx.Value(tokenFailureCtxKey).(TokenStatus)
	return raw, ok
}

// AccessFailureError maps a recorded access token failure to the error
// surfaced by guarded routes.
func AccessFailureError(status TokenStatus) error {
	switch status {
	case TokenExpired:
		return ErrAccessTokenExpired
	case TokenNotYetValid:
		return ErrAccessTokenNotYetValid
	case TokenMalformed:
		return ErrInvalidAccessToken
	default:
		return ErrNotAuthorized
	}
}
