package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes access from refresh credentials inside the claims.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// JWTClaims is the claim set for both access and refresh tokens
type JWTClaims struct {
	jwt.RegisteredClaims
	UID   int64     `json:"uid"`
	Email string    `json:"email"`
	Kind  TokenKind `json:"knd,omitempty"`
}

func newClaims(payload TokenPayload, kind TokenKind, now time.Time, ttl time.Duration) *JWTClaims {
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(payload.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:   payload.ID,
		Email: payload.Email,
		Kind:  kind,
	}
	ensureTokenID(&claims.RegisteredClaims)
	return claims
}

// ensureTokenID gives every token a unique jti. Two tokens signed for the
// same user within the same second would otherwise be byte identical,
// which breaks rotation.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}

// UserID returns the user id
func (c *JWTClaims) UserID() int64 {
	return c.UID
}

// Payload returns the identity carried by the token
func (c *JWTClaims) Payload() TokenPayload {
	return TokenPayload{ID: c.UID, Email: c.Email}
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
