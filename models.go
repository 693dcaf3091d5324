package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. Accounts start inactive and are activated
// by redeeming a verification token.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	Name          string     `bun:"name" json:"name,omitempty"`
	PasswordHash  string     `bun:"password,notnull" json:"-"`
	IsActive      bool       `bun:"is_active,notnull,default:false" json:"isActive"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}

// Payload returns the identity embedded in issued tokens.
func (u *User) Payload() TokenPayload {
	return TokenPayload{ID: u.ID, Email: u.Email}
}

// AuthSession is one live refresh token grant.
type AuthSession struct {
	bun.BaseModel `bun:"table:auth_sessions,alias:ses"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UserID        int64      `bun:"user_id,notnull" json:"userId"`
	RefreshToken  string     `bun:"refresh_token,notnull" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expiresAt"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	IsRevoked     bool       `bun:"is_revoked,notnull,default:false" json:"isRevoked"`
	DeviceInfo    string     `bun:"device_info,nullzero" json:"deviceInfo,omitempty"`
	IPAddress     string     `bun:"ip_address,nullzero" json:"ipAddress,omitempty"`
}

// IsLive reports whether the session can still be exchanged at now.
// Row presence alone is not enough, expired rows may linger.
func (s *AuthSession) IsLive(now time.Time) bool {
	if s == nil || s.IsRevoked {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// VerificationToken is a one time email activation token.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UserID        int64      `bun:"user_id,notnull" json:"userId"`
	Token         string     `bun:"token,notnull,unique" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expiresAt"`
}

// IsExpired reports whether the token can no longer be redeemed.
func (v *VerificationToken) IsExpired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// TokenPayload is the identity carried inside signed credentials.
type TokenPayload struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// TokenPair is the result of login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"-"`
	// RefreshExpiresAt is the session expiry, used for the cookie.
	RefreshExpiresAt time.Time `json:"-"`
}
