package auth_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-sessions"
)

func TestAuthSessionIsLive(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		session *auth.AuthSession
		want    bool
	}{
		{"nil session", nil, false},
		{"live", &auth.AuthSession{ExpiresAt: now.Add(time.Minute)}, true},
		{"expired", &auth.AuthSession{ExpiresAt: now.Add(-time.Minute)}, false},
		{"expires now", &auth.AuthSession{ExpiresAt: now}, false},
		{"revoked", &auth.AuthSession{ExpiresAt: now.Add(time.Minute), IsRevoked: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.IsLive(now))
		})
	}
}

func TestVerificationTokenIsExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&auth.VerificationToken{ExpiresAt: now.Add(time.Second)}).IsExpired(now))
	assert.True(t, (&auth.VerificationToken{ExpiresAt: now}).IsExpired(now))
	assert.True(t, (&auth.VerificationToken{ExpiresAt: now.Add(-time.Second)}).IsExpired(now))
}

func TestSecretsStayOutOfJSON(t *testing.T) {
	user := &auth.User{ID: 1, Email: "a@example.com", PasswordHash: "hash"}
	raw, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")

	pair := &auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"}
	raw, err = json.Marshal(pair)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "refresh\"")

	assert.Equal(t, auth.TokenPayload{ID: 1, Email: "a@example.com"}, user.Payload())
}
