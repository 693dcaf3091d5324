package auth_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-auth-sessions"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := auth.HashPassword(tt.password)

			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrNoEmptyString)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)

			err = auth.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := auth.BcryptHasher{Cost: bcrypt.MinCost}.HashPassword(password)
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  error
	}{
		{
			name:     "Matching password",
			password: password,
			hash:     hash,
		},
		{
			name:     "Wrong password",
			password: "wrongPassword",
			hash:     hash,
			wantErr:  auth.ErrMismatchedHashAndPassword,
		},
		{
			name:     "Invalid hash",
			password: password,
			hash:     "invalidhash",
			wantErr:  bcrypt.ErrHashTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ComparePasswordAndHash(tt.password, tt.hash)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBcryptHasherCost(t *testing.T) {
	hash, err := auth.BcryptHasher{Cost: bcrypt.MinCost + 1}.HashPassword("password")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)

	_, err = auth.BcryptHasher{Cost: bcrypt.MaxCost + 1}.HashPassword("password")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidConfig))
}

func TestBcryptHasherPasswordLength(t *testing.T) {
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := hasher.HashPassword(strings.Repeat("x", auth.MaxPasswordBytes))
	require.NoError(t, err)
	assert.NoError(t, hasher.ComparePasswordAndHash(strings.Repeat("x", auth.MaxPasswordBytes), hash))

	_, err = hasher.HashPassword(strings.Repeat("x", auth.MaxPasswordBytes+1))
	assert.ErrorIs(t, err, auth.ErrPasswordTooLong)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidPayload))
	assert.Equal(t, http.StatusBadRequest, auth.RenderError(err, true).Error.StatusCode)
}
