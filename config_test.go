package auth_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-sessions"
)

func TestLoadConfigFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	t.Setenv("ACCESS_SECRET", "from-process")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test"), []byte(
		"REFRESH_SECRET=from-env-test\nACCESS_TOKEN_TTL=5m\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"ACCESS_SECRET=from-dotenv\nAPP_PORT=9000\nREFRESH_SECRET=ignored\n"), 0o600))

	// godotenv does not override variables that already exist
	t.Cleanup(func() {
		os.Unsetenv("REFRESH_SECRET")
		os.Unsetenv("ACCESS_TOKEN_TTL")
		os.Unsetenv("APP_PORT")
	})

	cfg, err := auth.LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-process", cfg.AccessSecret)
	assert.Equal(t, "from-env-test", cfg.RefreshSecret)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, auth.DefaultRefreshTokenTTL, cfg.RefreshTokenTTL)
	assert.Equal(t, 9000, cfg.AppPort)
	assert.Equal(t, "http://localhost:9000", cfg.BaseURL())
	assert.Equal(t, "test", cfg.AppEnv)
	assert.Equal(t, auth.DefaultActivationPath, cfg.ActivationPath)
	assert.Equal(t, auth.DefaultActivationPath, auth.ServiceConfigFrom(*cfg).ActivationPath)
	assert.False(t, cfg.PurgeVerificationTokens)
}

func TestConfigValidate(t *testing.T) {
	base := auth.Config{
		AppURL:        "http://localhost",
		MailFrom:      "no-reply@localhost",
		AccessSecret:  "a",
		RefreshSecret: "b",
	}
	assert.NoError(t, base.Validate())

	same := base
	same.RefreshSecret = "a"
	assert.True(t, auth.HasTextCode(same.Validate(), auth.TextCodeInvalidConfig))

	missing := base
	missing.AccessSecret = ""
	assert.Error(t, missing.Validate())
}

func TestConfigTokenConfig(t *testing.T) {
	cfg := auth.Config{
		AccessSecret:    "a",
		RefreshSecret:   "b",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "iss",
	}
	assert.Equal(t, auth.TokenConfig{
		AccessSecret:  "a",
		RefreshSecret: "b",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "iss",
	}, cfg.TokenConfig())

	assert.Equal(t, "http://x", auth.Config{AppURL: "http://x"}.BaseURL())
}
