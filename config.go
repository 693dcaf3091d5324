package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds auth options. Keys match the environment variable names.
type Config struct {
	AppEnv     string `mapstructure:"app_env"`
	Production bool   `mapstructure:"production"`
	AppURL     string `mapstructure:"app_url"`
	AppPort    int    `mapstructure:"app_port"`

	AccessSecret         string        `mapstructure:"access_secret"`
	RefreshSecret        string        `mapstructure:"refresh_secret"`
	AccessTokenTTL       time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL      time.Duration `mapstructure:"refresh_token_ttl"`
	VerificationTokenTTL time.Duration `mapstructure:"verification_token_ttl"`
	Issuer               string        `mapstructure:"issuer"`
	BcryptCost           int           `mapstructure:"bcrypt_cost"`

	MailFrom     string `mapstructure:"mail_from"`
	MailHost     string `mapstructure:"mail_host"`
	MailPort     int    `mapstructure:"mail_port"`
	MailUsername string `mapstructure:"mail_username"`
	MailPassword string `mapstructure:"mail_password"`
	MailDir      string `mapstructure:"mail_dir"`

	// ActivationPath is prefixed to emailed activation links, it must match
	// where the activation route is mounted
	ActivationPath string `mapstructure:"activation_path"`

	DatabaseDriver string `mapstructure:"database_driver"`
	DatabaseURL    string `mapstructure:"database_url"`
	RedisURL       string `mapstructure:"redis_url"`

	// PurgeVerificationTokens lets housekeeping delete expired verification
	// tokens. Left off, an expired link keeps answering with
	// verification_token_expired.
	PurgeVerificationTokens bool `mapstructure:"purge_verification_tokens"`
}

var configDefaults = map[string]any{
	"app_env":                "development",
	"production":             false,
	"app_url":                "http://localhost",
	"app_port":               8000,
	"access_secret":          "",
	"refresh_secret":         "",
	"access_token_ttl":       DefaultAccessTokenTTL,
	"refresh_token_ttl":      DefaultRefreshTokenTTL,
	"verification_token_ttl": DefaultVerificationTokenTTL,
	"issuer":                 "",
	"bcrypt_cost":            0,
	"mail_from":              "no-reply@localhost",
	"mail_host":              "",
	"mail_port":              587,
	"mail_username":          "",
	"mail_password":          "",
	"mail_dir":               "",
	"activation_path":        DefaultActivationPath,
	"database_driver":        "sqlite",
	"database_url":           "file::memory:?cache=shared",
	"redis_url":              "",

	"purge_verification_tokens": false,
}

// LoadConfig loads .env.<APP_ENV> and .env when present, then reads the
// environment through viper. Variables already set in the process win
// over dotenv files.
func LoadConfig(dir string) (*Config, error) {
	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, val := range configDefaults {
		v.SetDefault(key, val)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode configuration").
			WithTextCode(TextCodeInvalidConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDotEnv(dir string) error {
	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	files := []string{fmt.Sprintf(".env.%s", env), ".env"}
	for _, name := range files {
		path := name
		if dir != "" {
			path = strings.TrimRight(dir, "/") + "/" + name
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load "+path).
				WithTextCode(TextCodeInvalidConfig)
		}
	}
	return nil
}

// Validate checks the secrets are present and distinct
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.AccessSecret, validation.Required),
		validation.Field(&c.RefreshSecret, validation.Required,
			validation.NotIn(c.AccessSecret).Error("must differ from access_secret")),
		validation.Field(&c.AppURL, validation.Required),
		validation.Field(&c.MailFrom, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, ErrInvalidConfig.Message).
			WithTextCode(TextCodeInvalidConfig).
			WithCode(goerrors.CodeInternal)
	}
	return nil
}

// BaseURL is the externally visible origin used in emailed links
func (c Config) BaseURL() string {
	if c.AppPort == 0 {
		return c.AppURL
	}
	return fmt.Sprintf("%s:%d", strings.TrimRight(c.AppURL, "/"), c.AppPort)
}

// TokenConfig returns the signer configuration
func (c Config) TokenConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
		Issuer:        c.Issuer,
	}
}
