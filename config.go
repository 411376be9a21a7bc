package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig loads authentication settings from the process environment
type EnvConfig struct {
	SigningKey      string        `env:"AUTH_SIGNING_KEY"`
	TokenIssuer     string        `env:"AUTH_TOKEN_ISSUER"`
	AccessTokenTTL  time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"24h"`
	ContextKey      string        `env:"AUTH_CONTEXT_KEY" envDefault:"user"`
	UploadDir       string        `env:"AUTH_UPLOAD_DIR" envDefault:"uploads"`
	SweepSchedule   string        `env:"AUTH_SWEEP_SCHEDULE" envDefault:"0 0 * * *"`
}

var _ Config = (*EnvConfig)(nil)

// LoadConfig parses the environment into an EnvConfig
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse auth configuration")
	}
	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c *EnvConfig) GetIssuer() string {
	return c.TokenIssuer
}

func (c *EnvConfig) GetAccessTokenExpiration() time.Duration {
	return c.AccessTokenTTL
}

func (c *EnvConfig) GetRefreshTokenExpiration() time.Duration {
	return c.RefreshTokenTTL
}

func (c *EnvConfig) GetContextKey() string {
	return c.ContextKey
}

func (c *EnvConfig) GetUploadDir() string {
	return c.UploadDir
}

func (c *EnvConfig) GetSweepSchedule() string {
	return c.SweepSchedule
}
