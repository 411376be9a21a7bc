package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/solutionrh/go-auth"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := auth.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.GetAccessTokenExpiration())
	assert.Equal(t, 24*time.Hour, cfg.GetRefreshTokenExpiration())
	assert.Equal(t, "user", cfg.GetContextKey())
	assert.Equal(t, "uploads", cfg.GetUploadDir())
	assert.Equal(t, "0 0 * * *", cfg.GetSweepSchedule())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", "super-secret-signing-key")
	t.Setenv("AUTH_TOKEN_ISSUER", "solutionrh")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "30m")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL", "72h")
	t.Setenv("AUTH_UPLOAD_DIR", "/var/lib/uploads")
	t.Setenv("AUTH_SWEEP_SCHEDULE", "30 2 * * *")

	cfg, err := auth.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "super-secret-signing-key", cfg.GetSigningKey())
	assert.Equal(t, "solutionrh", cfg.GetIssuer())
	assert.Equal(t, 30*time.Minute, cfg.GetAccessTokenExpiration())
	assert.Equal(t, 72*time.Hour, cfg.GetRefreshTokenExpiration())
	assert.Equal(t, "/var/lib/uploads", cfg.GetUploadDir())
	assert.Equal(t, "30 2 * * *", cfg.GetSweepSchedule())
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "not-a-duration")

	_, err := auth.LoadConfig()
	require.Error(t, err)
}
