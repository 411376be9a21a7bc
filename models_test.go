package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/solutionrh/go-auth"
)

func TestRoleListRoundtrip(t *testing.T) {
	roles := auth.RoleList{"EMPLOYER", "ADMIN"}

	value, err := roles.Value()
	require.NoError(t, err)

	var decoded auth.RoleList
	require.NoError(t, decoded.Scan(value))

	assert.Equal(t, roles, decoded)
}

func TestRoleListScanVariants(t *testing.T) {
	var fromBytes auth.RoleList
	require.NoError(t, fromBytes.Scan([]byte(`["EMPLOYER"]`)))
	assert.Equal(t, auth.RoleList{"EMPLOYER"}, fromBytes)

	var fromNil auth.RoleList
	require.NoError(t, fromNil.Scan(nil))
	assert.Empty(t, fromNil)
}

func TestRoleListContains(t *testing.T) {
	roles := auth.RoleList{"EMPLOYER"}

	assert.True(t, roles.Contains("EMPLOYER"))
	assert.False(t, roles.Contains("ADMIN"))
	assert.False(t, auth.RoleList(nil).Contains("EMPLOYER"))
}

func TestEmployerIsUsable(t *testing.T) {
	assert.True(t, (&auth.Employer{AccountStatus: auth.AccountStatusActive}).IsUsable())
	assert.False(t, (&auth.Employer{AccountStatus: auth.AccountStatusPendingActivation}).IsUsable())
	assert.False(t, (&auth.Employer{AccountStatus: auth.AccountStatusInactive}).IsUsable())

	var nilEmployer *auth.Employer
	assert.False(t, nilEmployer.IsUsable())
}

func TestNewPasswordResetToken(t *testing.T) {
	token := auth.NewPasswordResetToken("admin@example.com")

	assert.NotEmpty(t, token.Token)
	assert.Equal(t, "admin@example.com", token.Username)
	assert.WithinDuration(t, time.Now().Add(auth.ResetTokenTTL), token.ExpiresAt, time.Minute)

	other := auth.NewPasswordResetToken("admin@example.com")
	assert.NotEqual(t, token.Token, other.Token)
}

func TestPasswordResetTokenIsExpired(t *testing.T) {
	token := auth.NewPasswordResetToken("admin@example.com")

	assert.False(t, token.IsExpired(time.Now()))
	assert.False(t, token.IsExpired(token.ExpiresAt))
	assert.True(t, token.IsExpired(time.Now().Add(auth.ResetTokenTTL+time.Minute)))
}
