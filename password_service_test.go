package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/solutionrh/go-auth"
)

func TestPasswordServiceChangePassword(t *testing.T) {
	repo := setupRepoManager(t)
	svc := auth.NewPasswordService(repo)

	seedUser(t, repo, "admin@example.com", "old-password")

	assert.True(t, svc.IsCurrentPasswordValid(context.Background(), "admin@example.com", "old-password"))
	assert.False(t, svc.IsCurrentPasswordValid(context.Background(), "admin@example.com", "new-password"))

	require.NoError(t, svc.ChangePassword(context.Background(), "admin@example.com", "new-password"))

	assert.False(t, svc.IsCurrentPasswordValid(context.Background(), "admin@example.com", "old-password"))
	assert.True(t, svc.IsCurrentPasswordValid(context.Background(), "admin@example.com", "new-password"))
}

func TestPasswordServiceChangePasswordUnknownUser(t *testing.T) {
	repo := setupRepoManager(t)
	svc := auth.NewPasswordService(repo)

	err := svc.ChangePassword(context.Background(), "ghost@example.com", "new-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrUnknownUser)
}

func TestPasswordServiceResetTokenLifecycle(t *testing.T) {
	repo := setupRepoManager(t)
	sink := &memorySink{}
	svc := auth.NewPasswordService(repo).WithActivitySink(sink)

	seedUser(t, repo, "admin@example.com", "old-password")

	token, err := svc.CreateResetToken(context.Background(), "admin@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	valid, err := svc.ValidateResetToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, valid)

	require.NoError(t, svc.ConsumeResetToken(context.Background(), token, "new-password"))
	assert.True(t, svc.IsCurrentPasswordValid(context.Background(), "admin@example.com", "new-password"))
	assert.Len(t, sink.byType(auth.ActivityEventPasswordResetSuccess), 1)

	// consumption deletes the row, so the same token cannot be replayed
	err = svc.ConsumeResetToken(context.Background(), token, "another-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrResetTokenInvalid)

	valid, err = svc.ValidateResetToken(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestPasswordServiceCreateResetTokenUnknownUser(t *testing.T) {
	repo := setupRepoManager(t)
	svc := auth.NewPasswordService(repo)

	_, err := svc.CreateResetToken(context.Background(), "ghost@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrUnknownUser)
}

func TestPasswordServiceCreateReplacesPriorToken(t *testing.T) {
	repo := setupRepoManager(t)
	svc := auth.NewPasswordService(repo)

	seedUser(t, repo, "admin@example.com", "old-password")

	first, err := svc.CreateResetToken(context.Background(), "admin@example.com")
	require.NoError(t, err)

	second, err := svc.CreateResetToken(context.Background(), "admin@example.com")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	valid, err := svc.ValidateResetToken(context.Background(), first)
	require.NoError(t, err)
	assert.False(t, valid, "prior token must be revoked")

	valid, err = svc.ValidateResetToken(context.Background(), second)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestPasswordServiceExpiredTokenDeletedOnRead(t *testing.T) {
	repo := setupRepoManager(t)
	svc := auth.NewPasswordService(repo)

	seedUser(t, repo, "admin@example.com", "old-password")

	record := auth.NewPasswordResetToken("admin@example.com")
	record.ExpiresAt = time.Now().Add(-time.Minute)
	_, err := repo.PasswordResets().Create(context.Background(), record)
	require.NoError(t, err)

	valid, err := svc.ValidateResetToken(context.Background(), record.Token)
	require.NoError(t, err)
	assert.False(t, valid)

	// the expired row is gone, so consuming it reports an invalid token
	err = svc.ConsumeResetToken(context.Background(), record.Token, "new-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrResetTokenInvalid)
}

func TestPasswordServiceSweepExpired(t *testing.T) {
	repo := setupRepoManager(t)
	svc := auth.NewPasswordService(repo)

	seedUser(t, repo, "one@example.com", "password-one")
	seedUser(t, repo, "two@example.com", "password-two")

	stale := auth.NewPasswordResetToken("one@example.com")
	stale.ExpiresAt = time.Now().Add(-time.Hour)
	_, err := repo.PasswordResets().Create(context.Background(), stale)
	require.NoError(t, err)

	live, err := svc.CreateResetToken(context.Background(), "two@example.com")
	require.NoError(t, err)

	count, err := svc.SweepExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	valid, err := svc.ValidateResetToken(context.Background(), live)
	require.NoError(t, err)
	assert.True(t, valid)
}
