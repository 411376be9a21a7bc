package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/solutionrh/go-auth"
)

func TestUserProviderVerifyIdentity(t *testing.T) {
	repo := setupRepoManager(t)
	provider := auth.NewUserProvider(repo.Users(), repo.Employers())

	seedUser(t, repo, "admin@example.com", "sup3rs3cret", "ADMIN")

	t.Run("valid credentials", func(t *testing.T) {
		identity, err := provider.VerifyIdentity(context.Background(), "admin@example.com", "sup3rs3cret")
		require.NoError(t, err)
		assert.Equal(t, "admin@example.com", identity.Username())
		assert.Contains(t, identity.Roles(), "ADMIN")
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := provider.VerifyIdentity(context.Background(), "admin@example.com", "nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("unknown identifier reads as bad credentials", func(t *testing.T) {
		_, err := provider.VerifyIdentity(context.Background(), "ghost@example.com", "whatever")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})
}

func TestUserProviderEmployerFallback(t *testing.T) {
	repo := setupRepoManager(t)
	provider := auth.NewUserProvider(repo.Users(), repo.Employers())

	seedEmployer(t, repo, "contact@acme.sn", "sup3rs3cret", auth.AccountStatusActive)

	identity, err := provider.VerifyIdentity(context.Background(), "contact@acme.sn", "sup3rs3cret")
	require.NoError(t, err)
	assert.Equal(t, "contact@acme.sn", identity.Email())
	assert.Contains(t, identity.Roles(), auth.RoleEmployer)
}

func TestUserProviderUsersTableWins(t *testing.T) {
	repo := setupRepoManager(t)
	provider := auth.NewUserProvider(repo.Users(), repo.Employers())

	// same identifier in both stores with different passwords; the users
	// table takes priority
	seedUser(t, repo, "shared@acme.sn", "user-password")
	seedEmployer(t, repo, "shared@acme.sn", "employer-password", auth.AccountStatusActive)

	_, err := provider.VerifyIdentity(context.Background(), "shared@acme.sn", "user-password")
	require.NoError(t, err)

	_, err = provider.VerifyIdentity(context.Background(), "shared@acme.sn", "employer-password")
	require.Error(t, err)
}

func TestUserProviderInactiveEmployerIndistinguishable(t *testing.T) {
	repo := setupRepoManager(t)
	provider := auth.NewUserProvider(repo.Users(), repo.Employers())

	seedEmployer(t, repo, "pending@acme.sn", "sup3rs3cret", auth.AccountStatusPendingActivation)
	seedEmployer(t, repo, "inactive@acme.sn", "sup3rs3cret", auth.AccountStatusInactive)

	for _, email := range []string{"pending@acme.sn", "inactive@acme.sn", "missing@acme.sn"} {
		_, err := provider.VerifyIdentity(context.Background(), email, "sup3rs3cret")
		require.Error(t, err, email)
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword, email)

		_, err = provider.FindIdentityByIdentifier(context.Background(), email)
		require.Error(t, err, email)
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound, email)
	}
}

func TestUserProviderFindIdentityByIdentifier(t *testing.T) {
	repo := setupRepoManager(t)
	provider := auth.NewUserProvider(repo.Users(), repo.Employers())

	seedUser(t, repo, "admin@example.com", "sup3rs3cret", "ADMIN")

	identity, err := provider.FindIdentityByIdentifier(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", identity.Username())
	assert.NotEmpty(t, identity.ID())
}
