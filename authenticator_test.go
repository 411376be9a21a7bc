package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/solutionrh/go-auth"
)

func newAuthenticator(t *testing.T, repo auth.RepositoryManager) (*auth.Auther, *memorySink) {
	t.Helper()

	sink := &memorySink{}
	provider := auth.NewUserProvider(repo.Users(), repo.Employers())
	auther := auth.NewAuthenticator(provider, newTokenService(t)).WithActivitySink(sink)

	return auther, sink
}

func TestAutherLogin(t *testing.T) {
	repo := setupRepoManager(t)
	auther, sink := newAuthenticator(t, repo)

	seedUser(t, repo, "admin@example.com", "sup3rs3cret", "ADMIN")

	tokens, identity, err := auther.Login(context.Background(), "admin@example.com", "sup3rs3cret")
	require.NoError(t, err)
	require.NotNil(t, tokens)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "admin@example.com", identity.Username())

	claims, err := auther.TokenService().Validate(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Subject())
	assert.True(t, claims.HasRole("ADMIN"))

	refreshClaims, err := auther.TokenService().Validate(tokens.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refreshClaims.RoleNames())

	assert.Len(t, sink.byType(auth.ActivityEventLoginSuccess), 1)
}

func TestAutherLoginBadCredentials(t *testing.T) {
	repo := setupRepoManager(t)
	auther, sink := newAuthenticator(t, repo)

	seedUser(t, repo, "admin@example.com", "sup3rs3cret")

	_, _, err := auther.Login(context.Background(), "admin@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)

	_, _, err = auther.Login(context.Background(), "ghost@example.com", "whatever")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)

	assert.Len(t, sink.byType(auth.ActivityEventLoginFailure), 2)
}

func TestAutherRefresh(t *testing.T) {
	repo := setupRepoManager(t)
	auther, _ := newAuthenticator(t, repo)

	seedUser(t, repo, "admin@example.com", "sup3rs3cret", "ADMIN")

	tokens, _, err := auther.Login(context.Background(), "admin@example.com", "sup3rs3cret")
	require.NoError(t, err)

	access, err := auther.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)

	claims, err := auther.TokenService().Validate(access)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Subject())
	// roles come from the store at refresh time, not from the refresh token
	assert.True(t, claims.HasRole("ADMIN"))
}

func TestAutherRefreshDeactivatedEmployer(t *testing.T) {
	repo := setupRepoManager(t)
	auther, _ := newAuthenticator(t, repo)

	employer := seedEmployer(t, repo, "contact@acme.sn", "sup3rs3cret", auth.AccountStatusActive)

	tokens, _, err := auther.Login(context.Background(), "contact@acme.sn", "sup3rs3cret")
	require.NoError(t, err)

	sm := auth.NewAccountStateMachine(repo.Employers())
	_, err = sm.Transition(context.Background(), auth.ActorRef{ID: "admin", Type: "admin"}, employer,
		auth.AccountStatusInactive, auth.WithTransitionReason("compliance review"))
	require.NoError(t, err)

	// the refresh token is still cryptographically valid, but the account
	// no longer resolves
	_, err = auther.Refresh(context.Background(), tokens.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
}

func TestAutherRefreshRejectsGarbage(t *testing.T) {
	repo := setupRepoManager(t)
	auther, _ := newAuthenticator(t, repo)

	_, err := auther.Refresh(context.Background(), "not-a-token")
	require.Error(t, err)
}

func TestAutherIdentityFromToken(t *testing.T) {
	repo := setupRepoManager(t)
	auther, _ := newAuthenticator(t, repo)

	seedUser(t, repo, "admin@example.com", "sup3rs3cret", "ADMIN")

	tokens, _, err := auther.Login(context.Background(), "admin@example.com", "sup3rs3cret")
	require.NoError(t, err)

	identity, err := auther.IdentityFromToken(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", identity.Username())
}
