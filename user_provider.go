package auth

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// CredentialFinder is the credential record lookup the resolver needs
type CredentialFinder interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// EmployerFinder is the domain entity lookup the resolver needs
type EmployerFinder interface {
	GetByEmail(ctx context.Context, email string) (*Employer, error)
}

// UserProvider resolves a username against the two identity stores. The
// credential record store wins; the employer store is consulted only on a
// miss, and only ACTIVE employer accounts resolve. An inactive employer is
// reported as not found so unauthenticated callers learn nothing about
// account state.
type UserProvider struct {
	users     CredentialFinder
	employers EmployerFinder
	logger    Logger
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(users CredentialFinder, employers EmployerFinder) *UserProvider {
	return &UserProvider{
		users:     users,
		employers: employers,
		logger:    defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user, compare the password, and return identity
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	view, err := u.resolve(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, ErrIdentityNotFound) {
			// same failure as a wrong password, no username probing
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, view.passwordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	return view.identity, nil
}

// FindIdentityByIdentifier resolves the authoritative identity for a username
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	view, err := u.resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return view.identity, nil
}

// identityView pairs the public identity with the stored password hash so
// verification never exposes the hash outside this package.
type identityView struct {
	identity     Identity
	passwordHash string
}

func (u *UserProvider) resolve(ctx context.Context, identifier string) (*identityView, error) {
	user, err := u.users.GetByUsername(ctx, identifier)
	if err == nil {
		return &identityView{
			identity:     NewIdentityFromUser(user),
			passwordHash: user.PasswordHash,
		}, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	employer, err := u.employers.GetByEmail(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if !employer.IsUsable() {
		u.logger.Warn("blocked resolution of non-active employer account", "status", string(employer.AccountStatus))
		return nil, ErrIdentityNotFound
	}

	return &identityView{
		identity:     NewIdentityFromEmployer(employer),
		passwordHash: employer.PasswordHash,
	}, nil
}
