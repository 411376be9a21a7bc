package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories plus the transaction boundary
// used by the registration coordinator and the reset token manager.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Employers() Employers
	Roles() Roles
	PasswordResets() PasswordResets
}

type mngr struct {
	db             *bun.DB
	users          Users
	employers      Employers
	roles          Roles
	passwordResets PasswordResets
}

// NewRepositoryManager wires every repository onto the shared bun handle
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:             db,
		users:          NewUsersRepository(db),
		employers:      NewEmployersRepository(db),
		roles:          NewRolesRepository(db),
		passwordResets: NewPasswordResetsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.employers == nil {
		return errors.New("repository employers should be initialized")
	}

	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}

	if m.passwordResets == nil {
		return errors.New("repository passwordResets should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Employers() Employers {
	return m.employers
}

func (m mngr) Roles() Roles {
	return m.roles
}

func (m mngr) PasswordResets() PasswordResets {
	return m.passwordResets
}
