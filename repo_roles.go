package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles resolves role records by name
type Roles interface {
	repository.Repository[*Role]

	GetOrCreateByName(ctx context.Context, name string) (*Role, error)
	GetOrCreateByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)
}

type roles struct {
	repository.Repository[*Role]
	db *bun.DB
}

var _ Roles = (*roles)(nil)

// NewRolesRepository builds the role repository
func NewRolesRepository(db *bun.DB) Roles {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Role, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &roles{
		Repository: repo,
		db:         db,
	}
}

func (a *roles) GetOrCreateByName(ctx context.Context, name string) (*Role, error) {
	return a.GetOrCreateByNameTx(ctx, a.db, name)
}

func (a *roles) GetOrCreateByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	name = strings.TrimSpace(name)

	record := &Role{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err == nil {
		return record, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	record = &Role{
		ID:   uuid.New(),
		Name: name,
	}

	return a.Repository.CreateTx(ctx, tx, record)
}
