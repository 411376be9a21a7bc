package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Employers is the domain entity store
type Employers interface {
	repository.Repository[*Employer]

	GetByEmail(ctx context.Context, email string) (*Employer, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Employer, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByNinea(ctx context.Context, ninea string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus, reason string, changedAt time.Time) (*Employer, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus, reason string, changedAt time.Time) (*Employer, error)
}

type employers struct {
	repository.Repository[*Employer]
	db *bun.DB
}

var _ Employers = (*employers)(nil)

// NewEmployersRepository builds the employer entity repository
func NewEmployersRepository(db *bun.DB) Employers {
	repo := repository.NewRepository[*Employer](db, repository.ModelHandlers[*Employer]{
		NewRecord: func() *Employer { return &Employer{} },
		GetID: func(e *Employer) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *Employer, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
		GetIdentifier: func() string {
			return "professional_email"
		},
	})

	return &employers{
		Repository: repo,
		db:         db,
	}
}

func (a *employers) GetByEmail(ctx context.Context, email string) (*Employer, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *employers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Employer, error) {
	record := &Employer{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.professional_email = ?", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"professional_email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *employers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return a.db.NewSelect().
		Model((*Employer)(nil)).
		Where("?TableAlias.professional_email = ?", strings.TrimSpace(email)).
		Exists(ctx)
}

func (a *employers) ExistsByNinea(ctx context.Context, ninea string) (bool, error) {
	return a.db.NewSelect().
		Model((*Employer)(nil)).
		Where("?TableAlias.ninea = ?", strings.TrimSpace(ninea)).
		Exists(ctx)
}

func (a *employers) UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus, reason string, changedAt time.Time) (*Employer, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status, reason, changedAt)
}

func (a *employers) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus, reason string, changedAt time.Time) (*Employer, error) {
	record := &Employer{
		ID:                 id,
		AccountStatus:      status,
		StatusChangeReason: reason,
		StatusChangedAt:    &changedAt,
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *employers) Create(ctx context.Context, record *Employer, criteria ...repository.InsertCriteria) (*Employer, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *employers) CreateTx(ctx context.Context, tx bun.IDB, record *Employer, criteria ...repository.InsertCriteria) (*Employer, error) {
	prepareEmployerDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func prepareEmployerDefaults(record *Employer) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.AccountStatus == "" {
		record.AccountStatus = AccountStatusPendingActivation
	}

	if record.Roles == nil {
		record.Roles = RoleList{}
	}

	if record.Country == "" {
		record.Country = "Sénégal"
	}
}
