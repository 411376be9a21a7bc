package auth

import (
	"context"
	"mime/multipart"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RegisterEmployerMessage struct {
	CompanyName            string `json:"companyName"`
	Ninea                  string `json:"ninea"`
	ActivitySector         string `json:"activitySector"`
	CompanySize            string `json:"companySize"`
	Address                string `json:"address"`
	AddressComplement      string `json:"addressComplement"`
	Department             string `json:"department"`
	Country                string `json:"country"`
	Website                string `json:"website"`
	FirstName              string `json:"firstName"`
	LastName               string `json:"lastName"`
	Function               string `json:"function"`
	ProfessionalPhone      string `json:"professionalPhone"`
	ProfessionalPhoneFixed string `json:"professionalPhoneFixed"`
	ProfessionalEmail      string `json:"professionalEmail"`
	Password               string `json:"password"`

	NineaDocument *multipart.FileHeader `json:"-"`
	RCCMDocument  *multipart.FileHeader `json:"-"`

	UseHashid bool `json:"-"`
}

func (e RegisterEmployerMessage) Type() string { return "employer.register" }

type RegisterEmployerResponse struct {
	EmployerID    uuid.UUID     `json:"employerId"`
	AccountStatus AccountStatus `json:"accountStatus"`
	Tokens        *TokenPair    `json:"tokens,omitempty"`
}

type RegisterEmployerHandler struct {
	repo     RepositoryManager
	files    FileStore
	auther   Authenticator
	logger   Logger
	activity ActivitySink
}

func NewRegisterEmployerHandler(repo RepositoryManager, files FileStore, auther Authenticator) *RegisterEmployerHandler {
	return &RegisterEmployerHandler{
		repo:     repo,
		files:    files,
		auther:   auther,
		logger:   defLogger{},
		activity: discardSink{},
	}
}

// WithLogger sets the handler logger
func (h *RegisterEmployerHandler) WithLogger(logger Logger) *RegisterEmployerHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithActivitySink sets the sink receiving registration audit events
func (h *RegisterEmployerHandler) WithActivitySink(sink ActivitySink) *RegisterEmployerHandler {
	h.activity = sinkOrDiscard(sink)
	return h
}

func (h *RegisterEmployerHandler) Execute(ctx context.Context, event RegisterEmployerMessage) (*RegisterEmployerResponse, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during employer registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterEmployerHandler) execute(ctx context.Context, event RegisterEmployerMessage) (*RegisterEmployerResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	if err := h.checkAvailability(ctx, event); err != nil {
		return nil, err
	}

	role, err := h.repo.Roles().GetOrCreateByName(ctx, RoleEmployer)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve employer role")
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	employer := h.newEmployer(event, hash, role.Name)

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if employer, err = h.repo.Employers().CreateTx(ctx, tx, employer); err != nil {
			if IsUniqueViolation(err) {
				return ErrDuplicateEmail
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create employer")
		}

		stored, err := h.storeDocuments(employer, event)
		if err != nil {
			return err
		}

		if stored {
			if employer, err = h.repo.Employers().UpdateTx(ctx, tx, employer); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record document paths")
			}
		}

		user := &User{
			Username:     event.ProfessionalEmail,
			PasswordHash: hash,
			Roles:        RoleList{role.Name},
		}
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.ProfessionalEmail); err == nil {
				user.ID = id
			}
		}

		if _, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			if IsUniqueViolation(err) {
				return ErrDuplicateEmail
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create account record")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "employer registration transaction failed")
	}

	response := &RegisterEmployerResponse{
		EmployerID:    employer.ID,
		AccountStatus: employer.AccountStatus,
	}

	if err := h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventEmployerRegistered,
		Actor:      ActorRef{ID: employer.ID.String(), Type: "employer"},
		AccountID:  employer.ID.String(),
		ToStatus:   employer.AccountStatus,
		OccurredAt: time.Now(),
	}); err != nil {
		h.logger.Warn("activity sink error", "error", err)
	}

	// The account exists once the transaction commits; a failure to mint the
	// initial session must not surface as a registration failure.
	if h.auther != nil {
		tokens, _, err := h.auther.Login(ctx, event.ProfessionalEmail, event.Password)
		if err != nil {
			h.logger.Warn("post registration login failed", "email", event.ProfessionalEmail, "error", err)
		} else {
			response.Tokens = tokens
		}
	}

	return response, nil
}

func (h *RegisterEmployerHandler) checkAvailability(ctx context.Context, event RegisterEmployerMessage) error {
	taken, err := h.repo.Users().ExistsByUsername(ctx, event.ProfessionalEmail)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
	}
	if taken {
		return ErrDuplicateEmail
	}

	taken, err = h.repo.Employers().ExistsByEmail(ctx, event.ProfessionalEmail)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}
	if taken {
		return ErrDuplicateEmail
	}

	taken, err = h.repo.Employers().ExistsByNinea(ctx, event.Ninea)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check NINEA availability")
	}
	if taken {
		return ErrDuplicateNinea
	}

	return nil
}

func (h *RegisterEmployerHandler) newEmployer(event RegisterEmployerMessage, passwordHash, roleName string) *Employer {
	now := time.Now()
	return &Employer{
		CompanyName:            event.CompanyName,
		Ninea:                  event.Ninea,
		ActivitySector:         event.ActivitySector,
		CompanySize:            event.CompanySize,
		Address:                event.Address,
		AddressComplement:      event.AddressComplement,
		Department:             event.Department,
		Country:                event.Country,
		Website:                event.Website,
		FirstName:              event.FirstName,
		LastName:               event.LastName,
		Function:               event.Function,
		ProfessionalPhone:      event.ProfessionalPhone,
		ProfessionalPhoneFixed: event.ProfessionalPhoneFixed,
		ProfessionalEmail:      event.ProfessionalEmail,
		PasswordHash:           passwordHash,
		Roles:                  RoleList{roleName},
		AccountStatus:          AccountStatusPendingActivation,
		StatusChangeReason:     "initial registration pending activation",
		StatusChangedAt:        &now,
	}
}

// storeDocuments persists whichever verification documents the registration
// carries. Both slots are optional; they can be supplied later during the
// activation review. Returns whether anything was written.
func (h *RegisterEmployerHandler) storeDocuments(employer *Employer, event RegisterEmployerMessage) (bool, error) {
	ownerID := employer.ID.String()
	stored := false

	if hasContent(event.NineaDocument) {
		path, err := h.files.Store(event.NineaDocument, "ninea", ownerID)
		if err != nil {
			return stored, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to store NINEA document")
		}
		employer.NineaDocumentPath = path
		stored = true
	}

	if hasContent(event.RCCMDocument) {
		path, err := h.files.Store(event.RCCMDocument, "rccm", ownerID)
		if err != nil {
			return stored, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to store RCCM document")
		}
		employer.RCCMDocumentPath = path
		stored = true
	}

	return stored, nil
}

func hasContent(file *multipart.FileHeader) bool {
	return file != nil && file.Size > 0
}
