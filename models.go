package auth

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleEmployer is attached to every employer principal created at registration
const RoleEmployer = "EMPLOYER"

// RoleList persists a set of role names as a JSON text column so the same
// model works on sqlite and postgres.
type RoleList []string

// Value implements driver.Valuer
func (r RoleList) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (r *RoleList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("unsupported role list source type %T", src)
	}
}

// Contains reports whether the list carries the given role name
func (r RoleList) Contains(name string) bool {
	for _, role := range r {
		if role == name {
			return true
		}
	}
	return false
}

// User is the generic credential record: username (email-shaped, unique),
// password hash, and role names. Created at registration, mutated only by
// password change or reset.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"password_hash,omitempty"`
	Roles         RoleList   `bun:"roles,type:text" json:"roles,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Role is a named role record. Kept as its own table so registration can
// resolve-or-create the EMPLOYER role the way the admin tooling expects.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// AccountStatus is the employer account lifecycle state
type AccountStatus string

const (
	// AccountStatusPendingActivation is the state of a freshly registered employer
	AccountStatusPendingActivation AccountStatus = "PENDING_ACTIVATION"
	// AccountStatusActive is the only state allowed to authenticate
	AccountStatusActive AccountStatus = "ACTIVE"
	// AccountStatusInactive is an administratively disabled account
	AccountStatusInactive AccountStatus = "INACTIVE"
)

// Employer is the domain identity entity. It is a credential holder in its
// own right: professional email doubles as the username, and the record
// carries its own password hash and roles independent of the users table.
type Employer struct {
	bun.BaseModel `bun:"table:employers,alias:emp"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`

	CompanyName string `bun:"company_name,notnull" json:"company_name,omitempty"`
	Ninea       string `bun:"ninea,notnull,unique" json:"ninea,omitempty"`

	// Opaque profile payload, validated at the boundary but not interpreted here
	ActivitySector    string `bun:"activity_sector" json:"activity_sector,omitempty"`
	CompanySize       string `bun:"company_size" json:"company_size,omitempty"`
	Address           string `bun:"address" json:"address,omitempty"`
	AddressComplement string `bun:"address_complement" json:"address_complement,omitempty"`
	Department        string `bun:"department" json:"department,omitempty"`
	Country           string `bun:"country" json:"country,omitempty"`
	Website           string `bun:"website" json:"website,omitempty"`
	FirstName         string `bun:"first_name" json:"first_name,omitempty"`
	LastName          string `bun:"last_name" json:"last_name,omitempty"`
	Function          string `bun:"function" json:"function,omitempty"`

	ProfessionalPhone      string `bun:"professional_phone,notnull" json:"professional_phone,omitempty"`
	ProfessionalPhoneFixed string `bun:"professional_phone_fixed" json:"professional_phone_fixed,omitempty"`
	ProfessionalEmail      string `bun:"professional_email,notnull,unique" json:"professional_email,omitempty"`

	PasswordHash string   `bun:"password_hash,notnull" json:"password_hash,omitempty"`
	Roles        RoleList `bun:"roles,type:text" json:"roles,omitempty"`

	NineaDocumentPath string `bun:"ninea_document_path" json:"ninea_document_path,omitempty"`
	RCCMDocumentPath  string `bun:"rccm_document_path" json:"rccm_document_path,omitempty"`

	AccountStatus      AccountStatus `bun:"account_status,notnull" json:"account_status,omitempty"`
	StatusChangeReason string        `bun:"status_change_reason" json:"status_change_reason,omitempty"`
	StatusChangedAt    *time.Time    `bun:"status_changed_at,nullzero" json:"status_changed_at,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsUsable reports whether the account may authenticate
func (e *Employer) IsUsable() bool {
	return e != nil && e.AccountStatus == AccountStatusActive
}

// ResetTokenTTL is the validity window of a password reset token (1440 minutes)
const ResetTokenTTL = 1440 * time.Minute

// PasswordResetToken is a single-use, time-bounded reset credential. The raw
// token string is only available at creation time and must be delivered
// out-of-band.
type PasswordResetToken struct {
	bun.BaseModel `bun:"table:password_reset_tokens,alias:prt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"-"`
	Username      string     `bun:"username,notnull" json:"username,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NewPasswordResetToken mints a reset token for username with the fixed TTL
func NewPasswordResetToken(username string) *PasswordResetToken {
	return &PasswordResetToken{
		ID:        uuid.New(),
		Token:     uuid.NewString(),
		Username:  username,
		ExpiresAt: time.Now().Add(ResetTokenTTL),
	}
}

// IsExpired reports whether the token's expiry has passed at the given time
func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
