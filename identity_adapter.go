package auth

type authIdentity struct {
	id       string
	username string
	email    string
	roles    []string
}

func (a authIdentity) ID() string       { return a.id }
func (a authIdentity) Username() string { return a.username }
func (a authIdentity) Email() string    { return a.email }
func (a authIdentity) Roles() []string  { return a.roles }

var _ Identity = authIdentity{}

// NewIdentityFromUser adapts a credential record into the Identity contract
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return authIdentity{
		id:       user.ID.String(),
		username: user.Username,
		email:    user.Username,
		roles:    append([]string(nil), user.Roles...),
	}
}

// NewIdentityFromEmployer adapts a domain entity into the Identity contract.
// The entity is not an identity itself; the view is composed from its fields.
func NewIdentityFromEmployer(employer *Employer) Identity {
	if employer == nil {
		return nil
	}
	return authIdentity{
		id:       employer.ID.String(),
		username: employer.ProfessionalEmail,
		email:    employer.ProfessionalEmail,
		roles:    append([]string(nil), employer.Roles...),
	}
}
