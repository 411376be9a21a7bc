package auth

import (
	"context"
	"reflect"

	goerrors "github.com/goliatone/go-errors"
)

// Auther authenticates principals and issues bearer tokens
type Auther struct {
	provider IdentityProvider
	tokens   TokenService
	logger   Logger
	activity ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator backed by the given identity
// provider and token service
func NewAuthenticator(provider IdentityProvider, tokens TokenService) *Auther {
	return &Auther{
		provider: provider,
		tokens:   tokens,
		logger:   defLogger{},
		activity: discardSink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink sets the sink used to record login outcomes
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activity = sinkOrDiscard(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies credentials and issues an access + refresh token pair
func (s *Auther) Login(ctx context.Context, identifier, password string) (*TokenPair, Identity, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		s.recordLogin(ctx, ActivityEventLoginFailure, identifier)
		return nil, nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return nil, nil, ErrIdentityNotFound
	}

	access, err := s.tokens.IssueAccess(identity.Username(), identity.Roles())
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue access token")
	}

	refresh, err := s.tokens.IssueRefresh(identity.Username())
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue refresh token")
	}

	s.recordLogin(ctx, ActivityEventLoginSuccess, identity.Username())

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, identity, nil
}

func (s *Auther) recordLogin(ctx context.Context, eventType ActivityEventType, subject string) {
	event := ActivityEvent{
		EventType: eventType,
		Actor:     ActorRef{ID: subject, Type: "principal"},
		AccountID: subject,
	}
	if err := sinkOrDiscard(s.activity).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink error", "error", err)
	}
}

// Refresh verifies a refresh token and issues a fresh access token. Roles are
// re-read from the identity store, not trusted from the presented token, so a
// principal deleted or deactivated since issuance cannot refresh.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Validate(refreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", "error", err)
		return "", err
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, claims.Subject())
	if err != nil {
		s.logger.Warn("Refresh identity lookup failed", "error", err)
		return "", ErrIdentityNotFound
	}

	return s.tokens.IssueAccess(identity.Username(), identity.Roles())
}

// IdentityFromToken validates a bearer token and resolves its subject
func (s *Auther) IdentityFromToken(ctx context.Context, raw string) (Identity, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	return s.provider.FindIdentityByIdentifier(ctx, claims.Subject())
}
