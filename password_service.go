package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// PasswordService owns the credential mutation paths: authenticated password
// change, and the single-use reset token lifecycle (issue, validate, consume,
// sweep).
type PasswordService struct {
	repo     RepositoryManager
	logger   Logger
	activity ActivitySink
}

// NewPasswordService creates a service with sane defaults
func NewPasswordService(repo RepositoryManager) *PasswordService {
	return &PasswordService{
		repo:     repo,
		logger:   defLogger{},
		activity: discardSink{},
	}
}

// WithLogger overrides the logger used by the service
func (s *PasswordService) WithLogger(logger Logger) *PasswordService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink sets the sink used to record reset outcomes
func (s *PasswordService) WithActivitySink(sink ActivitySink) *PasswordService {
	s.activity = sinkOrDiscard(sink)
	return s
}

// IsCurrentPasswordValid checks the stored hash for username against password
func (s *PasswordService) IsCurrentPasswordValid(ctx context.Context, username, password string) bool {
	user, err := s.repo.Users().GetByUsername(ctx, username)
	if err != nil {
		return false
	}
	return ComparePasswordAndHash(password, user.PasswordHash) == nil
}

// ChangePassword rewrites the credential record's password hash
func (s *PasswordService) ChangePassword(ctx context.Context, username, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	if err := s.repo.Users().ResetPassword(ctx, username, hash); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrUnknownUser
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
	}

	s.logger.Info("password changed", "username", username)
	return nil
}

// CreateResetToken mints a reset token for username, replacing any prior
// token for the same user, and returns the raw token string. This is the
// only place the raw value exists; deliver it out-of-band and never log it.
//
// The delete-then-insert is not serialized across requests: two concurrent
// calls for the same user can each leave a live token. The token column's
// unique constraint keeps the rows distinct; the at-most-one-live-token
// property holds only per request.
func (s *PasswordService) CreateResetToken(ctx context.Context, username string) (string, error) {
	exists, err := s.repo.Users().ExistsByUsername(ctx, username)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user for password reset")
	}

	if !exists {
		return "", ErrUnknownUser
	}

	token := NewPasswordResetToken(username)

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.PasswordResets().DeleteByUsernameTx(ctx, tx, username); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear prior reset tokens")
		}

		if _, err := s.repo.PasswordResets().CreateTx(ctx, tx, token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create password reset token")
		}

		return nil
	})

	if err != nil {
		return "", err
	}

	s.logger.Info("password reset token created", "username", username)
	return token.Token, nil
}

// ValidateResetToken reports whether a raw token is live. An expired token is
// deleted on read; there is no separate validity bit.
func (s *PasswordService) ValidateResetToken(ctx context.Context, token string) (bool, error) {
	record, err := s.repo.PasswordResets().GetByToken(ctx, token)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, nil
		}
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up reset token")
	}

	if record.IsExpired(time.Now()) {
		if err := s.repo.PasswordResets().DeleteByID(ctx, record.ID); err != nil {
			s.logger.Warn("failed to delete expired reset token", "error", err)
		}
		return false, nil
	}

	return true, nil
}

// ConsumeResetToken rewrites the owning user's password and deletes the token
// row in one transaction. The row being gone is what makes the token
// single-use: a second consume of the same value fails ErrResetTokenInvalid.
func (s *PasswordService) ConsumeResetToken(ctx context.Context, token, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := s.repo.PasswordResets().GetByTokenTx(ctx, tx, token)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrResetTokenInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up reset token")
		}

		if record.IsExpired(time.Now()) {
			if err := s.repo.PasswordResets().DeleteByIDTx(ctx, tx, record.ID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete expired reset token")
			}
			return ErrResetTokenInvalid
		}

		if err := s.repo.Users().ResetPasswordTx(ctx, tx, record.Username, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		return s.repo.PasswordResets().DeleteByIDTx(ctx, tx, record.ID)
	})

	if err != nil {
		return err
	}

	event := ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor:     ActorRef{Type: "principal"},
	}
	if err := sinkOrDiscard(s.activity).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink error", "error", err)
	}

	s.logger.Info("password reset via token")
	return nil
}

// SweepExpired bulk-deletes every reset token whose expiry is at or before now
func (s *PasswordService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.repo.PasswordResets().DeleteExpired(ctx, now)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sweep expired reset tokens")
	}

	if count > 0 {
		s.logger.Info("swept expired password reset tokens", "count", count)
	}

	return count, nil
}
