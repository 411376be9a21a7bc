package auth

import (
	"context"
	"time"
)

// ActivityEventType identifies what happened.
type ActivityEventType string

const (
	ActivityEventAccountStatusChanged ActivityEventType = "account.status.changed"
	ActivityEventEmployerRegistered   ActivityEventType = "account.employer.registered"
	ActivityEventLoginSuccess         ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure         ActivityEventType = "auth.login.failure"
	ActivityEventPasswordResetSuccess ActivityEventType = "auth.password.reset"
)

// ActivityEvent is the audit record emitted around authentication and
// account lifecycle actions. FromStatus/ToStatus are only set for
// status transitions.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	AccountID  string
	FromStatus AccountStatus
	ToStatus   AccountStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives audit events. Recording is best effort: emitters
// log sink errors and carry on, an audit failure never fails the action.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a plain function into an ActivitySink.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// discardSink swallows events so emitters never need a nil check.
type discardSink struct{}

func (discardSink) Record(context.Context, ActivityEvent) error { return nil }

func sinkOrDiscard(s ActivitySink) ActivitySink {
	if s == nil {
		return discardSink{}
	}
	return s
}
