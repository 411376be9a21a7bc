package auth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidTransition is returned when a requested status change is not
// in the allowed transition table.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode("INVALID_ACCOUNT_STATE_TRANSITION").
	WithCode(goerrors.CodeBadRequest)

// allowedTransitions is the account lifecycle: a fresh registration is
// pending until reviewed, and active/inactive can toggle after that.
var allowedTransitions = map[AccountStatus][]AccountStatus{
	AccountStatusPendingActivation: {AccountStatusActive, AccountStatusInactive},
	AccountStatusActive:            {AccountStatusInactive},
	AccountStatusInactive:          {AccountStatusActive},
}

// ActorRef identifies who or what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// TransitionMetadata carries the reason and free-form context for a change.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionContext is handed to hooks.
type TransitionContext struct {
	Actor    ActorRef
	Employer *Employer
	From     AccountStatus
	To       AccountStatus
	Meta     TransitionMetadata
}

// TransitionHook runs before or after the status update is persisted.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionHookPhase tells a hook error handler which side of persistence
// the failing hook ran on.
type TransitionHookPhase string

const (
	HookPhaseBefore TransitionHookPhase = "before_transition"
	HookPhaseAfter  TransitionHookPhase = "after_transition"
)

// HookErrorHandler converts a hook failure into the error returned to the
// caller. The default handler panics so unhandled hook errors are loud
// during development.
type HookErrorHandler func(ctx context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error

// AccountStateMachine moves employer accounts through their lifecycle.
type AccountStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, employer *Employer, target AccountStatus, opts ...TransitionOption) (*Employer, error)
	CurrentStatus(employer *Employer) AccountStatus
}

// StateMachineOption customizes construction.
type StateMachineOption func(*accountStateMachine)

// TransitionOption customizes a single Transition call.
type TransitionOption func(*transitionConfig)

func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *accountStateMachine) {
		sm.sink = sinkOrDiscard(sink)
	}
}

func WithStateMachineHookErrorHandler(handler HookErrorHandler) StateMachineOption {
	return func(sm *accountStateMachine) {
		if handler != nil {
			sm.onHookError = handler
		}
	}
}

func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the reason stamped on the account record.
func WithTransitionReason(reason string) TransitionOption {
	return func(cfg *transitionConfig) {
		cfg.meta.Reason = reason
	}
}

// WithTransitionMetadata merges free-form context into the audit event.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(cfg *transitionConfig) {
		if len(metadata) == 0 {
			return
		}
		if cfg.meta.Metadata == nil {
			cfg.meta.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			cfg.meta.Metadata[k] = v
		}
	}
}

// WithForceTransition skips the transition table check.
func WithForceTransition() TransitionOption {
	return func(cfg *transitionConfig) {
		cfg.force = true
	}
}

func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(cfg *transitionConfig) {
		if h != nil {
			cfg.before = append(cfg.before, h)
		}
	}
}

func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(cfg *transitionConfig) {
		if h != nil {
			cfg.after = append(cfg.after, h)
		}
	}
}

// NewAccountStateMachine returns a state machine persisting through the
// employers repository.
func NewAccountStateMachine(employers Employers, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		employers:   employers,
		now:         time.Now,
		sink:        discardSink{},
		logger:      defLogger{},
		onHookError: panicOnHookError,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	employers   Employers
	now         func() time.Time
	sink        ActivitySink
	logger      Logger
	onHookError HookErrorHandler
}

type transitionConfig struct {
	meta   TransitionMetadata
	force  bool
	before []TransitionHook
	after  []TransitionHook
}

func (sm *accountStateMachine) Transition(ctx context.Context, actor ActorRef, employer *Employer, target AccountStatus, opts ...TransitionOption) (*Employer, error) {
	if employer == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "employer is nil",
		})
	}
	if target == "" {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	from := sm.CurrentStatus(employer)
	if from == target {
		return employer, nil
	}

	cfg := &transitionConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	if !cfg.force && !transitionAllowed(from, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	tc := TransitionContext{
		Actor:    actor,
		Employer: employer,
		From:     from,
		To:       target,
		Meta:     cfg.meta.clone(),
	}

	if err := sm.runHooks(ctx, HookPhaseBefore, cfg.before, tc); err != nil {
		return nil, err
	}

	changedAt := sm.now()
	updated, err := sm.employers.UpdateStatus(ctx, employer.ID, target, cfg.meta.Reason, changedAt)
	if err != nil {
		return nil, err
	}

	// reflect the persisted row on the caller's copy
	if updated != nil && updated.AccountStatus != "" {
		employer.AccountStatus = updated.AccountStatus
		employer.StatusChangeReason = updated.StatusChangeReason
		employer.StatusChangedAt = updated.StatusChangedAt
	} else {
		employer.AccountStatus = target
		employer.StatusChangeReason = cfg.meta.Reason
		employer.StatusChangedAt = &changedAt
	}

	if err := sm.runHooks(ctx, HookPhaseAfter, cfg.after, tc); err != nil {
		return nil, err
	}

	sm.publish(ctx, actor, employer.ID.String(), from, target, tc.Meta)

	return employer, nil
}

// CurrentStatus treats a blank status as pending activation, the state
// every account starts in.
func (sm *accountStateMachine) CurrentStatus(employer *Employer) AccountStatus {
	if employer == nil {
		return ""
	}
	if employer.AccountStatus == "" {
		return AccountStatusPendingActivation
	}
	return employer.AccountStatus
}

func transitionAllowed(from, to AccountStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func (sm *accountStateMachine) runHooks(ctx context.Context, phase TransitionHookPhase, hooks []TransitionHook, tc TransitionContext) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, tc); err != nil {
			if sm.onHookError == nil {
				return err
			}
			return sm.onHookError(ctx, phase, err, tc)
		}
	}
	return nil
}

func (sm *accountStateMachine) publish(ctx context.Context, actor ActorRef, accountID string, from, to AccountStatus, meta TransitionMetadata) {
	if actor == (ActorRef{}) {
		actor = ActorRef{Type: "system"}
	}

	event := ActivityEvent{
		EventType:  ActivityEventAccountStatusChanged,
		Actor:      actor,
		AccountID:  accountID,
		FromStatus: from,
		ToStatus:   to,
		Metadata:   meta.eventMetadata(),
		OccurredAt: sm.now(),
	}

	if err := sm.sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}

func (m TransitionMetadata) clone() TransitionMetadata {
	out := TransitionMetadata{Reason: m.Reason}
	if len(m.Metadata) > 0 {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// eventMetadata folds the reason into the metadata map for audit events.
func (m TransitionMetadata) eventMetadata() map[string]any {
	if m.Reason == "" && len(m.Metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(m.Metadata)+1)
	if m.Reason != "" {
		out["reason"] = m.Reason
	}
	for k, v := range m.Metadata {
		out[k] = v
	}
	return out
}

func panicOnHookError(_ context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error {
	panic(fmt.Sprintf(
		"go-auth: %s hook failed for employer %s (%s -> %s, reason %q): %v; install WithStateMachineHookErrorHandler to handle hook errors at runtime",
		phase, tc.Employer.ID, tc.From, tc.To, tc.Meta.Reason, err,
	))
}
