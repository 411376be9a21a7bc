package auth

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the reset token sweep daily at midnight
const DefaultSweepSchedule = "0 0 * * *"

// ExpiredTokenSweeper drives PasswordService.SweepExpired on a cron schedule.
// The scheduling concern lives here so the service itself stays timer-free.
type ExpiredTokenSweeper struct {
	passwords *PasswordService
	schedule  string
	timeout   time.Duration
	logger    Logger
	cron      *cron.Cron
	entry     cron.EntryID
}

// NewExpiredTokenSweeper creates a sweeper with the default daily schedule
func NewExpiredTokenSweeper(passwords *PasswordService) *ExpiredTokenSweeper {
	return &ExpiredTokenSweeper{
		passwords: passwords,
		schedule:  DefaultSweepSchedule,
		timeout:   time.Minute,
		logger:    defLogger{},
	}
}

// WithSchedule overrides the cron expression
func (s *ExpiredTokenSweeper) WithSchedule(schedule string) *ExpiredTokenSweeper {
	if schedule != "" {
		s.schedule = schedule
	}
	return s
}

// WithLogger overrides the logger
func (s *ExpiredTokenSweeper) WithLogger(logger Logger) *ExpiredTokenSweeper {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Start registers the sweep job and starts the scheduler
func (s *ExpiredTokenSweeper) Start() error {
	s.cron = cron.New()

	entry, err := s.cron.AddFunc(s.schedule, s.runOnce)
	if err != nil {
		return err
	}

	s.entry = entry
	s.cron.Start()
	s.logger.Info("reset token sweeper started", "schedule", s.schedule)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (s *ExpiredTokenSweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *ExpiredTokenSweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.passwords.SweepExpired(ctx, time.Now()); err != nil {
		s.logger.Error("reset token sweep failed", "error", err)
	}
}
