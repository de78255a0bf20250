// Package jobs runs scheduled maintenance work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pkordes/visitbook/internal/domain"
)

// Sweeper archives records dated before today.
type Sweeper interface {
	Sweep(ctx context.Context, today time.Time) (int64, error)
}

// ArchiveScheduler runs a Sweeper on a cron schedule as domain.SystemActor.
type ArchiveScheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	today   func() time.Time
	log     *slog.Logger
}

// NewArchiveScheduler parses spec (standard five-field cron syntax, or a
// descriptor such as "@daily") and returns a scheduler that is not yet running.
// today supplies the calendar date each run archives up to.
func NewArchiveScheduler(spec string, loc *time.Location, sweeper Sweeper, today func() time.Time, log *slog.Logger) (*ArchiveScheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &ArchiveScheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sweeper,
		today:   today,
		log:     log,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("jobs.NewArchiveScheduler: schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs one sweep. Failures are logged; the next tick retries.
func (s *ArchiveScheduler) RunOnce(ctx context.Context) {
	ctx = domain.WithIdentity(ctx, domain.Identity{Username: domain.SystemActor, Role: domain.RoleAdmin})
	start := time.Now()
	n, err := s.sweeper.Sweep(ctx, s.today())
	if err != nil {
		s.log.ErrorContext(ctx, "scheduled archive sweep failed", slog.Any("error", err))
		return
	}
	s.log.InfoContext(ctx, "scheduled archive sweep",
		slog.Int64("archived", n),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
}

// Run starts the scheduler and blocks until ctx is done, then waits for any
// in-flight sweep to finish.
func (s *ArchiveScheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.log.InfoContext(ctx, "archive scheduler started")
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.InfoContext(context.Background(), "archive scheduler stopped")
	return nil
}
