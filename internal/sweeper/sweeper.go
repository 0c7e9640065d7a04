// Package sweeper periodically abandons play sessions that went idle.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/playperu/hunts/internal/storage"
)

type Sweeper struct {
	store       *storage.Store
	idleTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func New(store *storage.Store, idleTimeout time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{store: store, idleTimeout: idleTimeout, logger: logger, now: time.Now}
}

// Sweep marks in-progress sessions without activity for longer than the
// idle timeout as abandoned.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.store.Queries().AbandonIdle(ctx, now.Add(-s.idleTimeout), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("abandoned idle sessions", "count", n)
	}
	return n, nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweeping sessions", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling sweep: %w", err)
	}

	sched.Start()
	<-ctx.Done()
	return sched.Shutdown()
}
