package override

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Sweepable interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper retires expired overrides on a cron schedule so their users'
// cached grants are invalidated.
type Sweeper struct {
	service Sweepable
	cron    *cron.Cron
	timeout time.Duration
	logger  *slog.Logger
}

func NewSweeper(service Sweepable, schedule string, logger *slog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		service: service,
		cron:    cron.New(),
		timeout: 30 * time.Second,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("override sweeper started", "entries", len(s.cron.Entries()))
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("override sweeper stopped")
	case <-ctx.Done():
		s.logger.Warn("override sweeper stop timed out")
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	return s.service.SweepExpired(ctx)
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.service.SweepExpired(ctx); err != nil {
		s.logger.Error("override sweep failed", "error", err)
	}
}
