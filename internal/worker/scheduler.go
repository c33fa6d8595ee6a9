package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/service"
)

// Sweeper runs one compliance sweep.
type Sweeper interface {
	Run(ctx context.Context) (service.SweepResult, error)
}

// Scheduler runs the sweep on a fixed interval until its context ends.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler builds a scheduler. A non-positive interval defaults to an hour.
func NewScheduler(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{sweeper: sweeper, interval: interval, logger: logger}
}

// StartNotificationWorker registers webhook handlers on the dispatcher.
func StartNotificationWorker(notifications *service.NotificationService) {
	if notifications == nil {
		return
	}
	notifications.RegisterHandlers()
}

// Run sweeps once immediately and then on every tick. It returns nil when
// ctx is cancelled; sweep failures are logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if _, err := s.sweeper.Run(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("compliance sweep failed", zap.Error(err))
	}
}
