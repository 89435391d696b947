package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/alekseyt9/newsdigest/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case for
// recurring mode. Failed runs are logged and reported to the notification
// channel the same way a single run reports them; the next tick still fires.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	notifier ports.NotificationChannel
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, notifier ports.NotificationChannel, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, notifier: notifier, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.pipeline.Run(ctx, trigger); err != nil {
			s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
			s.publishError(ctx, err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) publishError(ctx context.Context, runErr error) {
	if s.notifier == nil {
		return
	}

	// The run context may already be cancelled; give the notice its own window.
	noticeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.notifier.PublishError(noticeCtx, runErr.Error()); err != nil {
		s.logger.Warn("error notification failed", "error", err)
	}
}
