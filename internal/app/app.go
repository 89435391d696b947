package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/alekseyt9/newsdigest/internal/config"
	"github.com/alekseyt9/newsdigest/internal/domain"
	"github.com/alekseyt9/newsdigest/internal/infrastructure/feeds"
	"github.com/alekseyt9/newsdigest/internal/infrastructure/llm"
	"github.com/alekseyt9/newsdigest/internal/infrastructure/scheduler"
	"github.com/alekseyt9/newsdigest/internal/infrastructure/slack"
	"github.com/alekseyt9/newsdigest/internal/infrastructure/storage"
	"github.com/alekseyt9/newsdigest/internal/logging"
	"github.com/alekseyt9/newsdigest/internal/ports"
	"github.com/alekseyt9/newsdigest/internal/scanner"
	"github.com/alekseyt9/newsdigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	notifier ports.NotificationChannel
	logger   *slog.Logger
}

// New builds a runnable application instance from validated configuration.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := scanner.NewRegistry()
	registry.Register(feeds.NewRSSScanner(nil))

	source := feeds.NewSource(registry, cfg.Feeds, cfg.Digest.ArticlesPerFeed,
		baseLogger.With("component", "feeds"))

	enricher := usecase.NewEnricher(
		llm.NewOpenAIClient(cfg.LLM),
		cfg.LLM.RequestsPerMinute,
		cfg.LLM.MaxBodyChars,
		baseLogger.With("component", "enricher"))

	notifier := slack.NewNotifier(cfg.Slack, cfg.Dispatch.Timeout())

	dispatcher := usecase.NewDispatcher(notifier, usecase.DispatcherOptions{
		MaxBatchSize:      cfg.Dispatch.MaxBatchSize,
		MaxRetries:        cfg.Dispatch.MaxRetries,
		BatchPause:        cfg.Dispatch.BatchPause(),
		DefaultRetryAfter: cfg.Dispatch.DefaultRetryAfter(),
		MaxRetryAfter:     cfg.Dispatch.MaxRetryAfter(),
	}, baseLogger.With("component", "dispatcher"))

	var archive ports.ArchiveWriter
	if cfg.Database.DSN != "" {
		db, err := storage.Open(cfg.Database.DSN)
		if err != nil {
			baseLogger.Error("archive unavailable, run continues without it", "error", err)
		} else {
			archive = storage.NewPostgresArchive(db)
		}
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Enricher:   enricher,
		Dispatcher: dispatcher,
		Archive:    archive,
		Logger:     baseLogger.With("component", "pipeline"),
	}, usecase.PipelineOptions{
		Rules: domain.FilterRules{
			Required: cfg.Filters.RequiredKeywords,
			Blocked:  cfg.Filters.BlockedKeywords,
		},
		MinScore:     cfg.Digest.MinScore,
		MaxNotify:    cfg.Digest.MaxNotify,
		ProcessAll:   cfg.Digest.ProcessAllArticles(),
		MaxToProcess: cfg.Digest.MaxToProcess,
		RunLabel:     cfg.Digest.RunLabel,
	})

	return &Application{cfg: cfg, pipeline: pipeline, notifier: notifier, logger: baseLogger}
}

// Run performs a single pipeline execution, or keeps running on an interval
// when the scheduler is enabled. On a fatal error a best-effort failure
// notice goes to the notification channel before the error is returned.
func (a *Application) Run(ctx context.Context) error {
	if a.cfg.Scheduler.Enabled {
		return a.runScheduled(ctx)
	}

	_, err := a.pipeline.Run(ctx, time.Now())
	if err != nil {
		a.publishError(ctx, err)
	}
	return err
}

func (a *Application) runScheduled(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval())
	sched := usecase.NewScheduler(driver, a.pipeline, a.notifier,
		a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = sched.Stop(context.Background()) }()

	<-ctx.Done()
	return nil
}

func (a *Application) publishError(ctx context.Context, runErr error) {
	// The run context may already be cancelled; give the notice its own window.
	noticeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := a.notifier.PublishError(noticeCtx, runErr.Error()); err != nil {
		a.logger.Warn("error notification failed", "error", err)
	}
}
