package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alekseyt9/newsdigest/internal/domain"
	"github.com/alekseyt9/newsdigest/internal/ports"
)

const backoffBase = time.Second

// DispatcherOptions bounds batching and the per-batch retry loop.
type DispatcherOptions struct {
	MaxBatchSize      int
	MaxRetries        int
	BatchPause        time.Duration
	DefaultRetryAfter time.Duration
	MaxRetryAfter     time.Duration
}

// Dispatcher partitions the notification selection into channel-legal batches
// and delivers them with bounded retry. A failed batch never stops later
// batches: partial delivery beats total silence.
type Dispatcher struct {
	channel ports.NotificationChannel
	opts    DispatcherOptions
	pacer   *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

// NewDispatcher wires the notification channel with retry bounds.
func NewDispatcher(channel ports.NotificationChannel, opts DispatcherOptions, logger *slog.Logger) *Dispatcher {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 10
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.DefaultRetryAfter <= 0 {
		opts.DefaultRetryAfter = 5 * time.Second
	}
	if opts.MaxRetryAfter <= 0 {
		opts.MaxRetryAfter = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	var pacer *rate.Limiter
	if opts.BatchPause > 0 {
		pacer = rate.NewLimiter(rate.Every(opts.BatchPause), 1)
	}

	return &Dispatcher{
		channel: channel,
		opts:    opts,
		pacer:   pacer,
		sleep:   sleepContext,
		logger:  logger,
	}
}

// Dispatch sends every batch in order. Cancellation stops starting new sends;
// batches never attempted are recorded as failed.
func (d *Dispatcher) Dispatch(ctx context.Context, articles []domain.EnrichedArticle) domain.DispatchResult {
	batches := makeBatches(articles, d.opts.MaxBatchSize)
	result := domain.DispatchResult{BatchStatus: make([]bool, len(batches))}

	for i, batch := range batches {
		if ctx.Err() != nil {
			d.logger.Warn("dispatch cancelled", "sent", i, "remaining", len(batches)-i)
			break
		}

		if d.pacer != nil {
			if err := d.pacer.Wait(ctx); err != nil {
				break
			}
		}

		result.BatchStatus[i] = d.sendBatch(ctx, batch)
	}

	return result
}

// sendBatch runs the retry state machine for one batch. Terminal states:
// success on 2xx, failure on a non-retryable status or an exhausted budget.
func (d *Dispatcher) sendBatch(ctx context.Context, batch domain.Batch) bool {
	for attempt := 0; attempt < d.opts.MaxRetries; attempt++ {
		receipt, err := d.channel.SendBatch(ctx, batch)

		var wait time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return false
			}
			d.logger.Warn("batch send failed",
				"batch", batch.Index, "attempt", attempt+1, "error", err)
			wait = backoffBase << attempt

		case receipt.StatusCode >= 200 && receipt.StatusCode < 300:
			d.logger.Info("batch delivered",
				"batch", batch.Index, "articles", len(batch.Articles), "attempts", attempt+1)
			return true

		case receipt.StatusCode == http.StatusTooManyRequests:
			wait = receipt.RetryAfter
			if wait <= 0 {
				wait = d.opts.DefaultRetryAfter
			}
			if wait > d.opts.MaxRetryAfter {
				wait = d.opts.MaxRetryAfter
			}
			d.logger.Warn("channel rate limited",
				"batch", batch.Index, "attempt", attempt+1, "wait", wait)

		default:
			d.logger.Error("channel rejected batch",
				"batch", batch.Index, "status", receipt.StatusCode)
			return false
		}

		if attempt+1 == d.opts.MaxRetries {
			break
		}
		if err := d.sleep(ctx, wait); err != nil {
			return false
		}
	}

	d.logger.Error("batch failed after retries", "batch", batch.Index, "attempts", d.opts.MaxRetries)
	return false
}

// makeBatches splits the ranked sequence into consecutive batches of at most
// size items. Concatenating the batches in order reproduces the input exactly.
func makeBatches(articles []domain.EnrichedArticle, size int) []domain.Batch {
	if len(articles) == 0 {
		return nil
	}

	total := (len(articles) + size - 1) / size
	batches := make([]domain.Batch, 0, total)

	for start := 0; start < len(articles); start += size {
		end := start + size
		if end > len(articles) {
			end = len(articles)
		}
		batches = append(batches, domain.Batch{
			Index:      len(batches),
			Total:      total,
			TotalItems: len(articles),
			Offset:     start,
			Articles:   articles[start:end],
		})
	}

	return batches
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
