package ports

import (
	"context"
	"time"

	"github.com/alekseyt9/newsdigest/internal/domain"
)

// ArticleSource pulls fresh articles from all configured upstream feeds.
type ArticleSource interface {
	FetchAll(ctx context.Context) ([]domain.Article, error)
}

// AnalysisService sends a rendered prompt to an external text-generation
// service and returns the raw structured payload. Callers own validation;
// the bytes are untrusted.
type AnalysisService interface {
	Analyze(ctx context.Context, prompt string) ([]byte, error)
}

// SendReceipt reports the channel's response to one batch send. RetryAfter is
// set only on rate-limit responses that carried a server hint.
type SendReceipt struct {
	StatusCode int
	RetryAfter time.Duration
}

// NotificationChannel delivers rendered batches to the chat sink.
type NotificationChannel interface {
	SendBatch(ctx context.Context, batch domain.Batch) (SendReceipt, error)
	PublishError(ctx context.Context, message string) error
}

// ArchiveWriter persists the full set of run entries to the tabular store.
type ArchiveWriter interface {
	WriteRun(ctx context.Context, entries []domain.ArchiveEntry, runAt time.Time, label string) error
}

// Scheduler controls when pipeline runs execute in recurring mode.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
