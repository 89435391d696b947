package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/alekseyt9/newsdigest/internal/domain"
	"github.com/alekseyt9/newsdigest/internal/ports"
)

// PostgresArchive persists the full run output into a tabular Postgres store.
// Skipped articles land with empty analysis fields and score 0, so the table
// distinguishes "not scored" from "scored 1".
type PostgresArchive struct {
	db *sql.DB
}

var _ ports.ArchiveWriter = (*PostgresArchive)(nil)

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresArchive wires a sql.DB implementation.
func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{db: db}
}

// WriteRun inserts one row per entry, all tagged with the run timestamp and
// label. Conflicting URLs within the same run are updated in place.
func (a *PostgresArchive) WriteRun(ctx context.Context, entries []domain.ArchiveEntry, runAt time.Time, label string) error {
	if a.db == nil {
		return fmt.Errorf("archive database is not configured")
	}
	if len(entries) == 0 {
		return nil
	}

	builder := sq.Insert("digest_entries").
		Columns("run_at", "run_label", "url", "title", "source", "published_at",
			"feed_summary", "ai_summary", "score", "category",
			"related_companies", "market_impact", "investment_insight", "enriched").
		PlaceholderFormat(sq.Dollar).
		Suffix(`ON CONFLICT (run_at, url) DO UPDATE
                SET ai_summary = EXCLUDED.ai_summary,
                    score = EXCLUDED.score,
                    category = EXCLUDED.category,
                    enriched = EXCLUDED.enriched`)

	for _, entry := range entries {
		builder = builder.Values(
			runAt,
			label,
			entry.Article.URL,
			entry.Article.Title,
			entry.Article.Source,
			entry.Article.PublishedAt,
			entry.Article.Summary,
			entry.AISummary,
			entry.Score,
			entry.Category,
			entry.RelatedCompanies,
			entry.MarketImpact,
			entry.InvestmentInsight,
			entry.Enriched,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run entries: %w", err)
	}

	return nil
}
