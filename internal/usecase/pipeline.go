package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alekseyt9/newsdigest/internal/domain"
	"github.com/alekseyt9/newsdigest/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ArticleSource
	Enricher   *Enricher
	Dispatcher *Dispatcher
	Archive    ports.ArchiveWriter
	Logger     *slog.Logger
}

// PipelineOptions carries the selection knobs for one run.
type PipelineOptions struct {
	Rules        domain.FilterRules
	MinScore     int
	MaxNotify    int
	ProcessAll   bool
	MaxToProcess int
	RunLabel     string
}

// Pipeline implements the digest workflow: fetch, filter, enrich, rank,
// dispatch, archive. Every stage may legitimately produce zero items, in
// which case the run ends successfully without touching later stages.
type Pipeline struct {
	source     ports.ArticleSource
	enricher   *Enricher
	dispatcher *Dispatcher
	archive    ports.ArchiveWriter
	opts       PipelineOptions
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:     deps.Source,
		enricher:   deps.Enricher,
		dispatcher: deps.Dispatcher,
		archive:    deps.Archive,
		opts:       opts,
		logger:     logger,
	}
}

// Run executes one pipeline pass. The returned error reflects notification
// delivery; an archive failure is reported in the stats and logged but does
// not fail a run whose notifications went out.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (domain.RunStats, error) {
	var stats domain.RunStats
	started := time.Now()

	articles, err := p.source.FetchAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch feeds: %w", err)
	}
	stats.Fetched = len(articles)
	if len(articles) == 0 {
		p.logger.Warn("no articles fetched, nothing to do")
		return stats, nil
	}

	filtered := ApplyFilter(articles, p.opts.Rules)
	stats.Filtered = len(filtered)
	p.logger.Info("keyword filter applied", "before", len(articles), "after", len(filtered))
	if len(filtered) == 0 {
		p.logger.Warn("every article was filtered out")
		return stats, nil
	}

	toProcess := filtered
	if !p.opts.ProcessAll && p.opts.MaxToProcess > 0 && len(toProcess) > p.opts.MaxToProcess {
		toProcess = toProcess[:p.opts.MaxToProcess]
		p.logger.Info("processing capped", "cap", p.opts.MaxToProcess, "filtered", len(filtered))
	}

	enriched := p.enricher.Enrich(ctx, toProcess)
	stats.Enriched = len(enriched)
	p.logger.Info("enrichment finished",
		"processed", len(toProcess), "enriched", len(enriched), "skipped", len(toProcess)-len(enriched))

	notify, ranked := Rank(enriched, p.opts.MinScore, p.opts.MaxNotify)
	stats.Notified = len(notify)

	var dispatchErr error
	if len(notify) == 0 {
		p.logger.Warn("no article reached the score threshold", "minScore", p.opts.MinScore)
	} else {
		result := p.dispatcher.Dispatch(ctx, notify)
		if !result.AllSucceeded() {
			dispatchErr = fmt.Errorf("notification delivery incomplete: %v", result.BatchStatus)
		}
	}

	entries := mergeForArchive(ranked, filtered)
	if p.archive != nil && len(entries) > 0 {
		if err := p.archive.WriteRun(ctx, entries, now, p.opts.RunLabel); err != nil {
			stats.ArchiveFailed = true
			p.logger.Error("archive write failed, notifications already sent", "error", err)
		} else {
			stats.Archived = len(entries)
		}
	}

	p.logger.Info("run finished",
		"fetched", stats.Fetched,
		"filtered", stats.Filtered,
		"enriched", stats.Enriched,
		"notified", stats.Notified,
		"archived", stats.Archived,
		"elapsed", time.Since(started).Round(time.Millisecond))

	return stats, dispatchErr
}

// mergeForArchive combines the ranked enriched set with filtered articles the
// enricher skipped, so nothing is silently lost. Identity is the article URL;
// every filtered article appears exactly once.
func mergeForArchive(ranked []domain.EnrichedArticle, filtered []domain.Article) []domain.ArchiveEntry {
	entries := make([]domain.ArchiveEntry, 0, len(filtered))
	seen := make(map[string]struct{}, len(ranked))

	for _, article := range ranked {
		if _, ok := seen[article.Article.URL]; ok {
			continue
		}
		seen[article.Article.URL] = struct{}{}
		entries = append(entries, domain.ArchiveEntry{EnrichedArticle: article, Enriched: true})
	}

	for _, article := range filtered {
		if _, ok := seen[article.URL]; ok {
			continue
		}
		seen[article.URL] = struct{}{}
		entries = append(entries, domain.ArchiveEntry{
			EnrichedArticle: domain.EnrichedArticle{Article: article},
		})
	}

	return entries
}
