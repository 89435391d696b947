package feeds

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alekseyt9/newsdigest/internal/config"
	"github.com/alekseyt9/newsdigest/internal/domain"
	"github.com/alekseyt9/newsdigest/internal/ports"
	"github.com/alekseyt9/newsdigest/internal/scanner"
)

// Source implements ArticleSource by running the configured scanner strategy
// for every enabled feed. One broken feed is logged and skipped; the
// remaining feeds still contribute to the run.
type Source struct {
	registry   *scanner.Registry
	feeds      []config.FeedConfig
	perFeedCap int
	logger     *slog.Logger
}

var _ ports.ArticleSource = (*Source)(nil)

// NewSource wires the scanner registry with config-defined feeds.
func NewSource(reg *scanner.Registry, feeds []config.FeedConfig, perFeedCap int, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		registry:   reg,
		feeds:      feeds,
		perFeedCap: perFeedCap,
		logger:     logger,
	}
}

// FetchAll aggregates articles from every enabled feed in config order.
func (s *Source) FetchAll(ctx context.Context) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	var aggregated []domain.Article
	for _, feed := range s.feeds {
		if !feed.IsEnabled() {
			continue
		}

		name := feed.Scanner
		if name == "" {
			name = "rss"
		}

		strategy, err := s.registry.Resolve(name)
		if err != nil {
			s.logger.Error("feed skipped", "feed", feed.Name, "error", err)
			continue
		}

		articles, err := strategy.Scan(ctx, scanner.Request{
			FeedName: feed.Name,
			URL:      feed.URL,
			Limit:    s.perFeedCap,
		})
		if err != nil {
			if ctx.Err() != nil {
				return aggregated, ctx.Err()
			}
			s.logger.Error("feed fetch failed", "feed", feed.Name, "error", err)
			continue
		}

		s.logger.Info("feed fetched", "feed", feed.Name, "articles", len(articles))
		aggregated = append(aggregated, articles...)
	}

	s.logger.Info("all feeds fetched", "total", len(aggregated))
	return aggregated, nil
}
