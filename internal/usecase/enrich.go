package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/alekseyt9/newsdigest/internal/domain"
	"github.com/alekseyt9/newsdigest/internal/ports"
)

const defaultMaxBodyChars = 800

// Enricher drives per-article analysis calls and validates the untrusted
// structured output. Calls are sequential: the analysis service is rate- and
// cost-bound, so there is no fan-out.
type Enricher struct {
	analyzer     ports.AnalysisService
	limiter      *rate.Limiter
	maxBodyChars int
	logger       *slog.Logger
}

// NewEnricher wires the analysis service. requestsPerMinute <= 0 disables
// pacing; maxBodyChars <= 0 falls back to the default cap.
func NewEnricher(analyzer ports.AnalysisService, requestsPerMinute, maxBodyChars int, logger *slog.Logger) *Enricher {
	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	}
	if maxBodyChars <= 0 {
		maxBodyChars = defaultMaxBodyChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		analyzer:     analyzer,
		limiter:      limiter,
		maxBodyChars: maxBodyChars,
		logger:       logger,
	}
}

// Enrich analyzes each article in order and returns only fully-validated
// results. A failed or malformed response skips that one article; the rest of
// the sequence is still processed. Cancellation stops starting new calls but
// is never treated as a per-article failure.
func (e *Enricher) Enrich(ctx context.Context, articles []domain.Article) []domain.EnrichedArticle {
	enriched := make([]domain.EnrichedArticle, 0, len(articles))

	for i, article := range articles {
		if ctx.Err() != nil {
			e.logger.Warn("enrichment cancelled", "processed", i, "remaining", len(articles)-i)
			break
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				break
			}
		}

		result, err := e.enrichOne(ctx, article)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			e.logger.Warn("article skipped",
				"title", article.Title, "url", article.URL, "error", err)
			continue
		}

		e.logger.Info("article analyzed",
			"progress", fmt.Sprintf("%d/%d", i+1, len(articles)),
			"title", article.Title, "score", result.Score)
		enriched = append(enriched, result)
	}

	return enriched
}

func (e *Enricher) enrichOne(ctx context.Context, article domain.Article) (domain.EnrichedArticle, error) {
	prompt := buildPrompt(article, e.maxBodyChars)

	raw, err := e.analyzer.Analyze(ctx, prompt)
	if err != nil {
		return domain.EnrichedArticle{}, fmt.Errorf("analyze: %w", err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		return domain.EnrichedArticle{}, err
	}

	analysis.Article = article
	return analysis, nil
}

// buildPrompt renders the per-article user prompt. The body is length-capped
// so one oversized feed entry cannot blow the token budget.
func buildPrompt(article domain.Article, maxBodyChars int) string {
	body := article.Summary
	if runes := []rune(body); len(runes) > maxBodyChars {
		body = string(runes[:maxBodyChars])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\n", article.Source)
	fmt.Fprintf(&sb, "Title: %s\n", article.Title)
	fmt.Fprintf(&sb, "Link: %s\n", article.URL)
	fmt.Fprintf(&sb, "\nContent:\n%s", body)
	return sb.String()
}

// analysisPayload mirrors the JSON shape the analysis service is asked to
// produce. Pointer fields distinguish "absent" from "empty"; the score stays
// raw until coercion so a non-numeric value degrades instead of rejecting
// the whole article.
type analysisPayload struct {
	Summary           *string         `json:"summary"`
	Score             json.RawMessage `json:"score"`
	Category          *string         `json:"category"`
	RelatedCompanies  string          `json:"related_companies"`
	MarketImpact      string          `json:"market_impact"`
	InvestmentInsight string          `json:"investment_insight"`
}

func parseAnalysis(raw []byte) (domain.EnrichedArticle, error) {
	var payload analysisPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.EnrichedArticle{}, fmt.Errorf("parse analysis payload: %w", err)
	}

	if payload.Summary == nil || payload.Category == nil || len(payload.Score) == 0 {
		return domain.EnrichedArticle{}, fmt.Errorf("analysis payload missing required fields: %s", compact(raw))
	}

	return domain.EnrichedArticle{
		AISummary:         *payload.Summary,
		Score:             coerceScore(payload.Score),
		Category:          *payload.Category,
		RelatedCompanies:  payload.RelatedCompanies,
		MarketImpact:      payload.MarketImpact,
		InvestmentInsight: payload.InvestmentInsight,
	}, nil
}

// coerceScore keeps integral scores inside [1,10] and substitutes the neutral
// fallback for anything else. A malformed score must not eliminate content a
// human could still judge from the summary text.
func coerceScore(raw json.RawMessage) int {
	var score float64
	if err := json.Unmarshal(raw, &score); err != nil {
		return domain.FallbackScore
	}
	if score < 1 || score > 10 {
		return domain.FallbackScore
	}
	return int(score)
}

func compact(raw []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
