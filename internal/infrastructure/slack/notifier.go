package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alekseyt9/newsdigest/internal/config"
	"github.com/alekseyt9/newsdigest/internal/domain"
	"github.com/alekseyt9/newsdigest/internal/ports"
)

// Notifier posts Block Kit payloads to a Slack incoming webhook. It reports
// the raw outcome (status code plus any Retry-After hint) and leaves retry
// policy to the dispatcher.
type Notifier struct {
	webhookURL string
	cfg        config.SlackConfig
	client     *http.Client
	now        func() time.Time
}

var _ ports.NotificationChannel = (*Notifier)(nil)

// NewNotifier wires the webhook URL and rendering switches.
func NewNotifier(cfg config.SlackConfig, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		webhookURL: cfg.WebhookURL,
		cfg:        cfg,
		client:     &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// SendBatch renders one batch and posts it. A transport failure surfaces as
// an error; any HTTP response, success or not, surfaces as a receipt.
func (n *Notifier) SendBatch(ctx context.Context, batch domain.Batch) (ports.SendReceipt, error) {
	if n.webhookURL == "" {
		return ports.SendReceipt{}, fmt.Errorf("slack notifier misconfigured: empty webhook URL")
	}

	payload := map[string]any{
		"text":   fmt.Sprintf("%s - %d articles", n.title(), batch.TotalItems),
		"blocks": n.renderBlocks(batch),
	}

	return n.post(ctx, payload)
}

// PublishError posts a best-effort failure notice. Callers ignore the outcome
// beyond logging.
func (n *Notifier) PublishError(ctx context.Context, message string) error {
	if n.webhookURL == "" {
		return fmt.Errorf("slack notifier misconfigured: empty webhook URL")
	}

	payload := map[string]any{
		"text": "news digest run failed",
		"blocks": []map[string]any{
			header("Run failed"),
			section(fmt.Sprintf("```%s```", message)),
			contextBlock(fmt.Sprintf("time: %s", n.now().Format("2006-01-02 15:04:05"))),
		},
	}

	receipt, err := n.post(ctx, payload)
	if err != nil {
		return err
	}
	if receipt.StatusCode < http.StatusOK || receipt.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("slack error notification returned %d", receipt.StatusCode)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, payload map[string]any) (ports.SendReceipt, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return ports.SendReceipt{}, fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return ports.SendReceipt{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return ports.SendReceipt{}, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	receipt := ports.SendReceipt{StatusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusTooManyRequests {
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
			receipt.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	return receipt, nil
}

func (n *Notifier) renderBlocks(batch domain.Batch) []map[string]any {
	blocks := []map[string]any{
		header(n.title()),
		contextBlock(fmt.Sprintf("*%s* • %d selected articles%s",
			n.now().Format("2006-01-02 15:04"), batch.TotalItems, batchSuffix(batch))),
		divider(),
	}

	for i, article := range batch.Articles {
		summary := article.AISummary
		if summary == "" {
			summary = article.Article.Summary
		}
		blocks = append(blocks, section(fmt.Sprintf("*%d. <%s|%s>*\n%s",
			batch.Offset+i+1, article.Article.URL, article.Article.Title, summary)))

		if meta := n.renderMeta(article); len(meta) > 0 {
			blocks = append(blocks, map[string]any{"type": "context", "elements": meta})
		}

		if i < len(batch.Articles)-1 {
			blocks = append(blocks, divider())
		}
	}

	blocks = append(blocks, divider())
	blocks = append(blocks, contextBlock("generated automatically by newsdigest"))

	return blocks
}

func (n *Notifier) renderMeta(article domain.EnrichedArticle) []map[string]any {
	var elements []map[string]any

	if n.cfg.RenderScore() {
		elements = append(elements, mrkdwn(fmt.Sprintf("%s *%d/10*", scoreEmoji(article.Score), article.Score)))
	}
	if n.cfg.RenderCategory() {
		elements = append(elements, mrkdwn(fmt.Sprintf("%s %s", categoryEmoji(article.Category), article.Category)))
	}
	if n.cfg.RenderSource() {
		elements = append(elements, mrkdwn(fmt.Sprintf("🔗 %s", article.Article.Source)))
	}

	return elements
}

func (n *Notifier) title() string {
	if n.cfg.Title != "" {
		return n.cfg.Title
	}
	return "News Digest"
}

func batchSuffix(batch domain.Batch) string {
	if batch.Total <= 1 {
		return ""
	}
	return fmt.Sprintf(" • part %d/%d", batch.Index+1, batch.Total)
}

func scoreEmoji(score int) string {
	switch {
	case score >= 8:
		return "🔥"
	case score >= 6:
		return "⭐"
	default:
		return "📌"
	}
}

func categoryEmoji(category string) string {
	switch category {
	case domain.CategoryResearch:
		return "🔬"
	case domain.CategoryProduct:
		return "🚀"
	case domain.CategoryIndustry:
		return "🏢"
	case domain.CategoryMarket:
		return "📈"
	case domain.CategoryPolicy:
		return "🏛️"
	case domain.CategoryOpinion:
		return "💭"
	default:
		return "📄"
	}
}

func header(text string) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{"type": "plain_text", "text": text, "emoji": true},
	}
}

func section(text string) map[string]any {
	return map[string]any{
		"type": "section",
		"text": map[string]any{"type": "mrkdwn", "text": text},
	}
}

func contextBlock(text string) map[string]any {
	return map[string]any{"type": "context", "elements": []map[string]any{mrkdwn(text)}}
}

func mrkdwn(text string) map[string]any {
	return map[string]any{"type": "mrkdwn", "text": text}
}

func divider() map[string]any {
	return map[string]any{"type": "divider"}
}
