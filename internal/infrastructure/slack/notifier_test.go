package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alekseyt9/newsdigest/internal/config"
	"github.com/alekseyt9/newsdigest/internal/domain"
)

func testBatch() domain.Batch {
	return domain.Batch{
		Index:      1,
		Total:      2,
		TotalItems: 12,
		Offset:     10,
		Articles: []domain.EnrichedArticle{
			{
				Article:   domain.Article{Title: "Chip news", URL: "https://news.example/chips", Source: "example"},
				AISummary: "summary text",
				Score:     8,
				Category:  domain.CategoryMarket,
			},
			{
				Article:   domain.Article{Title: "Policy move", URL: "https://news.example/policy", Source: "example"},
				AISummary: "another summary",
				Score:     6,
				Category:  "WEIRD_LABEL",
			},
		},
	}
}

func newTestNotifier(url string) *Notifier {
	n := NewNotifier(config.SlackConfig{WebhookURL: url, Title: "Digest"}, time.Second)
	n.now = func() time.Time {
		return time.Date(2026, time.August, 29, 8, 0, 0, 0, time.UTC)
	}
	return n
}

func TestSendBatchRendersBlocks(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("payload is not JSON: %v", err)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	receipt, err := newTestNotifier(server.URL).SendBatch(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("SendBatch error: %v", err)
	}
	if receipt.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", receipt.StatusCode)
	}

	blocks, ok := captured["blocks"].([]any)
	if !ok || len(blocks) == 0 {
		t.Fatalf("payload has no blocks: %v", captured)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(captured); err != nil {
		t.Fatalf("re-encode payload: %v", err)
	}
	payload := buf.String()

	for _, want := range []string{
		"Digest",
		"part 2/2",
		"*11. <https://news.example/chips|Chip news>*", // continuation numbering
		"*12. <https://news.example/policy|Policy move>*",
		"*8/10*",
		"MARKET",
		"WEIRD_LABEL", // unknown categories pass through
	} {
		if !strings.Contains(payload, want) {
			t.Fatalf("payload missing %q:\n%s", want, payload)
		}
	}
}

func TestSendBatchParsesRetryAfter(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	receipt, err := newTestNotifier(server.URL).SendBatch(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("SendBatch error: %v", err)
	}
	if receipt.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", receipt.StatusCode)
	}
	if receipt.RetryAfter != 5*time.Second {
		t.Fatalf("unexpected retry-after: %v", receipt.RetryAfter)
	}
}

func TestSendBatchTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from now on

	if _, err := newTestNotifier(server.URL).SendBatch(context.Background(), testBatch()); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestSendBatchMisconfigured(t *testing.T) {
	t.Parallel()

	if _, err := newTestNotifier("").SendBatch(context.Background(), testBatch()); err == nil {
		t.Fatal("expected error for empty webhook URL")
	}
}

func TestPublishError(t *testing.T) {
	t.Parallel()

	var payload string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		payload = string(body)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	if err := newTestNotifier(server.URL).PublishError(context.Background(), "boom"); err != nil {
		t.Fatalf("PublishError error: %v", err)
	}
	if !strings.Contains(payload, "boom") {
		t.Fatalf("error message missing from payload: %s", payload)
	}
}

func TestPublishErrorAcceptsAny2xx(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := newTestNotifier(server.URL).PublishError(context.Background(), "boom"); err != nil {
		t.Fatalf("PublishError error: %v", err)
	}
}

func TestPublishErrorRejectsNon2xx(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	if err := newTestNotifier(server.URL).PublishError(context.Background(), "boom"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}
