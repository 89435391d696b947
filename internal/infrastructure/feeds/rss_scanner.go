package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alekseyt9/newsdigest/internal/domain"
	"github.com/alekseyt9/newsdigest/internal/scanner"
)

const defaultFeedLimit = 15

// RSSScanner retrieves RSS 2.0 and Atom feeds over HTTP and maps entries to
// articles.
type RSSScanner struct {
	client *http.Client
}

// NewRSSScanner wires an HTTP client; a nil client gets a sane timeout.
func NewRSSScanner(client *http.Client) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RSSScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan fetches one feed and returns up to req.Limit articles in feed order.
// Entries without a title or link are discarded.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("feed %s has no URL", req.FeedName)
	}

	raw, err := s.fetch(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", req.FeedName, err)
	}

	entries, err := parseFeed(raw)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", req.FeedName, err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	articles := make([]domain.Article, 0, limit)
	for _, entry := range entries {
		if len(articles) == limit {
			break
		}

		article := domain.Article{
			Title:       sanitizeHTML(entry.title),
			URL:         strings.TrimSpace(entry.link),
			Summary:     truncate(sanitizeHTML(entry.body), maxSummaryChars),
			Source:      req.FeedName,
			PublishedAt: strings.TrimSpace(entry.published),
		}

		if article.Title == "" || article.URL == "" {
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

func (s *RSSScanner) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "newsdigest/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	return raw, nil
}

type feedEntry struct {
	title     string
	link      string
	body      string
	published string
}

// rssEnvelope covers both feed dialects: RSS documents populate Channel,
// Atom documents populate Entries.
type rssEnvelope struct {
	Channel *rssChannel `xml:"channel"`
	Entries []atomEntry `xml:"entry"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Encoded     string `xml:"encoded"`
	PubDate     string `xml:"pubDate"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

func parseFeed(raw []byte) ([]feedEntry, error) {
	var envelope rssEnvelope
	if err := xml.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("parse feed xml: %w", err)
	}

	if envelope.Channel != nil {
		entries := make([]feedEntry, 0, len(envelope.Channel.Items))
		for _, item := range envelope.Channel.Items {
			body := item.Description
			if body == "" {
				body = item.Encoded
			}
			entries = append(entries, feedEntry{
				title:     item.Title,
				link:      item.Link,
				body:      body,
				published: item.PubDate,
			})
		}
		return entries, nil
	}

	entries := make([]feedEntry, 0, len(envelope.Entries))
	for _, entry := range envelope.Entries {
		body := entry.Summary
		if body == "" {
			body = entry.Content
		}
		published := entry.Published
		if published == "" {
			published = entry.Updated
		}
		entries = append(entries, feedEntry{
			title:     entry.Title,
			link:      pickAtomLink(entry.Links),
			body:      body,
			published: published,
		})
	}
	return entries, nil
}

// pickAtomLink prefers the alternate relation, the Atom convention for the
// human-readable page.
func pickAtomLink(links []atomLink) string {
	for _, link := range links {
		if link.Rel == "alternate" || link.Rel == "" {
			return link.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}
