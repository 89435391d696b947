package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alekseyt9/newsdigest/internal/scanner"
)

func TestRSSScannerScanRSS(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
		<rss version="2.0">
		  <channel>
		    <title>Example Feed</title>
		    <item>
		      <title>First &amp; Foremost</title>
		      <link>https://news.example/first</link>
		      <description>&lt;p&gt;Body with &lt;b&gt;markup&lt;/b&gt; inside.&lt;/p&gt;</description>
		      <pubDate>Sat, 29 Aug 2026 10:00:00 GMT</pubDate>
		    </item>
		    <item>
		      <title>No link entry</title>
		      <description>dropped</description>
		    </item>
		    <item>
		      <title>Second</title>
		      <link>https://news.example/second</link>
		      <description>plain text</description>
		    </item>
		  </channel>
		</rss>`))
	}))
	defer server.Close()

	sc := NewRSSScanner(server.Client())
	articles, err := sc.Scan(context.Background(), scanner.Request{
		FeedName: "example",
		URL:      server.URL,
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.Title != "First & Foremost" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.URL != "https://news.example/first" {
		t.Fatalf("unexpected url: %q", first.URL)
	}
	if first.Summary != "Body with markup inside." {
		t.Fatalf("markup not stripped: %q", first.Summary)
	}
	if first.Source != "example" {
		t.Fatalf("unexpected source: %q", first.Source)
	}
	if first.PublishedAt != "Sat, 29 Aug 2026 10:00:00 GMT" {
		t.Fatalf("unexpected published date: %q", first.PublishedAt)
	}

	if articles[1].URL != "https://news.example/second" {
		t.Fatalf("feed order not preserved: %q", articles[1].URL)
	}
}

func TestRSSScannerScanAtom(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
		<feed xmlns="http://www.w3.org/2005/Atom">
		  <title>Atom Feed</title>
		  <entry>
		    <title>Atom article</title>
		    <link rel="self" href="https://news.example/self.xml"/>
		    <link rel="alternate" href="https://news.example/atom-article"/>
		    <summary>short summary</summary>
		    <updated>2026-08-29T10:00:00Z</updated>
		  </entry>
		</feed>`))
	}))
	defer server.Close()

	sc := NewRSSScanner(server.Client())
	articles, err := sc.Scan(context.Background(), scanner.Request{
		FeedName: "atom",
		URL:      server.URL,
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if articles[0].URL != "https://news.example/atom-article" {
		t.Fatalf("alternate link not preferred: %q", articles[0].URL)
	}
	if articles[0].Summary != "short summary" {
		t.Fatalf("unexpected summary: %q", articles[0].Summary)
	}
	if articles[0].PublishedAt != "2026-08-29T10:00:00Z" {
		t.Fatalf("updated not used as published fallback: %q", articles[0].PublishedAt)
	}
}

func TestRSSScannerRespectsLimit(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString(`<rss version="2.0"><channel>`)
	for i := 0; i < 30; i++ {
		sb.WriteString(`<item><title>t</title><link>https://news.example/` +
			strings.Repeat("x", i+1) + `</link></item>`)
	}
	sb.WriteString(`</channel></rss>`)
	body := sb.String()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	sc := NewRSSScanner(server.Client())
	articles, err := sc.Scan(context.Background(), scanner.Request{
		FeedName: "big",
		URL:      server.URL,
		Limit:    5,
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(articles) != 5 {
		t.Fatalf("expected 5 articles, got %d", len(articles))
	}
}

func TestRSSScannerServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sc := NewRSSScanner(server.Client())
	_, err := sc.Scan(context.Background(), scanner.Request{FeedName: "down", URL: server.URL})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestSanitizeHTML(t *testing.T) {
	t.Parallel()

	got := sanitizeHTML(`<div><p>Hello&nbsp;<a href="#">world</a></p>   extra   space</div>`)
	if got != "Hello world extra space" {
		t.Fatalf("unexpected sanitized text: %q", got)
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	t.Parallel()

	got := truncate("héllo wörld", 5)
	if got != "héllo" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
