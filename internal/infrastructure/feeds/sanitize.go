package feeds

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSummaryChars = 800

// sanitizeHTML strips markup from feed-provided text. Feed descriptions
// routinely embed full HTML fragments, entities included.
func sanitizeHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseWhitespace(s)
	}

	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps the text at n runes, keeping multi-byte content intact.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
