package usecase

import (
	"strings"

	"github.com/alekseyt9/newsdigest/internal/domain"
)

// ApplyFilter narrows articles with the keyword rules before any analysis
// call is made. Blocked terms are checked first, so a term present in both
// sets still rejects. Ordering is preserved; the result is a subsequence of
// the input.
func ApplyFilter(articles []domain.Article, rules domain.FilterRules) []domain.Article {
	filtered := make([]domain.Article, 0, len(articles))

	for _, article := range articles {
		if matchesRules(article, rules) {
			filtered = append(filtered, article)
		}
	}

	return filtered
}

func matchesRules(article domain.Article, rules domain.FilterRules) bool {
	haystack := strings.ToLower(article.Title + " " + article.Summary)

	for _, keyword := range rules.Blocked {
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return false
		}
	}

	if len(rules.Required) == 0 {
		return true
	}

	for _, keyword := range rules.Required {
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return true
		}
	}

	return false
}
