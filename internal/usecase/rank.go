package usecase

import (
	"sort"

	"github.com/alekseyt9/newsdigest/internal/domain"
)

// Rank orders enriched articles by score descending and splits them into the
// notification selection and the full archive sequence. The sort is stable:
// equal scores keep their original relative order. The archive set contains
// every input exactly once; the notify set is the score>=minScore prefix
// capped at maxNotify entries.
func Rank(enriched []domain.EnrichedArticle, minScore, maxNotify int) (notify, archive []domain.EnrichedArticle) {
	archive = make([]domain.EnrichedArticle, len(enriched))
	copy(archive, enriched)

	sort.SliceStable(archive, func(i, j int) bool {
		return archive[i].Score > archive[j].Score
	})

	// Negative maxNotify means no cap.
	capacity := maxNotify
	if capacity < 0 {
		capacity = 0
	}
	notify = make([]domain.EnrichedArticle, 0, capacity)
	for _, article := range archive {
		if article.Score < minScore {
			// Sorted descending, nothing below this point qualifies.
			break
		}
		if maxNotify >= 0 && len(notify) == maxNotify {
			break
		}
		notify = append(notify, article)
	}

	return notify, archive
}
