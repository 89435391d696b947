package domain

// Article is a core entity describing one candidate item pulled from a feed.
// Identity is the URL; two articles with the same URL are the same article.
type Article struct {
	Title       string
	URL         string
	Summary     string
	Source      string
	PublishedAt string
}

// FilterRules holds the keyword sets applied before any analysis call.
type FilterRules struct {
	Required []string
	Blocked  []string
}

// Category labels produced by the analysis service. The set is open: labels
// outside this list pass through to rendering untouched.
const (
	CategoryResearch = "RESEARCH"
	CategoryProduct  = "PRODUCT"
	CategoryIndustry = "INDUSTRY"
	CategoryMarket   = "MARKET"
	CategoryPolicy   = "POLICY"
	CategoryOpinion  = "OPINION"
)

// FallbackScore replaces non-numeric or out-of-range scores coming back from
// the analysis service.
const FallbackScore = 5

// EnrichedArticle captures validated analysis output for one article. Either
// every required field passed validation or the article never became an
// EnrichedArticle.
type EnrichedArticle struct {
	Article           Article
	AISummary         string
	Score             int
	Category          string
	RelatedCompanies  string
	MarketImpact      string
	InvestmentInsight string
}

// Batch is one bounded slice of the ranked sequence, with enough context to
// render continuation headers.
type Batch struct {
	Index      int
	Total      int
	TotalItems int
	// Offset is the position of the first article within the ranked run.
	Offset   int
	Articles []EnrichedArticle
}

// DispatchResult reports per-batch delivery outcomes in batch order.
type DispatchResult struct {
	BatchStatus []bool
}

// AllSucceeded is true when every batch reached a successful send.
func (r DispatchResult) AllSucceeded() bool {
	for _, ok := range r.BatchStatus {
		if !ok {
			return false
		}
	}
	return true
}

// ArchiveEntry is one row handed to the archival sink. Articles the enricher
// skipped still reach the archive with empty analysis fields.
type ArchiveEntry struct {
	EnrichedArticle
	Enriched bool
}

// RunStats summarizes a single pipeline execution.
type RunStats struct {
	Fetched       int
	Filtered      int
	Enriched      int
	Notified      int
	Archived      int
	ArchiveFailed bool
}
