package models

// ContentFragment is a scored unit of extracted text. Fragments below the
// similarity threshold are never constructed.
type ContentFragment struct {
	URL   string  `json:"url"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Document is one entry of a scrape result: a content fragment annotated
// with its source page and the path the crawler took to reach it.
type Document struct {
	URL            string         `json:"url"`
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	Summary        string         `json:"summary,omitempty"`
	Depth          int            `json:"depth"`
	RelevanceScore float64        `json:"relevance_score"`
	NavigationPath NavigationPath `json:"navigation_path"`
}

// ScrapeMetadata summarizes a scrape operation.
type ScrapeMetadata struct {
	PagesVisited  int      `json:"pages_visited"`
	PagesFailed   int      `json:"pages_failed"`
	PagesSkipped  int      `json:"pages_skipped"`
	DocumentCount int      `json:"document_count"`
	Sources       []string `json:"sources"`
}

// ScrapeResult is the full output of a scrape: documents ordered by
// descending relevance score plus summary metadata.
type ScrapeResult struct {
	Documents []Document     `json:"documents"`
	Metadata  ScrapeMetadata `json:"metadata"`
}

// CacheStats describes one cache's footprint.
type CacheStats struct {
	Entries     int   `json:"entries"`
	ApproxBytes int64 `json:"approx_bytes"`
}

// CacheInfo aggregates stats for both caches owned by a client.
type CacheInfo struct {
	PageCache       CacheStats `json:"page_cache"`
	ExtractionCache CacheStats `json:"extraction_cache"`
}
