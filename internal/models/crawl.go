package models

import "time"

// FetchStatus is the terminal state of a crawled node.
type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchFailed  FetchStatus = "failed"
	FetchSkipped FetchStatus = "skipped"
)

// CrawlNode represents one visited page in the crawl tree. Parent is an
// index into the crawl session's node arena; the root node has Parent -1.
type CrawlNode struct {
	URL      string      `json:"url"`
	Depth    int         `json:"depth"`
	Parent   int         `json:"parent"`
	Title    string      `json:"title"`
	Status   FetchStatus `json:"status"`
	External bool        `json:"external"`
}

// Page is the raw fetched content for a normalized URL, as stored in the
// page cache.
type Page struct {
	URL         string    `json:"url"`
	Body        []byte    `json:"-"`
	ContentType string    `json:"content_type"`
	StatusCode  int       `json:"status_code"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// PathEntry is one hop in a navigation path.
type PathEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// NavigationPath is the ordered sequence of pages from the seed to a node,
// inclusive of both endpoints. It is derived from parent references, never
// stored alongside the nodes.
type NavigationPath []PathEntry
