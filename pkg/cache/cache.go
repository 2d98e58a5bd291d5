// Package cache holds the two in-memory stores consulted during a scrape:
// raw pages keyed by normalized URL and extraction results keyed by
// (normalized URL, instruction fingerprint). Both are unbounded for the
// lifetime of a client session and support concurrent readers and writers.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/rufuslabs/rufus/internal/models"
)

type entry struct {
	value any
	size  int64
}

// store is a concurrency-safe key-value map with byte accounting.
type store struct {
	mu      sync.RWMutex
	entries map[string]entry
	bytes   int64
}

func newStore() *store {
	return &store{entries: make(map[string]entry)}
}

func (s *store) get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e.value, ok
}

// put inserts value under key. Newest write wins.
func (s *store) put(key string, value any, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[key]; ok {
		s.bytes -= old.size
	}
	s.entries[key] = entry{value: value, size: size}
	s.bytes += size
}

func (s *store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
	s.bytes = 0
}

func (s *store) stats() models.CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CacheStats{Entries: len(s.entries), ApproxBytes: s.bytes}
}

// PageCache maps a normalized URL to its previously fetched raw page.
type PageCache struct {
	store *store
}

// NewPageCache creates an empty page cache.
func NewPageCache() *PageCache {
	return &PageCache{store: newStore()}
}

// Get returns the cached page for a normalized URL, if present.
func (c *PageCache) Get(normURL string) (*models.Page, bool) {
	v, ok := c.store.get(normURL)
	if !ok {
		return nil, false
	}
	return v.(*models.Page), true
}

// Put stores a fetched page under its normalized URL.
func (c *PageCache) Put(normURL string, page *models.Page) {
	c.store.put(normURL, page, int64(len(page.Body))+int64(len(normURL)))
}

// Clear drops all entries.
func (c *PageCache) Clear() { c.store.clear() }

// Stats reports entry count and approximate memory footprint.
func (c *PageCache) Stats() models.CacheStats { return c.store.stats() }

// ExtractionCache maps (normalized URL, instruction fingerprint) to the
// ranked fragments previously computed for that page under that instruction.
type ExtractionCache struct {
	store *store
}

// NewExtractionCache creates an empty extraction cache.
func NewExtractionCache() *ExtractionCache {
	return &ExtractionCache{store: newStore()}
}

// Get returns the cached fragment list for a key built by Key.
func (c *ExtractionCache) Get(key string) ([]models.ContentFragment, bool) {
	v, ok := c.store.get(key)
	if !ok {
		return nil, false
	}
	return v.([]models.ContentFragment), true
}

// Put stores a computed fragment list. The fragments are stored as-is;
// callers must not mutate them afterwards.
func (c *ExtractionCache) Put(key string, fragments []models.ContentFragment) {
	var size int64
	for _, f := range fragments {
		size += int64(len(f.Text)) + int64(len(f.URL)) + 8
	}
	c.store.put(key, fragments, size+int64(len(key)))
}

// Clear drops all entries.
func (c *ExtractionCache) Clear() { c.store.clear() }

// Stats reports entry count and approximate memory footprint.
func (c *ExtractionCache) Stats() models.CacheStats { return c.store.stats() }

// Key builds the extraction cache key for a normalized URL and fingerprint.
func Key(normURL, fingerprint string) string {
	return normURL + "|" + fingerprint
}

// Fingerprint returns a stable hash over the instruction string and the
// extraction parameters. Changing any of them yields a different
// fingerprint, so stale entries are never reused silently.
func Fingerprint(instructions string, chunkSize int, threshold float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%.6f|%s", chunkSize, threshold, instructions)
	return hex.EncodeToString(h.Sum(nil))
}
