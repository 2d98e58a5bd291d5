package rufus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rufuslabs/rufus/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Crawler.HostDelay = 0
	cfg.Crawler.RespectRobots = false
	cfg.Crawler.Workers = 2
	cfg.Crawler.StrictDomain = true
	// The lexical scorer rarely reaches the default 0.6 on prose; tests
	// tune the threshold per scenario.
	cfg.Extraction.SimilarityThreshold = 0.2
	return cfg
}

func newTestClient(t *testing.T, cfg *config.Config) *Client {
	t.Helper()
	c, err := New(cfg, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func htmlHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}
}

func pricingSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", htmlHandler(`<html><head><title>Acme</title></head><body>
		<p>Welcome to Acme. We make widgets for everyone.</p>
		<a href="/pricing">Pricing</a> <a href="/about">About</a>
		</body></html>`))
	mux.HandleFunc("/pricing", htmlHandler(`<html><head><title>Pricing</title></head><body>
		<p>Acme pricing plans start at ten dollars per month. Enterprise pricing available on request.</p>
		</body></html>`))
	mux.HandleFunc("/about", htmlHandler(`<html><head><title>About</title></head><body>
		<p>Founded long ago by widget enthusiasts in a garage.</p>
		</body></html>`))
	return httptest.NewServer(mux)
}

func TestScrapeReturnsRankedDocuments(t *testing.T) {
	server := pricingSite(t)
	defer server.Close()

	c := newTestClient(t, testConfig())
	result, err := c.Scrape(context.Background(), server.URL, "pricing plans")
	require.NoError(t, err)

	require.NotEmpty(t, result.Documents)
	for i := 1; i < len(result.Documents); i++ {
		assert.GreaterOrEqual(t,
			result.Documents[i-1].RelevanceScore, result.Documents[i].RelevanceScore,
			"documents must be sorted by descending relevance")
	}
	assert.Contains(t, result.Documents[0].Content, "pricing")
	assert.Equal(t, server.URL+"/pricing", result.Documents[0].URL)
	assert.Equal(t, "Pricing", result.Documents[0].Title)

	// Navigation path runs from the seed to the document's page.
	path := result.Documents[0].NavigationPath
	require.Len(t, path, 2)
	assert.Equal(t, server.URL+"/", path[0].URL)
	assert.Equal(t, result.Documents[0].Depth, len(path)-1)
}

func TestScrapeMetadata(t *testing.T) {
	server := pricingSite(t)
	defer server.Close()

	c := newTestClient(t, testConfig())
	result, err := c.Scrape(context.Background(), server.URL, "pricing plans")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Metadata.PagesVisited)
	assert.Equal(t, 0, result.Metadata.PagesFailed)
	assert.Equal(t, len(result.Documents), result.Metadata.DocumentCount)

	seen := make(map[string]bool)
	for _, src := range result.Metadata.Sources {
		assert.False(t, seen[src], "sources must be distinct")
		seen[src] = true
	}
	for _, doc := range result.Documents {
		assert.True(t, seen[doc.URL], "every document URL appears in sources")
	}
}

func TestScrapeHighThresholdYieldsEmptyNotError(t *testing.T) {
	server := pricingSite(t)
	defer server.Close()

	cfg := testConfig()
	cfg.Extraction.SimilarityThreshold = 0.99
	c := newTestClient(t, cfg)

	result, err := c.Scrape(context.Background(), server.URL, "quantum entanglement research")
	require.NoError(t, err, "no relevant content is a valid outcome, not an error")
	assert.Empty(t, result.Documents)
	assert.Equal(t, 0, result.Metadata.DocumentCount)
	assert.Equal(t, 3, result.Metadata.PagesVisited)
}

func TestScrapeFailedPageCounted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", htmlHandler(`<html><body>
		<p>Widget pricing guide.</p><a href="/broken">broken</a></body></html>`))
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, testConfig())
	result, err := c.Scrape(context.Background(), server.URL, "pricing")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Metadata.PagesVisited)
	assert.Equal(t, 1, result.Metadata.PagesFailed)
}

func TestScrapeDocumentsCarrySummaries(t *testing.T) {
	long := strings.Repeat("Detailed pricing information for every plan tier. ", 30)
	mux := http.NewServeMux()
	mux.HandleFunc("/", htmlHandler(`<html><body><p>`+long+`</p></body></html>`))
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, testConfig())
	result, err := c.Scrape(context.Background(), server.URL, "pricing information")
	require.NoError(t, err)

	require.NotEmpty(t, result.Documents)
	for _, doc := range result.Documents {
		assert.NotEmpty(t, doc.Summary)
		assert.LessOrEqual(t, len(doc.Summary), summaryLength+3, "truncation fallback respects the cap")
	}
}

func TestCacheInfoAndClear(t *testing.T) {
	server := pricingSite(t)
	defer server.Close()

	c := newTestClient(t, testConfig())

	info := c.CacheInfo()
	assert.Zero(t, info.PageCache.Entries)
	assert.Zero(t, info.ExtractionCache.Entries)

	_, err := c.Scrape(context.Background(), server.URL, "pricing plans")
	require.NoError(t, err)

	info = c.CacheInfo()
	assert.Equal(t, 3, info.PageCache.Entries)
	assert.Equal(t, 3, info.ExtractionCache.Entries)
	assert.Greater(t, info.PageCache.ApproxBytes, int64(0))

	c.ClearCache()
	info = c.CacheInfo()
	assert.Zero(t, info.PageCache.Entries)
	assert.Zero(t, info.ExtractionCache.Entries)
	assert.Zero(t, info.PageCache.ApproxBytes)
	assert.Zero(t, info.ExtractionCache.ApproxBytes)
}

func TestScrapeSecondRunServedFromCache(t *testing.T) {
	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><p>Widget pricing guide for all plans.</p></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, testConfig())

	first, err := c.Scrape(context.Background(), server.URL, "pricing")
	require.NoError(t, err)
	hitsAfterFirst := hits

	second, err := c.Scrape(context.Background(), server.URL, "pricing")
	require.NoError(t, err)

	assert.Equal(t, hitsAfterFirst, hits, "second scrape must not refetch")
	assert.Equal(t, first.Documents, second.Documents)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Extraction.SimilarityThreshold = 1.5

	_, err := New(cfg, log.New(io.Discard))
	var cerr *config.ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestScrapeCancelledContext(t *testing.T) {
	server := pricingSite(t)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, testConfig())
	result, err := c.Scrape(ctx, server.URL, "pricing")
	assert.ErrorIs(t, err, context.Canceled)
	if result != nil {
		assert.Empty(t, result.Documents)
	}
}
