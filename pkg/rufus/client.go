// Package rufus is the public entry point: a Client owns the caches,
// the crawler and the extractor, and exposes the three operations of the
// engine — Scrape, CacheInfo and ClearCache.
package rufus

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/rufuslabs/rufus/internal/config"
	"github.com/rufuslabs/rufus/internal/models"
	"github.com/rufuslabs/rufus/pkg/cache"
	"github.com/rufuslabs/rufus/pkg/crawler"
	"github.com/rufuslabs/rufus/pkg/extractor"
	"github.com/rufuslabs/rufus/pkg/fetcher"
	"github.com/rufuslabs/rufus/pkg/pdf"
	"github.com/rufuslabs/rufus/pkg/scorer"
	"github.com/rufuslabs/rufus/pkg/utils"
)

// summaryLength caps the truncation fallback used when no summarizer is
// configured or the configured one fails.
const summaryLength = 200

// Client ties the engine together. Caches live as long as the client, so
// repeated scrapes of the same site reuse fetched pages and, when the
// instructions match, whole extraction results.
type Client struct {
	cfg         *config.Config
	logger      *log.Logger
	pages       *cache.PageCache
	extractions *cache.ExtractionCache
	crawler     *crawler.Crawler
	extractor   *extractor.Extractor
	summarizer  scorer.Summarizer
	pdf         *pdf.Extractor
}

// New validates cfg and assembles a client. A nil cfg selects the built-in
// defaults. Configuration problems surface here, before any crawling.
func New(cfg *config.Config, logger *log.Logger) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	var sc scorer.Scorer
	var summarizer scorer.Summarizer
	if cfg.Scorer.Kind == "claude" {
		claude := scorer.NewClaude(cfg.Scorer.APIKey, cfg.Scorer.Model)
		sc = claude
		if cfg.Scorer.Summarize {
			summarizer = claude
		}
	} else {
		sc = scorer.NewLexical()
	}

	c := &Client{
		cfg:         cfg,
		logger:      logger,
		pages:       cache.NewPageCache(),
		extractions: cache.NewExtractionCache(),
		summarizer:  summarizer,
	}

	var pdfText extractor.PDFText
	if cfg.Extraction.ParsePDFs {
		p, err := pdf.New()
		if err != nil {
			return nil, err
		}
		c.pdf = p
		pdfText = p
	}

	fetch := fetcher.New(fetcher.Options{
		UserAgent:     cfg.Crawler.UserAgent,
		Timeout:       cfg.Crawler.RequestTimeout,
		HostDelay:     cfg.Crawler.HostDelay,
		RespectRobots: cfg.Crawler.RespectRobots,
	}, logger)

	c.crawler = crawler.New(fetch, c.pages, crawler.Config{
		MaxDepth:     cfg.Crawler.MaxDepth,
		MaxPages:     cfg.Crawler.MaxPages,
		Workers:      cfg.Crawler.Workers,
		StrictDomain: cfg.Crawler.StrictDomain,
		ParsePDFs:    cfg.Extraction.ParsePDFs,
	}, logger)

	c.extractor = extractor.New(extractor.NewCleaner(), sc, pdfText, c.extractions, extractor.Config{
		ChunkSize: cfg.Extraction.ChunkSize,
		Threshold: cfg.Extraction.SimilarityThreshold,
		ParsePDFs: cfg.Extraction.ParsePDFs,
	}, logger)

	return c, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	if c.pdf != nil {
		return c.pdf.Close()
	}
	return nil
}

// Scrape crawls from seedURL, extracts content relevant to instructions
// from every fetched page, and returns the resulting documents ordered by
// descending relevance. On cancellation the documents assembled so far are
// returned together with the context error.
func (c *Client) Scrape(ctx context.Context, seedURL, instructions string) (*models.ScrapeResult, error) {
	crawlRes, crawlErr := c.crawler.Crawl(ctx, seedURL)
	if crawlRes == nil {
		return nil, crawlErr
	}

	result := &models.ScrapeResult{
		Documents: []models.Document{},
		Metadata: models.ScrapeMetadata{
			PagesVisited: len(crawlRes.Fetched),
			PagesFailed:  crawlRes.Failed,
			PagesSkipped: crawlRes.Skipped,
		},
	}

	for _, idx := range crawlRes.Fetched {
		if ctx.Err() != nil {
			break
		}
		page, ok := c.crawler.Page(crawlRes, idx)
		if !ok {
			continue
		}

		fragments, err := c.extractor.Extract(ctx, page, instructions)
		if err != nil {
			// One bad page never sinks the scrape.
			result.Metadata.PagesFailed++
			c.logger.Warn("extraction failed", "url", page.URL, "err", err)
			continue
		}

		node := crawlRes.Nodes[idx]
		path := crawlRes.Path(idx)
		for _, f := range fragments {
			result.Documents = append(result.Documents, models.Document{
				URL:            node.URL,
				Title:          node.Title,
				Content:        f.Text,
				Summary:        c.summarize(ctx, f.Text),
				Depth:          node.Depth,
				RelevanceScore: f.Score,
				NavigationPath: path,
			})
		}
	}

	// Global ranking; stable so crawl order breaks ties.
	sort.SliceStable(result.Documents, func(i, j int) bool {
		return result.Documents[i].RelevanceScore > result.Documents[j].RelevanceScore
	})

	seen := make(map[string]bool)
	for _, doc := range result.Documents {
		if !seen[doc.URL] {
			seen[doc.URL] = true
			result.Metadata.Sources = append(result.Metadata.Sources, doc.URL)
		}
	}
	result.Metadata.DocumentCount = len(result.Documents)

	if crawlErr != nil {
		return result, crawlErr
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	c.logger.Info("scrape complete",
		"documents", result.Metadata.DocumentCount,
		"visited", result.Metadata.PagesVisited,
		"failed", result.Metadata.PagesFailed)
	return result, nil
}

// summarize produces a document summary through the configured summarizer,
// falling back to word-boundary truncation when none is set or it fails.
func (c *Client) summarize(ctx context.Context, text string) string {
	if c.summarizer != nil {
		summary, err := c.summarizer.Summarize(ctx, text)
		if err == nil {
			return summary
		}
		c.logger.Debug("summarizer failed, truncating", "err", err)
	}
	return utils.TruncateText(text, summaryLength)
}

// CacheInfo reports entry counts and approximate sizes for both caches.
func (c *Client) CacheInfo() models.CacheInfo {
	return models.CacheInfo{
		PageCache:       c.pages.Stats(),
		ExtractionCache: c.extractions.Stats(),
	}
}

// ClearCache empties both caches.
func (c *Client) ClearCache() {
	c.pages.Clear()
	c.extractions.Clear()
}
