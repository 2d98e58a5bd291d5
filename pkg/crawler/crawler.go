// Package crawler drives the breadth-first traversal from a seed URL.
// Fetches run on a bounded worker pool one frontier wave at a time while
// the frontier, visited set and node arena stay under the coordinating
// goroutine, so every URL is processed at most once per crawl and link
// discovery order stays deterministic.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/rufuslabs/rufus/internal/models"
	"github.com/rufuslabs/rufus/pkg/cache"
	"github.com/rufuslabs/rufus/pkg/fetcher"
	"github.com/rufuslabs/rufus/pkg/policy"
)

// Config bounds one crawl.
type Config struct {
	MaxDepth     int
	MaxPages     int
	Workers      int
	StrictDomain bool
	ParsePDFs    bool
}

// Crawler walks a site from a seed URL, recording each visited page as a
// node in an arena so navigation paths can be derived afterwards.
type Crawler struct {
	fetch  fetcher.Fetcher
	pages  *cache.PageCache
	cfg    Config
	logger *log.Logger
}

// New creates a crawler that fetches through fetch and consults pages
// before every fetch.
func New(fetch fetcher.Fetcher, pages *cache.PageCache, cfg Config, logger *log.Logger) *Crawler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Crawler{fetch: fetch, pages: pages, cfg: cfg, logger: logger}
}

// Result is the arena of nodes visited by one crawl. Fetched holds the
// indices of successfully fetched nodes in visitation order.
type Result struct {
	Nodes   []models.CrawlNode
	Fetched []int
	Failed  int
	Skipped int
}

// Path derives the navigation path from the seed to node i by walking
// parent references.
func (r *Result) Path(i int) models.NavigationPath {
	var reversed models.NavigationPath
	for idx := i; idx >= 0; idx = r.Nodes[idx].Parent {
		reversed = append(reversed, models.PathEntry{
			URL:   r.Nodes[idx].URL,
			Title: r.Nodes[idx].Title,
		})
	}

	path := make(models.NavigationPath, len(reversed))
	for j := range reversed {
		path[len(reversed)-1-j] = reversed[j]
	}
	return path
}

// Page returns the cached raw page for node i, if still present.
func (c *Crawler) Page(r *Result, i int) (*models.Page, bool) {
	return c.pages.Get(r.Nodes[i].URL)
}

type frontierItem struct {
	url      string
	depth    int
	parent   int
	external bool
}

type fetchOutcome struct {
	page     *models.Page
	err      error
	canceled bool
}

// Crawl traverses from seedURL until the frontier drains, the page
// ceiling is reached, or ctx is canceled. On cancellation the partial
// result is returned together with the context error.
func (c *Crawler) Crawl(ctx context.Context, seedURL string) (*Result, error) {
	pol, err := policy.New(seedURL, c.cfg.StrictDomain, c.cfg.ParsePDFs)
	if err != nil {
		return nil, err
	}

	seed, err := policy.Normalize(seedURL)
	if err != nil {
		return nil, err
	}
	if ok, _ := pol.Eligible(seed); !ok {
		return nil, fmt.Errorf("seed URL %q is not crawlable", seedURL)
	}

	result := &Result{}
	visited := map[string]bool{seed: true}
	frontier := []frontierItem{{url: seed, depth: 0, parent: -1}}
	processed := 0

	for len(frontier) > 0 {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		n := c.cfg.Workers
		if n > len(frontier) {
			n = len(frontier)
		}
		if c.cfg.MaxPages > 0 && processed+n > c.cfg.MaxPages {
			n = c.cfg.MaxPages - processed
		}
		if n <= 0 {
			c.logger.Debug("page ceiling reached", "processed", processed)
			break
		}

		batch := frontier[:n]
		frontier = frontier[n:]

		outcomes := make([]fetchOutcome, len(batch))
		var g errgroup.Group
		for i := range batch {
			g.Go(func() error {
				outcomes[i] = c.fetchOne(ctx, batch[i].url)
				return nil
			})
		}
		g.Wait()

		for i, item := range batch {
			out := outcomes[i]
			if out.canceled {
				continue
			}
			processed++

			node := models.CrawlNode{
				URL:      item.url,
				Depth:    item.depth,
				Parent:   item.parent,
				External: item.external,
			}

			if out.err != nil {
				if errors.Is(out.err, fetcher.ErrRobotsDisallowed) {
					node.Status = models.FetchSkipped
					result.Skipped++
					c.logger.Debug("skipped", "url", item.url, "reason", "robots.txt")
				} else {
					node.Status = models.FetchFailed
					result.Failed++
					c.logger.Warn("fetch failed", "url", item.url, "err", out.err)
				}
				result.Nodes = append(result.Nodes, node)
				continue
			}

			node.Status = models.FetchSuccess
			title, links := c.parsePage(out.page)
			node.Title = title

			idx := len(result.Nodes)
			result.Nodes = append(result.Nodes, node)
			result.Fetched = append(result.Fetched, idx)

			if item.depth >= c.cfg.MaxDepth {
				continue
			}
			for _, link := range links {
				norm, err := policy.Normalize(link)
				if err != nil {
					continue
				}
				ok, external := pol.Eligible(norm)
				if !ok || visited[norm] {
					continue
				}
				visited[norm] = true
				frontier = append(frontier, frontierItem{
					url:      norm,
					depth:    item.depth + 1,
					parent:   idx,
					external: external,
				})
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	c.logger.Info("crawl complete",
		"visited", len(result.Fetched), "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

// fetchOne consults the page cache and falls back to the fetcher. A cache
// hit skips the fetcher, and with it the per-host rate limiter, entirely.
func (c *Crawler) fetchOne(ctx context.Context, normURL string) fetchOutcome {
	if page, ok := c.pages.Get(normURL); ok {
		c.logger.Debug("page cache hit", "url", normURL)
		return fetchOutcome{page: page}
	}

	page, err := c.fetch.Fetch(ctx, normURL)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, fetcher.ErrRobotsDisallowed) {
			return fetchOutcome{canceled: true}
		}
		return fetchOutcome{err: err}
	}

	c.pages.Put(normURL, page)
	return fetchOutcome{page: page}
}

// parsePage pulls the title and outbound links, in document order, from an
// HTML page. Non-HTML pages have no title and no links to follow.
func (c *Crawler) parsePage(page *models.Page) (string, []string) {
	mt := strings.TrimSpace(strings.ToLower(strings.Split(page.ContentType, ";")[0]))
	if mt != "" && mt != "text/html" && mt != "application/xhtml+xml" && mt != "application/xhtml" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		c.logger.Debug("unparseable HTML", "url", page.URL, "err", err)
		return "", nil
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	base, err := url.Parse(page.URL)
	if err != nil {
		return title, nil
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || shouldSkipHref(href) {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		link := resolved.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	return title, links
}

func shouldSkipHref(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:"} {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}
