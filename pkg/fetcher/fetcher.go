// Package fetcher provides the raw fetch primitive used by the crawler:
// an HTTP GET with a minimum inter-request delay per host and optional
// robots.txt checking. Fetch failures are reported as *NetworkError so the
// crawler can recover locally instead of aborting the crawl.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/rufuslabs/rufus/internal/models"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// ErrRobotsDisallowed marks URLs excluded by the host's robots.txt. The
// crawler treats it as a skip, not a failure.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// NetworkError wraps timeouts, connection failures and non-2xx statuses.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Fetcher is the fetch capability consumed by the crawler.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*models.Page, error)
}

// Options configures an HTTPFetcher.
type Options struct {
	UserAgent     string
	Timeout       time.Duration
	HostDelay     time.Duration
	RespectRobots bool
}

// HTTPFetcher fetches pages over HTTP with per-host pacing. Limiters are
// keyed by host so requests to the same host are serialized by the
// configured delay while requests to different hosts proceed unhindered.
type HTTPFetcher struct {
	client *http.Client
	opts   Options
	logger *log.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	robotsMu sync.Mutex
	robots   map[string]*robotstxt.RobotsData
}

// New creates an HTTPFetcher.
func New(opts Options, logger *log.Logger) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "Rufus/1.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		opts:     opts,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
		robots:   make(map[string]*robotstxt.RobotsData),
	}
}

// Fetch retrieves rawURL, honoring the per-host delay and robots.txt. A
// non-2xx status is returned as *NetworkError with the status recorded.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*models.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}

	if f.opts.RespectRobots && !f.allowedByRobots(ctx, u) {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrRobotsDisallowed)
	}

	if err := f.limiter(u.Host).Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &NetworkError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}

	f.logger.Debug("fetched", "url", rawURL, "status", resp.StatusCode, "bytes", len(body))

	return &models.Page{
		URL:         rawURL,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FetchedAt:   time.Now(),
	}, nil
}

// limiter returns the rate limiter for a host, creating it on first use.
func (f *HTTPFetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		if f.opts.HostDelay > 0 {
			l = rate.NewLimiter(rate.Every(f.opts.HostDelay), 1)
		} else {
			l = rate.NewLimiter(rate.Inf, 1)
		}
		f.limiters[host] = l
	}
	return l
}

// allowedByRobots checks the host's robots.txt, fetching and caching it on
// first contact. Any problem obtaining or parsing robots.txt allows the URL.
func (f *HTTPFetcher) allowedByRobots(ctx context.Context, u *url.URL) bool {
	f.robotsMu.Lock()
	data, ok := f.robots[u.Host]
	f.robotsMu.Unlock()

	if !ok {
		data = f.fetchRobots(ctx, u)
		f.robotsMu.Lock()
		f.robots[u.Host] = data
		f.robotsMu.Unlock()
	}

	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, f.opts.UserAgent)
}

func (f *HTTPFetcher) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		f.logger.Debug("unparseable robots.txt", "host", u.Host, "err", err)
		return nil
	}
	return data
}
