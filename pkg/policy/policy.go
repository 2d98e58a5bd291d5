package policy

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Extensions that never carry crawlable content. PDFs are handled
// separately because they become content when PDF parsing is enabled.
var assetExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".bmp": true,
	".css": true, ".js": true, ".mjs": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true, ".7z": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".webm": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".doc": true, ".docx": true, ".ppt": true, ".pptx": true, ".xls": true, ".xlsx": true,
	".exe": true, ".dmg": true, ".iso": true,
}

var socialHosts = map[string]bool{
	"facebook.com":  true,
	"twitter.com":   true,
	"x.com":         true,
	"instagram.com": true,
	"linkedin.com":  true,
	"youtube.com":   true,
	"tiktok.com":    true,
	"pinterest.com": true,
	"reddit.com":    true,
}

// Policy decides whether a discovered URL is eligible to crawl. It is a
// pure predicate over the URL string; visited-set dedup belongs to the
// crawler, which owns the crawl state.
type Policy struct {
	seedHost   string // host:port, for strict exact-host matching
	seedDomain string
	strict     bool
	parsePDFs  bool
}

// New builds a policy anchored at the seed URL. In strict mode only URLs
// whose host exactly equals the seed host are eligible; otherwise
// cross-domain links stay eligible and are reported as external.
func New(seedURL string, strict, parsePDFs bool) (*Policy, error) {
	u, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("seed URL %q has no host", seedURL)
	}

	// Port included: 127.0.0.1:8080 and 127.0.0.1:9090 are different hosts.
	seedHost := strings.ToLower(u.Host)
	seedName := strings.ToLower(u.Hostname())

	// eTLD+1 so that subdomains of the seed site count as internal
	seedDomain, err := publicsuffix.EffectiveTLDPlusOne(seedName)
	if err != nil {
		seedDomain = seedName
	}

	return &Policy{
		seedHost:   seedHost,
		seedDomain: seedDomain,
		strict:     strict,
		parsePDFs:  parsePDFs,
	}, nil
}

// Eligible reports whether rawURL may be crawled and, in relaxed domain
// mode, whether it is external to the seed site.
func (p *Policy) Eligible(rawURL string) (eligible, external bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false, false
	}
	if u.Hostname() == "" {
		return false, false
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if assetExtensions[ext] {
		return false, false
	}
	if ext == ".pdf" && !p.parsePDFs {
		return false, false
	}

	name := strings.ToLower(u.Hostname())
	if socialHosts[name] || socialHosts[strings.TrimPrefix(name, "www.")] {
		return false, false
	}

	if p.strict {
		return strings.ToLower(u.Host) == p.seedHost, false
	}

	linkedDomain, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		linkedDomain = name
	}
	return true, linkedDomain != p.seedDomain
}

// Normalize canonicalizes a URL for visited-set and cache keys: lowercase
// scheme and host, sorted query, fragment stripped, empty path mapped to "/".
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("cannot normalize %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("cannot normalize %q: missing host", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}

	if u.RawQuery != "" {
		q := u.Query()
		u.RawQuery = q.Encode() // Encode sorts keys
	}

	return u.String(), nil
}
