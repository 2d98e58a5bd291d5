package extractor

import (
	"bytes"

	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Cleaner strips boilerplate from a raw HTML page, returning readable text.
type Cleaner interface {
	Clean(body []byte) (string, error)
}

// TrafilaturaCleaner extracts main content with trafilatura, falling back
// to a plain text walk of the DOM when trafilatura finds nothing.
type TrafilaturaCleaner struct{}

// NewCleaner creates the default trafilatura-backed cleaner.
func NewCleaner() *TrafilaturaCleaner { return &TrafilaturaCleaner{} }

// Clean implements Cleaner.
func (c *TrafilaturaCleaner) Clean(body []byte) (string, error) {
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{})
	if err == nil && result != nil && result.ContentText != "" {
		return result.ContentText, nil
	}
	return fallbackText(body)
}

func fallbackText(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var b bytes.Buffer
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return b.String(), nil
}
