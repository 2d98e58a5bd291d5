// Package extractor turns a raw fetched page into ranked content
// fragments: clean boilerplate, chunk on sentence boundaries, score each
// chunk against the instruction, keep what clears the threshold. Results
// are cached per (URL, instruction fingerprint) so identical requests never
// hit the scoring capability twice.
package extractor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rufuslabs/rufus/internal/models"
	"github.com/rufuslabs/rufus/pkg/cache"
	"github.com/rufuslabs/rufus/pkg/scorer"
)

// PDFText is the external capability extracting text from PDF bytes.
type PDFText interface {
	Text(ctx context.Context, data []byte) (string, error)
}

// ExtractionError marks a scoring or cleaning failure on one page. The
// caller skips that page; the crawl and other pages are unaffected.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Config holds the extraction parameters that feed the fingerprint.
type Config struct {
	ChunkSize int
	Threshold float64
	ParsePDFs bool
}

// Extractor scores page content against an instruction.
type Extractor struct {
	cleaner Cleaner
	scorer  scorer.Scorer
	pdf     PDFText
	cache   *cache.ExtractionCache
	cfg     Config
	logger  *log.Logger
}

// New creates an extractor. pdf may be nil when Config.ParsePDFs is false.
func New(cleaner Cleaner, sc scorer.Scorer, pdf PDFText, extractions *cache.ExtractionCache, cfg Config, logger *log.Logger) *Extractor {
	return &Extractor{
		cleaner: cleaner,
		scorer:  sc,
		pdf:     pdf,
		cache:   extractions,
		cfg:     cfg,
		logger:  logger,
	}
}

// Extract returns the fragments of page relevant to instructions, sorted
// by descending score with ties kept in original chunk order. Pages whose
// content type is neither text nor (when enabled) PDF yield no fragments
// and no error.
func (e *Extractor) Extract(ctx context.Context, page *models.Page, instructions string) ([]models.ContentFragment, error) {
	fingerprint := cache.Fingerprint(instructions, e.cfg.ChunkSize, e.cfg.Threshold)
	key := cache.Key(page.URL, fingerprint)

	if fragments, ok := e.cache.Get(key); ok {
		e.logger.Debug("extraction cache hit", "url", page.URL)
		return fragments, nil
	}

	text, ok, err := e.pageText(ctx, page)
	if err != nil {
		return nil, &ExtractionError{URL: page.URL, Err: err}
	}
	if !ok {
		return nil, nil
	}

	chunks := SplitChunks(text, e.cfg.ChunkSize)

	fragments := make([]models.ContentFragment, 0, len(chunks))
	for _, chunk := range chunks {
		score, err := e.scorer.Score(ctx, instructions, chunk)
		if err != nil {
			return nil, &ExtractionError{URL: page.URL, Err: err}
		}
		if score < e.cfg.Threshold {
			continue
		}
		fragments = append(fragments, models.ContentFragment{
			URL:   page.URL,
			Text:  chunk,
			Score: score,
		})
	}

	// Stable sort keeps document order among equal scores.
	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].Score > fragments[j].Score
	})

	e.cache.Put(key, fragments)
	e.logger.Debug("extracted", "url", page.URL, "chunks", len(chunks), "kept", len(fragments))

	return fragments, nil
}

// pageText routes the raw body through the right collaborator for its
// content type. The second return is false when the page carries no
// extractable content.
func (e *Extractor) pageText(ctx context.Context, page *models.Page) (string, bool, error) {
	switch mediaType(page.ContentType) {
	case "application/pdf":
		if !e.cfg.ParsePDFs || e.pdf == nil {
			return "", false, nil
		}
		text, err := e.pdf.Text(ctx, page.Body)
		if err != nil {
			return "", false, err
		}
		return text, true, nil

	case "text/html", "application/xhtml+xml", "application/xhtml", "":
		text, err := e.cleaner.Clean(page.Body)
		if err != nil {
			return "", false, err
		}
		return text, true, nil

	case "text/plain":
		return string(page.Body), true, nil

	default:
		return "", false, nil
	}
}

func mediaType(contentType string) string {
	return strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
}
