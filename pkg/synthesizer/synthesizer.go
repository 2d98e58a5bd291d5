// Package synthesizer renders a scrape result for downstream consumption.
// Three formats ship by default: JSON for programmatic use, CSV for
// spreadsheets and Markdown for sharing.
package synthesizer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/rufuslabs/rufus/internal/models"
	"github.com/rufuslabs/rufus/pkg/utils"
)

// Writer renders a scrape result to an output stream.
type Writer interface {
	Write(result *models.ScrapeResult) error
}

// ForFormat returns the writer for a format name: "json", "csv" or
// "markdown".
func ForFormat(format string, output io.Writer) (Writer, error) {
	switch format {
	case "json":
		return NewJSONWriter(output), nil
	case "csv":
		return NewCSVWriter(output), nil
	case "markdown":
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// JSONWriter emits the result as indented JSON.
type JSONWriter struct {
	output io.Writer
}

// NewJSONWriter creates a JSONWriter that writes to output.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{output: output}
}

// Write implements Writer.
func (w *JSONWriter) Write(result *models.ScrapeResult) error {
	enc := json.NewEncoder(w.output)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// CSVWriter emits one row per document. Navigation paths and metadata do
// not fit the tabular shape and are omitted.
type CSVWriter struct {
	output io.Writer
}

// NewCSVWriter creates a CSVWriter that writes to output.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{output: output}
}

// Write implements Writer.
func (w *CSVWriter) Write(result *models.ScrapeResult) error {
	cw := csv.NewWriter(w.output)

	if err := cw.Write([]string{"url", "title", "depth", "relevance_score", "content"}); err != nil {
		return err
	}
	for _, doc := range result.Documents {
		row := []string{
			doc.URL,
			doc.Title,
			strconv.Itoa(doc.Depth),
			strconv.FormatFloat(doc.RelevanceScore, 'f', 4, 64),
			doc.Content,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// MarkdownWriter emits a human-readable report: an overview table, a
// ranked document table and the full content of each document.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that writes to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(result *models.ScrapeResult) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Scrape Results")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Pages Visited", strconv.Itoa(result.Metadata.PagesVisited)},
			{"Pages Failed", strconv.Itoa(result.Metadata.PagesFailed)},
			{"Pages Skipped", strconv.Itoa(result.Metadata.PagesSkipped)},
			{"Documents", strconv.Itoa(result.Metadata.DocumentCount)},
			{"Sources", strconv.Itoa(len(result.Metadata.Sources))},
		},
	})
	md.PlainText("")

	if len(result.Documents) == 0 {
		md.PlainText("No relevant content found.")
		md.PlainText("")
		return md.Build()
	}

	md.H2("Ranked Documents")
	md.PlainText("")
	w.writeDocumentTable(md, result.Documents)

	md.H2("Content")
	md.PlainText("")
	for i, doc := range result.Documents {
		md.H3f("%d. %s", i+1, headingFor(doc))
		md.PlainText("")
		md.PlainTextf("Source: <%s> (depth %d, score %.2f)", doc.URL, doc.Depth, doc.RelevanceScore)
		md.PlainText("")
		if doc.Summary != "" && doc.Summary != doc.Content {
			md.Blockquote(doc.Summary)
			md.PlainText("")
		}
		md.PlainText(doc.Content)
		md.PlainText("")
	}

	return md.Build()
}

func (w *MarkdownWriter) writeDocumentTable(md *markdown.Markdown, docs []models.Document) {
	rows := make([][]string, len(docs))
	for i, doc := range docs {
		title := doc.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			strconv.FormatFloat(doc.RelevanceScore, 'f', 2, 64),
			title,
			doc.URL,
			utils.TruncateText(doc.Content, 80),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Score", "Title", "URL", "Excerpt"},
		Rows:   rows,
	})
	md.PlainText("")
}

func headingFor(doc models.Document) string {
	if doc.Title != "" {
		return doc.Title
	}
	return doc.URL
}
