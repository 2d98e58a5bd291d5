// Package pdf implements the pdf_text collaborator: raw PDF bytes in,
// plain text out. pdfcpu works on files, so extraction goes through a
// per-process temp directory.
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Extractor extracts text from PDF documents using pdfcpu.
type Extractor struct {
	tempDir string
}

// New creates a PDF extractor with its own temp workspace.
func New() (*Extractor, error) {
	dir, err := os.MkdirTemp("", "rufus-pdf-")
	if err != nil {
		return nil, fmt.Errorf("cannot create pdf temp dir: %w", err)
	}
	return &Extractor{tempDir: dir}, nil
}

// Close removes the extractor's temp workspace.
func (e *Extractor) Close() error {
	return os.RemoveAll(e.tempDir)
}

// Text extracts the text content of a PDF, pages concatenated in order.
func (e *Extractor) Text(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tempFile, err := os.CreateTemp(e.tempDir, "doc-*.pdf")
	if err != nil {
		return "", fmt.Errorf("cannot create temp pdf: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("cannot write temp pdf: %w", err)
	}
	tempFile.Close()

	pdfCtx, err := api.ReadContextFile(tempPath)
	if err != nil {
		return "", fmt.Errorf("unreadable pdf: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp(e.tempDir, "pages-")
	if err != nil {
		return "", fmt.Errorf("cannot create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempPath, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("pdf content extraction failed: %w", err)
	}

	// pdfcpu writes one content file per page, named Content_page_N
	pageTexts := make(map[int]string)
	entries, _ := os.ReadDir(outDir)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text, ok := pageTexts[pageNum]
		if !ok {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}

	return builder.String(), nil
}
