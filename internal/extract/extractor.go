// Package extract provides text extraction from document files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// Extractor extracts page-structured text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text as numbered pages.
// PDFs yield one Page per physical page and spreadsheets one Page per
// sheet. All other formats yield a single page. Page numbers are 1-based.
func (e *Extractor) Extract(path string) ([]models.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts pages from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) ([]models.Page, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return singlePage(extractDOCX(content))
	case ".xlsx":
		return extractExcel(content)
	default:
		// Plain text formats (.txt, .md, .rst) and anything unrecognized.
		return singlePage(extractPlain(content))
	}
}

// Supported reports whether the extension maps to a format we can extract
// with page fidelity or as plain text.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".xlsx", ".txt", ".md", ".rst":
		return true
	}
	return false
}

func singlePage(text string, err error) ([]models.Page, error) {
	if err != nil {
		return nil, err
	}
	return []models.Page{{Number: 1, Text: text}}, nil
}
