// Package preview produces bounded document excerpts for classification and
// fingerprinting: first rows of tabular files, first pages of PDFs.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// PDFExtractor extracts text from PDF documents.
type PDFExtractor interface {
	// ExtractText returns the text of the first maxPages pages of the PDF
	// at path. maxPages <= 0 means the whole document.
	ExtractText(ctx context.Context, path string, maxPages int) (string, error)
}

// PopplerExtractor extracts PDF text via the poppler pdftotext binary.
type PopplerExtractor struct{}

// NewPopplerExtractor creates a pdftotext-backed extractor.
func NewPopplerExtractor() *PopplerExtractor {
	return &PopplerExtractor{}
}

func (e *PopplerExtractor) ExtractText(ctx context.Context, path string, maxPages int) (string, error) {
	args := []string{"-layout"}
	if maxPages > 0 {
		args = append(args, "-l", fmt.Sprintf("%d", maxPages))
	}
	args = append(args, path, "-")

	cmd := exec.CommandContext(ctx, "pdftotext", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed for %s: %w: %s", path, err, stderr.String())
	}
	return stdout.String(), nil
}

// MockPDFExtractor returns canned text keyed by path. Paths without an entry
// fall back to Default; a non-nil Err is returned for every call.
type MockPDFExtractor struct {
	Texts   map[string]string
	Default string
	Err     error
}

func (m *MockPDFExtractor) ExtractText(_ context.Context, path string, _ int) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if text, ok := m.Texts[path]; ok {
		return text, nil
	}
	return m.Default, nil
}
