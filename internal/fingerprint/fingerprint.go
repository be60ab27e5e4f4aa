// Package fingerprint derives stable layout signatures used as parser cache
// keys. Two documents with the same layout but different data must collide;
// genuinely different templates must not.
package fingerprint

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/S3ph1r/warroom-ingest/internal/preview"
)

const (
	// Unknown is the sentinel returned when no signature can be derived.
	// Callers pay the cache-miss cost instead of failing the document.
	Unknown = "unknown"

	// hashLen truncates the md5 hex digest; 12 chars keeps keys short
	// while leaving collisions negligible at this corpus size.
	hashLen = 12

	// pdfSampleChars bounds the PDF text sample fed into the hash.
	pdfSampleChars = 2000

	// rawPrefixBytes bounds the byte-prefix fallback for binary formats.
	rawPrefixBytes = 2048
)

// Fingerprinter computes layout signatures for documents.
type Fingerprinter struct {
	pdf preview.PDFExtractor
}

// New creates a Fingerprinter. A nil PDF extractor makes PDF fingerprints
// fall back to the raw byte prefix.
func New(pdf preview.PDFExtractor) *Fingerprinter {
	return &Fingerprinter{pdf: pdf}
}

// Fingerprint returns the layout signature for the file at path. It never
// fails: any extraction problem yields the "unknown" sentinel.
func (f *Fingerprinter) Fingerprint(ctx context.Context, path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		if line, ok := firstNonEmptyLine(path); ok {
			return digest(line)
		}
	case ".xlsx", ".xlsm":
		// Header row, like CSV: re-exports with different data must still
		// hit the same cached parser.
		if header := strings.TrimSpace(preview.SpreadsheetRows(path, 1)); header != "" {
			return digest(header)
		}
		if sig, ok := rawPrefix(path); ok {
			return sig
		}
	case ".pdf":
		if f.pdf != nil {
			if text, err := f.pdf.ExtractText(ctx, path, 2); err == nil && strings.TrimSpace(text) != "" {
				if len(text) > pdfSampleChars {
					text = text[:pdfSampleChars]
				}
				return digest(text)
			}
		}
		if sig, ok := rawPrefix(path); ok {
			return sig
		}
	default:
		if sig, ok := rawPrefix(path); ok {
			return sig
		}
	}
	return Unknown
}

// firstNonEmptyLine reads the header line of a tabular file. Hashing the
// header only is deliberately data-insensitive: re-exports with different
// rows still hit the same cached parser.
func firstNonEmptyLine(path string) (string, bool) {
	file, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line, true
		}
	}
	return "", false
}

func rawPrefix(path string) (string, bool) {
	file, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer file.Close()

	buf := make([]byte, rawPrefixBytes)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", false
	}
	if n == 0 {
		return "", false
	}
	return digest(string(buf[:n])), true
}

func digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:hashLen]
}
