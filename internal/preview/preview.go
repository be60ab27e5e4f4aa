package preview

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	// TruncationMarker is appended whenever a preview is cut at MaxChars.
	// Truncation is a documented lossy step, marked explicitly so the
	// classifier sees that the excerpt is partial.
	TruncationMarker = "...[TRUNCATED]..."

	// MaxChars is the character budget for a preview.
	MaxChars = 8000

	// CSVRows is the number of leading rows sampled from tabular files.
	CSVRows = 30

	// PDFPages is the number of leading pages sampled from PDFs.
	PDFPages = 2
)

// Builder produces bounded document previews.
type Builder struct {
	pdf PDFExtractor
}

// NewBuilder creates a preview builder. A nil extractor degrades PDF
// previews to empty strings.
func NewBuilder(pdf PDFExtractor) *Builder {
	return &Builder{pdf: pdf}
}

// Build returns a preview of the document at path: the first 30 rows for
// CSV and XLSX, the first 2 pages of text for PDF, capped at 8000 characters
// with an explicit truncation marker. Failures yield an empty preview, never
// an error; an empty preview routes the document to TRASH downstream unless
// a cached parser matches its fingerprint.
func (b *Builder) Build(ctx context.Context, path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return cap8k(headLines(path, CSVRows))
	case ".xlsx", ".xlsm":
		return cap8k(SpreadsheetRows(path, CSVRows))
	case ".pdf":
		if b.pdf == nil {
			return ""
		}
		text, err := b.pdf.ExtractText(ctx, path, PDFPages)
		if err != nil {
			return ""
		}
		return cap8k(text)
	default:
		// Legacy .xls is a binary format no available reader handles;
		// those degrade to TRASH unless a cached parser exists.
		return ""
	}
}

// SpreadsheetRows renders up to n rows of the first sheet as comma-joined
// lines. Read problems yield whatever was decoded so far, usually empty.
func SpreadsheetRows(path string, n int) string {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return ""
	}
	defer rows.Close()

	var sb strings.Builder
	for i := 0; i < n && rows.Next(); i++ {
		cols, err := rows.Columns()
		if err != nil {
			break
		}
		sb.WriteString(strings.Join(cols, ","))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// headLines reads up to n lines from a text file.
func headLines(path string, n int) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for i := 0; i < n && scanner.Scan(); i++ {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func cap8k(s string) string {
	if len(s) <= MaxChars {
		return s
	}
	return s[:MaxChars] + TruncationMarker
}
