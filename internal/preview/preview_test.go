package preview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildCSVTakesFirstRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("Name,Qty,Price\n")
	for i := 0; i < 100; i++ {
		sb.WriteString("AAPL,10,150.00\n")
	}
	path := writeTemp(t, "holdings.csv", sb.String())

	b := NewBuilder(nil)
	got := b.Build(context.Background(), path)

	assert.Equal(t, CSVRows, strings.Count(got, "\n"))
	assert.True(t, strings.HasPrefix(got, "Name,Qty,Price"))
}

func TestBuildTruncatesAtBudget(t *testing.T) {
	path := writeTemp(t, "wide.csv", strings.Repeat("x", 20000)+"\n")

	b := NewBuilder(nil)
	got := b.Build(context.Background(), path)

	assert.True(t, strings.HasSuffix(got, TruncationMarker))
	assert.Len(t, got, MaxChars+len(TruncationMarker))
}

func TestBuildPDFUsesExtractor(t *testing.T) {
	mock := &MockPDFExtractor{Default: "Estratto conto titoli\n15/03/2024 Acquisto"}
	b := NewBuilder(mock)

	got := b.Build(context.Background(), "/inbox/BGSAXO/statement.pdf")
	assert.Contains(t, got, "Estratto conto")
}

func TestBuildPDFExtractorFailureYieldsEmpty(t *testing.T) {
	mock := &MockPDFExtractor{Err: errors.New("pdftotext missing")}
	b := NewBuilder(mock)

	assert.Empty(t, b.Build(context.Background(), "/inbox/x.pdf"))
}

func writeWorkbook(t *testing.T, name string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestBuildXLSXTakesFirstRows(t *testing.T) {
	rows := [][]interface{}{{"Name", "Qty", "Price"}}
	for i := 0; i < 40; i++ {
		rows = append(rows, []interface{}{"AAPL", 10, 150.0})
	}
	path := writeWorkbook(t, "holdings.xlsx", rows)

	b := NewBuilder(nil)
	got := b.Build(context.Background(), path)

	assert.True(t, strings.HasPrefix(got, "Name,Qty,Price"))
	assert.Equal(t, CSVRows, strings.Count(got, "\n"))
}

func TestBuildXLSUnreadableYieldsEmpty(t *testing.T) {
	path := writeTemp(t, "legacy.xls", "\xd0\xcf\x11\xe0old binary")

	b := NewBuilder(nil)
	assert.Empty(t, b.Build(context.Background(), path))
}

func TestBuildUnknownExtensionYieldsEmpty(t *testing.T) {
	b := NewBuilder(nil)
	assert.Empty(t, b.Build(context.Background(), "/inbox/book.numbers"))
}
