package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3ph1r/warroom-ingest/internal/logging"
)

func TestScanFindsNestedFiles(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"BGSAXO/positions.csv",
		"BGSAXO/2024/tx.pdf",
		"TRADE_REPUBLIC/statement.pdf",
	} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	files, err := Scan(root, logging.NewMockLogger())
	require.NoError(t, err)

	assert.Len(t, files, 3)
	assert.True(t, sortedStrings(files))
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}

func TestScanMissingRootFails(t *testing.T) {
	_, err := Scan("/nope/missing", logging.NewMockLogger())
	assert.Error(t, err)
}

func TestScanEmptyRoot(t *testing.T) {
	files, err := Scan(t.TempDir(), logging.NewMockLogger())
	require.NoError(t, err)
	assert.Empty(t, files)
}
