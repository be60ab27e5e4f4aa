package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3ph1r/warroom-ingest/internal/logging"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Load(filepath.Join(t.TempDir(), "registry.json"), logging.NewMockLogger())
	require.NoError(t, err)
	return r
}

func TestSaveThenGet(t *testing.T) {
	r := newTestRegistry(t)
	code := "def parse(path):\n    return []\n"

	require.NoError(t, r.Save("BGSAXO", "HOLDINGS", "abc123def456", code))

	got, ok := r.Get("BGSAXO", "HOLDINGS", "abc123def456")
	assert.True(t, ok)
	assert.Equal(t, code, got)
}

func TestGetUnknownKey(t *testing.T) {
	r := newTestRegistry(t)

	_, ok := r.Get("BGSAXO", "HOLDINGS", "nope")
	assert.False(t, ok)
}

func TestRecordSuccessKeepsCode(t *testing.T) {
	r := newTestRegistry(t)
	code := "def parse(path): return []"
	require.NoError(t, r.Save("B", "TRANSACTIONS", "f1", code))

	require.NoError(t, r.RecordSuccess("B", "TRANSACTIONS", "f1"))
	require.NoError(t, r.RecordSuccess("B", "TRANSACTIONS", "f1"))

	got, ok := r.Get("B", "TRANSACTIONS", "f1")
	assert.True(t, ok)
	assert.Equal(t, code, got)

	entries := r.List()
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Entry.SuccessCount)
	assert.Nil(t, entries[0].Entry.LastError)
}

func TestRecordErrorThenSuccessClearsIt(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Save("B", "HOLDINGS", "f1", "code"))

	require.NoError(t, r.RecordError("B", "HOLDINGS", "f1", "KeyError: 'Qty'"))
	entries := r.List()
	require.NotNil(t, entries[0].Entry.LastError)
	assert.Equal(t, "KeyError: 'Qty'", entries[0].Entry.LastError.Message)

	require.NoError(t, r.RecordSuccess("B", "HOLDINGS", "f1"))
	assert.Nil(t, r.List()[0].Entry.LastError)
}

func TestInvalidate(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Save("B", "HOLDINGS", "f1", "code"))

	require.NoError(t, r.Invalidate("B", "HOLDINGS", "f1"))

	_, ok := r.Get("B", "HOLDINGS", "f1")
	assert.False(t, ok)
}

func TestPersistenceSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	r1, err := Load(path, logging.NewMockLogger())
	require.NoError(t, err)
	require.NoError(t, r1.Save("BGSAXO", "HOLDINGS", "f1", "def parse(path): ..."))
	require.NoError(t, r1.RecordSuccess("BGSAXO", "HOLDINGS", "f1"))

	r2, err := Load(path, logging.NewMockLogger())
	require.NoError(t, err)

	got, ok := r2.Get("BGSAXO", "HOLDINGS", "f1")
	assert.True(t, ok)
	assert.Equal(t, "def parse(path): ...", got)
	assert.Equal(t, 1, r2.List()[0].Entry.SuccessCount)
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path, logging.NewMockLogger())
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "BGSAXO|HOLDINGS|abc123", Key("BGSAXO", "HOLDINGS", "abc123"))
}
