package registry

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3ph1r/warroom-ingest/cmd/root"
	"github.com/S3ph1r/warroom-ingest/internal/config"
	"github.com/S3ph1r/warroom-ingest/internal/logging"
	"github.com/S3ph1r/warroom-ingest/internal/registry"
)

func seedRegistry(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parser_registry.json")
	reg, err := registry.Load(path, logging.NewMockLogger())
	require.NoError(t, err)
	require.NoError(t, reg.Save("SCALABLE", "HOLDINGS", "a1b2c3d4e5f6", "def parse(path):\n    return []\n"))

	root.Cfg = &config.Config{Paths: config.PathsConfig{Registry: path}}
	root.Log = logging.NewMockLogger()
	return path
}

func TestListCommand_PrintsEntries(t *testing.T) {
	seedRegistry(t)

	var out bytes.Buffer
	listCmd.SetOut(&out)
	require.NoError(t, listCmd.RunE(listCmd, nil))

	assert.Contains(t, out.String(), "SCALABLE|HOLDINGS|a1b2c3d4e5f6")
	assert.Contains(t, out.String(), "KEY")
}

func TestListCommand_EmptyRegistry(t *testing.T) {
	root.Cfg = &config.Config{Paths: config.PathsConfig{
		Registry: filepath.Join(t.TempDir(), "missing.json"),
	}}
	root.Log = logging.NewMockLogger()

	var out bytes.Buffer
	listCmd.SetOut(&out)
	require.NoError(t, listCmd.RunE(listCmd, nil))
	assert.Contains(t, out.String(), "registry is empty")
}

func TestInvalidateCommand_RemovesEntry(t *testing.T) {
	path := seedRegistry(t)

	var out bytes.Buffer
	invalidateCmd.SetOut(&out)
	err := invalidateCmd.RunE(invalidateCmd, []string{"SCALABLE", "HOLDINGS", "a1b2c3d4e5f6"})
	require.NoError(t, err)

	reg, err := registry.Load(path, logging.NewMockLogger())
	require.NoError(t, err)
	_, ok := reg.Get("SCALABLE", "HOLDINGS", "a1b2c3d4e5f6")
	assert.False(t, ok)
}

func TestInvalidateCommand_UnknownKey(t *testing.T) {
	seedRegistry(t)

	err := invalidateCmd.RunE(invalidateCmd, []string{"NOPE", "TRASH", "000000000000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cached parser")
}
