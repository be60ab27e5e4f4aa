package root_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3ph1r/warroom-ingest/cmd/root"
)

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "warroom", root.Cmd.Use)
	assert.Contains(t, root.Cmd.Short, "broker exports")
	assert.NotNil(t, root.Cmd.PersistentPreRunE)
	assert.NotNil(t, root.Cmd.RunE)
}

func TestInit_RegistersConfigDirFlag(t *testing.T) {
	root.Init()

	flag := root.Cmd.PersistentFlags().Lookup("config-dir")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
	assert.Equal(t, "", flag.DefValue)
	assert.NotEmpty(t, flag.Usage)
}

func TestPersistentPreRun_LoadsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	err := root.Cmd.PersistentPreRunE(root.Cmd, nil)
	require.NoError(t, err)
	require.NotNil(t, root.Cfg)
	require.NotNil(t, root.Log)
	assert.Equal(t, 0.7, root.Cfg.Pipeline.ConfidenceThreshold)
}
