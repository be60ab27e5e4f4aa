package ingest_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3ph1r/warroom-ingest/cmd/ingest"
	"github.com/S3ph1r/warroom-ingest/internal/config"
	"github.com/S3ph1r/warroom-ingest/internal/logging"
)

func TestCommand_Metadata(t *testing.T) {
	assert.Equal(t, "ingest", ingest.Cmd.Use)
	assert.NotNil(t, ingest.Cmd.RunE)
}

// An empty inbox is a valid run: no files, no API key, no database rows.
func TestRun_EmptyInbox(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(cfg.Paths.Inbox, 0o755))

	summary, err := ingest.Run(context.Background(), cfg, logging.NewMockLogger())
	require.NoError(t, err)
	assert.Empty(t, summary.Results)
}
