package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3ph1r/warroom-ingest/internal/ai"
	"github.com/S3ph1r/warroom-ingest/internal/classifier"
	"github.com/S3ph1r/warroom-ingest/internal/extraction"
	"github.com/S3ph1r/warroom-ingest/internal/fingerprint"
	"github.com/S3ph1r/warroom-ingest/internal/gatekeeper"
	"github.com/S3ph1r/warroom-ingest/internal/loader"
	"github.com/S3ph1r/warroom-ingest/internal/logging"
	"github.com/S3ph1r/warroom-ingest/internal/preview"
	"github.com/S3ph1r/warroom-ingest/internal/registry"
)

// csvRunner simulates a working generated parser: it reads the CSV and
// emits one record per data row.
type csvRunner struct{}

func (csvRunner) Run(_ context.Context, _ string, docPath string) ([]extraction.Record, error) {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var out []extraction.Record
	for _, line := range lines[1:] {
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			continue
		}
		out = append(out, extraction.Record{
			Ticker:   extraction.Flex(parts[0]),
			Quantity: extraction.Flex(parts[1]),
			Price:    extraction.Flex(parts[2]),
		})
	}
	return out, nil
}

type fixture struct {
	pipeline  *Pipeline
	store     *loader.Memory
	completer *ai.FakeCompleter
	reg       *registry.Registry
	root      string
}

const holdingsVerdict = `{"category": "HOLDINGS", "confidence": 0.95, "reasoning": "position snapshot"}`
const parserResponse = "```python\ndef parse(path):\n    return read_rows(path)\n```"

func newFixture(t *testing.T, responses []string) *fixture {
	t.Helper()
	root := t.TempDir()
	log := logging.NewMockLogger()

	completer := &ai.FakeCompleter{Responses: responses}
	previews := preview.NewBuilder(nil)

	reg, err := registry.Load(filepath.Join(root, "registry.json"), log)
	require.NoError(t, err)

	engine := extraction.New(reg, fingerprint.New(nil), extraction.NewGenerator(completer),
		csvRunner{}, previews, extraction.Config{MaxRetries: 2}, log)

	mem := loader.NewMemory()
	p := New(
		gatekeeper.New(gatekeeper.DefaultConfig(), log),
		classifier.New(completer, previews, log),
		engine,
		mem,
		nil,
		nil,
		Config{ConfidenceThreshold: 0.7, ProcessedRoot: filepath.Join(root, "processed")},
		log,
	)
	return &fixture{pipeline: p, store: mem, completer: completer, reg: reg, root: root}
}

func (f *fixture) writeInbox(t *testing.T, broker, name, content string) string {
	t.Helper()
	dir := filepath.Join(f.root, "inbox", broker)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEndToEndHoldingsCSV(t *testing.T) {
	// responses: classification for file 1, code generation for file 1,
	// classification for file 2 — and no further generation
	f := newFixture(t, []string{holdingsVerdict, parserResponse, holdingsVerdict})
	ctx := context.Background()

	first := f.writeInbox(t, "BGSAXO", "positions1.csv",
		"Name,Qty,Price\nAAPL,10,150.00\nMSFT,5,300.00\nVWCE,25,95.20\n")

	res := f.pipeline.ProcessDocument(ctx, first)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, "BGSAXO", res.Broker)

	holdings, err := f.store.Holdings(ctx, "BGSAXO")
	require.NoError(t, err)
	assert.Len(t, holdings, 3)
	assert.Equal(t, 2, f.completer.Calls(), "one classify + one generate")

	// identical header, different rows: fingerprint collides, parser
	// cache hits, no new generation call
	second := f.writeInbox(t, "BGSAXO", "positions2.csv",
		"Name,Qty,Price\nTSLA,2,200.00\n")

	res = f.pipeline.ProcessDocument(ctx, second)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 3, f.completer.Calls(), "classify only, zero generation calls")
}

func TestProcessedFileIsMoved(t *testing.T) {
	f := newFixture(t, []string{holdingsVerdict, parserResponse})
	path := f.writeInbox(t, "BGSAXO", "positions.csv", "Name,Qty,Price\nAAPL,10,150\n")

	res := f.pipeline.ProcessDocument(context.Background(), path)

	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.NoFileExists(t, path)

	entries, err := os.ReadDir(filepath.Join(f.root, "processed", "BGSAXO"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_positions.csv"))
}

func TestRejectedDocument(t *testing.T) {
	f := newFixture(t, nil)

	res := f.pipeline.ProcessDocument(context.Background(), "/nope/missing.csv")

	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, "file_not_found", res.Reason)
	assert.Zero(t, f.completer.Calls())
}

func TestTrashDocument(t *testing.T) {
	f := newFixture(t, []string{`{"category": "TRASH", "confidence": 0.9, "reasoning": "marketing letter"}`})
	path := f.writeInbox(t, "BGSAXO", "promo.csv", "Dear customer,\nGreat news!\n")

	res := f.pipeline.ProcessDocument(context.Background(), path)

	assert.Equal(t, OutcomeTrash, res.Outcome)
	assert.Equal(t, "marketing letter", res.Reason)
}

func TestCachedParserOverridesEmptyPreviewTrash(t *testing.T) {
	// A legacy .xls yields no preview, so the classifier votes TRASH
	// without ever consulting the completer. A parser cached for the
	// exact fingerprint must still get the document extracted.
	f := newFixture(t, nil)
	path := f.writeInbox(t, "BGSAXO", "positions.xls",
		"Name,Qty,Price\nAAPL,10,150.00\nMSFT,5,300.00\n")

	ctx := context.Background()
	fp := fingerprint.New(nil).Fingerprint(ctx, path)
	require.NotEqual(t, fingerprint.Unknown, fp)
	require.NoError(t, f.reg.Save("BGSAXO", "HOLDINGS", fp,
		"def parse(path):\n    return read_rows(path)\n"))

	res := f.pipeline.ProcessDocument(ctx, path)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 2, res.Records)
	assert.Zero(t, f.completer.Calls())

	holdings, err := f.store.Holdings(ctx, "BGSAXO")
	require.NoError(t, err)
	assert.Len(t, holdings, 2)
}

func TestEmptyPreviewWithoutCachedParserStaysTrash(t *testing.T) {
	f := newFixture(t, nil)
	path := f.writeInbox(t, "BGSAXO", "mystery.xls", "Name,Qty,Price\nAAPL,10,150.00\n")

	res := f.pipeline.ProcessDocument(context.Background(), path)

	assert.Equal(t, OutcomeTrash, res.Outcome)
	assert.Zero(t, f.completer.Calls())
}

func TestLowConfidenceDocument(t *testing.T) {
	f := newFixture(t, []string{`{"category": "HOLDINGS", "confidence": 0.4, "reasoning": "unsure"}`})
	path := f.writeInbox(t, "BGSAXO", "odd.csv", "a,b\n1,2\n")

	res := f.pipeline.ProcessDocument(context.Background(), path)

	assert.Equal(t, OutcomeLowConfidence, res.Outcome)
	assert.Contains(t, res.Reason, "below threshold")
}

func TestExtractionFailureDoesNotAbortBatch(t *testing.T) {
	// generation always yields prose, so extraction exhausts its retries
	f := newFixture(t, []string{
		holdingsVerdict, "cannot write code", "still no code", "sorry",
		holdingsVerdict, parserResponse,
	})
	bad := f.writeInbox(t, "BGSAXO", "bad.csv", "Weird,Header\nrow\n")
	good := f.writeInbox(t, "OTHER", "good.csv", "Name,Qty,Price\nAAPL,1,2\n")

	summary := f.pipeline.Run(context.Background(), []string{bad, good})

	assert.Equal(t, 1, summary.ByOutcome[OutcomeExtractionFailed])
	assert.Equal(t, 1, summary.ByOutcome[OutcomeSuccess])
	require.Len(t, summary.Results, 2)
	assert.Equal(t, OutcomeExtractionFailed, summary.Results[0].Outcome)
	assert.Equal(t, OutcomeSuccess, summary.Results[1].Outcome)
}
