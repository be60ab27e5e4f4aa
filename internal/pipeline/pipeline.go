// Package pipeline orchestrates the per-document flow: gatekeeper →
// classifier → extraction → loader, with the filesystem side effects and
// the per-run summary. One document's failure never aborts the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/S3ph1r/warroom-ingest/internal/blockparser"
	"github.com/S3ph1r/warroom-ingest/internal/classifier"
	"github.com/S3ph1r/warroom-ingest/internal/extraction"
	"github.com/S3ph1r/warroom-ingest/internal/gatekeeper"
	"github.com/S3ph1r/warroom-ingest/internal/loader"
	"github.com/S3ph1r/warroom-ingest/internal/logging"
	"github.com/S3ph1r/warroom-ingest/internal/models"
	"github.com/S3ph1r/warroom-ingest/internal/normalize"
	"github.com/S3ph1r/warroom-ingest/internal/preview"
	"github.com/S3ph1r/warroom-ingest/internal/store"
)

// Outcome is the terminal state of one document.
type Outcome string

const (
	OutcomeRejected         Outcome = "rejected"
	OutcomeTrash            Outcome = "trash"
	OutcomeLowConfidence    Outcome = "low_confidence"
	OutcomeExtractionFailed Outcome = "extraction_failed"
	OutcomeSuccess          Outcome = "success"
)

// DocumentResult is the per-document outcome with its human-readable
// reason.
type DocumentResult struct {
	Path    string
	Broker  string
	Outcome Outcome
	Reason  string
	Records int
}

// Summary aggregates a run.
type Summary struct {
	Results    []DocumentResult
	ByOutcome  map[Outcome]int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Config carries the orchestrator policy.
type Config struct {
	// ConfidenceThreshold gates extraction after classification.
	ConfidenceThreshold float64

	// ProcessedRoot receives successfully ingested files, under a broker
	// subfolder with a timestamp-prefixed name.
	ProcessedRoot string

	// RulesDir holds per-broker block-parser rule sets ({BROKER}.json).
	// Documents with a matching rule set bypass code generation.
	RulesDir string

	// FallbackDate anchors transactions whose date cannot be parsed.
	FallbackDate time.Time
}

// Pipeline wires the stages together.
type Pipeline struct {
	gate   *gatekeeper.Gatekeeper
	class  *classifier.Classifier
	engine *extraction.Engine
	store  loader.Loader
	hints  *store.HintStore
	pdf    preview.PDFExtractor
	cfg    Config
	log    logging.Logger
}

// New creates a Pipeline. hints and pdf may be nil; the corresponding
// enrichment steps are skipped.
func New(gate *gatekeeper.Gatekeeper, class *classifier.Classifier, engine *extraction.Engine,
	ldr loader.Loader, hints *store.HintStore, pdf preview.PDFExtractor,
	cfg Config, log logging.Logger) *Pipeline {
	if log == nil {
		log = logging.GetLogger()
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.7
	}
	if cfg.FallbackDate.IsZero() {
		cfg.FallbackDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Pipeline{
		gate:   gate,
		class:  class,
		engine: engine,
		store:  ldr,
		hints:  hints,
		pdf:    pdf,
		cfg:    cfg,
		log:    log,
	}
}

// Run processes every file and returns the aggregate summary.
func (p *Pipeline) Run(ctx context.Context, files []string) Summary {
	summary := Summary{
		ByOutcome: map[Outcome]int{},
		StartedAt: time.Now(),
	}
	for _, file := range files {
		res := p.ProcessDocument(ctx, file)
		summary.Results = append(summary.Results, res)
		summary.ByOutcome[res.Outcome]++
	}
	summary.FinishedAt = time.Now()

	p.log.Info("run complete",
		logging.Field{Key: logging.FieldCount, Value: len(files)},
		logging.Field{Key: "success", Value: summary.ByOutcome[OutcomeSuccess]},
		logging.Field{Key: "rejected", Value: summary.ByOutcome[OutcomeRejected]},
		logging.Field{Key: "failed", Value: summary.ByOutcome[OutcomeExtractionFailed]})
	return summary
}

// ProcessDocument runs one file end to end.
func (p *Pipeline) ProcessDocument(ctx context.Context, path string) DocumentResult {
	admission := p.gate.ProcessFile(path)
	if !admission.Accepted {
		return DocumentResult{Path: path, Outcome: OutcomeRejected, Reason: admission.Reason}
	}

	doc := &models.Document{
		Path:      path,
		Extension: strings.ToLower(filepath.Ext(path)),
		Broker:    admission.Broker,
	}

	verdict := p.class.Classify(ctx, doc)
	if verdict.Category == models.CategoryTrash {
		// A parser cached for this exact layout outranks the TRASH verdict:
		// binary spreadsheets without a readable preview would otherwise
		// never reach their cached parser.
		cat, cached := p.engine.CachedCategory(ctx, doc)
		if !cached {
			return DocumentResult{Path: path, Broker: doc.Broker, Outcome: OutcomeTrash, Reason: verdict.Reasoning}
		}
		doc.Category = cat
		p.log.Info("cached parser overrides trash verdict",
			logging.Field{Key: logging.FieldFile, Value: path},
			logging.Field{Key: logging.FieldFingerprint, Value: doc.Fingerprint})
	} else {
		if !verdict.Valid(p.cfg.ConfidenceThreshold) {
			return DocumentResult{
				Path: path, Broker: doc.Broker, Outcome: OutcomeLowConfidence,
				Reason: fmt.Sprintf("confidence %.2f below threshold %.2f", verdict.Confidence, p.cfg.ConfidenceThreshold),
			}
		}
		doc.Category = verdict.Category
	}

	records, err := p.extract(ctx, doc)
	if err != nil {
		return DocumentResult{Path: path, Broker: doc.Broker, Outcome: OutcomeExtractionFailed, Reason: err.Error()}
	}

	count, err := p.load(ctx, doc, records)
	if err != nil {
		return DocumentResult{Path: path, Broker: doc.Broker, Outcome: OutcomeExtractionFailed, Reason: err.Error()}
	}

	if err := p.moveToProcessed(doc); err != nil {
		p.log.WithError(err).Warn("cannot move processed file",
			logging.Field{Key: logging.FieldFile, Value: path})
	}

	return DocumentResult{
		Path: path, Broker: doc.Broker, Outcome: OutcomeSuccess,
		Reason: fmt.Sprintf("%d %s records loaded", count, strings.ToLower(string(doc.Category))),
		Records: count,
	}
}

// extract prefers a deterministic block-parser rule set when one exists
// for the broker; otherwise the generation engine takes over.
func (p *Pipeline) extract(ctx context.Context, doc *models.Document) ([]extraction.Record, error) {
	if records, ok := p.extractWithRules(ctx, doc); ok {
		return records, nil
	}
	return p.engine.Extract(ctx, doc)
}

func (p *Pipeline) extractWithRules(ctx context.Context, doc *models.Document) ([]extraction.Record, bool) {
	if p.cfg.RulesDir == "" || p.pdf == nil || doc.Extension != ".pdf" {
		return nil, false
	}
	rulesPath := filepath.Join(p.cfg.RulesDir, doc.Broker+".json")
	rules, err := blockparser.LoadRules(rulesPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.log.WithError(err).Warn("unusable rule set",
				logging.Field{Key: logging.FieldFile, Value: rulesPath})
		}
		return nil, false
	}

	text, err := p.pdf.ExtractText(ctx, doc.Path, 0)
	if err != nil {
		p.log.WithError(err).Warn("rule-based extraction needs PDF text",
			logging.Field{Key: logging.FieldFile, Value: doc.Path})
		return nil, false
	}

	parser := blockparser.New(rules, p.log)
	blocks := parser.Parse(text)
	if len(blocks) == 0 {
		return nil, false
	}

	p.log.Info("rule-based extraction",
		logging.Field{Key: logging.FieldBroker, Value: doc.Broker},
		logging.Field{Key: logging.FieldCount, Value: len(blocks)})
	return blocksToRecords(blocks), true
}

// blocksToRecords maps block-parser output onto raw extraction records
// using the shared canonical field names.
func blocksToRecords(blocks []blockparser.Record) []extraction.Record {
	out := make([]extraction.Record, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, extraction.Record{
			Date:      extraction.Flex(b.Date),
			Operation: extraction.Flex(b.Field("operation")),
			Ticker:    extraction.Flex(b.Field("ticker")),
			ISIN:      extraction.Flex(b.Field("isin")),
			Name:      extraction.Flex(b.Field("name")),
			Quantity:  extraction.Flex(b.Field("qty")),
			Price:     extraction.Flex(b.Field("price")),
			Amount:    extraction.Flex(b.Field("amount")),
			Currency:  extraction.Flex(b.Field("currency")),
		})
	}
	return out
}

func (p *Pipeline) load(ctx context.Context, doc *models.Document, records []extraction.Record) (int, error) {
	source := filepath.Base(doc.Path)

	switch doc.Category {
	case models.CategoryHoldings:
		holdings := extraction.ToHoldings(records, doc.Broker)
		p.backfillHoldingTickers(holdings)
		n, err := p.store.LoadHoldings(ctx, doc.Broker, holdings, source)
		if err != nil {
			return 0, fmt.Errorf("failed to load holdings: %w", err)
		}
		if err := p.store.LogImport(ctx, doc.Broker, source, n, 0); err != nil {
			p.log.WithError(err).Warn("cannot write import log")
		}
		return n, nil

	case models.CategoryTransactions:
		txs := extraction.ToTransactions(records, doc.Broker, source, p.cfg.FallbackDate)
		p.backfillTransactionTickers(txs, records)
		n, err := p.store.LoadTransactions(ctx, doc.Broker, txs, source)
		if err != nil {
			return 0, fmt.Errorf("failed to load transactions: %w", err)
		}
		if err := p.store.LogImport(ctx, doc.Broker, source, 0, n); err != nil {
			p.log.WithError(err).Warn("cannot write import log")
		}
		return n, nil
	}
	return 0, fmt.Errorf("unexpected document category %q", doc.Category)
}

// backfillHoldingTickers resolves missing tickers from the hint table when
// the record only carries a product name.
func (p *Pipeline) backfillHoldingTickers(holdings []models.Holding) {
	if p.hints == nil {
		return
	}
	for i := range holdings {
		if holdings[i].Ticker != "" || holdings[i].Name == "" {
			continue
		}
		if ticker, ok := p.hints.Lookup(holdings[i].Name); ok {
			holdings[i].Ticker = normalize.Ticker(ticker)
		}
	}
}

func (p *Pipeline) backfillTransactionTickers(txs []models.Transaction, records []extraction.Record) {
	if p.hints == nil {
		return
	}
	for i := range txs {
		if txs[i].Ticker != "" || i >= len(records) {
			continue
		}
		name := records[i].Name.String()
		if name == "" {
			continue
		}
		if ticker, ok := p.hints.Lookup(name); ok {
			txs[i].Ticker = normalize.Ticker(ticker)
		}
	}
}

// moveToProcessed relocates an ingested file to
// processed/{broker}/{timestamp}_{name}. The timestamp prefix avoids
// collisions across repeated exports with the same name.
func (p *Pipeline) moveToProcessed(doc *models.Document) error {
	if p.cfg.ProcessedRoot == "" {
		return nil
	}
	dir := filepath.Join(p.cfg.ProcessedRoot, doc.Broker)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create processed directory: %w", err)
	}
	dest := filepath.Join(dir, time.Now().Format("20060102T150405")+"_"+filepath.Base(doc.Path))
	if err := os.Rename(doc.Path, dest); err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}
	return nil
}
