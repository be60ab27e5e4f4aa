package extraction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/S3ph1r/warroom-ingest/internal/fingerprint"
	"github.com/S3ph1r/warroom-ingest/internal/logging"
	"github.com/S3ph1r/warroom-ingest/internal/models"
	"github.com/S3ph1r/warroom-ingest/internal/parsererror"
	"github.com/S3ph1r/warroom-ingest/internal/preview"
	"github.com/S3ph1r/warroom-ingest/internal/registry"
)

// Config carries the extraction engine settings.
type Config struct {
	// MaxRetries bounds the self-correction loop: the engine performs at
	// most MaxRetries+1 generate+execute attempts per document.
	MaxRetries int
}

// Stats counts engine outcomes, exposed read-only for observability.
type Stats struct {
	Extractions int
	CacheHits   int
	Generations int
	Failures    int
}

// Engine is the orchestration core: cache lookup → sandboxed execution →
// generation → validation → bounded self-correction → registry write-back.
type Engine struct {
	reg      *registry.Registry
	fps      *fingerprint.Fingerprinter
	gen      *Generator
	runner   Runner
	previews *preview.Builder
	cfg      Config
	log      logging.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates an Engine. A nil Generator degrades the engine to
// registry-only mode: cache hits still work, misses fail cleanly.
func New(reg *registry.Registry, fps *fingerprint.Fingerprinter, gen *Generator,
	runner Runner, previews *preview.Builder, cfg Config, log logging.Logger) *Engine {
	if log == nil {
		log = logging.GetLogger()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Engine{
		reg:      reg,
		fps:      fps,
		gen:      gen,
		runner:   runner,
		previews: previews,
		cfg:      cfg,
		log:      log,
	}
}

// Extract produces the raw records for an admitted, classified document.
// Exhausting the self-correction budget is a terminal, non-fatal outcome:
// the returned ExtractionError marks the document failed and the pipeline
// moves on.
func (e *Engine) Extract(ctx context.Context, doc *models.Document) ([]Record, error) {
	e.bump(func(s *Stats) { s.Extractions++ })

	fp := doc.Fingerprint
	if fp == "" {
		fp = e.fps.Fingerprint(ctx, doc.Path)
		doc.Fingerprint = fp
	}
	docType := string(doc.Category)
	flog := e.log.WithFields(
		logging.Field{Key: logging.FieldFile, Value: doc.Path},
		logging.Field{Key: logging.FieldBroker, Value: doc.Broker},
		logging.Field{Key: logging.FieldDocType, Value: docType},
		logging.Field{Key: logging.FieldFingerprint, Value: fp},
	)

	if code, ok := e.reg.Get(doc.Broker, docType, fp); ok {
		records, err := e.execute(ctx, code, doc)
		if err == nil {
			e.bump(func(s *Stats) { s.CacheHits++ })
			if rerr := e.reg.RecordSuccess(doc.Broker, docType, fp); rerr != nil {
				flog.WithError(rerr).Warn("cannot persist registry success")
			}
			flog.Debug("cached parser hit",
				logging.Field{Key: logging.FieldCount, Value: len(records)})
			return records, nil
		}
		if rerr := e.reg.RecordError(doc.Broker, docType, fp, err.Error()); rerr != nil {
			flog.WithError(rerr).Warn("cannot persist registry error")
		}
		flog.WithError(err).Warn("cached parser failed, regenerating")
	}

	if e.gen == nil {
		e.bump(func(s *Stats) { s.Failures++ })
		return nil, &parsererror.ExtractionError{
			FilePath: doc.Path,
			Attempts: 0,
			LastErr:  fmt.Errorf("no code generation capability configured"),
		}
	}

	req := GenRequest{
		Broker:  doc.Broker,
		DocType: doc.Category,
		Path:    doc.Path,
		Sample:  e.previews.Build(ctx, doc.Path),
	}

	var lastCode string
	var lastErr error
	attempts := e.cfg.MaxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		var code string
		var err error
		if attempt == 1 {
			code, err = e.gen.Generate(ctx, req)
		} else {
			code, err = e.gen.Repair(ctx, req, lastCode, lastErr.Error())
		}
		e.bump(func(s *Stats) { s.Generations++ })
		if err != nil {
			lastErr = err
			flog.WithError(err).Warn("code generation failed",
				logging.Field{Key: logging.FieldAttempt, Value: attempt})
			continue
		}
		lastCode = code

		records, err := e.execute(ctx, code, doc)
		if err != nil {
			lastErr = err
			flog.WithError(err).Warn("generated parser failed",
				logging.Field{Key: logging.FieldAttempt, Value: attempt})
			continue
		}

		if serr := e.reg.Save(doc.Broker, docType, fp, code); serr != nil {
			flog.WithError(serr).Warn("cannot persist generated parser")
		} else if rerr := e.reg.RecordSuccess(doc.Broker, docType, fp); rerr != nil {
			flog.WithError(rerr).Warn("cannot persist registry success")
		}
		flog.Info("extraction succeeded",
			logging.Field{Key: logging.FieldAttempt, Value: attempt},
			logging.Field{Key: logging.FieldCount, Value: len(records)})
		return records, nil
	}

	e.bump(func(s *Stats) { s.Failures++ })
	return nil, &parsererror.ExtractionError{
		FilePath: doc.Path,
		Attempts: attempts,
		LastErr:  lastErr,
	}
}

// CachedCategory reports whether a parser is already cached for this
// document's layout under either category, filling in doc.Fingerprint as a
// side effect. Binary spreadsheets yield empty previews the classifier
// cannot judge; a cached parser for the exact fingerprint is stronger
// evidence than the resulting TRASH verdict.
func (e *Engine) CachedCategory(ctx context.Context, doc *models.Document) (models.Category, bool) {
	if doc.Fingerprint == "" {
		doc.Fingerprint = e.fps.Fingerprint(ctx, doc.Path)
	}
	if doc.Fingerprint == fingerprint.Unknown {
		return "", false
	}
	for _, cat := range []models.Category{models.CategoryHoldings, models.CategoryTransactions} {
		if _, ok := e.reg.Get(doc.Broker, string(cat), doc.Fingerprint); ok {
			return cat, true
		}
	}
	return "", false
}

// execute runs parser code in the sandbox and applies the schema sanity
// checks that decide whether the attempt counts as a success.
func (e *Engine) execute(ctx context.Context, code string, doc *models.Document) ([]Record, error) {
	records, err := e.runner.Run(ctx, code, doc.Path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parser returned zero records")
	}
	if doc.Category == models.CategoryTransactions && allTickersUnknown(records) {
		return nil, fmt.Errorf("all %d records have unknown tickers", len(records))
	}
	return records, nil
}

// allTickersUnknown flags the degenerate parse where every ticker is empty
// or the sentinel value.
func allTickersUnknown(records []Record) bool {
	for _, r := range records {
		t := strings.ToLower(strings.TrimSpace(r.Ticker.String()))
		if t != "" && t != "unknown" {
			return false
		}
	}
	return true
}

func (e *Engine) bump(fn func(*Stats)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.stats)
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
