// Package classifier assigns each admitted document one of the categories
// HOLDINGS, TRANSACTIONS or TRASH via a single completion round trip, and
// gates downstream processing on a confidence threshold.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/S3ph1r/warroom-ingest/internal/ai"
	"github.com/S3ph1r/warroom-ingest/internal/logging"
	"github.com/S3ph1r/warroom-ingest/internal/models"
	"github.com/S3ph1r/warroom-ingest/internal/preview"
)

const classifyPrompt = `You are a document classifier for a financial data pipeline.
Classify the document excerpt below into exactly one category:

- HOLDINGS: a snapshot of current positions (tickers/ISINs with quantities and prices)
- TRANSACTIONS: a history of dated operations (buys, sells, deposits, dividends)
- TRASH: anything else (marketing, tax letters, unreadable content, empty)

File name: %s
Broker: %s

Document excerpt:
---
%s
---

Respond with STRICT JSON only, no markdown, exactly these fields:
{"category": "HOLDINGS|TRANSACTIONS|TRASH", "confidence": 0.0, "reasoning": "one sentence"}`

// Result is the classifier's verdict for one document.
type Result struct {
	Category   models.Category `json:"category"`
	Confidence float64         `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

// Valid reports whether the document is admitted to extraction: category
// must not be TRASH and confidence must meet the threshold.
func (r Result) Valid(minConfidence float64) bool {
	return r.Category != models.CategoryTrash && r.Confidence >= minConfidence
}

// Stats counts classification outcomes.
type Stats struct {
	Classified int
	Failures   int
	ByCategory map[models.Category]int
}

// Classifier routes documents by category.
type Classifier struct {
	completer ai.Completer
	previews  *preview.Builder
	log       logging.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Classifier. A nil logger falls back to the package default.
func New(completer ai.Completer, previews *preview.Builder, log logging.Logger) *Classifier {
	if log == nil {
		log = logging.GetLogger()
	}
	return &Classifier{
		completer: completer,
		previews:  previews,
		log:       log,
		stats:     Stats{ByCategory: map[models.Category]int{}},
	}
}

// Classify builds a bounded preview of the document and asks the completion
// capability for a category. Any transport or parse failure collapses to
// TRASH with confidence 0.0: the classifier fails safe, never open.
func (c *Classifier) Classify(ctx context.Context, doc *models.Document) Result {
	res := c.classify(ctx, doc)
	c.count(res)
	return res
}

func (c *Classifier) classify(ctx context.Context, doc *models.Document) Result {
	trash := Result{Category: models.CategoryTrash, Confidence: 0.0}

	if c.completer == nil {
		trash.Reasoning = "no completion capability configured"
		return trash
	}

	excerpt := c.previews.Build(ctx, doc.Path)
	if strings.TrimSpace(excerpt) == "" {
		trash.Reasoning = "empty document preview"
		return trash
	}

	prompt := fmt.Sprintf(classifyPrompt, filepath.Base(doc.Path), doc.Broker, excerpt)
	raw, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		c.log.WithError(err).Warn("classification call failed",
			logging.Field{Key: logging.FieldFile, Value: doc.Path})
		trash.Reasoning = "completion call failed"
		return trash
	}

	res, err := parseResult(raw)
	if err != nil {
		c.log.WithError(err).Warn("unparseable classification response",
			logging.Field{Key: logging.FieldFile, Value: doc.Path})
		trash.Reasoning = "unparseable response"
		return trash
	}
	return res
}

// parseResult extracts the first {...} span from the response and decodes
// it as strict JSON with the three required fields.
func parseResult(raw string) (Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in response")
	}

	var wire struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &wire); err != nil {
		return Result{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if wire.Category == "" {
		return Result{}, fmt.Errorf("missing category field")
	}

	return Result{
		Category:   models.ParseCategory(wire.Category),
		Confidence: wire.Confidence,
		Reasoning:  wire.Reasoning,
	}, nil
}

func (c *Classifier) count(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Classified++
	c.stats.ByCategory[res.Category]++
	if res.Category == models.CategoryTrash && res.Confidence == 0 {
		c.stats.Failures++
	}
}

// Stats returns a snapshot of the classification counters.
func (c *Classifier) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := Stats{
		Classified: c.stats.Classified,
		Failures:   c.stats.Failures,
		ByCategory: make(map[models.Category]int, len(c.stats.ByCategory)),
	}
	for k, v := range c.stats.ByCategory {
		out.ByCategory[k] = v
	}
	return out
}
