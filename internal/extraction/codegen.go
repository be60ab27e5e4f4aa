package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/S3ph1r/warroom-ingest/internal/ai"
	"github.com/S3ph1r/warroom-ingest/internal/models"
)

const generatePrompt = `You are a senior data engineer. Write a Python parser for a financial document.

Broker: %s
Document type: %s
File path example: %s

Document sample:
---
%s
---

Requirements:
- Define exactly one function: def parse(path) -> list[dict]
- Use only the Python standard library (csv, re, json, datetime).
- Each dict uses these keys where applicable: date, operation, ticker, isin,
  name, quantity, price, amount, currency, asset_class.
- Dates as ISO strings (YYYY-MM-DD). Numbers as plain decimal strings or
  numbers, never locale-formatted.
- Skip header/footer/summary rows. Return [] if nothing can be extracted.
- The function must not print, read from network, or touch files other
  than the given path.

Respond with a single Python code block and nothing else.`

const repairPrompt = `The Python parser below failed. Fix it.

Broker: %s
Document type: %s

Failure detail:
---
%s
---

Previous code:
---
%s
---

Document sample:
---
%s
---

Return the complete corrected parser as a single Python code block, same
contract: def parse(path) -> list[dict], standard library only.`

// Generator produces and repairs extraction code through the completion
// capability.
type Generator struct {
	completer ai.Completer
}

// NewGenerator creates a Generator. Callers must pass a non-nil completer;
// the engine checks availability before constructing one.
func NewGenerator(completer ai.Completer) *Generator {
	return &Generator{completer: completer}
}

// GenRequest describes the document a parser is needed for.
type GenRequest struct {
	Broker  string
	DocType models.Category
	Path    string
	Sample  string
}

// Generate asks for fresh parser code. The response is reduced to its code
// block and validated before being returned.
func (g *Generator) Generate(ctx context.Context, req GenRequest) (string, error) {
	prompt := fmt.Sprintf(generatePrompt, req.Broker, req.DocType, req.Path, req.Sample)
	return g.roundTrip(ctx, prompt)
}

// Repair asks for a targeted fix of previously failing code.
func (g *Generator) Repair(ctx context.Context, req GenRequest, prevCode, failure string) (string, error) {
	prompt := fmt.Sprintf(repairPrompt, req.Broker, req.DocType, failure, prevCode, req.Sample)
	return g.roundTrip(ctx, prompt)
}

func (g *Generator) roundTrip(ctx context.Context, prompt string) (string, error) {
	raw, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}
	code := ExtractCode(raw)
	if err := ValidateCode(code); err != nil {
		return "", err
	}
	return code, nil
}

var codeFence = regexp.MustCompile("(?s)```(?:python)?\\s*\\n(.*?)```")

// ExtractCode pulls the parser source out of a completion response: the
// first fenced code block, falling back to treating the whole response as
// code when it already starts like Python.
func ExtractCode(raw string) string {
	if m := codeFence.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	trimmed := strings.TrimSpace(raw)
	for _, prefix := range []string{"import ", "from ", "def ", "#"} {
		if strings.HasPrefix(trimmed, prefix) {
			return trimmed
		}
	}
	return ""
}

// ValidateCode applies the syntactic gate: non-empty and carrying the
// required entry point. Deeper syntax errors surface on first sandbox run
// and consume a retry like any other failure.
func ValidateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("response contained no code")
	}
	if !strings.Contains(code, "def parse(") {
		return fmt.Errorf("generated code lacks the parse() entry point")
	}
	return nil
}
