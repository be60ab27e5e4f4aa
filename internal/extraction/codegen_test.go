package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3ph1r/warroom-ingest/internal/ai"
	"github.com/S3ph1r/warroom-ingest/internal/models"
)

func TestExtractCodeFencedBlock(t *testing.T) {
	raw := "Here you go:\n```python\nimport csv\n\ndef parse(path):\n    return []\n```\nHope this helps!"

	code := ExtractCode(raw)

	assert.Contains(t, code, "import csv")
	assert.Contains(t, code, "def parse(path):")
	assert.NotContains(t, code, "Hope this helps")
}

func TestExtractCodeAnonymousFence(t *testing.T) {
	raw := "```\ndef parse(path):\n    return []\n```"
	assert.Contains(t, ExtractCode(raw), "def parse(path):")
}

func TestExtractCodeBareResponse(t *testing.T) {
	raw := "import csv\n\ndef parse(path):\n    return []"
	assert.Equal(t, raw, ExtractCode(raw))
}

func TestExtractCodeProseOnly(t *testing.T) {
	assert.Empty(t, ExtractCode("I cannot write a parser for this document."))
}

func TestValidateCode(t *testing.T) {
	assert.NoError(t, ValidateCode("def parse(path):\n    return []"))
	assert.Error(t, ValidateCode(""))
	assert.Error(t, ValidateCode("def extract(path):\n    return []"))
}

func TestGenerateValidatesResponse(t *testing.T) {
	completer := &ai.FakeCompleter{Responses: []string{"no code here, sorry"}}
	g := NewGenerator(completer)

	_, err := g.Generate(context.Background(), GenRequest{Broker: "B", DocType: models.CategoryHoldings})
	assert.Error(t, err)
}

func TestGenerateTransportError(t *testing.T) {
	completer := &ai.FakeCompleter{Errs: []error{errors.New("deadline exceeded")}}
	g := NewGenerator(completer)

	_, err := g.Generate(context.Background(), GenRequest{Broker: "B", DocType: models.CategoryHoldings})
	assert.Error(t, err)
}

func TestRepairIncludesFailureAndPreviousCode(t *testing.T) {
	completer := &ai.FakeCompleter{Responses: []string{validResponse}}
	g := NewGenerator(completer)

	code, err := g.Repair(context.Background(),
		GenRequest{Broker: "B", DocType: models.CategoryTransactions},
		"def parse(path):\n    raise KeyError('Qty')",
		"KeyError: 'Qty'")

	require.NoError(t, err)
	assert.Contains(t, code, "def parse(")
	require.Len(t, completer.Prompts, 1)
	assert.Contains(t, completer.Prompts[0], "KeyError: 'Qty'")
	assert.Contains(t, completer.Prompts[0], "raise KeyError")
}
