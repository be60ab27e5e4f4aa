// Package extraction orchestrates the parser cache, code generation,
// sandboxed execution and the bounded self-correction loop.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/S3ph1r/warroom-ingest/internal/parsererror"
)

// Flex is a JSON value that may arrive as a string, a number, a bool or
// null; generated parsers are not consistent about numeric typing.
type Flex string

func (f *Flex) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = Flex(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = Flex(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flex(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("unsupported JSON value: %s", data)
}

func (f Flex) String() string { return string(f) }

// Record is one raw extracted record as emitted by a generated parser,
// before normalization into a Holding or Transaction.
type Record struct {
	Date       Flex `json:"date"`
	Operation  Flex `json:"operation"`
	Ticker     Flex `json:"ticker"`
	ISIN       Flex `json:"isin"`
	Name       Flex `json:"name"`
	Quantity   Flex `json:"quantity"`
	Price      Flex `json:"price"`
	Amount     Flex `json:"amount"`
	Currency   Flex `json:"currency"`
	AssetClass Flex `json:"asset_class"`
}

// Runner executes generated parser code against a document and returns the
// raw records it emits.
type Runner interface {
	Run(ctx context.Context, code, docPath string) ([]Record, error)
}

// SandboxConfig carries the sandbox execution settings.
type SandboxConfig struct {
	// Interpreter is the Python binary. Defaults to python3.
	Interpreter string

	// Timeout is the wall-clock cap per execution.
	Timeout time.Duration
}

// SandboxRunner executes generated code in an isolated interpreter
// subprocess: -I (isolated, no user site, no env influence) -S (no site
// imports), scrubbed environment, hard wall-clock timeout. Generated code
// is adversarial-by-construction and never runs in-process.
type SandboxRunner struct {
	cfg SandboxConfig
}

// NewSandboxRunner creates a SandboxRunner, applying defaults for zero
// config values.
func NewSandboxRunner(cfg SandboxConfig) *SandboxRunner {
	if cfg.Interpreter == "" {
		cfg.Interpreter = "python3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SandboxRunner{cfg: cfg}
}

// harness is appended to the generated code: it calls parse() on the
// document path and dumps the records as JSON on stdout. The subprocess
// boundary is the contract; nothing else crosses it.
const harness = `

if __name__ == "__main__":
    import json as _json
    import sys as _sys
    _records = parse(_sys.argv[1])
    if _records is None:
        _records = []
    _json.dump(list(_records), _sys.stdout, default=str)
`

func (r *SandboxRunner) Run(ctx context.Context, code, docPath string) ([]Record, error) {
	dir, err := os.MkdirTemp("", "warroom-sandbox-")
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox dir: %w", err)
	}
	defer os.RemoveAll(dir)

	script := filepath.Join(dir, "parser.py")
	if err := os.WriteFile(script, []byte(code+harness), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write sandbox script: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.cfg.Interpreter, "-I", "-S", script, docPath)
	cmd.Dir = dir
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "LC_ALL=C.UTF-8"}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &parsererror.SandboxError{
				FilePath: docPath,
				Err:      fmt.Errorf("execution timed out after %s", r.cfg.Timeout),
			}
		}
		return nil, &parsererror.SandboxError{
			FilePath: docPath,
			Stderr:   truncate(stderr.String(), 4000),
			Err:      err,
		}
	}

	var records []Record
	if err := json.Unmarshal(stdout.Bytes(), &records); err != nil {
		return nil, &parsererror.SandboxError{
			FilePath: docPath,
			Stderr:   truncate(stdout.String(), 500),
			Err:      fmt.Errorf("parser output is not a JSON record list: %w", err),
		}
	}
	return records, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
