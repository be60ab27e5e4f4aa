// Package ingest implements the batch ingestion command: scan the inbox
// and run every file through the pipeline.
package ingest

import (
	"context"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/S3ph1r/warroom-ingest/cmd/root"
	"github.com/S3ph1r/warroom-ingest/internal/ai"
	"github.com/S3ph1r/warroom-ingest/internal/classifier"
	"github.com/S3ph1r/warroom-ingest/internal/config"
	"github.com/S3ph1r/warroom-ingest/internal/dateutils"
	"github.com/S3ph1r/warroom-ingest/internal/extraction"
	"github.com/S3ph1r/warroom-ingest/internal/fingerprint"
	"github.com/S3ph1r/warroom-ingest/internal/gatekeeper"
	"github.com/S3ph1r/warroom-ingest/internal/loader"
	"github.com/S3ph1r/warroom-ingest/internal/logging"
	"github.com/S3ph1r/warroom-ingest/internal/pipeline"
	"github.com/S3ph1r/warroom-ingest/internal/preview"
	"github.com/S3ph1r/warroom-ingest/internal/registry"
	"github.com/S3ph1r/warroom-ingest/internal/scanner"
	"github.com/S3ph1r/warroom-ingest/internal/store"
)

// Cmd is the ingest command.
var Cmd = &cobra.Command{
	Use:   "ingest",
	Short: "Scan the inbox and process every file through the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := Run(cmd.Context(), root.Cfg, root.Log)
		if err != nil {
			return err
		}
		printSummary(cmd, summary)
		return nil
	},
}

// Run executes one full ingestion pass. Shared with the schedule command.
func Run(ctx context.Context, cfg *config.Config, log logging.Logger) (pipeline.Summary, error) {
	files, err := scanner.Scan(cfg.Paths.Inbox, log)
	if err != nil {
		return pipeline.Summary{}, err
	}

	pdf := preview.NewPopplerExtractor()
	previews := preview.NewBuilder(pdf)

	reg, err := registry.Load(cfg.Paths.Registry, log)
	if err != nil {
		return pipeline.Summary{}, err
	}

	// A missing API key degrades gracefully: classification fails safe
	// to TRASH and the engine runs registry-only.
	var completer ai.Completer
	var gen *extraction.Generator
	if gemini, err := ai.NewGeminiCompleter(ctx, ai.Config{
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout(),
	}, log); err != nil {
		log.WithError(err).Warn("completion provider unavailable, running degraded")
	} else {
		defer gemini.Close()
		completer = gemini
		gen = extraction.NewGenerator(gemini)
	}

	engine := extraction.New(reg, fingerprint.New(pdf), gen,
		extraction.NewSandboxRunner(extraction.SandboxConfig{
			Interpreter: cfg.Sandbox.Interpreter,
			Timeout:     cfg.Sandbox.Timeout(),
		}),
		previews,
		extraction.Config{MaxRetries: cfg.Pipeline.MaxRetries},
		log)

	db, err := loader.OpenSQLite(cfg.Paths.Database, log)
	if err != nil {
		return pipeline.Summary{}, err
	}
	defer db.Close()

	hints, err := store.LoadHints(cfg.Paths.Hints)
	if err != nil {
		log.WithError(err).Warn("ticker hints unavailable")
		hints = nil
	}

	gateCfg := gatekeeper.DefaultConfig()
	gateCfg.DiscardRoot = cfg.Paths.Discarded

	p := pipeline.New(
		gatekeeper.New(gateCfg, log),
		classifier.New(completer, previews, log),
		engine,
		db,
		hints,
		pdf,
		pipeline.Config{
			ConfidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
			ProcessedRoot:       cfg.Paths.Processed,
			RulesDir:            cfg.Paths.RulesDir,
			FallbackDate:        dateutils.ParseDateOr(cfg.Reconcile.FallbackDate, time.Time{}),
		},
		log)

	summary := p.Run(ctx, files)

	if hints != nil {
		if err := hints.Save(); err != nil {
			log.WithError(err).Warn("cannot save ticker hints")
		}
	}
	return summary, nil
}

func printSummary(cmd *cobra.Command, summary pipeline.Summary) {
	cmd.Printf("Processed %d files in %s\n",
		len(summary.Results), summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))

	outcomes := make([]string, 0, len(summary.ByOutcome))
	for outcome := range summary.ByOutcome {
		outcomes = append(outcomes, string(outcome))
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		cmd.Printf("  %-18s %d\n", outcome, summary.ByOutcome[pipeline.Outcome(outcome)])
	}

	for _, res := range summary.Results {
		if res.Outcome == pipeline.OutcomeSuccess {
			continue
		}
		cmd.Printf("  %s: %s (%s)\n", res.Outcome, res.Path, res.Reason)
	}
}
