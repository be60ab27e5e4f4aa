// Package schedule implements a long-running mode that triggers ingestion
// on a cron schedule.
package schedule

import (
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/S3ph1r/warroom-ingest/cmd/ingest"
	"github.com/S3ph1r/warroom-ingest/cmd/root"
	"github.com/S3ph1r/warroom-ingest/internal/logging"
)

// Cmd is the schedule command.
var Cmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run ingestion periodically on a cron schedule",
	Long: `Starts a scheduler that runs the full ingestion pipeline on the cron
expression from schedule.cron (default every six hours). Runs until
interrupted; an ingestion still in progress is never started twice.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := root.Cfg, root.Log

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var running sync.Mutex
		runOnce := func() {
			if !running.TryLock() {
				log.Warn("previous ingestion still running, skipping this tick")
				return
			}
			defer running.Unlock()
			summary, err := ingest.Run(ctx, cfg, log)
			if err != nil {
				log.WithError(err).Error("scheduled ingestion failed")
				return
			}
			log.Info("scheduled ingestion finished",
				logging.Field{Key: logging.FieldCount, Value: len(summary.Results)})
		}

		c := cron.New()
		if _, err := c.AddFunc(cfg.Schedule.Cron, runOnce); err != nil {
			return err
		}
		log.Info("scheduler started",
			logging.Field{Key: "cron", Value: cfg.Schedule.Cron})

		// One immediate pass so a fresh deployment drains the inbox without
		// waiting for the first tick.
		runOnce()

		c.Start()
		<-ctx.Done()
		log.Info("shutting down scheduler")
		<-c.Stop().Done()
		return nil
	},
}
