// Package root contains the root command for the application.
package root

import (
	"github.com/spf13/cobra"

	"github.com/S3ph1r/warroom-ingest/internal/config"
	"github.com/S3ph1r/warroom-ingest/internal/logging"
)

var (
	// Cfg is the loaded configuration, populated before any subcommand
	// runs and passed into component constructors from there.
	Cfg *config.Config

	// Log is the shared logger instance for commands.
	Log logging.Logger

	configDir string

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "warroom",
		Short: "Ingest heterogeneous broker exports into a canonical ledger.",
		Long: `warroom ingests broker/exchange export files (CSV, PDF, XLSX), classifies
them, extracts holdings and transactions through cached or generated
parsers, and reconciles the resulting history against holdings snapshots.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv(nil)
			cfg, err := config.Load(configDir)
			if err != nil {
				return err
			}
			Cfg = cfg
			Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
			logging.SetDefault(Log)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Init registers the persistent flags.
func Init() {
	Cmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", "",
		"directory containing config.yaml (default: working directory)")
}
