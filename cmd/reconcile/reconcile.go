// Package reconcile implements the per-broker reconciliation command: it
// compares the stored holdings snapshot against the transaction history,
// persists the synthesized corrections and exports the corrected history.
package reconcile

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/S3ph1r/warroom-ingest/cmd/root"
	"github.com/S3ph1r/warroom-ingest/internal/dateutils"
	"github.com/S3ph1r/warroom-ingest/internal/export"
	"github.com/S3ph1r/warroom-ingest/internal/loader"
	"github.com/S3ph1r/warroom-ingest/internal/logging"
	"github.com/S3ph1r/warroom-ingest/internal/models"
	"github.com/S3ph1r/warroom-ingest/internal/reconcile"
)

var (
	brokerFlag string
	outputDir  string
)

// Cmd is the reconcile command.
var Cmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile transaction histories against holdings snapshots",
	Long: `For each broker (or one broker with --broker), compute the net position
implied by the transaction history, compare it against the holdings
snapshot, persist synthetic RECONCILIATION entries for any mismatch and
export the corrected history as CSV.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := root.Cfg, root.Log

		db, err := loader.OpenSQLite(cfg.Paths.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		brokers := []string{brokerFlag}
		if brokerFlag == "" {
			if brokers, err = db.Brokers(ctx); err != nil {
				return err
			}
		}
		if len(brokers) == 0 {
			cmd.Println("no brokers with stored data")
			return nil
		}

		epsilon, err := decimal.NewFromString(cfg.Reconcile.Epsilon)
		if err != nil {
			return fmt.Errorf("invalid reconcile epsilon %q: %w", cfg.Reconcile.Epsilon, err)
		}
		fallback, err := dateutils.ParseDate(cfg.Reconcile.FallbackDate)
		if err != nil {
			return fmt.Errorf("invalid reconcile fallback date %q: %w", cfg.Reconcile.FallbackDate, err)
		}
		engine := reconcile.New(reconcile.Config{Epsilon: epsilon, FallbackDate: fallback}, log)

		// Reconciliation is pure per broker, so brokers run in parallel;
		// database writes are serialized below.
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, broker := range brokers {
			g.Go(func() error {
				holdings, err := db.Holdings(gctx, broker)
				if err != nil {
					return err
				}
				history, err := db.Transactions(gctx, broker)
				if err != nil {
					return err
				}

				corrected := engine.Reconcile(broker, holdings, history)
				synthetic := onlySynthetic(corrected)

				mu.Lock()
				defer mu.Unlock()
				if len(synthetic) > 0 {
					if _, err := db.LoadTransactions(gctx, broker, synthetic, "reconciliation"); err != nil {
						return err
					}
				}
				if outputDir != "" {
					out := filepath.Join(outputDir, strings.ToLower(broker)+"_corrected.csv")
					if err := export.WriteTransactions(out, corrected); err != nil {
						return err
					}
				}
				log.Info("broker reconciled",
					logging.Field{Key: logging.FieldBroker, Value: broker},
					logging.Field{Key: "synthetic", Value: len(synthetic)})
				cmd.Printf("%s: %d transactions, %d corrections\n",
					broker, len(history), len(synthetic))
				return nil
			})
		}
		return g.Wait()
	},
}

func onlySynthetic(txs []models.Transaction) []models.Transaction {
	var out []models.Transaction
	for _, t := range txs {
		if t.Status == models.StatusSynthetic {
			out = append(out, t)
		}
	}
	return out
}

// Init registers the command flags.
func Init() {
	Cmd.Flags().StringVarP(&brokerFlag, "broker", "b", "", "reconcile a single broker")
	Cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for corrected-history CSV exports")
}
