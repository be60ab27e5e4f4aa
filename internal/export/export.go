// Package export writes canonical records to CSV, the output format of the
// reconcile command.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/S3ph1r/warroom-ingest/internal/models"
)

// txRow is the CSV projection of a Transaction with an explicit date
// column.
type txRow struct {
	Date      string `csv:"date"`
	Broker    string `csv:"broker"`
	Ticker    string `csv:"ticker"`
	ISIN      string `csv:"isin"`
	Operation string `csv:"operation"`
	Quantity  string `csv:"quantity"`
	Price     string `csv:"price"`
	Amount    string `csv:"amount"`
	Currency  string `csv:"currency"`
	SourceDoc string `csv:"source_doc"`
	Status    string `csv:"status"`
}

// WriteTransactions writes the transaction list to a CSV file, creating
// parent directories as needed.
func WriteTransactions(path string, txs []models.Transaction) error {
	rows := make([]txRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, txRow{
			Date:      t.Date.Format("2006-01-02"),
			Broker:    t.Broker,
			Ticker:    t.Ticker,
			ISIN:      t.ISIN,
			Operation: string(t.Operation),
			Quantity:  t.Quantity.String(),
			Price:     t.Price.String(),
			Amount:    t.Amount.String(),
			Currency:  t.Currency,
			SourceDoc: t.SourceDoc,
			Status:    string(t.Status),
		})
	}
	return writeCSV(path, &rows)
}

// holdingRow is the CSV projection of a Holding.
type holdingRow struct {
	Broker     string `csv:"broker"`
	Ticker     string `csv:"ticker"`
	ISIN       string `csv:"isin"`
	Name       string `csv:"name"`
	Quantity   string `csv:"quantity"`
	Price      string `csv:"price"`
	Currency   string `csv:"currency"`
	AssetClass string `csv:"asset_class"`
}

// WriteHoldings writes the holdings snapshot to a CSV file.
func WriteHoldings(path string, holdings []models.Holding) error {
	rows := make([]holdingRow, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, holdingRow{
			Broker:     h.Broker,
			Ticker:     h.Ticker,
			ISIN:       h.ISIN,
			Name:       h.Name,
			Quantity:   h.Quantity.String(),
			Price:      h.Price.String(),
			Currency:   h.Currency,
			AssetClass: string(h.AssetClass),
		})
	}
	return writeCSV(path, &rows)
}

func writeCSV(path string, rows interface{}) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(f))
	if err := gocsv.MarshalCSV(rows, writer); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
