package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3ph1r/warroom-ingest/internal/models"
)

func TestWriteTransactions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "corrected.csv")
	txs := []models.Transaction{
		{
			Date: time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC), Broker: "BGSAXO",
			Ticker: "AAPL", ISIN: "US0378331005", Operation: models.OpBuy,
			Quantity: decimal.NewFromInt(10), Price: decimal.RequireFromString("150.5"),
			Amount: decimal.RequireFromString("1505"), Currency: "USD",
			SourceDoc: "tx.csv", Status: models.StatusVerified,
		},
		{
			Date: time.Date(2023, 5, 9, 0, 0, 0, 0, time.UTC), Broker: "BGSAXO",
			Ticker: "AAPL", Operation: models.OpReconciliation,
			Quantity: decimal.NewFromInt(5), Price: decimal.Zero,
			Amount: decimal.Zero, Currency: "USD", Status: models.StatusSynthetic,
		},
	}

	require.NoError(t, WriteTransactions(path, txs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,broker,ticker,isin,operation,quantity,price,amount,currency,source_doc,status", lines[0])
	assert.Contains(t, lines[1], "2023-05-10")
	assert.Contains(t, lines[2], "RECONCILIATION")
	assert.Contains(t, lines[2], "SYNTHETIC")
}

func TestWriteHoldings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.csv")
	holdings := []models.Holding{{
		Broker: "BGSAXO", Ticker: "VWCE", Name: "Vanguard FTSE All-World",
		Quantity: decimal.NewFromInt(25), Price: decimal.RequireFromString("95.2"),
		Currency: "EUR", AssetClass: models.AssetETF,
	}}

	require.NoError(t, WriteHoldings(path, holdings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "VWCE")
	assert.Contains(t, string(data), "ETF")
}
