package loader

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3ph1r/warroom-ingest/internal/logging"
	"github.com/S3ph1r/warroom-ingest/internal/models"
)

func sampleHoldings() []models.Holding {
	return []models.Holding{
		{Ticker: "AAPL", ISIN: "US0378331005", Name: "Apple", Quantity: decimal.NewFromInt(10),
			Price: decimal.RequireFromString("150.5"), Currency: "USD", AssetClass: models.AssetStock, Broker: "BGSAXO"},
		{Ticker: "VWCE", Quantity: decimal.NewFromInt(25),
			Price: decimal.RequireFromString("95.2"), Currency: "EUR", AssetClass: models.AssetETF, Broker: "BGSAXO"},
	}
}

func sampleTransactions() []models.Transaction {
	return []models.Transaction{
		{Date: time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC), Broker: "BGSAXO", Ticker: "AAPL",
			Operation: models.OpBuy, Quantity: decimal.NewFromInt(10),
			Price: decimal.RequireFromString("150.5"), Amount: decimal.RequireFromString("1505"),
			Currency: "USD", SourceDoc: "tx.csv", Status: models.StatusVerified},
	}
}

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "warroom.db"), logging.NewMockLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteHoldingsRoundTrip(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	n, err := s.LoadHoldings(ctx, "BGSAXO", sampleHoldings(), "positions.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.Holdings(ctx, "BGSAXO")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Ticker)
	assert.True(t, decimal.RequireFromString("150.5").Equal(got[0].Price))
	assert.Equal(t, models.AssetStock, got[0].AssetClass)
}

func TestSQLiteHoldingsReplacePerBroker(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	_, err := s.LoadHoldings(ctx, "BGSAXO", sampleHoldings(), "old.csv")
	require.NoError(t, err)

	newer := []models.Holding{{Ticker: "MSFT", Quantity: decimal.NewFromInt(3),
		Price: decimal.NewFromInt(300), Currency: "USD", AssetClass: models.AssetStock}}
	_, err = s.LoadHoldings(ctx, "BGSAXO", newer, "new.csv")
	require.NoError(t, err)

	got, err := s.Holdings(ctx, "BGSAXO")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "MSFT", got[0].Ticker)
}

func TestSQLiteTransactionsReloadIsIdempotent(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	_, err := s.LoadTransactions(ctx, "BGSAXO", sampleTransactions(), "tx.csv")
	require.NoError(t, err)
	_, err = s.LoadTransactions(ctx, "BGSAXO", sampleTransactions(), "tx.csv")
	require.NoError(t, err)

	got, err := s.Transactions(ctx, "BGSAXO")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, models.OpBuy, got[0].Operation)
	assert.Equal(t, "2023-05-10", got[0].Date.Format("2006-01-02"))
}

func TestSQLiteBrokers(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	_, err := s.LoadHoldings(ctx, "BGSAXO", sampleHoldings(), "a.csv")
	require.NoError(t, err)
	_, err = s.LoadTransactions(ctx, "TRADE_REPUBLIC", sampleTransactions(), "b.pdf")
	require.NoError(t, err)

	brokers, err := s.Brokers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BGSAXO", "TRADE_REPUBLIC"}, brokers)
}

func TestSQLiteImportLog(t *testing.T) {
	s := openTestDB(t)
	require.NoError(t, s.LogImport(context.Background(), "BGSAXO", "positions.csv", 2, 0))
	require.NoError(t, s.LogImport(context.Background(), "BGSAXO", "tx.csv", 0, 14))
}

func TestMemoryLoader(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	n, err := m.LoadHoldings(ctx, "BGSAXO", sampleHoldings(), "a.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = m.LoadTransactions(ctx, "BGSAXO", sampleTransactions(), "tx.csv")
	require.NoError(t, err)
	_, err = m.LoadTransactions(ctx, "BGSAXO", sampleTransactions(), "tx.csv")
	require.NoError(t, err)

	txs, err := m.Transactions(ctx, "BGSAXO")
	require.NoError(t, err)
	assert.Len(t, txs, 1, "same source file must not duplicate")

	require.NoError(t, m.LogImport(ctx, "BGSAXO", "a.csv", 2, 0))
	assert.Len(t, m.Imports, 1)

	brokers, err := m.Brokers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BGSAXO"}, brokers)
}
