// Package loader persists normalized records. The pipeline talks to the
// Loader interface; production uses the SQLite store, tests the in-memory
// one.
package loader

import (
	"context"
	"sync"

	"github.com/S3ph1r/warroom-ingest/internal/models"
)

// Loader persists canonical records and serves them back for
// reconciliation. Re-loading the same source file must not duplicate rows.
type Loader interface {
	// LoadHoldings replaces the broker's holdings snapshot and returns
	// the number of stored rows.
	LoadHoldings(ctx context.Context, broker string, holdings []models.Holding, sourceFile string) (int, error)

	// LoadTransactions stores the transactions, replacing any previous
	// rows from the same source file, and returns the stored count.
	LoadTransactions(ctx context.Context, broker string, txs []models.Transaction, sourceFile string) (int, error)

	// LogImport records one audit-log row for an ingested file.
	LogImport(ctx context.Context, broker, filename string, holdings, transactions int) error

	// Holdings returns the broker's current snapshot.
	Holdings(ctx context.Context, broker string) ([]models.Holding, error)

	// Transactions returns the broker's full history.
	Transactions(ctx context.Context, broker string) ([]models.Transaction, error)

	// Brokers lists every broker with stored data.
	Brokers(ctx context.Context) ([]string, error)
}

// Memory is an in-memory Loader for tests and dry runs.
type Memory struct {
	mu           sync.Mutex
	holdings     map[string][]models.Holding
	transactions map[string]map[string][]models.Transaction // broker → source → rows
	Imports      []ImportRecord
}

// ImportRecord is one audit entry captured by the in-memory loader.
type ImportRecord struct {
	Broker       string
	Filename     string
	Holdings     int
	Transactions int
}

// NewMemory creates an empty in-memory loader.
func NewMemory() *Memory {
	return &Memory{
		holdings:     map[string][]models.Holding{},
		transactions: map[string]map[string][]models.Transaction{},
	}
}

func (m *Memory) LoadHoldings(_ context.Context, broker string, holdings []models.Holding, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings[broker] = append([]models.Holding(nil), holdings...)
	return len(holdings), nil
}

func (m *Memory) LoadTransactions(_ context.Context, broker string, txs []models.Transaction, sourceFile string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transactions[broker] == nil {
		m.transactions[broker] = map[string][]models.Transaction{}
	}
	m.transactions[broker][sourceFile] = append([]models.Transaction(nil), txs...)
	return len(txs), nil
}

func (m *Memory) LogImport(_ context.Context, broker, filename string, holdings, transactions int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Imports = append(m.Imports, ImportRecord{
		Broker:       broker,
		Filename:     filename,
		Holdings:     holdings,
		Transactions: transactions,
	})
	return nil
}

func (m *Memory) Holdings(_ context.Context, broker string) ([]models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Holding(nil), m.holdings[broker]...), nil
}

func (m *Memory) Transactions(_ context.Context, broker string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, rows := range m.transactions[broker] {
		out = append(out, rows...)
	}
	return out, nil
}

func (m *Memory) Brokers(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for b := range m.holdings {
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	for b := range m.transactions {
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out, nil
}
