package loader

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/S3ph1r/warroom-ingest/internal/logging"
	"github.com/S3ph1r/warroom-ingest/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const dateLayout = "2006-01-02T15:04:05Z07:00"

// SQLite is the production Loader, backed by a single database file.
type SQLite struct {
	db  *sql.DB
	log logging.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(path string, log logging.Logger) (*SQLite, error) {
	if log == nil {
		log = logging.GetLogger()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLite{db: db, log: log}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// LoadHoldings replaces the broker's snapshot: holdings are point-in-time
// data and the newest export supersedes the previous one entirely.
func (s *SQLite) LoadHoldings(ctx context.Context, broker string, holdings []models.Holding, sourceFile string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM holdings WHERE broker = ?", broker); err != nil {
		return 0, fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	now := time.Now().UTC().Format(dateLayout)
	for _, h := range holdings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO holdings (broker, ticker, isin, name, quantity, price, currency, asset_class, source_file, loaded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			broker, h.Ticker, h.ISIN, h.Name, h.Quantity.String(), h.Price.String(),
			h.Currency, string(h.AssetClass), sourceFile, now)
		if err != nil {
			return 0, fmt.Errorf("failed to insert holding %s: %w", h.Ticker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit holdings: %w", err)
	}
	return len(holdings), nil
}

// LoadTransactions stores the rows, first removing anything previously
// loaded from the same source file so re-runs do not duplicate.
func (s *SQLite) LoadTransactions(ctx context.Context, broker string, txs []models.Transaction, sourceFile string) (int, error) {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx,
		"DELETE FROM transactions WHERE broker = ? AND source_doc = ?", broker, sourceFile); err != nil {
		return 0, fmt.Errorf("failed to clear previous load: %w", err)
	}

	now := time.Now().UTC().Format(dateLayout)
	for _, t := range txs {
		_, err := dbtx.ExecContext(ctx, `
			INSERT INTO transactions (broker, ticker, isin, operation, quantity, price, amount, currency, tx_date, source_doc, status, loaded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			broker, t.Ticker, t.ISIN, string(t.Operation), t.Quantity.String(),
			t.Price.String(), t.Amount.String(), t.Currency,
			t.Date.UTC().Format(dateLayout), sourceFile, string(t.Status), now)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction: %w", err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return len(txs), nil
}

// LogImport writes one audit row.
func (s *SQLite) LogImport(ctx context.Context, broker, filename string, holdings, transactions int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_log (id, broker, filename, holdings_count, transactions_count, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), broker, filename, holdings, transactions,
		time.Now().UTC().Format(dateLayout))
	if err != nil {
		return fmt.Errorf("failed to write import log: %w", err)
	}
	return nil
}

func (s *SQLite) Holdings(ctx context.Context, broker string) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, isin, name, quantity, price, currency, asset_class
		FROM holdings WHERE broker = ? ORDER BY ticker`, broker)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var out []models.Holding
	for rows.Next() {
		var h models.Holding
		var qty, price, class string
		if err := rows.Scan(&h.Ticker, &h.ISIN, &h.Name, &qty, &price, &h.Currency, &class); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.Quantity = parseStored(qty)
		h.Price = parseStored(price)
		h.AssetClass = models.AssetClass(class)
		h.Broker = broker
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *SQLite) Transactions(ctx context.Context, broker string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, isin, operation, quantity, price, amount, currency, tx_date, source_doc, status
		FROM transactions WHERE broker = ? ORDER BY tx_date`, broker)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var qty, price, amount, txDate, op, status string
		if err := rows.Scan(&t.Ticker, &t.ISIN, &op, &qty, &price, &amount, &t.Currency, &txDate, &t.SourceDoc, &status); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Broker = broker
		t.Operation = models.Operation(op)
		t.Status = models.TxStatus(status)
		t.Quantity = parseStored(qty)
		t.Price = parseStored(price)
		t.Amount = parseStored(amount)
		if parsed, err := time.Parse(dateLayout, txDate); err == nil {
			t.Date = parsed
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) Brokers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT broker FROM holdings
		UNION SELECT broker FROM transactions
		ORDER BY broker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query brokers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("failed to scan broker: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func parseStored(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
