// Package reconcile forces a broker's transaction history into agreement
// with its holdings snapshot by synthesizing corrective entries. The
// snapshot is the trusted source; the history gets patched, never the
// reverse.
package reconcile

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/S3ph1r/warroom-ingest/internal/logging"
	"github.com/S3ph1r/warroom-ingest/internal/models"
	"github.com/S3ph1r/warroom-ingest/internal/normalize"
)

// Config carries the reconciliation settings.
type Config struct {
	// Epsilon is the tolerance below which a target/observed difference
	// is considered round-off rather than a missing movement.
	Epsilon decimal.Decimal

	// FallbackDate anchors synthetic entries when the history is empty
	// and there is no earliest transaction to date them before.
	FallbackDate time.Time
}

// DefaultConfig returns the standard tolerance and anchor date.
func DefaultConfig() Config {
	return Config{
		Epsilon:      decimal.RequireFromString("0.0001"),
		FallbackDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Engine reconciles one broker at a time. Pure computation, safe to run
// concurrently across brokers.
type Engine struct {
	cfg Config
	log logging.Logger
}

// New creates an Engine. A nil logger falls back to the package default.
func New(cfg Config, log logging.Logger) *Engine {
	if log == nil {
		log = logging.GetLogger()
	}
	if cfg.Epsilon.IsZero() {
		cfg.Epsilon = DefaultConfig().Epsilon
	}
	if cfg.FallbackDate.IsZero() {
		cfg.FallbackDate = DefaultConfig().FallbackDate
	}
	return &Engine{cfg: cfg, log: log}
}

// positionOps are the operations that move instrument quantity. Dividends,
// fees and interest affect cash only and are excluded.
var positionOps = map[models.Operation]bool{
	models.OpBuy:      true,
	models.OpSell:     true,
	models.OpDeposit:  true,
	models.OpWithdraw: true,
	models.OpTransfer: true,
}

// Reconcile returns the original transactions plus one synthetic
// RECONCILIATION entry per ticker whose observed net disagrees with the
// holdings snapshot beyond epsilon. Originals are never mutated or removed;
// output ordering is not chronological.
func (e *Engine) Reconcile(broker string, holdings []models.Holding, transactions []models.Transaction) []models.Transaction {
	target := make(map[string]decimal.Decimal)
	isinByTicker := make(map[string]string)
	for _, h := range holdings {
		ticker := normalize.Ticker(h.Ticker)
		if ticker == "" {
			continue
		}
		target[ticker] = target[ticker].Add(h.Quantity)
		if h.ISIN != "" {
			isinByTicker[ticker] = h.ISIN
		}
	}

	observed := make(map[string]decimal.Decimal)
	var earliest time.Time
	for _, tx := range transactions {
		if !tx.Date.IsZero() && (earliest.IsZero() || tx.Date.Before(earliest)) {
			earliest = tx.Date
		}
		if !positionOps[tx.Operation] {
			continue
		}
		ticker := normalize.Ticker(tx.Ticker)
		if ticker == "" {
			continue
		}
		observed[ticker] = observed[ticker].Add(signedQuantity(tx))
	}

	// Synthetics sort before all recorded history: they stand for
	// whatever happened before it began.
	synthDate := e.cfg.FallbackDate
	if !earliest.IsZero() {
		synthDate = earliest.AddDate(0, 0, -1)
	}

	tickers := make([]string, 0, len(target))
	for ticker := range target {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	out := make([]models.Transaction, len(transactions), len(transactions)+len(tickers))
	copy(out, transactions)

	for _, ticker := range tickers {
		diff := target[ticker].Sub(observed[ticker])
		if diff.Abs().Cmp(e.cfg.Epsilon) <= 0 {
			continue
		}
		e.log.Info("position mismatch, synthesizing correction",
			logging.Field{Key: logging.FieldBroker, Value: broker},
			logging.Field{Key: "ticker", Value: ticker},
			logging.Field{Key: "diff", Value: diff.String()})
		out = append(out, models.Transaction{
			Date:      synthDate,
			Broker:    broker,
			Ticker:    ticker,
			ISIN:      isinByTicker[ticker],
			Operation: models.OpReconciliation,
			Quantity:  diff,
			Price:     decimal.Zero,
			Amount:    decimal.Zero,
			Currency:  currencyFor(ticker, holdings),
			Status:    models.StatusSynthetic,
		})
	}
	return out
}

// signedQuantity normalizes the stored sign to the operation convention so
// that summing yields the net position regardless of the source data's
// conventions.
func signedQuantity(tx models.Transaction) decimal.Decimal {
	q := tx.Quantity
	switch tx.Operation {
	case models.OpBuy, models.OpDeposit:
		if q.IsNegative() {
			return q.Neg()
		}
	case models.OpSell, models.OpWithdraw:
		if q.IsPositive() {
			return q.Neg()
		}
	}
	return q
}

func currencyFor(ticker string, holdings []models.Holding) string {
	for _, h := range holdings {
		if normalize.Ticker(h.Ticker) == ticker && h.Currency != "" {
			return h.Currency
		}
	}
	return "EUR"
}
