package extraction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/S3ph1r/warroom-ingest/internal/currencyutils"
	"github.com/S3ph1r/warroom-ingest/internal/dateutils"
	"github.com/S3ph1r/warroom-ingest/internal/models"
	"github.com/S3ph1r/warroom-ingest/internal/normalize"
)

// ToHoldings converts raw records into canonical holdings for one broker.
// Unparseable numerics degrade to zero; a zero quantity is a data-quality
// signal, not a reason to drop the row.
func ToHoldings(records []Record, broker string) []models.Holding {
	out := make([]models.Holding, 0, len(records))
	for _, r := range records {
		h := models.Holding{
			Ticker:     normalize.Ticker(r.Ticker.String()),
			Name:       r.Name.String(),
			Quantity:   currencyutils.ParseAmountOrZero(r.Quantity.String()),
			Price:      currencyutils.ParseAmountOrZero(r.Price.String()),
			Currency:   currency(r),
			AssetClass: normalize.AssetClass(r.AssetClass.String()),
			Broker:     broker,
		}
		if normalize.ValidISIN(r.ISIN.String()) {
			h.ISIN = normalize.Ticker(r.ISIN.String())
		}
		out = append(out, h)
	}
	return out
}

// ToTransactions converts raw records into canonical transactions. The
// quantity sign is normalized to the operation convention: BUY/DEPOSIT/
// DIVIDEND positive, SELL/WITHDRAW/FEE negative. Records with unparseable
// dates take the fallback date.
func ToTransactions(records []Record, broker, sourceDoc string, fallbackDate time.Time) []models.Transaction {
	out := make([]models.Transaction, 0, len(records))
	for _, r := range records {
		op := normalize.Operation(r.Operation.String())
		tx := models.Transaction{
			Date:      dateutils.ParseDateOr(r.Date.String(), fallbackDate),
			Broker:    broker,
			Ticker:    normalize.Ticker(r.Ticker.String()),
			Operation: op,
			Quantity:  normalizeSign(currencyutils.ParseAmountOrZero(r.Quantity.String()), op),
			Price:     currencyutils.ParseAmountOrZero(r.Price.String()),
			Amount:    currencyutils.ParseAmountOrZero(r.Amount.String()),
			Currency:  currency(r),
			SourceDoc: sourceDoc,
			Status:    models.StatusVerified,
		}
		if normalize.ValidISIN(r.ISIN.String()) {
			tx.ISIN = normalize.Ticker(r.ISIN.String())
		}
		out = append(out, tx)
	}
	return out
}

// normalizeSign flips the quantity when the source data's sign convention
// disagrees with the operation label.
func normalizeSign(qty decimal.Decimal, op models.Operation) decimal.Decimal {
	switch op {
	case models.OpBuy, models.OpDeposit, models.OpDividend:
		if qty.IsNegative() {
			return qty.Neg()
		}
	case models.OpSell, models.OpWithdraw, models.OpFee:
		if qty.IsPositive() {
			return qty.Neg()
		}
	}
	return qty
}

func currency(r Record) string {
	c := normalize.Ticker(r.Currency.String())
	if c == "" {
		return "EUR"
	}
	return c
}
