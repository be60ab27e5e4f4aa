// Package models defines the canonical record types flowing through the
// ingestion pipeline: documents, holdings and transactions.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the document type assigned by the classifier.
type Category string

const (
	CategoryHoldings     Category = "HOLDINGS"
	CategoryTransactions Category = "TRANSACTIONS"
	CategoryTrash        Category = "TRASH"
)

// ParseCategory maps a free-form string onto a Category, case-insensitively.
// Anything unrecognized collapses to TRASH.
func ParseCategory(s string) Category {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HOLDINGS":
		return CategoryHoldings
	case "TRANSACTIONS":
		return CategoryTransactions
	default:
		return CategoryTrash
	}
}

// AssetClass classifies the instrument of a holding.
type AssetClass string

const (
	AssetStock  AssetClass = "STOCK"
	AssetETF    AssetClass = "ETF"
	AssetBond   AssetClass = "BOND"
	AssetFund   AssetClass = "FUND"
	AssetCrypto AssetClass = "CRYPTO"
	AssetCash   AssetClass = "CASH"
	AssetOther  AssetClass = "OTHER"
)

// Operation is the canonical transaction operation type.
type Operation string

const (
	OpBuy            Operation = "BUY"
	OpSell           Operation = "SELL"
	OpDeposit        Operation = "DEPOSIT"
	OpWithdraw       Operation = "WITHDRAW"
	OpDividend       Operation = "DIVIDEND"
	OpFee            Operation = "FEE"
	OpInterest       Operation = "INTEREST"
	OpTransfer       Operation = "TRANSFER"
	OpReverseSplit   Operation = "REVERSE_SPLIT"
	OpDistribution   Operation = "DISTRIBUTION"
	OpReconciliation Operation = "RECONCILIATION"
	OpOther          Operation = "OTHER"
)

// TxStatus distinguishes extracted transactions from reconciliation
// synthetics.
type TxStatus string

const (
	StatusVerified  TxStatus = "VERIFIED"
	StatusSynthetic TxStatus = "SYNTHETIC"
)

// Document is a single ingestible file. Immutable after creation; the
// pipeline fills Broker, Category and Fingerprint as stages complete.
type Document struct {
	Path        string
	Extension   string
	MIME        string
	Broker      string
	Category    Category
	Fingerprint string
}

// Holding is a point-in-time snapshot position in one instrument.
type Holding struct {
	Ticker     string          `csv:"ticker" json:"ticker"`
	ISIN       string          `csv:"isin" json:"isin,omitempty"`
	Name       string          `csv:"name" json:"name,omitempty"`
	Quantity   decimal.Decimal `csv:"quantity" json:"quantity"`
	Price      decimal.Decimal `csv:"price" json:"price"`
	Currency   string          `csv:"currency" json:"currency"`
	AssetClass AssetClass      `csv:"asset_class" json:"asset_class"`
	Broker     string          `csv:"broker" json:"broker"`
}

// Transaction is a discrete, dated movement affecting a position or cash
// balance. Quantity is signed: BUY/DEPOSIT positive, SELL/WITHDRAW negative
// after normalization.
type Transaction struct {
	Date      time.Time       `csv:"-" json:"date"`
	Broker    string          `csv:"broker" json:"broker"`
	Ticker    string          `csv:"ticker" json:"ticker"`
	ISIN      string          `csv:"isin" json:"isin,omitempty"`
	Operation Operation       `csv:"operation" json:"operation"`
	Quantity  decimal.Decimal `csv:"quantity" json:"quantity"`
	Price     decimal.Decimal `csv:"price" json:"price"`
	Amount    decimal.Decimal `csv:"amount" json:"amount"`
	Currency  string          `csv:"currency" json:"currency"`
	SourceDoc string          `csv:"source_doc" json:"source_doc,omitempty"`
	Status    TxStatus        `csv:"status" json:"status"`
}
