// Package normalize maps the free-form terminology of broker exports
// (Italian, German, English) onto the canonical enums, and validates
// instrument identifiers.
package normalize

import (
	"regexp"
	"strings"

	"github.com/S3ph1r/warroom-ingest/internal/models"
)

// operationTerms maps lower-cased source terms to canonical operations.
// Substring matching is ordered so more specific terms win.
var operationTerms = []struct {
	term string
	op   models.Operation
}{
	{"reverse split", models.OpReverseSplit},
	{"frazionamento inverso", models.OpReverseSplit},
	{"distribution", models.OpDistribution},
	{"distribuzione", models.OpDistribution},
	{"dividend", models.OpDividend},
	{"dividendo", models.OpDividend},
	{"dividende", models.OpDividend},
	{"cedola", models.OpDividend},
	{"interest", models.OpInterest},
	{"interessi", models.OpInterest},
	{"zinsen", models.OpInterest},
	{"commission", models.OpFee},
	{"commissione", models.OpFee},
	{"fee", models.OpFee},
	{"gebühr", models.OpFee},
	{"spese", models.OpFee},
	{"withdraw", models.OpWithdraw},
	{"prelievo", models.OpWithdraw},
	{"auszahlung", models.OpWithdraw},
	{"deposit", models.OpDeposit},
	{"deposito", models.OpDeposit},
	{"versamento", models.OpDeposit},
	{"einzahlung", models.OpDeposit},
	{"ricarica", models.OpDeposit},
	{"transfer", models.OpTransfer},
	{"trasferimento", models.OpTransfer},
	{"übertrag", models.OpTransfer},
	{"girata", models.OpTransfer},
	// Sell terms before buy terms: "verkauf" contains "kauf".
	{"sell", models.OpSell},
	{"sold", models.OpSell},
	{"vendita", models.OpSell},
	{"vendi", models.OpSell},
	{"verkauf", models.OpSell},
	{"buy", models.OpBuy},
	{"bought", models.OpBuy},
	{"acquisto", models.OpBuy},
	{"compra", models.OpBuy},
	{"kauf", models.OpBuy},
	{"savings plan", models.OpBuy},
	{"piano di accumulo", models.OpBuy},
}

// assetTerms maps lower-cased source terms to canonical asset classes.
var assetTerms = []struct {
	term  string
	class models.AssetClass
}{
	{"etf", models.AssetETF},
	{"etc", models.AssetETF},
	{"exchange traded", models.AssetETF},
	{"obbligazion", models.AssetBond},
	{"bond", models.AssetBond},
	{"anleihe", models.AssetBond},
	{"fondo", models.AssetFund},
	{"fund", models.AssetFund},
	{"fonds", models.AssetFund},
	{"sicav", models.AssetFund},
	{"crypto", models.AssetCrypto},
	{"cripto", models.AssetCrypto},
	{"bitcoin", models.AssetCrypto},
	{"liquidit", models.AssetCash},
	{"cash", models.AssetCash},
	{"contant", models.AssetCash},
	{"azion", models.AssetStock},
	{"stock", models.AssetStock},
	{"share", models.AssetStock},
	{"aktie", models.AssetStock},
	{"equity", models.AssetStock},
}

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{10}$`)

// Operation maps a free-form operation description onto the canonical enum.
// Unrecognized terms map to OTHER rather than erroring.
func Operation(raw string) models.Operation {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return models.OpOther
	}
	// Exact canonical names first so already-normalized data round-trips.
	switch models.Operation(strings.ToUpper(s)) {
	case models.OpBuy, models.OpSell, models.OpDeposit, models.OpWithdraw,
		models.OpDividend, models.OpFee, models.OpInterest, models.OpTransfer,
		models.OpReverseSplit, models.OpDistribution, models.OpReconciliation:
		return models.Operation(strings.ToUpper(s))
	}
	for _, e := range operationTerms {
		if strings.Contains(s, e.term) {
			return e.op
		}
	}
	return models.OpOther
}

// AssetClass maps a free-form asset description onto the canonical enum.
func AssetClass(raw string) models.AssetClass {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return models.AssetOther
	}
	for _, e := range assetTerms {
		if strings.Contains(s, e.term) {
			return e.class
		}
	}
	return models.AssetOther
}

// Ticker canonicalizes a ticker symbol: trimmed and upper-cased.
func Ticker(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidISIN reports whether s is a structurally valid ISIN (two-letter
// country code plus ten alphanumerics). The check digit is not verified;
// broker exports routinely carry ISINs that fail Luhn but identify the
// instrument fine.
func ValidISIN(s string) bool {
	return isinPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}
