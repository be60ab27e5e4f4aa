package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/S3ph1r/warroom-ingest/internal/models"
)

func TestOperation(t *testing.T) {
	tests := []struct {
		input    string
		expected models.Operation
	}{
		{"BUY", models.OpBuy},
		{"Acquisto titoli", models.OpBuy},
		{"Kauf", models.OpBuy},
		{"Savings Plan Execution", models.OpBuy},
		{"Vendita", models.OpSell},
		{"Verkauf", models.OpSell},
		{"Verkauf von Wertpapieren", models.OpSell},
		{"Wertpapierkauf", models.OpBuy},
		{"Versamento", models.OpDeposit},
		{"Einzahlung", models.OpDeposit},
		{"Prelievo", models.OpWithdraw},
		{"Dividendo", models.OpDividend},
		{"Cash Dividend", models.OpDividend},
		{"Commissione di negoziazione", models.OpFee},
		{"Interessi attivi", models.OpInterest},
		{"Trasferimento titoli", models.OpTransfer},
		{"Reverse Split", models.OpReverseSplit},
		{"RECONCILIATION", models.OpReconciliation},
		{"boh", models.OpOther},
		{"", models.OpOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Operation(tt.input))
		})
	}
}

func TestAssetClass(t *testing.T) {
	tests := []struct {
		input    string
		expected models.AssetClass
	}{
		{"ETF", models.AssetETF},
		{"Azioni ordinarie", models.AssetStock},
		{"Aktie", models.AssetStock},
		{"Obbligazione", models.AssetBond},
		{"Fondo comune", models.AssetFund},
		{"Crypto", models.AssetCrypto},
		{"Liquidità", models.AssetCash},
		{"misc", models.AssetOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, AssetClass(tt.input))
		})
	}
}

func TestTicker(t *testing.T) {
	assert.Equal(t, "AAPL", Ticker(" aapl "))
	assert.Equal(t, "VWCE", Ticker("VWCE"))
}

func TestValidISIN(t *testing.T) {
	assert.True(t, ValidISIN("US0378331005"))
	assert.True(t, ValidISIN("ie00b4l5y983"))
	assert.False(t, ValidISIN("AAPL"))
	assert.False(t, ValidISIN("US037833100"))
	assert.False(t, ValidISIN("1234567890AB"))
}
