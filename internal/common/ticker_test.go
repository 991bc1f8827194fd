package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTicker(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		def      string
		code     string
		exchange string
		symbol   string
	}{
		{"bare lower case", "aapl", "US", "AAPL", "US", "AAPL.US"},
		{"default exchange applied", "bhp", "AU", "BHP", "AU", "BHP.AU"},
		{"empty default falls back to US", "msft", "", "MSFT", "US", "MSFT.US"},
		{"venue prefix", "ASX:CBA", "US", "CBA", "AU", "CBA.AU"},
		{"eodhd suffix", "005930.KO", "US", "005930", "KO", "005930.KO"},
		{"dotted code without suffix", "BRK.B", "US", "BRK.B", "US", "BRK.B.US"},
		{"dotted code with suffix", "BRK.B.US", "AU", "BRK.B", "US", "BRK.B.US"},
		{"index caret", "^TNX", "US", "TNX", "INDX", "TNX.INDX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTicker(tt.input, tt.def)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.exchange, got.Exchange)
			assert.Equal(t, tt.symbol, got.EODHDSymbol())
		})
	}
}

func TestParseTicker_Empty(t *testing.T) {
	got := ParseTicker("   ", "US")
	assert.Equal(t, "", got.Code)
	assert.Equal(t, "", got.EODHDSymbol())
}
