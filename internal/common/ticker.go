package common

import (
	"strings"
)

// Ticker is a parsed security symbol.
// Display form is the bare code ("AAPL"); the EODHD form is CODE.EXCHANGE ("AAPL.US").
type Ticker struct {
	Code     string
	Exchange string // EODHD exchange suffix, e.g. "US", "AU", "INDX"
	Raw      string
}

// ExchangeToSuffix maps venue names to EODHD exchange suffixes.
var ExchangeToSuffix = map[string]string{
	"ASX":    "AU",
	"NYSE":   "US",
	"NASDAQ": "US",
	"AMEX":   "US",
	"LSE":    "LSE",
	"TSX":    "TO",
	"XETRA":  "XETRA",
	"KRX":    "KO",
}

// knownSuffixes are EODHD suffixes accepted in CODE.SUFFIX input.
var knownSuffixes = map[string]bool{
	"US": true, "AU": true, "LSE": true, "TO": true, "XETRA": true,
	"KO": true, "KQ": true, "HK": true, "PA": true, "INDX": true,
}

// ParseTicker parses user input into a Ticker.
// Supported forms:
//   - "aapl" -> AAPL on defaultExchange
//   - "NASDAQ:AAPL" -> AAPL on US
//   - "BHP.AU" -> BHP on AU
//   - "^TNX" -> TNX on INDX (index notation)
func ParseTicker(input, defaultExchange string) Ticker {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Ticker{}
	}
	s := strings.ToUpper(raw)
	if defaultExchange == "" {
		defaultExchange = "US"
	}

	if strings.HasPrefix(s, "^") {
		return Ticker{Code: s[1:], Exchange: "INDX", Raw: raw}
	}

	if idx := strings.Index(s, ":"); idx > 0 {
		venue := s[:idx]
		suffix, ok := ExchangeToSuffix[venue]
		if !ok {
			suffix = venue
		}
		return Ticker{Code: s[idx+1:], Exchange: suffix, Raw: raw}
	}

	// LastIndex since codes can contain dots (BRK.B.US)
	if idx := strings.LastIndex(s, "."); idx > 0 && idx < len(s)-1 {
		if knownSuffixes[s[idx+1:]] {
			return Ticker{Code: s[:idx], Exchange: s[idx+1:], Raw: raw}
		}
	}

	return Ticker{Code: s, Exchange: strings.ToUpper(defaultExchange), Raw: raw}
}

// EODHDSymbol returns the CODE.EXCHANGE form used by the EODHD API.
func (t Ticker) EODHDSymbol() string {
	if t.Code == "" {
		return ""
	}
	if t.Exchange == "" {
		return t.Code + ".US"
	}
	return t.Code + "." + t.Exchange
}

// String returns the display code.
func (t Ticker) String() string {
	return t.Code
}
