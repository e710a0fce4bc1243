package controller

import "strings"

// NormalizeTicker uppercases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// NormalizeCryptoPair rewrites a crypto symbol into the BASE_QUOTE form the
// exchange client expects, defaulting the quote to USDT.
// Examples:
//
//	BTCUSD   -> BTC_USDT
//	ETHUSDT  -> ETH_USDT
//	BTC_USDT -> BTC_USDT
//	sol      -> SOL_USDT
func NormalizeCryptoPair(symbol string) string {
	s := NormalizeTicker(symbol)
	if s == "" {
		return s
	}
	if strings.Contains(s, "_") {
		return s
	}
	if strings.HasSuffix(s, "USDT") {
		return strings.TrimSuffix(s, "USDT") + "_USDT"
	}
	if strings.HasSuffix(s, "USD") {
		return strings.TrimSuffix(s, "USD") + "_USDT"
	}
	return s + "_USDT"
}
