package domain

import (
	"sort"
	"strings"
)

// Asset names the instrument charted and how each provider refers to it.
type Asset struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	CoinGeckoID string `json:"coingecko_id"`
	YahooTicker string `json:"yahoo_ticker"`
}

// Gold is tracked through PAX Gold for 24/7 coverage and COMEX gold futures
// as the fallback, which has market-hours gaps.
var Gold = Asset{
	Symbol:      "XAU",
	Name:        "Gold",
	CoinGeckoID: "pax-gold",
	YahooTicker: "GC=F",
}

// Symbols returns the provider symbols requested for the asset.
func (a Asset) Symbols() []string {
	return []string{a.CoinGeckoID, a.YahooTicker}
}

// RequestKey identifies a (timeframe, symbol set) request. Symbol order does
// not matter.
func RequestKey(tf TimeframeKey, symbols []string) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return string(tf) + "|" + strings.Join(sorted, ",")
}
