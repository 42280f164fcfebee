// Package pricefeed supplies spot prices for the calculator from public
// exchange APIs and the Pyth oracle, with retries, fallback and caching.
package pricefeed

import (
	"fmt"
	"sort"
	"strings"
)

// Asset describes how each source names one underlying.
type Asset struct {
	Symbol        string `mapstructure:"symbol"`
	BinanceSymbol string `mapstructure:"binance_symbol"`
	KrakenPair    string `mapstructure:"kraken_pair"`
	KrakenKey     string `mapstructure:"kraken_key"`
	PythAccount   string `mapstructure:"pyth_account"`
}

var (
	SOL = Asset{
		Symbol:        "SOL",
		BinanceSymbol: "SOLUSD",
		KrakenPair:    "SOLUSD",
		KrakenKey:     "SOLUSD",
		PythAccount:   "H6ARHf6YXhGYeQfUzQNGk6rDNnLBQKrenN712K4AQJEG",
	}
	ETH = Asset{
		Symbol:        "ETH",
		BinanceSymbol: "ETHUSD",
		KrakenPair:    "ETHUSD",
		KrakenKey:     "XETHZUSD",
		PythAccount:   "JBu1AL4obBcCMqKBBxhpWCNUt136ijcuMZLFvTP7iWdB",
	}
)

// Registry resolves assets by symbol.
type Registry struct {
	assets map[string]Asset
}

// NewRegistry starts from SOL and ETH and adds extra, which may override
// the built-ins.
func NewRegistry(extra ...Asset) *Registry {
	r := &Registry{assets: map[string]Asset{
		SOL.Symbol: SOL,
		ETH.Symbol: ETH,
	}}
	for _, a := range extra {
		r.Add(a)
	}
	return r
}

// Add registers a, filling the exchange names from the symbol when empty.
func (r *Registry) Add(a Asset) {
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	if a.Symbol == "" {
		return
	}
	if a.BinanceSymbol == "" {
		a.BinanceSymbol = a.Symbol + "USD"
	}
	if a.KrakenPair == "" {
		a.KrakenPair = a.Symbol + "USD"
	}
	if a.KrakenKey == "" {
		a.KrakenKey = a.KrakenPair
	}
	r.assets[a.Symbol] = a
}

// Lookup finds an asset, case-insensitively.
func (r *Registry) Lookup(symbol string) (Asset, error) {
	a, ok := r.assets[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Asset{}, fmt.Errorf("unknown asset %q", symbol)
	}
	return a, nil
}

// Symbols lists the registered symbols in order.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.assets))
	for s := range r.assets {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
