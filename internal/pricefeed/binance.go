package pricefeed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const DefaultBinanceURL = "https://api.binance.com"

// BinanceSource reads the last trade price from the Binance ticker endpoint.
type BinanceSource struct {
	baseURL string
	client  *http.Client
}

// NewBinanceSource builds a source against baseURL (DefaultBinanceURL when empty).
func NewBinanceSource(baseURL string, timeout time.Duration) *BinanceSource {
	if baseURL == "" {
		baseURL = DefaultBinanceURL
	}
	return &BinanceSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

func (s *BinanceSource) Name() string { return "binance" }

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// SpotPrice implements Source.
func (s *BinanceSource) SpotPrice(ctx context.Context, asset Asset) (float64, error) {
	if asset.BinanceSymbol == "" {
		return 0, backoff.Permanent(fmt.Errorf("binance: %s: %w", asset.Symbol, ErrNotListed))
	}
	u := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", s.baseURL, url.QueryEscape(asset.BinanceSymbol))

	var ticker binanceTicker
	if err := getJSON(ctx, s.client, s.Name(), u, &ticker); err != nil {
		return 0, err
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("binance: parse price %q: %w", ticker.Price, err))
	}
	return price, nil
}
