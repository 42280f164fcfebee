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

const DefaultKrakenURL = "https://api.kraken.com"

// KrakenSource reads the last trade from Kraken's public ticker.
type KrakenSource struct {
	baseURL string
	client  *http.Client
}

// NewKrakenSource builds a source against baseURL (DefaultKrakenURL when empty).
func NewKrakenSource(baseURL string, timeout time.Duration) *KrakenSource {
	if baseURL == "" {
		baseURL = DefaultKrakenURL
	}
	return &KrakenSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

func (s *KrakenSource) Name() string { return "kraken" }

type krakenTicker struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		// c = last trade closed [price, lot volume]
		C []string `json:"c"`
	} `json:"result"`
}

// SpotPrice implements Source.
func (s *KrakenSource) SpotPrice(ctx context.Context, asset Asset) (float64, error) {
	if asset.KrakenPair == "" {
		return 0, backoff.Permanent(fmt.Errorf("kraken: %s: %w", asset.Symbol, ErrNotListed))
	}
	u := fmt.Sprintf("%s/0/public/Ticker?pair=%s", s.baseURL, url.QueryEscape(asset.KrakenPair))

	var ticker krakenTicker
	if err := getJSON(ctx, s.client, s.Name(), u, &ticker); err != nil {
		return 0, err
	}
	if len(ticker.Error) > 0 {
		return 0, backoff.Permanent(fmt.Errorf("kraken: %s", strings.Join(ticker.Error, "; ")))
	}

	key := asset.KrakenKey
	if key == "" {
		key = asset.KrakenPair
	}
	entry, ok := ticker.Result[key]
	if !ok || len(entry.C) == 0 {
		return 0, backoff.Permanent(fmt.Errorf("kraken: no ticker for %s: %w", key, ErrNotListed))
	}

	price, err := strconv.ParseFloat(entry.C[0], 64)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("kraken: parse price %q: %w", entry.C[0], err))
	}
	return price, nil
}
