package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Source returns the spot price of an asset in USD.
type Source interface {
	Name() string
	SpotPrice(ctx context.Context, asset Asset) (float64, error)
}

// ErrNotListed is returned by a source that has no market for the asset.
var ErrNotListed = errors.New("asset not listed on source")

// HTTPStatusError carries a non-200 response.
type HTTPStatusError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d: %s", e.Source, e.StatusCode, e.Body)
}

// Temporary reports whether a retry may succeed.
func (e *HTTPStatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// getJSON fetches url and decodes the body into out. Client errors and
// undecodable bodies are wrapped as permanent so the feed does not retry
// them.
func getJSON(ctx context.Context, client *http.Client, source, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%s: create request: %w", source, err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: execute request: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &HTTPStatusError{Source: source, StatusCode: resp.StatusCode, Body: string(body)}
		if statusErr.Temporary() {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("%s: decode response: %w", source, err))
	}
	return nil
}
