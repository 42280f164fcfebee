package pricefeed

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinanceSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "SOLUSD", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, `{"symbol":"SOLUSD","price":"142.37000000"}`)
	}))
	defer srv.Close()

	price, err := NewBinanceSource(srv.URL, time.Second).SpotPrice(context.Background(), SOL)
	require.NoError(t, err)
	assert.InDelta(t, 142.37, price, 1e-9)
}

func TestBinanceSourceStatusErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusServiceUnavailable} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
		}))

		_, err := NewBinanceSource(srv.URL, time.Second).SpotPrice(context.Background(), SOL)
		srv.Close()

		var statusErr *HTTPStatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, status, statusErr.StatusCode)
		assert.Equal(t, status >= 500, statusErr.Temporary())
	}
}

func TestKrakenSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/Ticker", r.URL.Path)
		switch r.URL.Query().Get("pair") {
		case "ETHUSD":
			fmt.Fprint(w, `{"error":[],"result":{"XETHZUSD":{"c":["2451.20000","0.015"]}}}`)
		case "SOLUSD":
			fmt.Fprint(w, `{"error":[],"result":{"SOLUSD":{"c":["141.90","3.1"]}}}`)
		default:
			fmt.Fprint(w, `{"error":["EQuery:Unknown asset pair"]}`)
		}
	}))
	defer srv.Close()

	src := NewKrakenSource(srv.URL, time.Second)

	eth, err := src.SpotPrice(context.Background(), ETH)
	require.NoError(t, err)
	assert.InDelta(t, 2451.2, eth, 1e-9)

	sol, err := src.SpotPrice(context.Background(), SOL)
	require.NoError(t, err)
	assert.InDelta(t, 141.9, sol, 1e-9)

	_, err = src.SpotPrice(context.Background(), Asset{Symbol: "XYZ", KrakenPair: "XYZUSD"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown asset pair")
}

func pythAccount(status uint32, expo int32, agg int64) []byte {
	data := make([]byte, pythMinSize)
	binary.LittleEndian.PutUint32(data[0:], pythMagic)
	binary.LittleEndian.PutUint32(data[pythOffsetType:], pythAccountPrice)
	binary.LittleEndian.PutUint32(data[pythOffsetExpo:], uint32(expo))
	binary.LittleEndian.PutUint64(data[pythOffsetPrice:], uint64(agg))
	binary.LittleEndian.PutUint32(data[pythOffsetStatus:], status)
	return data
}

func TestDecodePythPrice(t *testing.T) {
	price, err := decodePythPrice(pythAccount(pythStatusTrading, -8, 14237000000))
	require.NoError(t, err)
	assert.InDelta(t, 142.37, price, 1e-9)

	_, err = decodePythPrice(pythAccount(0, -8, 14237000000))
	assert.ErrorIs(t, err, ErrPythNotTrading)

	_, err = decodePythPrice(make([]byte, 10))
	assert.Error(t, err)

	bad := pythAccount(pythStatusTrading, -8, 1)
	bad[0] = 0
	_, err = decodePythPrice(bad)
	assert.Error(t, err)

	_, err = decodePythPrice(pythAccount(pythStatusTrading, -8, -5))
	assert.Error(t, err)
}

func TestPythSourceSkipsUnlistedAsset(t *testing.T) {
	_, err := NewPythSource("http://127.0.0.1:1").SpotPrice(context.Background(), Asset{Symbol: "XYZ"})
	assert.ErrorIs(t, err, ErrNotListed)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Asset{Symbol: "jup"})

	a, err := r.Lookup("Jup")
	require.NoError(t, err)
	assert.Equal(t, "JUPUSD", a.BinanceSymbol)
	assert.Equal(t, "JUPUSD", a.KrakenKey)

	eth, err := r.Lookup("eth")
	require.NoError(t, err)
	assert.Equal(t, "XETHZUSD", eth.KrakenKey)

	_, err = r.Lookup("DOGE")
	assert.Error(t, err)
	assert.Equal(t, []string{"ETH", "JUP", "SOL"}, r.Symbols())
}

// countingServer answers with status for the first fails calls, then body.
func countingServer(fails int32, status int, body string) (*httptest.Server, *int32) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= fails {
			w.WriteHeader(status)
			return
		}
		fmt.Fprint(w, body)
	}))
	return srv, &calls
}
