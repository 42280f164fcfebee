package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
	"github.com/rovshanmuradov/lp-hedge/internal/logger"
)

type stubValidator struct{ err error }

func (s stubValidator) ValidateLicense(context.Context, string) error { return s.err }

func TestNewAndCurve(t *testing.T) {
	t.Setenv("LPHEDGE_SWEEP_POINTS", "101")

	a, err := New(context.Background(), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close(context.Background())) }()

	assert.Equal(t, hedge.DefaultConfig(), a.Engine.Config())
	assert.Equal(t, []string{"binance", "kraken", "pyth"}, a.Feed.Sources())

	sol, err := a.Assets.Lookup("SOL")
	require.NoError(t, err)
	assert.Equal(t, "SOLUSD", sol.BinanceSymbol)

	curve, err := a.Curve(context.Background(), hedge.PositionParameters{StrikePrice: 120, OptionPremium: 10.79, SpotPrice: 123})
	require.NoError(t, err)
	assert.Len(t, curve.Samples, 101)
}

func TestNewWithLogBuffer(t *testing.T) {
	buf := logger.NewLogBuffer(32)
	a, err := New(context.Background(), Options{LogBuffer: buf})
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))

	logs := buf.GetRecentLogs(0)
	require.NotEmpty(t, logs)
	assert.Equal(t, "Calculator ready", logs[len(logs)-1].Message)
}

func TestNewLicenseGate(t *testing.T) {
	t.Setenv("LPHEDGE_LICENSE_KEY", "ABCD-1234-EFGH")
	t.Setenv("LPHEDGE_LICENSE_ACCOUNT_ID", "acct")

	_, err := New(context.Background(), Options{Logger: zap.NewNop(), Validator: stubValidator{err: errors.New("suspended")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suspended")

	a, err := New(context.Background(), Options{Logger: zap.NewNop(), Validator: stubValidator{}})
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))

	a, err = New(context.Background(), Options{Logger: zap.NewNop(), Validator: stubValidator{err: errors.New("suspended")}, SkipLicense: true})
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Setenv("LPHEDGE_ENGINE_TIE_BREAK", "coin_flip")
	_, err := New(context.Background(), Options{Logger: zap.NewNop()})
	assert.ErrorIs(t, err, hedge.ErrInvalidParameters)
}

func TestShutdownOrderAndErrors(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)
	var order []string
	sh.AddFunc("first", func() error { order = append(order, "first"); return nil })
	sh.AddFunc("second", func() error { order = append(order, "second"); return errors.New("boom") })
	sh.AddFunc("third", func() error { order = append(order, "third"); return nil })

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second: boom")
	assert.Equal(t, []string{"third", "second", "first"}, order)

	assert.NoError(t, sh.Shutdown(context.Background()), "services are closed once")
}

func TestShutdownTimeout(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), 20*time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	sh.AddFunc("stuck", func() error { <-release; return nil })

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stuck: shutdown timeout")
}
