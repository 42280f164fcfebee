// Package app wires configuration, logging, the license gate, the PnL engine
// and the price feed for the command-line tools.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedge/internal/config"
	"github.com/rovshanmuradov/lp-hedge/internal/export"
	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
	"github.com/rovshanmuradov/lp-hedge/internal/license"
	"github.com/rovshanmuradov/lp-hedge/internal/logger"
	"github.com/rovshanmuradov/lp-hedge/internal/metrics"
	"github.com/rovshanmuradov/lp-hedge/internal/pricefeed"
)

// Options selects how the application is assembled.
type Options struct {
	ConfigPath string
	// LogBuffer routes all logging into the buffer (terminal UI).
	LogBuffer *logger.LogBuffer
	// Logger, when set, is used as is.
	Logger *zap.Logger
	// Validator overrides the keygen.sh validator.
	Validator license.Validator
	// SkipLicense disables the license gate (one-shot CLI runs).
	SkipLicense bool
}

// App bundles the long-lived collaborators.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Engine   *hedge.Engine
	Feed     *pricefeed.Feed
	Assets   *pricefeed.Registry
	Exporter *export.CurveExporter
	Metrics  *metrics.Collector

	shutdown *ShutdownHandler
}

// New loads the configuration and assembles the application. Close must be
// called when done.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := newLogger(cfg, opts)
	if err != nil {
		return nil, err
	}
	shutdown := NewShutdownHandler(log, 0)
	shutdown.AddFunc("logger", func() error {
		_ = log.Sync()
		return closeLog()
	})

	a, err := assemble(ctx, cfg, log, opts, shutdown)
	if err != nil {
		_ = shutdown.Shutdown(context.Background())
		return nil, err
	}
	return a, nil
}

func newLogger(cfg *config.Config, opts Options) (*zap.Logger, func() error, error) {
	noop := func() error { return nil }
	switch {
	case opts.Logger != nil:
		return opts.Logger, noop, nil
	case opts.LogBuffer != nil:
		log, err := logger.CreateTUILoggerWithBuffer(cfg.Log.Debug, opts.LogBuffer)
		return log, noop, err
	default:
		return logger.New(logger.Options{
			Debug:   cfg.Log.Debug,
			File:    cfg.Log.File,
			Console: os.Stderr,
			Rotation: logger.Rotation{
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAgeDays: cfg.Log.MaxAgeDays,
				Compress:   cfg.Log.Compress,
			},
		})
	}
}

func assemble(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options, shutdown *ShutdownHandler) (*App, error) {
	if !opts.SkipLicense {
		settings := license.Settings{
			Key:          cfg.License.Key,
			AccountID:    cfg.License.AccountID,
			ProductID:    cfg.License.ProductID,
			ProductToken: cfg.License.ProductToken,
		}
		if err := license.Check(ctx, settings, opts.Validator, log); err != nil {
			return nil, fmt.Errorf("license: %w", err)
		}
	}

	hc, err := cfg.HedgeConfig()
	if err != nil {
		return nil, err
	}
	engine, err := hedge.NewEngine(hc)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	settings := cfg.FeedSettings()
	settings.Options.Observer = collector

	feed, closeFeed, err := pricefeed.Open(ctx, log, settings)
	if err != nil {
		return nil, fmt.Errorf("open price feed: %w", err)
	}
	shutdown.AddFunc("pricefeed", closeFeed)

	log.Info("Calculator ready",
		zap.String("break_even_weight", hc.BreakEvenWeight.String()),
		zap.String("tie_break", hc.TieBreak.String()),
		zap.String("partition", hc.Partition.String()),
		zap.Strings("sources", feed.Sources()))

	return &App{
		Config:   cfg,
		Logger:   log,
		Engine:   engine,
		Feed:     feed,
		Assets:   cfg.AssetRegistry(),
		Exporter: export.NewCurveExporter(log),
		Metrics:  collector,
		shutdown: shutdown,
	}, nil
}

// Curve sweeps the configured range around p's bounds.
func (a *App) Curve(ctx context.Context, p hedge.PositionParameters) (*hedge.Curve, error) {
	b, err := a.Engine.Bounds(p)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	curve, err := a.Engine.Sweep(ctx, p, a.Config.SweepRange(b), a.Config.Sweep.Workers)
	if err != nil {
		return nil, err
	}
	a.Metrics.RecordSweep(len(curve.Samples), time.Since(start))
	return curve, nil
}

// Close releases every resource opened by New.
func (a *App) Close(ctx context.Context) error {
	return a.shutdown.Shutdown(ctx)
}
