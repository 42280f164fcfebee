package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedge/internal/app"
	"github.com/rovshanmuradov/lp-hedge/internal/export"
	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
	"github.com/rovshanmuradov/lp-hedge/internal/pricefeed"
)

// ServiceProvider gives screens access to the calculator services.
type ServiceProvider interface {
	Assets() []string
	AssetDefaults(symbol string) (strike, premium float64, ok bool)
	EngineConfig() hedge.Config
	Bounds(p hedge.PositionParameters) (hedge.BoundPrices, error)
	Evaluate(p hedge.PositionParameters, price float64) (hedge.PnLSample, error)
	SpotPrice(ctx context.Context, symbol string) (pricefeed.Quote, error)
	Curve(ctx context.Context, p hedge.PositionParameters) (*hedge.Curve, error)
	Export(curve *hedge.Curve, asset string) (string, error)
	GetLogger() *zap.Logger
	GetContext() context.Context
}

// AppServiceProvider implements ServiceProvider on top of app.App.
type AppServiceProvider struct {
	app *app.App
	ctx context.Context
	log *zap.Logger
}

// NewAppServiceProvider creates a provider bound to ctx.
func NewAppServiceProvider(ctx context.Context, a *app.App) *AppServiceProvider {
	return &AppServiceProvider{
		app: a,
		ctx: ctx,
		log: a.Logger.Named("ui"),
	}
}

func (p *AppServiceProvider) Assets() []string {
	return p.app.Config.AssetSymbols()
}

func (p *AppServiceProvider) AssetDefaults(symbol string) (float64, float64, bool) {
	return p.app.Config.AssetDefaults(symbol)
}

func (p *AppServiceProvider) EngineConfig() hedge.Config {
	return p.app.Engine.Config()
}

func (p *AppServiceProvider) Bounds(params hedge.PositionParameters) (hedge.BoundPrices, error) {
	return p.app.Engine.Bounds(params)
}

func (p *AppServiceProvider) Evaluate(params hedge.PositionParameters, price float64) (hedge.PnLSample, error) {
	return p.app.Engine.EvaluateAt(params, price)
}

func (p *AppServiceProvider) SpotPrice(ctx context.Context, symbol string) (pricefeed.Quote, error) {
	asset, err := p.app.Assets.Lookup(symbol)
	if err != nil {
		return pricefeed.Quote{}, err
	}
	return p.app.Feed.SpotPrice(ctx, asset)
}

func (p *AppServiceProvider) Curve(ctx context.Context, params hedge.PositionParameters) (*hedge.Curve, error) {
	return p.app.Curve(ctx, params)
}

func (p *AppServiceProvider) Export(curve *hedge.Curve, asset string) (string, error) {
	format, err := export.ParseFormat(p.app.Config.Export.Format)
	if err != nil {
		return "", err
	}
	return p.app.Exporter.Export(curve, export.ExportOptions{
		Format:    format,
		Asset:     asset,
		OutputDir: p.app.Config.Export.Dir,
	})
}

// GetLogger returns the UI logger
func (p *AppServiceProvider) GetLogger() *zap.Logger {
	return p.log
}

// GetContext returns the application context
func (p *AppServiceProvider) GetContext() context.Context {
	return p.ctx
}

const requestTimeout = 30 * time.Second

// FetchSpotCmd looks up the spot price of asset.
func FetchSpotCmd(s ServiceProvider, asset string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(s.GetContext(), requestTimeout)
		defer cancel()
		q, err := s.SpotPrice(ctx, asset)
		return SpotMsg{Asset: asset, Quote: q, Err: err}
	}
}

// ComputeCurveCmd sweeps the PnL curve for p.
func ComputeCurveCmd(s ServiceProvider, asset string, p hedge.PositionParameters) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(s.GetContext(), requestTimeout)
		defer cancel()
		curve, err := s.Curve(ctx, p)
		if err != nil {
			s.GetLogger().Warn("Curve computation failed", zap.String("asset", asset), zap.Error(err))
		}
		return CurveMsg{Asset: asset, Curve: curve, Err: err}
	}
}

// ExportCmd writes curve to the configured export directory.
func ExportCmd(s ServiceProvider, curve *hedge.Curve, asset string) tea.Cmd {
	return func() tea.Msg {
		path, err := s.Export(curve, asset)
		return ExportedMsg{Path: path, Err: err}
	}
}
