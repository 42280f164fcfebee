// Command lprange prints the LP range and the hedged PnL profile of one
// position, optionally exporting the full curve.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedge/internal/app"
	"github.com/rovshanmuradov/lp-hedge/internal/export"
	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
)

// optionalFloat is a float flag that remembers whether it was given.
type optionalFloat struct {
	value float64
	set   bool
}

func (f *optionalFloat) String() string {
	if !f.set {
		return ""
	}
	return strconv.FormatFloat(f.value, 'f', -1, 64)
}

func (f *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.value, f.set = v, true
	return nil
}

func (f *optionalFloat) ptr() *float64 {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

type options struct {
	configPath string
	asset      string
	strike     optionalFloat
	premium    optionalFloat
	spot       optionalFloat
	weight     string
	tieBreak   string
	partition  string
	points     int
	format     string
	outDir     string
	asJSON     bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("lprange", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "configs/config.yaml", "Path to config file")
	fs.StringVar(&o.asset, "asset", "SOL", "Underlying asset symbol")
	fs.Var(&o.strike, "strike", "Put strike price (default from config)")
	fs.Var(&o.premium, "premium", "Put premium per unit (default from config)")
	fs.Var(&o.spot, "spot", "Spot price (default: live quote)")
	fs.StringVar(&o.weight, "weight", "", "Break-even weight: single or double")
	fs.StringVar(&o.tieBreak, "tiebreak", "", "Regime tie-break: first_match or half_open")
	fs.StringVar(&o.partition, "partition", "", "Regime partition: four_regime or strike_only")
	fs.IntVar(&o.points, "points", 0, "Sweep points (default from config)")
	fs.StringVar(&o.format, "export", "", "Export the curve as csv or json")
	fs.StringVar(&o.outDir, "out", "", "Export directory (default from config)")
	fs.BoolVar(&o.asJSON, "json", false, "Print the summary as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(rootCtx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "lprange: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, app.Options{ConfigPath: o.configPath, SkipLicense: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()

	engine, err := engineFor(a.Engine.Config(), o)
	if err != nil {
		return err
	}

	p, err := positionFor(ctx, a, o)
	if err != nil {
		return err
	}

	b, err := engine.Bounds(p)
	if err != nil {
		return err
	}
	rng := a.Config.SweepRange(b)
	if o.points > 0 {
		if err := a.Config.CheckPoints(o.points); err != nil {
			return err
		}
		rng.Points = o.points
	}
	curve, err := engine.Sweep(ctx, p, rng, a.Config.Sweep.Workers)
	if err != nil {
		return err
	}

	summary := export.Summarize(o.asset, curve)
	if o.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		printSummary(stdout, summary)
	}

	if o.format == "" {
		return nil
	}
	format, err := export.ParseFormat(o.format)
	if err != nil {
		return err
	}
	dir := o.outDir
	if dir == "" {
		dir = a.Config.Export.Dir
	}
	path, err := a.Exporter.Export(curve, export.ExportOptions{Format: format, Asset: o.asset, OutputDir: dir})
	if err != nil {
		return err
	}
	if o.asJSON {
		// stdout carries the JSON document only
		a.Logger.Info("Curve exported", zap.String("path", path))
		return nil
	}
	fmt.Fprintf(stdout, "\nexported %d samples to %s\n", len(curve.Samples), path)
	return nil
}

// engineFor applies the flag overrides on top of the configured engine.
func engineFor(cfg hedge.Config, o *options) (*hedge.Engine, error) {
	var err error
	if o.weight != "" {
		if cfg.BreakEvenWeight, err = hedge.ParseBreakEvenWeight(o.weight); err != nil {
			return nil, err
		}
	}
	if o.tieBreak != "" {
		if cfg.TieBreak, err = hedge.ParseTieBreak(o.tieBreak); err != nil {
			return nil, err
		}
	}
	if o.partition != "" {
		if cfg.Partition, err = hedge.ParsePartition(o.partition); err != nil {
			return nil, err
		}
	}
	return hedge.NewEngine(cfg)
}

func positionFor(ctx context.Context, a *app.App, o *options) (hedge.PositionParameters, error) {
	strike, premium, ok := a.Config.AssetDefaults(o.asset)
	if o.strike.set {
		strike = o.strike.value
	}
	if o.premium.set {
		premium = o.premium.value
	}
	if !ok && !(o.strike.set && o.premium.set) {
		return hedge.PositionParameters{}, fmt.Errorf("no defaults for asset %q: pass -strike and -premium", o.asset)
	}

	spot := o.spot.ptr()
	if spot == nil {
		asset, err := a.Assets.Lookup(o.asset)
		if err != nil {
			return hedge.PositionParameters{}, err
		}
		q, err := a.Feed.SpotPrice(ctx, asset)
		if err != nil {
			a.Logger.Warn("Spot lookup failed", zap.String("asset", asset.Symbol), zap.Error(err))
		} else {
			spot = q.Spot()
		}
	}
	return hedge.NewPositionParameters(strike, premium, spot)
}

func printSummary(w io.Writer, s export.Summary) {
	title := lipgloss.NewStyle().Bold(true)
	fmt.Fprintln(w, title.Render(fmt.Sprintf("%s  strike %.4f  premium %.4f  spot %.4f",
		s.Asset, s.Params.StrikePrice, s.Params.OptionPremium, s.Params.SpotPrice)))
	fmt.Fprintf(w, "weight %s, tie-break %s, partition %s\n\n", s.BreakEvenWeight, s.TieBreak, s.Partition)

	ranges := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "PRICE", "VS SPOT").
		Row("Lower bound", fmt.Sprintf("%.4f", s.Bounds.LowerBound), fmt.Sprintf("%+.2f%%", s.Offsets.LowerPct)).
		Row("Upper bound", fmt.Sprintf("%.4f", s.Bounds.UpperBound), fmt.Sprintf("%+.2f%%", s.Offsets.UpperPct))
	fmt.Fprintln(w, ranges.String())

	markers := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("MARKER", "PRICE")
	for _, m := range s.Markers {
		markers.Row(m.Label, fmt.Sprintf("%.4f", m.Price))
	}
	fmt.Fprintln(w, markers.String())

	fmt.Fprintf(w, "max loss %+.4f%% at %.4f (%s)\n", s.MaxLoss.NormalizedPnL*100, s.MaxLoss.HypotheticalPrice, s.MaxLoss.Regime)
	fmt.Fprintf(w, "max gain %+.4f%% at %.4f (%s)\n", s.MaxGain.NormalizedPnL*100, s.MaxGain.HypotheticalPrice, s.MaxGain.Regime)
}
