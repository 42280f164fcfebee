// Package export writes PnL curves to CSV or JSON files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat accepts "csv" or "json", case-insensitively.
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %q", s)
}

// CSVHeaders is the column order of a CSV export.
var CSVHeaders = []string{"price", "regime", "option_pnl", "underlying_pnl", "usd_pnl", "ratio", "normalized_pnl"}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format    ExportFormat
	Asset     string
	OutputDir string
	// MinPrice and MaxPrice trim the exported rows when non-zero.
	MinPrice float64
	MaxPrice float64
	// Regime keeps only samples of one regime when non-zero.
	Regime hedge.Regime
}

// CurveExporter writes curves to disk.
type CurveExporter struct {
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewCurveExporter(logger *zap.Logger) *CurveExporter {
	return &CurveExporter{
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString()[:8] },
	}
}

// Export writes curve and returns the file path.
func (ce *CurveExporter) Export(curve *hedge.Curve, options ExportOptions) (string, error) {
	if curve == nil {
		return "", fmt.Errorf("nothing to export")
	}
	samples := filterSamples(curve.Samples, options)
	if len(samples) == 0 {
		return "", fmt.Errorf("no samples match the export criteria")
	}

	if options.OutputDir == "" {
		options.OutputDir = "."
	}
	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, ce.generateFilename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(samples, outputPath)
	case FormatJSON:
		err = exportToJSON(curve, samples, options, ce.now(), outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	ce.logger.Info("Curve exported",
		zap.String("file", outputPath),
		zap.Int("samples", len(samples)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func filterSamples(samples []hedge.PnLSample, options ExportOptions) []hedge.PnLSample {
	var filtered []hedge.PnLSample
	for _, s := range samples {
		if options.MinPrice != 0 && s.HypotheticalPrice < options.MinPrice {
			continue
		}
		if options.MaxPrice != 0 && s.HypotheticalPrice > options.MaxPrice {
			continue
		}
		if options.Regime != 0 && s.Regime != options.Regime {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}

// generateFilename returns curve_{ASSET}_{timestamp}_{id}.{format}.
func (ce *CurveExporter) generateFilename(options ExportOptions) string {
	asset := strings.ToUpper(options.Asset)
	if asset == "" {
		asset = "CUSTOM"
	}
	timestamp := ce.now().Format("20060102_150405")
	return fmt.Sprintf("curve_%s_%s_%s.%s", asset, timestamp, ce.newID(), options.Format)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func sampleRecord(s hedge.PnLSample) []string {
	return []string{
		formatFloat(s.HypotheticalPrice),
		s.Regime.String(),
		formatFloat(s.OptionPnL),
		formatFloat(s.UnderlyingPnL),
		formatFloat(s.USDLegPnL),
		formatFloat(s.Ratio),
		formatFloat(s.NormalizedPnL),
	}
}

func exportToCSV(samples []hedge.PnLSample, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, s := range samples {
		if err := writer.Write(sampleRecord(s)); err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// Summary is the header of a JSON export.
type Summary struct {
	Asset           string                   `json:"asset,omitempty"`
	Params          hedge.PositionParameters `json:"params"`
	Bounds          hedge.BoundPrices        `json:"bounds"`
	Offsets         hedge.BoundOffsets       `json:"offsets"`
	BreakEvenWeight string                   `json:"break_even_weight"`
	TieBreak        string                   `json:"tie_break"`
	Partition       string                   `json:"partition"`
	Markers         []hedge.Marker           `json:"markers"`
	MaxLoss         hedge.PnLSample          `json:"max_loss"`
	MaxGain         hedge.PnLSample          `json:"max_gain"`
}

// Summarize collects the headline figures of a curve.
func Summarize(asset string, curve *hedge.Curve) Summary {
	return Summary{
		Asset:           strings.ToUpper(asset),
		Params:          curve.Params,
		Bounds:          curve.Bounds,
		Offsets:         curve.Bounds.Offsets(curve.Params.SpotPrice),
		BreakEvenWeight: curve.Config.BreakEvenWeight.String(),
		TieBreak:        curve.Config.TieBreak.String(),
		Partition:       curve.Config.Partition.String(),
		Markers:         curve.Markers(),
		MaxLoss:         curve.MaxLoss(),
		MaxGain:         curve.MaxGain(),
	}
}

func exportToJSON(curve *hedge.Curve, samples []hedge.PnLSample, options ExportOptions, now time.Time, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime  time.Time         `json:"export_time"`
		SampleCount int               `json:"sample_count"`
		Summary     Summary           `json:"summary"`
		Samples     []hedge.PnLSample `json:"samples"`
	}{
		ExportTime:  now,
		SampleCount: len(samples),
		Summary:     Summarize(options.Asset, curve),
		Samples:     samples,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
