package screen

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
	"github.com/rovshanmuradov/lp-hedge/internal/logger"
	"github.com/rovshanmuradov/lp-hedge/internal/ui"
	"github.com/rovshanmuradov/lp-hedge/internal/ui/component"
	"github.com/rovshanmuradov/lp-hedge/internal/ui/router"
	"github.com/rovshanmuradov/lp-hedge/internal/ui/style"
)

// CurveScreen plots the normalized PnL of a finished sweep.
type CurveScreen struct {
	services ui.ServiceProvider
	keys     ui.KeyMap
	help     help.Model

	asset string
	curve *hedge.Curve

	chart   *component.Chart
	markers *component.Table
	loss    *component.PnLGauge
	gain    *component.PnLGauge
	logs    *component.LogPanel

	exporting bool
	exported  string
	exportErr error

	width  int
	height int
}

// NewCurveScreen creates the chart screen for curve.
func NewCurveScreen(services ui.ServiceProvider, asset string, curve *hedge.Curve, logBuf *logger.LogBuffer) *CurveScreen {
	palette := style.DefaultPalette()

	prices := make([]float64, len(curve.Samples))
	for i, smp := range curve.Samples {
		prices[i] = smp.HypotheticalPrice
	}
	var markers []component.ChartMarker
	for _, m := range curve.Markers() {
		markers = append(markers, component.ChartMarker{Label: m.Label, Price: m.Price, Color: palette.MarkerColor(m.Label)})
	}

	maxLoss, maxGain := curve.MaxLoss(), curve.MaxGain()
	scale := max(-maxLoss.NormalizedPnL, maxGain.NormalizedPnL)

	logs := component.NewLogPanel(logBuf)
	logs.Toggle()

	return &CurveScreen{
		services: services,
		keys:     ui.DefaultKeyMap(),
		help:     help.New(),
		asset:    asset,
		curve:    curve,
		chart:    component.NewChart(80, 16).SetSeries(prices, curve.NormalizedSeries()).SetMarkers(markers),
		loss:     component.NewPnLGauge(30).SetValue(maxLoss.NormalizedPnL).SetScale(scale).SetLabel("Max loss"),
		gain:     component.NewPnLGauge(30).SetValue(maxGain.NormalizedPnL).SetScale(scale).SetLabel("Max gain"),
		markers:  markerTable(services, curve),
		logs:     logs,
	}
}

// markerTable evaluates the position at every chart marker.
func markerTable(services ui.ServiceProvider, curve *hedge.Curve) *component.Table {
	palette := style.DefaultPalette()
	tbl := component.NewTable(
		component.TableColumn{Header: "Marker", Width: 16},
		component.TableColumn{Header: "Price", Width: 12, Align: lipgloss.Right},
		component.TableColumn{Header: "Regime", Width: 26},
		component.TableColumn{Header: "PnL", Width: 12, Align: lipgloss.Right},
		component.TableColumn{Header: "Normalized", Width: 12, Align: lipgloss.Right},
	)
	for _, m := range curve.Markers() {
		smp, err := services.Evaluate(curve.Params, m.Price)
		if err != nil {
			tbl.AddStyledRow(style.ErrorStyle, m.Label, fmt.Sprintf("%.4f", m.Price), err.Error())
			continue
		}
		tbl.AddStyledRow(lipgloss.NewStyle().Foreground(palette.MarkerColor(m.Label)),
			m.Label,
			fmt.Sprintf("%.4f", m.Price),
			smp.Regime.String(),
			fmt.Sprintf("%+.4f", smp.TotalPnL()),
			fmt.Sprintf("%+.4f%%", smp.NormalizedPnL*100))
	}
	return tbl
}

func (s *CurveScreen) Init() tea.Cmd {
	return nil
}

// Exported returns the path of the last export.
func (s *CurveScreen) Exported() string {
	return s.exported
}

func (s *CurveScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.ExportedMsg:
		s.exporting = false
		s.exported, s.exportErr = msg.Path, msg.Err
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keys.Export):
			if s.exporting {
				return s, nil
			}
			s.exporting = true
			s.exportErr = nil
			return s, ui.ExportCmd(s.services, s.curve, s.asset)
		case key.Matches(msg, s.keys.ToggleLogs):
			s.logs.Toggle()
		case key.Matches(msg, s.keys.Help):
			s.help.ShowAll = !s.help.ShowAll
		}
	}
	return s, nil
}

func (s *CurveScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.help.Width = width
	// Leave room for the header, legend, summary and help.
	s.chart.SetSize(max(width-12, 20), max(height-16, 6))
	s.logs.SetSize(width, 8)
}

func (s *CurveScreen) View() string {
	var b strings.Builder
	p, bnd := s.curve.Params, s.curve.Bounds

	b.WriteString(style.TitleStyle.Render(fmt.Sprintf("%s hedged LP · normalized PnL", s.asset)) + "\n")
	b.WriteString(style.MutedStyle.Render(fmt.Sprintf(
		"strike %.2f · premium %.2f · spot %.2f · range %.4f to %.4f · %d points",
		p.StrikePrice, p.OptionPremium, p.SpotPrice, bnd.LowerBound, bnd.UpperBound, len(s.curve.Samples))) + "\n\n")

	b.WriteString(s.chart.View() + "\n\n")

	b.WriteString(s.markers.View() + "\n\n")

	maxLoss := s.curve.MaxLoss()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		s.loss.View(), style.MutedStyle.Render(fmt.Sprintf("  at %.4f (%s)", maxLoss.HypotheticalPrice, maxLoss.Regime))) + "\n")
	b.WriteString(s.gain.View() + "\n\n")

	switch {
	case s.exporting:
		b.WriteString(style.MutedStyle.Render("exporting...") + "\n")
	case s.exportErr != nil:
		b.WriteString(style.ErrorStyle.Render("export failed: "+s.exportErr.Error()) + "\n")
	case s.exported != "":
		b.WriteString(lipgloss.NewStyle().Foreground(style.Green).Render("saved "+s.exported) + "\n")
	}

	if logs := s.logs.View(); logs != "" {
		b.WriteString(logs + "\n")
	}
	b.WriteString(s.help.ShortHelpView(s.keys.ContextualHelp(ui.RouteCurve)))
	return b.String()
}
