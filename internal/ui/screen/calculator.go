// Package screen holds the terminal UI screens.
package screen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
	"github.com/rovshanmuradov/lp-hedge/internal/logger"
	"github.com/rovshanmuradov/lp-hedge/internal/pricefeed"
	"github.com/rovshanmuradov/lp-hedge/internal/ui"
	"github.com/rovshanmuradov/lp-hedge/internal/ui/component"
	"github.com/rovshanmuradov/lp-hedge/internal/ui/router"
	"github.com/rovshanmuradov/lp-hedge/internal/ui/style"
)

const (
	fieldStrike = iota
	fieldPremium
	fieldSpot
)

// Result is the last range calculated on the calculator screen.
type Result struct {
	Asset   string
	Params  hedge.PositionParameters
	Bounds  hedge.BoundPrices
	Offsets hedge.BoundOffsets
}

// CalculatorScreen collects the position inputs per asset and shows the
// resulting LP range.
type CalculatorScreen struct {
	services ui.ServiceProvider
	logger   *zap.Logger
	keys     ui.KeyMap
	help     help.Model
	spinner  spinner.Model

	width  int
	height int

	assets []string
	active int
	fields []*component.NumberField
	focus  int
	saved  map[string][3]string

	quotes   map[string]pricefeed.Quote
	spotErrs map[string]error
	fetching map[string]bool

	computing bool
	result    *Result
	err       error

	logs *component.LogPanel
}

// NewCalculatorScreen creates the calculator. logBuf may be nil.
func NewCalculatorScreen(services ui.ServiceProvider, logBuf *logger.LogBuffer) *CalculatorScreen {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(style.DefaultPalette().Primary)

	s := &CalculatorScreen{
		services: services,
		logger:   services.GetLogger().Named("calculator"),
		keys:     ui.DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		assets:   services.Assets(),
		fields: []*component.NumberField{
			component.NewNumberField("Strike price", "0", false),
			component.NewNumberField("Option premium", "0", false),
			component.NewNumberField("Spot override", "live", true),
		},
		saved:    make(map[string][3]string),
		quotes:   make(map[string]pricefeed.Quote),
		spotErrs: make(map[string]error),
		fetching: make(map[string]bool),
		logs:     component.NewLogPanel(logBuf),
	}
	s.loadInputs()
	s.fields[s.focus].Focus()
	return s
}

// Init fetches the spot of every asset.
func (s *CalculatorScreen) Init() tea.Cmd {
	cmds := []tea.Cmd{s.spinner.Tick}
	for _, a := range s.assets {
		cmds = append(cmds, s.fetch(a))
	}
	return tea.Batch(cmds...)
}

func (s *CalculatorScreen) fetch(asset string) tea.Cmd {
	s.fetching[asset] = true
	return ui.FetchSpotCmd(s.services, asset)
}

// Asset returns the selected asset symbol.
func (s *CalculatorScreen) Asset() string {
	if len(s.assets) == 0 {
		return ""
	}
	return s.assets[s.active]
}

// Result returns the last calculated range, if any.
func (s *CalculatorScreen) Result() *Result {
	return s.result
}

// Err returns the last calculation error.
func (s *CalculatorScreen) Err() error {
	return s.err
}

// Computing reports whether a curve sweep is in flight.
func (s *CalculatorScreen) Computing() bool {
	return s.computing
}

func (s *CalculatorScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.SpotMsg:
		delete(s.fetching, msg.Asset)
		if msg.Err != nil {
			s.spotErrs[msg.Asset] = msg.Err
			return s, nil
		}
		delete(s.spotErrs, msg.Asset)
		s.quotes[msg.Asset] = msg.Quote
		return s, nil

	case ui.CurveMsg:
		if msg.Asset != s.Asset() {
			return s, nil
		}
		s.computing = false
		s.err = msg.Err
		return s, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		return s, s.handleKey(msg)
	}
	return s, s.fields[s.focus].Update(msg)
}

func (s *CalculatorScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, s.keys.Help):
		s.help.ShowAll = !s.help.ShowAll
	case key.Matches(msg, s.keys.ToggleLogs):
		s.logs.Toggle()
	case key.Matches(msg, s.keys.Refresh):
		return s.fetch(s.Asset())
	case key.Matches(msg, s.keys.Reset):
		delete(s.saved, s.Asset())
		s.loadInputs()
		s.result, s.err = nil, nil
	case key.Matches(msg, s.keys.NextAsset):
		s.switchAsset(1)
	case key.Matches(msg, s.keys.PrevAsset):
		s.switchAsset(-1)
	case key.Matches(msg, s.keys.NextField):
		return s.moveFocus(1)
	case key.Matches(msg, s.keys.PrevField):
		return s.moveFocus(-1)
	case key.Matches(msg, s.keys.Compute):
		return s.compute()
	default:
		return s.fields[s.focus].Update(msg)
	}
	return nil
}

func (s *CalculatorScreen) moveFocus(delta int) tea.Cmd {
	s.fields[s.focus].Blur()
	s.focus = (s.focus + delta + len(s.fields)) % len(s.fields)
	return s.fields[s.focus].Focus()
}

func (s *CalculatorScreen) switchAsset(delta int) {
	if len(s.assets) < 2 || s.computing {
		return
	}
	s.saveInputs()
	s.active = (s.active + delta + len(s.assets)) % len(s.assets)
	s.loadInputs()
	s.result, s.err = nil, nil
}

func (s *CalculatorScreen) saveInputs() {
	var texts [3]string
	for i, f := range s.fields {
		texts[i] = f.Text()
	}
	s.saved[s.Asset()] = texts
}

func (s *CalculatorScreen) loadInputs() {
	if texts, ok := s.saved[s.Asset()]; ok {
		for i, f := range s.fields {
			f.SetValue(texts[i])
		}
		return
	}
	strike, premium, ok := s.services.AssetDefaults(s.Asset())
	if ok {
		s.fields[fieldStrike].SetFloat(strike)
		s.fields[fieldPremium].SetFloat(premium)
	} else {
		s.fields[fieldStrike].SetValue("")
		s.fields[fieldPremium].SetValue("")
	}
	s.fields[fieldSpot].SetValue("")
}

// spot returns the override when set, else the live quote.
func (s *CalculatorScreen) spot() (*float64, error) {
	override, err := s.fields[fieldSpot].Value()
	if err != nil || override != nil {
		return override, err
	}
	q, ok := s.quotes[s.Asset()]
	if !ok {
		return nil, nil
	}
	return q.Spot(), nil
}

// Params validates the inputs of the selected asset.
func (s *CalculatorScreen) Params() (hedge.PositionParameters, error) {
	strike, err := s.fields[fieldStrike].Value()
	if err != nil {
		return hedge.PositionParameters{}, err
	}
	premium, err := s.fields[fieldPremium].Value()
	if err != nil {
		return hedge.PositionParameters{}, err
	}
	spot, err := s.spot()
	if err != nil {
		return hedge.PositionParameters{}, err
	}
	return hedge.NewPositionParameters(*strike, *premium, spot)
}

func (s *CalculatorScreen) compute() tea.Cmd {
	if s.computing {
		return nil
	}
	asset := s.Asset()
	p, err := s.Params()
	if err != nil {
		s.result, s.err = nil, err
		return nil
	}
	b, err := s.services.Bounds(p)
	if err != nil {
		s.result, s.err = nil, err
		return nil
	}
	s.result = &Result{Asset: asset, Params: p, Bounds: b, Offsets: b.Offsets(p.SpotPrice)}
	s.err = nil
	s.computing = true
	s.logger.Debug("Computing curve",
		zap.String("asset", asset),
		zap.Float64("strike", p.StrikePrice),
		zap.Float64("premium", p.OptionPremium),
		zap.Float64("spot", p.SpotPrice))
	return ui.ComputeCurveCmd(s.services, asset, p)
}

func (s *CalculatorScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.help.Width = width
	s.logs.SetSize(width, 8)
}

func (s *CalculatorScreen) View() string {
	var b strings.Builder

	b.WriteString(style.TitleStyle.Render("LP Hedge Calculator") + "\n")
	b.WriteString(s.tabsView() + "\n\n")
	b.WriteString(s.spotView() + "\n\n")
	for _, f := range s.fields {
		b.WriteString(f.View() + "\n")
	}

	cfg := s.services.EngineConfig()
	b.WriteString(style.MutedStyle.Render(fmt.Sprintf("break-even weight %s · tie-break %s · partition %s",
		cfg.BreakEvenWeight, cfg.TieBreak, cfg.Partition)) + "\n\n")

	b.WriteString(s.resultView() + "\n")

	if logs := s.logs.View(); logs != "" {
		b.WriteString(logs + "\n")
	}
	b.WriteString(s.help.ShortHelpView(s.keys.ContextualHelp(ui.RouteCalculator)))
	return b.String()
}

func (s *CalculatorScreen) tabsView() string {
	tabs := make([]string, len(s.assets))
	for i, a := range s.assets {
		if i == s.active {
			tabs[i] = style.ActiveTabStyle.Render(a)
		} else {
			tabs[i] = style.TabStyle.Render(a)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (s *CalculatorScreen) spotView() string {
	asset := s.Asset()
	label := style.LabelStyle.Render("Spot")
	if s.fetching[asset] {
		return label + s.spinner.View() + " fetching"
	}
	if err, ok := s.spotErrs[asset]; ok {
		return label + style.ErrorStyle.Render(err.Error()) + style.MutedStyle.Render("  [r] retry")
	}
	q, ok := s.quotes[asset]
	if !ok {
		return label + style.MutedStyle.Render("n/a")
	}
	detail := fmt.Sprintf("  %s %s", q.Source, q.At.Local().Format("15:04:05"))
	if q.Cached {
		detail += " (cached)"
	}
	return label + style.ValueStyle.Render(fmt.Sprintf("%.4f", q.Price)) + style.MutedStyle.Render(detail)
}

func (s *CalculatorScreen) resultView() string {
	if s.err != nil {
		msg := s.err.Error()
		if errors.Is(s.err, hedge.ErrSpotUnavailable) {
			msg += " (press r to refetch or enter a spot override)"
		}
		return style.ErrorStyle.Render(msg)
	}
	if s.result == nil {
		return style.MutedStyle.Render("Press enter to calculate the range.")
	}
	r := s.result
	rows := []string{
		row("Lower bound", fmt.Sprintf("%.4f", r.Bounds.LowerBound), fmt.Sprintf("%+.2f%%", r.Offsets.LowerPct)),
		row("Upper bound", fmt.Sprintf("%.4f", r.Bounds.UpperBound), fmt.Sprintf("%+.2f%%", r.Offsets.UpperPct)),
		row("Break-even", fmt.Sprintf("%.4f", r.Params.BreakEvenPrice()), ""),
		row("Notional", fmt.Sprintf("%.4f", r.Params.Notional()), ""),
	}
	if s.computing {
		rows = append(rows, s.spinner.View()+" sweeping PnL curve")
	}
	return style.PanelStyle.Render(strings.Join(rows, "\n"))
}

func row(label, value, note string) string {
	out := style.LabelStyle.Render(label) + style.ValueStyle.Render(value)
	if note != "" {
		out += "  " + style.MutedStyle.Render(note)
	}
	return out
}
