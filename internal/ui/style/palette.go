// Package style holds the colors and shared lipgloss styles of the terminal UI.
package style

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
)

var (
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")
	Blue    = lipgloss.Color("#3B82F6")
	Purple  = lipgloss.Color("#8B5CF6")

	Base03 = lipgloss.Color("#1B1D23") // Background
	Base02 = lipgloss.Color("#262831") // Darker background
	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
	Base1  = lipgloss.Color("#B4BCC8") // Secondary text
)

// Palette provides a centralized color management
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color

	Background    lipgloss.Color
	BackgroundAlt lipgloss.Color
	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color

	// Chart annotations
	Spot      lipgloss.Color
	BreakEven lipgloss.Color
	Bound     lipgloss.Color
	Strike    lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Secondary: Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Info:      Blue,

		Background:    Base03,
		BackgroundAlt: Base02,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,

		Spot:      Cyan,
		BreakEven: Yellow,
		Bound:     Purple,
		Strike:    Magenta,
	}
}

// PnLColor picks green for gains, red for losses and muted for flat.
func (p Palette) PnLColor(v float64) lipgloss.Color {
	switch {
	case v > 0:
		return p.Success
	case v < 0:
		return p.Error
	default:
		return p.TextMuted
	}
}

// MarkerColor returns the annotation color for a curve marker label.
func (p Palette) MarkerColor(label string) lipgloss.Color {
	switch label {
	case hedge.MarkerCurrent:
		return p.Spot
	case hedge.MarkerBreakEven:
		return p.BreakEven
	case hedge.MarkerLowerBound, hedge.MarkerUpperBound:
		return p.Bound
	case hedge.MarkerStrike:
		return p.Strike
	default:
		return p.Text
	}
}

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true).
			MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Base1).
			Width(18)

	ValueStyle = lipgloss.NewStyle().
			Foreground(Base2).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Base01)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Base01).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(Base03).
			Background(Cyan).
			Bold(true).
			Padding(0, 2)

	TabStyle = lipgloss.NewStyle().
			Foreground(Base1).
			Padding(0, 2)
)
