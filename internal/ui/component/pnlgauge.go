package component

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-hedge/internal/ui/style"
)

// PnLGauge renders a normalized PnL (a fraction of notional) as a bar.
type PnLGauge struct {
	value    float64
	width    int
	maxScale float64 // fraction that fills the bar
	label    string
}

// NewPnLGauge creates a gauge that is full at 20% of notional.
func NewPnLGauge(width int) *PnLGauge {
	return &PnLGauge{
		width:    width,
		maxScale: 0.2,
	}
}

// SetValue sets the normalized PnL.
func (p *PnLGauge) SetValue(value float64) *PnLGauge {
	p.value = value
	return p
}

// SetWidth sets the gauge width
func (p *PnLGauge) SetWidth(width int) *PnLGauge {
	p.width = width
	return p
}

// SetScale sets the fraction that fills the whole bar.
func (p *PnLGauge) SetScale(scale float64) *PnLGauge {
	if scale > 0 {
		p.maxScale = scale
	}
	return p
}

// SetLabel sets the text shown before the bar.
func (p *PnLGauge) SetLabel(label string) *PnLGauge {
	p.label = label
	return p
}

// Filled returns how many cells of the bar are lit.
func (p *PnLGauge) Filled() int {
	if p.width <= 0 {
		return 0
	}
	abs := math.Abs(p.value)
	intensity := math.Min(abs/p.maxScale, 1.0)
	filled := int(intensity * float64(p.width))
	if filled < 1 && abs > 0 {
		filled = 1
	}
	return filled
}

// View renders the PnL gauge
func (p *PnLGauge) View() string {
	color := style.DefaultPalette().PnLColor(p.value)

	bar := strings.Repeat("█", p.Filled()) + strings.Repeat("░", max(p.width-p.Filled(), 0))
	text := fmt.Sprintf("%+.2f%%", p.value*100)

	out := lipgloss.NewStyle().Foreground(color).Render(bar) + " " +
		lipgloss.NewStyle().Foreground(color).Bold(true).Render(text)
	if p.label != "" {
		out = style.LabelStyle.Render(p.label) + out
	}
	return out
}
