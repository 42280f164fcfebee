package component

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-hedge/internal/ui/style"
)

// ErrEmpty is returned for a required field left blank.
var ErrEmpty = errors.New("value is required")

// ParseNumber parses a non-negative finite decimal.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmpty
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%q must not be negative", s)
	}
	return v, nil
}

// NumberField is a labelled text input that only accepts decimals.
type NumberField struct {
	Label    string
	Optional bool
	input    textinput.Model
	err      error

	labelStyle   lipgloss.Style
	inputStyle   lipgloss.Style
	focusedStyle lipgloss.Style
}

// NewNumberField creates a field. Optional fields may be left blank.
func NewNumberField(label, placeholder string, optional bool) *NumberField {
	palette := style.DefaultPalette()

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 24
	ti.Width = 16

	return &NumberField{
		Label:    label,
		Optional: optional,
		input:    ti,

		labelStyle: style.LabelStyle,
		inputStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted).
			Padding(0, 1),
		focusedStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary).
			Padding(0, 1),
	}
}

// SetValue replaces the text.
func (f *NumberField) SetValue(v string) {
	f.input.SetValue(v)
	f.err = nil
}

// SetFloat formats v into the field.
func (f *NumberField) SetFloat(v float64) {
	f.SetValue(strconv.FormatFloat(v, 'f', -1, 64))
}

// Text returns the raw text.
func (f *NumberField) Text() string {
	return f.input.Value()
}

// Focus focuses the field
func (f *NumberField) Focus() tea.Cmd {
	return f.input.Focus()
}

// Blur removes focus
func (f *NumberField) Blur() {
	f.input.Blur()
}

// Focused reports whether the field has focus.
func (f *NumberField) Focused() bool {
	return f.input.Focused()
}

// Value parses the field. A blank optional field yields nil.
func (f *NumberField) Value() (*float64, error) {
	v, err := ParseNumber(f.input.Value())
	switch {
	case errors.Is(err, ErrEmpty) && f.Optional:
		f.err = nil
		return nil, nil
	case err != nil:
		f.err = fmt.Errorf("%s: %w", f.Label, err)
		return nil, f.err
	}
	f.err = nil
	return &v, nil
}

// Err returns the last validation error.
func (f *NumberField) Err() error {
	return f.err
}

// Accepts reports whether a key may be typed into a number field.
func Accepts(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete, tea.KeyHome, tea.KeyEnd, tea.KeyCtrlA, tea.KeyCtrlE, tea.KeyCtrlU, tea.KeyCtrlK:
		return true
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if (r < '0' || r > '9') && r != '.' {
				return false
			}
		}
		return len(msg.Runes) > 0
	}
	return false
}

// Update forwards numeric keys to the input.
func (f *NumberField) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok && !Accepts(k) {
		return nil
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd
}

// View renders the label, the input and any error.
func (f *NumberField) View() string {
	box := f.inputStyle
	if f.input.Focused() {
		box = f.focusedStyle
	}
	row := lipgloss.JoinHorizontal(lipgloss.Center, f.labelStyle.Render(f.Label), box.Render(f.input.View()))
	if f.err != nil {
		row += "  " + style.ErrorStyle.Render(f.err.Error())
	}
	return row
}
