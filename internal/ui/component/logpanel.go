package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-hedge/internal/logger"
	"github.com/rovshanmuradov/lp-hedge/internal/ui/style"
)

// LogPanel shows the most recent entries of a LogBuffer.
type LogPanel struct {
	buffer    *logger.LogBuffer
	viewport  viewport.Model
	visible   bool
	showDebug bool
	title     string

	container lipgloss.Style
	titleSt   lipgloss.Style
	timestamp lipgloss.Style
	levels    map[string]lipgloss.Style
}

// NewLogPanel creates a panel over buf. A nil buffer renders a placeholder.
func NewLogPanel(buf *logger.LogBuffer) *LogPanel {
	palette := style.DefaultPalette()
	return &LogPanel{
		buffer:   buf,
		viewport: viewport.New(60, 4),
		visible:  true,
		title:    "Recent Logs",
		container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Info).
			Padding(0, 1),
		titleSt:   lipgloss.NewStyle().Foreground(palette.Info).Bold(true),
		timestamp: lipgloss.NewStyle().Foreground(palette.TextMuted),
		levels: map[string]lipgloss.Style{
			"error": lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
			"warn":  lipgloss.NewStyle().Foreground(palette.Warning),
			"info":  lipgloss.NewStyle().Foreground(palette.Text),
			"debug": lipgloss.NewStyle().Foreground(palette.TextMuted),
		},
	}
}

// SetSize sets the outer size of the panel.
func (lp *LogPanel) SetSize(width, height int) {
	lp.viewport.Width = max(width-4, 10)
	lp.viewport.Height = max(height-3, 2)
}

// Toggle shows or hides the panel.
func (lp *LogPanel) Toggle() {
	lp.visible = !lp.visible
}

// Visible reports whether the panel is shown.
func (lp *LogPanel) Visible() bool {
	return lp.visible
}

// SetShowDebug includes debug entries.
func (lp *LogPanel) SetShowDebug(show bool) {
	lp.showDebug = show
}

// Lines returns the formatted entries, oldest first.
func (lp *LogPanel) Lines() []string {
	if lp.buffer == nil {
		return nil
	}
	var lines []string
	for _, e := range lp.buffer.GetRecentLogs(50) {
		level := strings.ToLower(e.Level)
		if level == "warning" {
			level = "warn"
		}
		if level == "debug" && !lp.showDebug {
			continue
		}
		st, ok := lp.levels[level]
		if !ok {
			st = lp.levels["info"]
		}
		lines = append(lines, fmt.Sprintf("%s %s",
			lp.timestamp.Render(e.Timestamp.Format("15:04:05")), st.Render(e.Message)))
	}
	return lines
}

// View renders the panel
func (lp *LogPanel) View() string {
	if !lp.visible {
		return ""
	}
	lines := lp.Lines()
	if len(lines) == 0 {
		lp.viewport.SetContent(style.MutedStyle.Render("No log entries yet"))
	} else {
		lp.viewport.SetContent(strings.Join(lines, "\n"))
		lp.viewport.GotoBottom()
	}
	return lp.container.Render(lipgloss.JoinVertical(lipgloss.Left,
		lp.titleSt.Render(lp.title+" [l] toggle"),
		lp.viewport.View()))
}
