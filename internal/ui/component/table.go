package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-hedge/internal/ui/style"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow represents a row of data
type TableRow struct {
	Data  []string
	Style lipgloss.Style
}

// Table is a read-only grid with a header row.
type Table struct {
	columns []TableColumn
	rows    []TableRow

	headerStyle lipgloss.Style
	rowStyle    lipgloss.Style
	borderStyle lipgloss.Style
	showBorder  bool
}

// NewTable creates a new table component
func NewTable(columns ...TableColumn) *Table {
	palette := style.DefaultPalette()

	return &Table{
		columns: columns,
		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 1),
		rowStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted),
		showBorder: true,
	}
}

// AddRow appends a row in the default style.
func (t *Table) AddRow(data ...string) *Table {
	t.rows = append(t.rows, TableRow{Data: data, Style: t.rowStyle})
	return t
}

// AddStyledRow appends a row rendered with st.
func (t *Table) AddStyledRow(st lipgloss.Style, data ...string) *Table {
	t.rows = append(t.rows, TableRow{Data: data, Style: st.Padding(0, 1)})
	return t
}

// SetShowBorder enables/disables the border
func (t *Table) SetShowBorder(show bool) *Table {
	t.showBorder = show
	return t
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return len(t.rows)
}

// View renders the table
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return ""
	}

	lines := make([]string, 0, len(t.rows)+2)

	cells := make([]string, len(t.columns))
	for i, col := range t.columns {
		cells[i] = renderCell(col.Header, col.Width, col.Align, t.headerStyle)
	}
	lines = append(lines, strings.Join(cells, "│"))

	seps := make([]string, len(t.columns))
	for i, col := range t.columns {
		seps[i] = strings.Repeat("─", col.Width)
	}
	lines = append(lines, strings.Join(seps, "┼"))

	for _, row := range t.rows {
		for i, col := range t.columns {
			data := ""
			if i < len(row.Data) {
				data = row.Data[i]
			}
			cells[i] = renderCell(data, col.Width, col.Align, row.Style)
		}
		lines = append(lines, strings.Join(cells, "│"))
	}

	out := strings.Join(lines, "\n")
	if t.showBorder {
		out = t.borderStyle.Render(out)
	}
	return out
}

// renderCell truncates content to the column and aligns it.
func renderCell(content string, width int, align lipgloss.Position, st lipgloss.Style) string {
	r := []rune(content)
	// Horizontal padding takes two cells.
	room := width - 2
	if room > 3 && len(r) > room {
		content = string(r[:room-3]) + "..."
	}
	return st.Width(width).Align(align).Render(content)
}
