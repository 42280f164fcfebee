package component

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-hedge/internal/ui/style"
)

const (
	chartDot    = '•'
	chartAxis   = '─'
	chartMarker = '▲'
	chartBlank  = ' '
)

// ChartMarker annotates a price on the x axis.
type ChartMarker struct {
	Label string
	Price float64
	Color lipgloss.Color
}

// Chart plots a series over a price axis in a fixed grid of terminal cells.
// Each column covers a bucket of samples and draws its full min..max extent,
// so narrow dips such as the max-loss kink stay visible after downsampling.
type Chart struct {
	prices  []float64
	values  []float64
	markers []ChartMarker
	width   int
	height  int
	color   lipgloss.Color
}

// NewChart creates an empty chart of the given plot size.
func NewChart(width, height int) *Chart {
	return &Chart{
		width:  width,
		height: height,
		color:  style.DefaultPalette().Primary,
	}
}

// SetSeries sets the x (price) and y values. Both slices must be the same
// length and prices ascending.
func (c *Chart) SetSeries(prices, values []float64) *Chart {
	n := min(len(prices), len(values))
	c.prices = append(c.prices[:0], prices[:n]...)
	c.values = append(c.values[:0], values[:n]...)
	return c
}

// SetMarkers replaces the x-axis annotations.
func (c *Chart) SetMarkers(markers []ChartMarker) *Chart {
	c.markers = markers
	return c
}

// SetSize sets the plot area size in cells.
func (c *Chart) SetSize(width, height int) *Chart {
	c.width = max(width, 2)
	c.height = max(height, 2)
	return c
}

// SetColor sets the series color.
func (c *Chart) SetColor(color lipgloss.Color) *Chart {
	c.color = color
	return c
}

// Bucket is the value range covered by one chart column.
type Bucket struct{ Lo, Hi float64 }

// Resample folds values into at most width buckets, keeping each bucket's
// extremes.
func Resample(values []float64, width int) []Bucket {
	n := len(values)
	if n == 0 || width <= 0 {
		return nil
	}
	cols := min(n, width)
	out := make([]Bucket, cols)
	for j := range out {
		start, end := j*n/cols, (j+1)*n/cols
		b := Bucket{Lo: values[start], Hi: values[start]}
		for _, v := range values[start:end] {
			b.Lo = math.Min(b.Lo, v)
			b.Hi = math.Max(b.Hi, v)
		}
		out[j] = b
	}
	return out
}

func (c *Chart) extent() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range c.values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func (c *Chart) row(v, lo, hi float64) int {
	if hi == lo {
		return c.height / 2
	}
	r := int(math.Round((hi - v) / (hi - lo) * float64(c.height-1)))
	return max(0, min(c.height-1, r))
}

// Column returns the plot column of price, or -1 when it is off the chart.
func (c *Chart) Column(price float64) int {
	if len(c.prices) == 0 {
		return -1
	}
	from, to := c.prices[0], c.prices[len(c.prices)-1]
	cols := min(len(c.prices), c.width)
	if price < from || price > to {
		return -1
	}
	if to == from || cols == 1 {
		return 0
	}
	return int(math.Round((price - from) / (to - from) * float64(cols-1)))
}

// Rows renders the plot without styling. The last row is the marker axis.
func (c *Chart) Rows() []string {
	if len(c.values) == 0 {
		return []string{"no data"}
	}
	buckets := Resample(c.values, c.width)
	lo, hi := c.extent()

	grid := make([][]rune, c.height+1)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(string(chartBlank), len(buckets)))
	}
	if lo <= 0 && hi >= 0 {
		zero := c.row(0, lo, hi)
		for j := range grid[zero] {
			grid[zero][j] = chartAxis
		}
	}
	for j, b := range buckets {
		top, bottom := c.row(b.Hi, lo, hi), c.row(b.Lo, lo, hi)
		for r := top; r <= bottom; r++ {
			grid[r][j] = chartDot
		}
	}
	for _, m := range c.markers {
		if col := c.Column(m.Price); col >= 0 && col < len(buckets) {
			grid[c.height][col] = chartMarker
		}
	}

	rows := make([]string, len(grid))
	for i, r := range grid {
		rows[i] = string(r)
	}
	return rows
}

// View renders the chart with a y-axis gutter and a marker legend.
func (c *Chart) View() string {
	palette := style.DefaultPalette()
	rows := c.Rows()
	if len(c.values) == 0 {
		return style.MutedStyle.Render(rows[0])
	}
	lo, hi := c.extent()

	gutter := lipgloss.NewStyle().Foreground(palette.TextMuted).Width(9).Align(lipgloss.Right)
	series := lipgloss.NewStyle().Foreground(c.color)

	var b strings.Builder
	for i, r := range rows[:c.height] {
		label := ""
		switch i {
		case 0:
			label = fmt.Sprintf("%.4f", hi)
		case c.height - 1:
			label = fmt.Sprintf("%.4f", lo)
		}
		b.WriteString(gutter.Render(label) + " " + series.Render(r) + "\n")
	}
	b.WriteString(gutter.Render("") + " " + c.markerAxis(rows[c.height]) + "\n")
	b.WriteString(gutter.Render(fmt.Sprintf("%.2f", c.prices[0])) + " " +
		style.MutedStyle.Render(fmt.Sprintf("→ %.2f", c.prices[len(c.prices)-1])))

	var legend []string
	for _, m := range c.markers {
		legend = append(legend, lipgloss.NewStyle().Foreground(m.Color).
			Render(fmt.Sprintf("%c %s %.2f", chartMarker, m.Label, m.Price)))
	}
	if len(legend) > 0 {
		b.WriteString("\n" + strings.Join(legend, "  "))
	}
	return b.String()
}

// markerAxis colors each marker glyph. Later markers win a shared column.
func (c *Chart) markerAxis(axis string) string {
	colors := make(map[int]lipgloss.Color)
	for _, m := range c.markers {
		if col := c.Column(m.Price); col >= 0 {
			colors[col] = m.Color
		}
	}
	var b strings.Builder
	for j, r := range []rune(axis) {
		if color, ok := colors[j]; ok && r == chartMarker {
			b.WriteString(lipgloss.NewStyle().Foreground(color).Render(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
