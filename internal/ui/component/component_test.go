package component

import (
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/lp-hedge/internal/logger"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"150", 150, false},
		{" 22.68 ", 22.68, false},
		{"0", 0, false},
		{"", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNumber(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumberFieldOptional(t *testing.T) {
	f := NewNumberField("Spot", "auto", true)
	v, err := f.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	f.SetFloat(123.5)
	v, err = f.Value()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 123.5, *v)

	required := NewNumberField("Strike", "", false)
	_, err = required.Value()
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Contains(t, required.View(), "Strike")
}

func TestNumberFieldFiltersKeys(t *testing.T) {
	f := NewNumberField("Strike", "", false)
	f.Focus()

	for _, r := range "1x2.5q" {
		f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Equal(t, "12.5", f.Text())

	f.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "12.", f.Text())
}

func TestResampleKeepsExtremes(t *testing.T) {
	values := []float64{0, 5, -3, 1, 2, 2, 9, 0}
	buckets := Resample(values, 4)
	require.Len(t, buckets, 4)
	assert.Equal(t, Bucket{Lo: 0, Hi: 5}, buckets[0])
	assert.Equal(t, Bucket{Lo: -3, Hi: 1}, buckets[1])
	assert.Equal(t, Bucket{Lo: 0, Hi: 9}, buckets[3])

	assert.Len(t, Resample(values, 100), len(values))
	assert.Nil(t, Resample(nil, 10))
}

func TestChartRows(t *testing.T) {
	prices := make([]float64, 100)
	values := make([]float64, 100)
	for i := range prices {
		prices[i] = float64(i)
		values[i] = float64(i-50) / 100
	}
	c := NewChart(20, 6).SetSeries(prices, values).SetMarkers([]ChartMarker{
		{Label: "low", Price: 0},
		{Label: "high", Price: 99},
		{Label: "off", Price: 500},
	})

	rows := c.Rows()
	require.Len(t, rows, 7)
	for _, r := range rows {
		assert.Equal(t, 20, utf8.RuneCountInString(r))
	}
	// Rising series: top right and bottom left are lit.
	assert.Equal(t, chartDot, []rune(rows[0])[19])
	assert.Equal(t, chartDot, []rune(rows[5])[0])
	assert.Contains(t, strings.Join(rows[:6], ""), string(chartAxis))

	axis := []rune(rows[6])
	assert.Equal(t, chartMarker, axis[0])
	assert.Equal(t, chartMarker, axis[19])
	assert.Equal(t, 2, strings.Count(rows[6], string(chartMarker)))

	assert.Equal(t, -1, c.Column(500))
	assert.Contains(t, c.View(), "low 0.00")
}

func TestChartEmptyAndFlat(t *testing.T) {
	assert.Equal(t, []string{"no data"}, NewChart(10, 4).Rows())

	flat := NewChart(5, 4).SetSeries([]float64{1, 2, 3}, []float64{0, 0, 0})
	rows := flat.Rows()
	assert.Equal(t, strings.Repeat(string(chartDot), 3), rows[2])
}

func TestPnLGauge(t *testing.T) {
	g := NewPnLGauge(10)
	assert.Equal(t, 0, g.Filled())

	g.SetValue(-0.1)
	assert.Equal(t, 5, g.Filled())
	assert.Contains(t, g.View(), "-10.00%")

	g.SetValue(0.5)
	assert.Equal(t, 10, g.Filled())

	g.SetValue(0.0001)
	assert.Equal(t, 1, g.Filled())
}

func TestLogPanel(t *testing.T) {
	buf := logger.NewLogBuffer(10)
	p := NewLogPanel(buf)
	assert.Contains(t, p.View(), "No log entries yet")

	buf.Add("info", "spot refreshed", nil)
	buf.Add("debug", "hidden", nil)
	buf.Add("error", "feed down", nil)

	lines := p.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "spot refreshed")
	assert.Contains(t, lines[1], "feed down")

	p.SetShowDebug(true)
	assert.Len(t, p.Lines(), 3)

	p.Toggle()
	assert.Empty(t, p.View())
	assert.Nil(t, NewLogPanel(nil).Lines())
}

func TestTable(t *testing.T) {
	tbl := NewTable(
		TableColumn{Header: "Marker", Width: 12},
		TableColumn{Header: "Price", Width: 10},
	).SetShowBorder(false)
	tbl.AddRow("Strike Price Long Label", "120.00").AddRow("Spot", "123.00")

	assert.Equal(t, 2, tbl.RowCount())
	out := tbl.View()
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Marker")
	assert.Contains(t, lines[1], "┼")
	assert.Contains(t, lines[2], "Strike ...")
	assert.NotContains(t, lines[2], "Label")
	assert.Contains(t, lines[3], "123.00")

	assert.Empty(t, NewTable().View())
}
