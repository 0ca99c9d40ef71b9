// Package render draws statistics and heat layers as PNG images for clients
// that cannot run the chart and map widgets.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/crimestat/crimestat/internal/core/domain"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("nothing to render")

// Size limits for rendered images.
const (
	DefaultWidth  = 800
	DefaultHeight = 500
	MaxDimension  = 2000
)

// ClampSize applies defaults and limits to a requested image size.
func ClampSize(w, h int) (int, int) {
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return min(w, MaxDimension), min(h, MaxDimension)
}

// BarChartPNG renders the first dataset of cd as a bar chart.
func BarChartPNG(cd domain.ChartData, width, height int) ([]byte, error) {
	if len(cd.Datasets) == 0 || len(cd.Datasets[0].Data) == 0 {
		return nil, ErrNoData
	}
	width, height = ClampSize(width, height)
	ds := cd.Datasets[0]

	bars := make([]chart.Value, 0, len(ds.Data))
	maxValue := 0.0
	for i, n := range ds.Data {
		label := ""
		if i < len(cd.Labels) {
			label = cd.Labels[i]
		}
		fill := colorAt(ds.BackgroundColor, i)
		bars = append(bars, chart.Value{
			Value: float64(n),
			Label: label,
			Style: chart.Style{
				FillColor:   fill.WithAlpha(200),
				StrokeColor: colorAt(ds.BorderColor, i),
				StrokeWidth: float64(ds.BorderWidth),
			},
		})
		maxValue = max(maxValue, float64(n))
	}

	barWidth := max(8, min(60, width/(len(bars)+1)-10))
	graph := chart.BarChart{
		Title:      ds.Label,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		XAxis:      chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue + 1},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

func colorAt(colors []string, i int) drawing.Color {
	hex := domain.ChartFallbackColor
	if i < len(colors) && colors[i] != "" {
		hex = colors[i]
	}
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}
