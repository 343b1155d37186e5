package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"PlantDash/internal/domain/models"
	dsvc "PlantDash/internal/domain/service"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Chart names accepted by the PNG renderer.
const (
	ChartHourly  = "hourly"
	ChartMinutes = "minutes"
)

const maxXTicks = 24

// ErrNoData is returned when there is nothing to draw yet.
var ErrNoData = errors.New("no chart data")

// PNG draws one of the two dashboard charts server side with go-chart.
type PNG struct {
	chart  string
	width  int
	height int
}

// NewPNG creates a renderer for the named chart. Zero sizes fall back to 1024x400.
func NewPNG(name string, width, height int) (*PNG, error) {
	switch name {
	case ChartHourly, ChartMinutes:
	default:
		return nil, fmt.Errorf("unknown chart %q", name)
	}
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 400
	}
	return &PNG{chart: name, width: width, height: height}, nil
}

// WithSize returns a copy drawing at the given size. Zero keeps the current value.
func (r *PNG) WithSize(width, height int) *PNG {
	cp := *r
	if width > 0 {
		cp.width = width
	}
	if height > 0 {
		cp.height = height
	}
	return &cp
}

func (r *PNG) Name() string        { return "png" }
func (r *PNG) ContentType() string { return "image/png" }

func (r *PNG) Render(w io.Writer, view dsvc.DashboardView) error {
	b := view.Bundle
	if b == nil {
		return ErrNoData
	}

	var ch chart.Chart
	switch r.chart {
	case ChartHourly:
		if b.Hourly.Len() == 0 {
			return ErrNoData
		}
		ch = hourlyChart(b.Hourly)
	default:
		if b.Minutes.Len() == 0 {
			return ErrNoData
		}
		ch = minuteChart(b.Minutes, b.Hourly.Thresholds)
	}
	if view.Title != "" {
		ch.Title = view.Title
	}
	ch.Width = r.width
	ch.Height = r.height
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", r.chart, err)
	}
	return nil
}

func hourlyChart(h models.HourlyChart) chart.Chart {
	xs := indexes(len(h.Labels))
	waterMax := h.WaterAxis.Max
	if waterMax <= h.WaterAxis.Min {
		waterMax = h.WaterAxis.Min + 1
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Watering",
			YAxis:   chart.YAxisSecondary,
			XValues: xs,
			YValues: h.Water,
			Style: chart.Style{
				StrokeColor: color(waterBorder),
				FillColor:   color(waterFill).WithAlpha(96),
				StrokeWidth: 1,
			},
		},
		chart.ContinuousSeries{
			Name:    "Plant Weight",
			XValues: xs,
			YValues: h.Weights,
			Style: chart.Style{
				StrokeColor: color(weightBorder),
				StrokeWidth: 2,
				DotColor:    color(weightFill),
				DotWidth:    2,
			},
		},
		chart.ContinuousSeries{
			Name:    "Average Weight",
			XValues: xs,
			YValues: h.Averages,
			Style: chart.Style{
				StrokeColor: color(averageBorder),
				StrokeWidth: 1,
			},
		},
	}
	series = append(series, thresholdSeries(h.Thresholds, xs)...)

	return chart.Chart{
		Title:      "Hourly",
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 8}},
		XAxis:      xAxis("hour", h.Labels),
		YAxis: chart.YAxis{
			Name:  "weight",
			Range: weightRange(h.WeightAxis, h.Weights, h.Averages),
		},
		YAxisSecondary: chart.YAxis{
			Name:  "water",
			Range: &chart.ContinuousRange{Min: h.WaterAxis.Min, Max: waterMax},
		},
		Series: series,
	}
}

func minuteChart(m models.MinuteChart, lines []models.ThresholdLine) chart.Chart {
	xs := indexes(len(m.Labels))
	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Plant Weight",
			XValues: xs,
			YValues: m.Weights,
			Style: chart.Style{
				StrokeColor: color(weightBorder),
				StrokeWidth: 2,
			},
		},
	}
	series = append(series, thresholdSeries(lines, xs)...)

	return chart.Chart{
		Title:      "Minutes",
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 8}},
		XAxis:      xAxis("minute", m.Labels),
		YAxis: chart.YAxis{
			Name:  "weight",
			Range: weightRange(m.WeightAxis, m.Weights),
		},
		Series: series,
	}
}

// thresholdSeries draws each reference line as a dashed constant series across the x range.
func thresholdSeries(lines []models.ThresholdLine, xs []float64) []chart.Series {
	out := make([]chart.Series, 0, len(lines))
	first, last := xs[0], xs[len(xs)-1]
	if last <= first {
		last = first + 1
	}
	for i, l := range lines {
		name := l.Label
		if name == "" {
			name = "range " + strconv.Itoa(i+1)
		}
		out = append(out, chart.ContinuousSeries{
			Name:    name,
			XValues: []float64{first, last},
			YValues: []float64{l.Value, l.Value},
			Style: chart.Style{
				StrokeColor:     color(l.Color),
				StrokeWidth:     1,
				StrokeDashArray: []float64{5, 3},
			},
		})
	}
	return out
}

// xAxis places samples at their index and labels a thinned subset with the wrapped hour or minute.
func xAxis(name string, labels []int) chart.XAxis {
	n := len(labels)
	step := int(math.Ceil(float64(n) / maxXTicks))
	if step < 1 {
		step = 1
	}
	ticks := make([]chart.Tick, 0, n/step+2)
	for i := 0; i < n; i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: strconv.Itoa(labels[i])})
	}
	maxX := float64(n - 1)
	if n == 1 {
		maxX = 1
		ticks = append(ticks, chart.Tick{Value: 1, Label: ""})
	}
	return chart.XAxis{
		Name:  name,
		Ticks: ticks,
		Range: &chart.ContinuousRange{Min: 0, Max: maxX},
	}
}

// weightRange widens suggested bounds so that every sample stays visible.
func weightRange(b models.AxisBounds, values ...[]float64) *chart.ContinuousRange {
	lo, hi := b.Min, b.Max
	if b.Suggested {
		for _, vs := range values {
			for _, v := range vs {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
	}
	if hi <= lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func indexes(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}

func color(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}
