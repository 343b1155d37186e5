package models

import "time"

// AveragingMode selects how a closed bucket's average is computed.
type AveragingMode string

const (
	// AveragingDry averages the bucket's non-watering samples.
	AveragingDry AveragingMode = "dry"
	// AveragingInclusive also counts the watering sample's own weight.
	AveragingInclusive AveragingMode = "inclusive"
)

// Threshold line colors.
const (
	ColorRange = "#c0c0c0"
	ColorLow   = "#ff0000"
	ColorDst   = "#40b000"
)

// HourSeries is the chart-ready hourly data. All slices share the same length.
type HourSeries struct {
	Labels   []int     `json:"labels"`
	Weights  []float64 `json:"weights"`
	Water    []float64 `json:"water"`
	Averages []float64 `json:"averages"`
}

// Len returns the number of hourly samples.
func (s HourSeries) Len() int { return len(s.Labels) }

// MinuteSeries is the chart-ready minute data.
type MinuteSeries struct {
	Labels  []int     `json:"labels"`
	Weights []float64 `json:"weights"`
}

// Len returns the number of minute samples.
func (s MinuteSeries) Len() int { return len(s.Labels) }

// AxisBounds describes a y-axis range. Suggested bounds may be exceeded by the data.
type AxisBounds struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Suggested bool    `json:"suggested"`
}

// ThresholdLine is a static horizontal reference drawn on the weight axis.
type ThresholdLine struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
	Label string  `json:"label,omitempty"`
}

// Scales groups the axis bounds and threshold lines derived from a ThresholdConfig.
type Scales struct {
	WaterAxis  AxisBounds      `json:"water_axis"`
	WeightAxis AxisBounds      `json:"weight_axis"`
	Lines      []ThresholdLine `json:"lines"`
}

// HourlyChart is the content of the hourly chart.
type HourlyChart struct {
	HourSeries
	WaterAxis  AxisBounds      `json:"water_axis"`
	WeightAxis AxisBounds      `json:"weight_axis"`
	Thresholds []ThresholdLine `json:"thresholds"`
}

// MinuteChart is the content of the minute chart.
type MinuteChart struct {
	MinuteSeries
	WeightAxis AxisBounds `json:"weight_axis"`
}

// ChartSeriesBundle is everything a renderer needs for one dashboard.
type ChartSeriesBundle struct {
	Hourly      HourlyChart     `json:"hourly"`
	Minutes     MinuteChart     `json:"minutes"`
	Config      ThresholdConfig `json:"config"`
	Averaging   AveragingMode   `json:"averaging"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// BundleSummary is the compact form published downstream after each refresh.
type BundleSummary struct {
	Device       string          `json:"device"`
	RefreshID    string          `json:"refresh_id"`
	LastHour     int             `json:"last_hour"`
	LastWeight   float64         `json:"last_weight"`
	LastAverage  float64         `json:"last_average"`
	LastWatering float64         `json:"last_watering"`
	Thresholds   []ThresholdLine `json:"thresholds"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// Summarize reduces a bundle to its latest values.
func (b *ChartSeriesBundle) Summarize(device, refreshID string) *BundleSummary {
	s := &BundleSummary{
		Device:      device,
		RefreshID:   refreshID,
		Thresholds:  b.Hourly.Thresholds,
		GeneratedAt: b.GeneratedAt,
	}
	h := b.Hourly
	if n := h.Len(); n > 0 {
		s.LastHour = h.Labels[n-1]
		s.LastWeight = h.Weights[n-1]
		s.LastAverage = h.Averages[n-1]
		for i := n - 1; i >= 0; i-- {
			if h.Water[i] > 0 {
				s.LastWatering = h.Water[i]
				break
			}
		}
	}
	return s
}
