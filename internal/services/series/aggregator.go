package series

import (
	"fmt"
	"time"

	"PlantDash/internal/domain/models"
)

const (
	hoursPerDay    = 24
	minutesPerHour = 60
	// waterScale converts device water units (pump milliseconds) to display units.
	waterScale = 1000.0
)

// Aggregator turns device snapshots into chart-ready bundles.
// It keeps no state between calls; the zero value uses dry averaging.
type Aggregator struct {
	mode models.AveragingMode
	now  func() time.Time
}

// Option configures Aggregator.
type Option func(*Aggregator)

// WithAveraging selects the bucket averaging mode.
func WithAveraging(mode models.AveragingMode) Option {
	return func(a *Aggregator) {
		if mode != "" {
			a.mode = mode
		}
	}
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{mode: models.AveragingDry, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mode returns the configured averaging mode.
func (a *Aggregator) Mode() models.AveragingMode {
	if a == nil || a.mode == "" {
		return models.AveragingDry
	}
	return a.mode
}

// Build derives both charts and the threshold overlay from a snapshot.
func (a *Aggregator) Build(s *models.Snapshot) (*models.ChartSeriesBundle, error) {
	if s == nil {
		return nil, fmt.Errorf("snapshot is nil: %w", models.ErrInvalidPayload)
	}

	hours, err := TransformHours(s.Data, a.Mode())
	if err != nil {
		return nil, err
	}
	minutes, err := TransformMinutes(s.MinData)
	if err != nil {
		return nil, err
	}
	scales, err := Thresholds(s.Config)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if a != nil && a.now != nil {
		now = a.now
	}

	return &models.ChartSeriesBundle{
		Hourly: models.HourlyChart{
			HourSeries: hours,
			WaterAxis:  scales.WaterAxis,
			WeightAxis: scales.WeightAxis,
			Thresholds: scales.Lines,
		},
		Minutes: models.MinuteChart{
			MinuteSeries: minutes,
			WeightAxis:   scales.WeightAxis,
		},
		Config:      s.Config,
		Averaging:   a.Mode(),
		GeneratedAt: now().UTC(),
	}, nil
}

// TransformHours maps the hourly payload onto hour labels, normalized water and
// the "average since last watering" overlay.
func TransformHours(p models.TelemetryPayload, mode models.AveragingMode) (models.HourSeries, error) {
	n := len(p.Weight)
	if n != len(p.Water) {
		return models.HourSeries{}, fmt.Errorf("weight has %d samples, water has %d: %w",
			n, len(p.Water), models.ErrInvalidPayload)
	}
	if n > 0 && (p.Time < 0 || p.Time >= hoursPerDay) {
		return models.HourSeries{}, fmt.Errorf("hour %d out of range: %w", p.Time, models.ErrInvalidPayload)
	}

	out := models.HourSeries{
		Labels:   Labels(p.Time, n, hoursPerDay),
		Weights:  make([]float64, n),
		Water:    make([]float64, n),
		Averages: make([]float64, 0, n),
	}
	copy(out.Weights, p.Weight)

	var b bucket
	for i := 0; i < n; i++ {
		w := p.Water[i]
		out.Water[i] = w / waterScale

		if w > 0 {
			b.add(p.Weight[i], mode == models.AveragingInclusive)
			out.Averages = b.close(out.Averages)
			continue
		}
		b.add(p.Weight[i], true)
	}
	out.Averages = b.close(out.Averages)

	return out, nil
}

// TransformMinutes maps raw minute readings 1:1 onto minute labels.
func TransformMinutes(p models.MinutePayload) (models.MinuteSeries, error) {
	n := len(p.Weight)
	if n > 0 && (p.Time < 0 || p.Time >= minutesPerHour) {
		return models.MinuteSeries{}, fmt.Errorf("minute %d out of range: %w", p.Time, models.ErrInvalidPayload)
	}
	out := models.MinuteSeries{
		Labels:  Labels(p.Time, n, minutesPerHour),
		Weights: make([]float64, n),
	}
	copy(out.Weights, p.Weight)
	return out, nil
}

// Labels reconstructs the clock label of n consecutive samples whose last one
// was taken at last, wrapping modulo period.
func Labels(last, n, period int) []int {
	labels := make([]int, n)
	start := ((last+1-n%period)%period + period) % period
	for i := range labels {
		labels[i] = (start + i) % period
	}
	return labels
}

// bucket is a run of samples closed by a watering event.
type bucket struct {
	sum     float64
	counted int
	size    int
	// fallback is used when no sample contributed to sum.
	fallback float64
}

func (b *bucket) add(weight float64, counted bool) {
	b.size++
	b.fallback = weight
	if counted {
		b.sum += weight
		b.counted++
	}
}

// close emits the bucket average once per sample and resets the bucket.
func (b *bucket) close(dst []float64) []float64 {
	if b.size == 0 {
		return dst
	}
	avg := b.fallback
	if b.counted > 0 {
		avg = b.sum / float64(b.counted)
	}
	for i := 0; i < b.size; i++ {
		dst = append(dst, avg)
	}
	*b = bucket{}
	return dst
}
