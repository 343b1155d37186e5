package station

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"PlantDash/internal/domain/models"
	applogger "PlantDash/pkg/logger"
	"PlantDash/pkg/util"
)

// TelemetryPublisher sends raw station readings to a broker.
type TelemetryPublisher interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}

// Params describes the synthetic plant.
type Params struct {
	Plant           models.ThresholdConfig
	StartWeight     float64
	DryoutPerMinute float64
	// Scale is the pump time that adds one unit of weight.
	Scale float64
	Noise float64
	Seed  int64
	Tick  time.Duration
	// Backfill is the number of simulated hours recorded before Start.
	Backfill int
	Topic    string
}

// Simulator drives a Station from a plant that dries out every minute and is
// watered once a day, for as long as the station's calibrated watering
// decides. Each tick advances the simulated clock by one minute.
type Simulator struct {
	station *Station
	params  Params
	pub     TelemetryPublisher
	log     *applogger.Logger

	mu     sync.Mutex
	rnd    *rand.Rand
	clock  time.Time
	weight float64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// SimulatorOption configures Simulator.
type SimulatorOption func(*Simulator)

// WithPublisher publishes readings to <topic>/weight and <topic>/water.
func WithPublisher(p TelemetryPublisher) SimulatorOption {
	return func(s *Simulator) { s.pub = p }
}

// WithStartTime sets the simulated clock. It is truncated to the minute.
func WithStartTime(t time.Time) SimulatorOption {
	return func(s *Simulator) { s.clock = t.Truncate(time.Minute) }
}

// WithSimulatorLogger sets the logger.
func WithSimulatorLogger(l *applogger.Logger) SimulatorOption {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSimulator creates a simulator over st.
func NewSimulator(st *Station, p Params, opts ...SimulatorOption) *Simulator {
	if p.Tick <= 0 {
		p.Tick = time.Minute
	}
	if p.Scale <= 0 {
		p.Scale = 1
	}
	s := &Simulator{
		station: st,
		params:  p,
		log:     applogger.Nop(),
		rnd:     rand.New(rand.NewSource(p.Seed)),
		weight:  p.StartWeight,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock.IsZero() {
		s.clock = time.Now().Truncate(time.Minute).Add(-time.Duration(p.Backfill) * time.Hour)
	}
	return s
}

// Station returns the simulated station.
func (s *Simulator) Station() *Station { return s.station }

// Backfill records the configured number of hours without publishing.
func (s *Simulator) Backfill(ctx context.Context) {
	for i := 0; i < s.params.Backfill*60; i++ {
		s.step(ctx, false)
	}
	s.log.Info("simulator backfilled", applogger.Int("hours", s.params.Backfill))
}

// Step advances the simulation by one minute and returns the recorded reading.
func (s *Simulator) Step(ctx context.Context) float64 {
	return s.step(ctx, true)
}

func (s *Simulator) step(ctx context.Context, publish bool) float64 {
	s.mu.Lock()
	s.clock = s.clock.Add(time.Minute)
	s.weight = math.Max(0, s.weight-s.params.DryoutPerMinute)
	reading := round1(s.weight + s.params.Noise*(s.rnd.Float64()*2-1))
	now := s.clock

	s.station.RecordMinute(util.MinuteOfHour(now), reading)

	var water float64
	if util.MinuteOfHour(now) == 0 {
		hour := util.HourOfDay(now)
		water = s.watering(hour)
		s.station.RecordHour(hour, water)
	}
	s.mu.Unlock()

	if publish {
		s.publish(ctx, "/weight", 0, true, reading)
		if water > 0 {
			s.publish(ctx, "/water", 2, false, water)
		}
	}
	return reading
}

// watering runs the pump at the water hour and adds the poured weight to the
// plant. It returns the pump time. The caller holds mu.
func (s *Simulator) watering(hour int) float64 {
	if hour != s.params.Plant.WaterHour {
		return 0
	}
	plan := s.station.Watering(s.station.HourWeight())
	if plan.Time <= 0 {
		return 0
	}
	t := math.Round(plan.Time)
	s.weight += t / s.params.Scale
	s.log.Info("plant watered",
		applogger.Int("hour", hour),
		applogger.Float64("pump_time", t),
		applogger.Float64("delta", plan.Delta),
		applogger.Float64("dryout", plan.Dryout),
		applogger.Int("scale", plan.WaterTime.Scale),
		applogger.Int("offset", plan.WaterTime.Offset),
		applogger.Float64("weight", s.weight),
	)
	return t
}

func (s *Simulator) publish(ctx context.Context, suffix string, qos byte, retained bool, v float64) {
	if s.pub == nil {
		return
	}
	topic := s.params.Topic + suffix
	payload := []byte(strconv.FormatFloat(v, 'f', -1, 64))
	if err := s.pub.Publish(ctx, topic, qos, retained, payload); err != nil {
		s.log.Warn("simulator publish failed", applogger.String("topic", topic), applogger.Error(err))
	}
}

func (s *Simulator) Name() string { return "simulator" }

// Start runs the tick loop until Stop or ctx cancellation.
func (s *Simulator) Start(ctx context.Context) error {
	if s.station == nil {
		return fmt.Errorf("simulator has no station")
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// first tick lands on a wall-clock boundary of the tick period
		align := time.NewTimer(time.Until(util.NextBoundary(time.Now(), s.params.Tick)))
		select {
		case <-ctx.Done():
			align.Stop()
			return
		case <-s.stopCh:
			align.Stop()
			return
		case <-align.C:
			s.Step(ctx)
		}
		t := time.NewTicker(s.params.Tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-t.C:
				s.Step(ctx)
			}
		}
	}()
	s.log.Info("simulator started", applogger.Duration("tick_ms", s.params.Tick))
	return nil
}

func (s *Simulator) Stop(ctx context.Context) error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
