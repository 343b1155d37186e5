package station

import (
	"sort"
	"sync"

	"PlantDash/internal/domain/models"
)

const (
	backlogDays = 12
	// MaxHours is the number of hourly samples kept.
	MaxHours = backlogDays * 24
	// MaxMinutes is the number of minute samples kept.
	MaxMinutes = 480

	medianWindow = 60
)

// Station keeps the weight and watering history served at /data.
type Station struct {
	mu sync.RWMutex

	hourTime   int
	weights    []float64
	water      []float64
	minuteTime int
	minutes    []float64
	config     models.ThresholdConfig
	waterTime  models.WateringTime
}

// New creates an empty station with the given plant configuration.
func New(cfg models.ThresholdConfig) *Station {
	return &Station{config: cfg, waterTime: models.WateringTime{Scale: 1}}
}

// RecordMinute stores the weight measured at minute min (0-59). Minutes missed
// since the previous sample are filled with the same weight. It returns the
// number of samples pushed.
func (s *Station) RecordMinute(min int, weight float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := (min - s.minuteTime + 60) % 60
	if len(s.minutes) == 0 {
		n = 1
	}
	s.minuteTime = min
	for i := 0; i < n; i++ {
		s.minutes = pushSlice(s.minutes, weight, MaxMinutes)
	}
	return n
}

// RecordHour closes hour with the given watering time. The hourly weight is
// the one HourWeight reports. It returns the weight that was stored.
func (s *Station) RecordHour(hour int, water float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.hourWeightLocked()
	s.hourTime = hour
	s.weights = pushSlice(s.weights, w, MaxHours)
	s.water = pushSlice(s.water, water, MaxHours)
	return w
}

// HourWeight returns the median of the last hour of minute samples, or the
// previous hourly weight when there are none.
func (s *Station) HourWeight() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hourWeightLocked()
}

func (s *Station) hourWeightLocked() float64 {
	switch {
	case len(s.minutes) > 0:
		return HourMedian(s.minutes)
	case len(s.weights) > 0:
		return s.weights[len(s.weights)-1]
	}
	return 0
}

// LastWeight returns the most recent minute sample, or the last hourly weight.
func (s *Station) LastWeight() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := len(s.minutes); n > 0 {
		return s.minutes[n-1], true
	}
	if n := len(s.weights); n > 0 {
		return s.weights[n-1], true
	}
	return 0, false
}

// SetWateringTime replaces the pump calibration. Watering refits it from the history.
func (s *Station) SetWateringTime(wt models.WateringTime) {
	s.mu.Lock()
	s.waterTime = wt
	s.mu.Unlock()
}

// WateringTime returns the current pump calibration.
func (s *Station) WateringTime() models.WateringTime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.waterTime
}

// Config returns the plant configuration.
func (s *Station) Config() models.ThresholdConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Snapshot returns a copy of the history in the device document format.
func (s *Station) Snapshot() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wt := s.waterTime
	snap := &models.Snapshot{
		Data: models.TelemetryPayload{
			Time:   s.hourTime,
			Weight: append([]float64{}, s.weights...),
			Water:  append([]float64{}, s.water...),
		},
		MinData: models.MinutePayload{
			Time:   s.minuteTime,
			Weight: append([]float64(nil), s.minutes...),
		},
		Config:    s.config,
		WaterTime: &wt,
	}
	return snap
}

// HourMedian returns the upper median of the last 60 samples. It panics on an empty slice.
func HourMedian(samples []float64) float64 {
	i0 := 0
	if len(samples) > medianWindow {
		i0 = len(samples) - medianWindow
	}
	d := append([]float64(nil), samples[i0:]...)
	sort.Float64s(d)
	return d[len(d)/2]
}

// pushSlice appends v and drops the oldest values beyond maxLen.
func pushSlice(s []float64, v float64, maxLen int) []float64 {
	if n := len(s) + 1; n > maxLen {
		copy(s, s[n-maxLen:])
		s = s[:maxLen-1]
	}
	return append(s, v)
}
