package station

import (
	"math"
	"sort"

	"PlantDash/internal/domain/models"
)

// WateringPlan is the outcome of one watering decision. Time is the pump time
// to run without the calibrated offset, zero meaning no watering. Delta is the
// weight the plant should gain and Dryout the estimated loss per 24 hours.
type WateringPlan struct {
	Time       float64
	Delta      float64
	Dryout     float64
	WaterTime  models.WateringTime
	HoursSince int
}

// regression accumulates (weight gain, pump time) pairs for a least squares fit.
type regression struct {
	n, gain, time, gain2, dot float64
}

func (r *regression) add(gain, time float64) {
	r.n++
	r.gain += gain
	r.time += time
	r.gain2 += gain * gain
	r.dot += gain * time
}

// Calibrate estimates the daily dryout and fits the pump time as
// scale*gain + offset over the hourly history.
func (s *Station) Calibrate() (float64, models.WateringTime) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calibrateLocked()
}

func (s *Station) calibrateLocked() (float64, models.WateringTime) {
	var (
		reg     regression
		samples []float64
		prevM   float64
		prevW   float64
	)
	// weights and water are pushed together, so they share indices
	for i, w := range s.water {
		m := s.weights[i]
		if prevM > 0 {
			if prevW > 0 {
				reg.add(m-prevM, prevW)
			} else {
				samples = append(samples, prevM-m)
			}
		}
		prevM = m
		prevW = w
	}

	old := s.waterTime
	if old.Scale > 0 && reg.n > 0 {
		// two points 12.5% around the average gain, from the previous fit
		avg := reg.gain / reg.n
		for _, g := range []float64{avg - avg/8, avg + avg/8} {
			reg.add(g, g*float64(old.Scale)+float64(old.Offset))
		}
	}

	wt := old
	if reg.n > 0 && reg.gain*reg.gain < reg.gain2*reg.n {
		scale := (reg.dot - reg.time*reg.gain/reg.n) / (reg.gain2 - reg.gain*reg.gain/reg.n)
		wt = models.WateringTime{
			Scale:  int(scale),
			Offset: int(reg.time/reg.n - scale*reg.gain/reg.n),
		}
	}

	switch {
	case wt.Offset < 0:
		// line through the center of mass
		wt.Offset = 0
		if reg.gain > 0 {
			wt.Scale = int(reg.time / reg.gain)
		}
	case wt.Scale < 0:
		if reg.n > 0 {
			wt.Offset = int(0.5 * reg.time / reg.n)
		}
		if reg.gain != 0 {
			wt.Scale = int(reg.time * 0.5 / reg.gain)
		}
	}
	return dryout(samples), wt
}

// dryout averages the hourly losses, dropping one low and one high outlier
// per six samples, and scales the result to a day.
func dryout(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sort.Float64s(samples)
	cut := len(samples) / 6
	kept := samples[cut : len(samples)-cut]
	var sum float64
	for _, d := range kept {
		sum += d
	}
	return math.Round(sum * 24 / float64(len(kept)))
}

// Watering decides how long to run the pump for a plant weighing weight and
// stores the refitted calibration. Above the low level it tops up the dryout
// since the last watering plus the daily refill, never beyond the weight
// reached right after that watering. At or below the low level it fills up
// to the target weight.
func (s *Station) Watering(weight float64) WateringPlan {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := 1
	for i := len(s.water) - 1; i >= 0; i-- {
		since = len(s.water) - i
		if s.water[i] > 0 {
			break
		}
	}
	prev := weight
	if since > 1 && len(s.weights) >= since {
		prev = s.weights[len(s.weights)-since+1]
	}

	dry, wt := s.calibrateLocked()
	cfg := s.config

	var delta float64
	if weight > cfg.Low {
		delta = math.Min(prev-dry*float64(since)/24+float64(cfg.Refill)-weight, prev-weight)
	} else {
		delta = cfg.Dst - weight
	}
	t := clamp(float64(wt.Scale)*delta+float64(wt.Offset), float64(cfg.WaterStart), cfg.Max) - float64(wt.Offset)
	s.waterTime = wt

	return WateringPlan{
		Time:       math.Max(0, t),
		Delta:      delta,
		Dryout:     dry,
		WaterTime:  wt,
		HoursSince: since,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
