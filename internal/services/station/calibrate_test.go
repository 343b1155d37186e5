package station

import (
	"testing"

	"PlantDash/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stationWith(cfg models.ThresholdConfig, wt models.WateringTime, weights, water []float64) *Station {
	st := New(cfg)
	st.weights = weights
	st.water = water
	st.waterTime = wt
	return st
}

func TestCalibrate(t *testing.T) {
	gains := []float64{100, 98, 118, 116, 146, 144}
	cases := []struct {
		name    string
		prior   models.WateringTime
		weights []float64
		water   []float64
		dryout  float64
		want    models.WateringTime
	}{
		{
			name:  "empty history keeps calibration",
			prior: models.WateringTime{Scale: 7, Offset: 3},
			want:  models.WateringTime{Scale: 7, Offset: 3},
		},
		{
			// losses 3,2,3,2,3,2: one outlier dropped each side, mean 2.5
			name:    "dryout only",
			prior:   models.WateringTime{Scale: 1},
			weights: []float64{100, 97, 95, 92, 90, 87, 85},
			water:   []float64{0, 0, 0, 0, 0, 0, 0},
			dryout:  60,
			want:    models.WateringTime{Scale: 1},
		},
		{
			// (20,300) (30,400): scale 10, offset 350-10*25
			name:    "fit",
			weights: gains,
			water:   []float64{0, 300, 0, 400, 0, 0},
			dryout:  48,
			want:    models.WateringTime{Scale: 10, Offset: 100},
		},
		{
			// (20,100) (30,200) fits offset -100: refit through the center of mass 300/50
			name:    "negative offset",
			weights: gains,
			water:   []float64{0, 100, 0, 200, 0, 0},
			dryout:  48,
			want:    models.WateringTime{Scale: 6},
		},
		{
			// (20,400) (30,300) fits scale -10: offset 0.5*700/2, scale 0.5*700/50
			name:    "negative scale",
			weights: gains,
			water:   []float64{0, 400, 0, 300, 0, 0},
			dryout:  48,
			want:    models.WateringTime{Scale: 7, Offset: 175},
		},
		{
			// one watering plus (17.5,275) (22.5,325) from the prior line
			name:    "prior stabilises a single watering",
			prior:   models.WateringTime{Scale: 10, Offset: 100},
			weights: []float64{100, 98, 118},
			water:   []float64{0, 300, 0},
			dryout:  48,
			want:    models.WateringTime{Scale: 10, Offset: 100},
		},
		{
			name:    "single watering without prior keeps calibration",
			weights: []float64{100, 98, 118},
			water:   []float64{0, 300, 0},
			dryout:  48,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := stationWith(plant, tc.prior, tc.weights, tc.water)
			dry, wt := st.Calibrate()
			assert.Equal(t, tc.dryout, dry)
			assert.Equal(t, tc.want, wt)
		})
	}
}

func TestWatering(t *testing.T) {
	cfg := models.ThresholdConfig{Max: 6000, Low: 50, Dst: 150, Refill: 10}
	prior := models.WateringTime{Scale: 10, Offset: 100}
	weights := []float64{100, 98, 118, 116}
	water := []float64{0, 300, 0, 0}

	t.Run("top up since last watering", func(t *testing.T) {
		st := stationWith(cfg, prior, append([]float64(nil), weights...), append([]float64(nil), water...))
		plan := st.Watering(114)

		// 118 - 48*3/24 + 10 - 114 = 8, capped at 118-114
		assert.Equal(t, 3, plan.HoursSince)
		assert.Equal(t, 48.0, plan.Dryout)
		assert.Equal(t, 4.0, plan.Delta)
		assert.Equal(t, 40.0, plan.Time)
		assert.Equal(t, prior, st.WateringTime())
	})

	t.Run("fill up below low", func(t *testing.T) {
		st := stationWith(cfg, prior, append([]float64(nil), weights...), append([]float64(nil), water...))
		plan := st.Watering(40)
		assert.Equal(t, 110.0, plan.Delta)
		assert.Equal(t, 1100.0, plan.Time)
	})

	t.Run("clamped to max", func(t *testing.T) {
		capped := cfg
		capped.Max = 500
		st := stationWith(capped, prior, append([]float64(nil), weights...), append([]float64(nil), water...))
		assert.Equal(t, 400.0, st.Watering(40).Time)
	})

	t.Run("stores refit calibration", func(t *testing.T) {
		st := stationWith(cfg, models.WateringTime{}, []float64{100, 98, 118, 116, 146}, []float64{0, 300, 0, 400, 0})
		plan := st.Watering(140)
		require.Equal(t, models.WateringTime{Scale: 10, Offset: 100}, plan.WaterTime)
		assert.Equal(t, plan.WaterTime, *st.Snapshot().WaterTime)
	})
}
