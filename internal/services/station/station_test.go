package station

import (
	"context"
	"sync"
	"testing"
	"time"

	"PlantDash/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plant = models.ThresholdConfig{Max: 6000, Low: 1050, Dst: 1150, Range: 20, WaterHour: 7}

func TestPushSliceCaps(t *testing.T) {
	var s []float64
	for i := 0; i < 5; i++ {
		s = pushSlice(s, float64(i), 3)
	}
	assert.Equal(t, []float64{2, 3, 4}, s)
}

func TestRecordMinuteFillsGaps(t *testing.T) {
	st := New(plant)

	assert.Equal(t, 1, st.RecordMinute(10, 100))
	assert.Equal(t, 3, st.RecordMinute(13, 97))
	// wraps around the hour
	assert.Equal(t, 2, st.RecordMinute(55, 90)-40)
	assert.Equal(t, 6, st.RecordMinute(1, 89))

	snap := st.Snapshot()
	assert.Equal(t, 1, snap.MinData.Time)
	assert.Len(t, snap.MinData.Weight, 1+3+42+6)
	assert.Equal(t, []float64{100, 97, 97, 97}, snap.MinData.Weight[:4])
}

func TestRecordMinuteCapsBacklog(t *testing.T) {
	st := New(plant)
	for i := 0; i < MaxMinutes+100; i++ {
		st.RecordMinute(i%60, float64(i))
	}
	w := st.Snapshot().MinData.Weight
	require.Len(t, w, MaxMinutes)
	assert.Equal(t, float64(MaxMinutes+99), w[len(w)-1])
	assert.Equal(t, float64(100), w[0])
}

func TestRecordHourUsesMedian(t *testing.T) {
	st := New(plant)

	// no data at all
	assert.Equal(t, 0.0, st.RecordHour(0, 0))

	for i, w := range []float64{5, 1, 4, 2} {
		st.RecordMinute(i, w)
	}
	assert.Equal(t, 4.0, st.RecordHour(1, 12))

	snap := st.Snapshot()
	assert.Equal(t, 1, snap.Data.Time)
	assert.Equal(t, []float64{0, 4}, snap.Data.Weight)
	assert.Equal(t, []float64{0, 12}, snap.Data.Water)
}

func TestRecordHourFallsBackToLastWeight(t *testing.T) {
	st := New(plant)
	st.weights = []float64{42}
	assert.Equal(t, 42.0, st.RecordHour(3, 0))
	assert.Equal(t, []float64{42, 42}, st.Snapshot().Data.Weight)
}

func TestRecordHourCapsBacklog(t *testing.T) {
	st := New(plant)
	for i := 0; i < MaxHours+5; i++ {
		st.RecordMinute(0, float64(i))
		st.RecordHour(i%24, 0)
	}
	assert.Len(t, st.Snapshot().Data.Weight, MaxHours)
}

func TestHourMedianUsesLastHour(t *testing.T) {
	samples := make([]float64, 0, 70)
	for i := 0; i < 10; i++ {
		samples = append(samples, 1000)
	}
	for i := 0; i < 60; i++ {
		samples = append(samples, float64(i))
	}
	assert.Equal(t, 30.0, HourMedian(samples))
	assert.Equal(t, 2.0, HourMedian([]float64{3, 1, 2}))
	assert.Equal(t, 3.0, HourMedian([]float64{4, 1, 3, 2}))
}

func TestSnapshotIsACopy(t *testing.T) {
	st := New(plant)
	st.RecordMinute(0, 10)
	st.RecordHour(0, 0)

	snap := st.Snapshot()
	snap.Data.Weight[0] = 999
	snap.MinData.Weight[0] = 999

	again := st.Snapshot()
	assert.Equal(t, 10.0, again.Data.Weight[0])
	assert.Equal(t, 10.0, again.MinData.Weight[0])
	assert.Equal(t, 1150.0, again.Config.Dst)
}

func TestSnapshotEmptyMinutesOmitted(t *testing.T) {
	snap := New(plant).Snapshot()
	assert.Nil(t, snap.MinData.Weight)
	assert.NotNil(t, snap.Data.Weight)
}

type recordedMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

type fakeBroker struct {
	mu   sync.Mutex
	msgs []recordedMsg
}

func (b *fakeBroker) Publish(_ context.Context, topic string, qos byte, retained bool, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, recordedMsg{topic, qos, retained, string(payload)})
	return nil
}

func (b *fakeBroker) messages() []recordedMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedMsg(nil), b.msgs...)
}

func simParams() Params {
	return Params{
		Plant:           plant,
		StartWeight:     1200,
		DryoutPerMinute: 1,
		Scale:           2,
		Topic:           "plantcare",
	}
}

func TestSimulatorWatersAtWaterHour(t *testing.T) {
	broker := &fakeBroker{}
	p := simParams()
	p.StartWeight = 1060
	st := New(plant)
	st.SetWateringTime(models.WateringTime{Scale: 2})
	start := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	sim := NewSimulator(st, p, WithPublisher(broker), WithStartTime(start))

	// 06:01 .. 07:00 dries the plant by 60
	var last float64
	for i := 0; i < 60; i++ {
		last = sim.Step(context.Background())
	}
	assert.Equal(t, 1000.0, last)

	// median 1030 is below low, so fill up to dst: 2 * (1150-1030)
	snap := sim.Station().Snapshot()
	require.Len(t, snap.Data.Water, 1)
	assert.Equal(t, 7, snap.Data.Time)
	assert.Equal(t, []float64{1030}, snap.Data.Weight)
	assert.Equal(t, 240.0, snap.Data.Water[0])
	assert.Equal(t, models.WateringTime{Scale: 2}, *snap.WaterTime)

	var weights, water int
	for _, m := range broker.messages() {
		switch m.topic {
		case "plantcare/weight":
			weights++
			assert.True(t, m.retained)
			assert.Equal(t, byte(0), m.qos)
		case "plantcare/water":
			water++
			assert.Equal(t, byte(2), m.qos)
			assert.Equal(t, "240", m.payload)
		}
	}
	assert.Equal(t, 60, weights)
	assert.Equal(t, 1, water)

	// 1000 + 240/2 - 1
	assert.Equal(t, 1119.0, sim.Step(context.Background()))
}

func TestSimulatorRecalibratesDaily(t *testing.T) {
	cfg := plant
	cfg.Low, cfg.Dst, cfg.WaterStart, cfg.Refill = 1050, 1150, 500, 10
	st := New(cfg)
	st.SetWateringTime(models.WateringTime{Scale: 25})
	p := Params{Plant: cfg, StartWeight: 1100, DryoutPerMinute: 0.05, Scale: 40}
	sim := NewSimulator(st, p, WithStartTime(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))

	for i := 0; i < 72*60; i++ {
		sim.Step(context.Background())
	}

	snap := st.Snapshot()
	require.Len(t, snap.Data.Water, 72)
	var waterings []float64
	for _, w := range snap.Data.Water {
		if w > 0 {
			waterings = append(waterings, w)
		}
	}
	require.Len(t, waterings, 3)
	// the first top-up is below the minimum pump time
	assert.Equal(t, 500.0, snap.Data.Water[6])

	wt := st.WateringTime()
	assert.Equal(t, wt, *snap.WaterTime)
	assert.Greater(t, wt.Scale, 25, "fit moves towards the real pump rate of 40")
	assert.LessOrEqual(t, wt.Scale, 40)
}

func TestSimulatorWateringClampedToMax(t *testing.T) {
	p := simParams()
	p.Plant.Max = 5
	p.StartWeight = 500
	sim := NewSimulator(New(p.Plant), p, WithStartTime(time.Date(2026, 5, 1, 6, 59, 0, 0, time.UTC)))
	sim.Step(context.Background())

	snap := sim.Station().Snapshot()
	assert.Equal(t, []float64{5}, snap.Data.Water)
}

func TestSimulatorBackfillDoesNotPublish(t *testing.T) {
	broker := &fakeBroker{}
	p := simParams()
	p.Backfill = 3
	p.DryoutPerMinute = 0
	sim := NewSimulator(New(plant), p, WithPublisher(broker), WithStartTime(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	sim.Backfill(context.Background())

	snap := sim.Station().Snapshot()
	assert.Len(t, snap.Data.Weight, 3)
	assert.Len(t, snap.MinData.Weight, 180)
	assert.Empty(t, broker.messages())
}

func TestSimulatorStartStop(t *testing.T) {
	broker := &fakeBroker{}
	p := simParams()
	p.Tick = 5 * time.Millisecond
	sim := NewSimulator(New(plant), p, WithPublisher(broker))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sim.Start(ctx))

	require.Eventually(t, func() bool { return len(broker.messages()) >= 3 }, time.Second, 5*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, sim.Stop(stopCtx))
	require.NoError(t, sim.Stop(stopCtx))
	assert.Equal(t, "simulator", sim.Name())
}
