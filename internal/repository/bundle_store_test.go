package repository

import (
	"context"
	"testing"
	"time"

	"PlantDash/internal/domain/models"
	"PlantDash/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBundle() *models.ChartSeriesBundle {
	return &models.ChartSeriesBundle{
		Hourly: models.HourlyChart{
			HourSeries: models.HourSeries{
				Labels:   []int{0, 1},
				Weights:  []float64{1, 2},
				Water:    []float64{0, 0.5},
				Averages: []float64{1, 1},
			},
		},
		Averaging:   models.AveragingDry,
		GeneratedAt: time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC),
	}
}

func TestCacheBundleStoreMemory(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	s := NewCacheBundleStore(mc, time.Minute)

	got, err := s.Load(ctx, "fern")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Save(ctx, "fern", sampleBundle()))
	got, err = s.Load(ctx, "fern")
	require.NoError(t, err)
	assert.Equal(t, sampleBundle(), got)
}

func TestCacheBundleStoreRedisTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "plantdash")
	defer rc.Close()

	s := NewCacheBundleStore(rc, 30*time.Second)
	require.NoError(t, s.Save(ctx, "fern", sampleBundle()))

	assert.True(t, mr.Exists("plantdash:bundle:fern"))
	assert.Equal(t, 30*time.Second, mr.TTL("plantdash:bundle:fern"))

	mr.FastForward(31 * time.Second)
	got, err := s.Load(ctx, "fern")
	require.NoError(t, err)
	assert.Nil(t, got)
}
