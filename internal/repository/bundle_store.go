package repository

import (
	"context"
	"errors"
	"time"

	"PlantDash/internal/domain/models"
	"PlantDash/pkg/cache"
)

// CacheBundleStore keeps the last good bundle per device in a TTL cache.
type CacheBundleStore struct {
	cache cache.Service
	ttl   time.Duration
}

// NewCacheBundleStore creates a bundle store over c. Entries expire after ttl.
func NewCacheBundleStore(c cache.Service, ttl time.Duration) *CacheBundleStore {
	return &CacheBundleStore{cache: c, ttl: ttl}
}

func bundleKey(device string) string { return cache.Key("bundle", device) }

// Load returns the cached bundle, or nil without error when none is cached.
func (s *CacheBundleStore) Load(ctx context.Context, device string) (*models.ChartSeriesBundle, error) {
	var b models.ChartSeriesBundle
	if err := s.cache.Get(ctx, bundleKey(device), &b); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (s *CacheBundleStore) Save(ctx context.Context, device string, b *models.ChartSeriesBundle) error {
	return s.cache.Set(ctx, bundleKey(device), b, s.ttl)
}
