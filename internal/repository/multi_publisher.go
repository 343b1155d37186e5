package repository

import (
	"context"
	"errors"
	"fmt"

	"PlantDash/internal/domain/models"
	domrepo "PlantDash/internal/domain/repository"
)

// NamedPublisher is a Publisher that can be told apart in metrics.
type NamedPublisher interface {
	domrepo.Publisher
	Name() string
}

// MultiPublisher fans a summary out to every backend. A backend that fails does not stop the others.
type MultiPublisher struct {
	backends []NamedPublisher
	metrics  domrepo.Metrics
}

// NewMultiPublisher creates a fan-out publisher. Nil backends are skipped.
func NewMultiPublisher(metrics domrepo.Metrics, backends ...NamedPublisher) *MultiPublisher {
	mp := &MultiPublisher{metrics: metrics}
	for _, b := range backends {
		if b != nil {
			mp.backends = append(mp.backends, b)
		}
	}
	return mp
}

// Len returns the number of configured backends.
func (m *MultiPublisher) Len() int { return len(m.backends) }

func (m *MultiPublisher) Publish(ctx context.Context, s *models.BundleSummary) error {
	var errs []error
	for _, b := range m.backends {
		if err := b.Publish(ctx, s); err != nil {
			m.metrics.RecordError("publish_" + b.Name())
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		m.metrics.RecordPublished(b.Name(), s.Device)
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Close() error {
	var errs []error
	for _, b := range m.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		}
	}
	return errors.Join(errs...)
}
