package repository

import (
	"context"

	"PlantDash/internal/domain/models"
)

// SnapshotSource delivers the device's current telemetry snapshot.
type SnapshotSource interface {
	Fetch(ctx context.Context) (*models.Snapshot, error)
}

// Publisher forwards refreshed bundle summaries downstream.
type Publisher interface {
	Publish(ctx context.Context, s *models.BundleSummary) error
	Close() error
}

// BundleStore keeps the last good bundle for a device between refreshes.
type BundleStore interface {
	Load(ctx context.Context, device string) (*models.ChartSeriesBundle, error)
	Save(ctx context.Context, device string, b *models.ChartSeriesBundle) error
}

// Metrics is the recorder used by the dashboard controller and the publish pipeline.
type Metrics interface {
	RecordRefresh(device, result string)
	RecordPublished(backend, device string)
	RecordError(kind string)
	RecordLastWeight(device string, weight float64)
	RecordLatency(op string, seconds float64)
}
