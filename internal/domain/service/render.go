package service

import (
	"io"

	"PlantDash/internal/domain/models"
)

// DashboardView is what a renderer draws: the bundle behind both charts plus the refresh status.
// Bundle is nil until the first successful refresh.
type DashboardView struct {
	Title  string
	Device string
	Bundle *models.ChartSeriesBundle
	Status models.RefreshStatus
}

// ChartRenderer turns a dashboard view into a concrete output format.
type ChartRenderer interface {
	Name() string
	ContentType() string
	Render(w io.Writer, view DashboardView) error
}

// Aggregator shapes a raw snapshot into chart-ready series.
type Aggregator interface {
	Build(s *models.Snapshot) (*models.ChartSeriesBundle, error)
}
