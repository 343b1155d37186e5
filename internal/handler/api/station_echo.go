package api

import (
	"net/http"

	"PlantDash/internal/domain/models"

	"github.com/labstack/echo/v4"
)

// SnapshotProvider exposes the station history.
type SnapshotProvider interface {
	Snapshot() *models.Snapshot
}

// StationEchoHandler serves the device document consumed by the dashboard.
type StationEchoHandler struct {
	station SnapshotProvider
}

func NewStationEchoHandler(station SnapshotProvider) *StationEchoHandler {
	return &StationEchoHandler{station: station}
}

func (h *StationEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/data", h.Data)
}

// Data writes the raw snapshot, not the API envelope.
func (h *StationEchoHandler) Data(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, h.station.Snapshot())
}
