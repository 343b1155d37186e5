package repository

import "PlantDash/internal/domain/models"

// IsValidAveraging returns true if m is a supported averaging mode.
func IsValidAveraging(m models.AveragingMode) bool {
	switch m {
	case models.AveragingDry, models.AveragingInclusive:
		return true
	default:
		return false
	}
}

// DefaultAveraging returns the default averaging mode.
func DefaultAveraging() models.AveragingMode { return models.AveragingDry }

// NormalizeAveraging converts a raw string to a valid averaging mode (or default).
func NormalizeAveraging(s string) models.AveragingMode {
	if s == "" {
		return DefaultAveraging()
	}
	m := models.AveragingMode(s)
	if IsValidAveraging(m) {
		return m
	}
	return DefaultAveraging()
}
