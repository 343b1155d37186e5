package series

import (
	"fmt"
	"math"

	"PlantDash/internal/domain/models"
)

// Thresholds derives the axis bounds and the four reference lines from the plant config.
// The minute chart shares the weight axis computed here.
func Thresholds(cfg models.ThresholdConfig) (models.Scales, error) {
	if cfg.Range < 0 {
		return models.Scales{}, fmt.Errorf("negative range %v: %w", cfg.Range, models.ErrInvalidPayload)
	}
	if cfg.Max < 0 {
		return models.Scales{}, fmt.Errorf("negative max %v: %w", cfg.Max, models.ErrInvalidPayload)
	}

	return models.Scales{
		WaterAxis: models.AxisBounds{
			Min: 0,
			Max: math.Ceil(cfg.Max / waterScale),
		},
		WeightAxis: WeightBounds(cfg),
		Lines: []models.ThresholdLine{
			{Value: cfg.Dst - cfg.Range, Color: models.ColorRange},
			{Value: cfg.Dst + cfg.Range, Color: models.ColorRange},
			{Value: cfg.Low, Color: models.ColorLow, Label: "low"},
			{Value: cfg.Dst, Color: models.ColorDst, Label: "target"},
		},
	}, nil
}

// WeightBounds returns suggested weight-axis bounds rounded outwards to tens,
// padded by twice the tolerated range.
func WeightBounds(cfg models.ThresholdConfig) models.AxisBounds {
	return models.AxisBounds{
		Min:       math.Floor((cfg.Low-cfg.Range*2)/10) * 10,
		Max:       math.Ceil((cfg.Dst+cfg.Range*2)/10) * 10,
		Suggested: true,
	}
}
