package models

import "strings"

// Requests for dashboard HTTP endpoints.

type ChartImageRequest struct {
	File   string `param:"file" validate:"required,oneof=hourly.png minutes.png"`
	Width  int    `query:"width" validate:"gte=0,lte=4096"`
	Height int    `query:"height" validate:"gte=0,lte=4096"`
}

// Chart returns the requested chart name without extension.
func (r *ChartImageRequest) Chart() string { return strings.TrimSuffix(r.File, ".png") }

type SeriesRequest struct {
	Force bool `query:"force"`
}
