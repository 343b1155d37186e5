package models

import (
	"encoding/json"
	"errors"
)

var (
	// ErrInvalidPayload marks a snapshot whose shape cannot be charted.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrNetworkFailure marks a fetch that never completed or returned a non-200 status.
	ErrNetworkFailure = errors.New("network failure")
)

// TelemetryPayload is the hourly history reported by the device.
// Time is the hour-of-day of the last sample.
type TelemetryPayload struct {
	Time   int       `json:"time"`
	Weight []float64 `json:"weight"`
	Water  []float64 `json:"water"`
}

// MinutePayload is the minute-resolution weight history. Weight may be absent.
type MinutePayload struct {
	Time   int       `json:"time"`
	Weight []float64 `json:"weight,omitempty"`
}

// ThresholdConfig carries the plant configuration used for axis scaling and overlay lines.
type ThresholdConfig struct {
	Max   float64 `json:"max"`
	Low   float64 `json:"low"`
	Dst   float64 `json:"dst"`
	Range float64 `json:"range"`

	WaterHour  int `json:"waterhour,omitempty"`
	WaterStart int `json:"start,omitempty"`
	Refill     int `json:"refill,omitempty"`
	UpdateHour int `json:"updatehour,omitempty"`
}

// UnmarshalJSON accepts the station's "high" key as the target weight when "dst" is missing.
func (c *ThresholdConfig) UnmarshalJSON(b []byte) error {
	type plain ThresholdConfig
	var raw struct {
		plain
		Dst  *float64 `json:"dst"`
		High *float64 `json:"high"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = ThresholdConfig(raw.plain)
	switch {
	case raw.Dst != nil:
		c.Dst = *raw.Dst
	case raw.High != nil:
		c.Dst = *raw.High
	}
	return nil
}

// WateringTime is the pump calibration the station reports next to its history.
type WateringTime struct {
	Scale  int `json:"scale"`
	Offset int `json:"offset"`
}

// Snapshot is the document served by the device at GET /data.
type Snapshot struct {
	Data      TelemetryPayload `json:"data"`
	MinData   MinutePayload    `json:"mindata"`
	Config    ThresholdConfig  `json:"config"`
	WaterTime *WateringTime    `json:"watertime,omitempty"`
}
