package models

import "time"

// RefreshState is the outcome category of the latest refresh.
type RefreshState string

const (
	StatePending        RefreshState = "pending"
	StateOK             RefreshState = "ok"
	StateNetworkFailure RefreshState = "network_failure"
	StateInvalidPayload RefreshState = "invalid_payload"
)

// RefreshStatus is shown to the user next to the charts.
type RefreshStatus struct {
	State     RefreshState `json:"state"`
	Message   string       `json:"message,omitempty"`
	RefreshID string       `json:"refresh_id,omitempty"`
	Device    string       `json:"device"`
	UpdatedAt time.Time    `json:"updated_at"`
	// Stale is set when the charts show an older bundle than the latest attempt.
	Stale bool `json:"stale"`
}

// OK reports whether the last refresh succeeded.
func (s RefreshStatus) OK() bool { return s.State == StateOK }

// Outcome is the result of one refresh.
type Outcome struct {
	Bundle *ChartSeriesBundle
	Status RefreshStatus
	Err    error
	// Cached is set when the bundle was served without contacting the device.
	Cached bool
}
