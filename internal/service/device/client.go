package device

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"PlantDash/internal/domain/models"
	xhttp "PlantDash/pkg/http"
	applogger "PlantDash/pkg/logger"
)

// Kind classifies a failed fetch.
type Kind string

const (
	KindNetworkFailure Kind = "network_failure"
	KindInvalidPayload Kind = "invalid_payload"
)

// FetchError describes why a snapshot could not be obtained.
// It matches models.ErrNetworkFailure or models.ErrInvalidPayload with errors.Is.
type FetchError struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("device fetch: %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("device fetch: %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is match the domain sentinel for the kind.
func (e *FetchError) Is(target error) bool {
	switch e.Kind {
	case KindNetworkFailure:
		return target == models.ErrNetworkFailure
	case KindInvalidPayload:
		return target == models.ErrInvalidPayload
	}
	return false
}

// Client fetches the telemetry snapshot from a plant station.
type Client struct {
	name string
	url  string
	http *xhttp.Client
	log  *applogger.Logger
}

// New creates a device client for the station at baseURL.
func New(name, baseURL string, timeout time.Duration, log *applogger.Logger, opts ...xhttp.ClientOption) *Client {
	if log == nil {
		log = applogger.Nop()
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout), xhttp.WithUserAgent("plantdash/" + name)}, opts...)
	return &Client{
		name: name,
		url:  strings.TrimRight(baseURL, "/") + "/data",
		http: xhttp.NewClient(opts...),
		log:  log.With(applogger.String("device", name)),
	}
}

// Name returns the configured device name.
func (c *Client) Name() string { return c.name }

// Fetch issues GET /data once. It never retries. Any status other than 200
// is a network failure.
func (c *Client) Fetch(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	var snap models.Snapshot
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:       http.MethodGet,
		URL:          c.url,
		Headers:      map[string]string{"Accept": "application/json"},
		ExpectStatus: http.StatusOK,
	}, &snap)
	if err != nil {
		fe := classify(err)
		c.log.Warn("device fetch failed",
			applogger.String("url", c.url),
			applogger.String("kind", string(fe.Kind)),
			applogger.Int("status", fe.Status),
			applogger.Error(err),
		)
		return nil, fe
	}

	if err := checkShape(&snap); err != nil {
		c.log.Warn("device payload rejected", applogger.String("url", c.url), applogger.Error(err))
		return nil, &FetchError{Kind: KindInvalidPayload, Err: err}
	}

	c.log.Debug("device fetch ok",
		applogger.Int("hours", len(snap.Data.Weight)),
		applogger.Int("minutes", len(snap.MinData.Weight)),
		applogger.Duration("latency_ms", time.Since(start)),
	)
	return &snap, nil
}

func classify(err error) *FetchError {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return &FetchError{Kind: KindNetworkFailure, Status: se.StatusCode, Err: err}
	}
	var de *xhttp.DecodeError
	if errors.As(err, &de) {
		return &FetchError{Kind: KindInvalidPayload, Status: de.StatusCode, Err: err}
	}
	return &FetchError{Kind: KindNetworkFailure, Err: err}
}

func checkShape(s *models.Snapshot) error {
	if len(s.Data.Weight) != len(s.Data.Water) {
		return fmt.Errorf("weight has %d samples, water has %d", len(s.Data.Weight), len(s.Data.Water))
	}
	return nil
}
