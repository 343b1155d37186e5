package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"PlantDash/internal/domain/models"
	dsvc "PlantDash/internal/domain/service"
	"PlantDash/internal/services/render"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboard struct {
	mu     sync.Mutex
	out    models.Outcome
	forced int
	calls  int
}

func (d *fakeDashboard) Device() string { return "basil" }

func (d *fakeDashboard) Refresh(_ context.Context, force bool) models.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if force {
		d.forced++
	}
	return d.out
}

func (d *fakeDashboard) Current() (*models.ChartSeriesBundle, models.RefreshStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.out.Bundle, d.out.Status
}

func (d *fakeDashboard) Render(_ context.Context, r dsvc.ChartRenderer, w io.Writer) error {
	b, st := d.Current()
	return r.Render(w, dsvc.DashboardView{Title: "Basil", Device: "basil", Bundle: b, Status: st})
}

type fakeLimiter struct {
	allow bool
	wait  time.Duration
}

func (l *fakeLimiter) Allow(string) bool               { return l.allow }
func (l *fakeLimiter) RetryAfter(string) time.Duration { return l.wait }

func okBundle() *models.ChartSeriesBundle {
	return &models.ChartSeriesBundle{
		Hourly: models.HourlyChart{
			HourSeries: models.HourSeries{
				Labels:   []int{0, 1, 2, 3},
				Weights:  []float64{1, 2, 3, 4},
				Water:    []float64{0, 0, 5, 0},
				Averages: []float64{1.5, 1.5, 1.5, 4},
			},
			WaterAxis:  models.AxisBounds{Max: 5},
			WeightAxis: models.AxisBounds{Min: 10, Max: 60, Suggested: true},
			Thresholds: []models.ThresholdLine{{Value: 50, Color: models.ColorDst, Label: "target"}},
		},
		Minutes: models.MinuteChart{
			MinuteSeries: models.MinuteSeries{Labels: []int{0, 1}, Weights: []float64{4, 4}},
			WeightAxis:   models.AxisBounds{Min: 10, Max: 60, Suggested: true},
		},
		Averaging:   models.AveragingDry,
		GeneratedAt: time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC),
	}
}

func okOutcome() models.Outcome {
	return models.Outcome{
		Bundle: okBundle(),
		Status: models.RefreshStatus{State: models.StateOK, Device: "basil", RefreshID: "r1"},
	}
}

func failedOutcome(err error, state models.RefreshState) models.Outcome {
	return models.Outcome{
		Status: models.RefreshStatus{State: state, Device: "basil", Message: err.Error()},
		Err:    err,
	}
}

func newTestServer(d Dashboard, l RateLimiter) *echo.Echo {
	e := echo.New()
	h := NewDashboardEchoHandler(nil, d, l, Renderers{
		Page:      render.NewChartJS(""),
		Workbook:  render.NewXLSX(),
		PNGWidth:  320,
		PNGHeight: 200,
	})
	h.RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var errs []struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &errs))
	require.Len(t, errs, 1)
	return errs[0].Code
}

func TestPageRendersDashboard(t *testing.T) {
	e := newTestServer(&fakeDashboard{out: okOutcome()}, nil)
	rec := do(e, http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), `<canvas id="wchart">`)
}

func TestPageShowsFailureWith200(t *testing.T) {
	d := &fakeDashboard{out: failedOutcome(fmt.Errorf("fetch: %w", models.ErrNetworkFailure), models.StateNetworkFailure)}
	rec := do(newTestServer(d, nil), http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Network failure")
	assert.Contains(t, rec.Body.String(), "fetch: network failure")
}

func TestSeries(t *testing.T) {
	d := &fakeDashboard{out: okOutcome()}
	e := newTestServer(d, nil)

	rec := do(e, http.MethodGet, "/api/series?force=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, d.forced)

	var body seriesResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &body))
	assert.Equal(t, "basil", body.Device)
	assert.Equal(t, []float64{1.5, 1.5, 1.5, 4}, body.Bundle.Hourly.Averages)
	assert.Equal(t, models.StateOK, body.Status.State)
}

func TestSeriesFailures(t *testing.T) {
	cases := []struct {
		name   string
		out    models.Outcome
		status int
		code   string
	}{
		{"network", failedOutcome(fmt.Errorf("x: %w", models.ErrNetworkFailure), models.StateNetworkFailure), http.StatusBadGateway, "ERR_NETWORK_FAILURE"},
		{"payload", failedOutcome(fmt.Errorf("x: %w", models.ErrInvalidPayload), models.StateInvalidPayload), http.StatusUnprocessableEntity, "ERR_INVALID_PAYLOAD"},
		{"pending", models.Outcome{Status: models.RefreshStatus{State: models.StatePending}}, http.StatusNotFound, "ERR_NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(newTestServer(&fakeDashboard{out: tc.out}, nil), http.MethodGet, "/api/series")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestSeriesStaleBundleServed(t *testing.T) {
	out := failedOutcome(fmt.Errorf("x: %w", models.ErrNetworkFailure), models.StateNetworkFailure)
	out.Bundle = okBundle()
	out.Status.Stale = true

	rec := do(newTestServer(&fakeDashboard{out: out}, nil), http.MethodGet, "/api/series")
	require.Equal(t, http.StatusOK, rec.Code)

	var body seriesResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &body))
	assert.True(t, body.Status.Stale)
	assert.Equal(t, models.StateNetworkFailure, body.Status.State)
}

func TestStatus(t *testing.T) {
	d := &fakeDashboard{out: okOutcome()}
	rec := do(newTestServer(d, nil), http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var st models.RefreshStatus
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &st))
	assert.Equal(t, "r1", st.RefreshID)
	assert.Zero(t, d.calls)
}

func TestRefreshRateLimited(t *testing.T) {
	d := &fakeDashboard{out: okOutcome()}
	rec := do(newTestServer(d, &fakeLimiter{allow: false, wait: 1500 * time.Millisecond}), http.MethodPost, "/api/refresh")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "ERR_RATE_LIMITED", errorCode(t, rec))
	assert.Zero(t, d.calls)
}

func TestRefreshForces(t *testing.T) {
	d := &fakeDashboard{out: okOutcome()}
	rec := do(newTestServer(d, &fakeLimiter{allow: true}), http.MethodPost, "/api/refresh")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, d.forced)
}

func TestRefreshFailureMapped(t *testing.T) {
	out := failedOutcome(fmt.Errorf("x: %w", models.ErrInvalidPayload), models.StateInvalidPayload)
	out.Bundle = okBundle()
	rec := do(newTestServer(&fakeDashboard{out: out}, &fakeLimiter{allow: true}), http.MethodPost, "/api/refresh")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestChartImage(t *testing.T) {
	e := newTestServer(&fakeDashboard{out: okOutcome()}, nil)

	rec := do(e, http.MethodGet, "/charts/hourly.png?width=400")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])

	rec = do(e, http.MethodGet, "/charts/minutes.png")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChartImageValidation(t *testing.T) {
	e := newTestServer(&fakeDashboard{out: okOutcome()}, nil)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/charts/daily.png").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/charts/hourly.png?width=9000").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/charts/hourly.png?width=abc").Code)
}

func TestChartImageWithoutData(t *testing.T) {
	d := &fakeDashboard{out: failedOutcome(fmt.Errorf("x: %w", models.ErrNetworkFailure), models.StateNetworkFailure)}
	rec := do(newTestServer(d, nil), http.MethodGet, "/charts/hourly.png")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestExport(t *testing.T) {
	rec := do(newTestServer(&fakeDashboard{out: okOutcome()}, nil), http.MethodGet, "/export.xlsx")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="basil.xlsx"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "PK", rec.Body.String()[:2])
}

func TestStationData(t *testing.T) {
	e := echo.New()
	snap := &models.Snapshot{
		Data:   models.TelemetryPayload{Time: 3, Weight: []float64{1, 2}, Water: []float64{0, 0}},
		Config: models.ThresholdConfig{Max: 5000, Low: 20, Dst: 50, Range: 5},
	}
	NewStationEchoHandler(staticSnapshot{snap}).RegisterRoutes(e)

	rec := do(e, http.MethodGet, "/data")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Data.Time)
	assert.Equal(t, 50.0, got.Config.Dst)
	assert.Nil(t, got.MinData.Weight)
}

type staticSnapshot struct{ s *models.Snapshot }

func (s staticSnapshot) Snapshot() *models.Snapshot { return s.s }
