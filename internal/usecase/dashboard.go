package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"PlantDash/internal/domain/models"
	drepo "PlantDash/internal/domain/repository"
	dsvc "PlantDash/internal/domain/service"
	"PlantDash/internal/middleware"
	applogger "PlantDash/pkg/logger"

	"github.com/google/uuid"
)

// Canvas ids of the two dashboard charts.
const (
	HourlyChartID = "wchart"
	MinuteChartID = "minchart"
)

// ChartObject is one chart region of the dashboard. The controller is its only writer.
type ChartObject struct {
	ID        string
	Version   uint64
	UpdatedAt time.Time
	Hourly    *models.HourlyChart
	Minutes   *models.MinuteChart
}

// SummaryProcessor receives the summary of each successful refresh.
type SummaryProcessor interface {
	Process(ctx context.Context, s *models.BundleSummary) error
}

// RenderObserver records render calls.
type RenderObserver interface {
	Observe(format string, bytes int64, d time.Duration, err error)
}

type inflight struct {
	done chan struct{}
	out  models.Outcome
}

// DashboardController runs fetch, transform and render for one device and
// owns the two chart objects. It is safe for concurrent use.
type DashboardController struct {
	device   string
	title    string
	ttl      time.Duration
	timeout  time.Duration
	source   drepo.SnapshotSource
	agg      dsvc.Aggregator
	store    drepo.BundleStore
	pipeline SummaryProcessor
	metrics  drepo.Metrics
	observer RenderObserver
	log      *applogger.Logger
	now      func() time.Time
	newID    func() string

	mu        sync.RWMutex
	wchart    ChartObject
	minchart  ChartObject
	meta      models.ChartSeriesBundle
	status    models.RefreshStatus
	fetchedAt time.Time

	flightMu sync.Mutex
	flight   *inflight
}

// ControllerOption configures DashboardController.
type ControllerOption func(*DashboardController)

// WithBundleStore keeps the last good bundle in a shared cache.
func WithBundleStore(s drepo.BundleStore) ControllerOption {
	return func(c *DashboardController) { c.store = s }
}

// WithSummaryProcessor forwards refresh summaries downstream.
func WithSummaryProcessor(p SummaryProcessor) ControllerOption {
	return func(c *DashboardController) { c.pipeline = p }
}

// WithRenderObserver records render latency and size.
func WithRenderObserver(o RenderObserver) ControllerOption {
	return func(c *DashboardController) { c.observer = o }
}

// WithTitle sets the page title shown by renderers.
func WithTitle(title string) ControllerOption {
	return func(c *DashboardController) {
		if title != "" {
			c.title = title
		}
	}
}

// WithTTL sets how long a good bundle is served without contacting the device.
func WithTTL(ttl time.Duration) ControllerOption {
	return func(c *DashboardController) { c.ttl = ttl }
}

// WithRefreshTimeout bounds a shared refresh. It is detached from the
// requests waiting on it, so this is its only deadline.
func WithRefreshTimeout(d time.Duration) ControllerOption {
	return func(c *DashboardController) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(l *applogger.Logger) ControllerOption {
	return func(c *DashboardController) {
		if l != nil {
			c.log = l
		}
	}
}

// NewDashboardController creates a controller for device.
func NewDashboardController(
	device string,
	source drepo.SnapshotSource,
	agg dsvc.Aggregator,
	metrics drepo.Metrics,
	opts ...ControllerOption,
) *DashboardController {
	c := &DashboardController{
		device:   device,
		title:    "Plant Care",
		ttl:      30 * time.Second,
		timeout:  20 * time.Second,
		source:   source,
		agg:      agg,
		metrics:  metrics,
		log:      applogger.Nop(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		wchart:   ChartObject{ID: HourlyChartID},
		minchart: ChartObject{ID: MinuteChartID},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(applogger.String("device", device))
	c.status = models.RefreshStatus{State: models.StatePending, Device: device}
	return c
}

// Device returns the device name.
func (c *DashboardController) Device() string { return c.device }

// Refresh returns the current bundle, fetching a new snapshot when the cached
// one is older than the TTL or force is set. Concurrent callers share one fetch.
func (c *DashboardController) Refresh(ctx context.Context, force bool) models.Outcome {
	if !force {
		if out, ok := c.cached(ctx); ok {
			return out
		}
	}

	c.flightMu.Lock()
	f := c.flight
	if f == nil {
		f = &inflight{done: make(chan struct{})}
		c.flight = f
		go c.fly(ctx, f)
	}
	c.flightMu.Unlock()

	select {
	case <-f.done:
		return f.out
	case <-ctx.Done():
		bundle, status := c.Current()
		return models.Outcome{Bundle: bundle, Status: status, Err: ctx.Err()}
	}
}

// fly runs one shared refresh. A caller going away does not cancel it.
func (c *DashboardController) fly(ctx context.Context, f *inflight) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	f.out = c.refresh(fctx)

	c.flightMu.Lock()
	c.flight = nil
	c.flightMu.Unlock()
	close(f.done)
}

func (c *DashboardController) cached(ctx context.Context) (models.Outcome, bool) {
	c.mu.RLock()
	fresh := c.wchart.Hourly != nil && c.status.OK() && c.now().Sub(c.fetchedAt) < c.ttl
	if fresh {
		out := models.Outcome{Bundle: c.bundleLocked(), Status: c.status, Cached: true}
		c.mu.RUnlock()
		return out, true
	}
	empty := c.wchart.Hourly == nil
	c.mu.RUnlock()

	if !empty || c.store == nil {
		return models.Outcome{}, false
	}
	b, err := c.store.Load(ctx, c.device)
	if err != nil {
		c.log.Warn("bundle store load failed", applogger.Error(err))
		return models.Outcome{}, false
	}
	if b == nil || c.now().Sub(b.GeneratedAt) >= c.ttl {
		return models.Outcome{}, false
	}

	c.mu.Lock()
	c.apply(b, b.GeneratedAt)
	c.status = models.RefreshStatus{State: models.StateOK, Device: c.device, UpdatedAt: b.GeneratedAt}
	c.fetchedAt = b.GeneratedAt
	out := models.Outcome{Bundle: c.bundleLocked(), Status: c.status, Cached: true}
	c.mu.Unlock()
	return out, true
}

func (c *DashboardController) refresh(ctx context.Context) models.Outcome {
	start := c.now()
	id := c.newID()

	snap, err := c.source.Fetch(ctx)
	if errors.Is(err, context.Canceled) {
		bundle, status := c.Current()
		return models.Outcome{Bundle: bundle, Status: status, Err: err}
	}
	if err != nil {
		return c.fail(id, err)
	}
	bundle, err := c.agg.Build(snap)
	if err != nil {
		return c.fail(id, err)
	}

	now := c.now()
	c.mu.Lock()
	c.apply(bundle, now)
	c.status = models.RefreshStatus{
		State:     models.StateOK,
		RefreshID: id,
		Device:    c.device,
		UpdatedAt: now,
	}
	c.fetchedAt = now
	out := models.Outcome{Bundle: c.bundleLocked(), Status: c.status}
	c.mu.Unlock()

	c.metrics.RecordRefresh(c.device, string(models.StateOK))
	c.metrics.RecordLatency("refresh", now.Sub(start).Seconds())
	summary := bundle.Summarize(c.device, id)
	if bundle.Hourly.Len() > 0 {
		c.metrics.RecordLastWeight(c.device, summary.LastWeight)
	}
	c.log.Debug("dashboard refreshed",
		applogger.String("refresh_id", id),
		applogger.Int("hours", bundle.Hourly.Len()),
		applogger.Int("minutes", bundle.Minutes.Len()),
	)

	if c.store != nil {
		if err := c.store.Save(ctx, c.device, bundle); err != nil {
			c.metrics.RecordError("bundle_store")
			c.log.Warn("bundle store save failed", applogger.Error(err))
		}
	}
	if c.pipeline != nil {
		if err := c.pipeline.Process(ctx, summary); err != nil && !errors.Is(err, middleware.ErrThrottled) {
			c.log.Warn("summary publish failed", applogger.String("refresh_id", id), applogger.Error(err))
		}
	}
	return out
}

func (c *DashboardController) fail(id string, err error) models.Outcome {
	state := models.StateNetworkFailure
	if errors.Is(err, models.ErrInvalidPayload) {
		state = models.StateInvalidPayload
	}

	c.mu.Lock()
	c.status = models.RefreshStatus{
		State:     state,
		Message:   err.Error(),
		RefreshID: id,
		Device:    c.device,
		UpdatedAt: c.now(),
		Stale:     c.wchart.Hourly != nil,
	}
	out := models.Outcome{Bundle: c.bundleLocked(), Status: c.status, Err: err}
	c.mu.Unlock()

	c.metrics.RecordRefresh(c.device, string(state))
	c.metrics.RecordError(string(state))
	c.log.Warn("dashboard refresh failed",
		applogger.String("refresh_id", id),
		applogger.String("state", string(state)),
		applogger.Bool("stale", out.Status.Stale),
		applogger.Error(err),
	)
	return out
}

// apply writes a new bundle into both chart objects. Caller holds mu.
func (c *DashboardController) apply(b *models.ChartSeriesBundle, at time.Time) {
	hourly := b.Hourly
	minutes := b.Minutes
	c.wchart.Hourly = &hourly
	c.wchart.Version++
	c.wchart.UpdatedAt = at
	c.minchart.Minutes = &minutes
	c.minchart.Version++
	c.minchart.UpdatedAt = at
	c.meta = models.ChartSeriesBundle{Config: b.Config, Averaging: b.Averaging, GeneratedAt: b.GeneratedAt}
}

// bundleLocked composes a bundle from the chart objects. Caller holds mu.
func (c *DashboardController) bundleLocked() *models.ChartSeriesBundle {
	if c.wchart.Hourly == nil {
		return nil
	}
	b := c.meta
	b.Hourly = *c.wchart.Hourly
	if c.minchart.Minutes != nil {
		b.Minutes = *c.minchart.Minutes
	}
	return &b
}

// Current returns the bundle currently shown and the latest refresh status.
// The bundle is nil until the first successful refresh.
func (c *DashboardController) Current() (*models.ChartSeriesBundle, models.RefreshStatus) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bundleLocked(), c.status
}

// Charts returns copies of the two chart objects.
func (c *DashboardController) Charts() (ChartObject, ChartObject) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wchart, c.minchart
}

// View returns what renderers draw.
func (c *DashboardController) View() dsvc.DashboardView {
	bundle, status := c.Current()
	return dsvc.DashboardView{Title: c.title, Device: c.device, Bundle: bundle, Status: status}
}

// Render draws the current chart objects with r.
func (c *DashboardController) Render(ctx context.Context, r dsvc.ChartRenderer, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	cw := &countingWriter{w: w}
	err := r.Render(cw, c.View())
	if c.observer != nil {
		c.observer.Observe(r.Name(), cw.n, time.Since(start), err)
	}
	if err != nil {
		c.metrics.RecordError("render_" + r.Name())
		return fmt.Errorf("render %s: %w", r.Name(), err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
