package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PlantDash/internal/domain/models"
	domrepo "PlantDash/internal/domain/repository"
	applogger "PlantDash/pkg/logger"
)

const (
	initialBackoff = 50 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// ErrThrottled is returned when a device publishes faster than the configured rate.
var ErrThrottled = errors.New("pipeline: throttled")

// PublishPipeline sits between the dashboard controller and the downstream publishers.
// It validates, throttles per device, and buffers when downstream is unavailable.
type PublishPipeline struct {
	pub     domrepo.Publisher
	metrics domrepo.Metrics
	log     *applogger.Logger
	maxRPS  int
	bufSize int
	bufCh   chan *models.BundleSummary
	now     func() time.Time

	mu       sync.Mutex
	started  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	lastSeen map[string]time.Time
}

type PipelineOption func(*PublishPipeline)

// WithMaxRPS sets the max summaries per second per device.
func WithMaxRPS(n int) PipelineOption {
	return func(p *PublishPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *PublishPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *applogger.Logger) PipelineOption {
	return func(p *PublishPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPublishPipeline creates a new pipeline in front of pub.
func NewPublishPipeline(pub domrepo.Publisher, metrics domrepo.Metrics, opts ...PipelineOption) *PublishPipeline {
	p := &PublishPipeline{
		pub:      pub,
		metrics:  metrics,
		log:      applogger.Nop(),
		maxRPS:   1,
		bufSize:  64,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.BundleSummary, p.bufSize)
	return p
}

// Name identifies the pipeline in the application lifecycle.
func (p *PublishPipeline) Name() string { return "publish-pipeline" }

// Start launches background flushing of buffered summaries.
func (p *PublishPipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	p.started = true
	p.stopCh = make(chan struct{})

	p.wg.Add(1)
	go p.flushLoop(ctx, p.stopCh)
	return nil
}

func (p *PublishPipeline) flushLoop(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()
	backoff := initialBackoff
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case s := <-p.bufCh:
			err := p.pub.Publish(ctx, s)
			if err == nil {
				backoff = initialBackoff
				p.metrics.RecordPublished("pipeline", s.Device)
				continue
			}

			p.metrics.RecordError("pipeline_flush")
			p.log.Debug("buffered publish failed",
				applogger.String("device", s.Device),
				applogger.Duration("backoff_ms", backoff),
				applogger.Error(err),
			)
			select {
			case p.bufCh <- s:
			default:
				p.metrics.RecordError("pipeline_buffer_drop")
			}
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}
	}
}

// Stop stops the background flushing. Summaries still buffered are reported and dropped.
func (p *PublishPipeline) Stop(_ context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	if n := len(p.bufCh); n > 0 {
		p.log.Warn("pipeline stopped with buffered summaries", applogger.Int("buffered", n))
	}
	return nil
}

// Buffered returns the number of summaries waiting for downstream.
func (p *PublishPipeline) Buffered() int { return len(p.bufCh) }

// Process validates, throttles, and forwards a summary downstream, buffering on errors.
func (p *PublishPipeline) Process(ctx context.Context, s *models.BundleSummary) error {
	start := p.now()
	if err := validateSummary(s); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(s.Device, start) {
		p.metrics.RecordError("pipeline_throttle")
		return ErrThrottled
	}

	if err := p.pub.Publish(ctx, s); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- s:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordPublished("pipeline", s.Device)
	p.metrics.RecordLatency("pipeline_process", p.now().Sub(start).Seconds())
	return nil
}

func validateSummary(s *models.BundleSummary) error {
	if s == nil {
		return fmt.Errorf("summary nil")
	}
	if s.Device == "" {
		return fmt.Errorf("device empty")
	}
	if s.RefreshID == "" {
		return fmt.Errorf("refresh id empty")
	}
	if s.GeneratedAt.IsZero() {
		return fmt.Errorf("generated_at missing")
	}
	if s.LastHour < 0 || s.LastHour > 23 {
		return fmt.Errorf("last hour %d out of range", s.LastHour)
	}
	if s.LastWeight < 0 || s.LastWatering < 0 {
		return fmt.Errorf("negative weight/watering")
	}
	return nil
}

func (p *PublishPipeline) allow(device string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	last := p.lastSeen[device]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[device] = now
	return true
}
