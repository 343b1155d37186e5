package ratelimit

import (
	"context"
	"sync"
	"time"

	applogger "PlantDash/pkg/logger"
)

// Janitor prunes idle buckets on an interval so the key map does not grow with every client seen.
type Janitor struct {
	limiter  *Limiter
	interval time.Duration
	log      *applogger.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewJanitor creates a janitor for l. A non-positive interval defaults to one minute.
func NewJanitor(l *Limiter, interval time.Duration, log *applogger.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &Janitor{limiter: l, interval: interval, log: log, stopCh: make(chan struct{})}
}

func (j *Janitor) Name() string { return "ratelimit-janitor" }

func (j *Janitor) Start(ctx context.Context) error {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		t := time.NewTicker(j.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-j.stopCh:
				return
			case <-t.C:
				if n := j.limiter.Prune(); n > 0 {
					j.log.Debug("rate limit buckets pruned", applogger.Int("count", n))
				}
			}
		}
	}()
	return nil
}

func (j *Janitor) Stop(ctx context.Context) error {
	j.stopOnce.Do(func() { close(j.stopCh) })
	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
