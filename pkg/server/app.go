package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "PlantDash/pkg/http"
	applogger "PlantDash/pkg/logger"
)

// Component is a background worker owned by the App.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the application lifecycle: start everything, wait for a
// signal, then stop the HTTP server, the components in reverse order and
// finally the closers in registration order.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	components      []Component
	closers         []namedCloser
	shutdownTimeout time.Duration
	signals         []os.Signal
}

// New creates a new App. httpServer may be nil.
func New(log *applogger.Logger, httpServer *xhttp.Server) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		log:             log,
		httpServer:      httpServer,
		shutdownTimeout: 15 * time.Second,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// AddComponent registers a background component. Components start in registration order.
func (a *App) AddComponent(c Component) *App {
	if c != nil {
		a.components = append(a.components, c)
	}
	return a
}

// AddCloser registers a resource closed after every component stopped.
func (a *App) AddCloser(name string, c io.Closer) *App {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
	return a
}

// SetShutdownTimeout bounds the whole shutdown sequence.
func (a *App) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		a.shutdownTimeout = d
	}
}

// Run starts the application and blocks until ctx is cancelled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, a.signals...)
	defer stop()

	started := 0
	for _, c := range a.components {
		if err := c.Start(ctx); err != nil {
			a.log.Error("component start failed", applogger.String("component", c.Name()), applogger.Error(err))
			a.stopComponents(a.components[:started])
			a.closeAll()
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
		a.log.Info("component started", applogger.String("component", c.Name()))
		started++
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			a.stopComponents(a.components)
			a.closeAll()
			return err
		}
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var firstErr error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			firstErr = err
		}
	}
	if err := a.stopComponentsCtx(ctx, a.components); err != nil && firstErr == nil {
		firstErr = err
	}
	a.closeAll()

	a.log.Info("shutdown complete")
	return firstErr
}

func (a *App) stopComponents(cs []Component) {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	_ = a.stopComponentsCtx(ctx, cs)
}

func (a *App) stopComponentsCtx(ctx context.Context, cs []Component) error {
	var firstErr error
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].Stop(ctx); err != nil {
			a.log.Warn("component stop error", applogger.String("component", cs[i].Name()), applogger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (a *App) closeAll() {
	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}
	a.closers = nil
}
