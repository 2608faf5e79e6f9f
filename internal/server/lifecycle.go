// Package server provides application lifecycle management including
// graceful startup and shutdown with signal handling.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service represents a long-running component that can be started and
// stopped. Start blocks until the service stops or fails; Stop must be
// safe to call while Start is blocked.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle manages the startup and shutdown of multiple services.
// Services are started in registration order and stopped in reverse order,
// each at most once.
type Lifecycle struct {
	logger   *zap.Logger
	mu       sync.Mutex
	services []*managedService
}

type managedService struct {
	name    string
	service Service
	stop    sync.Once
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers a named service for lifecycle management.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, &managedService{name: name, service: svc})
}

// Run starts all services and blocks until a termination signal arrives
// (SIGINT or SIGTERM), a service fails, or ctx is cancelled. It then stops
// all services in reverse order.
//
// Postcondition: Every added service has had Stop called exactly once when
// this method returns. Returns the first service error, if any.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	l.mu.Lock()
	services := make([]*managedService, len(l.services))
	copy(services, l.services)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ms := range services {
		ms := ms
		go func() {
			l.logger.Info("starting service", zap.String("service", ms.name))
			if err := ms.service.Start(); err != nil {
				errCh <- fmt.Errorf("service %s: %w", ms.name, err)
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case err := <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(err))
		runErr = err
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.shutdown(services)

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return runErr
}

// shutdown stops services in reverse registration order, each at most once.
func (l *Lifecycle) shutdown(services []*managedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ms := services[i]
		ms.stop.Do(func() {
			stopStart := time.Now()
			l.logger.Info("stopping service", zap.String("service", ms.name))
			ms.service.Stop()
			l.logger.Info("service stopped",
				zap.String("service", ms.name),
				zap.Duration("elapsed", time.Since(stopStart)),
			)
		})
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}
