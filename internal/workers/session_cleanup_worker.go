package workers

import (
	"context"
	"fmt"
	"log"
	"time"
)

// SessionPruner is the store surface the cleanup worker needs.
type SessionPruner interface {
	PruneIdle(maxIdle time.Duration) int
}

// SessionCleanupWorker periodically evicts sessions that have been idle
// longer than MaxIdle, keeping the in-memory store bounded over long
// uptimes.
type SessionCleanupWorker struct {
	*BaseWorker
	sessions SessionPruner
	maxIdle  time.Duration
	logger   *log.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// SessionCleanupConfig configures the cleanup worker.
type SessionCleanupConfig struct {
	WorkerConfig
	// MaxIdle is how long a session may sit untouched before eviction
	MaxIdle time.Duration
}

// DefaultSessionCleanupConfig returns a configuration that prunes sessions
// idle for more than 24 hours, checking once an hour.
func DefaultSessionCleanupConfig() SessionCleanupConfig {
	return SessionCleanupConfig{
		WorkerConfig: WorkerConfig{
			WorkerName:      "session-cleanup",
			Interval:        time.Hour,
			ShutdownTimeout: 5 * time.Second,
		},
		MaxIdle: 24 * time.Hour,
	}
}

// NewSessionCleanupWorker creates a new session cleanup worker
func NewSessionCleanupWorker(config SessionCleanupConfig, sessions SessionPruner, logger *log.Logger) *SessionCleanupWorker {
	return &SessionCleanupWorker{
		BaseWorker: NewBaseWorker(config.WorkerConfig),
		sessions:   sessions,
		maxIdle:    config.MaxIdle,
		logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the periodic cleanup loop.
func (w *SessionCleanupWorker) Start(ctx context.Context) error {
	if w.IsRunning() {
		return fmt.Errorf("%s: already running", w.Name())
	}
	w.setRunning(true)
	w.logger.Printf("✅ %s started (interval: %v, max idle: %v)", w.Name(), w.Config().Interval, w.maxIdle)

	go w.loop(ctx)
	return nil
}

// Stop signals the loop to exit and waits up to ShutdownTimeout.
func (w *SessionCleanupWorker) Stop(ctx context.Context) error {
	if !w.IsRunning() {
		return nil
	}
	close(w.stopCh)

	timeout := w.Config().ShutdownTimeout
	select {
	case <-w.doneCh:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%s: shutdown timed out after %v", w.Name(), timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *SessionCleanupWorker) loop(ctx context.Context) {
	defer func() {
		w.setRunning(false)
		close(w.doneCh)
	}()

	ticker := time.NewTicker(w.Config().Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runOnce()
		case <-w.stopCh:
			w.logger.Printf("%s stopped", w.Name())
			return
		case <-ctx.Done():
			w.logger.Printf("%s stopped: %v", w.Name(), ctx.Err())
			return
		}
	}
}

func (w *SessionCleanupWorker) runOnce() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Printf("❌ %s: recovered from panic: %v", w.Name(), r)
			w.recordRun(true)
		}
	}()

	removed := w.sessions.PruneIdle(w.maxIdle)
	if removed > 0 {
		w.logger.Printf("🗑️ %s: evicted %d idle sessions", w.Name(), removed)
	}
	w.recordRun(false)
}
