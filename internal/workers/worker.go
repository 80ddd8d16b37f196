package workers

import (
	"context"
	"sync"
	"time"
)

// Worker defines the interface for background workers
type Worker interface {
	// Start begins the worker's periodic loop
	Start(ctx context.Context) error

	// Stop gracefully shuts down the worker
	Stop(ctx context.Context) error

	// Name returns the worker's name
	Name() string

	// IsRunning returns whether the worker is currently running
	IsRunning() bool

	// Stats returns worker statistics
	Stats() WorkerStats
}

// WorkerStats represents statistics about a worker
type WorkerStats struct {
	WorkerName    string        `json:"worker_name"`
	RunsCompleted int64         `json:"runs_completed"`
	RunsFailed    int64         `json:"runs_failed"`
	LastRunTime   time.Time     `json:"last_run_time,omitempty"`
	Uptime        time.Duration `json:"uptime"`
	IsRunning     bool          `json:"is_running"`
}

// WorkerConfig holds configuration for workers
type WorkerConfig struct {
	// WorkerName is a unique identifier for this worker instance
	WorkerName string

	// Interval is how often the worker runs its task
	Interval time.Duration

	// ShutdownTimeout is how long to wait for graceful shutdown
	ShutdownTimeout time.Duration
}

// BaseWorker provides lifecycle and stats tracking shared by workers.
type BaseWorker struct {
	config  WorkerConfig
	running bool
	mu      sync.RWMutex

	runsCompleted int64
	runsFailed    int64
	startTime     time.Time
	lastRunTime   time.Time
	statsMu       sync.RWMutex
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(config WorkerConfig) *BaseWorker {
	return &BaseWorker{config: config}
}

// Name returns the worker's name
func (w *BaseWorker) Name() string {
	return w.config.WorkerName
}

// IsRunning returns whether the worker is currently running
func (w *BaseWorker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *BaseWorker) setRunning(running bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = running
	if running {
		w.startTime = time.Now()
	}
}

// Stats returns worker statistics
func (w *BaseWorker) Stats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()

	var uptime time.Duration
	if !w.startTime.IsZero() {
		uptime = time.Since(w.startTime)
	}

	return WorkerStats{
		WorkerName:    w.config.WorkerName,
		RunsCompleted: w.runsCompleted,
		RunsFailed:    w.runsFailed,
		LastRunTime:   w.lastRunTime,
		Uptime:        uptime,
		IsRunning:     w.IsRunning(),
	}
}

func (w *BaseWorker) recordRun(failed bool) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	if failed {
		w.runsFailed++
	} else {
		w.runsCompleted++
	}
	w.lastRunTime = time.Now()
}

// Config returns the worker configuration
func (w *BaseWorker) Config() WorkerConfig {
	return w.config
}
