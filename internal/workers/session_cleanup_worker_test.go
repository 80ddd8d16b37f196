package workers

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePruner counts PruneIdle calls and can be told to panic.
type fakePruner struct {
	mu        sync.Mutex
	calls     int
	lastIdle  time.Duration
	removed   int
	panicking bool
}

func (f *fakePruner) PruneIdle(maxIdle time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastIdle = maxIdle
	if f.panicking {
		panic("store unavailable")
	}
	return f.removed
}

func (f *fakePruner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testCleanupConfig() SessionCleanupConfig {
	return SessionCleanupConfig{
		WorkerConfig: WorkerConfig{
			WorkerName:      "session-cleanup",
			Interval:        10 * time.Millisecond,
			ShutdownTimeout: time.Second,
		},
		MaxIdle: 24 * time.Hour,
	}
}

func testWorkerLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestDefaultSessionCleanupConfig(t *testing.T) {
	config := DefaultSessionCleanupConfig()

	assert.Equal(t, "session-cleanup", config.WorkerName)
	assert.Equal(t, time.Hour, config.Interval)
	assert.Equal(t, 5*time.Second, config.ShutdownTimeout)
	assert.Equal(t, 24*time.Hour, config.MaxIdle)
}

func TestSessionCleanupWorker_StartStop(t *testing.T) {
	pruner := &fakePruner{removed: 2}
	worker := NewSessionCleanupWorker(testCleanupConfig(), pruner, testWorkerLogger())

	ctx := context.Background()
	require.NoError(t, worker.Start(ctx))
	assert.True(t, worker.IsRunning())

	// Starting twice is an error
	assert.Error(t, worker.Start(ctx))

	// Let a few ticks fire
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, worker.Stop(ctx))
	assert.False(t, worker.IsRunning())

	assert.GreaterOrEqual(t, pruner.callCount(), 1)
	assert.Equal(t, 24*time.Hour, pruner.lastIdle)

	stats := worker.Stats()
	assert.GreaterOrEqual(t, stats.RunsCompleted, int64(1))
	assert.Equal(t, int64(0), stats.RunsFailed)
}

func TestSessionCleanupWorker_StopWhenNotRunning(t *testing.T) {
	worker := NewSessionCleanupWorker(testCleanupConfig(), &fakePruner{}, testWorkerLogger())

	assert.NoError(t, worker.Stop(context.Background()))
}

func TestSessionCleanupWorker_ContextCancelStopsLoop(t *testing.T) {
	worker := NewSessionCleanupWorker(testCleanupConfig(), &fakePruner{}, testWorkerLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, worker.Start(ctx))

	cancel()
	time.Sleep(50 * time.Millisecond)

	assert.False(t, worker.IsRunning())
}

func TestSessionCleanupWorker_RecoversFromPanic(t *testing.T) {
	pruner := &fakePruner{panicking: true}
	worker := NewSessionCleanupWorker(testCleanupConfig(), pruner, testWorkerLogger())

	ctx := context.Background()
	require.NoError(t, worker.Start(ctx))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, worker.Stop(ctx))

	stats := worker.Stats()
	assert.GreaterOrEqual(t, stats.RunsFailed, int64(1))
	assert.Equal(t, int64(0), stats.RunsCompleted)
}
