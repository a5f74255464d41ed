package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/waferchat/internal/types"
)

// ErrStopped is returned for runs that could not execute because the queue
// was stopped.
var ErrStopped = errors.New("gateway stopped")

// Queue manages per-session lanes with a global concurrency semaphore.
// Each session gets its own FIFO channel (lane) so that runs within a
// session are processed sequentially, while the semaphore limits the
// total number of concurrent runs across all sessions.
type Queue struct {
	lanes     map[types.SessionKey]chan *Run
	semaphore *semaphore.Weighted
	active    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewQueue creates a Queue that allows up to maxConcurrent runs to execute
// simultaneously across all session lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:     make(map[types.SessionKey]chan *Run),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for in-flight
// runs to finish. Runs still queued fail with ErrStopped.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, lane := range q.lanes {
		close(lane)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a Run to its session's lane, creating the lane (and its
// goroutine) on first use. Returns an error if the lane's buffer is full.
func (q *Queue) Enqueue(run *Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.ctx == nil {
		return ErrStopped
	}

	lane, exists := q.lanes[run.Key]
	if !exists {
		lane = make(chan *Run, 100)
		q.lanes[run.Key] = lane
		q.wg.Add(1)
		go q.processLane(lane)
	}

	select {
	case lane <- run:
		return nil
	default:
		return fmt.Errorf("queue full for session %s", run.Key)
	}
}

// processLane drains a single session lane, acquiring a semaphore slot
// before executing each run. Runs within a session stay in FIFO order
// while the semaphore limits cross-session parallelism.
func (q *Queue) processLane(lane chan *Run) {
	defer q.wg.Done()
	for run := range lane {
		if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
			run.finish(nil, ErrStopped)
			continue
		}
		q.active.Add(1)
		run.execute()
		if run.Error != nil {
			slog.Error("run failed", "run_id", string(run.ID), "session_key", string(run.Key), "op", run.Op, "error", run.Error)
		} else {
			slog.Debug("run complete", "run_id", string(run.ID), "session_key", string(run.Key), "op", run.Op,
				"duration", run.EndedAt.Sub(*run.StartedAt).Round(time.Millisecond))
		}
		q.active.Add(-1)
		q.semaphore.Release(1)
	}
}

// WaitIdle blocks until no runs are actively being processed, or the timeout
// expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.active.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
}
