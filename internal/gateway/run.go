package gateway

import (
	"context"
	"time"

	"github.com/user/waferchat/internal/runtime"
	"github.com/user/waferchat/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunFunc performs the work of a Run.
type RunFunc func(ctx context.Context) (*runtime.Result, error)

// Run tracks a single operation against a session.
type Run struct {
	ID        types.RunID
	Key       types.SessionKey
	Op        string
	Status    RunStatus
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	Error     error

	ctx    context.Context
	fn     RunFunc
	result *runtime.Result
	done   chan struct{}
}

// NewRun creates a Run in the Queued state. fn runs with ctx once the
// session's lane reaches it.
func NewRun(ctx context.Context, key types.SessionKey, op string, fn RunFunc) *Run {
	return &Run{
		ID:        types.NewRunID(),
		Key:       key,
		Op:        op,
		Status:    RunStatusQueued,
		CreatedAt: time.Now(),
		ctx:       ctx,
		fn:        fn,
		done:      make(chan struct{}),
	}
}

func (r *Run) execute() {
	now := time.Now()
	r.StartedAt = &now
	r.Status = RunStatusRunning

	if err := r.ctx.Err(); err != nil {
		r.finish(nil, err)
		return
	}
	r.finish(r.fn(r.ctx))
}

func (r *Run) finish(res *runtime.Result, err error) {
	now := time.Now()
	r.EndedAt = &now
	r.result, r.Error = res, err
	if err != nil {
		r.Status = RunStatusFailed
	} else {
		r.Status = RunStatusComplete
	}
	close(r.done)
}

// Wait blocks until the run finishes or ctx is done.
func (r *Run) Wait(ctx context.Context) (*runtime.Result, error) {
	select {
	case <-r.done:
		return r.result, r.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
