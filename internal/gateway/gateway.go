package gateway

import (
	"context"

	"github.com/user/waferchat/internal/runtime"
	"github.com/user/waferchat/internal/types"
	"github.com/user/waferchat/pkg/llm"
)

// Turns is the session-level conversation API the gateway serializes.
// *runtime.Service implements it.
type Turns interface {
	Send(ctx context.Context, key types.SessionKey, text string, cfg llm.Config) (*runtime.Result, error)
	Edit(ctx context.Context, key types.SessionKey, messageID, text string, cfg llm.Config) (*runtime.Result, error)
	Approve(ctx context.Context, key types.SessionKey, callID string, cfg llm.Config) (*runtime.Result, error)
	Reject(ctx context.Context, key types.SessionKey, callID string, cfg llm.Config) (*runtime.Result, error)
}

// Gateway routes conversation operations through per-session lanes so
// that operations on one session never interleave.
type Gateway struct {
	turns  Turns
	config func() llm.Config
	Queue  *Queue

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Gateway. config is called for every run to obtain the
// request configuration.
func New(turns Turns, config func() llm.Config, maxConcurrent int64) *Gateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &Gateway{
		turns:  turns,
		config: config,
		Queue:  NewQueue(maxConcurrent),
	}
}

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context and stops the queue.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
}

// Send appends a user message and runs a turn.
func (g *Gateway) Send(ctx context.Context, key types.SessionKey, text string) (*runtime.Result, error) {
	return g.submit(ctx, key, "send", func(ctx context.Context) (*runtime.Result, error) {
		return g.turns.Send(ctx, key, text, g.config())
	})
}

// Edit replaces a user message and reruns the turn.
func (g *Gateway) Edit(ctx context.Context, key types.SessionKey, messageID, text string) (*runtime.Result, error) {
	return g.submit(ctx, key, "edit", func(ctx context.Context) (*runtime.Result, error) {
		return g.turns.Edit(ctx, key, messageID, text, g.config())
	})
}

// Approve executes a pending tool call.
func (g *Gateway) Approve(ctx context.Context, key types.SessionKey, callID string) (*runtime.Result, error) {
	return g.submit(ctx, key, "approve", func(ctx context.Context) (*runtime.Result, error) {
		return g.turns.Approve(ctx, key, callID, g.config())
	})
}

// Reject declines a pending tool call.
func (g *Gateway) Reject(ctx context.Context, key types.SessionKey, callID string) (*runtime.Result, error) {
	return g.submit(ctx, key, "reject", func(ctx context.Context) (*runtime.Result, error) {
		return g.turns.Reject(ctx, key, callID, g.config())
	})
}

func (g *Gateway) submit(ctx context.Context, key types.SessionKey, op string, fn RunFunc) (*runtime.Result, error) {
	run := NewRun(ctx, key, op, fn)
	if err := g.Queue.Enqueue(run); err != nil {
		return nil, err
	}
	return run.Wait(ctx)
}
