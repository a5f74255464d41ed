package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/waferchat/pkg/llm"
)

// Errors returned by Truncate and Edit.
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotEditable     = errors.New("only user messages can be edited")
)

// Dispatcher sends a conversation to the configured provider.
type Dispatcher interface {
	Dispatch(ctx context.Context, messages []llm.Message, cfg llm.Config) (*llm.Response, error)
}

// HistoryFitter trims a conversation to what fits the model's context.
type HistoryFitter interface {
	Fit(messages []llm.Message, systemPrompt string) []llm.Message
}

// Runtime runs single model turns over caller-owned conversations.
type Runtime struct {
	dispatcher Dispatcher
	history    HistoryFitter
	retry      *RetryPolicy
}

// New creates a Runtime. history may be nil, in which case the whole
// conversation is sent; retry may be nil to disable retries.
func New(dispatcher Dispatcher, history HistoryFitter, retry *RetryPolicy) *Runtime {
	if retry == nil {
		retry = &RetryPolicy{MaxAttempts: 1, Multiplier: 1}
	}
	return &Runtime{dispatcher: dispatcher, history: history, retry: retry}
}

// Turn dispatches conv and returns a new conversation with the assistant
// message appended. Tool calls in the reply are left pending for approval.
func (rt *Runtime) Turn(ctx context.Context, conv []llm.Message, cfg llm.Config) ([]llm.Message, error) {
	sent := conv
	if rt.history != nil {
		sent = rt.history.Fit(conv, cfg.SystemPrompt)
	}

	start := time.Now()
	var resp *llm.Response
	err := rt.retry.Execute(ctx, func() error {
		r, err := rt.dispatcher.Dispatch(ctx, sent, cfg)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		slog.Warn("turn failed", "model", cfg.Model, "kind", llm.Classify(err).String(), "error", err)
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	msg := resp.Message()
	slog.Info("turn complete",
		"model", cfg.Model,
		"sent", len(sent),
		"dropped", len(conv)-len(sent),
		"tool_calls", len(msg.ToolCalls),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	out := make([]llm.Message, len(conv), len(conv)+1)
	copy(out, conv)
	return append(out, msg), nil
}

// Truncate returns the conversation preceding messageID, dropping the
// message and everything after it.
func Truncate(conv []llm.Message, messageID string) ([]llm.Message, error) {
	for i, m := range conv {
		if m.ID == messageID {
			out := make([]llm.Message, i)
			copy(out, conv[:i])
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
}

// Edit replaces the user message messageID with new content, discarding
// everything after it. The edited message keeps its ID.
func Edit(conv []llm.Message, messageID, content string) ([]llm.Message, error) {
	out, err := Truncate(conv, messageID)
	if err != nil {
		return nil, err
	}
	if role := conv[len(out)].Role; role != llm.RoleUser {
		return nil, fmt.Errorf("%w: %s is a %s message", ErrNotEditable, messageID, role)
	}
	msg := llm.NewMessage(llm.RoleUser, content)
	msg.ID = messageID
	return append(out, msg), nil
}

// PendingCalls returns the calls in conv still awaiting approval.
func PendingCalls(conv []llm.Message) []llm.ToolCall {
	var out []llm.ToolCall
	for _, m := range conv {
		for _, tc := range m.ToolCalls {
			if tc.Pending() {
				out = append(out, tc)
			}
		}
	}
	return out
}
