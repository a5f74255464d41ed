package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/user/waferchat/internal/types"
	"github.com/user/waferchat/pkg/llm"
)

// Store is the persistence a Service needs.
type Store interface {
	types.SessionStore
	types.MessageStore
}

// Service binds the runtime and executor to persisted sessions. Calls for
// the same session must be serialized by the caller.
type Service struct {
	rt       *Runtime
	executor *Executor
	store    Store
}

// NewService creates a Service.
func NewService(rt *Runtime, executor *Executor, store Store) *Service {
	return &Service{rt: rt, executor: executor, store: store}
}

// Result is the outcome of a Service call.
type Result struct {
	SessionID types.SessionID `json:"session_id"`
	// Messages holds the messages added by the call.
	Messages []llm.Message `json:"messages"`
	// Pending holds the tool calls awaiting approval after the call.
	Pending []llm.ToolCall `json:"pending"`
}

// Send appends a user message to the session and runs a turn. Calls left
// pending from an earlier turn are rejected first.
func (s *Service) Send(ctx context.Context, key types.SessionKey, text string, cfg llm.Config) (*Result, error) {
	sid, conv, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	base := len(conv)

	for _, tc := range PendingCalls(conv) {
		if conv, err = s.executor.Reject(conv, tc.ID); err != nil {
			return nil, fmt.Errorf("reject stale call: %w", err)
		}
	}
	if base == 0 {
		if err := s.store.SetTitle(ctx, sid, types.TitleFromMessage(text)); err != nil {
			return nil, fmt.Errorf("set title: %w", err)
		}
	}

	conv = append(conv, llm.NewMessage(llm.RoleUser, text))
	return s.turn(ctx, sid, conv, base, cfg)
}

// Edit replaces a user message and reruns the turn from there.
func (s *Service) Edit(ctx context.Context, key types.SessionKey, messageID, text string, cfg llm.Config) (*Result, error) {
	sid, conv, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	conv, err = Edit(conv, messageID, text)
	if err != nil {
		return nil, err
	}
	return s.turn(ctx, sid, conv, len(conv)-1, cfg)
}

// Approve executes a pending tool call. Once no calls remain pending the
// result is sent back to the model.
func (s *Service) Approve(ctx context.Context, key types.SessionKey, callID string, cfg llm.Config) (*Result, error) {
	sid, conv, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	base := len(conv)
	if conv, err = s.executor.Approve(ctx, sid, conv, callID); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sid, conv); err != nil {
		return nil, err
	}
	return s.continueAfterTool(ctx, sid, conv, base, cfg)
}

// Reject declines a pending tool call and reports the refusal to the model.
func (s *Service) Reject(ctx context.Context, key types.SessionKey, callID string, cfg llm.Config) (*Result, error) {
	sid, conv, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	base := len(conv)
	if conv, err = s.executor.Reject(conv, callID); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sid, conv); err != nil {
		return nil, err
	}
	return s.continueAfterTool(ctx, sid, conv, base, cfg)
}

// History returns the session's conversation.
func (s *Service) History(ctx context.Context, key types.SessionKey) (types.SessionID, []llm.Message, error) {
	return s.load(ctx, key)
}

// continueAfterTool runs the follow-up turn once every call has a result.
// conv must already be persisted.
func (s *Service) continueAfterTool(ctx context.Context, sid types.SessionID, conv []llm.Message, base int, cfg llm.Config) (*Result, error) {
	if pending := PendingCalls(conv); len(pending) > 0 {
		return &Result{SessionID: sid, Messages: conv[base:], Pending: pending}, nil
	}
	return s.turn(ctx, sid, conv, base, cfg)
}

// turn runs the model and persists the conversation. A failed turn is
// recorded as an assistant error message before the error is returned.
func (s *Service) turn(ctx context.Context, sid types.SessionID, conv []llm.Message, base int, cfg llm.Config) (*Result, error) {
	next, turnErr := s.rt.Turn(ctx, conv, cfg)
	if turnErr != nil {
		next = append(conv, llm.NewMessage(llm.RoleAssistant, "Error: "+userMessage(turnErr)))
	}
	if err := s.save(ctx, sid, next); err != nil {
		return nil, err
	}
	if turnErr != nil {
		return nil, turnErr
	}
	return &Result{SessionID: sid, Messages: next[base:], Pending: PendingCalls(next)}, nil
}

// save persists conv even when ctx has been cancelled, so a tool result or
// turn outcome is never lost to a disconnected caller.
func (s *Service) save(ctx context.Context, sid types.SessionID, conv []llm.Message) error {
	if err := s.store.SaveMessages(context.WithoutCancel(ctx), sid, conv); err != nil {
		return fmt.Errorf("save messages: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, key types.SessionKey) (types.SessionID, []llm.Message, error) {
	sid, err := s.store.ResolveOrCreate(ctx, key)
	if err != nil {
		return "", nil, fmt.Errorf("resolve session: %w", err)
	}
	conv, err := s.store.Messages(ctx, sid)
	if err != nil {
		return "", nil, fmt.Errorf("load messages: %w", err)
	}
	slog.Debug("session loaded", "session_key", string(key), "surface", key.Surface(), "session_id", string(sid), "messages", len(conv))
	return sid, conv, nil
}

// userMessage renders err for display in the conversation, using the
// typed error beneath any internal wrapping.
func userMessage(err error) string {
	var (
		auth      *llm.AuthenticationError
		malformed *llm.MalformedToolCallError
		provider  *llm.ProviderError
		transport *llm.TransportError
		pre       *llm.PreconditionError
		tool      *llm.ToolExecutionError
	)
	switch {
	case errors.As(err, &auth):
		return auth.Error()
	case errors.As(err, &malformed):
		return malformed.Error()
	case errors.As(err, &provider):
		return provider.Error()
	case errors.As(err, &transport):
		return transport.Error()
	case errors.As(err, &pre):
		return pre.Error()
	case errors.As(err, &tool):
		return tool.Error()
	case errors.Is(err, context.Canceled):
		return "Request cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out."
	default:
		return err.Error()
	}
}
