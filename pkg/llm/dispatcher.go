package llm

import (
	"context"
	"errors"
	"log/slog"
)

// RecoveredMarker is the response content used when a tool call was
// reconstructed from a malformed generation.
const RecoveredMarker = "System: Recovered tool command from raw stream."

// State is a step of the dispatch state machine. It is only logged.
type State string

const (
	StateSending       State = "sending"
	StateSucceeded     State = "succeeded"
	StateProviderError State = "provider_error"
	StateRecovering    State = "recovering"
	StateFailed        State = "failed"
)

// Dispatcher routes a request to the provider selected by the config and
// recovers tool calls from malformed generations. It holds no per-call state.
type Dispatcher struct {
	factory ProviderFactory
	newID   func() string
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithIDGenerator overrides how recovered tool call IDs are generated.
func WithIDGenerator(fn func() string) DispatcherOption {
	return func(d *Dispatcher) { d.newID = fn }
}

// NewDispatcher creates a dispatcher over factory.
func NewDispatcher(factory ProviderFactory, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{factory: factory, newID: NewRecoveredID}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends messages to the provider cfg selects. Precondition failures
// are returned before any network activity. A MalformedToolCallError whose
// generation can be parsed yields a single recovered tool call; otherwise it
// is reported as the underlying ProviderError.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []Message, cfg Config) (*Response, error) {
	variant, err := SelectVariant(cfg)
	if err != nil {
		return nil, err
	}
	provider, err := d.factory.Provider(variant)
	if err != nil {
		return nil, err
	}

	log := slog.With("provider", variant.String(), "model", cfg.Model)
	log.Debug("dispatch", "state", StateSending, "messages", len(messages))

	resp, err := provider.Send(ctx, messages, cfg)
	if err == nil {
		log.Debug("dispatch", "state", StateSucceeded, "tool_calls", len(resp.ToolCalls))
		return resp, nil
	}

	log.Debug("dispatch", "state", StateProviderError, "kind", Classify(err).String())
	var malformed *MalformedToolCallError
	if !errors.As(err, &malformed) {
		log.Debug("dispatch", "state", StateFailed, "error", err)
		return nil, err
	}

	log.Warn("dispatch", "state", StateRecovering, "error", err)
	call, ok := Recover(malformed.Generation)
	if !ok {
		log.Warn("dispatch", "state", StateFailed, "reason", "unrecoverable generation")
		if malformed.Cause != nil {
			return nil, malformed.Cause
		}
		return nil, &ProviderError{Message: malformed.Error()}
	}

	id := d.newID()
	log.Info("recovered tool call", "tool", call.Name, "tool_call_id", id)
	return &Response{
		Content: RecoveredMarker,
		ToolCalls: []PendingCall{{
			ID:     id,
			Name:   call.Name,
			Args:   call.Args,
			Origin: OriginRecovered,
		}},
	}, nil
}
