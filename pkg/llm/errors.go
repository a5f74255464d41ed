package llm

import (
	"errors"
	"fmt"
)

// Kind classifies errors surfaced by the dispatcher and the executor.
type Kind int

const (
	KindUnknown Kind = iota
	KindPrecondition
	KindTransport
	KindProvider
	KindAuthentication
	KindMalformedToolCall
	KindToolExecution
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindTransport:
		return "transport"
	case KindProvider:
		return "provider"
	case KindAuthentication:
		return "authentication"
	case KindMalformedToolCall:
		return "malformed_tool_call"
	case KindToolExecution:
		return "tool_execution"
	default:
		return "unknown"
	}
}

// PreconditionError reports a request that cannot be sent, such as a
// missing credential or an unsupported provider selector.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

// TransportError reports a request that never produced an HTTP response.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError reports a non-success response from a provider.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Message)
}

// AuthenticationError is a ProviderError caused by a rejected credential.
type AuthenticationError struct {
	Cause *ProviderError
}

func (e *AuthenticationError) Error() string {
	return "Authentication Failed. Please check API Key."
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

// MalformedToolCallError is a ProviderError whose body carries the raw text
// the model produced when structured tool calling failed.
type MalformedToolCallError struct {
	Cause      *ProviderError
	Generation string
}

func (e *MalformedToolCallError) Error() string {
	return fmt.Sprintf("malformed tool call: %v", e.Cause)
}

func (e *MalformedToolCallError) Unwrap() error { return e.Cause }

// ToolExecutionError reports a tool that failed or could not be run.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// Classify returns the most specific kind err carries.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var (
		malformed *MalformedToolCallError
		auth      *AuthenticationError
		provider  *ProviderError
		transport *TransportError
		pre       *PreconditionError
		tool      *ToolExecutionError
	)
	switch {
	case errors.As(err, &malformed):
		return KindMalformedToolCall
	case errors.As(err, &auth):
		return KindAuthentication
	case errors.As(err, &provider):
		return KindProvider
	case errors.As(err, &transport):
		return KindTransport
	case errors.As(err, &pre):
		return KindPrecondition
	case errors.As(err, &tool):
		return KindToolExecution
	default:
		return KindUnknown
	}
}
