package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one entry of a conversation. A tool message's ID equals the
// ID of the tool call it answers and its Content is JSON text.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// NewMessage creates a message with a fresh ID and the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewToolMessage creates the tool message answering callID.
func NewToolMessage(callID string, result ToolResult) (Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return Message{}, fmt.Errorf("encoding tool result: %w", err)
	}
	return Message{
		ID:        callID,
		Role:      RoleTool,
		Content:   string(data),
		Timestamp: time.Now(),
	}, nil
}

// CallState is the lifecycle state of a tool call.
type CallState string

const (
	CallPending   CallState = "call"
	CallCompleted CallState = "result"
)

// CallOrigin records whether a tool call came from the provider's structured
// output or was reconstructed from a malformed generation.
type CallOrigin string

const (
	OriginProvider  CallOrigin = "provider"
	OriginRecovered CallOrigin = "recovered"
)

const recoveredPrefix = "rec-"

// NewRecoveredID returns an identifier in the recovered-call namespace.
func NewRecoveredID() string {
	return recoveredPrefix + uuid.NewString()
}

// OriginOf reports the origin implied by a tool call identifier.
func OriginOf(id string) CallOrigin {
	if strings.HasPrefix(id, recoveredPrefix) {
		return OriginRecovered
	}
	return OriginProvider
}

// ErrToolCallCompleted is returned when completing a call that already has a result.
var ErrToolCallCompleted = errors.New("tool call already completed")

// ToolCall is a tool invocation requested by the model, embedded in an
// assistant message.
type ToolCall struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Origin CallOrigin     `json:"origin,omitempty"`
	State  CallState      `json:"state"`
	Result *ToolResult    `json:"result,omitempty"`
}

// Complete moves the call from pending to completed. It is the only
// transition a call can take.
func (tc *ToolCall) Complete(result ToolResult) error {
	if tc.State == CallCompleted {
		return ErrToolCallCompleted
	}
	tc.State = CallCompleted
	tc.Result = &result
	return nil
}

// Pending reports whether the call still awaits a decision.
func (tc *ToolCall) Pending() bool {
	return tc.State != CallCompleted
}

// PendingCall is a tool call returned by a provider, not yet part of the conversation.
type PendingCall struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Origin CallOrigin     `json:"origin"`
}

// Response is the delta a provider returns for one request.
type Response struct {
	Content   string        `json:"content"`
	ToolCalls []PendingCall `json:"tool_calls,omitempty"`
}

// Message converts the response into an assistant message whose tool calls
// are all pending.
func (r *Response) Message() Message {
	msg := NewMessage(RoleAssistant, r.Content)
	for _, pc := range r.ToolCalls {
		args := pc.Args
		if args == nil {
			args = map[string]any{}
		}
		origin := pc.Origin
		if origin == "" {
			origin = OriginOf(pc.ID)
		}
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:     pc.ID,
			Name:   pc.Name,
			Args:   args,
			Origin: origin,
			State:  CallPending,
		})
	}
	return msg
}

// Tool describes a tool offered to the model in OpenAI function format.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function describes a callable function including its parameters schema.
type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}
