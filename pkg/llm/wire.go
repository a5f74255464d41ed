package llm

import (
	"bytes"
	"encoding/json"
	"strings"
)

// PartType identifies a content part of a structured wire message.
type PartType string

const (
	PartText       PartType = "text"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
)

// Part is one content block of a structured wire message.
type Part struct {
	Type       PartType       `json:"type"`
	Text       string         `json:"text,omitempty"`
	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	Result     any            `json:"result,omitempty"`
}

// WireMessage is the provider-neutral request form of a message. Plain
// messages carry Text; structured messages carry Parts.
type WireMessage struct {
	Role  Role   `json:"role"`
	Text  string `json:"text,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Structured reports whether the message is expressed as content parts.
func (w WireMessage) Structured() bool {
	return w.Parts != nil
}

// ToWire translates a conversation into wire messages, one per input
// message, in order. It never fails.
func ToWire(messages []Message) []WireMessage {
	out := make([]WireMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, toWire(m))
	}
	return out
}

func toWire(m Message) WireMessage {
	switch m.Role {
	case RoleUser:
		return WireMessage{Role: RoleUser, Text: m.Content}
	case RoleAssistant:
		if len(m.ToolCalls) == 0 {
			return WireMessage{Role: RoleAssistant, Text: m.Content}
		}
		parts := make([]Part, 0, len(m.ToolCalls)+1)
		// Strict providers reject empty text blocks.
		if strings.TrimSpace(m.Content) != "" {
			parts = append(parts, Part{Type: PartText, Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			parts = append(parts, Part{
				Type:       PartToolCall,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
				Args:       tc.Args,
			})
		}
		return WireMessage{Role: RoleAssistant, Parts: parts}
	case RoleTool:
		return WireMessage{Role: RoleTool, Parts: []Part{{
			Type:       PartToolResult,
			ToolCallID: m.ID,
			Result:     parseToolContent(m.Content),
		}}}
	default:
		return WireMessage{Role: RoleSystem, Text: m.Content}
	}
}

// parseToolContent decodes tool message content, wrapping text that is not
// JSON as {output: text}. Numbers are kept as json.Number so re-encoding is
// exact.
func parseToolContent(content string) any {
	if !json.Valid([]byte(content)) {
		return map[string]any{"output": content}
	}
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return map[string]any{"output": content}
	}
	return v
}

// EncodeResult renders a tool-result part's value as JSON text.
func EncodeResult(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}
