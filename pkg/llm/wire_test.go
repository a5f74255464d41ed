package llm

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestToWireLengthAndOrder(t *testing.T) {
	msgs := []Message{
		{ID: "1", Role: RoleUser, Content: "hi"},
		{ID: "2", Role: RoleAssistant, Content: "hello"},
		{ID: "3", Role: RoleSystem, Content: "be brief"},
		{ID: "4", Role: "narrator", Content: "odd"},
	}
	wire := ToWire(msgs)
	if len(wire) != len(msgs) {
		t.Fatalf("expected %d wire messages, got %d", len(msgs), len(wire))
	}
	want := []Role{RoleUser, RoleAssistant, RoleSystem, RoleSystem}
	for i, w := range wire {
		if w.Role != want[i] {
			t.Errorf("message %d: expected role %s, got %s", i, want[i], w.Role)
		}
		if w.Structured() {
			t.Errorf("message %d: expected plain text", i)
		}
		if w.Text != msgs[i].Content {
			t.Errorf("message %d: expected text %q, got %q", i, msgs[i].Content, w.Text)
		}
	}
}

func TestToWireAssistantToolCalls(t *testing.T) {
	calls := []ToolCall{
		{ID: "a", Name: "get_current_weather", Args: map[string]any{"location": "Paris"}, State: CallPending},
		{ID: "b", Name: "search_documentation", Args: map[string]any{"query": "wse"}, State: CallPending},
	}

	t.Run("empty text omitted", func(t *testing.T) {
		for _, content := range []string{"", "   ", "\n\t"} {
			w := ToWire([]Message{{Role: RoleAssistant, Content: content, ToolCalls: calls}})[0]
			if len(w.Parts) != 2 {
				t.Fatalf("content %q: expected 2 parts, got %d", content, len(w.Parts))
			}
			for _, p := range w.Parts {
				if p.Type != PartToolCall {
					t.Errorf("content %q: unexpected part %s", content, p.Type)
				}
			}
		}
	})

	t.Run("text first then calls in order", func(t *testing.T) {
		w := ToWire([]Message{{Role: RoleAssistant, Content: "Let me check.", ToolCalls: calls}})[0]
		if len(w.Parts) != 3 {
			t.Fatalf("expected 3 parts, got %d", len(w.Parts))
		}
		if w.Parts[0].Type != PartText || w.Parts[0].Text != "Let me check." {
			t.Errorf("unexpected first part: %+v", w.Parts[0])
		}
		for i, tc := range calls {
			p := w.Parts[i+1]
			if p.ToolCallID != tc.ID || p.ToolName != tc.Name || !reflect.DeepEqual(p.Args, tc.Args) {
				t.Errorf("part %d does not match call %+v: %+v", i+1, tc, p)
			}
		}
	})
}

func TestToWireToolResult(t *testing.T) {
	t.Run("json content", func(t *testing.T) {
		w := ToWire([]Message{{ID: "call_1", Role: RoleTool, Content: `{"temperature":"12 °C","humidity":40}`}})[0]
		if len(w.Parts) != 1 || w.Parts[0].Type != PartToolResult {
			t.Fatalf("unexpected parts: %+v", w.Parts)
		}
		p := w.Parts[0]
		if p.ToolCallID != "call_1" {
			t.Errorf("expected tool call id from message id, got %q", p.ToolCallID)
		}
		m, ok := p.Result.(map[string]any)
		if !ok {
			t.Fatalf("expected object result, got %T", p.Result)
		}
		if m["humidity"] != json.Number("40") {
			t.Errorf("expected humidity preserved as number, got %#v", m["humidity"])
		}
	})

	t.Run("non json content wrapped", func(t *testing.T) {
		content := "plain words {not json"
		w := ToWire([]Message{{ID: "call_2", Role: RoleTool, Content: content}})[0]
		want := map[string]any{"output": content}
		if !reflect.DeepEqual(w.Parts[0].Result, want) {
			t.Errorf("expected %v, got %v", want, w.Parts[0].Result)
		}
	})

	t.Run("trailing garbage wrapped", func(t *testing.T) {
		w := ToWire([]Message{{ID: "c", Role: RoleTool, Content: `{"a":1} extra`}})[0]
		if _, ok := w.Parts[0].Result.(map[string]any)["output"]; !ok {
			t.Errorf("expected output wrapper, got %v", w.Parts[0].Result)
		}
	})
}

func TestToWireArtifactResultRoundTrip(t *testing.T) {
	result := ArtifactResult(ArtifactRef{ID: "art-1", Title: "Report", Type: "markdown"}, map[string]any{"message": "Artifact created."})
	msg, err := NewToolMessage("call_9", result)
	if err != nil {
		t.Fatal(err)
	}
	w := ToWire([]Message{msg})[0]
	got := EncodeResult(w.Parts[0].Result)

	back, err := ParseToolResult(got)
	if err != nil {
		t.Fatal(err)
	}
	if back.Kind != ResultArtifact || back.Artifact.ID != "art-1" || back.Fields["message"] != "Artifact created." {
		t.Errorf("artifact result not preserved: %+v", back)
	}
}
