package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/waferchat/pkg/llm"
)

type keepLast struct{ n int }

func (k keepLast) Fit(messages []llm.Message, _ string) []llm.Message {
	if len(messages) <= k.n {
		return messages
	}
	return messages[len(messages)-k.n:]
}

func TestTurnAppendsAssistantMessage(t *testing.T) {
	d := &mockDispatcher{responses: []*llm.Response{{
		Content:   llm.RecoveredMarker,
		ToolCalls: []llm.PendingCall{{ID: "rec-1", Name: "echo", Args: map[string]any{"text": "x"}, Origin: llm.OriginRecovered}},
	}}}
	rt := New(d, nil, nil)

	conv := []llm.Message{llm.NewMessage(llm.RoleUser, "hi")}
	out, err := rt.Turn(context.Background(), conv, llm.Config{Model: llm.DefaultModel})
	if err != nil {
		t.Fatal(err)
	}
	if len(conv) != 1 {
		t.Error("input conversation must not grow")
	}
	if len(out) != 2 || out[1].Role != llm.RoleAssistant {
		t.Fatalf("unexpected conversation: %+v", out)
	}
	pending := PendingCalls(out)
	if len(pending) != 1 || pending[0].Origin != llm.OriginRecovered {
		t.Errorf("expected one pending recovered call, got %+v", pending)
	}
}

func TestTurnUsesHistoryFitter(t *testing.T) {
	d := &mockDispatcher{}
	rt := New(d, keepLast{n: 2}, nil)

	conv := []llm.Message{
		llm.NewMessage(llm.RoleUser, "1"),
		llm.NewMessage(llm.RoleAssistant, "2"),
		llm.NewMessage(llm.RoleUser, "3"),
	}
	out, err := rt.Turn(context.Background(), conv, llm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(d.calls[0]) != 2 {
		t.Errorf("expected 2 messages sent, got %d", len(d.calls[0]))
	}
	if len(out) != 4 {
		t.Errorf("expected full conversation kept, got %d", len(out))
	}
}

func TestTurnRetriesTransportErrors(t *testing.T) {
	d := &mockDispatcher{
		errs:      []error{&llm.TransportError{Provider: "cerebras", Err: errors.New("reset")}},
		responses: []*llm.Response{nil, {Content: "ok"}},
	}
	rt := New(d, nil, &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond})

	out, err := rt.Turn(context.Background(), nil, llm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Content != "ok" {
		t.Errorf("unexpected content %q", out[0].Content)
	}
	if len(d.calls) != 2 {
		t.Errorf("expected 2 dispatches, got %d", len(d.calls))
	}
}

func TestTurnDoesNotRetryAuthentication(t *testing.T) {
	d := &mockDispatcher{errs: []error{&llm.AuthenticationError{Cause: &llm.ProviderError{Status: 401}}}}
	rt := New(d, nil, DefaultRetryPolicy())

	_, err := rt.Turn(context.Background(), nil, llm.Config{})
	if llm.Classify(err) != llm.KindAuthentication {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if len(d.calls) != 1 {
		t.Errorf("expected 1 dispatch, got %d", len(d.calls))
	}
}

func TestTruncateAndEdit(t *testing.T) {
	conv := []llm.Message{
		{ID: "u1", Role: llm.RoleUser, Content: "first"},
		{ID: "a1", Role: llm.RoleAssistant, Content: "reply"},
		{ID: "u2", Role: llm.RoleUser, Content: "second"},
		{ID: "a2", Role: llm.RoleAssistant, Content: "reply 2"},
	}

	out, err := Truncate(conv, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[1].ID != "a1" {
		t.Errorf("unexpected truncation: %+v", out)
	}

	if _, err := Truncate(conv, "zz"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}

	edited, err := Edit(conv, "u2", "second, revised")
	if err != nil {
		t.Fatal(err)
	}
	if len(edited) != 3 || edited[2].ID != "u2" || edited[2].Content != "second, revised" {
		t.Errorf("unexpected edit: %+v", edited)
	}
	if conv[2].Content != "second" {
		t.Error("input conversation must not be modified")
	}

	if _, err := Edit(conv, "a1", "nope"); !errors.Is(err, ErrNotEditable) {
		t.Errorf("expected ErrNotEditable, got %v", err)
	}
}
