package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/user/waferchat/pkg/llm"
)

func TestClientSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash:generateContent" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Error("missing api key header")
		}

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Error(err)
			return
		}

		contents := req["contents"].([]any)
		if len(contents) != 3 {
			t.Errorf("expected system message dropped, got %d contents", len(contents))
			return
		}
		wantRoles := []string{"user", "model", "model"}
		for i, c := range contents {
			if role := c.(map[string]any)["role"]; role != wantRoles[i] {
				t.Errorf("content %d: expected role %s, got %v", i, wantRoles[i], role)
			}
		}
		first := contents[0].(map[string]any)["parts"].([]any)[0].(map[string]any)
		if first["text"] != "hello" {
			t.Errorf("unexpected first part: %v", first)
		}

		gc := req["generationConfig"].(map[string]any)
		if gc["temperature"] != 0.5 || gc["topP"] != 0.8 || gc["maxOutputTokens"] != float64(256) {
			t.Errorf("unexpected generation config: %v", gc)
		}

		si := req["systemInstruction"].(map[string]any)
		sp := si["parts"].([]any)[0].(map[string]any)
		if sp["text"] != "be brief" {
			t.Errorf("unexpected system instruction: %v", si)
		}

		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Bonjour"}]}}]}`))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL + "/v1beta"})
	resp, err := client.Send(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "ignored"},
		{Role: llm.RoleUser, Content: "hello"},
		{Role: llm.RoleAssistant, Content: "", ToolCalls: []llm.ToolCall{{ID: "c1", Name: "get_current_weather"}}},
		{ID: "c1", Role: llm.RoleTool, Content: `{"temperature":"3 °C"}`},
	}, llm.Config{
		Model:        llm.CustomModel,
		Provider:     llm.ProviderGoogle,
		APIKey:       "g-key",
		TargetModel:  "gemini-2.0-flash",
		Temperature:  0.5,
		TopP:         0.8,
		MaxTokens:    256,
		SystemPrompt: "be brief",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "Bonjour" {
		t.Errorf("expected 'Bonjour', got %q", resp.Content)
	}
	if len(resp.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(resp.ToolCalls))
	}
}

func TestClientDefaultModelAndEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-1.5-flash:generateContent" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL})
	resp, err := client.Send(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.Config{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "" {
		t.Errorf("expected empty content, got %q", resp.Content)
	}
}

func TestClientMissingKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL})
	_, err := client.Send(context.Background(), nil, llm.Config{Model: llm.CustomModel, Provider: llm.ProviderGoogle})

	var pre *llm.PreconditionError
	if !errors.As(err, &pre) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if called {
		t.Error("no request should be sent without a key")
	}
}

func TestDispatcherMissingGoogleKey(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	d := llm.NewDispatcher(llm.Providers{Google: New(Options{BaseURL: server.URL})})
	_, err := d.Dispatch(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		llm.Config{Model: llm.CustomModel, Provider: llm.ProviderGoogle, TargetModel: "gemini-2.0-flash"})

	var pre *llm.PreconditionError
	if !errors.As(err, &pre) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestClientAPIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind llm.Kind
		wantMsg  string
	}{
		{"bad request", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT"}}`, llm.KindProvider, "API key not valid."},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":401,"message":"unauthenticated"}}`, llm.KindAuthentication, "unauthenticated"},
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"Method doesn't allow unregistered callers.","status":"PERMISSION_DENIED"}}`, llm.KindAuthentication, "Method doesn't allow unregistered callers."},
		{"no body", http.StatusServiceUnavailable, ``, llm.KindProvider, "Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := New(Options{BaseURL: server.URL})
			_, err := client.Send(context.Background(), nil, llm.Config{APIKey: "k"})
			if llm.Classify(err) != tt.wantKind {
				t.Fatalf("expected %s, got %v", tt.wantKind, err)
			}
			var pe *llm.ProviderError
			if !errors.As(err, &pe) || pe.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestClientTransportErrorHidesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(Options{BaseURL: url})
	_, err := client.Send(context.Background(), nil, llm.Config{APIKey: "secret-key"})
	if llm.Classify(err) != llm.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if got := err.Error(); strings.Contains(got, "secret-key") {
		t.Errorf("error leaks the key: %s", got)
	}
}

func TestClientProviderInterface(t *testing.T) {
	var _ llm.Provider = (*Client)(nil)
}
