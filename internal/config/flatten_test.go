package config

import (
	"testing"
)

func TestFlatten(t *testing.T) {
	m := map[string]any{
		"log_level": "info",
		"llm": map[string]any{
			"model":       "llama-3.3-70b",
			"temperature": 0.7,
			"retry": map[string]any{
				"attempts": int64(3),
			},
		},
		"http": map[string]any{},
	}
	got := Flatten(m)

	want := map[string]any{
		"log_level":          "info",
		"llm.model":          "llama-3.3-70b",
		"llm.temperature":    0.7,
		"llm.retry.attempts": int64(3),
	}
	if len(got) != len(want) {
		t.Errorf("expected %d keys (empty tables produce nothing), got %d: %v", len(want), len(got), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, got[k])
		}
	}
}

func TestUnflattenRoundTrip(t *testing.T) {
	flat := map[string]any{
		"data_dir":       "/home/test/.waferchat",
		"llm.api_key":    "csk-123456",
		"llm.model":      "custom",
		"custom.model":   "gemini-1.5-flash",
		"http.enabled":   true,
		"llm.max_tokens": int64(4096),
	}
	nested := Unflatten(flat)

	llm, ok := nested["llm"].(map[string]any)
	if !ok {
		t.Fatalf("expected llm table, got %T", nested["llm"])
	}
	if llm["model"] != "custom" || llm["max_tokens"] != int64(4096) {
		t.Errorf("unexpected llm table: %v", llm)
	}

	back := Flatten(nested)
	if len(back) != len(flat) {
		t.Fatalf("expected %d keys after round trip, got %d", len(flat), len(back))
	}
	for k, v := range flat {
		if back[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, back[k])
		}
	}
}

func TestMaskSecrets(t *testing.T) {
	tests := []struct {
		key   string
		value any
		want  any
	}{
		{"llm.api_key", "csk-test123456", "***3456"},
		{"custom.api_key", "AIzaSyExample9876", "***9876"},
		{"llm.api_key", "", ""},
		{"llm.api_key", "ab", "***ab"},
		{"llm.api_key", "abcd", "***abcd"},
		{"llm.model", "llama-3.3-70b", "llama-3.3-70b"},
		{"log_level", "debug", "debug"},
	}
	for _, tt := range tests {
		got := MaskSecrets(map[string]any{tt.key: tt.value})
		if got[tt.key] != tt.want {
			t.Errorf("MaskSecrets(%s=%v) = %v, want %v", tt.key, tt.value, got[tt.key], tt.want)
		}
	}

	if !IsSecretKey("custom.api_key") || IsSecretKey("custom.model") {
		t.Error("unexpected IsSecretKey result")
	}
}
