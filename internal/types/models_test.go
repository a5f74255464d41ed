// internal/types/models_test.go
package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestArtifactSerialization(t *testing.T) {
	art := Artifact{
		ID:        NewArtifactID(),
		Title:     "Report",
		Type:      ArtifactCode,
		Content:   "package main",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	data, err := json.Marshal(art)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Artifact
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Type != ArtifactCode || decoded.Title != "Report" {
		t.Errorf("unexpected artifact: %+v", decoded)
	}
}

func TestTitleFromMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"short", "short"},
		{"exactly twenty-five chars", "exactly twenty-five chars"},
		{"what is the weather in Paris today?", "what is the weather in Pa..."},
		{"ééééééééééééééééééééééééééé", "ééééééééééééééééééééééééé..."},
	}
	for _, tt := range tests {
		if got := TitleFromMessage(tt.in); got != tt.want {
			t.Errorf("TitleFromMessage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
