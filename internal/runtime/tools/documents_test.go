package tools

import (
	"context"
	"testing"

	"github.com/user/waferchat/internal/runtime"
)

func TestCreateDocumentMessage(t *testing.T) {
	c := NewCreateDocument()
	tests := []struct {
		args map[string]any
		want string
	}{
		{map[string]any{"title": "Plan", "content": "x"}, "Document 'Plan' created successfully."},
		{map[string]any{"content": "x"}, "Document 'Untitled' created successfully."},
	}
	for _, tt := range tests {
		res, err := c.Execute(context.Background(), tt.args)
		if err != nil {
			t.Fatal(err)
		}
		if res.Fields["message"] != tt.want {
			t.Errorf("expected %q, got %v", tt.want, res.Fields["message"])
		}
	}
}

func TestUpdateDocumentMessage(t *testing.T) {
	res, err := NewUpdateDocument().Execute(context.Background(), map[string]any{"id": "doc-1", "content": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Fields["message"] != "Document doc-1 updated successfully." {
		t.Errorf("unexpected message %v", res.Fields["message"])
	}
}

func TestRegister(t *testing.T) {
	r := runtime.NewRegistry()
	if err := Register(r, ""); err != nil {
		t.Fatal(err)
	}
	want := []string{"create_document", "get_current_weather", "search_documentation", "update_document"}
	all := r.All()
	if len(all) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(all))
	}
	for i, name := range want {
		if all[i].Name() != name {
			t.Errorf("tool %d: expected %q, got %q", i, name, all[i].Name())
		}
	}

	if err := r.Validate("update_document", map[string]any{"content": "x"}); err == nil {
		t.Error("expected validation error for missing id")
	}
}
