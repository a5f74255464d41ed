package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/user/waferchat/internal/runtime"
	"github.com/user/waferchat/pkg/llm"
)

// CreateDocument declares the create_document tool. The executor stores
// the artifact; Execute only reports.
type CreateDocument struct{}

// NewCreateDocument creates a new CreateDocument tool.
func NewCreateDocument() *CreateDocument { return &CreateDocument{} }

func (c *CreateDocument) Name() string { return runtime.CreateDocument }
func (c *CreateDocument) Description() string {
	return "Create a new document, code snippet, or artifact. Use this when the user wants to generate and save a long text or code."
}
func (c *CreateDocument) Schema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": `The title of the document. Defaults to "Untitled".`,
			},
			"type": map[string]any{
				"type":        "string",
				"description": `The type of content (e.g., markdown, code). Defaults to "markdown".`,
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The initial content of the document",
			},
		},
		Required: []string{"content"},
	}
}

func (c *CreateDocument) Execute(_ context.Context, args map[string]any) (llm.ToolResult, error) {
	title, _ := args["title"].(string)
	if title == "" {
		title = "Untitled"
	}
	return llm.PlainResult(map[string]any{
		"message": fmt.Sprintf("Document '%s' created successfully.", title),
	}), nil
}

// UpdateDocument declares the update_document tool.
type UpdateDocument struct{}

// NewUpdateDocument creates a new UpdateDocument tool.
func NewUpdateDocument() *UpdateDocument { return &UpdateDocument{} }

func (u *UpdateDocument) Name() string { return runtime.UpdateDocument }
func (u *UpdateDocument) Description() string {
	return "Update an existing document. Use this when the user wants to modify a saved artifact."
}
func (u *UpdateDocument) Schema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"id":      map[string]any{"type": "string", "description": "The ID of the document to update"},
			"content": map[string]any{"type": "string", "description": "The new full content of the document"},
		},
		Required: []string{"id", "content"},
	}
}

func (u *UpdateDocument) Execute(_ context.Context, args map[string]any) (llm.ToolResult, error) {
	id, _ := args["id"].(string)
	return llm.PlainResult(map[string]any{
		"message": fmt.Sprintf("Document %s updated successfully.", id),
	}), nil
}

// Register adds the tool set to r. docsDir may be empty.
func Register(r *runtime.Registry, docsDir string) error {
	docs, err := NewDocSearch(docsDir)
	if err != nil {
		return err
	}
	r.Register(NewWeather())
	r.Register(docs)
	r.Register(NewCreateDocument())
	r.Register(NewUpdateDocument())
	return nil
}
