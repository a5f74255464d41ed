package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/user/waferchat/pkg/llm"
)

// Names of the document tools whose state change is applied by the
// Executor against the ArtifactStore rather than by the tool body.
const (
	CreateDocument = "create_document"
	UpdateDocument = "update_document"
)

// Tool defines the interface for an executable tool.
type Tool interface {
	Name() string
	Description() string
	Schema() mcp.ToolInputSchema
	Execute(ctx context.Context, args map[string]any) (llm.ToolResult, error)
}

// Registry holds registered tools and provides lookup.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns all registered tools sorted by name.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// MCPTools describes the registered tools as MCP tool declarations.
func (r *Registry) MCPTools() []mcp.Tool {
	all := r.All()
	out := make([]mcp.Tool, 0, len(all))
	for _, t := range all {
		out = append(out, mcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		})
	}
	return out
}

// Definitions converts registered tools to the LLM provider format.
func (r *Registry) Definitions() []llm.Tool {
	all := r.All()
	out := make([]llm.Tool, 0, len(all))
	for _, t := range all {
		params, err := json.Marshal(t.Schema())
		if err != nil {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.Function{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  params,
			},
		})
	}
	return out
}

// Validate checks args against the named tool's schema.
func (r *Registry) Validate(name string, args map[string]any) error {
	t, ok := r.tools[name]
	if !ok {
		return &llm.ToolExecutionError{Tool: name, Err: fmt.Errorf("unknown tool %q", name)}
	}
	if err := validateArgs(t.Schema(), args); err != nil {
		return &llm.ToolExecutionError{Tool: name, Err: err}
	}
	return nil
}

// Execute validates args and runs the named tool. Failures are returned as
// *llm.ToolExecutionError.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (llm.ToolResult, error) {
	if err := r.Validate(name, args); err != nil {
		return llm.ToolResult{}, err
	}
	res, err := r.tools[name].Execute(ctx, args)
	if err != nil {
		return llm.ToolResult{}, &llm.ToolExecutionError{Tool: name, Err: err}
	}
	return res, nil
}
