package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/user/waferchat/internal/types"
	"github.com/user/waferchat/pkg/llm"
)

// ErrToolCallNotFound is returned when a conversation holds no call with the
// requested ID.
var ErrToolCallNotFound = errors.New("tool call not found")

// Executor carries out approved tool calls. Document tools are applied to
// the ArtifactStore; every other tool runs through the Registry.
type Executor struct {
	registry  *Registry
	artifacts types.ArtifactStore
}

// NewExecutor creates an Executor.
func NewExecutor(registry *Registry, artifacts types.ArtifactStore) *Executor {
	return &Executor{registry: registry, artifacts: artifacts}
}

// Approve runs the pending call callID and returns a new conversation in
// which the call is completed and its tool message is appended. conv is not
// modified. Tool failures are reported to the model as {error} results; only
// a missing or already completed call is returned as an error.
func (x *Executor) Approve(ctx context.Context, sessionID types.SessionID, conv []llm.Message, callID string) ([]llm.Message, error) {
	mi, ci, err := findCall(conv, callID)
	if err != nil {
		return nil, err
	}
	call := conv[mi].ToolCalls[ci]
	result := x.run(ctx, sessionID, call)
	return completeCall(conv, mi, ci, result)
}

// Reject completes the pending call callID without running it.
func (x *Executor) Reject(conv []llm.Message, callID string) ([]llm.Message, error) {
	mi, ci, err := findCall(conv, callID)
	if err != nil {
		return nil, err
	}
	result := llm.PlainResult(map[string]any{"error": "Tool call rejected by user."})
	return completeCall(conv, mi, ci, result)
}

func (x *Executor) run(ctx context.Context, sessionID types.SessionID, call llm.ToolCall) llm.ToolResult {
	log := slog.With("tool", call.Name, "tool_call_id", call.ID, "origin", string(call.Origin))

	var (
		res llm.ToolResult
		err error
	)
	switch call.Name {
	case CreateDocument:
		res, err = x.createDocument(ctx, sessionID, call.Args)
	case UpdateDocument:
		res, err = x.updateDocument(ctx, call.Args)
	default:
		res, err = x.registry.Execute(ctx, call.Name, call.Args)
	}
	if err != nil {
		log.Warn("tool execution failed", "error", err)
		var te *llm.ToolExecutionError
		if errors.As(err, &te) {
			return llm.ErrorResult(te.Err)
		}
		return llm.ErrorResult(err)
	}
	log.Info("tool executed", "artifact", res.Kind == llm.ResultArtifact)
	return res
}

func (x *Executor) validateDocumentArgs(name string, args map[string]any) error {
	if _, ok := x.registry.Get(name); !ok {
		return nil
	}
	return x.registry.Validate(name, args)
}

func (x *Executor) createDocument(ctx context.Context, sessionID types.SessionID, args map[string]any) (llm.ToolResult, error) {
	if err := x.validateDocumentArgs(CreateDocument, args); err != nil {
		return llm.ToolResult{}, err
	}
	title := stringArg(args, "title")
	if title == "" {
		title = "Untitled"
	}
	typ := types.ArtifactType(stringArg(args, "type"))
	if typ == "" {
		typ = types.ArtifactMarkdown
	}

	art, err := x.artifacts.Create(ctx, sessionID, title, typ, stringArg(args, "content"))
	if err != nil {
		return llm.ToolResult{}, &llm.ToolExecutionError{Tool: CreateDocument, Err: fmt.Errorf("create artifact: %w", err)}
	}
	return llm.ArtifactResult(
		llm.ArtifactRef{ID: string(art.ID), Title: art.Title, Type: string(art.Type)},
		map[string]any{"message": "Artifact created."},
	), nil
}

func (x *Executor) updateDocument(ctx context.Context, args map[string]any) (llm.ToolResult, error) {
	if err := x.validateDocumentArgs(UpdateDocument, args); err != nil {
		return llm.ToolResult{}, err
	}
	id := types.ArtifactID(stringArg(args, "id"))

	art, err := x.artifacts.Update(ctx, id, stringArg(args, "content"))
	if errors.Is(err, types.ErrNotFound) {
		return llm.PlainResult(map[string]any{"error": "Document not found."}), nil
	}
	if err != nil {
		return llm.ToolResult{}, &llm.ToolExecutionError{Tool: UpdateDocument, Err: fmt.Errorf("update artifact: %w", err)}
	}
	return llm.ArtifactResult(
		llm.ArtifactRef{ID: string(art.ID), Title: art.Title, Type: string(art.Type)},
		map[string]any{"message": "Artifact updated."},
	), nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// findCall locates a pending call by ID.
func findCall(conv []llm.Message, callID string) (int, int, error) {
	for mi := len(conv) - 1; mi >= 0; mi-- {
		for ci := range conv[mi].ToolCalls {
			tc := &conv[mi].ToolCalls[ci]
			if tc.ID != callID {
				continue
			}
			if !tc.Pending() {
				return 0, 0, llm.ErrToolCallCompleted
			}
			return mi, ci, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrToolCallNotFound, callID)
}

func completeCall(conv []llm.Message, mi, ci int, result llm.ToolResult) ([]llm.Message, error) {
	out := make([]llm.Message, len(conv), len(conv)+1)
	copy(out, conv)

	calls := make([]llm.ToolCall, len(out[mi].ToolCalls))
	copy(calls, out[mi].ToolCalls)
	if err := calls[ci].Complete(result); err != nil {
		return nil, err
	}
	out[mi].ToolCalls = calls

	toolMsg, err := llm.NewToolMessage(calls[ci].ID, result)
	if err != nil {
		return nil, err
	}
	return append(out, toolMsg), nil
}
