package llm

import (
	"encoding/json"
	"fmt"
	"maps"
)

// ResultKind distinguishes plain tool results from results that reference
// an artifact held by the caller.
type ResultKind string

const (
	ResultPlain    ResultKind = "plain"
	ResultArtifact ResultKind = "artifact"
)

// ArtifactRef identifies an artifact created or updated by a tool call.
type ArtifactRef struct {
	ID    string
	Title string
	Type  string
}

// ToolResult is the outcome of executing a tool call. It encodes to the
// flat JSON object stored in tool messages; artifact results carry the
// isArtifact, artifactId, title and type keys.
type ToolResult struct {
	Kind     ResultKind
	Fields   map[string]any
	Artifact *ArtifactRef
}

// PlainResult builds a plain result from fields.
func PlainResult(fields map[string]any) ToolResult {
	if fields == nil {
		fields = map[string]any{}
	}
	return ToolResult{Kind: ResultPlain, Fields: fields}
}

// ArtifactResult builds a result that references ref.
func ArtifactResult(ref ArtifactRef, fields map[string]any) ToolResult {
	if fields == nil {
		fields = map[string]any{}
	}
	return ToolResult{Kind: ResultArtifact, Fields: fields, Artifact: &ref}
}

// ErrorResult builds the {error: msg} result reported to the model when a
// tool fails.
func ErrorResult(err error) ToolResult {
	return PlainResult(map[string]any{"error": err.Error()})
}

// IsError reports whether the result carries an error field.
func (r ToolResult) IsError() bool {
	_, ok := r.Fields["error"]
	return ok
}

// Map returns the flat object form of the result.
func (r ToolResult) Map() map[string]any {
	out := make(map[string]any, len(r.Fields)+4)
	maps.Copy(out, r.Fields)
	if r.Kind == ResultArtifact && r.Artifact != nil {
		out["isArtifact"] = true
		out["artifactId"] = r.Artifact.ID
		out["title"] = r.Artifact.Title
		out["type"] = r.Artifact.Type
	}
	return out
}

func (r ToolResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

func (r *ToolResult) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decoding tool result: %w", err)
	}
	*r = ResultFromMap(m)
	return nil
}

// ParseToolResult decodes the JSON content of a tool message.
func ParseToolResult(content string) (ToolResult, error) {
	var r ToolResult
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return ToolResult{}, err
	}
	return r, nil
}

// ResultFromMap classifies a flat result object. Only an object carrying
// isArtifact=true together with string artifactId, title and type is an
// artifact result; anything else stays plain so re-encoding reproduces it.
func ResultFromMap(m map[string]any) ToolResult {
	fields := maps.Clone(m)
	if fields == nil {
		fields = map[string]any{}
	}
	flag, _ := fields["isArtifact"].(bool)
	id, idOK := fields["artifactId"].(string)
	title, titleOK := fields["title"].(string)
	typ, typeOK := fields["type"].(string)
	if !flag || !idOK || !titleOK || !typeOK {
		return PlainResult(fields)
	}
	for _, k := range []string{"isArtifact", "artifactId", "title", "type"} {
		delete(fields, k)
	}
	return ArtifactResult(ArtifactRef{ID: id, Title: title, Type: typ}, fields)
}
