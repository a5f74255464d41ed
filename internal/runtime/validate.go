package runtime

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
)

// validateArgs checks required fields, primitive property types and string
// enums.
func validateArgs(schema mcp.ToolInputSchema, args map[string]any) error {
	for _, field := range schema.Required {
		v, ok := args[field]
		if !ok || v == nil {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		prop, ok := schema.Properties[key].(map[string]any)
		if !ok {
			continue
		}
		expected, _ := prop["type"].(string)
		if expected == "" {
			continue
		}
		if err := checkType(args[key], expected); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		if enum := enumValues(prop["enum"]); enum != nil && !inEnum(args[key], enum) {
			return fmt.Errorf("field %s: must be one of %v", key, enum)
		}
	}
	return nil
}

func checkType(v any, expected string) error {
	switch expected {
	case "string":
		if _, ok := v.(string); ok {
			return nil
		}
	case "number":
		if isNumber(v) {
			return nil
		}
	case "integer":
		if isInteger(v) {
			return nil
		}
	case "boolean":
		if _, ok := v.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := v.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := v.([]any); ok {
			return nil
		}
	default:
		return nil
	}
	return fmt.Errorf("expected %s but got %T", expected, v)
}

func isNumber(v any) bool {
	switch n := v.(type) {
	case float64, float32, int, int64, int32:
		return true
	case json.Number:
		_, err := n.Float64()
		return err == nil
	}
	return false
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int64, int32:
		return true
	case float64:
		return n == math.Trunc(n)
	case json.Number:
		_, err := n.Int64()
		return err == nil
	}
	return false
}

func inEnum(v any, enum []string) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, e := range enum {
		if s == e {
			return true
		}
	}
	return false
}

func enumValues(v any) []string {
	switch e := v.(type) {
	case []string:
		return e
	case []any:
		out := make([]string, 0, len(e))
		for _, x := range e {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
