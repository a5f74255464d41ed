package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// RecoveredCall is a tool invocation reconstructed from raw model output.
type RecoveredCall struct {
	Name string
	Args map[string]any
}

var (
	callNameRe = regexp.MustCompile(`^([a-zA-Z0-9_]+)\(`)
	callArgRe  = regexp.MustCompile(`(?s)([a-zA-Z0-9_]+)\s*=\s*(?:'([^'\\]*(?:\\.[^'\\]*)*)'|"([^"\\]*(?:\\.[^"\\]*)*)")`)
)

// Recover extracts a tool call from text a model produced when structured
// tool calling failed. It tries JSON shapes first, then call syntax
// name(key='value', ...). It never panics and reports false when neither
// strategy matches.
func Recover(text string) (RecoveredCall, bool) {
	if call, ok := recoverJSON(text); ok {
		return call, true
	}
	return recoverCallSyntax(text)
}

// recoverJSON accepts three shapes:
//
//	{"name": ..., "parameters"|"arguments": ...}
//	{"type": "function", "name": ..., "parameters": ...}
//	{"function": {"name": ..., "parameters"|"arguments": ...}}
func recoverJSON(text string) (RecoveredCall, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return RecoveredCall{}, false
	}

	if name, ok := nonEmptyString(obj["name"]); ok {
		if args, ok := argsOf(obj); ok {
			return RecoveredCall{Name: name, Args: args}, true
		}
	}

	if obj["type"] == "function" {
		if name, ok := nonEmptyString(obj["name"]); ok {
			if args, ok := toArgs(obj["parameters"]); ok {
				return RecoveredCall{Name: name, Args: args}, true
			}
		}
	}

	if fn, ok := obj["function"].(map[string]any); ok {
		if name, ok := nonEmptyString(fn["name"]); ok {
			if args, ok := argsOf(fn); ok {
				return RecoveredCall{Name: name, Args: args}, true
			}
		}
	}

	return RecoveredCall{}, false
}

func argsOf(obj map[string]any) (map[string]any, bool) {
	if args, ok := toArgs(obj["parameters"]); ok {
		return args, true
	}
	return toArgs(obj["arguments"])
}

// toArgs accepts an object, or a string holding a JSON object.
func toArgs(v any) (map[string]any, bool) {
	switch a := v.(type) {
	case map[string]any:
		return a, true
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(a), &m); err != nil || m == nil {
			return nil, false
		}
		return m, true
	default:
		return nil, false
	}
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}

func recoverCallSyntax(text string) (RecoveredCall, bool) {
	m := callNameRe.FindStringSubmatch(text)
	if m == nil {
		return RecoveredCall{}, false
	}
	name := m[1]

	start := len(name) + 1
	end := strings.LastIndex(text, ")")
	if end < start {
		return RecoveredCall{}, false
	}
	argText := text[start:end]
	if argText == "" {
		return RecoveredCall{}, false
	}

	args := map[string]any{}
	for _, idx := range callArgRe.FindAllStringSubmatchIndex(argText, -1) {
		key := argText[idx[2]:idx[3]]
		var raw string
		if idx[4] >= 0 {
			raw = argText[idx[4]:idx[5]]
		} else {
			raw = argText[idx[6]:idx[7]]
		}
		args[key] = unescape(raw)
	}
	if len(args) == 0 {
		return RecoveredCall{}, false
	}
	return RecoveredCall{Name: name, Args: args}, true
}

// unescape replaces escapes in a fixed order, backslash last, so that an
// escaped backslash is not reinterpreted as the start of another escape.
func unescape(s string) string {
	for _, r := range [][2]string{
		{`\n`, "\n"},
		{`\r`, "\r"},
		{`\t`, "\t"},
		{`\'`, "'"},
		{`\"`, `"`},
		{`\\`, `\`},
	} {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}
