package config

import (
	"maps"
	"strings"
)

// secretKeys are the dotted keys holding credentials.
var secretKeys = map[string]bool{
	"llm.api_key":    true,
	"custom.api_key": true,
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// Flatten turns decoded TOML tables into dotted keys, so the [llm] table's
// model becomes "llm.model". Empty tables contribute no keys.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, table map[string]any)
	walk = func(prefix string, table map[string]any) {
		for k, v := range table {
			if prefix != "" {
				k = prefix + "." + k
			}
			if sub, ok := v.(map[string]any); ok {
				walk(k, sub)
				continue
			}
			out[k] = v
		}
	}
	walk("", m)
	return out
}

// Unflatten rebuilds nested tables from dotted keys. A scalar sitting where a
// table is needed is replaced by the table.
func Unflatten(flat map[string]any) map[string]any {
	root := make(map[string]any)
	for key, v := range flat {
		table := root
		rest := key
		for {
			head, tail, nested := strings.Cut(rest, ".")
			if !nested {
				table[head] = v
				break
			}
			sub, ok := table[head].(map[string]any)
			if !ok {
				sub = make(map[string]any)
				table[head] = sub
			}
			table, rest = sub, tail
		}
	}
	return root
}

// MaskSecrets returns a copy of flat with non-empty credentials reduced to
// "***" and their last four characters.
func MaskSecrets(flat map[string]any) map[string]any {
	out := maps.Clone(flat)
	for k := range secretKeys {
		if s, ok := out[k].(string); ok && s != "" {
			out[k] = maskSecret(s)
		}
	}
	return out
}

func maskSecret(s string) string {
	if len(s) > 4 {
		s = s[len(s)-4:]
	}
	return "***" + s
}
