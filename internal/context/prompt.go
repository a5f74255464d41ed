package context

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"
)

// DefaultPrompt is the built-in system prompt template used when no custom
// prompt file is configured. It uses Go text/template syntax with PromptData
// fields: .Time, .Model, .Tools
const DefaultPrompt = `You are Waferchat, a fast and precise assistant running on wafer-scale inference hardware.

## Current Context

- Time: {{.Time}}
- Model: {{.Model}}
{{- if .Tools}}
- Available tools: {{.Tools}}
{{- end}}

## Response Style

- Be concise and direct. Get straight to the answer.
- Use markdown formatting: lists, tables and fenced code blocks with a language.
- For complex reasoning, math or code you may think inside a <think> ... </think> block before the final answer.

## Tools

Every tool call is shown to the user and runs only after they approve it. If a call is rejected, continue without it.

- create_document: save code longer than 15 lines or other long content as an artifact.
- update_document: replace the content of an existing artifact by its id.
- search_documentation: look up Cerebras technical documentation.
- get_current_weather: fetch live weather for a city.
`

// PromptData is the data available to system prompt templates.
type PromptData struct {
	Time  string
	Model string
	Tools string
}

// LoadPrompt returns the prompt template at path, or DefaultPrompt when
// path is empty.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return DefaultPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	return string(data), nil
}

// RenderPrompt executes tmpl for the given model and tool names.
func RenderPrompt(tmpl, model string, tools []string) (string, error) {
	t, err := template.New("system").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse system prompt: %w", err)
	}
	var buf bytes.Buffer
	err = t.Execute(&buf, PromptData{
		Time:  time.Now().Format(time.RFC3339),
		Model: model,
		Tools: strings.Join(tools, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return buf.String(), nil
}
