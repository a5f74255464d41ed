package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/waferchat/pkg/llm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F05A28")).
			Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#90CAF9")).
			Bold(true).
			Padding(0, 1)

	aiLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#F05A28")).
			Bold(true).
			Padding(0, 1)

	thinkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true).
			PaddingLeft(2).
			BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#545454"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF9A9A")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#545454"))

	toolNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFCC80")).
			Bold(true)

	approvalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFCC80")).
			Padding(0, 1)
)

func newRenderer() *glamour.TermRenderer {
	style := "dark"
	if !lipgloss.HasDarkBackground() {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown falls back to the raw text when r is nil or fails.
func renderMarkdown(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// splitThink separates a leading <think>...</think> block from the answer.
// An unclosed block is treated as all thinking.
func splitThink(content string) (think, answer string) {
	const open, closeTag = "<think>", "</think>"
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, open) {
		return "", content
	}
	rest := trimmed[len(open):]
	end := strings.Index(rest, closeTag)
	if end < 0 {
		return strings.TrimSpace(rest), ""
	}
	return strings.TrimSpace(rest[:end]), strings.TrimSpace(rest[end+len(closeTag):])
}

func printMessage(r *glamour.TermRenderer, m llm.Message) {
	switch m.Role {
	case llm.RoleUser:
		fmt.Println(userLabelStyle.Render("You") + " " + infoStyle.Render(m.ID))
		fmt.Println(m.Content)
		fmt.Println()
	case llm.RoleAssistant:
		fmt.Println(aiLabelStyle.Render("Assistant"))
		think, answer := splitThink(m.Content)
		if think != "" {
			fmt.Println(thinkStyle.Render(think))
		}
		if answer != "" {
			fmt.Println(renderMarkdown(r, answer))
		}
		for _, tc := range m.ToolCalls {
			status := "pending"
			if !tc.Pending() {
				status = "done"
			}
			fmt.Println(infoStyle.Render("  tool: ") + toolNameStyle.Render(tc.Name) + infoStyle.Render(" ["+status+"]"))
		}
		fmt.Println()
	case llm.RoleTool:
		res, err := llm.ParseToolResult(m.Content)
		if err != nil {
			return
		}
		if res.Artifact != nil {
			fmt.Println(infoStyle.Render(fmt.Sprintf("  artifact %s: %s (%s)", res.Artifact.ID, res.Artifact.Title, res.Artifact.Type)))
		} else if res.IsError() {
			fmt.Println(errorStyle.Render(fmt.Sprintf("  tool error: %v", res.Fields["error"])))
		}
	}
}

// describeCall renders a pending call for the approval prompt.
func describeCall(tc llm.ToolCall) string {
	args, err := json.MarshalIndent(tc.Args, "", "  ")
	if err != nil {
		args = []byte(fmt.Sprint(tc.Args))
	}
	header := toolNameStyle.Render(tc.Name)
	if tc.Origin == llm.OriginRecovered {
		header += infoStyle.Render(" (recovered)")
	}
	return approvalStyle.Render(header + "\n" + string(args))
}
