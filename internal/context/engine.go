// internal/context/engine.go
package context

import (
	"encoding/json"
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/waferchat/pkg/llm"
)

// perMessageOverhead approximates the role and framing tokens each message
// costs on the wire.
const perMessageOverhead = 4

// Engine trims conversations to a token budget for the LLM.
type Engine struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
	reserve   int
}

// New creates a context engine with the specified token budget.
// model is used to select the appropriate tokenizer (e.g. "gpt-4").
// maxTokens is the model's context window size.
// reserve is the number of tokens to reserve for the model's response.
func New(model string, maxTokens, reserve int) (*Engine, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Engine{
		tokenizer: enc,
		maxTokens: maxTokens,
		reserve:   reserve,
	}, nil
}

// countTokens returns the token count for a string.
func (e *Engine) countTokens(text string) int {
	return len(e.tokenizer.Encode(text, nil, nil))
}

func (e *Engine) messageTokens(m llm.Message) int {
	n := perMessageOverhead + e.countTokens(m.Content)
	for _, tc := range m.ToolCalls {
		n += e.countTokens(tc.Name)
		if args, err := json.Marshal(tc.Args); err == nil {
			n += e.countTokens(string(args))
		}
	}
	return n
}

// Fit returns the longest suffix of messages that fits the input budget
// after systemPrompt. An assistant message and the tool results answering
// its calls are kept or dropped together, so the result never starts with
// a tool message. The newest group is always kept.
func (e *Engine) Fit(messages []llm.Message, systemPrompt string) []llm.Message {
	budget := e.maxTokens - e.reserve
	if systemPrompt != "" {
		budget -= e.countTokens(systemPrompt) + perMessageOverhead
	}

	groups := groupMessages(messages)
	used := 0
	start := len(messages)
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		cost := 0
		for _, m := range messages[g.start:g.end] {
			cost += e.messageTokens(m)
		}
		if used+cost > budget && start < len(messages) {
			break
		}
		used += cost
		start = g.start
	}
	return messages[start:]
}

type span struct{ start, end int }

// groupMessages splits messages into spans that each begin with a non-tool
// message. Leading tool messages have no call to answer and are left out.
func groupMessages(messages []llm.Message) []span {
	var groups []span
	for i, m := range messages {
		if m.Role == llm.RoleTool {
			if len(groups) > 0 {
				groups[len(groups)-1].end = i + 1
			}
			continue
		}
		groups = append(groups, span{start: i, end: i + 1})
	}
	return groups
}
