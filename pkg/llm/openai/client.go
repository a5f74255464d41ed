package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/user/waferchat/pkg/llm"
)

// DefaultBaseURL is the Cerebras OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.cerebras.ai/v1"

const providerName = "cerebras"

// Options configures a Client. The API key is passed explicitly; the client
// never reads it from the environment.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Tools      []llm.Tool
}

// Client implements llm.Provider for OpenAI-compatible chat completions
// with tool calling.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tools      []llm.Tool
}

// New creates a new OpenAI-compatible client.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		tools:      opts.Tools,
	}
}

// chatRequest is the OpenAI chat completions request body.
type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []requestMessage `json:"messages"`
	Tools       []llm.Tool       `json:"tools,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature"`
	TopP        float64          `json:"top_p"`
}

// requestMessage is the OpenAI message format for requests.
type requestMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// wireToolCall is a tool call as it appears in requests and responses.
type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// chatResponse is the OpenAI chat completions response body.
type chatResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message responseMessage `json:"message"`
}

type responseMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

// apiError is the error body of a failed request. Some providers nest it
// under "error", others return it at the top level.
type apiError struct {
	Message          string          `json:"message"`
	Code             json.RawMessage `json:"code"`
	FailedGeneration string          `json:"failed_generation"`
	Nested           *apiError       `json:"error"`
}

// Send sends the conversation as a chat completion request.
func (c *Client) Send(ctx context.Context, messages []llm.Message, cfg llm.Config) (*llm.Response, error) {
	model := cfg.Model
	if model == "" || model == llm.CustomModel {
		model = llm.DefaultModel
	}

	reqBody := chatRequest{
		Model:       model,
		Messages:    encodeMessages(cfg.SystemPrompt, llm.ToWire(messages)),
		Tools:       c.tools,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llm.TransportError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.TransportError{Provider: providerName, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, &llm.ProviderError{Provider: providerName, Status: resp.StatusCode, Message: "parsing response: " + err.Error()}
	}

	if len(chatResp.Choices) == 0 {
		return nil, &llm.ProviderError{Provider: providerName, Status: resp.StatusCode, Message: "no choices in response"}
	}

	msg := chatResp.Choices[0].Message
	out := &llm.Response{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.PendingCall{
			ID:     tc.ID,
			Name:   tc.Function.Name,
			Args:   parseArguments(tc.Function.Arguments),
			Origin: llm.OriginProvider,
		})
	}
	return out, nil
}

func encodeMessages(systemPrompt string, wire []llm.WireMessage) []requestMessage {
	out := make([]requestMessage, 0, len(wire)+1)
	if systemPrompt != "" {
		out = append(out, requestMessage{Role: string(llm.RoleSystem), Content: systemPrompt})
	}
	for _, w := range wire {
		if !w.Structured() {
			out = append(out, requestMessage{Role: string(w.Role), Content: w.Text})
			continue
		}
		if w.Role == llm.RoleTool {
			for _, p := range w.Parts {
				out = append(out, requestMessage{
					Role:       string(llm.RoleTool),
					Content:    llm.EncodeResult(p.Result),
					ToolCallID: p.ToolCallID,
				})
			}
			continue
		}
		rm := requestMessage{Role: string(w.Role)}
		var text []string
		for _, p := range w.Parts {
			switch p.Type {
			case llm.PartText:
				text = append(text, p.Text)
			case llm.PartToolCall:
				args := p.Args
				if args == nil {
					args = map[string]any{}
				}
				rm.ToolCalls = append(rm.ToolCalls, wireToolCall{
					ID:       p.ToolCallID,
					Type:     "function",
					Function: wireFunction{Name: p.ToolName, Arguments: llm.EncodeResult(args)},
				})
			}
		}
		rm.Content = strings.Join(text, "")
		out = append(out, rm)
	}
	return out
}

// parseArguments decodes the JSON-string arguments of a tool call. Invalid
// arguments yield an empty map; the registry reports missing fields when the
// call is executed.
func parseArguments(s string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(s) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(s), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

func classifyError(status int, body []byte) error {
	var e apiError
	_ = json.Unmarshal(body, &e)

	generation, failed := failedGeneration(&e)
	message := errorMessage(&e)
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	pe := &llm.ProviderError{Provider: providerName, Status: status, Message: message}

	if failed {
		return &llm.MalformedToolCallError{Cause: pe, Generation: generation}
	}
	if status == http.StatusUnauthorized {
		return &llm.AuthenticationError{Cause: pe}
	}
	return pe
}

func failedGeneration(e *apiError) (string, bool) {
	for cur := e; cur != nil; cur = cur.Nested {
		if codeString(cur.Code) == "tool_use_failed" && cur.FailedGeneration != "" {
			return cur.FailedGeneration, true
		}
	}
	return "", false
}

func errorMessage(e *apiError) string {
	if e.Nested != nil && e.Nested.Message != "" {
		return e.Nested.Message
	}
	return e.Message
}

func codeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
