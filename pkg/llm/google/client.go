package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/user/waferchat/pkg/llm"
)

const (
	// DefaultBaseURL is the Generative Language API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is used when the config names no target model.
	DefaultModel = "gemini-1.5-flash"

	providerName = "google"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client implements llm.Provider over the generateContent REST endpoint.
// It carries no tool definitions; tool calls in the conversation are
// flattened to text.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a generateContent client.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Send calls generateContent with cfg.APIKey. A missing key fails before any
// network activity.
func (c *Client) Send(ctx context.Context, messages []llm.Message, cfg llm.Config) (*llm.Response, error) {
	if cfg.APIKey == "" {
		return nil, &llm.PreconditionError{Reason: "Google API key is missing. Set it in the custom provider settings."}
	}
	model := cfg.TargetModel
	if model == "" {
		model = DefaultModel
	}

	body, err := json.Marshal(buildRequest(messages, cfg))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
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

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, &llm.ProviderError{Provider: providerName, Status: resp.StatusCode, Message: "parsing response: " + err.Error()}
	}

	text := ""
	if len(gr.Candidates) > 0 && len(gr.Candidates[0].Content.Parts) > 0 {
		text = gr.Candidates[0].Content.Parts[0].Text
	}
	return &llm.Response{Content: text}, nil
}

func buildRequest(messages []llm.Message, cfg llm.Config) generateRequest {
	req := generateRequest{
		Contents: make([]content, 0, len(messages)),
		GenerationConfig: generationConfig{
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			MaxOutputTokens: cfg.MaxTokens,
		},
	}
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			continue
		}
		role := "model"
		if m.Role == llm.RoleUser {
			role = "user"
		}
		req.Contents = append(req.Contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	if cfg.SystemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: cfg.SystemPrompt}}}
	}
	return req
}

func classifyError(status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	message := eb.Error.Message
	if message == "" {
		message = http.StatusText(status)
	}
	pe := &llm.ProviderError{Provider: providerName, Status: status, Message: message}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &llm.AuthenticationError{Cause: pe}
	}
	return pe
}
