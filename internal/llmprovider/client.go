package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"neuro/internal/errors"
	"neuro/internal/logging"
)

// Config configures an HTTP-backed Client.
type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

// httpClient speaks the OpenAI-compatible chat completions API that both
// Ollama (via /v1/chat/completions) and llama.cpp's llama-server expose,
// which keeps a single transport implementation usable against either
// local backend.
type httpClient struct {
	model   string
	baseURL string
	apiKey  string
	hc      *http.Client
	logger  logging.Logger
}

// NewClient returns a Client bound to model, talking to the backend at
// config.BaseURL.
func NewClient(model string, config Config) Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return &httpClient{
		model:   model,
		baseURL: baseURL,
		apiKey:  config.APIKey,
		hc:      &http.Client{Timeout: timeout},
		logger:  logging.NewComponentLogger("llmprovider"),
	}
}

func (c *httpClient) Model() string { return c.model }

func (c *httpClient) Complete(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(c.buildPayload(req))
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	c.logger.Debug("POST %s model=%s", endpoint, c.model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, errors.WithKind(errors.KindConnection, err, "")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithKind(errors.KindConnection, err, "")
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errors.WithKind(errors.KindAuth, errors.NewPermanentError(
			fmt.Errorf("status %d: %s", resp.StatusCode, respBody), "authentication with the inference backend failed"), "")
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.WithKind(errors.KindModel, errors.NewTransientError(
			fmt.Errorf("status %d: %s", resp.StatusCode, respBody), ""), "")
	}
	if resp.StatusCode >= 400 {
		return nil, errors.WithKind(errors.KindModel, errors.NewPermanentError(
			fmt.Errorf("status %d: %s", resp.StatusCode, respBody), ""), "")
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.WithKind(errors.KindParse, fmt.Errorf("decode completion response: %w", err), "")
	}
	return parsed.toResponse(), nil
}

func (c *httpClient) buildPayload(req Request) map[string]any {
	payload := map[string]any{
		"model":    c.model,
		"messages": convertMessages(req.Messages),
		"stream":   false,
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.TopP > 0 {
		payload["top_p"] = req.TopP
	}
	if len(req.StopSequences) > 0 {
		payload["stop"] = req.StopSequences
	}
	if len(req.Tools) > 0 {
		payload["tools"] = convertTools(req.Tools)
		payload["tool_choice"] = "auto"
	}
	if req.JSONMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}
	return payload
}

func convertMessages(messages []Message) []map[string]any {
	out := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		entry := map[string]any{"role": m.Role, "content": m.Content}
		if len(m.ToolCalls) > 0 {
			calls := make([]map[string]any, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, map[string]any{
					"id":   tc.ID,
					"type": "function",
					"function": map[string]any{
						"name":      tc.Name,
						"arguments": tc.Arguments,
					},
				})
			}
			entry["tool_calls"] = calls
		}
		out = append(out, entry)
	}
	return out
}

func convertTools(tools []ToolDefinition) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return out
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (r *chatCompletionResponse) toResponse() *Response {
	out := &Response{
		Usage: TokenUsage{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		},
	}
	if len(r.Choices) == 0 {
		return out
	}
	choice := r.Choices[0]
	out.Content = choice.Message.Content
	out.StopReason = choice.FinishReason
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}
