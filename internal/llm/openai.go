package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIBackend is the fallback/judge-tier backend for OpenAI-compatible
// APIs, grounded on the teacher's internal/providers.OpenAIProvider. In
// cmd/serve.go it backs the task engine's completion-check judge; the
// classifier and the conversation loop use the primary backend.
type OpenAIBackend struct {
	name         string
	apiKey       string
	apiBase      string
	defaultModel string
	client       *http.Client
	retry        RetryConfig
}

func NewOpenAIBackend(name, apiKey, apiBase, defaultModel string) *OpenAIBackend {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	return &OpenAIBackend{
		name:         name,
		apiKey:       apiKey,
		apiBase:      strings.TrimRight(apiBase, "/"),
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 120 * time.Second},
		retry:        DefaultRetryConfig(),
	}
}

func (b *OpenAIBackend) Name() string        { return b.name }
func (b *OpenAIBackend) DefaultModel() string { return b.defaultModel }

func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = b.defaultModel
	}
	body := b.buildBody(model, req)

	return RetryDo(ctx, b.retry, isRetryable, func() (*Response, error) {
		respBody, err := b.doRequest(ctx, body)
		if err != nil {
			return nil, err
		}
		defer respBody.Close()

		var resp openAIResponse
		if err := json.NewDecoder(respBody).Decode(&resp); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", b.name, err)
		}
		return parseOpenAIResponse(&resp), nil
	})
}

// ToolUse is unsupported on the fallback tier and always returns
// ErrToolUseUnsupported.
func (b *OpenAIBackend) ToolUse(ctx context.Context, req Request) (*Response, error) {
	return nil, ErrToolUseUnsupported
}

func (b *OpenAIBackend) buildBody(model string, req Request) map[string]interface{} {
	var messages []map[string]interface{}
	for _, msg := range req.Messages {
		m := map[string]interface{}{"role": msg.Role, "content": msg.Content}
		if msg.ToolCallID != "" {
			m["tool_call_id"] = msg.ToolCallID
		}
		messages = append(messages, m)
	}
	return map[string]interface{}{
		"model":    model,
		"messages": messages,
	}
}

func (b *OpenAIBackend) doRequest(ctx context.Context, body interface{}) (io.ReadCloser, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", b.name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", b.apiBase+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", b.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", b.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return resp.Body, nil
}

func parseOpenAIResponse(resp *openAIResponse) *Response {
	if len(resp.Choices) == 0 {
		return &Response{StopReason: StopEndTurn}
	}
	choice := resp.Choices[0]
	r := &Response{Content: choice.Message.Content}
	switch choice.FinishReason {
	case "length":
		r.StopReason = StopMaxTokens
	case "tool_calls":
		r.StopReason = StopToolUse
	default:
		r.StopReason = StopEndTurn
	}
	r.Usage = Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	return r
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}
