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

const (
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	anthropicAPIBase      = "https://api.anthropic.com/v1"
	anthropicAPIVersion   = "2023-06-01"
)

// AnthropicBackend is the primary, tool-use-capable backend, grounded on
// the teacher's internal/providers.AnthropicProvider.
type AnthropicBackend struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	retry        RetryConfig
}

func NewAnthropicBackend(apiKey, model string) *AnthropicBackend {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicBackend{
		apiKey:       apiKey,
		baseURL:      anthropicAPIBase,
		defaultModel: model,
		client:       &http.Client{Timeout: 120 * time.Second},
		retry:        DefaultRetryConfig(),
	}
}

func (b *AnthropicBackend) Name() string        { return "anthropic" }
func (b *AnthropicBackend) DefaultModel() string { return b.defaultModel }

func (b *AnthropicBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	return b.call(ctx, req)
}

func (b *AnthropicBackend) ToolUse(ctx context.Context, req Request) (*Response, error) {
	return b.call(ctx, req)
}

func (b *AnthropicBackend) call(ctx context.Context, req Request) (*Response, error) {
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

		var resp anthropicResponse
		if err := json.NewDecoder(respBody).Decode(&resp); err != nil {
			return nil, fmt.Errorf("anthropic: decode response: %w", err)
		}
		return parseAnthropicResponse(&resp), nil
	})
}

func (b *AnthropicBackend) buildBody(model string, req Request) map[string]interface{} {
	var systemBlocks []map[string]interface{}
	var messages []map[string]interface{}

	for i, msg := range req.Messages {
		switch msg.Role {
		case "system":
			block := map[string]interface{}{"type": "text", "text": msg.Content}
			// The static prefix gets an ephemeral cache breakpoint; the
			// dynamic remainder does not (spec.md §4.4 prompt caching).
			if i < req.CacheStaticPrefix {
				block["cache_control"] = map[string]interface{}{"type": "ephemeral"}
			}
			systemBlocks = append(systemBlocks, block)

		case "user":
			if len(msg.Images) > 0 {
				var blocks []map[string]interface{}
				for _, img := range msg.Images {
					blocks = append(blocks, map[string]interface{}{
						"type": "image",
						"source": map[string]interface{}{
							"type": "base64", "media_type": img.MimeType, "data": img.Data,
						},
					})
				}
				if msg.Content != "" {
					blocks = append(blocks, map[string]interface{}{"type": "text", "text": msg.Content})
				}
				messages = append(messages, map[string]interface{}{"role": "user", "content": blocks})
			} else {
				messages = append(messages, map[string]interface{}{"role": "user", "content": msg.Content})
			}

		case "assistant":
			var blocks []map[string]interface{}
			if msg.Content != "" {
				blocks = append(blocks, map[string]interface{}{"type": "text", "text": msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, map[string]interface{}{
					"type": "tool_use", "id": tc.ID, "name": tc.Name, "input": tc.Arguments,
				})
			}
			messages = append(messages, map[string]interface{}{"role": "assistant", "content": blocks})

		case "tool":
			messages = append(messages, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{{
					"type": "tool_result", "tool_use_id": msg.ToolCallID, "content": msg.Content,
				}},
			})
		}
	}

	body := map[string]interface{}{
		"model":      model,
		"max_tokens": 4096,
		"messages":   messages,
	}
	if len(systemBlocks) > 0 {
		body["system"] = systemBlocks
	}
	if len(req.Tools) > 0 {
		var tools []map[string]interface{}
		for _, t := range req.Tools {
			tools = append(tools, map[string]interface{}{
				"name": t.Name, "description": t.Description, "input_schema": t.Schema,
			})
		}
		body["tools"] = tools
	}
	return body
}

func (b *AnthropicBackend) doRequest(ctx context.Context, body interface{}) (io.ReadCloser, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", b.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("anthropic: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return resp.Body, nil
}

func parseAnthropicResponse(resp *anthropicResponse) *Response {
	result := &Response{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Content += block.Text
		case "tool_use":
			args := make(map[string]interface{})
			_ = json.Unmarshal(block.Input, &args)
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID: block.ID, Name: strings.TrimSpace(block.Name), Arguments: args,
			})
		}
	}
	switch resp.StopReason {
	case "tool_use":
		result.StopReason = StopToolUse
	case "max_tokens":
		result.StopReason = StopMaxTokens
	default:
		result.StopReason = StopEndTurn
	}
	result.Usage = Usage{
		PromptTokens:        resp.Usage.InputTokens,
		CompletionTokens:    resp.Usage.OutputTokens,
		CacheCreationTokens: resp.Usage.CacheCreationInputTokens,
		CacheReadTokens:     resp.Usage.CacheReadInputTokens,
	}
	return result
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      anthropicUsage          `json:"usage"`
}

type anthropicContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}
