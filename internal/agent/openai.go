package agent

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
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultOpenAIModel   = "gpt-4o-mini"
)

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	System      string
}

// OpenAIClient implements LLMClient for OpenAI-compatible chat completion
// endpoints that support tool calls.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	system      string
	client      *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OpenAIClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		system:      cfg.System,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

func (m openAIMessage) ToParam() any {
	return m
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

func (c *OpenAIClient) Call(ctx context.Context, messages []Message, tools []Tool) (Response, error) {
	payload := openAIRequest{
		Model:       c.model,
		Messages:    make([]openAIMessage, 0, len(messages)+1),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if c.system != "" {
		payload.Messages = append(payload.Messages, openAIMessage{Role: "system", Content: stringPtr(c.system)})
	}
	for _, msg := range messages {
		param, ok := msg.ToParam().(openAIMessage)
		if !ok {
			return nil, fmt.Errorf("expected openai message, got %T", msg.ToParam())
		}
		payload.Messages = append(payload.Messages, param)
	}
	for _, tool := range tools {
		payload.Tools = append(payload.Tools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message openAIMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty chat completion choices")
	}
	msg := parsed.Choices[0].Message
	msg.Role = "assistant"
	return openAIResponse{msg: msg}, nil
}

func (c *OpenAIClient) ConvertToolResults(_ []ToolUse, results []ToolResult) ([]Message, error) {
	msgs := make([]Message, 0, len(results))
	for _, result := range results {
		msgs = append(msgs, openAIMessage{
			Role:       "tool",
			Content:    stringPtr(result.Content),
			ToolCallID: result.ID,
		})
	}
	return msgs, nil
}

func (c *OpenAIClient) CreateUserMessage(content string) Message {
	return openAIMessage{Role: "user", Content: stringPtr(content)}
}

type openAIResponse struct {
	msg openAIMessage
}

func (r openAIResponse) Content() []ContentBlock {
	var blocks []ContentBlock
	if r.msg.Content != nil && *r.msg.Content != "" {
		blocks = append(blocks, openAITextBlock(*r.msg.Content))
	}
	for _, call := range r.msg.ToolCalls {
		blocks = append(blocks, openAIToolUseBlock{call: call})
	}
	return blocks
}

func (r openAIResponse) ToMessage() Message {
	return r.msg
}

type openAITextBlock string

func (b openAITextBlock) AsText() (string, bool) {
	return string(b), b != ""
}

func (b openAITextBlock) AsToolUse() (string, string, []byte, bool) {
	return "", "", nil, false
}

type openAIToolUseBlock struct {
	call openAIToolCall
}

func (b openAIToolUseBlock) AsText() (string, bool) {
	return "", false
}

func (b openAIToolUseBlock) AsToolUse() (string, string, []byte, bool) {
	if b.call.ID == "" || b.call.Function.Name == "" {
		return "", "", nil, false
	}
	args := strings.TrimSpace(b.call.Function.Arguments)
	if args == "" {
		args = "{}"
	}
	return b.call.ID, b.call.Function.Name, []byte(args), true
}

func stringPtr(value string) *string {
	return &value
}
