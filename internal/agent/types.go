package agent

import "context"

// Message is a provider-specific conversation message.
type Message interface {
	ToParam() any
}

type Response interface {
	Content() []ContentBlock
	ToMessage() Message
}

type ContentBlock interface {
	AsText() (string, bool)
	AsToolUse() (id string, name string, input []byte, ok bool)
}

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type ToolUse struct {
	ID    string
	Name  string
	Input []byte
}

type ToolResult struct {
	ID      string
	Content string
	IsError bool
}

// LLMClient talks to one model provider. Messages it creates are only valid
// for the same client.
type LLMClient interface {
	Call(ctx context.Context, messages []Message, tools []Tool) (Response, error)
	ConvertToolResults(toolUses []ToolUse, results []ToolResult) ([]Message, error)
	CreateUserMessage(content string) Message
}

// Step records one tool invocation made while answering.
type Step struct {
	Round   int    `json:"round"`
	Tool    string `json:"tool"`
	Input   string `json:"input"`
	Output  string `json:"output"`
	IsError bool   `json:"is_error"`
}

type RunResult struct {
	FinalText string
	Rounds    int
	Steps     []Step
}
