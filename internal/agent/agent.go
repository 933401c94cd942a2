package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dbchat/dbchat/internal/observability"
)

const (
	defaultMaxRounds = 8

	DefaultFinalizationPrompt = "You have used all available steps. Answer the question now with the information you already have, " +
		"following the answer format, and do not call any more tools."

	DefaultRetryPrompt = "The previous query returned an error. Read the error message, fix the query " +
		"(for example by wrapping identifiers in double quotes when casing or quoting is the problem) and run it again. " +
		"Do not ask for clarification."
)

type ToolExecutor interface {
	Tools() []Tool
	Call(ctx context.Context, name string, input []byte) (string, bool)
}

type Config struct {
	Logger             *slog.Logger
	LLM                LLMClient
	Tools              ToolExecutor
	MaxRounds          int
	FinalizationPrompt string
	RetryPrompt        string
}

func (cfg *Config) Validate() error {
	if cfg.LLM == nil {
		return errors.New("LLM is required")
	}
	if cfg.Tools == nil {
		return errors.New("tools are required")
	}
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = defaultMaxRounds
	}
	if cfg.MaxRounds <= 0 {
		return errors.New("max rounds must be greater than 0")
	}
	if cfg.FinalizationPrompt == "" {
		cfg.FinalizationPrompt = DefaultFinalizationPrompt
	}
	if cfg.RetryPrompt == "" {
		cfg.RetryPrompt = DefaultRetryPrompt
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return nil
}

// Agent answers one question by letting the model call tools until it replies
// with plain text.
type Agent struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Agent{log: cfg.Logger, cfg: cfg}, nil
}

func (a *Agent) Run(ctx context.Context, question string) (*RunResult, error) {
	tools := a.cfg.Tools.Tools()
	msgs := []Message{a.cfg.LLM.CreateUserMessage(question)}
	result := &RunResult{}

	lastToolHadError := false
	retried := false

	for round := 0; round < a.cfg.MaxRounds; round++ {
		roundNum := round + 1
		result.Rounds = roundNum
		observability.IncrementAgentRound()

		isLastRound := round == a.cfg.MaxRounds-1
		if isLastRound {
			a.log.DebugContext(ctx, "agent: injecting finalization prompt", slog.Int("round", roundNum))
			msgs = append(msgs, a.cfg.LLM.CreateUserMessage(a.cfg.FinalizationPrompt))
		}

		// Tools stay declared on the last round; providers reject tool history without them.
		response, err := a.cfg.LLM.Call(ctx, msgs, tools)
		if err != nil {
			return nil, fmt.Errorf("model call in round %d: %w", roundNum, err)
		}
		msgs = append(msgs, response.ToMessage())

		toolUses := extractToolUses(response.Content())
		if len(toolUses) == 0 {
			if lastToolHadError && !retried && !isLastRound {
				retried = true
				lastToolHadError = false
				a.log.InfoContext(ctx, "agent: no tool call after error, asking for a retry", slog.Int("round", roundNum))
				msgs = append(msgs, a.cfg.LLM.CreateUserMessage(a.cfg.RetryPrompt))
				continue
			}
			result.FinalText = responseText(response)
			a.log.DebugContext(ctx, "agent: final response", slog.Int("round", roundNum), slog.Int("steps", len(result.Steps)))
			return result, nil
		}

		if isLastRound {
			a.log.WarnContext(ctx, "agent: last round reached with pending tool calls", slog.Int("tool_calls", len(toolUses)))
			result.FinalText = responseText(response)
			return result, nil
		}

		toolResults := make([]ToolResult, 0, len(toolUses))
		lastToolHadError = false
		for _, use := range toolUses {
			out, isError := a.cfg.Tools.Call(ctx, use.Name, use.Input)
			toolResults = append(toolResults, ToolResult{ID: use.ID, Content: out, IsError: isError})
			result.Steps = append(result.Steps, Step{
				Round:   roundNum,
				Tool:    use.Name,
				Input:   string(use.Input),
				Output:  out,
				IsError: isError,
			})
			if isError {
				lastToolHadError = true
			}
		}

		resultMsgs, err := a.cfg.LLM.ConvertToolResults(toolUses, toolResults)
		if err != nil {
			return nil, fmt.Errorf("convert tool results: %w", err)
		}
		msgs = append(msgs, resultMsgs...)
	}

	return nil, fmt.Errorf("exceeded maximum rounds (%d)", a.cfg.MaxRounds)
}

func extractToolUses(content []ContentBlock) []ToolUse {
	var uses []ToolUse
	for _, blk := range content {
		id, name, input, ok := blk.AsToolUse()
		if !ok || id == "" || name == "" {
			continue
		}
		uses = append(uses, ToolUse{ID: id, Name: name, Input: input})
	}
	return uses
}

func responseText(response Response) string {
	var sb strings.Builder
	for _, blk := range response.Content() {
		if text, ok := blk.AsText(); ok && text != "" {
			sb.WriteString(text)
		}
	}
	return strings.TrimSpace(sb.String())
}
