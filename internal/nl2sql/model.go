package nl2sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbchat/dbchat/internal/agent"
	"github.com/dbchat/dbchat/internal/sqltool"
)

// ModelTranslator asks any agent.LLMClient for SQL in a single tool-less call.
type ModelTranslator struct {
	client   agent.LLMClient
	provider string
	model    string
}

func NewModelTranslator(client agent.LLMClient, provider, model string) *ModelTranslator {
	return &ModelTranslator{client: client, provider: provider, model: model}
}

func (t *ModelTranslator) Translate(ctx context.Context, req Request) (Result, error) {
	prompt, err := userPrompt(req)
	if err != nil {
		return Result{}, err
	}
	resp, err := t.client.Call(ctx, []agent.Message{t.client.CreateUserMessage(prompt)}, nil)
	if err != nil {
		return Result{}, fmt.Errorf("request translation: %w", err)
	}

	var sb strings.Builder
	for _, blk := range resp.Content() {
		if text, ok := blk.AsText(); ok {
			sb.WriteString(text)
		}
	}
	sql := sqltool.StripFences(sb.String())
	if sql == "" {
		return Result{}, fmt.Errorf("model returned empty SQL")
	}
	return Result{SQL: sql, Provider: t.provider, Model: t.model}, nil
}
