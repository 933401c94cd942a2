package agent

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dbchat/dbchat/internal/config"
)

// NewClient builds the model client selected by cfg.Provider.
func NewClient(cfg config.AIConfig, system string) (LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case config.ProviderAnthropic, "":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("anthropic api key is not configured (set DBCHAT_AI_API_KEY or ANTHROPIC_API_KEY)")
		}
		opts := []option.RequestOption{
			option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
			option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		}
		if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
			opts = append(opts, option.WithBaseURL(baseURL))
		}
		model := anthropic.Model(strings.TrimSpace(cfg.Model))
		if model == "" {
			model = anthropic.ModelClaudeSonnet4_5
		}
		maxTokens := int64(cfg.MaxTokens)
		if maxTokens <= 0 {
			maxTokens = 2048
		}
		return NewAnthropicClient(anthropic.NewClient(opts...), model, maxTokens, cfg.Temperature, system), nil
	case config.ProviderOpenAI:
		client, err := NewOpenAIClient(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			System:      system,
		})
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// Lazy builds its agent on the first Run and reuses it afterwards. A build
// failure is remembered and returned by every later Run.
type Lazy struct {
	names []string
	build func() (*Agent, error)

	once  sync.Once
	agent *Agent
	err   error
}

func NewLazy(toolNames []string, build func() (*Agent, error)) *Lazy {
	return &Lazy{names: toolNames, build: build}
}

func (l *Lazy) Run(ctx context.Context, question string) (*RunResult, error) {
	l.once.Do(func() {
		l.agent, l.err = l.build()
	})
	if l.err != nil {
		return nil, fmt.Errorf("initialize agent: %w", l.err)
	}
	return l.agent.Run(ctx, question)
}

func (l *Lazy) ToolNames() []string {
	return append([]string(nil), l.names...)
}
