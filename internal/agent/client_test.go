package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbchat/dbchat/internal/config"
)

func TestNewClientSelectsProvider(t *testing.T) {
	client, err := NewClient(config.AIConfig{Provider: config.ProviderAnthropic, APIKey: "k"}, "system")
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, client)

	client, err = NewClient(config.AIConfig{Provider: config.ProviderOpenAI, APIKey: "k"}, "system")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, client)

	_, err = NewClient(config.AIConfig{Provider: "gemini", APIKey: "k"}, "")
	assert.Error(t, err)
}

func TestNewClientRequiresCredential(t *testing.T) {
	_, err := NewClient(config.AIConfig{Provider: config.ProviderAnthropic}, "")
	assert.ErrorContains(t, err, "api key")
	_, err = NewClient(config.AIConfig{Provider: config.ProviderOpenAI}, "")
	assert.ErrorContains(t, err, "api key")
}

func TestLazyBuildsOnceAndRemembersFailure(t *testing.T) {
	builds := 0
	lazy := NewLazy([]string{ToolExecuteSQL}, func() (*Agent, error) {
		builds++
		return nil, errors.New("anthropic api key is not configured")
	})
	assert.Equal(t, 0, builds)

	for i := 0; i < 2; i++ {
		_, err := lazy.Run(context.Background(), "q")
		assert.ErrorContains(t, err, "api key")
	}
	assert.Equal(t, 1, builds)
	assert.Equal(t, []string{ToolExecuteSQL}, lazy.ToolNames())
}

func TestLazyRunsBuiltAgent(t *testing.T) {
	llm := &mockLLMClient{responses: []mockResponse{{text: "Done."}}}
	lazy := NewLazy(nil, func() (*Agent, error) {
		return New(Config{LLM: llm, Tools: &mockTools{}})
	})

	result, err := lazy.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Done.", result.FinalText)
}
