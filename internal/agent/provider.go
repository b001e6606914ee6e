package agent

import (
	"context"
	"fmt"

	"github.com/rahul/taskbreak/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewModel constructs the process-wide model handle for a configured provider.
func NewModel(ctx context.Context, name string, p config.ProviderConfig) (llms.Model, error) {
	switch name {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(p.APIKey),
			openai.WithModel(p.Model),
		}
		if p.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil

	case "googleai", "gemini":
		opts := []googleai.Option{googleai.WithAPIKey(p.APIKey)}
		if p.Model != "" {
			opts = append(opts, googleai.WithDefaultModel(p.Model))
		}
		llm, err := googleai.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil

	case "anthropic":
		llm, err := anthropic.New(anthropic.WithToken(p.APIKey), anthropic.WithModel(p.Model))
		if err != nil {
			return nil, err
		}
		return llm, nil

	case "ollama":
		opts := []ollama.Option{ollama.WithModel(p.Model)}
		if p.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(p.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	}
	return nil, fmt.Errorf("provider %s not yet implemented", name)
}
