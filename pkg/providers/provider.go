// Package providers builds the LLM completion backend the dispatcher
// falls back to for freeform commands.
package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/golix/golix-bridge/pkg/config"
	anthropicprovider "github.com/golix/golix-bridge/pkg/providers/anthropic"
	openaiprovider "github.com/golix/golix-bridge/pkg/providers/openai"
)

// Responder is the completion capability consumed by the dispatcher.
// Implementations enforce their own request timeout.
type Responder interface {
	Complete(ctx context.Context, text string) (string, error)
}

// CreateResponder builds the configured provider. An empty provider name
// returns (nil, nil): the bridge then runs without a freeform fallback.
func CreateResponder(cfg *config.Config) (Responder, error) {
	llm := cfg.LLM
	if llm.Provider == "" {
		return nil, nil
	}

	timeout := time.Duration(llm.RequestTimeoutSeconds) * time.Second

	switch llm.Provider {
	case "openai":
		return openaiprovider.NewProvider(openaiprovider.Options{
			APIKey:       llm.APIKey,
			BaseURL:      llm.BaseURL,
			Proxy:        llm.Proxy,
			Model:        llm.Model,
			SystemPrompt: llm.SystemPrompt,
			Timeout:      timeout,
		}), nil
	case "anthropic":
		return anthropicprovider.NewProvider(anthropicprovider.Options{
			APIKey:       llm.APIKey,
			BaseURL:      llm.BaseURL,
			Model:        llm.Model,
			SystemPrompt: llm.SystemPrompt,
			Timeout:      timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", llm.Provider)
	}
}
