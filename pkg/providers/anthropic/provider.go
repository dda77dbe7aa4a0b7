package anthropicprovider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultBaseURL        = "https://api.anthropic.com"
	defaultModel          = "claude-sonnet-4-20250514"
	defaultRequestTimeout = 60 * time.Second
	maxReplyTokens        = 1024
)

type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

type Provider struct {
	client       *anthropic.Client
	model        string
	systemPrompt string
}

func NewProvider(opts Options) *Provider {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := defaultRequestTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	client := anthropic.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return &Provider{
		client:       &client,
		model:        model,
		systemPrompt: opts.SystemPrompt,
	}
}

// Complete sends the user text with the configured system prompt and
// concatenates the text blocks of the reply.
func (p *Provider) Complete(ctx context.Context, text string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxReplyTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	}
	if p.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.systemPrompt}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			tb := block.AsText()
			content += tb.Text
		}
	}
	if content == "" {
		return "", fmt.Errorf("claude API returned no text content")
	}
	return content, nil
}
