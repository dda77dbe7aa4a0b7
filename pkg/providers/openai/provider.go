package openaiprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/golix/golix-bridge/pkg/logger"
)

const (
	defaultModel          = "gpt-4o-mini"
	defaultRequestTimeout = 60 * time.Second
)

type Options struct {
	APIKey       string
	BaseURL      string
	Proxy        string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

type Provider struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

func NewProvider(opts Options) *Provider {
	httpClient := &http.Client{Timeout: defaultRequestTimeout}
	if opts.Timeout > 0 {
		httpClient.Timeout = opts.Timeout
	}
	if opts.Proxy != "" {
		parsed, err := url.Parse(opts.Proxy)
		if err == nil {
			httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
		} else {
			logger.WarnCF("openai", "invalid proxy URL, ignoring", map[string]any{
				"proxy": opts.Proxy,
				"error": err.Error(),
			})
		}
	}

	reqOpts := []option.RequestOption{
		option.WithHTTPClient(httpClient),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")))
	}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	client := openai.NewClient(reqOpts...)
	return &Provider{
		client:       &client,
		model:        model,
		systemPrompt: opts.SystemPrompt,
	}
}

// Complete sends the system prompt plus the user text and returns the
// first choice's content.
func (p *Provider) Complete(ctx context.Context, text string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.systemPrompt),
			openai.UserMessage(text),
		},
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf(
				"OpenAI API request failed (status=%d): %s",
				apiErr.StatusCode,
				strings.TrimSpace(apiErr.Message),
			)
		}
		return "", fmt.Errorf("OpenAI API request failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
