// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

// Package openai adapts any OpenAI-compatible chat completions endpoint
// (OpenAI itself, Cerebras, OpenRouter, vLLM) to provider.Provider.
package openai

import (
	"context"

	"github.com/bridge-ai/bridge/internal/provider"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// Config holds OpenAI-compatible provider configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxRetries overrides the SDK retry count when non-nil.
	MaxRetries *int
}

// Provider implements provider.Provider using the Chat Completions API.
type Provider struct {
	client openaisdk.Client
	config Config
}

var _ provider.Provider = (*Provider)(nil)

// New creates a provider. A missing API key or model is a configuration error.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, bridgeerr.New(bridgeerr.CodeConfigMissingCredential, "openai: missing api_key in config",
			bridgeerr.FieldProvider("openai"))
	}
	if cfg.Model == "" {
		return nil, bridgeerr.New(bridgeerr.CodeProviderRequestInvalid, "openai: missing model in config",
			bridgeerr.FieldProvider("openai"))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries != nil {
		opts = append(opts, option.WithMaxRetries(*cfg.MaxRetries))
	}

	return &Provider{client: openaisdk.NewClient(opts...), config: cfg}, nil
}

func (p *Provider) Name() string            { return "openai" }
func (p *Provider) Source() provider.Source { return provider.SourceOnline }
func (p *Provider) Model() string           { return p.config.Model }
func (p *Provider) Close() error            { return nil }

func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	params, err := buildParams(p.config.Model, req)
	if err != nil {
		return nil, err
	}

	eventCh := make(chan provider.ChatEvent, 64)
	go func() {
		defer close(eventCh)
		p.streamChat(ctx, params, eventCh)
	}()

	return eventCh, nil
}

// Ping asks for a single completion token.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:               shared.ChatModel(p.config.Model),
		Messages:            []openaisdk.ChatCompletionMessageParamUnion{openaisdk.UserMessage("ping")},
		MaxCompletionTokens: param.NewOpt(int64(1)),
	})
	if err != nil {
		return bridgeerr.Wrap(err, bridgeerr.CodeProviderUpstreamFailure, "openai: ping failed",
			bridgeerr.FieldProvider("openai"))
	}
	return nil
}

func buildParams(model string, req provider.ChatRequest) (openaisdk.ChatCompletionNewParams, error) {
	msgs, err := convertMessages(req.Messages, req.SystemPrompt)
	if err != nil {
		return openaisdk.ChatCompletionNewParams{}, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: msgs,
		StreamOptions: openaisdk.ChatCompletionStreamOptionsParam{
			IncludeUsage: param.NewOpt(true),
		},
	}
	if req.Options.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.Options.MaxTokens))
	}
	if req.Options.Temperature > 0 {
		params.Temperature = param.NewOpt(float64(req.Options.Temperature))
	}

	return params, nil
}

// convertMessages prepends the system prompt, if any, as a system message.
func convertMessages(msgs []provider.Message, systemPrompt string) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	if len(msgs) == 0 {
		return nil, bridgeerr.New(bridgeerr.CodeProviderRequestInvalid, "openai: request has no messages")
	}

	result := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if systemPrompt != "" {
		result = append(result, openaisdk.SystemMessage(systemPrompt))
	}

	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			result = append(result, openaisdk.UserMessage(msg.Content))
		case provider.MessageRoleAssistant:
			result = append(result, openaisdk.AssistantMessage(msg.Content))
		case provider.MessageRoleSystem:
			result = append(result, openaisdk.SystemMessage(msg.Content))
		default:
			return nil, bridgeerr.Errorf(bridgeerr.CodeProviderRequestInvalid, "openai: unsupported message role %q", msg.Role)
		}
	}

	return result, nil
}

func (p *Provider) streamChat(ctx context.Context, params openaisdk.ChatCompletionNewParams, ch chan<- provider.ChatEvent) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	var model string
	for stream.Next() {
		chunk := stream.Current()
		if chunk.Model != "" {
			model = chunk.Model
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if !provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: choice.Delta.Content}) {
				return
			}
		}

		// Usage arrives on the final chunk when include_usage is set.
		if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
			ev := provider.ChatEvent{
				Type: provider.EventTypeUsage,
				Usage: &provider.Usage{
					Model:        model,
					InputTokens:  int(chunk.Usage.PromptTokens),
					OutputTokens: int(chunk.Usage.CompletionTokens),
				},
			}
			if !provider.Send(ctx, ch, ev) {
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeError, Error: err.Error()})
		return
	}

	provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeDone})
}
