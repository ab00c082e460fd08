// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package anthropic

import (
	"context"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/bridge-ai/bridge/internal/provider"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
)

// defaultMaxTokens is used when the request leaves MaxTokens unset, since the
// Messages API requires it.
const defaultMaxTokens = 1024

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries *int
}

// Provider implements provider.Provider using the Anthropic Messages API.
type Provider struct {
	client anthropicsdk.Client
	config Config
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new Anthropic provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, bridgeerr.New(bridgeerr.CodeConfigMissingCredential, "anthropic: missing api_key in config",
			bridgeerr.FieldProvider("anthropic"))
	}
	if cfg.Model == "" {
		return nil, bridgeerr.New(bridgeerr.CodeProviderRequestInvalid, "anthropic: missing model in config",
			bridgeerr.FieldProvider("anthropic"))
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

	return &Provider{client: anthropicsdk.NewClient(opts...), config: cfg}, nil
}

func (p *Provider) Name() string            { return "anthropic" }
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

// Ping sends a one-token message.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(p.config.Model),
		MaxTokens: 1,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return bridgeerr.Wrap(err, bridgeerr.CodeProviderUpstreamFailure, "anthropic: ping failed",
			bridgeerr.FieldProvider("anthropic"))
	}
	return nil
}

func buildParams(model string, req provider.ChatRequest) (anthropicsdk.MessageNewParams, error) {
	msgs, err := convertMessages(req.Messages)
	if err != nil {
		return anthropicsdk.MessageNewParams{}, err
	}

	maxTokens := int64(req.Options.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Options.Temperature > 0 {
		// The Messages API caps temperature at 1.
		params.Temperature = anthropicsdk.Float(min(float64(req.Options.Temperature), 1))
	}

	return params, nil
}

// convertMessages drops system messages; the system prompt travels in the
// top-level system parameter.
func convertMessages(msgs []provider.Message) ([]anthropicsdk.MessageParam, error) {
	result := make([]anthropicsdk.MessageParam, 0, len(msgs))

	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			result = append(result, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content)))
		case provider.MessageRoleAssistant:
			result = append(result, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content)))
		case provider.MessageRoleSystem:
			continue
		default:
			return nil, bridgeerr.Errorf(bridgeerr.CodeProviderRequestInvalid, "anthropic: unsupported message role %q", msg.Role)
		}
	}

	if len(result) == 0 {
		return nil, bridgeerr.New(bridgeerr.CodeProviderRequestInvalid, "anthropic: request has no messages")
	}
	return result, nil
}

func (p *Provider) streamChat(ctx context.Context, params anthropicsdk.MessageNewParams, ch chan<- provider.ChatEvent) {
	stream := p.client.Messages.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	usage := provider.Usage{Model: string(params.Model)}

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case "message_start":
			if event.Message.Model != "" {
				usage.Model = string(event.Message.Model)
			}
			usage.InputTokens = int(event.Message.Usage.InputTokens)

		case "content_block_delta":
			if event.Delta.Type != "text_delta" || event.Delta.Text == "" {
				continue
			}
			if !provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: event.Delta.Text}) {
				return
			}

		case "message_delta":
			// Output tokens here are cumulative.
			usage.OutputTokens = int(event.Usage.OutputTokens)

		case "message_stop":
			u := usage
			if !provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeUsage, Usage: &u}) {
				return
			}
			provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeDone})
			return
		}
	}

	if err := stream.Err(); err != nil {
		provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeError, Error: err.Error()})
		return
	}

	provider.Send(ctx, ch, provider.ChatEvent{
		Type:  provider.EventTypeError,
		Error: "anthropic: stream ended before message_stop",
	})
}
