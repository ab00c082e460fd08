// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package google

import (
	"context"

	"github.com/bridge-ai/bridge/internal/provider"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"google.golang.org/genai"
)

// Config holds Google provider configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Provider implements provider.Provider using the Gemini API.
type Provider struct {
	client *genai.Client
	config Config
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new Google provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, bridgeerr.New(bridgeerr.CodeConfigMissingCredential, "google: missing api_key in config",
			bridgeerr.FieldProvider("google"))
	}
	if cfg.Model == "" {
		return nil, bridgeerr.New(bridgeerr.CodeProviderRequestInvalid, "google: missing model in config",
			bridgeerr.FieldProvider("google"))
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, bridgeerr.Wrap(err, bridgeerr.CodeProviderRequestInvalid, "google: creating client",
			bridgeerr.FieldProvider("google"))
	}

	return &Provider{client: client, config: cfg}, nil
}

func (p *Provider) Name() string            { return "google" }
func (p *Provider) Source() provider.Source { return provider.SourceOnline }
func (p *Provider) Model() string           { return p.config.Model }
func (p *Provider) Close() error            { return nil }

func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	contents, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	cfg := buildConfig(req)

	eventCh := make(chan provider.ChatEvent, 64)
	go func() {
		defer close(eventCh)
		p.streamChat(ctx, contents, cfg, eventCh)
	}()

	return eventCh, nil
}

// Ping generates a single output token.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.Models.GenerateContent(ctx, p.config.Model, genai.Text("ping"), &genai.GenerateContentConfig{
		MaxOutputTokens: 1,
	})
	if err != nil {
		return bridgeerr.Wrap(err, bridgeerr.CodeProviderUpstreamFailure, "google: ping failed",
			bridgeerr.FieldProvider("google"))
	}
	return nil
}

func buildConfig(req provider.ChatRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if req.Options.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Options.Temperature)
	}
	if req.Options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Options.MaxTokens)
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	return cfg
}

// convertMessages maps roles onto Gemini's user/model pair. System messages
// are carried by SystemInstruction instead.
func convertMessages(msgs []provider.Message) ([]*genai.Content, error) {
	result := make([]*genai.Content, 0, len(msgs))

	for _, msg := range msgs {
		var role string
		switch msg.Role {
		case provider.MessageRoleUser:
			role = "user"
		case provider.MessageRoleAssistant:
			role = "model"
		case provider.MessageRoleSystem:
			continue
		default:
			return nil, bridgeerr.Errorf(bridgeerr.CodeProviderRequestInvalid, "google: unsupported message role %q", msg.Role)
		}
		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	if len(result) == 0 {
		return nil, bridgeerr.New(bridgeerr.CodeProviderRequestInvalid, "google: request has no messages")
	}
	return result, nil
}

func (p *Provider) streamChat(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig, ch chan<- provider.ChatEvent) {
	usage := provider.Usage{Model: p.config.Model}
	var sawUsage bool

	for result, err := range p.client.Models.GenerateContentStream(ctx, p.config.Model, contents, cfg) {
		if err != nil {
			provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeError, Error: err.Error()})
			return
		}

		if result.ModelVersion != "" {
			usage.Model = result.ModelVersion
		}

		for _, candidate := range result.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text == "" || part.Thought {
					continue
				}
				if !provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: part.Text}) {
					return
				}
			}
		}

		// Each chunk repeats the running totals; keep the latest.
		if md := result.UsageMetadata; md != nil {
			sawUsage = true
			usage.InputTokens = int(md.PromptTokenCount)
			usage.OutputTokens = int(md.CandidatesTokenCount)
		}
	}

	if sawUsage {
		if !provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeUsage, Usage: &usage}) {
			return
		}
	}
	provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeDone})
}
