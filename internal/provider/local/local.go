// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

// Package local talks to the local inference engine over HTTP. The engine
// answers with a stream of JSON frames, either SSE ("data: {...}") or one
// JSON object per line.
package local

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bridge-ai/bridge/internal/provider"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
)

// maxFrameSize bounds a single frame line.
const maxFrameSize = 1 << 20

// Config holds local engine configuration.
type Config struct {
	Endpoint string
	// Timeout bounds a whole generation, headers and body included.
	Timeout time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Provider implements provider.Provider against the local engine endpoint.
type Provider struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

var _ provider.Provider = (*Provider)(nil)

// New validates the endpoint URL. An unusable URL is a startup failure.
func New(cfg Config) (*Provider, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, bridgeerr.Errorf(bridgeerr.CodeEngineRequestInvalid,
			"local: endpoint must be an absolute http(s) URL, got %q", cfg.Endpoint)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Provider{endpoint: u.String(), timeout: cfg.Timeout, client: client}, nil
}

func (p *Provider) Name() string            { return "local" }
func (p *Provider) Source() provider.Source { return provider.SourceOffline }
func (p *Provider) Model() string           { return "" }
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// Ping only checks that the engine accepts connections.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.endpoint, nil)
	if err != nil {
		return bridgeerr.Wrap(err, bridgeerr.CodeEngineRequestInvalid, "local: building ping request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return bridgeerr.Wrap(err, bridgeerr.CodeEngineUpstreamFailure, "local: engine unreachable",
			bridgeerr.FieldEndpoint(p.endpoint))
	}
	_ = resp.Body.Close()
	return nil
}

type requestBody struct {
	Messages  []provider.Message `json:"messages"`
	SessionID string             `json:"session_id"`
	MaxTokens int                `json:"max_tokens,omitempty"`
}

// frame is the union of every frame shape the engine may send.
type frame struct {
	Content *string `json:"content"`
	Error   *string `json:"error"`
	Done    bool    `json:"done"`
}

func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	msgs := make([]provider.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, provider.Message{Role: provider.MessageRoleSystem, Content: req.SystemPrompt})
	}
	msgs = append(msgs, req.Messages...)

	body, err := json.Marshal(requestBody{
		Messages:  msgs,
		SessionID: req.SessionID,
		MaxTokens: req.Options.MaxTokens,
	})
	if err != nil {
		return nil, bridgeerr.Wrap(err, bridgeerr.CodeEngineRequestInvalid, "local: encoding request")
	}

	var cancel context.CancelFunc = func() {}
	if p.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, bridgeerr.Wrap(err, bridgeerr.CodeEngineRequestInvalid, "local: building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream, application/x-ndjson")

	// The POST happens inside the goroutine so Chat never blocks on the engine.
	eventCh := make(chan provider.ChatEvent, 64)
	go func() {
		defer close(eventCh)
		defer cancel()

		resp, err := p.post(httpReq)
		if err != nil {
			provider.Send(ctx, eventCh, provider.ChatEvent{Type: provider.EventTypeError, Error: err.Error()})
			return
		}
		defer func() { _ = resp.Body.Close() }()
		readFrames(ctx, resp.Body, eventCh)
	}()

	return eventCh, nil
}

// post sends the request and rejects non-2xx answers.
func (p *Provider) post(req *http.Request) (*http.Response, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, bridgeerr.Wrap(err, bridgeerr.CodeEngineUpstreamFailure, "local: posting to engine",
			bridgeerr.FieldEndpoint(p.endpoint))
	}
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, bridgeerr.New(bridgeerr.CodeEngineUpstreamFailure,
			fmt.Sprintf("local: engine returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
			bridgeerr.FieldEndpoint(p.endpoint))
	}
	return resp, nil
}

// readFrames converts the engine's frames into chat events. A clean EOF
// counts as completion, matching engines that never send a done frame.
func readFrames(ctx context.Context, r io.Reader, ch chan<- provider.ChatEvent) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") || strings.HasPrefix(line, "event:") {
			continue
		}
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			line = strings.TrimSpace(data)
		}
		if line == "[DONE]" {
			provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeDone})
			return
		}

		var f frame
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			provider.Send(ctx, ch, provider.ChatEvent{
				Type:  provider.EventTypeError,
				Error: fmt.Sprintf("local: malformed frame: %v", err),
			})
			return
		}

		switch {
		case f.Error != nil:
			provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeError, Error: *f.Error})
			return
		case f.Done:
			provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeDone})
			return
		case f.Content != nil && *f.Content != "":
			if !provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: *f.Content}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		provider.Send(ctx, ch, provider.ChatEvent{
			Type:  provider.EventTypeError,
			Error: bridgeerr.Wrap(err, bridgeerr.CodeEngineUpstreamFailure, "local: reading stream").Error(),
		})
		return
	}

	provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeDone})
}
