// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

// Package gateway routes chat requests to the remote provider or the local
// engine and relays the resulting stream, falling back to the other backend
// at most once when the chosen one fails.
package gateway

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bridge-ai/bridge/internal/provider"
	"github.com/bridge-ai/bridge/internal/session"
	"github.com/bridge-ai/bridge/internal/usage"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/bridge-ai/bridge/pkg/health"
)

// DefaultFirstChunkTimeout bounds the wait for a backend's first event.
const DefaultFirstChunkTimeout = 30 * time.Second

// StatusSource supplies the cached connectivity status.
type StatusSource interface {
	Status(ctx context.Context, force bool) health.Status
}

// UsageRecorder persists token accounting for remote completions.
type UsageRecorder interface {
	Record(ctx context.Context, rec usage.Record) error
}

// Config tunes routing and relaying.
type Config struct {
	FirstChunkTimeout   time.Duration
	MaxQueryLength      int
	SystemPromptOnline  string
	SystemPromptOffline string
	RemoteOptions       provider.ChatOptions
	LocalOptions        provider.ChatOptions
}

// Deps are the collaborators a Gateway needs. Health and Usage are optional.
type Deps struct {
	Remote   provider.Provider
	Local    provider.Provider
	Sessions *session.Store
	Status   StatusSource
	Health   *provider.HealthTracker
	Usage    UsageRecorder
}

// Gateway is the chat entry point.
type Gateway struct {
	cfg      Config
	remote   provider.Provider
	local    provider.Provider
	sessions *session.Store
	status   StatusSource
	health   *provider.HealthTracker
	usage    UsageRecorder
}

// New validates deps and creates a Gateway.
func New(cfg Config, deps Deps) (*Gateway, error) {
	switch {
	case deps.Remote == nil:
		return nil, bridgeerr.New(bridgeerr.CodeGatewayRequestInvalid, "gateway: remote provider is required")
	case deps.Local == nil:
		return nil, bridgeerr.New(bridgeerr.CodeGatewayRequestInvalid, "gateway: local provider is required")
	case deps.Sessions == nil:
		return nil, bridgeerr.New(bridgeerr.CodeGatewayRequestInvalid, "gateway: session store is required")
	case deps.Status == nil:
		return nil, bridgeerr.New(bridgeerr.CodeGatewayRequestInvalid, "gateway: status source is required")
	}

	if cfg.FirstChunkTimeout <= 0 {
		cfg.FirstChunkTimeout = DefaultFirstChunkTimeout
	}

	hc := deps.Health
	if hc == nil {
		var err error
		if hc, err = provider.NewHealthTracker(provider.DefaultHealthCooldown); err != nil {
			return nil, err
		}
	}

	return &Gateway{
		cfg:      cfg,
		remote:   deps.Remote,
		local:    deps.Local,
		sessions: deps.Sessions,
		status:   deps.Status,
		health:   hc,
		usage:    deps.Usage,
	}, nil
}

// Request is an inbound chat request.
type Request struct {
	SessionID string
	Query     string
	// Online is the client's mode toggle. When false the remote provider is
	// never used.
	Online bool
}

// Decision is the routing outcome for a request.
type Decision struct {
	Backend provider.Source
	Reason  string
}

// Route picks the backend for req from the cached connectivity status.
func (g *Gateway) Route(ctx context.Context, req Request) Decision {
	if !req.Online {
		return Decision{Backend: provider.SourceOffline, Reason: "offline mode requested"}
	}

	st := g.status.Status(ctx, false)
	switch {
	case st.ProviderAvailable:
		return Decision{Backend: provider.SourceOnline, Reason: "remote provider available"}
	case !st.Online:
		return Decision{Backend: provider.SourceOffline, Reason: "network unreachable"}
	default:
		return Decision{Backend: provider.SourceOffline, Reason: "remote provider unavailable"}
	}
}

// Stream answers req as a stream of events. The channel always ends with
// exactly one EventDone unless ctx is cancelled first, in which case it is
// closed without further events.
func (g *Gateway) Stream(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)

		if err := g.validate(req); err != nil {
			slog.Warn("rejecting chat request",
				"session_id", shortID(req.SessionID),
				"error", err)
			if emit(ctx, out, errorEvent(err.Error())) {
				emit(ctx, out, doneEvent())
			}
			return
		}

		decision := g.Route(ctx, req)
		slog.Info("routing request",
			"session_id", shortID(req.SessionID),
			"backend", decision.Backend,
			"reason", decision.Reason)

		r := &relay{
			gw:      g,
			req:     req,
			history: g.sessions.Snapshot(req.SessionID),
			backend: decision.Backend,
			out:     out,
			state:   statePrimary,
		}
		r.run(ctx)
	}()
	return out
}

// Health returns the remote provider's health tracker.
func (g *Gateway) Health() *provider.HealthTracker {
	return g.health
}

// Remote returns the remote provider.
func (g *Gateway) Remote() provider.Provider {
	return g.remote
}

func (g *Gateway) validate(req Request) error {
	if req.SessionID == "" {
		return bridgeerr.New(bridgeerr.CodeGatewayRequestInvalid, "session_id must not be empty")
	}
	if strings.TrimSpace(req.Query) == "" {
		return bridgeerr.New(bridgeerr.CodeGatewayRequestInvalid, "query must not be empty",
			bridgeerr.FieldSessionID(req.SessionID))
	}
	if g.cfg.MaxQueryLength > 0 {
		if n := utf8.RuneCountInString(req.Query); n > g.cfg.MaxQueryLength {
			return bridgeerr.Errorf(bridgeerr.CodeGatewayRequestInvalid,
				"query is %d characters, limit is %d", n, g.cfg.MaxQueryLength)
		}
	}
	return nil
}

func (g *Gateway) backend(src provider.Source) provider.Provider {
	if src == provider.SourceOnline {
		return g.remote
	}
	return g.local
}

// chatRequest shapes the conversation for the given backend: the remote
// provider sees the full history, the local engine the compacted one.
func (g *Gateway) chatRequest(src provider.Source, req Request, history session.Snapshot) provider.ChatRequest {
	turns, prompt, opts := history.Full, g.cfg.SystemPromptOnline, g.cfg.RemoteOptions
	if src == provider.SourceOffline {
		turns, prompt, opts = history.Local, g.cfg.SystemPromptOffline, g.cfg.LocalOptions
	}

	msgs := make([]provider.Message, 0, len(turns)+1)
	msgs = append(msgs, session.Messages(turns)...)
	msgs = append(msgs, provider.Message{Role: provider.MessageRoleUser, Content: req.Query})

	return provider.ChatRequest{
		SessionID:    req.SessionID,
		Messages:     msgs,
		SystemPrompt: prompt,
		Options:      opts,
	}
}

func emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// shortID truncates a session id for logging.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
