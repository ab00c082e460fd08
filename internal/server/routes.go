// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bridge-ai/bridge/internal/provider"
	"github.com/bridge-ai/bridge/internal/session"
	"github.com/bridge-ai/bridge/internal/usage"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/bridge-ai/bridge/pkg/health"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "root",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Service descriptor",
		Tags:        []string{"system"},
	}, s.handleRoot)

	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check with connectivity",
		Tags:        []string{"system"},
	}, s.handleHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh-network",
		Method:      http.MethodPost,
		Path:        "/refresh-network",
		Summary:     "Re-probe connectivity, bypassing the cache",
		Tags:        []string{"system"},
	}, s.handleRefreshNetwork)

	huma.Register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Gateway status",
		Tags:        []string{"system"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "clear-chat",
		Method:      http.MethodPost,
		Path:        "/api/chat/clear/{sessionId}",
		Summary:     "Clear a session's history",
		Tags:        []string{"chat"},
	}, s.handleClearChat)

	huma.Register(s.api, huma.Operation{
		OperationID: "session-history",
		Method:      http.MethodGet,
		Path:        "/api/sessions/{sessionId}/history",
		Summary:     "Both history views of a session",
		Tags:        []string{"chat"},
	}, s.handleSessionHistory)
}

// --- Request and response types ---

type rootOutput struct {
	Body struct {
		Service string `json:"service" example:"Bridge Gateway"`
		Version string `json:"version" example:"0.1.0"`
		Status  string `json:"status" example:"running"`
	}
}

type healthOutput struct {
	Body struct {
		Status            string `json:"status" example:"healthy" doc:"Health status"`
		Online            bool   `json:"online" doc:"Network reachable"`
		ProviderAvailable bool   `json:"provider_available" doc:"Remote provider usable"`
	}
}

type refreshOutput struct {
	Body health.Status
}

// RemoteStatus describes the configured remote provider.
type RemoteStatus struct {
	Provider   string          `json:"provider"`
	Model      string          `json:"model"`
	Configured bool            `json:"configured"`
	Reason     string          `json:"reason,omitempty" doc:"Why the provider is unconfigured"`
	Health     *health.Metrics `json:"health,omitempty"`
}

// StatusBody is the JSON body of the status endpoint.
type StatusBody struct {
	Status       string        `json:"status" example:"ok"`
	Version      string        `json:"version"`
	Connectivity health.Status `json:"connectivity"`
	Remote       *RemoteStatus `json:"remote,omitempty"`
	Sessions     int           `json:"sessions" doc:"Live sessions"`
	Usage        *usage.Totals `json:"usage,omitempty"`
}

type statusOutput struct {
	Body StatusBody
}

type sessionInput struct {
	SessionID string `path:"sessionId" minLength:"1" doc:"Session identifier"`
}

type clearOutput struct {
	Body struct {
		Status    string `json:"status" example:"cleared"`
		SessionID string `json:"session_id"`
	}
}

type historyOutput struct {
	Body struct {
		SessionID string         `json:"session_id"`
		Full      []session.Turn `json:"full"`
		Local     []session.Turn `json:"local"`
	}
}

// --- Handlers ---

func (s *Server) handleRoot(_ context.Context, _ *struct{}) (*rootOutput, error) {
	out := &rootOutput{}
	out.Body.Service = "Bridge Gateway"
	out.Body.Version = s.cfg.Version
	out.Body.Status = "running"
	return out, nil
}

func (s *Server) handleHealth(ctx context.Context, _ *struct{}) (*healthOutput, error) {
	st := s.services.Connectivity.Status(ctx, false)
	out := &healthOutput{}
	out.Body.Status = "healthy"
	out.Body.Online = st.Online
	out.Body.ProviderAvailable = st.ProviderAvailable
	return out, nil
}

func (s *Server) handleRefreshNetwork(ctx context.Context, _ *struct{}) (*refreshOutput, error) {
	st := s.services.Connectivity.Status(ctx, true)
	slog.Info("connectivity refresh requested",
		"online", st.Online,
		"provider_available", st.ProviderAvailable)
	return &refreshOutput{Body: st}, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	out := &statusOutput{}
	out.Body.Status = "ok"
	out.Body.Version = s.cfg.Version
	out.Body.Connectivity = s.services.Connectivity.Status(ctx, false)
	out.Body.Sessions = s.services.Sessions.Len()

	if remote := s.services.Remote; remote != nil {
		rs := &RemoteStatus{
			Provider:   remote.Name(),
			Model:      remote.Model(),
			Configured: provider.IsConfigured(remote),
		}
		if u, ok := remote.(*provider.Unconfigured); ok {
			rs.Reason = u.Reason()
		}
		if s.services.Health != nil {
			m := s.services.Health.Metrics()
			rs.Health = &m
		}
		out.Body.Remote = rs
	}

	if s.services.Usage != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		totals, err := s.services.Usage.Totals(ctx)
		if err != nil {
			return nil, huma.NewError(bridgeerr.HTTPStatus(err), "reading usage totals", err)
		}
		out.Body.Usage = &totals
	}

	return out, nil
}

func (s *Server) handleClearChat(_ context.Context, input *sessionInput) (*clearOutput, error) {
	s.services.Sessions.Clear(input.SessionID)
	slog.Info("session cleared", "session_id", shortID(input.SessionID))

	out := &clearOutput{}
	out.Body.Status = "cleared"
	out.Body.SessionID = input.SessionID
	return out, nil
}

func (s *Server) handleSessionHistory(_ context.Context, input *sessionInput) (*historyOutput, error) {
	snap := s.services.Sessions.Snapshot(input.SessionID)

	out := &historyOutput{}
	out.Body.SessionID = input.SessionID
	out.Body.Full = nonNil(snap.Full)
	out.Body.Local = nonNil(snap.Local)
	return out, nil
}

func nonNil(turns []session.Turn) []session.Turn {
	if turns == nil {
		return []session.Turn{}
	}
	return turns
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
