// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package server

import (
	"context"

	"github.com/bridge-ai/bridge/internal/gateway"
	"github.com/bridge-ai/bridge/internal/provider"
	"github.com/bridge-ai/bridge/internal/session"
	"github.com/bridge-ai/bridge/internal/usage"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/bridge-ai/bridge/pkg/health"
)

// ChatService streams answers to chat requests.
type ChatService interface {
	Stream(ctx context.Context, req gateway.Request) <-chan gateway.Event
}

// SessionService exposes the conversation history.
type SessionService interface {
	Snapshot(sessionID string) session.Snapshot
	Clear(sessionID string)
	Len() int
}

// ConnectivityService reports (and on demand refreshes) reachability.
type ConnectivityService interface {
	Status(ctx context.Context, force bool) health.Status
}

// UsageService summarizes recorded remote usage.
type UsageService interface {
	Totals(ctx context.Context) (usage.Totals, error)
}

// Services holds the dependencies the HTTP routes call into. Remote, Health
// and Usage only feed the status endpoint and may be nil.
type Services struct {
	Chat         ChatService
	Sessions     SessionService
	Connectivity ConnectivityService

	Remote provider.Provider
	Health *provider.HealthTracker
	Usage  UsageService
}

func (s *Services) validate() error {
	switch {
	case s == nil:
		return bridgeerr.New(bridgeerr.CodeServerConfigInvalid, "services are required")
	case s.Chat == nil:
		return bridgeerr.New(bridgeerr.CodeServerConfigInvalid, "chat service is required")
	case s.Sessions == nil:
		return bridgeerr.New(bridgeerr.CodeServerConfigInvalid, "session service is required")
	case s.Connectivity == nil:
		return bridgeerr.New(bridgeerr.CodeServerConfigInvalid, "connectivity service is required")
	}
	return nil
}
