// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bridge-ai/bridge/internal/config"
	"github.com/bridge-ai/bridge/internal/connectivity"
	"github.com/bridge-ai/bridge/internal/gateway"
	"github.com/bridge-ai/bridge/internal/provider"
	anthropicprov "github.com/bridge-ai/bridge/internal/provider/anthropic"
	googleprov "github.com/bridge-ai/bridge/internal/provider/google"
	localprov "github.com/bridge-ai/bridge/internal/provider/local"
	openaiprov "github.com/bridge-ai/bridge/internal/provider/openai"
	"github.com/bridge-ai/bridge/internal/server"
	"github.com/bridge-ai/bridge/internal/session"
	"github.com/bridge-ai/bridge/internal/usage"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Server   *server.Server
	Gateway  *gateway.Gateway
	Prober   *connectivity.Prober
	Sessions *session.Store
	Remote   provider.Provider
	Local    provider.Provider
	Health   *provider.HealthTracker
	// Usage is nil when usage.db_path is empty.
	Usage *usage.Ledger
}

// Wire creates every subsystem from cfg and connects them.
func Wire(ctx context.Context, cfg *config.Config) (*App, error) {
	remote, err := newRemoteProvider(ctx, cfg.Remote)
	if err != nil {
		return nil, err
	}

	local, err := localprov.New(localprov.Config{
		Endpoint: cfg.Local.Endpoint,
		Timeout:  cfg.Local.Timeout,
	})
	if err != nil {
		_ = remote.Close()
		return nil, bridgeerr.Wrapf(err, bridgeerr.CodeCLISetupFailure, "creating local engine client")
	}

	app := &App{Remote: remote, Local: local}

	app.Health, err = provider.NewHealthTracker(provider.DefaultHealthCooldown)
	if err != nil {
		_ = app.Close()
		return nil, bridgeerr.Wrapf(err, bridgeerr.CodeCLISetupFailure, "creating health tracker")
	}

	app.Sessions = session.New(session.Config{
		MaxHistory:        cfg.Sessions.MaxHistory,
		TruncateThreshold: cfg.Sessions.TruncateThreshold,
		TruncateKeep:      cfg.Sessions.TruncateKeep,
	})

	app.Prober = connectivity.New(connectivity.Config{
		TTL:           cfg.Connectivity.TTL,
		ProbeTimeout:  cfg.Connectivity.ProbeTimeout,
		RefreshBudget: cfg.Connectivity.RefreshBudget,
		Endpoints:     cfg.Connectivity.Endpoints,
	}, remote)

	// Interface values stay nil, not typed-nil, when the ledger is disabled.
	var (
		recorder gateway.UsageRecorder
		totals   server.UsageService
	)
	if cfg.Usage.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Usage.DBPath), 0o700); err != nil {
			_ = app.Close()
			return nil, bridgeerr.Errorf(bridgeerr.CodeCLISetupFailure, "creating usage directory: %w", err)
		}
		app.Usage, err = usage.Open(cfg.Usage.DBPath)
		if err != nil {
			_ = app.Close()
			return nil, bridgeerr.Wrapf(err, bridgeerr.CodeCLISetupFailure, "opening usage ledger")
		}
		recorder, totals = app.Usage, app.Usage
	}

	app.Gateway, err = gateway.New(gateway.Config{
		FirstChunkTimeout:   cfg.Gateway.FirstChunkTimeout,
		MaxQueryLength:      cfg.Gateway.MaxQueryLength,
		SystemPromptOnline:  cfg.Gateway.SystemPromptOnline,
		SystemPromptOffline: cfg.Gateway.SystemPromptOffline,
		RemoteOptions: provider.ChatOptions{
			Temperature: float32(cfg.Remote.Temperature),
			MaxTokens:   cfg.Remote.MaxTokens,
		},
		LocalOptions: provider.ChatOptions{MaxTokens: cfg.Local.MaxTokens},
	}, gateway.Deps{
		Remote:   remote,
		Local:    local,
		Sessions: app.Sessions,
		Status:   app.Prober,
		Health:   app.Health,
		Usage:    recorder,
	})
	if err != nil {
		_ = app.Close()
		return nil, bridgeerr.Wrapf(err, bridgeerr.CodeCLISetupFailure, "creating gateway")
	}

	app.Server, err = server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Networking.RateLimitRPS,
			Burst:             cfg.Networking.RateLimitBurst,
		},
		Version: version,
	}, &server.Services{
		Chat:         app.Gateway,
		Sessions:     app.Sessions,
		Connectivity: app.Prober,
		Remote:       remote,
		Health:       app.Health,
		Usage:        totals,
	})
	if err != nil {
		_ = app.Close()
		return nil, bridgeerr.Wrapf(err, bridgeerr.CodeCLISetupFailure, "creating server")
	}

	return app, nil
}

// Start runs the HTTP server and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	return a.Server.Start(ctx)
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	if a.Server != nil {
		a.Server.Close()
	}

	type closer interface{ Close() error }
	closers := []closer{a.Remote, a.Local}
	if a.Usage != nil {
		closers = append(closers, a.Usage)
	}

	var errs []error
	for _, c := range closers {
		if c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return bridgeerr.Join(errs...)
}

// newRemoteProvider builds the configured remote client. A missing credential
// is not fatal: the gateway then serves everything locally.
func newRemoteProvider(ctx context.Context, cfg config.RemoteConfig) (provider.Provider, error) {
	// The default endpoint only makes sense for OpenAI-compatible APIs.
	baseURL := cfg.Endpoint
	if cfg.Provider != "openai" && baseURL == config.DefaultRemoteEndpoint {
		baseURL = ""
	}

	var (
		p   provider.Provider
		err error
	)
	switch cfg.Provider {
	case "openai":
		p, err = openaiprov.New(openaiprov.Config{APIKey: cfg.APIKey, BaseURL: baseURL, Model: cfg.Model})
	case "anthropic":
		p, err = anthropicprov.New(anthropicprov.Config{APIKey: cfg.APIKey, BaseURL: baseURL, Model: cfg.Model})
	case "google":
		p, err = googleprov.New(ctx, googleprov.Config{APIKey: cfg.APIKey, BaseURL: baseURL, Model: cfg.Model})
	default:
		return nil, bridgeerr.Errorf(bridgeerr.CodeCLISetupFailure, "unknown remote provider %q", cfg.Provider)
	}

	if err != nil {
		if bridgeerr.IsMissingCredential(err) {
			slog.Warn("remote provider has no api key, serving offline only",
				"provider", cfg.Provider,
				"hint", "set remote.api_key or BRIDGE_REMOTE_API_KEY")
			return provider.NewUnconfigured(cfg.Provider, cfg.Model, "missing api key"), nil
		}
		return nil, bridgeerr.Wrapf(err, bridgeerr.CodeCLISetupFailure, "creating %s provider", cfg.Provider)
	}

	slog.Info("remote provider ready", "provider", cfg.Provider, "model", cfg.Model)
	return p, nil
}
