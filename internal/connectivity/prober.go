// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

// Package connectivity answers "is the network up, and is the remote provider
// usable?" with a short-lived cached status.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/bridge-ai/bridge/pkg/health"
	"golang.org/x/sync/singleflight"
)

// Defaults applied when a Config field is zero.
const (
	DefaultTTL           = 10 * time.Second
	DefaultProbeTimeout  = 3 * time.Second
	DefaultRefreshBudget = 10 * time.Second
)

// DefaultEndpoints are tried in order by ProbeNetwork.
var DefaultEndpoints = []string{
	"https://www.google.com",
	"https://1.1.1.1",
	"https://8.8.8.8",
}

const refreshKey = "refresh"

// Pinger is the remote provider capability check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeFunc reports whether a reachability check succeeded.
type ProbeFunc func(ctx context.Context) bool

// Config controls probing and caching.
type Config struct {
	TTL           time.Duration
	ProbeTimeout  time.Duration
	RefreshBudget time.Duration
	Endpoints     []string
	// HTTPClient overrides the client used for network probes.
	HTTPClient *http.Client
}

// Prober caches the connectivity status and refreshes it on demand.
type Prober struct {
	cfg    Config
	client *http.Client
	remote Pinger

	mu            sync.RWMutex
	status        health.Status
	probeNetwork  ProbeFunc
	probeProvider ProbeFunc
	nowFunc       func() time.Time

	group singleflight.Group
}

// New creates a Prober for the given remote provider. The cache starts empty,
// so the first Status call always probes.
func New(cfg Config, remote Pinger) *Prober {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.RefreshBudget <= 0 {
		cfg.RefreshBudget = DefaultRefreshBudget
	}
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = DefaultEndpoints
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			// A redirect is proof enough of reachability.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	p := &Prober{cfg: cfg, client: client, remote: remote, nowFunc: time.Now}
	p.probeNetwork = p.ProbeNetwork
	p.probeProvider = p.ProbeProvider
	return p
}

// SetNetworkProbe replaces the network probe (for testing).
func (p *Prober) SetNetworkProbe(fn ProbeFunc) {
	p.mu.Lock()
	p.probeNetwork = fn
	p.mu.Unlock()
}

// SetProviderProbe replaces the provider probe (for testing).
func (p *Prober) SetProviderProbe(fn ProbeFunc) {
	p.mu.Lock()
	p.probeProvider = fn
	p.mu.Unlock()
}

// SetNowFunc overrides the time source (for testing).
func (p *Prober) SetNowFunc(fn func() time.Time) {
	p.mu.Lock()
	p.nowFunc = fn
	p.mu.Unlock()
}

// ProbeNetwork GETs each endpoint in order and reports true on the first
// 2xx or 3xx answer. Errors are logged and count as unreachable.
func (p *Prober) ProbeNetwork(ctx context.Context) bool {
	for _, endpoint := range p.cfg.Endpoints {
		if ctx.Err() != nil {
			return false
		}
		if err := p.get(ctx, endpoint); err != nil {
			slog.Debug("network probe failed", "endpoint", endpoint, "error", err)
			continue
		}
		return true
	}
	return false
}

func (p *Prober) get(ctx context.Context, endpoint string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return bridgeerr.Wrap(err, bridgeerr.CodeConnectivityProbeFailure, "building probe request",
			bridgeerr.FieldEndpoint(endpoint))
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return bridgeerr.Wrap(err, bridgeerr.CodeConnectivityProbeFailure, "probe request failed",
			bridgeerr.FieldEndpoint(endpoint))
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return bridgeerr.Errorf(bridgeerr.CodeConnectivityProbeFailure, "probe %s returned HTTP %d", endpoint, resp.StatusCode)
	}
	return nil
}

// ProbeProvider pings the remote provider. Any error, including a missing
// credential, is logged and reported as unavailable.
func (p *Prober) ProbeProvider(ctx context.Context) bool {
	if p.remote == nil {
		return false
	}
	if err := p.remote.Ping(ctx); err != nil {
		slog.Warn("remote provider probe failed",
			"error", err,
			"code", bridgeerr.CodeOf(err))
		return false
	}
	return true
}

// Cached returns the last computed status without probing.
func (p *Prober) Cached() health.Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Status returns the cached status while it is younger than the TTL, unless
// force is set. Otherwise it probes the network and, only if that succeeds,
// the remote provider. Concurrent non-forced refreshes share one probe run.
func (p *Prober) Status(ctx context.Context, force bool) health.Status {
	if !force {
		p.mu.RLock()
		cached, now := p.status, p.nowFunc()
		p.mu.RUnlock()
		if cached.Age(now) < p.cfg.TTL {
			return cached
		}
	}

	if force {
		return p.refresh(ctx)
	}

	// The shared flight must outlive any single caller's cancellation.
	resCh := p.group.DoChan(refreshKey, func() (any, error) {
		return p.refresh(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-resCh:
		return res.Val.(health.Status)
	case <-ctx.Done():
		return p.Cached()
	}
}

func (p *Prober) refresh(ctx context.Context) health.Status {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RefreshBudget)
	defer cancel()

	p.mu.RLock()
	probeNetwork, probeProvider, nowFunc := p.probeNetwork, p.probeProvider, p.nowFunc
	p.mu.RUnlock()

	var st health.Status
	st.Online = probeNetwork(ctx)
	if st.Online {
		st.ProviderAvailable = probeProvider(ctx)
	}
	st.CheckedAt = nowFunc()
	st = st.Normalize()

	p.mu.Lock()
	if !st.CheckedAt.Before(p.status.CheckedAt) {
		p.status = st
	} else {
		st = p.status
	}
	p.mu.Unlock()

	slog.Info("connectivity refreshed",
		"online", st.Online,
		"provider_available", st.ProviderAvailable)
	return st
}
