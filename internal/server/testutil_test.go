// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package server_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bridge-ai/bridge/internal/gateway"
	"github.com/bridge-ai/bridge/internal/server"
	"github.com/bridge-ai/bridge/internal/session"
	"github.com/bridge-ai/bridge/internal/usage"
	"github.com/bridge-ai/bridge/pkg/health"
	"github.com/stretchr/testify/require"
)

// fakeChat replays a fixed event sequence and records requests.
type fakeChat struct {
	events []gateway.Event

	mu       sync.Mutex
	requests []gateway.Request
}

func (f *fakeChat) Stream(ctx context.Context, req gateway.Request) <-chan gateway.Event {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	ch := make(chan gateway.Event)
	go func() {
		defer close(ch)
		for _, ev := range f.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (f *fakeChat) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeChat) last() gateway.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeConnectivity struct {
	mu     sync.Mutex
	st     health.Status
	forced int
	cached int
}

func (f *fakeConnectivity) Status(_ context.Context, force bool) health.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if force {
		f.forced++
	} else {
		f.cached++
	}
	return f.st
}

type fakeUsage struct {
	totals usage.Totals
	err    error
}

func (f *fakeUsage) Totals(context.Context) (usage.Totals, error) {
	return f.totals, f.err
}

type testEnv struct {
	srv          *server.Server
	chat         *fakeChat
	connectivity *fakeConnectivity
	sessions     *session.Store
}

func newTestEnv(t *testing.T, events ...gateway.Event) *testEnv {
	t.Helper()
	return newTestEnvWith(t, server.Config{ListenAddr: "127.0.0.1:0", Version: "1.2.3"}, func(*server.Services) {}, events...)
}

func newTestEnvWith(t *testing.T, cfg server.Config, mutate func(*server.Services), events ...gateway.Event) *testEnv {
	t.Helper()
	env := &testEnv{
		chat: &fakeChat{events: events},
		connectivity: &fakeConnectivity{st: health.Status{
			Online:            true,
			ProviderAvailable: true,
			CheckedAt:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}},
		sessions: session.New(session.Config{}),
	}
	svc := &server.Services{
		Chat:         env.chat,
		Sessions:     env.sessions,
		Connectivity: env.connectivity,
	}
	mutate(svc)

	srv, err := server.New(cfg, svc)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	env.srv = srv
	return env
}
