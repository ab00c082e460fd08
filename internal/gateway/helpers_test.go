// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package gateway_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bridge-ai/bridge/internal/gateway"
	"github.com/bridge-ai/bridge/internal/provider"
	"github.com/bridge-ai/bridge/internal/session"
	"github.com/bridge-ai/bridge/internal/usage"
	"github.com/bridge-ai/bridge/pkg/health"
	"github.com/stretchr/testify/require"
)

// fakeProvider replays a scripted stream.
type fakeProvider struct {
	name   string
	source provider.Source
	model  string

	chatErr error
	events  []provider.ChatEvent
	// hang blocks after the scripted events until the context ends.
	hang bool
	// noDone closes the channel without a done event.
	noDone bool

	mu       sync.Mutex
	requests []provider.ChatRequest
}

func newRemote(events ...provider.ChatEvent) *fakeProvider {
	return &fakeProvider{name: "openai", source: provider.SourceOnline, model: "llama-3.3-70b", events: events}
}

func newLocal(events ...provider.ChatEvent) *fakeProvider {
	return &fakeProvider{name: "local", source: provider.SourceOffline, events: events}
}

func (f *fakeProvider) Name() string               { return f.name }
func (f *fakeProvider) Source() provider.Source    { return f.source }
func (f *fakeProvider) Model() string              { return f.model }
func (f *fakeProvider) Ping(context.Context) error { return nil }
func (f *fakeProvider) Close() error               { return nil }

func (f *fakeProvider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.chatErr != nil {
		return nil, f.chatErr
	}

	ch := make(chan provider.ChatEvent)
	go func() {
		defer close(ch)
		for _, ev := range f.events {
			if !provider.Send(ctx, ch, ev) {
				return
			}
		}
		if f.hang {
			<-ctx.Done()
			return
		}
		if !f.noDone {
			provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeDone})
		}
	}()
	return ch, nil
}

func (f *fakeProvider) calls() []provider.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.ChatRequest(nil), f.requests...)
}

func text(s string) provider.ChatEvent {
	return provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: s}
}

func failure(msg string) provider.ChatEvent {
	return provider.ChatEvent{Type: provider.EventTypeError, Error: msg}
}

func usageEvent(model string, in, out int) provider.ChatEvent {
	return provider.ChatEvent{Type: provider.EventTypeUsage, Usage: &provider.Usage{Model: model, InputTokens: in, OutputTokens: out}}
}

type fakeStatus struct {
	mu    sync.Mutex
	st    health.Status
	calls int
}

func (f *fakeStatus) Status(context.Context, bool) health.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.st
}

func available() *fakeStatus {
	return &fakeStatus{st: health.Status{Online: true, ProviderAvailable: true, CheckedAt: time.Now()}}
}

func unavailable() *fakeStatus {
	return &fakeStatus{st: health.Status{Online: true, CheckedAt: time.Now()}}
}

type fakeUsage struct {
	mu      sync.Mutex
	records []usage.Record
}

func (f *fakeUsage) Record(_ context.Context, rec usage.Record) error {
	f.mu.Lock()
	f.records = append(f.records, rec)
	f.mu.Unlock()
	return nil
}

type harness struct {
	gw       *gateway.Gateway
	remote   *fakeProvider
	local    *fakeProvider
	sessions *session.Store
	health   *provider.HealthTracker
	usage    *fakeUsage
}

func newHarness(t *testing.T, remote, local *fakeProvider, status gateway.StatusSource, cfg gateway.Config) *harness {
	t.Helper()
	sessions := session.New(session.Config{MaxHistory: 8})
	ht, err := provider.NewHealthTracker(time.Minute)
	require.NoError(t, err)
	rec := &fakeUsage{}

	if cfg.SystemPromptOnline == "" {
		cfg.SystemPromptOnline = "online prompt"
	}
	if cfg.SystemPromptOffline == "" {
		cfg.SystemPromptOffline = "offline prompt"
	}

	gw, err := gateway.New(cfg, gateway.Deps{
		Remote:   remote,
		Local:    local,
		Sessions: sessions,
		Status:   status,
		Health:   ht,
		Usage:    rec,
	})
	require.NoError(t, err)
	return &harness{gw: gw, remote: remote, local: local, sessions: sessions, health: ht, usage: rec}
}

// collect drains a stream, failing the test if it does not end in time.
func collect(t *testing.T, ch <-chan gateway.Event) []gateway.Event {
	t.Helper()
	var events []gateway.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream did not close")
			return nil
		}
	}
}

// requireTerminated asserts exactly one Done, in last position.
func requireTerminated(t *testing.T, events []gateway.Event) {
	t.Helper()
	require.NotEmpty(t, events)
	done := 0
	for _, ev := range events {
		if ev.Kind == gateway.EventDone {
			done++
		}
	}
	require.Equal(t, 1, done, "exactly one done event")
	require.Equal(t, gateway.EventDone, events[len(events)-1].Kind)
}

func kinds(events []gateway.Event) []gateway.EventKind {
	out := make([]gateway.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func contentBySource(events []gateway.Event, src provider.Source) string {
	var s string
	for _, ev := range events {
		if ev.Kind == gateway.EventContent && ev.Source == src {
			s += ev.Text
		}
	}
	return s
}
