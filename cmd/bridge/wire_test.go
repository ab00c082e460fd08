// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bridge-ai/bridge/internal/config"
	"github.com/bridge-ai/bridge/internal/gateway"
	"github.com/bridge-ai/bridge/internal/provider"
	anthropicprov "github.com/bridge-ai/bridge/internal/provider/anthropic"
	googleprov "github.com/bridge-ai/bridge/internal/provider/google"
	openaiprov "github.com/bridge-ai/bridge/internal/provider/openai"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestNewRemoteProvider(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		cfg      config.RemoteConfig
		wantType any
	}{
		{
			name:     "openai",
			cfg:      config.RemoteConfig{Provider: "openai", APIKey: "sk-1", Model: "llama-3.3-70b", Endpoint: config.DefaultRemoteEndpoint},
			wantType: &openaiprov.Provider{},
		},
		{
			name:     "anthropic ignores the default endpoint",
			cfg:      config.RemoteConfig{Provider: "anthropic", APIKey: "sk-1", Model: "claude-sonnet-4-5", Endpoint: config.DefaultRemoteEndpoint},
			wantType: &anthropicprov.Provider{},
		},
		{
			name:     "google",
			cfg:      config.RemoteConfig{Provider: "google", APIKey: "key", Model: "gemini-2.5-flash"},
			wantType: &googleprov.Provider{},
		},
		{
			name:     "missing key",
			cfg:      config.RemoteConfig{Provider: "openai", Model: "llama-3.3-70b"},
			wantType: &provider.Unconfigured{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newRemoteProvider(ctx, tt.cfg)
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, p)
			assert.Equal(t, tt.cfg.Model, p.Model())
			assert.Equal(t, provider.SourceOnline, p.Source())
		})
	}
}

func TestNewRemoteProvider_MissingKeyReason(t *testing.T) {
	p, err := newRemoteProvider(context.Background(), config.RemoteConfig{Provider: "anthropic", Model: "m"})
	require.NoError(t, err)

	require.False(t, provider.IsConfigured(p))
	u, ok := p.(*provider.Unconfigured)
	require.True(t, ok)
	assert.Equal(t, "anthropic", u.Name())
	assert.Equal(t, "missing api key", u.Reason())
}

func TestNewRemoteProvider_Unknown(t *testing.T) {
	_, err := newRemoteProvider(context.Background(), config.RemoteConfig{Provider: "bedrock", APIKey: "k", Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bedrock")
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	cfg.Usage.DBPath = filepath.Join(t.TempDir(), "nested", "usage.db")

	app, err := Wire(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Close()) }()

	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.Gateway)
	assert.NotNil(t, app.Prober)
	assert.NotNil(t, app.Sessions)
	assert.NotNil(t, app.Health)
	assert.NotNil(t, app.Usage)
	assert.False(t, provider.IsConfigured(app.Remote), "no api key in defaults")
	assert.Equal(t, 2*cfg.Sessions.MaxHistory, app.Sessions.Capacity())
}

func TestWire_UsageDisabled(t *testing.T) {
	app, err := Wire(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	assert.Nil(t, app.Usage)
}

func TestWire_BadLocalEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Local.Endpoint = "localhost:8000"

	_, err := Wire(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local")
}

func TestApp_GracefulShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Networking.Listen = "127.0.0.1:0"

	app, err := Wire(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.NoError(t, app.Start(ctx))
}

// TestWire_OfflineChat drives a wired app end to end against a fake local
// engine, with online mode off so no connectivity probe runs.
func TestWire_OfflineChat(t *testing.T) {
	engineReqs := make(chan map[string]any, 1)
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		engineReqs <- body
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, `{"content":"Hello"}`+"\n")
		_, _ = io.WriteString(w, `{"content":" there"}`+"\n")
		_, _ = io.WriteString(w, `{"done":true}`+"\n")
	}))
	defer engine.Close()

	cfg := testConfig(t)
	cfg.Local.Endpoint = engine.URL

	app, err := Wire(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	srv := httptest.NewServer(app.Server.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/chat", "application/json",
		strings.NewReader(`{"session_id":"wire-1","query":"hi","online":false}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []gateway.Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var ev gateway.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, 3)
	assert.Equal(t, "Hello", events[0].Text)
	assert.Equal(t, provider.SourceOffline, events[0].Source)
	assert.Equal(t, " there", events[1].Text)
	assert.Equal(t, gateway.EventDone, events[2].Kind)

	engineReq := <-engineReqs
	assert.Equal(t, "wire-1", engineReq["session_id"])
	assert.EqualValues(t, cfg.Local.MaxTokens, engineReq["max_tokens"])

	local := app.Sessions.LocalHistory("wire-1")
	require.Len(t, local, 2)
	assert.Equal(t, "Hello there", local[1].Content)
	assert.Len(t, app.Sessions.FullHistory("wire-1"), 2)
}
