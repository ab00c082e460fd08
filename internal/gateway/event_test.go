// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package gateway_test

import (
	"encoding/json"
	"testing"

	"github.com/bridge-ai/bridge/internal/gateway"
	"github.com/bridge-ai/bridge/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_WireFrames(t *testing.T) {
	tests := []struct {
		name string
		ev   gateway.Event
		want string
	}{
		{
			name: "content",
			ev:   gateway.Event{Kind: gateway.EventContent, Text: "Hi", Source: provider.SourceOnline},
			want: `{"content":"Hi","source":"online"}`,
		},
		{
			name: "empty content",
			ev:   gateway.Event{Kind: gateway.EventContent, Source: provider.SourceOffline},
			want: `{"content":"","source":"offline"}`,
		},
		{
			name: "fallback",
			ev:   gateway.Event{Kind: gateway.EventFallback, Source: provider.SourceOffline},
			want: `{"fallback":true,"content":"","source":"offline"}`,
		},
		{
			name: "error",
			ev:   gateway.Event{Kind: gateway.EventError, Message: "engine down", Text: "Sorry"},
			want: `{"error":"engine down","content":"Sorry"}`,
		},
		{
			name: "done",
			ev:   gateway.Event{Kind: gateway.EventDone},
			want: `{"done":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.ev)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))

			var back gateway.Event
			require.NoError(t, json.Unmarshal(got, &back))
			assert.Equal(t, tt.ev, back)
		})
	}
}

func TestFrame_Event(t *testing.T) {
	var f gateway.Frame
	require.NoError(t, json.Unmarshal([]byte(`{"error":"x","content":"Local model failed"}`), &f))
	ev := f.Event()
	assert.Equal(t, gateway.EventError, ev.Kind)
	assert.Equal(t, "x", ev.Message)
	assert.Equal(t, "Local model failed", ev.Text)
}
