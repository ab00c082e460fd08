// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package provider_test

import (
	"context"
	"testing"

	"github.com/bridge-ai/bridge/internal/provider"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceAlternate(t *testing.T) {
	assert.Equal(t, provider.SourceOffline, provider.SourceOnline.Alternate())
	assert.Equal(t, provider.SourceOnline, provider.SourceOffline.Alternate())
}

func TestUsageTotalTokens(t *testing.T) {
	assert.Equal(t, 15, provider.Usage{InputTokens: 10, OutputTokens: 5}.TotalTokens())
}

func TestUnconfigured(t *testing.T) {
	u := provider.NewUnconfigured("openai", "llama-3.3-70b", "remote.api_key is empty")

	assert.Equal(t, "openai", u.Name())
	assert.Equal(t, provider.SourceOnline, u.Source())
	assert.Equal(t, "llama-3.3-70b", u.Model())
	assert.False(t, provider.IsConfigured(u))

	ch, err := u.Chat(context.Background(), provider.ChatRequest{})
	assert.Nil(t, ch)
	require.Error(t, err)
	assert.True(t, bridgeerr.IsMissingCredential(err))
	assert.Contains(t, err.Error(), "remote.api_key is empty")

	assert.True(t, bridgeerr.IsMissingCredential(u.Ping(context.Background())))
	assert.NoError(t, u.Close())
}

func TestSendStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan provider.ChatEvent)
	cancel()

	assert.False(t, provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeDone}))

	buffered := make(chan provider.ChatEvent, 1)
	assert.True(t, provider.Send(context.Background(), buffered, provider.ChatEvent{Type: provider.EventTypeDone}))
}
