// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package server_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/bridge-ai/bridge/internal/server"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     server.RateLimitConfig
		wantErr bool
	}{
		{name: "disabled", cfg: server.RateLimitConfig{}},
		{name: "valid", cfg: server.RateLimitConfig{RequestsPerSecond: 5, Burst: 10}},
		{name: "negative rate", cfg: server.RateLimitConfig{RequestsPerSecond: -1}, wantErr: true},
		{name: "rate without burst", cfg: server.RateLimitConfig{RequestsPerSecond: 5}, wantErr: true},
		{name: "negative visitors", cfg: server.RateLimitConfig{MaxVisitors: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, bridgeerr.HasCode(err, bridgeerr.CodeServerConfigInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 10000, cfg.MaxVisitors)
		})
	}
}

func TestVisitorLimiter_PerIP(t *testing.T) {
	l := server.NewVisitorLimiter(server.RateLimitConfig{RequestsPerSecond: 1, Burst: 2, MaxVisitors: 100})
	now := time.Now()

	assert.True(t, l.Allow("10.0.0.1", now))
	assert.True(t, l.Allow("10.0.0.1", now))
	assert.False(t, l.Allow("10.0.0.1", now))
	assert.True(t, l.Allow("10.0.0.2", now), "buckets are per IP")

	assert.True(t, l.Allow("10.0.0.1", now.Add(time.Second)), "tokens refill over time")
}

func TestVisitorLimiter_Cleanup(t *testing.T) {
	l := server.NewVisitorLimiter(server.RateLimitConfig{RequestsPerSecond: 1, Burst: 1, MaxVisitors: 3})
	now := time.Now()

	l.Allow("stale", now.Add(-time.Hour))
	for i := range 5 {
		l.Allow(fmt.Sprintf("10.0.0.%d", i), now.Add(time.Duration(i)*time.Second))
	}
	require.Equal(t, 6, l.VisitorCount())

	l.Cleanup(now.Add(10 * time.Second))
	assert.Equal(t, 3, l.VisitorCount())
}
