// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package provider_test

import (
	"sync"
	"testing"
	"time"

	"github.com/bridge-ai/bridge/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T, cooldown time.Duration) *provider.HealthTracker {
	t.Helper()
	h, err := provider.NewHealthTracker(cooldown)
	require.NoError(t, err)
	return h
}

func TestNewHealthTracker_RejectsNonPositiveCooldown(t *testing.T) {
	_, err := provider.NewHealthTracker(0)
	require.Error(t, err)
	_, err = provider.NewHealthTracker(-time.Second)
	require.Error(t, err)
}

func TestHealthTracker_FailureAndRecovery(t *testing.T) {
	h := newTracker(t, 30*time.Second)
	assert.True(t, h.IsHealthy())

	h.RecordFailure()
	assert.False(t, h.IsHealthy())

	h.RecordSuccess()
	assert.True(t, h.IsHealthy())
}

func TestHealthTracker_CooldownBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		elapsed     time.Duration
		wantHealthy bool
	}{
		{"before cooldown", 9 * time.Second, false},
		{"at cooldown", 10 * time.Second, true},
		{"after cooldown", 11 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTracker(t, 10*time.Second)
			h.SetNowFunc(func() time.Time { return now })
			h.RecordFailure()

			h.SetNowFunc(func() time.Time { return now.Add(tt.elapsed) })
			assert.Equal(t, tt.wantHealthy, h.IsHealthy())
		})
	}
}

func TestHealthTracker_Metrics(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h := newTracker(t, 10*time.Second)
	h.SetNowFunc(func() time.Time { return now })

	m := h.Metrics()
	assert.True(t, m.Available)
	assert.Zero(t, m.FailureCount)
	assert.Nil(t, m.LastFailureAt)
	assert.Nil(t, m.CooldownUntil)

	h.RecordSuccess()
	h.RecordFailure()
	m = h.Metrics()
	assert.False(t, m.Available)
	assert.Equal(t, int64(1), m.FailureCount)
	assert.Equal(t, int64(1), m.SuccessCount)
	require.NotNil(t, m.LastFailureAt)
	assert.Equal(t, now, *m.LastFailureAt)
	require.NotNil(t, m.CooldownUntil)
	assert.Equal(t, now.Add(10*time.Second), *m.CooldownUntil)

	h.RecordSuccess()
	m = h.Metrics()
	assert.True(t, m.Available)
	assert.Nil(t, m.CooldownUntil)
	assert.NotNil(t, m.LastFailureAt)
}

func TestHealthTracker_ConcurrentRecordCalls(t *testing.T) {
	h := newTracker(t, 30*time.Second)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if i%2 == 0 {
					h.RecordFailure()
				} else {
					h.RecordSuccess()
				}
				_ = h.Metrics()
			}
		}()
	}
	wg.Wait()

	m := h.Metrics()
	assert.Equal(t, int64(500), m.FailureCount)
	assert.Equal(t, int64(500), m.SuccessCount)
}
