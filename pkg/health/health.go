// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package health

import "time"

// Status is the cached reachability picture used for routing. ProviderAvailable
// is only ever true when Online is true.
type Status struct {
	Online            bool      `json:"online"`
	ProviderAvailable bool      `json:"provider_available"`
	CheckedAt         time.Time `json:"checked_at"`
}

// Normalize returns s with ProviderAvailable cleared when the network is down.
func (s Status) Normalize() Status {
	if !s.Online {
		s.ProviderAvailable = false
	}
	return s
}

// Age reports how long ago the status was computed relative to now. A zero
// CheckedAt is treated as infinitely old.
func (s Status) Age(now time.Time) time.Duration {
	if s.CheckedAt.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(s.CheckedAt)
}

// Metrics exposes the current health state of the remote provider for
// operator visibility. All fields are point-in-time snapshots.
type Metrics struct {
	FailureCount  int64      `json:"failure_count"`
	SuccessCount  int64      `json:"success_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	Available     bool       `json:"available"`
}
