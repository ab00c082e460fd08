// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package server

import "time"

// VisitorCount returns the number of tracked IPs (testing only).
func (l *visitorLimiter) VisitorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// NewVisitorLimiter exposes the per-IP limiter for direct testing.
func NewVisitorLimiter(cfg RateLimitConfig) *visitorLimiter {
	return newVisitorLimiter(cfg)
}

// Allow exposes allow.
func (l *visitorLimiter) Allow(ip string, now time.Time) bool {
	return l.allow(ip, now)
}

// Cleanup exposes cleanup.
func (l *visitorLimiter) Cleanup(now time.Time) {
	l.cleanup(now)
}
