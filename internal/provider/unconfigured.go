// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package provider

import (
	"context"

	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
)

// Unconfigured stands in for a remote provider whose credential is absent.
// Every call fails with CodeConfigMissingCredential, so requests routed to it
// take the ordinary fallback path instead of crashing.
type Unconfigured struct {
	name   string
	model  string
	reason string
}

var _ Provider = (*Unconfigured)(nil)

// NewUnconfigured returns a placeholder for the named provider.
func NewUnconfigured(name, model, reason string) *Unconfigured {
	return &Unconfigured{name: name, model: model, reason: reason}
}

func (u *Unconfigured) Name() string   { return u.name }
func (u *Unconfigured) Source() Source { return SourceOnline }
func (u *Unconfigured) Model() string  { return u.model }
func (u *Unconfigured) Close() error   { return nil }

// Reason explains why the provider is unconfigured.
func (u *Unconfigured) Reason() string { return u.reason }

func (u *Unconfigured) err() error {
	return bridgeerr.New(bridgeerr.CodeConfigMissingCredential,
		u.name+": "+u.reason,
		bridgeerr.FieldProvider(u.name),
	)
}

func (u *Unconfigured) Chat(context.Context, ChatRequest) (<-chan ChatEvent, error) {
	return nil, u.err()
}

func (u *Unconfigured) Ping(context.Context) error {
	return u.err()
}

// IsConfigured reports whether p can make real calls.
func IsConfigured(p Provider) bool {
	_, unconfigured := p.(*Unconfigured)
	return p != nil && !unconfigured
}
