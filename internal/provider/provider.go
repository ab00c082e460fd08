// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package provider

import (
	"context"
)

// Source labels which side of the gateway produced a piece of content.
type Source string

const (
	SourceOnline  Source = "online"
	SourceOffline Source = "offline"
)

// Alternate returns the other source.
func (s Source) Alternate() Source {
	if s == SourceOnline {
		return SourceOffline
	}
	return SourceOnline
}

// Provider is a streaming chat backend: either the remote inference provider
// or the local inference engine.
type Provider interface {
	Name() string
	Source() Source
	// Model is the model requested from this backend. It may be empty when
	// the backend chooses for itself.
	Model() string
	// Chat starts a streaming completion. The returned channel is closed by
	// the provider once the stream ends or ctx is cancelled. A stream that
	// finished normally ends with an EventTypeDone event.
	Chat(ctx context.Context, req ChatRequest) (<-chan ChatEvent, error)
	// Ping performs the cheapest call that proves the backend is usable.
	Ping(ctx context.Context) error
	Close() error
}

// ChatRequest represents a request to a backend.
type ChatRequest struct {
	SessionID    string
	Messages     []Message
	SystemPrompt string
	Options      ChatOptions
}

// ChatOptions contains sampling configuration.
type ChatOptions struct {
	Temperature float32
	MaxTokens   int
}

// Message represents a conversation message.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// MessageRole defines the role of a message sender.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// ChatEvent is a streaming response event.
type ChatEvent struct {
	Type  EventType
	Text  string
	Usage *Usage
	Error string
}

// EventType defines the type of chat event.
type EventType string

const (
	EventTypeTextDelta EventType = "text_delta"
	EventTypeUsage     EventType = "usage"
	EventTypeDone      EventType = "done"
	EventTypeError     EventType = "error"
)

// Usage tracks token consumption for one completion. Model is the model the
// backend reports having used, which may differ from the one requested.
type Usage struct {
	Model        string
	InputTokens  int
	OutputTokens int
}

// TotalTokens returns input plus output tokens.
func (u Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// Send delivers ev on ch unless ctx is done first. It reports whether the
// event was delivered; producers stop streaming once it returns false.
func Send(ctx context.Context, ch chan<- ChatEvent, ev ChatEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
