// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package gateway

import (
	"encoding/json"

	"github.com/bridge-ai/bridge/internal/provider"
)

// EventKind discriminates stream events.
type EventKind string

const (
	EventContent  EventKind = "content"
	EventFallback EventKind = "fallback"
	EventError    EventKind = "error"
	EventDone     EventKind = "done"
)

// Event is one element of a chat response stream. Text carries content for
// EventContent and the user-facing message for EventError; Message carries
// the error detail.
type Event struct {
	Kind    EventKind
	Text    string
	Source  provider.Source
	Message string
}

func contentEvent(text string, src provider.Source) Event {
	return Event{Kind: EventContent, Text: text, Source: src}
}

func fallbackEvent(src provider.Source) Event {
	return Event{Kind: EventFallback, Source: src}
}

func errorEvent(message string) Event {
	return Event{Kind: EventError, Message: message, Text: errorContent}
}

func doneEvent() Event {
	return Event{Kind: EventDone}
}

// Rejection is the complete stream for a request refused before any backend
// is selected.
func Rejection(message string) []Event {
	return []Event{errorEvent(message), doneEvent()}
}

// errorContent is shown to the user when no backend could answer.
const errorContent = "Sorry, I could not generate a response right now. Please try again."

// MarshalJSON encodes the event as its wire frame.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EventContent:
		return json.Marshal(struct {
			Content string          `json:"content"`
			Source  provider.Source `json:"source"`
		}{e.Text, e.Source})
	case EventFallback:
		return json.Marshal(struct {
			Fallback bool            `json:"fallback"`
			Content  string          `json:"content"`
			Source   provider.Source `json:"source"`
		}{true, "", e.Source})
	case EventError:
		return json.Marshal(struct {
			Error   string `json:"error"`
			Content string `json:"content"`
		}{e.Message, e.Text})
	default:
		return json.Marshal(struct {
			Done bool `json:"done"`
		}{true})
	}
}

// Frame is the decoded union of every wire frame shape.
type Frame struct {
	Content  string          `json:"content"`
	Source   provider.Source `json:"source,omitempty"`
	Fallback bool            `json:"fallback,omitempty"`
	Error    string          `json:"error,omitempty"`
	Done     bool            `json:"done,omitempty"`
}

// Event converts a decoded frame back into an Event.
func (f Frame) Event() Event {
	switch {
	case f.Done:
		return doneEvent()
	case f.Error != "":
		return Event{Kind: EventError, Message: f.Error, Text: f.Content}
	case f.Fallback:
		return fallbackEvent(f.Source)
	default:
		return contentEvent(f.Content, f.Source)
	}
}

// UnmarshalJSON decodes a wire frame.
func (e *Event) UnmarshalJSON(data []byte) error {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*e = f.Event()
	return nil
}
