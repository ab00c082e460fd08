// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bridge-ai/bridge/internal/gateway"
)

const (
	contentTypeNDJSON = "application/x-ndjson"
	contentTypeSSE    = "text/event-stream"

	// maxChatBodyBytes caps the chat request body.
	maxChatBodyBytes = 1 << 20
)

// ChatRequest is the request body for the chat endpoint.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	// Online defaults to true when omitted.
	Online *bool `json:"online,omitempty"`
}

func (r ChatRequest) gatewayRequest() gateway.Request {
	online := true
	if r.Online != nil {
		online = *r.Online
	}
	return gateway.Request{SessionID: r.SessionID, Query: r.Query, Online: online}
}

func (s *Server) registerChatRoute(limit func(http.Handler) http.Handler) {
	s.router.With(limit).Post("/api/chat", s.handleChat)

	// The chat handler writes frames straight to the ResponseWriter, so it is
	// registered on chi and only described in the OpenAPI document.
	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/api/chat",
		Summary:     "Stream a chat response",
		Description: "Routes the query to the remote provider or the local engine and streams event frames. " +
			"Frames are newline-delimited JSON unless Accept: text/event-stream is sent. " +
			"An unreadable body also yields an error frame followed by done.",
		Tags: []string{"chat"},
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"application/json": {
					Schema: &huma.Schema{
						Type:     "object",
						Required: []string{"session_id", "query"},
						Properties: map[string]*huma.Schema{
							"session_id": {Type: "string", Description: "Conversation identifier"},
							"query":      {Type: "string", Description: "User message"},
							"online":     {Type: "boolean", Description: "Allow the remote provider (default true)"},
						},
					},
				},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Stream of content, fallback, error and done frames",
				Content: map[string]*huma.MediaType{
					contentTypeNDJSON: {Schema: &huma.Schema{Type: "string", Description: "One JSON frame per line"}},
					contentTypeSSE:    {Schema: &huma.Schema{Type: "string", Description: "Server-sent event stream"}},
				},
			},
			"429": {Description: "Rate limit exceeded"},
		},
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	decodeErr := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes)).Decode(&body)

	sse := strings.Contains(r.Header.Get("Accept"), contentTypeSSE)
	if sse {
		w.Header().Set("Content-Type", contentTypeSSE)
		w.Header().Set("Connection", "keep-alive")
	} else {
		w.Header().Set("Content-Type", contentTypeNDJSON)
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// httptest.ResponseRecorder implements Flusher, most wrappers do too.
	flusher, _ := w.(http.Flusher)

	if decodeErr != nil {
		slog.Warn("rejecting malformed chat request",
			"request_id", middleware.GetReqID(r.Context()),
			"error", decodeErr)
		for _, ev := range gateway.Rejection(bodyErrorMessage(decodeErr)) {
			if err := writeFrame(w, ev, sse); err != nil {
				return
			}
		}
		if flusher != nil {
			flusher.Flush()
		}
		return
	}

	events := s.services.Chat.Stream(r.Context(), body.gatewayRequest())
	for ev := range events {
		if err := writeFrame(w, ev, sse); err != nil {
			slog.Debug("chat client went away",
				"request_id", middleware.GetReqID(r.Context()),
				"error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func bodyErrorMessage(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
	}
	return "invalid request body: " + err.Error()
}

func writeFrame(w http.ResponseWriter, ev gateway.Event, sse bool) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	var buf []byte
	if sse {
		buf = make([]byte, 0, len(data)+8)
		buf = append(buf, "data: "...)
		buf = append(buf, data...)
		buf = append(buf, '\n', '\n')
	} else {
		buf = append(data, '\n')
	}
	_, err = w.Write(buf)
	return err
}
