// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bridge-ai/bridge/internal/provider"
	"github.com/bridge-ai/bridge/internal/session"
	"github.com/bridge-ai/bridge/internal/usage"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
)

type relayState int

const (
	statePrimary relayState = iota
	stateFallback
	stateDone
)

func (s relayState) String() string {
	switch s {
	case statePrimary:
		return "primary"
	case stateFallback:
		return "fallback"
	default:
		return "done"
	}
}

// relay drives one request through primary -> fallback -> done.
type relay struct {
	gw      *Gateway
	req     Request
	history session.Snapshot
	backend provider.Source
	out     chan<- Event
	state   relayState
}

// attemptResult is the outcome of streaming from one backend.
type attemptResult struct {
	text  string
	usage *provider.Usage
	err   error
}

func (r *relay) run(ctx context.Context) {
	for r.state != stateDone {
		res := r.attempt(ctx)
		if ctx.Err() != nil {
			slog.Info("chat stream cancelled by client",
				"session_id", shortID(r.req.SessionID),
				"backend", r.backend,
				"state", r.state)
			r.state = stateDone
			return
		}

		if res.err == nil {
			r.complete(ctx, res)
			return
		}

		slog.Warn("backend failed",
			"session_id", shortID(r.req.SessionID),
			"backend", r.backend,
			"state", r.state,
			"kind", failureKind(res.err),
			"context", bridgeerr.FieldsOf(res.err),
			"error", res.err)

		if r.state == statePrimary && r.canFallback() {
			r.state = stateFallback
			r.backend = r.backend.Alternate()
			if !emit(ctx, r.out, fallbackEvent(r.backend)) {
				r.state = stateDone
				return
			}
			continue
		}

		failed := res.err
		if r.state == stateFallback {
			failed = bridgeerr.New(bridgeerr.CodeGatewayBackendsFailure,
				fmt.Sprintf("all backends failed: %v", res.err),
				bridgeerr.FieldSessionID(r.req.SessionID))
		}
		r.state = stateDone
		if emit(ctx, r.out, errorEvent(failed.Error())) {
			emit(ctx, r.out, doneEvent())
		}
	}
}

// canFallback reports whether the alternate of the current backend may be
// tried. The remote provider is only an option in online mode.
func (r *relay) canFallback() bool {
	return r.backend == provider.SourceOnline || r.req.Online
}

// complete records the exchange and emits the terminal Done. The stored
// answer is trimmed; the streamed content is not.
func (r *relay) complete(ctx context.Context, res attemptResult) {
	r.state = stateDone

	answer := strings.TrimSpace(res.text)
	if err := r.gw.sessions.AddExchange(r.req.SessionID, r.req.Query, answer, r.backend); err != nil {
		slog.Error("appending exchange", "session_id", shortID(r.req.SessionID), "error", err)
	}

	if r.backend == provider.SourceOnline {
		r.recordUsage(ctx, res.usage)
	}

	emit(ctx, r.out, doneEvent())
}

func (r *relay) recordUsage(ctx context.Context, u *provider.Usage) {
	if u == nil {
		return
	}

	remote := r.gw.remote
	requested := remote.Model()
	if u.Model != "" && requested != "" && u.Model != requested {
		slog.Warn("remote provider used a different model",
			"requested", requested,
			"used", u.Model)
	}

	slog.Info("remote usage",
		"session_id", shortID(r.req.SessionID),
		"model", u.Model,
		"prompt_tokens", u.InputTokens,
		"completion_tokens", u.OutputTokens,
		"total_tokens", u.TotalTokens())

	if r.gw.usage == nil {
		return
	}
	rec := usage.Record{
		SessionID:      r.req.SessionID,
		Provider:       remote.Name(),
		RequestedModel: requested,
		Model:          u.Model,
		InputTokens:    u.InputTokens,
		OutputTokens:   u.OutputTokens,
		TotalTokens:    u.TotalTokens(),
	}
	if err := r.gw.usage.Record(context.WithoutCancel(ctx), rec); err != nil {
		slog.Warn("recording usage", "error", err)
	}
}

// attempt streams from the current backend, forwarding content as it
// arrives. The backend's context is cancelled on return.
func (r *relay) attempt(ctx context.Context) (res attemptResult) {
	p := r.gw.backend(r.backend)

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.backend == provider.SourceOnline {
		defer func() {
			switch {
			case ctx.Err() != nil:
			case res.err != nil:
				r.gw.health.RecordFailure()
			default:
				r.gw.health.RecordSuccess()
			}
		}()
	}

	// The first-event deadline covers Chat itself.
	firstChunk := time.NewTimer(r.gw.cfg.FirstChunkTimeout)
	defer firstChunk.Stop()
	waiting := firstChunk.C

	events, err := p.Chat(attemptCtx, r.gw.chatRequest(r.backend, r.req, r.history))
	if err != nil {
		return attemptResult{err: bridgeerr.With(err, bridgeerr.FieldSource(string(r.backend)))}
	}

	var text strings.Builder
	var u *provider.Usage
	for {
		select {
		case <-ctx.Done():
			return attemptResult{err: ctx.Err()}

		case <-waiting:
			return attemptResult{err: bridgeerr.New(bridgeerr.CodeProviderStreamTimeout,
				fmt.Sprintf("%s: no response within %s", p.Name(), r.gw.cfg.FirstChunkTimeout),
				bridgeerr.FieldSource(string(r.backend)))}

		case ev, ok := <-events:
			if !ok {
				return attemptResult{err: bridgeerr.New(failureCode(r.backend),
					fmt.Sprintf("%s: stream ended without completing", p.Name()),
					bridgeerr.FieldSource(string(r.backend)))}
			}
			waiting = nil

			switch ev.Type {
			case provider.EventTypeTextDelta:
				if ev.Text == "" {
					continue
				}
				text.WriteString(ev.Text)
				if !emit(ctx, r.out, contentEvent(ev.Text, r.backend)) {
					return attemptResult{err: ctx.Err()}
				}
			case provider.EventTypeUsage:
				u = ev.Usage
			case provider.EventTypeError:
				return attemptResult{err: bridgeerr.New(failureCode(r.backend),
					fmt.Sprintf("%s: %s", p.Name(), ev.Error),
					bridgeerr.FieldSource(string(r.backend)))}
			case provider.EventTypeDone:
				return attemptResult{text: text.String(), usage: u}
			}
		}
	}
}

func failureCode(src provider.Source) bridgeerr.Code {
	if src == provider.SourceOnline {
		return bridgeerr.CodeProviderUpstreamFailure
	}
	return bridgeerr.CodeEngineUpstreamFailure
}

// failureKind labels a backend failure for logs.
func failureKind(err error) string {
	switch {
	case bridgeerr.IsTimeout(err):
		return "timeout"
	case bridgeerr.IsUpstreamFailure(err):
		return "upstream"
	case bridgeerr.IsInvalidInput(err):
		return "invalid_request"
	default:
		return "other"
	}
}
