// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

// Package session keeps per-session conversation history in process memory.
// Each session holds two views of the same conversation: the full history
// sent to the remote provider, and a compacted history for the local engine
// where long assistant replies are truncated.
package session

import (
	"sync"

	"github.com/bridge-ai/bridge/internal/provider"
	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
)

// Defaults applied when a Config field is zero.
const (
	DefaultMaxHistory        = 8
	DefaultTruncateThreshold = 300
	DefaultTruncateKeep      = 250

	// TruncationMarker is appended to assistant turns shortened for the
	// local view.
	TruncationMarker = "..."
)

// Turn is one message in a session's history.
type Turn struct {
	Role    provider.MessageRole `json:"role"`
	Content string               `json:"content"`
	Source  provider.Source      `json:"source"`
}

// Message converts the turn into a provider message.
func (t Turn) Message() provider.Message {
	return provider.Message{Role: t.Role, Content: t.Content}
}

// Messages converts a slice of turns into provider messages.
func Messages(turns []Turn) []provider.Message {
	out := make([]provider.Message, len(turns))
	for i, t := range turns {
		out[i] = t.Message()
	}
	return out
}

// Snapshot holds both history views of a session, read atomically.
type Snapshot struct {
	Full  []Turn `json:"full"`
	Local []Turn `json:"local"`
}

// Config bounds the stored history.
type Config struct {
	// MaxHistory is the number of exchanges kept; each view holds at most
	// 2*MaxHistory turns.
	MaxHistory int
	// Assistant turns longer than TruncateThreshold runes are cut to
	// TruncateKeep runes in the local view.
	TruncateThreshold int
	TruncateKeep      int
}

type entry struct {
	mu    sync.Mutex
	full  []Turn
	local []Turn
	// removed is set by Clear so writers holding a stale pointer retry.
	removed bool
}

// Store is a thread-safe in-memory session store. Operations on one session
// are serialized; different sessions only share the map lookup.
type Store struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*entry
}

// New creates an empty Store.
func New(cfg Config) *Store {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if cfg.TruncateThreshold <= 0 {
		cfg.TruncateThreshold = DefaultTruncateThreshold
	}
	if cfg.TruncateKeep <= 0 {
		cfg.TruncateKeep = DefaultTruncateKeep
	}
	if cfg.TruncateKeep > cfg.TruncateThreshold {
		cfg.TruncateKeep = cfg.TruncateThreshold
	}
	return &Store{cfg: cfg, sessions: make(map[string]*entry)}
}

// Capacity is the maximum number of turns held in each view.
func (s *Store) Capacity() int {
	return 2 * s.cfg.MaxHistory
}

func (s *Store) lookup(sessionID string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

func (s *Store) getOrCreate(sessionID string) *entry {
	if e := s.lookup(sessionID); e != nil {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sessionID]; ok {
		return e
	}
	e := &entry{}
	s.sessions[sessionID] = e
	return e
}

// AddTurn appends a turn to both views of the session, creating the session
// on first use.
func (s *Store) AddTurn(sessionID string, role provider.MessageRole, content string, source provider.Source) error {
	if sessionID == "" {
		return bridgeerr.New(bridgeerr.CodeSessionAppendInvalid, "session id must not be empty")
	}
	if role != provider.MessageRoleUser && role != provider.MessageRoleAssistant {
		return bridgeerr.New(bridgeerr.CodeSessionAppendInvalid, "unsupported turn role",
			bridgeerr.FieldSessionID(sessionID), bridgeerr.Field("role", string(role)))
	}

	s.appendTurns(sessionID, Turn{Role: role, Content: content, Source: source})
	return nil
}

// AddExchange appends a user query and the assistant answer as one unit, so
// concurrent requests on a session never interleave their turns.
func (s *Store) AddExchange(sessionID, query, answer string, source provider.Source) error {
	if sessionID == "" {
		return bridgeerr.New(bridgeerr.CodeSessionAppendInvalid, "session id must not be empty")
	}

	s.appendTurns(sessionID,
		Turn{Role: provider.MessageRoleUser, Content: query, Source: source},
		Turn{Role: provider.MessageRoleAssistant, Content: answer, Source: source},
	)
	return nil
}

func (s *Store) appendTurns(sessionID string, turns ...Turn) {
	for {
		e := s.getOrCreate(sessionID)
		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}
		for _, t := range turns {
			local := t
			if t.Role == provider.MessageRoleAssistant {
				local.Content = Truncate(t.Content, s.cfg.TruncateThreshold, s.cfg.TruncateKeep)
			}
			e.full = appendBounded(e.full, t, s.Capacity())
			e.local = appendBounded(e.local, local, s.Capacity())
		}
		e.mu.Unlock()
		return
	}
}

// FullHistory returns a copy of the untruncated view. Unknown sessions have
// an empty history.
func (s *Store) FullHistory(sessionID string) []Turn {
	return s.Snapshot(sessionID).Full
}

// LocalHistory returns a copy of the compacted view.
func (s *Store) LocalHistory(sessionID string) []Turn {
	return s.Snapshot(sessionID).Local
}

// Snapshot returns both views read under a single lock.
func (s *Store) Snapshot(sessionID string) Snapshot {
	e := s.lookup(sessionID)
	if e == nil {
		return Snapshot{Full: []Turn{}, Local: []Turn{}}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Snapshot{Full: []Turn{}, Local: []Turn{}}
	}
	return Snapshot{
		Full:  append([]Turn(nil), e.full...),
		Local: append([]Turn(nil), e.local...),
	}
}

// Clear drops both views of the session. Clearing an unknown session is a
// no-op.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return
	}
	e.mu.Lock()
	e.removed = true
	e.full, e.local = nil, nil
	e.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// appendBounded appends t and drops turns from the front until len <= limit.
func appendBounded(turns []Turn, t Turn, limit int) []Turn {
	turns = append(turns, t)
	if over := len(turns) - limit; over > 0 {
		turns = append(turns[:0:0], turns[over:]...)
	}
	return turns
}

// Truncate shortens content to keep runes plus TruncationMarker when it is
// longer than threshold runes.
func Truncate(content string, threshold, keep int) string {
	runes := []rune(content)
	if len(runes) <= threshold {
		return content
	}
	return string(runes[:keep]) + TruncationMarker
}
