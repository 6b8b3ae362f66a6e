package store

import (
	"errors"
	"sync"
	"time"

	"voicereader/agent/internal/types"
)

var ErrSessionExists = errors.New("session already exists")

// DefaultMaxEvents caps the event log of each session.
const DefaultMaxEvents = 200

type Store struct {
	mu        sync.RWMutex
	maxEvents int
	sessions  map[string]*types.Session
	events    map[string][]types.Event
}

func New(maxEvents int) *Store {
	if maxEvents < 2 {
		maxEvents = DefaultMaxEvents
	}
	return &Store{
		maxEvents: maxEvents,
		sessions:  make(map[string]*types.Session),
		events:    make(map[string][]types.Event),
	}
}

func (s *Store) CreateSession(sess *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return ErrSessionExists
	}
	s.sessions[sess.ID] = sess
	s.events[sess.ID] = []types.Event{}
	return nil
}

// GetSession returns a copy of the session record, or nil.
func (s *Store) GetSession(id string) *types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	cp := *sess
	return &cp
}

func (s *Store) AppendEvent(sessionID, typ string, payload map[string]any) types.Event {
	evt := types.Event{Type: typ, Ts: time.Now().UTC(), Payload: payload}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[sessionID] = append(s.events[sessionID], evt)
	if l := len(s.events[sessionID]); l > s.maxEvents {
		// keep room for one truncation warning so the total stays at maxEvents
		keep := s.maxEvents - 1
		dropped := l - keep
		s.events[sessionID] = append([]types.Event(nil), s.events[sessionID][l-keep:]...)
		warn := types.Event{Type: "events_truncated", Ts: time.Now().UTC(), Payload: map[string]any{"session_id": sessionID, "dropped": dropped, "kept": keep}}
		s.events[sessionID] = append(s.events[sessionID], warn)
	}
	return evt
}

func (s *Store) ListEvents(sessionID string) []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.events[sessionID]
	out := make([]types.Event, len(src))
	copy(out, src)
	return out
}

// SetClient records that a client attached to the session.
func (s *Store) SetClient(sessionID, agent string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.ClientConnected = true
		sess.ClientAgent = agent
		sess.ClientSeenAt = &at
	}
}

// ClearClient marks the session's client as detached.
func (s *Store) ClearClient(sessionID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.ClientConnected = false
		sess.ClientSeenAt = &at
	}
}
