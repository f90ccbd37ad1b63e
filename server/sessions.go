package server

import (
	"sync"
	"sync/atomic"

	"github.com/chazu/qconsole/assist"
	"github.com/chazu/qconsole/catalog"
	"github.com/chazu/qconsole/console"
	"github.com/chazu/qconsole/docs"
	"github.com/chazu/qconsole/query"
)

// Engine is the state owned by the worker goroutine: the documentation
// table, the parse guards and one console session per open document.
type Engine struct {
	Table    *docs.Table
	Parse    query.Options
	Sessions *SessionStore
}

// SessionStore maps document URIs to console sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*console.Session
	opened   atomic.Uint64

	snapshot func() *catalog.Snapshot
	parse    query.Options
	autoPair bool
}

// NewSessionStore creates an empty store. New sessions read catalog names
// through snap and parse with opts.
func NewSessionStore(snap func() *catalog.Snapshot, opts query.Options, autoPair bool) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*console.Session),
		snapshot: snap,
		parse:    opts,
		autoPair: autoPair,
	}
}

// Open creates or resets the session of uri with text and returns it.
func (s *SessionStore) Open(uri string, text string, table *docs.Table) *console.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[uri]; ok {
		session.Reset(text, len(text))
		return session
	}
	session := console.NewSession(assist.NewTextBuffer(text, len(text)),
		console.WithTable(table),
		console.WithCatalog(s.snapshot),
		console.WithParseOptions(s.parse),
		console.WithAutoPair(s.autoPair),
	)
	s.sessions[uri] = session
	n := s.opened.Add(1)
	log.Debugf("document %s opened as session %s (%d opened so far)", uri, session.ID, n)
	return session
}

// Get retrieves the session of uri.
func (s *SessionStore) Get(uri string) (*console.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[uri]
	return session, ok
}

// Close removes the session of uri.
func (s *SessionStore) Close(uri string) {
	s.mu.Lock()
	delete(s.sessions, uri)
	s.mu.Unlock()
}

// Len returns the number of open sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SetTable hands a rebuilt documentation table to every session.
func (s *SessionStore) SetTable(table *docs.Table) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		session.SetTable(table)
	}
}
