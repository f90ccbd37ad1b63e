// Package console ties the engine together for one editor: it feeds
// keystrokes to the pairing assistant, re-parses the text before the cursor
// and resolves suggestions.
package console

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/qconsole/assist"
	"github.com/chazu/qconsole/catalog"
	"github.com/chazu/qconsole/docs"
	"github.com/chazu/qconsole/query"
	"github.com/chazu/qconsole/suggest"
)

var log = commonlog.GetLogger("qconsole.console")

// EventKind classifies an editor event.
type EventKind int

const (
	// EventInsert types Char at the cursor.
	EventInsert EventKind = iota
	// EventBackspace deletes before the cursor.
	EventBackspace
	// EventMove places the cursor at Offset.
	EventMove
)

// Event is one editor keystroke.
type Event struct {
	Kind   EventKind
	Char   rune
	Offset int
}

// Outcome reports the edit applied for an event and the suggestions for
// the new cursor position. Err is set when the parse was aborted; the
// result is then empty.
type Outcome struct {
	Action assist.Action
	Result suggest.Result
	Err    error
}

// Session is one console editor.
type Session struct {
	ID string

	mu        sync.Mutex
	buf       assist.Buffer
	assistant *assist.Assistant
	table     *docs.Table
	resolver  *suggest.Resolver
	snapshot  func() *catalog.Snapshot
	parse     query.Options
	autoPair  bool
}

// Option configures a Session.
type Option func(*Session)

// WithTable sets the documentation table. Without it the embedded bundle
// is used.
func WithTable(t *docs.Table) Option {
	return func(s *Session) { s.table = t }
}

// WithCatalog sets where database and table names come from.
func WithCatalog(snap func() *catalog.Snapshot) Option {
	return func(s *Session) { s.snapshot = snap }
}

// WithParseOptions overrides the parse guards.
func WithParseOptions(opts query.Options) Option {
	return func(s *Session) { s.parse = opts }
}

// WithAutoPair enables or disables bracket and quote pairing.
func WithAutoPair(enabled bool) Option {
	return func(s *Session) { s.autoPair = enabled }
}

// NewSession creates a session editing buf.
func NewSession(buf assist.Buffer, opts ...Option) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		buf:       buf,
		assistant: assist.NewAssistant(),
		parse:     query.DefaultOptions(),
		autoPair:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == nil {
		s.table = docs.Build(docs.Default())
	}
	s.resolver = suggest.NewResolver(s.table, s.snapshot)
	log.Debugf("session %s created", s.ID)
	return s
}

// Buffer returns the edited buffer.
func (s *Session) Buffer() assist.Buffer {
	return s.buf
}

// Reset replaces the buffer contents and places the cursor, dropping any
// remembered pair. Used when the editor syncs the whole text.
func (s *Session) Reset(text string, cursor int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.SetValue(text)
	s.buf.SetCursorOffset(cursor)
	s.assistant.Forget()
}

// Table returns the documentation table in use.
func (s *Session) Table() *docs.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// SetDocs rebuilds the documentation table from entries.
func (s *Session) SetDocs(entries []docs.Entry) {
	table := docs.Build(entries)
	s.SetTable(table)
}

// SetTable swaps in an already built table.
func (s *Session) SetTable(table *docs.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	s.resolver = suggest.NewResolver(table, s.snapshot)
}

// OnKeystroke applies ev to the buffer and resolves suggestions at the new
// cursor.
func (s *Session) OnKeystroke(ev Event) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Outcome
	switch ev.Kind {
	case EventInsert:
		if s.autoPair {
			out.Action = s.assistant.Insert(s.buf, ev.Char)
		} else {
			out.Action = insertPlain(s.buf, ev.Char)
		}
	case EventBackspace:
		out.Action = s.assistant.Backspace(s.buf)
	case EventMove:
		s.buf.SetCursorOffset(ev.Offset)
		s.assistant.Forget()
	}

	out.Result, out.Err = s.resolve()
	return out
}

// Complete resolves suggestions at the cursor without editing.
func (s *Session) Complete() suggest.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, _ := s.resolve()
	return res
}

func (s *Session) resolve() (suggest.Result, error) {
	text := s.buf.TextBeforeCursor()
	stack, err := query.ParseAtCursor(text, s.parse)
	if err != nil {
		log.Debugf("session %s: no suggestions: %s", s.ID, err)
		return suggest.Result{Suggestions: []string{}}, err
	}
	return s.resolver.Resolve(stack, text), nil
}

func insertPlain(buf assist.Buffer, ch rune) assist.Action {
	cursor := buf.CursorOffset()
	text := string(ch)
	buf.ReplaceRange(cursor, cursor, text)
	buf.SetCursorOffset(cursor + len(text))
	return assist.Action{Kind: assist.ActionInsert, Offset: cursor, Text: text}
}
