// Package server exposes the query console engine to editors over the
// Language Server Protocol.
package server

import (
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/qconsole/catalog"
	"github.com/chazu/qconsole/docs"
	"github.com/chazu/qconsole/query"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "qconsole-lsp"

var log = commonlog.GetLogger("qconsole.server")

// Config configures an LspServer.
type Config struct {
	// Table is the documentation table. Nil means the embedded bundle.
	Table *docs.Table

	// Catalog returns the latest database and table names. May be nil.
	Catalog func() *catalog.Snapshot

	Parse    query.Options
	AutoPair bool
	Version  string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Parse:    query.DefaultOptions(),
		AutoPair: true,
		Version:  "0.1.0",
	}
}

// LspServer bridges LSP editor features to the console engine via Worker.
type LspServer struct {
	worker *Worker

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP(cfg Config) *LspServer {
	table := cfg.Table
	if table == nil {
		table = docs.Build(docs.Default())
	}
	engine := &Engine{
		Table:    table,
		Parse:    cfg.Parse,
		Sessions: NewSessionStore(cfg.Catalog, cfg.Parse, cfg.AutoPair),
	}
	s := &LspServer{
		worker:  NewWorker(engine),
		version: cfg.Version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion:       s.textDocumentCompletion,
		TextDocumentHover:            s.textDocumentHover,
		TextDocumentOnTypeFormatting: s.textDocumentOnTypeFormatting,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// Stop shuts down the engine worker.
func (s *LspServer) Stop() {
	s.worker.Stop()
}

// SetDocs rebuilds the documentation table from entries and hands it to
// every open document.
func (s *LspServer) SetDocs(entries []docs.Entry) error {
	_, err := s.worker.Do(func(e *Engine) any {
		e.Table = docs.Build(entries)
		e.Sessions.SetTable(e.Table)
		log.Infof("documentation reloaded: %d commands", len(e.Table.Keys()))
		return nil
	})
	return err
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "qconsole LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{".", "(", "'", `"`},
	}

	capabilities.HoverProvider = true

	capabilities.DocumentOnTypeFormattingProvider = &protocol.DocumentOnTypeFormattingOptions{
		FirstTriggerCharacter: "(",
		MoreTriggerCharacter:  []string{"[", "{", "'", `"`, ")", "]", "}"},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.sync(ctx, uri, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.sync(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.worker.Do(func(e *Engine) any {
		e.Sessions.Close(string(uri))
		return nil
	})

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// sync stores text as the document content and publishes its diagnostics.
func (s *LspServer) sync(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	result, err := s.worker.Do(func(e *Engine) any {
		e.Sessions.Open(string(uri), text, e.Table)
		return diagnostics(e.Table, e.Parse, uri, text)
	})
	if err != nil {
		log.Warningf("sync %s: %s", uri, err)
		return
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: result.([]protocol.Diagnostic),
	})
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := string(params.TextDocument.URI)
	pos := params.Position

	result, err := s.worker.Do(func(e *Engine) any {
		session, ok := e.Sessions.Get(uri)
		if !ok {
			return nil
		}
		text := session.Buffer().Value()
		offset := offsetAt(text, pos)
		session.Reset(text, offset)
		return completionItems(e.Table, text, offset, session.Complete())
	})
	if err != nil {
		return nil, err
	}
	if items, ok := result.([]protocol.CompletionItem); ok && len(items) > 0 {
		return items, nil
	}
	return nil, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := string(params.TextDocument.URI)
	pos := params.Position

	result, err := s.worker.Do(func(e *Engine) any {
		session, ok := e.Sessions.Get(uri)
		if !ok {
			return nil
		}
		text := session.Buffer().Value()
		return hoverAt(e.Table, session, text, offsetAt(text, pos))
	})
	if err != nil {
		return nil, nil
	}
	hover, _ := result.(*protocol.Hover)
	return hover, nil
}

func (s *LspServer) textDocumentOnTypeFormatting(ctx *glsp.Context, params *protocol.DocumentOnTypeFormattingParams) ([]protocol.TextEdit, error) {
	uri := string(params.TextDocument.URI)
	pos := params.Position

	result, err := s.worker.Do(func(e *Engine) any {
		session, ok := e.Sessions.Get(uri)
		if !ok {
			return nil
		}
		text := session.Buffer().Value()
		return onTypeEdits(text, offsetAt(text, pos), params.Ch)
	})
	if err != nil {
		return nil, err
	}
	edits, _ := result.([]protocol.TextEdit)
	return edits, nil
}
