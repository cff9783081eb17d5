// Copyright © 2025 The MON authors

// Package lsp implements a Language Server Protocol server for MON. It
// publishes diagnostics and provides hover, go-to-definition, references,
// completion, document symbols, folding and rename support.
package lsp

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/lint"
	"github.com/monlang/mon/service"
)

const serverName = "mon-lsp"

// Version is reported to clients in the initialize response.
var Version = "0.1.0"

// Server is the MON language server.
type Server struct {
	handler  protocol.Handler
	glspSrv  *glspserver.Server
	docs     *DocumentStore
	rootPath string

	svc     *service.Service
	svcOpts []service.Option
	loader  analysis.FileLoader
	logger  *slog.Logger

	cfgMu sync.RWMutex
	cfg   *lint.Config

	// Debouncer for didChange notifications.
	debounceMu    sync.Mutex
	debounce      map[string]*time.Timer
	debounceDelay time.Duration

	// Context for sending notifications (captured from latest request).
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc

	// exitFn is called on the LSP exit notification. Defaults to os.Exit.
	exitFn func(int)
}

// Option configures the LSP server.
type Option func(*Server)

// WithConfig sets the lint configuration applied to every document.
func WithConfig(cfg *lint.Config) Option {
	return func(s *Server) { s.cfg = cfg }
}

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithLoader sets how files that are not open in the editor are read. The
// default reads the local file system.
func WithLoader(l analysis.FileLoader) Option {
	return func(s *Server) { s.loader = l }
}

// WithServiceOptions passes options to the analysis service. The server
// installs its own loader so that open buffers shadow the files read by
// the WithLoader loader.
func WithServiceOptions(opts ...service.Option) Option {
	return func(s *Server) { s.svcOpts = append(s.svcOpts, opts...) }
}

// WithDebounce sets the delay between the last edit and the analysis it
// triggers.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) { s.debounceDelay = d }
}

// New creates a new MON language server.
func New(opts ...Option) *Server {
	s := &Server{
		docs:          NewDocumentStore(),
		debounce:      make(map[string]*time.Timer),
		debounceDelay: 300 * time.Millisecond,
		exitFn:        os.Exit,
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.cfg == nil {
		s.cfg = lint.DefaultConfig()
	}

	if s.loader == nil {
		s.loader = analysis.OSLoader{}
	}
	svcOpts := append([]service.Option{service.WithLogger(s.logger)}, s.svcOpts...)
	svcOpts = append(svcOpts, service.WithLoader(analysis.OverlayLoader{Base: s.loader, Overlay: s.docs}))
	s.svc = service.New(svcOpts...)

	s.handler = protocol.Handler{
		Initialize: s.initialize,
		Shutdown:   s.shutdown,
		Exit:       s.exit,
		SetTrace:   s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentReferences:     s.textDocumentReferences,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		TextDocumentFoldingRange:   s.textDocumentFoldingRange,
		TextDocumentRename:         s.textDocumentRename,
		TextDocumentPrepareRename:  s.textDocumentPrepareRename,
	}

	s.glspSrv = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// RunStdio starts the server using stdio transport.
func (s *Server) RunStdio() error {
	return s.glspSrv.RunStdio()
}

// RunTCP starts the server listening on the given address.
func (s *Server) RunTCP(addr string) error {
	return s.glspSrv.RunTCP(addr)
}

// SetConfig replaces the lint configuration and re-analyzes the open
// documents.
func (s *Server) SetConfig(cfg *lint.Config) {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	s.reanalyzeOpenDocuments()
}

func (s *Server) config() *lint.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// initialize handles the LSP initialize request.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.captureNotify(ctx)

	if params.RootURI != nil {
		s.rootPath = uriToPath(*params.RootURI)
	} else if params.RootPath != nil {
		s.rootPath = *params.RootPath
	}
	s.logger.Info("initialize", "root", s.rootPath)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: boolPtr(false)},
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"*", "$", ".", ":"},
	}
	capabilities.RenameProvider = &protocol.RenameOptions{
		PrepareProvider: boolPtr(true),
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &Version,
		},
	}, nil
}

// shutdown handles the LSP shutdown request.
func (s *Server) shutdown(_ *glsp.Context) error {
	s.debounceMu.Lock()
	for _, t := range s.debounce {
		t.Stop()
	}
	s.debounce = make(map[string]*time.Timer)
	s.debounceMu.Unlock()
	return nil
}

// exit handles the LSP exit notification by terminating the process.
func (s *Server) exit(_ *glsp.Context) error {
	s.exitFn(0)
	return nil
}

// setTrace handles the $/setTrace notification (required by some clients).
func (s *Server) setTrace(_ *glsp.Context, _ *protocol.SetTraceParams) error {
	return nil
}

// ensureAnalysis brings the document's analysis up to date with its
// content.
func (s *Server) ensureAnalysis(doc *Document) {
	doc.mu.Lock()
	fresh := doc.fresh()
	doc.mu.Unlock()
	if !fresh {
		s.analyze(context.Background(), doc)
	}
}

// reanalyzeOpenDocuments invalidates the analysis of every open document
// and re-publishes its diagnostics.
func (s *Server) reanalyzeOpenDocuments() {
	for _, doc := range s.docs.All() {
		doc.mu.Lock()
		doc.analyzed = 0
		doc.mu.Unlock()
		s.analyzeAndPublish(doc)
	}
}

// captureNotify stores the notification function from the context for
// async use (e.g., publishing diagnostics after a debounce).
func (s *Server) captureNotify(ctx *glsp.Context) {
	s.notifyMu.Lock()
	s.notify = ctx.Notify
	s.notifyMu.Unlock()
}

// sendNotification sends a notification to the client.
func (s *Server) sendNotification(method string, params any) {
	s.notifyMu.Lock()
	fn := s.notify
	s.notifyMu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}
