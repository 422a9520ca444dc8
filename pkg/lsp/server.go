// Package lsp implements a simplified Language Server Protocol server
// for SRC: unlike the teacher's pkg/lsp (a proxy that forwards
// translated requests to gopls, since Dingo compiles to real Go source
// gopls can already analyze), TGT is not a language any existing
// language server understands, so karelc's LSP server compiles SRC
// in-process on every edit and republishes the resulting diagnostics
// directly — no second process, no position translation layer.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/kdlang/karelc/pkg/compiler"
	"github.com/kdlang/karelc/pkg/dialect"
	"github.com/kdlang/karelc/pkg/diag"
	"github.com/kdlang/karelc/pkg/importer"
	"github.com/kdlang/karelc/pkg/parser"
	"github.com/kdlang/karelc/pkg/proto"
)

// Logger is the minimal logging surface the server needs; grounded on
// the teacher's pkg/lsp Logger interface so both implementations can be
// backed by the same zap adapter.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// ServerConfig configures a Server.
type ServerConfig struct {
	Logger     Logger
	Dialect    *dialect.Table
	ImportPath []string
}

// Server implements the LSP server: one open-document table, recompiled
// from scratch (fresh Registry/Cache/Sink, per spec.md §5's single-run
// process model) on every didOpen/didChange/didSave.
type Server struct {
	cfg ServerConfig

	mu   sync.Mutex
	docs map[protocol.DocumentURI]string

	connMu sync.RWMutex
	conn   jsonrpc2.Conn
	ctx    context.Context
}

// NewServer creates a Server ready to accept a connection.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Dialect == nil {
		cfg.Dialect, _ = dialect.Builtin(dialect.DefaultName)
	}
	return &Server{cfg: cfg, docs: map[protocol.DocumentURI]string{}}
}

// SetConn stores the client connection so diagnostics can be pushed
// outside the request/reply cycle that established it.
func (s *Server) SetConn(conn jsonrpc2.Conn, ctx context.Context) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conn, s.ctx = conn, ctx
}

func (s *Server) getConn() (jsonrpc2.Conn, context.Context) {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.conn, s.ctx
}

// Handler returns the jsonrpc2 handler dispatching every LSP method this
// server understands.
func (s *Server) Handler() jsonrpc2.Handler {
	return jsonrpc2.ReplyHandler(s.handleRequest)
}

func (s *Server) handleRequest(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.cfg.Logger.Debugf("lsp: %s", req.Method())

	switch req.Method() {
	case "initialize":
		return s.handleInitialize(ctx, reply, req)
	case "initialized":
		return reply(ctx, nil, nil)
	case "shutdown":
		return reply(ctx, nil, nil)
	case "exit":
		return reply(ctx, nil, nil)
	case "textDocument/didOpen":
		return s.handleDidOpen(ctx, reply, req)
	case "textDocument/didChange":
		return s.handleDidChange(ctx, reply, req)
	case "textDocument/didSave":
		return s.handleDidSave(ctx, reply, req)
	case "textDocument/didClose":
		return s.handleDidClose(ctx, reply, req)
	default:
		return reply(ctx, nil, fmt.Errorf("method not supported: %s", req.Method()))
	}
}

func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("invalid initialize params: %w", err))
	}

	result := protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: false},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "karelc-lsp",
			Version: "0.1.0",
		},
	}
	return reply(ctx, result, nil)
}

func (s *Server) handleDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("invalid didOpen params: %w", err))
	}
	s.setDoc(params.TextDocument.URI, params.TextDocument.Text)
	s.recompileAndPublish(ctx, params.TextDocument.URI)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("invalid didChange params: %w", err))
	}
	if len(params.ContentChanges) > 0 {
		// Full-document sync only (TextDocumentSyncKindFull above): the
		// last change event carries the entire new text.
		s.setDoc(params.TextDocument.URI, params.ContentChanges[len(params.ContentChanges)-1].Text)
	}
	s.recompileAndPublish(ctx, params.TextDocument.URI)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidSave(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("invalid didSave params: %w", err))
	}
	s.recompileAndPublish(ctx, params.TextDocument.URI)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("invalid didClose params: %w", err))
	}
	s.mu.Lock()
	delete(s.docs, params.TextDocument.URI)
	s.mu.Unlock()
	return reply(ctx, nil, nil)
}

func (s *Server) setDoc(uri protocol.DocumentURI, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = text
}

// recompileAndPublish runs a full, fresh compile of the open document's
// current text and pushes the resulting diagnostics to the client.
// Import statements inside the document are resolved relative to the
// document's own directory, same as a `karelc build` invocation.
func (s *Server) recompileAndPublish(ctx context.Context, uri protocol.DocumentURI) {
	s.mu.Lock()
	text := s.docs[uri]
	s.mu.Unlock()

	file := uri.Filename()
	sink := diag.NewSink(diag.WarnAll)
	reg := proto.NewRegistry()
	drv := importer.New(s.cfg.ImportPath, reg, s.cfg.Dialect)

	diagnostics := compileInMemory(drv, reg, sink, s.cfg.Dialect, file, text)

	conn, pubCtx := s.getConn()
	if conn == nil {
		return
	}
	if pubCtx == nil {
		pubCtx = ctx
	}
	_ = conn.Notify(pubCtx, "textDocument/publishDiagnostics", &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// compileInMemory parses text as if it were file on disk (without
// touching the filesystem) and runs the Instance Compiler over it,
// collecting diagnostics instead of writing TGT output — the LSP server
// never writes files, only reports on them.
func compileInMemory(drv *importer.Driver, reg *proto.Registry, sink *diag.Sink, dia *dialect.Table, file, text string) []protocol.Diagnostic {
	imports, err := parser.ParseFile(file, text, dia, reg)
	if err != nil {
		return []protocol.Diagnostic{diagnosticFromError(err)}
	}
	for _, imp := range imports {
		if err := drv.Import(imp.Path, file, imp.Line); err != nil {
			return []protocol.Diagnostic{diagnosticFromError(err)}
		}
	}

	comp := compiler.New(reg, sink, compiler.Options{Dialect: dia, MaxForLoopCount: 65535})
	if err := comp.CompileAll(); err != nil {
		return append(toProtocolDiagnostics(sink.Warnings), diagnosticFromError(err))
	}
	return toProtocolDiagnostics(sink.Warnings)
}

func diagnosticFromError(err error) protocol.Diagnostic {
	if d, ok := err.(*diag.Diagnostic); ok {
		return toProtocolDiagnostic(d)
	}
	return protocol.Diagnostic{
		Severity: protocol.DiagnosticSeverityError,
		Message:  err.Error(),
	}
}

func toProtocolDiagnostics(ds []*diag.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		out = append(out, toProtocolDiagnostic(d))
	}
	return out
}

func toProtocolDiagnostic(d *diag.Diagnostic) protocol.Diagnostic {
	sev := protocol.DiagnosticSeverityWarning
	if d.Severity == diag.SeverityError {
		sev = protocol.DiagnosticSeverityError
	}
	line := uint32(0)
	if d.Line > 0 {
		line = uint32(d.Line - 1)
	}
	col := uint32(0)
	if d.Column > 0 {
		col = uint32(d.Column - 1)
	}
	return protocol.Diagnostic{
		Severity: sev,
		Message:  d.Message,
		Source:   "karelc",
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + 1},
		},
	}
}
