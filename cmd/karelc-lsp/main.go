// Command karelc-lsp is karelc's stdio-transport LSP server, grounded on
// the teacher's cmd/dingo-lsp/main.go stdio wiring (logger setup, a
// ReadWriteCloser wrapping stdin/stdout, jsonrpc2.NewStream/NewConn,
// storing the connection on the server before starting the handler).
// Unlike dingo-lsp, there is no gopls subprocess to locate: karelc
// compiles SRC itself.
package main

import (
	"context"
	"os"

	"go.lsp.dev/jsonrpc2"

	"github.com/kdlang/karelc/pkg/dialect"
	"github.com/kdlang/karelc/pkg/lsp"
)

func main() {
	logLevel := os.Getenv("KARELC_LSP_LOG")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := lsp.NewLogger(logLevel, os.Stderr)
	logger.Infof("starting karelc-lsp (log level: %s)", logLevel)

	dia, ok := dialect.Builtin(dialect.DefaultName)
	if !ok {
		logger.Errorf("default dialect %q missing from built-ins", dialect.DefaultName)
		os.Exit(1)
	}

	server := lsp.NewServer(lsp.ServerConfig{
		Logger:     logger,
		Dialect:    dia,
		ImportPath: []string{"."},
	})

	rwc := &stdinoutCloser{stdin: os.Stdin, stdout: os.Stdout}
	stream := jsonrpc2.NewStream(rwc)
	conn := jsonrpc2.NewConn(stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server.SetConn(conn, ctx)

	conn.Go(ctx, server.Handler())
	<-conn.Done()
	logger.Infof("karelc-lsp stopped")
}

// stdinoutCloser wraps os.Stdin/os.Stdout as an io.ReadWriteCloser,
// since jsonrpc2.NewStream needs one and neither file alone is both.
type stdinoutCloser struct {
	stdin  *os.File
	stdout *os.File
}

func (s *stdinoutCloser) Read(p []byte) (int, error)  { return s.stdin.Read(p) }
func (s *stdinoutCloser) Write(p []byte) (int, error) { return s.stdout.Write(p) }
func (s *stdinoutCloser) Close() error {
	stdinErr := s.stdin.Close()
	stdoutErr := s.stdout.Close()
	if stdinErr != nil {
		return stdinErr
	}
	return stdoutErr
}
