package lsp

import (
	"context"
	"errors"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"bennypowers.dev/vuextract/internal/config"
	"bennypowers.dev/vuextract/internal/documents"
	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/internal/typeoracle"
	"bennypowers.dev/vuextract/internal/typeserver"
	"bennypowers.dev/vuextract/internal/vue/expression"
	"bennypowers.dev/vuextract/internal/vue/template"
	"bennypowers.dev/vuextract/lsp/methods/lifecycle"
	"bennypowers.dev/vuextract/lsp/methods/textDocument"
	codeaction "bennypowers.dev/vuextract/lsp/methods/textDocument/codeAction"
	"bennypowers.dev/vuextract/lsp/methods/workspace"
	"bennypowers.dev/vuextract/lsp/types"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

var _ types.ServerContext = (*Server)(nil)

// typeServerTimeout bounds starting and stopping the type server
const typeServerTimeout = 10 * time.Second

// Server is the vuextract language server
type Server struct {
	documents  *documents.Manager
	templates  *template.Cache
	locks      extract.Locks
	glspServer *server.Server

	configMu sync.RWMutex // guards the fields below
	context  *glsp.Context
	rootURI  string
	rootPath string
	project  types.ServerConfig // defaults plus the project config file
	client   types.ServerConfig // overrides sent by the client
	config   types.ServerConfig // effective
	watcher  *config.Watcher

	oracle typeServer

	work      sync.WaitGroup
	closeOnce sync.Once
}

// NewServer creates the server. verbose enables glsp's message tracing.
func NewServer(verbose bool) (*Server, error) {
	s := &Server{
		documents: documents.NewManager(),
		templates: template.NewCache(template.DefaultCacheSize),
		project:   types.DefaultConfig(),
		config:    types.DefaultConfig(),
	}
	s.oracle.server = s

	protocolHandler := protocol.Handler{
		Initialize:                      method(s, "initialize", lifecycle.Initialize),
		Initialized:                     notify(s, "initialized", lifecycle.Initialized),
		Shutdown:                        noParam(s, "shutdown", lifecycle.Shutdown),
		SetTrace:                        notify(s, "$/setTrace", lifecycle.SetTrace),
		WorkspaceDidChangeConfiguration: notify(s, "workspace/didChangeConfiguration", workspace.DidChangeConfiguration),
		WorkspaceExecuteCommand:         method(s, "workspace/executeCommand", workspace.ExecuteCommand),
		TextDocumentDidOpen:             notify(s, "textDocument/didOpen", textDocument.DidOpen),
		TextDocumentDidChange:           notify(s, "textDocument/didChange", textDocument.DidChange),
		TextDocumentDidClose:            notify(s, "textDocument/didClose", textDocument.DidClose),
		TextDocumentCodeAction:          method(s, "textDocument/codeAction", codeaction.CodeAction),
	}

	handler := &CustomHandler{
		Handler: &protocolHandler,
		server:  s,
	}
	s.glspServer = server.NewServer(handler, lifecycle.ServerName, verbose)
	return s, nil
}

// RunStdio serves LSP over stdin and stdout until the client disconnects
func (s *Server) RunStdio() error {
	return s.glspServer.RunStdio()
}

// Close stops the config watcher and the type server, waits for running
// extractions and releases the parser pools. It is safe to call more than
// once.
func (s *Server) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.configMu.Lock()
		w := s.watcher
		s.watcher = nil
		s.configMu.Unlock()
		if w != nil {
			errs = append(errs, w.Close())
		}

		s.work.Wait()
		errs = append(errs, s.oracle.stop())

		template.ClosePool()
		expression.ClosePool()
	})
	return errors.Join(errs...)
}

// Go runs fn on its own goroutine. Close waits for it.
func (s *Server) Go(fn func()) {
	s.work.Add(1)
	go func() {
		defer s.work.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("PANIC in background work: %v\nStack trace:\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

func (s *Server) Document(uri string) *documents.Document { return s.documents.Get(uri) }
func (s *Server) DocumentManager() *documents.Manager     { return s.documents }
func (s *Server) Templates() *template.Cache              { return s.templates }
func (s *Server) ExtractLocks() *extract.Locks            { return &s.locks }

// RootURI returns the workspace root URI
func (s *Server) RootURI() string {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.rootURI
}

// RootPath returns the workspace root path
func (s *Server) RootPath() string {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.rootPath
}

// SetRootURI sets the workspace root URI
func (s *Server) SetRootURI(uri string) {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.rootURI = uri
}

// SetRootPath sets the workspace root path
func (s *Server) SetRootPath(path string) {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.rootPath = path
}

// GLSPContext returns the client connection stored at initialized
func (s *Server) GLSPContext() *glsp.Context {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.context
}

// SetGLSPContext stores the client connection
func (s *Server) SetGLSPContext(ctx *glsp.Context) {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.context = ctx
}

// TypeOracle answers type queries through the configured type server,
// started on first use. It is nil when no type server is configured.
func (s *Server) TypeOracle() extract.TypeOracle {
	if s.GetConfig().TypeServer == nil {
		return nil
	}
	return &s.oracle
}

// typeServer owns the type server process. A failed start is not
// retried until the type server configuration changes.
type typeServer struct {
	server *Server

	mu     sync.Mutex
	spec   *config.TypeServer
	client *typeserver.Client
	failed error
}

func (t *typeServer) ResolveType(ctx context.Context, uri string, ident extract.IdentifierDefinition) *string {
	client := t.get(ctx)
	if client == nil {
		return nil
	}
	return typeoracle.HoverOracle{Service: client}.ResolveType(ctx, uri, ident)
}

func (t *typeServer) get(ctx context.Context) *typeserver.Client {
	spec := t.server.GetConfig().TypeServer
	if spec == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return t.client
	}
	if t.failed != nil {
		return nil
	}

	program, args, err := spec.Resolve(t.server.RootPath())
	if err == nil {
		startCtx, cancel := context.WithTimeout(ctx, typeServerTimeout)
		defer cancel()
		t.client, err = typeserver.Start(startCtx, typeserver.Options{
			Command:   program,
			Args:      args,
			RootURI:   t.server.RootURI(),
			Documents: t.server.documents,
		})
	}
	if err != nil {
		t.failed = err
		workspace.LogWarning(t.server.GLSPContext(), "Type server %q unavailable, props will use the fallback type: %v", spec.Command, err)
		return nil
	}
	t.spec = spec
	return t.client
}

// reset stops a running type server whose configuration no longer matches
// spec and clears a previous failure.
func (t *typeServer) reset(spec *config.TypeServer) {
	t.mu.Lock()
	if sameTypeServer(t.spec, spec) && t.client != nil {
		t.mu.Unlock()
		return
	}
	client := t.client
	t.client, t.spec, t.failed = nil, nil, nil
	t.mu.Unlock()

	if client != nil {
		t.server.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), typeServerTimeout)
			defer cancel()
			if err := client.Close(ctx); err != nil {
				log.Warn("Failed to stop type server: %v", err)
			}
		})
	}
}

func (t *typeServer) stop() error {
	t.mu.Lock()
	client := t.client
	t.client, t.spec = nil, nil
	t.mu.Unlock()
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), typeServerTimeout)
	defer cancel()
	return client.Close(ctx)
}

func sameTypeServer(a, b *config.TypeServer) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Command == b.Command && slices.Equal(a.Args, b.Args)
}
