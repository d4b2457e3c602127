package types

import (
	"bennypowers.dev/vuextract/internal/documents"
	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/vue/template"
	"github.com/tliron/glsp"
)

// ServerContext provides all dependencies needed for LSP handlers.
// Handlers depend on this interface so tests can swap in a mock.
type ServerContext interface {
	// Document operations
	Document(uri string) *documents.Document
	DocumentManager() *documents.Manager
	Templates() *template.Cache

	// Workspace operations
	RootURI() string
	RootPath() string
	SetRootURI(uri string)
	SetRootPath(path string)

	// Configuration
	GetConfig() ServerConfig
	SetConfig(config ServerConfig)
	// SetClientSettings replaces the client layer of the configuration,
	// which overrides the project config file.
	SetClientSettings(settings ServerConfig)
	LoadProjectConfig() error
	WatchProjectConfig() error

	// Extraction
	TypeOracle() extract.TypeOracle
	ExtractLocks() *extract.Locks

	// Go runs fn outside the message loop. Work that calls back into the
	// client must not block the handler that started it.
	Go(fn func())

	// LSP context
	GLSPContext() *glsp.Context
	SetGLSPContext(ctx *glsp.Context)
}
