package testutil

import (
	"encoding/json"
	"sync"

	"bennypowers.dev/vuextract/internal/config"
	"bennypowers.dev/vuextract/internal/documents"
	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/vue/template"
	"bennypowers.dev/vuextract/lsp/types"
	"github.com/tliron/glsp"
)

// MockServerContext implements types.ServerContext for testing.
// Go runs work inline so handler tests stay deterministic.
type MockServerContext struct {
	docs        *documents.Manager
	templates   *template.Cache
	locks       extract.Locks
	rootURI     string
	rootPath    string
	config      types.ServerConfig
	glspContext *glsp.Context

	// Types answers type queries; nil leaves every type unresolved
	Types extract.TypeOracle

	// Optional callbacks for custom behavior in tests
	LoadProjectConfigFunc  func() error
	WatchProjectConfigFunc func() error

	LoadProjectConfigCalled  bool
	WatchProjectConfigCalled bool
}

// NewMockServerContext creates a new mock server context with default behavior
func NewMockServerContext() *MockServerContext {
	return &MockServerContext{
		docs:      documents.NewManager(),
		templates: template.NewCache(8),
		config:    types.DefaultConfig(),
	}
}

func (m *MockServerContext) Document(uri string) *documents.Document { return m.docs.Get(uri) }
func (m *MockServerContext) DocumentManager() *documents.Manager     { return m.docs }
func (m *MockServerContext) Templates() *template.Cache              { return m.templates }
func (m *MockServerContext) RootURI() string                         { return m.rootURI }
func (m *MockServerContext) RootPath() string                        { return m.rootPath }
func (m *MockServerContext) SetRootURI(uri string)                   { m.rootURI = uri }
func (m *MockServerContext) SetRootPath(path string)                 { m.rootPath = path }
func (m *MockServerContext) GetConfig() types.ServerConfig           { return m.config }
func (m *MockServerContext) SetConfig(config types.ServerConfig)     { m.config = config }
func (m *MockServerContext) TypeOracle() extract.TypeOracle          { return m.Types }
func (m *MockServerContext) ExtractLocks() *extract.Locks            { return &m.locks }
func (m *MockServerContext) GLSPContext() *glsp.Context              { return m.glspContext }
func (m *MockServerContext) SetGLSPContext(ctx *glsp.Context)        { m.glspContext = ctx }
func (m *MockServerContext) Go(fn func())                            { fn() }

func (m *MockServerContext) SetClientSettings(settings types.ServerConfig) {
	m.config = config.Merge(types.DefaultConfig(), settings)
}

func (m *MockServerContext) LoadProjectConfig() error {
	m.LoadProjectConfigCalled = true
	if m.LoadProjectConfigFunc != nil {
		return m.LoadProjectConfigFunc()
	}
	return nil
}

func (m *MockServerContext) WatchProjectConfig() error {
	m.WatchProjectConfigCalled = true
	if m.WatchProjectConfigFunc != nil {
		return m.WatchProjectConfigFunc()
	}
	return nil
}

// Message is one outgoing request or notification captured by a Client.
type Message struct {
	Method string
	Params json.RawMessage
}

// Client records what handlers send to the editor. Requests are answered
// by Reply, keyed by method; unanswered requests get a null result.
type Client struct {
	mu       sync.Mutex
	Requests []Message
	Notes    []Message
	Reply    map[string]any
}

// Context returns a glsp context wired to the client.
func (c *Client) Context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			c.record(&c.Notes, method, params)
		},
		Call: func(method string, params any, result any) {
			c.record(&c.Requests, method, params)
			c.mu.Lock()
			reply, ok := c.Reply[method]
			c.mu.Unlock()
			if !ok || result == nil {
				return
			}
			data, err := json.Marshal(reply)
			if err == nil {
				_ = json.Unmarshal(data, result)
			}
		},
	}
}

func (c *Client) record(into *[]Message, method string, params any) {
	data, _ := json.Marshal(params)
	c.mu.Lock()
	defer c.mu.Unlock()
	*into = append(*into, Message{Method: method, Params: data})
}

// Sent returns the captured requests for method.
func (c *Client) Sent(method string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Message
	for _, m := range c.Requests {
		if m.Method == method {
			out = append(out, m)
		}
	}
	return out
}

// Notifications returns the captured notifications for method.
func (c *Client) Notifications(method string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Message
	for _, m := range c.Notes {
		if m.Method == method {
			out = append(out, m)
		}
	}
	return out
}
