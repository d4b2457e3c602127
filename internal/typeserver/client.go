package typeserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/internal/position"
	"github.com/sourcegraph/jsonrpc2"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// LanguageID is sent with every didOpen.
const LanguageID = "vue"

// TextSource provides the current text of a document.
type TextSource interface {
	Text(ctx context.Context, uri string) (string, error)
}

// Options configures a spawned type server.
type Options struct {
	Command string
	Args    []string
	RootURI string
	// Documents, when set, is consulted before every hover so the server
	// sees the same text the extraction ran against.
	Documents TextSource
}

// synced tracks what the server has been told about a document
type synced struct {
	version int32
	text    string
}

// Client talks to an external language server that answers hover requests.
type Client struct {
	conn      *jsonrpc2.Conn
	cmd       *exec.Cmd
	rootURI   string
	Documents TextSource

	mu   sync.Mutex
	docs map[string]synced
}

// Start spawns the type server and initializes it over stdio.
func Start(ctx context.Context, opts Options) (*Client, error) {
	if opts.Command == "" {
		return nil, errors.New("type server command is empty")
	}

	cmd := exec.Command(opts.Command, opts.Args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start type server %q: %w", opts.Command, err)
	}
	log.Info("Started type server: %s %s", opts.Command, strings.Join(opts.Args, " "))

	c, err := NewClient(ctx, pipe{stdout, stdin}, opts.RootURI)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	c.cmd = cmd
	c.Documents = opts.Documents
	return c, nil
}

// NewClient connects to a type server over rwc and runs the initialize
// handshake.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser, rootURI string) (*Client, error) {
	c := &Client{
		rootURI: rootURI,
		docs:    make(map[string]synced),
	}
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	c.conn = jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(c.handle))

	if err := c.Initialize(ctx); err != nil {
		_ = c.conn.Close()
		return nil, err
	}
	return c, nil
}

// handle answers server-to-client traffic. Nothing the server asks for
// changes how hovers are answered, so requests get an empty result.
func (c *Client) handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	if req.Method == protocol.ServerWindowLogMessage && req.Params != nil {
		var params protocol.LogMessageParams
		if err := json.Unmarshal(*req.Params, &params); err == nil {
			log.Debug("type server: %s", params.Message)
		}
	}
	return nil, nil
}

// Initialize performs the initialize/initialized handshake.
func (c *Client) Initialize(ctx context.Context) error {
	pid := protocol.Integer(os.Getpid())
	params := protocol.InitializeParams{
		ProcessID:    &pid,
		Capabilities: protocol.ClientCapabilities{},
	}
	if c.rootURI != "" {
		root := c.rootURI
		params.RootURI = &root
	}

	var result json.RawMessage
	if err := c.conn.Call(ctx, "initialize", params, &result); err != nil {
		return fmt.Errorf("type server initialize: %w", err)
	}
	if err := c.conn.Notify(ctx, "initialized", protocol.InitializedParams{}); err != nil {
		return fmt.Errorf("type server initialized: %w", err)
	}
	return nil
}

// DidOpen announces a document to the server.
func (c *Client) DidOpen(ctx context.Context, uri, languageID string, version int32, text string) error {
	params := protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: languageID,
			Version:    version,
			Text:       text,
		},
	}
	if err := c.conn.Notify(ctx, "textDocument/didOpen", params); err != nil {
		return fmt.Errorf("didOpen %s: %w", uri, err)
	}
	return nil
}

// Sync makes sure the server holds text for uri: the first call opens the
// document, later calls send a full-text change when the text moved on.
func (c *Client) Sync(ctx context.Context, uri, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, open := c.docs[uri]
	if !open {
		if err := c.DidOpen(ctx, uri, LanguageID, 1, text); err != nil {
			return err
		}
		c.docs[uri] = synced{version: 1, text: text}
		return nil
	}
	if doc.text == text {
		return nil
	}

	next := doc.version + 1
	params := protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                next,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: text}},
	}
	if err := c.conn.Notify(ctx, "textDocument/didChange", params); err != nil {
		return fmt.Errorf("didChange %s: %w", uri, err)
	}
	c.docs[uri] = synced{version: next, text: text}
	return nil
}

// Hover asks the server about pos and returns the hover contents as
// markdown blocks. A null result yields no blocks.
func (c *Client) Hover(ctx context.Context, uri string, pos position.Position) ([]string, error) {
	if c.Documents != nil {
		text, err := c.Documents.Text(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", uri, err)
		}
		if err := c.Sync(ctx, uri, text); err != nil {
			return nil, err
		}
	}

	params := protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position: protocol.Position{
				Line:      protocol.UInteger(pos.Line),
				Character: protocol.UInteger(pos.Character),
			},
		},
	}

	var result *struct {
		Contents json.RawMessage `json:"contents"`
	}
	if err := c.conn.Call(ctx, "textDocument/hover", params, &result); err != nil {
		return nil, fmt.Errorf("hover %s %d:%d: %w", uri, pos.Line, pos.Character, err)
	}
	if result == nil {
		return nil, nil
	}
	return Blocks(result.Contents)
}

// Blocks flattens hover contents into markdown strings. MarkupContent
// contributes its value, a plain MarkedString itself, and a
// {language, value} MarkedString becomes a fenced code block.
func Blocks(raw json.RawMessage) ([]string, error) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		var out []string
		for _, item := range items {
			blocks, err := Blocks(item)
			if err != nil {
				return nil, err
			}
			out = append(out, blocks...)
		}
		return out, nil
	case '{':
		var v struct {
			Kind     string `json:"kind"`
			Language string `json:"language"`
			Value    string `json:"value"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if v.Language != "" {
			return []string{"```" + v.Language + "\n" + v.Value + "\n```"}, nil
		}
		return []string{v.Value}, nil
	default:
		return nil, fmt.Errorf("unexpected hover contents: %s", raw)
	}
}

// Close shuts the server down and releases the connection. When the
// client spawned the server, Close waits for it to exit.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if err := c.conn.Call(ctx, "shutdown", nil, nil); err != nil {
		errs = append(errs, fmt.Errorf("shutdown: %w", err))
	}
	if err := c.conn.Notify(ctx, "exit", nil); err != nil {
		errs = append(errs, fmt.Errorf("exit: %w", err))
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		errs = append(errs, err)
	}
	if c.cmd != nil {
		if err := c.wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// wait waits for the spawned server to exit, killing it once ctx is done.
func (c *Client) wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			log.Debug("type server exited: %v", err)
		}
		return nil
	case <-ctx.Done():
		if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("kill: %w", err)
		}
		<-done
		return fmt.Errorf("type server did not exit: %w", ctx.Err())
	}
}

// pipe joins a child's stdout and stdin into one stream
type pipe struct {
	io.ReadCloser
	io.WriteCloser
}

func (p pipe) Close() error {
	return errors.Join(p.WriteCloser.Close(), p.ReadCloser.Close())
}
