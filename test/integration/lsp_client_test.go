package integration_test

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const responseTimeout = 5 * time.Second

// ServerRequest is a request the server sent to the client
type ServerRequest struct {
	Method string
	Params json.RawMessage
}

// LSPClient drives the vuextract binary over stdio
type LSPClient struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader
	t      *testing.T

	writeMu   sync.Mutex
	mu        sync.Mutex
	msgID     int
	responses map[int]chan rpcMessage
	requests  chan ServerRequest

	// Replies answers server requests by method; others get null
	Replies map[string]any
}

type rpcMessage struct {
	ID     *json.RawMessage `json:"id,omitempty"`
	Method string           `json:"method,omitempty"`
	Params json.RawMessage  `json:"params,omitempty"`
	Result json.RawMessage  `json:"result,omitempty"`
	Error  *rpcError        `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("%d: %s", e.Code, e.Message) }

var (
	buildOnce sync.Once
	binary    string
	buildErr  error
)

// serverBinary builds the command once per test run
func serverBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		cwd, err := os.Getwd()
		if err != nil {
			buildErr = err
			return
		}
		dir, err := os.MkdirTemp("", "vuextract-integration")
		if err != nil {
			buildErr = err
			return
		}
		binary = filepath.Join(dir, "vuextract")
		cmd := exec.Command("go", "build", "-o", binary, "./cmd/vuextract")
		cmd.Dir = filepath.Join(cwd, "..", "..")
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = fmt.Errorf("%w: %s", err, out)
		}
	})
	require.NoError(t, buildErr, "failed to build server")
	return binary
}

// NewLSPClient starts the server and begins reading its output
func NewLSPClient(t *testing.T, replies map[string]any) *LSPClient {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test builds and runs the server")
	}

	cmd := exec.Command(serverBinary(t), "--log-level", "debug", "serve")
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	stderr, err := cmd.StderrPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			t.Logf("[SERVER] %s", scanner.Text())
		}
	}()

	c := &LSPClient{
		cmd:       cmd,
		stdin:     stdin,
		reader:    bufio.NewReader(stdout),
		t:         t,
		responses: make(map[int]chan rpcMessage),
		requests:  make(chan ServerRequest, 16),
		Replies:   replies,
	}
	go c.readLoop()
	t.Cleanup(c.Close)
	return c
}

// Close shuts the server down and waits for it to exit
func (c *LSPClient) Close() {
	_ = c.Call("shutdown", nil, nil)
	c.Notify("exit", nil)
	_ = c.stdin.Close()
	done := make(chan struct{})
	go func() {
		_ = c.cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(responseTimeout):
		_ = c.cmd.Process.Kill()
	}
}

// Call sends a request and decodes its result into result, when non-nil
func (c *LSPClient) Call(method string, params, result any) error {
	c.mu.Lock()
	c.msgID++
	id := c.msgID
	ch := make(chan rpcMessage, 1)
	c.responses[id] = ch
	c.mu.Unlock()

	c.send(map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params})

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return msg.Error
		}
		if result != nil && len(msg.Result) > 0 {
			return json.Unmarshal(msg.Result, result)
		}
		return nil
	case <-time.After(responseTimeout):
		return fmt.Errorf("timeout waiting for %s", method)
	}
}

// Notify sends a notification
func (c *LSPClient) Notify(method string, params any) {
	c.send(map[string]any{"jsonrpc": "2.0", "method": method, "params": params})
}

// NextRequest waits for the next request the server sends
func (c *LSPClient) NextRequest(method string) ServerRequest {
	c.t.Helper()
	deadline := time.After(responseTimeout)
	for {
		select {
		case req := <-c.requests:
			if req.Method == method {
				return req
			}
		case <-deadline:
			c.t.Fatalf("timeout waiting for server request %s", method)
			return ServerRequest{}
		}
	}
}

func (c *LSPClient) send(msg any) {
	data, err := json.Marshal(msg)
	require.NoError(c.t, err)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = fmt.Fprintf(c.stdin, "Content-Length: %d\r\n\r\n%s", len(data), data)
	if err != nil {
		c.t.Logf("write failed: %v", err)
	}
}

func (c *LSPClient) readLoop() {
	for {
		var length int
		for {
			line, err := c.reader.ReadString('\n')
			if err != nil {
				return
			}
			if line == "\r\n" {
				break
			}
			_, _ = fmt.Sscanf(line, "Content-Length: %d", &length)
		}
		content := make([]byte, length)
		if _, err := io.ReadFull(c.reader, content); err != nil {
			return
		}

		var msg rpcMessage
		if err := json.Unmarshal(content, &msg); err != nil {
			c.t.Logf("bad message %q: %v", content, err)
			continue
		}
		switch {
		case msg.Method != "" && msg.ID != nil:
			select {
			case c.requests <- ServerRequest{Method: msg.Method, Params: msg.Params}:
			default:
			}
			c.send(map[string]any{"jsonrpc": "2.0", "id": msg.ID, "result": c.Replies[msg.Method]})
		case msg.Method != "":
			// notification
		case msg.ID != nil:
			var id int
			if err := json.Unmarshal(*msg.ID, &id); err != nil {
				continue
			}
			c.mu.Lock()
			ch, ok := c.responses[id]
			delete(c.responses, id)
			c.mu.Unlock()
			if ok {
				ch <- msg
			}
		}
	}
}
