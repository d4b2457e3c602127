package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bennypowers.dev/vuextract/internal/position"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ErrNotOpen is returned for URIs the client has not opened.
var ErrNotOpen = errors.New("document not open")

// Manager tracks the documents the client has open.
type Manager struct {
	documents map[string]*Document
	mu        sync.RWMutex
}

// NewManager creates a new document manager
func NewManager() *Manager {
	return &Manager{
		documents: make(map[string]*Document),
	}
}

// Get retrieves a document by URI
func (m *Manager) Get(uri string) *Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.documents[uri]
}

// GetAll returns all managed documents
func (m *Manager) GetAll() []*Document {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]*Document, 0, len(m.documents))
	for _, doc := range m.documents {
		docs = append(docs, doc)
	}
	return docs
}

// Text returns the current content of uri.
func (m *Manager) Text(_ context.Context, uri string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[uri]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	return doc.content, nil
}

// Snapshot returns the content and version of uri under one lock.
func (m *Manager) Snapshot(uri string) (content string, version int, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[uri]
	if !ok {
		return "", 0, false
	}
	return doc.content, doc.version, true
}

// DidOpen handles the textDocument/didOpen notification
func (m *Manager) DidOpen(uri, languageID string, version int, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[uri] = NewDocument(uri, languageID, version, content)
	return nil
}

// DidClose handles the textDocument/didClose notification
func (m *Manager) DidClose(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.documents[uri]; !exists {
		return fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	delete(m.documents, uri)
	return nil
}

// DidChange handles the textDocument/didChange notification
func (m *Manager) DidChange(uri string, version int, changes []protocol.TextDocumentContentChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, exists := m.documents[uri]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}

	content := doc.content
	for i, change := range changes {
		if change.Range == nil {
			content = change.Text
			continue
		}
		next, err := applyIncrementalChange(content, *change.Range, change.Text)
		if err != nil {
			return fmt.Errorf("failed to apply change %d: %w", i, err)
		}
		content = next
	}

	if err := doc.SetContent(content, version); err != nil {
		return fmt.Errorf("failed to set document content: %w", err)
	}
	return nil
}

// applyIncrementalChange replaces the UTF-16 range r of content with text.
// A range starting one line past the end is an insertion at EOF.
func applyIncrementalChange(content string, r protocol.Range, text string) (string, error) {
	start, err := offsetOf(content, r.Start)
	if err != nil {
		return "", fmt.Errorf("start: %w", err)
	}
	end, err := offsetOf(content, r.End)
	if err != nil {
		return "", fmt.Errorf("end: %w", err)
	}
	if end < start {
		return "", fmt.Errorf("range end %d:%d precedes start %d:%d",
			r.End.Line, r.End.Character, r.Start.Line, r.Start.Character)
	}
	return content[:start] + text + content[end:], nil
}

func offsetOf(content string, p protocol.Position) (int, error) {
	lines := strings.Count(content, "\n") + 1
	line := int(p.Line)
	if line > lines || (line == lines && p.Character != 0) {
		return 0, fmt.Errorf("line %d out of bounds (total lines: %d)", line, lines)
	}
	return position.ByteOffset(content, line, int(p.Character)), nil
}
