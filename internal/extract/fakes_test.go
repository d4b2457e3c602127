package extract_test

import (
	"context"
	"sync"
	"time"

	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/position"
)

// memoryDocs serves document text and applies replacements in memory.
// onRead, when set, runs after every read, letting tests edit the
// document mid-extraction.
type memoryDocs struct {
	mu     sync.Mutex
	text   map[string]string
	reads  int
	onRead func(n int, docs *memoryDocs)
}

func newMemoryDocs(uri, text string) *memoryDocs {
	return &memoryDocs{text: map[string]string{uri: text}}
}

func (m *memoryDocs) Text(_ context.Context, uri string) (string, error) {
	m.mu.Lock()
	m.reads++
	n := m.reads
	text := m.text[uri]
	hook := m.onRead
	m.mu.Unlock()
	if hook != nil {
		hook(n, m)
	}
	return text, nil
}

func (m *memoryDocs) set(uri, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text[uri] = text
}

func (m *memoryDocs) get(uri string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text[uri]
}

// recorder captures side effects in the order they happen
type recorder struct {
	mu     sync.Mutex
	events []string
	files  map[string]string
	notes  []notification
	docs   *memoryDocs
}

func (r *recorder) Replace(_ context.Context, uri string, cr extract.CodeRange, text string) error {
	r.mu.Lock()
	r.events = append(r.events, "replace "+cr.String())
	r.mu.Unlock()

	doc := r.docs.get(uri)
	start := position.ByteOffset(doc, cr.StartLine, cr.StartColumn)
	end := position.ByteOffset(doc, cr.EndLine, cr.EndColumn)
	r.docs.set(uri, doc[:start]+text+doc[end:])
	return nil
}

func (r *recorder) Create(_ context.Context, path string, content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[path]; ok {
		return extract.ErrFileExists
	}
	r.events = append(r.events, "create "+path)
	if r.files == nil {
		r.files = map[string]string{}
	}
	r.files[path] = string(content)
	return nil
}

type notification struct {
	message  string
	severity extract.Severity
}

func (r *recorder) Notify(_ context.Context, message string, severity extract.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "notify "+severity.String())
	r.notes = append(r.notes, notification{message, severity})
}

// fixedPicker answers every pick with path, or cancels when path is empty
type fixedPicker struct {
	path string
	last extract.PickRequest
}

func (p *fixedPicker) Pick(_ context.Context, req extract.PickRequest) (string, bool, error) {
	p.last = req
	return p.path, p.path != "", nil
}

// slowOracle answers from a table; earlier identifiers answer later, so
// completion order is the reverse of request order.
type slowOracle struct {
	mu      sync.Mutex
	types   map[string]string
	order   map[string]int
	queries []extract.IdentifierDefinition
}

func (o *slowOracle) ResolveType(_ context.Context, _ string, id extract.IdentifierDefinition) *string {
	o.mu.Lock()
	o.queries = append(o.queries, id)
	delay := time.Duration(len(o.order)-o.order[id.Name]) * 5 * time.Millisecond
	t, ok := o.types[id.Name]
	o.mu.Unlock()

	time.Sleep(delay)
	if !ok {
		return nil
	}
	return &t
}
