package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/internal/synth"
	"bennypowers.dev/vuextract/internal/vue/expression"
	"bennypowers.dev/vuextract/internal/vue/template"
	"golang.org/x/sync/errgroup"
)

// DefaultComponentName is suggested to the path picker when no name is configured
const DefaultComponentName = "NewComponent"

// maxTypeQueries bounds concurrent type queries per extraction
const maxTypeQueries = 8

// Request is one extraction
type Request struct {
	URI       string
	Selection Selection
	// Name overrides the component name derived from the chosen file
	Name string
}

// Result describes a finished extraction
type Result struct {
	// Cancelled is set when the user dismissed the path picker; nothing was written
	Cancelled bool

	Path        string
	Name        string
	Range       CodeRange
	Invocation  string
	Source      string
	Evals       []EvalDefinition
	Identifiers []IdentifierDefinition
	Bindings    []IdentifierTypeBinding
}

// Extractor runs extractions against host-provided collaborators.
// Runs on the same document are serialized.
type Extractor struct {
	Documents DocumentSource
	Types     TypeOracle
	Edits     EditApplier
	Files     FileCreator
	Paths     PathPicker
	Notifier  Notifier

	Parser    *expression.Parser
	Generator synth.Generator
	// DefaultName is the suggested component name
	DefaultName string

	// Locks serializes runs per document. Extractors built per request
	// share one set; nil uses a set private to this Extractor.
	Locks *Locks
	locks Locks
}

// Run extracts the node at the request's selection start into a new
// component. Failures are reported to the Notifier and returned.
func (e *Extractor) Run(ctx context.Context, req Request) (*Result, error) {
	locks := e.Locks
	if locks == nil {
		locks = &e.locks
	}
	unlock := locks.Lock(req.URI)
	defer unlock()

	res, err := e.run(ctx, req)
	if err != nil {
		e.notify(ctx, Message(err), SeverityError)
		return nil, err
	}
	return res, nil
}

// Plan runs the read-only half of an extraction: parse, resolve the
// selection, harvest and resolve identifiers. It does not query types.
func (e *Extractor) Plan(document string, sel Selection) (*Result, error) {
	root, fragment, err := template.Parse(document)
	if err != nil {
		return nil, err
	}
	node, ok := FindNodeAtSelectionStart(fragment, root, sel.Start)
	if !ok {
		return nil, ErrNoSelectionMatch
	}
	r := RangeOf(fragment, node)
	evals := Harvest(fragment, node)
	return &Result{
		Range:       r,
		Source:      r.Text(document),
		Evals:       evals,
		Identifiers: ResolveIdentifiers(evals, e.parser()),
	}, nil
}

// Preview is what an extraction at a position would do, without the
// type queries or any edit
type Preview struct {
	Range       CodeRange              `json:"range"`
	Source      string                 `json:"source"`
	Evals       []EvalDefinition       `json:"evals"`
	Identifiers []IdentifierDefinition `json:"identifiers"`
	Invocation  string                 `json:"invocation"`
}

// Preview plans an extraction and renders the invocation it would insert
// under the default component name.
func (e *Extractor) Preview(document string, sel Selection) (*Preview, error) {
	plan, err := e.Plan(document, sel)
	if err != nil {
		return nil, err
	}
	p := &Preview{
		Range:       plan.Range,
		Source:      plan.Source,
		Evals:       plan.Evals,
		Identifiers: plan.Identifiers,
		Invocation:  e.Generator.Invocation(e.defaultName(), Names(plan.Identifiers)),
	}
	if p.Evals == nil {
		p.Evals = []EvalDefinition{}
	}
	if p.Identifiers == nil {
		p.Identifiers = []IdentifierDefinition{}
	}
	return p, nil
}

func (e *Extractor) run(ctx context.Context, req Request) (*Result, error) {
	snapshot, err := e.Documents.Text(ctx, req.URI)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", req.URI, err)
	}

	plan, err := e.Plan(snapshot, req.Selection)
	if err != nil {
		return nil, err
	}
	content := plan.Source
	log.Debug("extracting %s from %s: %d expressions, %d identifiers",
		plan.Range, req.URI, len(plan.Evals), len(plan.Identifiers))

	bindings := e.resolveTypes(ctx, req.URI, plan.Identifiers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, ok, err := e.Paths.Pick(ctx, PickRequest{
		DocumentURI: req.URI,
		Extension:   synth.Extension,
		Suggested:   synth.SuggestedFile(e.defaultName()),
	})
	if err != nil {
		return nil, fmt.Errorf("choosing component path: %w", err)
	}
	if !ok {
		log.Debug("extraction from %s cancelled", req.URI)
		return &Result{Cancelled: true}, nil
	}

	name := req.Name
	if name == "" {
		name = synth.ComponentName(path)
	}

	res := &Result{
		Path:        path,
		Name:        name,
		Range:       plan.Range,
		Invocation:  e.Generator.Invocation(name, Names(plan.Identifiers)),
		Source:      e.Generator.ComponentSource(name, content, bindings),
		Evals:       plan.Evals,
		Identifiers: plan.Identifiers,
		Bindings:    bindings,
	}

	current, err := e.Documents.Text(ctx, req.URI)
	if err != nil {
		return nil, fmt.Errorf("re-reading %s: %w", req.URI, err)
	}
	if current != snapshot {
		return nil, ErrStaleDocument
	}

	if err := e.Edits.Replace(ctx, req.URI, res.Range, res.Invocation); err != nil {
		return nil, fmt.Errorf("replacing %s: %w", res.Range, err)
	}
	if err := e.Files.Create(ctx, path, []byte(res.Source)); err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	log.Info("extracted %s to %s with %d props", name, path, len(bindings))
	return res, nil
}

// resolveTypes queries all identifier types concurrently. Results are
// stored by index so the output order never depends on completion order.
func (e *Extractor) resolveTypes(ctx context.Context, uri string, idents []IdentifierDefinition) []IdentifierTypeBinding {
	bindings := make([]IdentifierTypeBinding, len(idents))
	for i, id := range idents {
		bindings[i].Name = id.Name
	}
	if e.Types == nil {
		return bindings
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxTypeQueries)
	for i, id := range idents {
		g.Go(func() error {
			bindings[i].Type = e.Types.ResolveType(gctx, uri, id)
			return nil
		})
	}
	_ = g.Wait()
	return bindings
}

func (e *Extractor) parser() *expression.Parser {
	if e.Parser == nil {
		return expression.NewParser(expression.DialectTypeScript)
	}
	return e.Parser
}

func (e *Extractor) defaultName() string {
	if e.DefaultName == "" {
		return DefaultComponentName
	}
	return e.DefaultName
}

func (e *Extractor) notify(ctx context.Context, msg string, severity Severity) {
	if e.Notifier == nil {
		return
	}
	e.Notifier.Notify(ctx, MessagePrefix+msg, severity)
}

// Message renders an extraction error for the user
func Message(err error) string {
	var syntaxErr *template.SyntaxError
	switch {
	case errors.As(err, &syntaxErr):
		return "Parsing failed: " + syntaxErr.Error()
	case errors.Is(err, ErrNoSelectionMatch):
		return "No element found in selection"
	case errors.Is(err, ErrStaleDocument):
		return "The document changed during extraction; nothing was applied"
	}
	return err.Error()
}

// Locks serializes work per key. The zero value is ready to use.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the matching unlock.
func (k *Locks) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
