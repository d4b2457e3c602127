package extract

import (
	"context"
	"errors"
	"fmt"

	"bennypowers.dev/vuextract/internal/position"
	"bennypowers.dev/vuextract/internal/synth"
)

// CodeRange is a 0-based rectangle of document text, end column exclusive
type CodeRange struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

// Text returns the document text covered by the range
func (r CodeRange) Text(document string) string {
	start := position.ByteOffset(document, r.StartLine, r.StartColumn)
	end := position.ByteOffset(document, r.EndLine, r.EndColumn)
	if end < start {
		return ""
	}
	return document[start:end]
}

func (r CodeRange) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.StartLine, r.StartColumn, r.EndLine, r.EndColumn)
}

// EvalDefinition is a dynamic expression harvested from the template.
// Line is the 0-based document line, Column the 1-based document column of
// the expression's first character.
type EvalDefinition struct {
	Content string `json:"content"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

// IdentifierDefinition is a root identifier of a harvested expression, at a
// 1-based document line and column.
type IdentifierDefinition struct {
	Name   string `json:"name"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// IdentifierTypeBinding pairs an identifier with its resolved type, nil when
// unresolved.
type IdentifierTypeBinding = synth.Binding

// Selection is an editor selection in 0-based document coordinates
type Selection struct {
	Start position.Position `json:"start"`
	End   position.Position `json:"end"`
}

var (
	// ErrNoSelectionMatch means no template node starts exactly at the selection start
	ErrNoSelectionMatch = errors.New("no element found in selection")
	// ErrStaleDocument means the document changed while the extraction was running
	ErrStaleDocument = errors.New("document changed during extraction")
	// ErrFileExists means the chosen component path is taken
	ErrFileExists = errors.New("file already exists")
)

// Severity of a user notification
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "info"
}

// MessagePrefix starts every user notification
const MessagePrefix = "Vuextract: "

// DocumentSource provides the current text of a document
type DocumentSource interface {
	Text(ctx context.Context, uri string) (string, error)
}

// TypeOracle resolves the type of an identifier. A nil result means the
// type is unknown; it is never an error.
type TypeOracle interface {
	ResolveType(ctx context.Context, uri string, ident IdentifierDefinition) *string
}

// EditApplier replaces a range of a document
type EditApplier interface {
	Replace(ctx context.Context, uri string, r CodeRange, text string) error
}

// FileCreator creates a new file. It must fail with ErrFileExists rather
// than overwrite.
type FileCreator interface {
	Create(ctx context.Context, path string, content []byte) error
}

// PickRequest describes the file a PathPicker is asked for
type PickRequest struct {
	DocumentURI string
	// Extension the chosen file must have, with the leading dot
	Extension string
	// Suggested is a default file name
	Suggested string
}

// PathPicker chooses where the new component is saved. ok is false when
// the user cancelled.
type PathPicker interface {
	Pick(ctx context.Context, req PickRequest) (path string, ok bool, err error)
}

// Notifier shows a message to the user
type Notifier interface {
	Notify(ctx context.Context, message string, severity Severity)
}
