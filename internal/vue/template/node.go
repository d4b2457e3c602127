package template

import "fmt"

// Kind identifies the type of a template node
type Kind int

const (
	Root Kind = iota
	Element
	Attribute
	Directive
	Interpolation
	For
	Text
	Comment
)

func (k Kind) String() string {
	switch k {
	case Root:
		return "Root"
	case Element:
		return "Element"
	case Attribute:
		return "Attribute"
	case Directive:
		return "Directive"
	case Interpolation:
		return "Interpolation"
	case For:
		return "For"
	case Text:
		return "Text"
	case Comment:
		return "Comment"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Pos is a 1-based line and 1-based UTF-16 column inside the fragment
type Pos struct {
	Line   int
	Column int
}

// Loc is the source span of a node or expression.
// Start is the first character; End is the last character, inclusive.
// StartByte and EndByte are the same span as byte offsets into
// Fragment.Content, EndByte exclusive.
type Loc struct {
	Start     Pos
	End       Pos
	StartByte int
	EndByte   int
}

// Expression is a JavaScript expression embedded in the template
type Expression struct {
	Content string
	Loc     Loc
}

// Node is a Vue template AST node.
//
// Children are in document order: an element's attributes and directives
// come first, then its content. A For node has the looped element as its
// only child.
type Node struct {
	Kind     Kind
	Loc      Loc
	Children []*Node

	// Tag is the element tag name, as written
	Tag string
	// Name is the attribute name, or the directive name without its
	// prefix ("bind" for both v-bind:x and :x)
	Name string
	// Arg is the directive argument ("x" in :x.prop)
	Arg string
	// Value is the raw attribute value, or the comment/text content
	Value string

	// Exp is the directive expression, nil when the directive has no value
	Exp *Expression
	// Content is the interpolation expression, trimmed
	Content *Expression
	// Source is the v-for iteration source ("items" in "item in items")
	Source *Expression
}

// Action tells Traverse how to proceed after visiting a node
type Action int

const (
	// Continue descends into the node's children
	Continue Action = iota
	// Skip prunes the node's children
	Skip
	// Stop ends the traversal
	Stop
)

// Traverse walks the tree rooted at n in pre-order, children in document
// order. It returns false if the visitor stopped the walk.
func Traverse(n *Node, visit func(*Node) Action) bool {
	if n == nil {
		return true
	}
	switch visit(n) {
	case Stop:
		return false
	case Skip:
		return true
	}
	for _, child := range n.Children {
		if !Traverse(child, visit) {
			return false
		}
	}
	return true
}

// SyntaxError reports a template that cannot be parsed.
// Line and Column are fragment coordinates; zero when the error is not
// tied to a position.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (%d:%d)", e.Message, e.Line, e.Column)
}
