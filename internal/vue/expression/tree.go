package expression

// Node is a named syntax node of a parsed expression
type Node struct {
	Kind string
	Text string
	// Line is 1-based, relative to the expression
	Line int
	// Column is the 0-based UTF-16 column, relative to the expression
	Column int
	// ParentKind is empty for the root
	ParentKind string
	// MemberProperty is true for the property side of a member expression ("c" in b.c)
	MemberProperty bool
}

// IsIdentifier reports whether the node names a binding: a plain
// identifier or a shorthand object property ({ a }).
func (n Node) IsIdentifier() bool {
	return n.Kind == "identifier" || n.Kind == "shorthand_property_identifier"
}

// Tree is a parsed expression. Nodes are captured in pre-order so the tree
// outlives the underlying parser.
type Tree struct {
	// Source is the expression as given to Parse
	Source string
	nodes  []Node
}

// Walk visits every named node in pre-order until visit returns false
func (t *Tree) Walk(visit func(Node) bool) {
	for _, n := range t.nodes {
		if !visit(n) {
			return
		}
	}
}

// Identifiers returns the identifier nodes that are not member properties,
// in source order, duplicates included.
func (t *Tree) Identifiers() []Node {
	var out []Node
	t.Walk(func(n Node) bool {
		if n.IsIdentifier() && !n.MemberProperty {
			out = append(out, n)
		}
		return true
	})
	return out
}
