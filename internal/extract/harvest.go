package extract

import (
	"bennypowers.dev/vuextract/internal/collections"
	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/internal/position"
	"bennypowers.dev/vuextract/internal/vue/expression"
	"bennypowers.dev/vuextract/internal/vue/template"
)

// Harvest collects the dynamic expressions of the subtree rooted at node,
// in pre-order: loop sources, directive expressions and interpolations.
func Harvest(fragment *template.Fragment, node *template.Node) []EvalDefinition {
	tr := fragment.Translator
	var evals []EvalDefinition
	record := func(e *template.Expression) {
		start := e.Loc.Start
		evals = append(evals, EvalDefinition{
			Content: e.Content,
			Line:    tr.AbsoluteLine(start.Line),
			Column:  tr.DocumentColumn(start.Line, start.Column),
		})
	}

	template.Traverse(node, func(n *template.Node) template.Action {
		switch n.Kind {
		case template.For:
			if n.Source != nil {
				record(n.Source)
			}
		case template.Directive:
			if n.Exp != nil && n.Exp.Content != "" {
				record(n.Exp)
			}
		case template.Interpolation:
			if n.Content != nil {
				record(n.Content)
			}
		}
		return template.Continue
	})
	return evals
}

// ResolveIdentifiers parses each expression and returns its root
// identifiers at document positions, deduplicated by name in first-seen
// order. Expressions that fail to parse contribute nothing.
func ResolveIdentifiers(evals []EvalDefinition, parser *expression.Parser) []IdentifierDefinition {
	seen := collections.NewSet[string]()
	var out []IdentifierDefinition
	for _, e := range evals {
		tree, err := parser.Parse(e.Content)
		if err != nil {
			log.Debug("skipping expression at %d:%d: %v", e.Line, e.Column, err)
			continue
		}
		for _, n := range tree.Identifiers() {
			if !seen.Insert(n.Text) {
				continue
			}
			line, column := position.ExpressionToDocument(n.Line, n.Column, e.Line, e.Column)
			out = append(out, IdentifierDefinition{Name: n.Text, Line: line, Column: column})
		}
	}
	return out
}

// Names returns the identifier names in order.
func Names(idents []IdentifierDefinition) []string {
	names := make([]string, len(idents))
	for i, id := range idents {
		names[i] = id.Name
	}
	return names
}
