package extract

import (
	"bennypowers.dev/vuextract/internal/position"
	"bennypowers.dev/vuextract/internal/vue/template"
)

// selectable reports whether a node can be extracted on its own.
// Attributes and directives belong to their element.
func selectable(n *template.Node) bool {
	switch n.Kind {
	case template.Element, template.For, template.Interpolation, template.Text, template.Comment:
		return true
	}
	return false
}

// FindNodeAtSelectionStart returns the first node, in pre-order, that starts
// exactly at the selection start. There is no nearest-node fallback.
func FindNodeAtSelectionStart(fragment *template.Fragment, root *template.Node, start position.Position) (*template.Node, bool) {
	line, column := fragment.Translator.ToFragment(start)
	var found *template.Node
	template.Traverse(root, func(n *template.Node) template.Action {
		if selectable(n) && n.Loc.Start.Line == line && n.Loc.Start.Column == column {
			found = n
			return template.Stop
		}
		return template.Continue
	})
	return found, found != nil
}

// RangeOf translates a node's location to the document range it covers.
func RangeOf(fragment *template.Fragment, node *template.Node) CodeRange {
	tr := fragment.Translator
	start, end := node.Loc.Start, node.Loc.End
	return CodeRange{
		StartLine:   tr.AbsoluteLine(start.Line),
		StartColumn: tr.DocumentColumn(start.Line, start.Column) - 1,
		EndLine:     tr.AbsoluteLine(end.Line),
		// End is inclusive and 1-based, so it is already the exclusive 0-based end
		EndColumn: tr.DocumentColumn(end.Line, end.Column),
	}
}
