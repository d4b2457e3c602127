package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"bennypowers.dev/vuextract/internal/position"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
)

var htmlLang = sitter.NewLanguage(tree_sitter_html.Language())

// parserPool is a pool of reusable HTML parsers
var parserPool = sync.Pool{
	New: func() any {
		parser := sitter.NewParser()
		if err := parser.SetLanguage(htmlLang); err != nil {
			panic(fmt.Sprintf("failed to set HTML language: %v", err))
		}
		return parser
	},
}

func acquireParser() *sitter.Parser {
	p := parserPool.Get().(*sitter.Parser)
	p.Reset()
	return p
}

func releaseParser(p *sitter.Parser) {
	if p != nil {
		parserPool.Put(p)
	}
}

// ClosePool closes all parsers in the pool
func ClosePool() {
	for range 100 {
		if p, ok := parserPool.Get().(*sitter.Parser); ok && p != nil {
			p.Close()
		}
	}
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

var forAliasRE = regexp.MustCompile(`^([\s\S]*?)\s+(?:in|of)\s+([\s\S]*?)\s*$`)

// Parse locates the template block of document and parses it into a
// Vue template AST.
func Parse(document string) (*Node, *Fragment, error) {
	fragment, err := Locate(document)
	if err != nil {
		return nil, nil, err
	}
	root, err := ParseFragment(fragment.Content)
	if err != nil {
		return nil, fragment, err
	}
	return root, fragment, nil
}

// ParseFragment parses template markup that has already been cut out of
// its document.
func ParseFragment(content string) (*Node, error) {
	masked, err := maskInterpolations(content)
	if err != nil {
		return nil, err
	}

	parser := acquireParser()
	defer releaseParser(parser)

	tree := parser.Parse(masked, nil)
	if tree == nil {
		return nil, &SyntaxError{Message: "Template could not be parsed"}
	}
	defer tree.Close()

	b := newBuilder(content, masked)
	tsRoot := tree.RootNode()
	if bad, msg := firstProblem(tsRoot); bad != nil {
		return nil, b.errorAt(int(bad.StartByte()), msg)
	}

	root := &Node{
		Kind:  Root,
		Loc:   b.loc(0, len(content)),
		Value: content,
	}
	root.Children = b.content(tsRoot, 0, len(content))
	if b.err != nil {
		return nil, b.err
	}
	return root, nil
}

// maskInterpolations blanks the bodies of {{ }} so characters such as '<'
// inside an expression are not read as markup. Comments and tags are
// skipped, so delimiters inside them stay literal. Byte offsets and
// newlines are preserved.
func maskInterpolations(content string) ([]byte, error) {
	masked := []byte(content)
	pos := 0
	for pos < len(content) {
		rest := content[pos:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			end := strings.Index(rest[len("<!--"):], "-->")
			if end < 0 {
				return masked, nil
			}
			pos += len("<!--") + end + len("-->")
		case isTagStart(rest):
			pos += tagLength(rest)
		case strings.HasPrefix(rest, "{{"):
			open := pos
			end := strings.Index(content[open+2:], "}}")
			if end < 0 {
				line, col := position.LineColumn(content, open)
				return nil, &SyntaxError{
					Message: "Interpolation end sign was not found",
					Line:    line + 1,
					Column:  col + 1,
				}
			}
			end += open + 2
			for i := open + 2; i < end; i++ {
				if masked[i] != '\n' && masked[i] != '\r' {
					masked[i] = ' '
				}
			}
			pos = end + 2
		default:
			pos++
		}
	}
	return masked, nil
}

func isTagStart(s string) bool {
	if len(s) < 2 || s[0] != '<' {
		return false
	}
	c := s[1]
	if c == '/' && len(s) > 2 {
		c = s[2]
	}
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// tagLength returns the length of the tag at the start of s up to and
// including its closing '>', honoring quoted attribute values.
func tagLength(s string) int {
	var quote byte
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i + 1
		}
	}
	return len(s)
}

// firstProblem returns the first node in pre-order that makes the markup
// invalid, with a message describing it.
func firstProblem(node *sitter.Node) (*sitter.Node, string) {
	switch {
	case node.IsMissing():
		return node, fmt.Sprintf("Missing %s", node.Kind())
	case node.IsError():
		return node, "Unexpected token"
	case node.Kind() == "erroneous_end_tag":
		return node, "Invalid end tag"
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if bad, msg := firstProblem(node.Child(i)); bad != nil {
			return bad, msg
		}
	}
	return nil, ""
}

type builder struct {
	source     string
	masked     []byte
	lineStarts []int
	err        *SyntaxError
}

func newBuilder(source string, masked []byte) *builder {
	starts := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &builder{source: source, masked: masked, lineStarts: starts}
}

func (b *builder) pos(offset int) Pos {
	line := sort.Search(len(b.lineStarts), func(i int) bool { return b.lineStarts[i] > offset }) - 1
	return Pos{
		Line:   line + 1,
		Column: position.StringLengthUTF16(b.source[b.lineStarts[line]:offset]) + 1,
	}
}

// loc builds the location for the byte span [start, end). End points at
// the last character, so its column is the exclusive end column minus one.
func (b *builder) loc(start, end int) Loc {
	endPos := b.pos(end)
	endPos.Column--
	return Loc{
		Start:     b.pos(start),
		End:       endPos,
		StartByte: start,
		EndByte:   end,
	}
}

func (b *builder) errorAt(offset int, msg string) *SyntaxError {
	p := b.pos(offset)
	return &SyntaxError{Message: msg, Line: p.Line, Column: p.Column}
}

func (b *builder) fail(offset int, msg string) {
	if b.err == nil {
		b.err = b.errorAt(offset, msg)
	}
}

func (b *builder) text(n *sitter.Node) string {
	return b.source[n.StartByte():n.EndByte()]
}

// content builds the children between byte offsets from and to of parent.
// Elements and comments come from the tree; the gaps between them are
// split into text and interpolations.
func (b *builder) content(parent *sitter.Node, from, to int) []*Node {
	var out []*Node
	cursor := from
	for i := uint(0); i < parent.ChildCount(); i++ {
		child := parent.Child(i)
		start, end := int(child.StartByte()), int(child.EndByte())
		if start < from || end > to {
			continue
		}
		switch child.Kind() {
		case "element", "script_element", "style_element":
			out = append(out, b.gap(cursor, start)...)
			out = append(out, b.element(child))
			cursor = end
		case "comment":
			out = append(out, b.gap(cursor, start)...)
			out = append(out, &Node{Kind: Comment, Loc: b.loc(start, end), Value: b.text(child)})
			cursor = end
		}
	}
	return append(out, b.gap(cursor, to)...)
}

func (b *builder) gap(from, to int) []*Node {
	var out []*Node
	for from < to {
		open := strings.Index(b.source[from:to], "{{")
		if open < 0 {
			break
		}
		open += from
		end := strings.Index(b.source[open+2:to], "}}")
		if end < 0 {
			break
		}
		end += open + 2 + len("}}")
		if t := b.textNode(from, open); t != nil {
			out = append(out, t)
		}
		out = append(out, b.interpolation(open, end))
		from = end
	}
	if t := b.textNode(from, to); t != nil {
		out = append(out, t)
	}
	return out
}

// trimSpace trims raw and returns the byte offset where the result starts.
func trimSpace(raw string) (string, int) {
	left := strings.TrimLeftFunc(raw, unicode.IsSpace)
	return strings.TrimRightFunc(left, unicode.IsSpace), len(raw) - len(left)
}

func (b *builder) textNode(from, to int) *Node {
	trimmed, offset := trimSpace(b.source[from:to])
	if trimmed == "" {
		return nil
	}
	start := from + offset
	return &Node{Kind: Text, Loc: b.loc(start, start+len(trimmed)), Value: trimmed}
}

func (b *builder) interpolation(start, end int) *Node {
	return &Node{
		Kind:    Interpolation,
		Loc:     b.loc(start, end),
		Content: b.expression(start+len("{{"), end-len("}}")),
	}
}

// expression returns the trimmed expression in [start, end), located at
// its first non-space character.
func (b *builder) expression(start, end int) *Expression {
	trimmed, offset := trimSpace(b.source[start:end])
	exprStart := start + offset
	if trimmed == "" {
		exprStart = start
	}
	return &Expression{Content: trimmed, Loc: b.loc(exprStart, exprStart+len(trimmed))}
}

func (b *builder) element(n *sitter.Node) *Node {
	el := &Node{Kind: Element, Loc: b.loc(int(n.StartByte()), int(n.EndByte()))}

	var startTag, endTag *sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "start_tag", "self_closing_tag":
			startTag = child
		case "end_tag":
			endTag = child
		}
	}
	if startTag == nil {
		b.fail(int(n.StartByte()), "Element has no start tag")
		return el
	}

	var forNode *Node
	for i := uint(0); i < startTag.ChildCount(); i++ {
		child := startTag.Child(i)
		switch child.Kind() {
		case "tag_name":
			el.Tag = b.text(child)
		case "attribute":
			attr, source := b.attribute(child)
			if source != nil {
				forNode = &Node{Kind: For, Loc: el.Loc, Source: source}
				continue
			}
			if attr != nil {
				el.Children = append(el.Children, attr)
			}
		}
	}

	if startTag.Kind() == "start_tag" {
		from := int(startTag.EndByte())
		to := int(n.EndByte())
		if endTag != nil {
			to = int(endTag.StartByte())
		} else if !voidElements[strings.ToLower(el.Tag)] {
			b.fail(int(n.StartByte()), fmt.Sprintf("Element is missing end tag: <%s>", el.Tag))
		}
		el.Children = append(el.Children, b.content(n, from, to)...)
	}

	if forNode != nil {
		forNode.Children = []*Node{el}
		return forNode
	}
	return el
}

// attribute classifies a start tag attribute. For v-for it returns only
// the iteration source, which the caller hoists into a For node.
func (b *builder) attribute(n *sitter.Node) (*Node, *Expression) {
	var name string
	valueStart, valueEnd := -1, -1
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "attribute_name":
			name = b.text(child)
		case "attribute_value":
			valueStart, valueEnd = int(child.StartByte()), int(child.EndByte())
		case "quoted_attribute_value":
			valueStart, valueEnd = int(child.StartByte())+1, int(child.EndByte())-1
			for j := uint(0); j < child.ChildCount(); j++ {
				if v := child.Child(j); v.Kind() == "attribute_value" {
					valueStart, valueEnd = int(v.StartByte()), int(v.EndByte())
				}
			}
		}
	}

	hasValue := valueStart >= 0 && valueEnd >= valueStart
	var value string
	if hasValue {
		value = b.source[valueStart:valueEnd]
	}
	loc := b.loc(int(n.StartByte()), int(n.EndByte()))

	if name == "v-for" {
		return nil, b.forSource(n, valueStart, value)
	}

	dirName, arg, ok := splitDirective(name)
	if !ok {
		return &Node{Kind: Attribute, Loc: loc, Name: name, Value: value}, nil
	}
	dir := &Node{Kind: Directive, Loc: loc, Name: dirName, Arg: arg, Value: value}
	if hasValue {
		dir.Exp = &Expression{Content: value, Loc: b.loc(valueStart, valueEnd)}
	}
	return dir, nil
}

func (b *builder) forSource(n *sitter.Node, valueStart int, value string) *Expression {
	m := forAliasRE.FindStringSubmatchIndex(value)
	if valueStart < 0 || m == nil || m[4] == m[5] {
		b.fail(int(n.StartByte()), "v-for has invalid expression")
		return &Expression{}
	}
	start, end := valueStart+m[4], valueStart+m[5]
	return &Expression{Content: b.source[start:end], Loc: b.loc(start, end)}
}

// splitDirective maps a Vue directive attribute name to its directive
// name and argument. Modifiers are dropped.
func splitDirective(attr string) (name, arg string, ok bool) {
	switch {
	case strings.HasPrefix(attr, "v-"):
		name = attr[len("v-"):]
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name, arg = name[:i], name[i+1:]
		}
	case strings.HasPrefix(attr, ":"):
		name, arg = "bind", attr[1:]
	case strings.HasPrefix(attr, "."):
		name, arg = "bind", attr[1:]
	case strings.HasPrefix(attr, "@"):
		name, arg = "on", attr[1:]
	case strings.HasPrefix(attr, "#"):
		name, arg = "slot", attr[1:]
	default:
		return "", "", false
	}
	if arg != "" && !strings.HasPrefix(arg, "[") {
		arg, _, _ = strings.Cut(arg, ".")
	} else if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name, arg, true
}
