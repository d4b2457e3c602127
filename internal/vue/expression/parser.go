package expression

import (
	"fmt"
	"strings"
	"sync"

	"bennypowers.dev/vuextract/internal/position"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Dialect selects the grammar template expressions are parsed with
type Dialect int

const (
	// DialectTypeScript accepts TypeScript syntax in expressions (as/satisfies, generics)
	DialectTypeScript Dialect = iota
	// DialectJavaScript parses plain JavaScript
	DialectJavaScript
)

func (d Dialect) String() string {
	if d == DialectJavaScript {
		return "javascript"
	}
	return "typescript"
}

// ParseDialect maps a config value to a Dialect. Unknown values are an error.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ts", "typescript":
		return DialectTypeScript, nil
	case "js", "javascript":
		return DialectJavaScript, nil
	}
	return DialectTypeScript, fmt.Errorf("unknown expression dialect %q", name)
}

var (
	tsLang = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	jsLang = sitter.NewLanguage(tree_sitter_javascript.Language())
)

func newPool(lang *sitter.Language, name string) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			parser := sitter.NewParser()
			if err := parser.SetLanguage(lang); err != nil {
				panic(fmt.Sprintf("failed to set %s language: %v", name, err))
			}
			return parser
		},
	}
}

var pools = map[Dialect]*sync.Pool{
	DialectTypeScript: newPool(tsLang, "TypeScript"),
	DialectJavaScript: newPool(jsLang, "JavaScript"),
}

// ClosePool closes all pooled parsers
func ClosePool() {
	for _, pool := range pools {
		for range 100 {
			if p, ok := pool.Get().(*sitter.Parser); ok && p != nil {
				p.Close()
			}
		}
	}
}

// ParseError reports an expression neither grammar form accepts
type ParseError struct {
	Content string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse expression %q", e.Content)
}

// Parser parses Vue template expressions. It is safe for concurrent use.
type Parser struct {
	dialect Dialect
}

// NewParser creates a parser for the given dialect
func NewParser(dialect Dialect) *Parser {
	return &Parser{dialect: dialect}
}

// Dialect returns the parser's dialect
func (p *Parser) Dialect() Dialect {
	return p.dialect
}

// Parse parses content as an expression. The content is wrapped in
// parentheses so object literals read as expressions; if that fails it is
// parsed as a statement list, which covers v-on handlers like
// "count++; save()".
func (p *Parser) Parse(content string) (*Tree, error) {
	if tree, ok := p.parse("("+content+")", 1); ok {
		return tree, nil
	}
	if tree, ok := p.parse(content, 0); ok {
		return tree, nil
	}
	return nil, &ParseError{Content: content}
}

func (p *Parser) parse(source string, wrapper int) (*Tree, bool) {
	pool := pools[p.dialect]
	parser := pool.Get().(*sitter.Parser)
	parser.Reset()
	defer pool.Put(parser)

	src := []byte(source)
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, false
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, false
	}

	c := &collector{source: source, lines: strings.Split(source, "\n"), wrapper: wrapper}
	c.collect(root, nil)
	return &Tree{Source: source[wrapper : len(source)-wrapper], nodes: c.nodes}, true
}

type collector struct {
	source  string
	lines   []string
	wrapper int
	nodes   []Node
}

func (c *collector) collect(n, parent *sitter.Node) {
	if n.IsNamed() {
		start := n.StartPosition()
		line := int(start.Row)
		column := position.ByteOffsetToUTF16(c.lines[line], int(start.Column))
		if line == 0 {
			column -= c.wrapper
		}
		node := Node{
			Kind:   n.Kind(),
			Text:   c.source[n.StartByte():n.EndByte()],
			Line:   line + position.ExpressionLineBase,
			Column: column,
		}
		if parent != nil {
			node.ParentKind = parent.Kind()
			if prop := parent.ChildByFieldName("property"); prop != nil && parent.Kind() == "member_expression" {
				node.MemberProperty = prop.StartByte() == n.StartByte()
			}
		}
		c.nodes = append(c.nodes, node)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c.collect(n.Child(i), n)
	}
}
