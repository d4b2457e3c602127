package expression_test

import (
	"errors"
	"testing"

	"bennypowers.dev/vuextract/internal/vue/expression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ident struct {
	Name   string
	Line   int
	Column int
}

func identifiers(t *testing.T, p *expression.Parser, content string) []ident {
	t.Helper()
	tree, err := p.Parse(content)
	require.NoError(t, err)
	var out []ident
	for _, n := range tree.Identifiers() {
		out = append(out, ident{n.Text, n.Line, n.Column})
	}
	return out
}

func TestParseIdentifiers(t *testing.T) {
	p := expression.NewParser(expression.DialectTypeScript)

	tests := []struct {
		name    string
		content string
		want    []ident
	}{
		{
			name:    "single identifier",
			content: "count",
			want:    []ident{{"count", 1, 0}},
		},
		{
			name:    "member property is not an identifier",
			content: "a + b.c",
			want:    []ident{{"a", 1, 0}, {"b", 1, 4}},
		},
		{
			name:    "duplicates are kept in source order",
			content: "x * x",
			want:    []ident{{"x", 1, 0}, {"x", 1, 4}},
		},
		{
			name:    "object literal with shorthand",
			content: "{ active: isActive, size }",
			want:    []ident{{"isActive", 1, 10}, {"size", 1, 20}},
		},
		{
			name:    "multi-line expression",
			content: "ok\n  ? yes\n  : no",
			want:    []ident{{"ok", 1, 0}, {"yes", 2, 4}, {"no", 3, 4}},
		},
		{
			name:    "non-ASCII string before identifier",
			content: "'👍' + label",
			want:    []ident{{"label", 1, 7}},
		},
		{
			name:    "call arguments",
			content: "format(price, currency)",
			want:    []ident{{"format", 1, 0}, {"price", 1, 7}, {"currency", 1, 14}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identifiers(t, p, tt.content))
		})
	}
}

func TestParseStatementFallback(t *testing.T) {
	p := expression.NewParser(expression.DialectJavaScript)
	assert.Equal(t, []ident{{"count", 1, 0}, {"save", 1, 9}}, identifiers(t, p, "count++; save()"))
}

func TestParseTree(t *testing.T) {
	p := expression.NewParser(expression.DialectTypeScript)
	tree, err := p.Parse("a.b")
	require.NoError(t, err)
	assert.Equal(t, "a.b", tree.Source)

	var kinds []string
	tree.Walk(func(n expression.Node) bool {
		kinds = append(kinds, n.Kind)
		return n.Kind != "member_expression"
	})
	assert.Equal(t, "member_expression", kinds[len(kinds)-1], "walk stops when visit returns false")
}

func TestParseError(t *testing.T) {
	p := expression.NewParser(expression.DialectTypeScript)
	_, err := p.Parse("a +* )")
	var parseErr *expression.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "a +* )", parseErr.Content)
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    expression.Dialect
		wantErr bool
	}{
		{"", expression.DialectTypeScript, false},
		{"TypeScript", expression.DialectTypeScript, false},
		{"js", expression.DialectJavaScript, false},
		{"coffee", expression.DialectTypeScript, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := expression.ParseDialect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
