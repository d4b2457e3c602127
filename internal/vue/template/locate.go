package template

import (
	"strings"

	"bennypowers.dev/vuextract/internal/position"
)

const (
	openTag  = "<template"
	closeTag = "</template"
)

// Fragment is the content of a component's top-level <template> block
type Fragment struct {
	// Content is the text strictly between <template ...> and its matching </template>
	Content string
	// Start and End are the byte offsets of Content in the document
	Start int
	End   int
	// Translator maps between fragment and document coordinates
	Translator position.Translator
}

// Text returns the fragment text covered by loc
func (f *Fragment) Text(loc Loc) string {
	return f.Content[loc.StartByte:loc.EndByte]
}

// Locate finds the first <template> block in document. Nested <template>
// elements (v-if, v-slot wrappers) are balanced so they do not end the
// block early.
func Locate(document string) (*Fragment, error) {
	open, closing := nextTemplateTag(document, 0)
	if open < 0 || closing {
		return nil, &SyntaxError{Message: "No <template> block found"}
	}

	contentStart, selfClosing := tagEnd(document, open)
	if contentStart < 0 {
		return nil, &SyntaxError{Message: "Unterminated <template> tag"}
	}
	if selfClosing {
		return nil, &SyntaxError{Message: "Template block is empty"}
	}

	depth := 1
	pos := contentStart
	for {
		idx, isClose := nextTemplateTag(document, pos)
		if idx < 0 {
			return nil, &SyntaxError{Message: "Element is missing end tag: <template>"}
		}
		end, nestedSelfClosing := tagEnd(document, idx)
		if end < 0 {
			return nil, &SyntaxError{Message: "Unterminated <template> tag"}
		}
		switch {
		case isClose:
			depth--
		case !nestedSelfClosing:
			depth++
		}
		if depth == 0 {
			return &Fragment{
				Content:    document[contentStart:idx],
				Start:      contentStart,
				End:        idx,
				Translator: position.NewTranslator(document, contentStart),
			}, nil
		}
		pos = end
	}
}

// nextTemplateTag returns the offset of the next <template or </template
// tag at or after from, skipping HTML comments.
func nextTemplateTag(document string, from int) (int, bool) {
	for from < len(document) {
		i := strings.IndexByte(document[from:], '<')
		if i < 0 {
			return -1, false
		}
		i += from
		rest := document[i:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			end := strings.Index(rest, "-->")
			if end < 0 {
				return -1, false
			}
			from = i + end + len("-->")
			continue
		case hasTagPrefix(rest, openTag):
			return i, false
		case hasTagPrefix(rest, closeTag):
			return i, true
		}
		from = i + 1
	}
	return -1, false
}

func hasTagPrefix(s, tag string) bool {
	if !strings.HasPrefix(s, tag) {
		return false
	}
	if len(s) == len(tag) {
		return true
	}
	switch s[len(tag)] {
	case ' ', '\t', '\n', '\r', '\f', '>', '/':
		return true
	}
	return false
}

// tagEnd returns the offset just past the '>' closing the tag that starts
// at start, and whether the tag is self-closing. Quoted attribute values
// may contain '>'.
func tagEnd(document string, start int) (int, bool) {
	var quote byte
	for i := start; i < len(document); i++ {
		c := document[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i + 1, i > start && document[i-1] == '/'
		}
	}
	return -1, false
}
