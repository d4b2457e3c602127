package position

import "strings"

// Position is a 0-based line and 0-based UTF-16 character in the host document,
// the coordinate system of editor selections.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// FragmentLineBase is the line number the template parser assigns to the
// first line of the fragment. Document lines are 0-based, so converting
// between the two always carries this constant.
const FragmentLineBase = 1

// ExpressionLineBase is the line number the expression parser assigns to the
// first line of an expression string.
const ExpressionLineBase = 1

// FragmentLineOffset returns the number of lines preceding fragmentStart in
// document, i.e. the 0-based document line on which fragment line 1 lands.
func FragmentLineOffset(document string, fragmentStart int) int {
	fragmentStart = clamp(fragmentStart, len(document))
	return strings.Count(document[:fragmentStart], "\n")
}

// ToAbsoluteLine maps a fragment-relative line to a 0-based document line.
func ToAbsoluteLine(fragmentRelativeLine, offset int) int {
	return fragmentRelativeLine + offset - FragmentLineBase
}

// ToFragmentRelativeLine maps a 0-based document line to a fragment-relative line.
func ToFragmentRelativeLine(absoluteLine, offset int) int {
	return absoluteLine - offset + FragmentLineBase
}

// Translator converts between document and fragment coordinates for one
// fragment. It is computed once per extraction.
type Translator struct {
	// LineOffset is the 0-based document line of the fragment start.
	LineOffset int
	// ColumnOffset is the UTF-16 width of the text between the start of that
	// line and the fragment start. It only applies to fragment line 1.
	ColumnOffset int
}

// NewTranslator builds the translator for a fragment starting at byte offset
// fragmentStart in document.
func NewTranslator(document string, fragmentStart int) Translator {
	fragmentStart = clamp(fragmentStart, len(document))
	lineStart := strings.LastIndexByte(document[:fragmentStart], '\n') + 1
	return Translator{
		LineOffset:   FragmentLineOffset(document, fragmentStart),
		ColumnOffset: StringLengthUTF16(document[lineStart:fragmentStart]),
	}
}

// AbsoluteLine maps a fragment line to a 0-based document line.
func (t Translator) AbsoluteLine(fragmentLine int) int {
	return ToAbsoluteLine(fragmentLine, t.LineOffset)
}

// RelativeLine maps a 0-based document line to a fragment line.
func (t Translator) RelativeLine(absoluteLine int) int {
	return ToFragmentRelativeLine(absoluteLine, t.LineOffset)
}

// DocumentColumn maps a 1-based fragment column on fragmentLine to a 1-based
// document column. Base stays 1; callers subtract 1 where a 0-based column is
// required.
func (t Translator) DocumentColumn(fragmentLine, fragmentColumn int) int {
	if fragmentLine == FragmentLineBase {
		return fragmentColumn + t.ColumnOffset
	}
	return fragmentColumn
}

// FragmentColumn maps a 0-based document character on absoluteLine to a
// 1-based fragment column.
func (t Translator) FragmentColumn(absoluteLine, character int) int {
	column := character + 1
	if absoluteLine == t.LineOffset {
		column -= t.ColumnOffset
	}
	return column
}

// ToFragment maps a selection position to fragment (line, column).
func (t Translator) ToFragment(p Position) (line, column int) {
	return t.RelativeLine(p.Line), t.FragmentColumn(p.Line, p.Character)
}

// ExpressionToDocument maps a position reported by the expression parser
// (1-based line, 0-based column, relative to the expression string) to the
// document, given the expression's own document position (0-based line,
// 1-based column). The result is 1-based on both axes. Only the first
// expression line is shifted by the expression's column.
func ExpressionToDocument(exprLine, exprColumn, evalLine, evalColumn int) (line, column int) {
	line = exprLine + evalLine
	if exprLine == ExpressionLineBase {
		return line, exprColumn + evalColumn
	}
	return line, exprColumn + 1
}

func clamp(offset, limit int) int {
	if offset < 0 {
		return 0
	}
	if offset > limit {
		return limit
	}
	return offset
}
