package position

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// UTF16ToByteOffset converts a UTF-16 code unit offset to a byte offset in a string.
// LSP positions use UTF-16 code units, but Go strings are UTF-8 byte sequences.
// An offset that lands inside a surrogate pair is clamped to the start of that rune.
func UTF16ToByteOffset(s string, utf16Col int) int {
	if utf16Col <= 0 {
		return 0
	}

	units := 0
	byteOffset := 0

	for byteOffset < len(s) && units < utf16Col {
		r, size := utf8.DecodeRuneInString(s[byteOffset:])
		if r == utf8.RuneError && size == 1 {
			byteOffset++
			units++
			continue
		}

		runeUTF16Len := utf16.RuneLen(r)
		if runeUTF16Len == 2 && units+1 == utf16Col {
			break
		}

		units += runeUTF16Len
		byteOffset += size
	}

	return byteOffset
}

// ByteOffsetToUTF16 converts a byte offset to a UTF-16 code unit offset in a string.
// tree-sitter reports byte columns; everything downstream of the parsers speaks UTF-16.
func ByteOffsetToUTF16(s string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset > len(s) {
		byteOffset = len(s)
	}

	count := 0
	current := 0
	for current < byteOffset {
		r, size := utf8.DecodeRuneInString(s[current:])
		if r == utf8.RuneError && size == 0 {
			break
		}
		if current+size > byteOffset {
			break
		}
		if r == utf8.RuneError && size == 1 {
			count++
		} else {
			count += utf16.RuneLen(r)
		}
		current += size
	}
	return count
}

// StringLengthUTF16 returns the length of a string in UTF-16 code units.
func StringLengthUTF16(s string) int {
	count := 0
	for _, r := range s {
		count += utf16.RuneLen(r)
	}
	return count
}

// LineColumn returns the 0-based line and 0-based UTF-16 column of byteOffset in text.
func LineColumn(text string, byteOffset int) (line, column int) {
	if byteOffset > len(text) {
		byteOffset = len(text)
	}
	if byteOffset < 0 {
		byteOffset = 0
	}
	prefix := text[:byteOffset]
	line = strings.Count(prefix, "\n")
	lineStart := strings.LastIndexByte(prefix, '\n') + 1
	return line, StringLengthUTF16(prefix[lineStart:])
}

// ByteOffset is the inverse of LineColumn: it maps a 0-based line and UTF-16
// column to a byte offset, clamping to the end of the line or text.
func ByteOffset(text string, line, column int) int {
	offset := 0
	for i := 0; i < line; i++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}
		offset += next + 1
	}
	lineText := text[offset:]
	if end := strings.IndexByte(lineText, '\n'); end >= 0 {
		lineText = lineText[:end]
	}
	return offset + UTF16ToByteOffset(lineText, column)
}
