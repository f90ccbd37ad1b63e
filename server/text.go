package server

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// --- Text and position helpers ---
//
// LSP positions count UTF-16 code units per line; the engine works on byte
// offsets.

// offsetAt converts pos to a byte offset into text. Positions past the end
// of a line clamp to the line end.
func offsetAt(text string, pos protocol.Position) int {
	i := 0
	for line := 0; line < int(pos.Line); line++ {
		nl := strings.IndexByte(text[i:], '\n')
		if nl < 0 {
			return len(text)
		}
		i += nl + 1
	}

	col := 0
	for i < len(text) && text[i] != '\n' && col < int(pos.Character) {
		r, size := utf8.DecodeRuneInString(text[i:])
		col += utf16Len(r)
		i += size
	}
	return i
}

// positionAt converts a byte offset into text to an LSP position.
func positionAt(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		offset = 0
	}
	line, col := 0, 0
	for _, r := range text[:offset] {
		if r == '\n' {
			line++
			col = 0
			continue
		}
		col += utf16Len(r)
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

func rangeOf(text string, from, to int) protocol.Range {
	return protocol.Range{Start: positionAt(text, from), End: positionAt(text, to)}
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

// wordAt returns the bounds of the identifier touching offset.
func wordAt(text string, offset int) (start, end int) {
	if offset > len(text) {
		offset = len(text)
	}
	start = offset
	for start > 0 && isWordByte(text[start-1]) {
		start--
	}
	end = offset
	for end < len(text) && isWordByte(text[end]) {
		end++
	}
	return start, end
}

func isWordByte(ch byte) bool {
	return ch == '_' || ch == '$' || ch >= 0x80 ||
		('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ('0' <= ch && ch <= '9')
}

func boolPtr(b bool) *bool {
	return &b
}

func strPtr(s string) *string {
	return &s
}
