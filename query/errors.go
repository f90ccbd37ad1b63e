package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStackOverflow aborts a parse whose element count passed the ceiling.
var ErrStackOverflow = errors.New("query: parse stack ceiling exceeded")

// ErrQueryTooLong aborts a parse whose input passed the length guard.
var ErrQueryTooLong = errors.New("query: input exceeds maximum length")

// SyntaxError reports an unbalanced bracket found while splitting a buffer
// into statements.
type SyntaxError struct {
	Message string
	Char    byte
	Offset  int
	Line    int // 1-based
	Column  int // 1-based
	Input   string

	// Opened points at the bracket a mismatched closer was compared with.
	Opened *Location
}

// Location is a position in the query buffer.
type Location struct {
	Offset int
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
	if snippet := e.snippet(); snippet != "" {
		msg += "\n" + snippet
	}
	return msg
}

// snippet returns the offending line with a caret under the error column.
func (e *SyntaxError) snippet() string {
	if e.Input == "" {
		return ""
	}
	lines := strings.Split(e.Input, "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return ""
	}
	line := lines[e.Line-1]
	return fmt.Sprintf("  %s\n  %s^", line, strings.Repeat(" ", e.Column-1))
}

// locate converts a byte offset into a 1-based line and column.
func locate(text string, offset int) Location {
	if offset > len(text) {
		offset = len(text)
	}
	line := 1 + strings.Count(text[:offset], "\n")
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	return Location{Offset: offset, Line: line, Column: offset - lineStart + 1}
}
