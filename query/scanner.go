package query

import "strings"

// ---------------------------------------------------------------------------
// Scanner: classifies query text into code, string and comment runs
// ---------------------------------------------------------------------------

// RunKind classifies a scanned run of text.
type RunKind int

const (
	RunCode RunKind = iota
	RunString
	RunComment
)

func (k RunKind) String() string {
	switch k {
	case RunCode:
		return "code"
	case RunString:
		return "string"
	case RunComment:
		return "comment"
	}
	return "unknown"
}

// Run is one unit produced by the Scanner: a single code byte, or a whole
// string literal or comment consumed atomically.
type Run struct {
	Kind  RunKind
	Start int
	End   int

	// Quote is the opening quote of a string run.
	Quote byte

	// Terminated is false for a string or block comment that reaches the
	// end of the input without its closing delimiter.
	Terminated bool

	// Line comments end before the newline.
	Line bool

	// Mismatched marks a closing bracket that did not match the top of the
	// bracket stack (or found it empty).
	Mismatched bool
}

// Open reports whether text typed at the run's End would still belong to it.
func (r Run) Open() bool {
	if r.Kind == RunCode {
		return false
	}
	return !r.Terminated || r.Line
}

// Scanner walks a text buffer one run at a time. When a BracketStack is
// supplied, brackets found in code are pushed and popped on it; brackets
// inside strings and comments never touch it.
type Scanner struct {
	src      string
	pos      int
	brackets *BracketStack
}

// NewScanner creates a scanner positioned at offset.
func NewScanner(src string, offset int, brackets *BracketStack) *Scanner {
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}
	return &Scanner{src: src, pos: offset, brackets: brackets}
}

// Pos returns the offset of the next unscanned byte.
func (s *Scanner) Pos() int {
	return s.pos
}

// Next returns the next run, or false at end of input.
func (s *Scanner) Next() (Run, bool) {
	if s.pos >= len(s.src) {
		return Run{}, false
	}
	start := s.pos

	if n, terminated, line := commentLength(s.src, start); n > 0 {
		s.pos += n
		return Run{Kind: RunComment, Start: start, End: s.pos, Terminated: terminated, Line: line}, true
	}
	if n, terminated := stringLength(s.src, start); n > 0 {
		s.pos += n
		return Run{Kind: RunString, Start: start, End: s.pos, Quote: s.src[start], Terminated: terminated}, true
	}

	ch := s.src[start]
	s.pos++
	run := Run{Kind: RunCode, Start: start, End: s.pos, Terminated: true}
	if s.brackets != nil {
		switch ch {
		case '(', '[', '{':
			s.brackets.Push(ch, start)
		case ')', ']', '}':
			if !s.brackets.Close(ch) {
				run.Mismatched = true
			}
		}
	}
	return run, true
}

// commentLength returns the length of a comment starting at i, or 0.
func commentLength(src string, i int) (n int, terminated, line bool) {
	if i+1 >= len(src) || src[i] != '/' {
		return 0, false, false
	}
	switch src[i+1] {
	case '/':
		end := strings.IndexByte(src[i:], '\n')
		if end < 0 {
			return len(src) - i, true, true
		}
		return end, true, true
	case '*':
		end := strings.Index(src[i+2:], "*/")
		if end < 0 {
			return len(src) - i, false, false
		}
		return end + 4, true, false
	}
	return 0, false, false
}

// stringLength returns the length of a string literal starting at i, or 0.
// A backslash escapes the character after it, so \' does not close a
// single-quoted string.
func stringLength(src string, i int) (n int, terminated bool) {
	if i >= len(src) || !IsQuote(src[i]) {
		return 0, false
	}
	q := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j + 1 - i, true
		}
	}
	return len(src) - i, false
}

// RunLength returns the length of the comment or string starting at i, or
// 0 when i starts code.
func RunLength(src string, i int) int {
	if n, _, _ := commentLength(src, i); n > 0 {
		return n
	}
	n, _ := stringLength(src, i)
	return n
}

// InCode reports whether the byte at offset is code, i.e. outside any
// string literal or comment.
func InCode(src string, offset int) bool {
	if offset < 0 || offset >= len(src) {
		return false
	}
	s := NewScanner(src, 0, nil)
	for {
		run, ok := s.Next()
		if !ok {
			return false
		}
		if offset < run.End {
			return run.Kind == RunCode
		}
	}
}

// CursorIn returns the string or comment run enclosing a cursor placed
// before the byte at cursor. A cursor at the very start or just after the
// closing delimiter of a run is outside it.
func CursorIn(src string, cursor int) (Run, bool) {
	if cursor > len(src) {
		cursor = len(src)
	}
	s := NewScanner(src, 0, nil)
	for {
		run, ok := s.Next()
		if !ok || run.Start >= cursor {
			return Run{}, false
		}
		if run.Kind == RunCode {
			continue
		}
		if cursor < run.End || (cursor == run.End && run.Open()) {
			return run, true
		}
	}
}

// CountNotClosed returns, for each bracket opener, the number of openers
// minus closers found in code. For each quote character the count is -1
// when the buffer ends inside an unterminated string of that quote.
func CountNotClosed(src string) map[byte]int {
	counts := map[byte]int{'(': 0, '[': 0, '{': 0, '\'': 0, '"': 0}
	s := NewScanner(src, 0, nil)
	for {
		run, ok := s.Next()
		if !ok {
			return counts
		}
		switch run.Kind {
		case RunString:
			if !run.Terminated {
				counts[run.Quote]--
			}
		case RunCode:
			ch := src[run.Start]
			if IsOpener(ch) {
				counts[ch]++
			} else if IsCloser(ch) {
				counts[OpenerOf(ch)]--
			}
		}
	}
}

// MatchClose returns the offset of the bracket closing the one at open.
// It reports false when the input ends first or a mismatched closer is hit.
func MatchClose(src string, open int) (int, bool) {
	if open < 0 || open >= len(src) || !IsOpener(src[open]) {
		return len(src), false
	}
	var brackets BracketStack
	s := NewScanner(src, open, &brackets)
	for {
		run, ok := s.Next()
		if !ok {
			return len(src), false
		}
		if run.Mismatched {
			return len(src), false
		}
		if run.Kind == RunCode && brackets.Len() == 0 {
			return run.Start, true
		}
	}
}

// ---------------------------------------------------------------------------
// Bracket stack
// ---------------------------------------------------------------------------

// BracketStack tracks open brackets and where they were opened.
type BracketStack struct {
	chars   []byte
	offsets []int
}

// Push records an open bracket.
func (b *BracketStack) Push(ch byte, offset int) {
	b.chars = append(b.chars, ch)
	b.offsets = append(b.offsets, offset)
}

// Close pops the top bracket if ch closes it. It returns false, leaving the
// stack untouched, when the stack is empty or the top does not match.
func (b *BracketStack) Close(ch byte) bool {
	n := len(b.chars)
	if n == 0 || b.chars[n-1] != OpenerOf(ch) {
		return false
	}
	b.chars = b.chars[:n-1]
	b.offsets = b.offsets[:n-1]
	return true
}

// Top returns the innermost open bracket and its offset.
func (b *BracketStack) Top() (byte, int, bool) {
	n := len(b.chars)
	if n == 0 {
		return 0, 0, false
	}
	return b.chars[n-1], b.offsets[n-1], true
}

// Len returns the number of open brackets.
func (b *BracketStack) Len() int {
	return len(b.chars)
}

// Helper functions

// IsQuote reports whether ch opens a string literal.
func IsQuote(ch byte) bool {
	return ch == '\'' || ch == '"'
}

// IsOpener reports whether ch is an opening bracket.
func IsOpener(ch byte) bool {
	return ch == '(' || ch == '[' || ch == '{'
}

// IsCloser reports whether ch is a closing bracket.
func IsCloser(ch byte) bool {
	return ch == ')' || ch == ']' || ch == '}'
}

// OpenerOf returns the opening bracket for a closer.
func OpenerOf(ch byte) byte {
	switch ch {
	case ')':
		return '('
	case ']':
		return '['
	case '}':
		return '{'
	}
	return 0
}

// CloserOf returns the closing counterpart of an opener or quote.
func CloserOf(ch byte) byte {
	switch ch {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '\'', '"':
		return ch
	}
	return 0
}
