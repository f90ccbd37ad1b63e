package query

import (
	"fmt"
	"strings"
)

// Statement is one independently executable statement of a buffer.
type Statement struct {
	Text string

	// Start and End are byte offsets into the buffer. Start skips leading
	// whitespace; End is just past the separator, if any.
	Start int
	End   int

	Line   int
	Column int
}

// Split slices text into statements on ';' found in code at bracket depth
// zero. Blank statements are dropped. A closer that does not match the
// innermost open bracket, or a bracket left open at the end of the buffer,
// is reported as a *SyntaxError.
func Split(text string) ([]Statement, error) {
	var (
		brackets BracketStack
		stmts    []Statement
	)
	s := NewScanner(text, 0, &brackets)
	begin := 0
	for {
		run, ok := s.Next()
		if !ok {
			break
		}
		if run.Kind != RunCode {
			continue
		}
		if run.Mismatched {
			return nil, mismatchError(text, run.Start, &brackets)
		}
		if text[run.Start] == ';' && brackets.Len() == 0 {
			stmts = appendStatement(stmts, text, begin, run.End)
			begin = run.End
		}
	}

	if ch, offset, open := brackets.Top(); open {
		loc := locate(text, offset)
		return nil, &SyntaxError{
			Message: fmt.Sprintf("unclosed %q", ch),
			Char:    ch,
			Offset:  offset,
			Line:    loc.Line,
			Column:  loc.Column,
			Input:   text,
		}
	}
	return appendStatement(stmts, text, begin, len(text)), nil
}

// StatementStart returns the offset just past the last ';' found in code at
// bracket depth zero, or 0 when there is none. Closers that match no open
// bracket are ignored.
func StatementStart(text string) int {
	var brackets BracketStack
	s := NewScanner(text, 0, &brackets)
	start := 0
	for {
		run, ok := s.Next()
		if !ok {
			return start
		}
		if run.Kind == RunCode && text[run.Start] == ';' && brackets.Len() == 0 {
			start = run.End
		}
	}
}

func appendStatement(stmts []Statement, text string, start, end int) []Statement {
	for start < end && isSpace(text[start]) {
		start++
	}
	body := text[start:end]
	if strings.TrimSpace(strings.TrimSuffix(body, ";")) == "" {
		return stmts
	}
	loc := locate(text, start)
	return append(stmts, Statement{
		Text:   body,
		Start:  start,
		End:    end,
		Line:   loc.Line,
		Column: loc.Column,
	})
}

func mismatchError(text string, offset int, brackets *BracketStack) error {
	ch := text[offset]
	loc := locate(text, offset)
	err := &SyntaxError{
		Char:   ch,
		Offset: offset,
		Line:   loc.Line,
		Column: loc.Column,
		Input:  text,
	}
	open, at, ok := brackets.Top()
	if !ok {
		err.Message = fmt.Sprintf("unexpected %q", ch)
		return err
	}
	opened := locate(text, at)
	err.Opened = &opened
	err.Message = fmt.Sprintf("%q does not match %q opened at line %d, column %d",
		ch, open, opened.Line, opened.Column)
	return err
}
