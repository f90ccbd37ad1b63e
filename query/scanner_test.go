package query

import (
	"testing"
)

func TestScannerRuns(t *testing.T) {
	input := "r('a(b') /* ( */ // x"
	expected := []struct {
		kind  RunKind
		start int
		end   int
	}{
		{RunCode, 0, 1},
		{RunCode, 1, 2},
		{RunString, 2, 7},
		{RunCode, 7, 8},
		{RunCode, 8, 9},
		{RunComment, 9, 16},
		{RunCode, 16, 17},
		{RunComment, 17, 21},
	}

	var brackets BracketStack
	s := NewScanner(input, 0, &brackets)
	for i, exp := range expected {
		run, ok := s.Next()
		if !ok {
			t.Fatalf("run[%d]: scanner ended early", i)
		}
		if run.Kind != exp.kind || run.Start != exp.start || run.End != exp.end {
			t.Errorf("run[%d] = %v [%d,%d), want %v [%d,%d)", i, run.Kind, run.Start, run.End, exp.kind, exp.start, exp.end)
		}
	}
	if _, ok := s.Next(); ok {
		t.Error("expected end of input")
	}
	if brackets.Len() != 0 {
		t.Errorf("brackets.Len() = %d, want 0 (brackets in strings and comments are ignored)", brackets.Len())
	}
}

func TestScannerEscapedQuote(t *testing.T) {
	n, terminated := stringLength(`'it\'s' + 1`, 0)
	if n != 7 || !terminated {
		t.Errorf("stringLength = %d, %v; want 7, true", n, terminated)
	}
}

func TestScannerUnterminated(t *testing.T) {
	tests := []struct {
		input string
		kind  RunKind
	}{
		{"'abc", RunString},
		{`"abc\"`, RunString},
		{"/* abc", RunComment},
	}

	for _, tc := range tests {
		run, ok := NewScanner(tc.input, 0, nil).Next()
		if !ok {
			t.Fatalf("Scanner(%q): no run", tc.input)
		}
		if run.Kind != tc.kind {
			t.Errorf("Scanner(%q): kind = %v, want %v", tc.input, run.Kind, tc.kind)
		}
		if run.Terminated {
			t.Errorf("Scanner(%q): run should be unterminated", tc.input)
		}
		if run.End != len(tc.input) {
			t.Errorf("Scanner(%q): end = %d, want %d", tc.input, run.End, len(tc.input))
		}
	}
}

func TestInCode(t *testing.T) {
	input := "a('b') // c"
	tests := []struct {
		offset int
		want   bool
	}{
		{0, true},
		{1, true},
		{3, false},
		{5, true},
		{9, false},
		{len(input), false},
	}

	for _, tc := range tests {
		if got := InCode(input, tc.offset); got != tc.want {
			t.Errorf("InCode(%q, %d) = %v, want %v", input, tc.offset, got, tc.want)
		}
	}
}

func TestCursorIn(t *testing.T) {
	tests := []struct {
		input  string
		cursor int
		want   bool
		kind   RunKind
	}{
		{"r.db('te", 8, true, RunString},
		{"r.db('te')", 9, true, RunString},
		{"r.db('te')", 10, false, 0},
		{"r.db('te')", 5, false, 0},
		{"x // hi", 7, true, RunComment},
		{"x /* hi */", 10, false, 0},
	}

	for _, tc := range tests {
		run, ok := CursorIn(tc.input, tc.cursor)
		if ok != tc.want {
			t.Errorf("CursorIn(%q, %d) ok = %v, want %v", tc.input, tc.cursor, ok, tc.want)
			continue
		}
		if ok && run.Kind != tc.kind {
			t.Errorf("CursorIn(%q, %d) kind = %v, want %v", tc.input, tc.cursor, run.Kind, tc.kind)
		}
	}
}

func TestCountNotClosed(t *testing.T) {
	tests := []struct {
		input string
		ch    byte
		want  int
	}{
		{"r.expr([1, (2", '(', 2},
		{"r.expr([1, (2", '[', 1},
		{"r.expr([1, (2", '{', 0},
		{"f())", '(', -1},
		{`"(" + (`, '(', 1},
		{"r.db('abc", '\'', -1},
		{"r.db('abc')", '\'', 0},
		{`r.db("a`, '"', -1},
		{"// (((", '(', 0},
	}

	for _, tc := range tests {
		counts := CountNotClosed(tc.input)
		if counts[tc.ch] != tc.want {
			t.Errorf("CountNotClosed(%q)[%q] = %d, want %d", tc.input, tc.ch, counts[tc.ch], tc.want)
		}
	}
}

func TestMatchClose(t *testing.T) {
	tests := []struct {
		input string
		open  int
		want  int
		found bool
	}{
		{"f(a, [b], ')')", 1, 13, true},
		{"{a: {b: 1}}", 0, 10, true},
		{"f(a]", 1, 4, false},
		{"f(a", 1, 3, false},
		{"f(a", 0, 3, false},
	}

	for _, tc := range tests {
		got, found := MatchClose(tc.input, tc.open)
		if got != tc.want || found != tc.found {
			t.Errorf("MatchClose(%q, %d) = %d, %v; want %d, %v", tc.input, tc.open, got, found, tc.want, tc.found)
		}
	}
}

func TestBracketStack(t *testing.T) {
	var b BracketStack
	b.Push('(', 0)
	b.Push('[', 3)

	if b.Close(')') {
		t.Error("Close(')') should not match '['")
	}
	if b.Len() != 2 {
		t.Errorf("Len() after mismatch = %d, want 2", b.Len())
	}
	if ch, off, ok := b.Top(); !ok || ch != '[' || off != 3 {
		t.Errorf("Top() = %q, %d, %v; want '[', 3, true", ch, off, ok)
	}
	if !b.Close(']') || !b.Close(')') {
		t.Fatal("expected both brackets to close")
	}
	if _, _, ok := b.Top(); ok {
		t.Error("stack should be empty")
	}
	if b.Close(')') {
		t.Error("Close on empty stack should fail")
	}
}

func TestCountNotClosedIgnoresQuotedBrackets(t *testing.T) {
	// Offsets point inside a string or a comment of each base.
	bases := []struct {
		text    string
		offsets []int
	}{
		{"r.expr('ab') // c", []int{8, 9, 16, 17}},
		{`r.db("x").table(/* t */ 'y')`, []int{6, 19, 20, 25}},
		{"f('abc", []int{3, 6}},
	}

	for _, base := range bases {
		want := CountNotClosed(base.text)
		for _, off := range base.offsets {
			for _, ch := range "()[]{}" {
				text := base.text[:off] + string(ch) + base.text[off:]
				got := CountNotClosed(text)
				for _, b := range []byte("([{") {
					if got[b] != want[b] {
						t.Errorf("CountNotClosed(%q)[%q] = %d, want %d", text, b, got[b], want[b])
					}
				}
			}
		}
	}
}
