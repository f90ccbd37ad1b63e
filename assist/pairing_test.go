package assist

import (
	"testing"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		cursor int
		ch     rune
		want   ActionKind
	}{
		{"open paren pairs", "r.db", 4, '(', ActionInsertPair},
		{"close paren types over", "r.db()", 5, ')', ActionTypeOver},
		{"close paren with nothing after", "f(", 2, ')', ActionInsert},
		{"close paren still needed", "f(()", 3, ')', ActionInsert},
		{"bracket inside string", "r.db('a')", 7, '(', ActionInsert},
		{"bracket inside comment", "x // (", 6, '(', ActionInsert},
		{"quote pairs in code", "r.db()", 5, '\'', ActionInsertPair},
		{"quote types over", "r.db('te')", 8, '\'', ActionTypeOver},
		{"quote with unterminated string after", "r.db( 'abc", 5, '\'', ActionInsert},
		{"overclosed parens do not pair", "f())", 0, '(', ActionInsert},
		{"brace pairs", "r.expr(", 7, '{', ActionInsertPair},
		{"plain character", "r", 1, '.', ActionInsert},
		{"non-ascii", "r", 1, 'é', ActionInsert},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Plan(tc.text, tc.cursor, tc.ch)
			if got.Kind != tc.want {
				t.Errorf("Plan(%q, %d, %q) = %v, want %v", tc.text, tc.cursor, tc.ch, got.Kind, tc.want)
			}
		})
	}
}

func TestAssistantPlanDoesNotEdit(t *testing.T) {
	buf := NewTextBuffer("r.db", 4)
	a := NewAssistant()

	act := a.Plan(buf.Value(), buf.CursorOffset(), '(')
	if act.Kind != ActionInsertPair || act.Offset != 4 || act.Text != "()" {
		t.Errorf("Plan = %+v, want insert_pair \"()\" at 4", act)
	}
	if buf.Value() != "r.db" {
		t.Errorf("buffer = %q, want it unchanged", buf.Value())
	}
}

func TestInsertPairAndTypeOver(t *testing.T) {
	buf := NewTextBuffer("r.db", 4)
	a := NewAssistant()

	act := a.Insert(buf, '(')
	if act.Kind != ActionInsertPair || act.Text != "()" {
		t.Fatalf("Insert('(') = %+v", act)
	}
	if buf.Value() != "r.db()" || buf.CursorOffset() != 5 {
		t.Fatalf("after '(': %q cursor %d, want \"r.db()\" cursor 5", buf.Value(), buf.CursorOffset())
	}

	a.Insert(buf, '\'')
	if buf.Value() != "r.db('')" || buf.CursorOffset() != 6 {
		t.Fatalf("after quote: %q cursor %d", buf.Value(), buf.CursorOffset())
	}

	for _, ch := range "test" {
		a.Insert(buf, ch)
	}
	if buf.TextBeforeCursor() != "r.db('test" || buf.TextAfterCursor() != "')" {
		t.Fatalf("after typing: %q | %q", buf.TextBeforeCursor(), buf.TextAfterCursor())
	}

	if act := a.Insert(buf, '\''); act.Kind != ActionTypeOver {
		t.Errorf("closing quote = %v, want type_over", act.Kind)
	}
	if act := a.Insert(buf, ')'); act.Kind != ActionTypeOver {
		t.Errorf("closing paren = %v, want type_over", act.Kind)
	}
	if buf.Value() != "r.db('test')" || buf.CursorOffset() != len("r.db('test')") {
		t.Errorf("final buffer %q cursor %d", buf.Value(), buf.CursorOffset())
	}
}

func TestBackspaceDeletesPair(t *testing.T) {
	buf := NewTextBuffer("r.db", 4)
	a := NewAssistant()
	a.Insert(buf, '(')

	act := a.Backspace(buf)
	if act.Kind != ActionDeletePair || act.Text != "()" || act.Offset != 4 {
		t.Errorf("Backspace = %+v, want delete_pair \"()\" at 4", act)
	}
	if buf.Value() != "r.db" || buf.CursorOffset() != 4 {
		t.Errorf("after backspace: %q cursor %d", buf.Value(), buf.CursorOffset())
	}
}

func TestBackspaceForeignPair(t *testing.T) {
	buf := NewTextBuffer("()", 1)
	a := NewAssistant()

	act := a.Backspace(buf)
	if act.Kind != ActionDelete || act.Text != "(" {
		t.Errorf("Backspace = %+v, want delete \"(\"", act)
	}
	if buf.Value() != ")" {
		t.Errorf("buffer = %q, want \")\"", buf.Value())
	}
}

func TestBackspaceAfterTyping(t *testing.T) {
	buf := NewTextBuffer("", 0)
	a := NewAssistant()
	a.Insert(buf, '[')
	a.Insert(buf, '1')

	act := a.Backspace(buf)
	if act.Kind != ActionDelete || buf.Value() != "[]" {
		t.Errorf("Backspace = %v, buffer %q; want delete and \"[]\"", act.Kind, buf.Value())
	}
}

func TestBackspaceMultiByte(t *testing.T) {
	buf := NewTextBuffer("é", len("é"))
	act := NewAssistant().Backspace(buf)
	if act.Text != "é" || buf.Value() != "" {
		t.Errorf("Backspace = %+v, buffer %q", act, buf.Value())
	}
}

func TestBackspaceAtStart(t *testing.T) {
	buf := NewTextBuffer("abc", 0)
	if act := NewAssistant().Backspace(buf); act.Kind != ActionNone {
		t.Errorf("Backspace at 0 = %v, want none", act.Kind)
	}
}

func TestTextBufferReplaceRange(t *testing.T) {
	buf := NewTextBuffer("hello world", 8)
	buf.ReplaceRange(0, 5, "hi")
	if buf.Value() != "hi world" || buf.CursorOffset() != 5 {
		t.Errorf("got %q cursor %d, want \"hi world\" cursor 5", buf.Value(), buf.CursorOffset())
	}

	buf.ReplaceRange(3, 8, "")
	if buf.Value() != "hi " || buf.CursorOffset() != 3 {
		t.Errorf("got %q cursor %d, want \"hi \" cursor 3", buf.Value(), buf.CursorOffset())
	}

	buf.SetValue("x")
	if buf.CursorOffset() != 1 {
		t.Errorf("cursor after SetValue = %d, want 1", buf.CursorOffset())
	}
}
