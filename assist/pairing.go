package assist

import (
	"fmt"
	"unicode/utf8"

	"github.com/chazu/qconsole/query"
)

// ActionKind says what the assistant did with a keystroke.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionInsert
	ActionInsertPair
	ActionTypeOver
	ActionDelete
	ActionDeletePair
)

var actionNames = [...]string{"none", "insert", "insert_pair", "type_over", "delete", "delete_pair"}

func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// Action describes an edit. Offset is where it applies and Text is the
// text inserted, typed over or removed.
type Action struct {
	Kind   ActionKind
	Offset int
	Text   string
}

// Plan decides what typing ch at cursor should do, without editing. All
// bracket and quote counts come from the scanner, so brackets inside
// strings and comments never trigger pairing.
func Plan(text string, cursor int, ch rune) Action {
	insert := Action{Kind: ActionInsert, Offset: cursor, Text: string(ch)}
	if ch >= utf8.RuneSelf {
		return insert
	}
	c := byte(ch)

	if run, in := query.CursorIn(text, cursor); in {
		if run.Kind == query.RunString && c == run.Quote && run.Terminated && run.End == cursor+1 {
			return Action{Kind: ActionTypeOver, Offset: cursor, Text: string(ch)}
		}
		return insert
	}

	var next byte
	if cursor < len(text) {
		next = text[cursor]
	}
	counts := query.CountNotClosed(text)

	switch {
	case query.IsOpener(c) || query.IsQuote(c):
		if counts[c] >= 0 {
			return Action{Kind: ActionInsertPair, Offset: cursor, Text: string(c) + string(query.CloserOf(c))}
		}
	case query.IsCloser(c):
		if next == c && counts[query.OpenerOf(c)] <= 0 {
			return Action{Kind: ActionTypeOver, Offset: cursor, Text: string(ch)}
		}
	}
	return insert
}

// Assistant applies pairing decisions to a Buffer and remembers the pair
// it inserted last so a backspace can remove it whole.
type Assistant struct {
	// pairAt is the offset of the opener of the last self-inserted pair,
	// or -1.
	pairAt int
}

// NewAssistant creates an assistant with no pending pair.
func NewAssistant() *Assistant {
	return &Assistant{pairAt: -1}
}

// Insert types ch at the cursor of buf.
func (a *Assistant) Insert(buf Buffer, ch rune) Action {
	cursor := buf.CursorOffset()
	act := Plan(buf.Value(), cursor, ch)

	switch act.Kind {
	case ActionInsertPair:
		buf.ReplaceRange(cursor, cursor, act.Text)
		buf.SetCursorOffset(cursor + 1)
		a.pairAt = cursor
	case ActionTypeOver:
		buf.SetCursorOffset(cursor + 1)
		a.pairAt = -1
	default:
		buf.ReplaceRange(cursor, cursor, act.Text)
		buf.SetCursorOffset(cursor + len(act.Text))
		a.pairAt = -1
	}
	return act
}

// Backspace deletes the character before the cursor, or the whole pair
// when the cursor sits inside an empty pair this assistant inserted.
func (a *Assistant) Backspace(buf Buffer) Action {
	cursor := buf.CursorOffset()
	text := buf.Value()
	if cursor == 0 {
		a.pairAt = -1
		return Action{Kind: ActionNone, Offset: 0}
	}

	if a.pairAt >= 0 && cursor == a.pairAt+1 && cursor < len(text) &&
		query.CloserOf(text[a.pairAt]) == text[cursor] && text[cursor] != 0 {
		removed := text[a.pairAt : cursor+1]
		buf.ReplaceRange(a.pairAt, cursor+1, "")
		buf.SetCursorOffset(a.pairAt)
		act := Action{Kind: ActionDeletePair, Offset: a.pairAt, Text: removed}
		a.pairAt = -1
		return act
	}

	_, size := utf8.DecodeLastRuneInString(text[:cursor])
	removed := text[cursor-size : cursor]
	buf.ReplaceRange(cursor-size, cursor, "")
	buf.SetCursorOffset(cursor - size)
	a.pairAt = -1
	return Action{Kind: ActionDelete, Offset: cursor - size, Text: removed}
}

// Plan reports what Insert would do with ch at cursor, without editing.
func (a *Assistant) Plan(text string, cursor int, ch rune) Action {
	return Plan(text, cursor, ch)
}

// Forget drops the remembered pair, e.g. after the cursor moved.
func (a *Assistant) Forget() {
	a.pairAt = -1
}
