// Package assist implements bracket and quote pairing for the query editor.
package assist

// Buffer is the editor surface the assistant acts on. Offsets are byte
// offsets into Value.
type Buffer interface {
	Value() string
	SetValue(text string)
	CursorOffset() int
	SetCursorOffset(offset int)
	TextBeforeCursor() string
	TextAfterCursor() string
	ReplaceRange(from, to int, text string)
}

// TextBuffer is an in-memory Buffer.
type TextBuffer struct {
	text   string
	cursor int
}

// NewTextBuffer creates a buffer holding text with the cursor at cursor.
func NewTextBuffer(text string, cursor int) *TextBuffer {
	b := &TextBuffer{text: text}
	b.SetCursorOffset(cursor)
	return b
}

func (b *TextBuffer) Value() string { return b.text }

// SetValue replaces the text, clamping the cursor.
func (b *TextBuffer) SetValue(text string) {
	b.text = text
	b.SetCursorOffset(b.cursor)
}

func (b *TextBuffer) CursorOffset() int { return b.cursor }

func (b *TextBuffer) SetCursorOffset(offset int) {
	b.cursor = clamp(offset, 0, len(b.text))
}

func (b *TextBuffer) TextBeforeCursor() string { return b.text[:b.cursor] }

func (b *TextBuffer) TextAfterCursor() string { return b.text[b.cursor:] }

// ReplaceRange replaces text[from:to]. A cursor after the range moves with
// the text that follows it; a cursor inside the range moves to its start.
func (b *TextBuffer) ReplaceRange(from, to int, text string) {
	from = clamp(from, 0, len(b.text))
	to = clamp(to, from, len(b.text))
	b.text = b.text[:from] + text + b.text[to:]
	switch {
	case b.cursor >= to:
		b.cursor += len(text) - (to - from)
	case b.cursor > from:
		b.cursor = from
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
