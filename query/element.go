package query

import (
	"fmt"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Elements: nodes of the partial parse stack
// ---------------------------------------------------------------------------

// Kind identifies what an Element represents.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindVar
	KindFunction
	KindAnonymousFunction
	KindLoop
	KindReturn
	KindObject
	KindObjectKey
	KindArray
	KindArrayEntry
	KindSeparator
)

var kindNames = map[Kind]string{
	KindString:            "string",
	KindNumber:            "number",
	KindVar:               "var",
	KindFunction:          "function",
	KindAnonymousFunction: "anonymous_function",
	KindLoop:              "loop",
	KindReturn:            "return",
	KindObject:            "object",
	KindObjectKey:         "object_key",
	KindArray:             "array",
	KindArrayEntry:        "array_entry",
	KindSeparator:         "separator",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Element is one node of a parse stack. Compound kinds keep their children
// in Body: call arguments, function and loop bodies, object keys (whose own
// Body is the parsed value) and array entries.
type Element struct {
	Kind     Kind
	Context  Context
	Complete bool

	// Name is the raw source text of the element head. For calls it runs up
	// to and including the open paren, e.g. ".table(".
	Name string

	// Position is the absolute offset of the first significant character.
	Position int

	// Start and End delimit the full source span. Start includes any
	// whitespace or comments absorbed before the element.
	Start int
	End   int

	Body []*Element

	// Object keys only.
	Key         string
	KeyComplete bool

	// Vars only: the type tag bound to the identifier.
	Type string
}

// ArgsOpened reports whether a call element has reached its argument list.
func (e *Element) ArgsOpened() bool {
	return e.Kind == KindFunction && strings.HasSuffix(e.Name, "(")
}

// Ident returns the identifier part of a call or var name, without the
// leading dot, surrounding whitespace or the open paren.
func (e *Element) Ident() string {
	s := strings.TrimSpace(e.Name)
	s = strings.TrimSuffix(s, "(")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, ".")
	return strings.TrimSpace(s)
}

// Dotted reports whether the element was written as a chained continuation.
func (e *Element) Dotted() bool {
	return strings.HasPrefix(strings.TrimSpace(e.Name), ".")
}

// CallKey returns the key under which a call is documented: "table(" for
// ".table(", "row" for a field access, "(" for a bracket call such as
// doc('field') or ('field') on a previous call.
func (e *Element) CallKey() string {
	if e.Kind != KindFunction {
		return ""
	}
	ident := e.Ident()
	if !e.ArgsOpened() {
		return ident
	}
	if ident == "" {
		return "("
	}
	if t, bound := e.Context[ident]; bound && !e.Dotted() && t != "r" {
		return "("
	}
	return ident + "("
}

// Source returns the text covered by the element span.
func (e *Element) Source(text string, base int) string {
	start, end := e.Start-base, e.End-base
	if start < 0 || end > len(text) || start > end {
		return ""
	}
	return text[start:end]
}

// Last returns the final element of a stack, or nil.
func Last(stack []*Element) *Element {
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// Dump renders a stack as an indented tree, one element per line.
func Dump(stack []*Element) string {
	var b strings.Builder
	dump(&b, stack, 0)
	return b.String()
}

func dump(b *strings.Builder, stack []*Element, depth int) {
	for _, e := range stack {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(b, "%s %q", e.Kind, strings.TrimSpace(e.Name))
		if e.Kind == KindObjectKey {
			fmt.Fprintf(b, " key=%q", e.Key)
		}
		if e.Kind == KindVar && e.Type != "" {
			fmt.Fprintf(b, " type=%s", e.Type)
		}
		if !e.Complete {
			b.WriteString(" (incomplete)")
		}
		fmt.Fprintf(b, " @%d\n", e.Position)
		dump(b, e.Body, depth+1)
	}
}

// ---------------------------------------------------------------------------
// Context: names bound in a lexical scope
// ---------------------------------------------------------------------------

// Context maps bound identifiers to their type tag. A Context is never
// mutated once handed to an element; With returns an extended copy.
type Context map[string]string

// TypeValue is the tag bound to anonymous function parameters.
const TypeValue = "value"

// RootContext is the scope every query starts in.
func RootContext() Context {
	return Context{"r": "r"}
}

// With returns a copy of c with names bound to the generic value type.
func (c Context) With(names ...string) Context {
	out := make(Context, len(c)+len(names))
	for k, v := range c {
		out[k] = v
	}
	for _, n := range names {
		if n != "" {
			out[n] = TypeValue
		}
	}
	return out
}

// Has reports whether name is bound.
func (c Context) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Names returns the bound names, sorted.
func (c Context) Names() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
