// Package suggest turns a parse stack into completion candidates or the
// description of the call under the cursor.
package suggest

import (
	"sort"
	"strings"
	"unicode"

	"github.com/tliron/commonlog"

	"github.com/chazu/qconsole/catalog"
	"github.com/chazu/qconsole/docs"
	"github.com/chazu/qconsole/query"
)

var log = commonlog.GetLogger("qconsole.suggest")

// status drives the backward walk over the stack.
type status int

const (
	statusNone status = iota
	statusDone
	statusLookForDescription
	statusLookForState
	statusBreakAndLookForDescription
)

func (s status) String() string {
	switch s {
	case statusNone:
		return "none"
	case statusDone:
		return "done"
	case statusLookForDescription:
		return "look_for_description"
	case statusLookForState:
		return "look_for_state"
	case statusBreakAndLookForDescription:
		return "break_and_look_for_description"
	}
	return "unknown"
}

// ArgumentKind says which catalog names complete an argument.
type ArgumentKind int

const (
	ArgumentDatabase ArgumentKind = iota + 1
	ArgumentTable
)

func (k ArgumentKind) String() string {
	switch k {
	case ArgumentDatabase:
		return "database"
	case ArgumentTable:
		return "table"
	}
	return "unknown"
}

// ArgumentCompletion describes completion of a db(...) or table(...)
// argument.
type ArgumentCompletion struct {
	Kind ArgumentKind

	// Database is the db('...') a table( call is chained on, if known.
	Database string

	// Prefix is the argument text typed so far, without the quote, and
	// Start its absolute offset.
	Prefix string
	Start  int

	Candidates []string
}

// Result is the outcome of one resolution. At most one of Suggestions and
// Description is set, except that Argument accompanies a Description.
type Result struct {
	Suggestions []string
	Description *docs.Description

	// Call is the documentation key of the described call.
	Call string

	// Fragment is the identifier being typed and FragmentStart its absolute
	// offset; suggestions replace it.
	Fragment      string
	FragmentStart int

	Argument *ArgumentCompletion
}

// Resolver resolves parse stacks against a documentation table and the
// latest catalog snapshot.
type Resolver struct {
	table    *docs.Table
	snapshot func() *catalog.Snapshot
}

// NewResolver creates a resolver. snap may be nil when no catalog is
// configured.
func NewResolver(t *docs.Table, snap func() *catalog.Snapshot) *Resolver {
	return &Resolver{table: t, snapshot: snap}
}

// Resolve inspects stack, parsed from text (the buffer up to the cursor),
// from its last element backwards.
func (r *Resolver) Resolve(stack []*query.Element, text string) Result {
	res := Result{Suggestions: []string{}}
	st := r.walk(stack, text, &res)
	log.Debugf("resolved %q: status=%s suggestions=%d call=%q", text, st, len(res.Suggestions), res.Call)
	return res
}

func (r *Resolver) walk(stack []*query.Element, text string, res *Result) status {
	if len(stack) == 0 {
		return statusNone
	}
	i := len(stack) - 1
	e := stack[i]

	if e.Complete {
		if endsInSpace(text) {
			return statusBreakAndLookForDescription
		}
		return statusLookForDescription
	}

	switch e.Kind {
	case query.KindFunction:
		if !e.ArgsOpened() {
			r.lookForState(stack, i, res)
			return statusDone
		}
		if r.walk(e.Body, text, res) == statusDone {
			return statusDone
		}
		r.describe(stack, i, res)
		return statusDone

	case query.KindString:
		return statusLookForDescription

	case query.KindAnonymousFunction, query.KindLoop:
		switch r.walk(e.Body, text, res) {
		case statusDone, statusLookForDescription:
			return statusDone
		}
		return statusLookForDescription

	case query.KindObjectKey:
		if !e.KeyComplete {
			return statusDone
		}
		if st := r.walk(e.Body, text, res); st != statusNone {
			return st
		}
		return statusLookForDescription

	case query.KindObject, query.KindArray, query.KindArrayEntry:
		if st := r.walk(e.Body, text, res); st != statusNone {
			return st
		}
		return statusLookForDescription
	}
	return statusDone
}

// lookForState suggests continuations for the fragment at stack[i].
func (r *Resolver) lookForState(stack []*query.Element, i int, res *Result) {
	e := stack[i]
	res.Fragment = e.Ident()
	res.FragmentStart = fragmentStart(e)

	var candidates []string
	if e.Dotted() {
		grouped := groupDepth(stack, i) > 0
		for _, tag := range r.previousState(stack, i) {
			if !grouped && (tag == docs.TagGroupedStream || tag == docs.TagGroupedData) {
				continue
			}
			candidates = append(candidates, r.table.Suggestions(tag)...)
		}
	} else {
		candidates = e.Context.Names()
	}
	res.Suggestions = filterPrefix(candidates, res.Fragment)
}

// previousState returns the output tags of the element a dotted fragment
// is chained on.
func (r *Resolver) previousState(stack []*query.Element, i int) []string {
	if i == 0 {
		return nil
	}
	prev := stack[i-1]
	switch prev.Kind {
	case query.KindVar:
		if prev.Type == "" {
			return nil
		}
		return r.table.Expand(prev.Type)
	case query.KindFunction:
		return r.table.States(r.table.CallKey(prev.CallKey()))
	case query.KindString:
		return []string{"string"}
	case query.KindNumber:
		return []string{"number"}
	case query.KindArray:
		return []string{"array"}
	case query.KindObject:
		return []string{"object"}
	}
	return nil
}

// groupDepth counts group( minus ungroup( calls in the chain before i.
func groupDepth(stack []*query.Element, i int) int {
	depth := 0
	for j := i - 1; j >= 0; j-- {
		e := stack[j]
		if e.Kind == query.KindSeparator || e.Kind == query.KindReturn {
			break
		}
		if e.Kind != query.KindFunction {
			continue
		}
		switch e.CallKey() {
		case "group(":
			depth++
		case "ungroup(":
			depth--
		}
	}
	return depth
}

// describe records the description of the call at stack[i] and, for db(
// and table(, the argument completion.
func (r *Resolver) describe(stack []*query.Element, i int, res *Result) {
	e := stack[i]
	key := r.table.CallKey(e.CallKey())
	res.Call = key
	if d, ok := r.table.Description(key); ok {
		res.Description = &d
	}
	res.Argument = r.argument(stack, i)
}

func (r *Resolver) argument(stack []*query.Element, i int) *ArgumentCompletion {
	e := stack[i]
	var kind ArgumentKind
	switch e.CallKey() {
	case "db(":
		kind = ArgumentDatabase
	case "table(":
		kind = ArgumentTable
	default:
		return nil
	}

	arg := &ArgumentCompletion{Kind: kind, Start: e.Position + len(e.Name)}
	switch len(e.Body) {
	case 0:
	case 1:
		s := e.Body[0]
		if s.Kind != query.KindString || s.Complete {
			return nil
		}
		arg.Prefix = s.Name[1:]
		arg.Start = s.Position + 1
	default:
		return nil
	}

	var snap *catalog.Snapshot
	if r.snapshot != nil {
		snap = r.snapshot()
	}
	var names []string
	switch kind {
	case ArgumentDatabase:
		names = snap.DatabaseNames()
	case ArgumentTable:
		arg.Database = databaseOf(stack, i)
		names = snap.TablesOf(arg.Database)
	}
	arg.Candidates = filterPrefix(names, arg.Prefix)
	return arg
}

// databaseOf returns the name passed to a db('...') call directly before
// stack[i], or "".
func databaseOf(stack []*query.Element, i int) string {
	if i == 0 {
		return ""
	}
	prev := stack[i-1]
	if prev.Kind != query.KindFunction || prev.CallKey() != "db(" || !prev.Complete || len(prev.Body) != 1 {
		return ""
	}
	arg := prev.Body[0]
	if arg.Kind != query.KindString || !arg.Complete || len(arg.Name) < 2 {
		return ""
	}
	return arg.Name[1 : len(arg.Name)-1]
}

func fragmentStart(e *query.Element) int {
	ident := e.Ident()
	if ident == "" {
		return e.Position + len(e.Name)
	}
	return e.Position + strings.LastIndex(e.Name, ident)
}

// filterPrefix keeps the candidates starting with prefix, ignoring case,
// sorted and without duplicates.
func filterPrefix(candidates []string, prefix string) []string {
	lower := strings.ToLower(prefix)
	seen := make(map[string]bool, len(candidates))
	out := []string{}
	for _, c := range candidates {
		if seen[c] || !strings.HasPrefix(strings.ToLower(c), lower) {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func endsInSpace(text string) bool {
	if text == "" {
		return false
	}
	return unicode.IsSpace(rune(text[len(text)-1]))
}
