package suggest

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/chazu/qconsole/catalog"
	"github.com/chazu/qconsole/docs"
	"github.com/chazu/qconsole/query"
)

var testCatalog = catalog.NewSnapshot(map[string][]string{
	"test":   {"tv", "authors"},
	"heroes": {"marvel", "dc"},
})

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	table := docs.Build(docs.Default())
	return NewResolver(table, func() *catalog.Snapshot { return testCatalog })
}

func resolve(t *testing.T, r *Resolver, text string) Result {
	t.Helper()
	stack, err := query.ParseQuery(text, query.DefaultOptions())
	require.NoError(t, err, "ParseQuery(%q)", text)
	return r.Resolve(stack, text)
}

// ---------------------------------------------------------------------------
// Descriptions and argument completion
// ---------------------------------------------------------------------------

func TestResolveDescriptionInsideArguments(t *testing.T) {
	r := newResolver(t)
	res := resolve(t, r, "r.db('test').table(")

	require.NotNil(t, res.Description)
	require.Equal(t, "table", res.Description.Name)
	require.Equal(t, "table(", res.Call)
	require.Empty(t, res.Suggestions)

	require.NotNil(t, res.Argument)
	require.Equal(t, ArgumentTable, res.Argument.Kind)
	require.Equal(t, "test", res.Argument.Database)
	require.Equal(t, []string{"authors", "tv"}, res.Argument.Candidates)
}

func TestResolveDatabaseArgument(t *testing.T) {
	r := newResolver(t)

	res := resolve(t, r, "r.db(")
	require.Empty(t, res.Suggestions)
	require.NotNil(t, res.Argument)
	require.Equal(t, ArgumentDatabase, res.Argument.Kind)
	require.Equal(t, []string{"heroes", "test"}, res.Argument.Candidates)
	require.Equal(t, 5, res.Argument.Start)

	res = resolve(t, r, "r.db('he")
	require.Equal(t, "he", res.Argument.Prefix)
	require.Equal(t, 6, res.Argument.Start)
	require.Equal(t, []string{"heroes"}, res.Argument.Candidates)
}

func TestResolveTableWithoutDatabase(t *testing.T) {
	r := newResolver(t)
	res := resolve(t, r, "r.table('")
	require.NotNil(t, res.Argument)
	require.Equal(t, "", res.Argument.Database)
	require.Equal(t, []string{"authors", "dc", "marvel", "tv"}, res.Argument.Candidates)
}

func TestResolveArgumentWithoutCatalog(t *testing.T) {
	r := NewResolver(docs.Build(docs.Default()), nil)
	res := resolve(t, r, "r.db(")
	require.NotNil(t, res.Argument)
	require.Empty(t, res.Argument.Candidates)
}

func TestResolveNoArgumentCompletionAfterFirstArgument(t *testing.T) {
	r := newResolver(t)
	res := resolve(t, r, "r.db('test').table('tv', ")
	require.NotNil(t, res.Description)
	require.Nil(t, res.Argument)
}

func TestResolveCompleteArgumentDescribesCall(t *testing.T) {
	r := newResolver(t)
	res := resolve(t, r, "r.db('test').table('tv').filter(r.row('age')")
	require.NotNil(t, res.Description)
	require.Equal(t, "filter", res.Description.Name)
	require.Empty(t, res.Suggestions)
}

// ---------------------------------------------------------------------------
// Suggestions
// ---------------------------------------------------------------------------

func TestResolveFragment(t *testing.T) {
	r := newResolver(t)
	res := resolve(t, r, "r.db('test').ta")

	want := []string{"table(", "tableCreate(", "tableDrop(", "tableList("}
	if diff := cmp.Diff(want, res.Suggestions); diff != "" {
		t.Errorf("Suggestions mismatch (-want +got):\n%s", diff)
	}
	require.Nil(t, res.Description)
	require.Equal(t, "ta", res.Fragment)
	require.Equal(t, 13, res.FragmentStart)
}

func TestResolveAfterFieldAccessOnRow(t *testing.T) {
	r := newResolver(t)

	for _, text := range []string{
		"r.row('age').g",
		"r.table('users').filter(r.row('age').g",
	} {
		res := resolve(t, r, text)
		require.Contains(t, res.Suggestions, "gt(", "Resolve(%q)", text)
		require.Contains(t, res.Suggestions, "ge(", "Resolve(%q)", text)
		require.Equal(t, "g", res.Fragment)
	}
}

func TestResolveDescribesFieldAccessOnRow(t *testing.T) {
	r := newResolver(t)
	res := resolve(t, r, "r.row('ag")
	require.Equal(t, docs.BracketKey, res.Call)
	require.NotNil(t, res.Description)
	require.Nil(t, res.Argument)
}

func TestResolveFragmentIgnoresCase(t *testing.T) {
	r := newResolver(t)
	res := resolve(t, r, "r.db('test').TABLEL")
	require.Equal(t, []string{"tableList("}, res.Suggestions)
}

func TestResolveTopLevel(t *testing.T) {
	r := newResolver(t)
	res := resolve(t, r, "r.")
	require.Contains(t, res.Suggestions, "db(")
	require.Contains(t, res.Suggestions, "row")
	require.NotContains(t, res.Suggestions, "get(")
	require.Equal(t, 2, res.FragmentStart)
}

func TestResolveGroupedSuppression(t *testing.T) {
	r := newResolver(t)

	tests := []struct {
		text    string
		ungroup bool
	}{
		{"r.table('a').group('x').", true},
		{"r.table('a').group('x').count().", true},
		{"r.table('a').count().", false},
		{"r.table('a').group('x').ungroup().count().", false},
	}
	for _, tc := range tests {
		res := resolve(t, r, tc.text)
		got := contains(res.Suggestions, "ungroup(")
		if got != tc.ungroup {
			t.Errorf("resolve(%q): ungroup( offered = %v, want %v", tc.text, got, tc.ungroup)
		}
	}

	res := resolve(t, r, "r.table('a').count().")
	require.Contains(t, res.Suggestions, "add(")
}

func TestResolveContextNames(t *testing.T) {
	r := newResolver(t)
	res := resolve(t, r, "r.table('a').filter(function(doc) { return do")
	require.Equal(t, []string{"doc"}, res.Suggestions)

	res = resolve(t, r, "r.table('a').filter(doc => doc('age').g")
	require.Contains(t, res.Suggestions, "gt(")
	require.Contains(t, res.Suggestions, "ge(")
}

func TestResolveInsideObject(t *testing.T) {
	r := newResolver(t)
	res := resolve(t, r, "r.table('a').insert({name: r.")
	require.Contains(t, res.Suggestions, "now(")

	res = resolve(t, r, "r.expr({na")
	require.Empty(t, res.Suggestions)
	require.Nil(t, res.Description)
}

func TestResolveCompleteTopLevel(t *testing.T) {
	r := newResolver(t)
	for _, text := range []string{"r.db('a').table('b')", "r.db('a').table('b') ", ""} {
		res := resolve(t, r, text)
		if len(res.Suggestions) != 0 || res.Description != nil {
			t.Errorf("resolve(%q) = %+v, want nothing", text, res)
		}
	}
}

func TestResolveIdempotentSorted(t *testing.T) {
	r := newResolver(t)
	for _, text := range []string{"r.", "r.table('a').", "r.expr(1).", "r.table('a').filter(doc => doc('x')."} {
		first := resolve(t, r, text)
		second := resolve(t, r, text)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("resolve(%q) not idempotent (-first +second):\n%s", text, diff)
		}
		if !sort.StringsAreSorted(first.Suggestions) {
			t.Errorf("resolve(%q) suggestions not sorted", text)
		}
		seen := map[string]bool{}
		for _, s := range first.Suggestions {
			if seen[s] {
				t.Errorf("resolve(%q): duplicate %q", text, s)
			}
			seen[s] = true
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
