package console

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/qconsole/assist"
	"github.com/chazu/qconsole/catalog"
	"github.com/chazu/qconsole/docs"
	"github.com/chazu/qconsole/query"
	"github.com/chazu/qconsole/suggest"
)

func newTestSession(opts ...Option) *Session {
	snap := catalog.NewSnapshot(map[string][]string{"test": {"tv"}})
	opts = append([]Option{WithCatalog(func() *catalog.Snapshot { return snap })}, opts...)
	return NewSession(assist.NewTextBuffer("", 0), opts...)
}

func typeText(s *Session, text string) Outcome {
	var out Outcome
	for _, ch := range text {
		out = s.OnKeystroke(Event{Kind: EventInsert, Char: ch})
	}
	return out
}

func TestSessionTypingPairsAndDescribes(t *testing.T) {
	s := newTestSession()
	require.NotEmpty(t, s.ID)

	out := typeText(s, "r.db(")
	require.Equal(t, assist.ActionInsertPair, out.Action.Kind)
	require.NoError(t, out.Err)
	require.Equal(t, "r.db()", s.Buffer().Value())
	require.Equal(t, 5, s.Buffer().CursorOffset())

	require.NotNil(t, out.Result.Description)
	require.Equal(t, "db", out.Result.Description.Name)
	require.NotNil(t, out.Result.Argument)
	require.Equal(t, suggest.ArgumentDatabase, out.Result.Argument.Kind)
	require.Equal(t, []string{"test"}, out.Result.Argument.Candidates)
}

func TestSessionFragmentSuggestions(t *testing.T) {
	s := newTestSession()
	out := typeText(s, "r.ta")
	require.Contains(t, out.Result.Suggestions, "table(")
	require.Equal(t, "ta", out.Result.Fragment)

	res := s.Complete()
	require.Equal(t, out.Result.Suggestions, res.Suggestions)
}

func TestSessionBackspaceAndMove(t *testing.T) {
	s := newTestSession()
	typeText(s, "r.expr(")

	out := s.OnKeystroke(Event{Kind: EventBackspace})
	require.Equal(t, assist.ActionDeletePair, out.Action.Kind)
	require.Equal(t, "r.expr", s.Buffer().Value())

	out = s.OnKeystroke(Event{Kind: EventMove, Offset: 2})
	require.Equal(t, assist.ActionNone, out.Action.Kind)
	require.Equal(t, "r.", s.Buffer().TextBeforeCursor())
	require.Contains(t, out.Result.Suggestions, "expr(")
}

func TestSessionWithoutAutoPair(t *testing.T) {
	s := newTestSession(WithAutoPair(false))
	out := typeText(s, "r.db(")
	require.Equal(t, assist.ActionInsert, out.Action.Kind)
	require.Equal(t, "r.db(", s.Buffer().Value())
}

func TestSessionParseAbort(t *testing.T) {
	s := newTestSession(WithParseOptions(query.Options{MaxStack: 100, MaxLength: 4}))
	out := typeText(s, "r.db")
	require.NoError(t, out.Err)

	out = typeText(s, ".")
	require.True(t, errors.Is(out.Err, query.ErrQueryTooLong))
	require.Empty(t, out.Result.Suggestions)
	require.Nil(t, out.Result.Description)
}

func TestSessionSetDocs(t *testing.T) {
	s := newTestSession()
	s.SetDocs([]docs.Entry{
		{Name: "hello", Signature: "r.hello()", Description: "Says hello.", IO: [][]*string{docs.Pair("", "string")}},
	})

	out := typeText(s, "r.he")
	require.Equal(t, []string{"hello("}, out.Result.Suggestions)
	require.True(t, s.Table().Has("hello("))
}

func TestSessionReset(t *testing.T) {
	s := newTestSession()
	typeText(s, "r.db(")
	s.Reset("r.table('a').co", 15)

	res := s.Complete()
	require.Contains(t, res.Suggestions, "count(")
	require.Contains(t, res.Suggestions, "concatMap(")
}

func TestSessionResolvesCurrentStatementOnly(t *testing.T) {
	s := newTestSession(WithParseOptions(query.Options{MaxStack: 100, MaxLength: 40}))
	text := "r.table('tv').count(); r.table('tv').map(doc => doc('a')); r.db('test').ta"
	s.Reset(text, len(text))

	res := s.Complete()
	require.Contains(t, res.Suggestions, "table(")
	require.Equal(t, len(text)-2, res.FragmentStart)
}
