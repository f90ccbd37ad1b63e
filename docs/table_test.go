package docs

import (
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func defaultTable(t *testing.T) *Table {
	t.Helper()
	table := Build(Default())
	if n := len(table.Skipped()); n != 0 {
		t.Fatalf("default bundle has %d malformed entries: %v", n, table.Skipped())
	}
	return table
}

func TestBuildDisplayKeys(t *testing.T) {
	table := defaultTable(t)

	tests := []struct {
		key  string
		want bool
	}{
		{"table(", true},
		{"db(", true},
		{"row", true},
		{"row(", false},
		{"(", true},
		{"gt(", true},
		{"le(", true},
		{"table", false},
	}
	for _, tc := range tests {
		if got := table.Has(tc.key); got != tc.want {
			t.Errorf("Has(%q) = %v, want %v", tc.key, got, tc.want)
		}
	}

	for _, k := range table.Keys() {
		if k == BracketKey {
			t.Error("Keys() must not list the bracket key")
		}
	}
	if !sort.StringsAreSorted(table.Keys()) {
		t.Error("Keys() not sorted")
	}
}

func TestBuildDescription(t *testing.T) {
	table := defaultTable(t)
	d, ok := table.Description("table(")
	if !ok {
		t.Fatal("no description for table(")
	}
	if d.Name != "table" {
		t.Errorf("Name = %q, want table", d.Name)
	}
	if !strings.Contains(d.Signature, "r.table(name") {
		t.Errorf("Signature = %q", d.Signature)
	}
}

func TestBuildSuggestionMap(t *testing.T) {
	table := defaultTable(t)

	top := table.Suggestions(TagR)
	for _, want := range []string{"db(", "expr(", "row", "table("} {
		if !contains(top, want) {
			t.Errorf("Suggestions(r) missing %q", want)
		}
	}

	db := table.Suggestions("db")
	if !contains(db, "table(") || !contains(db, "tableList(") {
		t.Errorf("Suggestions(db) = %v", db)
	}
	if contains(db, "get(") {
		t.Error("Suggestions(db) should not offer get(")
	}

	// sequence expands to stream and table at build time.
	if !contains(table.Suggestions("stream"), "filter(") || !contains(table.Suggestions("table"), "filter(") {
		t.Error("filter( should be offered on streams and tables")
	}
	if contains(table.Suggestions("sequence"), "filter(") {
		t.Error("abstract tags must not be keys of the suggestion map")
	}

	for _, tag := range []string{TagR, "db", "table", "stream", "number", "string", TagGroupedStream} {
		list := table.Suggestions(tag)
		if !sort.StringsAreSorted(list) {
			t.Errorf("Suggestions(%q) not sorted", tag)
		}
		if contains(list, BracketKey) {
			t.Errorf("Suggestions(%q) lists the bracket key", tag)
		}
	}
}

func TestBuildStateMap(t *testing.T) {
	table := defaultTable(t)

	tests := []struct {
		key  string
		want []string
	}{
		{"table(", []string{"table"}},
		{"db(", []string{"db"}},
		{"count(", []string{TagGroupedData, "number"}},
		{"filter(", []string{"selection"}},
		{"nope(", nil},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, table.States(tc.key)); diff != "" {
			t.Errorf("States(%q) mismatch (-want +got):\n%s", tc.key, diff)
		}
	}

	if !contains(table.States(BracketKey), "number") {
		t.Error("bracket access on an object should yield value tags")
	}
}

func TestCallKey(t *testing.T) {
	table := defaultTable(t)

	tests := []struct {
		key  string
		want string
	}{
		{"table(", "table("},
		{"row", "row"},
		{"row(", BracketKey},
		{BracketKey, BracketKey},
		{"nope(", "nope("},
	}
	for _, tc := range tests {
		if got := table.CallKey(tc.key); got != tc.want {
			t.Errorf("CallKey(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestExpand(t *testing.T) {
	want := []string{"table", "selection", "stream", "array"}
	if diff := cmp.Diff(want, Expand("sequence")); diff != "" {
		t.Errorf("Expand(sequence) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"db"}, Expand("db")); diff != "" {
		t.Errorf("Expand(db) mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSkipsMalformed(t *testing.T) {
	entries := []Entry{
		{Signature: "nameless() → x"},
		{Name: "short", Signature: "short() → x", IO: [][]*string{{nil}}},
		{Name: "noout", Signature: "noout() → x", IO: [][]*string{{Tag("table"), nil}}},
		{Name: "good", Signature: "good() → number", IO: [][]*string{Pair("table", "number")}},
	}
	table := Build(entries)

	skipped := table.Skipped()
	if len(skipped) != 3 {
		t.Fatalf("Skipped() = %d entries, want 3", len(skipped))
	}
	if skipped[1].Index != 1 || skipped[1].Name != "short" {
		t.Errorf("skipped[1] = %+v", skipped[1])
	}
	if !strings.Contains(skipped[2].Error(), "noout") {
		t.Errorf("Error() = %q", skipped[2].Error())
	}
	if diff := cmp.Diff([]string{"good("}, table.Suggestions("table")); diff != "" {
		t.Errorf("Suggestions(table) mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildAliases(t *testing.T) {
	table := Build([]Entry{
		{Name: "foo", Aliases: []string{"bar"}, Signature: "foo() → number", IO: [][]*string{Pair("", "number")}},
	})
	if diff := cmp.Diff([]string{"bar(", "foo("}, table.Suggestions(TagR)); diff != "" {
		t.Errorf("Suggestions(r) mismatch (-want +got):\n%s", diff)
	}
	d, _ := table.Description("bar(")
	if d.Name != "foo" {
		t.Errorf("alias description Name = %q, want foo", d.Name)
	}
}

func TestClosest(t *testing.T) {
	table := defaultTable(t)

	tests := []struct {
		name string
		want string
	}{
		{"filtr", "filter"},
		{".filtr(", "filter"},
		{"mapp", "map"},
		{"tabel", "table"},
		{"tblCrt", "tableCreate"},
		{"zzzzzz", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := table.Closest(tc.name); got != tc.want {
			t.Errorf("Closest(%q) = %q, want %q", tc.name, got, tc.want)
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
