package docs

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("qconsole.docs")

// Tags with special handling.
const (
	// TagR is the input tag of commands called on the top-level namespace.
	TagR = "r"

	TagGroupedStream = "grouped_stream"
	TagGroupedData   = "grouped_data"

	// BracketKey documents field access written as x('field').
	BracketKey = "("
)

// expansions maps abstract tags to the concrete tags they stand for.
var expansions = map[string][]string{
	"value":    {"number", "bool", "string", "array", "object", "time", "binary", "line", "point", "polygon"},
	"sequence": {"table", "selection", "stream", "array"},
	"stream":   {"table", "selection", "stream"},
	"geometry": {"line", "point", "polygon"},
	"any": {
		"number", "bool", "string", "array", "object", "time", "binary", "line", "point", "polygon",
		"table", "selection", "stream", "singleSelection", "db",
	},
}

// Expand returns the concrete tags for tag.
func Expand(tag string) []string {
	if tags, ok := expansions[tag]; ok {
		return tags
	}
	return []string{tag}
}

// Table is the command metadata table. It is immutable once built and may
// be shared between sessions.
type Table struct {
	descriptions map[string]Description
	states       map[string][]string
	suggestions  map[string][]string
	keys         []string
	skipped      []*EntryError
}

// Build derives the description, state and suggestion maps from entries.
// Malformed entries are logged and skipped.
func Build(entries []Entry) *Table {
	t := &Table{
		descriptions: make(map[string]Description),
		states:       make(map[string][]string),
		suggestions:  make(map[string][]string),
	}
	states := make(map[string]map[string]bool)
	suggestions := make(map[string]map[string]bool)

	for i, e := range entries {
		if err := validate(i, e); err != nil {
			log.Warningf("skipping documentation entry: %s", err)
			t.skipped = append(t.skipped, err)
			continue
		}

		desc := Description{
			Name:        strings.TrimSpace(e.Name),
			Signature:   e.Signature,
			Description: e.Description,
			Example:     e.Example,
		}
		for _, key := range displayKeys(e) {
			t.descriptions[key] = desc
			if states[key] == nil {
				states[key] = make(map[string]bool)
			}
			for _, pair := range e.IO {
				in := TagR
				if pair[0] != nil {
					in = *pair[0]
				}
				for _, out := range Expand(*pair[1]) {
					states[key][out] = true
				}
				if key == BracketKey {
					continue
				}
				for _, tag := range Expand(in) {
					if suggestions[tag] == nil {
						suggestions[tag] = make(map[string]bool)
					}
					suggestions[tag][key] = true
				}
			}
		}
	}

	for key, set := range states {
		t.states[key] = sortedSet(set)
	}
	for tag, set := range suggestions {
		t.suggestions[tag] = sortedSet(set)
	}
	for key := range t.descriptions {
		if key != BracketKey {
			t.keys = append(t.keys, key)
		}
	}
	sort.Strings(t.keys)

	log.Debugf("built documentation table: %d keys, %d tags, %d skipped",
		len(t.keys), len(t.suggestions), len(t.skipped))
	return t
}

func validate(index int, e Entry) *EntryError {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return &EntryError{Index: index, Reason: "missing name"}
	}
	for n, pair := range e.IO {
		if len(pair) != 2 {
			return &EntryError{Index: index, Name: name, Reason: fmt.Sprintf("io pair %d does not have two tags", n)}
		}
		if pair[1] == nil || *pair[1] == "" {
			return &EntryError{Index: index, Name: name, Reason: fmt.Sprintf("io pair %d has no output tag", n)}
		}
	}
	return nil
}

// displayKeys returns the keys an entry is registered under: "table(" for
// calls, "row" for zero-argument field access, "(" for bracket access, and
// one key per alias or comma-separated name.
func displayKeys(e Entry) []string {
	var names []string
	for _, n := range strings.Split(e.Name, ",") {
		names = append(names, strings.TrimSpace(n))
	}
	names = append(names, e.Aliases...)

	field := !strings.Contains(e.Signature, "(")
	var keys []string
	for _, n := range names {
		var key string
		switch {
		case n == "":
			continue
		case n == "()":
			key = BracketKey
		case field:
			key = n
		default:
			key = n + "("
		}
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Description returns the documentation registered under key.
func (t *Table) Description(key string) (Description, bool) {
	d, ok := t.descriptions[key]
	return d, ok
}

// Has reports whether key is documented.
func (t *Table) Has(key string) bool {
	_, ok := t.descriptions[key]
	return ok
}

// CallKey maps the key of a parsed call onto the documented one. A call
// such as row('age') is keyed "row(", but row is documented only as the
// field key "row"; that call is a bracket field access and maps to
// BracketKey.
func (t *Table) CallKey(key string) string {
	if t.Has(key) {
		return key
	}
	if ident, call := strings.CutSuffix(key, "("); call && ident != "" && t.Has(ident) {
		return BracketKey
	}
	return key
}

// States returns the concrete output tags of the call registered under key.
func (t *Table) States(key string) []string {
	return slices.Clone(t.states[key])
}

// Suggestions returns the sorted keys of the calls accepting tag as input.
func (t *Table) Suggestions(tag string) []string {
	return slices.Clone(t.suggestions[tag])
}

// Expand returns the concrete tags for tag.
func (t *Table) Expand(tag string) []string {
	return slices.Clone(Expand(tag))
}

// Keys returns every suggestable key, sorted.
func (t *Table) Keys() []string {
	return slices.Clone(t.keys)
}

// Skipped returns the entries rejected while building the table.
func (t *Table) Skipped() []*EntryError {
	return t.skipped
}

// Closest returns the documented command name nearest to name, or "" when
// nothing is close. A small edit distance wins over a subsequence match.
func (t *Table) Closest(name string) string {
	name = strings.TrimSuffix(strings.TrimPrefix(name, "."), "(")
	if name == "" {
		return ""
	}
	idents := make([]string, 0, len(t.keys))
	for _, k := range t.keys {
		idents = append(idents, strings.TrimSuffix(k, "("))
	}

	best, bestDist := "", maxEditDistance+1
	lower := strings.ToLower(name)
	for _, ident := range idents {
		d := fuzzy.LevenshteinDistance(lower, strings.ToLower(ident))
		if d < bestDist || (d == bestDist && ident < best) {
			best, bestDist = ident, d
		}
	}
	if bestDist <= maxEditDistance {
		return best
	}

	ranks := fuzzy.RankFindFold(name, idents)
	if len(ranks) == 0 {
		return ""
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].Target < ranks[j].Target
	})
	return ranks[0].Target
}

const maxEditDistance = 2

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
