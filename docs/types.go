// Package docs holds the command metadata table: descriptions of every
// query command and the type maps used to chain suggestions.
package docs

import "fmt"

// Entry is one command as it appears in a documentation bundle.
type Entry struct {
	Name        string   `json:"name" cbor:"name"`
	Signature   string   `json:"signature" cbor:"signature"`
	Description string   `json:"description" cbor:"description"`
	Example     string   `json:"example,omitempty" cbor:"example,omitempty"`
	Aliases     []string `json:"aliases,omitempty" cbor:"aliases,omitempty"`

	// IO lists (input, output) type tag pairs. A nil input means the
	// command is called on the top-level namespace r.
	IO [][]*string `json:"io" cbor:"io"`
}

// Description is what the console shows for a call.
type Description struct {
	Name        string
	Signature   string
	Description string
	Example     string
}

// EntryError describes a bundle entry that was skipped while building a
// table.
type EntryError struct {
	Index  int
	Name   string
	Reason string
}

func (e *EntryError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("docs: entry %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("docs: entry %d (%s): %s", e.Index, e.Name, e.Reason)
}

// Tag returns a pointer to tag, for building IO pairs in code.
func Tag(tag string) *string {
	return &tag
}

// Pair builds one IO pair. An empty input means the top-level namespace.
func Pair(in, out string) []*string {
	if in == "" {
		return []*string{nil, Tag(out)}
	}
	return []*string{Tag(in), Tag(out)}
}
