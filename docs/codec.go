package docs

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	json "github.com/goccy/go-json"
)

// Format is the encoding of a documentation bundle.
type Format int

const (
	FormatJSON Format = iota
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatFor picks the bundle format from a file extension. Anything but
// .cbor is read as JSON.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return FormatCBOR
	}
	return FormatJSON
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("docs: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Decode parses a documentation bundle.
func Decode(data []byte, format Format) ([]Entry, error) {
	var entries []Entry
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("docs: decode json: %w", err)
		}
	case FormatCBOR:
		if err := cbor.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("docs: decode cbor: %w", err)
		}
	default:
		return nil, fmt.Errorf("docs: unknown format %s", format)
	}
	return entries, nil
}

// Encode serializes a documentation bundle. CBOR output is canonical, so
// identical bundles encode to identical bytes.
func Encode(entries []Entry, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(entries, "", "  ")
	case FormatCBOR:
		return cborEncMode.Marshal(entries)
	}
	return nil, fmt.Errorf("docs: unknown format %s", format)
}

// LoadFile reads a bundle, choosing the format from the file extension.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	entries, err := Decode(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Load returns the bundle at path, or the embedded default when path is
// empty.
func Load(path string) ([]Entry, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

//go:embed reql_docs.json
var defaultBundle []byte

var defaultEntries = sync.OnceValue(func() []Entry {
	entries, err := Decode(defaultBundle, FormatJSON)
	if err != nil {
		panic(fmt.Sprintf("docs: embedded bundle: %v", err))
	}
	return entries
})

// Default returns the embedded documentation bundle.
func Default() []Entry {
	entries := defaultEntries()
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
