// Package manifest handles console.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/qconsole/catalog"
	"github.com/chazu/qconsole/query"
)

var log = commonlog.GetLogger("qconsole.manifest")

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "console.toml"

// DefaultRefresh is the catalog refresh interval when none is configured.
const DefaultRefresh = 5 * time.Second

// Manifest represents a console.toml configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Docs    DocsConfig    `toml:"docs"`
	Parser  ParserConfig  `toml:"parser"`
	Editor  EditorConfig  `toml:"editor"`
	Catalog CatalogConfig `toml:"catalog"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the console.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// DocsConfig selects the documentation bundle.
type DocsConfig struct {
	// Path is a .json or .cbor bundle, relative to Dir. Empty means the
	// embedded documentation.
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// ParserConfig holds the parse guards.
type ParserConfig struct {
	MaxStack       int `toml:"max-stack"`
	MaxQueryLength int `toml:"max-query-length"`
}

// EditorConfig configures the pairing assistant.
type EditorConfig struct {
	AutoPair bool `toml:"auto-pair"`
}

// CatalogConfig configures where database and table names come from.
type CatalogConfig struct {
	Refresh string              `toml:"refresh"`
	SQLite  string              `toml:"sqlite"`
	Query   string              `toml:"query"`
	Static  map[string][]string `toml:"static"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no console.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults(nil)
	return m
}

// Load parses a console.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration file at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log.Warningf("%s: unknown keys %v", path, undecoded)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	m.applyDefaults(&md)
	if _, err := m.RefreshInterval(); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) applyDefaults(md *toml.MetaData) {
	if m.Parser.MaxStack <= 0 {
		m.Parser.MaxStack = query.DefaultMaxStack
	}
	if m.Parser.MaxQueryLength <= 0 {
		m.Parser.MaxQueryLength = query.DefaultMaxLength
	}
	if md == nil || !md.IsDefined("editor", "auto-pair") {
		m.Editor.AutoPair = true
	}
	if m.Catalog.Refresh == "" {
		m.Catalog.Refresh = DefaultRefresh.String()
	}
	if m.Catalog.Query == "" {
		m.Catalog.Query = catalog.DefaultQuery
	}
}

// FindAndLoad walks up from startDir to find a console.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// CatalogSource returns the configured catalog source: the SQLite catalog
// when one is set, otherwise the static table map. The returned close
// function releases the database.
func (m *Manifest) CatalogSource() (catalog.Source, func() error, error) {
	path := m.SQLitePath()
	if path == "" {
		return catalog.StaticSource(m.Catalog.Static), func() error { return nil }, nil
	}
	db, err := catalog.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return &catalog.SQLSource{DB: db, Query: m.Catalog.Query}, db.Close, nil
}

// ParseOptions returns the parse guards.
func (m *Manifest) ParseOptions() query.Options {
	opts := query.DefaultOptions()
	opts.MaxStack = m.Parser.MaxStack
	opts.MaxLength = m.Parser.MaxQueryLength
	return opts
}

// RefreshInterval parses the catalog refresh interval.
func (m *Manifest) RefreshInterval() (time.Duration, error) {
	d, err := time.ParseDuration(m.Catalog.Refresh)
	if err != nil {
		return 0, fmt.Errorf("catalog refresh %q: %w", m.Catalog.Refresh, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("catalog refresh %q: must be positive", m.Catalog.Refresh)
	}
	return d, nil
}

// DocsPath returns the absolute documentation bundle path, or "" for the
// embedded documentation.
func (m *Manifest) DocsPath() string {
	return m.resolve(m.Docs.Path)
}

// SQLitePath returns the absolute catalog database path, or "".
func (m *Manifest) SQLitePath() string {
	return m.resolve(m.Catalog.SQLite)
}

// LogFile returns the absolute log file path, or "" for stderr.
func (m *Manifest) LogFile() string {
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || m.Dir == "" {
		return path
	}
	return filepath.Join(m.Dir, path)
}
