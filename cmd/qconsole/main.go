// qconsole - query console engine: LSP server, REPL and batch tools
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/qconsole/catalog"
	"github.com/chazu/qconsole/docs"
	"github.com/chazu/qconsole/manifest"

	_ "github.com/tliron/commonlog/simple"
)

var version = "0.1.0"

var log = commonlog.GetLogger("qconsole.cli")

// app holds the state shared by all subcommands.
type app struct {
	configPath string
	verbose    int
	manifest   *manifest.Manifest
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "qconsole",
		Short:         "Query console engine: completion, pairing and statement splitting",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to console.toml (default: search upwards from the working directory)")
	root.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "increase log verbosity")

	root.AddCommand(
		newLSPCommand(a),
		newREPLCommand(a),
		newSplitCommand(a),
		newCompleteCommand(a),
		newDocsCommand(a),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and configures logging.
func (a *app) setup() error {
	var (
		m   *manifest.Manifest
		err error
	)
	if a.configPath != "" {
		m, err = manifest.LoadFile(a.configPath)
	} else {
		var wd string
		if wd, err = os.Getwd(); err == nil {
			m, err = manifest.FindAndLoad(wd)
		}
	}
	if err != nil {
		return err
	}
	if m == nil {
		m = manifest.Default()
	}
	a.manifest = m

	verbosity := m.Log.Verbosity + a.verbose
	if file := m.LogFile(); file != "" {
		commonlog.Configure(verbosity, &file)
	} else {
		commonlog.Configure(verbosity, nil)
	}
	if m.Dir != "" {
		log.Debugf("loaded %s from %s", manifest.FileName, m.Dir)
	}
	return nil
}

// loadTable builds the documentation table from the configured bundle.
func (a *app) loadTable() (*docs.Table, error) {
	entries, err := docs.Load(a.manifest.DocsPath())
	if err != nil {
		return nil, err
	}
	table := docs.Build(entries)
	for _, skipped := range table.Skipped() {
		log.Warningf("documentation: %s", skipped)
	}
	return table, nil
}

// startCatalog starts polling the configured catalog source. The returned
// stop function also releases the source.
func (a *app) startCatalog(ctx context.Context) (func() *catalog.Snapshot, func(), error) {
	src, closeSrc, err := a.manifest.CatalogSource()
	if err != nil {
		return nil, nil, err
	}
	interval, err := a.manifest.RefreshInterval()
	if err != nil {
		closeSrc()
		return nil, nil, err
	}

	store := catalog.NewStore()
	stopPolling := store.Start(ctx, src, interval)
	stop := func() {
		stopPolling()
		if err := closeSrc(); err != nil {
			log.Warningf("closing catalog: %s", err)
		}
	}
	return store.Snapshot, stop, nil
}

// watchDocs reloads the documentation bundle on change when configured.
func (a *app) watchDocs(ctx context.Context, onChange func([]docs.Entry)) {
	path := a.manifest.DocsPath()
	if !a.manifest.Docs.Watch || path == "" {
		return
	}
	go func() {
		if err := docs.Watch(ctx, path, onChange); err != nil {
			log.Errorf("watching %s: %s", path, err)
		}
	}()
}
