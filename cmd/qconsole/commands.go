package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/chazu/qconsole/assist"
	"github.com/chazu/qconsole/console"
	"github.com/chazu/qconsole/docs"
	"github.com/chazu/qconsole/query"
	"github.com/chazu/qconsole/server"
	"github.com/chazu/qconsole/suggest"
)

// -----------------------------------------------------------------------------
// lsp
// -----------------------------------------------------------------------------

func newLSPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Run the language server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			table, err := a.loadTable()
			if err != nil {
				return err
			}
			snapshot, stopCatalog, err := a.startCatalog(ctx)
			if err != nil {
				return err
			}
			defer stopCatalog()

			cfg := server.DefaultConfig()
			cfg.Table = table
			cfg.Catalog = snapshot
			cfg.Parse = a.manifest.ParseOptions()
			cfg.AutoPair = a.manifest.Editor.AutoPair
			cfg.Version = version

			lsp := server.NewLSP(cfg)
			defer lsp.Stop()

			a.watchDocs(ctx, func(entries []docs.Entry) {
				if err := lsp.SetDocs(entries); err != nil {
					log.Warningf("reloading documentation: %s", err)
				}
			})
			return lsp.Run()
		},
	}
}

// -----------------------------------------------------------------------------
// split
// -----------------------------------------------------------------------------

func newSplitCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "split FILE",
		Short: "Print the statements of a query file (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return printStatements(cmd.OutOrStdout(), text)
		},
	}
}

func readInput(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	return string(data), nil
}

func printStatements(w io.Writer, text string) error {
	stmts, err := console.SplitStatements(text)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		fmt.Fprintf(w, "%d:%d\t%s\n", stmt.Line, stmt.Column, strings.ReplaceAll(stmt.Text, "\n", " "))
	}
	return nil
}

// -----------------------------------------------------------------------------
// complete
// -----------------------------------------------------------------------------

func newCompleteCommand(a *app) *cobra.Command {
	var (
		asJSON bool
		dump   bool
	)
	cmd := &cobra.Command{
		Use:   "complete TEXT",
		Short: "Print suggestions or the description for the end of TEXT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.loadTable()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			snapshot, stopCatalog, err := a.startCatalog(ctx)
			if err != nil {
				return err
			}
			defer stopCatalog()

			text := args[0]
			out := cmd.OutOrStdout()
			if dump {
				stack, err := query.ParseQuery(text, a.manifest.ParseOptions())
				if err != nil {
					return err
				}
				fmt.Fprint(out, query.Dump(stack))
				return nil
			}

			session := console.NewSession(assist.NewTextBuffer(text, len(text)),
				console.WithTable(table),
				console.WithCatalog(snapshot),
				console.WithParseOptions(a.manifest.ParseOptions()),
			)
			res := session.Complete()
			if asJSON {
				data, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			printResult(out, res, terminalWidth())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&dump, "dump", false, "print the parse stack instead of suggestions")
	return cmd
}

func printResult(w io.Writer, res suggest.Result, width int) {
	switch {
	case res.Argument != nil:
		printColumns(w, res.Argument.Candidates, width)
	case len(res.Suggestions) > 0:
		printColumns(w, res.Suggestions, width)
	case res.Description != nil:
		printDescription(w, *res.Description, width)
	}
}

// -----------------------------------------------------------------------------
// docs
// -----------------------------------------------------------------------------

func newDocsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Documentation bundle tools",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pack IN OUT",
		Short: "Convert a documentation bundle (format from the file extension)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := docs.LoadFile(args[0])
			if err != nil {
				return err
			}
			format := docs.FormatFor(args[1])
			data, err := docs.Encode(entries, format)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], data, 0644); err != nil {
				return fmt.Errorf("cannot write %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d entries to %s (%s)\n", len(entries), args[1], format)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check [FILE]",
		Short: "Report documentation entries that would be skipped",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.manifest.DocsPath()
			if len(args) == 1 {
				path = args[0]
			}
			entries, err := docs.Load(path)
			if err != nil {
				return err
			}
			table := docs.Build(entries)
			out := cmd.OutOrStdout()
			for _, skipped := range table.Skipped() {
				fmt.Fprintln(out, skipped)
			}
			fmt.Fprintf(out, "%d entries, %d commands, %d skipped\n", len(entries), len(table.Keys()), len(table.Skipped()))
			if len(table.Skipped()) > 0 {
				return errors.New("documentation has malformed entries")
			}
			return nil
		},
	})

	return cmd
}
