package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chazu/qconsole/assist"
	"github.com/chazu/qconsole/console"
	"github.com/chazu/qconsole/docs"
	"github.com/chazu/qconsole/query"
)

const (
	promptMain = "qc> "
	promptCont = "... "
)

func newREPLCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive console with tab completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
}

// repl is one interactive console. Its session serves both TAB completion
// and :doc lookups.
type repl struct {
	session *console.Session
	out     io.Writer
	width   int
	last    string
}

func runREPL(ctx context.Context, a *app, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
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

	r := &repl{
		session: console.NewSession(assist.NewTextBuffer("", 0),
			console.WithTable(table),
			console.WithCatalog(snapshot),
			console.WithParseOptions(a.manifest.ParseOptions()),
			console.WithAutoPair(false),
		),
		out:   out,
		width: terminalWidth(),
	}
	a.watchDocs(ctx, func(entries []docs.Entry) {
		r.session.SetDocs(entries)
	})

	fmt.Fprintln(out, "qconsole REPL (TAB completes, :help for commands)")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetTabCompletionStyle(liner.TabPrints)
	ln.SetWordCompleter(r.complete)

	for {
		input, ok := readStatement(ln)
		if !ok {
			fmt.Fprintln(out)
			return nil
		}
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		// in-memory only; history is not written to disk
		ln.AppendHistory(strings.ReplaceAll(input, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if r.command(trimmed) {
				return nil
			}
			continue
		}
		r.last = input
		r.explain(ctx, input)
	}
}

// readStatement reads lines until every bracket and string is closed.
func readStatement(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) && b.Len() > 0 {
			// Ctrl-C drops the pending statement only
			return "", true
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, liner.ErrPromptAborted) {
				log.Errorf("reading input: %s", err)
			}
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if !incomplete(b.String()) {
			return b.String(), true
		}
	}
}

// incomplete reports whether text still has an open bracket or string.
func incomplete(text string) bool {
	if strings.HasPrefix(strings.TrimSpace(text), ":") {
		return false
	}
	counts := query.CountNotClosed(text)
	for _, ch := range []byte("([{") {
		if counts[ch] > 0 {
			return true
		}
	}
	return counts['\''] < 0 || counts['"'] < 0
}

// complete is the liner word completer. pos counts runes.
func (r *repl) complete(line string, pos int) (head string, completions []string, tail string) {
	runes := []rune(line)
	if pos > len(runes) {
		pos = len(runes)
	}
	offset := len(string(runes[:pos]))

	r.session.Reset(line, offset)
	res := r.session.Complete()

	switch {
	case res.Argument != nil && len(res.Argument.Candidates) > 0:
		start := res.Argument.Start
		quote := ""
		if start == 0 || !query.IsQuote(line[start-1]) {
			quote = "'"
		}
		for _, name := range res.Argument.Candidates {
			completions = append(completions, quote+name)
		}
		return line[:start], completions, line[offset:]
	case len(res.Suggestions) > 0:
		return line[:res.FragmentStart], res.Suggestions, line[offset:]
	}
	return line[:offset], nil, line[offset:]
}

// command runs a :command and reports whether the REPL should exit.
func (r *repl) command(input string) bool {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :doc NAME         Show the documentation of a command")
		fmt.Fprintln(r.out, "  :split [TEXT]     Split TEXT (default: the last input) into statements")
		fmt.Fprintln(r.out, "  :complete TEXT    Show suggestions for the end of TEXT")
		fmt.Fprintln(r.out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(r.out, "  :quit, :q         Exit REPL")
	case ":doc":
		r.doc(arg)
	case ":split":
		text := arg
		if text == "" {
			text = r.last
		}
		if err := printStatements(r.out, text); err != nil {
			fmt.Fprintln(r.out, err)
		}
	case ":complete":
		r.session.Reset(arg, len(arg))
		printResult(r.out, r.session.Complete(), r.width)
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type :help for commands)\n", name)
	}
	return false
}

func (r *repl) doc(name string) {
	name = strings.TrimSuffix(strings.TrimPrefix(name, "."), "(")
	if name == "" {
		fmt.Fprintln(r.out, "usage: :doc NAME")
		return
	}
	table := r.session.Table()
	for _, key := range []string{name + "(", name} {
		if d, ok := table.Description(key); ok {
			printDescription(r.out, d, r.width)
			return
		}
	}
	if near := table.Closest(name); near != "" {
		fmt.Fprintf(r.out, "unknown command %q; did you mean %q?\n", name, near)
		return
	}
	fmt.Fprintf(r.out, "unknown command %q\n", name)
}

// explain splits input into statements and prints the parse of each.
func (r *repl) explain(ctx context.Context, input string) {
	ev := console.EvaluatorFunc(func(_ context.Context, stmt query.Statement) (any, error) {
		stack, err := query.Parse(stmt.Text, query.RootContext(), stmt.Start, query.NewBudget(0))
		if err != nil {
			return nil, err
		}
		return query.Dump(stack), nil
	})

	results, err := console.EvaluateEach(ctx, input, ev)
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		fmt.Fprintf(r.out, "-- statement at %d:%d\n%s", res.Statement.Line, res.Statement.Column, res.Value)
	}
	if err != nil {
		fmt.Fprintln(r.out, err)
	}
}

// -----------------------------------------------------------------------------
// Output helpers
// -----------------------------------------------------------------------------

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

// printColumns lays items out in as many columns as fit in width.
func printColumns(w io.Writer, items []string, width int) {
	if len(items) == 0 {
		return
	}
	colWidth := 0
	for _, item := range items {
		colWidth = max(colWidth, len(item))
	}
	colWidth += 2
	cols := max(1, width/colWidth)
	rows := (len(items) + cols - 1) / cols

	for row := 0; row < rows; row++ {
		var b strings.Builder
		for col := 0; col < cols; col++ {
			i := col*rows + row
			if i >= len(items) {
				break
			}
			fmt.Fprintf(&b, "%-*s", colWidth, items[i])
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

func printDescription(w io.Writer, d docs.Description, width int) {
	fmt.Fprintln(w, d.Name)
	if d.Signature != "" {
		for _, line := range strings.Split(d.Signature, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	if d.Description != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, wordwrap.WrapString(d.Description, uint(max(20, width-2))))
	}
	if d.Example != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Example: %s\n", d.Example)
	}
}
