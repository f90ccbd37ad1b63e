package server

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/qconsole/assist"
	"github.com/chazu/qconsole/console"
	"github.com/chazu/qconsole/docs"
	"github.com/chazu/qconsole/query"
	"github.com/chazu/qconsole/suggest"
)

// --- Engine-backed logic (called on the worker goroutine) ---

// completionItems converts a resolver result at offset into LSP items.
// Argument candidates replace the argument typed so far; command
// suggestions replace the fragment.
func completionItems(table *docs.Table, text string, offset int, res suggest.Result) []protocol.CompletionItem {
	var items []protocol.CompletionItem

	if arg := res.Argument; arg != nil {
		kind := protocol.CompletionItemKindValue
		detail := arg.Kind.String()
		if arg.Database != "" {
			detail = fmt.Sprintf("table in %s", arg.Database)
		}
		quoted := arg.Start > 0 && arg.Start <= len(text) && query.IsQuote(text[arg.Start-1])
		rng := rangeOf(text, arg.Start, offset)
		for _, name := range arg.Candidates {
			newText := name
			if !quoted {
				newText = "'" + name + "'"
			}
			items = append(items, protocol.CompletionItem{
				Label:    name,
				Kind:     &kind,
				Detail:   strPtr(detail),
				TextEdit: protocol.TextEdit{Range: rng, NewText: newText},
			})
		}
		return items
	}

	rng := rangeOf(text, res.FragmentStart, offset)
	for _, key := range res.Suggestions {
		kind := protocol.CompletionItemKindMethod
		if !strings.HasSuffix(key, "(") {
			kind = protocol.CompletionItemKindVariable
		}
		item := protocol.CompletionItem{
			Label:    key,
			Kind:     &kind,
			TextEdit: protocol.TextEdit{Range: rng, NewText: key},
		}
		if d, ok := table.Description(key); ok {
			item.Detail = strPtr(d.Signature)
			if d.Description != "" {
				item.Documentation = protocol.MarkupContent{
					Kind:  protocol.MarkupKindMarkdown,
					Value: d.Description,
				}
			}
		}
		items = append(items, item)
	}
	return items
}

// hoverAt describes the command named under offset, or else the call whose
// arguments contain offset.
func hoverAt(table *docs.Table, session *console.Session, text string, offset int) *protocol.Hover {
	start, end := wordAt(text, offset)
	if start < end {
		word := text[start:end]
		keys := []string{word, word + "("}
		if m := skipSpaces(text, end); m < len(text) && text[m] == '(' {
			keys = []string{word + "(", word}
		}
		for _, key := range keys {
			if d, ok := table.Description(key); ok {
				return newHover(text, start, end, d)
			}
		}
	}

	session.Reset(text, offset)
	res := session.Complete()
	if res.Description == nil {
		return nil
	}
	return newHover(text, offset, offset, *res.Description)
}

func newHover(text string, from, to int, d docs.Description) *protocol.Hover {
	rng := rangeOf(text, from, to)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: describeMarkdown(d),
		},
		Range: &rng,
	}
}

func describeMarkdown(d docs.Description) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", d.Name)
	if d.Signature != "" {
		fmt.Fprintf(&b, "`%s`\n\n", d.Signature)
	}
	if d.Description != "" {
		b.WriteString("---\n\n")
		b.WriteString(d.Description)
		b.WriteString("\n\n")
	}
	if d.Example != "" {
		fmt.Fprintf(&b, "```js\n%s\n```\n", d.Example)
	}
	return strings.TrimRight(b.String(), "\n")
}

// onTypeEdits replays the pairing decision for ch, which the editor has
// already inserted just before offset, as text edits.
func onTypeEdits(text string, offset int, ch string) []protocol.TextEdit {
	r, size := utf8.DecodeRuneInString(ch)
	if size == 0 || size != len(ch) || offset < size || offset > len(text) || text[offset-size:offset] != ch {
		return nil
	}
	before := text[:offset-size] + text[offset:]
	act := assist.Plan(before, offset-size, r)

	switch act.Kind {
	case assist.ActionInsertPair:
		closer := act.Text[len(ch):]
		return []protocol.TextEdit{{Range: rangeOf(text, offset, offset), NewText: closer}}
	case assist.ActionTypeOver:
		// The typed character landed in front of the one it should replace.
		return []protocol.TextEdit{{Range: rangeOf(text, offset, offset+size), NewText: ""}}
	}
	return nil
}

// diagnostics reports statement-split syntax errors or, when the buffer
// splits cleanly, chained calls the documentation does not know. Each
// statement is parsed under the stack ceiling of opts; statements over it
// are not checked.
func diagnostics(table *docs.Table, opts query.Options, uri protocol.DocumentUri, text string) []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}

	stmts, err := console.SplitStatements(text)
	if err != nil {
		var syn *query.SyntaxError
		if !errors.As(err, &syn) {
			return diags
		}
		d := protocol.Diagnostic{
			Range:    rangeOf(text, syn.Offset, syn.Offset+1),
			Severity: severityPtr(protocol.DiagnosticSeverityError),
			Source:   strPtr(lspName),
			Message:  syn.Message,
		}
		if syn.Opened != nil {
			d.RelatedInformation = []protocol.DiagnosticRelatedInformation{{
				Location: protocol.Location{URI: uri, Range: rangeOf(text, syn.Opened.Offset, syn.Opened.Offset+1)},
				Message:  "opened here",
			}}
		}
		return append(diags, d)
	}

	for _, stmt := range stmts {
		stack, err := query.Parse(stmt.Text, opts.Context, stmt.Start, query.NewBudget(opts.MaxStack))
		if err != nil {
			log.Debugf("diagnostics: statement at line %d skipped: %s", stmt.Line, err)
			continue
		}
		walkCalls(stack, func(e *query.Element) {
			if !e.Dotted() || !e.ArgsOpened() {
				return
			}
			ident := e.Ident()
			if table.Has(table.CallKey(e.CallKey())) {
				return
			}
			from := e.Position + strings.Index(e.Name, ident)
			msg := fmt.Sprintf("unknown command %q", ident)
			if near := table.Closest(ident); near != "" {
				msg += fmt.Sprintf("; did you mean %q?", near)
			}
			diags = append(diags, protocol.Diagnostic{
				Range:    rangeOf(text, from, from+len(ident)),
				Severity: severityPtr(protocol.DiagnosticSeverityWarning),
				Source:   strPtr(lspName),
				Message:  msg,
			})
		})
	}
	return diags
}

// walkCalls visits every element of stack and of nested bodies.
func walkCalls(stack []*query.Element, visit func(*query.Element)) {
	for _, e := range stack {
		if e.Kind == query.KindFunction {
			visit(e)
		}
		walkCalls(e.Body, visit)
	}
}

func skipSpaces(text string, i int) int {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r') {
		i++
	}
	return i
}

func severityPtr(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}
