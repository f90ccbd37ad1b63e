package query

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: tolerant recursive descent over the text before the cursor
// ---------------------------------------------------------------------------

// Default guards applied by ParseQuery.
const (
	DefaultMaxStack  = 100
	DefaultMaxLength = 1000
)

// Budget counts the elements pushed during one parse, across every nesting
// level. It is shared by reference with all recursive calls.
type Budget struct {
	Limit int
	Used  int
}

// NewBudget creates a budget allowing limit elements. A limit of 0 or less
// disables the ceiling.
func NewBudget(limit int) *Budget {
	return &Budget{Limit: limit}
}

// Push accounts for one more element.
func (b *Budget) Push() error {
	b.Used++
	if b.Limit > 0 && b.Used > b.Limit {
		return ErrStackOverflow
	}
	return nil
}

// Options configure ParseQuery.
type Options struct {
	MaxStack  int
	MaxLength int
	Context   Context
}

// DefaultOptions returns the default parse guards with the root context.
func DefaultOptions() Options {
	return Options{MaxStack: DefaultMaxStack, MaxLength: DefaultMaxLength}
}

// ParseQuery parses the text before the cursor with the length guard and
// stack ceiling from opts.
func ParseQuery(text string, opts Options) ([]*Element, error) {
	return parseGuarded(text, 0, opts)
}

// ParseAtCursor parses only the statement the cursor is in: the text after
// the last top-level ';'. Guards apply to that statement alone, and element
// offsets stay absolute within text.
func ParseAtCursor(text string, opts Options) ([]*Element, error) {
	return parseGuarded(text, StatementStart(text), opts)
}

func parseGuarded(text string, from int, opts Options) ([]*Element, error) {
	src := text[from:]
	if opts.MaxLength > 0 && len(src) > opts.MaxLength {
		return nil, ErrQueryTooLong
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = RootContext()
	}
	return Parse(src, ctx, from, NewBudget(opts.MaxStack))
}

// Parse builds the element stack for text, which starts at absolute offset
// base and is assumed to end at the cursor. It returns ErrStackOverflow
// once budget is exhausted.
func Parse(text string, ctx Context, base int, budget *Budget) ([]*Element, error) {
	if budget == nil {
		budget = NewBudget(DefaultMaxStack)
	}
	if ctx == nil {
		ctx = RootContext()
	}
	return parseSegment(text, ctx, base, budget, true)
}

type parser struct {
	src    string
	base   int
	ctx    Context
	budget *Budget

	// atEOF is set when the end of src is the end of the whole input. Only
	// then may a trailing identifier be a fragment still being typed.
	atEOF bool

	pos   int
	stack []*Element
}

func parseSegment(text string, ctx Context, base int, budget *Budget, atEOF bool) ([]*Element, error) {
	p := &parser{src: text, base: base, ctx: ctx, budget: budget, atEOF: atEOF}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.stack, nil
}

func (p *parser) parse() error {
	start := p.pos
	for p.pos < len(p.src) {
		p.skipTrivia()
		if p.pos >= len(p.src) {
			break
		}
		pushed, err := p.parseElement(start)
		if err != nil {
			return err
		}
		if pushed {
			start = p.pos
		}
	}
	// Trailing trivia belongs to the last element.
	if last := Last(p.stack); last != nil && start < len(p.src) {
		last.End = p.base + len(p.src)
	}
	return nil
}

// push registers el against the budget and appends it to the stack.
func (p *parser) push(el *Element) error {
	if err := p.budget.Push(); err != nil {
		return err
	}
	p.stack = append(p.stack, el)
	return nil
}

// parseElement parses the element starting at p.pos. start is where its
// span begins, including trivia. It reports false when it only consumed
// text that does not form an element.
func (p *parser) parseElement(start int) (bool, error) {
	i := p.pos
	ch := p.src[i]

	if params, body, brace, ok := p.functionHeader(i); ok {
		return true, p.parseFunction(start, i, params, body, brace)
	}
	if params, body, brace, ok := p.arrowHeader(i); ok {
		return true, p.parseFunction(start, i, params, body, brace)
	}
	if brace, ok := p.loopHeader(i); ok {
		return true, p.parseBlock(start, i, brace, KindLoop, p.ctx)
	}
	if end, ok := p.returnKeyword(i); ok {
		el := p.newElement(KindReturn, start, i)
		el.Name = p.src[i:end]
		el.Complete = true
		p.pos = end
		el.End = p.base + p.pos
		return true, p.push(el)
	}

	switch {
	case ch == '{':
		return true, p.parseObject(start, i)
	case ch == '[':
		return true, p.parseArray(start, i)
	case IsQuote(ch):
		n, terminated := stringLength(p.src, i)
		el := p.newElement(KindString, start, i)
		el.Name = p.src[i : i+n]
		el.Complete = terminated
		p.pos = i + n
		el.End = p.base + p.pos
		return true, p.push(el)
	case isDigit(ch):
		end := readNumber(p.src, i)
		el := p.newElement(KindNumber, start, i)
		el.Name = p.src[i:end]
		el.Complete = true
		p.pos = end
		el.End = p.base + p.pos
		return true, p.push(el)
	case ch == ',' || ch == ';':
		el := p.newElement(KindSeparator, start, i)
		el.Name = string(ch)
		el.Complete = true
		p.pos = i + 1
		el.End = p.base + p.pos
		return true, p.push(el)
	case ch == '.':
		return p.parseDotted(start, i)
	case ch == '(':
		return true, p.parseCall(start, i, i)
	case isIdentStart(ch):
		return true, p.parseIdentifier(start, i)
	}

	// Anything else is absorbed into the next element's span.
	p.pos++
	return false, nil
}

func (p *parser) newElement(kind Kind, start, i int) *Element {
	return &Element{
		Kind:     kind,
		Context:  p.ctx,
		Position: p.base + i,
		Start:    p.base + start,
	}
}

// skipTrivia skips whitespace, comments and operator characters.
func (p *parser) skipTrivia() {
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		if isSpace(ch) {
			p.pos++
			continue
		}
		if n, _, _ := commentLength(p.src, p.pos); n > 0 {
			p.pos += n
			continue
		}
		if isOperator(ch) || IsCloser(ch) {
			p.pos++
			continue
		}
		return
	}
}

// ---------------------------------------------------------------------------
// Calls, identifiers and chains
// ---------------------------------------------------------------------------

// parseCall parses a call whose head starts at i and whose argument list
// opens at open. The arguments are parsed recursively as the call body.
func (p *parser) parseCall(start, i, open int) error {
	close, found := MatchClose(p.src, open)
	el := p.newElement(KindFunction, start, i)
	el.Name = p.src[i : open+1]
	if err := p.push(el); err != nil {
		return err
	}

	body, err := parseSegment(p.src[open+1:close], p.ctx, p.base+open+1, p.budget, !found && p.atEOF)
	if err != nil {
		return err
	}
	el.Body = body
	el.Complete = found
	if found {
		p.pos = close + 1
	} else {
		p.pos = len(p.src)
	}
	el.End = p.base + p.pos
	return nil
}

// parseDotted parses a chained continuation: .name( starts a call, .name
// alone is a field access, and a trailing .na is a fragment being typed.
func (p *parser) parseDotted(start, i int) (bool, error) {
	j := skipSpaces(p.src, i+1)
	k := readIdent(p.src, j)

	if k == j {
		if j == len(p.src) && p.atEOF {
			el := p.newElement(KindFunction, start, i)
			el.Name = p.src[i:j]
			p.pos = j
			el.End = p.base + p.pos
			return true, p.push(el)
		}
		p.pos = i + 1
		return false, nil
	}

	m := skipSpaces(p.src, k)
	if m < len(p.src) && p.src[m] == '(' {
		return true, p.parseCall(start, i, m)
	}

	el := p.newElement(KindFunction, start, i)
	el.Name = p.src[i:k]
	el.Complete = !(k == len(p.src) && p.atEOF)
	p.pos = k
	el.End = p.base + p.pos
	return true, p.push(el)
}

// parseIdentifier parses a bare identifier: a call when followed by "(",
// a var when bound in the context, and otherwise a fragment if it ends the
// input or an unbound var.
func (p *parser) parseIdentifier(start, i int) error {
	k := readIdent(p.src, i)
	ident := p.src[i:k]

	m := skipSpaces(p.src, k)
	if m < len(p.src) && p.src[m] == '(' {
		return p.parseCall(start, i, m)
	}

	typ, bound := p.ctx[ident]
	if !bound && k == len(p.src) && p.atEOF {
		el := p.newElement(KindFunction, start, i)
		el.Name = ident
		p.pos = k
		el.End = p.base + p.pos
		return p.push(el)
	}

	el := p.newElement(KindVar, start, i)
	el.Name = ident
	el.Type = typ
	el.Complete = true
	p.pos = k
	el.End = p.base + p.pos
	return p.push(el)
}

// ---------------------------------------------------------------------------
// Functions, loops and return
// ---------------------------------------------------------------------------

// functionHeader matches "function name?(a, b) {".
func (p *parser) functionHeader(i int) (params []string, body, brace int, ok bool) {
	k := readIdent(p.src, i)
	if p.src[i:k] != "function" {
		return nil, 0, 0, false
	}
	j := skipSpaces(p.src, k)
	if n := readIdent(p.src, j); n > j {
		j = skipSpaces(p.src, n)
	}
	params, after, ok := readParams(p.src, j)
	if !ok {
		return nil, 0, 0, false
	}
	b := skipSpaces(p.src, after)
	if b >= len(p.src) || p.src[b] != '{' {
		return nil, 0, 0, false
	}
	return params, b, b, true
}

// arrowHeader matches "x =>" and "(a, b) =>". brace is the offset of a
// block body, or -1 for an expression body starting at body.
func (p *parser) arrowHeader(i int) (params []string, body, brace int, ok bool) {
	var after int
	if p.src[i] == '(' {
		params, after, ok = readParams(p.src, i)
		if !ok {
			return nil, 0, 0, false
		}
	} else {
		k := readIdent(p.src, i)
		if k == i {
			return nil, 0, 0, false
		}
		params, after = []string{p.src[i:k]}, k
	}
	a := skipSpaces(p.src, after)
	if !strings.HasPrefix(p.src[a:], "=>") {
		return nil, 0, 0, false
	}
	body = a + 2
	b := skipSpaces(p.src, body)
	if b < len(p.src) && p.src[b] == '{' {
		return params, b, b, true
	}
	return params, body, -1, true
}

// loopHeader matches "for (...) {" and "while (...) {".
func (p *parser) loopHeader(i int) (int, bool) {
	k := readIdent(p.src, i)
	if word := p.src[i:k]; word != "for" && word != "while" {
		return 0, false
	}
	j := skipSpaces(p.src, k)
	if j >= len(p.src) || p.src[j] != '(' {
		return 0, false
	}
	close, found := MatchClose(p.src, j)
	if !found {
		return 0, false
	}
	b := skipSpaces(p.src, close+1)
	if b >= len(p.src) || p.src[b] != '{' {
		return 0, false
	}
	return b, true
}

func (p *parser) returnKeyword(i int) (int, bool) {
	k := readIdent(p.src, i)
	if p.src[i:k] != "return" {
		return 0, false
	}
	return k, true
}

// parseFunction parses an anonymous function. Its parameters are bound in
// the body only.
func (p *parser) parseFunction(start, i int, params []string, body, brace int) error {
	ctx := p.ctx.With(params...)
	if brace >= 0 {
		return p.parseBlock(start, i, brace, KindAnonymousFunction, ctx)
	}

	// Expression body: runs to the next separator at this level.
	end, found := findTopLevel(p.src, body, len(p.src), ",;")
	el := p.newElement(KindAnonymousFunction, start, i)
	el.Context = ctx
	el.Name = p.src[i:body]
	if err := p.push(el); err != nil {
		return err
	}
	atEOF := !found && p.atEOF
	stack, err := parseSegment(p.src[body:end], ctx, p.base+body, p.budget, atEOF)
	if err != nil {
		return err
	}
	el.Body = stack
	el.Complete = !atEOF
	p.pos = end
	el.End = p.base + p.pos
	return nil
}

// parseBlock parses a "{ ... }" body for functions and loops.
func (p *parser) parseBlock(start, i, brace int, kind Kind, ctx Context) error {
	close, found := MatchClose(p.src, brace)
	el := p.newElement(kind, start, i)
	el.Context = ctx
	el.Name = p.src[i : brace+1]
	if err := p.push(el); err != nil {
		return err
	}
	body, err := parseSegment(p.src[brace+1:close], ctx, p.base+brace+1, p.budget, !found && p.atEOF)
	if err != nil {
		return err
	}
	el.Body = body
	el.Complete = found
	if found {
		p.pos = close + 1
	} else {
		p.pos = len(p.src)
	}
	el.End = p.base + p.pos
	return nil
}

// ---------------------------------------------------------------------------
// Objects and arrays
// ---------------------------------------------------------------------------

func (p *parser) parseObject(start, i int) error {
	close, found := MatchClose(p.src, i)
	el := p.newElement(KindObject, start, i)
	el.Name = "{"
	if err := p.push(el); err != nil {
		return err
	}

	segs := splitTopLevel(p.src, i+1, close, found)
	for n, seg := range segs {
		closed := found || n < len(segs)-1
		key, err := p.parseObjectKey(seg, closed)
		if err != nil {
			return err
		}
		el.Body = append(el.Body, key)
	}

	el.Complete = found
	if found {
		p.pos = close + 1
	} else {
		p.pos = len(p.src)
	}
	el.End = p.base + p.pos
	return nil
}

// parseObjectKey parses one "key: value" pair. The value is parsed as the
// key's body; a pair without a colon is a key still being typed.
func (p *parser) parseObjectKey(seg segment, closed bool) (*Element, error) {
	el := &Element{
		Kind:     KindObjectKey,
		Context:  p.ctx,
		Position: p.base + skipSpaces(p.src[:seg.end], seg.start),
		Start:    p.base + seg.start,
		End:      p.base + seg.next,
		Complete: closed,
	}
	if err := p.push(el); err != nil {
		return nil, err
	}

	colon, found := findTopLevel(p.src, seg.start, seg.end, ":")
	if !found {
		raw := strings.TrimSpace(p.src[seg.start:seg.end])
		el.Name = raw
		el.Key = unquote(raw)
		el.KeyComplete = closed
		return el, nil
	}

	el.Name = strings.TrimSpace(p.src[seg.start : colon+1])
	el.Key = unquote(strings.TrimSpace(p.src[seg.start:colon]))
	el.KeyComplete = true
	body, err := parseSegment(p.src[colon+1:seg.end], p.ctx, p.base+colon+1, p.budget, !closed && p.atEOF)
	if err != nil {
		return nil, err
	}
	el.Body = body
	return el, nil
}

func (p *parser) parseArray(start, i int) error {
	close, found := MatchClose(p.src, i)
	el := p.newElement(KindArray, start, i)
	el.Name = "["
	if err := p.push(el); err != nil {
		return err
	}

	segs := splitTopLevel(p.src, i+1, close, found)
	for n, seg := range segs {
		closed := found || n < len(segs)-1
		entry := &Element{
			Kind:     KindArrayEntry,
			Context:  p.ctx,
			Position: p.base + skipSpaces(p.src[:seg.end], seg.start),
			Start:    p.base + seg.start,
			End:      p.base + seg.next,
			Complete: closed,
		}
		if err := p.push(entry); err != nil {
			return err
		}
		body, err := parseSegment(p.src[seg.start:seg.end], p.ctx, p.base+seg.start, p.budget, !closed && p.atEOF)
		if err != nil {
			return err
		}
		entry.Body = body
		el.Body = append(el.Body, entry)
	}

	el.Complete = found
	if found {
		p.pos = close + 1
	} else {
		p.pos = len(p.src)
	}
	el.End = p.base + p.pos
	return nil
}

// ---------------------------------------------------------------------------
// Segments
// ---------------------------------------------------------------------------

// segment is a comma-separated slice of a bracketed list. end excludes the
// comma; next is the offset after it.
type segment struct {
	start, end, next int
}

// splitTopLevel splits src[from:to] at commas outside nested brackets,
// strings and comments. A blank trailing segment is dropped when the list
// is closed.
func splitTopLevel(src string, from, to int, closed bool) []segment {
	var segs []segment
	var brackets BracketStack
	s := NewScanner(src[:to], from, &brackets)
	begin := from
	for {
		run, ok := s.Next()
		if !ok {
			break
		}
		if run.Kind == RunCode && brackets.Len() == 0 && src[run.Start] == ',' {
			segs = append(segs, segment{start: begin, end: run.Start, next: run.End})
			begin = run.End
		}
	}
	if !closed || strings.TrimSpace(src[begin:to]) != "" {
		segs = append(segs, segment{start: begin, end: to, next: to})
	}
	return segs
}

// findTopLevel returns the offset of the first byte of seps found in code
// at nesting depth zero within src[from:to].
func findTopLevel(src string, from, to int, seps string) (int, bool) {
	var brackets BracketStack
	s := NewScanner(src[:to], from, &brackets)
	for {
		run, ok := s.Next()
		if !ok {
			return to, false
		}
		if run.Kind != RunCode {
			continue
		}
		ch := src[run.Start]
		if IsOpener(ch) || (IsCloser(ch) && !run.Mismatched) {
			continue
		}
		if brackets.Len() == 0 && strings.IndexByte(seps, ch) >= 0 {
			return run.Start, true
		}
	}
}

// readParams reads "(a, b)" at i. It fails on anything but identifiers,
// commas and whitespace between the parens.
func readParams(src string, i int) ([]string, int, bool) {
	if i >= len(src) || src[i] != '(' {
		return nil, 0, false
	}
	close := strings.IndexByte(src[i:], ')')
	if close < 0 {
		return nil, 0, false
	}
	inner := src[i+1 : i+close]
	for j := 0; j < len(inner); j++ {
		ch := inner[j]
		if !isIdentPart(ch) && ch != ',' && !isSpace(ch) {
			return nil, 0, false
		}
	}
	var params []string
	for _, part := range strings.Split(inner, ",") {
		if name := strings.TrimSpace(part); name != "" {
			params = append(params, name)
		}
	}
	return params, i + close + 1, true
}

// Helper functions

func unquote(s string) string {
	if s == "" || !IsQuote(s[0]) {
		return s
	}
	q := s[0]
	s = s[1:]
	if len(s) > 0 && s[len(s)-1] == q {
		s = s[:len(s)-1]
	}
	return s
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '$' || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isOperator(ch byte) bool {
	return strings.IndexByte("+-*/%=!<>?:&|~^", ch) >= 0
}

func skipSpaces(src string, i int) int {
	for i < len(src) && isSpace(src[i]) {
		i++
	}
	return i
}

func readIdent(src string, i int) int {
	if i >= len(src) || !isIdentStart(src[i]) {
		return i
	}
	for i < len(src) && isIdentPart(src[i]) {
		i++
	}
	return i
}

func readNumber(src string, i int) int {
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i < len(src) && src[i] == '.' && i+1 < len(src) && isDigit(src[i+1]) {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	return i
}
