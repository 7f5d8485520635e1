// Package parser builds the AST from source text. The grammar has explicit
// precedence: alternation binds loosest, concatenation tighter, and postfix
// repetitions tightest. Recoverable syntax errors synthesize placeholder
// nodes and parsing continues, so one invocation can report several
// independent problems.
package parser

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Kyza/pomsky/diag"
	"github.com/Kyza/pomsky/internal/ast"
	"github.com/Kyza/pomsky/internal/lexer"
	"github.com/Kyza/pomsky/internal/token"
)

// maxNesting bounds the parser's recursion so pathological inputs cannot
// overflow the stack.
const maxNesting = 256

// Parse tokenizes and parses src. The returned tree may contain Error
// placeholder nodes when diagnostics report syntax errors.
func Parse(src string) (ast.Node, []diag.Diagnostic) {
	toks, diags := lexer.Tokenize(src)
	p := &parser{toks: toks, diags: diags}
	root := p.parseModified()
	if !p.at(token.EOF) && !p.bailed {
		p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
			"unexpected %s after the expression", p.cur().Type)
	}
	return root, p.diags
}

type parser struct {
	toks  []token.Token
	pos   int
	diags []diag.Diagnostic
	depth int

	// bailed is set when the nesting limit is hit; parsing stops.
	bailed bool
}

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.pos]
}

func (p *parser) at(t token.Type) bool { return p.cur().Type == t }

func (p *parser) atKeyword(kw string) bool {
	c := p.cur()
	return c.Type == token.Ident && c.Text == kw
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) eat(t token.Type) (token.Token, bool) {
	if p.at(t) {
		return p.advance(), true
	}
	return p.cur(), false
}

func (p *parser) errorf(code diag.Code, span diag.Span, format string, args ...interface{}) {
	p.diags = append(p.diags, diag.Error(code, span, format, args...))
}

func (p *parser) warnf(code diag.Code, span diag.Span, format string, args ...interface{}) {
	p.diags = append(p.diags, diag.Warning(code, span, format, args...))
}

// enter guards recursive productions against unbounded nesting.
func (p *parser) enter() bool {
	p.depth++
	if p.depth > maxNesting {
		if !p.bailed {
			p.bailed = true
			p.errorf(diag.CodeRecursionDepth, p.cur().Span,
				"the expression is nested too deeply")
			p.pos = len(p.toks) - 1
		}
		return false
	}
	return true
}

func (p *parser) leave() { p.depth-- }

// parseModified parses an optional run of statements followed by an
// alternation: `let x = ...;`, `enable lazy;` and `disable lazy;` may only
// appear before the expression they scope over.
func (p *parser) parseModified() ast.Node {
	if !p.enter() {
		defer p.leave()
		return &ast.Error{Span: p.cur().Span}
	}
	defer p.leave()

	type stmtEntry struct {
		stmt ast.Stmt
		span diag.Span
	}
	var stmts []stmtEntry
	letNames := make(map[string]diag.Span)

	for {
		switch {
		case p.atKeyword("let"):
			letTok := p.advance()
			name, nameSpan, ok := p.identName("variable name")
			if ok {
				if _, dup := letNames[name]; dup {
					p.errorf(diag.CodeDuplicateBinding, nameSpan,
						"a variable named `%s` already exists in this scope", name)
				}
				letNames[name] = nameSpan
			}
			if _, found := p.eat(token.Equals); !found {
				p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
					"expected `=`, found %s", p.cur().Type)
			}
			expr := p.parseOr()
			end := p.expectSemicolon()
			if ok {
				stmts = append(stmts, stmtEntry{
					stmt: &ast.LetStmt{Name: name, NameSpan: nameSpan, Expr: expr},
					span: letTok.Span.Join(end),
				})
			}

		case p.atKeyword("enable") || p.atKeyword("disable"):
			kw := p.advance()
			enable := kw.Text == "enable"
			if !p.atKeyword("lazy") {
				p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
					"expected `lazy` after `%s`, found %s", kw.Text, p.cur().Type)
			} else {
				p.advance()
			}
			end := p.expectSemicolon()
			stmts = append(stmts, stmtEntry{
				stmt: &ast.ModeStmt{Enable: enable},
				span: kw.Span.Join(end),
			})

		default:
			body := p.parseOr()
			for i := len(stmts) - 1; i >= 0; i-- {
				body = &ast.StmtExpr{
					Stmt: stmts[i].stmt,
					Body: body,
					Span: stmts[i].span.Join(ast.Span(body)),
				}
			}
			return body
		}
	}
}

func (p *parser) expectSemicolon() diag.Span {
	if tok, ok := p.eat(token.Semicolon); ok {
		return tok.Span
	}
	p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
		"expected `;` to end the statement, found %s", p.cur().Type)
	return p.cur().Span
}

// identName consumes an identifier, rejecting reserved keywords.
func (p *parser) identName(what string) (string, diag.Span, bool) {
	c := p.cur()
	if c.Type != token.Ident {
		p.errorf(diag.CodeUnexpectedToken, c.Span,
			"expected %s, found %s", what, c.Type)
		return "", c.Span, false
	}
	p.advance()
	if token.Keywords[c.Text] {
		p.errorf(diag.CodeKeywordAsName, c.Span,
			"`%s` is a reserved keyword and cannot be used as a %s", c.Text, what)
		return "", c.Span, false
	}
	return c.Text, c.Span, true
}

// parseOr parses `a | b | c`. A single leading pipe is tolerated; a pipe
// with nothing to alternate is an error.
func (p *parser) parseOr() ast.Node {
	if !p.enter() {
		defer p.leave()
		return &ast.Error{Span: p.cur().Span}
	}
	defer p.leave()

	leadingPipe, hadLeading := p.eat(token.Pipe)

	first := p.parseSequence()
	if first == nil {
		if hadLeading {
			p.errorf(diag.CodeUnexpectedToken, leadingPipe.Span,
				"a `|` must be followed by an alternative")
		} else {
			p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
				"expected expression, found %s", p.cur().Type)
		}
		return &ast.Error{Span: p.cur().Span}
	}

	if !p.at(token.Pipe) {
		return first
	}

	alts := []ast.Node{first}
	for {
		pipe, ok := p.eat(token.Pipe)
		if !ok {
			break
		}
		alt := p.parseSequence()
		if alt == nil {
			p.errorf(diag.CodeUnexpectedToken, pipe.Span,
				"a `|` must be followed by an alternative")
			alt = &ast.Error{Span: pipe.Span}
		}
		alts = append(alts, alt)
	}
	span := ast.Span(alts[0]).Join(ast.Span(alts[len(alts)-1]))
	return &ast.Alternation{Alts: alts, Span: span}
}

// canStartFixes reports whether the current token can begin an atom or
// prefix operator.
func (p *parser) canStartFixes() bool {
	switch p.cur().Type {
	case token.Not, token.LookAhead, token.LookBehind,
		token.Caret, token.Dollar, token.BWord, token.BStart, token.BEnd,
		token.String, token.CodePoint, token.Number,
		token.LParen, token.Colon, token.LBracket, token.Backref,
		token.Dot, token.Ident, token.Error:
		return true
	default:
		return false
	}
}

// parseSequence parses a run of juxtaposed parts. Returns nil if there is
// nothing to parse at the current position.
func (p *parser) parseSequence() ast.Node {
	var parts []ast.Node
	for p.canStartFixes() {
		parts = append(parts, p.parseFixes())
		if p.bailed {
			break
		}
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		span := ast.Span(parts[0]).Join(ast.Span(parts[len(parts)-1]))
		return &ast.Concat{Parts: parts, Span: span}
	}
}

// repSyntax tracks how a repetition was written, to reject the ambiguous
// `x+?` / `x??` style of other regex dialects.
type repSyntax int

const (
	repExplicit repSyntax = iota // carries an explicit greedy/lazy/possessive suffix
	repQuestion
	repPlus
	repOther
)

// parseFixes parses prefix operators (negation, lookaround) and postfix
// repetitions around an atom.
func (p *parser) parseFixes() ast.Node {
	if !p.enter() {
		defer p.leave()
		return &ast.Error{Span: p.cur().Span}
	}
	defer p.leave()

	switch p.cur().Type {
	case token.Not:
		not := p.advance()
		if !p.canStartFixes() {
			p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
				"expected expression after `!`, found %s", p.cur().Type)
			return &ast.Error{Span: not.Span}
		}
		inner := p.parseFixes()
		return p.negate(inner, not.Span)

	case token.LookAhead, token.LookBehind:
		kw := p.advance()
		body := p.parseModified()
		return &ast.Lookaround{
			Inner:  body,
			Behind: kw.Type == token.LookBehind,
			Span:   kw.Span.Join(ast.Span(body)),
		}
	}

	node := p.parseAtom()
	prev := repExplicit
	for {
		min, max, mode, span, syn, ok := p.parseRepetition()
		if !ok {
			break
		}
		if (prev == repOther || prev == repQuestion || prev == repPlus) &&
			(syn == repQuestion || syn == repPlus) {
			what := "?"
			hint := "if you want to make the repetition lazy, append `lazy` instead"
			if syn == repPlus {
				what = "+"
				hint = "if you want to repeat at least once, use `{1,}` instead"
			}
			p.errorf(diag.CodeRepetitionSyntax, span,
				"`%s` is not allowed directly after a repetition", what)
			p.diags[len(p.diags)-1] = p.diags[len(p.diags)-1].WithHelp(hint)
		}
		prev = syn
		node = &ast.Repetition{
			Inner: node,
			Min:   min,
			Max:   max,
			Mode:  mode,
			Span:  ast.Span(node).Join(span),
		}
	}
	return node
}

// negate applies a `!` prefix. Only boundaries, character classes and
// lookarounds can be negated.
func (p *parser) negate(n ast.Node, notSpan diag.Span) ast.Node {
	span := notSpan.Join(ast.Span(n))
	switch v := n.(type) {
	case *ast.Boundary:
		switch v.Bkind {
		case ast.BoundaryWord:
			return &ast.Boundary{Bkind: ast.BoundaryNotWord, Span: span}
		case ast.BoundaryNotWord:
			return &ast.Boundary{Bkind: ast.BoundaryWord, Span: span}
		}
	case *ast.CharClass:
		return &ast.CharClass{Items: v.Items, Negated: !v.Negated, Span: span}
	case *ast.Lookaround:
		return &ast.Lookaround{Inner: v.Inner, Behind: v.Behind, Negative: !v.Negative, Span: span}
	case *ast.Error:
		return v
	}
	p.errorf(diag.CodeNegation, span, "this expression cannot be negated")
	return &ast.Error{Span: span}
}

// parseRepetition parses one postfix repetition and its optional
// greediness suffix. Returns ok == false when the current token does not
// start a repetition.
func (p *parser) parseRepetition() (min, max int, mode ast.Quant, span diag.Span, syn repSyntax, ok bool) {
	c := p.cur()
	switch c.Type {
	case token.Question:
		p.advance()
		min, max, span, syn = 0, 1, c.Span, repQuestion
	case token.Plus:
		p.advance()
		min, max, span, syn = 1, -1, c.Span, repPlus
	case token.Star:
		p.advance()
		min, max, span, syn = 0, -1, c.Span, repOther
	case token.LBrace:
		min, max, span = p.parseBracedRepetition()
		syn = repOther
	default:
		return 0, 0, ast.QuantDefault, diag.Span{}, repOther, false
	}

	mode = ast.QuantDefault
	switch {
	case p.atKeyword("greedy"):
		mode = ast.QuantGreedy
	case p.atKeyword("lazy"):
		mode = ast.QuantLazy
	case p.atKeyword("possessive"):
		mode = ast.QuantPossessive
	}
	if mode != ast.QuantDefault {
		kw := p.advance()
		span = span.Join(kw.Span)
		syn = repExplicit
	}
	return min, max, mode, span, syn, true
}

// parseBracedRepetition parses `{n}`, `{n,}`, `{,m}` and `{n,m}`.
func (p *parser) parseBracedRepetition() (min, max int, span diag.Span) {
	open := p.advance() // {
	span = open.Span
	min, max = 0, -1

	hasLower := false
	if p.at(token.Number) {
		min = p.parseNumber(p.advance())
		hasLower = true
	}

	if _, found := p.eat(token.Comma); found {
		if p.at(token.Number) {
			max = p.parseNumber(p.advance())
		} else if !hasLower {
			p.errorf(diag.CodeMalformedQuantifier, p.cur().Span,
				"expected a number in the repetition")
		}
	} else if hasLower {
		max = min
	} else {
		p.errorf(diag.CodeMalformedQuantifier, p.cur().Span,
			"expected a number or `,` in the repetition")
	}

	if max != -1 && min > max {
		p.errorf(diag.CodeMalformedQuantifier, span.Join(p.cur().Span),
			"the lower bound %d is greater than the upper bound %d", min, max)
		max = min
	}

	if close, found := p.eat(token.RBrace); found {
		span = span.Join(close.Span)
	} else {
		p.errorf(diag.CodeUnbalancedDelimiter, p.cur().Span,
			"expected `}` to close the repetition, found %s", p.cur().Type)
	}
	return min, max, span
}

func (p *parser) parseNumber(t token.Token) int {
	n, err := strconv.Atoi(t.Text)
	if err != nil || n > 65535 {
		p.errorf(diag.CodeMalformedQuantifier, t.Span, "this number is too large")
		return 65535
	}
	return n
}

func (p *parser) parseAtom() ast.Node {
	c := p.cur()
	switch c.Type {
	case token.Colon:
		return p.parseCaptureGroup()

	case token.LParen:
		p.advance()
		body := p.parseModified()
		p.expectCloseParen(c.Span)
		return body

	case token.String:
		p.advance()
		text, ok := p.decodeString(c)
		if !ok {
			return &ast.Error{Span: c.Span}
		}
		return &ast.Literal{Text: text, Span: c.Span}

	case token.CodePoint:
		p.advance()
		r, ok := p.decodeCodePoint(c)
		if !ok {
			return &ast.Error{Span: c.Span}
		}
		return &ast.Literal{Text: string(r), Span: c.Span}

	case token.LBracket:
		return p.parseCharClass()

	case token.Caret:
		p.advance()
		return &ast.Boundary{Bkind: ast.BoundaryStart, Span: c.Span}
	case token.Dollar:
		p.advance()
		return &ast.Boundary{Bkind: ast.BoundaryEnd, Span: c.Span}
	case token.BWord:
		p.advance()
		return &ast.Boundary{Bkind: ast.BoundaryWord, Span: c.Span}
	case token.BStart:
		p.advance()
		p.warnf(diag.CodeDeprecated, c.Span, "`<%%` is deprecated; use `^` instead")
		return &ast.Boundary{Bkind: ast.BoundaryStart, Span: c.Span}
	case token.BEnd:
		p.advance()
		p.warnf(diag.CodeDeprecated, c.Span, "`%%>` is deprecated; use `$` instead")
		return &ast.Boundary{Bkind: ast.BoundaryEnd, Span: c.Span}

	case token.Backref:
		return p.parseReference()

	case token.Dot:
		p.advance()
		return &ast.Dot{Span: c.Span}

	case token.Error:
		// the lexer already reported this token
		p.advance()
		return &ast.Error{Span: c.Span}

	case token.Ident:
		switch c.Text {
		case "atomic":
			return p.parseAtomicGroup()
		case "range":
			return p.parseRange()
		}
		if token.Keywords[c.Text] {
			p.advance()
			p.errorf(diag.CodeKeywordAsName, c.Span,
				"unexpected keyword `%s`", c.Text)
			return &ast.Error{Span: c.Span}
		}
		p.advance()
		return &ast.Variable{Name: c.Text, Span: c.Span}
	}

	p.advance()
	p.errorf(diag.CodeUnexpectedToken, c.Span,
		"expected expression, found %s", c.Type)
	return &ast.Error{Span: c.Span}
}

func (p *parser) expectCloseParen(openSpan diag.Span) diag.Span {
	if tok, ok := p.eat(token.RParen); ok {
		return tok.Span
	}
	p.errorf(diag.CodeUnbalancedDelimiter, p.cur().Span,
		"expected `)`, found %s", p.cur().Type)
	p.diags[len(p.diags)-1] = p.diags[len(p.diags)-1].
		WithHelp("the group starting at offset " + strconv.Itoa(openSpan.Start) + " is not closed")
	return p.cur().Span
}

// parseCaptureGroup parses `:( ... )` and `:name( ... )`.
func (p *parser) parseCaptureGroup() ast.Node {
	colon := p.advance()
	var name string
	if p.at(token.Ident) {
		ident := p.cur()
		if token.Keywords[ident.Text] {
			p.advance()
			p.errorf(diag.CodeKeywordAsName, ident.Span,
				"`%s` is a reserved keyword and cannot be used as a group name", ident.Text)
		} else {
			p.advance()
			name = ident.Text
		}
	}
	open, found := p.eat(token.LParen)
	if !found {
		p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
			"expected `(` after the capture marker, found %s", p.cur().Type)
		return &ast.Error{Span: colon.Span}
	}
	body := p.parseModified()
	end := p.expectCloseParen(open.Span)

	return &ast.Group{
		Parts: groupParts(body),
		Gkind: ast.GroupCapture,
		Name:  name,
		Span:  colon.Span.Join(end),
	}
}

func (p *parser) parseAtomicGroup() ast.Node {
	kw := p.advance() // atomic
	open, found := p.eat(token.LParen)
	if !found {
		p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
			"expected `(` after `atomic`, found %s", p.cur().Type)
		return &ast.Error{Span: kw.Span}
	}
	body := p.parseModified()
	end := p.expectCloseParen(open.Span)

	return &ast.Group{
		Parts: groupParts(body),
		Gkind: ast.GroupAtomic,
		Span:  kw.Span.Join(end),
	}
}

// groupParts flattens a concatenation into the part list of a group.
func groupParts(body ast.Node) []ast.Node {
	if c, ok := body.(*ast.Concat); ok {
		return c.Parts
	}
	return []ast.Node{body}
}

// parseReference parses `::name`, `::3`, `::+2` and `::-1`.
func (p *parser) parseReference() ast.Node {
	marker := p.advance() // ::
	c := p.cur()
	switch c.Type {
	case token.Number:
		p.advance()
		n, err := strconv.Atoi(c.Text)
		if err != nil {
			p.errorf(diag.CodeUnresolvedReference, c.Span, "this group number is too large")
			return &ast.Error{Span: marker.Span.Join(c.Span)}
		}
		return &ast.Reference{Target: ast.RefNumber, Num: n, Span: marker.Span.Join(c.Span)}

	case token.Ident:
		p.advance()
		return &ast.Reference{Target: ast.RefNamed, Name: c.Text, Span: marker.Span.Join(c.Span)}

	case token.Plus, token.Dash:
		sign := p.advance()
		num, found := p.eat(token.Number)
		if !found {
			p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
				"expected a number after `%s`", signText(sign.Type))
			return &ast.Error{Span: marker.Span.Join(sign.Span)}
		}
		n, err := strconv.Atoi(num.Text)
		if err != nil {
			p.errorf(diag.CodeUnresolvedReference, num.Span, "this group number is too large")
			return &ast.Error{Span: marker.Span.Join(num.Span)}
		}
		if sign.Type == token.Dash {
			n = -n
		}
		return &ast.Reference{Target: ast.RefRelative, Num: n, Span: marker.Span.Join(num.Span)}
	}

	p.errorf(diag.CodeUnexpectedToken, c.Span,
		"expected a number or group name after `::`, found %s", c.Type)
	return &ast.Error{Span: marker.Span}
}

func signText(t token.Type) string {
	if t == token.Dash {
		return "-"
	}
	return "+"
}

// parseRange parses `range 'lo'-'hi'` with an optional `base n` suffix and
// validates the bounds; the resolver expands the node via the range
// compiler.
func (p *parser) parseRange() ast.Node {
	kw := p.advance() // range

	loTok, ok := p.eat(token.String)
	if !ok {
		p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
			"expected the lower bound of the range as a string, found %s", p.cur().Type)
		return &ast.Error{Span: kw.Span}
	}
	if _, found := p.eat(token.Dash); !found {
		p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
			"expected `-` between the range bounds, found %s", p.cur().Type)
		return &ast.Error{Span: kw.Span.Join(loTok.Span)}
	}
	hiTok, ok := p.eat(token.String)
	if !ok {
		p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
			"expected the upper bound of the range as a string, found %s", p.cur().Type)
		return &ast.Error{Span: kw.Span.Join(loTok.Span)}
	}
	span := kw.Span.Join(hiTok.Span)

	radix := 10
	if p.atKeyword("base") {
		p.advance()
		num, found := p.eat(token.Number)
		if !found {
			p.errorf(diag.CodeUnexpectedToken, p.cur().Span,
				"expected a number after `base`, found %s", p.cur().Type)
			return &ast.Error{Span: span}
		}
		n, err := strconv.Atoi(num.Text)
		if err != nil || n < 2 || n > 36 {
			p.errorf(diag.CodeRangeBounds, num.Span, "the base must be between 2 and 36")
			return &ast.Error{Span: span.Join(num.Span)}
		}
		radix = n
		span = span.Join(num.Span)
	}

	loRaw := rawString(loTok)
	hiRaw := rawString(hiTok)

	lo, ok := p.rangeDigits(loRaw, radix, loTok.Span)
	if !ok {
		return &ast.Error{Span: span}
	}
	hi, ok := p.rangeDigits(hiRaw, radix, hiTok.Span)
	if !ok {
		return &ast.Error{Span: span}
	}

	minWidth := 0
	if len(loRaw) > 1 && loRaw[0] == '0' {
		if len(loRaw) != len(hiRaw) {
			p.errorf(diag.CodeRangeBounds, loTok.Span.Join(hiTok.Span),
				"bounds with leading zeros must have the same number of digits")
			return &ast.Error{Span: span}
		}
		minWidth = len(loRaw)
	}

	if len(lo) > len(hi) || (len(lo) == len(hi) && digitsGreater(lo, hi)) {
		p.errorf(diag.CodeRangeBounds, loTok.Span.Join(hiTok.Span),
			"this range is not increasing")
		return &ast.Error{Span: span}
	}

	return &ast.Range{Lo: lo, Hi: hi, Radix: radix, MinWidth: minWidth, Span: span}
}

// rangeDigits converts a bound string into digit values for the radix.
func (p *parser) rangeDigits(s string, radix int, span diag.Span) ([]uint8, bool) {
	if s == "" {
		p.errorf(diag.CodeRangeBounds, span, "a range bound cannot be empty")
		return nil, false
	}
	digits := make([]uint8, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d uint8
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'z':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'Z':
			d = c - 'A' + 10
		default:
			p.errorf(diag.CodeRangeDigit, span, "`%c` is not a valid digit", c)
			return nil, false
		}
		if int(d) >= radix {
			p.errorf(diag.CodeRangeDigit, span,
				"`%c` is not a valid digit in base %d", c, radix)
			return nil, false
		}
		digits = append(digits, d)
	}
	return digits, true
}

func digitsGreater(a, b []uint8) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// rawString strips the quotes from a string token without decoding escapes.
func rawString(t token.Token) string {
	s := t.Text
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

// decodeString decodes a string token. Single-quoted strings are verbatim;
// double-quoted strings support the escapes \\ and \".
func (p *parser) decodeString(t token.Token) (string, bool) {
	s := t.Text
	if len(s) < 2 {
		return "", false
	}
	quote := s[0]
	inner := s[1 : len(s)-1]
	if quote == '\'' {
		return inner, true
	}

	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(inner) || (inner[i] != '\\' && inner[i] != '"') {
			at := t.Span.Start + 1 + i
			p.errorf(diag.CodeStringEscape, diag.NewSpan(at-1, at),
				"invalid escape sequence; only `\\\\` and `\\\"` are supported")
			return "", false
		}
		b.WriteByte(inner[i])
	}
	return b.String(), true
}

// decodeCodePoint decodes a `U+FF` token.
func (p *parser) decodeCodePoint(t token.Token) (rune, bool) {
	hex := t.Text[2:]
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || n > 0x10FFFF || (n >= 0xD800 && n <= 0xDFFF) {
		p.errorf(diag.CodeCodePoint, t.Span, "`%s` is not a valid code point", t.Text)
		return 0, false
	}
	return rune(n), true
}

// parseCharClass parses `[ ... ]`. Negation is applied by the `!` prefix in
// parseFixes, not here.
func (p *parser) parseCharClass() ast.Node {
	open := p.advance() // [

	if caret, found := p.eat(token.Caret); found {
		p.errorf(diag.CodeCharClass, caret.Span,
			"`^` does not negate a character class")
		p.diags[len(p.diags)-1] = p.diags[len(p.diags)-1].
			WithHelp("negate the class with `![...]` instead")
	}

	var items []ast.ClassItem
	sawDot := false
	for {
		c := p.cur()
		switch c.Type {
		case token.RBracket, token.EOF:
			goto done

		case token.String, token.CodePoint:
			item, ok := p.parseClassChars()
			if ok {
				items = append(items, item...)
			}

		case token.Dot:
			p.advance()
			p.warnf(diag.CodeDeprecated, c.Span, "`[.]` is deprecated; use `.` without brackets")
			items = append(items, ast.ClassItem{Kind: ast.ItemDot, Span: c.Span})
			sawDot = true

		case token.Not:
			not := p.advance()
			name, found := p.eat(token.Ident)
			if !found {
				p.errorf(diag.CodeCharClass, p.cur().Span,
					"expected a class name after `!`, found %s", p.cur().Type)
				continue
			}
			if item, ok := p.namedClassItem(name, true, not.Span.Join(name.Span)); ok {
				items = append(items, item)
			}

		case token.Ident:
			if r, ok := specialChar(c.Text); ok {
				items = append(items, p.parseClassCharRange(r, c)...)
				continue
			}
			p.advance()
			if item, ok := p.namedClassItem(c, false, c.Span); ok {
				items = append(items, item)
			}

		default:
			p.advance()
			p.errorf(diag.CodeCharClass, c.Span,
				"%s is not valid inside a character class", c.Type)
		}
	}

done:
	end := p.cur().Span
	if _, found := p.eat(token.RBracket); !found {
		p.errorf(diag.CodeUnbalancedDelimiter, p.cur().Span,
			"expected `]` to close the character class")
	}
	span := open.Span.Join(end)

	if len(items) == 0 {
		p.errorf(diag.CodeCharClass, span, "this character class is empty")
		return &ast.Error{Span: span}
	}
	if sawDot && len(items) > 1 {
		p.errorf(diag.CodeCharClass, span,
			"`.` cannot be combined with other items in a character class")
		return &ast.Error{Span: span}
	}
	return &ast.CharClass{Items: items, Span: span}
}

// parseClassChars parses a string or code point inside a class, possibly
// followed by `-` and a second endpoint forming a range.
func (p *parser) parseClassChars() ([]ast.ClassItem, bool) {
	first := p.advance()
	if _, found := p.eat(token.Dash); !found {
		// a multi-character string adds each of its characters
		text, ok := p.classText(first)
		if !ok {
			return nil, false
		}
		var items []ast.ClassItem
		for _, r := range text {
			items = append(items, ast.ClassItem{
				Kind: ast.ItemRange, Lo: r, Hi: r, Span: first.Span,
			})
		}
		if len(items) == 0 {
			p.errorf(diag.CodeCharClass, first.Span, "this string is empty")
			return nil, false
		}
		return items, true
	}

	lo, ok := p.classChar(first)
	if !ok {
		return nil, false
	}
	second := p.cur()
	if second.Type != token.String && second.Type != token.CodePoint {
		if second.Type == token.Ident {
			if r, isSpecial := specialChar(second.Text); isSpecial {
				p.advance()
				return p.checkedRange(lo, r, first.Span.Join(second.Span))
			}
		}
		p.errorf(diag.CodeCharClass, second.Span,
			"expected a code point or single-character string after `-`")
		return nil, false
	}
	p.advance()
	hi, ok := p.classChar(second)
	if !ok {
		return nil, false
	}
	return p.checkedRange(lo, hi, first.Span.Join(second.Span))
}

func (p *parser) checkedRange(lo, hi rune, span diag.Span) ([]ast.ClassItem, bool) {
	if lo > hi {
		p.errorf(diag.CodeCharClass, span,
			"`%c`-`%c` is a descending range; swap the endpoints", lo, hi)
		return nil, false
	}
	return []ast.ClassItem{{Kind: ast.ItemRange, Lo: lo, Hi: hi, Span: span}}, true
}

// parseClassCharRange handles a special-character identifier (like `n`)
// inside a class, optionally extended to a range.
func (p *parser) parseClassCharRange(r rune, tok token.Token) []ast.ClassItem {
	p.advance()
	if _, found := p.eat(token.Dash); !found {
		return []ast.ClassItem{{Kind: ast.ItemRange, Lo: r, Hi: r, Span: tok.Span}}
	}
	second := p.cur()
	var hi rune
	switch second.Type {
	case token.String, token.CodePoint:
		p.advance()
		var ok bool
		hi, ok = p.classChar(second)
		if !ok {
			return nil
		}
	case token.Ident:
		if r2, isSpecial := specialChar(second.Text); isSpecial {
			p.advance()
			hi = r2
			break
		}
		fallthrough
	default:
		p.errorf(diag.CodeCharClass, second.Span,
			"expected a code point or single-character string after `-`")
		return nil
	}
	items, _ := p.checkedRange(r, hi, tok.Span.Join(second.Span))
	return items
}

// classText decodes a string or code point token to its text.
func (p *parser) classText(t token.Token) (string, bool) {
	if t.Type == token.CodePoint {
		r, ok := p.decodeCodePoint(t)
		if !ok {
			return "", false
		}
		return string(r), true
	}
	return p.decodeString(t)
}

// classChar decodes a token that must represent exactly one code point.
func (p *parser) classChar(t token.Token) (rune, bool) {
	text, ok := p.classText(t)
	if !ok {
		return 0, false
	}
	r, size := utf8.DecodeRuneInString(text)
	if size == 0 || size != len(text) {
		p.errorf(diag.CodeCharClass, t.Span,
			"a range endpoint must be exactly one code point")
		return 0, false
	}
	return r, true
}

// specialChar maps the single-letter escape identifiers to their code
// points.
func specialChar(name string) (rune, bool) {
	switch name {
	case "n":
		return '\n', true
	case "r":
		return '\r', true
	case "t":
		return '\t', true
	case "a":
		return 0x07, true
	case "e":
		return 0x1B, true
	case "f":
		return 0x0C, true
	}
	return 0, false
}

// shorthandNames are the named ASCII classes usable inside brackets.
var shorthandNames = map[string]string{
	"word":        "word",
	"w":           "word",
	"digit":       "digit",
	"d":           "digit",
	"space":       "space",
	"s":           "space",
	"horiz_space": "horiz_space",
	"h":           "horiz_space",
	"vert_space":  "vert_space",
	"v":           "vert_space",
}

// namedClassItem validates a class name. Unicode property names must start
// with an uppercase letter; unknown lowercase names are rejected.
func (p *parser) namedClassItem(t token.Token, negated bool, span diag.Span) (ast.ClassItem, bool) {
	name := t.Text
	if canonical, ok := shorthandNames[name]; ok {
		return ast.ClassItem{Kind: ast.ItemNamed, Name: canonical, Negated: negated, Span: span}, true
	}
	if name[0] >= 'A' && name[0] <= 'Z' {
		// Unicode general category, script or block name
		return ast.ClassItem{Kind: ast.ItemNamed, Name: name, Negated: negated, Span: span}, true
	}
	p.errorf(diag.CodeCharClass, span, "`%s` is not a known character class", name)
	return ast.ClassItem{}, false
}
