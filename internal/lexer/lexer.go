// Package lexer turns source text into a flat token sequence with
// byte-offset spans. Lexing never fails: unknown characters are reported as
// diagnostics and skipped so the parser can keep going.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/Kyza/pomsky/diag"
	"github.com/Kyza/pomsky/internal/token"
)

// Tokenize scans src and returns its tokens, terminated by an EOF token,
// together with any lexical diagnostics. The whole token slice is produced
// up front; the parser indexes into it rather than pulling tokens on demand.
func Tokenize(src string) ([]token.Token, []diag.Diagnostic) {
	l := &lexer{src: src}
	for l.pos < len(l.src) {
		l.skipTrivia()
		if l.pos >= len(l.src) {
			break
		}
		l.next()
	}
	l.emit(token.EOF, len(src), len(src))
	return l.tokens, l.diags
}

type lexer struct {
	src    string
	pos    int
	tokens []token.Token
	diags  []diag.Diagnostic
}

// skipTrivia advances past whitespace and # line comments.
func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) emit(t token.Type, start, end int) {
	l.tokens = append(l.tokens, token.Token{Type: t, Span: diag.NewSpan(start, end)})
}

func (l *lexer) emitText(t token.Type, start, end int) {
	l.tokens = append(l.tokens, token.Token{
		Type: t,
		Span: diag.NewSpan(start, end),
		Text: l.src[start:end],
	})
}

func (l *lexer) next() {
	start := l.pos
	c := l.src[l.pos]

	switch c {
	case '^':
		l.pos++
		l.emit(token.Caret, start, l.pos)
	case '$':
		l.pos++
		l.emit(token.Dollar, start, l.pos)
	case '%':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '>' {
			l.pos++
			l.emit(token.BEnd, start, l.pos)
		} else {
			l.emit(token.BWord, start, l.pos)
		}
	case '<':
		l.pos++
		switch {
		case l.pos < len(l.src) && l.src[l.pos] == '<':
			l.pos++
			l.emit(token.LookBehind, start, l.pos)
		case l.pos < len(l.src) && l.src[l.pos] == '%':
			l.pos++
			l.emit(token.BStart, start, l.pos)
		default:
			l.unknownChar(start, '<')
		}
	case '>':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '>' {
			l.pos++
			l.emit(token.LookAhead, start, l.pos)
		} else {
			l.unknownChar(start, '>')
		}
	case ':':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == ':' {
			l.pos++
			l.emit(token.Backref, start, l.pos)
		} else {
			l.emit(token.Colon, start, l.pos)
		}
	case '*':
		l.pos++
		l.emit(token.Star, start, l.pos)
	case '+':
		l.pos++
		l.emit(token.Plus, start, l.pos)
	case '?':
		l.pos++
		l.emit(token.Question, start, l.pos)
	case '|':
		l.pos++
		l.emit(token.Pipe, start, l.pos)
	case '!':
		l.pos++
		l.emit(token.Not, start, l.pos)
	case '(':
		l.pos++
		l.emit(token.LParen, start, l.pos)
	case ')':
		l.pos++
		l.emit(token.RParen, start, l.pos)
	case '{':
		l.pos++
		l.emit(token.LBrace, start, l.pos)
	case '}':
		l.pos++
		l.emit(token.RBrace, start, l.pos)
	case '[':
		l.pos++
		l.emit(token.LBracket, start, l.pos)
	case ']':
		l.pos++
		l.emit(token.RBracket, start, l.pos)
	case ',':
		l.pos++
		l.emit(token.Comma, start, l.pos)
	case '-':
		l.pos++
		l.emit(token.Dash, start, l.pos)
	case '.':
		l.pos++
		l.emit(token.Dot, start, l.pos)
	case ';':
		l.pos++
		l.emit(token.Semicolon, start, l.pos)
	case '=':
		l.pos++
		l.emit(token.Equals, start, l.pos)
	case '\'', '"':
		l.scanString(c)
	default:
		switch {
		case c >= '0' && c <= '9':
			l.scanNumber()
		case c == 'U' && l.pos+2 < len(l.src) && l.src[l.pos+1] == '+' && isHexDigit(l.src[l.pos+2]):
			l.scanCodePoint()
		default:
			// Decode the whole rune before dispatching: a multi-byte
			// character whose lead byte happens to look like a letter must
			// not reach scanIdent, or the scan would make no progress.
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if isIdentStart(r) {
				l.scanIdent()
			} else {
				l.pos += size
				l.unknownChar(start, r)
			}
		}
	}
}

func (l *lexer) unknownChar(start int, r rune) {
	l.diags = append(l.diags, diag.Error(diag.CodeUnknownChar,
		diag.NewSpan(start, l.pos), "unexpected character %q", r))
}

// scanString scans a quoted literal. Single-quoted strings are verbatim;
// double-quoted strings understand the escapes \\ and \".
func (l *lexer) scanString(quote byte) {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			l.emitText(token.String, start, l.pos)
			return
		}
		if quote == '"' && c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
		}
		l.pos++
	}
	l.diags = append(l.diags, diag.Error(diag.CodeUnterminatedString,
		diag.NewSpan(start, l.pos), "unterminated string literal"))
	l.emitText(token.Error, start, l.pos)
}

func (l *lexer) scanNumber() {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
		l.pos++
	}
	l.emitText(token.Number, start, l.pos)
}

func (l *lexer) scanCodePoint() {
	start := l.pos
	l.pos += 2 // U+
	for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
		l.pos++
	}
	l.emitText(token.CodePoint, start, l.pos)
}

func (l *lexer) scanIdent() {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.pos += size
	}
	l.emitText(token.Ident, start, l.pos)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
