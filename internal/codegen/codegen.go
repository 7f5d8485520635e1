// Package codegen renders a resolved tree into the regex syntax of a
// target flavor. It expects input from the resolver: variables are gone,
// repetition modes are concrete and every construct has already passed
// capability gating, so the only diagnostics produced here are internal.
package codegen

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/Kyza/pomsky/diag"
	"github.com/Kyza/pomsky/flavor"
	"github.com/Kyza/pomsky/internal/ast"
)

// Generate renders n for the given flavor capabilities.
func Generate(n ast.Node, caps flavor.Caps) (string, []diag.Diagnostic) {
	g := &generator{caps: caps}
	var b strings.Builder
	g.expr(&b, n)
	return b.String(), g.diags
}

type generator struct {
	caps  flavor.Caps
	diags []diag.Diagnostic
}

func (g *generator) internal(span diag.Span, msg string) {
	g.diags = append(g.diags, diag.Internal(span, msg))
}

// expr renders n at alternation level, without any surrounding group.
func (g *generator) expr(b *strings.Builder, n ast.Node) {
	switch v := n.(type) {
	case *ast.Alternation:
		for i, alt := range v.Alts {
			if i > 0 {
				b.WriteByte('|')
			}
			g.seqItem(b, alt)
		}
	default:
		g.seqItem(b, n)
	}
}

// seqItem renders n as one element of a sequence: alternations get a
// non-capturing group so `|` keeps its local meaning.
func (g *generator) seqItem(b *strings.Builder, n ast.Node) {
	switch v := n.(type) {
	case *ast.Literal:
		for _, r := range v.Text {
			b.WriteString(g.escRune(r, false))
		}

	case *ast.Dot:
		b.WriteByte('.')

	case *ast.Grapheme:
		b.WriteString(`\X`)

	case *ast.Boundary:
		switch v.Bkind {
		case ast.BoundaryStart:
			b.WriteByte('^')
		case ast.BoundaryEnd:
			b.WriteByte('$')
		case ast.BoundaryWord:
			b.WriteString(`\b`)
		case ast.BoundaryNotWord:
			b.WriteString(`\B`)
		}

	case *ast.CharClass:
		g.class(b, v)

	case *ast.Group:
		g.group(b, v)

	case *ast.Alternation:
		if len(v.Alts) == 1 {
			g.seqItem(b, v.Alts[0])
			return
		}
		b.WriteString("(?:")
		g.expr(b, v)
		b.WriteByte(')')

	case *ast.Concat:
		for _, part := range v.Parts {
			g.seqItem(b, part)
		}

	case *ast.Repetition:
		g.repetition(b, v)

	case *ast.Lookaround:
		switch {
		case !v.Behind && !v.Negative:
			b.WriteString("(?=")
		case !v.Behind && v.Negative:
			b.WriteString("(?!")
		case v.Behind && !v.Negative:
			b.WriteString("(?<=")
		default:
			b.WriteString("(?<!")
		}
		g.expr(b, v.Inner)
		b.WriteByte(')')

	case *ast.Reference:
		fmt.Fprintf(b, `\%d`, v.Index)

	case *ast.Variable:
		g.internal(v.Span, "unexpanded variable reached code generation")
	case *ast.Range:
		g.internal(v.Span, "unexpanded range reached code generation")
	case *ast.StmtExpr:
		g.internal(v.Span, "statement reached code generation")
	case *ast.Error:
		g.internal(v.Span, "error placeholder reached code generation")
	default:
		g.internal(ast.Span(n), "unknown node reached code generation")
	}
}

// atom renders n so a quantifier can follow it directly.
func (g *generator) atom(b *strings.Builder, n ast.Node) {
	if g.isAtom(n) {
		g.seqItem(b, n)
		return
	}
	b.WriteString("(?:")
	g.expr(b, n)
	b.WriteByte(')')
}

// isAtom reports whether n renders as a single quantifiable unit.
func (g *generator) isAtom(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.Literal:
		count := 0
		for range v.Text {
			count++
		}
		return count == 1
	case *ast.CharClass, *ast.Dot, *ast.Grapheme, *ast.Reference:
		return true
	case *ast.Group:
		if v.Gkind == ast.GroupNone {
			if len(v.Parts) == 1 {
				return g.isAtom(v.Parts[0])
			}
			return false
		}
		return true
	case *ast.Lookaround:
		return true
	case *ast.Alternation:
		return len(v.Alts) == 1 && g.isAtom(v.Alts[0])
	case *ast.Concat:
		return len(v.Parts) == 1 && g.isAtom(v.Parts[0])
	}
	return false
}

func (g *generator) group(b *strings.Builder, v *ast.Group) {
	switch v.Gkind {
	case ast.GroupNone:
		for _, part := range v.Parts {
			g.seqItem(b, part)
		}
		return
	case ast.GroupAtomic:
		b.WriteString("(?>")
	case ast.GroupCapture:
		if v.Name == "" {
			b.WriteByte('(')
		} else if g.caps.GroupStyle == flavor.GroupP {
			b.WriteString("(?P<")
			b.WriteString(v.Name)
			b.WriteByte('>')
		} else {
			b.WriteString("(?<")
			b.WriteString(v.Name)
			b.WriteByte('>')
		}
	}
	if len(v.Parts) == 1 {
		g.expr(b, v.Parts[0])
	} else {
		for _, part := range v.Parts {
			g.seqItem(b, part)
		}
	}
	b.WriteByte(')')
}

func (g *generator) repetition(b *strings.Builder, v *ast.Repetition) {
	possessive := v.Mode == ast.QuantPossessive
	if possessive && !g.caps.PossessiveQuantifiers {
		// rewrite `X{m,n}+` as `(?>X{m,n})`; the resolver guarantees the
		// flavor has atomic groups in this case
		b.WriteString("(?>")
		g.atom(b, v.Inner)
		g.quantifier(b, v)
		b.WriteByte(')')
		return
	}
	g.atom(b, v.Inner)
	g.quantifier(b, v)
	switch v.Mode {
	case ast.QuantLazy:
		b.WriteByte('?')
	case ast.QuantPossessive:
		b.WriteByte('+')
	}
}

func (g *generator) quantifier(b *strings.Builder, v *ast.Repetition) {
	switch {
	case v.Min == 0 && v.Max == 1:
		b.WriteByte('?')
	case v.Min == 0 && v.Max == -1:
		b.WriteByte('*')
	case v.Min == 1 && v.Max == -1:
		b.WriteByte('+')
	case v.Min == v.Max:
		fmt.Fprintf(b, "{%d}", v.Min)
	case v.Max == -1:
		fmt.Fprintf(b, "{%d,}", v.Min)
	default:
		fmt.Fprintf(b, "{%d,%d}", v.Min, v.Max)
	}
}

// class renders a character class, collapsing trivial cases: a single
// positive character becomes a bare literal and a single shorthand stays
// outside brackets.
func (g *generator) class(b *strings.Builder, v *ast.CharClass) {
	if len(v.Items) == 1 {
		item := v.Items[0]
		switch item.Kind {
		case ast.ItemRange:
			if item.Lo == item.Hi && !v.Negated {
				b.WriteString(g.escRune(item.Lo, false))
				return
			}
		case ast.ItemNamed:
			if esc, ok := g.bareNamed(item, v.Negated); ok {
				b.WriteString(esc)
				return
			}
		}
	}

	b.WriteByte('[')
	if v.Negated {
		b.WriteByte('^')
	}
	for _, item := range v.Items {
		g.classItem(b, item)
	}
	b.WriteByte(']')
}

// bareNamed renders a lone named item without brackets when the flavor
// has a direct escape for it. classNegated additionally inverts the item.
func (g *generator) bareNamed(item ast.ClassItem, classNegated bool) (string, bool) {
	negated := item.Negated != classNegated
	switch item.Name {
	case "word":
		if negated {
			return `\W`, true
		}
		return `\w`, true
	case "digit":
		if negated {
			return `\D`, true
		}
		return `\d`, true
	case "space":
		if negated {
			return `\S`, true
		}
		return `\s`, true
	case "horiz_space":
		if !g.caps.HorizVertSpace {
			return "", false
		}
		if negated {
			return `\H`, true
		}
		return `\h`, true
	case "vert_space":
		if !g.caps.HorizVertSpace {
			return "", false
		}
		if negated {
			return `\V`, true
		}
		return `\v`, true
	}
	// Unicode property
	name := g.propertyName(item.Name)
	if negated {
		return `\P{` + name + `}`, true
	}
	return `\p{` + name + `}`, true
}

func (g *generator) classItem(b *strings.Builder, item ast.ClassItem) {
	switch item.Kind {
	case ast.ItemRange:
		b.WriteString(g.escRune(item.Lo, true))
		if item.Hi != item.Lo {
			b.WriteByte('-')
			b.WriteString(g.escRune(item.Hi, true))
		}

	case ast.ItemNamed:
		switch item.Name {
		case "word", "digit", "space":
			esc, _ := g.bareNamed(item, false)
			b.WriteString(esc)
		case "horiz_space":
			// the resolver rejects a negated member on flavors without
			// native \h, so the fallback never needs to invert
			switch {
			case g.caps.HorizVertSpace && item.Negated:
				b.WriteString(`\H`)
			case g.caps.HorizVertSpace:
				b.WriteString(`\h`)
			default:
				b.WriteString(`\t\p{Zs}`)
			}
		case "vert_space":
			switch {
			case g.caps.HorizVertSpace && item.Negated:
				b.WriteString(`\V`)
			case g.caps.HorizVertSpace:
				b.WriteString(`\v`)
			default:
				b.WriteString(`\n\x0B\f\r`)
				b.WriteString(g.codePoint(0x85))
				b.WriteString(g.codePoint(0x2028))
				b.WriteString(g.codePoint(0x2029))
			}
		default:
			name := g.propertyName(item.Name)
			if item.Negated {
				b.WriteString(`\P{` + name + `}`)
			} else {
				b.WriteString(`\p{` + name + `}`)
			}
		}

	case ast.ItemDot:
		b.WriteByte('.')
	}
}

// scriptNames is the set of Unicode script names that Java and .NET
// expect with an "Is" prefix. General categories are never prefixed.
var scriptNames = map[string]bool{
	"Arabic": true, "Armenian": true, "Bengali": true, "Cherokee": true,
	"Cyrillic": true, "Devanagari": true, "Ethiopic": true, "Georgian": true,
	"Greek": true, "Gujarati": true, "Gurmukhi": true, "Han": true,
	"Hangul": true, "Hebrew": true, "Hiragana": true, "Kannada": true,
	"Katakana": true, "Khmer": true, "Lao": true, "Latin": true,
	"Malayalam": true, "Mongolian": true, "Myanmar": true, "Ogham": true,
	"Oriya": true, "Runic": true, "Sinhala": true, "Syriac": true,
	"Tamil": true, "Telugu": true, "Thaana": true, "Thai": true,
	"Tibetan": true, "Yi": true,
}

func (g *generator) propertyName(name string) string {
	if g.caps.ScriptPrefix != "" && scriptNames[name] {
		return g.caps.ScriptPrefix + name
	}
	return name
}

// escRune renders a single code point, escaping metacharacters for the
// given context and falling back to a flavor code point escape for
// anything non-graphic.
func (g *generator) escRune(r rune, inClass bool) string {
	switch r {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '\f':
		return `\f`
	}
	if inClass {
		switch r {
		case '\\', ']', '^', '-', '[':
			return `\` + string(r)
		}
	} else {
		switch r {
		case '\\', '.', '+', '*', '?', '(', ')', '|', '[', ']', '{', '}', '^', '$':
			return `\` + string(r)
		}
	}
	// Astral code points are always escaped, so flavors that address the
	// basic plane in surrogate pairs never see a raw four-byte character.
	if r < 0x20 || r == 0x7F || r > 0xFFFF || !unicode.IsGraphic(r) {
		return g.codePoint(r)
	}
	return string(r)
}

func (g *generator) codePoint(r rune) string {
	switch g.caps.CodePoints {
	case flavor.EscapeBraceU:
		return fmt.Sprintf(`\u{%X}`, r)
	case flavor.EscapeU4U8:
		if r <= 0xFFFF {
			return fmt.Sprintf(`\u%04X`, r)
		}
		return fmt.Sprintf(`\U%08X`, r)
	case flavor.EscapeSurrogate:
		if r <= 0xFFFF {
			return fmt.Sprintf(`\u%04X`, r)
		}
		hi, lo := utf16.EncodeRune(r)
		return fmt.Sprintf(`\u%04X\u%04X`, hi, lo)
	default:
		return fmt.Sprintf(`\x{%X}`, r)
	}
}
