// Package numrange compiles an inclusive integer interval into an AST
// fragment matching exactly the digit strings of the values in the
// interval. The construction works digit position by digit position from
// the most significant digit, merging branches whenever the remaining
// suffix interval covers all digits, so the resulting alternation stays
// small.
package numrange

import (
	"github.com/Kyza/pomsky/diag"
	"github.com/Kyza/pomsky/internal/ast"
)

// Compile expands a validated range node. The caller guarantees that both
// bounds contain valid digits for the radix and that lo <= hi numerically;
// when MinWidth is set it must be at least the width of the upper bound.
//
// Without a fixed width the interval is split at digit-length boundaries so
// each alternative has a fixed number of digits and no leading zeros.
// Longer alternatives come first, so engines that take the first matching
// alternative do not stop at a proper prefix of a longer match.
func Compile(r *ast.Range) ast.Node {
	b := &builder{radix: r.Radix, span: r.Span}

	lo := trim(r.Lo)
	hi := trim(r.Hi)

	if r.MinWidth > 0 {
		width := r.MinWidth
		if len(hi) > width {
			width = len(hi)
		}
		return b.fixed(pad(lo, width), pad(hi, width))
	}

	if len(lo) == len(hi) {
		return b.fixed(lo, hi)
	}

	var alts []ast.Node
	for d := len(hi); d >= len(lo); d-- {
		a := lo
		if d > len(lo) {
			// smallest d-digit value without a leading zero
			a = make([]int, d)
			a[0] = 1
		}
		c := hi
		if d < len(hi) {
			c = make([]int, d)
			for i := range c {
				c[i] = b.radix - 1
			}
		}
		alts = append(alts, b.fixed(a, c))
	}
	return &ast.Alternation{Alts: alts, Span: b.span}
}

type builder struct {
	radix int
	span  diag.Span
}

// fixed builds the fragment for an interval whose bounds have the same
// digit count. A shared prefix of identical digits becomes a literal; the
// remainder is handled by spread.
func (b *builder) fixed(lo, hi []int) ast.Node {
	i := 0
	for i < len(lo) && lo[i] == hi[i] {
		i++
	}

	var parts []ast.Node
	if i > 0 {
		parts = append(parts, b.literal(lo[:i]))
	}
	if rest := b.spread(lo[i:], hi[i:]); rest != nil {
		parts = append(parts, rest)
	}
	return b.concat(parts)
}

// spread handles a fixed-width interval whose most significant digits
// differ (lo[0] < hi[0]). It splits into up to three branches: the lower
// bound's first digit with a constrained suffix, a middle block of first
// digits whose suffixes are unconstrained, and the upper bound's first
// digit with a constrained suffix. A branch whose suffix happens to be
// unconstrained is folded into the middle block instead.
func (b *builder) spread(lo, hi []int) ast.Node {
	if len(lo) == 0 {
		return nil
	}
	if len(lo) == 1 {
		return b.class(lo[0], hi[0])
	}

	rest := len(lo) - 1
	midLo := lo[0] + 1
	midHi := hi[0] - 1

	var alts []ast.Node

	if allZero(lo[1:]) {
		midLo = lo[0]
	} else {
		alts = append(alts, b.concat([]ast.Node{
			b.literal(lo[:1]),
			b.fixed(lo[1:], maxDigits(rest, b.radix)),
		}))
	}

	var hiAlt ast.Node
	if allMax(hi[1:], b.radix) {
		midHi = hi[0]
	} else {
		hiAlt = b.concat([]ast.Node{
			b.literal(hi[:1]),
			b.fixed(make([]int, rest), hi[1:]),
		})
	}

	if midLo <= midHi {
		alts = append(alts, b.concat([]ast.Node{
			b.class(midLo, midHi),
			b.anyDigits(rest),
		}))
	}
	if hiAlt != nil {
		alts = append(alts, hiAlt)
	}

	if len(alts) == 1 {
		return alts[0]
	}
	return &ast.Alternation{Alts: alts, Span: b.span}
}

// anyDigits matches exactly n unconstrained digits.
func (b *builder) anyDigits(n int) ast.Node {
	any := b.class(0, b.radix-1)
	if n == 1 {
		return any
	}
	return &ast.Repetition{Inner: any, Min: n, Max: n, Mode: ast.QuantDefault, Span: b.span}
}

// class matches one digit in [lo, hi]. A single digit becomes a literal; a
// range crossing the 9/a boundary becomes two class items.
func (b *builder) class(lo, hi int) ast.Node {
	if lo == hi {
		return b.literal([]int{lo})
	}
	var items []ast.ClassItem
	if lo <= 9 && hi > 9 {
		items = append(items,
			ast.ClassItem{Kind: ast.ItemRange, Lo: digitRune(lo), Hi: '9', Span: b.span},
			ast.ClassItem{Kind: ast.ItemRange, Lo: 'a', Hi: digitRune(hi), Span: b.span},
		)
	} else {
		items = append(items, ast.ClassItem{
			Kind: ast.ItemRange, Lo: digitRune(lo), Hi: digitRune(hi), Span: b.span,
		})
	}
	return &ast.CharClass{Items: items, Span: b.span}
}

func (b *builder) literal(digits []int) ast.Node {
	buf := make([]rune, len(digits))
	for i, d := range digits {
		buf[i] = digitRune(d)
	}
	return &ast.Literal{Text: string(buf), Span: b.span}
}

func (b *builder) concat(parts []ast.Node) ast.Node {
	switch len(parts) {
	case 0:
		return &ast.Literal{Span: b.span}
	case 1:
		return parts[0]
	default:
		return &ast.Concat{Parts: parts, Span: b.span}
	}
}

func digitRune(d int) rune {
	if d < 10 {
		return rune('0' + d)
	}
	return rune('a' + d - 10)
}

func trim(digits []uint8) []int {
	i := 0
	for i < len(digits)-1 && digits[i] == 0 {
		i++
	}
	out := make([]int, len(digits)-i)
	for j, d := range digits[i:] {
		out[j] = int(d)
	}
	return out
}

func pad(digits []int, width int) []int {
	if len(digits) >= width {
		return digits
	}
	out := make([]int, width)
	copy(out[width-len(digits):], digits)
	return out
}

func maxDigits(n, radix int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = radix - 1
	}
	return out
}

func allZero(digits []int) bool {
	for _, d := range digits {
		if d != 0 {
			return false
		}
	}
	return true
}

func allMax(digits []int, radix int) bool {
	for _, d := range digits {
		if d != radix-1 {
			return false
		}
	}
	return true
}
