// Package ast defines the abstract syntax tree shared by the parser,
// resolver and code generator. The tree is flavor-agnostic: whether a node
// can be expressed for a given target engine is decided by the resolver,
// never by the grammar.
package ast

import "github.com/Kyza/pomsky/diag"

// Kind identifies the type of AST node.
type Kind int

const (
	KindLiteral Kind = iota
	KindCharClass
	KindDot
	KindGrapheme
	KindGroup
	KindAlternation
	KindConcat
	KindRepetition
	KindBoundary
	KindLookaround
	KindVariable
	KindReference
	KindRange
	KindStmtExpr
	KindError
)

// Node is the base interface for AST nodes. Every node carries the span of
// the source text it was parsed from.
type Node interface {
	Kind() Kind
	span() diag.Span
}

// Span returns the source span of a node, or the zero span for nil.
func Span(n Node) diag.Span {
	if n == nil {
		return diag.Span{}
	}
	return n.span()
}

// Literal matches a fixed sequence of code points.
type Literal struct {
	Text string
	Span diag.Span
}

func (n *Literal) Kind() Kind      { return KindLiteral }
func (n *Literal) span() diag.Span { return n.Span }

// ItemKind identifies the type of a character class item.
type ItemKind int

const (
	ItemRange ItemKind = iota // 'a'-'z', or a single code point with Lo == Hi
	ItemNamed                 // a shorthand (word, digit, ...) or Unicode property
	ItemDot                   // [.] (deprecated)
)

// ClassItem is one member of a character class.
type ClassItem struct {
	Kind ItemKind
	Span diag.Span

	Lo, Hi rune // ItemRange

	Name    string // ItemNamed
	Negated bool   // ItemNamed, e.g. [!word]
}

// CharClass matches one code point out of a set described by its items.
type CharClass struct {
	Items   []ClassItem
	Negated bool
	Span    diag.Span
}

func (n *CharClass) Kind() Kind      { return KindCharClass }
func (n *CharClass) span() diag.Span { return n.Span }

// Dot matches any code point except a line break.
type Dot struct {
	Span diag.Span
}

func (n *Dot) Kind() Kind      { return KindDot }
func (n *Dot) span() diag.Span { return n.Span }

// Grapheme matches a single Unicode grapheme cluster.
type Grapheme struct {
	Span diag.Span
}

func (n *Grapheme) Kind() Kind      { return KindGrapheme }
func (n *Grapheme) span() diag.Span { return n.Span }

// GroupKind distinguishes the group forms.
type GroupKind int

const (
	GroupNone    GroupKind = iota // plain parentheses, not capturing
	GroupCapture                  // :(...) or :name(...)
	GroupAtomic                   // atomic(...)
)

// Group is a sequence of parts, possibly capturing or atomic.
type Group struct {
	Parts []Node
	Gkind GroupKind
	Name  string // optional, GroupCapture only

	// Index is the final capture group number, assigned by the resolver in
	// declaration order. Zero until resolved or for non-capturing groups.
	Index int

	Span diag.Span
}

func (n *Group) Kind() Kind      { return KindGroup }
func (n *Group) span() diag.Span { return n.Span }

// Alternation matches one of its alternatives, tried in order.
type Alternation struct {
	Alts []Node
	Span diag.Span
}

func (n *Alternation) Kind() Kind      { return KindAlternation }
func (n *Alternation) span() diag.Span { return n.Span }

// Concat matches its parts in sequence.
type Concat struct {
	Parts []Node
	Span  diag.Span
}

func (n *Concat) Kind() Kind      { return KindConcat }
func (n *Concat) span() diag.Span { return n.Span }

// Quant is the greediness mode of a repetition.
type Quant int

const (
	QuantDefault    Quant = iota // no suffix; resolver substitutes the ambient mode
	QuantGreedy                  // explicit `greedy`
	QuantLazy                    // explicit `lazy`
	QuantPossessive              // explicit `possessive`
)

// Repetition repeats its inner node between Min and Max times.
type Repetition struct {
	Inner Node
	Min   int
	Max   int // -1 for unbounded
	Mode  Quant
	Span  diag.Span
}

func (n *Repetition) Kind() Kind      { return KindRepetition }
func (n *Repetition) span() diag.Span { return n.Span }

// BoundaryKind identifies an assertion.
type BoundaryKind int

const (
	BoundaryStart   BoundaryKind = iota // ^
	BoundaryEnd                         // $
	BoundaryWord                        // %
	BoundaryNotWord                     // !%
)

// Boundary is a zero-width position assertion.
type Boundary struct {
	Bkind BoundaryKind
	Span  diag.Span
}

func (n *Boundary) Kind() Kind      { return KindBoundary }
func (n *Boundary) span() diag.Span { return n.Span }

// Lookaround is a zero-width assertion over a sub-expression.
type Lookaround struct {
	Inner    Node
	Behind   bool
	Negative bool
	Span     diag.Span
}

func (n *Lookaround) Kind() Kind      { return KindLookaround }
func (n *Lookaround) span() diag.Span { return n.Span }

// Variable references a `let` binding or a builtin by name. Variables do
// not survive resolution; the resolver replaces each one with a copy of its
// definition.
type Variable struct {
	Name string
	Span diag.Span
}

func (n *Variable) Kind() Kind      { return KindVariable }
func (n *Variable) span() diag.Span { return n.Span }

// RefTarget identifies how a reference names its group.
type RefTarget int

const (
	RefNamed    RefTarget = iota // ::name
	RefNumber                    // ::3
	RefRelative                  // ::-1 or ::+1
)

// Reference is a backreference to a capturing group.
type Reference struct {
	Target RefTarget
	Name   string // RefNamed
	Num    int    // RefNumber (1-based) or RefRelative (signed offset)

	// Index is the referenced group's final number, filled in by the
	// resolver.
	Index int

	Span diag.Span
}

func (n *Reference) Kind() Kind      { return KindReference }
func (n *Reference) span() diag.Span { return n.Span }

// Range matches the textual representations of the integers in an inclusive
// interval. Bounds are digit vectors, most significant digit first. The
// resolver expands ranges via the range compiler.
type Range struct {
	Lo, Hi []uint8
	Radix  int

	// MinWidth forces zero-padding to a fixed number of digits; zero means
	// natural widths without leading zeros.
	MinWidth int

	Span diag.Span
}

func (n *Range) Kind() Kind      { return KindRange }
func (n *Range) span() diag.Span { return n.Span }

// Stmt is a statement prefix: a `let` binding or a mode modifier.
type Stmt interface {
	stmtNode()
}

// LetStmt binds a name to an expression for the rest of the block.
type LetStmt struct {
	Name     string
	NameSpan diag.Span
	Expr     Node
}

func (*LetStmt) stmtNode() {}

// ModeStmt is `enable lazy;` or `disable lazy;`.
type ModeStmt struct {
	Enable bool
}

func (*ModeStmt) stmtNode() {}

// StmtExpr scopes a statement over an expression.
type StmtExpr struct {
	Stmt Stmt
	Body Node
	Span diag.Span
}

func (n *StmtExpr) Kind() Kind      { return KindStmtExpr }
func (n *StmtExpr) span() diag.Span { return n.Span }

// Error is a placeholder synthesized by the parser when it recovers from a
// syntax error, or by the resolver when a subtree cannot be analyzed
// further. It never reaches code generation: any error diagnostic prevents
// output.
type Error struct {
	Span diag.Span
}

func (n *Error) Kind() Kind      { return KindError }
func (n *Error) span() diag.Span { return n.Span }
