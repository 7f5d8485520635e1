// Package resolver performs semantic analysis on the parsed tree: it binds
// `let` names, expands variables, assigns capture group indices, validates
// references, expands numeric ranges and rejects constructs the selected
// flavor cannot express. The input tree is never mutated; resolution
// produces a new tree in which every variable is replaced by its
// definition, every repetition carries a concrete greediness mode, and
// every group and reference carries its final index.
package resolver

import (
	"unicode/utf8"

	"github.com/Kyza/pomsky/diag"
	"github.com/Kyza/pomsky/flavor"
	"github.com/Kyza/pomsky/internal/ast"
	"github.com/Kyza/pomsky/internal/numrange"
)

// Options configures resolution limits.
type Options struct {
	// MaxDepth bounds variable expansion nesting. Zero means the default
	// of 32.
	MaxDepth int

	// MaxRangeSize bounds the number of digits in a `range` expression.
	// Zero means the default of 12.
	MaxRangeSize int
}

const (
	defaultMaxDepth     = 32
	defaultMaxRangeSize = 12
)

// Resolve analyzes root for the given capability descriptor. Errors are
// accumulated rather than aborting, so one invocation reports every
// independent problem; a subtree whose analysis became meaningless is
// replaced by an Error placeholder and not descended further.
func Resolve(root ast.Node, caps flavor.Caps, opts Options) (ast.Node, []diag.Diagnostic) {
	if opts.MaxDepth == 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	if opts.MaxRangeSize == 0 {
		opts.MaxRangeSize = defaultMaxRangeSize
	}

	r := &resolver{caps: caps, opts: opts}
	r.collectGroups(root, false)
	resolved := r.resolve(root)
	return resolved, r.diags
}

type groupEntry struct {
	name  string
	index int
	start int // byte offset of the declaration, for forward-reference checks
}

type binding struct {
	name string
	expr ast.Node
	// defDepth is the binding stack length at definition time; expansions
	// resolve against exactly that prefix to get lexical scoping.
	defDepth int
}

type resolver struct {
	caps  flavor.Caps
	opts  Options
	diags []diag.Diagnostic

	groups  []groupEntry
	byName  map[string]groupEntry
	byStart map[int]groupEntry

	bindings []binding
	lazyMode bool
	expDepth int
}

func (r *resolver) errorf(code diag.Code, span diag.Span, format string, args ...interface{}) {
	r.diags = append(r.diags, diag.Error(code, span, format, args...))
}

// collectGroups walks the tree in document order, assigning capture group
// indices and rejecting duplicate names. It also rejects references and
// capturing groups inside `let` bodies, since a variable may be expanded
// more than once.
func (r *resolver) collectGroups(n ast.Node, inLet bool) {
	if r.byName == nil {
		r.byName = make(map[string]groupEntry)
		r.byStart = make(map[int]groupEntry)
	}
	switch v := n.(type) {
	case *ast.Group:
		if v.Gkind == ast.GroupCapture {
			if inLet {
				r.errorf(diag.CodeReferenceInLet, v.Span,
					"capturing groups are not allowed inside `let` bindings")
			} else {
				entry := groupEntry{name: v.Name, index: len(r.groups) + 1, start: v.Span.Start}
				if v.Name != "" {
					if _, dup := r.byName[v.Name]; dup {
						r.errorf(diag.CodeDuplicateGroupName, v.Span,
							"the group name `%s` is used more than once", v.Name)
					} else {
						r.byName[v.Name] = entry
					}
				}
				r.groups = append(r.groups, entry)
				r.byStart[v.Span.Start] = entry
			}
		}
		for _, part := range v.Parts {
			r.collectGroups(part, inLet)
		}
	case *ast.Reference:
		if inLet {
			r.errorf(diag.CodeReferenceInLet, v.Span,
				"references are not allowed inside `let` bindings")
		}
	case *ast.Alternation:
		for _, alt := range v.Alts {
			r.collectGroups(alt, inLet)
		}
	case *ast.Concat:
		for _, part := range v.Parts {
			r.collectGroups(part, inLet)
		}
	case *ast.Repetition:
		r.collectGroups(v.Inner, inLet)
	case *ast.Lookaround:
		r.collectGroups(v.Inner, inLet)
	case *ast.StmtExpr:
		if let, ok := v.Stmt.(*ast.LetStmt); ok {
			r.collectGroups(let.Expr, true)
		}
		r.collectGroups(v.Body, inLet)
	}
}

func (r *resolver) resolve(n ast.Node) ast.Node {
	switch v := n.(type) {
	case *ast.Literal:
		return &ast.Literal{Text: v.Text, Span: v.Span}

	case *ast.Dot:
		return &ast.Dot{Span: v.Span}

	case *ast.Grapheme:
		if !r.caps.Grapheme {
			r.errorf(diag.CodeUnsupported, v.Span,
				"`Grapheme` is not supported by %s", r.caps.Name)
		}
		return &ast.Grapheme{Span: v.Span}

	case *ast.Boundary:
		return &ast.Boundary{Bkind: v.Bkind, Span: v.Span}

	case *ast.CharClass:
		return r.resolveClass(v)

	case *ast.Group:
		return r.resolveGroup(v)

	case *ast.Alternation:
		alts := make([]ast.Node, len(v.Alts))
		for i, alt := range v.Alts {
			alts[i] = r.resolve(alt)
		}
		return &ast.Alternation{Alts: alts, Span: v.Span}

	case *ast.Concat:
		parts := make([]ast.Node, len(v.Parts))
		for i, part := range v.Parts {
			parts[i] = r.resolve(part)
		}
		return &ast.Concat{Parts: parts, Span: v.Span}

	case *ast.Repetition:
		return r.resolveRepetition(v)

	case *ast.Lookaround:
		return r.resolveLookaround(v)

	case *ast.Variable:
		return r.resolveVariable(v)

	case *ast.Reference:
		return r.resolveReference(v)

	case *ast.Range:
		return r.resolveRange(v)

	case *ast.StmtExpr:
		switch stmt := v.Stmt.(type) {
		case *ast.LetStmt:
			r.bindings = append(r.bindings, binding{
				name:     stmt.Name,
				expr:     stmt.Expr,
				defDepth: len(r.bindings),
			})
			body := r.resolve(v.Body)
			r.bindings = r.bindings[:len(r.bindings)-1]
			return body
		case *ast.ModeStmt:
			prev := r.lazyMode
			r.lazyMode = stmt.Enable
			body := r.resolve(v.Body)
			r.lazyMode = prev
			return body
		}
		return &ast.Error{Span: v.Span}

	case *ast.Error:
		return &ast.Error{Span: v.Span}
	}
	r.diags = append(r.diags, diag.Internal(ast.Span(n), "unknown AST node kind"))
	return &ast.Error{Span: ast.Span(n)}
}

func (r *resolver) resolveClass(v *ast.CharClass) ast.Node {
	// the deprecated `[.]` means the dot atom, not a literal dot
	if len(v.Items) == 1 && v.Items[0].Kind == ast.ItemDot {
		if v.Negated {
			return &ast.Literal{Text: "\n", Span: v.Span}
		}
		return &ast.Dot{Span: v.Span}
	}
	for _, item := range v.Items {
		if item.Kind != ast.ItemNamed {
			continue
		}
		switch item.Name {
		case "horiz_space", "vert_space":
			// without native \h and \v a negated shorthand cannot be
			// expressed as a class member
			if item.Negated && !r.caps.HorizVertSpace {
				r.errorf(diag.CodeUnsupported, item.Span,
					"negated `%s` inside a character class is not supported by %s",
					item.Name, r.caps.Name)
			}
		}
	}
	items := make([]ast.ClassItem, len(v.Items))
	copy(items, v.Items)
	return &ast.CharClass{Items: items, Negated: v.Negated, Span: v.Span}
}

func (r *resolver) resolveGroup(v *ast.Group) ast.Node {
	index := 0
	if v.Gkind == ast.GroupCapture {
		if entry, ok := r.byStart[v.Span.Start]; ok {
			index = entry.index
		}
		if v.Name != "" && !r.caps.NamedGroups {
			r.errorf(diag.CodeUnsupported, v.Span,
				"named capturing groups are not supported by %s", r.caps.Name)
		}
	}
	if v.Gkind == ast.GroupAtomic && !r.caps.AtomicGroups {
		r.errorf(diag.CodeUnsupported, v.Span,
			"atomic groups are not supported by %s", r.caps.Name)
	}
	parts := make([]ast.Node, len(v.Parts))
	for i, part := range v.Parts {
		parts[i] = r.resolve(part)
	}
	return &ast.Group{Parts: parts, Gkind: v.Gkind, Name: v.Name, Index: index, Span: v.Span}
}

func (r *resolver) resolveRepetition(v *ast.Repetition) ast.Node {
	mode := v.Mode
	if mode == ast.QuantDefault {
		if r.lazyMode {
			mode = ast.QuantLazy
		} else {
			mode = ast.QuantGreedy
		}
	}
	if mode == ast.QuantPossessive && !r.caps.PossessiveQuantifiers && !r.caps.AtomicGroups {
		r.errorf(diag.CodeUnsupported, v.Span,
			"possessive quantifiers are not supported by %s", r.caps.Name)
	}
	return &ast.Repetition{
		Inner: r.resolve(v.Inner),
		Min:   v.Min,
		Max:   v.Max,
		Mode:  mode,
		Span:  v.Span,
	}
}

func (r *resolver) resolveLookaround(v *ast.Lookaround) ast.Node {
	if !r.caps.Lookaround {
		r.errorf(diag.CodeUnsupported, v.Span,
			"lookahead and lookbehind are not supported by %s", r.caps.Name)
		return &ast.Error{Span: v.Span}
	}
	inner := r.resolve(v.Inner)
	if v.Behind && r.caps.LookbehindFixedLen {
		if _, fixed := fixedLen(inner); !fixed {
			r.errorf(diag.CodeUnsupported, v.Span,
				"%s only supports lookbehind with a fixed match length", r.caps.Name)
		}
	}
	return &ast.Lookaround{Inner: inner, Behind: v.Behind, Negative: v.Negative, Span: v.Span}
}

// builtinVariable returns the definition of a builtin name, or nil.
func builtinVariable(name string, span diag.Span) ast.Node {
	switch name {
	case "Start":
		return &ast.Boundary{Bkind: ast.BoundaryStart, Span: span}
	case "End":
		return &ast.Boundary{Bkind: ast.BoundaryEnd, Span: span}
	case "Grapheme", "G":
		return &ast.Grapheme{Span: span}
	case "Codepoint", "C":
		return &ast.CharClass{
			Items: []ast.ClassItem{
				{Kind: ast.ItemNamed, Name: "space", Span: span},
				{Kind: ast.ItemNamed, Name: "space", Negated: true, Span: span},
			},
			Span: span,
		}
	}
	return nil
}

func (r *resolver) resolveVariable(v *ast.Variable) ast.Node {
	for i := len(r.bindings) - 1; i >= 0; i-- {
		b := r.bindings[i]
		if b.name != v.Name {
			continue
		}
		if r.expDepth >= r.opts.MaxDepth {
			r.errorf(diag.CodeRecursionDepth, v.Span,
				"expanding `%s` exceeds the maximum nesting depth of %d",
				v.Name, r.opts.MaxDepth)
			return &ast.Error{Span: v.Span}
		}
		// resolve the definition in its own lexical scope; copy so nested
		// lets inside the definition cannot overwrite outer bindings
		saved := r.bindings
		r.bindings = append([]binding(nil), r.bindings[:b.defDepth]...)
		r.expDepth++
		expanded := r.resolve(b.expr)
		r.expDepth--
		r.bindings = saved
		return expanded
	}

	if def := builtinVariable(v.Name, v.Span); def != nil {
		return r.resolve(def)
	}

	r.errorf(diag.CodeUndefinedVariable, v.Span, "the variable `%s` is not defined", v.Name)
	return &ast.Error{Span: v.Span}
}

func (r *resolver) resolveReference(v *ast.Reference) ast.Node {
	if !r.caps.Backreferences {
		r.errorf(diag.CodeUnsupported, v.Span,
			"backreferences are not supported by %s", r.caps.Name)
		return &ast.Error{Span: v.Span}
	}

	var entry groupEntry
	switch v.Target {
	case ast.RefNamed:
		e, ok := r.byName[v.Name]
		if !ok {
			r.errorf(diag.CodeUnresolvedReference, v.Span,
				"there is no group named `%s`", v.Name)
			return &ast.Error{Span: v.Span}
		}
		entry = e

	case ast.RefNumber:
		if v.Num < 1 || v.Num > len(r.groups) {
			r.errorf(diag.CodeUnresolvedReference, v.Span,
				"there is no group number %d", v.Num)
			return &ast.Error{Span: v.Span}
		}
		entry = r.groups[v.Num-1]

	case ast.RefRelative:
		if v.Num == 0 {
			r.errorf(diag.CodeUnresolvedReference, v.Span,
				"a relative reference cannot be zero")
			return &ast.Error{Span: v.Span}
		}
		if v.Num > 0 {
			if !r.caps.ForwardReferences {
				r.errorf(diag.CodeForwardReference, v.Span,
					"%s does not support references to groups that are declared later", r.caps.Name)
				return &ast.Error{Span: v.Span}
			}
		}
		// count the groups declared before this reference
		preceding := 0
		for _, g := range r.groups {
			if g.start < v.Span.Start {
				preceding++
			}
		}
		idx := preceding + v.Num
		if v.Num > 0 {
			idx = preceding + v.Num - 1
		}
		if idx < 0 || idx >= len(r.groups) {
			r.errorf(diag.CodeUnresolvedReference, v.Span,
				"the relative reference `%+d` does not match any group", v.Num)
			return &ast.Error{Span: v.Span}
		}
		entry = r.groups[idx]
	}

	// a reference must point to a group declared earlier in document order
	if entry.start >= v.Span.Start && !r.caps.ForwardReferences {
		r.errorf(diag.CodeForwardReference, v.Span,
			"%s does not support references to groups that are declared later", r.caps.Name)
		return &ast.Error{Span: v.Span}
	}

	return &ast.Reference{
		Target: v.Target,
		Name:   v.Name,
		Num:    v.Num,
		Index:  entry.index,
		Span:   v.Span,
	}
}

func (r *resolver) resolveRange(v *ast.Range) ast.Node {
	if len(v.Hi) > r.opts.MaxRangeSize {
		r.errorf(diag.CodeRangeSize, v.Span,
			"this range is too large; the maximum number of digits is %d", r.opts.MaxRangeSize)
		return &ast.Error{Span: v.Span}
	}
	return r.resolve(numrange.Compile(v))
}

// fixedLen computes the match length of a resolved subtree in code points,
// reporting whether it is the same for every possible match.
func fixedLen(n ast.Node) (int, bool) {
	switch v := n.(type) {
	case *ast.Literal:
		return utf8.RuneCountInString(v.Text), true
	case *ast.CharClass, *ast.Dot:
		return 1, true
	case *ast.Boundary, *ast.Lookaround:
		return 0, true
	case *ast.Group:
		total := 0
		for _, part := range v.Parts {
			l, ok := fixedLen(part)
			if !ok {
				return 0, false
			}
			total += l
		}
		return total, true
	case *ast.Concat:
		total := 0
		for _, part := range v.Parts {
			l, ok := fixedLen(part)
			if !ok {
				return 0, false
			}
			total += l
		}
		return total, true
	case *ast.Alternation:
		first := -1
		for _, alt := range v.Alts {
			l, ok := fixedLen(alt)
			if !ok {
				return 0, false
			}
			if first == -1 {
				first = l
			} else if l != first {
				return 0, false
			}
		}
		if first == -1 {
			return 0, true
		}
		return first, true
	case *ast.Repetition:
		if v.Min != v.Max {
			return 0, false
		}
		l, ok := fixedLen(v.Inner)
		if !ok {
			return 0, false
		}
		return l * v.Min, true
	}
	return 0, false
}
