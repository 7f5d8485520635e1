package parser

import (
	"testing"

	"github.com/Kyza/pomsky/diag"
	"github.com/Kyza/pomsky/internal/ast"
)

func parseOK(t *testing.T, src string) ast.Node {
	t.Helper()
	root, diags := Parse(src)
	for _, d := range diags {
		if d.IsError() {
			t.Fatalf("Parse(%q) failed: %v", src, d)
		}
	}
	return root
}

func parseErrs(t *testing.T, src string) []diag.Diagnostic {
	t.Helper()
	_, diags := Parse(src)
	if !diag.HasErrors(diags) {
		t.Fatalf("Parse(%q) succeeded, want an error", src)
	}
	return diags
}

func TestPrecedence(t *testing.T) {
	// alternation binds loosest, repetition tightest
	root := parseOK(t, "'a' | 'b' 'c'+")
	alt, ok := root.(*ast.Alternation)
	if !ok {
		t.Fatalf("root = %T, want *ast.Alternation", root)
	}
	if len(alt.Alts) != 2 {
		t.Fatalf("len(Alts) = %d, want 2", len(alt.Alts))
	}
	concat, ok := alt.Alts[1].(*ast.Concat)
	if !ok {
		t.Fatalf("Alts[1] = %T, want *ast.Concat", alt.Alts[1])
	}
	rep, ok := concat.Parts[1].(*ast.Repetition)
	if !ok {
		t.Fatalf("Parts[1] = %T, want *ast.Repetition", concat.Parts[1])
	}
	if rep.Min != 1 || rep.Max != -1 {
		t.Errorf("rep bounds = {%d,%d}, want {1,-1}", rep.Min, rep.Max)
	}
}

func TestRepetitionForms(t *testing.T) {
	tests := []struct {
		input    string
		min, max int
		mode     ast.Quant
	}{
		{"'a'?", 0, 1, ast.QuantDefault},
		{"'a'*", 0, -1, ast.QuantDefault},
		{"'a'+", 1, -1, ast.QuantDefault},
		{"'a'{3}", 3, 3, ast.QuantDefault},
		{"'a'{2,}", 2, -1, ast.QuantDefault},
		{"'a'{,5}", 0, 5, ast.QuantDefault},
		{"'a'{2,5}", 2, 5, ast.QuantDefault},
		{"'a'+ lazy", 1, -1, ast.QuantLazy},
		{"'a'* greedy", 0, -1, ast.QuantGreedy},
		{"'a'{2,5} possessive", 2, 5, ast.QuantPossessive},
	}

	for _, tt := range tests {
		root := parseOK(t, tt.input)
		rep, ok := root.(*ast.Repetition)
		if !ok {
			t.Errorf("Parse(%q) = %T, want *ast.Repetition", tt.input, root)
			continue
		}
		if rep.Min != tt.min || rep.Max != tt.max || rep.Mode != tt.mode {
			t.Errorf("Parse(%q) = {%d,%d,%v}, want {%d,%d,%v}",
				tt.input, rep.Min, rep.Max, rep.Mode, tt.min, tt.max, tt.mode)
		}
	}
}

func TestRepetitionSyntaxErrors(t *testing.T) {
	// `?` and `+` directly after another repetition are rejected
	for _, src := range []string{"'a'+?", "'a'??", "'a'{2}+", "'a'*+"} {
		diags := parseErrs(t, src)
		found := false
		for _, d := range diags {
			if d.Code == diag.CodeRepetitionSyntax {
				found = true
			}
		}
		if !found {
			t.Errorf("Parse(%q): no repetition syntax error in %v", src, diags)
		}
	}

	// an explicit greediness suffix resets the rule
	parseOK(t, "'a'+ lazy ?")
}

func TestQuantifierBoundsError(t *testing.T) {
	diags := parseErrs(t, "'a'{5,2}")
	found := false
	for _, d := range diags {
		if d.Code == diag.CodeMalformedQuantifier {
			found = true
		}
	}
	if !found {
		t.Errorf("no malformed quantifier error in %v", diags)
	}
}

func TestGroups(t *testing.T) {
	root := parseOK(t, ":year('x' 'y')")
	g, ok := root.(*ast.Group)
	if !ok {
		t.Fatalf("root = %T, want *ast.Group", root)
	}
	if g.Gkind != ast.GroupCapture || g.Name != "year" {
		t.Errorf("group = {%v, %q}, want capture named year", g.Gkind, g.Name)
	}
	if len(g.Parts) != 2 {
		t.Errorf("len(Parts) = %d, want 2", len(g.Parts))
	}

	root = parseOK(t, ":('x')")
	g = root.(*ast.Group)
	if g.Gkind != ast.GroupCapture || g.Name != "" {
		t.Errorf("group = {%v, %q}, want unnamed capture", g.Gkind, g.Name)
	}

	root = parseOK(t, "atomic('x')")
	g = root.(*ast.Group)
	if g.Gkind != ast.GroupAtomic {
		t.Errorf("Gkind = %v, want GroupAtomic", g.Gkind)
	}
}

func TestKeywordAsGroupName(t *testing.T) {
	diags := parseErrs(t, ":lazy('x')")
	found := false
	for _, d := range diags {
		if d.Code == diag.CodeKeywordAsName {
			found = true
		}
	}
	if !found {
		t.Errorf("no keyword error in %v", diags)
	}
}

func TestNegation(t *testing.T) {
	root := parseOK(t, "!%")
	b := root.(*ast.Boundary)
	if b.Bkind != ast.BoundaryNotWord {
		t.Errorf("Bkind = %v, want BoundaryNotWord", b.Bkind)
	}

	root = parseOK(t, "!['a']")
	c := root.(*ast.CharClass)
	if !c.Negated {
		t.Error("class should be negated")
	}

	root = parseOK(t, "!!['a']")
	c = root.(*ast.CharClass)
	if c.Negated {
		t.Error("double negation should cancel")
	}

	root = parseOK(t, "!>> 'a'")
	l := root.(*ast.Lookaround)
	if !l.Negative || l.Behind {
		t.Errorf("lookaround = {behind %v, negative %v}, want negative lookahead", l.Behind, l.Negative)
	}

	diags := parseErrs(t, "!'a'")
	if diags[0].Code != diag.CodeNegation {
		t.Errorf("code = %v, want CodeNegation", diags[0].Code)
	}
}

func TestLookaround(t *testing.T) {
	root := parseOK(t, "<< 'a' | 'b'")
	l, ok := root.(*ast.Lookaround)
	if !ok {
		t.Fatalf("root = %T, want *ast.Lookaround", root)
	}
	if !l.Behind || l.Negative {
		t.Errorf("lookaround = {behind %v, negative %v}, want plain lookbehind", l.Behind, l.Negative)
	}
	// the lookaround body extends over the whole alternation
	if _, ok := l.Inner.(*ast.Alternation); !ok {
		t.Errorf("Inner = %T, want *ast.Alternation", l.Inner)
	}
}

func TestStatements(t *testing.T) {
	root := parseOK(t, "let x = 'a'; enable lazy; x+")
	outer, ok := root.(*ast.StmtExpr)
	if !ok {
		t.Fatalf("root = %T, want *ast.StmtExpr", root)
	}
	let, ok := outer.Stmt.(*ast.LetStmt)
	if !ok {
		t.Fatalf("Stmt = %T, want *ast.LetStmt", outer.Stmt)
	}
	if let.Name != "x" {
		t.Errorf("Name = %q, want x", let.Name)
	}
	inner, ok := outer.Body.(*ast.StmtExpr)
	if !ok {
		t.Fatalf("Body = %T, want *ast.StmtExpr", outer.Body)
	}
	mode, ok := inner.Stmt.(*ast.ModeStmt)
	if !ok || !mode.Enable {
		t.Errorf("inner statement = %#v, want enable lazy", inner.Stmt)
	}
}

func TestDuplicateLet(t *testing.T) {
	diags := parseErrs(t, "let x = 'a'; let x = 'b'; x")
	if diags[0].Code != diag.CodeDuplicateBinding {
		t.Errorf("code = %v, want CodeDuplicateBinding", diags[0].Code)
	}

	// the same name in a nested block is a new scope
	parseOK(t, "let x = 'a'; (let x = 'b'; x) x")
}

func TestLonePipe(t *testing.T) {
	parseOK(t, "| 'a' | 'b'") // leading pipe is tolerated
	parseErrs(t, "'a' |")
	parseErrs(t, "|")
}

func TestCharClass(t *testing.T) {
	root := parseOK(t, "['a'-'z' '0'-'9' '_']")
	c := root.(*ast.CharClass)
	if len(c.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(c.Items))
	}
	if c.Items[0].Lo != 'a' || c.Items[0].Hi != 'z' {
		t.Errorf("Items[0] = %c-%c, want a-z", c.Items[0].Lo, c.Items[0].Hi)
	}
	if c.Items[2].Lo != '_' || c.Items[2].Hi != '_' {
		t.Errorf("Items[2] = %c-%c, want _", c.Items[2].Lo, c.Items[2].Hi)
	}

	// a multi-character string adds each character
	root = parseOK(t, "['abc']")
	c = root.(*ast.CharClass)
	if len(c.Items) != 3 {
		t.Errorf("len(Items) = %d, want 3", len(c.Items))
	}

	// shorthands and negated shorthands
	root = parseOK(t, "[word !s]")
	c = root.(*ast.CharClass)
	if c.Items[0].Name != "word" || c.Items[0].Negated {
		t.Errorf("Items[0] = %+v, want word", c.Items[0])
	}
	if c.Items[1].Name != "space" || !c.Items[1].Negated {
		t.Errorf("Items[1] = %+v, want negated space", c.Items[1])
	}

	// Unicode property names pass through
	root = parseOK(t, "[Latin]")
	c = root.(*ast.CharClass)
	if c.Items[0].Name != "Latin" {
		t.Errorf("Items[0].Name = %q, want Latin", c.Items[0].Name)
	}

	// special character identifiers, including as range endpoints
	root = parseOK(t, "[n t U+20-U+7E]")
	c = root.(*ast.CharClass)
	if c.Items[0].Lo != '\n' || c.Items[1].Lo != '\t' {
		t.Errorf("special chars = %q %q, want \\n \\t", c.Items[0].Lo, c.Items[1].Lo)
	}
	if c.Items[2].Lo != 0x20 || c.Items[2].Hi != 0x7E {
		t.Errorf("Items[2] = %U-%U, want U+20-U+7E", c.Items[2].Lo, c.Items[2].Hi)
	}
}

func TestCharClassErrors(t *testing.T) {
	tests := []struct {
		input string
		code  diag.Code
	}{
		{"[]", diag.CodeCharClass},
		{"[^'a']", diag.CodeCharClass},
		{"['z'-'a']", diag.CodeCharClass},
		{"['ab'-'c']", diag.CodeCharClass},
		{"[banana]", diag.CodeCharClass},
		{"['a'", diag.CodeUnbalancedDelimiter},
	}

	for _, tt := range tests {
		diags := parseErrs(t, tt.input)
		found := false
		for _, d := range diags {
			if d.Code == tt.code {
				found = true
			}
		}
		if !found {
			t.Errorf("Parse(%q): no %v in %v", tt.input, tt.code, diags)
		}
	}
}

func TestDeprecations(t *testing.T) {
	_, diags := Parse("<% 'a' %>")
	warnings := 0
	for _, d := range diags {
		if d.Code == diag.CodeDeprecated {
			warnings++
		}
	}
	if warnings != 2 {
		t.Errorf("got %d deprecation warnings, want 2", warnings)
	}

	_, diags = Parse("[.]")
	if len(diags) != 1 || diags[0].Code != diag.CodeDeprecated {
		t.Errorf("[.] should produce exactly one deprecation warning, got %v", diags)
	}
}

func TestDotAloneInClass(t *testing.T) {
	diags := parseErrs(t, "[. 'a']")
	found := false
	for _, d := range diags {
		if d.Code == diag.CodeCharClass {
			found = true
		}
	}
	if !found {
		t.Errorf("no class error in %v", diags)
	}
}

func TestRangeParsing(t *testing.T) {
	root := parseOK(t, "range '0'-'255'")
	r := root.(*ast.Range)
	if len(r.Lo) != 1 || r.Lo[0] != 0 {
		t.Errorf("Lo = %v, want [0]", r.Lo)
	}
	if len(r.Hi) != 3 || r.Hi[0] != 2 || r.Hi[1] != 5 || r.Hi[2] != 5 {
		t.Errorf("Hi = %v, want [2 5 5]", r.Hi)
	}
	if r.Radix != 10 || r.MinWidth != 0 {
		t.Errorf("radix/minwidth = %d/%d, want 10/0", r.Radix, r.MinWidth)
	}

	root = parseOK(t, "range '00'-'59'")
	r = root.(*ast.Range)
	if r.MinWidth != 2 {
		t.Errorf("MinWidth = %d, want 2", r.MinWidth)
	}

	root = parseOK(t, "range '0'-'ff' base 16")
	r = root.(*ast.Range)
	if r.Radix != 16 || r.Hi[0] != 15 || r.Hi[1] != 15 {
		t.Errorf("base 16 range = radix %d, Hi %v", r.Radix, r.Hi)
	}
}

func TestRangeErrors(t *testing.T) {
	tests := []struct {
		input string
		code  diag.Code
	}{
		{"range '9'-'2'", diag.CodeRangeBounds},
		{"range '010'-'99'", diag.CodeRangeBounds},
		{"range '0'-'2' base 1", diag.CodeRangeBounds},
		{"range '0'-'2' base 37", diag.CodeRangeBounds},
		{"range '0'-'f'", diag.CodeRangeDigit},
		{"range '0'-'5' base 4", diag.CodeRangeDigit},
		{"range '0'-'z' base 16", diag.CodeRangeDigit},
	}

	for _, tt := range tests {
		diags := parseErrs(t, tt.input)
		found := false
		for _, d := range diags {
			if d.Code == tt.code {
				found = true
			}
		}
		if !found {
			t.Errorf("Parse(%q): no %v in %v", tt.input, tt.code, diags)
		}
	}
}

func TestReferences(t *testing.T) {
	root := parseOK(t, "::name")
	ref := root.(*ast.Reference)
	if ref.Target != ast.RefNamed || ref.Name != "name" {
		t.Errorf("ref = %+v, want named", ref)
	}

	root = parseOK(t, "::3")
	ref = root.(*ast.Reference)
	if ref.Target != ast.RefNumber || ref.Num != 3 {
		t.Errorf("ref = %+v, want number 3", ref)
	}

	root = parseOK(t, "::-1")
	ref = root.(*ast.Reference)
	if ref.Target != ast.RefRelative || ref.Num != -1 {
		t.Errorf("ref = %+v, want relative -1", ref)
	}

	root = parseOK(t, "::+2")
	ref = root.(*ast.Reference)
	if ref.Target != ast.RefRelative || ref.Num != 2 {
		t.Errorf("ref = %+v, want relative +2", ref)
	}
}

func TestCodePoints(t *testing.T) {
	root := parseOK(t, "U+48")
	lit := root.(*ast.Literal)
	if lit.Text != "H" {
		t.Errorf("Text = %q, want H", lit.Text)
	}

	parseErrs(t, "U+110000") // beyond the Unicode range
	parseErrs(t, "U+D800")   // surrogate
}

func TestStringEscapes(t *testing.T) {
	root := parseOK(t, `"a\\b\"c"`)
	lit := root.(*ast.Literal)
	if lit.Text != `a\b"c` {
		t.Errorf("Text = %q, want %q", lit.Text, `a\b"c`)
	}

	diags := parseErrs(t, `"a\nb"`)
	if diags[0].Code != diag.CodeStringEscape {
		t.Errorf("code = %v, want CodeStringEscape", diags[0].Code)
	}
}

func TestRecoveryReportsMultipleErrors(t *testing.T) {
	_, diags := Parse("['z'-'a'] !'x' 'a'{5,2}")
	errors := 0
	for _, d := range diags {
		if d.IsError() {
			errors++
		}
	}
	if errors < 3 {
		t.Errorf("got %d errors, want at least 3: %v", errors, diags)
	}
}

func TestDeepNestingBailsOut(t *testing.T) {
	src := ""
	for i := 0; i < 400; i++ {
		src += "("
	}
	src += "'a'"
	for i := 0; i < 400; i++ {
		src += ")"
	}
	_, diags := Parse(src)
	found := false
	for _, d := range diags {
		if d.Code == diag.CodeRecursionDepth {
			found = true
		}
	}
	if !found {
		t.Errorf("no nesting error in %v", diags)
	}
}
