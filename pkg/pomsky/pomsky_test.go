package pomsky

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/Kyza/pomsky/diag"
	"github.com/Kyza/pomsky/flavor"
)

func compile(t *testing.T, src string, f flavor.Flavor) string {
	t.Helper()
	out, diags := CompileString(src, Options{Flavor: f})
	if diag.HasErrors(diags) {
		t.Fatalf("CompileString(%q) failed: %v", src, diags)
	}
	return out
}

func TestCompileString(t *testing.T) {
	tests := []struct {
		src  string
		f    flavor.Flavor
		want string
	}{
		{"let digit = ['0'-'9']; :name(digit{3})", flavor.Pcre, `(?<name>[0-9]{3})`},
		{"let digit = ['0'-'9']; :name(digit{3})", flavor.Python, `(?P<name>[0-9]{3})`},
		{"enable lazy; 'a'+", flavor.Pcre, "a+?"},
		{"^ 'ab' $", flavor.Rust, "^ab$"},
		{"'a' | 'b' | 'cd'", flavor.JavaScript, "a|b|cd"},
		{"range '0'-'59'", flavor.Pcre, "[1-5][0-9]|[0-9]"},
	}

	for _, tt := range tests {
		got := compile(t, tt.src, tt.f)
		if got != tt.want {
			t.Errorf("CompileString(%q, %v) = %q, want %q", tt.src, tt.f, got, tt.want)
		}
	}
}

func TestCompileIPOctet(t *testing.T) {
	pattern := compile(t, "range '0'-'255'", flavor.Rust)
	re := regexp.MustCompile("^(?:" + pattern + ")$")
	for n := 0; n <= 300; n++ {
		s := itoa(n)
		want := n <= 255
		if got := re.MatchString(s); got != want {
			t.Errorf("octet match(%q) = %v, want %v", s, got, want)
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func TestErrorsProduceNoOutput(t *testing.T) {
	out, diags := CompileString("nope", Options{})
	if out != "" {
		t.Errorf("output = %q, want empty on error", out)
	}
	if !diag.HasErrors(diags) {
		t.Error("expected an error diagnostic")
	}
}

func TestWarningsStillProduceOutput(t *testing.T) {
	out, diags := CompileString("<% 'a' %>", Options{})
	if out != "^a$" {
		t.Errorf("output = %q, want ^a$", out)
	}
	warnings := 0
	for _, d := range diags {
		if d.IsError() {
			t.Errorf("unexpected error: %v", d)
		} else {
			warnings++
		}
	}
	if warnings != 2 {
		t.Errorf("got %d warnings, want 2", warnings)
	}
}

func TestDiagnosticsAreSorted(t *testing.T) {
	_, diags := CompileString("['z'-'a'] !'x' nope{5,2}", Options{})
	if !sort.SliceIsSorted(diags, func(i, j int) bool {
		return diags[i].Span.Start < diags[j].Span.Start
	}) {
		t.Errorf("diagnostics not sorted by position: %v", diags)
	}
}

func TestFlavorGatingEndToEnd(t *testing.T) {
	_, diags := CompileString(">> 'a'", Options{Flavor: flavor.Rust})
	if !diag.HasErrors(diags) {
		t.Fatal("Rust should reject lookaround")
	}
	found := false
	for _, d := range diags {
		if d.Code == diag.CodeUnsupported && strings.Contains(d.Message, "Rust") {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostic should name the flavor: %v", diags)
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := (Options{}).Validate(); err != nil {
		t.Errorf("zero options should be valid: %v", err)
	}
	if err := (Options{Flavor: flavor.Flavor(99)}).Validate(); err == nil {
		t.Error("unknown flavor should be invalid")
	}
	if err := (Options{MaxRecursionDepth: -1}).Validate(); err == nil {
		t.Error("negative depth should be invalid")
	}
}

func TestGoOptionsValidate(t *testing.T) {
	valid := GoOptions{Source: "'a'", Name: "A", OutputFile: "a.go", Package: "p"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid options rejected: %v", err)
	}

	tests := []GoOptions{
		{Name: "A", OutputFile: "a.go", Package: "p"},
		{Source: "'a'", OutputFile: "a.go", Package: "p"},
		{Source: "'a'", Name: "A", Package: "p"},
		{Source: "'a'", Name: "A", OutputFile: "a.go"},
	}
	for i, opts := range tests {
		if err := opts.Validate(); err == nil {
			t.Errorf("tests[%d]: missing field not rejected", i)
		}
	}
}

func TestGenerateGo(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "year.go")

	err := GenerateGo(GoOptions{
		Source:     ":year(['0'-'9']{4})",
		Name:       "Year",
		OutputFile: out,
		Package:    "matchers",
	})
	if err != nil {
		t.Fatalf("GenerateGo failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "package matchers") {
		t.Errorf("missing package clause:\n%s", content)
	}
	if !strings.Contains(content, `regexp.MustCompile("(?P<year>[0-9]{4})")`) {
		t.Errorf("missing compiled pattern:\n%s", content)
	}
}

func TestGenerateGoRejectsUnsupported(t *testing.T) {
	// backreferences cannot be expressed for Go's engine
	err := GenerateGo(GoOptions{
		Source:     ":a('x') ::a",
		Name:       "X",
		OutputFile: filepath.Join(t.TempDir(), "x.go"),
		Package:    "p",
	})
	if err == nil {
		t.Fatal("expected an error for a backreference")
	}
}
