// Package pomsky compiles a readable pattern description language into
// native regex syntax for several target engines.
package pomsky

import (
	"fmt"

	"github.com/Kyza/pomsky/diag"
	"github.com/Kyza/pomsky/flavor"
	"github.com/Kyza/pomsky/internal/codegen"
	"github.com/Kyza/pomsky/internal/debuglog"
	"github.com/Kyza/pomsky/internal/gofile"
	"github.com/Kyza/pomsky/internal/parser"
	"github.com/Kyza/pomsky/internal/resolver"
)

// Options configures compilation.
type Options struct {
	// Flavor selects the target regex engine. The zero value is PCRE.
	Flavor flavor.Flavor

	// MaxRecursionDepth bounds variable expansion nesting. Zero means the
	// default of 32.
	MaxRecursionDepth int

	// MaxRangeSize bounds the number of digits in a `range` expression.
	// Zero means the default of 12.
	MaxRangeSize int

	// Verbose prints compilation stages to stderr.
	Verbose bool
}

// Validate checks if the options are valid.
func (o Options) Validate() error {
	if o.Flavor.String() == "unknown" {
		return fmt.Errorf("unknown flavor %d", int(o.Flavor))
	}
	if o.MaxRecursionDepth < 0 {
		return fmt.Errorf("max recursion depth cannot be negative")
	}
	if o.MaxRangeSize < 0 {
		return fmt.Errorf("max range size cannot be negative")
	}
	return nil
}

// CompileString compiles src into a regex for the flavor in opts.
//
// The returned diagnostics are sorted by source position. When any of
// them is an error the returned pattern is empty; otherwise the pattern
// is valid and the diagnostics, if any, are warnings.
func CompileString(src string, opts Options) (string, []diag.Diagnostic) {
	log := debuglog.NewLogger(opts.Verbose)

	log.Section("parse")
	root, diags := parser.Parse(src)
	log.Log("parsed %d bytes, %d diagnostic(s)", len(src), len(diags))
	if diag.HasErrors(diags) {
		diag.Sort(diags)
		return "", diags
	}

	log.Section("resolve")
	caps := opts.Flavor.Caps()
	resolved, rdiags := resolver.Resolve(root, caps, resolver.Options{
		MaxDepth:     opts.MaxRecursionDepth,
		MaxRangeSize: opts.MaxRangeSize,
	})
	diags = append(diags, rdiags...)
	log.Log("resolved for %s, %d diagnostic(s)", caps.Name, len(rdiags))
	if diag.HasErrors(diags) {
		diag.Sort(diags)
		return "", diags
	}

	log.Section("generate")
	out, gdiags := codegen.Generate(resolved, caps)
	diags = append(diags, gdiags...)
	diag.Sort(diags)
	if diag.HasErrors(diags) {
		return "", diags
	}
	log.Log("generated %d bytes", len(out))
	return out, diags
}

// GoOptions configures generation of a Go source file from a pattern.
type GoOptions struct {
	// Source is the pattern description to compile.
	Source string

	// Name is the prefix for generated identifiers (e.g. "Email" declares
	// EmailPattern and EmailMatchString).
	Name string

	// OutputFile is the path where generated code will be written.
	OutputFile string

	// Package is the Go package name for the generated code.
	Package string

	// Verbose prints compilation stages to stderr.
	Verbose bool
}

// Validate checks if the options are valid.
func (o GoOptions) Validate() error {
	if o.Source == "" {
		return fmt.Errorf("source cannot be empty")
	}
	if o.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if o.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if o.Package == "" {
		return fmt.Errorf("package cannot be empty")
	}
	return nil
}

// GenerateGo compiles opts.Source and writes a Go file embedding the
// result. Go's regexp package is RE2-based, so the pattern is compiled
// with the Rust flavor, which targets the same syntax family.
func GenerateGo(opts GoOptions) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	pattern, diags := CompileString(opts.Source, Options{
		Flavor:  flavor.Rust,
		Verbose: opts.Verbose,
	})
	for _, d := range diags {
		if d.IsError() {
			return fmt.Errorf("failed to compile pattern: %s", d.Message)
		}
	}

	cfg := gofile.Config{
		Pattern: pattern,
		Name:    opts.Name,
		Package: opts.Package,
		Source:  opts.Source,
	}
	if err := gofile.Save(cfg, opts.OutputFile); err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	return nil
}
