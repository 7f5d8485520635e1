// Package gofile emits a Go source file wrapping a compiled pattern. The
// generated file declares a package-level *regexp.Regexp plus small match
// helpers, so callers embed the compiled pattern without depending on this
// module at runtime.
package gofile

import (
	"io"

	"github.com/dave/jennifer/jen"
)

// Config describes the file to generate.
type Config struct {
	// Pattern is the compiled regex, already rendered for Go's engine.
	Pattern string

	// Name is the exported identifier prefix (e.g. "Email" declares
	// EmailPattern, EmailMatchString, ...).
	Name string

	// Package is the package name of the generated file.
	Package string

	// Source is the original expression, included in the file header.
	Source string
}

// Build constructs the generated file.
func Build(cfg Config) *jen.File {
	f := jen.NewFile(cfg.Package)
	f.HeaderComment("Code generated by pomsky. DO NOT EDIT.")
	if cfg.Source != "" {
		f.HeaderComment("Source: " + cfg.Source)
	}

	patternVar := cfg.Name + "Pattern"

	f.Comment(patternVar + " is the compiled pattern.")
	f.Var().Id(patternVar).Op("=").Qual("regexp", "MustCompile").Call(jen.Lit(cfg.Pattern))

	f.Comment(cfg.Name + "MatchString reports whether input contains a match.")
	f.Func().Id(cfg.Name + "MatchString").
		Params(jen.Id("input").String()).
		Params(jen.Bool()).
		Block(
			jen.Return(jen.Id(patternVar).Dot("MatchString").Call(jen.Id("input"))),
		)

	f.Comment(cfg.Name + "FindString returns the leftmost match in input.")
	f.Func().Id(cfg.Name + "FindString").
		Params(jen.Id("input").String()).
		Params(jen.String()).
		Block(
			jen.Return(jen.Id(patternVar).Dot("FindString").Call(jen.Id("input"))),
		)

	f.Comment(cfg.Name + "FindAllString returns all matches in input.")
	f.Func().Id(cfg.Name + "FindAllString").
		Params(jen.Id("input").String()).
		Params(jen.Index().String()).
		Block(
			jen.Return(jen.Id(patternVar).Dot("FindAllString").Call(
				jen.Id("input"),
				jen.Lit(-1),
			)),
		)

	return f
}

// Render writes the generated file to w.
func Render(cfg Config, w io.Writer) error {
	return Build(cfg).Render(w)
}

// Save writes the generated file to path.
func Save(cfg Config, path string) error {
	return Build(cfg).Save(path)
}
