package gofile

import (
	"bytes"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	err := Render(Config{
		Pattern: `(?P<year>[0-9]{4})`,
		Name:    "Year",
		Package: "matchers",
		Source:  ":year(['0'-'9']{4})",
	}, &buf)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"package matchers",
		"Code generated by pomsky. DO NOT EDIT.",
		`regexp.MustCompile("(?P<year>[0-9]{4})")`,
		"var YearPattern",
		"func YearMatchString(input string) bool",
		"func YearFindString(input string) string",
		"func YearFindAllString(input string) []string",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderIncludesSourceHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(Config{Pattern: "a", Name: "A", Package: "p", Source: "'a'"}, &buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Source: 'a'") {
		t.Errorf("output missing source header:\n%s", buf.String())
	}
}
