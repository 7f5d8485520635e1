// Package diag defines the diagnostic data model shared by every stage of
// the compilation pipeline. A Diagnostic is a pure value: a byte-offset span
// into the source, a severity, a message and optionally a suggested fix.
// Rendering (color, snippet framing) is the caller's job.
package diag

import (
	"fmt"
	"sort"
)

// Span is a half-open byte interval [Start, End) into the source text.
type Span struct {
	Start int
	End   int
}

// NewSpan creates a span covering [start, end).
func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

// Join returns the smallest span covering both s and other. An empty span
// (Start == End == 0 with no content) does not extend the result.
func (s Span) Join(other Span) Span {
	if s.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return s
	}
	res := s
	if other.Start < res.Start {
		res.Start = other.Start
	}
	if other.End > res.End {
		res.End = other.End
	}
	return res
}

// IsEmpty reports whether the span covers no bytes.
func (s Span) IsEmpty() bool {
	return s.Start >= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// Severity classifies a diagnostic.
type Severity int

const (
	// SeverityWarning is advice; compilation still produces output.
	SeverityWarning Severity = iota

	// SeverityError is a user error; compilation produces no output.
	SeverityError

	// SeverityInternal marks a broken compiler invariant, e.g. codegen
	// receiving a construct the resolver should have rejected. Never
	// user-triggered in a correct build.
	SeverityInternal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityInternal:
		return "internal error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Code identifies a diagnostic kind, rendered as "P0001".
type Code uint16

// Diagnostic codes. The numbering is stable; new codes are appended.
const (
	CodeUnknownChar Code = 1 + iota
	CodeUnterminatedString
	CodeUnexpectedToken
	CodeUnbalancedDelimiter
	CodeMalformedQuantifier
	CodeRepetitionSyntax
	CodeKeywordAsName
	CodeDuplicateBinding
	CodeUndefinedVariable
	CodeDuplicateGroupName
	CodeUnresolvedReference
	CodeForwardReference
	CodeRecursionDepth
	CodeUnsupported
	CodeRangeBounds
	CodeRangeDigit
	CodeRangeSize
	CodeCharClass
	CodeCodePoint
	CodeStringEscape
	CodeReferenceInLet
	CodeNegation
	CodeDeprecated
	CodeInternal
)

func (c Code) String() string {
	return fmt.Sprintf("P%04d", uint16(c))
}

// Diagnostic is an immutable report attached to a source span.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Span     Span
	Message  string

	// Help is an optional suggested replacement or hint, empty if none.
	Help string
}

// Error creates an error diagnostic at span.
func Error(code Code, span Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Warning creates a warning diagnostic at span.
func Warning(code Code, span Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Internal creates a fatal internal-consistency diagnostic. Reaching this
// path means an earlier stage failed to enforce one of its invariants.
func Internal(span Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity: SeverityInternal,
		Code:     CodeInternal,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	}
}

// WithHelp returns a copy of d carrying a suggested fix.
func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

// IsError reports whether d prevents output (errors and internal failures).
func (d Diagnostic) IsError() bool {
	return d.Severity != SeverityWarning
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s (at %s)", d.Severity, d.Code, d.Message, d.Span)
}

// Sort orders diagnostics ascending by span start, then span end, then
// severity (errors before warnings at the same position). The sort is
// stable so diagnostics produced in order at the same offset keep their
// relative order.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Span.End != b.Span.End {
			return a.Span.End < b.Span.End
		}
		return a.Severity > b.Severity
	})
}

// HasErrors reports whether any diagnostic in ds prevents output.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.IsError() {
			return true
		}
	}
	return false
}
