// Package flavor enumerates the target regex engines and describes their
// capabilities. The rest of the compiler never switches on the flavor
// directly; it consults the capability descriptor returned by Caps, so
// adding a flavor is an additive change here.
package flavor

import "strings"

// Flavor is a target regex engine dialect. The set is closed; the zero
// value is Pcre.
type Flavor int

const (
	Pcre Flavor = iota
	Python
	Java
	JavaScript
	DotNet
	Ruby
	Rust
)

var names = [...]string{
	Pcre:       "PCRE",
	Python:     "Python",
	Java:       "Java",
	JavaScript: "JavaScript",
	DotNet:     ".NET",
	Ruby:       "Ruby",
	Rust:       "Rust",
}

func (f Flavor) String() string {
	if f < 0 || int(f) >= len(names) {
		return "unknown"
	}
	return names[f]
}

// FromString parses a flavor name, case-insensitively. Accepts a few
// aliases (js, dotnet, csharp).
func FromString(s string) (Flavor, bool) {
	switch strings.ToLower(s) {
	case "pcre":
		return Pcre, true
	case "python":
		return Python, true
	case "java":
		return Java, true
	case "javascript", "js":
		return JavaScript, true
	case ".net", "dotnet", "csharp", "c#":
		return DotNet, true
	case "ruby":
		return Ruby, true
	case "rust":
		return Rust, true
	default:
		return Pcre, false
	}
}

// NamedGroupStyle selects the named-group syntax of a flavor.
type NamedGroupStyle int

const (
	// GroupAngle renders named groups as (?<name>...).
	GroupAngle NamedGroupStyle = iota

	// GroupP renders named groups as (?P<name>...).
	GroupP
)

// CodePointStyle selects how code points without a literal representation
// are escaped.
type CodePointStyle int

const (
	// EscapeBraceX renders \x{10FFFF}.
	EscapeBraceX CodePointStyle = iota

	// EscapeBraceU renders \u{10FFFF}.
	EscapeBraceU

	// EscapeU4U8 renders a four-digit \u escape for the basic plane and an
	// eight-digit \U escape above it.
	EscapeU4U8

	// EscapeSurrogate renders a four-digit \u escape for the basic plane
	// and a UTF-16 surrogate pair above it.
	EscapeSurrogate
)

// Caps describes what a flavor supports and which syntax variants it uses.
// All stages after parsing consume a Caps value rather than the Flavor
// enum, so tests can exercise capability gating with synthetic descriptors.
type Caps struct {
	// Name is the human-readable flavor name used in diagnostics.
	Name string

	AtomicGroups          bool
	PossessiveQuantifiers bool
	Lookaround            bool

	// LookbehindFixedLen requires lookbehind bodies to have a fixed match
	// length. Only meaningful when Lookaround is set.
	LookbehindFixedLen bool

	Backreferences bool

	// ForwardReferences permits a reference to a group declared later in
	// document order. No flavor in the closed set enables this.
	ForwardReferences bool

	Recursion bool

	NamedGroups bool
	GroupStyle  NamedGroupStyle

	CodePoints CodePointStyle

	// Grapheme is \X support.
	Grapheme bool

	// HorizVertSpace is \h and \v support (as space classes, not hex digit
	// as in Onigmo).
	HorizVertSpace bool

	// ScriptPrefix is prepended to Unicode script names in \p{...}.
	ScriptPrefix string
}

var capsTable = [...]Caps{
	Pcre: {
		Name:                  "PCRE",
		AtomicGroups:          true,
		PossessiveQuantifiers: true,
		Lookaround:            true,
		Backreferences:        true,
		Recursion:             true,
		NamedGroups:           true,
		GroupStyle:            GroupAngle,
		CodePoints:            EscapeBraceX,
		Grapheme:              true,
		HorizVertSpace:        true,
	},
	Python: {
		Name:               "Python",
		Lookaround:         true,
		LookbehindFixedLen: true,
		Backreferences:     true,
		NamedGroups:        true,
		GroupStyle:         GroupP,
		CodePoints:         EscapeU4U8,
	},
	Java: {
		Name:                  "Java",
		AtomicGroups:          true,
		PossessiveQuantifiers: true,
		Lookaround:            true,
		LookbehindFixedLen:    true,
		Backreferences:        true,
		NamedGroups:           true,
		GroupStyle:            GroupAngle,
		CodePoints:            EscapeBraceX,
		Grapheme:              true,
		HorizVertSpace:        true,
		ScriptPrefix:          "Is",
	},
	JavaScript: {
		Name:           "JavaScript",
		Lookaround:     true,
		Backreferences: true,
		NamedGroups:    true,
		GroupStyle:     GroupAngle,
		CodePoints:     EscapeBraceU,
	},
	DotNet: {
		Name:           ".NET",
		AtomicGroups:   true,
		Lookaround:     true,
		Backreferences: true,
		NamedGroups:    true,
		GroupStyle:     GroupAngle,
		CodePoints:     EscapeSurrogate,
		ScriptPrefix:   "Is",
	},
	Ruby: {
		Name:                  "Ruby",
		AtomicGroups:          true,
		PossessiveQuantifiers: true,
		Lookaround:            true,
		LookbehindFixedLen:    true,
		Backreferences:        true,
		Recursion:             true,
		NamedGroups:           true,
		GroupStyle:            GroupAngle,
		CodePoints:            EscapeBraceU,
		Grapheme:              true,
	},
	Rust: {
		Name:        "Rust",
		NamedGroups: true,
		GroupStyle:  GroupP,
		CodePoints:  EscapeBraceX,
	},
}

// Caps returns the capability descriptor for f.
func (f Flavor) Caps() Caps {
	if f < 0 || int(f) >= len(capsTable) {
		return capsTable[Pcre]
	}
	return capsTable[f]
}
