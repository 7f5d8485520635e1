// Package token defines the lexical tokens of the expression language.
package token

import "github.com/Kyza/pomsky/diag"

// Type identifies the kind of a token.
type Type int

const (
	Error Type = iota
	EOF

	Caret     // ^
	Dollar    // $
	BWord     // %
	BStart    // <% (deprecated start marker)
	BEnd      // %> (deprecated end marker)
	Star      // *
	Plus      // +
	Question  // ?
	Pipe      // |
	Colon     // :
	Not       // !
	LParen    // (
	RParen    // )
	LBrace    // {
	RBrace    // }
	LBracket  // [
	RBracket  // ]
	Comma     // ,
	Dash      // -
	Dot       // .
	Semicolon // ;
	Equals    // =
	Backref   // ::
	LookAhead // >>
	LookBehind // <<

	String    // 'abc' or "abc"
	CodePoint // U+FF or U+1F60A
	Number    // 255
	Ident     // letters, digits and underscores, not starting with a digit
)

var typeNames = map[Type]string{
	Error:      "error",
	EOF:        "end of input",
	Caret:      "`^`",
	Dollar:     "`$`",
	BWord:      "`%`",
	BStart:     "`<%`",
	BEnd:       "`%>`",
	Star:       "`*`",
	Plus:       "`+`",
	Question:   "`?`",
	Pipe:       "`|`",
	Colon:      "`:`",
	Not:        "`!`",
	LParen:     "`(`",
	RParen:     "`)`",
	LBrace:     "`{`",
	RBrace:     "`}`",
	LBracket:   "`[`",
	RBracket:   "`]`",
	Comma:      "`,`",
	Dash:       "`-`",
	Dot:        "`.`",
	Semicolon:  "`;`",
	Equals:     "`=`",
	Backref:    "`::`",
	LookAhead:  "`>>`",
	LookBehind: "`<<`",
	String:     "string",
	CodePoint:  "code point",
	Number:     "number",
	Ident:      "identifier",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown token"
}

// Token is a single lexeme with its source span.
type Token struct {
	Type Type
	Span diag.Span

	// Text is the raw source slice for identifiers, strings, numbers and
	// code points; empty for fixed tokens.
	Text string
}

// Keywords reserved by the language; they are lexed as Ident but may not be
// used as variable or group names.
var Keywords = map[string]bool{
	"let":        true,
	"lazy":       true,
	"greedy":     true,
	"possessive": true,
	"range":      true,
	"base":       true,
	"atomic":     true,
	"enable":     true,
	"disable":    true,
	"if":         true,
	"else":       true,
	"recursion":  true,
}
