// Package lexer turns command text into a token stream.
//
// A Tokenizer scans its input once, left to right. At every position it
// tries its rules in descending priority; the first rule that matches emits
// a token. Bytes that match no rule accumulate into a pending span which is
// flushed as a single value token as soon as a rule matches or the input
// ends.
package lexer

import "fmt"

// Kind identifies the rule that produced a token
type Kind int

const (
	// KindValue is free text that matched no rule
	KindValue Kind = iota
	// KindQuoted is the unescaped contents of a quoted block
	KindQuoted
	// KindSymbol is a fixed literal such as "=" or ";"
	KindSymbol
	// KindSpace is a run of whitespace kept by a non-discarding rule
	KindSpace
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindQuoted:
		return "quoted"
	case KindSymbol:
		return "symbol"
	case KindSpace:
		return "space"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Token is a single lexical unit
type Token struct {
	Kind Kind
	Text string // Token text; quoted tokens hold the unescaped contents
	Pos  int    // Byte offset of the token in the input
}

func (t Token) String() string {
	if t.Kind == KindQuoted {
		return fmt.Sprintf("%q", t.Text)
	}
	return fmt.Sprintf("'%s'", t.Text)
}

// IsValue reports whether the token carries user data rather than syntax
func (t Token) IsValue() bool {
	return t.Kind == KindValue || t.Kind == KindQuoted
}
