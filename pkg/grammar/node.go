// Package grammar is a small declarative parser-combinator framework over a
// lexer token stream.
//
// Grammars are trees of *Node built with the constructors in this package
// and chained with Then, Repeat and Optional. Parsing succeeds with a flat
// list of ParseNode values in production order, or fails with a
// *model.Error describing what was expected at the furthest position the
// parser reached.
package grammar

import (
	"fmt"
	"strings"
)

// Kind is the variant of a grammar node
type Kind int

const (
	KindValue Kind = iota
	KindLiteral
	KindGroup
	KindRepeat
	KindOption
	KindOneOf
	KindSeq
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindLiteral:
		return "literal"
	case KindGroup:
		return "group"
	case KindRepeat:
		return "repeat"
	case KindOption:
		return "option"
	case KindOneOf:
		return "oneOf"
	case KindSeq:
		return "seq"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is one element of a grammar. Nodes are immutable once built and may be
// shared between grammars.
type Node struct {
	kind     Kind
	name     string
	text     string
	open     string
	close    string
	children []*Node
}

// Value matches one value or quoted token and captures it under name
func Value(name string) *Node {
	return &Node{kind: KindValue, name: name}
}

// Literal matches a token equal to text, ignoring case. A non-empty name
// emits a marker ParseNode; the token text is not captured as data.
func Literal(name, text string) *Node {
	return &Node{kind: KindLiteral, name: name, text: text}
}

// Symbol is an anonymous literal that emits nothing
func Symbol(text string) *Node {
	return Literal("", text)
}

// Group requires a balanced open/close pair and parses inner on exactly the
// tokens between them. A non-empty name emits a marker at the open token.
func Group(name, open, close string, inner *Node) *Node {
	return &Node{kind: KindGroup, name: name, open: open, close: close, children: []*Node{inner}}
}

// Repeat matches inner zero or more times
func Repeat(inner *Node) *Node {
	return &Node{kind: KindRepeat, children: []*Node{inner}}
}

// Optional matches inner zero or one time
func Optional(inner *Node) *Node {
	return &Node{kind: KindOption, children: []*Node{inner}}
}

// OneOf matches the first alternative that succeeds
func OneOf(alternatives ...*Node) *Node {
	return &Node{kind: KindOneOf, children: alternatives}
}

// Seq matches nodes one after another
func Seq(nodes ...*Node) *Node {
	return &Node{kind: KindSeq, children: nodes}
}

// Then returns a sequence of n followed by next
func (n *Node) Then(next ...*Node) *Node {
	if n.kind == KindSeq {
		children := make([]*Node, 0, len(n.children)+len(next))
		children = append(children, n.children...)
		return Seq(append(children, next...)...)
	}
	return Seq(append([]*Node{n}, next...)...)
}

// Repeat returns a node matching n zero or more times
func (n *Node) Repeat() *Node {
	return Repeat(n)
}

// Optional returns a node matching n zero or one time
func (n *Node) Optional() *Node {
	return Optional(n)
}

// Kind returns the variant of the node
func (n *Node) Kind() Kind {
	return n.kind
}

// Name returns the capture or marker name, if any
func (n *Node) Name() string {
	return n.name
}

// String renders the grammar in an EBNF-like notation
func (n *Node) String() string {
	switch n.kind {
	case KindValue:
		return "<" + n.name + ">"
	case KindLiteral:
		return "'" + n.text + "'"
	case KindGroup:
		return "'" + n.open + "' " + n.children[0].String() + " '" + n.close + "'"
	case KindRepeat:
		return "{ " + n.children[0].String() + " }"
	case KindOption:
		return "[ " + n.children[0].String() + " ]"
	case KindOneOf:
		parts := make([]string, len(n.children))
		for i, c := range n.children {
			parts[i] = c.String()
		}
		return "( " + strings.Join(parts, " | ") + " )"
	case KindSeq:
		parts := make([]string, len(n.children))
		for i, c := range n.children {
			parts[i] = c.String()
		}
		return strings.Join(parts, " ")
	default:
		return n.kind.String()
	}
}
