package grammar

import (
	"fmt"
	"strings"

	"git.canoozie.net/riddling/graphdir/pkg/lexer"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// ParseNode is one tagged capture or marker produced by a successful parse
type ParseNode struct {
	Name   string // Name of the grammar element that produced the node
	Text   string // Token text
	Quoted bool   // Token came from a quoted block
	Marker bool   // Produced by a literal or group rather than a value
	Pos    int    // Byte offset of the token
}

// Grammar is an immutable, reusable parser for a grammar tree
type Grammar struct {
	root *Node
}

// New creates a grammar rooted at root
func New(root *Node) *Grammar {
	return &Grammar{root: root}
}

func (g *Grammar) String() string {
	return g.root.String()
}

// Parse matches the whole token stream against the grammar
func (g *Grammar) Parse(tokens []lexer.Token) ([]ParseNode, error) {
	p := &parser{tokens: tokens, furthest: -1}

	nodes, next, ok := p.match(g.root, 0, len(tokens))
	if ok && next == len(tokens) {
		return nodes, nil
	}
	if ok {
		p.fail(next, "end of input")
	}
	return nil, p.err()
}

// failureHard ranks above any token position so that structural errors win
// over ordinary expectation failures
const failureHard = int(^uint(0) >> 1)

type parser struct {
	tokens   []lexer.Token
	furthest int
	expected []string
	message  string
}

// fail records that want was expected at pos, keeping only the failures
// at the furthest position
func (p *parser) fail(pos int, want string) {
	switch {
	case pos > p.furthest:
		p.furthest = pos
		p.expected = []string{want}
	case pos == p.furthest:
		for _, e := range p.expected {
			if e == want {
				return
			}
		}
		p.expected = append(p.expected, want)
	}
}

func (p *parser) failHard(message string) {
	if p.furthest == failureHard {
		return
	}
	p.furthest = failureHard
	p.message = message
}

func (p *parser) err() error {
	if p.message != "" {
		return model.Errorf(model.StatusBadRequest, "%s", p.message)
	}
	if p.furthest < 0 {
		return model.Errorf(model.StatusBadRequest, "syntax error")
	}

	expected := strings.Join(p.expected, " or ")
	if p.furthest >= len(p.tokens) {
		return model.Errorf(model.StatusBadRequest, "expected %s at end of input", expected)
	}
	tok := p.tokens[p.furthest]
	return model.Errorf(model.StatusBadRequest, "expected %s, found %s at position %d", expected, tok, tok.Pos)
}

// match tries n at pos within the token window [pos, end)
func (p *parser) match(n *Node, pos, end int) ([]ParseNode, int, bool) {
	switch n.kind {
	case KindValue:
		if pos < end && p.tokens[pos].IsValue() {
			tok := p.tokens[pos]
			return []ParseNode{{
				Name:   n.name,
				Text:   tok.Text,
				Quoted: tok.Kind == lexer.KindQuoted,
				Pos:    tok.Pos,
			}}, pos + 1, true
		}
		p.fail(pos, "<"+n.name+">")
		return nil, pos, false

	case KindLiteral:
		if pos < end && p.isLiteral(pos, n.text) {
			if n.name == "" {
				return nil, pos + 1, true
			}
			tok := p.tokens[pos]
			return []ParseNode{{Name: n.name, Text: tok.Text, Marker: true, Pos: tok.Pos}}, pos + 1, true
		}
		p.fail(pos, "'"+n.text+"'")
		return nil, pos, false

	case KindGroup:
		return p.matchGroup(n, pos, end)

	case KindRepeat:
		var out []ParseNode
		for {
			nodes, next, ok := p.match(n.children[0], pos, end)
			if !ok || next == pos {
				return out, pos, true
			}
			out = append(out, nodes...)
			pos = next
		}

	case KindOption:
		nodes, next, ok := p.match(n.children[0], pos, end)
		if !ok {
			return nil, pos, true
		}
		return nodes, next, true

	case KindOneOf:
		for _, alt := range n.children {
			if nodes, next, ok := p.match(alt, pos, end); ok {
				return nodes, next, true
			}
		}
		return nil, pos, false

	case KindSeq:
		var out []ParseNode
		cur := pos
		for _, child := range n.children {
			nodes, next, ok := p.match(child, cur, end)
			if !ok {
				return nil, pos, false
			}
			out = append(out, nodes...)
			cur = next
		}
		return out, cur, true
	}

	panic(fmt.Sprintf("grammar: unknown node kind %v", n.kind))
}

func (p *parser) matchGroup(n *Node, pos, end int) ([]ParseNode, int, bool) {
	if pos >= end || !p.isSymbol(pos, n.open) {
		p.fail(pos, "'"+n.open+"'")
		return nil, pos, false
	}

	closeAt := p.findClose(n, pos, end)
	if closeAt < 0 {
		p.failHard(fmt.Sprintf("unterminated group '%s' at position %d", n.open, p.tokens[pos].Pos))
		return nil, pos, false
	}

	var out []ParseNode
	if n.name != "" {
		tok := p.tokens[pos]
		out = append(out, ParseNode{Name: n.name, Text: tok.Text, Marker: true, Pos: tok.Pos})
	}

	nodes, next, ok := p.match(n.children[0], pos+1, closeAt)
	if !ok {
		return nil, pos, false
	}
	if next != closeAt {
		p.fail(next, "'"+n.close+"'")
		return nil, pos, false
	}
	return append(out, nodes...), closeAt + 1, true
}

// findClose returns the index of the close token balancing the open token at
// pos, or -1 if the group is not closed before end
func (p *parser) findClose(n *Node, pos, end int) int {
	depth := 0
	for i := pos; i < end; i++ {
		switch {
		case p.isSymbol(i, n.open):
			depth++
		case p.isSymbol(i, n.close):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (p *parser) isLiteral(pos int, text string) bool {
	tok := p.tokens[pos]
	return tok.Kind != lexer.KindQuoted && strings.EqualFold(tok.Text, text)
}

func (p *parser) isSymbol(pos int, text string) bool {
	tok := p.tokens[pos]
	return tok.Kind == lexer.KindSymbol && strings.EqualFold(tok.Text, text)
}
