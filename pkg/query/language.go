// Package query implements GraphLang, the directory command language, and
// the executor that applies command batches to a graph.Map.
//
// A batch holds one or more statements, each terminated by ';':
//
//	add node key=<id>[,tags=<tagset>];
//	add edge fromKey=<id>,toKey=<id>[,edgeType=<type>][,tags=<tagset>];
//	update (key=<id>) set tags=<tagset>;
//	update [<edge-filter>] set edgeType=<type>[,tags=<tagset>];
//	delete (key=<id>);        delete [<edge-filter>];
//	select (key=<id>);        select [<edge-filter>];
//
// An edge filter is a ';' separated list of predicates that must all hold.
// A predicate is field=value with field one of fromKey, toKey or edgeType, or
// a bare value that matches edgeType exactly. An unquoted value ending in '*'
// matches by prefix. Keywords and field names are case-insensitive. Values
// holding whitespace or symbols are quoted with ' or ", e.g.
// tags='region=us;vip'.
package query

import (
	"strings"
	"unicode/utf8"

	"git.canoozie.net/riddling/graphdir/pkg/grammar"
	"git.canoozie.net/riddling/graphdir/pkg/lexer"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// Parse node names produced by the GraphLang grammar
const (
	nodeAddNode = "addNode"
	nodeAddEdge = "addEdge"
	nodeUpdate  = "update"
	nodeDelete  = "delete"
	nodeSelect  = "select"

	nodeNodeGroup = "nodeGroup"
	nodeEdgeGroup = "edgeGroup"
	nodeEnd       = "end"

	nodeKey         = "key"
	nodeFromKey     = "fromKey"
	nodeToKey       = "toKey"
	nodeEdgeType    = "edgeType"
	nodeTags        = "tags"
	nodeFilterField = "filterField"
	nodeFilterValue = "filterValue"
	nodeFilterType  = "filterType"
	nodeSetField    = "setField"
	nodeSetValue    = "setValue"
)

// Symbols are the single character tokens of the language
var Symbols = []string{"=", ",", ";", "(", ")", "[", "]"}

// wildcard marks a prefix match when it ends an unquoted filter value
const wildcard = "*"

var (
	tokenizer = newTokenizer()
	language  = grammar.New(newGrammar())
)

func newTokenizer() *lexer.Tokenizer {
	rules := []lexer.Rule{
		lexer.Whitespace(true),
		lexer.Quoted('\''),
		lexer.Quoted('"'),
	}
	return lexer.New(append(rules, lexer.Literals(Symbols...)...)...)
}

// assign matches keyword=<value>, capturing the value under name
func assign(keyword, name string) *grammar.Node {
	return grammar.Literal("", keyword).Then(grammar.Symbol("="), grammar.Value(name))
}

// optionalAssign matches an optional ,keyword=<value>
func optionalAssign(keyword, name string) *grammar.Node {
	return grammar.Symbol(",").Then(assign(keyword, name)).Optional()
}

func newGrammar() *grammar.Node {
	end := grammar.Literal(nodeEnd, ";")

	nodeGroup := grammar.Group(nodeNodeGroup, "(", ")", assign("key", nodeKey))

	predicate := grammar.OneOf(
		grammar.Value(nodeFilterField).Then(grammar.Symbol("="), grammar.Value(nodeFilterValue)),
		grammar.Value(nodeFilterType),
	)
	predicates := predicate.Then(grammar.Symbol(";").Then(predicate).Repeat())
	edgeGroup := grammar.Group(nodeEdgeGroup, "[", "]", predicates.Optional())

	target := grammar.OneOf(nodeGroup, edgeGroup)

	setItem := grammar.Value(nodeSetField).Then(grammar.Symbol("="), grammar.Value(nodeSetValue))
	setList := setItem.Then(grammar.Symbol(",").Then(setItem).Repeat())

	addNode := grammar.Literal("", "add").Then(
		grammar.Literal(nodeAddNode, "node"),
		assign("key", nodeKey),
		optionalAssign("tags", nodeTags),
		end,
	)
	addEdge := grammar.Literal("", "add").Then(
		grammar.Literal(nodeAddEdge, "edge"),
		assign("fromKey", nodeFromKey),
		grammar.Symbol(","),
		assign("toKey", nodeToKey),
		optionalAssign("edgeType", nodeEdgeType),
		optionalAssign("tags", nodeTags),
		end,
	)
	update := grammar.Literal(nodeUpdate, "update").Then(target, grammar.Literal("", "set"), setList, end)
	remove := grammar.Literal(nodeDelete, "delete").Then(target, end)
	selectStmt := grammar.Literal(nodeSelect, "select").Then(target, end)

	return grammar.OneOf(addNode, addEdge, update, remove, selectStmt).Repeat()
}

// Grammar returns the GraphLang grammar
func Grammar() *grammar.Grammar {
	return language
}

// Parse parses a command batch into its commands, in statement order. Every
// failure is a model.Error with StatusBadRequest.
func Parse(text string) ([]Command, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.ErrEmptyCommand
	}
	if pos := invalidUTF8(text); pos >= 0 {
		return nil, model.Errorf(model.StatusBadRequest, "invalid UTF-8 at position %d", pos)
	}

	tokens, err := tokenizer.Tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, model.ErrEmptyCommand
	}

	nodes, err := language.Parse(tokens)
	if err != nil {
		return nil, err
	}
	return newBuilder(nodes).build()
}

// invalidUTF8 returns the offset of the first byte that is not valid UTF-8,
// or -1
func invalidUTF8(text string) int {
	if utf8.ValidString(text) {
		return -1
	}
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				return i
			}
		}
	}
	return -1
}
