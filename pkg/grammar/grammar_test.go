package grammar

import (
	"testing"

	"git.canoozie.net/riddling/graphdir/pkg/lexer"
	"git.canoozie.net/riddling/graphdir/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTokenizer = lexer.New(append([]lexer.Rule{lexer.Whitespace(true), lexer.Quoted('\'')},
	lexer.Literals("=", ",", ";", "(", ")", "[", "]")...)...)

func tokenize(t *testing.T, s string) []lexer.Token {
	t.Helper()
	tokens, err := testTokenizer.Tokenize(s)
	require.NoError(t, err)
	return tokens
}

func names(nodes []ParseNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name + ":" + n.Text
	}
	return out
}

func assignment(field string) *Node {
	return Literal("", field).Then(Symbol("="), Value(field))
}

func TestSequenceAndCapture(t *testing.T) {
	g := New(Literal("get", "get").Then(assignment("key"), Symbol(";")))

	nodes, err := g.Parse(tokenize(t, "GET key = abc ;"))
	require.NoError(t, err)
	assert.Equal(t, []string{"get:GET", "key:abc"}, names(nodes))
	assert.True(t, nodes[0].Marker)
	assert.False(t, nodes[1].Marker)
}

func TestOptional(t *testing.T) {
	g := New(assignment("key").Then(Symbol(",").Then(assignment("tags")).Optional()))

	nodes, err := g.Parse(tokenize(t, "key=a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"key:a"}, names(nodes))

	nodes, err = g.Parse(tokenize(t, "key=a,tags='x;y'"))
	require.NoError(t, err)
	assert.Equal(t, []string{"key:a", "tags:x;y"}, names(nodes))
	assert.True(t, nodes[1].Quoted)
}

func TestRepeat(t *testing.T) {
	item := Value("item").Then(Symbol(";"))
	g := New(Repeat(item))

	nodes, err := g.Parse(tokenize(t, "a; b; c;"))
	require.NoError(t, err)
	assert.Equal(t, []string{"item:a", "item:b", "item:c"}, names(nodes))

	nodes, err = g.Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestOneOfTakesFirstMatch(t *testing.T) {
	pred := OneOf(
		Value("field").Then(Symbol("="), Value("value")),
		Value("bare"),
	)
	g := New(pred.Then(Symbol(";").Then(pred).Repeat()))

	nodes, err := g.Parse(tokenize(t, "fromKey=a;owns"))
	require.NoError(t, err)
	assert.Equal(t, []string{"field:fromKey", "value:a", "bare:owns"}, names(nodes))
}

func TestGroupClaimsInnerSeparators(t *testing.T) {
	pred := Value("field").Then(Symbol("="), Value("value"))
	filter := Group("edgeGroup", "[", "]", pred.Then(Symbol(";").Then(pred).Repeat()))
	stmt := Literal("select", "select").Then(filter, Literal("end", ";"))
	g := New(stmt.Repeat())

	nodes, err := g.Parse(tokenize(t, "select [a=1;b=2]; select [c=3];"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"select:select", "edgeGroup:[", "field:a", "value:1", "field:b", "value:2", "end:;",
		"select:select", "edgeGroup:[", "field:c", "value:3", "end:;",
	}, names(nodes))
}

func TestNestedGroups(t *testing.T) {
	var inner = Value("v")
	g := New(Group("outer", "(", ")", Group("inner", "(", ")", inner)))

	nodes, err := g.Parse(tokenize(t, "((x))"))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer:(", "inner:(", "v:x"}, names(nodes))
}

func TestParseErrors(t *testing.T) {
	pred := Value("field").Then(Symbol("="), Value("value"))
	nodeGroup := Group("nodeGroup", "(", ")", Literal("", "key").Then(Symbol("="), Value("key")))
	edgeGroup := Group("edgeGroup", "[", "]", pred.Then(Symbol(";").Then(pred).Repeat()))
	update := Literal("update", "update").Then(OneOf(nodeGroup, edgeGroup), Literal("set", "set"), pred)
	g := New(update.Then(Literal("end", ";")))

	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{name: "missing set", input: "update (key=a) tags=x;", wantMsg: "expected 'set', found 'tags' at position 15"},
		{name: "unterminated group", input: "update [a=1;b=2 set x=y;", wantMsg: "unterminated group '[' at position 7"},
		{name: "bad group content", input: "update (nope=a) set x=y;", wantMsg: "expected 'key', found 'nope' at position 8"},
		{name: "missing terminator", input: "update (key=a) set x=y", wantMsg: "expected ';' at end of input"},
		{name: "trailing tokens", input: "update (key=a) set x=y; extra", wantMsg: "expected end of input, found 'extra'"},
		{name: "alternatives listed", input: "update key", wantMsg: "expected '(' or '[', found 'key'"},
		{name: "quoted keyword is data", input: "'update' (key=a) set x=y;", wantMsg: "expected 'update'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Parse(tokenize(t, tt.input))
			require.Error(t, err)
			assert.Equal(t, model.StatusBadRequest, model.StatusOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGrammarIsReusable(t *testing.T) {
	g := New(Value("v").Then(Symbol(";")))

	for _, input := range []string{"a;", "b;", "c;"} {
		nodes, err := g.Parse(tokenize(t, input))
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, input[:1], nodes[0].Text)
	}
}

func TestString(t *testing.T) {
	n := Literal("add", "add").Then(Value("key"), Symbol(",").Then(Value("tags")).Optional())
	assert.Equal(t, "'add' <key> [ ',' <tags> ]", n.String())
}
