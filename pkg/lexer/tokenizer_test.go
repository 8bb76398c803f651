package lexer

import (
	"testing"

	"git.canoozie.net/riddling/graphdir/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenizer() *Tokenizer {
	rules := []Rule{Whitespace(true), Quoted('\'')}
	rules = append(rules, Literals("=", "=>", ";", ",", "(", ")", "[", "]")...)
	return New(rules...)
}

func texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "simple statement", input: "add node key=node1;", want: []string{"add", "node", "key", "=", "node1", ";"}},
		{name: "whitespace collapsed", input: "  select \t\n (key = a) ; ", want: []string{"select", "(", "key", "=", "a", ")", ";"}},
		{name: "longer literal wins", input: "a=>b=c", want: []string{"a", "=>", "b", "=", "c"}},
		{name: "edge group", input: "[fromKey=a;edgeType=owns*]", want: []string{"[", "fromKey", "=", "a", ";", "edgeType", "=", "owns*", "]"}},
		{name: "quoted block", input: "tags='a=1;b'", want: []string{"tags", "=", "a=1;b"}},
		{name: "pending span flushed at end", input: "trailing", want: []string{"trailing"}},
		{name: "empty", input: "", want: nil},
	}

	tok := newTestTokenizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := tok.Tokenize(tt.input)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, tokens)
				return
			}
			assert.Equal(t, tt.want, texts(tokens))
		})
	}
}

func TestTokenKindsAndPositions(t *testing.T) {
	tokens, err := newTestTokenizer().Tokenize("key = 'a b'")
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	assert.Equal(t, Token{Kind: KindValue, Text: "key", Pos: 0}, tokens[0])
	assert.Equal(t, Token{Kind: KindSymbol, Text: "=", Pos: 4}, tokens[1])
	assert.Equal(t, Token{Kind: KindQuoted, Text: "a b", Pos: 6}, tokens[2])
	assert.True(t, tokens[2].IsValue())
	assert.False(t, tokens[1].IsValue())
}

func TestLiteralIsCaseInsensitive(t *testing.T) {
	tok := New(Whitespace(true), Literal("and"))

	tokens, err := tok.Tokenize("x AND y")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, KindSymbol, tokens[1].Kind)
	assert.Equal(t, "and", tokens[1].Text)
}

func TestWhitespaceKept(t *testing.T) {
	tokens, err := New(Whitespace(false)).Tokenize("a  b")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, KindSpace, tokens[1].Kind)
	assert.Equal(t, "  ", tokens[1].Text)
}

func TestQuotedEscapes(t *testing.T) {
	tokens, err := newTestTokenizer().Tokenize(`'it\'s\\a\ttab\n'`)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "it's\\a\ttab\n", tokens[0].Text)
}

func TestQuotedErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{name: "unterminated", input: "key='abc", wantMsg: "unterminated quoted value starting at position 4"},
		{name: "dangling escape", input: `'abc\`, wantMsg: "unterminated quoted value"},
		{name: "invalid escape", input: `'a\qb'`, wantMsg: "invalid escape sequence '\\q' at position 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestTokenizer().Tokenize(tt.input)
			require.Error(t, err)
			assert.Equal(t, model.StatusBadRequest, model.StatusOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestRulesOrderedByPriority(t *testing.T) {
	rules := newTestTokenizer().rules
	require.NotEmpty(t, rules)

	_, isSpace := rules[0].(*WhitespaceRule)
	assert.True(t, isSpace, "whitespace is tried first")
	_, isQuoted := rules[1].(*QuotedRule)
	assert.True(t, isQuoted, "quoted blocks before literals")
	assert.Equal(t, "=>", rules[2].(*LiteralRule).Text)

	for i := 1; i < len(rules); i++ {
		assert.GreaterOrEqual(t, rules[i-1].Priority(), rules[i].Priority())
	}
}
