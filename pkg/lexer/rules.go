package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// Rule priorities. Literal rules add their length to PriorityLiteral so that
// longer literals are tried before their prefixes.
const (
	PriorityWhitespace = 300
	PriorityQuoted     = 200
	PriorityLiteral    = 100
)

// Rule is a token syntax rule tried at a single input position
type Rule interface {
	// Priority orders rules; higher is tried first
	Priority() int
	// Match tries the rule at pos. It returns the token, the number of bytes
	// consumed and whether the rule matched. A non-nil error aborts tokenizing.
	Match(input string, pos int) (Token, int, bool, error)
}

// WhitespaceRule collapses a run of whitespace into one token
type WhitespaceRule struct {
	Discard bool
}

// Whitespace returns a rule matching runs of whitespace. When discard is set
// the run only terminates the pending span and produces no token.
func Whitespace(discard bool) *WhitespaceRule {
	return &WhitespaceRule{Discard: discard}
}

func (r *WhitespaceRule) Priority() int { return PriorityWhitespace }

// Discards reports whether matched whitespace is dropped from the output
func (r *WhitespaceRule) Discards() bool { return r.Discard }

func (r *WhitespaceRule) Match(input string, pos int) (Token, int, bool, error) {
	end := pos
	for end < len(input) {
		ch, size := utf8.DecodeRuneInString(input[end:])
		if !unicode.IsSpace(ch) {
			break
		}
		end += size
	}
	if end == pos {
		return Token{}, 0, false, nil
	}
	return Token{Kind: KindSpace, Text: input[pos:end], Pos: pos}, end - pos, true, nil
}

// QuotedRule matches text delimited by a quote character, honoring
// backslash escapes
type QuotedRule struct {
	Quote byte
}

// Quoted returns a rule for blocks delimited by quote
func Quoted(quote byte) *QuotedRule {
	return &QuotedRule{Quote: quote}
}

func (r *QuotedRule) Priority() int { return PriorityQuoted }

func (r *QuotedRule) Match(input string, pos int) (Token, int, bool, error) {
	if input[pos] != r.Quote {
		return Token{}, 0, false, nil
	}

	var sb strings.Builder
	for i := pos + 1; i < len(input); i++ {
		ch := input[i]
		switch ch {
		case r.Quote:
			return Token{Kind: KindQuoted, Text: sb.String(), Pos: pos}, i + 1 - pos, true, nil
		case '\\':
			if i+1 >= len(input) {
				return Token{}, 0, false, unterminated(pos)
			}
			i++
			switch esc := input[i]; esc {
			case '\\', r.Quote:
				sb.WriteByte(esc)
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			default:
				return Token{}, 0, false, model.Errorf(model.StatusBadRequest,
					"invalid escape sequence '\\%c' at position %d", esc, i-1)
			}
		default:
			sb.WriteByte(ch)
		}
	}
	return Token{}, 0, false, unterminated(pos)
}

func unterminated(pos int) error {
	return model.Errorf(model.StatusBadRequest, "unterminated quoted value starting at position %d", pos)
}

// LiteralRule matches a fixed string, ignoring case
type LiteralRule struct {
	Text string
}

// Literal returns a rule for a fixed, case-insensitive string
func Literal(text string) *LiteralRule {
	return &LiteralRule{Text: text}
}

// Literals returns one literal rule per text
func Literals(texts ...string) []Rule {
	rules := make([]Rule, len(texts))
	for i, text := range texts {
		rules[i] = Literal(text)
	}
	return rules
}

func (r *LiteralRule) Priority() int { return PriorityLiteral + len(r.Text) }

func (r *LiteralRule) Match(input string, pos int) (Token, int, bool, error) {
	end := pos + len(r.Text)
	if r.Text == "" || end > len(input) || !strings.EqualFold(input[pos:end], r.Text) {
		return Token{}, 0, false, nil
	}
	return Token{Kind: KindSymbol, Text: r.Text, Pos: pos}, len(r.Text), true, nil
}
