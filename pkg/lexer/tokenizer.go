package lexer

import "sort"

// Tokenizer converts text into tokens using a fixed, priority ordered rule set.
// A Tokenizer is immutable and safe for concurrent use.
type Tokenizer struct {
	rules []Rule
}

// New creates a tokenizer; rules are ordered by descending priority, ties
// keeping their given order
func New(rules ...Rule) *Tokenizer {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})
	return &Tokenizer{rules: sorted}
}

// Tokenize scans input once and returns its tokens
func (t *Tokenizer) Tokenize(input string) ([]Token, error) {
	var tokens []Token
	pending := -1

	flush := func(end int) {
		if pending >= 0 {
			tokens = append(tokens, Token{Kind: KindValue, Text: input[pending:end], Pos: pending})
			pending = -1
		}
	}

	pos := 0
	for pos < len(input) {
		tok, n, rule, err := t.match(input, pos)
		if err != nil {
			return nil, err
		}
		if rule == nil {
			if pending < 0 {
				pending = pos
			}
			pos++
			continue
		}

		flush(pos)
		if d, ok := rule.(discarder); !ok || !d.Discards() {
			tokens = append(tokens, tok)
		}
		pos += n
	}
	flush(len(input))

	return tokens, nil
}

// discarder is implemented by rules whose matches only delimit other tokens
type discarder interface {
	Discards() bool
}

func (t *Tokenizer) match(input string, pos int) (Token, int, Rule, error) {
	for _, rule := range t.rules {
		tok, n, ok, err := rule.Match(input, pos)
		if err != nil {
			return Token{}, 0, nil, err
		}
		if ok && n > 0 {
			return tok, n, rule, nil
		}
	}
	return Token{}, 0, nil, nil
}
