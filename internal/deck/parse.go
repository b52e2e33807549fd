package deck

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed card token. It is always fatal to the
// operation that received the token and is never retried.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid card token %q: %s", e.Token, e.Reason)
}

// ParseCard parses a single 2-character card token such as "As" or "td".
// Ranks: A K Q J T 9 8 7 6 5 4 3 2. Suits: s h d c.
func ParseCard(token string) (Card, error) {
	if len(token) != 2 {
		return Card{}, &ParseError{Token: token, Reason: "must be exactly 2 characters"}
	}

	rank, ok := parseRank(token[0])
	if !ok {
		return Card{}, &ParseError{Token: token, Reason: fmt.Sprintf("unknown rank '%c'", token[0])}
	}

	suit, ok := parseSuit(token[1])
	if !ok {
		return Card{}, &ParseError{Token: token, Reason: fmt.Sprintf("unknown suit '%c'", token[1])}
	}

	return Card{Rank: rank, Suit: suit}, nil
}

// ParseCards parses a run of card tokens, e.g. "AsKsQsJsTs" or "As Ks".
func ParseCards(s string) ([]Card, error) {
	s = strings.ReplaceAll(s, " ", "")
	if len(s)%2 != 0 {
		return nil, &ParseError{Token: s, Reason: "odd length card string"}
	}

	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		card, err := ParseCard(s[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// MustParseCards parses cards and panics on error (for tests)
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(fmt.Sprintf("failed to parse cards %q: %v", s, err))
	}
	return cards
}

// FormatCards renders cards in compact token notation.
func FormatCards(cards []Card) string {
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(c.String())
	}
	return b.String()
}

func parseRank(c byte) (Rank, bool) {
	switch c {
	case 'A', 'a':
		return Ace, true
	case 'K', 'k':
		return King, true
	case 'Q', 'q':
		return Queen, true
	case 'J', 'j':
		return Jack, true
	case 'T', 't':
		return Ten, true
	case '9':
		return Nine, true
	case '8':
		return Eight, true
	case '7':
		return Seven, true
	case '6':
		return Six, true
	case '5':
		return Five, true
	case '4':
		return Four, true
	case '3':
		return Three, true
	case '2':
		return Two, true
	default:
		return 0, false
	}
}

func parseSuit(c byte) (Suit, bool) {
	switch c {
	case 's', 'S':
		return Spades, true
	case 'h', 'H':
		return Hearts, true
	case 'd', 'D':
		return Diamonds, true
	case 'c', 'C':
		return Clubs, true
	default:
		return 0, false
	}
}
