package deck

import (
	"errors"
	"testing"

	"github.com/pokeriq/gtocore/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	card, err := ParseCard("As")
	require.NoError(t, err)
	assert.Equal(t, Ace, card.Rank)
	assert.Equal(t, Spades, card.Suit)

	card, err = ParseCard("td")
	require.NoError(t, err)
	assert.Equal(t, Ten, card.Rank)
	assert.Equal(t, Diamonds, card.Suit)
}

func TestParseCardRejectsMalformedTokens(t *testing.T) {
	for _, token := range []string{"", "A", "Asd", "1s", "Ax", "Zs"} {
		_, err := ParseCard(token)
		require.Error(t, err, "token %q", token)

		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr), "expected ParseError for %q", token)
	}
}

func TestParseCardsRoundTrip(t *testing.T) {
	cards, err := ParseCards("AhKhQhJhTh")
	require.NoError(t, err)
	require.Len(t, cards, 5)
	assert.Equal(t, "AhKhQhJhTh", FormatCards(cards))
}

func TestParseCardsOddLength(t *testing.T) {
	_, err := ParseCards("AsK")
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestCardIndexUnique(t *testing.T) {
	seen := make(map[int]bool)
	for _, card := range AllCards() {
		idx := card.Index()
		require.False(t, seen[idx], "duplicate index %d for %s", idx, card)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 52)
		seen[idx] = true
	}
	assert.Len(t, seen, 52)
}

func TestRemainingExcludesUsedCards(t *testing.T) {
	used := MustParseCards("AsAhKd")
	rest := Remaining(NewCardSet(used))
	require.Len(t, rest, 49)
	set := NewCardSet(rest)
	for _, card := range used {
		assert.False(t, set.Contains(card))
	}
}

func TestDeckDrawIsDeterministicForSeed(t *testing.T) {
	a := NewWithout(MustParseCards("AsKs"))
	b := NewWithout(MustParseCards("AsKs"))
	a.Shuffle(randutil.New(7))
	b.Shuffle(randutil.New(7))

	assert.Equal(t, a.Draw(5), b.Draw(5))
	assert.Equal(t, 45, a.Len())
}
