package evaluator

import (
	"errors"
	rand "math/rand/v2"
	"testing"

	"github.com/pokeriq/gtocore/internal/deck"
	"github.com/pokeriq/gtocore/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankOf(t *testing.T, cards string) HandRank {
	t.Helper()
	rank, err := Evaluate(deck.MustParseCards(cards))
	require.NoError(t, err)
	return rank
}

func TestEvaluateCategories(t *testing.T) {
	tests := []struct {
		name     string
		cards    string
		category int
	}{
		{"royal flush", "AhKhQhJhTh2c3d", CategoryRoyalFlush},
		{"straight flush", "9s8s7s6s5s2c3d", CategoryStraightFlush},
		{"wheel straight flush", "As2s3s4s5s9c9d", CategoryStraightFlush},
		{"four of a kind", "7c7d7h7s2c3d4h", CategoryFourOfAKind},
		{"full house", "2c2d2h3c3d4h5h", CategoryFullHouse},
		{"flush", "Ac9c7c5c2cKdQh", CategoryFlush},
		{"straight", "9c8d7h6s5c2c2d", CategoryStraight},
		{"wheel straight", "Ac2d3h4s5cKdKh", CategoryStraight},
		{"three of a kind", "8c8d8hKc2d4s6h", CategoryThreeOfAKind},
		{"two pair", "JcJdQhQc2d4s6h", CategoryTwoPair},
		{"one pair", "TcTd2h4c6d8sKh", CategoryPair},
		{"high card", "Ac2d4h6c8dTsQh", CategoryHighCard},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.category, rankOf(t, tc.cards).Category())
		})
	}
}

func TestEvaluateCategoryOrdering(t *testing.T) {
	// Reference hands in ascending strength; each must beat all before it.
	ladder := []string{
		"Ac2d4h6c8dTsQh", // high card
		"TcTd2h4c6d8sKh", // pair
		"JcJdQhQc2d4s6h", // two pair
		"8c8d8hKc2d4s6h", // trips
		"9c8d7h6s5c2c2d", // straight
		"Ac9c7c5c2cKdQh", // flush
		"2c2d2h3c3d4h5h", // full house
		"7c7d7h7s2c3d4h", // quads
		"9s8s7s6s5s2c3d", // straight flush
		"AhKhQhJhTh2c3d", // royal flush
	}
	for i := 1; i < len(ladder); i++ {
		for j := 0; j < i; j++ {
			stronger := rankOf(t, ladder[i])
			weaker := rankOf(t, ladder[j])
			assert.Equal(t, 1, stronger.Compare(weaker), "%s should beat %s", ladder[i], ladder[j])
		}
	}
}

func TestEvaluateFullHouseKickers(t *testing.T) {
	// Trips of twos over threes per the worked example.
	rank := rankOf(t, "2c2d2h3c3d4h5h")
	assert.Equal(t, CategoryFullHouse, rank.Category())
	assert.Equal(t, int(deck.Two), rank.Kicker(0))
	assert.Equal(t, int(deck.Three), rank.Kicker(1))
}

func TestEvaluateKickerBreaksTies(t *testing.T) {
	aceKicker := rankOf(t, "TcTd2h4c6dAsKh")
	queenKicker := rankOf(t, "TsTh2d4d6cQsKd")
	assert.Equal(t, 1, aceKicker.Compare(queenKicker))

	identical := rankOf(t, "TcTd2h4c6dAsKh")
	assert.Equal(t, 0, aceKicker.Compare(identical))
}

func TestEvaluatePermutationInvariant(t *testing.T) {
	cards := deck.MustParseCards("AhKhQhJhTh2c3d")
	want := MustEvaluate(cards)

	rng := randutil.New(11)
	for i := 0; i < 50; i++ {
		shuffled := make([]deck.Card, len(cards))
		copy(shuffled, cards)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, MustEvaluate(shuffled))
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	var vErr *ValidationError

	_, err := Evaluate(deck.MustParseCards("AsKs"))
	require.True(t, errors.As(err, &vErr), "too few cards")

	_, err = Evaluate(deck.MustParseCards("As2s3s4s5s6s7s8s"))
	require.True(t, errors.As(err, &vErr), "too many cards")

	_, err = Evaluate(deck.MustParseCards("AsAs2c3c4c"))
	require.True(t, errors.As(err, &vErr), "duplicate cards")
}

func TestEvaluateFiveAndSixCards(t *testing.T) {
	assert.Equal(t, CategoryStraight, rankOf(t, "9c8d7h6s5c").Category())
	assert.Equal(t, CategoryFlush, rankOf(t, "Ac9c7c5c2cKd").Category())
}

func TestEquityDeterministicForSeed(t *testing.T) {
	hole := deck.MustParseCards("AsAh")

	a, err := Equity(hole, nil, 1, 5000, randutil.New(42))
	require.NoError(t, err)
	b, err := Equity(hole, nil, 1, 5000, randutil.New(42))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEquityPocketAcesHeadsUp(t *testing.T) {
	hole := deck.MustParseCards("AsAh")

	eq, err := Equity(hole, nil, 1, 100000, randutil.New(1))
	require.NoError(t, err)
	assert.InDelta(t, 0.85, eq, 0.015, "AA heads-up equity should converge to ~85%%")
}

func TestEquityExcludesVisibleCards(t *testing.T) {
	// Hero holds the nut flush on a four-heart board; no undealt hand wins.
	hole := deck.MustParseCards("AhKh")
	board := deck.MustParseCards("QhJh2h3c9h")

	eq, err := Equity(hole, board, 2, 2000, randutil.New(3))
	require.NoError(t, err)
	assert.Equal(t, 1.0, eq)
}

func TestEquityValidation(t *testing.T) {
	var vErr *ValidationError
	hole := deck.MustParseCards("AsAh")

	_, err := Equity(deck.MustParseCards("As"), nil, 1, 100, randutil.New(1))
	require.True(t, errors.As(err, &vErr))

	_, err = Equity(hole, nil, 0, 100, randutil.New(1))
	require.True(t, errors.As(err, &vErr))

	_, err = Equity(hole, nil, 1, 0, randutil.New(1))
	require.True(t, errors.As(err, &vErr))

	_, err = Equity(hole, deck.MustParseCards("As2c3c"), 1, 100, randutil.New(1))
	require.True(t, errors.As(err, &vErr), "board duplicates hole card")
}

func TestEquityParallelMatchesSequentialScale(t *testing.T) {
	hole := deck.MustParseCards("KsKh")

	seq, err := Equity(hole, nil, 1, 20000, randutil.New(9))
	require.NoError(t, err)
	par, err := EquityParallel(hole, nil, 1, 20000, randutil.New(9))
	require.NoError(t, err)
	assert.InDelta(t, seq, par, 0.03)
}

var benchSink float64

func BenchmarkEquity(b *testing.B) {
	hole := deck.MustParseCards("AsKs")
	board := deck.MustParseCards("Qs7h2d")
	rng := rand.New(rand.NewPCG(1, 2))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eq, _ := Equity(hole, board, 2, 100, rng)
		benchSink = eq
	}
}
