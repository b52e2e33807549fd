package evaluator

import (
	"context"
	rand "math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/pokeriq/gtocore/internal/deck"
	"github.com/pokeriq/gtocore/internal/randutil"
)

// Equity estimates the probability of winning or splitting the pot against
// opponentCount random hands via independent Monte-Carlo trials. Each trial
// deals the remaining board and opponent hole cards uniformly from the cards
// not already visible, then tallies (wins + ties/2) / iterations. The result
// is deterministic for a seeded rng.
func Equity(hole, board []deck.Card, opponentCount, iterations int, rng *rand.Rand) (float64, error) {
	if len(hole) != 2 {
		return 0, Validationf("equity requires exactly 2 hole cards, got %d", len(hole))
	}
	if len(board) > 5 {
		return 0, Validationf("board cannot exceed 5 cards, got %d", len(board))
	}
	if opponentCount < 1 {
		return 0, Validationf("opponent count must be >= 1, got %d", opponentCount)
	}
	if iterations < 1 {
		return 0, Validationf("iterations must be >= 1, got %d", iterations)
	}

	var visible deck.CardSet
	for _, c := range hole {
		visible.Add(c)
	}
	for _, c := range board {
		if visible.Contains(c) {
			return 0, Validationf("duplicate card %s", c)
		}
		visible.Add(c)
	}
	available := deck.Remaining(visible)

	need := (5 - len(board)) + 2*opponentCount
	if need > len(available) {
		return 0, Validationf("not enough undealt cards for %d opponents", opponentCount)
	}

	wins, ties := runTrials(hole, board, available, opponentCount, iterations, rng)
	return (float64(wins) + float64(ties)/2.0) / float64(iterations), nil
}

// EquityParallel splits the trial budget across workers. Per-worker seeds
// come from the caller's rng, so a run is reproducible on a fixed worker
// count but trial order is unspecified.
func EquityParallel(hole, board []deck.Card, opponentCount, iterations int, rng *rand.Rand) (float64, error) {
	const parallelThreshold = 2000
	if iterations < parallelThreshold {
		return Equity(hole, board, opponentCount, iterations, rng)
	}

	// Validate once up front via a single-trial sequential call.
	if _, err := Equity(hole, board, opponentCount, 1, randutil.New(0)); err != nil {
		return 0, err
	}

	var visible deck.CardSet
	for _, c := range hole {
		visible.Add(c)
	}
	for _, c := range board {
		visible.Add(c)
	}
	available := deck.Remaining(visible)

	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}

	type tally struct{ wins, ties int }
	results := make([]tally, workers)

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		share := iterations / workers
		if w < iterations%workers {
			share++
		}
		seed := rng.Int64()
		idx := w
		g.Go(func() error {
			wrng := randutil.New(seed)
			wins, ties := runTrials(hole, board, available, opponentCount, share, wrng)
			results[idx] = tally{wins: wins, ties: ties}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	totalWins, totalTies := 0, 0
	for _, r := range results {
		totalWins += r.wins
		totalTies += r.ties
	}
	return (float64(totalWins) + float64(totalTies)/2.0) / float64(iterations), nil
}

func runTrials(hole, board, available []deck.Card, opponentCount, iterations int, rng *rand.Rand) (wins, ties int) {
	boardNeed := 5 - len(board)
	need := boardNeed + 2*opponentCount

	scratch := make([]deck.Card, len(available))
	heroHand := make([]deck.Card, 7)
	oppHand := make([]deck.Card, 7)
	copy(heroHand, hole)

	for trial := 0; trial < iterations; trial++ {
		// Partial Fisher-Yates: the first `need` slots become a uniform
		// sample without replacement.
		copy(scratch, available)
		for i := 0; i < need; i++ {
			j := i + rng.IntN(len(scratch)-i)
			scratch[i], scratch[j] = scratch[j], scratch[i]
		}

		copy(heroHand[2:], board)
		copy(heroHand[2+len(board):], scratch[:boardNeed])
		heroRank := MustEvaluate(heroHand)

		best := heroRank
		heroBest := true
		heroTied := false
		for opp := 0; opp < opponentCount; opp++ {
			copy(oppHand[:2], scratch[boardNeed+2*opp:boardNeed+2*opp+2])
			copy(oppHand[2:], heroHand[2:])
			oppRank := MustEvaluate(oppHand)
			switch oppRank.Compare(best) {
			case 1:
				best = oppRank
				heroBest = false
				heroTied = false
			case 0:
				if heroBest {
					heroTied = true
				}
			}
		}

		if heroBest && !heroTied {
			wins++
		} else if heroBest && heroTied {
			ties++
		}
	}
	return wins, ties
}
