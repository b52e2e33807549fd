package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/pokeriq/gtocore/internal/deck"
	"github.com/pokeriq/gtocore/internal/engine"
	"github.com/pokeriq/gtocore/internal/game"
	"github.com/pokeriq/gtocore/internal/randutil"
)

// AdviseCmd solves a single spot. Opponent hole cards are dealt randomly
// from the unseen cards; the hand is walked passively (calls and checks) to
// the street the board describes, so the printed advice is for the hero's
// first decision there.
type AdviseCmd struct {
	Hole    string `help:"hero hole cards, e.g. AsKs" required:""`
	Board   string `help:"community cards, e.g. 2c7d9h (empty for preflop)"`
	Players int    `help:"number of players in the hand" default:"2"`
	StackBB int    `help:"stack depth in big blinds" default:"100"`
	Seed    int64  `help:"seed for opponent hole cards" default:"1"`
}

func (cmd *AdviseCmd) Run(ctx context.Context, cfg *engine.Config, logger *log.Logger) error {
	hole, err := deck.ParseCards(cmd.Hole)
	if err != nil {
		return err
	}
	if len(hole) != 2 {
		return fmt.Errorf("hero must hold exactly 2 cards, got %d", len(hole))
	}
	board, err := deck.ParseCards(cmd.Board)
	if err != nil {
		return err
	}
	if cmd.Players < 2 {
		return fmt.Errorf("a hand requires at least 2 players, got %d", cmd.Players)
	}

	eng, err := engine.New(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Shutdown(context.Background()); err != nil {
			logger.Warn("engine shutdown", "error", err)
		}
	}()

	state, err := buildSpot(cfg, hole, board, cmd.Players, cmd.StackBB, cmd.Seed)
	if err != nil {
		return err
	}

	logger.Info("solving spot",
		"hero", deck.FormatCards(hole),
		"board", deck.FormatCards(board),
		"street", state.Street,
		"pot", state.Pot)

	d, err := eng.GetDecision(ctx, state)
	if err != nil {
		return err
	}
	printDecision(state, d)
	return nil
}

// buildSpot deals a hand with the hero's known cards in the seat that acts
// first on the target street, fills the other seats from the unseen deck,
// and checks the hand down to the given board.
func buildSpot(cfg *engine.Config, hole, board []deck.Card, players, stackBB int, seed int64) (game.GameState, error) {
	const smallBlind, bigBlind = 5, 10

	street, err := streetForBoard(len(board))
	if err != nil {
		return game.GameState{}, err
	}

	d := deck.NewWithout(append(append([]deck.Card(nil), hole...), board...))
	d.Shuffle(randutil.New(seed))

	stacks := make([]int, players)
	holes := make([][]deck.Card, players)
	for i := range stacks {
		stacks[i] = stackBB * bigBlind
		holes[i] = append([]deck.Card(nil), d.Draw(2)...)
	}
	// Hero takes the seat that opens the target street.
	hero := 0
	if street == game.Preflop {
		hero = 2 % players
	} else if players == 2 {
		hero = 1
	}
	holes[hero] = append([]deck.Card(nil), hole...)

	state, err := game.NewHand(smallBlind, bigBlind, stacks, holes)
	if err != nil {
		return game.GameState{}, err
	}

	abs := cfg.GameAbstraction()
	dealt := 0
	for state.Street < street || state.ToAct < 0 {
		if state.ToAct >= 0 {
			state, err = passiveStep(state, abs)
		} else {
			n := state.PendingCards()
			state, err = state.Deal(board[dealt : dealt+n])
			dealt += n
		}
		if err != nil {
			return game.GameState{}, err
		}
	}
	return state, nil
}

func streetForBoard(cards int) (game.Street, error) {
	switch cards {
	case 0:
		return game.Preflop, nil
	case 3:
		return game.Flop, nil
	case 4:
		return game.Turn, nil
	case 5:
		return game.River, nil
	default:
		return 0, fmt.Errorf("board must have 0, 3, 4, or 5 cards, got %d", cards)
	}
}

func passiveStep(state game.GameState, abs game.Abstraction) (game.GameState, error) {
	for _, a := range state.LegalActions(abs) {
		if a.Type == game.Call || a.Type == game.Check {
			return state.Apply(a)
		}
	}
	return game.GameState{}, fmt.Errorf("no passive action available at %s", state.Street)
}

func printDecision(state game.GameState, d *engine.Decision) {
	fmt.Printf("\nRecommendation: %s\n", d.Action)
	fmt.Printf("Confidence:     %.0f%%  (source: %s)\n", d.Confidence*100, d.Source)
	fmt.Printf("Hand equity:    %.1f%%\n", d.HandStrength*100)
	if d.PotOdds > 0 {
		fmt.Printf("Pot odds:       %.1f%%\n", d.PotOdds*100)
	}
	if d.Iterations > 0 {
		fmt.Printf("Solve:          %d iterations, exploitability %.3f bb/hand\n",
			d.Iterations, d.Exploitability)
	}
	fmt.Printf("\nStrategy mix:\n")
	for _, ra := range d.Ranked {
		if ra.Probability < 0.005 {
			continue
		}
		fmt.Printf("  %-12s %5.1f%%\n", ra.Action, ra.Probability*100)
	}
	fmt.Printf("\n%s\n", d.Reasoning)
}
