package selfplay

import (
	"fmt"

	"github.com/notnil/chess"
)

type OutcomeMode int

const (
	// OutcomeRandom draws the result uniformly from {0, 0.5, 1}.
	OutcomeRandom OutcomeMode = iota
	// OutcomeAdjudicated replays the game and uses the real result when the game is over.
	OutcomeAdjudicated
)

func (m OutcomeMode) String() string {
	switch m {
	case OutcomeRandom:
		return "random"
	case OutcomeAdjudicated:
		return "adjudicated"
	}
	return fmt.Sprintf("OutcomeMode(%d)", int(m))
}

func ParseOutcomeMode(s string) (OutcomeMode, error) {
	switch s {
	case "", "random":
		return OutcomeRandom, nil
	case "adjudicated":
		return OutcomeAdjudicated, nil
	}
	return OutcomeRandom, fmt.Errorf("unknown outcome mode %q", s)
}

var outcomes = [...]float64{1, 0.5, 0}

func (s *Sampler) outcome(moves []string) float64 {
	if s.Outcome == OutcomeAdjudicated {
		if result, ok := Adjudicate(moves); ok {
			return result
		}
	}
	return outcomes[s.rnd.Intn(len(outcomes))]
}

// Adjudicate replays UCI moves from the initial position.
// It reports the result from white's point of view if the game is over.
func Adjudicate(moves []string) (float64, bool) {
	var game = chess.NewGame(chess.UseNotation(chess.UCINotation{}))
	for _, move := range moves {
		if err := game.MoveStr(move); err != nil {
			return 0, false
		}
	}
	switch game.Outcome() {
	case chess.WhiteWon:
		return 1, true
	case chess.BlackWon:
		return 0, true
	case chess.Draw:
		return 0.5, true
	}
	return 0, false
}
