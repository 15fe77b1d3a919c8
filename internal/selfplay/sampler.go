package selfplay

import (
	"context"
	"errors"
	"math/rand"

	"github.com/ChizhovVadim/halfkp/internal/halfkp"
	"github.com/ChizhovVadim/halfkp/internal/sparse"
	"github.com/ChizhovVadim/halfkp/internal/uciclient"
)

const (
	MinPlies = 20
	MaxPlies = 80
	// Plies up to SkipPlies are opening moves and are not recorded.
	SkipPlies = 8
)

// Engine is the part of the engine client a game needs.
type Engine interface {
	SetPosition(moves []string) error
	BoardFEN() (string, error)
	Search(limits uciclient.Limits) (uciclient.SearchResult, error)
}

type Game struct {
	Records []sparse.Record
	Moves   []string
	// Length is the number of plies the game was meant to last.
	Length  int
	Outcome float64
	// Dropped counts captured positions the encoder rejected.
	Dropped        int
	DroppedIndices int
	// Terminal is set when the engine reported no legal move.
	Terminal bool
}

type Sampler struct {
	Limits  uciclient.Limits
	Outcome OutcomeMode
	rnd     *rand.Rand
}

// NewSampler returns a sampler with its own random source. A Sampler is not safe for concurrent use.
func NewSampler(limits uciclient.Limits, outcome OutcomeMode, seed int64) *Sampler {
	return &Sampler{
		Limits:  limits,
		Outcome: outcome,
		rnd:     rand.New(rand.NewSource(seed)),
	}
}

type capture struct {
	fen   string
	score int
}

// PlayGame plays one self-play game from the initial position.
// A protocol error ends the game early; the positions captured so far are still labeled and returned with the error.
// A cancelled ctx abandons the game.
func (s *Sampler) PlayGame(ctx context.Context, eng Engine) (Game, error) {
	var game = Game{
		Length: MinPlies + s.rnd.Intn(MaxPlies-MinPlies+1),
	}
	var captures []capture
	var err error
	for ply := 0; ply < game.Length; ply++ {
		if err = ctx.Err(); err != nil {
			return Game{}, err
		}
		var fen string
		var result uciclient.SearchResult
		fen, result, err = s.step(eng, game.Moves)
		if err != nil {
			break
		}
		if ply > SkipPlies {
			captures = append(captures, capture{fen: fen, score: result.Score})
		}
		game.Moves = append(game.Moves, result.BestMove)
	}
	if errors.Is(err, uciclient.ErrNoMove) {
		game.Terminal = true
		err = nil
	}

	game.Outcome = s.outcome(game.Moves)
	for _, c := range captures {
		var pos, perr = halfkp.ParseFEN(c.fen)
		if perr != nil {
			game.Dropped++
			continue
		}
		var pair, dropped = halfkp.EncodeChecked(pos)
		game.DroppedIndices += dropped
		game.Records = append(game.Records, sparse.Record{
			Target: Target(c.score, game.Outcome),
			White:  pair.White,
			Black:  pair.Black,
		})
	}
	return game, err
}

func (s *Sampler) step(eng Engine, moves []string) (string, uciclient.SearchResult, error) {
	var err = eng.SetPosition(moves)
	if err != nil {
		return "", uciclient.SearchResult{}, err
	}
	fen, err := eng.BoardFEN()
	if err != nil {
		return "", uciclient.SearchResult{}, err
	}
	result, err := eng.Search(s.Limits)
	if err != nil {
		return "", uciclient.SearchResult{}, err
	}
	return fen, result, nil
}

// Target mixes the search score (centipawns) with the game outcome (white point of view) into [0, 1].
func Target(score int, outcome float64) float32 {
	var t = 0.5*(float64(score)/1000.0) + 0.5*(outcome-0.5)
	return float32(clamp01(0.5 + t/2))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
