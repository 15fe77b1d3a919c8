package selfplay

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ChizhovVadim/halfkp/internal/uciclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const knightFEN = "4k3/8/8/8/4N3/8/8/4K3 w - - 0 1"

// scriptedEngine answers with placeholder moves and a scripted board.
type scriptedEngine struct {
	fen       func(ply int) string
	score     int
	failAt    int
	failErr   error
	positions [][]string
}

func (e *scriptedEngine) SetPosition(moves []string) error {
	e.positions = append(e.positions, append([]string(nil), moves...))
	return nil
}

func (e *scriptedEngine) BoardFEN() (string, error) {
	return e.fen(len(e.positions) - 1), nil
}

func (e *scriptedEngine) Search(limits uciclient.Limits) (uciclient.SearchResult, error) {
	var ply = len(e.positions) - 1
	if e.failErr != nil && ply == e.failAt {
		return uciclient.SearchResult{}, e.failErr
	}
	return uciclient.SearchResult{BestMove: "m" + string(rune('a'+ply%26)), Score: e.score, HasScore: true}, nil
}

func constantFEN(fen string) func(int) string {
	return func(int) string { return fen }
}

func TestPlayGameRecordsAfterOpening(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		var eng = &scriptedEngine{fen: constantFEN(knightFEN), score: 200}
		var sampler = NewSampler(uciclient.Limits{Depth: 7}, OutcomeRandom, seed)
		var game, err = sampler.PlayGame(context.Background(), eng)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, game.Length, MinPlies)
		assert.LessOrEqual(t, game.Length, MaxPlies)
		assert.Len(t, game.Moves, game.Length)
		assert.Len(t, game.Records, game.Length-SkipPlies-1)
		assert.Contains(t, []float64{0, 0.5, 1}, game.Outcome)

		var want = Target(200, game.Outcome)
		for _, rec := range game.Records {
			assert.Equal(t, want, rec.Target)
			assert.Equal(t, []int32{2652}, rec.White)
		}
		// each position is the full move list from the start
		for ply, moves := range eng.positions {
			assert.Len(t, moves, ply)
		}
	}
}

func TestPlayGameStopsOnError(t *testing.T) {
	var eng = &scriptedEngine{
		fen:     constantFEN(knightFEN),
		failAt:  12,
		failErr: uciclient.ErrTimeout,
	}
	var sampler = NewSampler(uciclient.Limits{Depth: 1}, OutcomeRandom, 7)
	var game, err = sampler.PlayGame(context.Background(), eng)
	assert.True(t, errors.Is(err, uciclient.ErrTimeout))
	assert.Len(t, game.Moves, 12)
	// plies 9, 10, 11
	assert.Len(t, game.Records, 3)
}

func TestPlayGameNoMoveIsTerminal(t *testing.T) {
	var eng = &scriptedEngine{
		fen:     constantFEN(knightFEN),
		failAt:  10,
		failErr: uciclient.ErrNoMove,
	}
	var sampler = NewSampler(uciclient.Limits{Depth: 1}, OutcomeRandom, 7)
	var game, err = sampler.PlayGame(context.Background(), eng)
	require.NoError(t, err)
	assert.True(t, game.Terminal)
	assert.Len(t, game.Records, 1)
}

func TestPlayGameDropsBadFEN(t *testing.T) {
	var eng = &scriptedEngine{
		fen: func(ply int) string {
			if ply%2 == 0 {
				return "8/8/8/8/8/8/8/8 w - - 0 1"
			}
			return knightFEN
		},
	}
	var sampler = NewSampler(uciclient.Limits{Depth: 1}, OutcomeRandom, 3)
	var game, err = sampler.PlayGame(context.Background(), eng)
	require.NoError(t, err)
	var captured = game.Length - SkipPlies - 1
	assert.Equal(t, captured, game.Dropped+len(game.Records))
	assert.NotZero(t, game.Dropped)
}

func TestPlayGameCancelled(t *testing.T) {
	var ctx, cancel = context.WithCancel(context.Background())
	cancel()
	var sampler = NewSampler(uciclient.Limits{Depth: 1}, OutcomeRandom, 1)
	var _, err = sampler.PlayGame(ctx, &scriptedEngine{fen: constantFEN(knightFEN)})
	assert.Equal(t, context.Canceled, err)
}

func TestTarget(t *testing.T) {
	var tests = []struct {
		score   int
		outcome float64
		want    float64
	}{
		{0, 0.5, 0.5},
		{0, 1, 0.625},
		{0, 0, 0.375},
		{200, 1, 0.675},
		{-200, 0, 0.325},
		{5000, 1, 1},
		{-5000, 0, 0},
		{1000, 0.5, 0.75},
	}
	for _, test := range tests {
		var got = Target(test.score, test.outcome)
		assert.InDelta(t, test.want, float64(got), 1e-6, "%v %v", test.score, test.outcome)
	}
}

func TestTargetRange(t *testing.T) {
	for score := -3000; score <= 3000; score += 37 {
		for _, outcome := range []float64{0, 0.5, 1} {
			var got = float64(Target(score, outcome))
			assert.False(t, math.IsNaN(got))
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	}
}

func TestAdjudicate(t *testing.T) {
	// fool's mate
	var result, ok = Adjudicate([]string{"f2f3", "e7e5", "g2g4", "d8h4"})
	require.True(t, ok)
	assert.Equal(t, 0.0, result)

	_, ok = Adjudicate([]string{"e2e4", "e7e5"})
	assert.False(t, ok)

	_, ok = Adjudicate([]string{"e2e5"})
	assert.False(t, ok)
}

func TestAdjudicatedFallsBackToRandom(t *testing.T) {
	var eng = &scriptedEngine{fen: constantFEN(knightFEN)}
	var sampler = NewSampler(uciclient.Limits{Depth: 1}, OutcomeAdjudicated, 5)
	var game, err = sampler.PlayGame(context.Background(), eng)
	require.NoError(t, err)
	// dummy moves cannot be replayed
	assert.Contains(t, []float64{0, 0.5, 1}, game.Outcome)
}

func TestParseOutcomeMode(t *testing.T) {
	var mode, err = ParseOutcomeMode("adjudicated")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdjudicated, mode)
	assert.Equal(t, "adjudicated", mode.String())
	_, err = ParseOutcomeMode("coin")
	assert.Error(t, err)
}
