package variant_test

import (
	"context"
	"testing"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/kestrelchess/engine/pkg/eval"
	"github.com/kestrelchess/engine/pkg/search"
	"github.com/kestrelchess/engine/pkg/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, f string) *board.Position {
	t.Helper()
	pos, err := fen.Decode(f)
	require.NoError(t, err)
	return pos
}

func losersConfig(ctx context.Context) search.Config {
	return search.Config{
		TT:        search.NewTranspositionTable(ctx, 8),
		Eval:      eval.NewEvaluator(),
		Objective: variant.Losers{},
	}
}

func TestBaredKingWins(t *testing.T) {
	obj := variant.Losers{}

	// White has only the king: white to move wins.
	pos := decode(t, "4k3/4r3/8/8/8/8/8/4K3 w - - 0 1")
	score, ok := obj.Terminal(pos, 0)
	require.True(t, ok)
	assert.Equal(t, board.MateIn(0), score)

	// Same position from black's view: the opponent is bared.
	pos = decode(t, "4k3/4r3/8/8/8/8/8/4K3 b - - 0 1")
	score, ok = obj.Terminal(pos, 0)
	require.True(t, ok)
	assert.Equal(t, board.MatedIn(0), score)
}

func TestStalemateWins(t *testing.T) {
	obj := variant.Losers{}
	pos := decode(t, "8/8/8/8/8/5k2/5p2/5K2 w - - 0 1")
	assert.Equal(t, board.MateIn(3), obj.NoMoves(pos, false, 3))
}

func TestForcedCaptureSearch(t *testing.T) {
	ctx := context.Background()

	// White must capture: only b4xa5 takes. The search must pick a capture.
	pos := decode(t, "4k3/8/8/r7/1P6/8/8/4K3 w - - 0 1")
	root := search.NewRoot(ctx, pos, losersConfig(ctx), search.Limits{})
	require.Greater(t, root.MoveCount(), 0)

	pv := root.SearchIteration(ctx, 4)
	require.NotEmpty(t, pv.Moves)
	assert.Equal(t, "b4a5", pv.Moves[0].String(), "captures are compulsory")
}

func TestLosersPrefersShedding(t *testing.T) {
	obj := variant.Losers{}
	e := eval.NewEvaluator()

	// Fewer white pawns scores better for white.
	fewer := obj.Evaluate(e, decode(t, "4k3/pppp4/8/8/8/8/P7/4K3 w - - 0 1"))
	more := obj.Evaluate(e, decode(t, "4k3/pppp4/8/8/8/8/PPPP4/4K3 w - - 0 1"))
	assert.Greater(t, int(fewer), int(more))
}

func TestLosersHashSalt(t *testing.T) {
	assert.NotZero(t, variant.Losers{}.HashSalt())
	assert.Zero(t, search.Standard{}.HashSalt())
}
