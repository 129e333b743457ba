package search_test

import (
	"context"
	"testing"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/kestrelchess/engine/pkg/eval"
	"github.com/kestrelchess/engine/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func decode(t *testing.T, f string) *board.Position {
	t.Helper()
	pos, err := fen.Decode(f)
	require.NoError(t, err)
	return pos
}

func newConfig(ctx context.Context, hashMB uint64) search.Config {
	return search.Config{
		TT:   search.NewTranspositionTable(ctx, hashMB),
		Eval: eval.NewEvaluator(),
	}
}

// searchPosition runs iterative deepening to the given depth or node budget
// and returns the last completed PV.
func searchPosition(t *testing.T, f string, maxDepth int, maxNodes uint64) search.PV {
	t.Helper()
	ctx := context.Background()
	pos := decode(t, f)
	root := search.NewRoot(ctx, pos, newConfig(ctx, 64), search.Limits{Nodes: maxNodes})
	require.Greater(t, root.MoveCount(), 0)

	var pv search.PV
	for depth := 1; depth <= maxDepth; depth++ {
		it := root.SearchIteration(ctx, depth)
		if root.Aborted() {
			break
		}
		pv = it
		root.StorePV()
		if md, ok := pv.Score.MateDistance(); ok && md > 0 && md < depth {
			break
		}
	}
	return pv
}

// Tactical fixtures: with a depth ceiling of 15 and a node ceiling of 20
// million, the engine finds the indicated best move.
func TestTacticalFixtures(t *testing.T) {
	if testing.Short() {
		t.Skip("tactics suite is slow")
	}

	tests := []struct {
		fen  string
		best string
	}{
		{"1k1r4/pp1b1R2/3q2pp/4p3/2B5/4Q3/PPP2B2/2K5 b - - 0 1", "d6d1"},
		{"3r1k2/4npp1/1ppr3p/p6P/P2PPPP1/1NR5/5K2/2R5 w - - 0 1", "d4d5"},
		{"2r1r2k/1q3ppp/p2Rp3/2p1P3/6QB/p3P3/bP3PPP/3R2K1 w - - 0 1", "h4f6"},
		{"r4rk1/1p2ppbp/p2pbnp1/q7/3BPPP1/2N2B2/PPP4P/R2Q1RK1 b - - 0 1", "e6g4"},
		{"5rk1/2p4p/2p4r/3P4/4p1b1/1Q2NqPp/PP3P1K/R4R2 b - - 0 1", "f3g2"},
	}

	for _, tt := range tests {
		pv := searchPosition(t, tt.fen, 15, 20_000_000)
		require.NotEmpty(t, pv.Moves, "no PV for %v", tt.fen)
		assert.Equal(t, tt.best, pv.Moves[0].String(), "best move in %v", tt.fen)
	}
}

// Mates are found and scored as mates.
func TestMateIsFound(t *testing.T) {
	// Smothered mate: Qxg8 is protected by the h6 knight.
	pv := searchPosition(t, "6rk/6pp/7N/3Q4/8/8/8/7K w - - 0 1", 8, 0)
	md, ok := pv.Score.MateDistance()
	require.True(t, ok, "expected a mate score, got %v", pv.Score)
	assert.Equal(t, 1, md)
	require.NotEmpty(t, pv.Moves)
	assert.Equal(t, "d5g8", pv.Moves[0].String())
}

func TestMatedPosition(t *testing.T) {
	ctx := context.Background()
	// Back-rank mate already delivered: no legal moves.
	root := search.NewRoot(ctx, decode(t, "R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1"), newConfig(ctx, 1), search.Limits{})
	assert.Equal(t, 0, root.MoveCount())
}

// Hash-table pressure: the Lasker-Reichhelm study is intractable without
// transposition cutoffs but nearly free with them.
func TestHashPressureLaskerReichhelm(t *testing.T) {
	if testing.Short() {
		t.Skip("fine-70 suite is slow")
	}

	ctx := context.Background()
	pos := decode(t, "8/k7/3p4/p2P1p2/P2P1P2/8/8/K7 w - - 0 1")
	root := search.NewRoot(ctx, pos, newConfig(ctx, 64), search.Limits{})

	for depth := 1; depth <= 15; depth++ {
		root.SearchIteration(ctx, depth)
		root.StorePV()
	}
	assert.Less(t, root.Nodes(), uint64(50_000), "TT should collapse the search tree")
}

// Given identical inputs and a cleared history, two successive searches
// yield equal scores and equivalent best moves.
func TestSearchDeterminism(t *testing.T) {
	f := "r1bqkbnr/pppp1ppp/2n5/1B2p3/4P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3"

	first := searchPosition(t, f, 7, 0)
	second := searchPosition(t, f, 7, 0)

	assert.Equal(t, first.Score, second.Score)
	require.NotEmpty(t, first.Moves)
	require.NotEmpty(t, second.Moves)
	assert.Equal(t, first.Moves[0], second.Moves[0])
}

// The node budget aborts the search; the best move of the last completed
// iteration survives.
func TestNodeBudgetAbort(t *testing.T) {
	ctx := context.Background()
	pos := decode(t, fen.Initial)
	root := search.NewRoot(ctx, pos, newConfig(ctx, 8), search.Limits{Nodes: 5000})

	var best board.Move
	for depth := 1; depth <= 30; depth++ {
		pv := root.SearchIteration(ctx, depth)
		if root.Aborted() {
			break
		}
		require.NotEmpty(t, pv.Moves)
		best = pv.Moves[0]
		root.StorePV()
	}
	assert.True(t, best.Moving.IsValid(), "a completed iteration must have produced a best move")
	assert.True(t, root.BestMove.Equals(best))
}

// An abort discards all partial work of the in-progress iteration: the
// returned PV and best move are exactly those of the most recent fully
// completed iteration.
func TestAbortRetainsCompletedIteration(t *testing.T) {
	ctx := context.Background()
	stop := atomic.NewBool(false)
	pos := decode(t, "r1bqkbnr/pppp1ppp/2n5/1B2p3/4P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3")
	root := search.NewRoot(ctx, pos, newConfig(ctx, 8), search.Limits{Stop: stop})

	var committed search.PV
	for depth := 1; depth <= 6; depth++ {
		committed = root.SearchIteration(ctx, depth)
		require.False(t, root.Aborted())
		root.StorePV()
	}
	require.NotEmpty(t, committed.Moves)
	best := root.BestMove

	// The next iteration is stopped mid-search; its partial work must not
	// leak into the result.
	stop.Store(true)
	pv := root.SearchIteration(ctx, 12)
	assert.True(t, root.Aborted())
	assert.Equal(t, committed.Score, pv.Score)
	require.NotEmpty(t, pv.Moves)
	assert.True(t, pv.Moves[0].Equals(committed.Moves[0]))
	assert.True(t, root.BestMove.Equals(best), "best move must be from the last completed iteration")
}

func TestDrawDetectionInSearch(t *testing.T) {
	// KNK is a trivial draw: the search should return the draw score at any depth.
	pv := searchPosition(t, "7k/8/6K1/3N4/8/8/8/8 w - - 0 1", 6, 0)
	assert.Equal(t, search.DrawScore, pv.Score)
}
