package search_test

import (
	"context"
	"testing"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspositionRoundTrip(t *testing.T) {
	tt := search.NewTranspositionTable(context.Background(), 1)

	m := board.Move{Type: board.Capture, From: board.E4, To: board.D5, Moving: board.Pawn, Capture: board.Pawn}
	tt.Store(0x1234567890abcdef, 3, 7, 42, m, search.LowerBound)

	got, score, bound, depth, ok := tt.Probe(0x1234567890abcdef, 3)
	require.True(t, ok)
	assert.True(t, got.Equals(m))
	assert.Equal(t, m.Type, got.Type)
	assert.Equal(t, m.Capture, got.Capture)
	assert.Equal(t, board.Score(42), score)
	assert.Equal(t, search.LowerBound, bound)
	assert.Equal(t, 7, depth)

	_, _, _, _, ok = tt.Probe(0xfedcba0987654321, 3)
	assert.False(t, ok)
}

// Mate scores are offset by ply so a retrieved entry scores the mate
// relative to the probing node, not the storing node.
func TestTranspositionMateScoreOffset(t *testing.T) {
	tt := search.NewTranspositionTable(context.Background(), 1)

	stored := board.MateIn(8) // found at ply 8
	tt.Store(0x42, 8, 5, stored, board.Move{From: board.A1, To: board.A2, Moving: board.Rook}, search.ExactBound)

	_, score, _, _, ok := tt.Probe(0x42, 4)
	require.True(t, ok)
	assert.Equal(t, board.MateIn(4), score, "mate rescored relative to probing ply")
}

func TestTranspositionReplacement(t *testing.T) {
	tt := search.NewTranspositionTable(context.Background(), 1)
	m := board.Move{From: board.B1, To: board.C3, Moving: board.Knight}

	// Same key overwrites in place.
	tt.Store(0x77, 0, 5, 10, m, search.ExactBound)
	tt.Store(0x77, 0, 9, 20, m, search.LowerBound)
	_, score, bound, depth, ok := tt.Probe(0x77, 0)
	require.True(t, ok)
	assert.Equal(t, board.Score(20), score)
	assert.Equal(t, search.LowerBound, bound)
	assert.Equal(t, 9, depth)
}

func TestTranspositionSaltSeparatesVariants(t *testing.T) {
	tt := search.NewTranspositionTable(context.Background(), 1)
	m := board.Move{From: board.B1, To: board.C3, Moving: board.Knight}

	tt.Store(0x99, 0, 5, 33, m, search.ExactBound)
	tt.SetSalt(board.LosersSalt())
	_, _, _, _, ok := tt.Probe(0x99, 0)
	assert.False(t, ok, "salted probe must not see standard entries")

	tt.SetSalt(0)
	_, score, _, _, ok := tt.Probe(0x99, 0)
	require.True(t, ok)
	assert.Equal(t, board.Score(33), score)
}

func TestTranspositionClear(t *testing.T) {
	tt := search.NewTranspositionTable(context.Background(), 1)
	tt.Store(0x11, 0, 3, 5, board.Move{From: board.A2, To: board.A3, Moving: board.Pawn}, search.ExactBound)
	tt.Clear()
	_, _, _, _, ok := tt.Probe(0x11, 0)
	assert.False(t, ok)
}
