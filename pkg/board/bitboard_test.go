package board_test

import (
	"testing"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/stretchr/testify/assert"
)

func TestBitboardPopCount(t *testing.T) {
	tests := []struct {
		bb       board.Bitboard
		expected int
	}{
		{board.EmptyBitboard, 0},
		{board.BitMask(board.G4), 1},
		{board.BitMask(board.G3) | board.BitMask(board.G4), 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.bb.PopCount())
	}
}

func TestBitboardLSBMSB(t *testing.T) {
	bb := board.BitMask(board.G3) | board.BitMask(board.B7)
	assert.Equal(t, board.G3, bb.LSB())
	assert.Equal(t, board.B7, bb.MSB())

	sq, rest := bb.PopLSB()
	assert.Equal(t, board.G3, sq)
	assert.Equal(t, board.BitMask(board.B7), rest)
}

func TestBitboardString(t *testing.T) {
	tests := []struct {
		bb       board.Bitboard
		expected string
	}{
		{board.EmptyBitboard, "--------/--------/--------/--------/--------/--------/--------/--------"},
		{board.BitMask(board.H1), "--------/--------/--------/--------/--------/--------/--------/-------X"},
		{board.BitMask(board.A8), "X-------/--------/--------/--------/--------/--------/--------/--------"},
		{board.BitMask(board.G3) | board.BitMask(board.G4), "--------/--------/--------/--------/------X-/------X-/--------/--------"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.bb.String())
	}
}

func TestKingAttackboard(t *testing.T) {
	assert.True(t, board.KingAttackboard(board.H1).IsSet(board.G1))
	assert.True(t, board.KingAttackboard(board.H1).IsSet(board.G2))
	assert.True(t, board.KingAttackboard(board.H1).IsSet(board.H2))
	assert.Equal(t, 3, board.KingAttackboard(board.H1).PopCount())

	assert.Equal(t, 8, board.KingAttackboard(board.D4).PopCount())
	assert.False(t, board.KingAttackboard(board.D4).IsSet(board.D4))
}

func TestKnightAttackboard(t *testing.T) {
	assert.Equal(t, 2, board.KnightAttackboard(board.A1).PopCount())
	assert.True(t, board.KnightAttackboard(board.A1).IsSet(board.B3))
	assert.True(t, board.KnightAttackboard(board.A1).IsSet(board.C2))

	assert.Equal(t, 8, board.KnightAttackboard(board.D4).PopCount())
}
