package board_test

import (
	"testing"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/stretchr/testify/assert"
)

func TestRookAttacksEmptyBoard(t *testing.T) {
	att := board.RookAttacks(board.A1, board.EmptyBitboard)
	assert.Equal(t, 14, att.PopCount())
	assert.True(t, att.IsSet(board.A8))
	assert.True(t, att.IsSet(board.H1))
	assert.False(t, att.IsSet(board.B2))
}

func TestRookAttacksBlocked(t *testing.T) {
	occ := board.BitMask(board.A1) | board.BitMask(board.A4) | board.BitMask(board.D1)
	att := board.RookAttacks(board.A1, occ)
	assert.True(t, att.IsSet(board.A4))
	assert.False(t, att.IsSet(board.A5))
	assert.True(t, att.IsSet(board.D1))
	assert.False(t, att.IsSet(board.E1))
}

func TestBishopAttacksEmptyBoard(t *testing.T) {
	att := board.BishopAttacks(board.D4, board.EmptyBitboard)
	assert.Equal(t, 13, att.PopCount())
	assert.True(t, att.IsSet(board.A1))
	assert.True(t, att.IsSet(board.G7))
	assert.False(t, att.IsSet(board.D5))
}

func TestBishopAttacksBlocked(t *testing.T) {
	occ := board.BitMask(board.D4) | board.BitMask(board.F6)
	att := board.BishopAttacks(board.D4, occ)
	assert.True(t, att.IsSet(board.F6))
	assert.False(t, att.IsSet(board.G7))
}

func TestQueenAttacksCombinesRookAndBishop(t *testing.T) {
	q := board.QueenAttacks(board.D4, board.EmptyBitboard)
	r := board.RookAttacks(board.D4, board.EmptyBitboard)
	b := board.BishopAttacks(board.D4, board.EmptyBitboard)
	assert.Equal(t, r|b, q)
}
