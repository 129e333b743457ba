package fen_test

import (
	"testing"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []string{
		fen.Initial,
		"4k3/2pppp2/8/4P1K1/4PP2/3P4/8/8 w - - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/5P2/PPPPP1PP/RNBQKBNR w KQkq - 0 1",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2",
		"8/k7/3p4/p2P1p2/P2P1P2/8/8/K7 w - - 0 1",
	}

	for _, tt := range tests {
		p, err := fen.Decode(tt)
		require.NoError(t, err)

		assert.Equal(t, tt, fen.Encode(p))
	}
}

func TestDecodeFields(t *testing.T) {
	p, err := fen.Decode("rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8")
	require.NoError(t, err)

	assert.Equal(t, board.White, p.Turn())
	assert.Equal(t, board.WhiteKingSideCastle|board.WhiteQueenSideCastle, p.Castling())
	assert.Equal(t, 1, p.HalfMoveClock())
	assert.Equal(t, 8, p.FullMoves())

	_, ok := p.EnPassant()
	assert.False(t, ok)

	c, piece, ok := p.Square(board.D7)
	require.True(t, ok)
	assert.Equal(t, board.White, c)
	assert.Equal(t, board.Pawn, piece)
}

func TestDecodeErrors(t *testing.T) {
	tests := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",          // missing fields
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",      // bad color
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KXkq - 0 1",      // bad castling
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e9 0 1",     // bad ep square
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBN1 w KQkq - 0 1",      // wrong square count
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNRR w KQkq - 0 1",     // overfull rank
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - x 1",      // bad halfmove
		"rnbqnbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",      // no black king
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 notnum", // bad fullmove
	}

	for _, tt := range tests {
		_, err := fen.Decode(tt)
		assert.Error(t, err, "FEN '%v'", tt)
	}
}
