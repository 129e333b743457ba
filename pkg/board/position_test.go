package board_test

import (
	"testing"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, f string) *board.Position {
	t.Helper()
	pos, err := fen.Decode(f)
	require.NoError(t, err)
	return pos
}

func mustMove(t *testing.T, pos *board.Position, str string) board.Move {
	t.Helper()
	m, err := board.ParseMove(str)
	require.NoError(t, err)
	full, ok := pos.Find(m)
	require.True(t, ok, "move %v not legal in %v", str, pos)
	return full
}

// Perft node counts from the standard test corpus.
//
// See: https://www.chessprogramming.org/Perft_Results.
func TestPerft(t *testing.T) {
	tests := []struct {
		fen    string
		counts []uint64
	}{
		{fen.Initial, []uint64{20, 400, 8902, 197281}},
		{"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", []uint64{48, 2039, 97862}},
		{"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1", []uint64{14, 191, 2812, 43238}},
		{"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1", []uint64{6, 264, 9467}},
		{"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8", []uint64{44, 1486, 62379}},
		{"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10", []uint64{46, 2079, 89890}},
	}

	for _, tt := range tests {
		pos := decode(t, tt.fen)
		for depth, expected := range tt.counts {
			assert.Equal(t, expected, pos.Perft(depth+1), "perft(%v) of %v", depth+1, tt.fen)
		}
		// The enumeration made and unmade every move: the position must be intact.
		assert.Equal(t, tt.fen, fen.Encode(pos))
	}
}

func TestMakeUnmakeKeys(t *testing.T) {
	pos := decode(t, fen.Initial)

	moves := []string{"e2e4", "d7d5", "e4d5", "d8d5", "b1c3", "d5a5", "g1f3", "g8f6", "f1c4", "c8g4", "e1g1"}

	var keys []board.ZobristHash
	for _, str := range moves {
		keys = append(keys, pos.Key())
		m := mustMove(t, pos, str)
		pos.Make(m)

		// After a make, the incremental keys equal those computed from
		// scratch over the new position.
		fresh := decode(t, fen.Encode(pos))
		assert.Equal(t, fresh.Key(), pos.Key(), "after %v", str)
		assert.Equal(t, fresh.PawnKey(), pos.PawnKey(), "after %v", str)
		assert.Equal(t, fresh.MaterialKey(), pos.MaterialKey(), "after %v", str)
	}

	for i := len(moves) - 1; i >= 0; i-- {
		pos.Unmake()
		assert.Equal(t, keys[i], pos.Key(), "unmake to %v", i)
	}
	assert.Equal(t, fen.Initial, fen.Encode(pos))
}

func TestNullMove(t *testing.T) {
	pos := decode(t, "rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2")
	key := pos.Key()

	pos.MakeNull()
	assert.Equal(t, board.Black, pos.Turn())
	assert.NotEqual(t, key, pos.Key())
	_, ok := pos.EnPassant()
	assert.False(t, ok, "null move clears en passant")
	assert.True(t, pos.LastMoveWasNull())

	pos.UnmakeNull()
	assert.Equal(t, key, pos.Key())
	assert.Equal(t, board.White, pos.Turn())
}

func TestSEE(t *testing.T) {
	tests := []struct {
		fen      string
		move     string
		expected board.Score
	}{
		// Rook takes undefended pawn.
		{"1k1r4/1pp4p/p7/4p3/8/P5P1/1PP4P/2K1R3 w - - 0 1", "e1e5", 100},
		// Knight takes defended pawn.
		{"1k1r3q/1ppn3p/p4b2/4p3/8/P2N2P1/1PP1R1BP/2K1Q3 w - - 0 1", "d3e5", -225},
		// Rook takes a pawn defended by a rook.
		{"k2r4/8/3p4/8/3R4/8/8/K7 w - - 0 1", "d4d6", -400},
	}

	for _, tt := range tests {
		pos := decode(t, tt.fen)
		m := mustMove(t, pos, tt.move)
		assert.Equal(t, tt.expected, pos.SEE(m), "SEE of %v in %v", tt.move, tt.fen)
	}
}

func TestGivesCheck(t *testing.T) {
	tests := []struct {
		fen      string
		move     string
		expected int
	}{
		// Direct rook check.
		{"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", "a1a8", 1},
		// No check.
		{"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", "a1b1", 0},
		// Discovered check: the knight vacates the a4-e8 diagonal.
		{"4k3/3N4/8/8/B7/8/8/4K3 w - - 0 1", "d7b8", 1},
		// Checking promotion.
		{"4k3/1P6/8/8/8/8/8/4K3 w - - 0 1", "b7b8q", 1},
		// En passant discovery: both pawns vacate the fifth rank.
		{"8/8/8/R2pP2k/8/8/8/4K3 w - d6 0 1", "e5d6", 1},
	}

	for _, tt := range tests {
		pos := decode(t, tt.fen)
		m := mustMove(t, pos, tt.move)
		assert.Equal(t, tt.expected, pos.GivesCheck(m), "givesCheck of %v in %v", tt.move, tt.fen)
	}
}

func TestGivesCheckDouble(t *testing.T) {
	// The knight checks from f6 while uncovering the a4 bishop.
	pos := decode(t, "4k3/3N4/8/8/B7/8/8/4K3 w - - 0 1")
	m := mustMove(t, pos, "d7f6")
	assert.Equal(t, 2, pos.GivesCheck(m))
}

func TestDrawDetection(t *testing.T) {
	t.Run("insufficient material", func(t *testing.T) {
		assert.True(t, decode(t, "8/8/4k3/8/8/3K4/8/8 w - - 0 1").IsDraw())
		assert.True(t, decode(t, "8/8/4k3/8/8/3KN3/8/8 w - - 0 1").IsDraw())
		assert.True(t, decode(t, "8/5b2/4k3/8/8/3KN3/8/8 w - - 0 1").IsDraw())
		assert.False(t, decode(t, "8/5b2/4k3/8/8/3K1R2/8/8 w - - 0 1").IsDraw())
		assert.False(t, decode(t, "8/8/4k3/8/8/3KP3/8/8 w - - 0 1").IsDraw())
	})

	t.Run("fifty moves", func(t *testing.T) {
		assert.True(t, decode(t, "8/5r2/4k3/8/8/3K1R2/8/8 w - - 100 80").IsDraw())
		assert.False(t, decode(t, "8/5r2/4k3/8/8/3K1R2/8/8 w - - 99 80").IsDraw())
	})

	t.Run("repetition", func(t *testing.T) {
		pos := decode(t, "8/5r2/4k3/8/8/3KR3/8/8 w - - 0 1")
		for _, str := range []string{"d3d2", "e6d6", "d2d3", "d6e6"} {
			assert.False(t, pos.IsDraw())
			pos.Make(mustMove(t, pos, str))
		}
		// The initial position has repeated once: draw for search purposes.
		assert.True(t, pos.IsDraw())
	})
}

func TestValid(t *testing.T) {
	pos := decode(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")

	// Every generated pseudo-legal move is valid.
	for _, m := range pos.PseudoLegalMoves() {
		assert.True(t, pos.Valid(m), "generated move %v", m)
	}

	// Stale hash-style moves are rejected.
	assert.False(t, pos.Valid(board.Move{Type: board.Normal, From: board.D1, To: board.D4, Moving: board.Queen}))
	assert.False(t, pos.Valid(board.Move{Type: board.Capture, From: board.F3, To: board.F7, Moving: board.Queen, Capture: board.Pawn}))
	assert.False(t, pos.Valid(board.Move{Type: board.Push, From: board.D5, To: board.D7, Moving: board.Pawn}))
}

func TestLegalMatchesMakeUnmake(t *testing.T) {
	tests := []string{
		fen.Initial,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 b - - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	}

	for _, f := range tests {
		pos := decode(t, f)
		for _, m := range pos.PseudoLegalMoves() {
			want := pos.Legal(m)

			// Cross-check against the make/test/unmake definition.
			pos.Make(m)
			mover := pos.Turn().Opponent()
			got := !pos.IsAttacked(mover, pos.KingSquare(mover))
			pos.Unmake()

			assert.Equal(t, got, want, "legal(%v) in %v", m, f)
		}
	}
}

func TestInsufficientMaterialIgnoresCastlingNoise(t *testing.T) {
	pos := decode(t, "4k3/8/8/8/8/8/8/4K2R w K - 0 1")
	assert.False(t, pos.HasInsufficientMaterial())
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		fen      string
		expected board.Result
	}{
		{fen.Initial, board.Undecided},
		{"R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1", board.WhiteWins},    // back-rank mate
		{"6k1/8/8/8/8/8/5PPP/r5K1 w - - 0 1", board.BlackWins},    // back-rank mated
		{"8/8/8/8/8/5k2/5p2/5K2 w - - 0 1", board.Draw},           // stalemate
		{"8/8/4k3/8/8/3KN3/8/8 w - - 0 1", board.Draw},            // insufficient material
		{"8/5r2/4k3/8/8/3K1R2/8/8 w - - 100 80", board.Draw},     // fifty moves
		{"8/5r2/4k3/8/8/3K1R2/8/8 w - - 10 80", board.Undecided},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, decode(t, tt.fen).Outcome(), "outcome of %v", tt.fen)
	}
}
