package book_test

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/kestrelchess/engine/pkg/book"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func position(t *testing.T, moves ...string) *board.Position {
	t.Helper()
	pos, err := fen.Decode(fen.Initial)
	require.NoError(t, err)
	for _, str := range moves {
		m, err := board.ParseMove(str)
		require.NoError(t, err)
		full, ok := pos.Find(m)
		require.True(t, ok, "move %v", str)
		pos.Make(full)
	}
	return pos
}

// The canonical Polyglot key fixtures pin the key computation, including
// the rule that the en passant file only counts when a capture is possible.
func TestPolyglotKeyFixtures(t *testing.T) {
	tests := []struct {
		moves []string
		key   uint64
	}{
		{nil, 0x463b96181691fc9c},
		{[]string{"e2e4"}, 0x823c9b50fd114196},
		{[]string{"e2e4", "d7d5"}, 0x0756b94461c50fb0},
		{[]string{"e2e4", "d7d5", "e4e5"}, 0x662fafb965db29d4},
		{[]string{"e2e4", "d7d5", "e4e5", "f7f5"}, 0x22a48b5a8e47ff78},
		{[]string{"e2e4", "d7d5", "e4e5", "f7f5", "e1e2"}, 0x652a607ca3f242c1},
		{[]string{"e2e4", "d7d5", "e4e5", "f7f5", "e1e2", "e8f7"}, 0x00fdd303c946bdd9},
		{[]string{"a2a4", "b7b5", "h2h4", "b5b4", "c2c4"}, 0x3c8123ea7b067637},
		{[]string{"a2a4", "b7b5", "h2h4", "b5b4", "c2c4", "b4c3", "a1a3"}, 0x5c3f9b829b279560},
	}

	for _, tt := range tests {
		pos := position(t, tt.moves...)
		assert.Equal(t, tt.key, book.Key(pos), "key after %v", tt.moves)
	}
}

// writeBook writes entries (sorted ascending by key) in the binary format:
// 8-byte big-endian key, 2-byte move, 2-byte weight, 2+2 bytes learn.
func writeBook(t *testing.T, entries [][3]uint64) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "book.bin")
	f, err := os.Create(name)
	require.NoError(t, err)
	defer f.Close()

	for _, e := range entries {
		var buf [16]byte
		binary.BigEndian.PutUint64(buf[0:8], e[0])
		binary.BigEndian.PutUint16(buf[8:10], uint16(e[1]))
		binary.BigEndian.PutUint16(buf[10:12], uint16(e[2]))
		_, err := f.Write(buf[:])
		require.NoError(t, err)
	}
	return name
}

// encodeMove packs from/to squares into the book move encoding.
func encodeMove(from, to board.Square) uint64 {
	return uint64(to) | uint64(from)<<6
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	start := position(t)
	key := book.Key(start)

	name := writeBook(t, [][3]uint64{
		{key - 1, encodeMove(board.A2, board.A3), 1},
		{key, encodeMove(board.E2, board.E4), 100},
		{key, encodeMove(board.D2, board.D4), 80},
		{key + 1, encodeMove(board.B2, board.B3), 1},
	})

	b, err := book.Open(ctx, name)
	require.NoError(t, err)
	defer b.Close()

	entries, err := b.Find(ctx, start)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e2e4", entries[0].Move.String())
	assert.Equal(t, uint16(100), entries[0].Weight)
	assert.Equal(t, "d2d4", entries[1].Move.String())

	// The matched moves are fully annotated, ready for Make.
	assert.Equal(t, board.Pawn, entries[0].Move.Moving)
	assert.Equal(t, board.Jump, entries[0].Move.Type)
}

func TestFindMissingPosition(t *testing.T) {
	ctx := context.Background()
	start := position(t)

	name := writeBook(t, [][3]uint64{
		{42, encodeMove(board.E2, board.E4), 1},
	})
	b, err := book.Open(ctx, name)
	require.NoError(t, err)
	defer b.Close()

	entries, err := b.Find(ctx, start)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCastlingConversion(t *testing.T) {
	ctx := context.Background()
	// White ready to castle kingside.
	pos, err := fen.Decode("r2qkbnr/ppp2ppp/2np4/4p3/2B1P1b1/5N2/PPPP1PPP/RNBQK2R w KQkq - 0 1")
	require.NoError(t, err)

	// The book renders O-O as e1h1.
	name := writeBook(t, [][3]uint64{
		{book.Key(pos), encodeMove(board.E1, board.H1), 10},
	})
	b, err := book.Open(ctx, name)
	require.NoError(t, err)
	defer b.Close()

	entries, err := b.Find(ctx, pos)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1g1", entries[0].Move.String())
	assert.Equal(t, board.KingSideCastle, entries[0].Move.Type)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := book.Open(context.Background(), filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
}
