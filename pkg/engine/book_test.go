package engine_test

import (
	"context"
	"testing"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/kestrelchess/engine/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook(t *testing.T) {
	ctx := context.Background()

	book, err := engine.NewBook([]engine.Line{
		{"e2e4", "d7d5", "d2d4"},
		{"e2e4", "d7d6"},
		{"d2d4", "d7d6"},
	})
	require.NoError(t, err)

	tests := []struct {
		pos   string
		moves string
	}{
		{fen.Initial, "d2d4 e2e4"},
		// After 1.e4, both book replies are available.
		{"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", "d7d5 d7d6"},
		// Out of book.
		{"rnbqkbnr/pppppppp/8/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - 1 1", ""},
	}

	for _, tt := range tests {
		list, err := book.Find(ctx, tt.pos)
		assert.NoError(t, err)
		assert.Equal(t, tt.moves, board.FormatMoves(list, func(m board.Move) string { return m.String() }))
	}
}

func TestBookRejectsIllegalLines(t *testing.T) {
	_, err := engine.NewBook([]engine.Line{{"e2e5"}})
	assert.Error(t, err)

	_, err = engine.NewBook([]engine.Line{{"xx99"}})
	assert.Error(t, err)
}

func TestNoBook(t *testing.T) {
	list, err := engine.NoBook.Find(context.Background(), fen.Initial)
	require.NoError(t, err)
	assert.Empty(t, list)
}
