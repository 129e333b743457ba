package kpk_test

import (
	"testing"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/kpk"
	"github.com/stretchr/testify/assert"
)

func TestProbe(t *testing.T) {
	tests := []struct {
		name     string
		wtm      bool
		wk, bk   board.Square
		wp       board.Square
		expected bool
	}{
		{"free promotion", true, board.H3, board.H2, board.B7, true},
		{"king shepherds the pawn", true, board.E6, board.E8, board.D5, true},
		{"black takes the opposition", true, board.E4, board.E6, board.E3, false},
		{"rook pawn with cornered defender", true, board.B6, board.A8, board.A5, false},
		{"rook pawn, defender cut off", true, board.B6, board.H1, board.A5, true},
		{"key squares occupied", true, board.D6, board.D8, board.C5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, kpk.Probe(tt.wtm, tt.wk, tt.bk, tt.wp))
		})
	}
}

func TestProbeMirrorsFiles(t *testing.T) {
	// The g-file position is the mirror of the b-file position.
	assert.Equal(t,
		kpk.Probe(true, board.B6, board.H1, board.A5),
		kpk.Probe(true, board.G6, board.A1, board.H5))
}

func TestProbeDefensiveOnInvalidInput(t *testing.T) {
	assert.False(t, kpk.Probe(true, board.E1, board.E1, board.E4), "coincident kings")
	assert.False(t, kpk.Probe(true, board.E1, board.E8, board.E1), "pawn on king square")
	assert.False(t, kpk.Probe(true, board.E1, board.E8, board.A1), "pawn on first rank")
	assert.False(t, kpk.Probe(true, board.E1, board.E8, board.NoSquare), "invalid square")
}
