package search

import "github.com/kestrelchess/engine/pkg/board"

// historyTable holds (color, piece, to-square) counters for quiet move
// ordering. Counters rise towards a cap on beta cutoffs and are penalized
// for the quiet moves tried before the cutoff.
type historyTable struct {
	counters [board.NumColors][board.NumPieces][board.NumSquares]int32
}

const (
	historyMax = 2000
	historyDiv = 64
)

func (h *historyTable) clear() {
	*h = historyTable{}
}

func (h *historyTable) get(c board.Color, piece board.Piece, to board.Square) board.Score {
	return board.Score(h.counters[c][piece][to])
}

// reward bumps the counter towards the cap.
func (h *historyTable) reward(c board.Color, piece board.Piece, to board.Square) {
	record := &h.counters[c][piece][to]
	*record += (historyMax - *record) / historyDiv
}

// punish decays the counter of a quiet move that failed to cut off, scaled
// by how late the eventual cutoff came.
func (h *historyTable) punish(c board.Color, piece board.Piece, to board.Square, shift int) {
	if shift > 16 {
		shift = 16
	}
	h.counters[c][piece][to] >>= shift
}
