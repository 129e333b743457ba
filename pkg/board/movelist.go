package board

import (
	"fmt"
	"strings"
)

// maxMoves bounds the number of pseudo-legal moves in any reachable chess
// position. 218 is the known maximum; 256 keeps the array power-of-two sized.
const maxMoves = 256

// MoveList is a fixed-capacity append-only move list. Generators append into
// it and the move picker scores and pops in place, so a search ply never
// allocates.
type MoveList struct {
	moves [maxMoves]Move
	n     int
}

// Add appends a move to the list.
func (l *MoveList) Add(m Move) {
	l.moves[l.n] = m
	l.n++
}

// Len returns the number of moves in the list.
func (l *MoveList) Len() int {
	return l.n
}

// At returns a pointer to the i'th move, so the picker can update its score
// in place.
func (l *MoveList) At(i int) *Move {
	return &l.moves[i]
}

// Clear empties the list without releasing storage.
func (l *MoveList) Clear() {
	l.n = 0
}

// Moves returns the accumulated moves as a slice backed by the list.
func (l *MoveList) Moves() []Move {
	return l.moves[:l.n]
}

// PickBest swaps the highest-scoring move in [i, Len) into slot i and
// returns it. Selection sort one step at a time: cheap when a cutoff stops
// the iteration early.
func (l *MoveList) PickBest(i int) *Move {
	best := i
	for j := i + 1; j < l.n; j++ {
		if l.moves[j].Score > l.moves[best].Score {
			best = j
		}
	}
	l.moves[i], l.moves[best] = l.moves[best], l.moves[i]
	return &l.moves[i]
}

func (l *MoveList) String() string {
	var parts []string
	for i := 0; i < l.n; i++ {
		parts = append(parts, l.moves[i].String())
	}
	return fmt.Sprintf("[%v]", strings.Join(parts, " "))
}

// FormatMoves formats a list of moves with the given printer.
func FormatMoves(list []Move, fn func(Move) string) string {
	var parts []string
	for _, m := range list {
		parts = append(parts, fn(m))
	}
	return strings.Join(parts, " ")
}
