package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/kestrelchess/engine/pkg/book"
)

// Book represents an opening book.
type Book interface {
	// Find returns a list -- potentially empty -- of moves given a position. Once an empty
	// list is returned, the book should not be consulted again for the game.
	Find(ctx context.Context, fen string) ([]board.Move, error)
}

// Line represents an opening line: e2e4 d7d5.
type Line []string

func (l Line) String() string {
	return strings.Join(l, " ")
}

// NoBook is an empty opening book.
var NoBook = &lineBook{moves: map[string][]board.Move{}}

// NewBook creates an opening book from a set of opening lines.
func NewBook(lines []Line) (Book, error) {
	m := map[string]map[board.Move]bool{}
	for _, line := range lines {
		pos, _ := fen.Decode(fen.Initial)
		for _, str := range line {
			next, err := board.ParseMove(str)
			if err != nil {
				return nil, fmt.Errorf("invalid line '%v': %v", line, err)
			}

			candidate, ok := pos.Find(next)
			if !ok {
				return nil, fmt.Errorf("invalid line '%v': move %v not legal", line, next)
			}

			key := fenKey(fen.Encode(pos))
			if m[key] == nil {
				m[key] = map[board.Move]bool{}
			}
			m[key][candidate] = true

			pos.Make(candidate)
		}
	}

	dedup := map[string][]board.Move{}
	for k, v := range m {
		var list []board.Move
		for move := range v {
			list = append(list, move)
		}
		sort.Slice(list, func(i, j int) bool {
			return list[i].String() < list[j].String()
		})
		dedup[k] = list
	}
	return &lineBook{moves: dedup}, nil
}

type lineBook struct {
	moves map[string][]board.Move // cropped fen -> []move
}

func (b *lineBook) Find(ctx context.Context, fen string) ([]board.Move, error) {
	return b.moves[fenKey(fen)], nil
}

// fenKey crops move counters so transposed continuations still hit.
func fenKey(pos string) string {
	parts := strings.Split(pos, " ")
	return strings.Join(parts[:4], " ")
}

// PolyglotBook adapts a binary Polyglot book to the Book interface. It
// performs weighted random selection itself and returns at most one move.
type PolyglotBook struct {
	book *book.Book
	rand *rand.Rand
}

func NewPolyglotBook(b *book.Book, seed int64) *PolyglotBook {
	return &PolyglotBook{
		book: b,
		rand: rand.New(rand.NewSource(seed)),
	}
}

func (b *PolyglotBook) Find(ctx context.Context, position string) ([]board.Move, error) {
	pos, err := fen.Decode(position)
	if err != nil {
		return nil, err
	}

	entries, err := b.book.Find(ctx, pos)
	if err != nil || len(entries) == 0 {
		return nil, err
	}

	total := 0
	for _, e := range entries {
		total += int(e.Weight)
	}
	if total == 0 {
		return []board.Move{entries[0].Move}, nil
	}

	pick := b.rand.Intn(total) + 1
	for _, e := range entries {
		pick -= int(e.Weight)
		if pick <= 0 {
			return []board.Move{e.Move}, nil
		}
	}
	return []board.Move{entries[len(entries)-1].Move}, nil
}
