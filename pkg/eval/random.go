package eval

import (
	"math/rand"

	"github.com/kestrelchess/engine/pkg/board"
)

// Random is a randomized noise generator. It adds a small amount of
// randomness to leaf evaluations to vary play. The limit specifies how many
// centipawns to add or remove in the range [-limit/2; (limit-1)/2]. The zero
// value always returns zero.
type Random struct {
	rand  *rand.Rand
	limit int
}

func NewRandom(limit int, seed int64) Random {
	return Random{
		limit: limit,
		rand:  rand.New(rand.NewSource(seed)),
	}
}

func (n Random) Sample() board.Score {
	if n.limit <= 0 {
		return 0
	}
	return board.Score(n.rand.Intn(n.limit) - n.limit/2)
}
