package eval

import (
	"fmt"

	"github.com/kestrelchess/engine/pkg/board"
)

// MaxPhase is the game phase grain: 0 is the opening with all pieces on the
// board, 16 an endgame with only pawns and kings.
const MaxPhase = 16

// Pair holds a middlegame and an endgame score. A single value is
// interpolated from the pair using the game phase.
type Pair struct {
	MG, EG board.Score
}

// S is shorthand for constructing a Pair.
func S(mg, eg board.Score) Pair {
	return Pair{MG: mg, EG: eg}
}

func (p *Pair) Add(o Pair) {
	p.MG += o.MG
	p.EG += o.EG
}

func (p *Pair) Sub(o Pair) {
	p.MG -= o.MG
	p.EG -= o.EG
}

func (p *Pair) AddBoth(s board.Score) {
	p.MG += s
	p.EG += s
}

// Blend interpolates the pair for the given phase in [0;MaxPhase].
func (p Pair) Blend(phase int) board.Score {
	return (p.MG*board.Score(MaxPhase-phase) + p.EG*board.Score(phase)) / MaxPhase
}

func (p Pair) String() string {
	return fmt.Sprintf("(%v, %v)", p.MG, p.EG)
}

// Mul256 scales a score by factor/256.
func Mul256(s board.Score, factor int) board.Score {
	return board.Score(int(s) * factor / 256)
}

// WinScore is the base score for a known won endgame, well above any
// positional evaluation but below the mate range.
const WinScore board.Score = 3000

// grainSize rounds final evaluations so equal-looking positions compare equal.
const grainSize = 4

// drawish scales a won-looking score towards zero, never all the way: the
// side ahead keeps a token edge so the search still prefers the position.
func drawish(score board.Score, div int) board.Score {
	if score == 0 || div == 0 {
		return 0
	}
	if score > 0 {
		return maxScore(grainSize, score/board.Score(div))
	}
	return minScore(-grainSize, score/board.Score(div))
}

func maxScore(a, b board.Score) board.Score {
	if a > b {
		return a
	}
	return b
}

func minScore(a, b board.Score) board.Score {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Distance returns the Chebyshev distance between two squares.
func Distance(a, b board.Square) int {
	df := int(a.File()) - int(b.File())
	if df < 0 {
		df = -df
	}
	dr := int(a.Rank()) - int(b.Rank())
	if dr < 0 {
		dr = -dr
	}
	return maxInt(df, dr)
}
