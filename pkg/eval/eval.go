// Package eval contains the tapered position evaluation: material and
// pawn-structure hash tables, piece activity, king attack and specialized
// endgame knowledge.
package eval

import (
	"github.com/kestrelchess/engine/pkg/board"
)

// tempo is a small bonus for the side to move.
var tempo = S(10, 0)

// Evaluator is the static position evaluator. It owns the process-wide pawn
// and material caches; the two scale knobs adjust the king attack term in
// 256ths (256 is neutral).
type Evaluator struct {
	pawns    *PawnTable
	material *MaterialTable

	ShelterScale int
	PieceScale   int
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		pawns:        NewPawnTable(),
		material:     NewMaterialTable(),
		ShelterScale: 256,
		PieceScale:   256,
	}
}

// Clear empties the cache tables, for a new game.
func (e *Evaluator) Clear() {
	e.pawns.Clear()
	e.material.Clear()
}

// Phase returns the game phase of the position in [0;MaxPhase].
func (e *Evaluator) Phase(pos *board.Position) int {
	return e.evalMaterial(pos).Phase
}

// IsEndgame returns true iff the material entry flags the position as one.
func (e *Evaluator) IsEndgame(pos *board.Position) bool {
	return e.evalMaterial(pos).Endgame
}

// Evaluate returns the tapered score from white's point of view. Callers
// searching for the side to move negate for black.
func (e *Evaluator) Evaluate(pos *board.Position) board.Score {
	me := e.evalMaterial(pos)
	pe := e.evalPawnsAndKings(pos)

	score := Pair{}
	if pos.Turn() == board.White {
		score.Add(tempo)
	} else {
		score.Sub(tempo)
	}
	score.Add(pe.Score)

	var ai attackInfo
	score.Add(e.evalPieces(pos, pe, &ai))

	var passerEG [board.NumColors]board.Score
	if pe.Passers != 0 {
		wp := e.evalPassers(pos, pe, board.White)
		bp := e.evalPassers(pos, pe, board.Black)
		passerEG[board.White], passerEG[board.Black] = wp.EG, bp.EG
		score.Add(wp)
		score.Sub(bp)
	}

	score.Add(e.evalKingAttack(pos, me, pe, &ai, board.White))
	score.Sub(e.evalKingAttack(pos, me, pe, &ai, board.Black))

	result := me.Score + score.Blend(me.Phase)

	if me.Endgame {
		s := &egState{pos: pos, me: me, pe: pe, passerEG: passerEG}
		result = e.evalEndgame(s, result)
	}

	return (result / grainSize) * grainSize
}

// EvaluateSTM returns the evaluation from the side to move's perspective.
func (e *Evaluator) EvaluateSTM(pos *board.Position) board.Score {
	score := e.Evaluate(pos)
	if pos.Turn() == board.Black {
		return -score
	}
	return score
}
