// Package variant provides alternative game objectives that plug into the
// search. Losers chess inverts the goal: shedding all pieces, or being
// stalemated, wins.
package variant

import (
	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/eval"
	"github.com/kestrelchess/engine/pkg/search"
)

// UncertainScore signals a position that looks winning but where the forced
// sequence cannot be completed within the remaining horizon.
//
// TODO(kestrel): the stand-pat semantics when no captures exist follow the
// quiescence default (draw score at the boundary); tune against game play.
const UncertainScore board.Score = 1000

// Losers is the losers-chess objective: a side with only its king left
// wins, stalemate wins, and captures are compulsory.
type Losers struct{}

var _ search.Objective = Losers{}

// Evaluate scores by how close each side is to losing everything: having
// fewer pieces and pawns is better. Score from the side to move's
// perspective.
func (Losers) Evaluate(e *eval.Evaluator, pos *board.Position) board.Score {
	result := losersMaterial(pos)
	if pos.Turn() == board.Black {
		return -result
	}
	return result
}

// losersMaterial returns the white-positive material score. The 4-way
// presence index (white pawns, black pawns, white pieces, black pieces)
// picks the formula: a side that has shed all force is close to winning.
func losersMaterial(pos *board.Position) board.Score {
	wpawns := pos.Piece(board.White, board.Pawn).PopCount()
	bpawns := pos.Piece(board.Black, board.Pawn).PopCount()
	wpieces := pieceCount(pos, board.White)
	bpieces := pieceCount(pos, board.Black)

	ix := 0
	if wpawns > 0 {
		ix |= 1
	}
	if bpawns > 0 {
		ix |= 2
	}
	if wpieces > 0 {
		ix |= 4
	}
	if bpieces > 0 {
		ix |= 8
	}

	switch ix {
	case 3: // pawns only, both sides
		return board.Score(100*(bpawns-wpawns) + wpawns - bpawns)
	case 6: // white pieces vs black pawns: white sheds pieces, black is stuck
		return eval.WinScore - board.Score(wpieces*100)
	case 7:
		return eval.WinScore/2 + board.Score(100*(bpawns+wpieces-wpawns))
	case 9:
		return -eval.WinScore + board.Score(bpieces*100)
	case 11:
		return -eval.WinScore/2 - board.Score(100*(wpawns+bpieces-bpawns))
	case 12:
		return board.Score((wpieces - bpieces) * 100)
	case 13:
		return eval.WinScore/2 + board.Score(100*(bpieces+wpawns-bpawns))
	case 14:
		return -eval.WinScore/2 - board.Score(100*(wpieces+bpawns-wpawns))
	default:
		// Mixed full-material positions: prefer having less.
		return board.Score(100*(bpawns+bpieces-wpawns-wpieces) + (wpawns + wpieces - bpawns - bpieces))
	}
}

func pieceCount(pos *board.Position, c board.Color) int {
	return (pos.Color(c) &^ pos.Piece(c, board.Pawn) &^ pos.Piece(c, board.King)).PopCount()
}

// Terminal scores a bared king as an immediate win for its owner.
func (Losers) Terminal(pos *board.Position, ply int) (board.Score, bool) {
	us := pos.Turn()
	them := us.Opponent()
	if pos.Color(us).PopCount() == 1 {
		return board.MateIn(ply), true
	}
	if pos.Color(them).PopCount() == 1 {
		return board.MatedIn(ply), true
	}
	return 0, false
}

// NoMoves: checkmate and stalemate both win in losers chess.
func (Losers) NoMoves(pos *board.Position, inCheck bool, ply int) board.Score {
	return board.MateIn(ply)
}

// CapturesForced: when a capture exists, it must be played.
func (Losers) CapturesForced() bool {
	return true
}

// CaptureScore inverts the usual ordering: prefer giving away the bigger
// piece for the smaller target.
func (Losers) CaptureScore(pos *board.Position, m board.Move) board.Score {
	victim := m.Capture
	if m.Type == board.EnPassant {
		victim = board.Pawn
	}
	return board.SEEValue(m.Moving)/8 - board.SEEValue(victim)/64
}

// HashSalt keeps losers-chess entries from colliding with standard chess in
// the shared transposition table.
func (Losers) HashSalt() board.ZobristHash {
	return board.LosersSalt()
}
