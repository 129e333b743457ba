// Package kpk provides a king-and-pawn versus king endgame bitbase,
// pre-generated by retrograde analysis at startup.
//
// The table holds 24*64 entries of 64-bit masks: one entry per (pawn square,
// white king square) pair with the pawn normalized to files a..d, one mask
// bit per black king square. Two such tables cover both sides to move.
package kpk

import (
	"github.com/kestrelchess/engine/pkg/board"
)

// maxIndex is 24 pawn squares (files a..d, ranks 2..7) times 64 white king squares.
const maxIndex = 24 * 64

// result classifications used during generation.
const (
	unknown uint8 = iota
	draw
	win
	invalid
)

// bitbase[wtm][index(wk, wp)] has bit bk set iff white wins.
var bitbase [2][maxIndex]board.Bitboard

// tableIndex packs the white king square and normalized pawn square:
//
//	| 0-5        | 6-7            | 8-10
//	| wk (0..63) | wp file (0..3) | wp rank (0..5)
func tableIndex(wk, wp board.Square) int {
	return int(wk) + int(wp.File())<<6 + (int(wp.Rank())-1)<<8
}

// Probe returns true iff white wins the KPK position with the given side to
// move. The position is mirrored across the d/e file boundary when the pawn
// is on files e..h. Invalid inputs (pawn outside ranks 2..7, coincident
// squares) defensively return false: no win known.
func Probe(whiteToMove bool, wk, bk, wp board.Square) bool {
	if !wk.IsValid() || !bk.IsValid() || !wp.IsValid() {
		return false
	}
	if wp.Rank() < board.Rank2 || wp.Rank() > board.Rank7 {
		return false
	}
	if wk == bk || wk == wp || bk == wp {
		return false
	}

	if wp.File() > board.FileD {
		wk, bk, wp = wk.FlipFile(), bk.FlipFile(), wp.FlipFile()
	}

	stm := 0
	if !whiteToMove {
		stm = 1
	}
	return bitbase[stm][tableIndex(wk, wp)].IsSet(bk)
}

func init() {
	generate()
}

// generate runs the retrograde analysis: seed every tuple with its direct
// classification, then iterate until no tuple changes. The count of unknown
// entries must be non-increasing between iterations; anything else means the
// classification rules are inconsistent.
func generate() {
	// t[stm][bk][index(wk, wp)]
	var t [2][board.NumSquares][maxIndex]uint8

	for stm := 0; stm < 2; stm++ {
		for bk := board.ZeroSquare; bk < board.NumSquares; bk++ {
			for wk := board.ZeroSquare; wk < board.NumSquares; wk++ {
				for wp := board.A2; wp <= board.H7; wp++ {
					if wp.File() > board.FileD {
						continue
					}
					t[stm][bk][tableIndex(wk, wp)] = seed(stm == 0, wk, bk, wp)
				}
			}
		}
	}

	prevUnknown := maxIndex * 64 * 2
	for {
		changed := false
		unknownCount := 0

		for stm := 0; stm < 2; stm++ {
			for bk := board.ZeroSquare; bk < board.NumSquares; bk++ {
				for wk := board.ZeroSquare; wk < board.NumSquares; wk++ {
					for wp := board.A2; wp <= board.H7; wp++ {
						if wp.File() > board.FileD {
							continue
						}
						idx := tableIndex(wk, wp)
						if t[stm][bk][idx] != unknown {
							continue
						}

						var r uint8
						if stm == 0 {
							r = classifyWhite(wk, bk, wp, &t)
						} else {
							r = classifyBlack(wk, bk, wp, &t)
						}
						if r != unknown {
							t[stm][bk][idx] = r
							changed = true
						} else {
							unknownCount++
						}
					}
				}
			}
		}

		if unknownCount > prevUnknown {
			panic("kpk: unknown count increased between iterations")
		}
		prevUnknown = unknownCount

		if !changed {
			break
		}
	}

	// Remaining unknowns are positions where white cannot force progress: draws.

	for stm := 0; stm < 2; stm++ {
		for bk := board.ZeroSquare; bk < board.NumSquares; bk++ {
			for idx := 0; idx < maxIndex; idx++ {
				if t[stm][bk][idx] == win {
					bitbase[stm][idx] |= board.BitMask(bk)
				}
			}
		}
	}
}

// seed classifies a tuple by direct rules: legality, king capture, immediate
// promotion, stalemate and pawn capture.
func seed(wtm bool, wk, bk, wp board.Square) uint8 {
	if wk == bk || wk == wp || bk == wp {
		return invalid
	}
	if board.KingAttackboard(wk).IsSet(bk) {
		if wtm {
			return win // kings adjacent: white captures the black king
		}
		return invalid // kings adjacent with black to move
	}
	pawnAttacks := board.PawnCaptureboard(board.White, board.BitMask(wp))
	if wtm && pawnAttacks.IsSet(bk) {
		return invalid // white to move could capture the black king
	}

	if wtm {
		tsq := wp + 8
		if tsq == wk || tsq == bk {
			// Pawn is blocked; stalemate if the king has no move either.
			if board.KingAttackboard(wk)&^board.KingAttackboard(bk)&^board.BitMask(wp) == 0 {
				return draw
			}
			return unknown
		}
		if wp.Rank() < board.Rank7 {
			return unknown
		}
		if board.KingAttackboard(wk).IsSet(tsq) || !board.KingAttackboard(bk).IsSet(tsq) {
			return win // pawn promotes without being captured
		}
		return unknown
	}

	attacks := board.KingAttackboard(wk) | pawnAttacks
	if board.KingAttackboard(bk)&^attacks == 0 {
		return draw // stalemate
	}
	if board.KingAttackboard(bk).IsSet(wp) && !attacks.IsSet(wp) {
		return draw // black king captures the pawn
	}
	return unknown
}

// classifyWhite resolves a white-to-move tuple from its successors: WIN if
// any successor is a win, DRAW if all are draws.
func classifyWhite(wk, bk, wp board.Square, t *[2][board.NumSquares][maxIndex]uint8) uint8 {
	allDraw := true

	// Pawn pushes: single, plus the double step from the home rank.
	tsq := wp + 8
	for {
		if tsq == wk || tsq == bk || tsq >= board.A8 {
			break
		}
		next := t[1][bk][tableIndex(wk, tsq)]
		if next == win {
			return win
		}
		allDraw = allDraw && next == draw
		if tsq >= board.A4 {
			break
		}
		tsq += 8
	}

	// King moves.
	moves := board.KingAttackboard(wk) &^ (board.KingAttackboard(bk) | board.BitMask(wp))
	for moves != 0 {
		var to board.Square
		to, moves = moves.PopLSB()
		next := t[1][bk][tableIndex(to, wp)]
		if next == win {
			return win
		}
		allDraw = allDraw && next == draw
	}

	if allDraw {
		return draw
	}
	return unknown
}

// classifyBlack resolves a black-to-move tuple: WIN only if every legal king
// move loses, DRAW if any successor draws.
func classifyBlack(wk, bk, wp board.Square, t *[2][board.NumSquares][maxIndex]uint8) uint8 {
	allWin := true

	moves := board.KingAttackboard(bk) &^ (board.KingAttackboard(wk) | board.PawnCaptureboard(board.White, board.BitMask(wp)))
	for moves != 0 {
		var to board.Square
		to, moves = moves.PopLSB()
		if to == wp {
			return draw // captures the undefended pawn
		}
		next := t[0][to][tableIndex(wk, wp)]
		if next == draw {
			return draw
		}
		allWin = allWin && next == win
	}

	if allWin {
		return win
	}
	return unknown
}
