package eval

import "github.com/kestrelchess/engine/pkg/board"

// kingShelter converts shelter attack units into a middlegame score.
var kingShelter = [24]board.Score{
	-50, -40, -25, -10, 5, 15, 25, 35,
	45, 50, 55, 60, 65, 70, 75, 80,
	85, 90, 95, 100, 105, 110, 115, 120,
}

// kingAttackValue is the non-linear conversion of piece attack units into a
// middlegame score.
var kingAttackValue = [64]board.Score{
	0, 0, 0, 1, 2, 3, 5, 7,
	9, 12, 15, 18, 22, 26, 30, 35,
	40, 45, 50, 56, 62, 68, 75, 82,
	90, 98, 105, 114, 123, 132, 141, 150,
	160, 170, 180, 191, 202, 214, 226, 238,
	250, 262, 274, 286, 296, 308, 320, 332,
	344, 356, 368, 380, 392, 404, 414, 426,
	438, 450, 462, 472, 482, 490, 495, 500,
}

const (
	closedCenterMul   = 180
	queenContactCheck = 20 // units
	queenDistantCheck = 10 // units
	minAttackForce    = 12
)

// evalKingAttack scores c's attack on the enemy king: the shelter weakness
// score from the pawn hash combined with piece attack units indexed into the
// non-linear attack table. Queen contact and distant checks add extra units,
// discounted when the check square is defended and amplified when supported.
func (e *Evaluator) evalKingAttack(pos *board.Position, me *MaterialEntry, pe *PawnEntry, ai *attackInfo, c board.Color) Pair {
	if pos.Piece(c, board.Queen) == 0 || me.AttackForce[c] < minAttackForce {
		return Pair{}
	}

	them := c.Opponent()
	ksqThem := pos.KingSquare(them)

	// 1. Shelter score.

	units := pe.KingAttackUnits[c]

	// Missing fianchetto bishop and weak back rank add a unit each.
	if fianchetto := fillUp(them, pos.Piece(them, board.King)) & board.KingAttackboard(ksqThem) &
		(pos.Piece(them, board.Bishop) | pos.Piece(them, board.Pawn)); fianchetto == 0 {
		units++
	}
	if backRank(them)&pos.Piece(them, board.Rook) == 0 {
		units++
	}

	shelterScore := kingShelter[minInt(maxInt(units, 0), 23)]
	if pe.ClosedCenter {
		shelterScore = Mul256(shelterScore, closedCenterMul)
	}
	if e.ShelterScale != 256 {
		shelterScore = Mul256(shelterScore, e.ShelterScale)
	}

	// 2. Piece attack units.

	if ai.kingAttackers[c] == 0 {
		return S(shelterScore, 0)
	}

	attacks := ai.attacks[c][board.Knight] | ai.attacks[c][board.Bishop] |
		ai.attacks[c][board.Rook] | ai.attacks[c][board.Queen]
	defends := ai.allAttacks[them]

	attackers := ai.kingAttackers[c]
	weight := ai.kingWeight[c]
	zone := kingZone[ksqThem]
	if ai.attacks[c][board.Pawn]&zone != 0 {
		attackers++
		weight += kingAttackWeight[board.Pawn]
		attacks |= ai.attacks[c][board.Pawn]
	}
	if ai.attacks[c][board.King]&zone != 0 {
		attackers++
		weight += kingAttackWeight[board.King]
		attacks |= ai.attacks[c][board.King]
	}

	pieceUnits := int(shelterScore) / 10
	pieceUnits += attackers * weight / 4
	pieceUnits += me.AttackForce[c] - me.AttackForce[them]

	area := board.KingAttackboard(ksqThem)
	areaAttacks := area & attacks
	pieceUnits += areaAttacks.PopCount()
	pieceUnits += 2 * (areaAttacks &^ defends).PopCount()

	// 3. Queen checks.

	if ai.attacks[c][board.Queen]&area != 0 {
		pieceUnits += e.queenCheckUnits(pos, ai, c, ksqThem, defends)
	}

	attackScore := kingAttackValue[minInt(maxInt(pieceUnits, 0), 63)]
	if e.PieceScale != 256 {
		attackScore = Mul256(attackScore, e.PieceScale)
	}

	return S(shelterScore+attackScore, 0)
}

// queenCheckUnits enumerates queen contact and distant checks against the
// enemy king.
func (e *Evaluator) queenCheckUnits(pos *board.Position, ai *attackInfo, c board.Color, ksqThem board.Square, defends board.Bitboard) int {
	them := c.Opponent()
	units := 0

	area := board.KingAttackboard(ksqThem)
	checksDiag := board.BishopAttacks(ksqThem, pos.All())
	checksHV := board.RookAttacks(ksqThem, pos.All())

	for queens := pos.Piece(c, board.Queen); queens != 0; {
		var qsq board.Square
		qsq, queens = queens.PopLSB()
		queenAttacks := board.QueenAttacks(qsq, pos.All()) &^ pos.Color(c)

		for contact := queenAttacks & area; contact != 0; {
			var sq board.Square
			sq, contact = contact.PopLSB()
			units++
			if defends.IsSet(sq) && verifyDefended(pos, ai, them, sq, qsq) {
				continue
			}
			units++
			if verifySupported(pos, ai, c, sq, qsq) {
				units += queenContactCheck
			}
		}

		distant := queenAttacks & (checksDiag | checksHV) &^ area
		for distant != 0 {
			var sq board.Square
			sq, distant = distant.PopLSB()
			units++
			if defends.IsSet(sq) && verifyDefended(pos, ai, them, sq, qsq) {
				continue
			}
			units += queenDistantCheck
		}
	}
	return units
}

// verifyDefended confirms the defense of a check square, seeing through the
// queen that would deliver the check.
func verifyDefended(pos *board.Position, ai *attackInfo, them board.Color, sq, qsq board.Square) bool {
	if (ai.attacks[them][board.Pawn] | ai.attacks[them][board.Knight]).IsSet(sq) {
		return true
	}
	occ := pos.All() &^ board.BitMask(qsq)
	if board.BishopAttacks(sq, occ)&(pos.Piece(them, board.Bishop)|pos.Piece(them, board.Queen)) != 0 {
		return true
	}
	return board.RookAttacks(sq, occ)&(pos.Piece(them, board.Rook)|pos.Piece(them, board.Queen)) != 0
}

// verifySupported confirms the checking square is supported by another
// attacker, excluding the queen itself.
func verifySupported(pos *board.Position, ai *attackInfo, us board.Color, sq, qsq board.Square) bool {
	direct := ai.attacks[us][board.Pawn] | ai.attacks[us][board.Knight] | ai.attacks[us][board.King]
	if direct.IsSet(sq) {
		return true
	}
	if board.BishopAttacks(sq, pos.All())&^board.BitMask(qsq)&(pos.Piece(us, board.Bishop)|pos.Piece(us, board.Queen)) != 0 {
		return true
	}
	return board.RookAttacks(sq, pos.All())&^board.BitMask(qsq)&(pos.Piece(us, board.Rook)|pos.Piece(us, board.Queen)) != 0
}

func backRank(c board.Color) board.Bitboard {
	if c == board.White {
		return board.BitRank(board.Rank1)
	}
	return board.BitRank(board.Rank8)
}
