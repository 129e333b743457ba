package eval

import "github.com/kestrelchess/engine/pkg/board"

// Mobility bonus by number of safe destination squares.
var mobilityBonus = [32]board.Score{
	-50, -30, -20, -10, -5, 0, 0, 5,
	5, 5, 10, 10, 10, 10, 15, 15,
	15, 15, 15, 15, 15, 15, 15, 15,
	15, 15, 15, 15, 15, 15, 15, 15,
}

// Bonus for safe attacks on enemy pawns, king or hanging targets.
var attacksBonus = [8]board.Score{-5, 0, 5, 10, 10, 10, 10, 10}

// Penalty for a piece attacked by an enemy pawn.
var attackedPenalty = [board.NumPieces]board.Score{
	0, 0, -30, -30, -50, -90, 0,
}

// Outpost bonus by relative square, for minors defended by a pawn and not
// attackable by enemy pawns.
var outpostBishop = [board.NumSquares]board.Score{
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 5, 5, 5, 5, 5, 5, 0,
	0, 5, 5, 10, 10, 5, 5, 0,
	0, 0, 5, 5, 5, 5, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var outpostKnight = [board.NumSquares]board.Score{
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 5, 5, 0, 0, 0,
	0, 0, 10, 20, 20, 10, 0, 0,
	0, 0, 5, 10, 10, 5, 0, 0,
	0, 0, 0, 5, 5, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var (
	bishopPair      = S(30, 50)
	defendedMinor   = S(5, 0)
	rook7th         = S(20, 30)
	semiOpenFile    = S(5, 0)
	openFile        = S(15, 5)
	closedFile      = S(-5, -5)
	supportedPasser = S(10, 20)
	connectedRooks  = S(10, 20)
)

const trappedPenalty board.Score = -35

// kingAttackWeight weighs zone attacks by piece type.
var kingAttackWeight = [board.NumPieces]int{0, 1, 3, 3, 5, 9, 2}

// attackInfo accumulates the piece attack bitboards and king attack counters
// that the king attack term consumes.
type attackInfo struct {
	attacks    [board.NumColors][board.NumPieces]board.Bitboard
	allAttacks [board.NumColors]board.Bitboard

	kingAttackers [board.NumColors]int // pieces with attacks into the enemy king zone
	kingWeight    [board.NumColors]int // their accumulated weights
}

// edgeBand are the trapped-piece candidate squares: the board edge on the
// three ranks deepest into enemy territory, where a piece with no retreat
// gets rounded up (the classic Bxa7 b6 trap).
var edgeBand [board.NumColors]board.Bitboard

func init() {
	edge := board.BitFile(board.FileA) | board.BitFile(board.FileH) |
		board.BitRank(board.Rank1) | board.BitRank(board.Rank8)
	low := board.BitRank(board.Rank1) | board.BitRank(board.Rank2) | board.BitRank(board.Rank3)
	high := board.BitRank(board.Rank6) | board.BitRank(board.Rank7) | board.BitRank(board.Rank8)
	edgeBand[board.White] = edge & high
	edgeBand[board.Black] = edge & low
}

// evalPieces scores knights, bishops, rooks and queens for both sides and
// fills in the attack info for the king attack term. Sliding moves are
// generated against the pawns-and-kings skeleton so pieces see through each
// other, matching the mobility the pawn cache was computed for.
func (e *Evaluator) evalPieces(pos *board.Position, pe *PawnEntry, ai *attackInfo) Pair {
	var total Pair
	skeleton := pos.Piece(board.White, board.Pawn) | pos.Piece(board.Black, board.Pawn) |
		pos.Piece(board.White, board.King) | pos.Piece(board.Black, board.King)

	for c := board.ZeroColor; c < board.NumColors; c++ {
		them := c.Opponent()
		ksqThem := pos.KingSquare(them)
		zone := kingZone[ksqThem]
		ourPawnAttacks := board.PawnCaptureboard(c, pos.Piece(c, board.Pawn))
		theirPawnAttacks := board.PawnCaptureboard(them, pos.Piece(them, board.Pawn))

		ai.attacks[c][board.Pawn] = ourPawnAttacks
		ai.attacks[c][board.King] = board.KingAttackboard(pos.KingSquare(c))
		ai.allAttacks[c] |= ourPawnAttacks | ai.attacks[c][board.King]

		var side Pair

		for piece := board.Bishop; piece <= board.Queen; piece++ {
			for b := pos.Piece(c, piece); b != 0; {
				var sq board.Square
				sq, b = b.PopLSB()
				bsq := board.BitMask(sq)
				defended := ourPawnAttacks.IsSet(sq)

				side.Add(pst(c, piece, sq))

				moves := board.Attackboard(skeleton, sq, piece)
				ai.attacks[c][piece] |= moves
				ai.allAttacks[c] |= moves

				safe := moves & pe.Mobility[c]
				mobility := safe.PopCount()
				side.AddBoth(mobilityBonus[mobility])
				side.AddBoth(attacksBonus[minInt((safe&pe.Attack[c]).PopCount(), 7)])

				if theirPawnAttacks.IsSet(sq) {
					side.AddBoth(attackedPenalty[piece])
				}

				if mobility < 2 && !defended && bsq&edgeBand[c] != 0 &&
					(moves&^skeleton).PopCount() <= 1 {
					side.AddBoth(trappedPenalty * board.Score(int(sq.Rank().RelativeTo(c))-3))
				}

				isMinor := piece == board.Knight || piece == board.Bishop
				if defended && isMinor {
					side.Add(defendedMinor)
					if isOutpost(pos, c, sq) {
						rel := sq
						if c == board.Black {
							rel = sq.Flip()
						}
						if piece == board.Knight {
							side.AddBoth(outpostKnight[rel.Flip()])
						} else {
							side.AddBoth(outpostBishop[rel.Flip()])
						}
					}
				}

				if piece == board.Rook {
					side.Add(e.evalRook(pos, pe, c, sq, moves))
				}

				if safe&zone != 0 {
					ai.kingAttackers[c]++
					ai.kingWeight[c] += kingAttackWeight[piece]
				}
			}
		}

		// Bishop pair, skipped in closed positions where the pair cannot
		// stretch its legs.

		bishops := pos.Piece(c, board.Bishop)
		if !pe.ClosedCenter && bishops&whiteSquares != 0 && bishops&blackSquares != 0 {
			side.Add(bishopPair)
		}

		if c == board.White {
			total.Add(side)
		} else {
			total.Sub(side)
		}
	}
	return total
}

func (e *Evaluator) evalRook(pos *board.Position, pe *PawnEntry, c board.Color, sq board.Square, moves board.Bitboard) Pair {
	var score Pair
	them := c.Opponent()

	switch {
	case !pe.IsOpenFile(sq, c):
		score.Add(closedFile)
		// Rule of Tarrasch: support own passers from behind.
		if moves&pe.Passers&fillUp(c, board.BitMask(sq)) != 0 {
			score.Add(supportedPasser)
		}
	case pe.IsOpenFile(sq, them):
		score.Add(openFile)
		if moves&pos.Piece(c, board.Rook)&board.BitFile(sq.File()) != 0 {
			score.Add(connectedRooks)
		}
	default:
		score.Add(semiOpenFile)
	}

	// Seventh rank rook, when the enemy king is confined to the back ranks.
	if sq.Rank().RelativeTo(c) == board.Rank7 {
		backRanks := board.BitRank(board.Rank8) | board.BitRank(board.Rank7)
		if c == board.Black {
			backRanks = board.BitRank(board.Rank1) | board.BitRank(board.Rank2)
		}
		if pos.Piece(them, board.King)&backRanks != 0 {
			score.Add(rook7th)
		}
	}
	return score
}

// isOutpost returns true iff no enemy pawn can ever attack the square. It
// does not check for an own pawn defending it.
func isOutpost(pos *board.Position, c board.Color, sq board.Square) bool {
	them := c.Opponent()
	attackable := board.AdjacentFiles(board.BitMask(sq)) & forwardRanks(c, sq.Rank())
	return attackable&pos.Piece(them, board.Pawn) == 0
}

const (
	whiteSquares = board.Bitboard(0x55AA55AA55AA55AA)
	blackSquares = board.Bitboard(0xAA55AA55AA55AA55)
)
