package eval

import "github.com/kestrelchess/engine/pkg/board"

// Pawn structure scoring terms, indexed opposed/open where applicable.
var (
	isolatedPenalty = [2]Pair{S(-25, -20), S(-15, -15)} // open file, opposed
	weakPenalty     = [2]Pair{S(-15, -15), S(-10, -10)}
	doubledPenalty  = S(-10, -20)
	blockedCenter   = S(-15, 0)
)

const (
	pawnWidthEG  board.Score = 5
	kingActivity board.Score = 5 // endgame value of the king touching pawns
)

var candidateBonus = [8]Pair{ // by relative rank
	S(0, 0), S(0, 5), S(0, 5), S(0, 10), S(0, 20), S(0, 40), S(0, 0), S(0, 0),
}

var duoBonus = [8]board.Score{ // defended or side-by-side, by relative rank
	0, 0, 0, 0, 5, 25, 45, 0,
}

// Shelter attack units: weaknesses in the pawn shelter in front of a king,
// fed into the king attack evaluation.
var shelterKingPos = [board.NumSquares]int{ // relative square of the king
	0, 0, 1, 2, 2, 1, 0, 0,
	1, 1, 2, 3, 3, 2, 1, 1,
	2, 2, 3, 4, 4, 3, 2, 2,
	4, 4, 5, 6, 6, 5, 4, 4,
	6, 6, 7, 8, 8, 7, 6, 6,
	9, 9, 9, 9, 9, 9, 9, 9,
	9, 9, 9, 9, 9, 9, 9, 9,
	9, 9, 9, 9, 9, 9, 9, 9,
}

var (
	shelterOpenFiles = [4]int{0, 2, 4, 5}
	shelterGaps      = [6]int{0, 1, 3, 5, 6, 7}
	shelterSidePawns = [3]int{0, -1, -2}
	shelterStorm     = [8]int{0, 1, 2, 3, 3, 4, 4, 4}
)

// PawnEntry is the pawn table payload: everything derivable from pawns and
// kings alone.
type PawnEntry struct {
	Key   board.ZobristHash
	Score Pair // white's point of view

	Passers  board.Bitboard
	Mobility [board.NumColors]board.Bitboard // safe piece destinations
	Attack   [board.NumColors]board.Bitboard // enemy targets on safe squares

	KingAttackUnits [board.NumColors]int // shelter units against the enemy king
	OpenFiles       [board.NumColors]uint8
	Width           [board.NumColors]int
	Count           [board.NumColors]int
	ClosedCenter    bool
}

// IsOpenFile returns true iff the color has no pawn on the square's file.
func (e *PawnEntry) IsOpenFile(sq board.Square, c board.Color) bool {
	return e.OpenFiles[c]&(1<<sq.File()) != 0
}

// PawnTable is a direct-mapped cache of pawn-and-king evaluations keyed by
// the pawn Zobrist. Entries are overwritten unconditionally.
type PawnTable struct {
	entries []PawnEntry
	mask    uint64
}

const pawnTableBits = 15

func NewPawnTable() *PawnTable {
	n := 1 << pawnTableBits
	return &PawnTable{
		entries: make([]PawnEntry, n),
		mask:    uint64(n - 1),
	}
}

func (t *PawnTable) Clear() {
	for i := range t.entries {
		t.entries[i] = PawnEntry{}
	}
}

func (t *PawnTable) slot(key board.ZobristHash) *PawnEntry {
	return &t.entries[uint64(key)&t.mask]
}

// fillUp propagates bits towards the given color's promotion rank, exclusive
// of the source squares.
func fillUp(c board.Color, b board.Bitboard) board.Bitboard {
	if c == board.White {
		return board.FillNorth(b) ^ b
	}
	return board.FillSouth(b) ^ b
}

// forwardRanks returns the ranks strictly ahead of r from c's perspective.
func forwardRanks(c board.Color, r board.Rank) board.Bitboard {
	var ret board.Bitboard
	if c == board.White {
		for x := int(r) + 1; x < 8; x++ {
			ret |= board.BitRank(board.Rank(x))
		}
	} else {
		for x := int(r) - 1; x >= 0; x-- {
			ret |= board.BitRank(board.Rank(x))
		}
	}
	return ret
}

// kingZone[sq] is the 5x5 region around the king, minus its four corners,
// used by attack counting.
var kingZone [board.NumSquares]board.Bitboard

func init() {
	for sq := board.ZeroSquare; sq < board.NumSquares; sq++ {
		z := board.KingAttackboard(sq) | board.BitMask(sq)
		z |= board.North(z) | board.South(z) | board.East(z) | board.West(z)
		kingZone[sq] = z
	}
}

const centerMask = board.Bitboard(0x0000001818000000) // d4,e4,d5,e5

// evalPawnsAndKings computes or retrieves the pawn-and-king entry.
func (e *Evaluator) evalPawnsAndKings(pos *board.Position) *PawnEntry {
	entry := e.pawns.slot(pos.PawnKey())
	if entry.Key == pos.PawnKey() && entry.Key != 0 {
		return entry
	}

	*entry = PawnEntry{Key: pos.PawnKey()}

	allPawns := pos.Piece(board.White, board.Pawn) | pos.Piece(board.Black, board.Pawn)
	blockedCenterPawns := 0
	var scores [board.NumColors]Pair

	for c := board.ZeroColor; c < board.NumColors; c++ {
		them := c.Opponent()
		ours := pos.Piece(c, board.Pawn)
		theirs := pos.Piece(them, board.Pawn)
		entry.OpenFiles[c] = 0xFF

		for b := ours; b != 0; {
			var sq board.Square
			sq, b = b.PopLSB()
			bsq := board.BitMask(sq)
			relRank := sq.Rank().RelativeTo(c)
			up := fillUp(c, bsq)
			adjacent := board.AdjacentFiles(bsq)

			isolated := adjacent&ours == 0
			doubled := up&ours != 0
			opposed := up&theirs != 0
			attacking := !isolated && board.PawnCaptureboard(c, bsq)&theirs != 0
			blocked := !attacking && pushSquare(c, sq, allPawns)
			passed := !doubled && !opposed && theirs&adjacent&forwardRanks(c, sq.Rank()) == 0
			defended := !isolated && board.PawnCaptureboard(them, bsq)&ours != 0
			duo := defended || adjacent&board.BitRank(sq.Rank())&ours != 0
			weak := !isolated && !passed && !defended && !attacking && !doubled &&
				int(relRank)+b2i(!blocked) < 6

			// A pawn is not weak if it can quickly reach a square where own
			// pawns defend it at least as well as enemy pawns attack it.
			if weak && !blocked {
				weak = !canReachSafety(c, sq, ours, theirs, allPawns, relRank)
			}

			candidate := !passed && !weak && !opposed && !doubled && !isolated && !blocked
			if candidate && relRank < board.Rank5 {
				helpers := adjacent & ours & board.KingAttackboard(sq)
				sentries := adjacent & theirs & forwardRanks(c, sq.Rank())
				candidate = helpers.PopCount() > 1 ||
					(helpers.PopCount() == 1 && sentries.PopCount() == 1)
			}

			scores[c].Add(pst(c, board.Pawn, sq))
			if isolated {
				scores[c].Add(isolatedPenalty[b2i(opposed)])
			}
			if weak && !isolated {
				scores[c].Add(weakPenalty[b2i(opposed)])
			}
			if duo {
				scores[c].AddBoth(duoBonus[relRank])
			}
			if doubled {
				scores[c].Add(doubledPenalty)
			}
			if passed {
				entry.Passers |= bsq
			}
			if candidate {
				scores[c].Add(candidateBonus[relRank])
			}
			if blocked {
				if bsq&centerMask != 0 {
					blockedCenterPawns++
				}
				if sq == board.D2 || sq == board.E2 || sq == board.D7 || sq == board.E7 {
					scores[c].Add(blockedCenter)
				}
			}

			entry.OpenFiles[c] &^= 1 << sq.File()
			entry.Count[c]++
		}

		entry.Width[c] = fileSpan(entry.OpenFiles[c] ^ 0xFF)
		scores[c].EG += pawnWidthEG * board.Score(entry.Width[c])

		// Mobility and attack masks for the piece evaluation.

		ksq := pos.KingSquare(c)
		entry.Mobility[c] = ^(ours | board.PawnCaptureboard(them, theirs) | pos.Piece(c, board.King))
		entry.Attack[c] = entry.Mobility[c] & (theirs | pos.Piece(them, board.King))

		// King placement and activity.

		scores[c].Add(pst(c, board.King, ksq))
		kingAttacks := board.KingAttackboard(ksq) & entry.Attack[c]
		scores[c].EG += kingActivity * board.Score(kingAttacks.PopCount())
	}

	// Shelter attack units against each king, taking the best available
	// castled shelter into account.

	for c := board.ZeroColor; c < board.NumColors; c++ {
		them := c.Opponent()
		ksqThem := pos.KingSquare(them)

		units := shelterUnits(pos, entry, ksqThem, them)
		if units > 2 && pos.Castling().IsAllowed(kingSideRight(them)) {
			gsq := board.G1
			if them == board.Black {
				gsq = board.G8
			}
			units = minInt(units, shelterUnits(pos, entry, gsq, them)+2)
		}
		if units > 2 && pos.Castling().IsAllowed(queenSideRight(them)) {
			csq := board.C1
			if them == board.Black {
				csq = board.C8
			}
			units = minInt(units, shelterUnits(pos, entry, csq, them)+2)
		}
		entry.KingAttackUnits[c] = units
	}

	entry.ClosedCenter = blockedCenterPawns >= 3

	entry.Score = scores[board.White]
	entry.Score.Sub(scores[board.Black])
	return entry
}

// shelterUnits counts the weighted weaknesses in the shelter around the
// enemy king: exposed king position, open files, holes in the pawn shield,
// missing side pawns and storm pawns marching in.
func shelterUnits(pos *board.Position, entry *PawnEntry, ksqThem board.Square, them board.Color) int {
	us := them.Opponent()

	rel := ksqThem
	if them == board.Black {
		rel = rel.Flip()
	}
	units := shelterKingPos[rel]

	kingFiles := board.FileFill(board.KingAttackboard(ksqThem)) & board.BitRank(board.Rank1)
	openKingFiles := 0
	for b := kingFiles; b != 0; {
		var sq board.Square
		sq, b = b.PopLSB()
		if entry.OpenFiles[them]&(1<<sq.File()) != 0 {
			openKingFiles++
		}
	}
	units += shelterOpenFiles[minInt(openKingFiles, 3)]

	gaps := board.KingAttackboard(ksqThem) & forwardRanks(them, ksqThem.Rank()) &^ pos.Piece(them, board.Pawn)
	units += shelterGaps[minInt(gaps.PopCount(), 5)]

	side := board.KingAttackboard(ksqThem) & board.BitRank(ksqThem.Rank()) & pos.Piece(them, board.Pawn)
	units += shelterSidePawns[minInt(side.PopCount(), 2)]

	storm := kingZone[ksqThem] & forwardRanks(them, ksqThem.Rank()) & pos.Piece(us, board.Pawn)
	units += shelterStorm[minInt(storm.PopCount(), 7)]

	return units
}

// canReachSafety checks whether a weak pawn can step forward to a square
// where its defenders match the attackers.
func canReachSafety(c board.Color, sq board.Square, ours, theirs, all board.Bitboard, relRank board.Rank) bool {
	them := c.Opponent()
	next := forward(c, sq)

	steps := 2
	if relRank == board.Rank2 {
		steps = 3
	}
	for i := 0; i < steps; i++ {
		defs := board.PawnCaptureboard(them, board.BitMask(next)) & ours
		atck := board.PawnCaptureboard(c, board.BitMask(next)) & theirs
		ahead := forward(c, next)

		if defs == 0 && atck == 0 && !all.IsSet(ahead) {
			next = ahead
			continue
		}
		return defs != 0 && !(defs.PopCount() == 1 && atck.PopCount() > 1)
	}
	return false
}

// pushSquare reports whether the square directly ahead is occupied.
func pushSquare(c board.Color, sq board.Square, all board.Bitboard) bool {
	return all.IsSet(forward(c, sq))
}

func forward(c board.Color, sq board.Square) board.Square {
	if c == board.White {
		return sq + 8
	}
	return sq - 8
}

func kingSideRight(c board.Color) board.Castling {
	if c == board.White {
		return board.WhiteKingSideCastle
	}
	return board.BlackKingSideCastle
}

func queenSideRight(c board.Color) board.Castling {
	if c == board.White {
		return board.WhiteQueenSideCastle
	}
	return board.BlackQueenSideCastle
}

func fileSpan(files uint8) int {
	if files == 0 {
		return 0
	}
	lo, hi := 0, 7
	for files&(1<<lo) == 0 {
		lo++
	}
	for files&(1<<hi) == 0 {
		hi--
	}
	return hi - lo
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Passed pawn bonuses by relative rank 2..7 (index 0..5).
var (
	passerBonus = [6]Pair{
		S(5, 10), S(5, 10), S(15, 15), S(35, 25), S(70, 50), S(130, 80),
	}
	passerDistUs   = [6]board.Score{0, 0, 3, 7, 12, 15}
	passerDistThem = [6]board.Score{0, 0, 5, 12, 20, 40}
	passerAdvance  = [6]board.Score{0, 0, 0, 20, 50, 120}
)

// evalPassers scores the passed pawns of one side: base bonus by rank, king
// proximity in the endgame, and a free-path advancing bonus.
func (e *Evaluator) evalPassers(pos *board.Position, entry *PawnEntry, c board.Color) Pair {
	var result Pair

	passers := entry.Passers & pos.Piece(c, board.Pawn)
	if passers == 0 {
		return result
	}
	them := c.Opponent()

	for b := passers; b != 0; {
		var sq board.Square
		sq, b = b.PopLSB()
		r := int(sq.Rank().RelativeTo(c)) - 1

		result.Add(passerBonus[r])
		if r < 2 {
			continue
		}

		// King distances to the square in front of the pawn.
		to := forward(c, sq)
		result.EG += board.Score(Distance(pos.KingSquare(them), to)) * passerDistThem[r]
		result.EG -= board.Score(Distance(pos.KingSquare(c), to)) * passerDistUs[r]

		// Advancing bonus when the stop square is safe and the path is clear.
		if pos.All().IsSet(to) {
			continue
		}
		attackers := pos.AttacksTo(to) & pos.Color(them)
		supporters := pos.AttacksTo(to) & pos.Color(c)
		if attackers == 0 || supporters != 0 {
			bonus := passerAdvance[r]
			if fillUp(c, board.BitMask(sq))&pos.All() != 0 {
				bonus /= 2 // blocked further along the path
			}
			result.Add(S(bonus/2, bonus))
		}
	}
	return result
}
