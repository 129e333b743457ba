package eval

import (
	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/kpk"
)

// Endgame adjustments. After the tapered combine, positions flagged as
// endgames dispatch on a 16-way index formed from which sides still have
// pawns and pieces, to specialized rules that recognize wins, draws and
// drawish scaling the main evaluation cannot see.

var edgeDistance = [8]int{0, 2, 3, 4, 4, 3, 2, 0}

// egState carries what the endgame rules need beyond the position itself.
type egState struct {
	pos      *board.Position
	me       *MaterialEntry
	pe       *PawnEntry
	passerEG [board.NumColors]board.Score
}

func (s *egState) hasPawns(c board.Color) bool {
	return s.pos.Piece(c, board.Pawn) != 0
}

func (s *egState) hasPieces(c board.Color) bool {
	return s.pos.HasNonPawns(c)
}

func (s *egState) winningEdge(c board.Color) bool {
	if c == board.White {
		return s.me.Score >= 450
	}
	return s.me.Score <= -450
}

func (s *egState) count(c board.Color, p board.Piece) int {
	return s.pos.Piece(c, p).PopCount()
}

// win returns a partial win bonus for the given side.
func win(c board.Color, div int) board.Score {
	if c == board.White {
		return WinScore / board.Score(div)
	}
	return -WinScore / board.Score(div)
}

func sideBonus(c board.Color, bonus board.Score) board.Score {
	if c == board.White {
		return bonus
	}
	return -bonus
}

// evalEndgame corrects the blended score with endgame knowledge. The winning
// side is taken from the score sign; the default for a winning side without
// mating power is draw-leaning scaling.
func (e *Evaluator) evalEndgame(s *egState, score board.Score) board.Score {
	us := board.White
	if score < 0 || (score == 0 && s.pos.Turn() == board.Black) {
		us = board.Black
	}
	them := us.Opponent()

	ix := 0
	if s.hasPawns(us) {
		ix |= 1
	}
	if s.hasPawns(them) {
		ix |= 2
	}
	if s.hasPieces(us) {
		ix |= 4
	}
	if s.hasPieces(them) {
		ix |= 8
	}

	switch ix {
	case 0: // KK
		return drawish(score, 256)
	case 1: // pawns vs lone king
		return pawnsVsKing(s, score, us)
	case 3: // pawns vs pawns
		return kingsAndPawnsOnly(s, score, us)
	case 4: // pieces vs lone king
		return piecesVsKing(s, score, us)
	case 5: // pieces and pawns vs lone king
		return piecesAndPawnsVsKing(s, score, us)
	case 6: // pieces vs pawns
		return piecesVsPawns(s, score, us)
	case 7: // pieces and pawns vs pawns
		bonus := board.Score(20)
		if s.me.MatingPower[us] {
			bonus += 20
		}
		return score + sideBonus(us, bonus)
	case 9: // pawns vs pieces
		if s.me.MatingPower[them] {
			return score + sideBonus(us, -20)
		}
		return score + sideBonus(us, 10)
	case 11: // pawns vs pieces and pawns
		if s.me.MatingPower[them] {
			return score + sideBonus(us, -20)
		}
		return score
	case 12: // pieces vs pieces
		return piecesVsPieces(s, score, us)
	case 13: // pieces and pawns vs pieces
		return piecesAndPawnsVsPieces(s, score, us)
	case 14: // pieces vs pieces and pawns
		return piecesVsPiecesAndPawns(s, score, us)
	case 15: // pieces and pawns both sides
		return piecesAndPawnsBoth(s, score, us)
	default:
		// The winning side has neither pawns nor pieces: bare king.
		return drawish(score, 256)
	}
}

// cornerKing rewards driving the losing king towards the edge or the
// mating corner, and the kings towards each other.
func cornerKing(s *egState, them board.Color, div int) board.Score {
	pos := s.pos
	us := them.Opponent()
	kUs, kThem := pos.KingSquare(us), pos.KingSquare(them)

	rDist := edgeDistance[kThem.Rank()]
	fDist := edgeDistance[kThem.File()]
	edgeDist := minInt(rDist, fDist)
	result := 100 - 20*Distance(kUs, kThem)

	bishops := pos.Piece(us, board.Bishop)
	if bishops.PopCount() == 1 && pos.Piece(us, board.Rook) == 0 && pos.Piece(us, board.Queen) == 0 {
		// Drive to the corner the bishop controls.
		var cornerDist int
		if bishops&whiteSquares != 0 {
			cornerDist = minInt(Distance(kThem, board.A8), Distance(kThem, board.H1))
		} else {
			cornerDist = minInt(Distance(kThem, board.A1), Distance(kThem, board.H8))
		}
		result += 250 - 50*cornerDist
		result += 100 - 20*edgeDist
	} else {
		result += 250 - 50*edgeDist
		result += 100 - 20*(rDist+fDist)
	}
	return sideBonus(us, board.Score(result/div))
}

// unstoppablePawnSteps returns 0 or the number of steps to promotion of the
// best passer the defending king cannot catch. Only valid when the defender
// has no pieces.
func unstoppablePawnSteps(s *egState, us board.Color) int {
	passers := s.pe.Passers & s.pos.Piece(us, board.Pawn)
	if passers == 0 {
		return 0
	}
	them := us.Opponent()
	utm := s.pos.Turn() == us
	kThem := s.pos.KingSquare(them)
	kUs := s.pos.KingSquare(us)
	attacksUs := board.PawnCaptureboard(us, s.pos.Piece(us, board.Pawn)) | board.KingAttackboard(kUs)

	best := 10
	result := 0
	for b := passers; b != 0 && best > 1; {
		var psq board.Square
		psq, b = b.PopLSB()
		steps := 7 - int(psq.Rank().RelativeTo(us))
		if steps >= best {
			continue
		}

		path := fillUp(us, board.BitMask(psq))
		unstoppable := path&attacksUs == path
		if !unstoppable && path&s.pos.All() == 0 {
			qsq := board.NewSquare(psq.File(), board.Rank8)
			if us == board.Black {
				qsq = board.NewSquare(psq.File(), board.Rank1)
			}
			stepsThem := Distance(kThem, qsq) - b2i(!utm)
			unstoppable = stepsThem > steps
		}
		if unstoppable {
			best = steps
			result = best
		}
	}
	return result
}

// mostAdvancedPawnSteps counts steps to promotion for the most advanced
// pawn, penalized when not passed or not on the move.
func mostAdvancedPawnSteps(s *egState, us board.Color) int {
	pawns := s.pos.Piece(us, board.Pawn)
	var psq board.Square
	if us == board.White {
		psq = pawns.MSB()
	} else {
		psq = pawns.LSB()
	}
	steps := 7 - int(psq.Rank().RelativeTo(us))
	if s.pe.Passers&board.BitMask(psq) == 0 {
		steps++
	}
	if s.pos.Turn() != us {
		steps++
	}
	return steps
}

func mostAdvancedPasserSteps(s *egState, us board.Color) int {
	passers := s.pe.Passers & s.pos.Piece(us, board.Pawn)
	if passers == 0 {
		return 0
	}
	var psq board.Square
	if us == board.White {
		psq = passers.MSB()
	} else {
		psq = passers.LSB()
	}
	steps := 7 - int(psq.Rank().RelativeTo(us))
	if s.pos.Turn() != us {
		steps++
	}
	return steps
}

// pawnsVsKing: KPK is probed exactly; multiple pawns win with an
// unstoppable passer or any pawn chain.
func pawnsVsKing(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	pawns := s.pos.Piece(us, board.Pawn)

	if pawns.PopCount() == 1 {
		utm := s.pos.Turn() == us
		var won bool
		if us == board.White {
			won = kpk.Probe(utm, s.pos.KingSquare(us), s.pos.KingSquare(them), pawns.LSB())
		} else {
			won = kpk.Probe(utm, s.pos.KingSquare(us).Flip(), s.pos.KingSquare(them).Flip(), pawns.LSB().Flip())
		}
		if won {
			return score + win(us, 2)
		}
		return drawish(score, 64)
	}

	if steps := unstoppablePawnSteps(s, us); steps > 0 {
		return score + win(us, 1+steps)
	}
	if board.PawnCaptureboard(us, pawns)&pawns != 0 {
		return score + win(us, 8) // defended pawn chain, cannot be rounded up
	}
	return score
}

var (
	unstoppableBonus = [8]board.Score{0, 200, 150, 100, 50, 25, 25, 25}
	bestPasserBonus  = [8]board.Score{0, 80, 60, 40, 20, 0, 0, 0}
)

func piecesVsKing(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	if s.me.MatingPower[us] { // KBNK and better
		return score + win(us, 1) + cornerKing(s, them, 1)
	}
	return drawish(score, 128) // KNNK and worse
}

func piecesAndPawnsVsKing(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	if s.me.MatingPower[us] {
		return score + win(us, 1) + cornerKing(s, them, 1)
	}
	if steps := unstoppablePawnSteps(s, us); steps > 0 {
		return score + win(us, 3+steps)
	}
	if isKNPK(s, us) {
		return knpk(s, score, us)
	}
	if isKBPsK(s, us) {
		return kbpsk(s, score, us)
	}
	return score
}

func piecesVsPawns(s *egState, score board.Score, us board.Color) board.Score {
	if !s.me.MatingPower[us] {
		return drawish(score, 0)
	}
	if isKRKP(s, us) {
		return krkp(s, score, us)
	}
	if isKQKP(s, us) {
		return kqkp(s, score, us)
	}
	return score
}

func piecesVsPieces(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	switch {
	case !s.me.MatingPower[us]:
		return drawish(score, 16)
	case isKBBKN(s, us):
		return score + win(us, 2) + cornerKing(s, them, 2) +
			sideBonus(them, -board.Score(20*pieceDistance(s, them)))
	case !s.winningEdge(us):
		return drawish(score, 16) + cornerKing(s, them, 16)
	case s.me.MatingPower[them]:
		return score + win(us, 8) + cornerKing(s, them, 8)
	default:
		return score + win(us, 4) + cornerKing(s, them, 4)
	}
}

func piecesAndPawnsVsPieces(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	powUs := s.me.MatingPower[us]
	winUs := s.winningEdge(us)

	switch {
	case powUs && winUs && s.me.MatingPower[them]:
		return score + win(us, 8) + cornerKing(s, them, 8)
	case powUs && winUs:
		return score + win(us, 4) + cornerKing(s, them, 4)
	case !powUs && s.count(us, board.Pawn) == 1:
		return drawish(score, 4)
	case isKRPKR(s, us):
		return krpkr(s, score, us)
	case isKQPsKQ(s, us):
		bonus := s.passerEG[us] / 2
		return Mul256(score, 112+16*s.count(us, board.Pawn)) + sideBonus(us, bonus)
	}
	return score
}

func piecesVsPiecesAndPawns(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	powUs := s.me.MatingPower[us]
	winUs := s.winningEdge(us)

	if !powUs && !winUs {
		return drawish(score, 128)
	}
	if !winUs {
		switch {
		case !s.me.HasImbalance(us):
			return drawish(score, 64) + cornerKing(s, them, 16)
		case !s.me.HasMajorImbalance():
			return drawish(score, 32) + cornerKing(s, them, 16)
		default:
			return drawish(score, 2) + cornerKing(s, them, 8)
		}
	}
	return score + cornerKing(s, them, 4)
}

func piecesAndPawnsBoth(s *egState, score board.Score, us board.Color) board.Score {
	if isOppBishops(s) {
		pfmul := [9]int{1, 16, 32, 64, 128, 160, 192, 224, 240}
		return Mul256(score, pfmul[minInt(s.count(us, board.Pawn), 8)])
	}
	if isKQPsKQPs(s) {
		return Mul256(score, 128+16*s.count(us, board.Pawn))
	}
	return score
}

// kingsAndPawnsOnly handles the pawns vs pawns index: unstoppable passer
// races decide, otherwise the best passers tip the score.
func kingsAndPawnsOnly(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	upUs := unstoppablePawnSteps(s, us)
	upThem := unstoppablePawnSteps(s, them)
	forwUs := mostAdvancedPawnSteps(s, us)
	forwThem := mostAdvancedPawnSteps(s, them)

	if upUs > 0 && upThem == 0 && upUs < forwThem+2 {
		return score + sideBonus(us, 500)
	}
	if upThem > 0 && upUs == 0 && upThem < forwUs+2 {
		return score - sideBonus(us, 500)
	}

	passUs := mostAdvancedPasserSteps(s, us)
	passThem := mostAdvancedPasserSteps(s, them)
	bonus := unstoppableBonus[minInt(upUs, 7)] - unstoppableBonus[minInt(upThem, 7)]
	bonus += bestPasserBonus[minInt(passUs, 7)] - bestPasserBonus[minInt(passThem, 7)]
	return score + sideBonus(us, bonus)
}

// knpk: a rook pawn promoting in the corner the defender holds is a draw,
// knight or not.
func knpk(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	edge := board.BitFile(board.FileA) | board.BitFile(board.FileH)
	pawn := s.pos.Piece(us, board.Pawn)
	if pawn&edge&board.BitRank(board.Rank7.RelativeTo(us)) != 0 {
		psq := pawn.LSB()
		qsq := board.NewSquare(psq.File(), board.Rank8)
		if us == board.Black {
			qsq = board.NewSquare(psq.File(), board.Rank1)
		}
		if Distance(qsq, s.pos.KingSquare(them)) <= 1 {
			return drawish(score, 128)
		}
	}
	return score
}

// kbpsk: wrong-colored bishop with rook pawn(s) cannot win when the
// defending king reaches the queening square.
func kbpsk(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	pawns := s.pos.Piece(us, board.Pawn)
	edge := board.BitFile(board.FileA) | board.BitFile(board.FileH)
	queening := fillUp(us, pawns) & board.BitRank(board.Rank8.RelativeTo(us))

	if pawns&^edge == 0 && queening.PopCount() == 1 {
		bishopOnWhite := s.pos.Piece(us, board.Bishop)&whiteSquares != 0
		queeningOnWhite := queening&whiteSquares != 0
		if bishopOnWhite != queeningOnWhite { // wrong colored bishop
			controlUs := board.KingAttackboard(s.pos.KingSquare(us)) | s.pos.Piece(us, board.King)
			if controlUs&queening == queening {
				return score + win(us, 8)
			}
			controlThem := (board.KingAttackboard(s.pos.KingSquare(them)) | s.pos.Piece(them, board.King)) &^ controlUs
			if controlThem&queening == queening {
				return drawish(score, 128)
			}
			return drawish(score, 4)
		}
	}
	return score
}

// krkp: rook vs pawn, decided by whether the rook side's king reaches the
// promotion path in time.
func krkp(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	pawn := s.pos.Piece(them, board.Pawn)
	path := fillUp(them, pawn)

	if path&s.pos.Piece(us, board.King) != 0 {
		return score + win(us, 2)
	}

	kUs, kThem := s.pos.KingSquare(us), s.pos.KingSquare(them)
	pathAttacks := board.KingAttackboard(kUs) & path
	pathDefends := board.KingAttackboard(kThem) & path
	utm := s.pos.Turn() == us
	if utm && pathAttacks != 0 && pathDefends == 0 {
		return score + win(us, 2)
	}

	psq := pawn.LSB()
	rsq := s.pos.Piece(us, board.Rook).LSB()
	defDist := Distance(kThem, psq) + b2i(utm) - 2
	sameFile := rsq.File() == psq.File()
	if sameFile && defDist > 0 {
		return score + win(us, 2)
	}
	if sameFile && pathAttacks != 0 {
		return score + win(us, 2)
	}

	promDist := path.PopCount() + b2i(utm)
	if 3 <= minInt(promDist, defDist) {
		return score + win(us, 4)
	}

	bonus := board.Score(defDist + promDist - b2i(sameFile) + b2i(pathAttacks != 0) -
		b2i(pathDefends != 0) - Distance(kUs, psq) - 1)
	if promDist < 3 && pathDefends != 0 {
		return drawish(score, 16) + sideBonus(us, 10*bonus/2)
	}
	return drawish(score, 8) + sideBonus(us, 10*bonus)
}

// krpkr: rook endings with one pawn lean heavily on Philidor and Lucena
// patterns.
func krpkr(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	utm := s.pos.Turn() == us
	psq := s.pos.Piece(us, board.Pawn).LSB()
	kUs := s.pos.KingSquare(us)
	rThem := s.pos.Piece(them, board.Rook).LSB()
	kThem := s.pos.KingSquare(them)

	qsq := board.NewSquare(psq.File(), board.Rank8)
	if us == board.Black {
		qsq = board.NewSquare(psq.File(), board.Rank1)
	}
	pr := int(psq.Rank().RelativeTo(us))
	krUs := int(kUs.Rank().RelativeTo(us))
	rrThem := int(rThem.Rank().RelativeTo(us))
	dqThem := Distance(kThem, qsq)
	prEdge := 6 - b2i(utm)

	// Philidor: defending king before the pawn, rook on its third rank.
	if dqThem <= 1 && rrThem == 5 && krUs < 5 && pr < prEdge {
		return drawish(score, 8)
	}
	if dqThem <= 1 && pr >= 5 && rrThem <= 1 {
		return drawish(score, 16)
	}

	rUs := s.pos.Piece(us, board.Rook).LSB()
	dqUs := Distance(kUs, qsq)
	bonus := board.Score(dqThem - dqUs)
	if int(rUs.Rank().RelativeTo(us)) == 3 {
		bonus++ // Lucena bridge building
	}
	if kUs.File() == psq.File() && rUs.File() == psq.File() {
		bonus++
	}
	if rrThem != 7 {
		bonus++
	}
	if psq.File() > board.FileA && psq.File() < board.FileH {
		bonus++
	}
	score += sideBonus(us, 10*bonus)
	steps := 7 - pr - b2i(utm)
	return drawish(score, maxInt(steps, 1))
}

// kqkp: queen vs far-advanced rook or bishop pawn is drawn when the
// defending king shelters the pawn.
func kqkp(s *egState, score board.Score, us board.Color) board.Score {
	them := us.Opponent()
	utm := s.pos.Turn() == us
	pawn := s.pos.Piece(them, board.Pawn)

	advanced := board.BitRank(board.Rank7.RelativeTo(them))
	if !utm {
		advanced |= board.BitRank(board.Rank6.RelativeTo(them))
	}
	if pawn&advanced == 0 {
		return score + win(us, 4)
	}

	acfh := board.BitFile(board.FileA) | board.BitFile(board.FileC) | board.BitFile(board.FileF) | board.BitFile(board.FileH)
	if pawn&acfh == 0 {
		return score
	}

	path := fillUp(them, pawn)
	pathAttacks := board.KingAttackboard(s.pos.KingSquare(us)) & path
	pathDefends := (s.pos.Piece(them, board.King) | board.KingAttackboard(s.pos.KingSquare(them))) & path
	if pathDefends != 0 && pathAttacks == 0 {
		return drawish(score, 32)
	}
	return score
}

func pieceDistance(s *egState, c board.Color) int {
	b := s.pos.Color(c)
	return Distance(b.LSB(), b.MSB())
}

// Endgame classifiers.

func isKNPK(s *egState, us board.Color) bool {
	return s.count(us, board.Knight) == 1 && s.count(us, board.Bishop) == 0 &&
		s.count(us, board.Rook) == 0 && s.count(us, board.Queen) == 0 &&
		s.count(us, board.Pawn) == 1
}

func isKBPsK(s *egState, us board.Color) bool {
	return s.count(us, board.Bishop) == 1 && s.count(us, board.Knight) == 0 &&
		s.count(us, board.Rook) == 0 && s.count(us, board.Queen) == 0 &&
		s.count(us, board.Pawn) >= 1
}

func isKRKP(s *egState, us board.Color) bool {
	them := us.Opponent()
	return s.count(us, board.Rook) == 1 && s.count(us, board.Queen) == 0 &&
		s.count(us, board.Bishop) == 0 && s.count(us, board.Knight) == 0 &&
		s.count(us, board.Pawn) == 0 && s.count(them, board.Pawn) == 1
}

func isKQKP(s *egState, us board.Color) bool {
	them := us.Opponent()
	return s.count(us, board.Queen) == 1 && s.count(us, board.Rook) == 0 &&
		s.count(us, board.Bishop) == 0 && s.count(us, board.Knight) == 0 &&
		s.count(us, board.Pawn) == 0 && s.count(them, board.Pawn) == 1
}

func isKRPKR(s *egState, us board.Color) bool {
	them := us.Opponent()
	return s.count(us, board.Rook) == 1 && s.count(us, board.Pawn) == 1 &&
		s.count(us, board.Queen) == 0 && s.count(us, board.Bishop) == 0 &&
		s.count(us, board.Knight) == 0 &&
		s.count(them, board.Rook) == 1 && s.count(them, board.Pawn) == 0 &&
		s.count(them, board.Queen) == 0 && s.count(them, board.Bishop) == 0 &&
		s.count(them, board.Knight) == 0
}

func isKQPsKQ(s *egState, us board.Color) bool {
	them := us.Opponent()
	return s.count(us, board.Queen) == 1 && s.count(us, board.Pawn) >= 1 &&
		s.count(us, board.Rook) == 0 && s.count(us, board.Bishop) == 0 &&
		s.count(us, board.Knight) == 0 &&
		s.count(them, board.Queen) == 1 && s.count(them, board.Pawn) == 0 &&
		s.count(them, board.Rook) == 0 && s.count(them, board.Bishop) == 0 &&
		s.count(them, board.Knight) == 0
}

func isKQPsKQPs(s *egState) bool {
	for c := board.ZeroColor; c < board.NumColors; c++ {
		if s.count(c, board.Queen) != 1 || s.count(c, board.Pawn) == 0 ||
			s.count(c, board.Rook) != 0 || s.count(c, board.Bishop) != 0 ||
			s.count(c, board.Knight) != 0 {
			return false
		}
	}
	return true
}

func isOppBishops(s *egState) bool {
	for c := board.ZeroColor; c < board.NumColors; c++ {
		if s.count(c, board.Bishop) != 1 || s.count(c, board.Rook) != 0 ||
			s.count(c, board.Queen) != 0 || s.count(c, board.Knight) != 0 {
			return false
		}
	}
	wOnWhite := s.pos.Piece(board.White, board.Bishop)&whiteSquares != 0
	bOnWhite := s.pos.Piece(board.Black, board.Bishop)&whiteSquares != 0
	return wOnWhite != bOnWhite
}

func isKBBKN(s *egState, us board.Color) bool {
	them := us.Opponent()
	return s.count(us, board.Bishop) == 2 && s.count(us, board.Knight) == 0 &&
		s.count(us, board.Rook) == 0 && s.count(us, board.Queen) == 0 &&
		s.count(them, board.Knight) == 1 && s.count(them, board.Bishop) == 0 &&
		s.count(them, board.Rook) == 0 && s.count(them, board.Queen) == 0
}
