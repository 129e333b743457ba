package search

import (
	"github.com/kestrelchess/engine/pkg/board"
	"go.uber.org/atomic"
)

// frame is the per-ply search state: the move list and picker, killers, the
// principal variation continuation, the cached static evaluation and the log
// of searched moves for history updates. The search stack is a contiguous
// array indexed by ply; no per-node allocation happens during search.
type frame struct {
	list board.MoveList
	pick picker

	ttMove   board.Move
	bestMove board.Move
	killers  [3]board.Move // mate killer, killer 1, killer 2

	searched  [64]board.Move
	searchedN int

	pv  [board.MaxPly]board.Move
	pvN int

	inCheck   bool
	eval      board.Score
	evalValid bool
}

// run is a single search activation over one position.
type run struct {
	cfg Config
	obj Objective

	pos     *board.Position
	tt      *TranspositionTable
	history historyTable
	stack   []frame

	rootPly  int
	skipNull bool

	nodes  uint64
	pruned uint64

	selDepth int

	nodeLimit uint64
	timeUp    func() bool
	stop      *atomic.Bool
	stopped   bool
	nextPoll  int

	// haveRootMove is set once an iteration has fully completed, gating
	// time-based aborts on a committed best move being available.
	haveRootMove bool
}

const nodesBetweenPolls = 5000

func (r *run) ply() int {
	return r.pos.Ply() - r.rootPly
}

// abort polls the stop conditions: external stop flag, node budget, time.
// Amortized: the clock is only consulted every few thousand nodes. A time
// abort is held off until an iteration has completed, so there is always a
// retained best move to fall back on.
func (r *run) abort(forcePoll bool) bool {
	if r.stopped {
		return true
	}
	result := false
	if r.nodeLimit > 0 && r.nodes+r.pruned >= r.nodeLimit {
		result = true
	} else if r.stop != nil && r.stop.Load() {
		result = true
	} else {
		r.nextPoll--
		if forcePoll || r.nextPoll <= 0 {
			r.nextPoll = nodesBetweenPolls
			result = r.timeUp != nil && r.timeUp() && r.haveRootMove
		}
	}
	r.stopped = result
	return result
}

// evaluate returns the cached static evaluation of the current node.
func (r *run) evaluate(f *frame) board.Score {
	if !f.evalValid {
		f.eval = r.obj.Evaluate(r.cfg.Eval, r.pos) + r.cfg.Noise.Sample()
		f.evalValid = true
	}
	return f.eval
}

func (r *run) forward(m board.Move, givesCheck int) {
	r.pos.Make(m)
	nf := &r.stack[r.ply()]
	nf.inCheck = givesCheck > 0
	nf.evalValid = false
	nf.pvN = 0
	nf.searchedN = 0
}

func (r *run) backward() {
	r.pos.Unmake()
}

func (r *run) forwardNull() {
	r.skipNull = true
	r.pos.MakeNull()
	nf := &r.stack[r.ply()]
	nf.inCheck = false
	nf.evalValid = false
	nf.pvN = 0
	nf.searchedN = 0
}

func (r *run) backwardNull() {
	r.pos.UnmakeNull()
	r.skipNull = false
}

func (r *run) updatePV(f *frame, m board.Move) {
	child := &r.stack[r.ply()+1]
	f.pv[0] = m
	copy(f.pv[1:], child.pv[:child.pvN])
	f.pvN = child.pvN + 1
}

// isPassedPawnMove returns true iff the move advances a passed pawn.
func (r *run) isPassedPawnMove(m board.Move) bool {
	if m.Moving != board.Pawn {
		return false
	}
	us := r.pos.Turn()
	them := us.Opponent()
	front := board.AdjacentFiles(board.BitMask(m.To)) | board.BitFile(m.To.File())
	if us == board.White {
		front &= board.FillNorth(board.BitMask(m.To)) &^ board.BitMask(m.To)
	} else {
		front &= board.FillSouth(board.BitMask(m.To)) &^ board.BitMask(m.To)
	}
	return front&r.pos.Piece(them, board.Pawn) == 0
}

// isGain returns true iff the move wins material by static exchange.
func (r *run) isGain(m board.Move) bool {
	return m.IsCapture() && r.pos.SEE(m) > 0
}

// updateKillers remembers a quiet cutoff move: mate scores park in the mate
// killer slot, others shift through the two killer slots.
func (r *run) updateKillers(f *frame, m board.Move, score board.Score) {
	if score.IsMateScore() {
		f.killers[0] = m
		return
	}
	if f.killers[1].Equals(m) {
		return
	}
	f.killers[2] = f.killers[1]
	f.killers[1] = m
}

// deepestMate bounds scores that still count as forced mates.
const deepestMate = board.MateScore - board.MaxPly

// pvs is the central fail-soft recursive search.
func (r *run) pvs(alpha, beta board.Score, depth int) board.Score {
	ply := r.ply()
	f := &r.stack[ply]
	f.pvN = 0
	f.bestMove = board.Move{}
	if ply > r.selDepth {
		r.selDepth = ply
	}

	// 1. Horizon: drop into quiescence.

	if depth < 1 {
		return r.qsearch(alpha, beta, 0)
	}

	// 2. Stop conditions.

	r.nodes++
	if r.abort(false) {
		return alpha
	}
	if ply >= board.MaxPly-1 {
		return r.evaluate(f)
	}

	if score, ok := r.obj.Terminal(r.pos, ply); ok {
		return score
	}

	alpha0 := alpha

	// 3. Mate distance pruning.

	if board.MateIn(ply) < beta {
		beta = board.MateIn(ply)
		if alpha >= beta {
			return beta
		}
	}
	if board.MatedIn(ply) > alpha {
		alpha = board.MatedIn(ply)
		if beta <= alpha {
			return alpha
		}
	}

	if r.pos.IsDraw() {
		return DrawScore
	}

	// 4. Transposition table probe.

	pv := alpha+1 < beta
	key := r.pos.Key()
	f.ttMove = board.Move{}
	if m, score, bound, ttDepth, ok := r.tt.Probe(key, ply); ok {
		if ttDepth >= depth {
			switch {
			case pv && bound == ExactBound:
				return score
			case !pv && bound == LowerBound && score >= beta:
				return score
			case !pv && bound == UpperBound && score <= alpha:
				return score
			}
		}
		f.ttMove = m
	}

	// 5. Static evaluation, cached for the pruning decisions below.

	inCheck := f.inCheck
	eval := r.evaluate(f)

	pruneNode := !inCheck && !r.skipNull && !pv &&
		alpha < WinScoreBound && beta > -WinScoreBound &&
		r.pos.HasNonPawns(r.pos.Turn())

	margin := board.Score(150 + 50*depth)

	// 6a. Razoring / alpha pruning: hopeless nodes verified by quiescence.

	if pruneNode && depth < 4 && !r.cfg.DisableAlphaPruning && eval+margin < alpha {
		delta := beta - margin
		razor := r.qsearch(delta-1, delta, 0)
		if razor < delta {
			return razor
		}
	}

	// 6b. Reverse futility (beta) pruning.

	if pruneNode && depth < 4 && !r.cfg.DisableBetaPruning && eval-margin > beta {
		return eval - margin
	}

	// 6c. Null-move pruning with adaptive reduction and verification.

	if pruneNode && depth > 1 && eval >= beta && !r.cfg.DisableNullMove {
		R := 3
		if depth >= 7 && !r.cfg.DisableNullAdaptiveDepth {
			R += depth / 7
		}
		if depth > R && eval-beta >= 100 && !r.cfg.DisableNullAdaptiveValue {
			R += minInt(int(eval-beta)/100, 3)
		}
		r.forwardNull()
		nullScore := -r.pvs(-beta, -alpha, depth-1-R)
		r.backwardNull()
		if r.stopped {
			return alpha
		}
		if nullScore >= beta {
			const RV = 5
			if depth > RV && !r.cfg.DisableNullVerify {
				r.skipNull = true
				verified := r.pvs(alpha, beta, depth-1-RV)
				r.skipNull = false
				if verified >= beta {
					return verified
				}
			} else {
				return nullScore
			}
		}
	}

	// 7. Internal iterative deepening when no hash move is available.

	if depth >= 6 && !f.ttMove.Moving.IsValid() {
		r.skipNull = pv
		R := 4
		if pv {
			R = 2
		}
		iidScore := r.pvs(alpha, beta, depth-R)
		if iidScore.IsMateScore() {
			return iidScore
		}
		if f.bestMove.Moving.IsValid() {
			f.ttMove = f.bestMove
		}
	}

	// 8. Move loop.

	move := r.firstMove(f, depth)
	if move == nil {
		return r.obj.NoMoves(r.pos, inCheck, ply)
	}

	r.skipNull = false
	best := -board.Infinite
	searched := 0
	scoreMax := board.MateIn(ply) - 1
	doFFP := !pv && depth < 8 && !r.cfg.DisableFFP && eval+board.Score(40*(depth+1)) <= alpha
	doLMP := !pv && depth < 4 && !r.cfg.DisableLMP && eval+board.Score(20*(depth+1)) <= alpha
	f.bestMove = board.Move{}
	f.searchedN = 0

	for ; move != nil; move = r.nextMove(f, depth) {
		m := *move
		givesCheck := r.pos.GivesCheck(m)

		quietStage := f.quietStage() && searched > 0
		dangerous := !quietStage || inCheck || givesCheck > 0 || r.isPassedPawnMove(m)
		prune := !dangerous && searched > 1 && best > -deepestMate

		// Forward futility and late move pruning skip futile quiet moves.

		if prune && doFFP {
			r.pruned++
			continue
		}
		if prune && doLMP && searched >= 4+2*depth {
			r.pruned++
			continue
		}

		// Extensions.

		extend := 0
		switch {
		case givesCheck > 1:
			extend = 1
		case givesCheck > 0 && (depth < 4 || pv || r.pos.SEE(m) >= 0):
			extend = 1
		case pv && depth < 4 && !r.cfg.DisablePVExtensions && r.isGain(m):
			extend = 1
		case pv && !inCheck && depth < 4 && !r.cfg.DisablePVExtensions &&
			!m.IsPromotion() && r.isPassedPawnMove(m):
			extend = 1
		}

		// Late move reductions for quiet-stage moves beyond the first.

		reduce := 0
		if depth > 1 && quietStage && !r.cfg.DisableLMR {
			reduce = lmrReduce(depth, searched)
			if reduce > 1 && dangerous {
				reduce = 1
			}
		}

		// PVS pattern: full window on the first move, zero window with
		// reduction on the rest, re-searching on fail high.

		r.forward(m, givesCheck)
		var score board.Score
		if searched == 0 {
			score = -r.pvs(-beta, -alpha, depth-1+extend)
		} else {
			score = -r.pvs(-alpha-1, -alpha, depth-1-reduce+extend)
			if score > alpha && reduce > 0 {
				score = -r.pvs(-alpha-1, -alpha, depth-1+extend)
			}
			if pv && score > alpha {
				score = -r.pvs(-beta, -alpha, depth-1+extend)
			}
		}
		r.backward()

		if r.stopped {
			return alpha
		}

		if score > best {
			f.bestMove = m
			if score >= beta {
				r.tt.Store(key, ply, depth, score, m, LowerBound)
				if m.IsQuiet() && !m.IsCastle() {
					r.updateKillers(f, m, score)
					r.history.reward(r.pos.Turn(), m.Moving, m.To)
					for i := 0; i < f.searchedN; i++ {
						if sm := f.searched[i]; sm.IsQuiet() && !sm.IsCastle() {
							r.history.punish(r.pos.Turn(), sm.Moving, sm.To, searched)
						}
					}
				}
				return score
			}
			best = score
			if best > alpha {
				r.updatePV(f, m)
				alpha = best
			}
			if best >= scoreMax {
				break
			}
		}

		if f.searchedN < len(f.searched) {
			f.searched[f.searchedN] = m
			f.searchedN++
		}
		searched++
	}

	r.tt.Store(key, ply, depth, best, f.bestMove, boundOf(best, alpha0, beta))
	return best
}

// WinScoreBound separates normal evaluations from known-won scores for the
// pruning guards.
const WinScoreBound = board.Score(3000)

// qsearch searches tactical moves only: captures and promotions, plus quiet
// checks at depth 0. Stand-pat on the static evaluation when not in check.
func (r *run) qsearch(alpha, beta board.Score, depth int) board.Score {
	ply := r.ply()
	f := &r.stack[ply]

	r.nodes++
	if r.abort(false) {
		return alpha
	}
	if ply >= board.MaxPly-1 {
		return r.evaluate(f)
	}

	if score, ok := r.obj.Terminal(r.pos, ply); ok {
		return score
	}

	if board.MateIn(ply) < beta {
		beta = board.MateIn(ply)
		if alpha >= beta {
			return beta
		}
	}
	if board.MatedIn(ply) > alpha {
		alpha = board.MatedIn(ply)
		if beta <= alpha {
			return alpha
		}
	}

	if r.pos.IsDraw() {
		return DrawScore
	}

	inCheck := f.inCheck
	eval := r.evaluate(f)
	if eval >= beta && !inCheck {
		return eval
	}

	f.ttMove = board.Move{}
	f.bestMove = board.Move{}
	f.pvN = 0
	move := r.firstMove(f, depth)
	if move == nil {
		if inCheck {
			return board.MatedIn(ply)
		}
		if depth == 0 {
			return DrawScore
		}
		return eval
	}
	if eval > alpha && !inCheck {
		alpha = eval
	}

	fbase := eval + 50
	isEndgame := !inCheck && r.cfg.Eval.IsEndgame(r.pos)

	for ; move != nil; move = r.nextMove(f, depth) {
		m := *move
		givesCheck := r.pos.GivesCheck(m)
		dangerous := depth < 0 || m.IsCapture() || inCheck || givesCheck > 0 ||
			m.IsPromotion()

		if !dangerous {
			r.pruned++
			continue
		}

		// Futility: the maximum possible material gain cannot reach alpha.

		prune := !inCheck && givesCheck == 0 && !isEndgame
		if prune && fbase+maxGain(m) <= alpha {
			r.pruned++
			continue
		}
		if prune && fbase+r.pos.SEE(m) <= alpha {
			r.pruned++
			continue
		}

		r.forward(m, givesCheck)
		score := -r.qsearch(-beta, -alpha, depth-1)
		r.backward()

		if r.stopped {
			return alpha
		}
		if score > alpha {
			f.bestMove = m
			if score >= beta {
				return score
			}
			r.updatePV(f, m)
			alpha = score
		}
	}
	return alpha
}

// maxGain is the largest material swing a move can achieve, for futility
// pruning in quiescence.
func maxGain(m board.Move) board.Score {
	gain := board.SEEValue(m.Capture)
	if m.Type == board.EnPassant {
		gain = board.SEEValue(board.Pawn)
	}
	if m.IsPromotion() {
		gain += board.SEEValue(m.Promotion) - board.SEEValue(board.Pawn)
	}
	return gain
}
