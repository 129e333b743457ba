package search

import (
	"context"
	"sort"
	"time"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/seekerror/logw"
	"go.uber.org/atomic"
)

// rootMove tracks a legal root move and the size of its subtree, which
// drives move ordering between iterations and the easy-move decision.
type rootMove struct {
	move       board.Move
	givesCheck int
	see        board.Score
	nodes      uint64
}

// Root owns one search activation: the root move list, the search stack and
// the per-iteration bookkeeping for iterative deepening.
type Root struct {
	run
	moves []rootMove

	// BestMove and LastScore are the result of the most recent fully
	// completed iteration. An aborted iteration never touches them: partial
	// work of the current iteration is discarded.
	BestMove  board.Move
	LastScore board.Score

	// iterBest is the best move of the iteration in progress, kept separate
	// from BestMove so it can drive move ordering without leaking into the
	// committed result.
	iterBest  board.Move
	completed PV
	started   time.Time

	// Progress, if set, is called with every exact new best line found at
	// the root. Informational only: consumers must not treat it as the
	// search result, which is whatever SearchIteration last returned.
	Progress func(PV)
}

// Limits bounds a search activation.
type Limits struct {
	Nodes  uint64       // 0 is unlimited
	TimeUp func() bool  // nil if not timed
	Stop   *atomic.Bool // external stop flag; may be nil
}

// NewRoot prepares a search for the position. The position is owned by the
// search until it completes.
func NewRoot(ctx context.Context, pos *board.Position, cfg Config, limits Limits) *Root {
	r := &Root{
		run: run{
			cfg:       cfg,
			obj:       cfg.objective(),
			pos:       pos,
			tt:        cfg.TT,
			stack:     make([]frame, board.MaxPly+1),
			rootPly:   pos.Ply(),
			nodeLimit: limits.Nodes,
			timeUp:    limits.TimeUp,
			stop:      limits.Stop,
		},
		started: time.Now(),
	}
	if r.tt != nil {
		r.tt.SetSalt(r.obj.HashSalt())
	}
	r.initRootMoves()

	logw.Debugf(ctx, "Root search initialized: %v moves, position %v", len(r.moves), pos)
	return r
}

// initRootMoves enumerates the legal root moves through the move picker so
// ordering matches the interior nodes.
func (r *Root) initRootMoves() {
	f := &r.stack[0]
	f.inCheck = r.pos.IsChecked()
	f.evalValid = false

	if m, _, _, _, ok := r.tt.Probe(r.pos.Key(), 0); ok {
		f.ttMove = m
	}

	for move := r.firstMove(f, 1); move != nil; move = r.nextMove(f, 1) {
		m := *move
		r.moves = append(r.moves, rootMove{
			move:       m,
			givesCheck: r.pos.GivesCheck(m),
			see:        r.pos.SEE(m),
		})
	}
}

// MoveCount returns the number of legal root moves.
func (r *Root) MoveCount() int {
	return len(r.moves)
}

// Nodes returns the nodes searched so far, including pruned ones.
func (r *Root) Nodes() uint64 {
	return r.nodes + r.pruned
}

// Aborted returns true iff the last iteration was cut short.
func (r *Root) Aborted() bool {
	return r.stopped
}

// IsEasy returns true iff the best move's subtree dominates all others by a
// factor of eight: the position plays itself.
func (r *Root) IsEasy() bool {
	if len(r.moves) == 0 {
		return false
	}
	n0 := r.moves[0].nodes / 8
	for _, m := range r.moves[1:] {
		if m.nodes >= n0 {
			return false
		}
	}
	return true
}

// IsComplex returns true iff some alternative's subtree matches the best
// move's: the choice is genuinely hard.
func (r *Root) IsComplex() bool {
	if len(r.moves) == 0 {
		return false
	}
	n0 := r.moves[0].nodes
	for _, m := range r.moves[1:] {
		if m.nodes >= n0 {
			return true
		}
	}
	return false
}

// SearchIteration runs one iterative-deepening step at the given depth,
// wrapped in an aspiration window around the previous score. The result is
// committed only when the iteration completes: an aborted iteration returns
// the retained result of the last completed one, exactly.
func (r *Root) SearchIteration(ctx context.Context, depth int) PV {
	r.stopped = false
	r.iterBest = r.BestMove
	score := r.aspiration(depth, r.LastScore)
	if r.stopped {
		return r.completed
	}

	r.LastScore = score
	r.BestMove = r.stack[0].bestMove
	r.haveRootMove = true
	r.completed = r.pv(depth, score)
	return r.completed
}

// aspiration searches with a narrow window around the last score, doubling
// the window on fail high or low until it exceeds ±900 or turns winning,
// then falls back to the infinite window.
func (r *Root) aspiration(depth int, last board.Score) board.Score {
	if depth >= 6 && !last.IsMateScore() && last < WinScoreBound && last > -WinScoreBound {
		for window := board.Score(20); window < 900; window *= 2 {
			alpha, beta := last-window, last+window
			score := r.pvsRoot(alpha, beta, depth)
			if r.stopped {
				return score
			}
			if score > alpha && score < beta {
				return score
			}
			if score.IsMateScore() || score >= WinScoreBound || score <= -WinScoreBound {
				break
			}
			last = score
		}
	}
	return r.pvsRoot(-board.Infinite, board.Infinite, depth)
}

// pvsRoot searches every root move: full window on the first, zero window on
// the rest with a re-search when alpha is beaten. Subtree node counts are
// accumulated per move for ordering and the easy-move heuristic.
func (r *Root) pvsRoot(alpha, beta board.Score, depth int) board.Score {
	r.sortRootMoves()
	f := &r.stack[0]
	best := -board.Infinite

	for i := range r.moves {
		rm := &r.moves[i]
		nodesBefore := r.nodes
		extend := 0
		if rm.givesCheck > 0 {
			extend = 1
		}

		r.forward(rm.move, rm.givesCheck)
		var score board.Score
		if i > 0 {
			score = -r.pvs(-alpha-1, -alpha, depth-1+extend)
		}
		if i == 0 || score > alpha {
			score = -r.pvs(-beta, -alpha, depth-1+extend)
		}
		r.backward()
		rm.nodes += r.nodes - nodesBefore

		if r.stopped {
			return alpha
		}
		if score > best {
			best = score
			rm.nodes += uint64(i) // tie-break: keep earlier moves slightly ahead
			r.iterBest = rm.move

			// A non-exact score means the aspiration window must be
			// re-searched: the line is provisional, so neither the PV nor
			// the best move is committed from it.
			if boundOf(score, alpha, beta) != ExactBound {
				return score
			}

			f.bestMove = rm.move
			r.updatePV(f, rm.move)
			if r.Progress != nil {
				r.Progress(r.pv(depth, best))
			}
			alpha = best
		}
	}
	return best
}

// sortRootMoves orders by (is best move so far, subtree nodes).
func (r *Root) sortRootMoves() {
	best := r.iterBest
	sort.SliceStable(r.moves, func(i, j int) bool {
		if r.moves[i].move.Equals(best) {
			return true
		}
		if r.moves[j].move.Equals(best) {
			return false
		}
		return r.moves[i].nodes > r.moves[j].nodes
	})
}

// pv assembles the principal variation of the last iteration, extended from
// the transposition table when the stack's copy is short.
func (r *Root) pv(depth int, score board.Score) PV {
	f := &r.stack[0]
	moves := make([]board.Move, f.pvN)
	copy(moves, f.pv[:f.pvN])

	if len(moves) > 0 && len(moves) < 8 && r.tt != nil {
		scratch := r.pos.Fork()
		for _, m := range moves {
			scratch.Make(m)
		}
		for len(moves) < 8 {
			m, _, _, _, ok := r.tt.Probe(scratch.Key(), 0)
			if !ok || !m.Moving.IsValid() || !scratch.Valid(m) || !scratch.Legal(m) {
				break
			}
			moves = append(moves, m)
			scratch.Make(m)
		}
	}

	hash := 0.0
	if r.tt != nil {
		hash = r.tt.Used()
	}
	return PV{
		Depth:    depth,
		SelDepth: r.selDepth,
		Score:    score,
		Moves:    moves,
		Nodes:    r.Nodes(),
		Time:     time.Since(r.started),
		Hash:     hash,
	}
}

// StorePV writes the principal variation into the transposition table before
// the next iteration, so PV moves are re-searched first.
func (r *Root) StorePV() {
	f := &r.stack[0]
	if f.pvN == 0 || r.tt == nil {
		return
	}
	scratch := r.pos.Fork()
	for i := 0; i < f.pvN; i++ {
		m := f.pv[i]
		if !scratch.Valid(m) || !scratch.Legal(m) {
			break
		}
		if cur, _, _, _, ok := r.tt.Probe(scratch.Key(), 0); !ok || !cur.Equals(m) {
			r.tt.Store(scratch.Key(), 0, 0, 0, m, ExactBound)
		}
		scratch.Make(m)
	}
}

// Ponder returns the expected reply from the last completed iteration's PV,
// if any.
func (r *Root) Ponder() (board.Move, bool) {
	if len(r.completed.Moves) > 1 {
		return r.completed.Moves[1], true
	}
	return board.Move{}, false
}
