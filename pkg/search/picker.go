package search

import (
	"github.com/kestrelchess/engine/pkg/board"
)

// The move picker is a finite state machine per search node. Moves are
// generated in stages and popped best-first; legality is verified just
// before a move is returned, so illegal pseudo-legal moves cost nothing
// beyond their generation.

type pickStage uint8

const (
	stageHash pickStage = iota
	stageCaptures
	stagePromotions
	stageMateKiller
	stageKiller1
	stageKiller2
	stageBadCaptures // negative-SEE captures and minor promotions
	stageCastles
	stageQuiet
	stageStop
)

// picker holds the per-node iteration state over the frame's move list.
type picker struct {
	stage    pickStage
	from     int // moves below this index have been consumed
	minScore board.Score
}

const noMinScore = board.MinScore

// mvvlva orders captures by most-valuable victim, least-valuable aggressor.
func mvvlva(m board.Move) board.Score {
	victim := m.Capture
	if m.Type == board.EnPassant {
		victim = board.Pawn
	}
	return board.SEEValue(victim)*8 - board.Score(m.Moving)
}

// firstMove resets the picker and returns the first move for the node.
func (r *run) firstMove(f *frame, depth int) *board.Move {
	f.list.Clear()
	f.pick = picker{stage: stageHash, minScore: 0}
	return r.nextMove(f, depth)
}

// pop repeatedly picks the highest-scoring remaining move, skipping moves
// already emitted in earlier stages and moves that are not legal.
func (r *run) pop(f *frame) *board.Move {
	p := &f.pick
	for p.from < f.list.Len() {
		m := f.list.PickBest(p.from)
		if m.Score < p.minScore {
			return nil
		}

		// Filter negative-SEE captures while in the good-captures stage:
		// re-score them so they surface again in the bad-captures stage.
		if p.minScore == 0 && m.IsCapture() && !r.cfg.objective().CapturesForced() {
			if board.SEEValue(m.Capture)-board.SEEValue(m.Moving) < 0 {
				if see := r.pos.SEE(*m); see < 0 {
					m.Score = see
					continue
				}
			}
		}

		candidate := m
		p.from++
		if candidate.Equals(f.ttMove) || r.isKiller(f, *candidate) {
			continue // already emitted by an earlier stage
		}
		if !r.pos.Legal(*candidate) {
			continue
		}
		return candidate
	}
	return nil
}

func (r *run) isKiller(f *frame, m board.Move) bool {
	return m.IsQuiet() && (m.Equals(f.killers[0]) || m.Equals(f.killers[1]) || m.Equals(f.killers[2]))
}

// emitKiller validates a remembered quiet move for the current position.
func (r *run) emitKiller(f *frame, i int, prev ...int) *board.Move {
	k := &f.killers[i]
	if !k.Moving.IsValid() || k.Equals(f.ttMove) {
		return nil
	}
	for _, j := range prev {
		if k.Equals(f.killers[j]) {
			return nil
		}
	}
	if !r.pos.Valid(*k) || !r.pos.Legal(*k) {
		return nil
	}
	return k
}

// nextMove returns the next available move, generating stages on demand.
// When a stage yields no candidate it falls through to the next stage. At
// negative-depth quiescence entry the quiet-move stages are skipped unless
// the side to move is in check.
func (r *run) nextMove(f *frame, depth int) *board.Move {
	if m := r.pop(f); m != nil {
		return m
	}

	obj := r.cfg.objective()
	doQuiets := depth >= 0 || f.inCheck

	for {
		switch f.pick.stage {
		case stageHash:
			f.pick.stage = stageCaptures
			if f.ttMove.Moving.IsValid() && r.pos.Valid(f.ttMove) && r.pos.Legal(f.ttMove) {
				return &f.ttMove
			}

		case stageCaptures:
			mark := f.list.Len()
			r.pos.GenerateCaptures(&f.list)
			for i := mark; i < f.list.Len(); i++ {
				m := f.list.At(i)
				m.Score = obj.CaptureScore(r.pos, *m)
			}
			if obj.CapturesForced() {
				// Captures are compulsory: if any capture exists, nothing
				// else may be played.
				f.pick.minScore = noMinScore
				m := r.pop(f)
				if m != nil || (f.ttMove.Moving.IsValid() && f.ttMove.IsCapture()) {
					f.pick.stage = stageStop
					return m
				}
				f.pick.minScore = 0
			}
			f.pick.stage = stagePromotions
			if m := r.pop(f); m != nil {
				return m
			}

		case stagePromotions:
			mark := f.list.Len()
			r.pos.GeneratePromotions(&f.list)
			for i := mark; i < f.list.Len(); i++ {
				m := f.list.At(i)
				// Under-promotions score negative: they surface in the
				// bad-captures stage.
				if m.Promotion == board.Queen && (depth <= 0 || r.pos.SEE(*m) >= 0) {
					m.Score = board.Score(m.Promotion) * 8
				} else {
					m.Score = -100 + board.Score(m.Promotion)
				}
			}
			f.pick.stage = stageMateKiller
			if m := r.pop(f); m != nil {
				return m
			}

		case stageMateKiller:
			f.pick.stage = stageKiller1
			if doQuiets {
				if m := r.emitKiller(f, 0); m != nil {
					return m
				}
			}

		case stageKiller1:
			f.pick.stage = stageKiller2
			if doQuiets {
				if m := r.emitKiller(f, 1, 0); m != nil {
					return m
				}
			}

		case stageKiller2:
			f.pick.stage = stageBadCaptures
			if doQuiets {
				if m := r.emitKiller(f, 2, 0, 1); m != nil {
					return m
				}
			}

		case stageBadCaptures:
			f.pick.minScore = noMinScore
			f.pick.stage = stageCastles
			if m := r.pop(f); m != nil {
				return m
			}

		case stageCastles:
			f.pick.stage = stageQuiet
			if doQuiets && !f.inCheck {
				mark := f.list.Len()
				r.pos.GenerateCastles(&f.list)
				for i := mark; i < f.list.Len(); i++ {
					f.list.At(i).Score = 100
				}
				if m := r.pop(f); m != nil {
					return m
				}
			}

		case stageQuiet:
			f.pick.stage = stageStop
			if doQuiets {
				mark := f.list.Len()
				r.pos.GenerateQuiet(&f.list)
				for i := mark; i < f.list.Len(); i++ {
					m := f.list.At(i)
					m.Score = r.history.get(r.pos.Turn(), m.Moving, m.To)
				}
				if m := r.pop(f); m != nil {
					return m
				}
			}

		case stageStop:
			return nil
		}
	}
}

// quietStage returns true iff the picker has reached the quiet-move stages,
// used by the search to classify candidate moves for reductions.
func (f *frame) quietStage() bool {
	return f.pick.stage > stageQuiet
}
