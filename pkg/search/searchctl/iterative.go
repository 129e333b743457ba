package searchctl

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/search"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"
	"go.uber.org/atomic"
)

// Iterative is a search harness for iterative deepening search with
// aspiration windows and time-managed termination.
type Iterative struct{}

func (i *Iterative) Launch(ctx context.Context, pos *board.Position, cfg search.Config, opt Options) (Handle, <-chan search.PV) {
	out := make(chan search.PV, 1)
	h := &handle{
		init:      iox.NewAsyncCloser(),
		quit:      iox.NewAsyncCloser(),
		pondering: atomic.NewBool(opt.Ponder),
	}
	go h.process(ctx, pos, cfg, opt, out)

	return h, out
}

type handle struct {
	init, quit iox.AsyncCloser
	stop       atomic.Bool
	pondering  *atomic.Bool

	pv search.PV
	mu sync.Mutex
}

func (h *handle) process(ctx context.Context, pos *board.Position, cfg search.Config, opt Options, out chan search.PV) {
	defer h.init.Close()
	defer close(out)

	// Assemble the limits: node cap, fixed move time or clock budgets. A
	// pondering search ignores the clock until PonderHit.

	var tm *TimeManager
	var deadline time.Time
	limits := search.Limits{Stop: &h.stop}
	if v, ok := opt.NodesLimit.V(); ok {
		limits.Nodes = v
	}
	if v, ok := opt.MoveTime.V(); ok {
		deadline = time.Now().Add(time.Duration(v) * time.Millisecond)
		limits.TimeUp = func() bool {
			return !h.pondering.Load() && time.Now().After(deadline)
		}
	} else if tc, ok := opt.TimeControl.V(); ok && !opt.Infinite {
		tm = NewTimeManager(tc, pos.Turn())
		limits.TimeUp = func() bool {
			return !h.pondering.Load() && tm.TimeIsUp()
		}
	}

	maxDepth := board.MaxPly - 1
	if v, ok := opt.DepthLimit.V(); ok && int(v) < maxDepth && v > 0 {
		maxDepth = int(v)
	}

	// Only completed iterations are published: the PV returned by Halt must
	// be exactly the best move of the most recent fully-completed iteration,
	// so mid-iteration progress never feeds the handle state.

	root := search.NewRoot(ctx, pos, cfg, limits)

	if root.MoveCount() == 0 {
		logw.Debugf(ctx, "No legal moves in %v", pos)
		return
	}

	last := -board.Infinite
	for depth := 1; depth <= maxDepth && !h.quit.IsClosed(); depth++ {
		pv := root.SearchIteration(ctx, depth)
		if root.Aborted() {
			return
		}

		logw.Debugf(ctx, "Searched %v: %v", pos, pv)
		h.publish(pv, out)
		h.init.Close()
		root.StorePV()

		// Termination decisions, in the order they short-circuit.

		if md, ok := pv.Score.MateDistance(); ok && abs(md) < depth {
			return // mate in N with depth > N: exact result
		}
		scoreJump := depth >= 6 && (absScore(pv.Score-last) > 20 || pv.Score >= search.WinScoreBound)
		last = pv.Score
		if tm != nil && !h.pondering.Load() {
			elapsed := tm.Elapsed()
			minT, maxT := tm.ReservedMin(), tm.ReservedMax()
			switch {
			case root.MoveCount() <= 1 && (depth >= 8 || elapsed > minT/8):
				return // single legal move
			case elapsed > maxT/2:
				return
			case elapsed > minT/2 && !scoreJump && root.IsEasy():
				return
			case elapsed > minT && !scoreJump && !root.IsComplex():
				return
			}
		}
	}
}

func (h *handle) publish(pv search.PV, out chan search.PV) {
	h.mu.Lock()
	h.pv = pv
	h.mu.Unlock()

	select {
	case <-out:
	default:
	}
	out <- pv
}

// Halt stops the search and returns the best PV of the last completed
// iteration. The first iteration is allowed to finish before the stop flag
// is raised, so there is always a completed result when legal moves exist.
func (h *handle) Halt() search.PV {
	h.pondering.Store(false)
	<-h.init.Closed()
	h.stop.Store(true)
	h.quit.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pv
}

// PonderHit starts time budgeting on a search launched in ponder mode.
func (h *handle) PonderHit() {
	h.pondering.Store(false)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func absScore(s board.Score) board.Score {
	if s < 0 {
		return -s
	}
	return s
}
