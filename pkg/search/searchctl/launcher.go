// Package searchctl manages search activations: iterative deepening on a
// worker goroutine, time budgeting and halt semantics.
package searchctl

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/search"
	"github.com/seekerror/stdlib/pkg/lang"
)

// Options hold dynamic search options. The user may change these on a
// particular search.
type Options struct {
	// DepthLimit, if set, limits the search to the given ply depth.
	DepthLimit lang.Optional[uint]
	// NodesLimit, if set, limits the search to the given node count.
	NodesLimit lang.Optional[uint64]
	// MoveTime, if set, searches for exactly the given duration.
	MoveTime lang.Optional[int64] // milliseconds
	// TimeControl, if set, budgets time from the clocks.
	TimeControl lang.Optional[TimeControl]
	// Infinite searches until halted.
	Infinite bool
	// Ponder starts the search in ponder mode: time budgeting begins only
	// when the ponder flag is cleared.
	Ponder bool
}

func (o Options) String() string {
	var ret []string
	if v, ok := o.DepthLimit.V(); ok {
		ret = append(ret, fmt.Sprintf("depth=%v", v))
	}
	if v, ok := o.NodesLimit.V(); ok {
		ret = append(ret, fmt.Sprintf("nodes=%v", v))
	}
	if v, ok := o.MoveTime.V(); ok {
		ret = append(ret, fmt.Sprintf("movetime=%vms", v))
	}
	if v, ok := o.TimeControl.V(); ok {
		ret = append(ret, fmt.Sprintf("time=%v", v))
	}
	if o.Infinite {
		ret = append(ret, "infinite")
	}
	if o.Ponder {
		ret = append(ret, "ponder")
	}
	return fmt.Sprintf("[%v]", strings.Join(ret, ", "))
}

// Launcher is an interface for managing searches.
type Launcher interface {
	// Launch a new search from the given position. It expects an exclusive
	// (forked) position and returns a PV channel for iteratively deeper
	// searches. If the search is exhausted, the channel is closed. The
	// search can be stopped at any time.
	Launch(ctx context.Context, pos *board.Position, cfg search.Config, opt Options) (Handle, <-chan search.PV)
}

// Handle is an interface for the engine to manage searches. The engine is
// expected to spin off searches with forked positions and close or abandon
// them when no longer needed. This design keeps stopping conditions and
// re-synchronization trivial.
type Handle interface {
	// Halt halts the search, if running. Idempotent.
	Halt() search.PV
	// PonderHit switches a pondering search to normal time budgeting.
	PonderHit()
}
