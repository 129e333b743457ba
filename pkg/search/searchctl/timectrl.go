package searchctl

import (
	"fmt"
	"time"

	"github.com/kestrelchess/engine/pkg/board"
)

// TimeControl represents clock information from the driver.
type TimeControl struct {
	White, Black time.Duration
	WhiteInc     time.Duration
	BlackInc     time.Duration
	MovesToGo    int // 0 == rest of game
}

func (t TimeControl) String() string {
	if t.MovesToGo == 0 {
		return fmt.Sprintf("%.1f+%.1f<>%.1f+%.1f", t.White.Seconds(), t.WhiteInc.Seconds(), t.Black.Seconds(), t.BlackInc.Seconds())
	}
	return fmt.Sprintf("%.1f+%.1f<>%.1f+%.1f[moves=%v]", t.White.Seconds(), t.WhiteInc.Seconds(), t.Black.Seconds(), t.BlackInc.Seconds(), t.MovesToGo)
}

// lagBuffer compensates for interface and scheduling overhead.
//
// TODO(kestrel): a fixed buffer is too conservative for bullet controls;
// revisit when sub-second time controls matter.
const lagBuffer = 500 * time.Millisecond

const (
	movesWithIncrement = 25
	movesSuddenDeath   = 30
)

// TimeManager allocates a soft and a hard budget for one move from the
// remaining clock, increments, and moves to go. The search consults only
// TimeIsUp at its polling points and the two reserved budgets at
// end-of-iteration decisions.
type TimeManager struct {
	start    time.Time
	min, max time.Duration
}

// NewTimeManager computes the budgets for the side to move.
func NewTimeManager(tc TimeControl, turn board.Color) *TimeManager {
	myTime, oppTime := tc.White, tc.Black
	myInc, oppInc := tc.WhiteInc, tc.BlackInc
	if turn == board.Black {
		myTime, oppTime = oppTime, myTime
		myInc, oppInc = oppInc, myInc
	}

	m := movesSuddenDeath
	if myInc > 0 {
		m = movesWithIncrement
	}
	if myInc > myTime {
		m = 1
	} else if tc.MovesToGo > 0 && tc.MovesToGo+1 < m {
		m = tc.MovesToGo + 1
	}

	mMax := m / 4
	if mMax < 1 {
		mMax = 1
	}
	totMin := myTime / time.Duration(2*m)
	totMax := myTime / time.Duration(mMax)

	// A bounded fraction of the increment is added to each budget.
	if myInc > 0 {
		totMin += 196 * minDur(myInc, myTime-totMin) / 256
		totMax += minDur(myInc, myTime-totMax)
	}

	// Spend more when ahead on the clock; speed up when behind.
	delta := myTime - oppTime
	if delta > 0 && myInc >= oppInc {
		totMin += minDur(delta, myTime-totMin) / 4
		totMax += minDur(delta, myTime-totMax) / 2
	} else if delta < 0 && myInc <= oppInc {
		factor := float64(myTime) / float64(oppTime+1)
		if factor < 0.25 {
			factor = 0.25
		}
		totMin = time.Duration(factor * float64(totMin))
	}

	totMin = maxDur(0, totMin-lagBuffer)
	totMax = maxDur(0, totMax-lagBuffer)

	return &TimeManager{
		start: time.Now(),
		min:   totMin,
		max:   maxDur(totMin, totMax),
	}
}

// Elapsed returns the time since the search started.
func (t *TimeManager) Elapsed() time.Duration {
	return time.Since(t.start)
}

// TimeIsUp returns true once the hard budget is exhausted.
func (t *TimeManager) TimeIsUp() bool {
	return t.Elapsed() >= t.max
}

// ReservedMin returns the soft budget: after this, no new iteration starts
// unless the position demands it.
func (t *TimeManager) ReservedMin() time.Duration {
	return t.min
}

// ReservedMax returns the hard budget.
func (t *TimeManager) ReservedMax() time.Duration {
	return t.max
}

func (t *TimeManager) String() string {
	return fmt.Sprintf("tm{min=%v, max=%v, elapsed=%v}", t.min, t.max, t.Elapsed())
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func maxDur(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
