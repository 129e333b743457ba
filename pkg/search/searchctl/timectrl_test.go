package searchctl_test

import (
	"testing"
	"time"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/search/searchctl"
	"github.com/stretchr/testify/assert"
)

func TestTimeManagerBudgets(t *testing.T) {
	tc := searchctl.TimeControl{
		White: 5 * time.Minute,
		Black: 5 * time.Minute,
	}
	tm := searchctl.NewTimeManager(tc, board.White)

	// Sudden death: T/(2*30) soft minus lag, T/7 hard minus lag.
	assert.Equal(t, 5*time.Minute/60-500*time.Millisecond, tm.ReservedMin())
	assert.Equal(t, 5*time.Minute/7-500*time.Millisecond, tm.ReservedMax())
	assert.False(t, tm.TimeIsUp())
}

func TestTimeManagerIncrement(t *testing.T) {
	tc := searchctl.TimeControl{
		White:    time.Minute,
		Black:    time.Minute,
		WhiteInc: 2 * time.Second,
		BlackInc: 2 * time.Second,
	}
	tm := searchctl.NewTimeManager(tc, board.White)

	// With increment, M=25 and a bounded fraction of the increment is added.
	min := time.Minute/50 + 196*2*time.Second/256 - 500*time.Millisecond
	assert.Equal(t, min, tm.ReservedMin())
	assert.Greater(t, tm.ReservedMax(), tm.ReservedMin())
}

func TestTimeManagerMovesToGo(t *testing.T) {
	tc := searchctl.TimeControl{
		White:     time.Minute,
		Black:     time.Minute,
		MovesToGo: 3,
	}
	tm := searchctl.NewTimeManager(tc, board.Black)

	// M is capped by moves-to-go + 1.
	assert.Equal(t, time.Minute/8-500*time.Millisecond, tm.ReservedMin())
}

func TestTimeManagerLowOnTime(t *testing.T) {
	tc := searchctl.TimeControl{
		White:    800 * time.Millisecond,
		Black:    time.Minute,
		WhiteInc: time.Second, // increment exceeds remaining time
	}
	tm := searchctl.NewTimeManager(tc, board.White)

	// Budgets never go negative.
	assert.GreaterOrEqual(t, tm.ReservedMin(), time.Duration(0))
	assert.GreaterOrEqual(t, tm.ReservedMax(), tm.ReservedMin())
}
