package search

// Late move reduction table, precomputed from measured cutoff percentages
// per move index: late moves at high depth reduce the most, with the curve
// flattening once cutoff probability bottoms out.

var lmrCutoffPct = [16]float64{
	0.8835, 0.0618, 0.0221, 0.0101, 0.0051, 0.0028, 0.0018, 0.0011,
	0.0008, 0.0007, 0.0007, 0.0007, 0.0007, 0.0007, 0.0007, 0.0006,
}

var lmrTable [32][16]uint8

func init() {
	const f = 0.01  // higher: more reductions
	const df = 0.25 // higher: more reductions
	for d := 0; d < 32; d++ {
		baseRed := float64(d) * df / 2.0
		if baseRed > 1.8 {
			baseRed = 1.8
		}
		extraRed := float64(d) * df
		for m := 0; m < 16; m++ {
			pct := 1.0 - lmrCutoffPct[m]
			mul := (pct - (1.0 - f)) / f
			if mul < 0 {
				mul = 0
			}
			lmrTable[d][m] = uint8(pct*baseRed + mul*extraRed + 0.25)
		}
	}
}

func lmrReduce(depth, moveIndex int) int {
	return int(lmrTable[minInt(depth, 31)][minInt(moveIndex, 15)])
}
