package eval_test

import (
	"strings"
	"testing"
	"unicode"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/kestrelchess/engine/pkg/eval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, f string) *board.Position {
	t.Helper()
	pos, err := fen.Decode(f)
	require.NoError(t, err)
	return pos
}

// mirrorFEN swaps colors and ranks: the mirror image position.
func mirrorFEN(f string) string {
	parts := strings.Split(f, " ")

	ranks := strings.Split(parts[0], "/")
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	swapped := strings.Join(ranks, "/")
	var sb strings.Builder
	for _, r := range swapped {
		switch {
		case unicode.IsUpper(r):
			sb.WriteRune(unicode.ToLower(r))
		case unicode.IsLower(r):
			sb.WriteRune(unicode.ToUpper(r))
		default:
			sb.WriteRune(r)
		}
	}

	turn := "w"
	if parts[1] == "w" {
		turn = "b"
	}

	castling := parts[2]
	if castling != "-" {
		var cb strings.Builder
		for _, r := range []rune{'K', 'Q', 'k', 'q'} {
			swapped := unicode.ToLower(r)
			if unicode.IsLower(r) {
				swapped = unicode.ToUpper(r)
			}
			if strings.ContainsRune(castling, swapped) {
				cb.WriteRune(r)
			}
		}
		castling = cb.String()
		if castling == "" {
			castling = "-"
		}
	}

	ep := parts[3]
	if ep != "-" {
		sq, _ := board.ParseSquareStr(ep)
		ep = sq.Flip().String()
	}

	return strings.Join([]string{sb.String(), turn, castling, ep, parts[4], parts[5]}, " ")
}

// For any position, the evaluation of its mirror image has opposite sign and
// equal magnitude, and the phase is invariant.
func TestEvaluateSymmetry(t *testing.T) {
	tests := []string{
		fen.Initial,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
		"8/k7/3p4/p2P1p2/P2P1P2/8/8/K7 w - - 0 1",
		"5rk1/2p4p/2p4r/3P4/4p1b1/1Q2NqPp/PP3P1K/R4R2 b - - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1",
	}

	for _, tt := range tests {
		e := eval.NewEvaluator()
		pos := decode(t, tt)
		mirror := decode(t, mirrorFEN(tt))

		assert.Equal(t, e.Evaluate(pos), -e.Evaluate(mirror), "mirror of %v", tt)
		assert.Equal(t, e.Phase(pos), e.Phase(mirror), "phase of mirror of %v", tt)
	}
}

// Dead-drawn piece configurations must evaluate to roughly zero, and mating
// material to a clear win.
func TestEndgameRecognition(t *testing.T) {
	e := eval.NewEvaluator()

	knk := e.Evaluate(decode(t, "7k/8/6K1/3N4/8/8/8/8 w - - 0 1"))
	assert.InDelta(t, 0, int(knk), 10, "KNK is a dead draw")

	kk := e.Evaluate(decode(t, "6k1/8/8/8/8/8/8/1K6 w - - 0 1"))
	assert.InDelta(t, 0, int(kk), 10, "KK is a dead draw")

	knnk := e.Evaluate(decode(t, "5k2/8/2N2K2/8/5N2/8/8/8 w - - 0 1"))
	assert.InDelta(t, 0, int(knnk), 10, "KNNK is a dead draw")

	kbbk := e.Evaluate(decode(t, "8/8/8/8/4k3/8/8/K2B2B1 w - - 0 1"))
	assert.Greater(t, int(kbbk), 500, "KBBK is winning")
}

func TestMaterialPhase(t *testing.T) {
	e := eval.NewEvaluator()

	assert.Equal(t, 0, e.Phase(decode(t, fen.Initial)), "all pieces on")
	assert.Equal(t, eval.MaxPhase, e.Phase(decode(t, "6k1/8/8/8/8/8/8/1K6 w - - 0 1")), "kings only")
	assert.Equal(t, eval.MaxPhase, e.Phase(decode(t, "8/k7/3p4/p2P1p2/P2P1P2/8/8/K7 w - - 0 1")), "pawns only")
}

func TestEvaluateSTM(t *testing.T) {
	e := eval.NewEvaluator()

	// An extra queen for white reads positive for white, negative for black.
	posW := decode(t, "4k3/8/8/8/8/8/8/Q3K3 w - - 0 1")
	posB := decode(t, "4k3/8/8/8/8/8/8/Q3K3 b - - 0 1")
	assert.Greater(t, int(e.EvaluateSTM(posW)), 300)
	assert.Less(t, int(e.EvaluateSTM(posB)), -300)
}

func TestPassedPawnScoring(t *testing.T) {
	e := eval.NewEvaluator()

	// Connected passers on the 6th are worth far more than home-rank pawns.
	passer := e.Evaluate(decode(t, "4k3/8/2PP4/8/8/8/8/4K3 w - - 0 1"))
	home := e.Evaluate(decode(t, "4k3/8/8/8/8/8/2P1P3/4K3 w - - 0 1"))
	assert.Greater(t, int(passer), int(home))
}

func TestPawnCacheConsistency(t *testing.T) {
	e := eval.NewEvaluator()
	pos := decode(t, "r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10")

	// Evaluating twice hits the pawn and material caches; results must agree.
	first := e.Evaluate(pos)
	second := e.Evaluate(pos)
	assert.Equal(t, first, second)

	e.Clear()
	assert.Equal(t, first, e.Evaluate(pos))
}
