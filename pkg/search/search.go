// Package search contains the principal variation search: iterative
// deepening with aspiration windows, a staged move picker, a bucketed
// transposition table, and the pruning and reduction heuristics around them.
package search

import (
	"fmt"
	"time"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/eval"
)

// PV represents the principal variation for some search depth.
type PV struct {
	Depth    int
	SelDepth int
	Score    board.Score
	Bound    Bound
	Moves    []board.Move
	Nodes    uint64
	Time     time.Duration
	Hash     float64 // transposition table utilization [0;1]
}

func (p PV) String() string {
	pv := board.FormatMoves(p.Moves, func(m board.Move) string {
		return m.String()
	})
	return fmt.Sprintf("depth=%v seldepth=%v score=%v nodes=%v time=%v pv=%v", p.Depth, p.SelDepth, p.Score, p.Nodes, p.Time, pv)
}

// Bound represents the bound of a possibly inexact search score.
type Bound uint8

const (
	ExactBound Bound = iota
	LowerBound
	UpperBound
)

func (b Bound) String() string {
	switch b {
	case ExactBound:
		return "Exact"
	case LowerBound:
		return "Lower"
	case UpperBound:
		return "Upper"
	default:
		return "?"
	}
}

// boundOf classifies a fail-soft score against the original window.
func boundOf(score, alpha, beta board.Score) Bound {
	if score <= alpha {
		return UpperBound
	}
	if score >= beta {
		return LowerBound
	}
	return ExactBound
}

// Objective is the variant hook: it decides what a leaf is worth and what
// no-legal-moves means. The standard game and losers chess provide the two
// implementations.
type Objective interface {
	// Evaluate returns the static score from the side to move's perspective.
	Evaluate(e *eval.Evaluator, pos *board.Position) board.Score
	// NoMoves returns the score when the side to move has no legal moves.
	NoMoves(pos *board.Position, inCheck bool, ply int) board.Score
	// Terminal reports variant-specific win conditions at node entry, such
	// as losers chess scoring a bared king as a win.
	Terminal(pos *board.Position, ply int) (board.Score, bool)
	// CapturesForced returns true iff capturing is compulsory, which makes
	// the move picker stop after the capture stage when captures exist.
	CapturesForced() bool
	// CaptureScore orders captures within the picker's capture stage.
	CaptureScore(pos *board.Position, m board.Move) board.Score
	// HashSalt separates this variant's transposition entries.
	HashSalt() board.ZobristHash
}

// Standard is the regular chess objective.
type Standard struct{}

func (Standard) Evaluate(e *eval.Evaluator, pos *board.Position) board.Score {
	return e.EvaluateSTM(pos)
}

func (Standard) NoMoves(pos *board.Position, inCheck bool, ply int) board.Score {
	if inCheck {
		return board.MatedIn(ply)
	}
	return 0 // stalemate
}

func (Standard) Terminal(pos *board.Position, ply int) (board.Score, bool) {
	return 0, false
}

func (Standard) CapturesForced() bool {
	return false
}

func (Standard) CaptureScore(pos *board.Position, m board.Move) board.Score {
	return mvvlva(m)
}

func (Standard) HashSalt() board.ZobristHash {
	return 0
}

// Config collects the feature toggles and shared tables for a search. The
// zero value of the toggles means enabled; they are exposed as UCI options.
type Config struct {
	TT        *TranspositionTable
	Eval      *eval.Evaluator
	Noise     eval.Random
	Objective Objective

	DisableNullMove          bool
	DisableNullVerify        bool
	DisableNullAdaptiveDepth bool
	DisableNullAdaptiveValue bool
	DisableAlphaPruning      bool
	DisableBetaPruning       bool
	DisableLMR               bool
	DisableFFP               bool
	DisableLMP               bool
	DisablePVExtensions      bool
}

func (c Config) objective() Objective {
	if c.Objective == nil {
		return Standard{}
	}
	return c.Objective
}

// DrawScore is the score returned for repetitions, stalemates and other
// drawn positions.
const DrawScore board.Score = 0
