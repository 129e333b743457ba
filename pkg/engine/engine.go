package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/kestrelchess/engine/pkg/eval"
	"github.com/kestrelchess/engine/pkg/search"
	"github.com/kestrelchess/engine/pkg/search/searchctl"
	"github.com/kestrelchess/engine/pkg/variant"
	"github.com/seekerror/build"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
)

var version = build.NewVersion(1, 2, 0)

// Variant selects the game rules the search plays by.
type Variant string

const (
	Standard Variant = "standard"
	Losers   Variant = "losers"
)

// maxHashMB bounds the transposition table size.
const maxHashMB = 1024

// Options are engine runtime options, applied between searches.
type Options struct {
	// Depth is the search depth limit. If zero, there is no limit.
	// Overridden by search options if provided.
	Depth uint
	// Hash is the transposition table size in MB.
	Hash uint
	// Noise adds some centipawn randomness to the leaf evaluations.
	Noise uint
	// Wild selects the variant.
	Wild Variant

	// KingAttackShelter and KingAttackPieces scale the two king attack
	// evaluation terms in 256ths.
	KingAttackShelter int
	KingAttackPieces  int

	// Search feature toggles, enabled unless switched off.
	NullMove          bool
	NullVerify        bool
	NullAdaptiveDepth bool
	NullAdaptiveValue bool
	BetaPruning       bool
	AlphaPruning      bool
	LMR               bool
	FutilityPruning   bool
	LateMovePruning   bool
	PVExtensions      bool
}

// DefaultOptions enables every search feature at neutral scaling.
func DefaultOptions() Options {
	return Options{
		Hash:              128,
		Wild:              Standard,
		KingAttackShelter: 256,
		KingAttackPieces:  256,
		NullMove:          true,
		NullVerify:        true,
		NullAdaptiveDepth: true,
		NullAdaptiveValue: true,
		BetaPruning:       true,
		AlphaPruning:      true,
		LMR:               true,
		FutilityPruning:   true,
		LateMovePruning:   true,
		PVExtensions:      true,
	}
}

func (o Options) String() string {
	return fmt.Sprintf("{depth=%v, hash=%v, noise=%v, wild=%v}", o.Depth, o.Hash, o.Noise, o.Wild)
}

// Engine encapsulates game-playing logic, search and evaluation. The tables
// are process-wide: allocated once, cleared on new game, resized on option
// change while no search runs.
type Engine struct {
	name, author string

	launcher searchctl.Launcher
	seed     int64
	opts     Options

	pos       *board.Position
	tt        *search.TranspositionTable
	evaluator *eval.Evaluator
	noise     eval.Random
	active    searchctl.Handle
	mu        sync.Mutex
}

// Option is an engine creation option.
type Option func(*Engine)

// WithOptions sets default runtime options.
func WithOptions(opts Options) Option {
	return func(e *Engine) {
		e.opts = opts
	}
}

// WithSeed configures the noise random seed instead of the default of zero.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.seed = seed
	}
}

// WithLauncher overrides the search launcher, e.g. to source "search
// results" from an external device instead of the built-in search.
func WithLauncher(l searchctl.Launcher) Option {
	return func(e *Engine) {
		e.launcher = l
	}
}

func New(ctx context.Context, name, author string, opts ...Option) *Engine {
	e := &Engine{
		name:     name,
		author:   author,
		launcher: &searchctl.Iterative{},
		opts:     DefaultOptions(),
	}
	for _, fn := range opts {
		fn(e)
	}

	e.tt = search.NewTranspositionTable(ctx, uint64(e.opts.Hash))
	e.evaluator = eval.NewEvaluator()

	_ = e.Reset(ctx, fen.Initial)

	logw.Infof(ctx, "Initialized engine: %v, options=%v", e.Name(), e.opts)
	return e
}

// Name returns the engine name and version.
func (e *Engine) Name() string {
	return fmt.Sprintf("%v %v", e.name, version)
}

// Author returns the author.
func (e *Engine) Author() string {
	return e.author
}

func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.opts
}

// SetOptions applies runtime options. Table resizing happens here, so the
// driver must only call it when no search is running.
func (e *Engine) SetOptions(ctx context.Context, opts Options) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, _ = e.haltSearchIfActive(ctx)

	if opts.Hash > maxHashMB {
		logw.Infof(ctx, "Hash size %vMB exceeds limit, clamping to %vMB", opts.Hash, maxHashMB)
		opts.Hash = maxHashMB
	}
	if opts.Hash != e.opts.Hash {
		e.tt = search.NewTranspositionTable(ctx, uint64(opts.Hash))
	}
	e.opts = opts
}

// Position returns the current position in FEN format.
func (e *Engine) Position() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return fen.Encode(e.pos)
}

// Fork returns an independent copy of the current position.
func (e *Engine) Fork() *board.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pos.Fork()
}

// Reset resets the engine to a new starting position in FEN format. Tables
// are cleared: this starts a new game.
func (e *Engine) Reset(ctx context.Context, position string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	logw.Infof(ctx, "Reset %v, depth=%v, TT=%vMB, noise=%vcp", position, e.opts.Depth, e.opts.Hash, e.opts.Noise)

	_, _ = e.haltSearchIfActive(ctx)

	pos, err := fen.Decode(position)
	if err != nil {
		return err
	}
	e.pos = pos

	e.tt.Clear()
	e.evaluator.Clear()
	e.noise = eval.Random{}
	if e.opts.Noise > 0 {
		e.noise = eval.NewRandom(int(e.opts.Noise), e.seed)
	}

	logw.Infof(ctx, "New position: %v", e.pos)
	return nil
}

// Move plays the given move, usually an opponent move.
func (e *Engine) Move(ctx context.Context, move string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	candidate, err := board.ParseMove(move)
	if err != nil {
		return fmt.Errorf("invalid move: %w", err)
	}

	_, _ = e.haltSearchIfActive(ctx)

	m, ok := e.pos.Find(candidate)
	if !ok {
		return fmt.Errorf("illegal move: %v", candidate)
	}

	e.pos.Make(m)
	e.tt.BumpAge()

	logw.Infof(ctx, "Move %v: %v", m, e.pos)
	return nil
}

// TakeBack undoes the latest move.
func (e *Engine) TakeBack(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, _ = e.haltSearchIfActive(ctx)

	m, ok := e.pos.LastMove()
	if !ok {
		return fmt.Errorf("no move to take back")
	}
	e.pos.Unmake()

	logw.Infof(ctx, "Takeback %v", m)
	return nil
}

// Analyze analyzes the current position.
func (e *Engine) Analyze(ctx context.Context, opt searchctl.Options) (<-chan search.PV, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := opt.DepthLimit.V(); !ok && e.opts.Depth > 0 {
		opt.DepthLimit = lang.Some(e.opts.Depth)
	}

	logw.Infof(ctx, "Analyze %v, opt=%v", e.pos, opt)

	if e.active != nil {
		return nil, fmt.Errorf("search already active")
	}

	handle, out := e.launcher.Launch(ctx, e.pos.Fork(), e.searchConfig(), opt)
	e.active = handle
	return out, nil
}

// searchConfig assembles the search configuration from the engine options.
func (e *Engine) searchConfig() search.Config {
	e.evaluator.ShelterScale = e.opts.KingAttackShelter
	e.evaluator.PieceScale = e.opts.KingAttackPieces

	cfg := search.Config{
		TT:    e.tt,
		Eval:  e.evaluator,
		Noise: e.noise,

		DisableNullMove:          !e.opts.NullMove,
		DisableNullVerify:        !e.opts.NullVerify,
		DisableNullAdaptiveDepth: !e.opts.NullAdaptiveDepth,
		DisableNullAdaptiveValue: !e.opts.NullAdaptiveValue,
		DisableAlphaPruning:      !e.opts.AlphaPruning,
		DisableBetaPruning:       !e.opts.BetaPruning,
		DisableLMR:               !e.opts.LMR,
		DisableFFP:               !e.opts.FutilityPruning,
		DisableLMP:               !e.opts.LateMovePruning,
		DisablePVExtensions:      !e.opts.PVExtensions,
	}
	if e.opts.Wild == Losers {
		cfg.Objective = variant.Losers{}
	}
	return cfg
}

// PonderHit switches an active pondering search to normal time budgeting.
func (e *Engine) PonderHit(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		logw.Infof(ctx, "Ponderhit")
		e.active.PonderHit()
	}
}

// Halt halts the active search and returns the principal variation, if any.
func (e *Engine) Halt(ctx context.Context) (search.PV, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pv, ok := e.haltSearchIfActive(ctx)
	if !ok {
		return search.PV{}, fmt.Errorf("no active search")
	}
	return pv, nil
}

func (e *Engine) haltSearchIfActive(ctx context.Context) (search.PV, bool) {
	if e.active != nil {
		pv := e.active.Halt()
		logw.Infof(ctx, "Search %v halted: %v", e.pos, pv)

		e.active = nil
		return pv, true
	}
	return search.PV{}, false
}
