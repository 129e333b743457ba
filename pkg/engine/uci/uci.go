// Package uci contains a driver for using the engine under the UCI protocol.
//
// See: http://wbec-ridderkerk.nl/html/UCIProtocol.html
// See: https://en.wikipedia.org/wiki/Universal_Chess_Interface
package uci

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/kestrelchess/engine/pkg/engine"
	"github.com/kestrelchess/engine/pkg/search"
	"github.com/kestrelchess/engine/pkg/search/searchctl"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
	"go.uber.org/atomic"
)

const ProtocolName = "uci"

// Option is an UCI driver option.
type Option func(*options)

type options struct {
	useBook bool
	book    engine.Book
}

// UseBook instructs the driver to use the given opening book.
func UseBook(book engine.Book) Option {
	return func(opt *options) {
		opt.useBook = true
		opt.book = book
	}
}

// Driver implements a UCI driver for an engine. It is activated if sent "uci".
type Driver struct {
	e   *engine.Engine
	opt options

	out chan<- string

	active       atomic.Bool    // user is waiting for engine to move
	ponder       chan search.PV // chan for intermediate search information
	lastPosition string         // last position line (empty if no last position)
	outOfBook    bool

	quit   chan struct{}
	closed atomic.Bool
}

func NewDriver(ctx context.Context, e *engine.Engine, in <-chan string, opts ...Option) (*Driver, <-chan string) {
	var opt options
	for _, fn := range opts {
		fn(&opt)
	}

	out := make(chan string, 100)
	d := &Driver{
		e:      e,
		opt:    opt,
		out:    out,
		ponder: make(chan search.PV, 400),
		quit:   make(chan struct{}),
	}
	go d.process(ctx, in)

	return d, out
}

func (d *Driver) Close() {
	if d.closed.CAS(false, true) {
		close(d.quit)
	}
}

func (d *Driver) Closed() <-chan struct{} {
	return d.quit
}

func (d *Driver) process(ctx context.Context, in <-chan string) {
	defer d.Close()
	defer close(d.out)

	// * uci
	//
	//	tell engine to use the uci (universal chess interface). After
	//	receiving the uci command the engine must identify itself with the
	//	"id" command and send the "option" commands to tell the GUI which
	//	engine settings the engine supports. After that the engine should
	//	send "uciok" to acknowledge the uci mode.

	logw.Infof(ctx, "UCI protocol initialized")

	d.out <- fmt.Sprintf("id name %v", d.e.Name())
	d.out <- fmt.Sprintf("id author %v", d.e.Author())

	// * option
	//
	//	Tells the GUI which parameters can be changed in the engine. The
	//	GUI should parse these and build a dialog for the user to change
	//	the settings. "Hash" should be supported by all engines; options
	//	with the "UCI_" prefix get special treatment.

	opts := d.e.Options()
	d.out <- fmt.Sprintf("option name Hash type spin default %v min 0 max 1024", opts.Hash)
	d.out <- "option name Ponder type check default false"
	if d.opt.book != nil {
		d.out <- fmt.Sprintf("option name OwnBook type check default %v", d.opt.useBook)
	}
	d.out <- "option name UCI_AnalyseMode type check default false"
	d.out <- "option name UCI_Opponent type string default <empty>"
	d.out <- "option name UCI_Chess960 type check default false"
	d.out <- fmt.Sprintf("option name Wild type combo default %v var standard var losers", opts.Wild)
	for _, name := range []string{"NullMove", "NullVerify", "NullAdaptiveDepth", "NullAdaptiveValue",
		"BetaPruning", "AlphaPruning", "LMR", "FutilityPruning", "LateMovePruning", "PVExtensions"} {
		d.out <- fmt.Sprintf("option name %v type check default true", name)
	}
	d.out <- fmt.Sprintf("option name KingAttackShelter type spin default %v min 0 max 512", opts.KingAttackShelter)
	d.out <- fmt.Sprintf("option name KingAttackPieces type spin default %v min 0 max 512", opts.KingAttackPieces)

	// * uciok
	//
	//	Must be sent after the id and optional options to tell the GUI that
	//	the engine has sent all infos and is ready in uci mode.

	d.out <- "uciok"

	for {
		select {
		case line, ok := <-in:
			if !ok {
				logw.Infof(ctx, "Input stream broken. Exiting")
				return
			}

			parts := strings.Split(strings.TrimSpace(line), " ")
			if len(parts) == 0 {
				break
			}

			cmd := parts[0]
			args := parts[1:]

			switch strings.ToLower(cmd) {
			case "isready":
				// * isready
				//
				//	Used to synchronize the engine with the GUI. Must always
				//	be answered with "readyok", even while searching.

				d.out <- "readyok"

			case "debug":
				// * debug [ on | off ]
				//
				//	In debug mode the engine should send additional infos,
				//	e.g. with the "info string" command. Logging covers this.

			case "setoption":
				// * setoption name <id> [value <x>]
				//
				//	Sent to change internal parameters while the engine is
				//	waiting. One string per parameter.

				d.setOption(ctx, args)

			case "register":
				// * register
				//
				//	Engine registration. Unused.

			case "ucinewgame":
				// * ucinewgame
				//
				//	The next search will be from a different game: reset all
				//	tables and game state.

				d.ensureInactive(ctx)
				d.lastPosition = ""
				d.outOfBook = false
				if err := d.e.Reset(ctx, fen.Initial); err != nil {
					logw.Errorf(ctx, "Reset failed: %v", err)
				}

			case "position":
				// * position [fen <fenstring> | startpos ]  moves <move1> .... <movei>
				//
				//	Set up the position described in fenstring on the internal
				//	board and play the moves on the internal chess board.

				d.ensureInactive(ctx)

				if d.lastPosition != "" && strings.HasPrefix(line, d.lastPosition) {
					// Continuation of game.

					moves := strings.TrimSpace(strings.TrimPrefix(line, d.lastPosition))
					if d.applyMoves(ctx, strings.Split(moves, " ")) {
						d.lastPosition = line
					}
					break
				}

				// New position.

				position := fen.Initial
				if len(args) >= 7 && args[0] == "fen" {
					position = strings.Join(args[1:7], " ")
				}

				if err := d.e.Reset(ctx, position); err != nil {
					d.out <- fmt.Sprintf("info string invalid position: %v", err)
					logw.Errorf(ctx, "Invalid position: %v", line)
					break
				}

				move := false
				var list []string
				for _, arg := range args {
					if arg == "moves" {
						move = true
						continue
					}
					if move {
						list = append(list, arg)
					}
				}
				if d.applyMoves(ctx, list) {
					d.lastPosition = line
				}

			case "go":
				// * go [depth N | nodes N | movetime ms | wtime ms btime ms
				//      winc ms binc ms movestogo N | infinite | ponder]
				//
				//	Start calculating on the current position. All search
				//	parameters arrive in the same string.

				d.ensureInactive(ctx)
				d.go_(ctx, line, args)

			case "stop":
				// * stop
				//
				//	Stop calculating as soon as possible. Don't forget the
				//	"bestmove" token when finishing the search.

				if pv, err := d.e.Halt(ctx); err == nil {
					d.searchCompleted(ctx, pv)
				}

			case "ponderhit":
				// * ponderhit
				//
				//	The user has played the expected move. Continue searching
				//	but switch from pondering to normal time budgeting.

				d.e.PonderHit(ctx)

			case "quit":
				// * quit
				//
				//	Quit the program as soon as possible.

				return

			default:
				logw.Warningf(ctx, "Unknown command '%v': %v", cmd, args)
			}

		case pv := <-d.ponder:
			if d.active.Load() {
				d.out <- printPV(pv)
			}

		case <-d.quit:
			d.ensureInactive(ctx)

			logw.Infof(ctx, "Driver closed")
			return
		}
	}
}

// applyMoves plays a move list onto the current position. Malformed moves
// are reported as info strings; the position stays at the last valid move.
func (d *Driver) applyMoves(ctx context.Context, moves []string) bool {
	for _, arg := range moves {
		if arg == "" || arg == "moves" {
			continue
		}
		if err := d.e.Move(ctx, arg); err != nil {
			d.out <- fmt.Sprintf("info string invalid move '%v': %v", arg, err)
			logw.Errorf(ctx, "Invalid position move '%v': %v", arg, err)
			return false
		}
	}
	return true
}

// setOption parses "name <id> [value <x>]" where both id and value may
// contain spaces, and applies the option.
func (d *Driver) setOption(ctx context.Context, args []string) {
	var name, value string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if *target != "" {
				*target += " "
			}
			*target += arg
		}
	}

	opts := d.e.Options()
	applyBool := func(dst *bool) {
		if v, err := strconv.ParseBool(value); err == nil {
			*dst = v
		}
	}
	applySpin := func(dst *int, min, max int) {
		if v, err := strconv.Atoi(value); err == nil && v >= min && v <= max {
			*dst = v
		}
	}

	switch name {
	case "Hash":
		if v, err := strconv.Atoi(value); err == nil && v >= 0 {
			opts.Hash = uint(v)
		}
	case "Ponder":
		// Time management hint only; the search is started in ponder mode
		// by "go ponder".
	case "OwnBook":
		d.opt.useBook, _ = strconv.ParseBool(value)
		return
	case "UCI_AnalyseMode", "UCI_Opponent", "UCI_Chess960":
		// Informational.
		return
	case "Wild":
		switch engine.Variant(value) {
		case engine.Standard, engine.Losers:
			opts.Wild = engine.Variant(value)
		default:
			d.out <- fmt.Sprintf("info string unknown variant '%v'", value)
			return
		}
	case "KingAttackShelter":
		applySpin(&opts.KingAttackShelter, 0, 512)
	case "KingAttackPieces":
		applySpin(&opts.KingAttackPieces, 0, 512)
	case "NullMove":
		applyBool(&opts.NullMove)
	case "NullVerify":
		applyBool(&opts.NullVerify)
	case "NullAdaptiveDepth":
		applyBool(&opts.NullAdaptiveDepth)
	case "NullAdaptiveValue":
		applyBool(&opts.NullAdaptiveValue)
	case "BetaPruning":
		applyBool(&opts.BetaPruning)
	case "AlphaPruning":
		applyBool(&opts.AlphaPruning)
	case "LMR":
		applyBool(&opts.LMR)
	case "FutilityPruning":
		applyBool(&opts.FutilityPruning)
	case "LateMovePruning":
		applyBool(&opts.LateMovePruning)
	case "PVExtensions":
		applyBool(&opts.PVExtensions)
	default:
		d.out <- fmt.Sprintf("info string unknown option '%v'", name)
		logw.Warningf(ctx, "Unknown option '%v'", name)
		return
	}

	d.e.SetOptions(ctx, opts)
}

// go_ parses the go arguments and starts the search or plays a book move.
func (d *Driver) go_(ctx context.Context, line string, args []string) {
	var opt searchctl.Options
	var tc searchctl.TimeControl
	timed := false

	for i := 0; i < len(args); i++ {
		cmd := args[i]
		switch cmd {
		case "wtime", "btime", "winc", "binc", "movestogo", "depth", "nodes", "movetime", "mate":
			// Next argument is an int.

			i++
			if i == len(args) {
				logw.Errorf(ctx, "No argument for %v: %v", cmd, line)
				return
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				logw.Errorf(ctx, "Invalid argument for %v: %v", line, err)
				return
			}

			switch cmd {
			case "depth", "mate":
				opt.DepthLimit = lang.Some(uint(n))
			case "nodes":
				opt.NodesLimit = lang.Some(uint64(n))
			case "movetime":
				opt.MoveTime = lang.Some(int64(n))
			case "wtime":
				tc.White = time.Millisecond * time.Duration(n)
				timed = true
			case "btime":
				tc.Black = time.Millisecond * time.Duration(n)
				timed = true
			case "winc":
				tc.WhiteInc = time.Millisecond * time.Duration(n)
			case "binc":
				tc.BlackInc = time.Millisecond * time.Duration(n)
			case "movestogo":
				tc.MovesToGo = n
			}

		case "infinite":
			opt.Infinite = true

		case "ponder":
			opt.Ponder = true

		default:
			// Silently ignore anything not handled, notably searchmoves.
		}
	}
	if timed {
		opt.TimeControl = lang.Some(tc)
	}

	if d.opt.useBook && d.opt.book != nil && !d.outOfBook && !opt.Infinite {
		// Use opening book if possible.

		moves, err := d.opt.book.Find(ctx, d.e.Position())
		if err != nil {
			logw.Errorf(ctx, "Failed to find book move for %v: %v", d.e.Position(), err)
		} else if len(moves) > 0 {
			pv := search.PV{Depth: 1, Moves: moves[:1]}

			d.active.Store(true)
			d.searchCompleted(ctx, pv)
			return
		} else {
			d.outOfBook = true // stop consulting the book this game
		}
	}

	out, err := d.e.Analyze(ctx, opt)
	if err != nil {
		logw.Errorf(ctx, "Analyze failed: %v", err)
		return
	}
	d.active.Store(true)

	// Forward search info. Complete the search when it ends, unless running
	// in infinite mode where only "stop" may produce the bestmove.

	infinite := opt.Infinite
	go func() {
		var last search.PV
		for pv := range out {
			last = pv
			d.ponder <- pv
		}
		if !infinite {
			d.searchCompleted(ctx, last)
		}
	}()
}

func (d *Driver) ensureInactive(ctx context.Context) {
	d.active.Store(false)
	_, _ = d.e.Halt(ctx)
}

func (d *Driver) searchCompleted(ctx context.Context, pv search.PV) {
	if d.active.CAS(true, false) {
		if len(pv.Moves) > 0 {
			// * bestmove <move1> [ ponder <move2> ]
			//
			//	The engine has stopped searching and found this move best.
			//	Directly before, a final "info" command is sent so the GUI
			//	has complete statistics about the last search.

			d.out <- printPV(pv)
			if len(pv.Moves) > 1 {
				d.out <- fmt.Sprintf("bestmove %v ponder %v", printMove(pv.Moves[0]), printMove(pv.Moves[1]))
			} else {
				d.out <- fmt.Sprintf("bestmove %v", printMove(pv.Moves[0]))
			}
		} else {
			// No PV. Position is checkmate or stalemate. Send NullMove.

			d.out <- "bestmove 0000"
		}
	} // else: stale or duplicate result
}

func printPV(pv search.PV) string {
	// "info depth 2 seldepth 3 score cp 214 time 1242 nodes 2124 nps 34928 pv e2e4 e7e5 g1f3"

	parts := []string{"info"}
	parts = append(parts, fmt.Sprintf("depth %v", pv.Depth))
	if pv.SelDepth > 0 {
		parts = append(parts, fmt.Sprintf("seldepth %v", pv.SelDepth))
	}
	if md, ok := pv.Score.MateDistance(); ok {
		parts = append(parts, fmt.Sprintf("score mate %v", md))
	} else {
		parts = append(parts, fmt.Sprintf("score cp %v", int(pv.Score)))
	}
	switch pv.Bound {
	case search.LowerBound:
		parts = append(parts, "lowerbound")
	case search.UpperBound:
		parts = append(parts, "upperbound")
	}
	if pv.Nodes > 0 {
		parts = append(parts, fmt.Sprintf("nodes %v", pv.Nodes))
	}
	if pv.Time > 0 {
		parts = append(parts, fmt.Sprintf("time %v", pv.Time.Milliseconds()))
	}
	if pv.Nodes > 0 && pv.Time > 0 {
		parts = append(parts, fmt.Sprintf("nps %v", uint64(time.Second)*pv.Nodes/uint64(pv.Time)))
	}
	if pv.Hash > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %v", int(pv.Hash*1000)))
	}
	if len(pv.Moves) > 0 {
		parts = append(parts, "pv")
		parts = append(parts, board.FormatMoves(pv.Moves, printMove))
	}

	return strings.Join(parts, " ")
}

func printMove(m board.Move) string {
	if m.Promotion.IsValid() {
		return fmt.Sprintf("%v%v%v", m.From, m.To, m.Promotion)
	}
	return fmt.Sprintf("%v%v", m.From, m.To)
}
