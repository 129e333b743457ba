// livechess-uci is an adaptor for using a DGT EBoard via LiveChess as a UCI engine. The adaptor
// allows use of DGT EBoards in chess programs, such as CuteChess, by pretending to be an engine.
package main

import (
	"context"
	"flag"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/herohde/livechess-go/pkg/livechess"
	"github.com/kestrelchess/engine/pkg/board"
	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/kestrelchess/engine/pkg/engine"
	"github.com/kestrelchess/engine/pkg/engine/uci"
	"github.com/kestrelchess/engine/pkg/search"
	"github.com/kestrelchess/engine/pkg/search/searchctl"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"
)

var (
	serial = flag.String("serial", "auto", "Board selection by serial number (default: auto)")
	flip   = flag.Bool("flip", false, "Flip board")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	id := livechess.EBoardSerial(*serial)
	if id == "auto" {
		auto, err := livechess.AutoDetect(ctx, livechess.DefaultClient)
		if err != nil {
			logw.Exitf(ctx, "Watch failed to autodetect board: %v", err)
		}
		id = auto
	}

	client, events, err := livechess.NewFeed(ctx, id)
	if err != nil {
		logw.Exitf(ctx, "Feed for %v failed: %v", id, err)
	}
	if *flip {
		if err := client.Flip(ctx, true); err != nil {
			logw.Exitf(ctx, "Flip board %v failed: %v", id, err)
		}
	}
	if err := client.Setup(ctx, fen.Initial); err != nil {
		logw.Exitf(ctx, "Setup board %v failed: %v", id, err)
	}

	a := newAdaptor(ctx, client, events)

	e := engine.New(ctx, "livechess-uci", "kestrelchess", engine.WithLauncher(a))

	in := engine.ReadStdinLines(ctx)
	switch <-in {
	case uci.ProtocolName:
		driver, out := uci.NewDriver(ctx, e, in)
		go engine.WriteStdoutLines(ctx, out)

		<-driver.Closed()

	default:
		flag.Usage()
		logw.Exitf(ctx, "Protocol not supported")
	}
}

// adaptor sources "search results" from the physical board: the best move is
// whatever move the human plays on the device.
type adaptor struct {
	client livechess.FeedClient

	last  atomic.Pointer[livechess.EBoardEventResponse] // last with start and move list
	pulse *iox.Pulse
}

func newAdaptor(ctx context.Context, client livechess.FeedClient, events <-chan livechess.EBoardEventResponse) *adaptor {
	ret := &adaptor{
		client: client,
		pulse:  iox.NewPulse(),
	}
	go ret.process(ctx, events)
	return ret
}

func (a *adaptor) Launch(ctx context.Context, pos *board.Position, cfg search.Config, opt searchctl.Options) (searchctl.Handle, <-chan search.PV) {
	out := make(chan search.PV, 1)
	h := &handle{done: make(chan struct{})}
	go h.wait(ctx, a, pos, out)
	return h, out
}

type handle struct {
	done chan struct{}
	once sync.Once

	pv search.PV
	mu sync.Mutex
}

func (h *handle) wait(ctx context.Context, a *adaptor, pos *board.Position, out chan search.PV) {
	defer close(out)

	// (1) Generate possible next legal options, keyed by piece placement.

	candidates := map[string]board.Move{}
	for _, m := range pos.LegalMoves() {
		pos.Make(m)
		next := strings.Split(fen.Encode(pos), " ")[0]
		candidates[next] = m
		pos.Unmake()
	}
	if len(candidates) == 0 {
		return // checkmate or stalemate: nothing to wait for
	}

	// (2) Wait for the board to match one of them.

	for {
		if last := a.last.Load(); last != nil {
			if m, ok := candidates[last.Board]; ok {
				pv := search.PV{Depth: 1, Moves: []board.Move{m}}
				h.mu.Lock()
				h.pv = pv
				h.mu.Unlock()
				out <- pv
				return
			}
		}

		select {
		case <-a.pulse.Chan():
			// ok: try again
		case <-h.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *handle) Halt() search.PV {
	h.once.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pv
}

func (h *handle) PonderHit() {}

func (a *adaptor) process(ctx context.Context, events <-chan livechess.EBoardEventResponse) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}

			if len(event.San) > 0 {
				a.last.Store(&event)
				a.pulse.Emit()
			}

		case <-ctx.Done():
			return
		}
	}
}
