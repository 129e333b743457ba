package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kestrelchess/engine/pkg/book"
	"github.com/kestrelchess/engine/pkg/engine"
	"github.com/kestrelchess/engine/pkg/engine/console"
	"github.com/kestrelchess/engine/pkg/engine/uci"
	"github.com/seekerror/logw"
)

var (
	hash     = flag.Uint("hash", 128, "Transposition table size in MB")
	noise    = flag.Int("noise", 0, "Evaluation noise in centipawns (zero if deterministic)")
	bookFile = flag.String("book", "book.bin", "Polyglot opening book (silently disabled if missing)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: karras [options]

KARRAS is a UCI chess engine.
Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	opts := engine.DefaultOptions()
	opts.Hash = *hash
	opts.Noise = uint(*noise)

	e := engine.New(ctx, "karras", "kestrelchess",
		engine.WithOptions(opts),
		engine.WithSeed(time.Now().UnixNano()),
	)

	var uciOpts []uci.Option
	if b, err := book.Open(ctx, *bookFile); err != nil {
		logw.Infof(ctx, "No opening book: %v", err)
	} else {
		defer b.Close()
		uciOpts = append(uciOpts, uci.UseBook(engine.NewPolyglotBook(b, time.Now().UnixNano())))
	}

	in := engine.ReadStdinLines(ctx)
	switch <-in {
	case uci.ProtocolName:
		// Use UCI protocol.

		driver, out := uci.NewDriver(ctx, e, in, uciOpts...)
		go engine.WriteStdoutLines(ctx, out)

		<-driver.Closed()

	case console.ProtocolName:
		driver, out := console.NewDriver(ctx, e, in)
		go engine.WriteStdoutLines(ctx, out)

		<-driver.Closed()

	default:
		flag.Usage()
		logw.Exitf(ctx, "Protocol not supported")
	}
}
