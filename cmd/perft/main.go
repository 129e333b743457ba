// perft is a movegen debugging tool. See: https://www.chessprogramming.org/Perft_Results.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/kestrelchess/engine/pkg/board/fen"
	"github.com/seekerror/logw"
)

var (
	depth    = flag.Int("depth", 4, "Search depth")
	position = flag.String("fen", "", "Start position (default to standard)")
	divide   = flag.Bool("divide", false, "Divide counts by initial move")
)

func main() {
	ctx := context.Background()
	flag.Parse()

	if *position == "" {
		*position = fen.Initial
	}

	pos, err := fen.Decode(*position)
	if err != nil {
		logw.Exitf(ctx, "Invalid fen '%v': %v", *position, err)
	}

	for i := 1; i <= *depth; i++ {
		start := time.Now()

		if *divide && i == *depth {
			var total uint64
			for _, m := range pos.LegalMoves() {
				pos.Make(m)
				count := pos.Perft(i - 1)
				pos.Unmake()

				println(fmt.Sprintf("%v: %v", m, count))
				total += count
			}
			println(fmt.Sprintf("perft,%v,%v,%v,%v", *position, i, total, time.Since(start).Microseconds()))
			continue
		}

		nodes := pos.Perft(i)
		println(fmt.Sprintf("perft,%v,%v,%v,%v", *position, i, nodes, time.Since(start).Microseconds()))
	}
}
