// Mockengine speaks just enough UCI to exercise chessmark end to end
// without a real chess engine: it answers the handshake, accepts position
// setup, and fabricates deterministic search output. Flags simulate slow
// and broken engines for testing the timeout and respawn paths.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		name   = flag.String("name", "mockengine 1.0", "engine identifier")
		delay  = flag.Duration("delay", 0, "pause before answering go")
		mute   = flag.Bool("mute", false, "never emit bestmove (forces timeouts)")
		nodes  = flag.Uint64("nodes", 100000, "node count reported at full depth")
		depth  = flag.Int("max-depth", 12, "deepest iteration to report")
		crash  = flag.Bool("crash-on-go", false, "exit abruptly on the first go")
		noise  = flag.Bool("noise", false, "emit vendor-extension lines around searches")
		search = 0
	)
	flag.Parse()

	out := bufio.NewWriter(os.Stdout)
	sc := bufio.NewScanner(os.Stdin)

	emit := func(format string, args ...any) {
		fmt.Fprintf(out, format+"\n", args...)
		out.Flush()
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		switch {
		case line == "uci":
			emit("id name %s", *name)
			emit("id author chessmark")
			emit("option name Hash type spin default 16 min 1 max 4096")
			emit("uciok")

		case line == "isready":
			emit("readyok")

		case line == "ucinewgame", strings.HasPrefix(line, "position "):
			// State is fabricated; nothing to track.

		case strings.HasPrefix(line, "go"):
			search++

			if *crash {
				os.Exit(3)
			}

			time.Sleep(*delay)

			if *mute {
				continue
			}

			if *noise {
				emit("info string mock search %d", search)
			}

			reported := *nodes
			for d := 1; d <= *depth; d++ {
				// Shrink shallower node counts so deltas look plausible.
				n := reported >> uint(*depth-d)
				emit("info depth %d score cp %d nodes %d nps %d time %d pv e2e4",
					d, 20+d, n, n*50, d*2)
			}
			emit("bestmove e2e4 ponder e7e5")

		case line == "stop":
			emit("bestmove e2e4")

		case line == "quit":
			return
		}
	}
}
