// Package suite supplies the ordered position set a benchmark run iterates.
package suite

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chessmark/chessmark/snapshot"
	"github.com/corentings/chess"
)

// Position is one benchmark entry: a FEN plus a stable identifier used to
// key results across snapshots. Immutable once created.
type Position struct {
	ID  string
	FEN string
}

// Default returns the built-in benchmark suite: a fixed set of well-known
// positions spanning opening, middlegame, and endgame search
// characteristics. Order is significant and must stay stable across
// releases, since snapshot diffs follow it.
func Default() []Position {
	return []Position{
		{
			ID:  "startpos",
			FEN: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		},
		{
			ID:  "kiwipete",
			FEN: "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		},
		{
			ID:  "rook-endgame",
			FEN: "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		},
		{
			ID:  "promotion-race",
			FEN: "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		},
		{
			ID:  "tactical-middlegame",
			FEN: "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
		},
		{
			ID:  "quiet-middlegame",
			FEN: "r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
		},
		{
			ID:  "fortress",
			FEN: "8/k7/3p4/p2P1p2/P2P1P2/8/8/K7 w - - 0 1",
		},
		{
			ID:  "bk-mating-attack",
			FEN: "1k1r4/pp1b1R2/3q2pp/4p3/2B5/4Q3/PPP2B2/2K5 b - - 0 1",
		},
	}
}

// Load reads a suite from r: one FEN per line, blank lines and lines
// starting with '#' skipped. Each FEN is validated and the FEN itself
// becomes the position id, so the same file always produces the same ids.
func Load(r io.Reader) ([]Position, error) {
	var positions []Position

	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	lineNo := 0

	for sc.Scan() {
		lineNo++

		fen := strings.TrimSpace(sc.Text())
		if fen == "" || strings.HasPrefix(fen, "#") {
			continue
		}

		if _, err := chess.FEN(fen); err != nil {
			return nil, fmt.Errorf("line %d: invalid FEN %q: %w", lineNo, fen, err)
		}

		if _, dup := seen[fen]; dup {
			return nil, fmt.Errorf("line %d: duplicate position %q", lineNo, fen)
		}
		seen[fen] = struct{}{}

		positions = append(positions, Position{ID: fen, FEN: fen})
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}

	return positions, nil
}

// LoadFile reads a suite from the file at path.
func LoadFile(path string) ([]Position, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open suite %s: %w", path, err)
	}
	defer f.Close()

	positions, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}

	return positions, nil
}

// FromSnapshot rebuilds the position list recorded in a snapshot, in
// snapshot order, so a run can be replayed against the exact baseline
// suite.
func FromSnapshot(results []snapshot.Result) []Position {
	positions := make([]Position, 0, len(results))
	for _, r := range results {
		positions = append(positions, Position{ID: r.ID, FEN: r.FEN})
	}

	return positions
}
