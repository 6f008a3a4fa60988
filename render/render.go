package render

import (
	"fmt"
	"io"

	"github.com/chessmark/chessmark/diff"
	"github.com/chessmark/chessmark/snapshot"
)

// Fields selects which metric columns appear in tables.
type Fields struct {
	Nodes     bool
	Time      bool
	NPS       bool
	Branching bool
	Score     bool
	BestMove  bool
}

// DefaultFields covers the metrics most runs care about.
func DefaultFields() Fields {
	return Fields{Nodes: true, Time: true, NPS: true, BestMove: true}
}

// AllFields enables every metric column.
func AllFields() Fields {
	return Fields{
		Nodes: true, Time: true, NPS: true,
		Branching: true, Score: true, BestMove: true,
	}
}

const idWidth = 40

// WriteResults prints one table row per benchmark result.
func WriteResults(w io.Writer, snap *snapshot.Snapshot, f Fields, pal Palette) {
	names := []string{"position"}
	widths := []int{idWidth}

	add := func(on bool, name string, width int) {
		if on {
			names = append(names, name)
			widths = append(widths, width)
		}
	}

	add(f.Nodes, "nodes", 12)
	add(f.Time, "time", 9)
	add(f.NPS, "nps", 10)
	add(f.Branching, "ebf", 6)
	add(f.Score, "score", 8)
	add(f.BestMove, "bestmove", 8)

	fmt.Fprintf(w, "engine: %s\n", snap.Engine)

	t := NewTable(w, names, widths)
	t.Header()

	for _, r := range snap.Positions {
		cells := []string{pal.Blue(trim(r.ID, idWidth))}

		if r.Status != snapshot.StatusOk {
			cells = append(cells, pal.Red(string(r.Status)))
			t.Row(cells)

			continue
		}

		app := func(on bool, s string) {
			if on {
				cells = append(cells, s)
			}
		}

		app(f.Nodes, fmt.Sprintf("%d", r.Nodes))
		app(f.Time, fmt.Sprintf("%dms", r.ElapsedMs))
		app(f.NPS, fmt.Sprintf("%d", r.NPS))
		app(f.Branching, fmt.Sprintf("%.2f", r.BranchingFactor()))
		app(f.Score, r.Score.String())
		app(f.BestMove, r.BestMove)

		t.Row(cells)
	}

	t.Footer()

	fmt.Fprintf(w, "total: %d nodes in %dms (%d nps)\n",
		snap.Totals.Nodes, snap.Totals.ElapsedMs, snap.Totals.NPS)
}

// WriteReport prints the per-position diff table, the set differences, and
// the verdict line.
func WriteReport(w io.Writer, rep *diff.Report, f Fields, pal Palette) {
	names := []string{"position"}
	widths := []int{idWidth}

	add := func(on bool, name string, width int) {
		if on {
			names = append(names, name)
			widths = append(widths, width)
		}
	}

	add(f.Nodes, "nodes", 26)
	add(f.Time, "time", 22)
	add(f.NPS, "nps", 24)
	add(f.BestMove, "bestmove", 14)

	fmt.Fprintf(w, "baseline: %s  candidate: %s\n",
		rep.BaselineEngine, rep.CandidateEngine)

	t := NewTable(w, names, widths)
	t.Header()

	for _, p := range rep.Positions {
		cells := []string{pal.Blue(trim(p.ID, idWidth))}

		app := func(on bool, s string) {
			if on {
				cells = append(cells, s)
			}
		}

		app(f.Nodes, deltaCell(p.Nodes, pal))
		app(f.Time, deltaCell(p.Elapsed, pal))
		app(f.NPS, deltaCell(p.NPS, pal))
		app(f.BestMove, moveCell(p, pal))

		t.Row(cells)
	}

	t.Footer()

	for _, s := range rep.Skipped {
		fmt.Fprintln(w, pal.Dim(fmt.Sprintf(
			"skipped %s (baseline %s, candidate %s)",
			s.ID, s.BaselineStatus, s.CandidateStatus,
		)))
	}

	for _, id := range rep.Removed {
		fmt.Fprintln(w, pal.Dim("removed "+id))
	}

	for _, id := range rep.Added {
		fmt.Fprintln(w, pal.Dim("added "+id))
	}

	fmt.Fprintf(w, "aggregate: nodes %s, time %s, nps %s\n",
		pctLabel(rep.AggregateNodes, pal),
		pctLabel(rep.AggregateElapsed, pal),
		pctLabel(rep.AggregateNPS, pal),
	)

	if rep.Failed() {
		fmt.Fprintln(w, pal.Red(fmt.Sprintf(
			"FAIL: %d regressed, %d functional differences",
			rep.Regressions(), rep.FunctionalDiffs(),
		)))
	} else {
		fmt.Fprintln(w, pal.Green("PASS"))
	}
}

// deltaCell renders "baseline candidate (pct)" with the candidate and
// percentage colored by classification.
func deltaCell(d diff.Delta, pal Palette) string {
	cell := fmt.Sprintf("%.0f %.0f (%s)", d.Baseline, d.Candidate, pct(d))

	switch d.Class {
	case diff.Regressed:
		return pal.Red(cell)
	case diff.Improved:
		return pal.Green(cell)
	default:
		return cell
	}
}

func pctLabel(d diff.Delta, pal Palette) string {
	switch d.Class {
	case diff.Regressed:
		return pal.Red(pct(d))
	case diff.Improved:
		return pal.Green(pct(d))
	default:
		return pct(d)
	}
}

func pct(d diff.Delta) string {
	if !d.PctDefined {
		return "inf%"
	}

	return fmt.Sprintf("%+.2f%%", d.Pct*100)
}

func moveCell(p diff.PositionDiff, pal Palette) string {
	if !p.Functional {
		return p.BestMoveCand
	}

	if p.BestMoveBase != p.BestMoveCand {
		return pal.Red(p.BestMoveBase + "→" + p.BestMoveCand)
	}

	return pal.Red(p.ScoreBase.String() + "→" + p.ScoreCand.String())
}

func trim(s string, width int) string {
	if len(s) <= width {
		return s
	}

	return s[:width-1] + "…"
}
