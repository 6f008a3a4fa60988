// Package diff compares two benchmark snapshots and classifies per-position
// metric changes.
package diff

import (
	"math"

	"github.com/chessmark/chessmark/snapshot"
)

// Class labels the direction of a metric change relative to baseline.
type Class string

const (
	Unchanged Class = "unchanged"
	Improved  Class = "improved"
	Regressed Class = "regressed"
)

// Thresholds sets the per-metric relative change beyond which a change in
// the worse direction counts as a regression. Values are fractions: 0.10
// means 10%.
type Thresholds struct {
	Nodes   float64
	NPS     float64
	Elapsed float64

	// ScoreTolerance is the centipawn delta treated as measurement noise
	// rather than a functional difference.
	ScoreTolerance int
}

// DefaultThresholds tolerates 10% drift on performance metrics and no
// score drift at all: a deterministic engine should evaluate identically.
func DefaultThresholds() Thresholds {
	return Thresholds{Nodes: 0.10, NPS: 0.10, Elapsed: 0.10}
}

// Delta is one metric compared across baseline and candidate.
type Delta struct {
	Metric    string
	Baseline  float64
	Candidate float64
	Diff      float64

	// Pct is Diff/Baseline. When the baseline is zero and the candidate
	// is not, the relative change has no defined value; PctDefined is
	// false and the change is classified by direction alone.
	Pct        float64
	PctDefined bool

	Class Class
}

// newDelta computes and classifies one metric. higherIsWorse encodes the
// regression direction: node counts and elapsed time regress upward, nps
// regresses downward.
func newDelta(metric string, base, cand, threshold float64, higherIsWorse bool) Delta {
	d := Delta{
		Metric:     metric,
		Baseline:   base,
		Candidate:  cand,
		Diff:       cand - base,
		PctDefined: true,
	}

	switch {
	case base == 0 && cand == 0:
		d.Pct = 0
	case base == 0:
		d.PctDefined = false
	default:
		d.Pct = (cand - base) / base
	}

	crossed := !d.PctDefined || math.Abs(d.Pct) > threshold

	switch {
	case d.Diff == 0 || !crossed:
		d.Class = Unchanged
	case (d.Diff > 0) == higherIsWorse:
		d.Class = Regressed
	default:
		d.Class = Improved
	}

	return d
}

// PositionDiff compares one position present in both snapshots.
type PositionDiff struct {
	ID      string
	Nodes   Delta
	NPS     Delta
	Elapsed Delta

	BestMoveBase string
	BestMoveCand string
	ScoreBase    snapshot.Score
	ScoreCand    snapshot.Score

	// Functional marks a changed best move or a score moved beyond the
	// tolerance: a behavioral difference, distinct from a performance
	// regression.
	Functional bool
}

// Regressed reports whether any metric of this position regressed.
func (p PositionDiff) Regressed() bool {
	return p.Nodes.Class == Regressed ||
		p.NPS.Class == Regressed ||
		p.Elapsed.Class == Regressed
}

// Skipped is a position whose search did not complete cleanly in one or
// both snapshots; it is reported separately and never merged into numeric
// deltas.
type Skipped struct {
	ID              string
	BaselineStatus  snapshot.Status
	CandidateStatus snapshot.Status
}

// Report is the structured comparison of two snapshots. Positions follow
// baseline order; Added follows candidate order.
type Report struct {
	BaselineEngine  string
	CandidateEngine string

	Positions []PositionDiff
	Added     []string
	Removed   []string
	Skipped   []Skipped

	// Aggregate compares sums over the positions that contributed
	// numeric deltas, so set differences cannot skew it.
	AggregateNodes   Delta
	AggregateElapsed Delta
	AggregateNPS     Delta
}

// Regressions counts positions with at least one regressed metric.
func (r *Report) Regressions() int {
	n := 0
	for _, p := range r.Positions {
		if p.Regressed() {
			n++
		}
	}

	return n
}

// FunctionalDiffs counts positions whose behavior changed.
func (r *Report) FunctionalDiffs() int {
	n := 0
	for _, p := range r.Positions {
		if p.Functional {
			n++
		}
	}

	return n
}

// Failed is the aggregate verdict: true when any position regressed beyond
// threshold or changed behavior. Added, removed, and skipped positions are
// reported but do not fail the comparison.
func (r *Report) Failed() bool {
	return r.Regressions() > 0 || r.FunctionalDiffs() > 0
}

// Compare diffs candidate against baseline. Both snapshots are read-only;
// no live engine is involved.
func Compare(baseline, candidate *snapshot.Snapshot, th Thresholds) *Report {
	rep := &Report{
		BaselineEngine:  baseline.Engine,
		CandidateEngine: candidate.Engine,
	}

	candByID := make(map[string]snapshot.Result, len(candidate.Positions))
	for _, c := range candidate.Positions {
		candByID[c.ID] = c
	}

	baseIDs := make(map[string]struct{}, len(baseline.Positions))

	var sumBase, sumCand struct {
		nodes   uint64
		elapsed int64
	}

	for _, b := range baseline.Positions {
		baseIDs[b.ID] = struct{}{}

		c, ok := candByID[b.ID]
		if !ok {
			rep.Removed = append(rep.Removed, b.ID)

			continue
		}

		if b.Status != snapshot.StatusOk || c.Status != snapshot.StatusOk {
			rep.Skipped = append(rep.Skipped, Skipped{
				ID:              b.ID,
				BaselineStatus:  b.Status,
				CandidateStatus: c.Status,
			})

			continue
		}

		rep.Positions = append(rep.Positions, comparePosition(b, c, th))

		sumBase.nodes += b.Nodes
		sumBase.elapsed += b.ElapsedMs
		sumCand.nodes += c.Nodes
		sumCand.elapsed += c.ElapsedMs
	}

	for _, c := range candidate.Positions {
		if _, ok := baseIDs[c.ID]; !ok {
			rep.Added = append(rep.Added, c.ID)
		}
	}

	rep.AggregateNodes = newDelta("nodes",
		float64(sumBase.nodes), float64(sumCand.nodes), th.Nodes, true)
	rep.AggregateElapsed = newDelta("elapsed_ms",
		float64(sumBase.elapsed), float64(sumCand.elapsed), th.Elapsed, true)
	rep.AggregateNPS = newDelta("nps",
		derivedNPS(sumBase.nodes, sumBase.elapsed),
		derivedNPS(sumCand.nodes, sumCand.elapsed),
		th.NPS, false)

	return rep
}

func comparePosition(b, c snapshot.Result, th Thresholds) PositionDiff {
	return PositionDiff{
		ID:           b.ID,
		Nodes:        newDelta("nodes", float64(b.Nodes), float64(c.Nodes), th.Nodes, true),
		NPS:          newDelta("nps", float64(b.NPS), float64(c.NPS), th.NPS, false),
		Elapsed:      newDelta("elapsed_ms", float64(b.ElapsedMs), float64(c.ElapsedMs), th.Elapsed, true),
		BestMoveBase: b.BestMove,
		BestMoveCand: c.BestMove,
		ScoreBase:    b.Score,
		ScoreCand:    c.Score,
		Functional:   functionalDiff(b, c, th.ScoreTolerance),
	}
}

func functionalDiff(b, c snapshot.Result, tolerance int) bool {
	if b.BestMove != c.BestMove {
		return true
	}

	// A mate appearing, disappearing, or changing length is always a
	// behavioral change; centipawn drift is compared to the tolerance.
	if b.Score.IsMate() != c.Score.IsMate() {
		return true
	}

	if b.Score.IsMate() {
		return b.Score.Mate != c.Score.Mate
	}

	delta := c.Score.CP - b.Score.CP
	if delta < 0 {
		delta = -delta
	}

	return delta > tolerance
}

func derivedNPS(nodes uint64, elapsedMs int64) float64 {
	if elapsedMs <= 0 {
		return 0
	}

	return float64(nodes) * 1000 / float64(elapsedMs)
}
