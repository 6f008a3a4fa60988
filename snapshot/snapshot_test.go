package snapshot

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		SchemaVersion: SchemaVersion,
		Engine:        "mockengine 1.0",
		Timestamp:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Positions: []Result{
			{
				ID: "startpos", FEN: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
				Nodes: 100000, NPS: 500000, Depth: 10, ElapsedMs: 200,
				Score: Score{CP: 35}, BestMove: "e2e4", Status: StatusOk,
			},
			{
				ID: "mate-in-3", FEN: "1k1r4/pp1b1R2/3q2pp/4p3/2B5/4Q3/PPP2B2/2K5 b - - 0 1",
				Nodes: 4000, NPS: 400000, Depth: 12, ElapsedMs: 10,
				Score: Score{Mate: 3}, BestMove: "d6d1", Status: StatusOk,
			},
			{
				ID: "stuck", FEN: "8/k7/3p4/p2P1p2/P2P1P2/8/8/K7 w - - 0 1",
				Status: StatusTimeout,
			},
		},
		Totals: Totals{Nodes: 104000, ElapsedMs: 210, NPS: 495238},
	}
}

func TestRoundTrip(t *testing.T) {
	s := sampleSnapshot()

	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if !reflect.DeepEqual(s, loaded) {
		t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", loaded, s)
	}
}

func TestScoreJSONShapes(t *testing.T) {
	s := sampleSnapshot()

	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"cp": 35`) {
		t.Errorf("expected cp score in output:\n%s", out)
	}
	if !strings.Contains(out, `"mate": 3`) {
		t.Errorf("expected mate score in output:\n%s", out)
	}
	if !strings.Contains(out, `"status": "timeout"`) {
		t.Errorf("expected timeout status in output:\n%s", out)
	}
}

func TestReadRejectsHigherMajor(t *testing.T) {
	input := `{"schema_version": "2.0", "engine_identifier": "x", "positions": []}`

	_, err := Read(strings.NewReader(input))

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
	if formatErr.Found != "2.0" {
		t.Errorf("found = %q, want 2.0", formatErr.Found)
	}
	if formatErr.Expected != SchemaVersion {
		t.Errorf("expected = %q, want %q", formatErr.Expected, SchemaVersion)
	}
}

func TestReadAcceptsHigherMinorAndUnknownFields(t *testing.T) {
	input := `{
		"schema_version": "1.7",
		"engine_identifier": "future-engine",
		"some_future_field": {"nested": true},
		"positions": [
			{"id": "p1", "fen": "8/8/8/8/8/8/8/8 w - - 0 1", "nodes": 5,
			 "score": {"cp": 1}, "status": "ok", "novel_metric": 9}
		],
		"totals": {"nodes": 5, "elapsed_ms": 0, "nps": 0}
	}`

	s, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if s.Engine != "future-engine" {
		t.Errorf("engine = %q, want future-engine", s.Engine)
	}
	if len(s.Positions) != 1 || s.Positions[0].Nodes != 5 {
		t.Errorf("positions = %+v, want one entry with 5 nodes", s.Positions)
	}
}

func TestReadRejectsMalformedVersion(t *testing.T) {
	for _, v := range []string{"", "1", "one.zero", "1.x"} {
		input := `{"schema_version": "` + v + `", "positions": []}`

		var formatErr *FormatError
		if _, err := Read(strings.NewReader(input)); !errors.As(err, &formatErr) {
			t.Errorf("version %q: err = %v, want *FormatError", v, err)
		}
	}
}

func TestReadRejectsDuplicateIDs(t *testing.T) {
	input := `{
		"schema_version": "1.0",
		"positions": [{"id": "p1", "status": "ok"}, {"id": "p1", "status": "ok"}]
	}`

	var formatErr *FormatError
	if _, err := Read(strings.NewReader(input)); !errors.As(err, &formatErr) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
}

func TestReadInvalidJSON(t *testing.T) {
	var formatErr *FormatError
	if _, err := Read(strings.NewReader("not json")); !errors.As(err, &formatErr) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
}

func TestComputeTotalsSkipsFailures(t *testing.T) {
	s := New("test")
	s.Append(Result{ID: "a", Nodes: 1000, ElapsedMs: 10, Status: StatusOk})
	s.Append(Result{ID: "b", Nodes: 9999, ElapsedMs: 99, Status: StatusTimeout})
	s.Append(Result{ID: "c", Nodes: 3000, ElapsedMs: 30, Status: StatusOk})

	s.ComputeTotals()

	if s.Totals.Nodes != 4000 {
		t.Errorf("total nodes = %d, want 4000", s.Totals.Nodes)
	}
	if s.Totals.ElapsedMs != 40 {
		t.Errorf("total elapsed = %d, want 40", s.Totals.ElapsedMs)
	}
	if s.Totals.NPS != 100000 {
		t.Errorf("total nps = %d, want 100000", s.Totals.NPS)
	}
}

func TestEmptySnapshotIsValid(t *testing.T) {
	s := New("empty")
	s.ComputeTotals()

	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(loaded.Positions) != 0 {
		t.Errorf("positions = %d, want 0", len(loaded.Positions))
	}
	if loaded.Totals != (Totals{}) {
		t.Errorf("totals = %+v, want zero", loaded.Totals)
	}
}

func TestBranchingFactor(t *testing.T) {
	r := Result{Nodes: 1024, Depth: 10}
	if got := r.BranchingFactor(); got < 1.99 || got > 2.01 {
		t.Errorf("BranchingFactor() = %v, want ~2.0", got)
	}

	if got := (Result{Nodes: 100}).BranchingFactor(); got != 0 {
		t.Errorf("depth 0 branching factor = %v, want 0", got)
	}
}

func TestScoreString(t *testing.T) {
	if got := (Score{CP: 35}).String(); got != "+35" {
		t.Errorf("cp score = %q, want +35", got)
	}
	if got := (Score{Mate: -2}).String(); got != "mate -2" {
		t.Errorf("mate score = %q, want mate -2", got)
	}
}
