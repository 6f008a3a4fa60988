package engine

import (
	"reflect"
	"testing"
)

func TestParseFullInfoLine(t *testing.T) {
	ev := ParseLine(
		"info depth 12 seldepth 18 score cp 35 nodes 123456 nps 2500000 " +
			"time 49 pv e2e4 e7e5 g1f3",
	)

	if ev.Kind != KindInfo {
		t.Fatalf("kind = %v, want KindInfo", ev.Kind)
	}

	info := ev.Info
	if !info.HasDepth || info.Depth != 12 {
		t.Errorf("depth = %d (has=%v), want 12", info.Depth, info.HasDepth)
	}
	if !info.HasScore || info.ScoreCP != 35 {
		t.Errorf("score cp = %d (has=%v), want 35", info.ScoreCP, info.HasScore)
	}
	if !info.HasNodes || info.Nodes != 123456 {
		t.Errorf("nodes = %d (has=%v), want 123456", info.Nodes, info.HasNodes)
	}
	if !info.HasNPS || info.NPS != 2500000 {
		t.Errorf("nps = %d (has=%v), want 2500000", info.NPS, info.HasNPS)
	}
	if !info.HasTime || info.TimeMs != 49 {
		t.Errorf("time = %d (has=%v), want 49", info.TimeMs, info.HasTime)
	}
	if want := []string{"e2e4", "e7e5", "g1f3"}; !reflect.DeepEqual(info.PV, want) {
		t.Errorf("pv = %v, want %v", info.PV, want)
	}
}

func TestParseInfoMissingFields(t *testing.T) {
	ev := ParseLine("info depth 5")

	if ev.Kind != KindInfo {
		t.Fatalf("kind = %v, want KindInfo", ev.Kind)
	}
	if !ev.Info.HasDepth || ev.Info.Depth != 5 {
		t.Errorf("depth = %d, want 5", ev.Info.Depth)
	}
	if ev.Info.HasNodes || ev.Info.HasNPS || ev.Info.HasTime || ev.Info.HasScore {
		t.Errorf("unexpected fields flagged present: %+v", ev.Info)
	}
}

func TestParseInfoMateScore(t *testing.T) {
	ev := ParseLine("info depth 20 score mate 3 nodes 999")

	if !ev.Info.HasScore || ev.Info.ScoreMate != 3 {
		t.Errorf("mate = %d (has=%v), want 3", ev.Info.ScoreMate, ev.Info.HasScore)
	}
	if ev.Info.ScoreCP != 0 {
		t.Errorf("cp = %d, want 0", ev.Info.ScoreCP)
	}
}

func TestParseInfoUnknownTokensSkipped(t *testing.T) {
	ev := ParseLine("info depth 3 wdl 120 850 30 hashfull 42 nodes 777")

	if ev.Kind != KindInfo {
		t.Fatalf("kind = %v, want KindInfo", ev.Kind)
	}
	if ev.Info.Depth != 3 {
		t.Errorf("depth = %d, want 3", ev.Info.Depth)
	}
	if ev.Info.Nodes != 777 {
		t.Errorf("nodes = %d, want 777", ev.Info.Nodes)
	}
}

func TestParseBestMove(t *testing.T) {
	tests := []struct {
		line   string
		move   string
		ponder string
	}{
		{"bestmove e2e4", "e2e4", ""},
		{"bestmove g1f3 ponder b8c6", "g1f3", "b8c6"},
		{"bestmove", "", ""},
	}

	for _, tt := range tests {
		ev := ParseLine(tt.line)
		if ev.Kind != KindBestMove {
			t.Errorf("%q: kind = %v, want KindBestMove", tt.line, ev.Kind)
		}
		if ev.Move != tt.move {
			t.Errorf("%q: move = %q, want %q", tt.line, ev.Move, tt.move)
		}
		if ev.Ponder != tt.ponder {
			t.Errorf("%q: ponder = %q, want %q", tt.line, ev.Ponder, tt.ponder)
		}
	}
}

func TestParseHandshakeLines(t *testing.T) {
	if ev := ParseLine("uciok"); ev.Kind != KindUCIOk {
		t.Errorf("uciok: kind = %v, want KindUCIOk", ev.Kind)
	}
	if ev := ParseLine("readyok"); ev.Kind != KindReadyOk {
		t.Errorf("readyok: kind = %v, want KindReadyOk", ev.Kind)
	}

	ev := ParseLine("id name Stockfish 16.1")
	if ev.Kind != KindID {
		t.Fatalf("id name: kind = %v, want KindID", ev.Kind)
	}
	if ev.Name != "Stockfish 16.1" {
		t.Errorf("name = %q, want %q", ev.Name, "Stockfish 16.1")
	}
}

func TestParseUnknownPreservesRaw(t *testing.T) {
	lines := []string{
		"option name Hash type spin default 16 min 1 max 4096",
		"id author somebody",
		"copyprotection ok",
		"",
	}

	for _, line := range lines {
		ev := ParseLine(line)
		if ev.Kind != KindUnknown {
			t.Errorf("%q: kind = %v, want KindUnknown", line, ev.Kind)
		}
		if ev.Raw != line {
			t.Errorf("%q: raw = %q, want original line", line, ev.Raw)
		}
	}
}

func TestGoCommand(t *testing.T) {
	tests := []struct {
		limit Limit
		want  string
	}{
		{Limit{Depth: 14}, "go depth 14"},
		{Limit{MoveTime: 2500 * 1000 * 1000}, "go movetime 2500"},
		{Limit{Depth: 8, MoveTime: 1000}, "go depth 8"},
		{Limit{}, "go depth 10"},
	}

	for _, tt := range tests {
		if got := tt.limit.GoCommand(); got != tt.want {
			t.Errorf("GoCommand(%+v) = %q, want %q", tt.limit, got, tt.want)
		}
	}
}
