// Package engine drives a single UCI chess engine subprocess and turns its
// line-oriented output into typed events.
package engine

import (
	"strconv"
	"strings"
)

// EventKind discriminates the parsed shapes of engine output lines.
type EventKind int

const (
	// KindUnknown marks a line that matched no known shape. The raw text
	// is kept so callers can detect protocol drift.
	KindUnknown EventKind = iota
	KindUCIOk
	KindReadyOk
	KindID
	KindInfo
	KindBestMove
)

// Info carries the fields of a UCI "info" line. Engines emit an arbitrary
// subset per line; the Has* flags record which fields were actually present.
type Info struct {
	Depth     int
	Nodes     uint64
	NPS       uint64
	TimeMs    int64
	ScoreCP   int
	ScoreMate int
	PV        []string

	HasDepth bool
	HasNodes bool
	HasNPS   bool
	HasTime  bool
	HasScore bool
}

// Event is one parsed line of engine output.
type Event struct {
	Kind   EventKind
	Name   string // engine name, for KindID
	Info   Info   // for KindInfo
	Move   string // for KindBestMove
	Ponder string // for KindBestMove, if announced
	Raw    string // the original line, always set
}

// ParseLine parses one line of engine output. It never fails: lines that
// match no known shape come back as KindUnknown with Raw intact.
func ParseLine(line string) Event {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{Kind: KindUnknown, Raw: line}
	}

	switch fields[0] {
	case "uciok":
		return Event{Kind: KindUCIOk, Raw: line}

	case "readyok":
		return Event{Kind: KindReadyOk, Raw: line}

	case "id":
		if len(fields) >= 3 && fields[1] == "name" {
			return Event{
				Kind: KindID,
				Name: strings.Join(fields[2:], " "),
				Raw:  line,
			}
		}

	case "info":
		return Event{Kind: KindInfo, Info: parseInfo(fields[1:]), Raw: line}

	case "bestmove":
		ev := Event{Kind: KindBestMove, Raw: line}
		if len(fields) > 1 {
			ev.Move = fields[1]
		}
		if i := indexOf(fields, "ponder"); i >= 0 && i+1 < len(fields) {
			ev.Ponder = fields[i+1]
		}

		return ev
	}

	return Event{Kind: KindUnknown, Raw: line}
}

// parseInfo walks the token stream of an "info" line. Unknown tokens are
// skipped; fields that fail to parse are simply not set.
func parseInfo(args []string) Info {
	var info Info

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if v, ok := intAt(args, i+1); ok {
				info.Depth = v
				info.HasDepth = true
				i++
			}

		case "nodes":
			if v, ok := uintAt(args, i+1); ok {
				info.Nodes = v
				info.HasNodes = true
				i++
			}

		case "nps":
			if v, ok := uintAt(args, i+1); ok {
				info.NPS = v
				info.HasNPS = true
				i++
			}

		case "time":
			if v, ok := intAt(args, i+1); ok {
				info.TimeMs = int64(v)
				info.HasTime = true
				i++
			}

		case "score":
			if i+2 < len(args) {
				switch args[i+1] {
				case "cp":
					if v, ok := intAt(args, i+2); ok {
						info.ScoreCP = v
						info.HasScore = true
						i += 2
					}
				case "mate":
					if v, ok := intAt(args, i+2); ok {
						info.ScoreMate = v
						info.HasScore = true
						i += 2
					}
				}
			}

		case "pv":
			// The principal variation runs to the end of the line.
			info.PV = append([]string(nil), args[i+1:]...)

			return info
		}
	}

	return info
}

func intAt(args []string, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}

	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, false
	}

	return v, true
}

func uintAt(args []string, i int) (uint64, bool) {
	if i >= len(args) {
		return 0, false
	}

	v, err := strconv.ParseUint(args[i], 10, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

func indexOf(fields []string, value string) int {
	for i, f := range fields {
		if f == value {
			return i
		}
	}

	return -1
}
