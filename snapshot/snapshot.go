// Package snapshot defines the persisted shape of a benchmark result set
// and its JSON serialization.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// SchemaVersion is the document version this package writes. Readers
// accept any document with the same major version; a higher minor version
// from a newer writer is loaded with unknown fields ignored.
const SchemaVersion = "1.0"

const supportedMajor = 1

// Status records how a position's search ended.
type Status string

const (
	StatusOk      Status = "ok"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

// Score is an engine evaluation: centipawns from the side to move, or a
// forced mate in N moves. Mate takes precedence when set.
type Score struct {
	CP   int
	Mate int
}

// IsMate reports whether the score is a forced mate.
func (s Score) IsMate() bool { return s.Mate != 0 }

func (s Score) String() string {
	if s.IsMate() {
		return fmt.Sprintf("mate %d", s.Mate)
	}

	return fmt.Sprintf("%+d", s.CP)
}

type scoreJSON struct {
	CP   *int `json:"cp,omitempty"`
	Mate *int `json:"mate,omitempty"`
}

// MarshalJSON keeps centipawn and mate scores distinct through round-trips:
// {"cp":35} or {"mate":3}.
func (s Score) MarshalJSON() ([]byte, error) {
	if s.IsMate() {
		return json.Marshal(scoreJSON{Mate: &s.Mate})
	}

	return json.Marshal(scoreJSON{CP: &s.CP})
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var raw scoreJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Score{}
	if raw.CP != nil {
		s.CP = *raw.CP
	}
	if raw.Mate != nil {
		s.Mate = *raw.Mate
	}

	return nil
}

// Result holds the outcome of searching one position. Created once per
// position and immutable thereafter.
type Result struct {
	ID        string `json:"id"`
	FEN       string `json:"fen"`
	Nodes     uint64 `json:"nodes"`
	NPS       uint64 `json:"nps"`
	Depth     int    `json:"depth"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Score     Score  `json:"score"`
	BestMove  string `json:"best_move"`
	Status    Status `json:"status"`
}

// BranchingFactor derives the effective branching factor
// (nodes^(1/depth)) for display; it is not persisted.
func (r Result) BranchingFactor() float64 {
	if r.Depth <= 0 || r.Nodes == 0 {
		return 0
	}

	return math.Pow(float64(r.Nodes), 1/float64(r.Depth))
}

// Totals aggregates the Ok results of a run.
type Totals struct {
	Nodes     uint64 `json:"nodes"`
	ElapsedMs int64  `json:"elapsed_ms"`
	NPS       uint64 `json:"nps"`
}

// Snapshot is an ordered record of a completed benchmark run. Entry order
// is the suite's position order and is semantically significant.
type Snapshot struct {
	SchemaVersion string    `json:"schema_version"`
	Engine        string    `json:"engine_identifier"`
	Timestamp     time.Time `json:"timestamp"`
	Positions     []Result  `json:"positions"`
	Totals        Totals    `json:"totals"`
}

// New creates an empty snapshot for the given engine identifier, stamped
// with the current schema version and time.
func New(engine string) *Snapshot {
	return &Snapshot{
		SchemaVersion: SchemaVersion,
		Engine:        engine,
		Timestamp:     time.Now().UTC(),
		Positions:     make([]Result, 0),
	}
}

// Append records one position result, preserving insertion order.
func (s *Snapshot) Append(r Result) {
	s.Positions = append(s.Positions, r)
}

// ComputeTotals sums nodes and elapsed time over Ok results and derives the
// total nps. Failed and timed-out positions stay visible in Positions but
// do not contribute.
func (s *Snapshot) ComputeTotals() {
	var t Totals

	for _, r := range s.Positions {
		if r.Status != StatusOk {
			continue
		}

		t.Nodes += r.Nodes
		t.ElapsedMs += r.ElapsedMs
	}

	if t.ElapsedMs > 0 {
		t.NPS = t.Nodes * 1000 / uint64(t.ElapsedMs)
	}

	s.Totals = t
}

// FormatError reports a snapshot document that cannot be loaded: an
// unsupported schema version or a structurally invalid document.
type FormatError struct {
	Expected string
	Found    string
	Reason   string
}

func (e *FormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid snapshot: %s", e.Reason)
	}

	return fmt.Sprintf(
		"unsupported snapshot schema version %q (reader supports %q)",
		e.Found, e.Expected,
	)
}

// Read decodes a snapshot from r and checks it against the reader's schema
// compatibility rules.
func Read(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, &FormatError{
			Expected: SchemaVersion,
			Reason:   fmt.Sprintf("decode JSON: %v", err),
		}
	}

	if err := checkVersion(s.SchemaVersion); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(s.Positions))
	for _, p := range s.Positions {
		if _, dup := seen[p.ID]; dup {
			return nil, &FormatError{
				Expected: SchemaVersion,
				Reason:   fmt.Sprintf("duplicate position id %q", p.ID),
			}
		}
		seen[p.ID] = struct{}{}
	}

	return &s, nil
}

func checkVersion(v string) error {
	major, _, ok := splitVersion(v)
	if !ok {
		return &FormatError{
			Expected: SchemaVersion,
			Reason:   fmt.Sprintf("malformed schema_version %q", v),
		}
	}

	if major != supportedMajor {
		return &FormatError{Expected: SchemaVersion, Found: v}
	}

	return nil
}

func splitVersion(v string) (major, minor int, ok bool) {
	parts := strings.SplitN(v, ".", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}

	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}

	return major, minor, true
}

// Write encodes the snapshot as indented JSON.
func (s *Snapshot) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(s)
}

// Load reads a snapshot from a file.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", path, err)
	}

	return s, nil
}

// Save writes the snapshot to a file, replacing any existing content.
func (s *Snapshot) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot %s: %w", path, err)
	}

	if err := s.Write(f); err != nil {
		f.Close()

		return fmt.Errorf("write snapshot %s: %w", path, err)
	}

	return f.Close()
}
