// Package bench drives a position suite through a UCI engine subprocess
// and assembles a snapshot of the results.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/chessmark/chessmark/engine"
	"github.com/chessmark/chessmark/snapshot"
	"github.com/chessmark/chessmark/suite"
)

// uciClient is the slice of engine.Client the runner uses, narrowed so
// tests can inject a scripted fake.
type uciClient interface {
	Send(line string) error
	Await(ctx context.Context, match func(engine.Event) bool, timeout time.Duration) (engine.Event, error)
	LastInfo() engine.Info
	ResetSearch()
	Name() string
	Terminate()
}

// Config holds parameters for a benchmark run.
type Config struct {
	EnginePath string
	Limit      engine.Limit

	// MoveTimeout is the per-position deadline for the best-move line.
	MoveTimeout time.Duration

	// InitTimeout bounds the handshake and each readiness probe.
	InitTimeout time.Duration

	Logger *slog.Logger
}

const (
	defaultMoveTimeout = 60 * time.Second
	defaultInitTimeout = 10 * time.Second
)

// Runner executes position suites against one engine binary. It owns
// exactly one subprocess at a time, replacing it when a position faults.
type Runner struct {
	cfg    Config
	logger *slog.Logger

	// spawn starts and handshakes a fresh engine process. Swapped out in
	// tests.
	spawn func(ctx context.Context) (uciClient, error)
}

// NewRunner creates a Runner for the engine binary named in cfg.
func NewRunner(cfg Config) *Runner {
	if cfg.MoveTimeout <= 0 {
		cfg.MoveTimeout = defaultMoveTimeout
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = defaultInitTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Runner{
		cfg:    cfg,
		logger: cfg.Logger.With(slog.String("engine", cfg.EnginePath)),
	}

	r.spawn = func(ctx context.Context) (uciClient, error) {
		c, err := engine.Spawn(cfg.EnginePath, r.logger)
		if err != nil {
			return nil, err
		}

		if err := c.Init(ctx, cfg.InitTimeout); err != nil {
			c.Terminate()

			return nil, err
		}

		return c, nil
	}

	return r
}

// Run searches every position in suite order and returns the completed
// snapshot. One position's timeout or crash never aborts the run: the
// result is recorded, the engine is replaced, and the loop continues. Only
// a failure to spawn (or respawn) the engine is fatal. Cancelling ctx
// stops the run after the position in flight; the subprocess is torn down
// on every path.
func (r *Runner) Run(ctx context.Context, positions []suite.Position) (*snapshot.Snapshot, error) {
	client, err := r.spawn(ctx)
	if err != nil {
		return nil, fmt.Errorf("spawn engine: %w", err)
	}

	defer func() { client.Terminate() }()

	snap := snapshot.New(r.engineID(client))

	start := time.Now()
	r.logger.Info("benchmark starting",
		slog.Int("positions", len(positions)),
		slog.String("limit", r.cfg.Limit.GoCommand()),
	)

	for _, pos := range positions {
		if ctx.Err() != nil {
			r.logger.Warn("run cancelled",
				slog.Int("completed", len(snap.Positions)),
			)

			break
		}

		res, searchErr := r.searchOne(ctx, client, pos)
		snap.Append(res)

		r.logger.Info("position complete",
			slog.String("id", pos.ID),
			slog.String("status", string(res.Status)),
			slog.Uint64("nodes", res.Nodes),
			slog.Int64("elapsed_ms", res.ElapsedMs),
		)

		if searchErr != nil {
			// The subprocess state can no longer be trusted; replace it
			// before the next position.
			client.Terminate()

			client, err = r.spawn(ctx)
			if err != nil {
				snap.ComputeTotals()

				return snap, fmt.Errorf("respawn engine: %w", err)
			}
		}
	}

	snap.ComputeTotals()

	r.logger.Info("benchmark finished",
		slog.Int("positions", len(snap.Positions)),
		slog.Uint64("total_nodes", snap.Totals.Nodes),
		slog.Duration("wall_time", time.Since(start)),
	)

	return snap, nil
}

// searchOne runs a single position. A non-nil error means the subprocess
// needs replacing; the returned result is recorded either way.
func (r *Runner) searchOne(ctx context.Context, c uciClient, pos suite.Position) (snapshot.Result, error) {
	res := snapshot.Result{ID: pos.ID, FEN: pos.FEN, Status: snapshot.StatusOk}

	c.ResetSearch()

	if err := c.Send("ucinewgame"); err != nil {
		return faulted(res, err), err
	}

	if err := c.Send("isready"); err != nil {
		return faulted(res, err), err
	}

	if _, err := c.Await(ctx, func(ev engine.Event) bool {
		return ev.Kind == engine.KindReadyOk
	}, r.cfg.InitTimeout); err != nil {
		return faulted(res, err), err
	}

	if err := c.Send("position fen " + pos.FEN); err != nil {
		return faulted(res, err), err
	}

	if err := c.Send(r.cfg.Limit.GoCommand()); err != nil {
		return faulted(res, err), err
	}

	searchStart := time.Now()

	ev, err := c.Await(ctx, func(ev engine.Event) bool {
		return ev.Kind == engine.KindBestMove
	}, r.cfg.MoveTimeout)
	if err != nil {
		return faulted(res, err), err
	}

	elapsed := time.Since(searchStart)
	info := c.LastInfo()

	res.BestMove = ev.Move
	res.Nodes = info.Nodes
	res.NPS = info.NPS
	res.Depth = info.Depth
	res.Score = snapshot.Score{CP: info.ScoreCP, Mate: info.ScoreMate}

	// Prefer the engine's own elapsed time; fall back to wall clock.
	if info.HasTime {
		res.ElapsedMs = info.TimeMs
	} else {
		res.ElapsedMs = elapsed.Milliseconds()
	}

	if !info.HasNPS && res.ElapsedMs > 0 {
		res.NPS = res.Nodes * 1000 / uint64(res.ElapsedMs)
	}

	return res, nil
}

// faulted stamps the result with the status matching the failure: a missed
// deadline is TimedOut, anything else (process death, broken pipe,
// cancellation) is Failed.
func faulted(res snapshot.Result, err error) snapshot.Result {
	if errors.Is(err, engine.ErrTimeout) {
		res.Status = snapshot.StatusTimeout
	} else {
		res.Status = snapshot.StatusFailed
	}

	return res
}

func (r *Runner) engineID(c uciClient) string {
	if name := c.Name(); name != "" {
		return name
	}

	return filepath.Base(r.cfg.EnginePath)
}
