// Package main provides the CLI entry point for chessmark, a UCI engine
// benchmarking and regression-snapshot tool.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chessmark/chessmark/bench"
	"github.com/chessmark/chessmark/diff"
	"github.com/chessmark/chessmark/engine"
	"github.com/chessmark/chessmark/render"
	"github.com/chessmark/chessmark/snapshot"
	"github.com/chessmark/chessmark/suite"
	"github.com/spf13/cobra"
)

const defaultSnapshotPath = "./bench_snapshot.json"

var (
	// errComparisonFailed signals a non-zero exit after the report has
	// already been printed.
	errComparisonFailed = errors.New("comparison failed")

	// errRunFaulted signals that one or more positions failed or timed
	// out during the run.
	errRunFaulted = errors.New("run recorded failed positions")
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errComparisonFailed) && !errors.Is(err, errRunFaulted) {
			logger.Error("chessmark failed", slog.String("error", err.Error()))
		}

		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "chessmark",
		Short: "Benchmark UCI chess engines against snapshot baselines",
		Long: `Chessmark runs a fixed suite of positions through a UCI engine, records
node counts and timings, and compares the run against a previously saved
snapshot to catch performance regressions and behavioral changes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newDiffCmd(logger))

	return root
}

// displayFlags holds the metric-selection and color flags shared by run
// and diff.
type displayFlags struct {
	all       bool
	nodes     bool
	time      bool
	nps       bool
	branching bool
	score     bool
	bestMove  bool
	noColor   bool
}

func (d *displayFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&d.all, "all", false, "Display all metrics")
	flags.BoolVar(&d.nodes, "nodes", false, "Display node counts")
	flags.BoolVar(&d.time, "time", false, "Display elapsed time")
	flags.BoolVar(&d.nps, "nps", false, "Display nodes per second")
	flags.BoolVar(&d.branching, "branching", false,
		"Display effective branching factor")
	flags.BoolVar(&d.score, "score", false, "Display evaluation scores")
	flags.BoolVar(&d.bestMove, "best-move", false, "Display best moves")
	flags.BoolVar(&d.noColor, "no-color", false, "Disable colored output")
}

func (d *displayFlags) fields() render.Fields {
	if d.all {
		return render.AllFields()
	}

	if d.nodes || d.time || d.nps || d.branching || d.score || d.bestMove {
		return render.Fields{
			Nodes:     d.nodes,
			Time:      d.time,
			NPS:       d.nps,
			Branching: d.branching,
			Score:     d.score,
			BestMove:  d.bestMove,
		}
	}

	return render.DefaultFields()
}

func (d *displayFlags) palette() render.Palette {
	if d.noColor {
		return render.NewPalette(false)
	}

	return render.AutoPalette(os.Stdout)
}

// thresholdFlags holds the regression tunables shared by run and diff.
type thresholdFlags struct {
	uniform        float64
	nodes          float64
	nps            float64
	elapsed        float64
	scoreTolerance int
}

func (t *thresholdFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Float64Var(&t.uniform, "threshold", 0.10,
		"Regression threshold as a fraction (0.10 = 10%)")
	flags.Float64Var(&t.nodes, "threshold-nodes", -1,
		"Node-count threshold override")
	flags.Float64Var(&t.nps, "threshold-nps", -1,
		"NPS threshold override")
	flags.Float64Var(&t.elapsed, "threshold-time", -1,
		"Elapsed-time threshold override")
	flags.IntVar(&t.scoreTolerance, "score-tolerance", 0,
		"Centipawn score drift tolerated before flagging a functional difference")
}

func (t *thresholdFlags) thresholds() diff.Thresholds {
	th := diff.Thresholds{
		Nodes:          t.uniform,
		NPS:            t.uniform,
		Elapsed:        t.uniform,
		ScoreTolerance: t.scoreTolerance,
	}

	if t.nodes >= 0 {
		th.Nodes = t.nodes
	}
	if t.nps >= 0 {
		th.NPS = t.nps
	}
	if t.elapsed >= 0 {
		th.Elapsed = t.elapsed
	}

	return th
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		enginePath   string
		depth        int
		moveTime     time.Duration
		moveTimeout  time.Duration
		fensPath     string
		save         bool
		outputPath   string
		snapshotPath string
		outputJSON   bool
		display      displayFlags
		thresholds   thresholdFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark an engine and optionally diff against a snapshot",
		Long: `Run the benchmark suite through the given engine binary. When a baseline
snapshot exists (explicitly via --snapshot or implicitly at the default
path), the run is replayed over the baseline's positions and compared
against it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmark(cmd, logger, runOptions{
				enginePath:   enginePath,
				depth:        depth,
				moveTime:     moveTime,
				moveTimeout:  moveTimeout,
				fensPath:     fensPath,
				save:         save,
				outputPath:   outputPath,
				snapshotPath: snapshotPath,
				outputJSON:   outputJSON,
				display:      &display,
				thresholds:   &thresholds,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&enginePath, "engine", "e", "",
		"Path to the UCI engine binary")
	flags.IntVarP(&depth, "depth", "d", 10,
		"Search depth per position")
	flags.DurationVar(&moveTime, "movetime", 0,
		"Time budget per position instead of a depth limit")
	flags.DurationVar(&moveTimeout, "move-timeout", 60*time.Second,
		"Deadline for the engine to produce a best move per position")
	flags.StringVarP(&fensPath, "fens", "f", "",
		"File with one FEN per line to use as the suite")
	flags.BoolVarP(&save, "save", "S", false,
		"Write the run to the output snapshot file")
	flags.StringVarP(&outputPath, "output", "o", defaultSnapshotPath,
		"Snapshot file to write with --save")
	flags.StringVarP(&snapshotPath, "snapshot", "s", "",
		"Baseline snapshot to diff against (default: "+defaultSnapshotPath+" if present)")
	flags.BoolVar(&outputJSON, "json", false,
		"Output the snapshot as JSON instead of a table")

	display.register(cmd)
	thresholds.register(cmd)

	cobra.CheckErr(cmd.MarkFlagRequired("engine"))

	return cmd
}

type runOptions struct {
	enginePath   string
	depth        int
	moveTime     time.Duration
	moveTimeout  time.Duration
	fensPath     string
	save         bool
	outputPath   string
	snapshotPath string
	outputJSON   bool
	display      *displayFlags
	thresholds   *thresholdFlags
}

func runBenchmark(cmd *cobra.Command, logger *slog.Logger, opts runOptions) error {
	baseline, err := loadBaseline(opts.snapshotPath)
	if err != nil {
		return err
	}

	positions, err := resolveSuite(opts.fensPath, baseline)
	if err != nil {
		return err
	}

	limit := engine.Limit{Depth: opts.depth}
	if opts.moveTime > 0 {
		limit = engine.Limit{MoveTime: opts.moveTime}
	}

	runner := bench.NewRunner(bench.Config{
		EnginePath:  opts.enginePath,
		Limit:       limit,
		MoveTimeout: opts.moveTimeout,
		Logger:      logger,
	})

	snap, err := runner.Run(cmd.Context(), positions)
	if err != nil {
		return err
	}

	if opts.outputJSON {
		if err := snap.Write(os.Stdout); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
	} else {
		render.WriteResults(os.Stdout, snap, opts.display.fields(),
			opts.display.palette())
	}

	if opts.save {
		if err := snap.Save(opts.outputPath); err != nil {
			return err
		}

		logger.Info("snapshot saved", slog.String("path", opts.outputPath))
	}

	if baseline != nil {
		rep := diff.Compare(baseline, snap, opts.thresholds.thresholds())
		render.WriteReport(os.Stdout, rep, opts.display.fields(),
			opts.display.palette())

		if rep.Failed() {
			return errComparisonFailed
		}
	}

	for _, r := range snap.Positions {
		if r.Status != snapshot.StatusOk {
			return errRunFaulted
		}
	}

	return nil
}

// loadBaseline loads the diff baseline. An explicit path must load; the
// implicit default path is allowed to be absent.
func loadBaseline(path string) (*snapshot.Snapshot, error) {
	if path != "" {
		return snapshot.Load(path)
	}

	if _, err := os.Stat(defaultSnapshotPath); err != nil {
		return nil, nil
	}

	return snapshot.Load(defaultSnapshotPath)
}

// resolveSuite picks the position source: an explicit FEN file, the
// baseline's recorded positions, or the built-in suite.
func resolveSuite(fensPath string, baseline *snapshot.Snapshot) ([]suite.Position, error) {
	if fensPath != "" {
		return suite.LoadFile(fensPath)
	}

	if baseline != nil {
		return suite.FromSnapshot(baseline.Positions), nil
	}

	return suite.Default(), nil
}

func newDiffCmd(logger *slog.Logger) *cobra.Command {
	var (
		display    displayFlags
		thresholds thresholdFlags
	)

	cmd := &cobra.Command{
		Use:   "diff <baseline> <candidate>",
		Short: "Compare two snapshot files",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			baseline, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}

			candidate, err := snapshot.Load(args[1])
			if err != nil {
				return err
			}

			rep := diff.Compare(baseline, candidate, thresholds.thresholds())
			render.WriteReport(os.Stdout, rep, display.fields(),
				display.palette())

			logger.Info("diff complete",
				slog.Int("positions", len(rep.Positions)),
				slog.Int("regressed", rep.Regressions()),
				slog.Int("functional", rep.FunctionalDiffs()),
			)

			if rep.Failed() {
				return errComparisonFailed
			}

			return nil
		},
	}

	display.register(cmd)
	thresholds.register(cmd)

	return cmd
}
