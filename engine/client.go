package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrTimeout reports that no matching event arrived within the deadline.
	ErrTimeout = errors.New("timed out waiting for engine event")

	// ErrClosed reports that the engine's output stream ended, which
	// almost always means the process exited.
	ErrClosed = errors.New("engine output stream closed")
)

// SpawnError reports that the engine binary could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn engine %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Limit bounds a search by depth or by time budget. Depth wins if both
// are set.
type Limit struct {
	Depth    int
	MoveTime time.Duration
}

// DefaultDepth is used when a Limit sets neither bound.
const DefaultDepth = 10

// GoCommand renders the limit as a UCI search-start command.
func (l Limit) GoCommand() string {
	if l.Depth > 0 {
		return fmt.Sprintf("go depth %d", l.Depth)
	}

	if l.MoveTime > 0 {
		return fmt.Sprintf("go movetime %d", l.MoveTime.Milliseconds())
	}

	return fmt.Sprintf("go depth %d", DefaultDepth)
}

// Client drives one UCI engine subprocess. Methods are meant to be called
// from a single goroutine; the only internal concurrency is the reader that
// turns stdout lines into events.
type Client struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	wr     *bufio.Writer
	events chan Event
	grp    *errgroup.Group
	logger *slog.Logger
	grace  time.Duration

	// Protocol state observed by Await; only touched from the caller's
	// goroutine.
	name       string
	lastInfo   Info
	terminated bool
}

// Spawn starts the engine at path and begins reading its output. The
// returned client holds the only handle to the subprocess; Terminate
// releases it on every path.
func Spawn(path string, logger *slog.Logger) (*Client, error) {
	cmd := exec.Command(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Err: err}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Path: path, Err: err}
	}

	logger.Info("engine started",
		slog.String("path", path),
		slog.Int("pid", cmd.Process.Pid),
	)

	c := newClient(stdout, stdin, logger)
	c.cmd = cmd

	return c, nil
}

// newClient wires a client over raw streams. Split out from Spawn so the
// protocol can be exercised without a live process.
func newClient(r io.Reader, w io.WriteCloser, logger *slog.Logger) *Client {
	c := &Client{
		stdin:  w,
		wr:     bufio.NewWriter(w),
		events: make(chan Event, 64),
		logger: logger,
		grace:  2 * time.Second,
	}

	c.grp = &errgroup.Group{}
	c.grp.Go(func() error {
		return c.readLoop(r)
	})

	return c
}

func (c *Client) readLoop(r io.Reader) error {
	defer close(c.events)

	sc := bufio.NewScanner(r)
	// Long pv lines can exceed the default token size.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		ev := ParseLine(sc.Text())
		if ev.Kind == KindUnknown && ev.Raw != "" {
			c.logger.Debug("unrecognized engine output",
				slog.String("line", ev.Raw),
			)
		}

		c.events <- ev
	}

	return sc.Err()
}

// Send writes one command line to the engine. It never blocks on the
// engine's output.
func (c *Client) Send(line string) error {
	if _, err := c.wr.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}

	if err := c.wr.Flush(); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}

	return nil
}

// Await consumes parsed events until match returns true or the timeout
// elapses. Events that do not match are still observed: "id name" updates
// the engine identifier and "info" updates LastInfo, so the most recent
// status line before a terminal event is always available.
func (c *Client) Await(
	ctx context.Context,
	match func(Event) bool,
	timeout time.Duration,
) (Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				return Event{}, ErrClosed
			}

			c.observe(ev)

			if match(ev) {
				return ev, nil
			}

		case <-timer.C:
			return Event{}, ErrTimeout

		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

func (c *Client) observe(ev Event) {
	switch ev.Kind {
	case KindID:
		c.name = ev.Name
	case KindInfo:
		c.lastInfo = ev.Info
	}
}

// LastInfo returns the most recent "info" payload seen by Await.
func (c *Client) LastInfo() Info { return c.lastInfo }

// ResetSearch clears the captured status so one search's fields cannot
// leak into the next.
func (c *Client) ResetSearch() { c.lastInfo = Info{} }

// Name returns the identifier from the engine's "id name" line, or "" if
// none was seen yet.
func (c *Client) Name() string { return c.name }

// Init performs the UCI handshake and readiness probe. The engine's
// identifier is available through Name afterwards.
func (c *Client) Init(ctx context.Context, timeout time.Duration) error {
	if err := c.Send("uci"); err != nil {
		return err
	}

	if _, err := c.Await(ctx, func(ev Event) bool {
		return ev.Kind == KindUCIOk
	}, timeout); err != nil {
		return fmt.Errorf("waiting for uciok: %w", err)
	}

	if err := c.Send("isready"); err != nil {
		return err
	}

	if _, err := c.Await(ctx, func(ev Event) bool {
		return ev.Kind == KindReadyOk
	}, timeout); err != nil {
		return fmt.Errorf("waiting for readyok: %w", err)
	}

	return nil
}

// Terminate asks the engine to quit, waits up to the grace period for the
// process to exit, then kills it. Idempotent; the process handle and both
// pipes are released on every path.
func (c *Client) Terminate() {
	if c.terminated {
		return
	}
	c.terminated = true

	// Drain remaining events so the reader can never block on a full
	// buffer while the process winds down.
	go func() {
		for range c.events {
		}
	}()

	if err := c.Send("quit"); err != nil {
		c.logger.Debug("quit not delivered",
			slog.String("error", err.Error()),
		)
	}

	c.stdin.Close()

	if c.cmd == nil {
		// Stream-backed client; nothing to reap.
		_ = c.grp.Wait()

		return
	}

	exited := make(chan struct{})
	go func() {
		_ = c.grp.Wait()
		_ = c.cmd.Wait()
		close(exited)
	}()

	select {
	case <-exited:
	case <-time.After(c.grace):
		c.logger.Warn("engine did not exit, killing",
			slog.String("path", c.cmd.Path),
		)
		_ = c.cmd.Process.Kill()
		<-exited
	}
}
