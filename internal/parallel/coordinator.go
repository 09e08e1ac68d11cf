package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gogpu/fractal/internal/dynarray"
)

// Painter receives one call per pixel that satisfies the predicate.
type Painter interface {
	Paint(x, y int)
}

// State is the coordinator's lifecycle stage.
type State int32

const (
	// StateIdle means Run has not been called.
	StateIdle State = iota

	// StateDispatching means workers are being launched.
	StateDispatching

	// StateDraining means the consumer loop is receiving tiles.
	StateDraining

	// StateComplete means workers have been joined and resources released.
	StateComplete
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateDraining:
		return "draining"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config holds the coordinator's collaborators and limits.
// Zero values select the defaults documented on each field.
type Config struct {
	// Launcher schedules workers. Nil selects GoLauncher (one goroutine
	// per tile).
	Launcher Launcher

	// Predicate selects the pixels handed to the painter. Nil paints
	// pixels whose count is non-zero.
	Predicate func(count int) bool

	// Compute fills a tile's buffer. Nil selects the escape-time evaluator.
	Compute ComputeFunc

	// Buffers supplies tile output buffers. Nil creates a private pool.
	Buffers *BufferPool

	// StallTimeout bounds each wait for a tile to arrive. Zero waits forever.
	StallTimeout time.Duration

	// JoinTimeout bounds the total time spent joining workers. Zero waits
	// forever.
	JoinTimeout time.Duration
}

// Stats summarizes one coordinator run.
type Stats struct {
	// Tiles is the number of tiles in the grid.
	Tiles int

	// Spawned is the number of worker handles launched.
	Spawned int

	// Joined is the number of handles that finished before the join deadline.
	Joined int

	// Abandoned is the number of handles left running after the deadline.
	Abandoned int

	// Rendered is the number of tiles painted.
	Rendered int

	// Painted is the number of Paint calls.
	Painted int

	// Order lists tile indices in the order they were painted.
	Order []int
}

// Coordinator partitions work across workers and drains their results.
//
// Run moves through Dispatching, Draining and Complete exactly once:
// it launches one worker per tile, paints each tile as soon as it is
// published, then joins every worker.
type Coordinator struct {
	grid     *TileGrid
	painter  Painter
	cfg      Config
	list     *CompletionList
	handles  dynarray.Array[*Handle]
	progress *Progress
	state    atomic.Int32
	ran      atomic.Bool
}

// NewCoordinator creates a coordinator that renders grid into painter.
func NewCoordinator(grid *TileGrid, painter Painter, cfg Config) *Coordinator {
	if cfg.Launcher == nil {
		cfg.Launcher = GoLauncher{}
	}
	if cfg.Predicate == nil {
		cfg.Predicate = func(count int) bool { return count != 0 }
	}
	if cfg.Buffers == nil {
		cfg.Buffers = NewBufferPool()
	}

	return &Coordinator{
		grid:     grid,
		painter:  painter,
		cfg:      cfg,
		list:     NewCompletionList(grid.TileCount()),
		progress: NewProgress(max(grid.TilesX(), 1), max(grid.TilesY(), 1)),
	}
}

// ErrAlreadyRun is returned when Run is called more than once.
var ErrAlreadyRun = errors.New("parallel: coordinator already run")

// State returns the current lifecycle stage. Safe for concurrent use.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Tiles returns the number of tiles in the grid.
func (c *Coordinator) Tiles() int {
	return c.grid.TileCount()
}

// Progress returns the tile completion bitmap. Safe for concurrent use
// while Run is in progress.
func (c *Coordinator) Progress() *Progress {
	return c.progress
}

// Run renders the grid. It returns once every worker has been joined or
// abandoned at the join deadline.
//
// On cancellation, stall or worker failure, Run stops waiting for tiles,
// cancels the workers that have not started, joins the rest and returns
// the cause. Tiles painted before that remain painted.
func (c *Coordinator) Run(ctx context.Context) (Stats, error) {
	if !c.ran.CompareAndSwap(false, true) {
		return Stats{}, ErrAlreadyRun
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tiles := c.grid.AllTiles()
	stats := Stats{Tiles: len(tiles), Order: make([]int, 0, len(tiles))}
	start := time.Now()

	slogger().Info("parallel: render started",
		"width", c.grid.Width(), "height", c.grid.Height(),
		"tiles", len(tiles), "grid", fmt.Sprintf("%dx%d", c.grid.TilesX(), c.grid.TilesY()))

	err := c.dispatch(ctx, tiles)
	stats.Spawned = c.handles.Len()

	if err == nil {
		c.state.Store(int32(StateDraining))
		err = c.drain(ctx, len(tiles), &stats)
	}
	if err != nil {
		cancel()
		slogger().Warn("parallel: render interrupted", "err", err,
			"rendered", stats.Rendered, "tiles", len(tiles))
	}

	c.state.Store(int32(StateComplete))
	joinErr := c.joinAll(&stats)

	c.list.Release(c.cfg.Buffers)
	c.handles.Release()

	slogger().Info("parallel: render finished",
		"rendered", stats.Rendered, "painted", stats.Painted,
		"joined", stats.Joined, "elapsed", time.Since(start))

	return stats, errors.Join(err, joinErr)
}

// dispatch launches one worker per tile and records its handle.
func (c *Coordinator) dispatch(ctx context.Context, tiles []*Tile) error {
	c.state.Store(int32(StateDispatching))
	c.handles.Init(len(tiles))

	for _, t := range tiles {
		w := NewWorker(t, c.list, c.cfg.Buffers, c.cfg.Compute)
		h, err := c.cfg.Launcher.Launch(func() { w.Run(ctx) })
		if err != nil {
			return fmt.Errorf("parallel: launch tile %d: %w", t.Index, err)
		}
		c.handles.Append(h)
	}
	return nil
}

// drain is the consumer loop. It paints every tile once, in the order the
// completion list returns them, until remaining reaches zero.
func (c *Coordinator) drain(ctx context.Context, remaining int, stats *Stats) error {
	var batch []*Job
	for remaining > 0 {
		var err error
		batch, err = c.list.Drain(ctx, c.cfg.StallTimeout, batch[:0])
		if err != nil {
			return err
		}

		// Published buffers belong to the consumer, so painting happens
		// outside the lock.
		for _, job := range batch {
			stats.Painted += c.paint(job)
			stats.Rendered++
			stats.Order = append(stats.Order, job.Tile.Index)
			remaining--
		}
		clear(batch)
	}
	return nil
}

// paint hands the tile's qualifying pixels to the painter and releases its
// buffer. Returns the number of Paint calls.
func (c *Coordinator) paint(job *Job) int {
	t := job.Tile
	w := t.Width()
	pred := c.cfg.Predicate

	painted := 0
	for i, n := range job.Counts {
		if pred(int(n)) {
			c.painter.Paint(t.WPMin+i%w, t.HPMin+i/w)
			painted++
		}
	}

	c.cfg.Buffers.Put(job.Counts)
	job.Counts = nil
	c.progress.Mark(t.Col, t.Row)

	slogger().Debug("parallel: tile painted", "tile", t.Index, "pixels", painted)
	return painted
}

// joinAll joins every launched handle exactly once, sharing one deadline.
func (c *Coordinator) joinAll(stats *Stats) error {
	var deadline time.Time
	if c.cfg.JoinTimeout > 0 {
		deadline = time.Now().Add(c.cfg.JoinTimeout)
	}

	for _, h := range c.handles.All() {
		var wait time.Duration
		if !deadline.IsZero() {
			wait = max(time.Until(deadline), time.Nanosecond)
		}
		if err := h.Join(wait); err != nil {
			stats.Abandoned++
			continue
		}
		stats.Joined++
	}

	if stats.Abandoned > 0 {
		slogger().Warn("parallel: workers abandoned", "count", stats.Abandoned)
		return fmt.Errorf("%w: %d of %d workers still running", ErrJoinTimeout, stats.Abandoned, stats.Spawned)
	}
	return nil
}
