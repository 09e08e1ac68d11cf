package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// pixelPainter records how many times each pixel was painted.
type pixelPainter struct {
	width  int
	counts []int
	calls  int
}

func newPixelPainter(width, height int) *pixelPainter {
	return &pixelPainter{width: width, counts: make([]int, width*height)}
}

func (p *pixelPainter) Paint(x, y int) {
	p.counts[y*p.width+x]++
	p.calls++
}

// paintFunc adapts a function to Painter.
type paintFunc func(x, y int)

func (f paintFunc) Paint(x, y int) { f(x, y) }

func always(int) bool { return true }

// countingLauncher tracks how many launched workers are still running.
type countingLauncher struct {
	inner    Launcher
	active   atomic.Int64
	launched atomic.Int64
}

func (l *countingLauncher) Launch(fn func()) (*Handle, error) {
	l.launched.Add(1)
	return l.inner.Launch(func() {
		l.active.Add(1)
		defer l.active.Add(-1)
		fn()
	})
}

// failingLauncher refuses every launch after the first n.
type failingLauncher struct {
	n     int
	count int
}

var errLaunch = errors.New("launch refused")

func (l *failingLauncher) Launch(fn func()) (*Handle, error) {
	l.count++
	if l.count > l.n {
		return nil, errLaunch
	}
	return GoLauncher{}.Launch(fn)
}

// =============================================================================
// End-to-end Tests
// =============================================================================

func TestCoordinator_SingleIterationTable(t *testing.T) {
	// With a cap of 1 only the starting point c is tested; every pixel of
	// [-1,1]x[-1,1] has |c|^2 <= 2, so nothing escapes.
	g := NewTileGrid(testFrame(1), 2, 2)
	if g.TileCount() != 4 {
		t.Fatalf("TileCount() = %d, want 4", g.TileCount())
	}

	escaped := newPixelPainter(4, 4)
	if _, err := NewCoordinator(g, escaped, Config{}).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if escaped.calls != 0 {
		t.Errorf("escaped predicate painted %d pixels, want 0", escaped.calls)
	}

	bounded := newPixelPainter(4, 4)
	cfg := Config{Predicate: func(n int) bool { return n == 0 }}
	if _, err := NewCoordinator(g, bounded, cfg).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i, n := range bounded.counts {
		if n != 1 {
			t.Errorf("pixel (%d,%d) painted %d times, want 1", i%4, i/4, n)
		}
	}
}

func TestCoordinator_EightIterationTable(t *testing.T) {
	want := [16]int32{
		2, 3, 0, 1,
		4, 0, 0, 4,
		0, 0, 0, 4,
		4, 0, 0, 4,
	}

	g := NewTileGrid(testFrame(8), 2, 2)
	p := newPixelPainter(4, 4)
	stats, err := NewCoordinator(g, p, Config{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i, n := range p.counts {
		wantPaint := 0
		if want[i] != 0 {
			wantPaint = 1
		}
		if n != wantPaint {
			t.Errorf("pixel (%d,%d) painted %d times, want %d (count %d)", i%4, i/4, n, wantPaint, want[i])
		}
	}
	if stats.Painted != p.calls {
		t.Errorf("Stats.Painted = %d, want %d", stats.Painted, p.calls)
	}
}

func TestCoordinator_EachTilePaintedOnce(t *testing.T) {
	f := Frame{Width: 97, Height: 61, XMin: -2, XMax: 0.05, YMin: -1.25, YMax: 1.25, MaxIter: 40}
	g := NewTileGrid(f, 5, 3)
	p := newPixelPainter(f.Width, f.Height)

	stats, err := NewCoordinator(g, p, Config{Predicate: always}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i, n := range p.counts {
		if n != 1 {
			t.Fatalf("pixel (%d,%d) painted %d times, want 1", i%f.Width, i/f.Width, n)
		}
	}

	seen := make(map[int]bool)
	for _, idx := range stats.Order {
		if seen[idx] {
			t.Errorf("tile %d painted twice", idx)
		}
		seen[idx] = true
	}
	if len(seen) != g.TileCount() || stats.Rendered != g.TileCount() {
		t.Errorf("rendered %d distinct tiles (Stats.Rendered=%d), want %d", len(seen), stats.Rendered, g.TileCount())
	}
	if stats.Painted != f.Width*f.Height {
		t.Errorf("Stats.Painted = %d, want %d", stats.Painted, f.Width*f.Height)
	}
}

func TestCoordinator_PaintedCountPerTileMatchesArea(t *testing.T) {
	f := Frame{Width: 50, Height: 30, XMin: -2, XMax: 1, YMin: -1, YMax: 1, MaxIter: 20}
	g := NewTileGrid(f, 4, 3)

	perTile := make(map[int]int)
	p := paintFunc(func(x, y int) {
		perTile[g.TileAtPixel(x, y).Index]++
	})

	if _, err := NewCoordinator(g, p, Config{Predicate: always}).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	g.ForEach(func(tile *Tile) {
		if perTile[tile.Index] != tile.Area() {
			t.Errorf("tile %d painted %d pixels, want %d", tile.Index, perTile[tile.Index], tile.Area())
		}
	})
}

// =============================================================================
// Incremental Drain Tests
// =============================================================================

// staggeredLauncher holds back every worker after the first until the
// first tile has been painted.
type staggeredLauncher struct {
	mu       sync.Mutex
	events   []string
	gate     chan struct{}
	launches int
}

func (l *staggeredLauncher) record(ev string) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *staggeredLauncher) Launch(fn func()) (*Handle, error) {
	l.launches++
	h := newHandle()
	if l.launches == 1 {
		go func() {
			defer h.finish()
			fn()
		}()
		return h, nil
	}
	go func() {
		defer h.finish()
		<-l.gate
		l.record("start B")
		fn()
	}()
	return h, nil
}

func TestCoordinator_PaintsTilesAsTheyComplete(t *testing.T) {
	f := Frame{Width: 8, Height: 4, XMin: -1, XMax: 1, YMin: -1, YMax: 1, MaxIter: 4}
	g := NewTileGrid(f, 2, 1)
	tileA := g.TileAt(0, 0)

	launcher := &staggeredLauncher{gate: make(chan struct{})}
	var paintedA, paintedB bool
	p := paintFunc(func(x, y int) {
		if tileA.Contains(x, y) {
			if !paintedA {
				paintedA = true
				launcher.record("paint A")
				close(launcher.gate)
			}
			return
		}
		if !paintedB {
			paintedB = true
			launcher.record("paint B")
		}
	})

	cfg := Config{
		Launcher:     launcher,
		Predicate:    always,
		StallTimeout: 5 * time.Second, // a non-incremental drain would stall here
	}
	if _, err := NewCoordinator(g, p, cfg).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"paint A", "start B", "paint B"}
	if len(launcher.events) != len(want) {
		t.Fatalf("events = %v, want %v", launcher.events, want)
	}
	for i := range want {
		if launcher.events[i] != want[i] {
			t.Errorf("events = %v, want %v", launcher.events, want)
			break
		}
	}
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestCoordinator_JoinsEveryWorker(t *testing.T) {
	f := Frame{Width: 64, Height: 64, XMin: -2, XMax: 1, YMin: -1.5, YMax: 1.5, MaxIter: 50}
	g := NewTileGrid(f, 4, 4)
	launcher := &countingLauncher{inner: GoLauncher{}}

	stats, err := NewCoordinator(g, newPixelPainter(64, 64), Config{Launcher: launcher}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.Spawned != g.TileCount() {
		t.Errorf("Stats.Spawned = %d, want %d", stats.Spawned, g.TileCount())
	}
	if stats.Joined != g.TileCount() || stats.Abandoned != 0 {
		t.Errorf("Stats.Joined = %d, Abandoned = %d, want %d, 0", stats.Joined, stats.Abandoned, g.TileCount())
	}
	if n := launcher.active.Load(); n != 0 {
		t.Errorf("%d workers still running after Run returned", n)
	}
	if n := launcher.launched.Load(); n != int64(g.TileCount()) {
		t.Errorf("launched %d workers, want %d", n, g.TileCount())
	}
}

func TestCoordinator_States(t *testing.T) {
	g := NewTileGrid(testFrame(8), 2, 2)

	var c *Coordinator
	var during State
	p := paintFunc(func(int, int) { during = c.State() })
	c = NewCoordinator(g, p, Config{Predicate: always})

	if c.State() != StateIdle {
		t.Errorf("State() before Run = %v, want idle", c.State())
	}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if during != StateDraining {
		t.Errorf("State() while painting = %v, want draining", during)
	}
	if c.State() != StateComplete {
		t.Errorf("State() after Run = %v, want complete", c.State())
	}
	if !c.Progress().Done() {
		t.Errorf("Progress() = %d/%d after Run", c.Progress().Count(), c.Progress().Total())
	}
}

func TestCoordinator_RunTwice(t *testing.T) {
	c := NewCoordinator(NewTileGrid(testFrame(1), 1, 1), newPixelPainter(4, 4), Config{})
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if _, err := c.Run(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRun", err)
	}
}

func TestCoordinator_ReleasesBuffers(t *testing.T) {
	pool := NewBufferPool()
	f := Frame{Width: 40, Height: 40, XMin: -2, XMax: 1, YMin: -1.5, YMax: 1.5, MaxIter: 30}
	g := NewTileGrid(f, 5, 5)

	if _, err := NewCoordinator(g, newPixelPainter(40, 40), Config{Buffers: pool}).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n := pool.Outstanding(); n != 0 {
		t.Errorf("%d buffers not released after Run", n)
	}
}

func TestCoordinator_WorkerPoolMatchesGoroutines(t *testing.T) {
	f := Frame{Width: 120, Height: 90, XMin: -2, XMax: 0.05, YMin: -1.25, YMax: 1.25, MaxIter: 60}

	direct := newPixelPainter(f.Width, f.Height)
	if _, err := NewCoordinator(NewTileGridSized(f, 32, 32), direct, Config{}).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	pool := NewWorkerPool(2)
	defer pool.Close()
	pooled := newPixelPainter(f.Width, f.Height)
	stats, err := NewCoordinator(NewTileGridSized(f, 32, 32), pooled, Config{Launcher: pool}).Run(context.Background())
	if err != nil {
		t.Fatalf("pooled Run() error = %v", err)
	}

	for i := range direct.counts {
		if direct.counts[i] != pooled.counts[i] {
			t.Fatalf("pixel (%d,%d): goroutines %d, pool %d", i%f.Width, i/f.Width, direct.counts[i], pooled.counts[i])
		}
	}
	if stats.Joined != stats.Tiles {
		t.Errorf("Stats.Joined = %d, want %d", stats.Joined, stats.Tiles)
	}
}

// =============================================================================
// Failure Tests
// =============================================================================

func TestCoordinator_StalledWorker(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	g := NewTileGrid(testFrame(8), 2, 2)
	cfg := Config{
		Predicate: always,
		Compute: func(tile *Tile, dst []int32) {
			if tile.Index == 3 {
				<-block
			}
			tile.Compute(dst)
		},
		StallTimeout: 50 * time.Millisecond,
		JoinTimeout:  50 * time.Millisecond,
	}

	stats, err := NewCoordinator(g, newPixelPainter(4, 4), cfg).Run(context.Background())
	if !errors.Is(err, ErrStalled) {
		t.Errorf("Run() error = %v, want ErrStalled", err)
	}
	if !errors.Is(err, ErrJoinTimeout) {
		t.Errorf("Run() error = %v, want ErrJoinTimeout", err)
	}
	if stats.Rendered != 3 {
		t.Errorf("Stats.Rendered = %d, want 3", stats.Rendered)
	}
	if stats.Abandoned != 1 || stats.Joined != 3 {
		t.Errorf("Stats.Joined = %d, Abandoned = %d, want 3, 1", stats.Joined, stats.Abandoned)
	}
}

func TestCoordinator_PanickingWorker(t *testing.T) {
	pool := NewBufferPool()
	g := NewTileGrid(testFrame(8), 2, 2)
	cfg := Config{
		Buffers: pool,
		Compute: func(tile *Tile, dst []int32) {
			if tile.Index == 1 {
				panic("out of memory")
			}
			tile.Compute(dst)
		},
	}

	p := newPixelPainter(4, 4)
	stats, err := NewCoordinator(g, p, cfg).Run(context.Background())
	if !errors.Is(err, ErrWorkerFailed) {
		t.Fatalf("Run() error = %v, want ErrWorkerFailed", err)
	}
	if stats.Rendered != 3 {
		t.Errorf("Stats.Rendered = %d, want 3 (healthy tiles still painted)", stats.Rendered)
	}
	failed := g.AllTiles()[1]
	for py := failed.HPMin; py < failed.HPMax; py++ {
		for px := failed.WPMin; px < failed.WPMax; px++ {
			if p.counts[py*4+px] != 0 {
				t.Errorf("pixel (%d,%d) of failed tile was painted", px, py)
			}
		}
	}
	if n := pool.Outstanding(); n != 0 {
		t.Errorf("%d buffers leaked", n)
	}
}

func TestCoordinator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewTileGrid(testFrame(8), 2, 2)
	stats, err := NewCoordinator(g, newPixelPainter(4, 4), Config{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if stats.Rendered != 0 {
		t.Errorf("Stats.Rendered = %d, want 0", stats.Rendered)
	}
	if stats.Joined != stats.Spawned {
		t.Errorf("Stats.Joined = %d, want %d", stats.Joined, stats.Spawned)
	}
}

func TestCoordinator_LaunchFailure(t *testing.T) {
	g := NewTileGrid(testFrame(8), 2, 2)
	stats, err := NewCoordinator(g, newPixelPainter(4, 4), Config{Launcher: &failingLauncher{n: 2}}).Run(context.Background())
	if !errors.Is(err, errLaunch) {
		t.Errorf("Run() error = %v, want launch error", err)
	}
	if stats.Spawned != 2 || stats.Joined != 2 {
		t.Errorf("Stats.Spawned = %d, Joined = %d, want 2, 2", stats.Spawned, stats.Joined)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateDispatching, "dispatching"},
		{StateDraining, "draining"},
		{StateComplete, "complete"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int32(tt.state), got, tt.want)
		}
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func benchmarkFrame() Frame {
	return Frame{Width: 256, Height: 256, XMin: -2, XMax: 0.05, YMin: -1.25, YMax: 1.25, MaxIter: 80}
}

func BenchmarkCoordinator_GoLauncher(b *testing.B) {
	f := benchmarkFrame()
	p := paintFunc(func(int, int) {})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g := NewTileGrid(f, 8, 8)
		if _, err := NewCoordinator(g, p, Config{}).Run(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCoordinator_WorkerPool(b *testing.B) {
	f := benchmarkFrame()
	p := paintFunc(func(int, int) {})
	pool := NewWorkerPool(0)
	defer pool.Close()
	buffers := NewBufferPool()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g := NewTileGrid(f, 8, 8)
		cfg := Config{Launcher: pool, Buffers: buffers}
		if _, err := NewCoordinator(g, p, cfg).Run(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
