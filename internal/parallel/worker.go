package parallel

import (
	"context"
	"fmt"
)

// ComputeFunc fills dst with the escape-time counts of tile t.
// dst has exactly t.Area() elements.
type ComputeFunc func(t *Tile, dst []int32)

// computeTile is the default ComputeFunc.
func computeTile(t *Tile, dst []int32) {
	t.Compute(dst)
}

// Worker computes exactly one tile and publishes it.
//
// A worker never paints, never touches another tile's buffer, and does
// nothing after it has published.
type Worker struct {
	tile    *Tile
	list    *CompletionList
	buffers *BufferPool
	compute ComputeFunc
}

// NewWorker creates a worker for tile t. A nil compute selects the
// escape-time evaluator.
func NewWorker(t *Tile, list *CompletionList, buffers *BufferPool, compute ComputeFunc) *Worker {
	if compute == nil {
		compute = computeTile
	}
	return &Worker{
		tile:    t,
		list:    list,
		buffers: buffers,
		compute: compute,
	}
}

// Run computes the tile into a fresh buffer and publishes it.
//
// Cancellation is checked once, before computing. A cancelled worker
// reports itself abandoned. A worker whose computation panics (including
// allocation failure) reports a failure; its partial buffer is discarded and
// never published.
func (w *Worker) Run(ctx context.Context) {
	if ctx.Err() != nil {
		w.list.Abandon(w.tile)
		return
	}

	counts, err := w.run()
	if err != nil {
		slogger().Warn("parallel: tile failed", "tile", w.tile.Index, "err", err)
		w.list.Fail(w.tile, err)
		return
	}

	w.list.Publish(w.tile, counts)
	slogger().Debug("parallel: tile published", "tile", w.tile.Index, "pixels", len(counts))
}

// run allocates the output buffer and fills it, converting a panic into
// an error.
func (w *Worker) run() (counts []int32, err error) {
	defer func() {
		if r := recover(); r != nil {
			if counts != nil {
				w.buffers.Put(counts)
			}
			counts = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	counts = w.buffers.Get(w.tile.Area())
	if counts == nil {
		return nil, fmt.Errorf("empty tile %dx%d", w.tile.Width(), w.tile.Height())
	}
	w.compute(w.tile, counts)
	return counts, nil
}
