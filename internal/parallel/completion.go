package parallel

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/fractal/internal/dynarray"
)

// ErrStalled is returned by the drain when no worker publishes anything
// within the stall timeout.
var ErrStalled = errors.New("parallel: no tile completed within stall timeout")

// ErrWorkerFailed is returned when a worker could not produce its tile.
var ErrWorkerFailed = errors.New("parallel: worker failed")

// Job is the completed-job record for one tile.
//
// A worker creates the Job when it publishes; from then on only the
// consumer touches it. Rendered flips from false to true exactly once,
// under the CompletionList lock.
type Job struct {
	Tile     *Tile
	Counts   []int32
	Rendered bool
}

// CompletionList is the shared collection of finished tiles.
//
// Workers append to it; a single consumer scans it for unrendered jobs.
// Every append signals the paired condition variable so a waiting consumer
// wakes up. Jobs are kept in insertion order.
//
// Thread safety: all methods are safe for concurrent use. The consumer-side
// methods (Drain, Release) must be called from one goroutine.
type CompletionList struct {
	mu   sync.Mutex
	cond *sync.Cond

	jobs     dynarray.Array[*Job]
	failures dynarray.Array[error]

	// next is the index of the first job not yet returned by Drain.
	next int

	// abandoned counts workers that gave up because of cancellation.
	abandoned int

	// expected is the number of workers that will report to the list.
	expected int

	// gen increases on every state change a waiting consumer cares about.
	gen uint64
}

// NewCompletionList creates an empty list expecting one report (publish,
// failure or abandon) from each of workers workers.
func NewCompletionList(workers int) *CompletionList {
	l := &CompletionList{expected: workers}
	l.cond = sync.NewCond(&l.mu)
	l.jobs.Init(workers)
	l.failures.Init(1)
	return l
}

// Publish appends a finished tile and wakes the consumer.
// counts must be fully populated; ownership passes to the list.
func (l *CompletionList) Publish(t *Tile, counts []int32) {
	l.mu.Lock()
	l.jobs.Append(&Job{Tile: t, Counts: counts})
	l.gen++
	l.cond.Signal()
	l.mu.Unlock()
}

// Fail records that the worker for t could not produce its tile.
func (l *CompletionList) Fail(t *Tile, err error) {
	l.mu.Lock()
	l.failures.Append(fmt.Errorf("%w: tile %d: %w", ErrWorkerFailed, t.Index, err))
	l.gen++
	l.cond.Signal()
	l.mu.Unlock()
}

// Abandon records that the worker for t exited without computing because
// its context was cancelled.
func (l *CompletionList) Abandon(*Tile) {
	l.mu.Lock()
	l.abandoned++
	l.gen++
	l.cond.Signal()
	l.mu.Unlock()
}

// Len returns the number of published jobs.
func (l *CompletionList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jobs.Len()
}

// Abandoned returns the number of workers that skipped their tile.
func (l *CompletionList) Abandoned() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.abandoned
}

// Drain performs one consumer pass. Under the lock it collects every job
// not yet rendered, in insertion order, marks it rendered and appends it to
// dst. If nothing new is found it blocks on the condition variable, still
// holding the lock, until a worker publishes, fails or abandons, the
// context is done, or stall elapses (a non-positive stall waits forever).
//
// A pass that woke up without new jobs returns an empty batch and a nil
// error; the caller simply drains again. Worker failures are reported once
// every expected worker has reported and every published job has been
// returned, so healthy tiles are never lost to a failed neighbour. A stall
// or cancellation while failures are pending reports both.
func (l *CompletionList) Drain(ctx context.Context, stall time.Duration, dst []*Job) ([]*Job, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	jobs := l.jobs.All()
	for _, job := range jobs[l.next:] {
		if !job.Rendered {
			job.Rendered = true
			dst = append(dst, job)
		}
	}
	l.next = len(jobs)

	if len(dst) > 0 {
		return dst, nil
	}
	if l.failures.Len() > 0 && l.settled() {
		return dst, errors.Join(l.failures.All()...)
	}

	err := l.wait(ctx, stall)
	if err != nil && l.failures.Len() > 0 {
		err = errors.Join(append(slices.Clone(l.failures.All()), err)...)
	}
	return dst, err
}

// settled reports whether every expected worker has reported.
// The caller must hold l.mu.
func (l *CompletionList) settled() bool {
	return l.jobs.Len()+l.failures.Len()+l.abandoned >= l.expected
}

// wait blocks on the condition variable until gen changes.
// The caller must hold l.mu.
func (l *CompletionList) wait(ctx context.Context, stall time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gen := l.gen
	expired := false

	if stall > 0 {
		timer := time.AfterFunc(stall, func() {
			l.mu.Lock()
			expired = true
			l.cond.Signal()
			l.mu.Unlock()
		})
		defer timer.Stop()
	}

	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Signal()
		l.mu.Unlock()
	})
	defer stop()

	for gen == l.gen && !expired && ctx.Err() == nil {
		l.cond.Wait()
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if gen == l.gen && expired {
		return fmt.Errorf("%w (%v)", ErrStalled, stall)
	}
	return nil
}

// Release returns the buffers of jobs that were never rendered to pool and
// empties the list. Rendered jobs are expected to have released their
// buffers already.
func (l *CompletionList) Release(pool *BufferPool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, job := range l.jobs.All() {
		if !job.Rendered && job.Counts != nil {
			pool.Put(job.Counts)
			job.Counts = nil
		}
	}
	l.jobs.Release()
	l.failures.Release()
	l.next = 0
}
