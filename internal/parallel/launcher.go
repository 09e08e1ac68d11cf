package parallel

import (
	"errors"
	"sync/atomic"
	"time"
)

// ErrJoinTimeout is returned when a worker does not finish before the join
// deadline. The worker is abandoned, not stopped.
var ErrJoinTimeout = errors.New("parallel: worker join timed out")

// ErrPoolClosed is returned when work is launched on a closed WorkerPool.
var ErrPoolClosed = errors.New("parallel: worker pool is closed")

// Handle identifies one launched unit of work and lets the launcher wait
// for it to finish.
type Handle struct {
	id   int
	done chan struct{}
}

// nextHandleID numbers handles across all launchers.
var nextHandleID atomic.Int64

func newHandle() *Handle {
	return &Handle{
		id:   int(nextHandleID.Add(1)),
		done: make(chan struct{}),
	}
}

// finish marks the work as complete. Called exactly once by the launcher.
func (h *Handle) finish() {
	close(h.done)
}

// ID returns the handle's process-unique identifier.
func (h *Handle) ID() int {
	return h.id
}

// Done returns a channel closed when the work has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Join waits for the work to return. A non-positive timeout waits forever.
// Returns ErrJoinTimeout if the timeout elapses first.
func (h *Handle) Join(timeout time.Duration) error {
	if timeout <= 0 {
		<-h.done
		return nil
	}

	select {
	case <-h.done:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return nil
	case <-timer.C:
		return ErrJoinTimeout
	}
}

// Launcher schedules work for independent execution and returns a handle
// that can be joined.
type Launcher interface {
	Launch(fn func()) (*Handle, error)
}

// GoLauncher runs every unit of work on its own goroutine.
// There is no limit on concurrency.
type GoLauncher struct{}

// Launch starts fn on a new goroutine.
func (GoLauncher) Launch(fn func()) (*Handle, error) {
	h := newHandle()
	go func() {
		defer h.finish()
		fn()
	}()
	return h, nil
}
