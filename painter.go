package fractal

import "github.com/gogpu/fractal/internal/parallel"

// Painter receives the pixels selected by a render.
//
// Paint is called once per selected pixel, always from the goroutine that
// called Render. x is in [0, Width) and y is in [0, Height).
type Painter = parallel.Painter

// PainterFunc adapts an ordinary function to the Painter interface.
type PainterFunc func(x, y int)

// Paint calls f(x, y).
func (f PainterFunc) Paint(x, y int) { f(x, y) }

// Predicate decides whether a pixel with the given escape count is painted.
type Predicate func(count int) bool

// Escaped selects pixels whose orbit escaped after at least one iteration.
// This is the default predicate.
func Escaped(count int) bool { return count != 0 }

// Bounded selects pixels that never escaped, together with those that
// escaped on the first test.
func Bounded(count int) bool { return count == 0 }

// Any selects every pixel.
func Any(int) bool { return true }

// AtLeast returns a predicate selecting pixels that took at least n
// iterations to escape.
func AtLeast(n int) Predicate {
	return func(count int) bool { return count >= n }
}
