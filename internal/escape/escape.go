// Package escape implements the escape-time evaluator for the quadratic
// map z -> z*z + c.
//
// The evaluator is a pure function: it holds no state and is safe to call
// from any number of goroutines.
package escape

// NotEscaped is returned by Evaluate when the orbit stays bounded for the
// whole iteration budget. It is indistinguishable from an escape at
// iteration 0; use Escape when the difference matters.
const NotEscaped = 0

// EscapeRadiusSq is the squared escape radius. An orbit whose squared
// magnitude exceeds it is guaranteed to diverge.
const EscapeRadiusSq = 4.0

// Escape iterates z -> z*z + c starting at z = c and reports the first
// iteration n in [0, maxIter) at which |z|^2 > 4.
// escaped is false when no such iteration exists; n is then NotEscaped.
func Escape(creal, cimag float64, maxIter int) (n int, escaped bool) {
	zr, zi := creal, cimag
	for n = 0; n < maxIter; n++ {
		zr2 := zr * zr
		zi2 := zi * zi
		if zr2+zi2 > EscapeRadiusSq {
			return n, true
		}
		zi = 2*zr*zi + cimag
		zr = zr2 - zi2 + creal
	}
	return NotEscaped, false
}

// Evaluate returns the escape iteration of c = creal + i*cimag, or
// NotEscaped when the orbit does not escape within maxIter iterations.
func Evaluate(creal, cimag float64, maxIter int) int {
	n, _ := Escape(creal, cimag, maxIter)
	return n
}

// EvaluateRow evaluates len(dst) consecutive pixels of one image row.
// The k-th result is the escape iteration of
// c = (xmin + (first+k)*dx) + i*cimag, so a pixel's plane coordinate depends
// only on its global column index.
func EvaluateRow(dst []int32, xmin, dx float64, first int, cimag float64, maxIter int) {
	for k := range dst {
		creal := xmin + float64(first+k)*dx
		dst[k] = int32(Evaluate(creal, cimag, maxIter)) //nolint:gosec // bounded by maxIter
	}
}
