package fractal

import (
	"errors"

	"github.com/gogpu/fractal/internal/parallel"
)

// Errors returned by Render and Config.Validate.
var (
	// ErrInvalidConfig is returned when a Config fails validation.
	// The wrapping error names the offending field.
	ErrInvalidConfig = errors.New("fractal: invalid config")

	// ErrUnknownFormat is returned when an output file extension does not
	// map to a supported image encoder.
	ErrUnknownFormat = errors.New("fractal: unknown image format")

	// ErrStalled is returned when no tile completes within the stall
	// timeout.
	ErrStalled = parallel.ErrStalled

	// ErrWorkerFailed is returned when a worker could not produce its tile.
	ErrWorkerFailed = parallel.ErrWorkerFailed

	// ErrJoinTimeout is returned when workers are still running after the
	// join timeout.
	ErrJoinTimeout = parallel.ErrJoinTimeout
)
