// Package fractal renders escape-time fractals progressively.
//
// # Overview
//
// The image is cut into tiles. Every tile is computed by its own worker and
// published to a shared completion list the moment it is ready; a single
// consumer drains that list and paints each finished tile while the rest are
// still being computed. Output therefore appears tile by tile, in completion
// order, rather than all at once.
//
// # Quick Start
//
//	import "github.com/gogpu/fractal"
//
//	canvas := fractal.NewCanvas(1000, 1000)
//	stats, err := fractal.Render(ctx, canvas,
//	    fractal.WithIterations(200),
//	    fractal.WithGrid(8, 8),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = canvas.Save("mandelbrot.png")
//
// # Painters and Predicates
//
// Render calls Painter.Paint once for every pixel whose escape count
// satisfies the configured predicate. [Escaped] (the default) selects pixels
// that left the escape radius after at least one iteration; [Bounded]
// selects the complement. Paint is always called from the goroutine that
// called Render, so painters need no locking.
//
// # Scheduling
//
// By default one goroutine is started per tile. [WithWorkers] switches to a
// bounded work-stealing pool; the result is identical.
//
// # Coordinate System
//
// Pixel (0,0) is the top-left corner and maps to (XMin, YMin) in the complex
// plane. X grows right, Y grows down, and a pixel's plane coordinate depends
// only on its position in the full image, never on the tile it falls in.
package fractal

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
