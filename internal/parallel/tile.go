// Package parallel implements the tile pipeline behind progressive
// escape-time rendering.
//
// An image is divided into rectangular tiles that are computed
// independently, each on its own worker. Workers publish finished tiles to a
// CompletionList; a single Coordinator drains that list incrementally and
// hands pixels to a Painter, so tiles appear as soon as they finish rather
// than when the whole image is done.
//
// Thread safety: TileGrid and Tile are immutable after construction.
// CompletionList, BufferPool, WorkerPool and Progress are safe for concurrent
// use. A Coordinator runs once, from a single goroutine.
package parallel

import "github.com/gogpu/fractal/internal/escape"

// Default tile size used by NewTileGridSized when a non-positive size is given.
const (
	// TileWidth is the default tile width in pixels.
	TileWidth = 64

	// TileHeight is the default tile height in pixels.
	TileHeight = 64

	// TilePixels is the number of pixels in a full default-size tile.
	TilePixels = TileWidth * TileHeight
)

// Frame describes the full image: its pixel size, the rectangle of the
// complex plane it covers, and the iteration cap.
type Frame struct {
	Width, Height int
	XMin, XMax    float64
	YMin, YMax    float64
	MaxIter       int
}

// Step returns the plane distance between adjacent pixels on each axis.
// It is derived from the global bounds so that a pixel's plane coordinate
// depends only on its global position.
func (f Frame) Step() (dx, dy float64) {
	return (f.XMax - f.XMin) / float64(f.Width), (f.YMax - f.YMin) / float64(f.Height)
}

// Tile describes one rectangular region of the image.
//
// The pixel rectangle is half-open: columns [WPMin, WPMax) and rows
// [HPMin, HPMax). A tile's output buffer is stored row-major in tile-local
// coordinates.
type Tile struct {
	// Index is the position of the tile in its grid (row-major).
	Index int

	// Col and Row are the tile's grid coordinates.
	Col, Row int

	// XMin and YMin are the plane coordinates of global pixel (0, 0).
	XMin, YMin float64

	// Dx and Dy are the plane step sizes per pixel.
	Dx, Dy float64

	// MaxIter is the iteration cap handed to the evaluator.
	MaxIter int

	// WPMin, WPMax, HPMin and HPMax bound the tile in pixel space.
	WPMin, WPMax int
	HPMin, HPMax int
}

// Width returns the tile width in pixels.
func (t *Tile) Width() int {
	return t.WPMax - t.WPMin
}

// Height returns the tile height in pixels.
func (t *Tile) Height() int {
	return t.HPMax - t.HPMin
}

// Area returns the number of pixels in the tile, which is also the length
// of its output buffer.
func (t *Tile) Area() int {
	return t.Width() * t.Height()
}

// Bounds returns the pixel bounds of this tile in image space.
// Returns (x, y, width, height) where x,y is the top-left corner.
func (t *Tile) Bounds() (x, y, w, h int) {
	return t.WPMin, t.HPMin, t.Width(), t.Height()
}

// Contains returns true if the image-space pixel (px, py) is within this tile.
func (t *Tile) Contains(px, py int) bool {
	return px >= t.WPMin && px < t.WPMax && py >= t.HPMin && py < t.HPMax
}

// LocalIndex returns the buffer index of image-space pixel (px, py).
// Returns -1 if the pixel is not within this tile.
func (t *Tile) LocalIndex(px, py int) int {
	if !t.Contains(px, py) {
		return -1
	}
	return (py-t.HPMin)*t.Width() + (px - t.WPMin)
}

// Global translates a buffer index into image-space pixel coordinates.
func (t *Tile) Global(i int) (px, py int) {
	w := t.Width()
	return t.WPMin + i%w, t.HPMin + i/w
}

// Point returns the plane coordinate of image-space pixel (px, py).
func (t *Tile) Point(px, py int) (creal, cimag float64) {
	return t.XMin + float64(px)*t.Dx, t.YMin + float64(py)*t.Dy
}

// Compute evaluates every pixel of the tile into dst, which must hold at
// least Area() elements.
func (t *Tile) Compute(dst []int32) {
	w := t.Width()
	for j := range t.Height() {
		py := t.HPMin + j
		cimag := t.YMin + float64(py)*t.Dy
		escape.EvaluateRow(dst[j*w:(j+1)*w], t.XMin, t.Dx, t.WPMin, cimag, t.MaxIter)
	}
}
