package fractal

import (
	"fmt"
	"math"
	"time"

	"github.com/gogpu/fractal/internal/parallel"
)

// Default render parameters.
const (
	DefaultWidth   = 1000
	DefaultHeight  = 1000
	DefaultXMin    = -2.0
	DefaultXMax    = 0.05
	DefaultYMin    = -1.25
	DefaultYMax    = 1.25
	DefaultMaxIter = 80
	DefaultTiles   = 4
)

// Config describes one render.
//
// The image is Width x Height pixels mapped onto the plane rectangle
// [XMin, XMax) x [YMin, YMax). It is split into TilesX x TilesY near-equal
// tiles, or into TileSize x TileSize tiles when TileSize is set.
type Config struct {
	Width  int
	Height int

	XMin, XMax float64
	YMin, YMax float64

	// MaxIter is the iteration cap per pixel.
	MaxIter int

	// TilesX and TilesY set the grid dimensions. Values larger than the
	// image are clamped.
	TilesX, TilesY int

	// TileSize, when positive, overrides TilesX and TilesY with square
	// tiles of this many pixels. Edge tiles may be smaller.
	TileSize int

	// Workers, when positive, bounds the number of tiles computed at once.
	// Zero starts one goroutine per tile.
	Workers int

	// Predicate selects painted pixels. Nil means Escaped.
	Predicate Predicate

	// StallTimeout bounds each wait for the next tile. Zero waits forever.
	StallTimeout time.Duration

	// JoinTimeout bounds the time spent joining workers at shutdown.
	// Zero waits forever.
	JoinTimeout time.Duration
}

// DefaultConfig returns the reference render: a 1000x1000 view of
// [-2, 0.05] x [-1.25, 1.25] at 80 iterations on a 4x4 grid.
func DefaultConfig() Config {
	return Config{
		Width:   DefaultWidth,
		Height:  DefaultHeight,
		XMin:    DefaultXMin,
		XMax:    DefaultXMax,
		YMin:    DefaultYMin,
		YMax:    DefaultYMax,
		MaxIter: DefaultMaxIter,
		TilesX:  DefaultTiles,
		TilesY:  DefaultTiles,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: size %dx%d must be positive", ErrInvalidConfig, c.Width, c.Height)
	case !finite(c.XMin, c.XMax, c.YMin, c.YMax):
		return fmt.Errorf("%w: bounds must be finite", ErrInvalidConfig)
	case c.XMin >= c.XMax:
		return fmt.Errorf("%w: xmin %g must be less than xmax %g", ErrInvalidConfig, c.XMin, c.XMax)
	case c.YMin >= c.YMax:
		return fmt.Errorf("%w: ymin %g must be less than ymax %g", ErrInvalidConfig, c.YMin, c.YMax)
	case c.MaxIter < 0:
		return fmt.Errorf("%w: max iterations %d must not be negative", ErrInvalidConfig, c.MaxIter)
	case c.TilesX < 0 || c.TilesY < 0:
		return fmt.Errorf("%w: grid %dx%d must not be negative", ErrInvalidConfig, c.TilesX, c.TilesY)
	case c.TileSize < 0:
		return fmt.Errorf("%w: tile size %d must not be negative", ErrInvalidConfig, c.TileSize)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d must not be negative", ErrInvalidConfig, c.Workers)
	case c.StallTimeout < 0 || c.JoinTimeout < 0:
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// frame returns the plane mapping of the config.
func (c Config) frame() parallel.Frame {
	return parallel.Frame{
		Width:   c.Width,
		Height:  c.Height,
		XMin:    c.XMin,
		XMax:    c.XMax,
		YMin:    c.YMin,
		YMax:    c.YMax,
		MaxIter: c.MaxIter,
	}
}

// grid partitions the frame. A zero grid dimension falls back to
// DefaultTiles.
func (c Config) grid() *parallel.TileGrid {
	f := c.frame()
	if c.TileSize > 0 {
		return parallel.NewTileGridSized(f, c.TileSize, c.TileSize)
	}
	tx, ty := c.TilesX, c.TilesY
	if tx == 0 {
		tx = DefaultTiles
	}
	if ty == 0 {
		ty = DefaultTiles
	}
	return parallel.NewTileGrid(f, tx, ty)
}

// Option configures a render.
//
// Example:
//
//	fractal.Render(ctx, canvas,
//	    fractal.WithSize(1920, 1080),
//	    fractal.WithBounds(-0.75, -0.73, 0.1, 0.12),
//	    fractal.WithIterations(1000),
//	)
type Option func(*Config)

// WithSize sets the image size in pixels.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithBounds sets the plane rectangle mapped onto the image.
func WithBounds(xmin, xmax, ymin, ymax float64) Option {
	return func(c *Config) {
		c.XMin, c.XMax = xmin, xmax
		c.YMin, c.YMax = ymin, ymax
	}
}

// WithIterations sets the iteration cap per pixel.
func WithIterations(n int) Option {
	return func(c *Config) {
		c.MaxIter = n
	}
}

// WithGrid splits the image into tilesX x tilesY near-equal tiles and
// clears any TileSize.
func WithGrid(tilesX, tilesY int) Option {
	return func(c *Config) {
		c.TilesX, c.TilesY = tilesX, tilesY
		c.TileSize = 0
	}
}

// WithTileSize splits the image into size x size tiles.
func WithTileSize(size int) Option {
	return func(c *Config) {
		c.TileSize = size
	}
}

// WithWorkers bounds the number of tiles computed at once.
// Zero restores one goroutine per tile.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithPredicate sets the pixel selection predicate.
func WithPredicate(p Predicate) Option {
	return func(c *Config) {
		c.Predicate = p
	}
}

// WithStallTimeout fails the render when no tile completes within d.
func WithStallTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.StallTimeout = d
	}
}

// WithJoinTimeout bounds the time spent joining workers at shutdown.
func WithJoinTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.JoinTimeout = d
	}
}
