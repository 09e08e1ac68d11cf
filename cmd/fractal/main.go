// Command fractal renders an escape-time fractal tile by tile and writes it
// to an image file.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/fractal"
)

func main() {
	var (
		width    = flag.Int("width", fractal.DefaultWidth, "image width")
		height   = flag.Int("height", fractal.DefaultHeight, "image height")
		xmin     = flag.Float64("xmin", fractal.DefaultXMin, "left edge of the plane")
		xmax     = flag.Float64("xmax", fractal.DefaultXMax, "right edge of the plane")
		ymin     = flag.Float64("ymin", fractal.DefaultYMin, "top edge of the plane")
		ymax     = flag.Float64("ymax", fractal.DefaultYMax, "bottom edge of the plane")
		iter     = flag.Int("iter", fractal.DefaultMaxIter, "iteration cap per pixel")
		tiles    = flag.Int("tiles", fractal.DefaultTiles, "grid is tiles x tiles")
		tileSize = flag.Int("tile-size", 0, "square tile size in pixels (overrides -tiles)")
		workers  = flag.Int("workers", 0, "bound concurrent tiles (0 = one goroutine per tile)")
		stall    = flag.Duration("stall", 0, "fail when no tile completes within this duration")
		join     = flag.Duration("join", 5*time.Second, "time allowed to join workers at shutdown")
		invert   = flag.Bool("invert", false, "paint bounded pixels instead of escaped ones")
		caption  = flag.Bool("caption", false, "draw the plane bounds onto the image")
		scale    = flag.Float64("scale", 1, "resample the output by this factor")
		progress = flag.Duration("progress", 250*time.Millisecond, "progress report interval (with -v)")
		output   = flag.String("o", "fractal.png", "output file (.png, .bmp, .tif)")
		spirv    = flag.String("spirv", "", "also write the compiled compute kernel to this file")
		verbose  = flag.Bool("v", false, "log render events to stderr")
	)
	flag.Parse()

	if *verbose {
		fractal.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if *spirv != "" {
		if err := writeKernel(*spirv); err != nil {
			log.Fatalf("Failed to compile kernel: %v", err)
		}
	}

	cfg := fractal.DefaultConfig()
	cfg.Width, cfg.Height = *width, *height
	cfg.XMin, cfg.XMax = *xmin, *xmax
	cfg.YMin, cfg.YMax = *ymin, *ymax
	cfg.MaxIter = *iter
	cfg.TilesX, cfg.TilesY = *tiles, *tiles
	cfg.TileSize = *tileSize
	cfg.Workers = *workers
	cfg.StallTimeout = *stall
	cfg.JoinTimeout = *join
	if *invert {
		cfg.Predicate = fractal.Bounded
	}

	canvas := fractal.NewCanvas(cfg.Width, cfg.Height)
	r, err := fractal.NewRenderer(cfg, canvas)
	if err != nil {
		log.Fatalf("Invalid parameters: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	stats, err := render(ctx, r, *progress)
	if err != nil {
		log.Fatalf("Render failed after %d of %d tiles: %v", stats.Rendered, stats.Tiles, err)
	}
	elapsed := time.Since(start)

	if *caption {
		text := fmt.Sprintf("[%g, %g] x [%g, %g]  n=%d", cfg.XMin, cfg.XMax, cfg.YMin, cfg.YMax, cfg.MaxIter)
		if err := canvas.DrawCaption(text); err != nil {
			log.Fatalf("Failed to draw caption: %v", err)
		}
	}

	var img image.Image = canvas.Image()
	if *scale > 0 && *scale != 1 {
		img = canvas.Scaled(int(float64(cfg.Width)**scale), int(float64(cfg.Height)**scale))
	}
	if err := fractal.SaveImage(*output, img); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	p := message.NewPrinter(language.English)
	p.Printf("Saved %s (%dx%d): %d tiles, %d pixels painted in %v\n",
		*output, img.Bounds().Dx(), img.Bounds().Dy(), stats.Rendered, stats.Painted, elapsed.Round(time.Millisecond))
}

// render runs r alongside a progress reporter.
func render(ctx context.Context, r *fractal.Renderer, interval time.Duration) (fractal.Stats, error) {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	var stats fractal.Stats
	g.Go(func() error {
		defer close(done)
		var err error
		stats, err = r.Run(gctx)
		return err
	})
	g.Go(func() error {
		reportProgress(done, r, interval)
		return nil
	})

	err := g.Wait()
	return stats, err
}

// reportProgress logs the painted tile count every interval until done is
// closed.
func reportProgress(done <-chan struct{}, r *fractal.Renderer, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			painted, total := r.Progress()
			fractal.Logger().Info("progress", "tiles", painted, "total", total)
		}
	}
}

// writeKernel compiles the compute kernel and writes the SPIR-V binary.
func writeKernel(path string) error {
	spirv, err := fractal.CompileKernel()
	if err != nil {
		return err
	}
	return os.WriteFile(path, spirv, 0o600)
}
