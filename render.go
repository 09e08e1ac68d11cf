package fractal

import (
	"context"
	"fmt"

	"github.com/gogpu/fractal/internal/parallel"
)

// Stats summarizes one render. See parallel.Stats for the field meanings.
type Stats = parallel.Stats

// Renderer runs a single render and exposes its progress while it runs.
//
// A Renderer is used once: the first Run renders, later calls fail.
// Progress and Done are safe to call from any goroutine.
type Renderer struct {
	cfg   Config
	coord *parallel.Coordinator
	pool  *parallel.WorkerPool
}

// NewRenderer validates cfg and prepares a render into p.
func NewRenderer(cfg Config, p Painter) (*Renderer, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil painter", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pcfg := parallel.Config{
		Predicate:    cfg.Predicate,
		StallTimeout: cfg.StallTimeout,
		JoinTimeout:  cfg.JoinTimeout,
	}

	r := &Renderer{cfg: cfg}
	if cfg.Workers > 0 {
		r.pool = parallel.NewWorkerPool(cfg.Workers)
		pcfg.Launcher = r.pool
	}
	r.coord = parallel.NewCoordinator(cfg.grid(), p, pcfg)
	return r, nil
}

// Config returns the validated configuration.
func (r *Renderer) Config() Config {
	return r.cfg
}

// Run renders every tile, painting each as soon as it completes.
//
// Run returns when all workers have been joined, or abandoned after
// JoinTimeout. Tiles painted before an error remain painted.
func (r *Renderer) Run(ctx context.Context) (Stats, error) {
	stats, err := r.coord.Run(ctx)
	if r.pool != nil {
		if stats.Abandoned > 0 {
			// Abandoned workers still occupy pool goroutines.
			go r.pool.Close()
		} else {
			r.pool.Close()
		}
	}
	return stats, err
}

// Progress returns the number of tiles painted so far and the total.
func (r *Renderer) Progress() (painted, total int) {
	p := r.coord.Progress()
	return p.Count(), r.coord.Tiles()
}

// Done reports whether the render has finished.
func (r *Renderer) Done() bool {
	return r.coord.State() == parallel.StateComplete
}

// Render renders the default configuration, modified by opts, into p.
func Render(ctx context.Context, p Painter, opts ...Option) (Stats, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return RenderConfig(ctx, cfg, p)
}

// RenderConfig renders cfg into p.
func RenderConfig(ctx context.Context, cfg Config, p Painter) (Stats, error) {
	r, err := NewRenderer(cfg, p)
	if err != nil {
		return Stats{}, err
	}
	return r.Run(ctx)
}
