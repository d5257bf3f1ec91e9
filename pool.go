package certgen

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/alnah/go-certgen/internal/logging"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one renderer is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// RendererPool bounds concurrent renders to a fixed number of slots.
// Each slot owns one renderer, created lazily on first acquire. With
// recycling on, a slot's browser is closed when the slot is released, so
// every render runs in a fresh browser process.
type RendererPool struct {
	size      int
	recycle   bool
	newSlot   func() pdfRenderer
	logger    *zap.Logger
	renderers []pdfRenderer
	sem       chan pdfRenderer
	mu        sync.Mutex
	created   int
	closed    bool
}

// Compile-time interface check.
var _ Renderer = (*RendererPool)(nil)

// NewRendererPool creates a pool of n go-rod renderers.
// n below 1 is raised to 1.
func NewRendererPool(n int, cfg RendererConfig, logger *zap.Logger) *RendererPool {
	logger = logging.OrNop(logger)
	return newRendererPool(n, cfg.Recycle, func() pdfRenderer {
		return newRodRenderer(cfg, logger)
	}, logger)
}

func newRendererPool(n int, recycle bool, newSlot func() pdfRenderer, logger *zap.Logger) *RendererPool {
	if n < 1 {
		n = 1
	}
	return &RendererPool{
		size:      n,
		recycle:   recycle,
		newSlot:   newSlot,
		logger:    logging.OrNop(logger),
		renderers: make([]pdfRenderer, 0, n),
		sem:       make(chan pdfRenderer, n),
	}
}

// acquire gets a renderer, creating one if the pool is not full.
// Blocks until a renderer is released, ctx is done or the pool closes.
func (p *RendererPool) acquire(ctx context.Context) (pdfRenderer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Try to get an existing renderer (non-blocking)
	select {
	case r, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return r, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.created < p.size {
		p.created++
		r := p.newSlot()
		p.renderers = append(p.renderers, r)
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	// All renderers created, wait for one to be released
	select {
	case r, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release returns a renderer to the pool, closing its browser first when
// recycling is on. The send happens under the lock: the channel holds every
// slot, so it never blocks, and Close cannot close it mid-send.
func (p *RendererPool) release(r pdfRenderer) {
	if p.recycle {
		if err := r.Close(); err != nil {
			p.logger.Warn("browser close failed", zap.Error(err))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sem <- r
}

// Render renders html on a pooled renderer.
// The renderer is released on every exit path.
func (p *RendererPool) Render(ctx context.Context, html string, layout Layout) ([]byte, error) {
	r, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.release(r)

	return r.Render(ctx, html, layout)
}

// Close releases all browser resources. Call it once in-flight renders
// have returned.
// Returns an aggregated error if multiple renderers fail to close.
func (p *RendererPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	renderers := p.renderers
	p.mu.Unlock()

	var errs []error
	for _, r := range renderers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *RendererPool) Size() int {
	return p.size
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
