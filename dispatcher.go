package certgen

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/alnah/go-certgen/internal/logging"
)

// Processor runs one accepted request to its terminal outcome.
// Implemented by Generator.
type Processor interface {
	Process(ctx context.Context, req *Request) error
}

// Dispatcher runs accepted requests in tracked background goroutines.
// Jobs use a context detached from the HTTP request that submitted them.
type Dispatcher struct {
	proc     Processor
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	inFlight atomic.Int64
}

// NewDispatcher creates a Dispatcher running jobs on proc.
func NewDispatcher(proc Processor, logger *zap.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		proc:   proc,
		logger: logging.OrNop(logger),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit starts processing req in the background.
// Returns ErrShuttingDown once Shutdown has been called.
func (d *Dispatcher) Submit(req *Request) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrShuttingDown
	}
	d.wg.Add(1)
	d.mu.Unlock()

	d.inFlight.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.inFlight.Add(-1)

		// Process reports its own outcome; the error is already logged.
		_ = d.proc.Process(d.ctx, req)
	}()
	return nil
}

// InFlight returns the number of running jobs.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Shutdown stops accepting jobs and waits for running ones.
// If ctx ends first, running jobs are cancelled; they still send their
// failure callback. Returns ctx.Err() in that case.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.logger.Warn("shutdown deadline reached, cancelling jobs", zap.Int64("in_flight", d.InFlight()))
		d.cancel()
		<-done
		return ctx.Err()
	}
}
