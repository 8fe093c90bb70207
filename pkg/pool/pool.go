// Package pool wraps panjf2000/ants with a named worker pool that recovers
// task panics and rejects work once released.
package pool

import (
	"errors"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

var (
	// ErrPoolClosed is returned by Submit after the pool has been released.
	ErrPoolClosed = errors.New("pool: closed")
	// ErrPoolOverload is returned by a nonblocking pool when no worker is free.
	ErrPoolOverload = errors.New("pool: overloaded")
)

// Config controls the size and recycling behavior of a pool.
type Config struct {
	// Capacity is the maximum number of concurrent workers. Values below 1
	// fall back to the number of CPUs.
	Capacity int
	// ExpiryDuration is how long an idle worker is kept before it is
	// reclaimed. Values below 1 fall back to one minute.
	ExpiryDuration time.Duration
	// Nonblocking makes Submit return ErrPoolOverload instead of waiting for
	// a free worker.
	Nonblocking bool
	// PanicHandler runs when a submitted task panics. The default logs the
	// panic with its stack and keeps the pool running.
	PanicHandler func(interface{})
}

// Pool runs submitted tasks on a bounded set of reusable goroutines.
type Pool struct {
	name   string
	inner  *ants.Pool
	closed atomic.Bool
}

// New creates a named worker pool. A nil config uses the defaults described
// on Config.
func New(name string, cfg *Config) (*Pool, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	capacity := cfg.Capacity
	if capacity < 1 {
		capacity = runtime.NumCPU()
	}
	expiry := cfg.ExpiryDuration
	if expiry < 1 {
		expiry = time.Minute
	}
	panicHandler := cfg.PanicHandler
	if panicHandler == nil {
		panicHandler = func(r interface{}) {
			logger.Errorw("Worker panic recovered",
				"pool", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}

	inner, err := ants.NewPool(capacity,
		ants.WithExpiryDuration(expiry),
		ants.WithNonblocking(cfg.Nonblocking),
		ants.WithPanicHandler(panicHandler),
	)
	if err != nil {
		return nil, err
	}

	logger.Infow("Worker pool created", "pool", name, "capacity", capacity)
	return &Pool{name: name, inner: inner}, nil
}

// Submit schedules the task on a pool worker. It returns ErrPoolClosed after
// Release and ErrPoolOverload when a nonblocking pool is saturated.
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if err := p.inner.Submit(task); err != nil {
		switch {
		case errors.Is(err, ants.ErrPoolClosed):
			return ErrPoolClosed
		case errors.Is(err, ants.ErrPoolOverload):
			return ErrPoolOverload
		default:
			return err
		}
	}
	return nil
}

// Running reports the number of workers currently executing tasks.
func (p *Pool) Running() int {
	return p.inner.Running()
}

// Cap reports the pool capacity.
func (p *Pool) Cap() int {
	return p.inner.Cap()
}

// Release stops the pool. Tasks already running finish; later Submit calls
// fail with ErrPoolClosed. Release is safe to call more than once.
func (p *Pool) Release() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.inner.Release()
	logger.Infow("Worker pool released", "pool", p.name)
}
