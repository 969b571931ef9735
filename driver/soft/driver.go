// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package soft implements a driver that executes
// commands on the CPU.
// Committed work runs on a pool of goroutines, so
// completion is asynchronous exactly as it is with a
// hardware queue. With more than one worker, work items
// may complete out of commit order.
package soft

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gviegas/vstream/driver"
)

const (
	driverName = "soft"

	maxBuffer   = 1 << 30
	maxFBSize   = 16384
	maxVertexIn = 8
	maxInFlight = 64
)

// Options configures the execution of committed work.
type Options struct {
	// Number of goroutines executing work items.
	//
	// Default is 1.
	Workers int

	// Time spent executing each work item, in addition
	// to the time spent rasterizing.
	//
	// Default is 0.
	Latency time.Duration

	// Upper bound of a random delay added to Latency.
	//
	// Default is 0.
	Jitter time.Duration

	// If greater than 0, every FailEvery-th work item
	// completes with an error instead of executing.
	//
	// Default is 0.
	FailEvery int

	// Default is zap.NewNop().
	Logger *zap.Logger
}

// Driver implements driver.Driver.
type Driver struct {
	opts Options
	mu   sync.Mutex
	gpu  *GPU
}

func init() {
	driver.Register(New(Options{}))
}

// New creates a new, unopened Driver.
// It does not register the driver; call driver.Register
// to replace the default one.
func New(opts Options) *Driver {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Driver{opts: opts}
}

// Open initializes the driver.
func (d *Driver) Open() (driver.GPU, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gpu != nil {
		return d.gpu, nil
	}
	d.gpu = newGPU(d, d.opts)
	d.opts.Logger.Info("soft GPU opened", zap.Int("workers", d.opts.Workers))
	return d.gpu, nil
}

// Name returns the driver name.
func (d *Driver) Name() string { return driverName }

// Close deinitializes the driver.
// It blocks until committed work completes.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gpu == nil {
		return
	}
	d.gpu.close()
	d.gpu = nil
	d.opts.Logger.Info("soft GPU closed")
}

// GPU implements driver.GPU and driver.Presenter.
type GPU struct {
	drv  *Driver
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan job
	grp    errgroup.Group

	nexec atomic.Uint64
}

// job is a committed work item waiting for execution.
type job struct {
	wk *driver.WorkItem
	ch chan<- *driver.WorkItem
}

func newGPU(drv *Driver, opts Options) *GPU {
	g := &GPU{
		drv:   drv,
		opts:  opts,
		log:   opts.Logger.Named("soft"),
		queue: make(chan job, maxInFlight),
	}
	for range opts.Workers {
		g.grp.Go(func() error {
			for j := range g.queue {
				g.run(j)
			}
			return nil
		})
	}
	return g
}

// close stops accepting work and waits for the
// workers to drain the queue.
func (g *GPU) close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	close(g.queue)
	g.mu.Unlock()
	g.grp.Wait()
}

// Driver returns the Driver that owns g.
func (g *GPU) Driver() driver.Driver { return g.drv }

var (
	errClosed    = fmt.Errorf("%w: soft GPU is closed", driver.ErrFatal)
	errQueueFull = fmt.Errorf("soft: more than %d work items in flight", maxInFlight)
)

// Commit commits a work item for execution.
// It never blocks: if maxInFlight work items are already
// waiting for execution, it fails and the command buffers
// are left as they were.
func (g *GPU) Commit(wk *driver.WorkItem, ch chan<- *driver.WorkItem) error {
	if wk == nil || len(wk.Work) == 0 {
		return errors.New("soft: empty work item")
	}
	cbs := make([]*cmdBuffer, len(wk.Work))
	for i, x := range wk.Work {
		cb, ok := x.(*cmdBuffer)
		if !ok || cb.gpu != g {
			return errors.New("soft: foreign command buffer")
		}
		cbs[i] = cb
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return errClosed
	}
	for i, cb := range cbs {
		if err := cb.markPending(); err != nil {
			for _, x := range cbs[:i] {
				x.unmarkPending()
			}
			return err
		}
	}
	select {
	case g.queue <- job{wk, ch}:
		return nil
	default:
		for _, x := range cbs {
			x.unmarkPending()
		}
		g.log.Warn("work item rejected", zap.Int("queued", len(g.queue)))
		return errQueueFull
	}
}

// run executes a job and sends the work item back.
func (g *GPU) run(j job) {
	n := g.nexec.Add(1)
	if d := g.delay(); d > 0 {
		time.Sleep(d)
	}
	var err error
	if g.opts.FailEvery > 0 && n%uint64(g.opts.FailEvery) == 0 {
		err = fmt.Errorf("soft: execution %d failed", n)
	} else {
		for _, x := range j.wk.Work {
			if err = g.execute(x.(*cmdBuffer)); err != nil {
				break
			}
		}
	}
	for _, x := range j.wk.Work {
		x.(*cmdBuffer).finish()
	}
	if err != nil {
		g.log.Debug("work item failed", zap.Uint64("exec", n), zap.Error(err))
	}
	j.wk.Err = err
	j.ch <- j.wk
}

func (g *GPU) delay() time.Duration {
	d := g.opts.Latency
	if g.opts.Jitter > 0 {
		d += rand.N(g.opts.Jitter)
	}
	return d
}

// NewBuffer creates a new buffer.
func (g *GPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	if size <= 0 {
		return nil, errors.New("soft: buffer size must be greater than 0")
	}
	if size > maxBuffer {
		// Visible buffers are backed by host memory.
		if visible {
			return nil, driver.ErrNoHostMemory
		}
		return nil, driver.ErrNoDeviceMemory
	}
	return &buffer{
		data:    make([]byte, (size+255)&^255),
		visible: visible,
		usage:   usg,
	}, nil
}

// NewFB creates a new framebuffer.
func (g *GPU) NewFB(width, height int) (driver.Framebuf, error) {
	return newFramebuf(width, height)
}

// Limits returns the implementation limits.
func (g *GPU) Limits() driver.Limits {
	return driver.Limits{
		MaxBuffer:   maxBuffer,
		MaxFBSize:   [2]int{maxFBSize, maxFBSize},
		MaxVertexIn: maxVertexIn,
		MaxInFlight: maxInFlight,
	}
}

// Executed returns the number of work items that
// started execution.
func (g *GPU) Executed() uint64 { return g.nexec.Load() }
