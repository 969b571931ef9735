// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frameslot

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/gviegas/vstream/internal/bitvec"
)

// Options holds optional collaborators of a Coordinator.
type Options struct {
	// Default is zap.NewNop().
	Logger *zap.Logger

	// Default discards all events.
	Observer Observer
}

// Coordinator hands out the slots of a Regions value to a
// single producer and takes them back when the work that
// reads them completes.
//
// Acquire, Write/Region and Submit must be called from one
// goroutine at a time (the producer). Completion callbacks,
// Drain and the query methods may be called from any
// goroutine.
type Coordinator struct {
	regions Regions
	log     *zap.Logger
	obs     Observer

	// avail counts free slots.
	avail *semaphore.Weighted
	// gate[i] holds a token while slot i is free.
	// Completions may arrive out of order, so the count
	// alone does not imply that the cursor slot is free.
	gate []chan struct{}

	mu      sync.Mutex
	state   []State
	busy    bitvec.V[uint8]
	cursor  Slot
	claim   bool
	frame   uint64
	closing bool
	closed  bool
}

// New creates a new Coordinator managing r.
// All slots start free and the cursor starts at slot 0.
func New(r Regions, opts Options) (*Coordinator, error) {
	if r.Len() < 1 {
		return nil, fmt.Errorf("%w: no regions", ErrConfig)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	n := r.Len()
	c := &Coordinator{
		regions: r,
		log:     opts.Logger.Named("frameslot"),
		obs:     opts.Observer,
		avail:   semaphore.NewWeighted(int64(n)),
		gate:    make([]chan struct{}, n),
		state:   make([]State, n),
	}
	for i := range c.gate {
		c.gate[i] = make(chan struct{}, 1)
		c.gate[i] <- struct{}{}
	}
	c.busy.GrowBits(n)
	c.log.Debug("coordinator created", zap.Int("slots", n), zap.Int("stride", r.Stride()))
	return c, nil
}

// Acquire blocks until the slot at the cursor is free and
// claims it for writing.
// It does not advance the cursor; Submit does.
// It fails only if ctx is done before the slot is freed
// or if the coordinator is closed.
// Calling Acquire again before submitting the claimed slot
// is a precondition violation.
func (c *Coordinator) Acquire(ctx context.Context) (Slot, error) {
	c.mu.Lock()
	if c.closing || c.closed {
		c.mu.Unlock()
		return -1, ErrClosed
	}
	if c.claim {
		slot := c.cursor
		c.mu.Unlock()
		panic(fmt.Errorf("%w: Acquire called while slot %d is claimed", ErrPrecondition, slot))
	}
	c.claim = true
	slot := c.cursor
	c.mu.Unlock()

	start := time.Now()
	if err := c.avail.Acquire(ctx, 1); err != nil {
		c.unclaim()
		return -1, err
	}
	select {
	case <-c.gate[slot]:
	case <-ctx.Done():
		c.avail.Release(1)
		c.unclaim()
		return -1, ctx.Err()
	}
	wait := time.Since(start)

	c.mu.Lock()
	if c.closing || c.closed {
		c.claim = false
		c.mu.Unlock()
		c.gate[slot] <- struct{}{}
		c.avail.Release(1)
		return -1, ErrClosed
	}
	c.state[slot] = Claimed
	c.busy.Set(int(slot))
	c.mu.Unlock()

	c.obs.SlotAcquired(slot, wait)
	if wait > time.Millisecond {
		c.log.Debug("slot acquired after wait", zap.Int("slot", int(slot)), zap.Duration("wait", wait))
	}
	return slot, nil
}

func (c *Coordinator) unclaim() {
	c.mu.Lock()
	c.claim = false
	c.mu.Unlock()
}

// Region returns slot's region for in-place writing.
// slot must have been returned by the last Acquire and not
// yet submitted.
// The region is valid until slot is submitted.
func (c *Coordinator) Region(slot Slot) []byte {
	c.regions.check(slot)
	c.mu.Lock()
	st := c.state[slot]
	if st != Claimed && st != Written {
		c.mu.Unlock()
		panic(fmt.Errorf("%w: write to slot %d in state %v", ErrPrecondition, slot, st))
	}
	c.state[slot] = Written
	c.mu.Unlock()
	return c.regions.At(slot)
}

// Write copies data into slot's region.
// slot must have been returned by the last Acquire and not
// yet submitted. data must fit in a region; it is never
// truncated.
func (c *Coordinator) Write(slot Slot, data []byte) {
	if n := c.regions.Stride(); len(data) > n {
		panic(fmt.Errorf("%w: payload of %d bytes exceeds region stride of %d bytes",
			ErrPrecondition, len(data), n))
	}
	copy(c.Region(slot), data)
}

// Submit starts task, which reads slot's region, and
// arranges for slot to be released when task completes.
// If task is nil or its Run method fails, slot is released
// immediately and the frame is reported as dropped.
// In every case the cursor advances to the next slot.
// slot must have been returned by the last Acquire.
func (c *Coordinator) Submit(slot Slot, task Task) *Submission {
	c.regions.check(slot)
	c.mu.Lock()
	if st := c.state[slot]; (st != Claimed && st != Written) || slot != c.cursor {
		c.mu.Unlock()
		panic(fmt.Errorf("%w: submit of slot %d in state %v", ErrPrecondition, slot, st))
	}
	c.state[slot] = InFlight
	c.frame++
	sub := &Submission{
		ID:    uuid.New(),
		Slot:  slot,
		Frame: c.frame,
		c:     c,
		done:  make(chan struct{}),
	}
	c.mu.Unlock()

	defer c.advance(slot)
	c.obs.SlotSubmitted(slot)
	if task == nil {
		sub.finish(ErrDropped)
		return sub
	}
	if err := task.Run(sub.finish); err != nil {
		c.log.Debug("task did not start",
			zap.Int("slot", int(slot)),
			zap.Uint64("frame", sub.Frame),
			zap.Error(err))
		sub.finish(fmt.Errorf("%w: %w", ErrDropped, err))
	}
	return sub
}

// advance moves the cursor past slot.
func (c *Coordinator) advance(slot Slot) {
	c.mu.Lock()
	c.cursor = Slot((int(slot) + 1) % c.regions.Len())
	c.claim = false
	c.mu.Unlock()
}

// release returns slot to the pool.
func (c *Coordinator) release(slot Slot, err error) {
	c.mu.Lock()
	if c.state[slot] != InFlight {
		st := c.state[slot]
		c.mu.Unlock()
		c.log.Error("release of slot not in flight", zap.Int("slot", int(slot)), zap.Stringer("state", st))
		return
	}
	c.state[slot] = Free
	c.busy.Unset(int(slot))
	c.mu.Unlock()

	// Notify before the slot can be acquired again.
	c.obs.SlotReleased(slot, err)
	c.gate[slot] <- struct{}{}
	c.avail.Release(1)
}

// Drain blocks until every slot is free.
// A slot claimed by the producer counts as busy, so Drain
// must not be called from the producer between Acquire
// and Submit.
func (c *Coordinator) Drain(ctx context.Context) error {
	n := int64(c.regions.Len())
	if err := c.avail.Acquire(ctx, n); err != nil {
		c.log.Warn("drain interrupted", zap.Ints("busy", c.Busy()), zap.Error(err))
		return err
	}
	c.avail.Release(n)
	return nil
}

// Close drains the coordinator and makes further calls to
// Acquire fail with ErrClosed.
// The shared buffer may be freed once Close returns nil.
// If ctx is done first, the coordinator remains open.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.mu.Unlock()

	err := c.Drain(ctx)
	c.mu.Lock()
	c.closing = false
	c.closed = err == nil
	c.mu.Unlock()
	if err == nil {
		c.log.Debug("coordinator closed", zap.Uint64("frames", c.Frames()))
	}
	return err
}

// Len returns the number of slots.
func (c *Coordinator) Len() int { return c.regions.Len() }

// Regions returns the regions managed by c.
func (c *Coordinator) Regions() Regions { return c.regions }

// Cursor returns the slot that the next Acquire will return.
func (c *Coordinator) Cursor() Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// State returns the state of slot.
func (c *Coordinator) State(slot Slot) State {
	c.regions.check(slot)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state[slot]
}

// Outstanding returns the number of slots that were
// acquired and not yet released.
func (c *Coordinator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy.Count()
}

// Busy returns the indices of slots that are not free.
func (c *Coordinator) Busy() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Collect(c.busy.Only(true))
}

// Frames returns the number of submissions so far.
func (c *Coordinator) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}
