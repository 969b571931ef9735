// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package frameslot multiplexes a small, fixed number of
// regions of a shared CPU/GPU buffer between a producer
// that writes per-frame data and the GPU work that reads it.
//
// The producer calls Acquire to obtain the next slot, writes
// its data into the slot's region and then calls Submit with
// the work that reads the region. The slot returns to the pool
// when that work reports completion. No slot is handed out
// again while work reading it is still executing, so the
// regions themselves need no locking.
package frameslot

import (
	"errors"
	"strconv"
	"time"
)

// DefaultSlots is the default number of slots (triple
// buffering).
const DefaultSlots = 3

// ErrConfig means that the coordinator could not be
// created from the given parameters.
var ErrConfig = errors.New("frameslot: invalid configuration")

// ErrPrecondition is the error used in panics caused by
// misuse of a Coordinator (e.g., writing to a slot that
// was not acquired, or a payload that does not fit in a
// region).
var ErrPrecondition = errors.New("frameslot: precondition violated")

// ErrClosed means that the coordinator was closed.
var ErrClosed = errors.New("frameslot: coordinator closed")

// ErrDropped is the error of a submission whose task
// never executed (nil task or failed Run).
// The slot is released regardless.
var ErrDropped = errors.New("frameslot: frame dropped")

// Slot identifies a region of the shared buffer.
type Slot int

// State is the state of a slot.
type State int

// Slot states.
const (
	Free State = iota
	Claimed
	Written
	InFlight
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Claimed:
		return "claimed"
	case Written:
		return "written"
	case InFlight:
		return "in-flight"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Task is the interface that defines work that reads a
// slot's region and executes elsewhere (e.g., a committed
// command buffer).
type Task interface {
	// Run starts the work. It must arrange for done to be
	// called when the work completes, with the result of
	// the execution. done may be called from any goroutine,
	// including the caller of Run.
	// If Run returns an error, the work is assumed to have
	// not started and done need not be called.
	Run(done func(error)) error
}

// TaskFunc is an adapter to allow the use of ordinary
// functions as a Task.
type TaskFunc func(done func(error)) error

// Run calls f(done).
func (f TaskFunc) Run(done func(error)) error { return f(done) }

// Observer is the interface that receives slot events.
// Methods may be called concurrently.
type Observer interface {
	// SlotAcquired is called when Acquire returns slot
	// after blocking for wait.
	SlotAcquired(slot Slot, wait time.Duration)

	// SlotSubmitted is called when Submit is about to
	// start the work that reads slot.
	SlotSubmitted(slot Slot)

	// SlotReleased is called when slot returns to the pool.
	// err is the result of the work that read the slot;
	// it wraps ErrDropped if the work never executed.
	SlotReleased(slot Slot, err error)
}

type nopObserver struct{}

func (nopObserver) SlotAcquired(Slot, time.Duration) {}
func (nopObserver) SlotSubmitted(Slot)               {}
func (nopObserver) SlotReleased(Slot, error)         {}
