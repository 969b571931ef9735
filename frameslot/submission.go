// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frameslot

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submission is the handle of a submitted slot.
type Submission struct {
	// ID uniquely identifies the submission.
	ID uuid.UUID
	// Slot is the submitted slot.
	Slot Slot
	// Frame is the 1-based submission count at the
	// time of the call to Submit.
	Frame uint64

	c     *Coordinator
	fired atomic.Bool
	done  chan struct{}
	err   error
}

// finish releases the slot. Only the first call has
// any effect.
func (s *Submission) finish(err error) {
	if !s.fired.CompareAndSwap(false, true) {
		s.c.log.Warn("duplicate completion ignored",
			zap.Int("slot", int(s.Slot)),
			zap.Uint64("frame", s.Frame),
			zap.Stringer("id", s.ID))
		return
	}
	s.err = err
	s.c.release(s.Slot, err)
	close(s.done)
}

// Done returns a channel that is closed once the slot
// is released.
func (s *Submission) Done() <-chan struct{} { return s.done }

// Completed returns whether the slot was released.
func (s *Submission) Completed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Err returns the result of the submitted work.
// It returns nil until the slot is released.
// It wraps ErrDropped if the work never executed.
func (s *Submission) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the slot is released or ctx is done.
// It returns the result of the submitted work or ctx.Err().
func (s *Submission) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
