// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"errors"
)

// ErrCannotPresent means that the driver and/or device do not
// support presentation.
var ErrCannotPresent = errors.New("driver: presentation not supported")

// ErrSwapchain represents an error related to a specific
// swapchain.
// This error usually indicates that changes to the display
// made the swapchain unusable.
var ErrSwapchain = errors.New("driver: swapchain-related error")

// ErrNoBackbuffer means that all available backbuffers
// were acquired.
// Backbuffers are released during presentation.
var ErrNoBackbuffer = errors.New("driver: all backbuffers in use")

// Presenter is the interface that a GPU may implement
// to enable presentation.
type Presenter interface {
	// NewSwapchain creates a new swapchain whose
	// backbuffers have the given size.
	NewSwapchain(width, height, imageCount int) (Swapchain, error)
}

// Swapchain is the interface that defines a n-buffered
// swapchain for presentation.
// To present, one calls Next to obtain the index of a
// framebuffer to target, records commands as needed,
// commits these commands and then, once they complete,
// calls Present to present the framebuffer.
type Swapchain interface {
	Destroyer

	// Framebufs returns the list of framebuffers that
	// comprises the swapchain.
	// This value remains unchanged as long as the
	// swapchain's Destroy method is not called.
	Framebufs() []Framebuf

	// Next returns the index of the next writable
	// framebuffer.
	// It fails with ErrNoBackbuffer when every
	// framebuffer was acquired and not yet presented.
	Next() (int, error)

	// Present presents the framebuffer identified
	// by index, releasing it for a later call to Next.
	Present(index int) error

	// Discard releases the framebuffer identified by
	// index without presenting it.
	// It is meant to be called when the work that
	// targeted the framebuffer failed or was never
	// committed.
	Discard(index int) error

	// Presented returns the index of the most recently
	// presented framebuffer. ok is false if nothing
	// has been presented yet.
	Presented() (index int, ok bool)
}
