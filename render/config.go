// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package render

import (
	"errors"
	"fmt"

	"github.com/gviegas/vstream/anim"
	"github.com/gviegas/vstream/frameslot"
)

const (
	dflRegionStride = 256
	dflBufferSize   = 1 << 20
	dflWidth        = 480
	dflHeight       = 270
)

// ErrConfig means that a Renderer could not be created
// from the given configuration.
var ErrConfig = errors.New("render: invalid configuration")

// Config is used to configure a Renderer.
type Config struct {
	// The number of frames in flight.
	//
	// Default is frameslot.DefaultSlots.
	Slots int

	// The size of each slot's region of the vertex
	// buffer. It must be at least anim.PayloadSize.
	//
	// Default is 256 bytes.
	RegionStride int

	// The size of the persistent vertex buffer.
	// It must be at least Slots*RegionStride.
	//
	// Default is 1048576 bytes (1MiB).
	BufferSize int64

	// The number of swapchain backbuffers.
	// Fewer backbuffers than slots cause frames to be
	// dropped when every backbuffer is in use.
	// A value less than 1 means Slots.
	//
	// Default is 0.
	Backbuffers int

	// The size of the backbuffers.
	//
	// Default is 480x270.
	Width, Height int

	// If greater than 0, every SkipEvery-th frame finds
	// no backbuffer available and is dropped.
	//
	// Default is 0.
	SkipEvery int

	// The color the backbuffer is cleared to.
	//
	// Default is opaque black.
	ClearColor [4]float32
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Slots:        frameslot.DefaultSlots,
		RegionStride: dflRegionStride,
		BufferSize:   dflBufferSize,
		Width:        dflWidth,
		Height:       dflHeight,
		ClearColor:   [4]float32{0, 0, 0, 1},
	}
}

// validate checks c, filling in Backbuffers if unset.
func (c *Config) validate() error {
	switch {
	case c.Slots < 1:
		return fmt.Errorf("%w: slot count %d < 1", ErrConfig, c.Slots)
	case c.RegionStride < anim.PayloadSize:
		return fmt.Errorf("%w: region stride %d < payload size %d", ErrConfig, c.RegionStride, anim.PayloadSize)
	case c.BufferSize < int64(c.Slots)*int64(c.RegionStride):
		return fmt.Errorf("%w: buffer size %d cannot hold %d regions of %d bytes",
			ErrConfig, c.BufferSize, c.Slots, c.RegionStride)
	case c.Width < 1 || c.Height < 1:
		return fmt.Errorf("%w: invalid size %dx%d", ErrConfig, c.Width, c.Height)
	case c.SkipEvery < 0:
		return fmt.Errorf("%w: negative skip interval", ErrConfig)
	}
	if c.Backbuffers < 1 {
		c.Backbuffers = c.Slots
	}
	return nil
}
