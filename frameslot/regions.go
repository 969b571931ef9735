// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frameslot

import (
	"fmt"
)

// Regions partitions a byte slice into equally sized,
// non-overlapping regions, one per slot.
// Region i starts at offset i*Stride.
type Regions struct {
	buf    []byte
	n      int
	stride int
}

// NewRegions creates n regions of stride bytes each over
// buf. buf must hold at least n*stride bytes.
func NewRegions(buf []byte, n, stride int) (Regions, error) {
	switch {
	case n < 1:
		return Regions{}, fmt.Errorf("%w: slot count %d < 1", ErrConfig, n)
	case stride < 1:
		return Regions{}, fmt.Errorf("%w: region stride %d < 1", ErrConfig, stride)
	case len(buf) < n*stride:
		return Regions{}, fmt.Errorf("%w: buffer of %d bytes cannot hold %d regions of %d bytes",
			ErrConfig, len(buf), n, stride)
	}
	return Regions{buf: buf[:n*stride:n*stride], n: n, stride: stride}, nil
}

// Len returns the number of regions.
func (r Regions) Len() int { return r.n }

// Stride returns the size of each region in bytes.
func (r Regions) Stride() int { return r.stride }

// Offset returns the byte offset of slot's region.
func (r Regions) Offset(slot Slot) int64 {
	r.check(slot)
	return int64(slot) * int64(r.stride)
}

// At returns the region of slot.
// The returned slice has length and capacity Stride, so
// appends never spill into the next region.
func (r Regions) At(slot Slot) []byte {
	r.check(slot)
	off := int(slot) * r.stride
	return r.buf[off : off+r.stride : off+r.stride]
}

func (r Regions) check(slot Slot) {
	if slot < 0 || int(slot) >= r.n {
		panic(fmt.Errorf("%w: slot %d out of range [0, %d)", ErrPrecondition, slot, r.n))
	}
}
