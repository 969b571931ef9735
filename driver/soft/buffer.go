// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package soft

import (
	"github.com/gviegas/vstream/driver"
)

// buffer implements driver.Buffer.
type buffer struct {
	data    []byte
	visible bool
	usage   driver.Usage
}

// Visible returns whether the buffer is host visible.
func (b *buffer) Visible() bool { return b.visible }

// Bytes returns a slice of length b.Cap() referring to
// the underlying data, or nil if b is not visible.
func (b *buffer) Bytes() []byte {
	if !b.visible {
		return nil
	}
	return b.data
}

// Cap returns the capacity of the buffer.
func (b *buffer) Cap() int64 { return int64(len(b.data)) }

// Destroy destroys the buffer.
func (b *buffer) Destroy() { *b = buffer{} }
