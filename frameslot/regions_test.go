// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frameslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegions(t *testing.T) {
	for _, x := range [...]struct {
		size, n, stride int
		ok              bool
	}{
		{768, 3, 256, true},
		{1 << 20, 3, 256, true},
		{767, 3, 256, false},
		{768, 0, 256, false},
		{768, -1, 256, false},
		{768, 3, 0, false},
		{0, 1, 1, false},
		{1, 1, 1, true},
	} {
		r, err := NewRegions(make([]byte, x.size), x.n, x.stride)
		if !x.ok {
			require.ErrorIs(t, err, ErrConfig, "NewRegions(%d, %d, %d)", x.size, x.n, x.stride)
			continue
		}
		require.NoError(t, err, "NewRegions(%d, %d, %d)", x.size, x.n, x.stride)
		assert.Equal(t, x.n, r.Len())
		assert.Equal(t, x.stride, r.Stride())
	}
}

func TestRegionsAt(t *testing.T) {
	buf := make([]byte, 1024)
	r, err := NewRegions(buf, 3, 256)
	require.NoError(t, err)

	for i := range 3 {
		slot := Slot(i)
		if have, want := r.Offset(slot), int64(i*256); have != want {
			t.Fatalf("r.Offset(%d):\nhave %d\nwant %d", i, have, want)
		}
		b := r.At(slot)
		require.Len(t, b, 256)
		require.Equal(t, 256, cap(b))
		b[0] = byte(i + 1)
		b[255] = byte(i + 1)
		require.Equal(t, byte(i+1), buf[i*256])
		require.Equal(t, byte(i+1), buf[i*256+255])

		// Appending must not spill into the next region.
		_ = append(b, 0xee)
		require.NotEqual(t, byte(0xee), buf[(i+1)*256])
	}
	// Bytes past n*stride are not part of any region.
	require.Zero(t, buf[768])

	requirePrecondition(t, func() { r.At(3) })
	requirePrecondition(t, func() { r.At(-1) })
	requirePrecondition(t, func() { r.Offset(3) })
}
