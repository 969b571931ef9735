// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package bitvec

import (
	"slices"
	"testing"
	"unsafe"
)

func TestNbit(t *testing.T) {
	for _, x := range [...][2]int{
		{int(unsafe.Sizeof(uint(0))) * 8, (&V[uint]{}).nbit()},
		{int(unsafe.Sizeof(uint8(0))) * 8, (&V[uint8]{}).nbit()},
		{int(unsafe.Sizeof(uint16(0))) * 8, (&V[uint16]{}).nbit()},
		{int(unsafe.Sizeof(uint32(0))) * 8, (&V[uint32]{}).nbit()},
		{int(unsafe.Sizeof(uint64(0))) * 8, (&V[uint64]{}).nbit()},
		{int(unsafe.Sizeof(uintptr(0))) * 8, (&V[uintptr]{}).nbit()},
	} {
		if x[0] != x[1] {
			t.Fatalf("V[T].nbit:\nhave %d\nwant %d", x[0], x[1])
		}
	}
}

func TestZero(t *testing.T) {
	var v16 V[uint16]
	if v16.s != nil {
		t.Fatalf("v16.s:\nhave %d\nwant nil", v16.s)
	}
	if n := v16.Len(); n != 0 {
		t.Fatalf("v16.Len:\nhave %d\nwant 0", n)
	}
	if v16.rem != 0 {
		t.Fatalf("v16.rem:\nhave %d\nwant 0", v16.rem)
	}
	if n := v16.Count(); n != 0 {
		t.Fatalf("v16.Count:\nhave %d\nwant 0", n)
	}
}

func TestGrow(t *testing.T) {
	var v32 V[uint32]
	for _, x := range [...]struct {
		nplus, wantLen int
	}{
		{1, 32},
		{2, 96},
		{0, 96},
		{-1, 96},
		{16, 608},
	} {
		if n, i := v32.Len(), v32.Grow(x.nplus); n != i {
			t.Fatalf("v32.Grow:\nhave %d\nwant %d", i, n)
		}
		if n := v32.Len(); n != x.wantLen {
			t.Fatalf("v32.Grow: Len:\nhave %d\nwant %d", n, x.wantLen)
		}
		if n := v32.Count(); n != 0 {
			t.Fatalf("v32.Grow: Count:\nhave %d\nwant 0", n)
		}
	}

	var v8 V[uint8]
	for _, x := range [...][2]int{{3, 8}, {8, 16}, {9, 32}, {0, 32}} {
		v8.GrowBits(x[0])
		if n := v8.Len(); n != x[1] {
			t.Fatalf("v8.GrowBits(%d): Len:\nhave %d\nwant %d", x[0], n, x[1])
		}
	}
}

func TestSetUnset(t *testing.T) {
	var v8 V[uint8]
	v8.Grow(1)
	v8.Set(6)
	if v8.s[0] != 0x40 {
		t.Fatalf("v8.s[0]:\nhave 0x%x\nwant 0x40", v8.s[0])
	}
	v8.Set(1)
	v8.Set(1)
	if v8.s[0] != 0x42 || v8.Count() != 2 || v8.rem != 6 {
		t.Fatalf("v8.Set:\nhave 0x%x (count %d)\nwant 0x42 (count 2)", v8.s[0], v8.Count())
	}
	v8.Unset(6)
	v8.Unset(6)
	if v8.s[0] != 0x02 || v8.Count() != 1 {
		t.Fatalf("v8.Unset:\nhave 0x%x (count %d)\nwant 0x02 (count 1)", v8.s[0], v8.Count())
	}
	v8.Grow(2)
	v8.Set(10)
	v8.Set(21)
	if v8.s[1] != 0x04 || v8.s[2] != 0x20 || v8.Count() != 3 {
		t.Fatalf("v8.Set: %x (count %d)", v8.s, v8.Count())
	}
	for i := range v8.Len() {
		if i&3 == 0 {
			v8.Set(i)
		} else {
			v8.Unset(i)
		}
	}
	for i, x := range v8.s {
		if x != 0x11 {
			t.Fatalf("v8.s[%d]:\nhave 0x%x\nwant 0x11", i, x)
		}
	}
	if v8.Count() != 6 {
		t.Fatalf("v8.Count:\nhave %d\nwant 6", v8.Count())
	}
}

func TestOnly(t *testing.T) {
	var v8 V[uint8]
	if s := slices.Collect(v8.Only(true)); len(s) != 0 {
		t.Fatalf("v8.Only(true): empty vector\nhave %v\nwant []", s)
	}
	v8.Grow(2)
	for _, i := range [...]int{0, 3, 7, 8, 15} {
		v8.Set(i)
	}
	if s := slices.Collect(v8.Only(true)); !slices.Equal(s, []int{0, 3, 7, 8, 15}) {
		t.Fatalf("v8.Only(true):\nhave %v\nwant [0 3 7 8 15]", s)
	}
	unset := slices.Collect(v8.Only(false))
	if len(unset) != v8.Len()-v8.Count() {
		t.Fatalf("v8.Only(false): length\nhave %d\nwant %d", len(unset), v8.Len()-v8.Count())
	}
	for _, i := range unset {
		if v8.s[i/8]&(1<<(i%8)) != 0 {
			t.Fatalf("v8.Only(false): %d is set", i)
		}
	}
	var n int
	for range v8.Only(true) {
		if n++; n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("v8.Only: early break\nhave %d\nwant 2", n)
	}
}
