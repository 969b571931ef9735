// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package anim implements the per-frame vertex update that
// is streamed through the frame slots.
//
// The scene is a full-screen quad made of two triangles and a
// third triangle whose vertices bounce around clip space.
package anim

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gviegas/vstream/linear"
)

const (
	// VertexCount is the number of vertices drawn per frame.
	VertexCount = 9
	// VertexSize is the size in bytes of an encoded vertex
	// position or color.
	VertexSize = 16
	// PayloadSize is the size in bytes of the per-frame
	// payload written by Encode.
	PayloadSize = VertexCount * VertexSize

	// First vertex of the animated triangle.
	animBase = 6
)

var positions = [VertexCount]linear.V4{
	{-1, -1, 0, 1},
	{-1, 1, 0, 1},
	{1, -1, 0, 1},

	{1, -1, 0, 1},
	{-1, 1, 0, 1},
	{1, 1, 0, 1},

	{0, 0.25, 0, 1},
	{-0.25, -0.25, 0, 1},
	{0.25, -0.25, 0, 1},
}

var colors = [VertexCount]linear.V4{
	{0, 0, 1, 1},
	{0, 0, 1, 1},
	{0, 0, 1, 1},

	{0, 0, 1, 1},
	{0, 0, 1, 1},
	{0, 0, 1, 1},

	{0, 0, 1, 1},
	{0, 1, 0, 1},
	{1, 0, 0, 1},
}

// State is the animation state of the moving triangle.
// Component j of each vector refers to animated vertex j.
// The zero value is not useful; use NewState.
type State struct {
	X, Y   linear.V3
	DX, DY linear.V3
	steps  uint64
}

// NewState returns the initial animation state.
func NewState() State {
	return State{
		X:  linear.V3{-1, 1, -1},
		Y:  linear.V3{1, 0, -1},
		DX: linear.V3{0.02, -0.01, 0.03},
		DY: linear.V3{0.01, 0.02, -0.01},
	}
}

// Step advances the animation by one frame.
// An offset that reaches either edge of clip space has its
// delta negated and applied again, so it bounces back.
func (s *State) Step() {
	for j := range 3 {
		bounce(&s.X[j], &s.DX[j])
		bounce(&s.Y[j], &s.DY[j])
	}
	s.steps++
}

func bounce(off, delta *float32) {
	*off += *delta
	if *off >= 1 || *off <= -1 {
		*delta = -*delta
		*off += *delta
	}
}

// Steps returns the number of calls to Step.
func (s *State) Steps() uint64 { return s.steps }

// Vertices returns the vertex positions for the current
// state.
func (s *State) Vertices() [VertexCount]linear.V4 {
	v := positions
	for j := range 3 {
		v[animBase+j][0] = s.X[j]
		v[animBase+j][1] = s.Y[j]
	}
	return v
}

// Encode writes the vertex positions for the current state
// into dst and returns the number of bytes written.
// dst must have length at least PayloadSize.
func (s *State) Encode(dst []byte) int {
	if len(dst) < PayloadSize {
		panic(fmt.Sprintf("anim.State.Encode: dst length %d < %d", len(dst), PayloadSize))
	}
	v := s.Vertices()
	return put(dst, v[:])
}

// Colors returns the static vertex colors.
func Colors() [VertexCount]linear.V4 { return colors }

// EncodeColors writes the vertex colors into dst and
// returns the number of bytes written.
// dst must have length at least PayloadSize.
func EncodeColors(dst []byte) int {
	if len(dst) < PayloadSize {
		panic(fmt.Sprintf("anim.EncodeColors: dst length %d < %d", len(dst), PayloadSize))
	}
	return put(dst, colors[:])
}

// put writes v as little-endian float32 values.
func put(dst []byte, v []linear.V4) int {
	n := 0
	for i := range v {
		for _, x := range v[i] {
			binary.LittleEndian.PutUint32(dst[n:], math.Float32bits(x))
			n += 4
		}
	}
	return n
}
