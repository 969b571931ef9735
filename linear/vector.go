// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package linear implements the vector math needed to
// animate and rasterize vertex data.
package linear

import (
	"github.com/chewxy/math32"
)

// V2 is a 2-component vector of float32.
type V2 [2]float32

// Edge returns the signed area of the parallelogram
// spanned by b - a and p - a.
// It is positive when p lies to the left of the
// directed edge a→b in a y-up frame.
func Edge(a, b, p *V2) float32 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

// V3 is a 3-component vector of float32.
type V3 [3]float32

// V4 is a 4-component vector of float32.
type V4 [4]float32

// Blend sets v to contain the weighted sum
// wa⋅a + wb⋅b + wc⋅c.
// Weights are usually barycentric coordinates.
func (v *V4) Blend(a, b, c *V4, wa, wb, wc float32) {
	for i := range v {
		v[i] = wa*a[i] + wb*b[i] + wc*c[i]
	}
}

// Clamp sets v to contain w with every component
// clamped to [lo, hi].
func (v *V4) Clamp(w *V4, lo, hi float32) {
	for i := range v {
		v[i] = math32.Min(math32.Max(w[i], lo), hi)
	}
}
