// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package soft

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/chewxy/math32"

	"github.com/gviegas/vstream/driver"
	"github.com/gviegas/vstream/linear"
)

// execState is the rendering state of an executing
// command buffer.
type execState struct {
	fb   *framebuf
	pl   *pipeline
	vp   driver.Viewport
	vbuf [maxVertexIn]*buffer
	voff [maxVertexIn]int64
}

// vertex is the output of the vertex stage.
type vertex struct {
	win   linear.V2
	color linear.V4
}

// execute runs the commands recorded in cb.
func (g *GPU) execute(cb *cmdBuffer) (err error) {
	var st execState
	defer func() {
		if st.fb != nil {
			st.fb.mu.Unlock()
		}
	}()
	for i := range cb.cmds {
		c := &cb.cmds[i]
		switch c.kind {
		case cmdBeginPass:
			c.fb.mu.Lock()
			if c.fb.img == nil {
				c.fb.mu.Unlock()
				return errFBDestroyed
			}
			st.fb = c.fb
			st.fb.clear(c.clear.Color)
		case cmdEndPass:
			st.fb.mu.Unlock()
			st.fb = nil
		case cmdPipeline:
			st.pl = c.pl
		case cmdViewport:
			st.vp = c.vp
		case cmdVertexBuf:
			for j := range c.bufs {
				st.vbuf[c.start+j] = c.bufs[j]
				st.voff[c.start+j] = c.offs[j]
			}
		case cmdDraw:
			if err = st.draw(c.draw[0], c.draw[1], c.draw[2]); err != nil {
				return
			}
		}
	}
	return
}

// draw draws vertCount vertices starting at baseVert,
// instCount times.
// Instances are indistinguishable since the fixed
// program has no per-instance inputs.
func (st *execState) draw(vertCount, instCount, baseVert int) error {
	if st.pl == nil {
		return errors.New("soft: draw without pipeline")
	}
	if instCount < 1 {
		return nil
	}
	var tri [3]vertex
	for v := baseVert; v+2 < baseVert+vertCount; v += 3 {
		for k := range tri {
			if err := st.shade(v+k, &tri[k]); err != nil {
				return err
			}
		}
		st.fill(&tri)
	}
	return nil
}

// shade fetches the inputs of vertex index and maps
// its position to window coordinates.
func (st *execState) shade(index int, out *vertex) error {
	pos, err := st.fetch(st.pl.pos, index, 1)
	if err != nil {
		return err
	}
	if st.pl.hasCol {
		if out.color, err = st.fetch(st.pl.color, index, 1); err != nil {
			return err
		}
	} else {
		out.color = linear.V4{1, 1, 1, 1}
	}
	w := pos[3]
	if w == 0 {
		w = 1
	}
	vp := st.vp
	if vp.Width == 0 || vp.Height == 0 {
		width, height := st.fb.size()
		vp = driver.Viewport{Width: float32(width), Height: float32(height)}
	}
	out.win[0] = vp.X + (pos[0]/w+1)*0.5*vp.Width
	out.win[1] = vp.Y + (1-pos[1]/w)*0.5*vp.Height
	return nil
}

// fetch reads the value of input in for vertex index.
// Missing components take the value of fill, except
// for x, y and z which default to 0.
func (st *execState) fetch(in driver.VertexIn, index int, fill float32) (v linear.V4, err error) {
	b := st.vbuf[in.Nr]
	if b == nil {
		return v, fmt.Errorf("soft: no vertex buffer bound at %d", in.Nr)
	}
	n := in.Format.Size()
	off := st.voff[in.Nr] + int64(index*in.Stride)
	if off < 0 || off+int64(n) > int64(len(b.data)) {
		return v, fmt.Errorf("soft: vertex %d of input %d out of bounds", index, in.Nr)
	}
	v[3] = fill
	src := b.data[off : off+int64(n)]
	for i := 0; i < n/4; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return
}

// fill rasterizes a triangle into the current
// framebuffer, interpolating vertex colors.
func (st *execState) fill(tri *[3]vertex) {
	a, b, c := &tri[0].win, &tri[1].win, &tri[2].win
	area := linear.Edge(a, b, c)
	if area == 0 {
		return
	}
	// Window coordinates are y-down, so a triangle
	// that is counter-clockwise in clip space has
	// negative area here.
	front := (area < 0) != st.pl.raster.Clockwise
	switch st.pl.raster.Cull {
	case driver.CBack:
		if !front {
			return
		}
	case driver.CFront:
		if front {
			return
		}
	}

	img := st.fb.img
	bnd := img.Rect
	x0 := max(int(math32.Floor(math32.Min(a[0], math32.Min(b[0], c[0])))), bnd.Min.X)
	x1 := min(int(math32.Ceil(math32.Max(a[0], math32.Max(b[0], c[0])))), bnd.Max.X-1)
	y0 := max(int(math32.Floor(math32.Min(a[1], math32.Min(b[1], c[1])))), bnd.Min.Y)
	y1 := min(int(math32.Ceil(math32.Max(a[1], math32.Max(b[1], c[1])))), bnd.Max.Y-1)

	inv := 1 / area
	var p linear.V2
	var col linear.V4
	for y := y0; y <= y1; y++ {
		p[1] = float32(y) + 0.5
		for x := x0; x <= x1; x++ {
			p[0] = float32(x) + 0.5
			wa := linear.Edge(b, c, &p) * inv
			wb := linear.Edge(c, a, &p) * inv
			wc := linear.Edge(a, b, &p) * inv
			if wa < 0 || wb < 0 || wc < 0 {
				continue
			}
			col.Blend(&tri[0].color, &tri[1].color, &tri[2].color, wa, wb, wc)
			col.Clamp(&col, 0, 1)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(col[0]*255 + 0.5),
				G: uint8(col[1]*255 + 0.5),
				B: uint8(col[2]*255 + 0.5),
				A: uint8(col[3]*255 + 0.5),
			})
		}
	}
}
