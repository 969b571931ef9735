// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package soft

import (
	"errors"

	"github.com/gviegas/vstream/driver"
)

// shaderCode implements driver.ShaderCode.
// The code is kept but never interpreted: soft pipelines
// run a fixed pass-through program.
type shaderCode struct {
	data []byte
}

// NewShaderCode creates a new shader code.
func (g *GPU) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	if len(data) == 0 {
		return nil, errors.New("soft: empty shader code")
	}
	s := &shaderCode{data: make([]byte, len(data))}
	copy(s.data, data)
	return s, nil
}

// Destroy destroys the shader code.
func (s *shaderCode) Destroy() { s.data = nil }

// pipeline implements driver.Pipeline.
//
// Vertex input 0 is taken as the clip-space position
// and vertex input 1, if present, as the color.
// The fragment stage outputs the interpolated color.
type pipeline struct {
	pos    driver.VertexIn
	color  driver.VertexIn
	hasCol bool
	raster driver.RasterState
}

// NewPipeline creates a new graphics pipeline.
func (g *GPU) NewPipeline(state *driver.GraphState) (driver.Pipeline, error) {
	if state == nil {
		return nil, errors.New("soft: nil graphics state")
	}
	for _, f := range [2]driver.ShaderFunc{state.VertFunc, state.FragFunc} {
		if _, ok := f.Code.(*shaderCode); !ok {
			return nil, errors.New("soft: missing shader function")
		}
		if f.Name == "" {
			return nil, errors.New("soft: unnamed shader function")
		}
	}
	if state.Topology != driver.TTriangle {
		return nil, errors.New("soft: only triangle lists are supported")
	}
	if n := len(state.Input); n == 0 || n > maxVertexIn {
		return nil, errors.New("soft: invalid number of vertex inputs")
	}
	pl := &pipeline{raster: state.Raster}
	var hasPos bool
	for _, in := range state.Input {
		if in.Nr < 0 || in.Nr >= maxVertexIn {
			return nil, errors.New("soft: vertex input number out of range")
		}
		if in.Stride < in.Format.Size() {
			return nil, errors.New("soft: vertex stride smaller than format")
		}
		switch in.Nr {
		case 0:
			pl.pos = in
			hasPos = true
		case 1:
			pl.color = in
			pl.hasCol = true
		}
	}
	if !hasPos {
		return nil, errors.New("soft: missing position input")
	}
	return pl, nil
}

// Destroy destroys the pipeline.
func (p *pipeline) Destroy() { *p = pipeline{} }
