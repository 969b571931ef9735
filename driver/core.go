// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"image"
)

// GPU is the main interface to an underlying driver
// implementation.
// It is used to create other types and to execute commands.
// A GPU is obtained from a call to Driver.Open.
type GPU interface {
	// Driver returns the Driver that owns the GPU.
	Driver() Driver

	// Commit commits a work item to the GPU for execution.
	// The command buffers in wk.Work must have been ended.
	// If Commit succeeds, wk is sent to ch when all of its
	// commands complete execution, with wk.Err set to the
	// result of the execution. Command buffers in wk.Work
	// cannot be used for recording until then.
	// If Commit fails, nothing is sent to ch and the
	// command buffers must be reset by the caller.
	// ch may receive from the GPU's own goroutines, so
	// it should be buffered.
	Commit(wk *WorkItem, ch chan<- *WorkItem) error

	// NewCmdBuffer creates a new command buffer.
	NewCmdBuffer() (CmdBuffer, error)

	// NewShaderCode creates a new shader code.
	NewShaderCode(data []byte) (ShaderCode, error)

	// NewPipeline creates a new graphics pipeline.
	NewPipeline(state *GraphState) (Pipeline, error)

	// NewBuffer creates a new buffer.
	NewBuffer(size int64, visible bool, usg Usage) (Buffer, error)

	// NewFB creates a new framebuffer of the given size.
	NewFB(width, height int) (Framebuf, error)

	// Limits returns the implementation limits.
	// They are immutable for the lifetime of the GPU.
	Limits() Limits
}

// WorkItem is a batch of command buffers committed
// to the GPU as a unit.
type WorkItem struct {
	// Work is the list of command buffers to execute.
	// Wait operations defined in a command buffer apply
	// to the batch as a whole, so order is meaningful.
	Work []CmdBuffer

	// Err is set by the GPU to the result of the
	// execution.
	Err error

	// Custom is not interpreted by the GPU.
	Custom any
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may allocate external
// memory that is not managed by GC, so Destroy must be
// called explicitly to ensure such memory is deallocated.
type Destroyer interface {
	Destroy()
}

// CmdBuffer is the interface that defines a command buffer.
// Commands are recorded into command buffers and later
// committed to the GPU for execution. The usage is as
// follows:
//
//  1. call Begin
//  2. call BeginPass
//  3. call Set* methods to configure rendering state
//  4. call Draw
//  5. repeat 3-4 as needed
//  6. call EndPass
//  7. call End and, if it succeeds, GPU.Commit
type CmdBuffer interface {
	Destroyer

	// Begin prepares the command buffer for recording.
	// This method must be called before any command
	// is recorded in the command buffer. It needs to
	// be called again if the command buffer is
	// executed or reset.
	Begin() error

	// IsRecording returns whether Begin was called
	// and neither End nor Reset were called since.
	IsRecording() bool

	// BeginPass begins a render pass targeting fb.
	// The framebuffer is cleared to clear.
	BeginPass(fb Framebuf, clear ClearValue)

	// EndPass ends the current render pass.
	EndPass()

	// SetPipeline sets the graphics pipeline.
	SetPipeline(pl Pipeline)

	// SetViewport sets the bounds of the viewport.
	SetViewport(vp Viewport)

	// SetVertexBuf sets one or more vertex buffers.
	// off must be aligned to the size of the data
	// format as specified in the vertex input of
	// the bound graphics pipeline.
	SetVertexBuf(start int, buf []Buffer, off []int64)

	// Draw draws primitives.
	// It must only be called during a render pass.
	Draw(vertCount, instCount, baseVert, baseInst int)

	// End ends command recording and prepares the
	// command buffer for execution.
	// New recordings are not allowed until the
	// command buffer is executed or reset.
	// Upon failure, the command buffer is reset.
	End() error

	// Reset discards all recorded commands from the
	// command buffer.
	Reset() error
}

// ClearValue defines the clear color of a render pass.
type ClearValue struct {
	Color [4]float32
}

// Viewport defines the bounds of a viewport.
type Viewport struct {
	X, Y, Width, Height, Znear, Zfar float32
}

// ShaderCode is the interface that defines a shader binary
// for execution in a programmable pipeline stage.
type ShaderCode interface {
	Destroyer
}

// ShaderFunc specifies a function within a shader binary.
type ShaderFunc struct {
	Code ShaderCode
	Name string
}

// VertexFmt describes the format of a vertex input.
type VertexFmt int

// Vertex formats.
const (
	Float32 VertexFmt = iota
	Float32x2
	Float32x3
	Float32x4
)

// Size returns the size in bytes of the format.
func (f VertexFmt) Size() int {
	switch f {
	case Float32:
		return 4
	case Float32x2:
		return 8
	case Float32x3:
		return 12
	case Float32x4:
		return 16
	}
	panic("driver.VertexFmt.Size: undefined format")
}

// VertexIn describes a vertex input.
// Nr is the shader location of the input and the
// vertex buffer binding it is read from.
type VertexIn struct {
	Format VertexFmt
	Stride int
	Nr     int
	Name   string
}

// Topology is the type of primitive topologies.
type Topology int

// Primitive topologies.
const (
	TPoint Topology = iota
	TLine
	TTriangle
)

// CullMode is the type of cull modes.
type CullMode int

// Cull modes.
const (
	CNone CullMode = iota
	CFront
	CBack
)

// RasterState defines the rasterization state of a
// graphics pipeline.
type RasterState struct {
	Clockwise bool
	Cull      CullMode
}

// GraphState defines the state of a graphics pipeline.
type GraphState struct {
	VertFunc ShaderFunc
	FragFunc ShaderFunc
	Input    []VertexIn
	Topology Topology
	Raster   RasterState
	Samples  int
}

// Pipeline is the interface that defines a GPU pipeline.
type Pipeline interface {
	Destroyer
}

// Usage is the type of buffer usages.
type Usage int

// Usage flags.
const (
	UCopySrc Usage = 1 << iota
	UCopyDst
	UShaderRead
	UShaderConst
	UVertexData
	UIndexData
	URenderTarget
	UGeneric Usage = 1<<iota - 1
)

// Buffer is the interface that defines a GPU buffer.
type Buffer interface {
	Destroyer

	// Visible returns whether the buffer is host visible.
	// Non-visible memory cannot be accessed by the CPU.
	Visible() bool

	// Bytes returns a slice of length Cap referring to the
	// underlying data. If the buffer is not host visible,
	// it returns nil instead.
	// The slice is valid for the lifetime of the buffer.
	Bytes() []byte

	// Cap returns the capacity of the buffer in bytes,
	// which may be greater than the size requested during
	// buffer creation.
	// This value is immutable.
	Cap() int64
}

// Framebuf is the interface that defines the render
// target of a render pass.
type Framebuf interface {
	Destroyer

	// Size returns the width and height of the
	// framebuffer in pixels.
	Size() (width, height int)
}

// FBReader is the interface that a Framebuf may implement
// to allow its contents to be copied to CPU memory.
// The copy must only be requested when no work targeting
// the framebuffer is executing.
type FBReader interface {
	ReadImage() (*image.RGBA, error)
}

// Limits describes implementation limits.
type Limits struct {
	// Maximum size of a buffer, in bytes.
	MaxBuffer int64
	// Maximum width/height of a framebuffer.
	MaxFBSize [2]int
	// Maximum number of vertex inputs.
	MaxVertexIn int
	// Maximum number of work items executing at once.
	MaxInFlight int
}
