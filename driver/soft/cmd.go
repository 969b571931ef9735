// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package soft

import (
	"errors"
	"sync"

	"github.com/gviegas/vstream/driver"
)

// Command buffer states.
const (
	cbIdle = iota
	cbRecording
	cbEnded
	cbPending
)

// cmdKind identifies a recorded command.
type cmdKind int

const (
	cmdBeginPass cmdKind = iota
	cmdEndPass
	cmdPipeline
	cmdViewport
	cmdVertexBuf
	cmdDraw
)

// command is a recorded command.
type command struct {
	kind  cmdKind
	fb    *framebuf
	clear driver.ClearValue
	pl    *pipeline
	vp    driver.Viewport
	start int
	bufs  []*buffer
	offs  []int64
	draw  [4]int
}

// cmdBuffer implements driver.CmdBuffer.
type cmdBuffer struct {
	gpu *GPU

	mu     sync.Mutex
	state  int
	inPass bool
	err    error
	cmds   []command
}

// NewCmdBuffer creates a new command buffer.
func (g *GPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	return &cmdBuffer{gpu: g}, nil
}

var (
	errCBInUse    = errors.New("soft: command buffer in use")
	errCBNotEnded = errors.New("soft: command buffer not ended")
	errNoPass     = errors.New("soft: command requires a render pass")
	errNestedPass = errors.New("soft: render pass already begun")
	errOpenPass   = errors.New("soft: render pass not ended")
	errForeign    = errors.New("soft: object not created by this driver")
)

// Begin prepares the command buffer for recording.
func (cb *cmdBuffer) Begin() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case cbPending:
		return errCBInUse
	case cbRecording:
		return errors.New("soft: command buffer already recording")
	}
	cb.state = cbRecording
	cb.inPass = false
	cb.err = nil
	cb.cmds = cb.cmds[:0]
	return nil
}

// IsRecording returns whether cb is recording.
func (cb *cmdBuffer) IsRecording() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state == cbRecording
}

// record appends c to the command list.
// Misuse is reported by End.
func (cb *cmdBuffer) record(c command) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != cbRecording {
		panic("soft: command recorded outside Begin/End")
	}
	if cb.err != nil {
		return
	}
	switch c.kind {
	case cmdBeginPass:
		if cb.inPass {
			cb.err = errNestedPass
			return
		}
		cb.inPass = true
	case cmdEndPass:
		if !cb.inPass {
			cb.err = errNoPass
			return
		}
		cb.inPass = false
	case cmdDraw:
		if !cb.inPass {
			cb.err = errNoPass
			return
		}
	}
	cb.cmds = append(cb.cmds, c)
}

// BeginPass begins a render pass.
func (cb *cmdBuffer) BeginPass(fb driver.Framebuf, clear driver.ClearValue) {
	f, ok := fb.(*framebuf)
	if !ok {
		cb.fail(errForeign)
		return
	}
	cb.record(command{kind: cmdBeginPass, fb: f, clear: clear})
}

// EndPass ends the current render pass.
func (cb *cmdBuffer) EndPass() { cb.record(command{kind: cmdEndPass}) }

// SetPipeline sets the graphics pipeline.
func (cb *cmdBuffer) SetPipeline(pl driver.Pipeline) {
	p, ok := pl.(*pipeline)
	if !ok {
		cb.fail(errForeign)
		return
	}
	cb.record(command{kind: cmdPipeline, pl: p})
}

// SetViewport sets the viewport.
func (cb *cmdBuffer) SetViewport(vp driver.Viewport) {
	cb.record(command{kind: cmdViewport, vp: vp})
}

// SetVertexBuf sets one or more vertex buffers.
func (cb *cmdBuffer) SetVertexBuf(start int, buf []driver.Buffer, off []int64) {
	if len(buf) != len(off) || start < 0 || start+len(buf) > maxVertexIn {
		cb.fail(errors.New("soft: invalid vertex buffer range"))
		return
	}
	bufs := make([]*buffer, len(buf))
	for i, x := range buf {
		b, ok := x.(*buffer)
		if !ok {
			cb.fail(errForeign)
			return
		}
		bufs[i] = b
	}
	offs := make([]int64, len(off))
	copy(offs, off)
	cb.record(command{kind: cmdVertexBuf, start: start, bufs: bufs, offs: offs})
}

// Draw draws primitives.
func (cb *cmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int) {
	cb.record(command{kind: cmdDraw, draw: [4]int{vertCount, instCount, baseVert, baseInst}})
}

// fail records err as the recording error, unless one
// was already recorded.
func (cb *cmdBuffer) fail(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.err == nil {
		cb.err = err
	}
}

// End ends command recording.
func (cb *cmdBuffer) End() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != cbRecording {
		return errors.New("soft: command buffer not recording")
	}
	err := cb.err
	if err == nil && cb.inPass {
		err = errOpenPass
	}
	if err != nil {
		cb.state = cbIdle
		cb.cmds = cb.cmds[:0]
		cb.err = nil
		return err
	}
	cb.state = cbEnded
	return nil
}

// Reset discards all recorded commands.
func (cb *cmdBuffer) Reset() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == cbPending {
		return errCBInUse
	}
	cb.state = cbIdle
	cb.inPass = false
	cb.err = nil
	cb.cmds = cb.cmds[:0]
	return nil
}

// markPending transitions cb from ended to pending.
func (cb *cmdBuffer) markPending() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case cbEnded:
		cb.state = cbPending
		return nil
	case cbPending:
		return errCBInUse
	}
	return errCBNotEnded
}

// unmarkPending undoes markPending.
func (cb *cmdBuffer) unmarkPending() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == cbPending {
		cb.state = cbEnded
	}
}

// finish is called when cb's execution completes.
func (cb *cmdBuffer) finish() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = cbIdle
}

// Destroy destroys the command buffer.
func (cb *cmdBuffer) Destroy() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.cmds = nil
	cb.state = cbIdle
}
