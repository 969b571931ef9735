// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package render draws the vertex streaming scene.
//
// Every frame, the Renderer claims a frame slot, writes the
// animated vertex positions into the slot's region of a
// persistent vertex buffer and commits a command buffer that
// draws from that region into a swapchain backbuffer. The
// slot is released when the GPU reports completion, after
// the backbuffer is presented.
package render

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/gviegas/vstream/anim"
	"github.com/gviegas/vstream/driver"
	"github.com/gviegas/vstream/frameslot"
)

//go:embed shader/passthrough.wgsl
var shaderSource []byte

const (
	vertFunc = "vs_main"
	fragFunc = "fs_main"
)

// Options holds optional collaborators of a Renderer.
type Options struct {
	// Default is zap.NewNop().
	Logger *zap.Logger

	// Receives the frame slot events.
	Observer frameslot.Observer
}

// Renderer draws frames.
// Frame must not be called concurrently.
type Renderer struct {
	gpu   driver.GPU
	sc    driver.Swapchain
	cfg   Config
	log   *zap.Logger
	coord *frameslot.Coordinator

	vbuf  driver.Buffer
	cbuf  driver.Buffer
	code  driver.ShaderCode
	pl    driver.Pipeline
	cb    []driver.CmdBuffer
	tasks []drawTask

	ch    chan *driver.WorkItem
	wg    sync.WaitGroup
	state anim.State

	mu     sync.Mutex
	closed bool
}

// drawTask is the frameslot.Task that commits the
// command buffer of a slot.
type drawTask struct {
	r       *Renderer
	slot    frameslot.Slot
	backbuf int
	wk      driver.WorkItem
	done    func(error)
}

// Run commits the slot's command buffer.
func (t *drawTask) Run(done func(error)) error {
	t.done = done
	t.wk = driver.WorkItem{Work: []driver.CmdBuffer{t.r.cb[t.slot]}, Custom: t}
	if err := t.r.gpu.Commit(&t.wk, t.r.ch); err != nil {
		t.done = nil
		t.r.discard(t.backbuf)
		return err
	}
	return nil
}

// New creates a new Renderer that draws using gpu.
// gpu must implement driver.Presenter.
func New(gpu driver.GPU, cfg Config, opts Options) (r *Renderer, err error) {
	if err = cfg.validate(); err != nil {
		return
	}
	pres, ok := gpu.(driver.Presenter)
	if !ok {
		err = fmt.Errorf("%w: %w", ErrConfig, driver.ErrCannotPresent)
		return
	}
	lim := gpu.Limits()
	if cfg.BufferSize > lim.MaxBuffer {
		err = fmt.Errorf("%w: buffer size %d exceeds limit of %d", ErrConfig, cfg.BufferSize, lim.MaxBuffer)
		return
	}
	if cfg.Slots > lim.MaxInFlight {
		err = fmt.Errorf("%w: %d frames in flight exceed limit of %d", ErrConfig, cfg.Slots, lim.MaxInFlight)
		return
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r = &Renderer{
		gpu:   gpu,
		cfg:   cfg,
		log:   opts.Logger.Named("render"),
		ch:    make(chan *driver.WorkItem, cfg.Slots),
		state: anim.NewState(),
	}
	defer func() {
		if err != nil {
			r.destroy()
			r = nil
		}
	}()

	if r.sc, err = pres.NewSwapchain(cfg.Width, cfg.Height, cfg.Backbuffers); err != nil {
		err = fmt.Errorf("render: swapchain creation failed: %w", err)
		return
	}
	if cfg.SkipEvery > 0 {
		r.sc = &skipper{Swapchain: r.sc, n: cfg.SkipEvery}
	}
	if err = r.newBuffers(); err != nil {
		return
	}
	if err = r.newPipeline(); err != nil {
		return
	}
	r.cb = make([]driver.CmdBuffer, cfg.Slots)
	r.tasks = make([]drawTask, cfg.Slots)
	for i := range r.cb {
		if r.cb[i], err = gpu.NewCmdBuffer(); err != nil {
			err = fmt.Errorf("render: command buffer creation failed: %w", err)
			return
		}
		r.tasks[i] = drawTask{r: r, slot: frameslot.Slot(i), backbuf: -1}
	}

	regions, err := frameslot.NewRegions(r.vbuf.Bytes(), cfg.Slots, cfg.RegionStride)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrConfig, err)
		return
	}
	if r.coord, err = frameslot.New(regions, frameslot.Options{Logger: opts.Logger, Observer: opts.Observer}); err != nil {
		err = fmt.Errorf("%w: %w", ErrConfig, err)
		return
	}

	r.wg.Add(1)
	go r.complete()
	r.log.Info("renderer created",
		zap.String("driver", gpu.Driver().Name()),
		zap.Int("slots", cfg.Slots),
		zap.Int("stride", cfg.RegionStride),
		zap.Int64("buffer", cfg.BufferSize),
		zap.Int("backbuffers", cfg.Backbuffers))
	return r, nil
}

func (r *Renderer) newBuffers() (err error) {
	if r.vbuf, err = r.gpu.NewBuffer(r.cfg.BufferSize, true, driver.UVertexData); err != nil {
		return fmt.Errorf("render: vertex buffer creation failed: %w", err)
	}
	if !r.vbuf.Visible() || r.vbuf.Bytes() == nil {
		return fmt.Errorf("%w: vertex buffer is not host visible", ErrConfig)
	}
	if r.cbuf, err = r.gpu.NewBuffer(anim.PayloadSize, true, driver.UVertexData); err != nil {
		return fmt.Errorf("render: color buffer creation failed: %w", err)
	}
	if r.cbuf.Bytes() == nil {
		return fmt.Errorf("%w: color buffer is not host visible", ErrConfig)
	}
	anim.EncodeColors(r.cbuf.Bytes())
	return nil
}

func (r *Renderer) newPipeline() (err error) {
	if r.code, err = r.gpu.NewShaderCode(shaderSource); err != nil {
		return fmt.Errorf("render: shader creation failed: %w", err)
	}
	r.pl, err = r.gpu.NewPipeline(&driver.GraphState{
		VertFunc: driver.ShaderFunc{Code: r.code, Name: vertFunc},
		FragFunc: driver.ShaderFunc{Code: r.code, Name: fragFunc},
		Input: []driver.VertexIn{
			{Format: driver.Float32x4, Stride: anim.VertexSize, Nr: 0, Name: "position"},
			{Format: driver.Float32x4, Stride: anim.VertexSize, Nr: 1, Name: "color"},
		},
		Topology: driver.TTriangle,
		Raster:   driver.RasterState{Cull: driver.CNone},
		Samples:  1,
	})
	if err != nil {
		return fmt.Errorf("render: pipeline creation failed: %w", err)
	}
	return nil
}

// Frame updates the animation and draws a new frame.
// It blocks until a frame slot is available or ctx is
// done. The returned submission completes when the slot
// is released.
// If no backbuffer is available, the frame is dropped:
// the slot is released immediately and the submission
// fails with frameslot.ErrDropped.
func (r *Renderer) Frame(ctx context.Context) (*frameslot.Submission, error) {
	slot, err := r.coord.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	r.state.Step()
	r.state.Encode(r.coord.Region(slot))

	idx, err := r.sc.Next()
	if err != nil {
		if !errors.Is(err, driver.ErrNoBackbuffer) {
			r.log.Warn("backbuffer acquisition failed", zap.Error(err))
		}
		return r.coord.Submit(slot, nil), nil
	}
	if err := r.record(slot, idx); err != nil {
		r.log.Error("command recording failed", zap.Int("slot", int(slot)), zap.Error(err))
		r.discard(idx)
		return r.coord.Submit(slot, frameslot.TaskFunc(func(func(error)) error { return err })), nil
	}
	t := &r.tasks[slot]
	t.backbuf = idx
	return r.coord.Submit(slot, t), nil
}

// record records the draw of slot's vertices into the
// backbuffer identified by idx.
func (r *Renderer) record(slot frameslot.Slot, idx int) error {
	cb := r.cb[slot]
	if err := cb.Begin(); err != nil {
		return err
	}
	fb := r.sc.Framebufs()[idx]
	w, h := fb.Size()
	cb.BeginPass(fb, driver.ClearValue{Color: r.cfg.ClearColor})
	cb.SetPipeline(r.pl)
	cb.SetViewport(driver.Viewport{Width: float32(w), Height: float32(h), Zfar: 1})
	cb.SetVertexBuf(0, []driver.Buffer{r.vbuf, r.cbuf}, []int64{r.coord.Regions().Offset(slot), 0})
	cb.Draw(anim.VertexCount, 1, 0, 0)
	cb.EndPass()
	return cb.End()
}

// complete handles finished work items until r.ch
// is closed.
func (r *Renderer) complete() {
	defer r.wg.Done()
	for wk := range r.ch {
		t := wk.Custom.(*drawTask)
		err := wk.Err
		if err == nil {
			if err = r.sc.Present(t.backbuf); err != nil {
				r.log.Warn("present failed", zap.Int("backbuffer", t.backbuf), zap.Error(err))
			}
		} else {
			r.log.Debug("frame execution failed", zap.Int("slot", int(t.slot)), zap.Error(err))
			r.discard(t.backbuf)
		}
		// The slot may be reused as soon as done returns.
		done := t.done
		t.done = nil
		done(err)
	}
}

func (r *Renderer) discard(idx int) {
	if err := r.sc.Discard(idx); err != nil {
		r.log.Warn("discard failed", zap.Int("backbuffer", idx), zap.Error(err))
	}
}

// Drain blocks until every submitted frame completes.
func (r *Renderer) Drain(ctx context.Context) error { return r.coord.Drain(ctx) }

// Snapshot returns a copy of the most recently presented
// frame. It must only be called when no frame is in
// flight (e.g., after Drain).
func (r *Renderer) Snapshot() (*image.RGBA, error) {
	idx, ok := r.sc.Presented()
	if !ok {
		return nil, errors.New("render: no frame presented")
	}
	rd, ok := r.sc.Framebufs()[idx].(driver.FBReader)
	if !ok {
		return nil, errors.New("render: framebuffer cannot be read")
	}
	return rd.ReadImage()
}

// Frames returns the number of frames submitted so far.
func (r *Renderer) Frames() uint64 { return r.coord.Frames() }

// Outstanding returns the number of frames in flight.
func (r *Renderer) Outstanding() int { return r.coord.Outstanding() }

// Close waits for every frame in flight to complete and
// destroys the renderer's GPU resources.
// If ctx is done first, nothing is destroyed and Close
// may be called again.
func (r *Renderer) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if err := r.coord.Close(ctx); err != nil {
		return fmt.Errorf("render: close: %w", err)
	}
	close(r.ch)
	r.wg.Wait()
	r.destroy()
	r.closed = true
	r.log.Info("renderer closed", zap.Uint64("frames", r.coord.Frames()))
	return nil
}

// destroy destroys every GPU resource created so far.
func (r *Renderer) destroy() {
	for _, cb := range r.cb {
		if cb != nil {
			cb.Destroy()
		}
	}
	for _, d := range [...]driver.Destroyer{r.pl, r.code, r.cbuf, r.vbuf, r.sc} {
		if d != nil {
			d.Destroy()
		}
	}
}

// skipper wraps a swapchain so that every n-th call
// to Next fails with driver.ErrNoBackbuffer.
type skipper struct {
	driver.Swapchain
	n, count int
}

func (s *skipper) Next() (int, error) {
	s.count++
	if s.count%s.n == 0 {
		return -1, driver.ErrNoBackbuffer
	}
	return s.Swapchain.Next()
}
