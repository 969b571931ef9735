// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package render

import (
	"context"
	"errors"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gviegas/vstream/anim"
	"github.com/gviegas/vstream/driver"
	"github.com/gviegas/vstream/driver/soft"
	"github.com/gviegas/vstream/frameslot"
)

func openGPU(t *testing.T, opts soft.Options) driver.GPU {
	t.Helper()
	opts.Logger = zaptest.NewLogger(t)
	drv := soft.New(opts)
	gpu, err := drv.Open()
	require.NoError(t, err)
	t.Cleanup(drv.Close)
	return gpu
}

func newRenderer(t *testing.T, gpu driver.GPU, cfg Config, obs frameslot.Observer) *Renderer {
	t.Helper()
	r, err := New(gpu, cfg, Options{Logger: zaptest.NewLogger(t), Observer: obs})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(context.Background()) })
	return r
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 64
	cfg.Height = 48
	return cfg
}

type counter struct {
	acquired, submitted, released, dropped, failed atomic.Int64
}

func (c *counter) SlotAcquired(frameslot.Slot, time.Duration) { c.acquired.Add(1) }
func (c *counter) SlotSubmitted(frameslot.Slot)               { c.submitted.Add(1) }

func (c *counter) SlotReleased(_ frameslot.Slot, err error) {
	c.released.Add(1)
	switch {
	case err == nil:
	case errors.Is(err, frameslot.ErrDropped):
		c.dropped.Add(1)
	default:
		c.failed.Add(1)
	}
}

func TestNewConfig(t *testing.T) {
	gpu := openGPU(t, soft.Options{})
	for i, f := range [...]func(*Config){
		func(c *Config) { c.Slots = 0 },
		func(c *Config) { c.RegionStride = anim.PayloadSize - 1 },
		func(c *Config) { c.BufferSize = int64(c.Slots*c.RegionStride) - 1 },
		func(c *Config) { c.BufferSize = gpu.Limits().MaxBuffer + 1 },
		func(c *Config) { c.Slots = gpu.Limits().MaxInFlight + 1; c.BufferSize = 1 << 30 },
		func(c *Config) { c.Width = 0 },
		func(c *Config) { c.SkipEvery = -1 },
	} {
		cfg := smallConfig()
		f(&cfg)
		_, err := New(gpu, cfg, Options{})
		require.ErrorIs(t, err, ErrConfig, "case %d", i)
	}

	// Hide the driver.Presenter implementation.
	_, err := New(struct{ driver.GPU }{gpu}, smallConfig(), Options{})
	require.ErrorIs(t, err, ErrConfig)
	require.ErrorIs(t, err, driver.ErrCannotPresent)

	cfg := smallConfig()
	cfg.Backbuffers = 0
	r := newRenderer(t, gpu, cfg, nil)
	require.Equal(t, cfg.Slots, len(r.sc.Framebufs()))
	require.Equal(t, cfg.Slots, r.coord.Len())

	// Raising the slot count alone must raise the
	// backbuffer count as well.
	cfg = smallConfig()
	cfg.Slots = 5
	r = newRenderer(t, gpu, cfg, nil)
	require.Equal(t, 5, len(r.sc.Framebufs()))
	require.Equal(t, 5, r.coord.Len())
}

func TestFrame(t *testing.T) {
	const n = 30
	gpu := openGPU(t, soft.Options{Workers: 3, Latency: time.Millisecond, Jitter: time.Millisecond})
	obs := &counter{}
	r := newRenderer(t, gpu, smallConfig(), obs)
	ctx := context.Background()

	subs := make([]*frameslot.Submission, 0, n)
	for i := range n {
		sub, err := r.Frame(ctx)
		require.NoError(t, err)
		require.Equal(t, frameslot.Slot(i%3), sub.Slot)
		require.Equal(t, uint64(i+1), sub.Frame)
		require.LessOrEqual(t, r.Outstanding(), 3)
		subs = append(subs, sub)
	}
	for _, sub := range subs {
		require.NoError(t, sub.Wait(ctx))
	}
	require.NoError(t, r.Drain(ctx))
	require.Zero(t, r.Outstanding())
	require.Equal(t, uint64(n), r.Frames())
	require.Equal(t, uint64(n), r.state.Steps())

	img, err := r.Snapshot()
	require.NoError(t, err)
	blue := color.RGBA{0, 0, 255, 255}
	require.Equal(t, blue, img.RGBAAt(1, 24))
	var other int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) != blue {
				other++
			}
		}
	}
	require.Positive(t, other, "animated triangle not drawn")

	require.NoError(t, r.Close(ctx))
	assert.Equal(t, int64(n), obs.acquired.Load())
	assert.Equal(t, int64(n), obs.submitted.Load())
	assert.Equal(t, int64(n), obs.released.Load())
	assert.Zero(t, obs.dropped.Load())
	assert.Zero(t, obs.failed.Load())
}

func TestFrameRegion(t *testing.T) {
	gpu := openGPU(t, soft.Options{Latency: 10 * time.Millisecond})
	r := newRenderer(t, gpu, smallConfig(), nil)
	ctx := context.Background()

	want := make([]byte, anim.PayloadSize)
	for i := range 3 {
		_, err := r.Frame(ctx)
		require.NoError(t, err)
		r.state.Encode(want)
		off := i * r.cfg.RegionStride
		require.Equal(t, want, r.vbuf.Bytes()[off:off+anim.PayloadSize], "region %d", i)
	}
}

func TestSkipEvery(t *testing.T) {
	gpu := openGPU(t, soft.Options{})
	obs := &counter{}
	cfg := smallConfig()
	cfg.SkipEvery = 3
	r := newRenderer(t, gpu, cfg, obs)
	ctx := context.Background()

	for i := range 9 {
		sub, err := r.Frame(ctx)
		require.NoError(t, err)
		err = sub.Wait(ctx)
		if (i+1)%3 == 0 {
			require.ErrorIs(t, err, frameslot.ErrDropped, "frame %d", i+1)
		} else {
			require.NoError(t, err, "frame %d", i+1)
		}
	}
	require.NoError(t, r.Close(ctx))
	assert.Equal(t, int64(3), obs.dropped.Load())
	assert.Equal(t, int64(9), obs.released.Load())
}

func TestNoBackbuffer(t *testing.T) {
	gpu := openGPU(t, soft.Options{Latency: 50 * time.Millisecond})
	cfg := smallConfig()
	cfg.Backbuffers = 1
	r := newRenderer(t, gpu, cfg, nil)
	ctx := context.Background()

	first, err := r.Frame(ctx)
	require.NoError(t, err)
	second, err := r.Frame(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, second.Wait(ctx), frameslot.ErrDropped)
	require.Equal(t, frameslot.Slot(1), second.Slot)
	require.NoError(t, first.Wait(ctx))

	third, err := r.Frame(ctx)
	require.NoError(t, err)
	require.Equal(t, frameslot.Slot(2), third.Slot)
	require.NoError(t, third.Wait(ctx))
}

func TestFailedExecution(t *testing.T) {
	gpu := openGPU(t, soft.Options{FailEvery: 2})
	obs := &counter{}
	r := newRenderer(t, gpu, smallConfig(), obs)
	ctx := context.Background()

	for i := range 6 {
		sub, err := r.Frame(ctx)
		require.NoError(t, err)
		err = sub.Wait(ctx)
		if i%2 == 1 {
			require.Error(t, err)
			require.NotErrorIs(t, err, frameslot.ErrDropped)
		} else {
			require.NoError(t, err)
		}
	}
	require.NoError(t, r.Close(ctx))
	assert.Equal(t, int64(3), obs.failed.Load())
	assert.Equal(t, int64(6), obs.released.Load())
}

func TestClose(t *testing.T) {
	gpu := openGPU(t, soft.Options{Latency: 30 * time.Millisecond})
	r := newRenderer(t, gpu, smallConfig(), nil)
	ctx := context.Background()

	_, err := r.Snapshot()
	require.Error(t, err)
	for range 3 {
		_, err := r.Frame(ctx)
		require.NoError(t, err)
	}
	tctx, cancel := context.WithTimeout(ctx, time.Millisecond)
	defer cancel()
	require.ErrorIs(t, r.Close(tctx), context.DeadlineExceeded)

	require.NoError(t, r.Close(ctx))
	require.Zero(t, r.Outstanding())
	require.NoError(t, r.Close(ctx))
	_, err = r.Frame(ctx)
	require.ErrorIs(t, err, frameslot.ErrClosed)
}
