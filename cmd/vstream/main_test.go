// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gviegas/vstream/driver/soft"
	"github.com/gviegas/vstream/render"
)

func newRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	log := zaptest.NewLogger(t)
	drv := soft.New(soft.Options{Workers: 2, Logger: log})
	gpu, err := drv.Open()
	require.NoError(t, err)
	t.Cleanup(drv.Close)
	cfg := render.DefaultConfig()
	cfg.Width, cfg.Height = 32, 32
	r, err := render.New(gpu, cfg, render.Options{Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(context.Background()) })
	return r
}

func TestLoop(t *testing.T) {
	r := newRenderer(t)
	require.NoError(t, loop(context.Background(), r, time.Millisecond, 10, zaptest.NewLogger(t)))
	require.Equal(t, uint64(10), r.Frames())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, loop(ctx, r, time.Millisecond, 0, zaptest.NewLogger(t)))
	require.Equal(t, uint64(10), r.Frames())
}

func TestCaptureFrame(t *testing.T) {
	r := newRenderer(t)
	path := filepath.Join(t.TempDir(), "frame.webp")
	require.Error(t, captureFrame(r, path, zaptest.NewLogger(t)))

	require.NoError(t, loop(context.Background(), r, time.Millisecond, 3, zaptest.NewLogger(t)))
	require.NoError(t, r.Drain(context.Background()))
	require.NoError(t, captureFrame(r, path, zaptest.NewLogger(t)))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(b), 12)
	assert.Equal(t, "RIFF", string(b[:4]))
	assert.Equal(t, "WEBP", string(b[8:12]))
}

func TestWriteWebP(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(1, 1, color.RGBA{255, 0, 0, 255})
	require.Error(t, writeWebP(filepath.Join(t.TempDir(), "missing", "x.webp"), img))
}
