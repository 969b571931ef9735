// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"fmt"
	"image"
	"os"

	"github.com/HugoSmits86/nativewebp"
	"go.uber.org/zap"

	"github.com/gviegas/vstream/render"
)

// captureFrame writes the most recently presented frame
// of r to path.
func captureFrame(r *render.Renderer, path string, log *zap.Logger) error {
	img, err := r.Snapshot()
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := writeWebP(path, img); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	log.Info("frame captured", zap.String("path", path), zap.Stringer("size", img.Rect.Size()))
	return nil
}

// writeWebP encodes img as lossless WebP into a new file.
func writeWebP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
