// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package soft

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/gviegas/vstream/driver"
)

// framebuf implements driver.Framebuf and driver.FBReader.
type framebuf struct {
	mu  sync.Mutex
	img *image.RGBA
}

func newFramebuf(width, height int) (*framebuf, error) {
	if width <= 0 || height <= 0 || width > maxFBSize || height > maxFBSize {
		return nil, errors.New("soft: invalid framebuffer size")
	}
	return &framebuf{img: image.NewRGBA(image.Rect(0, 0, width, height))}, nil
}

// errFBDestroyed is returned when a destroyed framebuffer
// is read or rendered to.
var errFBDestroyed = errors.New("soft: framebuffer destroyed")

// Size returns the framebuffer's dimensions.
// A destroyed framebuffer has size 0x0.
func (f *framebuf) Size() (width, height int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size()
}

// size is like Size but the caller must hold f.mu.
func (f *framebuf) size() (width, height int) {
	if f.img == nil {
		return
	}
	sz := f.img.Rect.Size()
	return sz.X, sz.Y
}

// clear fills the framebuffer with c.
// The caller must hold f.mu.
func (f *framebuf) clear(c [4]float32) {
	var px color.RGBA
	for i, x := range [4]*uint8{&px.R, &px.G, &px.B, &px.A} {
		*x = uint8(min(max(c[i], 0), 1)*255 + 0.5)
	}
	pix := f.img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = px.R, px.G, px.B, px.A
	}
}

// ReadImage returns a copy of the framebuffer's contents.
func (f *framebuf) ReadImage() (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.img == nil {
		return nil, errFBDestroyed
	}
	img := image.NewRGBA(f.img.Rect)
	copy(img.Pix, f.img.Pix)
	return img, nil
}

// Destroy destroys the framebuffer.
func (f *framebuf) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.img = nil
}

// swapchain implements driver.Swapchain.
type swapchain struct {
	mu        sync.Mutex
	fbs       []driver.Framebuf
	busy      []bool
	next      int
	presented int
}

// NewSwapchain creates a new swapchain.
func (g *GPU) NewSwapchain(width, height, imageCount int) (driver.Swapchain, error) {
	if imageCount < 1 {
		return nil, errors.New("soft: swapchain requires at least one image")
	}
	sc := &swapchain{
		fbs:       make([]driver.Framebuf, imageCount),
		busy:      make([]bool, imageCount),
		presented: -1,
	}
	for i := range sc.fbs {
		fb, err := newFramebuf(width, height)
		if err != nil {
			return nil, err
		}
		sc.fbs[i] = fb
	}
	return sc, nil
}

// Framebufs returns the swapchain's framebuffers.
func (s *swapchain) Framebufs() []driver.Framebuf { return s.fbs }

// Next returns the index of the next writable framebuffer.
func (s *swapchain) Next() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.busy)
	for i := range n {
		idx := (s.next + i) % n
		if !s.busy[idx] {
			s.busy[idx] = true
			s.next = (idx + 1) % n
			return idx, nil
		}
	}
	return -1, driver.ErrNoBackbuffer
}

// release marks index as not in use.
func (s *swapchain) release(index int) error {
	if index < 0 || index >= len(s.busy) || !s.busy[index] {
		return fmt.Errorf("%w: backbuffer %d was not acquired", driver.ErrSwapchain, index)
	}
	s.busy[index] = false
	return nil
}

// Present presents the framebuffer identified by index.
func (s *swapchain) Present(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.release(index); err != nil {
		return err
	}
	s.presented = index
	return nil
}

// Discard releases the framebuffer identified by index.
func (s *swapchain) Discard(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.release(index)
}

// Presented returns the most recently presented index.
func (s *swapchain) Presented() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented, s.presented >= 0
}

// Destroy destroys the swapchain.
func (s *swapchain) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fb := range s.fbs {
		fb.Destroy()
	}
	s.fbs = nil
	s.busy = nil
}
