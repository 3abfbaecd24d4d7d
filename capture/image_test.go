// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package capture

import (
	"testing"
	"time"

	"github.com/go-lpc/evcam"
)

func TestYUV420ToRGBGrayIsNeutral(t *testing.T) {
	const w, h = 4, 4
	buf := make([]byte, w*h+2*(w/2)*(h/2))
	for i := 0; i < w*h; i++ {
		buf[i] = 128
	}
	for i := w * h; i < len(buf); i++ {
		buf[i] = 128 // neutral chroma
	}

	rgb := yuv420ToRGB(buf, w, h)
	if len(rgb) != w*h*3 {
		t.Fatalf("len(rgb) = %d, want %d", len(rgb), w*h*3)
	}
	for i := 0; i < len(rgb); i += 3 {
		r, g, b := rgb[i], rgb[i+1], rgb[i+2]
		if r != 128 || g != 128 || b != 128 {
			t.Fatalf("pixel %d: got (%d,%d,%d), want (128,128,128) for neutral chroma", i/3, r, g, b)
		}
	}
}

func TestClamp8(t *testing.T) {
	for _, tc := range []struct {
		in   int
		want byte
	}{
		{-10, 0},
		{0, 0},
		{128, 128},
		{255, 255},
		{300, 255},
	} {
		if got := clamp8(tc.in); got != tc.want {
			t.Fatalf("clamp8(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPipelineImageCaptureInvokesCallback(t *testing.T) {
	ft := newFakeTransport()
	buf := make([]byte, apsDataLen)
	for i := 0; i < len(buf); i++ {
		buf[i] = 128
	}
	ft.imageBlocks <- buf
	close(ft.imageBlocks)

	p := NewPipeline(ft, WithReadTimeout(5*time.Millisecond))

	frames := make(chan *evcam.ImageFrame, 1)
	if err := p.StartImageCapture(func(f *evcam.ImageFrame) {
		select {
		case frames <- f:
		default:
		}
	}); err != nil {
		t.Fatalf("StartImageCapture: %v", err)
	}
	defer p.StopImageCapture()

	select {
	case f := <-frames:
		if f.Width != 768 || f.Height != 608 {
			t.Fatalf("frame dims = %dx%d, want 768x608", f.Width, f.Height)
		}
		if len(f.RGB) != 768*608*3 {
			t.Fatalf("len(RGB) = %d, want %d", len(f.RGB), 768*608*3)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a decoded image frame")
	}
}
