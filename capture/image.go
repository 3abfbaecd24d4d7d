// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-lpc/evcam"
	"github.com/go-lpc/evcam/subframe"
	"github.com/go-lpc/evcam/usb"
)

// StartImageCapture launches a single reader goroutine against the
// camera's image endpoint, decoding each planar YUV420 frame to RGB and
// invoking cb in arrival order. Calling it while the image stream is
// already running returns an error.
func (p *Pipeline) StartImageCapture(cb evcam.ImageCallback) error {
	p.imgMu.Lock()
	defer p.imgMu.Unlock()
	if p.imgRunning {
		return fmt.Errorf("capture: image stream already running")
	}

	ep, err := p.dev.EndpointAddress(1)
	if err != nil {
		return fmt.Errorf("capture: could not resolve image endpoint: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return p.imageReadLoop(gctx, ep, cb) })

	p.imgCancel = cancel
	p.imgGrp = grp
	p.imgRunning = true
	return nil
}

// StopImageCapture halts the image stream's reader goroutine. It is
// idempotent.
func (p *Pipeline) StopImageCapture() {
	p.imgMu.Lock()
	defer p.imgMu.Unlock()
	if !p.imgRunning {
		return
	}

	p.imgCancel()
	if err := p.imgGrp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		p.logf("capture: image stream stopped: %v", err)
	}

	p.imgRunning = false
	p.imgCancel = nil
	p.imgGrp = nil
}

func (p *Pipeline) imageReadLoop(ctx context.Context, ep uint8, cb evcam.ImageCallback) error {
	buf := make([]byte, apsDataLen)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, err := p.dev.BulkTransfer(ep, buf, p.readTimeout)
		switch {
		case err == nil:
			frame := &evcam.ImageFrame{
				Width:  subframe.EvsWidth,
				Height: subframe.EvsHeight,
				RGB:    yuv420ToRGB(buf, subframe.EvsWidth, subframe.EvsHeight),
				T:      time.Now().UnixMicro(),
			}
			if cb != nil {
				cb(frame)
			}
		case errors.Is(err, usb.ErrTimeout):
			continue
		case errors.Is(err, usb.ErrDisconnected):
			if p.alerter != nil {
				if aerr := p.alerter.Notify("evcam: image stream disconnected", err.Error()); aerr != nil {
					p.logf("capture: alert delivery failed: %v", aerr)
				}
			}
			return fmt.Errorf("capture: image stream reader stopped: %w", err)
		default:
			p.logf("capture: transient bulk transfer error: %v", err)
		}
	}
}

// yuv420ToRGB converts a planar YUV 4:2:0 frame (full-size Y plane
// followed by quarter-size U and V planes) to interleaved 8-bit RGB,
// using the BT.601 conversion the camera's ISP documents.
func yuv420ToRGB(buf []byte, w, h int) []byte {
	ySize := w * h
	cSize := (w / 2) * (h / 2)
	y := buf[0:ySize]
	u := buf[ySize : ySize+cSize]
	v := buf[ySize+cSize : ySize+2*cSize]

	rgb := make([]byte, ySize*3)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			yv := int(y[row*w+col])
			cIdx := (row/2)*(w/2) + col/2
			uv := int(u[cIdx]) - 128
			vv := int(v[cIdx]) - 128

			r := yv + (91881*vv)>>16
			g := yv - (22554*uv)>>16 - (46802*vv)>>16
			b := yv + (116130*uv)>>16

			o := (row*w + col) * 3
			rgb[o+0] = clamp8(r)
			rgb[o+1] = clamp8(g)
			rgb[o+2] = clamp8(b)
		}
	}
	return rgb
}

func clamp8(v int) byte {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}
