// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package control exposes an event camera's capture pipeline as a TDAQ
// command server: /config, /init, /start, /stop and /quit commands drive
// the pipeline's lifecycle, and an /events output streams encoded EVT2
// batches to whoever wires up the corresponding input.
package control // import "github.com/go-lpc/evcam/control"

import (
	"bytes"
	"fmt"

	"github.com/go-daq/tdaq"

	"github.com/go-lpc/evcam"
	"github.com/go-lpc/evcam/capture"
	"github.com/go-lpc/evcam/evt2"
	"github.com/go-lpc/evcam/usb"
)

// outputQueueDepth bounds how many encoded event batches may be buffered
// for the /events output before the oldest is dropped; a stalled DIM
// client must not back-pressure the decoder goroutine.
const outputQueueDepth = 256

// Server drives one camera's capture pipeline from TDAQ commands.
type Server struct {
	VendorID  uint16
	ProductID uint16

	dev  *usb.Device
	pipe *capture.Pipeline

	te     *evt2.TimeEncoder
	events chan []byte
}

// OnConfig opens the camera and wires up its capture pipeline. It does
// not start either stream.
func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	dev, err := usb.Open(srv.VendorID, srv.ProductID)
	if err != nil {
		ctx.Msg.Errorf("could not open camera (vid=0x%04x, pid=0x%04x): %+v", srv.VendorID, srv.ProductID, err)
		return fmt.Errorf("control: could not open camera: %w", err)
	}
	srv.dev = dev
	srv.pipe = capture.NewPipeline(dev)
	return nil
}

// OnInit resets the event-output channel and the TIME_HIGH encoder ahead
// of a fresh run.
func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	srv.events = make(chan []byte, outputQueueDepth)
	srv.te = nil
	return nil
}

// OnStart starts the event stream, encoding every decoded batch to EVT2
// and offering it on the /events output.
func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	if srv.pipe == nil {
		return fmt.Errorf("control: /start received before /config")
	}

	err := srv.pipe.StartEventCapture(func(batch []evcam.EventCD) {
		srv.onBatch(ctx, batch)
	})
	if err != nil {
		ctx.Msg.Errorf("could not start event capture: %+v", err)
		return fmt.Errorf("control: could not start event capture: %w", err)
	}
	return nil
}

// OnStop halts the event stream.
func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	if srv.pipe != nil {
		srv.pipe.StopEventCapture()
	}
	return nil
}

// OnReset drops any raw blocks buffered for the event stream.
func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	if srv.pipe != nil {
		srv.pipe.ClearEventQueue()
	}
	return nil
}

// OnQuit stops both streams and releases the camera.
func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	if srv.pipe != nil {
		if err := srv.pipe.Close(); err != nil {
			ctx.Msg.Errorf("could not close pipeline: %+v", err)
		}
	}
	if srv.dev != nil {
		if err := srv.dev.Close(); err != nil {
			ctx.Msg.Errorf("could not close camera: %+v", err)
		}
	}
	return nil
}

// Events is the /events output handler: it blocks for the next encoded
// batch and hands it to dst.Body, or returns a nil body once ctx is
// cancelled.
func (srv *Server) Events(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case buf := <-srv.events:
		dst.Body = buf
	}
	return nil
}

func (srv *Server) onBatch(ctx tdaq.Context, batch []evcam.EventCD) {
	if len(batch) == 0 {
		return
	}
	if srv.te == nil {
		srv.te = evt2.NewTimeEncoder(batch[0].T)
	}

	var buf bytes.Buffer
	enc := evt2.NewEncoder(&buf)
	if err := enc.EncodeEvents(batch, srv.te); err != nil {
		ctx.Msg.Errorf("could not encode event batch: %+v", err)
		return
	}

	select {
	case srv.events <- buf.Bytes():
	default:
		// /events output is backed up; drop this batch rather than
		// stall the decoder goroutine that called us.
		ctx.Msg.Warnf("dropping one encoded event batch, /events output is backed up")
	}
}
