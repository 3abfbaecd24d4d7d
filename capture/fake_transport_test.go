// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package capture

import (
	"time"

	"github.com/go-lpc/evcam/usb"
)

// fakeTransport stands in for usb.Device in tests: BulkTransfer hands out
// pre-built blocks from a channel per endpoint, then reports
// ErrDisconnected once exhausted.
type fakeTransport struct {
	eventEP uint8
	imageEP uint8

	eventBlocks chan []byte
	imageBlocks chan []byte

	clearCalls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		eventEP:     0x81,
		imageEP:     0x82,
		eventBlocks: make(chan []byte, 64),
		imageBlocks: make(chan []byte, 64),
	}
}

func (f *fakeTransport) EndpointAddress(index int) (uint8, error) {
	switch index {
	case 0:
		return f.eventEP, nil
	case 1:
		return f.imageEP, nil
	default:
		return 0, usb.ErrNotOpen
	}
}

func (f *fakeTransport) BulkTransfer(endpoint uint8, buf []byte, timeout time.Duration) (int, error) {
	var ch chan []byte
	switch endpoint {
	case f.eventEP:
		ch = f.eventBlocks
	case f.imageEP:
		ch = f.imageBlocks
	default:
		return 0, usb.ErrNotOpen
	}

	select {
	case b, ok := <-ch:
		if !ok {
			return 0, usb.ErrDisconnected
		}
		n := copy(buf, b)
		return n, nil
	case <-time.After(20 * time.Millisecond):
		return 0, usb.ErrTimeout
	}
}

func (f *fakeTransport) ClearSharedMemory() error {
	f.clearCalls++
	return nil
}
