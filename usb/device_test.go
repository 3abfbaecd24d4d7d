// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package usb

import (
	"context"
	"errors"
	"testing"

	"github.com/google/gousb"
)

func TestClassifyTransferError(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want error
	}{
		{name: "timeout", err: gousb.TransferTimedOut, want: ErrTimeout},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrTimeout},
		{name: "cancelled", err: gousb.TransferCancelled, want: ErrTimeout},
		{name: "stall", err: gousb.TransferStall, want: ErrPipe},
		{name: "no-device", err: gousb.TransferNoDevice, want: ErrDisconnected},
		{name: "io", err: gousb.TransferError, want: ErrDisconnected},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyTransferError(tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("classifyTransferError(%v) = %v, want wrapping %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestEndpointAddressBounds(t *testing.T) {
	d := &Device{open: true, eps: []uint8{0x81, 0x02}}

	addr, err := d.EndpointAddress(0)
	if err != nil || addr != 0x81 {
		t.Fatalf("EndpointAddress(0) = (0x%02x, %v), want (0x81, nil)", addr, err)
	}

	if _, err := d.EndpointAddress(2); err == nil {
		t.Fatalf("expected an error for an out-of-range endpoint index")
	}
}

func TestBulkTransferNotOpen(t *testing.T) {
	d := &Device{}
	_, err := d.BulkTransfer(0x81, make([]byte, 16), 0)
	if !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	d := &Device{}
	if err := d.Close(); err != nil {
		t.Fatalf("Close on an unopened device should be a no-op: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close should be a no-op: %v", err)
	}
}
