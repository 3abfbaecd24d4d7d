// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package usb opens a camera by (vendor, product) ID, enumerates its bulk
// endpoints and performs bulk transfers against them, on top of
// github.com/google/gousb (a cgo binding over libusb).
package usb // import "github.com/go-lpc/evcam/usb"

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/gousb"
)

const maxEndpoints = 8

// vendorClearSharedMemory is the vendor-specific control request that
// drops any data the device has buffered internally, issued before each
// fresh capture session.
const (
	vendorClearSharedMemory = 0xB5
	controlTimeout          = 500 * time.Millisecond
)

// Device is a USB camera opened by (vendor, product) ID, interface 0
// claimed, its first alternate setting's endpoints enumerated in
// ascending address order. By contract with the capture pipeline, index 0
// is the bulk-IN event endpoint and index 1 is the bulk-IN image
// endpoint.
type Device struct {
	ctx *gousb.Context

	dev   *gousb.Device
	cfg   *gousb.Config
	iface *gousb.Interface

	open bool
	eps  []uint8
	ins  map[uint8]*gousb.InEndpoint
}

// Open opens the first device matching vendor/product, claims interface
// 0 and enumerates its endpoints.
func Open(vendor, product uint16) (*Device, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vendor), gousb.ID(product))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("usb: could not open device (vid=0x%04x, pid=0x%04x): %w: %v",
			vendor, product, ErrDeviceNotFound, err,
		)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("usb: no device matching (vid=0x%04x, pid=0x%04x): %w",
			vendor, product, ErrDeviceNotFound,
		)
	}

	// SetAutoDetach makes gousb detach and later reattach the kernel
	// driver on interface 0 around the claim, exactly the
	// detach-remember-reattach discipline a raw libusb client has to do
	// by hand.
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: could not enable auto-detach: %w: %v", ErrAccessDenied, err)
	}
	dev.ControlTimeout = controlTimeout

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: could not select config 1: %w: %v", ErrClaimFailed, err)
	}

	iface, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: could not claim interface 0: %w: %v", ErrClaimFailed, err)
	}

	d := &Device{
		ctx:   ctx,
		dev:   dev,
		cfg:   cfg,
		iface: iface,
		open:  true,
		ins:   make(map[uint8]*gousb.InEndpoint),
	}

	if err := d.enumerateEndpoints(); err != nil {
		d.Close()
		return nil, err
	}

	return d, nil
}

func (d *Device) enumerateEndpoints() error {
	var addrs []uint8
	for addr := range d.iface.Setting.Endpoints {
		addrs = append(addrs, uint8(addr))
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	if len(addrs) > maxEndpoints {
		addrs = addrs[:maxEndpoints]
	}
	d.eps = addrs

	for _, addr := range addrs {
		if addr&0x80 == 0 {
			continue // OUT endpoint; the camera only streams IN to the host
		}
		ep, err := d.iface.InEndpoint(int(addr &^ 0x80))
		if err != nil {
			return fmt.Errorf("usb: could not open IN endpoint 0x%02x: %w", addr, err)
		}
		d.ins[addr] = ep
	}
	return nil
}

// IsOpen reports whether the device handle is still open.
func (d *Device) IsOpen() bool { return d.open }

// EndpointAddress returns the address of the index-th endpoint reported
// by the device's first alternate setting, in ascending order.
func (d *Device) EndpointAddress(index int) (uint8, error) {
	if index < 0 || index >= len(d.eps) {
		return 0, fmt.Errorf("usb: endpoint index %d out of range (n=%d)", index, len(d.eps))
	}
	return d.eps[index], nil
}

// BulkTransfer reads a bulk-IN transfer of up to len(buf) bytes from
// endpoint, blocking for at most timeout.
func (d *Device) BulkTransfer(endpoint uint8, buf []byte, timeout time.Duration) (int, error) {
	if !d.open {
		return 0, ErrNotOpen
	}
	ep, ok := d.ins[endpoint]
	if !ok {
		return 0, fmt.Errorf("usb: no such IN endpoint 0x%02x", endpoint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := ep.ReadContext(ctx, buf)
	if err != nil {
		return n, classifyTransferError(err)
	}
	return n, nil
}

// ClearSharedMemory issues the vendor-specific control transfer that
// drops any data the device has buffered internally. Call it before each
// fresh capture session.
func (d *Device) ClearSharedMemory() error {
	if !d.open {
		return ErrNotOpen
	}
	_, err := d.dev.Control(
		gousb.ControlVendor|gousb.ControlInterface|gousb.ControlOut,
		vendorClearSharedMemory, 0, 0, nil,
	)
	if err != nil {
		return fmt.Errorf("usb: could not clear shared memory: %w", classifyTransferError(err))
	}
	return nil
}

// Close releases the interface, lets gousb reattach the kernel driver if
// it was detached, and tears down the USB context. Close is idempotent.
func (d *Device) Close() error {
	if !d.open {
		return nil
	}
	d.open = false

	if d.iface != nil {
		d.iface.Close()
	}
	if d.cfg != nil {
		d.cfg.Close()
	}
	var err error
	if d.dev != nil {
		err = d.dev.Close()
	}
	if d.ctx != nil {
		d.ctx.Close()
	}
	if err != nil {
		return fmt.Errorf("usb: could not close device: %w", err)
	}
	return nil
}

func classifyTransferError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gousb.TransferTimedOut),
		errors.Is(err, gousb.TransferCancelled):
		// a deadline context cancels the in-flight transfer, so both
		// surface as the retryable timeout.
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, gousb.TransferStall):
		return fmt.Errorf("%w: %v", ErrPipe, err)
	default:
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
}
