// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package usb

import "errors"

// Sentinel errors classifying USB transport failures, returned wrapped
// (via fmt.Errorf's %w) so callers can still match them with errors.Is.
var (
	ErrDeviceNotFound = errors.New("usb: device not found")
	ErrAccessDenied   = errors.New("usb: access denied")
	ErrClaimFailed    = errors.New("usb: could not claim interface")
	ErrNotOpen        = errors.New("usb: device not open")

	ErrTimeout     = errors.New("usb: transfer timeout")
	ErrPipe        = errors.New("usb: pipe error")
	ErrDisconnected = errors.New("usb: device disconnected")
)
