// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package capture

import "time"

// Transport is the subset of usb.Device the capture pipeline needs. It is
// expressed as an interface so the pipeline can be driven by a fake
// device in tests without a real camera attached.
type Transport interface {
	EndpointAddress(index int) (uint8, error)
	BulkTransfer(endpoint uint8, buf []byte, timeout time.Duration) (int, error)
	ClearSharedMemory() error
}

// Alerter is notified on a fatal stream error. See package alert for the
// e-mail-backed implementation.
type Alerter interface {
	Notify(subject, body string) error
}

// ProcMonitor samples the current process's resource usage while a
// stream is active. See package monitor for the pmon-backed
// implementation.
type ProcMonitor interface {
	Start() error
	Stop() error
}
