// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package monitor samples the capture process's resource usage while a
// stream is active, writing periodic samples through github.com/sbinet/pmon.
package monitor // import "github.com/go-lpc/evcam/monitor"

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/sbinet/pmon"
)

// defaultFreq is how often pmon samples the process by default.
const defaultFreq = 1 * time.Second

// Monitor samples a single process through pmon, started and stopped
// alongside a capture stream. It satisfies capture.ProcMonitor.
type Monitor struct {
	pid  int
	freq time.Duration
	w    io.Writer

	stop func() error
}

// New returns a Monitor that will sample pid's resource usage at freq
// and write the samples to w. A freq of zero uses defaultFreq.
func New(pid int, freq time.Duration, w io.Writer) *Monitor {
	if freq <= 0 {
		freq = defaultFreq
	}
	return &Monitor{pid: pid, freq: freq, w: w}
}

// NewSelf returns a Monitor for the current process.
func NewSelf(freq time.Duration, w io.Writer) *Monitor {
	return New(os.Getpid(), freq, w)
}

// Start begins sampling in a background goroutine.
func (m *Monitor) Start() error {
	p, err := pmon.Monitor(m.pid)
	if err != nil {
		return fmt.Errorf("monitor: could not start monitoring pid %d: %w", m.pid, err)
	}
	p.W = m.w
	p.Freq = m.freq
	m.stop = p.Kill

	go func() {
		if err := p.Run(); err != nil {
			log.Printf("monitor: pmon stopped for pid %d: %+v", m.pid, err)
		}
	}()
	return nil
}

// Stop halts sampling.
func (m *Monitor) Stop() error {
	if m.stop == nil {
		return nil
	}
	stop := m.stop
	m.stop = nil
	if err := stop(); err != nil {
		return fmt.Errorf("monitor: could not stop monitoring pid %d: %w", m.pid, err)
	}
	return nil
}
