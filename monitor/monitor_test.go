// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package monitor

import (
	"bytes"
	"os"
	"testing"
	"time"
)

func TestStopWithoutStart(t *testing.T) {
	m := NewSelf(1*time.Second, &bytes.Buffer{})
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop before Start should be a no-op: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("second Stop should be a no-op: %v", err)
	}
}

func TestNewDefaults(t *testing.T) {
	m := New(os.Getpid(), 0, &bytes.Buffer{})
	if m.freq != defaultFreq {
		t.Fatalf("freq = %v, want default %v", m.freq, defaultFreq)
	}
	if m.pid != os.Getpid() {
		t.Fatalf("pid = %d, want %d", m.pid, os.Getpid())
	}
}
