// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calib

import "github.com/go-lpc/evcam"

// BiasRegister is a single named bias register value applied to a camera
// as part of a bias profile.
type BiasRegister struct {
	PrimaryID uint32
	ProfileID uint32
	CameraID  uint32
	Name      string
	Value     int32
}

// DeadPixel is a sensor coordinate whose events a camera operator has
// flagged for suppression.
type DeadPixel struct {
	X uint16
	Y uint16
}

// Mask is a dead-pixel lookup applied to decoded event batches, between
// the sub-frame decoder and whatever consumes the events. The decoder
// itself never filters; suppression is the consumer's choice.
type Mask map[uint32]struct{}

// NewMask builds a Mask from a dead-pixel list.
func NewMask(pixels []DeadPixel) Mask {
	m := make(Mask, len(pixels))
	for _, p := range pixels {
		m[maskKey(p.X, p.Y)] = struct{}{}
	}
	return m
}

func maskKey(x, y uint16) uint32 { return uint32(x)<<16 | uint32(y) }

// Suppress returns events with masked pixels removed, filtering in
// place: the returned slice shares the input's backing array.
func (m Mask) Suppress(events []evcam.EventCD) []evcam.EventCD {
	if len(m) == 0 {
		return events
	}
	out := events[:0]
	for _, ev := range events {
		if _, dead := m[maskKey(ev.X, ev.Y)]; dead {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// NoiseFilterConfig is a stored event-rate noise filter threshold
// configuration: events are suppressed unless at least MinEvents fall
// within a WindowUS-microsecond window of each other at the same pixel.
type NoiseFilterConfig struct {
	ID        uint32
	Name      string
	WindowUS  int64
	MinEvents uint32
}
