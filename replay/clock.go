// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package replay paces a recorded event stream back out at a multiple of
// the rate it was captured, so a file can be fed to downstream consumers
// as if it were a live camera.
package replay // import "github.com/go-lpc/evcam/replay"

import (
	"context"
	"fmt"
	"time"
)

// Clock maps event timestamps (microseconds, as stored in a recording)
// onto wall-clock deadlines scaled by Speed. A Speed of 1 reproduces the
// original capture rate; 2 plays back twice as fast; values <= 0 are
// rejected by NewClock.
type Clock struct {
	speed float64

	started bool
	wallT0  time.Time
	evT0    int64
}

// NewClock returns a Clock that will play events back at speed times
// real time.
func NewClock(speed float64) (*Clock, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("replay: invalid speed %v, must be > 0", speed)
	}
	return &Clock{speed: speed}, nil
}

// Reset rebinds the clock's origin: the next WaitUntil call establishes
// wall time t0 as "now" and evT0 as its corresponding event timestamp.
// Call Reset before replaying a new file so gaps between files are not
// paced out.
func (c *Clock) Reset() {
	c.started = false
}

// WaitUntil blocks until the wall-clock deadline corresponding to event
// timestamp t (microseconds) has passed, scaled by Speed, or until ctx is
// cancelled. The first call after construction or Reset establishes the
// origin instead of sleeping.
func (c *Clock) WaitUntil(ctx context.Context, t int64) error {
	if !c.started {
		c.wallT0 = time.Now()
		c.evT0 = t
		c.started = true
		return nil
	}

	elapsedEv := time.Duration(t-c.evT0) * time.Microsecond
	deadline := c.wallT0.Add(time.Duration(float64(elapsedEv) / c.speed))

	d := time.Until(deadline)
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
