// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evt2

import (
	"fmt"
	"io"

	"github.com/go-lpc/evcam"
)

// Encoder writes EVT2 words to an underlying stream.
type Encoder struct {
	w   io.Writer
	buf [4]byte
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// EncodeEvents writes one initial EVT_TIME_HIGH word, then encodes events
// in input order, interleaving as many EVT_TIME_HIGH words as needed so
// that te's TIME_HIGH stride always covers the next event's timestamp
// before the corresponding CD word is written. Callers must present
// events in non-decreasing t order; te is shared across calls so a
// stream can be encoded incrementally, batch by batch.
func (enc *Encoder) EncodeEvents(events []evcam.EventCD, te *TimeEncoder) error {
	if enc.err != nil {
		return enc.err
	}

	if !te.emittedFirst {
		enc.writeWord(te.Encode())
		te.emittedFirst = true
	}

	for _, ev := range events {
		for ev.T >= te.NextTH() {
			enc.writeWord(te.Encode())
		}
		enc.writeCD(ev)
	}

	if enc.err != nil {
		return fmt.Errorf("evt2: could not encode events: %w", enc.err)
	}
	return nil
}

// EncodeTrigger writes an EXT_TRIGGER word for a trigger with the given
// polarity and channel id observed at time t.
func (enc *Encoder) EncodeTrigger(p uint8, id uint8, t int64) error {
	word := uint32(TypeExtTrigger)<<wordTypeShift |
		uint32(p&0x1)<<trigPShift |
		uint32(id&trigIDMask)<<trigIDShift |
		uint32(t)&trigTLowMask
	enc.writeWord(word)
	if enc.err != nil {
		return fmt.Errorf("evt2: could not encode trigger: %w", enc.err)
	}
	return nil
}

func (enc *Encoder) writeCD(ev evcam.EventCD) {
	typ := uint32(TypeCDOff)
	if ev.P != 0 {
		typ = TypeCDOn
	}
	tLow := uint32(ev.T) & cdTLowMask
	word := typ<<wordTypeShift | tLow<<cdTLowShift | uint32(ev.X)<<cdXShift | uint32(ev.Y)<<cdYShift
	enc.writeWord(word)
}

func (enc *Encoder) writeWord(w uint32) {
	if enc.err != nil {
		return
	}
	enc.buf[0] = byte(w)
	enc.buf[1] = byte(w >> 8)
	enc.buf[2] = byte(w >> 16)
	enc.buf[3] = byte(w >> 24)
	_, enc.err = enc.w.Write(enc.buf[:])
}
