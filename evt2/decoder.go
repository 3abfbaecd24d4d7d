// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evt2

import (
	"fmt"
	"io"

	"github.com/go-lpc/evcam"
)

// Decoder reconstructs CD events from a stream of EVT2 words, resolving
// each CD word's 6-bit t_low against the most recently decoded
// EVT_TIME_HIGH word's 28-bit t_high.
type Decoder struct {
	r   io.Reader
	buf [4]byte

	base      int64
	baseSet   bool
	loopCount int // incremented on a detected 28-bit t_high wrap; never consulted downstream

	// Trigger, if non-nil, is called for every decoded EXT_TRIGGER word.
	Trigger func(p uint8, id uint8, t int64)
}

// NewDecoder returns a Decoder reading EVT2 words from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Reset rebinds the decoder to r and clears all decode state, including
// the "have we ever seen a TIME_HIGH word" flag, so a freshly reset
// decoder behaves exactly like a new one.
func (dec *Decoder) Reset(r io.Reader) {
	dec.r = r
	dec.base = 0
	dec.baseSet = false
	dec.loopCount = 0
}

// Decode reads and interprets words from the stream until it can emit one
// CD event, returning io.EOF once the underlying reader is exhausted.
// TIME_HIGH and EXT_TRIGGER words are consumed transparently along the
// way; any other word type is skipped.
func (dec *Decoder) Decode() (evcam.EventCD, error) {
	for {
		w, err := dec.readWord()
		if err != nil {
			return evcam.EventCD{}, err
		}

		switch wordType(w) {
		case TypeTimeHigh:
			dec.applyTimeHigh(w)

		case TypeCDOn, TypeCDOff:
			if !dec.baseSet {
				// A CD word before any TIME_HIGH cannot be resolved; drop it.
				continue
			}
			return dec.decodeCD(w), nil

		case TypeExtTrigger:
			if dec.Trigger != nil {
				p, id, t := dec.decodeTrigger(w)
				dec.Trigger(p, id, t)
			}

		default:
			// unrecognized word type: skip silently.
		}
	}
}

// DecodeN decodes words until at least n events have been appended to out
// or the stream is exhausted, returning the (possibly shorter) result and
// io.EOF if EOF was reached before n events were produced.
func (dec *Decoder) DecodeN(n int, out []evcam.EventCD) ([]evcam.EventCD, error) {
	start := len(out)
	for len(out)-start < n {
		ev, err := dec.Decode()
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// DecodeAll decodes every remaining event in the stream.
func (dec *Decoder) DecodeAll(out []evcam.EventCD) ([]evcam.EventCD, error) {
	for {
		ev, err := dec.Decode()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		out = append(out, ev)
	}
}

func (dec *Decoder) applyTimeHigh(w uint32) {
	tHigh := int64(w & timeHighMask)
	newBase := tHigh << thLowBits

	if dec.baseSet && newBase < dec.base && dec.base-newBase > (timeHighMask<<thLowBits)/2 {
		dec.loopCount++
	}

	dec.base = newBase
	dec.baseSet = true
}

func (dec *Decoder) decodeCD(w uint32) evcam.EventCD {
	tLow := int64((w >> cdTLowShift) & cdTLowMask)
	x := uint16((w >> cdXShift) & cdXMask)
	y := uint16((w >> cdYShift) & cdYMask)
	p := uint8(0)
	if wordType(w) == TypeCDOn {
		p = 1
	}
	return evcam.EventCD{X: x, Y: y, P: p, T: dec.base | tLow}
}

func (dec *Decoder) decodeTrigger(w uint32) (p uint8, id uint8, t int64) {
	p = uint8((w >> trigPShift) & 0x1)
	id = uint8((w >> trigIDShift) & trigIDMask)
	tLow := int64(w & trigTLowMask)
	return p, id, dec.base | tLow
}

func (dec *Decoder) readWord() (uint32, error) {
	_, err := io.ReadFull(dec.r, dec.buf[:])
	if err != nil {
		if err == io.ErrUnexpectedEOF {
			return 0, fmt.Errorf("evt2: truncated word: %w", err)
		}
		return 0, err
	}
	return uint32(dec.buf[0]) | uint32(dec.buf[1])<<8 | uint32(dec.buf[2])<<16 | uint32(dec.buf[3])<<24, nil
}
