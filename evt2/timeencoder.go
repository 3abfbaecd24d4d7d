// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evt2

// thLowBits is the width of the CD word's t_low field; thStep the span
// of timestamps one TIME_HIGH word covers; thRedundancy the number of
// TIME_HIGH words emitted per span, so a decoder can lose all but one.
const (
	thLowBits    = 6
	thStep       = 1 << thLowBits
	thRedundancy = 4
	thNextStep   = thStep / thRedundancy
)

// TimeEncoder tracks the running high part of the timestamp and emits
// EVT_TIME_HIGH words often enough (every TH_NEXT_STEP microseconds) that
// a decoder can lose up to R-1 consecutive TIME_HIGH words and still
// reconstruct an unambiguous t_high for every CD event.
type TimeEncoder struct {
	nextTH       int64
	emittedFirst bool
}

// NewTimeEncoder returns a TimeEncoder whose first TIME_HIGH word will
// cover base (base is typically the timestamp of the first event to be
// encoded).
func NewTimeEncoder(base int64) *TimeEncoder {
	return &TimeEncoder{nextTH: base - base%thNextStep}
}

// NextTH reports the timestamp threshold at or above which another
// TIME_HIGH word must be emitted before a CD word.
func (te *TimeEncoder) NextTH() int64 {
	return te.nextTH
}

// Encode returns the next EVT_TIME_HIGH word and advances the internal
// threshold by TH_NEXT_STEP.
func (te *TimeEncoder) Encode() uint32 {
	tHigh := uint32(te.nextTH>>thLowBits) & timeHighMask
	word := uint32(TypeTimeHigh)<<wordTypeShift | tHigh
	te.nextTH += thNextStep
	return word
}
