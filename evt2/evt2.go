// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package evt2 encodes and decodes the EVT2 32-bit-word event wire format:
// CD_ON/CD_OFF words carrying the low 6 bits of a timestamp plus pixel
// coordinates, interleaved with EVT_TIME_HIGH words carrying the upper 28
// bits, and optional EXT_TRIGGER words.
package evt2 // import "github.com/go-lpc/evcam/evt2"

// Word type, top 4 bits of every 32-bit little-endian EVT2 word.
const (
	TypeCDOff      = 0x0
	TypeCDOn       = 0x1
	TypeTimeHigh   = 0x8
	TypeExtTrigger = 0xA
)

const (
	wordTypeShift = 28
	wordTypeMask  = 0xF

	cdTLowShift = 22
	cdTLowMask  = 0x3F
	cdXShift    = 11
	cdXMask     = 0x7FF
	cdYShift    = 0
	cdYMask     = 0x7FF

	timeHighMask = 0x0FFF_FFFF // 28 bits

	trigPShift   = 27
	trigIDShift  = 19
	trigIDMask   = 0xFF
	trigTLowMask = 0x3F
)

func wordType(w uint32) uint32 { return (w >> wordTypeShift) & wordTypeMask }
