// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package subframe decodes the vendor's bit-packed Bayer-quadrant
// sub-frame layout into positioned change-detection events.
package subframe // import "github.com/go-lpc/evcam/subframe"

import (
	"fmt"

	"github.com/go-lpc/evcam"
)

// Sensor and wire-layout constants, fixed by the vendor protocol.
const (
	EvsWidth  = 768
	EvsHeight = 608

	SubWidth  = 384
	SubHeight = 304

	SubFullBytes  = 32768
	SubValidBytes = 29200

	BufLen = 4096 * 128 // one USB bulk-IN transfer: 16 sub-frame slots

	headerMarker = 0x00FFFF
)

// quadrant maps a subframe_id (0..3) to its (x_off, y_off) offset into the
// full 768x608 sensor frame.
var quadrant = [4][2]int{
	0: {0, 0},
	1: {1, 0},
	2: {0, 1},
	3: {1, 1},
}

// Decode unpacks one SubValidBytes-long sub-frame payload into its
// timestamp (microseconds) and the CD events it carries. data must be at
// least SubValidBytes long; trailing padding up to SubFullBytes is the
// caller's concern, not this function's.
//
// Decode is lenient: a bad header marker or an out-of-range
// subframe_id does not abort decoding. warn, if non-nil, is called with a
// human-readable diagnostic for either case; the function still returns
// whatever it could make sense of (the timestamp always, the events only
// when the subframe_id was valid).
func Decode(data []byte, warn func(format string, args ...interface{})) (tUS int64, events []evcam.EventCD, err error) {
	if len(data) < SubValidBytes {
		return 0, nil, fmt.Errorf("subframe: short buffer (got=%d, want>=%d)", len(data), SubValidBytes)
	}

	word0 := le64(data[0:8])
	if word0&0xFFFFFF != headerMarker {
		if warn != nil {
			warn("subframe: bad header marker (got=0x%06x, want=0x%06x)", word0&0xFFFFFF, headerMarker)
		}
	}

	rawTS := (word0 >> 24) & 0xFF_FFFF_FFFF
	tUS = int64(rawTS / 200)

	word1 := le64(data[8:16])
	id := int((word1 >> 44) & 0xF)
	if id > 3 {
		if warn != nil {
			warn("subframe: invalid subframe id (got=%d)", id)
		}
		return tUS, nil, nil
	}

	xOff, yOff := quadrant[id][0], quadrant[id][1]

	const (
		wordsPerRow = SubWidth / 32 // 32 pixels (2 bits each) per 64-bit word
		firstWord   = 2
	)

	events = make([]evcam.EventCD, 0, 64)
	for row := 0; row < SubHeight; row++ {
		y := yOff + 2*row
		if y >= EvsHeight {
			continue
		}
		base := firstWord*8 + row*wordsPerRow*8
		for wi := 0; wi < wordsPerRow; wi++ {
			off := base + wi*8
			word := le64(data[off : off+8])
			for k := 0; k < 64; k += 2 {
				pix := (word >> uint(k)) & 0x3
				if pix == 0 {
					continue
				}
				x := xOff + 2*(wi*32+k/2)
				if x >= EvsWidth {
					continue
				}
				events = append(events, evcam.EventCD{
					X: uint16(x),
					Y: uint16(y),
					P: uint8(pix >> 1),
					T: tUS,
				})
			}
		}
	}

	return tUS, events, nil
}

func le64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
