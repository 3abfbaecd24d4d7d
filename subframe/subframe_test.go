// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package subframe

import (
	"testing"
)

func le64put(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> uint(8*i))
	}
}

func buildSubframe(rawTS uint64, badHeader bool, subframeID uint64, setPixel func(data []byte)) []byte {
	data := make([]byte, SubValidBytes)

	header := uint64(headerMarker)
	if badHeader {
		header = 0x1
	}
	word0 := header | (rawTS << 24)
	le64put(data[0:8], word0)

	word1 := subframeID << 44
	le64put(data[8:16], word1)

	if setPixel != nil {
		setPixel(data)
	}
	return data
}

func TestDecodeQuadrant(t *testing.T) {
	for _, tc := range []struct {
		name    string
		id      uint64
		u, v    int
		pix     uint64
		wantX   int
		wantY   int
		wantP   uint8
		wantErr bool
	}{
		{name: "quadrant-3", id: 3, u: 10, v: 5, pix: 0x3, wantX: 21, wantY: 11, wantP: 1},
		{name: "quadrant-0-off", id: 0, u: 0, v: 0, pix: 0x1, wantX: 0, wantY: 0, wantP: 0},
		{name: "quadrant-1", id: 1, u: 2, v: 1, pix: 0x3, wantX: 5, wantY: 2, wantP: 1},
		{name: "quadrant-2", id: 2, u: 1, v: 3, pix: 0x1, wantX: 2, wantY: 7, wantP: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := buildSubframe(200_000_000, false, tc.id, func(data []byte) {
				base := 2*8 + tc.v*6*8
				off := base + (tc.u/32)*8
				word := le64(data[off : off+8])
				word |= tc.pix << uint(2*(tc.u%32))
				le64put(data[off:off+8], word)
			})

			tUS, events, err := Decode(data, nil)
			if err != nil {
				t.Fatalf("unexpected error: %+v", err)
			}
			if tUS != 1_000_000 {
				t.Fatalf("invalid timestamp: got=%d, want=1000000", tUS)
			}
			if len(events) != 1 {
				t.Fatalf("invalid event count: got=%d, want=1 (events=%v)", len(events), events)
			}
			ev := events[0]
			if int(ev.X) != tc.wantX || int(ev.Y) != tc.wantY || ev.P != tc.wantP || ev.T != 1_000_000 {
				t.Fatalf("invalid event: got=%+v, want={x=%d,y=%d,p=%d,t=1000000}",
					ev, tc.wantX, tc.wantY, tc.wantP,
				)
			}
		})
	}
}

func TestDecodeBadSubframeID(t *testing.T) {
	data := buildSubframe(200_000_000, false, 7, nil)

	var warned bool
	tUS, events, err := Decode(data, func(format string, args ...interface{}) { warned = true })
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if !warned {
		t.Fatalf("expected a warning for an invalid subframe id")
	}
	if tUS != 1_000_000 {
		t.Fatalf("invalid timestamp: got=%d, want=1000000", tUS)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got=%d", len(events))
	}
}

func TestDecodeBadHeaderIsLenient(t *testing.T) {
	data := buildSubframe(200_000_000, true, 0, func(data []byte) {
		off := 2 * 8
		word := le64(data[off : off+8])
		word |= 0x3 // pixel (0,0), ON
		le64put(data[off:off+8], word)
	})

	var warned bool
	tUS, events, err := Decode(data, func(format string, args ...interface{}) { warned = true })
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if !warned {
		t.Fatalf("expected a warning for a bad header marker")
	}
	if tUS != 1_000_000 {
		t.Fatalf("invalid timestamp: got=%d, want=1000000", tUS)
	}
	if len(events) != 1 {
		t.Fatalf("bad header should not prevent pixel decoding, got %d events", len(events))
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	_, _, err := Decode(make([]byte, 10), nil)
	if err == nil {
		t.Fatalf("expected an error for a short buffer")
	}
}

func TestDecodeUndefinedPixelValue(t *testing.T) {
	// pix == 0b10 is vendor-undefined; the decoder preserves the
	// producer's historical (pix != 0) -> (pix>>1) mapping, which
	// silently maps 0b10 to polarity 1.
	data := buildSubframe(200_000_000, false, 0, func(data []byte) {
		off := 2 * 8
		word := le64(data[off : off+8])
		word |= 0x2
		le64put(data[off:off+8], word)
	})

	_, events, err := Decode(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if len(events) != 1 || events[0].P != 1 {
		t.Fatalf("expected one ON event for undefined pixel value 0b10, got=%v", events)
	}
}
