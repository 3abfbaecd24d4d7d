// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evtfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-lpc/evcam"
	"github.com/go-lpc/evcam/evt2"
)

// ErrNotOpen is returned by writes against an EventWriter that has
// already been closed.
var ErrNotOpen = errors.New("evtfile: writer not open")

// flushWatermark is the buffered-byte threshold past which WriteEvents
// spills the internal buffer to the underlying writer in one call.
const flushWatermark = 32 * 1024

// EventWriter writes a header followed by an EVT2 event body to an
// underlying stream. Encoded words accumulate in an internal buffer
// spilled to the stream whenever it grows past a watermark, on Flush,
// or on Close.
type EventWriter struct {
	w   io.Writer
	buf bytes.Buffer
	enc *evt2.Encoder
	te  *evt2.TimeEncoder

	hdrSize int64
	flushed int64
	nevts   int64
	closed  bool
}

// NewWriter writes h to w and returns an EventWriter ready to append
// events. base seeds the TIME_HIGH stride; pass the timestamp of the
// first event you intend to write, in microseconds.
func NewWriter(w io.Writer, h *Header, base int64) (*EventWriter, error) {
	var hdr bytes.Buffer
	if err := writeHeader(&hdr, h); err != nil {
		return nil, err
	}
	n, err := w.Write(hdr.Bytes())
	if err != nil {
		return nil, fmt.Errorf("evtfile: could not write header: %w", err)
	}

	ew := &EventWriter{
		w:       w,
		te:      evt2.NewTimeEncoder(base),
		hdrSize: int64(n),
	}
	ew.enc = evt2.NewEncoder(&ew.buf)
	return ew, nil
}

// Create creates the named file, writes h and returns an EventWriter
// appending to it. Close closes the file.
func Create(fname string, h *Header, base int64) (*EventWriter, error) {
	f, err := os.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("evtfile: could not create %q: %w", fname, err)
	}
	ew, err := NewWriter(f, h, base)
	if err != nil {
		f.Close()
		return nil, err
	}
	return ew, nil
}

// WriteEvents appends a batch of events, which must be in non-decreasing
// timestamp order relative to both each other and any previously written
// batch.
func (ew *EventWriter) WriteEvents(events []evcam.EventCD) error {
	if ew.closed {
		return ErrNotOpen
	}
	if err := ew.enc.EncodeEvents(events, ew.te); err != nil {
		return fmt.Errorf("evtfile: could not write events: %w", err)
	}
	ew.nevts += int64(len(events))

	if ew.buf.Len() >= flushWatermark {
		return ew.Flush()
	}
	return nil
}

// WriteTrigger appends an external trigger record.
func (ew *EventWriter) WriteTrigger(p, id uint8, t int64) error {
	if ew.closed {
		return ErrNotOpen
	}
	if err := ew.enc.EncodeTrigger(p, id, t); err != nil {
		return fmt.Errorf("evtfile: could not write trigger: %w", err)
	}
	return nil
}

// Flush spills the internal buffer to the underlying writer.
func (ew *EventWriter) Flush() error {
	if ew.closed {
		return ErrNotOpen
	}
	if ew.buf.Len() == 0 {
		return nil
	}
	n, err := ew.w.Write(ew.buf.Bytes())
	ew.flushed += int64(n)
	ew.buf.Reset()
	if err != nil {
		return fmt.Errorf("evtfile: could not flush events: %w", err)
	}
	return nil
}

// WrittenEvents reports how many events have been written so far,
// flushed or not.
func (ew *EventWriter) WrittenEvents() int64 { return ew.nevts }

// FileSize reports the number of bytes the underlying stream has
// received: the header plus every flushed event word. Buffered but
// not-yet-flushed words are not counted.
func (ew *EventWriter) FileSize() int64 { return ew.hdrSize + ew.flushed }

// Close flushes and closes the underlying writer if it implements
// io.Closer. Further writes fail with ErrNotOpen. Close is idempotent.
func (ew *EventWriter) Close() error {
	if ew.closed {
		return nil
	}
	err := ew.Flush()
	ew.closed = true
	if c, ok := ew.w.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("evtfile: could not close writer: %w", cerr)
		}
	}
	return err
}
