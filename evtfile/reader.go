// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evtfile

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/go-lpc/evcam"
	"github.com/go-lpc/evcam/evt2"
)

// EventReader reads a header followed by an EVT2 event body from an
// underlying stream. When the stream is seekable (a file, a
// bytes.Reader) the reader remembers where the binary body starts, so
// Reset can rewind to it and decode the same events again.
type EventReader struct {
	Header *Header

	src     io.Reader
	br      *bufio.Reader
	dec     *evt2.Decoder
	dataOff int64
}

// NewReader reads the header from r and returns an EventReader
// positioned at the start of the binary body. The header must carry a
// well-formed "format" line; anything else fails with ErrBadFormat.
func NewReader(r io.Reader) (*EventReader, error) {
	cr := &countReader{r: r}
	br := bufio.NewReader(cr)

	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	if _, _, ok := h.ImageSize(); !ok {
		return nil, fmt.Errorf("evtfile: %w", ErrBadFormat)
	}

	return &EventReader{
		Header:  h,
		src:     r,
		br:      br,
		dec:     evt2.NewDecoder(br),
		dataOff: cr.n - int64(br.Buffered()),
	}, nil
}

// Open opens the named file and reads its header. Close closes the
// file.
func Open(fname string) (*EventReader, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("evtfile: could not open %q: %w", fname, err)
	}
	er, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return er, nil
}

// ImageSize returns the sensor width and height recorded in the header's
// "format" line.
func (er *EventReader) ImageSize() (width, height int) {
	w, h, _ := er.Header.ImageSize()
	return w, h
}

// OnTrigger registers fn to be called for every EXT_TRIGGER word decoded
// from the body.
func (er *EventReader) OnTrigger(fn func(p, id uint8, t int64)) {
	er.dec.Trigger = fn
}

// ReadEvent returns the next decoded event, or io.EOF once the stream is
// exhausted.
func (er *EventReader) ReadEvent() (evcam.EventCD, error) {
	return er.dec.Decode()
}

// ReadEvents appends up to n events to out, returning the grown slice.
// It returns io.EOF if the stream ran out before n events were decoded.
func (er *EventReader) ReadEvents(n int, out []evcam.EventCD) ([]evcam.EventCD, error) {
	return er.dec.DecodeN(n, out)
}

// ReadAll decodes every remaining event in the stream.
func (er *EventReader) ReadAll() ([]evcam.EventCD, error) {
	return er.dec.DecodeAll(nil)
}

// StreamEvents decodes the rest of the body, invoking fn once per batch
// of up to n events, until EOF or fn returns an error.
func (er *EventReader) StreamEvents(n int, fn func(batch []evcam.EventCD) error) error {
	buf := make([]evcam.EventCD, 0, n)
	for {
		var err error
		buf, err = er.dec.DecodeN(n, buf[:0])
		eof := err == io.EOF
		if err != nil && !eof {
			return err
		}
		if len(buf) > 0 {
			if err := fn(buf); err != nil {
				return err
			}
		}
		if eof {
			return nil
		}
	}
}

// Reset seeks back to the first byte of the binary body and clears all
// decode state, so the next read decodes the file's events from the
// start, exactly as a fresh reader would. It fails if the underlying
// stream is not an io.Seeker.
func (er *EventReader) Reset() error {
	s, ok := er.src.(io.Seeker)
	if !ok {
		return fmt.Errorf("evtfile: underlying stream is not seekable")
	}
	if _, err := s.Seek(er.dataOff, io.SeekStart); err != nil {
		return fmt.Errorf("evtfile: could not seek to event data: %w", err)
	}
	er.br.Reset(er.src)
	er.dec.Reset(er.br)
	return nil
}

// Close closes the underlying stream if it implements io.Closer.
func (er *EventReader) Close() error {
	if c, ok := er.src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("evtfile: could not close reader: %w", err)
		}
	}
	return nil
}

// countReader tracks how many bytes have been consumed from r, so the
// header/body boundary can be located even through a bufio.Reader's
// read-ahead.
type countReader struct {
	r io.Reader
	n int64
}

func (cr *countReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
