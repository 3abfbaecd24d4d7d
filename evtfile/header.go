// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package evtfile reads and writes the on-disk recording format: an
// ASCII, '%'-prefixed header followed by a binary EVT2 event stream
// body, mirroring the plain-text-preamble-plus-binary-body convention
// the vendor's own tools use.
package evtfile // import "github.com/go-lpc/evcam/evtfile"

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrBadFormat is returned by NewReader when the header has no "format"
// line, or one that does not parse as "EVT2;width=W;height=H".
var ErrBadFormat = errors.New("evtfile: missing or malformed format line")

// headerEnd is the sentinel line closing the ASCII header.
const headerEnd = "% end"

// Header holds the free-form key/value metadata preceding the binary
// body: camera serial, sensor geometry, firmware version and the like.
// Keys preserve insertion order so a file round-trips byte-for-byte.
type Header struct {
	keys   []string
	values map[string]string
}

// NewHeader returns an empty header ready for Set calls.
func NewHeader() *Header {
	return &Header{values: make(map[string]string)}
}

// NewEVT2Header returns a Header with the three lines every recording
// must carry already set: date, format and integrator_name. date
// should already be formatted as "YYYY-MM-DD
// HH:MM:SS"; callers add any further vendor lines with Set.
func NewEVT2Header(width, height int, integratorName, date string) *Header {
	h := NewHeader()
	h.Set("date", date)
	h.SetFormat(width, height)
	h.Set("integrator_name", integratorName)
	return h
}

// Set assigns key = value, appending key to the write order the first
// time it is seen.
func (h *Header) Set(key, value string) {
	if h.values == nil {
		h.values = make(map[string]string)
	}
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Get returns the value for key and whether it was present.
func (h *Header) Get(key string) (string, bool) {
	v, ok := h.values[key]
	return v, ok
}

// SetFormat sets the "format" line to the EVT2;width=W;height=H value
// every recording must carry.
func (h *Header) SetFormat(width, height int) {
	h.Set("format", formatField(width, height))
}

// ImageSize parses the "format" line and returns the sensor width and
// height it encodes. ok is false if the line is absent or malformed.
func (h *Header) ImageSize() (width, height int, ok bool) {
	v, present := h.Get("format")
	if !present {
		return 0, 0, false
	}
	return parseFormatField(v)
}

// formatField renders the EVT2;width=W;height=H value stored in the
// "format" header line.
func formatField(width, height int) string {
	return fmt.Sprintf("EVT2;width=%d;height=%d", width, height)
}

// parseFormatField parses a "format" line value of the form
// "EVT2;width=W;height=H", tolerating any additional ';'-separated
// key=value fields a future format revision might add.
func parseFormatField(v string) (width, height int, ok bool) {
	parts := strings.Split(v, ";")
	if len(parts) == 0 || parts[0] != "EVT2" {
		return 0, 0, false
	}
	var haveW, haveH bool
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "width":
			if _, err := fmt.Sscanf(kv[1], "%d", &width); err == nil {
				haveW = true
			}
		case "height":
			if _, err := fmt.Sscanf(kv[1], "%d", &height); err == nil {
				haveH = true
			}
		}
	}
	return width, height, haveW && haveH
}

// Keys returns the header's keys in the order they were first set.
func (h *Header) Keys() []string {
	return append([]string(nil), h.keys...)
}

// writeHeader writes h as "% key value\n" lines followed by the
// terminating "% end\n" line.
func writeHeader(w io.Writer, h *Header) error {
	bw := bufio.NewWriter(w)
	for _, k := range h.keys {
		if _, err := fmt.Fprintf(bw, "%% %s %s\n", k, h.values[k]); err != nil {
			return fmt.Errorf("evtfile: could not write header line %q: %w", k, err)
		}
	}
	if _, err := fmt.Fprintf(bw, "%s\n", headerEnd); err != nil {
		return fmt.Errorf("evtfile: could not write header terminator: %w", err)
	}
	return bw.Flush()
}

// readHeader reads lines from r until the "% end" sentinel. It is
// permissive: a line that does not start with '%' is skipped rather
// than treated as an error, and a line with no value after the key is
// kept with an empty value. The returned reader is positioned right
// after the header so the caller can hand it to evt2.NewDecoder for the
// binary body that follows.
func readHeader(r *bufio.Reader) (*Header, error) {
	h := NewHeader()
	for {
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("evtfile: could not read header: %w", err)
		}
		trimmed := strings.TrimRight(line, "\r\n")

		if !strings.HasPrefix(trimmed, "%") {
			if err != nil {
				return nil, fmt.Errorf("evtfile: truncated header, no %q line found: %w", headerEnd, err)
			}
			continue
		}
		if strings.TrimSpace(trimmed) == headerEnd {
			return h, nil
		}

		fields := strings.SplitN(strings.TrimSpace(strings.TrimPrefix(trimmed, "%")), " ", 2)
		switch len(fields) {
		case 2:
			h.Set(fields[0], strings.TrimSpace(fields[1]))
		case 1:
			if fields[0] != "" {
				h.Set(fields[0], "")
			}
		}

		if err != nil {
			return nil, fmt.Errorf("evtfile: truncated header, no %q line found: %w", headerEnd, err)
		}
	}
}
