// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// evcam-dump decodes and displays recorded event-camera files.
//
// Usage: evcam-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> evcam-dump ./testdata/run-0042.evt2
//	=== ./testdata/run-0042.evt2 ===
//	header:
//	  serial      EVCAM-0042
//	  width       768
//	  height      608
//	events:
//	       0   100    50 ON
//	      64   101    50 OFF
//	[...]
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/evcam/evtfile"
)

func main() {
	log.SetPrefix("evcam-dump: ")
	log.SetFlags(0)

	max := flag.Int("n", -1, "max number of events to display per file, -1 for all")

	flag.Usage = func() {
		fmt.Printf(`evcam-dump decodes and displays recorded event-camera files.

Usage: evcam-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input event file")
	}

	for _, fname := range flag.Args() {
		if err := process(os.Stdout, fname, *max); err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, max int) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	rd, err := evtfile.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer rd.Close()

	fmt.Fprintf(wbuf, "=== %s ===\n", fname)
	fmt.Fprintf(wbuf, "header:\n")
	for _, k := range rd.Header.Keys() {
		v, _ := rd.Header.Get(k)
		fmt.Fprintf(wbuf, "  %-12s%s\n", k, v)
	}
	fmt.Fprintf(wbuf, "events:\n")

	n := 0
	for max < 0 || n < max {
		ev, err := rd.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("could not decode event: %w", err)
		}
		pol := "OFF"
		if ev.P != 0 {
			pol = "ON"
		}
		fmt.Fprintf(wbuf, "% 8d % 6d % 6d %s\n", ev.T, ev.X, ev.Y, pol)
		n++
	}
	fmt.Fprintf(wbuf, "total: %d events\n", n)

	return nil
}
