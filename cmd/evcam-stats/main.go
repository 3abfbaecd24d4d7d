// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command evcam-stats reports basic rate diagnostics for a recorded
// event-camera file: total event count, per-second rate and the
// inter-event time distribution.
package main // import "github.com/go-lpc/evcam/cmd/evcam-stats"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go-hep.org/x/hep/hbook"

	"github.com/go-lpc/evcam/evtfile"
)

func main() {
	nbins := flag.Int("bins", 100, "number of bins in the inter-event time histogram")
	maxDT := flag.Float64("max-dt", 10000, "upper edge of the inter-event time histogram, in microseconds")

	log.SetPrefix("evcam-stats: ")
	log.SetFlags(0)

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: evcam-stats [OPTIONS] FILE")
	}

	if err := run(flag.Arg(0), *nbins, *maxDT, os.Stdout); err != nil {
		log.Fatalf("could not analyze %q: %+v", flag.Arg(0), err)
	}
}

func run(fname string, nbins int, maxDT float64, w io.Writer) error {
	rd, err := evtfile.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer rd.Close()

	h := hbook.NewH1D(nbins, 0, maxDT)

	var (
		n      int64
		first  int64
		last   int64
		haveT0 bool
	)
	for {
		ev, err := rd.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("could not decode event: %w", err)
		}
		if !haveT0 {
			first = ev.T
			haveT0 = true
		} else {
			h.Fill(float64(ev.T-last), 1)
		}
		last = ev.T
		n++
	}

	fmt.Fprintf(w, "file:        %s\n", fname)
	fmt.Fprintf(w, "events:      %d\n", n)
	if n > 1 && last > first {
		durationS := float64(last-first) / 1e6
		fmt.Fprintf(w, "duration:    %.3fs\n", durationS)
		fmt.Fprintf(w, "mean rate:   %.1f events/s\n", float64(n)/durationS)
	}
	fmt.Fprintf(w, "inter-event time: mean=%.1fus rms=%.1fus\n", h.XMean(), h.XRMS())

	return nil
}
