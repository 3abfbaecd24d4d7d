// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command evcam-replay paces a recorded event stream back out, as if it
// were a live camera, writing the re-encoded EVT2 stream to stdout.
//
// Usage: evcam-replay [OPTIONS] FILE
package main // import "github.com/go-lpc/evcam/cmd/evcam-replay"

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/go-lpc/evcam"
	"github.com/go-lpc/evcam/evt2"
	"github.com/go-lpc/evcam/evtfile"
	"github.com/go-lpc/evcam/replay"
)

func main() {
	speed := flag.Float64("speed", 1.0, "replay speed multiplier")

	log.SetPrefix("evcam-replay: ")
	log.SetFlags(0)

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: evcam-replay [OPTIONS] FILE")
	}

	if err := run(flag.Arg(0), *speed, os.Stdout); err != nil {
		log.Fatalf("could not replay %q: %+v", flag.Arg(0), err)
	}
}

func run(fname string, speed float64, w io.Writer) error {
	rd, err := evtfile.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer rd.Close()

	clk, err := replay.NewClock(speed)
	if err != nil {
		return fmt.Errorf("could not create replay clock: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)
	go func() {
		<-stop
		cancel()
	}()

	bw := bufio.NewWriter(w)
	defer bw.Flush()
	enc := evt2.NewEncoder(bw)

	var te *evt2.TimeEncoder
	for {
		ev, err := rd.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("could not decode event: %w", err)
		}

		if te == nil {
			te = evt2.NewTimeEncoder(ev.T)
		}
		if err := clk.WaitUntil(ctx, ev.T); err != nil {
			return fmt.Errorf("replay interrupted: %w", err)
		}
		if err := enc.EncodeEvents([]evcam.EventCD{ev}, te); err != nil {
			return fmt.Errorf("could not re-encode event: %w", err)
		}
	}
}
