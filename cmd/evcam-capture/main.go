// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command evcam-capture drives an event camera in stand-alone mode,
// recording its event stream to a file on disk.
package main // import "github.com/go-lpc/evcam/cmd/evcam-capture"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/go-lpc/evcam"
	"github.com/go-lpc/evcam/alert"
	"github.com/go-lpc/evcam/calib"
	"github.com/go-lpc/evcam/capture"
	"github.com/go-lpc/evcam/evtfile"
	"github.com/go-lpc/evcam/monitor"
	"github.com/go-lpc/evcam/subframe"
	"github.com/go-lpc/evcam/usb"
)

func main() {
	var (
		vid    = flag.Uint("vid", 0x04b4, "USB vendor ID of the camera")
		pid    = flag.Uint("pid", 0x00f1, "USB product ID of the camera")
		out    = flag.String("o", "run.evt2", "output file")
		serial = flag.String("serial", "", "camera serial number, recorded in the output header")
		dbname = flag.String("db", "", "name of the calibration database to seed the header and dead-pixel mask from")
		doMon  = flag.Bool("pmon", false, "enable pmon monitoring of this process")
	)

	log.SetPrefix("evcam-capture: ")
	log.SetFlags(0)

	flag.Parse()

	err := run(uint16(*vid), uint16(*pid), *out, *serial, *dbname, *doMon)
	if err != nil {
		log.Fatalf("could not run evcam-capture: %+v", err)
	}
}

func run(vid, pid uint16, out, serial, dbname string, doMon bool) error {
	dev, err := usb.Open(vid, pid)
	if err != nil {
		return fmt.Errorf("could not open camera (vid=0x%04x, pid=0x%04x): %w", vid, pid, err)
	}
	defer dev.Close()

	integrator := "evcam"
	var mask calib.Mask
	if dbname != "" {
		integrator, mask, err = fromCalibDB(dbname, serial)
		if err != nil {
			return err
		}
	}

	h := evtfile.NewEVT2Header(subframe.EvsWidth, subframe.EvsHeight, integrator, time.Now().Format("2006-01-02 15:04:05"))
	h.Set("serial", serial)
	h.Set("vendor_id", fmt.Sprintf("0x%04x", vid))
	h.Set("product_id", fmt.Sprintf("0x%04x", pid))

	wr, err := evtfile.Create(out, h, 0)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", out, err)
	}
	defer wr.Close()

	opts := []capture.Option{capture.WithAlerter(alert.New(alert.ConfigFromEnv()))}
	if doMon {
		opts = append(opts, capture.WithMonitor(monitor.NewSelf(1*time.Second, os.Stderr)))
	}
	pipe := capture.NewPipeline(dev, opts...)
	defer pipe.Close()

	werr := make(chan error, 1)
	err = pipe.StartEventCapture(func(batch []evcam.EventCD) {
		batch = mask.Suppress(batch)
		if len(batch) == 0 {
			return
		}
		if err := wr.WriteEvents(batch); err != nil {
			select {
			case werr <- err:
			default:
			}
		}
	})
	if err != nil {
		return fmt.Errorf("could not start event capture: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Printf("received interrupt, stopping capture...")
	case err := <-werr:
		log.Printf("write error, stopping capture: %+v", err)
	}

	dropped := pipe.EventQueueDropped()
	pipe.StopEventCapture()
	if err := wr.Close(); err != nil {
		return fmt.Errorf("could not close %q: %w", out, err)
	}
	log.Printf("wrote %d events (%d bytes, %d blocks dropped) to %q",
		wr.WrittenEvents(), wr.FileSize(), dropped, out,
	)
	return nil
}

// fromCalibDB retrieves the integrator name and dead-pixel mask recorded
// for serial in the named calibration database.
func fromCalibDB(dbname, serial string) (string, calib.Mask, error) {
	db, err := calib.Open(dbname)
	if err != nil {
		return "", nil, fmt.Errorf("could not open calibration db %q: %w", dbname, err)
	}
	defer db.Close()

	ctx := context.Background()
	name, err := db.IntegratorName(ctx, serial)
	if err != nil {
		return "", nil, fmt.Errorf("could not retrieve integrator name for %q: %w", serial, err)
	}
	if name == "" {
		name = "evcam"
	}

	pixels, err := db.DeadPixels(ctx, serial)
	if err != nil {
		return "", nil, fmt.Errorf("could not retrieve dead pixels for %q: %w", serial, err)
	}
	return name, calib.NewMask(pixels), nil
}
