// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command evcam-srv starts a TDAQ server controlling one event camera.
package main // import "github.com/go-lpc/evcam/cmd/evcam-srv"

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"

	"github.com/go-lpc/evcam/control"
)

func main() {
	vid := flag.Uint("vid", 0x04b4, "USB vendor ID of the camera")
	pid := flag.Uint("pid", 0x00f1, "USB product ID of the camera")

	cmd := flags.New()

	log.SetPrefix("evcam-srv: ")
	log.SetFlags(0)

	srv := &control.Server{
		VendorID:  uint16(*vid),
		ProductID: uint16(*pid),
	}

	app := tdaq.New(cmd, os.Stdout)
	app.CmdHandle("/config", srv.OnConfig)
	app.CmdHandle("/init", srv.OnInit)
	app.CmdHandle("/reset", srv.OnReset)
	app.CmdHandle("/start", srv.OnStart)
	app.CmdHandle("/stop", srv.OnStop)
	app.CmdHandle("/quit", srv.OnQuit)

	app.OutputHandle("/events", srv.Events)

	if err := app.Run(context.Background()); err != nil {
		log.Panicf("error: %+v", err)
	}
}
