// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command evcam-ctl is an interactive shell driving a single camera's
// capture pipeline: start/stop the event stream, inspect queue
// back-pressure, and clear buffered blocks, without a DAQ control server
// in the loop.
package main // import "github.com/go-lpc/evcam/cmd/evcam-ctl"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/peterh/liner"

	"github.com/go-lpc/evcam"
	"github.com/go-lpc/evcam/capture"
	"github.com/go-lpc/evcam/usb"
)

const historyFile = ".evcam-ctl_history"

func main() {
	vid := flag.Uint("vid", 0x04b4, "USB vendor ID of the camera")
	pid := flag.Uint("pid", 0x00f1, "USB product ID of the camera")

	log.SetPrefix("evcam-ctl: ")
	log.SetFlags(0)

	flag.Parse()

	if err := run(uint16(*vid), uint16(*pid)); err != nil {
		log.Fatalf("could not run evcam-ctl: %+v", err)
	}
}

func run(vid, pid uint16) error {
	dev, err := usb.Open(vid, pid)
	if err != nil {
		return fmt.Errorf("could not open camera (vid=0x%04x, pid=0x%04x): %w", vid, pid, err)
	}
	defer dev.Close()

	pipe := capture.NewPipeline(dev)
	defer pipe.Close()

	n := &eventCounter{}

	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile); err == nil {
		term.ReadHistory(f)
		f.Close()
	}

	fmt.Println("evcam-ctl: type 'help' for a list of commands")
	for {
		line, err := term.Prompt("evcam> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				break
			}
			return fmt.Errorf("could not read command: %w", err)
		}
		term.AppendHistory(line)

		if quit := dispatch(strings.TrimSpace(line), pipe, n); quit {
			break
		}
	}

	if f, err := os.Create(historyFile); err == nil {
		term.WriteHistory(f)
		f.Close()
	}
	return nil
}

// eventCounter counts decoded events. The callback runs on the decoder
// goroutine while "status" reads from the prompt loop, hence the atomic.
type eventCounter struct {
	n atomic.Uint64
}

func (c *eventCounter) onBatch(batch []evcam.EventCD) {
	c.n.Add(uint64(len(batch)))
}

func dispatch(cmd string, pipe *capture.Pipeline, n *eventCounter) (quit bool) {
	switch cmd {
	case "start":
		if err := pipe.StartEventCapture(n.onBatch); err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Println("event capture started")

	case "stop":
		pipe.StopEventCapture()
		fmt.Println("event capture stopped")

	case "clear":
		pipe.ClearEventQueue()
		fmt.Println("event queue cleared")

	case "status":
		fmt.Printf("events seen:   %d\n", n.n.Load())
		fmt.Printf("blocks dropped: %d\n", pipe.EventQueueDropped())

	case "help":
		fmt.Println("commands: start, stop, clear, status, quit")

	case "quit", "exit":
		pipe.StopEventCapture()
		return true

	case "":
		// ignore blank lines

	default:
		fmt.Printf("unknown command %q, type 'help' for a list\n", cmd)
	}
	return false
}
