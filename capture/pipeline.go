// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package capture drives the reader and decoder goroutines that turn raw
// USB bulk-IN transfers from an event camera into decoded CD event
// batches and image frames, bridging the USB transport and the
// subframe/evt2 decoders behind the evcam.EventCallback/ImageCallback
// contract.
package capture // import "github.com/go-lpc/evcam/capture"

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-lpc/evcam"
	"github.com/go-lpc/evcam/subframe"
	"github.com/go-lpc/evcam/usb"
)

// defaultReadTimeout bounds a single bulk-IN transfer; a timed-out
// transfer is not an error, just an empty poll to retry.
const defaultReadTimeout = 1 * time.Second

// groupStride is the byte span of one 4-sub-frame quadrant group; the
// event callback fires once per group, never once per sub-frame.
const groupStride = subframe.SubFullBytes * 4

// apsDataLen is the byte length of one conventional-image frame in its
// planar YUV420 wire encoding.
const apsDataLen = subframe.EvsWidth * subframe.EvsHeight * 3 / 2

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithQueueCapacity overrides DefaultQueueCapacity for the raw-block
// queue feeding the event decoder.
func WithQueueCapacity(n int) Option {
	return func(p *Pipeline) { p.queueCapacity = n }
}

// WithReadTimeout overrides the per-transfer bulk-IN timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.readTimeout = d }
}

// WithMonitor attaches a process monitor started/stopped alongside event
// capture.
func WithMonitor(m ProcMonitor) Option {
	return func(p *Pipeline) { p.mon = m }
}

// WithAlerter attaches an alerter notified when the event stream dies
// with a disconnect.
func WithAlerter(a Alerter) Option {
	return func(p *Pipeline) { p.alerter = a }
}

// WithLogger overrides the logger used for lenient-decode warnings.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// Pipeline owns a camera's event and image streams, each independently
// startable and stoppable.
type Pipeline struct {
	dev           Transport
	queueCapacity int
	readTimeout   time.Duration
	mon           ProcMonitor
	alerter       Alerter
	log           *log.Logger

	evtMu      sync.Mutex
	evtRunning bool
	evtCancel  context.CancelFunc
	evtGrp     *errgroup.Group
	evtQueue   *blockQueue

	imgMu      sync.Mutex
	imgRunning bool
	imgCancel  context.CancelFunc
	imgGrp     *errgroup.Group
}

// NewPipeline wraps dev with the reader/decoder goroutines described by
// the given options.
func NewPipeline(dev Transport, opts ...Option) *Pipeline {
	p := &Pipeline{
		dev:           dev,
		queueCapacity: DefaultQueueCapacity,
		readTimeout:   defaultReadTimeout,
		log:           log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StartEventCapture issues a ClearSharedMemory control transfer and
// launches the reader and decoder goroutines for the event stream. cb is
// invoked once per fully decoded 4-sub-frame quadrant group, in arrival
// order. Calling StartEventCapture while the event stream is already
// running returns an error.
func (p *Pipeline) StartEventCapture(cb evcam.EventCallback) error {
	p.evtMu.Lock()
	defer p.evtMu.Unlock()
	if p.evtRunning {
		return fmt.Errorf("capture: event stream already running")
	}

	if err := p.dev.ClearSharedMemory(); err != nil {
		return fmt.Errorf("capture: could not clear shared memory: %w", err)
	}
	ep, err := p.dev.EndpointAddress(0)
	if err != nil {
		return fmt.Errorf("capture: could not resolve event endpoint: %w", err)
	}

	if p.mon != nil {
		if err := p.mon.Start(); err != nil {
			p.logf("capture: process monitor did not start: %v", err)
		}
	}

	q := newBlockQueue(p.queueCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error { return p.readLoop(gctx, ep, q) })
	grp.Go(func() error { return p.decodeLoop(gctx, q, cb) })

	p.evtQueue = q
	p.evtCancel = cancel
	p.evtGrp = grp
	p.evtRunning = true
	return nil
}

// StopEventCapture halts the event stream's reader and decoder
// goroutines and drains the raw-block queue. It is idempotent: calling
// it when the event stream is not running is a no-op.
func (p *Pipeline) StopEventCapture() {
	p.evtMu.Lock()
	defer p.evtMu.Unlock()
	if !p.evtRunning {
		return
	}

	p.evtCancel()
	p.evtQueue.close()
	if err := p.evtGrp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		p.logf("capture: event stream stopped: %v", err)
	}
	if p.mon != nil {
		if err := p.mon.Stop(); err != nil {
			p.logf("capture: process monitor did not stop cleanly: %v", err)
		}
	}

	p.evtRunning = false
	p.evtQueue = nil
	p.evtCancel = nil
	p.evtGrp = nil
}

// ClearEventQueue discards any raw blocks currently buffered for the
// event stream without affecting the dropped-block counter.
func (p *Pipeline) ClearEventQueue() {
	p.evtMu.Lock()
	q := p.evtQueue
	p.evtMu.Unlock()
	if q != nil {
		q.clear()
	}
}

// EventQueueDropped reports how many raw blocks have been evicted by
// drop-oldest overflow since the event stream was last started.
func (p *Pipeline) EventQueueDropped() uint64 {
	p.evtMu.Lock()
	q := p.evtQueue
	p.evtMu.Unlock()
	if q == nil {
		return 0
	}
	return q.droppedCount()
}

// readLoop performs bulk-IN transfers against ep and pushes each full
// block onto q until ctx is cancelled or the device reports a
// disconnect.
func (p *Pipeline) readLoop(ctx context.Context, ep uint8, q *blockQueue) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		block := make([]byte, subframe.BufLen)
		_, err := p.dev.BulkTransfer(ep, block, p.readTimeout)
		switch {
		case err == nil:
			q.push(block)
		case errors.Is(err, usb.ErrTimeout):
			continue
		case errors.Is(err, usb.ErrDisconnected):
			if p.alerter != nil {
				if aerr := p.alerter.Notify("evcam: event stream disconnected", err.Error()); aerr != nil {
					p.logf("capture: alert delivery failed: %v", aerr)
				}
			}
			return fmt.Errorf("capture: event stream reader stopped: %w", err)
		default:
			p.logf("capture: transient bulk transfer error: %v", err)
		}
	}
}

// decodeLoop drains q, decoding every raw block's 4 quadrant groups and
// invoking cb exactly once per group.
func (p *Pipeline) decodeLoop(ctx context.Context, q *blockQueue, cb evcam.EventCallback) error {
	done := ctx.Done()
	for {
		b, ok := q.pop(done)
		if !ok {
			return nil
		}
		p.decodeBlock(b, cb)
	}
}

func (p *Pipeline) decodeBlock(b []byte, cb evcam.EventCallback) {
	for s := 0; s+groupStride <= len(b); s += groupStride {
		var group []evcam.EventCD
		for k := 0; k < 4; k++ {
			off := s + k*subframe.SubFullBytes
			_, evs, err := subframe.Decode(b[off:off+subframe.SubFullBytes], p.logf)
			if err != nil {
				p.logf("capture: sub-frame decode error: %v", err)
				continue
			}
			group = append(group, evs...)
		}
		if cb != nil {
			cb(group)
		}
	}
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Printf(format, args...)
	}
}

// Close stops both streams. It is safe to call more than once.
func (p *Pipeline) Close() error {
	p.StopEventCapture()
	p.StopImageCapture()
	return nil
}
