// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package render

import (
	"context"
	"time"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
	"github.com/alekseysidorov/cyberpixie-sub000/storage"
	"github.com/alekseysidorov/cyberpixie-sub000/support/logging"
)

// queueLen is the pending-frames queue length: the writer goroutine can
// run up to this many frames behind the reader before the reader blocks,
// matching original_source's QUEUE_LEN constant exactly.
const queueLen = 8

// command is sent on the 1-deep commands channel to start or stop a
// rendering session.
type command struct {
	start   bool
	storage *storage.Store
	id      proto.ImageId
}

// Pipeline owns the reader and writer goroutines and the three bounded
// channels connecting them: commands (cap 1), responses (cap 1) and
// frames (cap queueLen). At most one rendering session is ever active, and
// the Store handle has exactly one owner at any moment: either the
// Pipeline (while rendering) or whoever called Stop/holds a Handle with no
// session started.
type Pipeline struct {
	commands  chan command
	responses chan *storage.Store
	frames    chan Frame
	log       logging.L

	cancel context.CancelFunc
}

// Start launches the reader and writer goroutines, the writer driving
// strip, and returns a Handle to control rendering sessions together with
// a stop function. Handle.Stop ends one session and returns the Store
// handle; the goroutines themselves run until ctx is done or the returned
// stop function is called.
func Start(ctx context.Context, strip Strip, log logging.L) (*Handle, func()) {
	log = logging.Must(log)
	ctx, cancel := context.WithCancel(ctx)

	p := &Pipeline{
		commands:  make(chan command, 1),
		responses: make(chan *storage.Store, 1),
		frames:    make(chan Frame, queueLen),
		log:       log,
		cancel:    cancel,
	}

	go p.readerLoop(ctx)
	go writerLoop(ctx, p.frames, strip, log)

	return &Handle{p: p}, cancel
}

// readerLoop is the Go counterpart of storage_reading_task: it waits for a
// Start command, then streams the named image's rows onto the frames
// channel in an endless loop until a Stop command arrives, at which point
// it hands the Store back on the responses channel.
func (p *Pipeline) readerLoop(ctx context.Context) {
	for {
		var pending command
		select {
		case <-ctx.Done():
			return
		case pending = <-p.commands:
		}
		if !pending.start {
			// A Stop with no active session; nothing to do.
			continue
		}

		if err := p.renderOne(ctx, pending.storage, pending.id); err != nil {
			p.log.Warnf("render: rendering task for image %s ended: %s", pending.id, err)
		}
		select {
		case p.responses <- pending.storage:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) renderOne(ctx context.Context, store *storage.Store, id proto.ImageId) error {
	cfg, err := store.Config()
	if err != nil {
		return err
	}
	image, err := store.ReadImage(id)
	if err != nil {
		return err
	}
	lines, err := storage.NewLines(image, cfg.StripLen)
	if err != nil {
		return err
	}

	rate := lines.RefreshRate()
	p.log.Infof("render: starting picture rendering task id=%s rate=%s", id, rate)

	select {
	case p.frames <- Frame{Kind: FrameUpdateRate, Rate: rate}:
	case <-ctx.Done():
		return nil
	}

	for {
		line, err := lines.NextLine()
		if err != nil {
			return err
		}
		select {
		case p.frames <- Frame{Kind: FrameLine, Line: line}:
		case <-ctx.Done():
			return nil
		}

		select {
		case cmd := <-p.commands:
			if !cmd.start {
				p.log.Infof("render: stopping rendering task id=%s", id)
				select {
				case p.frames <- Frame{Kind: FrameClear}:
				case <-ctx.Done():
				}
				return nil
			}
		default:
		}
	}
}

// writerLoop is the Go counterpart of render_task: it paces frames onto
// strip at the declared refresh rate, tracking drop/render-time stats the
// same way the firmware's log.info! block does every 10,000 frames.
func writerLoop(ctx context.Context, frames <-chan Frame, strip Strip, log logging.L) {
	rate := proto.Hertz(500)
	period := rate.Period()

	var stats renderStats
	for {
		var f Frame
		select {
		case <-ctx.Done():
			return
		case f = <-frames:
		}

		switch f.Kind {
		case FrameUpdateRate:
			rate = f.Rate
			period = rate.Period()
			select {
			case <-time.After(period * queueLen * 2):
			case <-ctx.Done():
				return
			}
			continue

		case FrameLine:
			start := time.Now()
			if err := strip.WriteRow(f.Line); err != nil {
				log.Warnf("render: writing row: %s", err)
			}
			elapsed := time.Since(start)
			stats.observe(elapsed, period)
			if elapsed < period {
				select {
				case <-time.After(period - elapsed):
				case <-ctx.Done():
					return
				}
			}

		case FrameClear:
			if err := strip.Clear(); err != nil {
				log.Warnf("render: clearing strip: %s", err)
			}
			renderDroppedFrames.Add(float64(stats.dropped))
			renderRowsRendered.Add(float64(stats.count))
			stats.reset()
		}

		if stats.shouldReport() {
			log.Infof("render: rate=%s avg=%s max=%s dropped=%d/%d", rate,
				stats.average(), stats.max, stats.dropped, stats.count)
			renderDroppedFrames.Add(float64(stats.dropped))
			renderRowsRendered.Add(float64(stats.count))
			stats.reset()
		}
	}
}

// Handle lets callers start and stop a rendering session without reaching
// into the Pipeline's internals.
type Handle struct {
	p *Pipeline
}

// Start hands the Store off to the renderer to begin playing image id.
// The caller no longer owns store until a subsequent Stop returns it —
// this transfer is the single-owner invariant the protocol state machine
// requires.
func (h *Handle) Start(ctx context.Context, store *storage.Store, id proto.ImageId) {
	select {
	case h.p.commands <- command{start: true, storage: store, id: id}:
	case <-ctx.Done():
	}
}

// Stop ends the active rendering session and returns the Store handle.
// With no session active, the reader discards the Stop command and Stop
// blocks until ctx is done, then returns nil.
func (h *Handle) Stop(ctx context.Context) *storage.Store {
	select {
	case h.p.commands <- command{start: false}:
	case <-ctx.Done():
		return nil
	}
	select {
	case s := <-h.p.responses:
		return s
	case <-ctx.Done():
		return nil
	}
}
