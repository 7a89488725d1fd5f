// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package proto

import (
	"io"

	"github.com/pkg/errors"

	"github.com/alekseysidorov/cyberpixie-sub000/support/dataio"
)

// PayloadReader is a lazy, bounded reader over a request or response
// payload. It never reads past the length declared in the packet prefix,
// and a caller that stops short can always reach the next message by
// calling Skip, which app.Server.ServeConn does unconditionally after
// dispatching every request, per the protocol's "drain unread payload"
// rule.
//
// Grounded on original_source/crates/proto/src/payload.rs's PayloadReader
// (a cursor bounded by a remembered remaining-length counter), generalized
// to wrap an arbitrary io.Reader instead of an in-memory slice since a
// payload here is streamed off a TCP connection rather than held in RAM.
type PayloadReader struct {
	r         io.Reader
	remaining uint32
}

// NewPayloadReader returns a PayloadReader that will yield exactly len
// bytes from r before returning io.EOF.
func NewPayloadReader(r io.Reader, len uint32) *PayloadReader {
	return &PayloadReader{r: r, remaining: len}
}

// BytesRemaining reports how many payload bytes have not yet been read or
// skipped.
func (p *PayloadReader) BytesRemaining() uint32 { return p.remaining }

// Read implements io.Reader, clamped to the declared payload length.
func (p *PayloadReader) Read(buf []byte) (int, error) {
	if p.remaining == 0 {
		return 0, io.EOF
	}
	if uint32(len(buf)) > p.remaining {
		buf = buf[:p.remaining]
	}
	n, err := p.r.Read(buf)
	p.remaining -= uint32(n)
	return n, err
}

// Skip discards every remaining byte of the payload, leaving the
// underlying connection positioned at the start of the next packet.
func (p *PayloadReader) Skip() error {
	if p.remaining == 0 {
		return nil
	}
	var scratch [512]byte
	for p.remaining > 0 {
		n := len(scratch)
		if uint32(n) > p.remaining {
			n = int(p.remaining)
		}
		if err := dataio.ReadFull(p.r, scratch[:n]); err != nil {
			return WrapError(ErrNetwork, errors.Wrap(err, "proto: skipping payload"))
		}
		p.remaining -= uint32(n)
	}
	return nil
}
