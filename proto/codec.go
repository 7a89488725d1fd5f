// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package proto

import (
	"io"

	"github.com/pkg/errors"

	"github.com/alekseysidorov/cyberpixie-sub000/support/bufferpool"
)

// headerPool supplies the staging buffers Send/ReceiveRequest/
// ReceiveResponse encode headers into before writing them to the wire.
// A pooled staging buffer is reused across many encode calls rather than
// allocating one per message; here the buffer holds an encoded
// header instead of a varint-framed protobuf message.
var headerPool = bufferpool.Pool{Size: MaxHeaderLen}

// encodable is implemented by RequestHeader and ResponseHeader.
type encodable interface {
	Encode(buf []byte) ([]byte, error)
}

func send(w io.Writer, h encodable, payload []byte) error {
	buf := headerPool.Get()
	defer buf.Release()

	encoded, err := h.Encode(buf.Bytes()[:0])
	if err != nil {
		return err
	}
	if len(encoded) > MaxHeaderLen {
		return WrapError(ErrInternal, errors.Errorf(
			"proto: encoded header length %d exceeds maximum %d", len(encoded), MaxHeaderLen))
	}

	pkt := Packet{HeaderLen: uint32(len(encoded)), PayloadLen: uint32(len(payload))}
	var prefix []byte
	prefix = pkt.Encode(prefix)

	if _, err := w.Write(prefix); err != nil {
		return WrapError(ErrNetwork, errors.Wrap(err, "proto: writing packet prefix"))
	}
	if _, err := w.Write(encoded); err != nil {
		return WrapError(ErrNetwork, errors.Wrap(err, "proto: writing header"))
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return WrapError(ErrNetwork, errors.Wrap(err, "proto: writing payload"))
		}
	}
	return nil
}

// SendRequest writes a request header and its immediately-following
// payload (which may be empty) to w.
func SendRequest(w io.Writer, h RequestHeader, payload []byte) error {
	return send(w, h, payload)
}

// SendResponse writes a response header and its immediately-following
// payload (which may be empty) to w.
func SendResponse(w io.Writer, h ResponseHeader, payload []byte) error {
	return send(w, h, payload)
}

func readHeaderBytes(r io.Reader) (Packet, []byte, error) {
	pkt, err := DecodePacket(r)
	if err != nil {
		return Packet{}, nil, err
	}

	buf := headerPool.Get()
	defer buf.Release()

	header := buf.Bytes()[:pkt.HeaderLen]
	if _, err := io.ReadFull(r, header); err != nil {
		return Packet{}, nil, WrapError(ErrNetwork, errors.Wrap(err, "proto: reading header"))
	}
	// Copy out of the pooled buffer before it's released back.
	owned := make([]byte, len(header))
	copy(owned, header)
	return pkt, owned, nil
}

// ReceiveRequest reads a request header from r and returns it along with a
// PayloadReader bounded to the declared payload length. The caller must
// either fully consume or Skip the returned PayloadReader before reading
// the next message from r.
func ReceiveRequest(r io.Reader) (RequestHeader, *PayloadReader, error) {
	pkt, data, err := readHeaderBytes(r)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	h, err := DecodeRequestHeader(data)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	return h, NewPayloadReader(r, pkt.PayloadLen), nil
}

// ReceiveResponse reads a response header from r and returns it along with
// a PayloadReader bounded to the declared payload length.
func ReceiveResponse(r io.Reader) (ResponseHeader, *PayloadReader, error) {
	pkt, data, err := readHeaderBytes(r)
	if err != nil {
		return ResponseHeader{}, nil, err
	}
	h, err := DecodeResponseHeader(data)
	if err != nil {
		return ResponseHeader{}, nil, err
	}
	return h, NewPayloadReader(r, pkt.PayloadLen), nil
}
