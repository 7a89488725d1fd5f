// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package proto

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	// PacketLen is the size, in bytes, of the fixed packet prefix.
	PacketLen = 8
	// MaxHeaderLen bounds a RequestHeader/ResponseHeader's encoded size, so
	// a decoder can size a stack-friendly staging buffer up front.
	MaxHeaderLen = 256
	// MaxPacketLen bounds the prefix plus header, i.e. everything read
	// before a caller starts streaming the payload.
	MaxPacketLen = PacketLen + MaxHeaderLen
)

// Packet is the 8-byte little-endian prefix that precedes every header on
// the wire: the encoded header's length, and the payload's length that
// follows the header.
//
// Encoded directly with encoding/binary rather than struc, since this is
// a small fixed-size framing prefix and neither field is itself a POD
// struct field of a larger record.
type Packet struct {
	HeaderLen  uint32
	PayloadLen uint32
}

// HasPayload reports whether the packet declares a non-empty payload.
func (p Packet) HasPayload() bool { return p.PayloadLen > 0 }

// Encode appends the little-endian wire encoding of p to buf and returns
// the result.
func (p Packet) Encode(buf []byte) []byte {
	var scratch [PacketLen]byte
	binary.LittleEndian.PutUint32(scratch[0:4], p.HeaderLen)
	binary.LittleEndian.PutUint32(scratch[4:8], p.PayloadLen)
	return append(buf, scratch[:]...)
}

// DecodePacket reads and decodes a Packet prefix from r.
func DecodePacket(r io.Reader) (Packet, error) {
	var scratch [PacketLen]byte
	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return Packet{}, errors.Wrap(err, "proto: reading packet prefix")
	}
	p := Packet{
		HeaderLen:  binary.LittleEndian.Uint32(scratch[0:4]),
		PayloadLen: binary.LittleEndian.Uint32(scratch[4:8]),
	}
	if p.HeaderLen > MaxHeaderLen {
		return Packet{}, WrapError(ErrDecode, errors.Errorf(
			"proto: header length %d exceeds maximum %d", p.HeaderLen, MaxHeaderLen))
	}
	return p, nil
}
