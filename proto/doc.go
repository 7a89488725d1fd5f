// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package proto implements the Cyberpixie wire protocol: a length-prefixed
// packet framing, a small request/response header taxonomy, and a bounded
// streaming payload reader.
//
// Every message on the wire is PACKET || HEADER || PAYLOAD, where PACKET is
// an 8-byte little-endian {header_len, payload_len} pair, HEADER is the
// stable binary encoding of a RequestHeader or ResponseHeader, and PAYLOAD
// is exactly payload_len bytes, streamed rather than buffered.
package proto
