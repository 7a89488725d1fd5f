// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"io"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
)

// writeHertz writes a refresh rate as a little-endian u32 at absoluteOffset.
func writeHertz(b Backend, absoluteOffset uint32, rate proto.Hertz) error {
	var buf [hertzLen]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(rate))
	if err := b.Write(absoluteOffset, buf[:]); err != nil {
		return proto.WrapError(proto.ErrStorageWrite, err)
	}
	return nil
}

// readHertz reads a refresh rate from its little-endian u32 encoding at
// absoluteOffset.
func readHertz(b Backend, absoluteOffset uint32) (proto.Hertz, error) {
	var buf [hertzLen]byte
	if err := b.Read(absoluteOffset, buf[:]); err != nil {
		return 0, proto.WrapError(proto.ErrStorageRead, err)
	}
	return proto.Hertz(binary.LittleEndian.Uint32(buf[:])), nil
}

// copyExactly reads exactly n bytes from r and writes them to b starting at
// absoluteOffset, streaming through a fixed scratch buffer so a large image
// is never fully buffered in memory, matching original_source's read loop
// in StorageImpl::add_image.
func copyExactly(b Backend, absoluteOffset uint32, r io.Reader, n uint32) (uint32, error) {
	var scratch [512]byte
	var written uint32
	for written < n {
		chunk := scratch[:]
		if remaining := n - written; uint32(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		read, err := io.ReadFull(r, chunk)
		if err != nil {
			return written, proto.WrapError(proto.ErrNetwork, err)
		}
		if err := b.Write(absoluteOffset+written, chunk[:read]); err != nil {
			return written, proto.WrapError(proto.ErrStorageWrite, err)
		}
		written += uint32(read)
	}
	return written, nil
}

// ImageReader is an exact-size, seekable reader over one stored image's
// pixel bytes, the Go counterpart of original_source's PictureFile.
type ImageReader struct {
	backend     Backend
	base        uint32
	beginOffset uint32
	endOffset   uint32
	readPos     uint32

	refreshRate proto.Hertz
}

func newImageReader(backend Backend, base, begin, end uint32, rate proto.Hertz) *ImageReader {
	return &ImageReader{
		backend:     backend,
		base:        base,
		beginOffset: begin,
		endOffset:   end,
		readPos:     begin,
		refreshRate: rate,
	}
}

// RefreshRate returns the refresh rate this image was stored with.
func (r *ImageReader) RefreshRate() proto.Hertz { return r.refreshRate }

// BytesRemaining reports how many unread pixel bytes remain before Rewind
// is needed.
func (r *ImageReader) BytesRemaining() uint32 { return r.endOffset - r.readPos }

// Len returns the image's total size in bytes.
func (r *ImageReader) Len() uint32 { return r.endOffset - r.beginOffset }

// Read implements io.Reader, clamped to the image's stored extent.
func (r *ImageReader) Read(buf []byte) (int, error) {
	remaining := r.BytesRemaining()
	if remaining == 0 {
		return 0, io.EOF
	}
	if uint32(len(buf)) > remaining {
		buf = buf[:remaining]
	}
	if err := r.backend.Read(r.base+r.readPos, buf); err != nil {
		return 0, proto.WrapError(proto.ErrStorageRead, err)
	}
	r.readPos += uint32(len(buf))
	return len(buf), nil
}

// Rewind seeks back to the start of the image, the only seek operation
// original_source's PictureFile::seek supports beyond straight-through
// reading.
func (r *ImageReader) Rewind() { r.readPos = r.beginOffset }
