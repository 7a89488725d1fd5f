// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"io"

	"github.com/pkg/errors"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
)

// RGB8 is a single pixel's red/green/blue bytes.
type RGB8 struct {
	R, G, B byte
}

// Lines is an endless row iterator over an ImageReader: once it reaches
// the end of the image, NextLine rewinds and starts again from the
// beginning, exactly as original_source's ImageLines does. The render
// pipeline relies on this to loop a short image indefinitely.
type Lines struct {
	image    *ImageReader
	stripLen int
	lineLen  int
	scratch  []byte
}

// NewLines builds a row iterator over image, each row holding exactly
// stripLen RGB8 pixels. It requires image's length to be a positive
// multiple of stripLen pixels, matching original_source's ImageLines::new
// preconditions.
func NewLines(image *ImageReader, stripLen uint16) (*Lines, error) {
	lineLen := int(stripLen) * bytesPerPixel
	total := image.Len()
	if total == 0 || int(total) < lineLen {
		return nil, proto.WrapError(proto.ErrImageLengthMismatch, errors.Errorf(
			"storage: image has %d bytes, need at least %d for a %d-pixel strip", total, lineLen, stripLen))
	}
	if int(total)%lineLen != 0 {
		return nil, proto.WrapError(proto.ErrImageLengthMismatch, errors.Errorf(
			"storage: image length %d is not a multiple of line length %d", total, lineLen))
	}
	return &Lines{
		image:    image,
		stripLen: int(stripLen),
		lineLen:  lineLen,
		scratch:  make([]byte, lineLen),
	}, nil
}

// RefreshRate returns the refresh rate stored with the image, in rows per
// second. It is returned unchanged and is constant for the lifetime of
// the iterator.
func (l *Lines) RefreshRate() proto.Hertz { return l.image.RefreshRate() }

// NextLine reads and returns the next row of pixels, rewinding to the
// start of the image when exhausted.
func (l *Lines) NextLine() ([]RGB8, error) {
	if l.image.BytesRemaining() == 0 {
		l.image.Rewind()
	}
	if err := readFull(l.image, l.scratch); err != nil {
		return nil, proto.WrapError(proto.ErrStorageRead, err)
	}

	line := make([]RGB8, l.stripLen)
	for i := range line {
		off := i * bytesPerPixel
		line[i] = RGB8{R: l.scratch[off], G: l.scratch[off+1], B: l.scratch[off+2]}
	}
	return line, nil
}

func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}
