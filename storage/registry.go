// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"bytes"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
)

// pictureLocation is the (current, next) offset pair describing where one
// image's record begins and ends. Image i and image i+1 share an entry:
// image i's "next" is image i+1's "current", exactly as original_source's
// PictureLocation sliding window does.
type pictureLocation struct {
	Current uint32 `struc:",little"`
	Next    uint32 `struc:",little"`
}

// firstPictureLocation is the location of the very first image, whose
// record begins immediately after the registry block. Current/Next are
// layout-relative, not backend-absolute; callers add layout.Base
// themselves when touching the backend.
func firstPictureLocation() pictureLocation {
	return pictureLocation{Current: 0, Next: recordsLocation}
}

func encodeLocation(l pictureLocation) ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.Pack(&buf, &l); err != nil {
		return nil, errors.Wrap(err, "storage: encoding picture location")
	}
	return buf.Bytes(), nil
}

func decodeLocation(data []byte) (pictureLocation, error) {
	var l pictureLocation
	if err := struc.Unpack(bytes.NewReader(data), &l); err != nil {
		return pictureLocation{}, errors.Wrap(err, "storage: decoding picture location")
	}
	return l, nil
}

func readLocation(b Backend, layout MemoryLayout, id proto.ImageId) (pictureLocation, error) {
	data := make([]byte, 2*offsetLen)
	if err := b.Read(layout.registryOffset(id), data); err != nil {
		return pictureLocation{}, proto.WrapError(proto.ErrStorageRead, err)
	}
	l, err := decodeLocation(data)
	if err != nil {
		return pictureLocation{}, proto.WrapError(proto.ErrDecode, err)
	}
	return l, nil
}

func writeLocation(b Backend, layout MemoryLayout, id proto.ImageId, l pictureLocation) error {
	data, err := encodeLocation(l)
	if err != nil {
		return proto.WrapError(proto.ErrStorageWrite, err)
	}
	if err := b.Write(layout.registryOffset(id), data); err != nil {
		return proto.WrapError(proto.ErrStorageWrite, err)
	}
	return nil
}

// vacantLocation returns the location new image imagesCount should be
// written at: the first slot if the store is empty, or the tail of the
// previous image's record otherwise.
func vacantLocation(b Backend, layout MemoryLayout, imagesCount proto.ImageId) (pictureLocation, error) {
	if imagesCount == 0 {
		return firstPictureLocation(), nil
	}
	return readLocation(b, layout, imagesCount-1)
}
