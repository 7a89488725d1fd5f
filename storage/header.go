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

// headerVersion is the storage layout version this package reads and
// writes. Bumping it is reserved for an incompatible layout change; there
// is currently only one version.
const headerVersion = 1

// onDiskHeader is the struc-encoded header block: a fixed-size POD record,
// using struc's tag-driven packing since every field is fixed-width with
// no optional or variant-tagged fields.
//
// Fields after CurrentImage are zero-padded out to headerBlockSize by the
// caller; struc only encodes what's declared here.
type onDiskHeader struct {
	Version         uint16 `struc:",little"`
	StripLen        uint16 `struc:",little"`
	ImagesCount     uint16 `struc:",little"`
	HasCurrentImage uint8  `struc:",little"`
	CurrentImage    uint16 `struc:",little"`
}

func (h onDiskHeader) configuration() proto.Configuration {
	cfg := proto.Configuration{StripLen: h.StripLen}
	if h.HasCurrentImage != 0 {
		id := proto.ImageId(h.CurrentImage)
		cfg.CurrentImage = &id
	}
	return cfg
}

func headerFromConfiguration(cfg proto.Configuration, imagesCount proto.ImageId) onDiskHeader {
	h := onDiskHeader{
		Version:     headerVersion,
		StripLen:    cfg.StripLen,
		ImagesCount: uint16(imagesCount),
	}
	if cfg.CurrentImage != nil {
		h.HasCurrentImage = 1
		h.CurrentImage = uint16(*cfg.CurrentImage)
	}
	return h
}

func encodeHeader(h onDiskHeader) ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.Pack(&buf, &h); err != nil {
		return nil, errors.Wrap(err, "storage: encoding header block")
	}
	block := make([]byte, headerBlockSize)
	copy(block, buf.Bytes())
	return block, nil
}

func decodeHeader(block []byte) (onDiskHeader, error) {
	var h onDiskHeader
	if err := struc.Unpack(bytes.NewReader(block), &h); err != nil {
		return onDiskHeader{}, errors.Wrap(err, "storage: decoding header block")
	}
	return h, nil
}

func readHeader(b Backend, layout MemoryLayout) (onDiskHeader, error) {
	block := make([]byte, headerBlockSize)
	if err := b.Read(layout.headerOffset(), block); err != nil {
		return onDiskHeader{}, proto.WrapError(proto.ErrStorageRead, err)
	}
	h, err := decodeHeader(block)
	if err != nil {
		return onDiskHeader{}, proto.WrapError(proto.ErrDecode, err)
	}
	if h.Version != headerVersion {
		return onDiskHeader{}, proto.WrapError(proto.ErrDecode,
			errors.Errorf("storage: header version %d is not the supported version %d (store not initialized?)",
				h.Version, headerVersion))
	}
	return h, nil
}

func writeHeader(b Backend, layout MemoryLayout, h onDiskHeader) error {
	block, err := encodeHeader(h)
	if err != nil {
		return proto.WrapError(proto.ErrStorageWrite, err)
	}
	if err := b.Write(layout.headerOffset(), block); err != nil {
		return proto.WrapError(proto.ErrStorageWrite, err)
	}
	return nil
}

// writeHeaderAtomic writes h the same way writeHeader does, except it
// commits through b's AtomicBackend.WriteAtomic when b implements it, so
// the rewrite can never be observed half-written. Used for Init's format
// and SetConfig's implicit clear-on-strip_len-change, where a half-written
// header would corrupt every image, not just the one being changed.
func writeHeaderAtomic(b Backend, layout MemoryLayout, h onDiskHeader) error {
	ab, ok := b.(AtomicBackend)
	if !ok {
		return writeHeader(b, layout, h)
	}
	block, err := encodeHeader(h)
	if err != nil {
		return proto.WrapError(proto.ErrStorageWrite, err)
	}
	if err := ab.WriteAtomic(layout.headerOffset(), block); err != nil {
		return proto.WrapError(proto.ErrStorageWrite, err)
	}
	return nil
}
