// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package storage implements the flash-resident image store: a 512-byte
// header block, a 512-byte offset registry, and an append-only run of
// image records, laid out byte-for-byte the way original_source/crates/
// storage/src/lib.rs lays them out over an embedded_storage::Storage.
package storage

import "github.com/alekseysidorov/cyberpixie-sub000/proto"

const (
	// headerBlockSize is the size, in bytes, of the header block.
	headerBlockSize = 512
	// headerBlockLocation is the header block's offset within the
	// partition.
	headerBlockLocation = 0

	// registryBlockSize is the size, in bytes, of the offset registry.
	registryBlockSize = 512
	// registryBlockLocation is the offset registry's offset within the
	// partition.
	registryBlockLocation = headerBlockLocation + headerBlockSize

	// offsetLen is the size, in bytes, of a single registry offset entry.
	offsetLen = 4

	// MaxImages is the largest number of images the registry can hold.
	// Image i's location is the offset pair (registry[i], registry[i+1]) —
	// a sliding window over one flat array of offsets — so a registry of
	// registryBlockSize/offsetLen entries holds one fewer image than it
	// has entries.
	MaxImages = registryBlockSize/offsetLen - 1

	// recordsLocation is where image records begin, immediately after the
	// registry block.
	recordsLocation = registryBlockLocation + registryBlockSize

	// bytesPerPixel is the number of bytes a single RGB8 pixel occupies on
	// the wire and on disk.
	bytesPerPixel = 3

	// hertzLen is the encoded size, in bytes, of the refresh-rate prefix
	// written before every image's pixel data.
	hertzLen = 4
)

// MemoryLayout describes where a store's partition begins and how large it
// is, the Go counterpart of original_source's MemoryLayout.
type MemoryLayout struct {
	// Base is the backend-relative offset the partition begins at.
	Base uint32
	// Size is the partition's total size, in bytes.
	Size uint32
}

func (l MemoryLayout) headerOffset() uint32 {
	return l.Base + headerBlockLocation
}

// registryOffset returns the backend offset of the two-entry offset pair
// (current, next) describing image id's location.
func (l MemoryLayout) registryOffset(id proto.ImageId) uint32 {
	return l.Base + uint32(registryBlockLocation) + uint32(id)*offsetLen
}
