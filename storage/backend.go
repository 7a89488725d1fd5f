// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package storage

// Backend is the block-addressable medium a Store is built on: a single
// linear address space the store reads and writes at arbitrary offsets,
// the Go counterpart of original_source's embedded_storage::Storage trait.
type Backend interface {
	// Read fills buf with len(buf) bytes starting at offset.
	Read(offset uint32, buf []byte) error
	// Write writes buf to the backend starting at offset.
	Write(offset uint32, buf []byte) error
	// Capacity returns the total addressable size of the backend, in
	// bytes.
	Capacity() uint32
}

// AtomicBackend is implemented by backends that can make a region write
// crash-safe: either the new contents land in full, or the backend is left
// exactly as it was. Store uses this, when available, for the header
// rewrites that must never be observed half-written — formatting a fresh
// store and clearing images on a strip-length change.
type AtomicBackend interface {
	Backend
	// WriteAtomic replaces the len(buf) bytes at offset with buf as a
	// single crash-safe commit.
	WriteAtomic(offset uint32, buf []byte) error
}
