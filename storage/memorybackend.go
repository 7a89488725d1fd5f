// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package storage

import "github.com/pkg/errors"

// MemoryBackend is a RAM-backed Backend, grounded on original_source's
// crates/storage/src/test_utils.rs MemoryBackend test double. It's used by
// this package's own tests and is suitable anywhere a Store doesn't need
// to survive a process restart.
type MemoryBackend struct {
	data []byte
}

// NewMemoryBackend returns a MemoryBackend with the given capacity, zeroed.
func NewMemoryBackend(capacity uint32) *MemoryBackend {
	return &MemoryBackend{data: make([]byte, capacity)}
}

func (m *MemoryBackend) Capacity() uint32 { return uint32(len(m.data)) }

func (m *MemoryBackend) Read(offset uint32, buf []byte) error {
	end := uint64(offset) + uint64(len(buf))
	if end > uint64(len(m.data)) {
		return errors.Errorf("storage: read [%d, %d) out of bounds (capacity %d)", offset, end, len(m.data))
	}
	copy(buf, m.data[offset:end])
	return nil
}

func (m *MemoryBackend) Write(offset uint32, buf []byte) error {
	end := uint64(offset) + uint64(len(buf))
	if end > uint64(len(m.data)) {
		return errors.Errorf("storage: write [%d, %d) out of bounds (capacity %d)", offset, end, len(m.data))
	}
	copy(m.data[offset:end], buf)
	return nil
}
