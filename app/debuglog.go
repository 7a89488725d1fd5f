// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package app

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// DebugLog is the append-only side channel a Debug request's payload is
// drained to (original_source leaves the Debug operation unspecified
// beyond "drain the payload"). Each entry is snappy-compressed
// independently and framed with a 4-byte little-endian length prefix, one
// block per entry so entries can be appended without reopening a stream
// codec.
type DebugLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenDebugLog opens (creating if necessary) the log file at path for
// appending.
func OpenDebugLog(path string) (*DebugLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "app: opening debug log")
	}
	return &DebugLog{file: f}, nil
}

// Append compresses data and appends it as one framed entry.
func (d *DebugLog) Append(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	compressed := snappy.Encode(nil, data)

	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(compressed)))

	if _, err := d.file.Write(lenPrefix[:]); err != nil {
		return errors.Wrap(err, "app: writing debug log entry length")
	}
	if _, err := d.file.Write(compressed); err != nil {
		return errors.Wrap(err, "app: writing debug log entry")
	}
	return d.file.Sync()
}

// Close closes the underlying file.
func (d *DebugLog) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}

// ReadDebugLog reads and decompresses every entry in the log file at path,
// in append order. It is a test and tooling helper, not used by the device
// server itself.
func ReadDebugLog(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "app: opening debug log for read")
	}
	defer f.Close()

	var entries [][]byte
	for {
		var lenPrefix [4]byte
		if _, err := io.ReadFull(f, lenPrefix[:]); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return nil, errors.Wrap(err, "app: reading debug log entry length")
		}
		n := binary.LittleEndian.Uint32(lenPrefix[:])
		compressed := make([]byte, n)
		if _, err := io.ReadFull(f, compressed); err != nil {
			return nil, errors.Wrap(err, "app: reading debug log entry")
		}
		data, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, errors.Wrap(err, "app: decompressing debug log entry")
		}
		entries = append(entries, data)
	}
}
