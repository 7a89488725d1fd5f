// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/alekseysidorov/cyberpixie-sub000/support/stagingdir"
)

// FileBackend is a Backend over a single host file, standing in for the
// real NOR-flash driver original_source targets (which cannot run off a
// laptop). original_source only ships a RAM-backed test double
// (test_utils.MemoryBackend); FileBackend is this module's addition for a
// store that survives a process restart.
//
// Appends (AddImage's image-record writes) go straight to the file in
// place, mirroring real NOR-flash append semantics. WriteAtomic stages the
// new contents to a temporary file under tempDir and atomically renames it
// into place: a crash mid-rewrite can never leave a reader looking at a
// half-written store.
type FileBackend struct {
	path    string
	tempDir string
	file    *os.File
	size    uint32
}

// OpenFileBackend opens (creating if absent) a FileBackend of the given
// capacity at path, using tempDir to stage atomic whole-store rewrites.
func OpenFileBackend(path, tempDir string, capacity uint32) (*FileBackend, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "storage: opening backend file %q", path)
	}
	if err := f.Truncate(int64(capacity)); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "storage: sizing backend file %q", path)
	}
	return &FileBackend{path: path, tempDir: tempDir, file: f, size: capacity}, nil
}

// Close releases the underlying file handle.
func (b *FileBackend) Close() error { return b.file.Close() }

func (b *FileBackend) Capacity() uint32 { return b.size }

func (b *FileBackend) Read(offset uint32, buf []byte) error {
	if _, err := b.file.ReadAt(buf, int64(offset)); err != nil {
		return errors.Wrapf(err, "storage: reading backend file %q at %d", b.path, offset)
	}
	return nil
}

func (b *FileBackend) Write(offset uint32, buf []byte) error {
	if _, err := b.file.WriteAt(buf, int64(offset)); err != nil {
		return errors.Wrapf(err, "storage: writing backend file %q at %d", b.path, offset)
	}
	return b.file.Sync()
}

// WriteAtomic replaces the len(buf) bytes at offset with buf as a single
// crash-safe commit: the current file contents are read, buf is spliced in
// at offset, and the whole result is rewritten via RewriteWhole.
func (b *FileBackend) WriteAtomic(offset uint32, buf []byte) error {
	full := make([]byte, b.size)
	if _, err := b.file.ReadAt(full, 0); err != nil && err != io.EOF {
		return errors.Wrapf(err, "storage: reading backend file %q before atomic rewrite", b.path)
	}
	copy(full[offset:], buf)
	return b.RewriteWhole(full)
}

// RewriteWhole atomically replaces the entire backend contents with data,
// which must be exactly Capacity() bytes. A half-written result would
// otherwise corrupt every image, not just the one being changed.
func (b *FileBackend) RewriteWhole(data []byte) error {
	if uint32(len(data)) != b.size {
		return errors.Errorf("storage: rewrite payload length %d does not match capacity %d", len(data), b.size)
	}

	sd, err := stagingdir.New(b.tempDir, "cyberpixie-storage-")
	if err != nil {
		return errors.Wrap(err, "storage: creating staging directory")
	}
	defer sd.Destroy()

	stagedFile := sd.Path("store.bin")
	if err := os.WriteFile(stagedFile, data, 0o600); err != nil {
		return errors.Wrap(err, "storage: writing staged backend contents")
	}

	if err := b.file.Close(); err != nil {
		return errors.Wrap(err, "storage: closing backend file before rewrite")
	}
	if err := os.Rename(stagedFile, b.path); err != nil {
		return errors.Wrapf(err, "storage: committing staged backend contents to %q", b.path)
	}

	f, err := os.OpenFile(b.path, os.O_RDWR, 0o600)
	if err != nil {
		return errors.Wrapf(err, "storage: reopening backend file %q", b.path)
	}
	b.file = f
	return nil
}
