// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"io"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
	"github.com/alekseysidorov/cyberpixie-sub000/support/logging"
)

// Store is the image repository: a Configuration plus a dense, ordered run
// of images, all resident on a Backend. Grounded operation-by-operation on
// original_source/crates/storage/src/lib.rs's StorageImpl.
//
// A Store is not safe for concurrent use; app.State serializes access the
// same way original_source's single-owner invariant does.
type Store struct {
	backend Backend
	layout  MemoryLayout
	log     logging.L
}

// Open opens an existing Store without reformatting it.
func Open(backend Backend, layout MemoryLayout, log logging.L) *Store {
	return &Store{backend: backend, layout: layout, log: logging.Must(log)}
}

// Init formats backend with a fresh header for the given configuration and
// returns the opened Store. Unlike Open, this discards any images already
// on backend.
func Init(backend Backend, layout MemoryLayout, cfg proto.Configuration, log logging.L) (*Store, error) {
	h := headerFromConfiguration(cfg, 0)
	if err := writeHeaderAtomic(backend, layout, h); err != nil {
		return nil, err
	}
	return Open(backend, layout, log), nil
}

// Config returns the store's current configuration.
func (s *Store) Config() (proto.Configuration, error) {
	h, err := readHeader(s.backend, s.layout)
	if err != nil {
		return proto.Configuration{}, err
	}
	return h.configuration(), nil
}

// SetConfig updates the store's configuration. If cfg.StripLen differs
// from the stored strip length, every image and the current-image pointer
// are cleared in the same atomic header write — a change in strip length
// invalidates every stored image's row framing — matching
// original_source's Header::update "breaking changes" rule.
func (s *Store) SetConfig(cfg proto.Configuration) error {
	h, err := readHeader(s.backend, s.layout)
	if err != nil {
		return err
	}

	breaking := h.StripLen != cfg.StripLen
	h.StripLen = cfg.StripLen
	if cfg.CurrentImage != nil {
		h.HasCurrentImage = 1
		h.CurrentImage = uint16(*cfg.CurrentImage)
	} else {
		h.HasCurrentImage = 0
		h.CurrentImage = 0
	}
	if breaking {
		h.ImagesCount = 0
		h.HasCurrentImage = 0
		h.CurrentImage = 0
	}

	if err := writeHeaderAtomic(s.backend, s.layout, h); err != nil {
		return err
	}
	if breaking {
		s.log.Infof("storage: strip length changed to %d, cleared all images", cfg.StripLen)
		s.updateMetrics()
	}
	return nil
}

// CurrentImageId returns the id of the image last selected by
// SetCurrentImageId, or nil if none has been set (or it was cleared by
// ClearImages).
func (s *Store) CurrentImageId() (*proto.ImageId, error) {
	h, err := readHeader(s.backend, s.layout)
	if err != nil {
		return nil, err
	}
	if h.HasCurrentImage == 0 {
		return nil, nil
	}
	id := proto.ImageId(h.CurrentImage)
	return &id, nil
}

// SetCurrentImageId records id as the store's current image, persisting it
// in the header so it survives a restart.
func (s *Store) SetCurrentImageId(id proto.ImageId) error {
	h, err := readHeader(s.backend, s.layout)
	if err != nil {
		return err
	}
	h.HasCurrentImage = 1
	h.CurrentImage = uint16(id)
	return writeHeader(s.backend, s.layout, h)
}

// SwitchToNextImage advances the current image id to the next one modulo
// images_count, returning the new id, or nil if the store holds no images.
func (s *Store) SwitchToNextImage() (*proto.ImageId, error) {
	h, err := readHeader(s.backend, s.layout)
	if err != nil {
		return nil, err
	}
	if h.ImagesCount == 0 {
		return nil, nil
	}
	next := uint16(0)
	if h.HasCurrentImage != 0 {
		next = (h.CurrentImage + 1) % h.ImagesCount
	}
	h.HasCurrentImage = 1
	h.CurrentImage = next
	if err := writeHeader(s.backend, s.layout, h); err != nil {
		return nil, err
	}
	id := proto.ImageId(next)
	return &id, nil
}

// ImagesCount returns the number of images currently stored.
func (s *Store) ImagesCount() (proto.ImageId, error) {
	h, err := readHeader(s.backend, s.layout)
	if err != nil {
		return 0, err
	}
	return proto.ImageId(h.ImagesCount), nil
}

// AddImage appends a new image to the store, reading exactly imageLen
// bytes from r, and returns its assigned ImageId.
//
// imageLen must be known up front (ExactSizeRead in original_source) so
// the registry's "next" offset and the ImageTooBig check can be computed
// without buffering the whole image in memory.
func (s *Store) AddImage(refreshRate proto.Hertz, imageLen uint32, r io.Reader) (proto.ImageId, error) {
	h, err := readHeader(s.backend, s.layout)
	if err != nil {
		return 0, err
	}

	if h.ImagesCount >= MaxImages {
		addImageErrors.WithLabelValues(proto.ErrImageRepositoryIsFull.String()).Inc()
		return 0, proto.NewError(proto.ErrImageRepositoryIsFull)
	}

	imageID := proto.ImageId(h.ImagesCount)
	last, err := vacantLocation(s.backend, s.layout, imageID)
	if err != nil {
		return 0, err
	}

	recordLen := uint64(hertzLen) + uint64(imageLen)
	if uint64(last.Next)+recordLen > uint64(s.layout.Size) {
		addImageErrors.WithLabelValues(proto.ErrImageTooBig.String()).Inc()
		return 0, proto.NewError(proto.ErrImageTooBig)
	}

	offset := s.layout.Base + last.Next
	if err := writeHertz(s.backend, offset, refreshRate); err != nil {
		return 0, err
	}
	offset += hertzLen

	written, err := copyExactly(s.backend, offset, r, imageLen)
	if err != nil {
		return 0, err
	}

	newNext := last.Next + hertzLen + written
	if err := writeLocation(s.backend, s.layout, imageID, pictureLocation{
		Current: last.Next,
		Next:    newNext,
	}); err != nil {
		return 0, err
	}

	h.ImagesCount++
	if err := writeHeader(s.backend, s.layout, h); err != nil {
		return 0, err
	}

	s.log.Infof("storage: added image %s (%d bytes at %dHz)", imageID, imageLen, refreshRate)
	s.updateMetrics()
	return imageID, nil
}

// ReadImage returns an ImageReader over image id's stored pixel data.
func (s *Store) ReadImage(id proto.ImageId) (*ImageReader, error) {
	count, err := s.ImagesCount()
	if err != nil {
		return nil, err
	}
	if id >= count {
		return nil, proto.NewError(proto.ErrImageNotFound)
	}

	loc, err := readLocation(s.backend, s.layout, id)
	if err != nil {
		return nil, err
	}

	rate, err := readHertz(s.backend, s.layout.Base+loc.Current)
	if err != nil {
		return nil, err
	}

	begin := loc.Current + hertzLen
	return newImageReader(s.backend, s.layout.Base, begin, loc.Next, rate), nil
}

// ClearImages discards every stored image and the current-image pointer,
// leaving the configured strip length untouched.
func (s *Store) ClearImages() error {
	h, err := readHeader(s.backend, s.layout)
	if err != nil {
		return err
	}
	h.ImagesCount = 0
	h.HasCurrentImage = 0
	h.CurrentImage = 0
	if err := writeHeader(s.backend, s.layout, h); err != nil {
		return err
	}
	s.log.Infof("storage: cleared all images")
	s.updateMetrics()
	return nil
}
