// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package app

import (
	"context"
	"sync"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
	"github.com/alekseysidorov/cyberpixie-sub000/render"
	"github.com/alekseysidorov/cyberpixie-sub000/storage"
	"github.com/alekseysidorov/cyberpixie-sub000/support/logging"
)

// State owns the device's single storage.Store and enforces the protocol's
// central invariant: exactly one of (store, active rendering image) is
// true at any moment. Whichever goroutine is dispatching a request holds
// mu and either sees an idle store to operate on directly, or an active
// image id and hands control to the render pipeline to stop it first.
//
// Grounded on original_source/crates/core/src/app/mod.rs's state machine;
// the mutex-guarded struct here serializes access to shared device state,
// with no refcount machinery since there is exactly one device, not a
// pool of them.
type State struct {
	mu sync.Mutex

	store   *storage.Store
	render  *render.Handle
	current *proto.ImageId
	// snapshot caches Config()/ImagesCount() as of the moment rendering
	// started, since the store itself is unreachable (owned by the render
	// pipeline) for the session's duration.
	snapshot proto.DeviceInfo

	log logging.L
}

// NewState wraps store and a render.Handle into a State that starts idle
// (no active rendering).
func NewState(store *storage.Store, renderHandle *render.Handle, log logging.L) *State {
	return &State{store: store, render: renderHandle, log: logging.Must(log)}
}

// withStore runs fn with exclusive access to the store, stopping any
// active rendering session first so the store is never read or written
// while the render pipeline owns it — the single-owner invariant in
// executable form.
func (s *State) withStore(ctx context.Context, fn func(*storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.store = s.render.Stop(ctx)
		s.current = nil
	}
	return fn(s.store)
}

// Config returns the store's current configuration.
func (s *State) Config(ctx context.Context) (proto.Configuration, error) {
	var cfg proto.Configuration
	err := s.withStore(ctx, func(st *storage.Store) error {
		var err error
		cfg, err = st.Config()
		return err
	})
	return cfg, err
}

// DeviceInfo reports the device's current configuration and rendering
// state, the payload of a Handshake response.
func (s *State) DeviceInfo(ctx context.Context) (proto.DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		info := s.snapshot
		info.Active = true
		id := *s.current
		info.CurrentImage = &id
		return info, nil
	}

	cfg, err := s.store.Config()
	if err != nil {
		return proto.DeviceInfo{}, err
	}
	count, err := s.store.ImagesCount()
	if err != nil {
		return proto.DeviceInfo{}, err
	}

	return proto.DeviceInfo{
		StripLen:     cfg.StripLen,
		ImagesCount:  count,
		CurrentImage: cfg.CurrentImage,
		Active:       false,
	}, nil
}

// AddImage stores a new image, stopping any active rendering first.
func (s *State) AddImage(ctx context.Context, rate proto.Hertz, length uint32, r imageReader) (proto.ImageId, error) {
	var id proto.ImageId
	err := s.withStore(ctx, func(st *storage.Store) error {
		var err error
		id, err = st.AddImage(rate, length, r)
		return err
	})
	return id, err
}

// ClearImages discards every stored image, stopping any active rendering
// first.
func (s *State) ClearImages(ctx context.Context) error {
	return s.withStore(ctx, func(st *storage.Store) error {
		return st.ClearImages()
	})
}

// Start begins rendering image id, handing the store's single instance
// over to the render pipeline. Any active rendering session is stopped
// first, so Start may be called while another image is rendering.
func (s *State) Start(ctx context.Context, id proto.ImageId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.store = s.render.Stop(ctx)
		s.current = nil
	}

	cfg, err := s.store.Config()
	if err != nil {
		return err
	}
	count, err := s.store.ImagesCount()
	if err != nil {
		return err
	}
	if count == 0 {
		return proto.NewError(proto.ErrImageRepositoryIsEmpty)
	}
	if id >= count {
		return proto.NewError(proto.ErrImageNotFound)
	}

	if err := s.store.SetCurrentImageId(id); err != nil {
		return err
	}

	s.snapshot = proto.DeviceInfo{StripLen: cfg.StripLen, ImagesCount: count}

	store := s.store
	s.store = nil
	s.render.Start(ctx, store, id)
	s.current = &id

	s.log.Infof("app: started rendering image %s", id)
	return nil
}

// Stop ends any active rendering session and reclaims the store.
func (s *State) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	s.store = s.render.Stop(ctx)
	s.current = nil
	s.log.Infof("app: stopped rendering")
	return nil
}

// imageReader is the minimal surface AddImage needs from a request
// payload; proto.PayloadReader satisfies it.
type imageReader interface {
	Read(p []byte) (int, error)
}
