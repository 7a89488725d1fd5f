// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package app

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
	"github.com/alekseysidorov/cyberpixie-sub000/render"
	"github.com/alekseysidorov/cyberpixie-sub000/storage"
	"github.com/alekseysidorov/cyberpixie-sub000/support/logging"
)

type recordingStrip struct {
	mu   sync.Mutex
	rows int
}

func (r *recordingStrip) WriteRow(_ []storage.RGB8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows++
	return nil
}

func (r *recordingStrip) Clear() error { return nil }

// harness wires a Server end-to-end: a real Store, a real render.Pipeline
// over a recordingStrip, and a client-side net.Conn driving requests
// through proto.SendRequest/ReceiveResponse.
type harness struct {
	client net.Conn
	debug  *DebugLog
}

func newHarness(stripLen uint16, debugPath string) *harness {
	backend := storage.NewMemoryBackend(256 * 1024)
	layout := storage.MemoryLayout{Base: 0, Size: 256 * 1024}
	store, err := storage.Init(backend, layout, proto.Configuration{StripLen: stripLen}, logging.Nop)
	Expect(err).NotTo(HaveOccurred())

	ctx := context.Background()
	handle, _ := render.Start(ctx, &recordingStrip{}, logging.Nop)
	state := NewState(store, handle, logging.Nop)

	var debug *DebugLog
	if debugPath != "" {
		var err error
		debug, err = OpenDebugLog(debugPath)
		Expect(err).NotTo(HaveOccurred())
	}

	srv := NewServer(state, proto.RoleMain, debug, logging.Nop)

	client, serverSide := net.Pipe()
	go func() { _ = srv.ServeConn(ctx, serverSide) }()

	return &harness{client: client, debug: debug}
}

func (h *harness) roundTrip(req proto.RequestHeader, payload []byte) (proto.ResponseHeader, []byte) {
	Expect(proto.SendRequest(h.client, req, payload)).To(Succeed())
	resp, respPayload, err := proto.ReceiveResponse(h.client)
	Expect(err).NotTo(HaveOccurred())
	data := make([]byte, respPayload.BytesRemaining())
	_, err = respPayload.Read(data)
	if err != nil && respPayload.BytesRemaining() != 0 {
		Expect(err).NotTo(HaveOccurred())
	}
	return resp, data
}

var _ = Describe("Server", func() {
	It("handshakes and reports the configured strip length (scenario 1)", func() {
		h := newHarness(24, "")
		resp, _ := h.roundTrip(proto.NewHandshakeRequest(proto.ClientPeerInfo()), nil)

		Expect(resp.Kind).To(Equal(proto.RespHandshake))
		Expect(resp.Handshake.Role).To(Equal(proto.RoleMain))
		Expect(resp.Handshake.DeviceInfo).NotTo(BeNil())
		Expect(resp.Handshake.DeviceInfo.StripLen).To(Equal(uint16(24)))
	})

	It("uploads an image and enumerates it in a later handshake (scenario 2)", func() {
		h := newHarness(24, "")

		data := bytes.Repeat([]byte{0x01}, 72)
		resp, _ := h.roundTrip(proto.NewAddImageRequest(proto.ImageInfo{RefreshRate: 50, StripLen: 24}), data)
		Expect(resp.Kind).To(Equal(proto.RespAddImage))
		Expect(resp.AddImage).To(Equal(proto.ImageId(0)))

		resp, _ = h.roundTrip(proto.NewHandshakeRequest(proto.ClientPeerInfo()), nil)
		Expect(resp.Handshake.DeviceInfo.ImagesCount).To(Equal(proto.ImageId(1)))
	})

	It("rejects mismatched strip length and image length (scenario 3)", func() {
		h := newHarness(24, "")

		data := bytes.Repeat([]byte{0x01}, 72)
		resp, _ := h.roundTrip(proto.NewAddImageRequest(proto.ImageInfo{RefreshRate: 250, StripLen: 23}), data)
		Expect(resp.Kind).To(Equal(proto.RespError))
		Expect(resp.Error).To(Equal(proto.ErrStripLengthMismatch))

		short := bytes.Repeat([]byte{0x01}, 7)
		resp, _ = h.roundTrip(proto.NewAddImageRequest(proto.ImageInfo{RefreshRate: 250, StripLen: 24}), short)
		Expect(resp.Kind).To(Equal(proto.RespError))
		Expect(resp.Error).To(Equal(proto.ErrImageLengthMismatch))
	})

	It("starts and stops rendering, and AddImage stops an active session (scenario 4)", func() {
		h := newHarness(2, "")

		data := bytes.Repeat([]byte{0x01, 0x02, 0x03}, 2)
		resp, _ := h.roundTrip(proto.NewAddImageRequest(proto.ImageInfo{RefreshRate: 2000, StripLen: 2}), data)
		Expect(resp.AddImage).To(Equal(proto.ImageId(0)))

		resp, _ = h.roundTrip(proto.NewStartRequest(0), nil)
		Expect(resp.Kind).To(Equal(proto.RespEmpty))

		resp, _ = h.roundTrip(proto.NewHandshakeRequest(proto.ClientPeerInfo()), nil)
		Expect(resp.Handshake.DeviceInfo.Active).To(BeTrue())
		Expect(resp.Handshake.DeviceInfo.CurrentImage).NotTo(BeNil())
		Expect(*resp.Handshake.DeviceInfo.CurrentImage).To(Equal(proto.ImageId(0)))

		resp, _ = h.roundTrip(proto.NewAddImageRequest(proto.ImageInfo{RefreshRate: 2000, StripLen: 2}), data)
		Expect(resp.AddImage).To(Equal(proto.ImageId(1)))

		resp, _ = h.roundTrip(proto.NewHandshakeRequest(proto.ClientPeerInfo()), nil)
		Expect(resp.Handshake.DeviceInfo.Active).To(BeFalse())
	})

	It("persists the current image id in the store across Stop", func() {
		backend := storage.NewMemoryBackend(256 * 1024)
		layout := storage.MemoryLayout{Base: 0, Size: 256 * 1024}
		store, err := storage.Init(backend, layout, proto.Configuration{StripLen: 2}, logging.Nop)
		Expect(err).NotTo(HaveOccurred())

		ctx := context.Background()
		handle, _ := render.Start(ctx, &recordingStrip{}, logging.Nop)
		state := NewState(store, handle, logging.Nop)
		srv := NewServer(state, proto.RoleMain, nil, logging.Nop)
		client, serverSide := net.Pipe()
		go func() { _ = srv.ServeConn(ctx, serverSide) }()
		h := &harness{client: client}

		data := bytes.Repeat([]byte{0x01, 0x02, 0x03}, 2)
		resp, _ := h.roundTrip(proto.NewAddImageRequest(proto.ImageInfo{RefreshRate: 2000, StripLen: 2}), data)
		Expect(resp.AddImage).To(Equal(proto.ImageId(0)))

		resp, _ = h.roundTrip(proto.NewStartRequest(0), nil)
		Expect(resp.Kind).To(Equal(proto.RespEmpty))

		resp, _ = h.roundTrip(proto.NewStopRequest(), nil)
		Expect(resp.Kind).To(Equal(proto.RespEmpty))

		// Current image id lives in the store's header, not just State's
		// in-memory field, so it is readable directly off store even
		// though the protocol connection never asked for it again.
		id, err := store.CurrentImageId()
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(BeNil())
		Expect(*id).To(Equal(proto.ImageId(0)))
	})

	It("rejects showing a nonexistent image (scenario 5)", func() {
		h := newHarness(24, "")
		resp, _ := h.roundTrip(proto.NewStartRequest(0), nil)
		Expect(resp.Kind).To(Equal(proto.RespError))
		Expect(resp.Error).To(Equal(proto.ErrImageRepositoryIsEmpty))
	})

	It("clears all images (scenario 6)", func() {
		h := newHarness(24, "")
		data := bytes.Repeat([]byte{0x01}, 72)
		_, _ = h.roundTrip(proto.NewAddImageRequest(proto.ImageInfo{RefreshRate: 50, StripLen: 24}), data)

		resp, _ := h.roundTrip(proto.NewClearImagesRequest(), nil)
		Expect(resp.Kind).To(Equal(proto.RespEmpty))

		resp, _ = h.roundTrip(proto.NewHandshakeRequest(proto.ClientPeerInfo()), nil)
		Expect(resp.Handshake.DeviceInfo.ImagesCount).To(Equal(proto.ImageId(0)))
		Expect(resp.Handshake.DeviceInfo.CurrentImage).To(BeNil())
	})

	It("grows the debug log on Debug requests", func() {
		dir, err := os.MkdirTemp("", "cyberpixie-debuglog")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "debug.log")

		h := newHarness(24, path)
		resp, _ := h.roundTrip(proto.NewDebugRequest(), []byte("hello device"))
		Expect(resp.Kind).To(Equal(proto.RespEmpty))
		Expect(h.debug.Close()).To(Succeed())

		time.Sleep(10 * time.Millisecond)
		entries, err := ReadDebugLog(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(string(entries[0])).To(Equal("hello device"))
	})
})
