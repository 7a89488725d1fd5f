// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package client

import (
	"net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
)

// fakeDevice answers exactly one connection with scripted responses, in
// request order, so tests can drive Client against known wire traffic
// without depending on the app package.
func fakeDevice(t GinkgoTInterface, respond func(req proto.RequestHeader, payload *proto.PayloadReader) (proto.ResponseHeader, []byte)) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			req, payload, err := proto.ReceiveRequest(conn)
			if err != nil {
				return
			}
			resp, respPayload := respond(req, payload)
			_ = payload.Skip()
			if err := proto.SendResponse(conn, resp, respPayload); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

var _ = Describe("Client", func() {
	It("connects and reports the handshake's PeerInfo", func() {
		addr := fakeDevice(GinkgoT(), func(req proto.RequestHeader, _ *proto.PayloadReader) (proto.ResponseHeader, []byte) {
			info := proto.DeviceInfo{StripLen: 24}
			return proto.NewHandshakeResponse(proto.PeerInfo{Role: proto.RoleMain, DeviceInfo: &info}), nil
		})

		c, info, err := Connect(addr, time.Second)
		Expect(err).NotTo(HaveOccurred())
		defer c.Close()

		Expect(info.Role).To(Equal(proto.RoleMain))
		Expect(info.DeviceInfo.StripLen).To(Equal(uint16(24)))
	})

	It("uploads an image and returns its id", func() {
		var gotPayload []byte
		addr := fakeDevice(GinkgoT(), func(req proto.RequestHeader, payload *proto.PayloadReader) (proto.ResponseHeader, []byte) {
			switch req.Kind {
			case proto.ReqHandshake:
				return proto.NewHandshakeResponse(proto.PeerInfo{Role: proto.RoleMain}), nil
			case proto.ReqAddImage:
				buf := make([]byte, payload.BytesRemaining())
				_, _ = payload.Read(buf)
				gotPayload = buf
				return proto.NewAddImageResponse(7), nil
			}
			return proto.NewEmptyResponse(), nil
		})

		c, _, err := Connect(addr, time.Second)
		Expect(err).NotTo(HaveOccurred())
		defer c.Close()

		id, err := c.AddImage(50, 24, []byte{1, 2, 3, 4})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(proto.ImageId(7)))
		Expect(gotPayload).To(Equal([]byte{1, 2, 3, 4}))
	})

	It("surfaces an Error response as a proto.Error", func() {
		addr := fakeDevice(GinkgoT(), func(req proto.RequestHeader, _ *proto.PayloadReader) (proto.ResponseHeader, []byte) {
			if req.Kind == proto.ReqHandshake {
				return proto.NewHandshakeResponse(proto.PeerInfo{Role: proto.RoleMain}), nil
			}
			return proto.NewErrorResponse(proto.ErrImageRepositoryIsEmpty), nil
		})

		c, _, err := Connect(addr, time.Second)
		Expect(err).NotTo(HaveOccurred())
		defer c.Close()

		err = c.Start(0)
		Expect(err).To(HaveOccurred())
		kind, ok := proto.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(proto.ErrImageRepositoryIsEmpty))
	})

	It("round-trips Stop, ClearImages and Debug as empty responses", func() {
		addr := fakeDevice(GinkgoT(), func(req proto.RequestHeader, _ *proto.PayloadReader) (proto.ResponseHeader, []byte) {
			if req.Kind == proto.ReqHandshake {
				return proto.NewHandshakeResponse(proto.PeerInfo{Role: proto.RoleMain}), nil
			}
			return proto.NewEmptyResponse(), nil
		})

		c, _, err := Connect(addr, time.Second)
		Expect(err).NotTo(HaveOccurred())
		defer c.Close()

		Expect(c.Stop()).To(Succeed())
		Expect(c.ClearImages()).To(Succeed())
		Expect(c.Debug("hello")).To(Succeed())
	})
})
