// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package proto

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("RequestHeader", func() {
	roundTrip := func(h RequestHeader) RequestHeader {
		encoded, err := h.Encode(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(encoded)).To(BeNumerically("<=", MaxHeaderLen))

		decoded, err := DecodeRequestHeader(encoded)
		Expect(err).NotTo(HaveOccurred())
		return decoded
	}

	It("round-trips a Handshake with no group or device info", func() {
		h := NewHandshakeRequest(ClientPeerInfo())
		Expect(roundTrip(h)).To(Equal(h))
	})

	It("round-trips a Handshake with a populated DeviceInfo", func() {
		cur := ImageId(3)
		info := PeerInfo{
			Role:    RoleMain,
			GroupID: groupIDPtr(42),
			DeviceInfo: &DeviceInfo{
				StripLen:     60,
				ImagesCount:  5,
				CurrentImage: &cur,
				Active:       true,
			},
		}
		h := NewHandshakeRequest(info)
		Expect(roundTrip(h)).To(Equal(h))
	})

	It("round-trips an AddImage request", func() {
		h := NewAddImageRequest(ImageInfo{RefreshRate: 800, StripLen: 144})
		Expect(roundTrip(h)).To(Equal(h))
	})

	It("round-trips a Start request", func() {
		h := NewStartRequest(ImageId(7))
		Expect(roundTrip(h)).To(Equal(h))
	})

	It("round-trips Stop, ClearImages and Debug", func() {
		Expect(roundTrip(NewStopRequest())).To(Equal(NewStopRequest()))
		Expect(roundTrip(NewClearImagesRequest())).To(Equal(NewClearImagesRequest()))
		Expect(roundTrip(NewDebugRequest())).To(Equal(NewDebugRequest()))
	})

	It("rejects an unknown request kind", func() {
		_, err := DecodeRequestHeader([]byte{0xFF})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ResponseHeader", func() {
	roundTrip := func(h ResponseHeader) ResponseHeader {
		encoded, err := h.Encode(nil)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := DecodeResponseHeader(encoded)
		Expect(err).NotTo(HaveOccurred())
		return decoded
	}

	It("round-trips Empty", func() {
		Expect(roundTrip(NewEmptyResponse())).To(Equal(NewEmptyResponse()))
	})

	It("round-trips Handshake", func() {
		h := NewHandshakeResponse(PeerInfo{
			Role:       RoleMain,
			DeviceInfo: &DeviceInfo{StripLen: 30},
		})
		Expect(roundTrip(h)).To(Equal(h))
	})

	It("round-trips AddImage", func() {
		h := NewAddImageResponse(ImageId(2))
		Expect(roundTrip(h)).To(Equal(h))
	})

	It("round-trips Error", func() {
		h := NewErrorResponse(ErrImageTooBig)
		Expect(roundTrip(h)).To(Equal(h))
	})
})

func groupIDPtr(v uint32) *uint32 { return &v }
