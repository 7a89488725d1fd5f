// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"io"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
	"github.com/alekseysidorov/cyberpixie-sub000/support/logging"
)

const testPartitionSize = 64 * 1024

func openTestStore(stripLen uint16) *Store {
	backend := NewMemoryBackend(testPartitionSize)
	layout := MemoryLayout{Base: 0, Size: testPartitionSize}
	s, err := Init(backend, layout, proto.Configuration{StripLen: stripLen}, logging.Nop)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func makeImage(stripLen uint16, lines int) []byte {
	buf := make([]byte, int(stripLen)*bytesPerPixel*lines)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

var _ = Describe("Store", func() {
	var s *Store

	BeforeEach(func() {
		s = openTestStore(30)
	})

	It("starts with zero images and the configured strip length", func() {
		cfg, err := s.Config()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.StripLen).To(Equal(uint16(30)))
		Expect(cfg.CurrentImage).To(BeNil())

		count, err := s.ImagesCount()
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(proto.ImageId(0)))
	})

	Context("after adding one image", func() {
		var id proto.ImageId
		var data []byte

		BeforeEach(func() {
			data = makeImage(30, 4)
			var err error
			id, err = s.AddImage(500, uint32(len(data)), bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
		})

		It("assigns ImageId 0", func() {
			Expect(id).To(Equal(proto.ImageId(0)))
		})

		It("increments the images count", func() {
			count, err := s.ImagesCount()
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(proto.ImageId(1)))
		})

		It("reads back the same bytes and refresh rate", func() {
			r, err := s.ReadImage(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.RefreshRate()).To(Equal(proto.Hertz(500)))

			got, err := io.ReadAll(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(data))
		})

		It("appends a second image after the first without overlap", func() {
			data2 := makeImage(30, 2)
			id2, err := s.AddImage(200, uint32(len(data2)), bytes.NewReader(data2))
			Expect(err).NotTo(HaveOccurred())
			Expect(id2).To(Equal(proto.ImageId(1)))

			r1, err := s.ReadImage(id)
			Expect(err).NotTo(HaveOccurred())
			got1, err := io.ReadAll(r1)
			Expect(err).NotTo(HaveOccurred())
			Expect(got1).To(Equal(data))

			r2, err := s.ReadImage(id2)
			Expect(err).NotTo(HaveOccurred())
			got2, err := io.ReadAll(r2)
			Expect(err).NotTo(HaveOccurred())
			Expect(got2).To(Equal(data2))
		})
	})

	It("returns ErrImageNotFound for an unknown id", func() {
		_, err := s.ReadImage(7)
		kind, ok := proto.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(proto.ErrImageNotFound))
	})

	It("returns ErrImageTooBig when an image would overflow the partition", func() {
		huge := make([]byte, testPartitionSize*2)
		_, err := s.AddImage(500, uint32(len(huge)), bytes.NewReader(huge))
		kind, ok := proto.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(proto.ErrImageTooBig))
	})

	It("returns ErrImageRepositoryIsFull once MaxImages is reached", func() {
		data := makeImage(30, 1)
		for i := 0; i < MaxImages; i++ {
			_, err := s.AddImage(500, uint32(len(data)), bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
		}
		_, err := s.AddImage(500, uint32(len(data)), bytes.NewReader(data))
		kind, ok := proto.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(proto.ErrImageRepositoryIsFull))
	})

	It("clears all images via ClearImages", func() {
		data := makeImage(30, 1)
		_, err := s.AddImage(500, uint32(len(data)), bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())

		Expect(s.ClearImages()).To(Succeed())

		count, err := s.ImagesCount()
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(proto.ImageId(0)))
	})

	It("clears images implicitly when SetConfig changes the strip length", func() {
		data := makeImage(30, 1)
		_, err := s.AddImage(500, uint32(len(data)), bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())

		Expect(s.SetConfig(proto.Configuration{StripLen: 60})).To(Succeed())

		count, err := s.ImagesCount()
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(proto.ImageId(0)))

		cfg, err := s.Config()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.StripLen).To(Equal(uint16(60)))
	})

	It("does not clear images when SetConfig keeps the same strip length", func() {
		data := makeImage(30, 1)
		_, err := s.AddImage(500, uint32(len(data)), bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())

		one := proto.ImageId(0)
		Expect(s.SetConfig(proto.Configuration{StripLen: 30, CurrentImage: &one})).To(Succeed())

		count, err := s.ImagesCount()
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(proto.ImageId(1)))
	})

	Context("current image bookkeeping", func() {
		It("starts with no current image", func() {
			id, err := s.CurrentImageId()
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(BeNil())
		})

		It("persists SetCurrentImageId across reads", func() {
			data := makeImage(30, 1)
			imgID, err := s.AddImage(500, uint32(len(data)), bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())

			Expect(s.SetCurrentImageId(imgID)).To(Succeed())

			got, err := s.CurrentImageId()
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(*got).To(Equal(imgID))

			cfg, err := s.Config()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.CurrentImage).NotTo(BeNil())
			Expect(*cfg.CurrentImage).To(Equal(imgID))
		})

		It("clears the current image on ClearImages", func() {
			data := makeImage(30, 1)
			imgID, err := s.AddImage(500, uint32(len(data)), bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetCurrentImageId(imgID)).To(Succeed())

			Expect(s.ClearImages()).To(Succeed())

			id, err := s.CurrentImageId()
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(BeNil())
		})

		It("switches to the next image modulo images_count, wrapping around", func() {
			data := makeImage(30, 1)
			for i := 0; i < 3; i++ {
				_, err := s.AddImage(500, uint32(len(data)), bytes.NewReader(data))
				Expect(err).NotTo(HaveOccurred())
			}

			first, err := s.SwitchToNextImage()
			Expect(err).NotTo(HaveOccurred())
			Expect(*first).To(Equal(proto.ImageId(0)))

			second, err := s.SwitchToNextImage()
			Expect(err).NotTo(HaveOccurred())
			Expect(*second).To(Equal(proto.ImageId(1)))

			third, err := s.SwitchToNextImage()
			Expect(err).NotTo(HaveOccurred())
			Expect(*third).To(Equal(proto.ImageId(2)))

			wrapped, err := s.SwitchToNextImage()
			Expect(err).NotTo(HaveOccurred())
			Expect(*wrapped).To(Equal(proto.ImageId(0)))
		})

		It("returns nil from SwitchToNextImage when the store is empty", func() {
			id, err := s.SwitchToNextImage()
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(BeNil())
		})
	})
})
