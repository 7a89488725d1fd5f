// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"bytes"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
)

var _ = Describe("Lines", func() {
	var s *Store

	BeforeEach(func() {
		s = openTestStore(2)
	})

	It("rewinds once the image is exhausted", func() {
		// Two lines of 2 pixels each: line 0 is all 1s, line 1 is all 2s.
		data := []byte{1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2}
		id, err := s.AddImage(10, uint32(len(data)), bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())

		r, err := s.ReadImage(id)
		Expect(err).NotTo(HaveOccurred())

		lines, err := NewLines(r, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines.RefreshRate()).To(Equal(proto.Hertz(10)))

		line0, err := lines.NextLine()
		Expect(err).NotTo(HaveOccurred())
		Expect(line0).To(Equal([]RGB8{{1, 1, 1}, {1, 1, 1}}))

		line1, err := lines.NextLine()
		Expect(err).NotTo(HaveOccurred())
		Expect(line1).To(Equal([]RGB8{{2, 2, 2}, {2, 2, 2}}))

		// Exhausted: the third read should rewind and return line 0 again.
		line2, err := lines.NextLine()
		Expect(err).NotTo(HaveOccurred())
		Expect(line2).To(Equal(line0))
	})

	It("rejects an image whose length isn't a multiple of the line length", func() {
		data := []byte{1, 1, 1, 1, 1} // 5 bytes, not a multiple of 2*3=6
		id, err := s.AddImage(10, uint32(len(data)), bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())

		r, err := s.ReadImage(id)
		Expect(err).NotTo(HaveOccurred())

		_, err = NewLines(r, 2)
		Expect(err).To(HaveOccurred())
	})
})
