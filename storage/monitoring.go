// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
)

var (
	imagesCountGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cyberpixie_storage_images_count",
		Help: "Count of images currently held by the store.",
	})

	bytesUsedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cyberpixie_storage_bytes_used",
		Help: "Bytes of the partition currently occupied by image records.",
	})

	addImageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cyberpixie_storage_add_image_errors",
		Help: "Count of AddImage calls that failed, by error kind.",
	},
		[]string{"kind"})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(imagesCountGauge, bytesUsedGauge, addImageErrors)
}

// updateMetrics refreshes the images-count/bytes-used gauges after a
// successful mutation.
func (s *Store) updateMetrics() {
	h, err := readHeader(s.backend, s.layout)
	if err != nil {
		return
	}
	imagesCountGauge.Set(float64(h.ImagesCount))

	if h.ImagesCount == 0 {
		bytesUsedGauge.Set(0)
		return
	}
	last, err := readLocation(s.backend, s.layout, proto.ImageId(h.ImagesCount-1))
	if err != nil {
		return
	}
	bytesUsedGauge.Set(float64(last.Next - recordsLocation))
}
