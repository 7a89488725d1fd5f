// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package render

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const statsReportEvery = 10000

var (
	renderDroppedFrames = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cyberpixie_render_dropped_frames_total",
		Help: "Count of rows whose render time exceeded the frame period.",
	})

	renderRowsRendered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cyberpixie_render_rows_rendered_total",
		Help: "Count of rows written to the strip.",
	})

	renderTimeMicros = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cyberpixie_render_row_write_microseconds",
		Help:    "Time spent writing a single row to the strip.",
		Buckets: prometheus.ExponentialBuckets(10, 2, 12),
	})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(renderDroppedFrames, renderRowsRendered, renderTimeMicros)
}

// renderStats accumulates the same numbers original_source's render_task
// logs every 10,000 frames: total render time, dropped-frame count, a
// running max, and a frame count, reset after every report or Clear.
type renderStats struct {
	total   time.Duration
	max     time.Duration
	dropped int
	count   int
}

func (s *renderStats) observe(elapsed, period time.Duration) {
	s.total += elapsed
	if elapsed > s.max {
		s.max = elapsed
	}
	if elapsed > period {
		s.dropped++
	}
	s.count++
	renderTimeMicros.Observe(float64(elapsed.Microseconds()))
}

func (s *renderStats) average() time.Duration {
	if s.count == 0 {
		return 0
	}
	return s.total / time.Duration(s.count)
}

func (s *renderStats) shouldReport() bool { return s.count >= statsReportEvery }

func (s *renderStats) reset() {
	s.total, s.max, s.dropped, s.count = 0, 0, 0, 0
}
