// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package render implements the renderer pipeline: a reader goroutine that
// turns a stored image into an endless stream of rows, and a writer
// goroutine that paces those rows onto a Strip at the image's declared
// refresh rate. Grounded almost line-for-line, in control flow, on
// original_source/boards/esp32c3/src/render.rs's storage_reading_task and
// render_task, translated from Embassy channels/tasks to Go buffered
// channels and goroutines.
package render

import "github.com/alekseysidorov/cyberpixie-sub000/storage"

// Strip is the physical (or simulated) LED strip a renderer writes rows
// to. The renderer pipeline depends on this interface without specifying
// its implementation.
type Strip interface {
	// WriteRow writes one row of pixels to the strip.
	WriteRow(row []storage.RGB8) error
	// Clear turns every pixel on the strip off.
	Clear() error
}
