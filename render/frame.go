// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package render

import (
	"github.com/alekseysidorov/cyberpixie-sub000/proto"
	"github.com/alekseysidorov/cyberpixie-sub000/storage"
)

// RGB8 is the pixel type rows are made of, aliased from storage so callers
// don't need to import both packages to spell out a row's type.
type RGB8 = storage.RGB8

// FrameKind tags the variant carried by a Frame, the Go counterpart of
// original_source's Frame enum (UpdateRate/Line/Clear).
type FrameKind uint8

const (
	FrameUpdateRate FrameKind = iota
	FrameLine
	FrameClear
)

// Frame is one item on the bounded frames channel between the reader and
// writer goroutines.
type Frame struct {
	Kind FrameKind
	Rate proto.Hertz // valid when Kind == FrameUpdateRate
	Line []RGB8      // valid when Kind == FrameLine
}
