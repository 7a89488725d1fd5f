// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package proto

import (
	"fmt"
	"time"
)

// Hertz is a refresh frequency, in rows per second.
type Hertz uint32

// Period returns the duration of a single refresh cycle at h.
func (h Hertz) Period() time.Duration {
	return time.Second / time.Duration(h)
}

func (h Hertz) String() string { return fmt.Sprintf("%dHz", uint32(h)) }

// ImageId is a dense, zero-based index into a device's image repository.
//
// ImageId is monotonic within a store session and resets to zero after
// ClearImages.
type ImageId uint16

func (id ImageId) String() string { return fmt.Sprintf("%d", uint16(id)) }

// DeviceRole identifies the part a connected peer plays in the system.
type DeviceRole uint8

const (
	// RoleClient is a control device, such as a phone or laptop.
	RoleClient DeviceRole = iota
	// RoleMain is a device that receives commands directly from clients.
	RoleMain
	// RoleSecondary is a device that would execute commands relayed from a
	// RoleMain device.
	//
	// No operation relays commands to a RoleSecondary peer today; the role
	// exists so PeerInfo round-trips it faithfully.
	RoleSecondary
)

func (r DeviceRole) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleMain:
		return "main"
	case RoleSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("DeviceRole(%d)", uint8(r))
	}
}

// DeviceInfo describes a device's current configuration and rendering state.
type DeviceInfo struct {
	StripLen     uint16
	ImagesCount  ImageId
	CurrentImage *ImageId
	// Active is true iff a rendering task is currently running.
	Active bool
}

// EmptyDeviceInfo returns a DeviceInfo for a device with no stored images.
func EmptyDeviceInfo(stripLen uint16) DeviceInfo {
	return DeviceInfo{StripLen: stripLen}
}

// PeerInfo is exchanged during a Handshake.
type PeerInfo struct {
	Role       DeviceRole
	GroupID    *uint32
	DeviceInfo *DeviceInfo
}

// ClientPeerInfo returns the PeerInfo a client library sends in its
// handshake request.
func ClientPeerInfo() PeerInfo {
	return PeerInfo{Role: RoleClient}
}

// ImageInfo carries the refresh rate and strip length declared by an
// AddImage request.
type ImageInfo struct {
	RefreshRate Hertz
	StripLen    uint16
}

// Configuration is the persisted, user-visible subset of store state.
type Configuration struct {
	StripLen     uint16
	CurrentImage *ImageId
}
