// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package client implements the blocking, one-request-one-response
// correspondent of the device protocol: connect, handshake, and then issue
// AddImage/Start/Stop/ClearImages/Debug requests one at a time over a
// single net.Conn, one owned connection per device with no discovery-driven
// lifetime or refcounting. Grounded on
// original_source/crates/network/src/client.rs's Client<C> (connect,
// handshake, add_image, debug, clear_images, start, stop).
package client

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
)

// Client is a connected correspondent to a single Cyberpixie device. It is
// safe for concurrent use; requests are serialized onto the one underlying
// connection.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

// Connect dials addr and performs the initial Handshake, returning both the
// Client and the peer's reported PeerInfo.
func Connect(addr string, timeout time.Duration) (*Client, proto.PeerInfo, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, proto.PeerInfo{}, errors.Wrap(err, "client: dialing")
	}

	c := &Client{conn: conn}
	info, err := c.handshake()
	if err != nil {
		conn.Close()
		return nil, proto.PeerInfo{}, err
	}
	return c, info, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) handshake() (proto.PeerInfo, error) {
	resp, _, err := c.roundTrip(proto.NewHandshakeRequest(proto.ClientPeerInfo()), nil)
	if err != nil {
		return proto.PeerInfo{}, err
	}
	if resp.Kind != proto.RespHandshake {
		return proto.PeerInfo{}, unexpectedResponse(resp)
	}
	return resp.Handshake, nil
}

// PeerInfo requests the device's current PeerInfo via a fresh Handshake.
func (c *Client) PeerInfo() (proto.PeerInfo, error) {
	return c.handshake()
}

// AddImage uploads picture, declaring refreshRate and stripLen, and returns
// the assigned ImageId.
func (c *Client) AddImage(refreshRate proto.Hertz, stripLen uint16, picture []byte) (proto.ImageId, error) {
	req := proto.NewAddImageRequest(proto.ImageInfo{RefreshRate: refreshRate, StripLen: stripLen})
	resp, _, err := c.roundTrip(req, picture)
	if err != nil {
		return 0, err
	}
	switch resp.Kind {
	case proto.RespAddImage:
		return resp.AddImage, nil
	case proto.RespError:
		return 0, proto.NewError(resp.Error)
	default:
		return 0, unexpectedResponse(resp)
	}
}

// Start begins rendering the image named by id.
func (c *Client) Start(id proto.ImageId) error {
	return c.expectEmpty(proto.NewStartRequest(id), nil)
}

// Stop ends any active rendering session.
func (c *Client) Stop() error {
	return c.expectEmpty(proto.NewStopRequest(), nil)
}

// ClearImages discards every stored image.
func (c *Client) ClearImages() error {
	return c.expectEmpty(proto.NewClearImagesRequest(), nil)
}

// Debug sends msg to the device's diagnostic side channel.
func (c *Client) Debug(msg string) error {
	return c.expectEmpty(proto.NewDebugRequest(), []byte(msg))
}

func (c *Client) expectEmpty(req proto.RequestHeader, payload []byte) error {
	resp, _, err := c.roundTrip(req, payload)
	if err != nil {
		return err
	}
	switch resp.Kind {
	case proto.RespEmpty:
		return nil
	case proto.RespError:
		return proto.NewError(resp.Error)
	default:
		return unexpectedResponse(resp)
	}
}

func (c *Client) roundTrip(req proto.RequestHeader, payload []byte) (proto.ResponseHeader, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := proto.SendRequest(c.conn, req, payload); err != nil {
		return proto.ResponseHeader{}, nil, err
	}

	resp, respPayload, err := proto.ReceiveResponse(c.conn)
	if err != nil {
		return proto.ResponseHeader{}, nil, err
	}

	data := make([]byte, respPayload.BytesRemaining())
	if len(data) > 0 {
		if _, err := io.ReadFull(respPayload, data); err != nil {
			return proto.ResponseHeader{}, nil, proto.WrapError(proto.ErrNetwork, err)
		}
	}
	return resp, data, nil
}

func unexpectedResponse(resp proto.ResponseHeader) error {
	return proto.WrapError(proto.ErrUnexpectedResponse,
		errors.Errorf("client: unexpected response kind %s", resp.Kind))
}
