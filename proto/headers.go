// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package proto

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/alekseysidorov/cyberpixie-sub000/support/fmtutil"
)

// RequestKind tags the variant carried by a RequestHeader.
type RequestKind uint8

const (
	ReqHandshake RequestKind = iota + 1
	ReqAddImage
	ReqStart
	ReqStop
	ReqClearImages
	ReqDebug
)

func (k RequestKind) String() string {
	switch k {
	case ReqHandshake:
		return "Handshake"
	case ReqAddImage:
		return "AddImage"
	case ReqStart:
		return "Start"
	case ReqStop:
		return "Stop"
	case ReqClearImages:
		return "ClearImages"
	case ReqDebug:
		return "Debug"
	default:
		return "Unknown"
	}
}

// RequestHeader is a discriminated union over the six request variants.
// Only the field named by Kind is meaningful; this collapses a
// Command-interface-style variant set into one struct since the variant
// count and payload sizes here are small and fixed.
type RequestHeader struct {
	Kind RequestKind

	Handshake PeerInfo  // valid when Kind == ReqHandshake
	AddImage  ImageInfo // valid when Kind == ReqAddImage; payload follows
	Start     ImageId   // valid when Kind == ReqStart
	// Stop, ClearImages and Debug carry no fields.
}

func NewHandshakeRequest(info PeerInfo) RequestHeader {
	return RequestHeader{Kind: ReqHandshake, Handshake: info}
}

func NewAddImageRequest(info ImageInfo) RequestHeader {
	return RequestHeader{Kind: ReqAddImage, AddImage: info}
}

func NewStartRequest(id ImageId) RequestHeader {
	return RequestHeader{Kind: ReqStart, Start: id}
}

func NewStopRequest() RequestHeader { return RequestHeader{Kind: ReqStop} }

func NewClearImagesRequest() RequestHeader { return RequestHeader{Kind: ReqClearImages} }

func NewDebugRequest() RequestHeader { return RequestHeader{Kind: ReqDebug} }

// Encode appends the binary encoding of h to buf.
func (h RequestHeader) Encode(buf []byte) ([]byte, error) {
	buf = append(buf, byte(h.Kind))
	switch h.Kind {
	case ReqHandshake:
		return encodePeerInfo(buf, h.Handshake), nil
	case ReqAddImage:
		return encodeImageInfo(buf, h.AddImage), nil
	case ReqStart:
		return encodeUint16(buf, uint16(h.Start)), nil
	case ReqStop, ReqClearImages, ReqDebug:
		return buf, nil
	default:
		return nil, WrapError(ErrDecode, errors.Errorf("proto: unknown request kind %d", h.Kind))
	}
}

// DecodeRequestHeader decodes a RequestHeader from the header bytes of a
// packet (everything between the Packet prefix and the payload).
func DecodeRequestHeader(data []byte) (RequestHeader, error) {
	r := bytes.NewReader(data)
	tag, err := readByte(r)
	if err != nil {
		return RequestHeader{}, err
	}
	kind := RequestKind(tag)
	h := RequestHeader{Kind: kind}
	switch kind {
	case ReqHandshake:
		h.Handshake, err = decodePeerInfo(r)
	case ReqAddImage:
		h.AddImage, err = decodeImageInfo(r)
	case ReqStart:
		var id uint16
		id, err = readUint16(r)
		h.Start = ImageId(id)
	case ReqStop, ReqClearImages, ReqDebug:
		// no fields
	default:
		err = WrapError(ErrDecode, errors.Errorf(
			"proto: unknown request kind %d in header %s", kind, fmtutil.HexSlice(data)))
	}
	if err != nil {
		return RequestHeader{}, err
	}
	return h, nil
}

// ResponseKind tags the variant carried by a ResponseHeader.
type ResponseKind uint8

const (
	RespEmpty ResponseKind = iota + 1
	RespHandshake
	RespAddImage
	RespError
)

func (k ResponseKind) String() string {
	switch k {
	case RespEmpty:
		return "Empty"
	case RespHandshake:
		return "Handshake"
	case RespAddImage:
		return "AddImage"
	case RespError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ResponseHeader is a discriminated union over the four response variants.
type ResponseHeader struct {
	Kind ResponseKind

	Handshake PeerInfo  // valid when Kind == RespHandshake
	AddImage  ImageId   // valid when Kind == RespAddImage
	Error     ErrorKind // valid when Kind == RespError
}

func NewEmptyResponse() ResponseHeader { return ResponseHeader{Kind: RespEmpty} }

func NewHandshakeResponse(info PeerInfo) ResponseHeader {
	return ResponseHeader{Kind: RespHandshake, Handshake: info}
}

func NewAddImageResponse(id ImageId) ResponseHeader {
	return ResponseHeader{Kind: RespAddImage, AddImage: id}
}

func NewErrorResponse(kind ErrorKind) ResponseHeader {
	return ResponseHeader{Kind: RespError, Error: kind}
}

// Encode appends the binary encoding of h to buf.
func (h ResponseHeader) Encode(buf []byte) ([]byte, error) {
	buf = append(buf, byte(h.Kind))
	switch h.Kind {
	case RespEmpty:
		return buf, nil
	case RespHandshake:
		return encodePeerInfo(buf, h.Handshake), nil
	case RespAddImage:
		return encodeUint16(buf, uint16(h.AddImage)), nil
	case RespError:
		return encodeUint16(buf, uint16(h.Error)), nil
	default:
		return nil, WrapError(ErrDecode, errors.Errorf("proto: unknown response kind %d", h.Kind))
	}
}

// DecodeResponseHeader decodes a ResponseHeader from the header bytes of a
// packet.
func DecodeResponseHeader(data []byte) (ResponseHeader, error) {
	r := bytes.NewReader(data)
	tag, err := readByte(r)
	if err != nil {
		return ResponseHeader{}, err
	}
	kind := ResponseKind(tag)
	h := ResponseHeader{Kind: kind}
	switch kind {
	case RespEmpty:
	case RespHandshake:
		h.Handshake, err = decodePeerInfo(r)
	case RespAddImage:
		var id uint16
		id, err = readUint16(r)
		h.AddImage = ImageId(id)
	case RespError:
		var e uint16
		e, err = readUint16(r)
		h.Error = ErrorKind(e)
	default:
		err = WrapError(ErrDecode, errors.Errorf(
			"proto: unknown response kind %d in header %s", kind, fmtutil.HexSlice(data)))
	}
	if err != nil {
		return ResponseHeader{}, err
	}
	return h, nil
}

// --- shared field codecs ---
//
// PeerInfo and DeviceInfo carry Option<T> fields (GroupID, CurrentImage,
// DeviceInfo itself); each is preceded by a single presence
// byte, the same convention original_source's proto/mod.rs uses for its
// Option<T> wire fields, hand-written here since struc has no clean
// analogue for pointer-typed struct fields.

func encodePeerInfo(buf []byte, p PeerInfo) []byte {
	buf = append(buf, byte(p.Role))
	buf = encodeOptionalUint32(buf, p.GroupID)
	if p.DeviceInfo == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return encodeDeviceInfo(buf, *p.DeviceInfo)
}

func decodePeerInfo(r *bytes.Reader) (PeerInfo, error) {
	role, err := readByte(r)
	if err != nil {
		return PeerInfo{}, err
	}
	groupID, err := decodeOptionalUint32(r)
	if err != nil {
		return PeerInfo{}, err
	}
	present, err := readByte(r)
	if err != nil {
		return PeerInfo{}, err
	}
	p := PeerInfo{Role: DeviceRole(role), GroupID: groupID}
	if present != 0 {
		info, err := decodeDeviceInfo(r)
		if err != nil {
			return PeerInfo{}, err
		}
		p.DeviceInfo = &info
	}
	return p, nil
}

func encodeDeviceInfo(buf []byte, d DeviceInfo) []byte {
	buf = encodeUint16(buf, d.StripLen)
	buf = encodeUint16(buf, uint16(d.ImagesCount))
	var cur *uint32
	if d.CurrentImage != nil {
		v := uint32(*d.CurrentImage)
		cur = &v
	}
	buf = encodeOptionalUint32(buf, cur)
	if d.Active {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func decodeDeviceInfo(r *bytes.Reader) (DeviceInfo, error) {
	stripLen, err := readUint16(r)
	if err != nil {
		return DeviceInfo{}, err
	}
	imagesCount, err := readUint16(r)
	if err != nil {
		return DeviceInfo{}, err
	}
	cur, err := decodeOptionalUint32(r)
	if err != nil {
		return DeviceInfo{}, err
	}
	active, err := readByte(r)
	if err != nil {
		return DeviceInfo{}, err
	}
	d := DeviceInfo{StripLen: stripLen, ImagesCount: ImageId(imagesCount), Active: active != 0}
	if cur != nil {
		id := ImageId(*cur)
		d.CurrentImage = &id
	}
	return d, nil
}

func encodeImageInfo(buf []byte, i ImageInfo) []byte {
	buf = encodeUint32(buf, uint32(i.RefreshRate))
	return encodeUint16(buf, i.StripLen)
}

func decodeImageInfo(r *bytes.Reader) (ImageInfo, error) {
	rate, err := readUint32(r)
	if err != nil {
		return ImageInfo{}, err
	}
	stripLen, err := readUint16(r)
	if err != nil {
		return ImageInfo{}, err
	}
	return ImageInfo{RefreshRate: Hertz(rate), StripLen: stripLen}, nil
}

func encodeOptionalUint32(buf []byte, v *uint32) []byte {
	if v == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return encodeUint32(buf, *v)
}

func decodeOptionalUint32(r *bytes.Reader) (*uint32, error) {
	present, err := readByte(r)
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	v, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func encodeUint16(buf []byte, v uint16) []byte {
	var scratch [2]byte
	binary.LittleEndian.PutUint16(scratch[:], v)
	return append(buf, scratch[:]...)
}

func encodeUint32(buf []byte, v uint32) []byte {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], v)
	return append(buf, scratch[:]...)
}

func readByte(r *bytes.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, WrapError(ErrDecode, errors.Wrap(err, "proto: reading tag byte"))
	}
	return b, nil
}

func readUint16(r *bytes.Reader) (uint16, error) {
	var scratch [2]byte
	if _, err := readExact(r, scratch[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(scratch[:]), nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var scratch [4]byte
	if _, err := readExact(r, scratch[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(scratch[:]), nil
}

func readExact(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err != nil || n != len(buf) {
		return n, WrapError(ErrDecode, errors.Wrap(err, "proto: short header field"))
	}
	return n, nil
}
