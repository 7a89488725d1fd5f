// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package proto

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind is the closed set of error codes that can cross the wire in a
// Response's Error variant.
type ErrorKind uint16

const (
	// ErrStripLengthMismatch is returned when an AddImage request declares
	// a strip length that doesn't match the store's.
	ErrStripLengthMismatch ErrorKind = iota + 1
	// ErrImageLengthMismatch is returned when an image's declared byte
	// length doesn't evenly divide into whole rows of StripLen pixels.
	ErrImageLengthMismatch
	// ErrImageTooBig is returned when an image would overflow the store's
	// partition.
	ErrImageTooBig
	// ErrImageRepositoryIsFull is returned when the store's registry has no
	// free slots left.
	ErrImageRepositoryIsFull
	// ErrImageNotFound is returned when a request names an ImageId the
	// store doesn't hold.
	ErrImageNotFound
	// ErrImageRepositoryIsEmpty is returned when Start is requested but no
	// images have been added yet.
	ErrImageRepositoryIsEmpty
	// ErrUnexpectedResponse is returned by the client library when a
	// device's response doesn't match the kind its request expects.
	ErrUnexpectedResponse
	// ErrStorageRead is returned when the backing store fails a read.
	ErrStorageRead
	// ErrStorageWrite is returned when the backing store fails a write.
	ErrStorageWrite
	// ErrDecode is returned when a packet, header or payload fails to parse.
	ErrDecode
	// ErrNetwork is returned when the underlying connection fails.
	ErrNetwork
	// ErrInternal covers invariant violations that should never be
	// observable outside of a bug.
	ErrInternal
)

var errorKindNames = map[ErrorKind]string{
	ErrStripLengthMismatch:    "strip length mismatch",
	ErrImageLengthMismatch:    "image length mismatch",
	ErrImageTooBig:            "image too big",
	ErrImageRepositoryIsFull:  "image repository is full",
	ErrImageNotFound:          "image not found",
	ErrImageRepositoryIsEmpty: "image repository is empty",
	ErrUnexpectedResponse:     "unexpected response",
	ErrStorageRead:            "storage read failure",
	ErrStorageWrite:           "storage write failure",
	ErrDecode:                 "decode failure",
	ErrNetwork:                "network failure",
	ErrInternal:               "internal error",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", uint16(k))
}

// Error is the error type returned at every Cyberpixie package boundary. It
// carries the ErrorKind that crosses the wire in a Response, plus the
// underlying cause for logging.
type Error struct {
	Kind  ErrorKind
	cause error
}

// NewError returns an Error with no wrapped cause.
func NewError(kind ErrorKind) *Error {
	return &Error{Kind: kind}
}

// WrapError wraps cause with kind. If cause is nil, WrapError returns nil,
// matching errors.Wrap's nil-passthrough behavior.
func WrapError(kind ErrorKind, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, cause: cause}
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.cause)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// Cause supports github.com/pkg/errors-style unwrapping.
func (e *Error) Cause() error { return e.cause }

// KindOf reports the ErrorKind carried by err, if err (or something it
// wraps) is a *Error.
func KindOf(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}
