// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package app

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
	"github.com/alekseysidorov/cyberpixie-sub000/support/logging"
)

// Server answers requests against a single State, tracking this process's
// own PeerInfo and optionally logging drained Debug payloads. Grounded on
// original_source/crates/core/src/app/network_task.rs's handle_message: one
// request in and one response out per iteration, with one struct owning
// the dispatch table.
type Server struct {
	state *State
	role  proto.DeviceRole
	debug *DebugLog
	log   logging.L
}

// NewServer returns a Server dispatching requests against state.
func NewServer(state *State, role proto.DeviceRole, debug *DebugLog, log logging.L) *Server {
	return &Server{state: state, role: role, debug: debug, log: logging.Must(log)}
}

// ServeConn runs the request/response loop for one connection until it
// closes or ctx is done. Every request's payload is fully drained (read or
// Skip'd) before the next request is read, matching original_source's
// network_task.rs comment: "In order to use the reader further, we must
// read all of the remaining bytes."
func (s *Server) ServeConn(ctx context.Context, conn io.ReadWriter) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, payload, err := proto.ReceiveRequest(conn)
		if err != nil {
			if errors.Cause(err) == io.EOF {
				return nil
			}
			return err
		}

		resp, respPayload := s.dispatch(ctx, req, payload)
		requestsServed.WithLabelValues(req.Kind.String()).Inc()
		if resp.Kind == proto.RespError {
			requestErrors.WithLabelValues(resp.Error.String()).Inc()
		}

		// The handler may have left part of the payload unread (e.g. a
		// request rejected before its bytes were needed); drain it so the
		// connection is positioned at the start of the next packet.
		if err := payload.Skip(); err != nil {
			return err
		}

		if err := proto.SendResponse(conn, resp, respPayload); err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req proto.RequestHeader, payload *proto.PayloadReader) (proto.ResponseHeader, []byte) {
	switch req.Kind {
	case proto.ReqHandshake:
		return s.handleHandshake(ctx, req.Handshake)

	case proto.ReqDebug:
		return s.handleDebug(payload)

	case proto.ReqAddImage:
		return s.handleAddImage(ctx, req.AddImage, payload)

	case proto.ReqStart:
		return s.handleStart(ctx, req.Start)

	case proto.ReqStop:
		return s.handleStop(ctx)

	case proto.ReqClearImages:
		return s.handleClearImages(ctx)

	default:
		return proto.NewErrorResponse(proto.ErrInternal), nil
	}
}

func (s *Server) handleHandshake(ctx context.Context, _ proto.PeerInfo) (proto.ResponseHeader, []byte) {
	info, err := s.state.DeviceInfo(ctx)
	if err != nil {
		return errorResponse(err), nil
	}
	peer := proto.PeerInfo{Role: s.role, DeviceInfo: &info}
	return proto.NewHandshakeResponse(peer), nil
}

func (s *Server) handleDebug(payload *proto.PayloadReader) (proto.ResponseHeader, []byte) {
	data := make([]byte, payload.BytesRemaining())
	if _, err := io.ReadFull(payload, data); err != nil {
		return errorResponse(proto.WrapError(proto.ErrNetwork, err)), nil
	}
	if s.debug != nil {
		if err := s.debug.Append(data); err != nil {
			s.log.Warnf("app: writing debug log entry: %s", err)
		}
	}
	return proto.NewEmptyResponse(), nil
}

func (s *Server) handleAddImage(ctx context.Context, info proto.ImageInfo, payload *proto.PayloadReader) (proto.ResponseHeader, []byte) {
	cfg, err := s.state.Config(ctx)
	if err != nil {
		return errorResponse(err), nil
	}
	if info.StripLen != cfg.StripLen {
		return proto.NewErrorResponse(proto.ErrStripLengthMismatch), nil
	}

	lineLen := uint32(cfg.StripLen) * 3
	length := payload.BytesRemaining()
	if length == 0 || lineLen == 0 || length%lineLen != 0 {
		return proto.NewErrorResponse(proto.ErrImageLengthMismatch), nil
	}

	id, err := s.state.AddImage(ctx, info.RefreshRate, length, payload)
	if err != nil {
		return errorResponse(err), nil
	}
	return proto.NewAddImageResponse(id), nil
}

func (s *Server) handleStart(ctx context.Context, id proto.ImageId) (proto.ResponseHeader, []byte) {
	if err := s.state.Start(ctx, id); err != nil {
		return errorResponse(err), nil
	}
	return proto.NewEmptyResponse(), nil
}

func (s *Server) handleStop(ctx context.Context) (proto.ResponseHeader, []byte) {
	if err := s.state.Stop(ctx); err != nil {
		return errorResponse(err), nil
	}
	return proto.NewEmptyResponse(), nil
}

func (s *Server) handleClearImages(ctx context.Context) (proto.ResponseHeader, []byte) {
	if err := s.state.ClearImages(ctx); err != nil {
		return errorResponse(err), nil
	}
	return proto.NewEmptyResponse(), nil
}

func errorResponse(err error) proto.ResponseHeader {
	if kind, ok := proto.KindOf(err); ok {
		return proto.NewErrorResponse(kind)
	}
	return proto.NewErrorResponse(proto.ErrInternal)
}
