// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package app

import (
	"context"
	"net"

	"github.com/pkg/errors"

	"github.com/alekseysidorov/cyberpixie-sub000/support/logging"
)

// Listen accepts TCP connections on addr and serves each with srv.ServeConn
// in its own goroutine, until ctx is done: open a socket, loop
// Accept/Serve, stop when told, over TCP streams since the wire protocol
// needs an ordered byte stream.
func Listen(ctx context.Context, addr string, srv *Server, log logging.L) error {
	log = logging.Must(log)

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrap(err, "app: listening")
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	log.Infof("app: listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "app: accepting connection")
		}

		connectionsAccepted.Inc()
		go func() {
			defer conn.Close()
			if err := srv.ServeConn(ctx, conn); err != nil {
				log.Warnf("app: connection %s ended: %s", conn.RemoteAddr(), err)
			}
		}()
	}
}
