// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package app implements the protocol state machine: a TCP accept loop, a
// request dispatch table, and the single-owner bookkeeping that hands a
// storage.Store back and forth with the render pipeline. Grounded on
// original_source/crates/core/src/app/{mod,network_task}.rs and
// original_source/crates/network/src/connection.rs.
package app

import (
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/alekseysidorov/cyberpixie-sub000/proto"
	"github.com/alekseysidorov/cyberpixie-sub000/storage"
)

// Config is the process-wide configuration populated once at startup,
// either by a cmd binary's pflag set or directly by a test.
type Config struct {
	// Addr is the TCP address the server listens on, e.g. ":5025".
	Addr string
	// Layout describes the backend partition the store lives on.
	Layout storage.MemoryLayout
	// StripLen is the strip length a freshly-initialized store is
	// configured with.
	StripLen uint16
	// DefaultRefreshRate is populated by --default-refresh-rate. No
	// component reads it: the render writer starts at a fixed 500 Hz until
	// an image sets its own rate.
	DefaultRefreshRate proto.Hertz
	// StagingDir is where FileBackend stages atomic rewrites. The debug log
	// does not use it; it is appended in place at its own path.
	StagingDir string
	// Role is this process's PeerInfo role, populated by the --role flag.
	Role proto.DeviceRole
}

// RegisterFlags binds Config's fields to fs, using a custom pflag.Value
// for the one enumerated flag (--role).
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", ":1800", "TCP address to listen on.")
	fs.Uint16Var(&c.StripLen, "strip-len", 24, "LED strip length, in pixels.")
	fs.Uint32Var((*uint32)(&c.DefaultRefreshRate), "default-refresh-rate", 500, "Default refresh rate, in Hz.")
	fs.StringVar(&c.StagingDir, "staging-dir", "", "Directory for atomic store rewrites (default: OS temp dir).")
	fs.Var(&roleFlag{role: &c.Role}, "role", "Device role: client, main or secondary.")
}

// roleFlag adapts proto.DeviceRole to pflag.Value.
type roleFlag struct {
	role *proto.DeviceRole
}

func (f *roleFlag) String() string {
	if f.role == nil {
		return proto.RoleMain.String()
	}
	return f.role.String()
}

func (f *roleFlag) Set(s string) error {
	switch s {
	case "client":
		*f.role = proto.RoleClient
	case "main":
		*f.role = proto.RoleMain
	case "secondary":
		*f.role = proto.RoleSecondary
	default:
		return errors.Errorf("app: unknown role %q (want client, main or secondary)", s)
	}
	return nil
}

func (f *roleFlag) Type() string { return "role" }
