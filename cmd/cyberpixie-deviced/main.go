// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Command cyberpixie-deviced runs a Cyberpixie device simulator: a TCP
// server speaking the device protocol, backed by a flash-emulating file
// store and a renderer whose strip hands each row to the logger at debug
// level (main wires logging.Nop, so nothing is printed). A thin main wraps
// a pflag-configured daemon needing a listen address, a store location and
// a strip length.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/alekseysidorov/cyberpixie-sub000/app"
	"github.com/alekseysidorov/cyberpixie-sub000/proto"
	"github.com/alekseysidorov/cyberpixie-sub000/render"
	"github.com/alekseysidorov/cyberpixie-sub000/storage"
	"github.com/alekseysidorov/cyberpixie-sub000/support/logging"
)

// loggingStrip renders by logging the row it would have written; no real
// LED hardware exists in simulator mode.
type loggingStrip struct {
	log logging.L
}

func (s loggingStrip) WriteRow(row []storage.RGB8) error {
	s.log.Debugf("deviced: row %v", row)
	return nil
}

func (s loggingStrip) Clear() error {
	s.log.Debugf("deviced: clear")
	return nil
}

func main() {
	var cfg app.Config
	cfg.RegisterFlags(pflag.CommandLine)

	storePath := pflag.String("store", "", "Path to the image store file (default: an in-memory store).")
	metricsAddr := pflag.String("metrics-addr", ":9090", "Address to serve /metrics on.")
	debugLogPath := pflag.String("debug-log", "", "Path to the snappy-compressed Debug side-channel log (default: disabled).")
	pflag.Parse()

	log := logging.Nop

	if err := run(cfg, *storePath, *metricsAddr, *debugLogPath, log); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(cfg app.Config, storePath, metricsAddr, debugLogPath string, log logging.L) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	reg := prometheus.NewRegistry()
	storage.RegisterMonitoring(reg)
	render.RegisterMonitoring(reg)
	app.RegisterMonitoring(reg)

	layout := cfg.Layout
	if layout.Size == 0 {
		layout = storage.MemoryLayout{Base: 0, Size: 4 * 1024 * 1024}
	}

	var backend storage.Backend
	if storePath == "" {
		backend = storage.NewMemoryBackend(layout.Size)
	} else {
		staging := cfg.StagingDir
		if staging == "" {
			staging = os.TempDir()
		}
		fb, err := storage.OpenFileBackend(storePath, staging, layout.Size)
		if err != nil {
			return err
		}
		defer fb.Close()
		backend = fb
	}

	store, err := openOrInitStore(backend, layout, cfg, log)
	if err != nil {
		return err
	}

	strip := loggingStrip{log: log}
	handle, stopPipeline := render.Start(ctx, strip, log)
	defer stopPipeline()

	state := app.NewState(store, handle, log)

	var debugLog *app.DebugLog
	if debugLogPath != "" {
		debugLog, err = app.OpenDebugLog(debugLogPath)
		if err != nil {
			return err
		}
		defer debugLog.Close()
	}

	srv := app.NewServer(state, cfg.Role, debugLog, log)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Warnf("deviced: metrics server: %s", err)
		}
	}()

	return app.Listen(ctx, cfg.Addr, srv, log)
}

func openOrInitStore(backend storage.Backend, layout storage.MemoryLayout, cfg app.Config, log logging.L) (*storage.Store, error) {
	store := storage.Open(backend, layout, log)
	if _, err := store.Config(); err == nil {
		return store, nil
	}

	stripLen := cfg.StripLen
	if stripLen == 0 {
		stripLen = 24
	}
	store, err := storage.Init(backend, layout, proto.Configuration{StripLen: stripLen}, log)
	if err != nil {
		return nil, errors.Wrap(err, "deviced: initializing store")
	}
	return store, nil
}
