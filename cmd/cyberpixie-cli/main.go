// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Command cyberpixie-cli is the host control utility: a thin wrapper
// issuing one protocol request per invocation against a running device.
// Real logic lives in the client package; main just parses flags and
// verbs. Grounded on
// original_source/application/rust/src/device_handle.rs's verb set
// (device-info, upload, show, clear) translated from a Qt-bound GUI handle
// into plain CLI verbs.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/alekseysidorov/cyberpixie-sub000/client"
	"github.com/alekseysidorov/cyberpixie-sub000/proto"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("cyberpixie-cli", pflag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:1800", "Device address to connect to.")
	refreshRate := fs.Uint32("refresh-rate", 500, "Refresh rate, in Hz, for add-image.")
	stripLen := fs.Uint16("strip-len", 24, "Strip length, in pixels, for add-image.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	verbArgs := fs.Args()
	if len(verbArgs) == 0 {
		return fmt.Errorf("cyberpixie-cli: usage: cyberpixie-cli [flags] <device-info|add-image FILE|start ID|stop|clear-images>")
	}

	c, info, err := client.Connect(*addr, 5*time.Second)
	if err != nil {
		return err
	}
	defer c.Close()

	switch verb := verbArgs[0]; verb {
	case "device-info":
		return printDeviceInfo(info)

	case "add-image":
		if len(verbArgs) != 2 {
			return fmt.Errorf("cyberpixie-cli: add-image requires a FILE argument")
		}
		return addImage(c, verbArgs[1], proto.Hertz(*refreshRate), *stripLen)

	case "start":
		if len(verbArgs) != 2 {
			return fmt.Errorf("cyberpixie-cli: start requires an ID argument")
		}
		id, err := strconv.ParseUint(verbArgs[1], 10, 16)
		if err != nil {
			return fmt.Errorf("cyberpixie-cli: invalid image id %q: %w", verbArgs[1], err)
		}
		return c.Start(proto.ImageId(id))

	case "stop":
		return c.Stop()

	case "clear-images":
		return c.ClearImages()

	default:
		return fmt.Errorf("cyberpixie-cli: unknown verb %q", verb)
	}
}

func printDeviceInfo(info proto.PeerInfo) error {
	fmt.Printf("role: %s\n", info.Role)
	if info.DeviceInfo == nil {
		return nil
	}
	d := info.DeviceInfo
	fmt.Printf("strip_len: %d\n", d.StripLen)
	fmt.Printf("images_count: %d\n", d.ImagesCount)
	fmt.Printf("active: %t\n", d.Active)
	if d.CurrentImage != nil {
		fmt.Printf("current_image: %d\n", *d.CurrentImage)
	}
	return nil
}

func addImage(c *client.Client, path string, refreshRate proto.Hertz, stripLen uint16) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cyberpixie-cli: reading %s: %w", path, err)
	}
	id, err := c.AddImage(refreshRate, stripLen, data)
	if err != nil {
		return err
	}
	fmt.Printf("image_id: %d\n", id)
	return nil
}
