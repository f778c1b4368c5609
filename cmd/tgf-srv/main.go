// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tgf-srv starts a TDAQ node replaying raw telemetry buffers.
//
// Each input buffer is decoded and verified according to the instrument
// mode, and its records are published on the /records output.
//
// ex:
//
//	$> tgf-srv -id tgf-srv -lvl dbg -mode ./tgf.toml ./tgf_0042.raw ./tgf_0043.raw.zst
package main // import "github.com/go-lpc/tgf/cmd/tgf-srv"

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/tgf/internal/modeflag"
)

func main() {
	sel := modeflag.Register(flag.CommandLine)
	cmd := flags.New()

	dev := newNode(sel, cmd.Args)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/records", dev.records)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
