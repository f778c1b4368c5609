// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tgf holds code to decode the binary telemetry of the TGF
// particle detector and to rebuild the absolute time of its events.
//
// Raw buffers are decoded record by record (package record) using bit-level
// field extraction (package bitio). Single-bit upsets of the onboard
// timestamp counter are repaired per channel (package bitflip), and the
// FPGA tick counter is fused with the per-orbit rate table into one
// continuous time axis (package timing).
package tgf // import "github.com/go-lpc/tgf"

import (
	"fmt"
	"runtime/debug"
)

// Version returns the version of tgf and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	const root = "github.com/go-lpc/tgf"
	if b.Main.Path == root {
		return b.Main.Version, b.Main.Sum
	}

	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if m.Replace != nil {
			switch {
			case m.Replace.Version != "" && m.Replace.Path != "":
				return fmt.Sprintf("%s %s", m.Replace.Path, m.Replace.Version), m.Replace.Sum
			case m.Replace.Version != "":
				return m.Replace.Version, m.Replace.Sum
			case m.Replace.Path != "":
				return m.Replace.Path, m.Replace.Sum
			default:
				return m.Version + "*", ""
			}
		}
		return m.Version, m.Sum
	}
	return "", ""
}
