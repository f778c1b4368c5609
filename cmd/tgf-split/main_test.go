// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-lpc/tgf/bitio"
	"github.com/go-lpc/tgf/config"
	"github.com/go-lpc/tgf/internal/rawio"
	"github.com/go-lpc/tgf/record"
)

func TestOutFileFrom(t *testing.T) {
	for _, tc := range []struct {
		fname string
		ch    int64
		want  string
	}{
		{"out.raw", 1, "out-001.raw"},
		{"/some/dir/out.raw.zst", 12, "/some/dir/out-012.raw.zst"},
		{"out", 3, "out-003"},
	} {
		t.Run(tc.fname, func(t *testing.T) {
			got := outFileFrom(tc.fname, tc.ch)
			if got != tc.want {
				t.Fatalf("invalid output name: got=%q, want=%q", got, tc.want)
			}
		})
	}
}

func TestProcess(t *testing.T) {
	tmp, err := os.MkdirTemp("", "tgf-split-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	msg.SetOutput(io.Discard)
	defer msg.SetOutput(os.Stdout)

	mode := config.Mode{
		Name:     "tgf",
		Ordering: "reversed",
		Verify:   true,
		Fields: []config.Field{
			{Name: "channel", Bits: 8},
			{Name: "temperature", Bits: 8},
			{Name: "stimestamp", Bits: 16},
		},
	}
	sc, err := mode.Schema()
	if err != nil {
		t.Fatalf("could not create schema: %+v", err)
	}

	enc := record.NewEncoder(sc, bitio.Reversed)
	encode := func(rows [][]int64) []byte {
		t.Helper()
		raw, err := enc.Encode(rows)
		if err != nil {
			t.Fatalf("could not encode records: %+v", err)
		}
		return raw
	}

	var (
		ch1 = [][]int64{{1, 60, 10}, {1, 61, 20}, {1, 62, 30}}
		ch2 = [][]int64{{2, 70, 15}, {2, 71, 25}}
		all = [][]int64{ch1[0], ch2[0], ch1[1], ch2[1], ch1[2]}
	)

	fname := filepath.Join(tmp, "tgf_0042.raw")
	err = rawio.WriteFile(fname, encode(all), rawio.Raw)
	if err != nil {
		t.Fatalf("could not write raw file: %+v", err)
	}

	oname := filepath.Join(tmp, "out.raw.gz")
	err = process(oname, mode, fname)
	if err != nil {
		t.Fatalf("could not split raw file: %+v", err)
	}

	for _, tc := range []struct {
		ch   int64
		rows [][]int64
	}{
		{1, ch1},
		{2, ch2},
	} {
		raw, err := rawio.Open(outFileFrom(oname, tc.ch))
		if err != nil {
			t.Fatalf("could not open channel %d: %+v", tc.ch, err)
		}
		defer raw.Close()

		if got, want := raw.Codec(), rawio.Gzip; got != want {
			t.Fatalf("invalid codec: got=%v, want=%v", got, want)
		}
		if got, want := raw.Bytes(), encode(tc.rows); !bytes.Equal(got, want) {
			t.Fatalf("invalid channel %d content:\ngot= %x\nwant=%x\n", tc.ch, got, want)
		}
	}
}

func TestProcessNoChannel(t *testing.T) {
	tmp, err := os.MkdirTemp("", "tgf-split-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	mode := config.Mode{
		Name:   "tgf",
		Fields: []config.Field{{Name: "fpga", Bits: 16}},
	}

	fname := filepath.Join(tmp, "tgf_0042.raw")
	err = os.WriteFile(fname, []byte{1, 2, 3, 4}, 0644)
	if err != nil {
		t.Fatalf("could not write raw file: %+v", err)
	}

	err = process(filepath.Join(tmp, "out.raw"), mode, fname)
	if err == nil {
		t.Fatalf("expected an error")
	}
}
