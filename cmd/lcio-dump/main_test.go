// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/tgf/internal/xcnv"
	"github.com/go-lpc/tgf/record"
	"github.com/go-lpc/tgf/timing"
	"go-hep.org/x/hep/lcio"
)

func TestProcess(t *testing.T) {
	tmp, err := os.MkdirTemp("", "lcio-dump-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	sc, err := record.NewSchema(
		record.Field{Name: "channel", Bits: 8},
		record.Field{Name: "stimestamp", Bits: 32},
		record.Field{Name: "fpga", Bits: 16},
	)
	if err != nil {
		t.Fatalf("could not create schema: %+v", err)
	}
	ds := record.NewDataset(sc)
	for _, row := range [][]int64{
		{1, 1000, 4},
		{1, 1010, 8},
		{1, 1020, 12},
		{1, 1030, 15},
	} {
		_ = ds.Append(row)
	}

	fname := filepath.Join(tmp, "out.lcio")
	w, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer w.Close()

	res := &timing.Result{
		Times:  []float64{0.25, 0.5, 0.75},
		Valid:  []int{0, 1, 2},
		Mapped: 3,
	}
	err = xcnv.TGF2LCIO(w, ds, res, 42, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("could not write LCIO file: %+v", err)
	}
	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}

	for _, tc := range []struct {
		name string
		n    int
		want string
	}{
		{
			name: "all",
			n:    -1,
			want: `records:        3
index time channel stimestamp fpga
0 0.250000000 1 1000 4
1 0.500000000 1 1010 8
2 0.750000000 1 1020 12
`,
		},
		{
			name: "n=1",
			n:    1,
			want: `records:        3
index time channel stimestamp fpga
0 0.250000000 1 1000 4
`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := new(strings.Builder)
			err := process(out, fname, tc.n)
			if err != nil {
				t.Fatalf("could not dump LCIO file: %+v", err)
			}
			want := "=== file \"" + fname + "\" ===\n" + tc.want
			if got := out.String(); got != want {
				t.Fatalf("invalid lcio-dump output:\ngot:\n%s\nwant:\n%s\n", got, want)
			}
		})
	}
}
