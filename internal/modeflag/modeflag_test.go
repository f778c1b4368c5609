// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modeflag

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/tgf/conddb"
)

const mode = `
name = "tgf"
ordering = "standard"

[[field]]
name = "channel"
bits = 8

[[field]]
name = "fpga"
bits = 16
`

func TestSelector(t *testing.T) {
	tmp, err := os.MkdirTemp("", "tgf-modeflag-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	fname := filepath.Join(tmp, "mode.toml")
	err = os.WriteFile(fname, []byte(mode), 0644)
	if err != nil {
		t.Fatalf("could not write mode file: %+v", err)
	}

	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	sel := Register(fset)

	err = fset.Parse([]string{"-mode", fname})
	if err != nil {
		t.Fatalf("could not parse flags: %+v", err)
	}

	got, err := sel.Mode(context.Background())
	if err != nil {
		t.Fatalf("could not load mode: %+v", err)
	}
	if got.Name != "tgf" || len(got.Fields) != 2 {
		t.Fatalf("invalid mode: %+v", got)
	}
}

func TestSelectorErrors(t *testing.T) {
	errDB := errors.New("no db")
	for _, tc := range []struct {
		name string
		sel  Selector
		want string
	}{
		{
			name: "none",
			want: "modeflag: missing -mode or -db flag",
		},
		{
			name: "both",
			sel:  Selector{File: "mode.toml", DB: "tgf"},
			want: "modeflag: -mode and -db are mutually exclusive",
		},
		{
			name: "db",
			sel: Selector{
				DB: "tgf",
				open: func(string) (*conddb.DB, error) {
					return nil, errDB
				},
			},
			want: "modeflag: could not open condition db: no db",
		},
		{
			name: "missing-file",
			sel:  Selector{File: "/dev/null/mode.toml"},
			want: "config: could not open mode file",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.sel.Mode(context.Background())
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got, want := err.Error(), tc.want; !strings.HasPrefix(got, want) {
				t.Fatalf("invalid error:\ngot= %v\nwant=%v\n", got, want)
			}
		})
	}
}
