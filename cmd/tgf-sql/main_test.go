// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/tgf/config"
)

type fakeDB struct {
	modes map[string]config.Mode
	last  string
}

func (db fakeDB) LastMode(ctx context.Context) (string, error) {
	if db.last == "" {
		return "", fmt.Errorf("no run")
	}
	return db.last, nil
}

func (db fakeDB) Modes(ctx context.Context) ([]string, error) {
	var names []string
	for _, name := range []string{"cal", "tgf", "tgf-ramp"} {
		if _, ok := db.modes[name]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (db fakeDB) Mode(ctx context.Context, name string) (config.Mode, error) {
	mode, ok := db.modes[name]
	if !ok {
		return mode, fmt.Errorf("unknown mode %q", name)
	}
	return mode, nil
}

func TestDoQuery(t *testing.T) {
	db := fakeDB{
		modes: map[string]config.Mode{
			"cal": {Name: "cal", Fields: []config.Field{{Name: "adc", Bits: 16}}},
			"tgf": {
				Name:     "tgf",
				Ordering: "reversed",
				Verify:   true,
				Fields: []config.Field{
					{Name: "channel", Bits: 8},
					{Name: "stimestamp", Bits: 48},
				},
				Timing: config.Timing{
					BucketSeconds: 1,
					RiseTime:      0.2,
					ConstTime:     0.05,
					MaxValue:      65535,
					Rates:         []config.Field{{Name: "rate", Bits: 16}},
				},
			},
		},
		last: "tgf",
	}

	t.Run("list", func(t *testing.T) {
		out := new(strings.Builder)
		err := doQuery(out, db, "")
		if err != nil {
			t.Fatalf("could not list modes: %+v", err)
		}
		if got, want := out.String(), "  cal\n* tgf\n"; got != want {
			t.Fatalf("invalid output:\ngot= %q\nwant=%q\n", got, want)
		}
	})

	t.Run("mode", func(t *testing.T) {
		out := new(strings.Builder)
		err := doQuery(out, db, "tgf")
		if err != nil {
			t.Fatalf("could not display mode: %+v", err)
		}

		got, err := config.Decode(strings.NewReader(out.String()))
		if err != nil {
			t.Fatalf("could not decode displayed mode: %+v\n%s", err, out.String())
		}
		if want := db.modes["tgf"]; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid mode:\ngot= %+v\nwant=%+v\n", got, want)
		}
	})

	t.Run("errors", func(t *testing.T) {
		err := doQuery(new(strings.Builder), db, "missing")
		if err == nil {
			t.Fatalf("expected an error")
		}

		err = doQuery(new(strings.Builder), fakeDB{}, "")
		if err == nil {
			t.Fatalf("expected an error")
		}
	})
}

func TestEval(t *testing.T) {
	db := fakeDB{
		modes: map[string]config.Mode{
			"cal": {Name: "cal", Fields: []config.Field{{Name: "adc", Bits: 16}}},
			"tgf": {Name: "tgf", Fields: []config.Field{{Name: "channel", Bits: 8}}},
		},
		last: "cal",
	}

	for _, tc := range []struct {
		line string
		quit bool
		want string
		err  string
	}{
		{line: ""},
		{line: "  "},
		{line: "help", want: "commands: help, last, mode, modes, quit\n"},
		{line: "modes", want: "* cal\n  tgf\n"},
		{line: "LAST", want: "cal\n"},
		{line: "mode", err: "usage: mode NAME"},
		{line: "mode missing", err: `could not get mode "missing": unknown mode "missing"`},
		{line: "select *", err: `unknown command "select"`},
		{line: "quit", quit: true},
		{line: "exit", quit: true},
	} {
		t.Run(tc.line, func(t *testing.T) {
			out := new(strings.Builder)
			quit, err := eval(out, db, tc.line)
			switch {
			case tc.err != "":
				if err == nil || err.Error() != tc.err {
					t.Fatalf("invalid error:\ngot= %v\nwant=%v\n", err, tc.err)
				}
				return
			case err != nil:
				t.Fatalf("could not eval %q: %+v", tc.line, err)
			}
			if quit != tc.quit {
				t.Fatalf("invalid quit: got=%v, want=%v", quit, tc.quit)
			}
			if got := out.String(); got != tc.want {
				t.Fatalf("invalid output:\ngot= %q\nwant=%q\n", got, tc.want)
			}
		})
	}
}
