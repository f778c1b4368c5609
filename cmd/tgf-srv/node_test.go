// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/tgf/bitio"
	"github.com/go-lpc/tgf/internal/modeflag"
	"github.com/go-lpc/tgf/internal/rawio"
	"github.com/go-lpc/tgf/record"
)

const modeTOML = `
name = "tgf"
ordering = "standard"

[[field]]
name = "channel"
bits = 8

[[field]]
name = "temperature"
bits = 8

[[field]]
name = "fpga"
bits = 16
`

func newContext(ctx context.Context) tdaq.Context {
	return tdaq.Context{
		Ctx: ctx,
		Msg: log.NewMsgStream("tgf-srv", log.LvlDebug, io.Discard),
	}
}

func TestFrame(t *testing.T) {
	sc, err := record.NewSchema(
		record.Field{Name: "channel", Bits: 8},
		record.Field{Name: "temperature", Bits: 8},
	)
	if err != nil {
		t.Fatalf("could not create schema: %+v", err)
	}
	ds := record.NewDataset(sc)
	for _, row := range [][]int64{{0, -55}, {1, 20}, {2, 200}} {
		_ = ds.Append(row)
	}

	p, err := encodeFrame(ds)
	if err != nil {
		t.Fatalf("could not encode frame: %+v", err)
	}

	got, err := decodeFrame(p)
	if err != nil {
		t.Fatalf("could not decode frame: %+v", err)
	}
	if got, want := got.Sum64(), ds.Sum64(); got != want {
		t.Fatalf("invalid fingerprint: got=0x%x, want=0x%x", got, want)
	}

	p[0] ^= 0xff
	_, err = decodeFrame(p)
	if err == nil {
		t.Fatalf("expected a fingerprint error")
	}
}

func TestNode(t *testing.T) {
	tmp, err := os.MkdirTemp("", "tgf-srv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	fmode := filepath.Join(tmp, "mode.toml")
	err = os.WriteFile(fmode, []byte(modeTOML), 0644)
	if err != nil {
		t.Fatalf("could not write mode file: %+v", err)
	}

	sc, err := record.NewSchema(
		record.Field{Name: "channel", Bits: 8},
		record.Field{Name: "temperature", Bits: 8},
		record.Field{Name: "fpga", Bits: 16},
	)
	if err != nil {
		t.Fatalf("could not create schema: %+v", err)
	}

	inputs := [][][]int64{
		{{0, 75, 1}, {1, 76, 2}},
		{{2, 55, 3}},
	}
	var files []string
	for i, rows := range inputs {
		raw, err := record.NewEncoder(sc, bitio.Standard).Encode(rows)
		if err != nil {
			t.Fatalf("could not encode records: %+v", err)
		}
		fname := filepath.Join(tmp, "tgf_"+string(rune('0'+i))+".raw.s2")
		err = rawio.WriteFile(fname, raw, rawio.S2)
		if err != nil {
			t.Fatalf("could not write raw file: %+v", err)
		}
		files = append(files, fname)
		if i == 0 {
			files = append(files, filepath.Join(tmp, "missing.raw"))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		tctx = newContext(ctx)
		dev  = newNode(&modeflag.Selector{}, files)
		req  tdaq.Frame
		resp tdaq.Frame
	)
	dev.alert = func(subject, body string) {
		t.Errorf("unexpected alert %q:\n%s", subject, body)
	}

	err = dev.OnInit(tctx, &resp, req)
	if err == nil {
		t.Fatalf("expected an error initializing an unconfigured node")
	}

	err = dev.OnConfig(tctx, &resp, req)
	if err == nil {
		t.Fatalf("expected an error configuring without a mode")
	}

	{
		buf := new(bytes.Buffer)
		enc := tdaq.NewEncoder(buf)
		enc.WriteStr(fmode)
		req.Body = buf.Bytes()
	}
	err = dev.OnConfig(tctx, &resp, req)
	if err != nil {
		t.Fatalf("could not /config: %+v", err)
	}
	req.Body = nil

	err = dev.OnStart(tctx, &resp, req)
	if err == nil {
		t.Fatalf("expected an error starting an uninitialized node")
	}

	for _, h := range []struct {
		name string
		f    func(tdaq.Context, *tdaq.Frame, tdaq.Frame) error
	}{
		{"/init", dev.OnInit},
		{"/reset", dev.OnReset},
		{"/start", dev.OnStart},
	} {
		err := h.f(tctx, &resp, req)
		if err != nil {
			t.Fatalf("could not %s: %+v", h.name, err)
		}
	}

	done := make(chan error)
	go func() {
		done <- dev.run(tctx)
	}()

	for i, rows := range inputs {
		var dst tdaq.Frame
		err := dev.records(tctx, &dst)
		if err != nil {
			t.Fatalf("could not read frame %d: %+v", i, err)
		}
		ds, err := decodeFrame(dst.Body)
		if err != nil {
			t.Fatalf("could not decode frame %d: %+v", i, err)
		}

		want := make([][]int64, len(rows))
		for j, row := range rows {
			want[j] = []int64{row[0], row[1] - record.TemperatureOffset, row[2]}
		}
		got := make([][]int64, ds.Len())
		for j := range got {
			got[j] = ds.Row(j)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid frame %d:\ngot= %v\nwant=%v\n", i, got, want)
		}
	}

	for _, h := range []struct {
		name string
		f    func(tdaq.Context, *tdaq.Frame, tdaq.Frame) error
	}{
		{"/stop", dev.OnStop},
		{"/quit", dev.OnQuit},
	} {
		err := h.f(tctx, &resp, req)
		if err != nil {
			t.Fatalf("could not %s: %+v", h.name, err)
		}
	}

	cancel()
	err = <-done
	if err != nil {
		t.Fatalf("could not run node: %+v", err)
	}

	if got, want := dev.n, len(inputs); got != want {
		t.Fatalf("invalid number of frames: got=%d, want=%d", got, want)
	}

	var dst tdaq.Frame
	err = dev.records(tctx, &dst)
	if err != nil || dst.Body != nil {
		t.Fatalf("invalid frame after stop: body=%v, err=%+v", dst.Body, err)
	}
}

func TestAlerts(t *testing.T) {
	for _, tc := range []struct {
		rep  record.Report
		want bool
	}{
		{record.Report{Records: 10}, false},
		{record.Report{Records: 10, Pairs: 2}, false},
		{record.Report{Records: 10, Resyncs: 1}, true},
		{record.Report{Records: 10, Unpaired: 1}, true},
	} {
		if got, want := anomalous(tc.rep), tc.want; got != want {
			t.Fatalf("invalid anomaly flag for %+v: got=%v, want=%v", tc.rep, got, want)
		}
	}

	var subjects []string
	dev := newNode(&modeflag.Selector{}, nil)
	dev.alert = func(subject, body string) {
		if !strings.Contains(body, "resyncs: 3\n") {
			t.Errorf("invalid alert body:\n%s", body)
		}
		subjects = append(subjects, subject)
	}

	for i := 0; i < 2*maxAlerts; i++ {
		dev.notify("/data/tgf_0042.raw", record.Report{Records: 10, Resyncs: 3})
	}
	if got, want := len(subjects), maxAlerts; got != want {
		t.Fatalf("invalid number of alerts: got=%d, want=%d", got, want)
	}
	if got, want := subjects[0], `data quality alert: "tgf_0042.raw"`; got != want {
		t.Fatalf("invalid alert subject: got=%q, want=%q", got, want)
	}
}

func TestMailTargets(t *testing.T) {
	for _, tc := range []struct {
		s    string
		want []string
	}{
		{"", nil},
		{"a@example.org", []string{"a@example.org"}},
		{"a@example.org, b@example.org,", []string{"a@example.org", "b@example.org"}},
	} {
		if got := targets(tc.s); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("invalid targets for %q: got=%q, want=%q", tc.s, got, tc.want)
		}
	}

	for _, tc := range []struct {
		s    string
		want int
	}{
		{"", 0},
		{"587", 587},
		{"smtp", 0},
	} {
		if got := atoi(tc.s); got != tc.want {
			t.Fatalf("invalid port for %q: got=%d, want=%d", tc.s, got, tc.want)
		}
	}
}
