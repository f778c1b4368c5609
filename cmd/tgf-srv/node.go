// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	stdlog "log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/tgf/config"
	"github.com/go-lpc/tgf/internal/modeflag"
	"github.com/go-lpc/tgf/internal/rawio"
	"github.com/go-lpc/tgf/record"
)

// node replays raw telemetry buffers as a TDAQ process.
type node struct {
	sel   *modeflag.Selector
	files []string

	mu      sync.Mutex
	mode    config.Mode
	dec     *record.Decoder
	started bool
	next    int // index of the next file to replay

	n      int // number of published frames
	alerts int // number of alerts sent during the run
	data   chan []byte

	alert func(subject, body string)
}

func newNode(sel *modeflag.Selector, files []string) *node {
	return &node{
		sel:   sel,
		files: files,
		alert: alertMail,
	}
}

// OnConfig loads the instrument mode.
// A non-empty request body holds the path to a TOML mode file overriding
// the mode selected on the command line.
func (dev *node) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	sel := *dev.sel
	if len(req.Body) > 0 {
		dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
		fname := dec.ReadStr()
		if err := dec.Err(); err != nil {
			return fmt.Errorf("could not decode /config request: %w", err)
		}
		if fname != "" {
			sel = modeflag.Selector{File: fname}
		}
	}

	mode, err := sel.Mode(ctx.Ctx)
	if err != nil {
		ctx.Msg.Errorf("could not load instrument mode: %+v", err)
		return fmt.Errorf("could not load instrument mode: %w", err)
	}
	ctx.Msg.Infof("instrument mode: %q (fields=%d)", mode.Name, len(mode.Fields))

	dev.mu.Lock()
	dev.mode = mode
	dev.dec = nil
	dev.mu.Unlock()
	return nil
}

// OnInit creates the record decoder of the configured mode.
func (dev *node) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	return dev.init(ctx)
}

func (dev *node) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	return dev.init(ctx)
}

func (dev *node) init(ctx tdaq.Context) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.mode.Name == "" && len(dev.mode.Fields) == 0 {
		return fmt.Errorf("no instrument mode configured")
	}

	sc, err := dev.mode.Schema()
	if err != nil {
		return fmt.Errorf("could not create record schema: %w", err)
	}
	opts, err := dev.mode.DecoderOptions()
	if err != nil {
		return fmt.Errorf("could not create decoder options: %w", err)
	}
	opts = append(opts, record.WithLogger(stdlog.New(msgWriter{ctx.Msg}, "", 0)))

	dev.dec = record.NewDecoder(sc, opts...)
	dev.data = make(chan []byte, 1024)
	dev.started = false
	dev.next = 0
	dev.n = 0
	dev.alerts = 0
	return nil
}

func (dev *node) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.dec == nil {
		return fmt.Errorf("node not initialized")
	}
	dev.started = true
	return nil
}

func (dev *node) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.started = false
	ctx.Msg.Debugf("received /stop command... -> n=%d", dev.n)
	return nil
}

func (dev *node) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

func (dev *node) records(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-dev.data:
		dst.Body = data
	}
	return nil
}

func (dev *node) run(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		default:
		}

		fname, ok := dev.pop()
		if !ok {
			select {
			case <-ctx.Ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		frame, rep, err := dev.replay(fname)
		if err != nil {
			ctx.Msg.Errorf("could not replay %q: %+v", fname, err)
			continue
		}
		ctx.Msg.Debugf("replayed %q: records=%d", fname, rep.Records)
		if anomalous(rep) {
			ctx.Msg.Warnf(
				"%q: resyncs=%d, unpaired bit-flip candidates=%d",
				fname, rep.Resyncs, rep.Unpaired,
			)
			dev.notify(fname, rep)
		}

		select {
		case <-ctx.Ctx.Done():
			return nil
		case dev.data <- frame:
			dev.mu.Lock()
			dev.n++
			dev.mu.Unlock()
		}
	}
}

// pop returns the next file to replay, if the node is running.
func (dev *node) pop() (string, bool) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if !dev.started || dev.next >= len(dev.files) {
		return "", false
	}
	fname := dev.files[dev.next]
	dev.next++
	return fname, true
}

func (dev *node) replay(fname string) ([]byte, record.Report, error) {
	raw, err := rawio.Open(fname)
	if err != nil {
		return nil, record.Report{}, err
	}
	defer raw.Close()

	dev.mu.Lock()
	dec := dev.dec
	dev.mu.Unlock()

	ds, err := dec.Decode(raw.Bytes())
	if err != nil {
		return nil, record.Report{}, fmt.Errorf("could not decode records: %w", err)
	}
	rep := dec.Report()

	frame, err := encodeFrame(ds)
	if err != nil {
		return nil, rep, fmt.Errorf("could not encode frame: %w", err)
	}
	return frame, rep, nil
}

func (dev *node) notify(fname string, rep record.Report) {
	dev.mu.Lock()
	dev.alerts++
	n := dev.alerts
	dev.mu.Unlock()

	if n > maxAlerts || dev.alert == nil {
		return
	}
	dev.alert(fmt.Sprintf("data quality alert: %q", filepath.Base(fname)), alertBody(fname, rep))
}

// msgWriter forwards log lines to a TDAQ message stream.
type msgWriter struct {
	msg log.MsgStream
}

func (w msgWriter) Write(p []byte) (int, error) {
	w.msg.Infof("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
