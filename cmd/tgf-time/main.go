// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tgf-time reconstructs the absolute time of the events of a raw
// telemetry buffer, using the orbit rate table of the same acquisition.
//
// Usage: tgf-time [OPTIONS] events.raw rates.raw
//
// ex:
//
//	$> tgf-time -mode ./tgf.toml ./tgf_0042.raw ./tgf_0042.rates.raw
//	$> tgf-time -mode ./tgf.toml -o out.lcio -lo 10 -hi 20 ./tgf_0042.raw ./tgf_0042.rates.raw
package main // import "github.com/go-lpc/tgf/cmd/tgf-time"

import (
	"bufio"
	"compress/flate"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-lpc/tgf/config"
	"github.com/go-lpc/tgf/internal/modeflag"
	"github.com/go-lpc/tgf/internal/rawio"
	"github.com/go-lpc/tgf/internal/xcnv"
	"github.com/go-lpc/tgf/record"
	"github.com/go-lpc/tgf/timing"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "tgf-time: ", 0)
)

type options struct {
	lo, hi int    // range of rate table buckets
	oname  string // path to output LCIO file, empty to print times
	lvl    int    // LCIO compression level
	run    int    // run number, <0 to infer it from the events file name
}

func main() {
	var (
		sel  = modeflag.Register(flag.CommandLine)
		opts options
	)
	flag.IntVar(&opts.lo, "lo", 0, "first rate table bucket to use")
	flag.IntVar(&opts.hi, "hi", 0, "end of the rate table bucket range (0: all)")
	flag.StringVar(&opts.oname, "o", "", "path to output LCIO file")
	flag.IntVar(&opts.lvl, "lvl", flate.DefaultCompression, "compression level for output LCIO file")
	flag.IntVar(&opts.run, "run", -1, "run number (default: inferred from events file name)")

	flag.Usage = func() {
		fmt.Printf(`Usage: tgf-time [OPTIONS] events.raw rates.raw

ex:
 $> tgf-time -mode ./tgf.toml ./tgf_0042.raw ./tgf_0042.rates.raw
 $> tgf-time -mode ./tgf.toml -o out.lcio -lo 10 -hi 20 ./tgf_0042.raw ./tgf_0042.rates.raw

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		msg.Fatalf("missing input events and rates raw files")
	}

	mode, err := sel.Mode(context.Background())
	if err != nil {
		msg.Fatalf("could not load instrument mode: %+v", err)
	}

	err = process(os.Stdout, mode, opts, flag.Arg(0), flag.Arg(1))
	if err != nil {
		msg.Fatalf("could not reconstruct event times: %+v", err)
	}
}

func process(w io.Writer, mode config.Mode, opts options, evtName, rateName string) error {
	events, err := decode(mode, evtName, false)
	if err != nil {
		return fmt.Errorf("could not decode events: %w", err)
	}

	rates, err := decode(mode, rateName, true)
	if err != nil {
		return fmt.Errorf("could not decode rates: %w", err)
	}

	res, err := timing.Reconcile(events, rates, mode.TimingConfig(opts.lo, opts.hi))
	if err != nil {
		return fmt.Errorf("could not reconcile times: %w", err)
	}
	msg.Printf("events: %d, mapped: %d, overruns: %d", events.Len(), res.Mapped, res.Overruns)

	if opts.oname == "" {
		return display(w, res)
	}

	run := int32(opts.run)
	if opts.run < 0 {
		run, err = runNbrFrom(evtName)
		if err != nil {
			return fmt.Errorf("could not infer run from %q: %w", evtName, err)
		}
	}

	o, err := lcio.Create(opts.oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer o.Close()

	o.SetCompressionLevel(opts.lvl)

	err = xcnv.TGF2LCIO(o, events, res, run, msg)
	if err != nil {
		return fmt.Errorf("could not convert records to LCIO: %w", err)
	}

	err = o.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	return nil
}

func decode(mode config.Mode, fname string, isRate bool) (*record.Dataset, error) {
	raw, err := rawio.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("could not open raw file: %w", err)
	}
	defer raw.Close()

	var (
		sc   *record.Schema
		opts []record.Option
	)
	switch {
	case isRate:
		sc, err = mode.RateSchema()
		if err != nil {
			return nil, err
		}
		ropts, err := mode.DecoderOptions()
		if err != nil {
			return nil, err
		}
		// rate tables carry no timestamp to verify.
		opts = append(ropts, record.WithVerify(false), record.WithMaxRecords(0))
	default:
		sc, err = mode.Schema()
		if err != nil {
			return nil, err
		}
		opts, err = mode.DecoderOptions()
		if err != nil {
			return nil, err
		}
	}
	opts = append(opts, record.WithLogger(msg))

	dec := record.NewDecoder(sc, opts...)
	ds, err := dec.Decode(raw.Bytes())
	if err != nil {
		return nil, err
	}
	if n := dec.Report().Trailing; n > 0 {
		msg.Printf("%s: ignored %d trailing bytes", filepath.Base(fname), n)
	}
	return ds, nil
}

func display(w io.Writer, res *timing.Result) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	for _, b := range res.Buckets {
		fmt.Fprintf(wbuf,
			"=== bucket %d: events=[%d, %d) anchor=%.6f ramps=%d mapped=%d overrun=%v ===\n",
			b.Index, b.Lo, b.Hi, b.Anchor, b.Ramps, b.Mapped, b.Overrun,
		)
	}
	for i, idx := range res.Valid {
		fmt.Fprintf(wbuf, "%d %.9f\n", idx, res.Times[i])
	}

	return wbuf.Flush()
}

func runNbrFrom(fname string) (int32, error) {
	var (
		name = filepath.Base(fname)
		run  int32
	)
	_, err := fmt.Sscanf(name, "tgf_%d", &run)
	return run, err
}
