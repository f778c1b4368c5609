// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// tgf-dump decodes and displays raw telemetry buffers.
//
// Usage: tgf-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> tgf-dump -mode ./tgf.toml -filter channel=1 ./testdata/tgf_0042.raw.zst
//	=== file "./testdata/tgf_0042.raw.zst" (mode="tgf", codec=zstd) ===
//	records:         3
//	resyncs:         0
//	trailing:        0
//	bit-flips:       0 (unpaired=0)
//	channel temperature stimestamp fpga
//	1 21 1000 12
//	1 21 1010 13
//	1 22 1020 14
//	checksum: 0x1d6d9ba64a3c5e7f
package main // import "github.com/go-lpc/tgf/cmd/tgf-dump"

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-lpc/tgf/bitio"
	"github.com/go-lpc/tgf/config"
	"github.com/go-lpc/tgf/internal/modeflag"
	"github.com/go-lpc/tgf/internal/rawio"
	"github.com/go-lpc/tgf/record"
)

const usage = `tgf-dump decodes and displays raw telemetry buffers.

Usage: tgf-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> tgf-dump -mode ./tgf.toml -filter channel=1 ./testdata/tgf_0042.raw.zst
 === file "./testdata/tgf_0042.raw.zst" (mode="tgf", codec=zstd) ===
 records:         3
 resyncs:         0
 trailing:        0
 bit-flips:       0 (unpaired=0)
 channel temperature stimestamp fpga
 1 21 1000 12
 1 21 1010 13
 1 22 1020 14
 checksum: 0x1d6d9ba64a3c5e7f

options:
`

type options struct {
	n      int    // maximum number of records, 0 for the mode value
	verify bool   // force verification
	filter string // filter expression
	ord    string // bit ordering, empty for the mode value
	quiet  bool   // only display the summary
}

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("tgf-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("tgf-dump", flag.ExitOnError)
		sel  = modeflag.Register(fset)
		opts options
	)
	fset.IntVar(&opts.n, "n", 0, "maximum number of records to decode (0: mode value)")
	fset.BoolVar(&opts.verify, "verify", false, "force online and bit-flip verification")
	fset.StringVar(&opts.filter, "filter", "", "filter expression (ex: channel=1,stimestamp=10..200)")
	fset.StringVar(&opts.ord, "ord", "", "bit ordering (standard|reversed, default: mode value)")
	fset.BoolVar(&opts.quiet, "q", false, "only display the decoding summary")

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input raw file")
	}

	mode, err := sel.Mode(context.Background())
	if err != nil {
		log.Fatalf("could not load instrument mode: %+v", err)
	}

	for _, fname := range fset.Args() {
		err := process(w, mode, opts, fname)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, mode config.Mode, opts options, fname string) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	dec, err := newDecoder(mode, opts)
	if err != nil {
		return err
	}

	raw, err := rawio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open raw file: %w", err)
	}
	defer raw.Close()

	ds, err := dec.Decode(raw.Bytes())
	if err != nil {
		return fmt.Errorf("could not decode raw file: %w", err)
	}

	rep := dec.Report()
	fmt.Fprintf(wbuf, "=== file %q (mode=%q, codec=%v) ===\n", fname, mode.Name, raw.Codec())
	fmt.Fprintf(wbuf, "records:   % 8d\n", rep.Records)
	fmt.Fprintf(wbuf, "resyncs:   % 8d\n", rep.Resyncs)
	fmt.Fprintf(wbuf, "trailing:  % 8d\n", rep.Trailing)
	fmt.Fprintf(wbuf, "bit-flips: % 8d (unpaired=%d)\n", rep.Pairs, rep.Unpaired)

	if !opts.quiet {
		var (
			fields = ds.Schema().Fields()
			names  = make([]string, len(fields))
			cols   = make([][]int64, len(fields))
		)
		for i, f := range fields {
			names[i] = f.Name
			cols[i] = ds.Column(f.Name)
		}
		fmt.Fprintf(wbuf, "%s\n", strings.Join(names, " "))
		for i := 0; i < ds.Len(); i++ {
			for j, col := range cols {
				if j > 0 {
					wbuf.WriteByte(' ')
				}
				fmt.Fprintf(wbuf, "%d", col[i])
			}
			wbuf.WriteByte('\n')
		}
	}
	fmt.Fprintf(wbuf, "checksum: 0x%016x\n", ds.Sum64())

	return nil
}

func newDecoder(mode config.Mode, opts options) (*record.Decoder, error) {
	sc, err := mode.Schema()
	if err != nil {
		return nil, fmt.Errorf("could not create record schema: %w", err)
	}

	dopts, err := mode.DecoderOptions()
	if err != nil {
		return nil, fmt.Errorf("could not create decoder options: %w", err)
	}

	if opts.n > 0 {
		dopts = append(dopts, record.WithMaxRecords(opts.n))
	}
	if opts.verify {
		dopts = append(dopts, record.WithVerify(true))
	}
	if opts.ord != "" {
		ord, err := bitio.ParseOrdering(opts.ord)
		if err != nil {
			return nil, fmt.Errorf("could not parse bit ordering: %w", err)
		}
		dopts = append(dopts, record.WithOrdering(ord))
	}
	if opts.filter != "" {
		p, err := record.ParseFilter(opts.filter)
		if err != nil {
			return nil, fmt.Errorf("could not parse filter: %w", err)
		}
		dopts = append(dopts, record.WithFilter(p))
	}
	dopts = append(dopts, record.WithLogger(log.Default()))

	return record.NewDecoder(sc, dopts...), nil
}
