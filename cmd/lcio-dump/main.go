// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// lcio-dump decodes and displays telemetry records embedded in LCIO files.
//
// Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> lcio-dump ./out.lcio
//	=== file "./out.lcio" ===
//	records:        3
//	index time channel stimestamp fpga
//	0 0.250000000 1 1000 4
//	1 0.500000000 1 1010 8
//	2 0.750000000 1 1020 12
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-lpc/tgf/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

const usage = `lcio-dump decodes and displays telemetry records embedded in LCIO files.

Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> lcio-dump ./out.lcio
 === file "./out.lcio" ===
 records:        3
 index time channel stimestamp fpga
 0 0.250000000 1 1000 4
 1 0.500000000 1 1010 8
 2 0.750000000 1 1020 12

`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("lcio-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("lcio", flag.ExitOnError)

		n = fset.Int("n", -1, "maximum number of records to display (-1: all)")
	)

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
		log.Fatalf("missing path to input LCIO file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *n)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, n int) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	msg := log.New(io.Discard, "", 0)
	recs, err := xcnv.LCIO2TGF(r, 100, msg)
	if err != nil {
		return fmt.Errorf("could not read records: %w", err)
	}

	fmt.Fprintf(wbuf, "=== file %q ===\n", fname)
	fmt.Fprintf(wbuf, "records: % 8d\n", len(recs.Index))
	if recs.Data == nil {
		return nil
	}

	var (
		fields = recs.Data.Schema().Fields()
		names  = []string{"index", "time"}
	)
	for _, f := range fields {
		names = append(names, f.Name)
	}
	fmt.Fprintf(wbuf, "%s\n", strings.Join(names, " "))

	for i, idx := range recs.Index {
		if n >= 0 && i >= n {
			break
		}
		fmt.Fprintf(wbuf, "%d %.9f", idx, recs.Times[i])
		for _, v := range recs.Data.Row(i) {
			fmt.Fprintf(wbuf, " %d", v)
		}
		wbuf.WriteByte('\n')
	}

	return nil
}
