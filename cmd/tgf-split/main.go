// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tgf-split splits a raw telemetry buffer into n raw buffers,
// one per channel.
//
// Records are copied verbatim. The codec of the output files is chosen
// from their extension.
package main // import "github.com/go-lpc/tgf/cmd/tgf-split"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-lpc/tgf/config"
	"github.com/go-lpc/tgf/internal/modeflag"
	"github.com/go-lpc/tgf/internal/rawio"
	"github.com/go-lpc/tgf/record"
)

var (
	msg = log.New(os.Stdout, "tgf-split: ", 0)
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("tgf-split", flag.ExitOnError)
		sel  = modeflag.Register(fset)

		oname = fset.String("o", "out.raw", "path to output raw file")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: tgf-split [OPTIONS] file.raw

ex:
 $> tgf-split -mode ./tgf.toml -o out.raw.zst ./tgf_0042.raw

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		msg.Fatalf("missing input raw file")
	}

	if *oname == "" {
		fset.Usage()
		msg.Fatalf("invalid output raw file")
	}

	mode, err := sel.Mode(context.Background())
	if err != nil {
		msg.Fatalf("could not load instrument mode: %+v", err)
	}

	for _, arg := range fset.Args() {
		err := process(*oname, mode, arg)
		if err != nil {
			msg.Fatalf("could not split raw file %q: %+v", arg, err)
		}
	}
}

func process(oname string, mode config.Mode, fname string) error {
	raw, err := rawio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open raw file: %w", err)
	}
	defer raw.Close()

	sc, err := mode.Schema()
	if err != nil {
		return fmt.Errorf("could not create record schema: %w", err)
	}
	opts, err := mode.DecoderOptions()
	if err != nil {
		return fmt.Errorf("could not create decoder options: %w", err)
	}

	// without verification, record i spans bytes [i*bpr, (i+1)*bpr).
	opts = append(opts, record.WithVerify(false), record.WithLogger(msg))
	dec := record.NewDecoder(sc, opts...)
	ds, err := dec.Decode(raw.Bytes())
	if err != nil {
		return fmt.Errorf("could not decode raw file: %w", err)
	}

	subs, idxs, err := record.SplitByChannel(ds)
	if err != nil {
		return fmt.Errorf("could not split records: %w", err)
	}

	var (
		bpr = sc.Bits() / 8
		src = raw.Bytes()
	)
	for i, sub := range subs {
		ch := sub.Column(record.FieldChannel)[0]
		buf := make([]byte, 0, len(idxs[i])*bpr)
		for _, j := range idxs[i] {
			buf = append(buf, src[j*bpr:(j+1)*bpr]...)
		}

		oid := outFileFrom(oname, ch)
		msg.Printf("creating output file %q (records=%d)...", oid, sub.Len())
		err = rawio.WriteFile(oid, buf, rawio.CodecFor(oid))
		if err != nil {
			return fmt.Errorf("could not write channel %d: %w", ch, err)
		}
	}

	return nil
}

func outFileFrom(fname string, ch int64) string {
	var (
		dir  = filepath.Dir(fname)
		base = filepath.Base(fname)
		stem = base
		ext  = ""
	)
	if i := strings.Index(base, "."); i > 0 {
		stem, ext = base[:i], base[i:]
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%03d%s", stem, ch, ext))
}
