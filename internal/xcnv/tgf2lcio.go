// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"log"
	"math"

	"github.com/go-lpc/tgf/record"
	"github.com/go-lpc/tgf/timing"
	"go-hep.org/x/hep/lcio"
)

// TGF2LCIO writes the records of ds as LCIO events.
// When res is not nil, only the records with a reconstructed time are
// written, with their time.
func TGF2LCIO(w *lcio.Writer, ds *record.Dataset, res *timing.Result, run int32, msg *log.Logger) error {
	var (
		sc     = ds.Schema()
		fields = sc.Fields()
		names  = make([]string, len(fields))
		bits   = make([]int32, len(fields))
	)
	for i, f := range fields {
		names[i] = f.Name
		bits[i] = int32(f.Bits)
	}

	err := w.WriteRunHeader(&lcio.RunHeader{
		RunNumber: run,
		Detector:  detector,
		Descr:     "",
		Params: lcio.Params{
			Ints:    map[string][]int32{paramBits: bits},
			Strings: map[string][]string{paramFields: names},
		},
	})
	if err != nil {
		return fmt.Errorf("could not write run header: %w", err)
	}

	n := ds.Len()
	if res != nil {
		n = len(res.Valid)
	}

	var (
		cols = make([][]int64, len(fields))
		raw  = &lcio.GenericObject{
			Data: []lcio.GenericObjectData{
				{I32s: nil, F64s: nil},
			},
		}
	)
	for i, f := range fields {
		cols[i] = ds.Column(f.Name)
	}

	for k := 0; k < n; k++ {
		if k%1000 == 0 {
			msg.Printf("processing record %d...", k)
		}
		var (
			idx = k
			t   = 0.0
		)
		if res != nil {
			idx = res.Valid[k]
			t = res.Times[k]
		}
		if idx < 0 || idx >= ds.Len() {
			return fmt.Errorf("invalid record index %d (records=%d)", idx, ds.Len())
		}

		i32s := make([]int32, 0, 2*len(cols))
		for _, col := range cols {
			lo, hi := split64(col[idx])
			i32s = append(i32s, lo, hi)
		}
		raw.Data[0].I32s = i32s
		raw.Data[0].F64s = []float64{t}

		evt := lcio.Event{
			RunNumber:   run,
			EventNumber: int32(idx),
			TimeStamp:   int64(math.Round(t * 1e9)),
			Detector:    detector,
		}
		evt.Add(collName, raw)

		err = w.WriteEvent(&evt)
		if err != nil {
			return fmt.Errorf("could not write record %d: %w", idx, err)
		}
	}

	return nil
}
