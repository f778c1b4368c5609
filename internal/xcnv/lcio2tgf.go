// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/tgf/record"
	"go-hep.org/x/hep/lcio"
)

// Records holds the records read back from an LCIO file.
type Records struct {
	Data  *record.Dataset
	Times []float64 // reconstructed time of each record
	Index []int     // index of each record in its original dataset
}

// LCIO2TGF reads back the records written by TGF2LCIO.
func LCIO2TGF(r *lcio.Reader, freq int, msg *log.Logger) (Records, error) {
	var (
		recs Records
		row  []int64
		i    = 0
	)

	for r.Next() {
		if i == 0 {
			sc, err := schemaFrom(r.RunHeader())
			if err != nil {
				return recs, fmt.Errorf("could not read record layout: %w", err)
			}
			recs.Data = record.NewDataset(sc)
			row = make([]int64, sc.Len())
		}
		if i%freq == 0 {
			msg.Printf("processing evt %d...", i)
		}

		evt := r.Event()
		obj, ok := evt.Get(collName).(*lcio.GenericObject)
		if !ok || len(obj.Data) != 1 {
			return recs, fmt.Errorf("event %d has no valid %q collection", evt.EventNumber, collName)
		}
		var (
			data = obj.Data[0]
			i32s = data.I32s
		)
		if len(i32s) != 2*len(row) || len(data.F64s) != 1 {
			return recs, fmt.Errorf(
				"event %d: invalid record payload (i32s=%d, f64s=%d)",
				evt.EventNumber, len(i32s), len(data.F64s),
			)
		}
		for j := range row {
			row[j] = join64(i32s[2*j], i32s[2*j+1])
		}
		err := recs.Data.Append(row)
		if err != nil {
			return recs, fmt.Errorf("could not append record of event %d: %w", evt.EventNumber, err)
		}
		recs.Times = append(recs.Times, data.F64s[0])
		recs.Index = append(recs.Index, int(evt.EventNumber))
		i++
	}

	err := r.Err()
	if err != nil && err != io.EOF {
		return recs, fmt.Errorf("could not read LCIO file: %w", err)
	}

	return recs, nil
}

func schemaFrom(rhdr lcio.RunHeader) (*record.Schema, error) {
	var (
		names = rhdr.Params.Strings[paramFields]
		bits  = rhdr.Params.Ints[paramBits]
	)
	if len(names) != len(bits) {
		return nil, fmt.Errorf("inconsistent layout (fields=%d, bits=%d)", len(names), len(bits))
	}
	fields := make([]record.Field, len(names))
	for i := range names {
		fields[i] = record.Field{Name: names[i], Bits: int(bits[i])}
	}
	return record.NewSchema(fields...)
}
