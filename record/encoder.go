// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"fmt"

	"github.com/go-lpc/tgf/bitio"
)

// Encoder packs records into a raw buffer.
type Encoder struct {
	schema *Schema
	ord    bitio.Ordering
}

// NewEncoder returns an encoder for records laid out according to sc.
func NewEncoder(sc *Schema, ord bitio.Ordering) *Encoder {
	return &Encoder{schema: sc, ord: ord}
}

// Encode packs the provided rows, each in schema order.
// Values are raw: no calibration offset is applied.
func (enc *Encoder) Encode(rows [][]int64) ([]byte, error) {
	nbits := enc.schema.Bits()
	if nbits%8 != 0 {
		return nil, fmt.Errorf("record: record size (%d bits) is not byte-aligned", nbits)
	}

	var (
		bpr = nbits / 8
		buf = make([]byte, bpr*len(rows))
	)
	for i, row := range rows {
		if len(row) != enc.schema.Len() {
			return nil, fmt.Errorf(
				"record: invalid row %d size (got=%d, want=%d)",
				i, len(row), enc.schema.Len(),
			)
		}
		beg := 8 * bpr * i
		for j, f := range enc.schema.fields {
			v := row[j]
			if v < 0 {
				return nil, fmt.Errorf("record: negative value %d for field %q (row %d)", v, f.Name, i)
			}
			err := bitio.PutBits(beg, f.Bits, buf, uint64(v), enc.ord)
			if err != nil {
				return nil, fmt.Errorf("record: could not encode field %q (row %d): %w", f.Name, i, err)
			}
			beg += f.Bits
		}
	}
	return buf, nil
}

// EncodeDataset packs all the records of ds.
func (enc *Encoder) EncodeDataset(ds *Dataset) ([]byte, error) {
	rows := make([][]int64, ds.Len())
	for i := range rows {
		rows[i] = ds.Row(i)
	}
	return enc.Encode(rows)
}
