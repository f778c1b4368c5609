// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Dataset is a columnar set of decoded records.
// All columns are kept in lock-step: same length, same record order.
type Dataset struct {
	schema *Schema
	cols   [][]int64
}

// NewDataset creates an empty dataset for the provided schema.
func NewDataset(sc *Schema) *Dataset {
	cols := make([][]int64, sc.Len())
	for i := range cols {
		cols[i] = make([]int64, 0)
	}
	return &Dataset{
		schema: sc,
		cols:   cols,
	}
}

// Schema returns the schema of the dataset.
func (ds *Dataset) Schema() *Schema { return ds.schema }

// Len returns the number of records.
func (ds *Dataset) Len() int {
	if len(ds.cols) == 0 {
		return 0
	}
	return len(ds.cols[0])
}

// Column returns the values of the named field, or nil if the schema has no
// such field. Known fields of an empty dataset yield an empty, non-nil slice.
// The returned slice shares its storage with the dataset.
func (ds *Dataset) Column(name string) []int64 {
	i := ds.schema.Index(name)
	if i < 0 {
		return nil
	}
	return ds.cols[i]
}

// Row returns a copy of the i-th record, in schema order.
func (ds *Dataset) Row(i int) []int64 {
	row := make([]int64, len(ds.cols))
	for j, col := range ds.cols {
		row[j] = col[i]
	}
	return row
}

// Append appends one record, in schema order.
func (ds *Dataset) Append(row []int64) error {
	if len(row) != len(ds.cols) {
		return fmt.Errorf("record: invalid row size (got=%d, want=%d)", len(row), len(ds.cols))
	}
	ds.appendRow(row)
	return nil
}

func (ds *Dataset) appendRow(row []int64) {
	for j, v := range row {
		ds.cols[j] = append(ds.cols[j], v)
	}
}

func (ds *Dataset) truncate(n int) {
	for j := range ds.cols {
		ds.cols[j] = ds.cols[j][:n]
	}
}

// Take returns a new dataset holding the records at the provided indices.
func (ds *Dataset) Take(idx []int) *Dataset {
	o := NewDataset(ds.schema)
	for j, col := range ds.cols {
		o.cols[j] = make([]int64, len(idx))
		for k, i := range idx {
			o.cols[j][k] = col[i]
		}
	}
	return o
}

// Subset returns a new dataset holding the records selected by mask.
func (ds *Dataset) Subset(mask []bool) *Dataset {
	idx := make([]int, 0, len(mask))
	for i, ok := range mask {
		if ok {
			idx = append(idx, i)
		}
	}
	return ds.Take(idx)
}

// Clone returns a deep copy of the dataset.
func (ds *Dataset) Clone() *Dataset {
	o := NewDataset(ds.schema)
	for j, col := range ds.cols {
		o.cols[j] = append(make([]int64, 0, len(col)), col...)
	}
	return o
}

// Scatter writes vs into the named column at the provided indices.
func (ds *Dataset) Scatter(name string, idx []int, vs []int64) error {
	if !ds.schema.Has(name) {
		return fmt.Errorf("record: unknown field %q", name)
	}
	if len(idx) != len(vs) {
		return fmt.Errorf(
			"record: scatter size mismatch (idx=%d, values=%d)",
			len(idx), len(vs),
		)
	}
	col := ds.Column(name)
	for k, i := range idx {
		col[i] = vs[k]
	}
	return nil
}

// Sum64 returns the xxhash fingerprint of the dataset content.
func (ds *Dataset) Sum64() uint64 {
	var (
		h   = xxhash.New()
		buf = make([]byte, 8)
	)
	for j, col := range ds.cols {
		_, _ = h.WriteString(ds.schema.fields[j].Name)
		for _, v := range col {
			binary.LittleEndian.PutUint64(buf, uint64(v))
			_, _ = h.Write(buf)
		}
	}
	return h.Sum64()
}
