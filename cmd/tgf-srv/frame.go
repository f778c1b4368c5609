// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/tgf/record"
)

// encodeFrame encodes a dataset as a /records frame body:
//
//	u64   xxhash fingerprint of the dataset
//	u32   number of fields
//	      (str name, u32 bits) for each field
//	u64   number of records
//	      u64 value for each field of each record
func encodeFrame(ds *record.Dataset) ([]byte, error) {
	var (
		buf    = new(bytes.Buffer)
		enc    = tdaq.NewEncoder(buf)
		fields = ds.Schema().Fields()
		cols   = make([][]int64, len(fields))
	)

	enc.WriteU64(ds.Sum64())
	enc.WriteU32(uint32(len(fields)))
	for i, f := range fields {
		enc.WriteStr(f.Name)
		enc.WriteU32(uint32(f.Bits))
		cols[i] = ds.Column(f.Name)
	}
	enc.WriteU64(uint64(ds.Len()))
	for i := 0; i < ds.Len(); i++ {
		for _, col := range cols {
			enc.WriteU64(uint64(col[i]))
		}
	}

	if err := enc.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeFrame decodes a /records frame body and checks its fingerprint.
func decodeFrame(p []byte) (*record.Dataset, error) {
	dec := tdaq.NewDecoder(bytes.NewReader(p))

	sum := dec.ReadU64()
	fields := make([]record.Field, dec.ReadU32())
	for i := range fields {
		fields[i].Name = dec.ReadStr()
		fields[i].Bits = int(dec.ReadU32())
	}
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("could not decode frame header: %w", err)
	}

	sc, err := record.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("could not decode frame schema: %w", err)
	}

	var (
		ds  = record.NewDataset(sc)
		n   = int(dec.ReadU64())
		row = make([]int64, len(fields))
	)
	for i := 0; i < n; i++ {
		for j := range row {
			row[j] = int64(dec.ReadU64())
		}
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("could not decode record %d: %w", i, err)
		}
		_ = ds.Append(row)
	}

	if got := ds.Sum64(); got != sum {
		return nil, fmt.Errorf("invalid frame fingerprint (got=0x%x, want=0x%x)", got, sum)
	}
	return ds, nil
}
