// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package record decodes raw telemetry buffers made of fixed-width binary
// records into columnar datasets.
package record // import "github.com/go-lpc/tgf/record"

import (
	"fmt"
)

// Well-known field names.
const (
	FieldChannel     = "channel"
	FieldTimestamp   = "stimestamp"
	FieldTemperature = "temperature"
)

// MaxFieldBits is the widest field a schema may hold.
// Values are stored as int64 so that calibrated fields may go negative.
const MaxFieldBits = 63

// Field describes one named field of a record.
type Field struct {
	Name string
	Bits int
}

// Schema is the ordered list of fields making up one record.
// The order of the fields defines their left-to-right bit layout.
// A Schema is immutable once created.
type Schema struct {
	fields []Field
	index  map[string]int
	bits   int
}

// NewSchema creates a new schema from the provided fields.
func NewSchema(fields ...Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("record: empty schema")
	}

	sc := &Schema{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	copy(sc.fields, fields)

	for i, f := range sc.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("record: field %d has no name", i)
		}
		if f.Bits < 1 || f.Bits > MaxFieldBits {
			return nil, fmt.Errorf(
				"record: invalid width for field %q (got=%d, want=[1, %d])",
				f.Name, f.Bits, MaxFieldBits,
			)
		}
		if _, dup := sc.index[f.Name]; dup {
			return nil, fmt.Errorf("record: duplicate field %q", f.Name)
		}
		sc.index[f.Name] = i
		sc.bits += f.Bits
	}

	return sc, nil
}

// Fields returns a copy of the schema fields.
func (sc *Schema) Fields() []Field {
	o := make([]Field, len(sc.fields))
	copy(o, sc.fields)
	return o
}

// Len returns the number of fields.
func (sc *Schema) Len() int { return len(sc.fields) }

// Bits returns the size of one record, in bits.
func (sc *Schema) Bits() int { return sc.bits }

// Index returns the position of the named field, or -1.
func (sc *Schema) Index(name string) int {
	i, ok := sc.index[name]
	if !ok {
		return -1
	}
	return i
}

// Has returns whether the schema holds the named field.
func (sc *Schema) Has(name string) bool {
	_, ok := sc.index[name]
	return ok
}

// Width returns the width in bits of the named field, or 0.
func (sc *Schema) Width(name string) int {
	i, ok := sc.index[name]
	if !ok {
		return 0
	}
	return sc.fields[i].Bits
}
