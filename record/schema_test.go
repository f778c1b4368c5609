// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"reflect"
	"testing"
)

func TestSchema(t *testing.T) {
	sc, err := NewSchema(
		Field{"channel", 4},
		Field{"pad", 4},
		Field{"stimestamp", 48},
	)
	if err != nil {
		t.Fatalf("could not create schema: %+v", err)
	}

	if got, want := sc.Len(), 3; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}
	if got, want := sc.Bits(), 56; got != want {
		t.Fatalf("invalid bits: got=%d, want=%d", got, want)
	}
	if got, want := sc.Index("stimestamp"), 2; got != want {
		t.Fatalf("invalid index: got=%d, want=%d", got, want)
	}
	if got, want := sc.Index("temperature"), -1; got != want {
		t.Fatalf("invalid index: got=%d, want=%d", got, want)
	}
	if !sc.Has(FieldChannel) || sc.Has(FieldTemperature) {
		t.Fatalf("invalid field lookup")
	}
	if got, want := sc.Width(FieldTimestamp), 48; got != want {
		t.Fatalf("invalid width: got=%d, want=%d", got, want)
	}
	if got, want := sc.Width("nope"), 0; got != want {
		t.Fatalf("invalid width: got=%d, want=%d", got, want)
	}

	fs := sc.Fields()
	fs[0].Name = "modified"
	if got, want := sc.Fields()[0].Name, "channel"; got != want {
		t.Fatalf("schema was modified: got=%q, want=%q", got, want)
	}
}

func TestSchemaFromSlice(t *testing.T) {
	fields := []Field{{"a", 8}, {"b", 8}}
	sc, err := NewSchema(fields...)
	if err != nil {
		t.Fatalf("could not create schema: %+v", err)
	}
	fields[0].Name = "z"

	if got, want := sc.Fields(), []Field{{"a", 8}, {"b", 8}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid fields:\ngot= %v\nwant=%v\n", got, want)
	}
}

func TestSchemaErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		fields []Field
		err    string
	}{
		{
			name: "empty",
			err:  "record: empty schema",
		},
		{
			name:   "no-name",
			fields: []Field{{"a", 8}, {"", 8}},
			err:    "record: field 1 has no name",
		},
		{
			name:   "zero-width",
			fields: []Field{{"a", 0}},
			err:    `record: invalid width for field "a" (got=0, want=[1, 63])`,
		},
		{
			name:   "too-wide",
			fields: []Field{{"a", 64}},
			err:    `record: invalid width for field "a" (got=64, want=[1, 63])`,
		},
		{
			name:   "duplicate",
			fields: []Field{{"a", 8}, {"b", 8}, {"a", 8}},
			err:    `record: duplicate field "a"`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSchema(tc.fields...)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got, want := err.Error(), tc.err; got != want {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q\n", got, want)
			}
		})
	}
}
