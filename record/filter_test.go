// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"reflect"
	"testing"
)

func TestPredicates(t *testing.T) {
	ds := newTestDataset(t,
		[]Field{{"channel", 8}, {"value", 8}},
		[][]int64{
			{0, 10},
			{1, 20},
			{2, 30},
			{3, 40},
		},
	)

	for _, tc := range []struct {
		pred Predicate
		want []bool
	}{
		{Eq("channel", 1), []bool{false, true, false, false}},
		{Range("value", 20, 30), []bool{false, true, true, false}},
		{In("channel", 0, 3), []bool{true, false, false, true}},
		{Not(Eq("channel", 1)), []bool{true, false, true, true}},
		{And(Range("value", 10, 30), Not(Eq("channel", 0))), []bool{false, true, true, false}},
		{Or(Eq("channel", 0), Eq("value", 40)), []bool{true, false, false, true}},
	} {
		t.Run(tc.pred.String(), func(t *testing.T) {
			got := make([]bool, ds.Len())
			for i := range got {
				got[i] = tc.pred.Match(ds, i)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid selection:\ngot= %v\nwant=%v\n", got, tc.want)
			}
		})
	}

	pred := And(Eq("channel", 1), Or(Eq("value", 1), Not(In("temperature", 2))))
	if got, want := pred.Fields(), []string{"channel", "value", "temperature"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid fields:\ngot= %v\nwant=%v\n", got, want)
	}
}

func TestParseFilter(t *testing.T) {
	for _, tc := range []struct {
		expr string
		want string
		err  bool
	}{
		{expr: "channel=2", want: "channel=2"},
		{expr: " channel = 0x10 ", want: "channel=16"},
		{expr: "channel!=2", want: "!(channel=2)"},
		{expr: "stimestamp=10..200", want: "stimestamp=10..200"},
		{expr: "channel=0|2|3", want: "channel=0|2|3"},
		{expr: "channel=1,value=-5..5", want: "channel=1,value=-5..5"},
		{expr: "", err: true},
		{expr: "channel", err: true},
		{expr: "=2", err: true},
		{expr: "channel=x", err: true},
		{expr: "channel=1..x", err: true},
		{expr: "channel=1|x", err: true},
		{expr: "channel=1,", err: true},
	} {
		t.Run(tc.expr, func(t *testing.T) {
			p, err := ParseFilter(tc.expr)
			switch {
			case tc.err:
				if err == nil {
					t.Fatalf("expected an error, got %v", p)
				}
				return
			case err != nil:
				t.Fatalf("could not parse filter: %+v", err)
			}
			if got, want := p.String(), tc.want; got != want {
				t.Fatalf("invalid predicate: got=%q, want=%q", got, want)
			}
		})
	}
}
