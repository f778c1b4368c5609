// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package timing

import (
	"reflect"
	"testing"
)

func TestMapCounts(t *testing.T) {
	for _, tc := range []struct {
		name    string
		rates   []float64
		secs    float64
		lo, hi  int
		nevents int
		want    []Bucket
	}{
		{
			name:    "simple",
			rates:   []float64{2, 0, 3.9},
			secs:    1,
			hi:      3,
			nevents: 10,
			want: []Bucket{
				{Index: 0, Start: 0, Lo: 0, Hi: 2},
				{Index: 1, Start: 1, Lo: 2, Hi: 2},
				{Index: 2, Start: 2, Lo: 2, Hi: 5},
			},
		},
		{
			name:    "bucket-length",
			rates:   []float64{1.5, 2.5},
			secs:    2,
			hi:      2,
			nevents: 10,
			want: []Bucket{
				{Index: 0, Start: 0, Lo: 0, Hi: 3},
				{Index: 1, Start: 2, Lo: 3, Hi: 8},
			},
		},
		{
			name:    "sub-range",
			rates:   []float64{100, 4, 4, 100},
			secs:    1,
			lo:      1,
			hi:      3,
			nevents: 10,
			want: []Bucket{
				{Index: 1, Start: 1, Lo: 0, Hi: 4},
				{Index: 2, Start: 2, Lo: 4, Hi: 8},
			},
		},
		{
			name:    "clipped",
			rates:   []float64{4, 4, 4},
			secs:    1,
			hi:      3,
			nevents: 6,
			want: []Bucket{
				{Index: 0, Start: 0, Lo: 0, Hi: 4},
				{Index: 1, Start: 1, Lo: 4, Hi: 6},
				{Index: 2, Start: 2, Lo: 6, Hi: 6},
			},
		},
		{
			name:    "negative-rate",
			rates:   []float64{-4, 4},
			secs:    1,
			hi:      2,
			nevents: 6,
			want: []Bucket{
				{Index: 0, Start: 0, Lo: 0, Hi: 0},
				{Index: 1, Start: 1, Lo: 0, Hi: 4},
			},
		},
		{
			name:  "empty-range",
			rates: []float64{4, 4},
			secs:  1,
			lo:    1,
			hi:    1,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := MapCounts(tc.rates, tc.secs, tc.lo, tc.hi, tc.nevents)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid buckets:\ngot= %+v\nwant=%+v\n", got, tc.want)
			}
		})
	}
}
