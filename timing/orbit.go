// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package timing

// Bucket is one fixed-length time window of the rate table, with the
// range of events it claims.
type Bucket struct {
	Index int     // index in the rate table
	Start float64 // nominal start time, in seconds
	Lo    int     // first claimed event
	Hi    int     // one past the last claimed event
}

// Len returns the number of events claimed by the bucket.
func (b Bucket) Len() int { return b.Hi - b.Lo }

// MapCounts walks the rate table buckets within [lo, hi) and assigns each
// of them the next int(rate*bucketSeconds) unassigned events, out of
// nevents. Buckets past the last event claim an empty range.
func MapCounts(rates []float64, bucketSeconds float64, lo, hi, nevents int) []Bucket {
	lo, hi = clamp(lo, 0, len(rates)), clamp(hi, 0, len(rates))
	if hi <= lo {
		return nil
	}

	var (
		buckets = make([]Bucket, 0, hi-lo)
		cursor  = 0
	)
	for b := lo; b < hi; b++ {
		n := int(rates[b] * bucketSeconds)
		if n < 0 {
			n = 0
		}
		end := clamp(cursor+n, cursor, nevents)
		buckets = append(buckets, Bucket{
			Index: b,
			Start: float64(b) * bucketSeconds,
			Lo:    cursor,
			Hi:    end,
		})
		cursor = end
	}
	return buckets
}
