// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package timing reconstructs absolute event times from a saturating
// hardware counter and a table of per-bucket event rates.
//
// The counter rises linearly from 0 to a maximum value over a fixed rise
// time, holds for a fixed time, and starts again from 0. Each such rise
// is a ramp: the counter value of an event inside a ramp gives its
// sub-second offset. The rate table tells how many events belong to each
// fixed-length time bucket, which anchors ramps onto the absolute axis.
package timing // import "github.com/go-lpc/tgf/timing"

// RampConfig describes the shape of the counter ramps.
type RampConfig struct {
	RiseTime  float64 // seconds for the counter to go from 0 to MaxValue
	ConstTime float64 // seconds the counter holds between two rises
	MaxValue  int64   // saturation value of the counter
}

// Ramp is the inclusive range of record indices making up one ramp.
type Ramp struct {
	Start, End int
}

// Len returns the number of records in the ramp.
func (r Ramp) Len() int { return r.End - r.Start + 1 }

// RampResult holds the sub-second times extracted from a counter.
type RampResult struct {
	Times []float64 // relative time of each valid record, in seconds
	Valid []int     // index of each valid record
	Ramps []Ramp
}

type marker uint8

const (
	markStart marker = 1 << iota
	markEnd
)

type rampState uint8

const (
	scanning rampState = iota
	inRamp
)

// ExtractRamps finds the ramps of counter within [lo, hi) and assigns a
// time to every record belonging to a ramp.
// Ramps are numbered from 0: the k-th ramp starts at k*(RiseTime+ConstTime).
// Records outside of any ramp, and saturated records, are dropped.
func ExtractRamps(counter []int64, cfg RampConfig, lo, hi int) RampResult {
	lo, hi = clamp(lo, 0, len(counter)), clamp(hi, 0, len(counter))
	if hi <= lo {
		return RampResult{}
	}

	var (
		c    = counter
		vmax = cfg.MaxValue
		mark = make([]marker, hi-lo)
		set  = func(i int, m marker) { mark[i-lo] |= m }
	)
	for i := lo; i+1 < hi; i++ {
		if c[i+1] < c[i] {
			set(i+1, markStart)
		}
		if i+2 >= hi {
			continue
		}
		switch {
		case c[i+2] < c[i+1] && c[i+1] != c[i]:
			if c[i+1] == vmax {
				set(i, markEnd)
			} else {
				set(i+1, markEnd)
			}
		case c[i] == c[i+1] && c[i+1] != vmax && c[i+2] < c[i+1]:
			set(i+1, markEnd)
		case c[i+1] == vmax && c[i+2] == vmax && c[i+1] > c[i]:
			set(i, markEnd)
		}
	}

	var (
		ramps []Ramp
		state = scanning
		beg   = lo
		seen  = false // whether a start was seen
	)
	// closeAt closes the open ramp on the last unsaturated record <= end.
	closeAt := func(end int) {
		for end >= beg && c[end] >= vmax {
			end--
		}
		if end >= beg {
			ramps = append(ramps, Ramp{Start: beg, End: end})
		}
		state = scanning
	}

	for j := lo; j < hi; j++ {
		m := mark[j-lo]
		if m&markStart != 0 {
			if state == inRamp {
				closeAt(j - 1)
			}
			state = inRamp
			beg = j
			seen = true
		}
		if m&markEnd != 0 {
			switch state {
			case inRamp:
				closeAt(j)
			case scanning:
				if !seen {
					// first end before any start: the ramp began before lo.
					beg = lo
					closeAt(j)
				}
			}
		}
	}
	if state == inRamp {
		closeAt(hi - 1)
	}

	var (
		res = RampResult{Ramps: ramps}
		cur = 0.0
		dt  = cfg.RiseTime / float64(vmax+1)
	)
	for _, r := range ramps {
		for i := r.Start; i <= r.End; i++ {
			res.Times = append(res.Times, cur+float64(clamp64(c[i], 0, vmax))*dt)
			res.Valid = append(res.Valid, i)
		}
		cur += cfg.RiseTime + cfg.ConstTime
	}
	return res
}

func clamp(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

func clamp64(v, lo, hi int64) int64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
