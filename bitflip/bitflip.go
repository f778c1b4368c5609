// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bitflip detects and repairs single-bit upsets of a monotonic
// counter sequence.
//
// A bit cleared in the stored value of a sample range shows up as a large
// negative jump of the counter, followed by a positive jump of the same
// power-of-two magnitude where the corrupted range ends. Such pairs of
// jumps are matched, and the samples they bracket are shifted back.
package bitflip // import "github.com/go-lpc/tgf/bitflip"

import (
	"math/bits"

	"gonum.org/v1/gonum/stat"
)

// Pair delimits a corrupted region by the indices of its two bracketing
// deltas: samples Lo+1 up to Hi are shifted.
type Pair struct {
	Lo, Hi int
}

// Result describes the outcome of a correction pass.
type Result struct {
	Pairs    []Pair  // corrected regions, in detection order
	Unpaired int     // number of anomalous deltas without partner
	Mean     float64 // mean of the absolute deltas
	Std      float64 // standard deviation of the absolute deltas
}

// Deltas returns the successive differences of ts.
func Deltas(ts []int64) []int64 {
	if len(ts) < 2 {
		return nil
	}
	ds := make([]int64, len(ts)-1)
	for i := range ds {
		ds[i] = ts[i+1] - ts[i]
	}
	return ds
}

// Moments returns the mean and the (population) standard deviation
// of the absolute values of ds.
func Moments(ds []int64) (mean, std float64) {
	if len(ds) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(ds))
	for i, d := range ds {
		xs[i] = float64(abs(d))
	}
	return stat.PopMeanStdDev(xs, nil)
}

// MSB returns the value of the highest set bit of x, or 0.
func MSB(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	return 1 << uint(bits.Len64(x)-1)
}

// RoundMSB returns the power of two closest to d, keeping its sign.
func RoundMSB(d int64) int64 {
	m := int64(MSB(uint64(3 * abs(d) / 2)))
	if d < 0 {
		return -m
	}
	return m
}

// FindPairs matches large negative deltas with the later positive delta of
// the same rounded magnitude.
// It returns the matched pairs, in detection order, and the indices of the
// candidates left without partner.
func FindPairs(ds []int64, mean, std float64) (pairs []Pair, unpaired []int) {
	type candidate struct {
		idx int
		val int64
	}

	var (
		limit = -mean - 3*std
		cands []candidate
	)
	for i, d := range ds {
		r := RoundMSB(d)
		// most recent candidate first: nested regions close inside-out.
		for j := len(cands) - 1; j >= 0; j-- {
			if cands[j].val+r == 0 {
				pairs = append(pairs, Pair{Lo: cands[j].idx, Hi: i})
				cands = append(cands[:j], cands[j+1:]...)
				break
			}
		}
		if float64(r) < limit {
			cands = append(cands, candidate{idx: i, val: r})
		}
	}

	for _, c := range cands {
		unpaired = append(unpaired, c.idx)
	}
	return pairs, unpaired
}

// CorrectBit strips the most significant bits of d while its magnitude
// exceeds mean.
// Positive deltas lose their top bit, negative deltas get the contribution
// of their top bit flipped. Only bits of a width-bit counter may flip.
func CorrectBit(d int64, mean float64, width int) int64 {
	top := uint64(1) << uint(width-1)
	for float64(abs(d)) > mean {
		m := MSB(uint64(abs(d)))
		if m > top {
			m = top
		}
		switch {
		case d > 0:
			d -= int64(m)
		default:
			flip := 2 * m
			if flip > top {
				flip = top
			}
			d += int64(flip)
		}
		if m == 0 {
			break
		}
	}
	return d
}

// Correct repairs ts in place, interpreting its values as samples of a
// width-bit counter.
// Samples outside of the detected regions are never modified, and running
// Correct on its own output is a no-op.
func Correct(ts []int64, width int) Result {
	ds := Deltas(ts)
	if len(ds) == 0 {
		return Result{}
	}

	mean, std := Moments(ds)
	pairs, unpaired := FindPairs(ds, mean, std)
	res := Result{
		Pairs:    pairs,
		Unpaired: len(unpaired),
		Mean:     mean,
		Std:      std,
	}

	limit := mean + 3*std
	for _, p := range pairs {
		var (
			add int64
			// inner regions may already have been repaired.
			cur = Deltas(ts[p.Lo : p.Hi+1])
		)
		for i := p.Lo; i < p.Hi; i++ {
			d := cur[i-p.Lo]
			// ordinary increments inside the region are real ticks: stripping
			// their bits would shrink them below the mean.
			if i == p.Lo || float64(abs(d)) > limit {
				add += CorrectBit(d, mean, width) - d
			}
			ts[i+1] += add
		}
	}

	return res
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
