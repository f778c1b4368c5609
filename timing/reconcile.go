// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package timing

import (
	"fmt"

	"github.com/go-lpc/tgf/record"
)

// Default field names.
const (
	DefaultCounterField = "fpga"
	DefaultRateField    = "rate"
)

// Config holds the time reconstruction parameters.
type Config struct {
	CounterField string // event field holding the ramp counter (default "fpga")
	RateField    string // rate table field holding the event rate (default "rate")

	BucketSeconds float64 // length of one rate table bucket, in seconds
	OrbitLo       int     // first rate table bucket
	OrbitHi       int     // one past the last bucket; 0 means all

	RiseTime  float64
	ConstTime float64
	MaxValue  int64
}

func (cfg Config) ramp() RampConfig {
	return RampConfig{
		RiseTime:  cfg.RiseTime,
		ConstTime: cfg.ConstTime,
		MaxValue:  cfg.MaxValue,
	}
}

func (cfg *Config) defaults() {
	if cfg.CounterField == "" {
		cfg.CounterField = DefaultCounterField
	}
	if cfg.RateField == "" {
		cfg.RateField = DefaultRateField
	}
}

func (cfg *Config) validate(nrates int) error {
	if cfg.OrbitHi == 0 {
		cfg.OrbitHi = nrates
	}

	switch {
	case cfg.BucketSeconds <= 0:
		return fmt.Errorf("timing: invalid bucket length %v", cfg.BucketSeconds)
	case cfg.RiseTime <= 0:
		return fmt.Errorf("timing: invalid rise time %v", cfg.RiseTime)
	case cfg.ConstTime < 0:
		return fmt.Errorf("timing: invalid const time %v", cfg.ConstTime)
	case cfg.MaxValue < 1:
		return fmt.Errorf("timing: invalid counter max value %d", cfg.MaxValue)
	case cfg.OrbitLo < 0 || cfg.OrbitLo > cfg.OrbitHi || cfg.OrbitHi > nrates:
		return fmt.Errorf(
			"timing: invalid orbit range [%d, %d) (buckets=%d)",
			cfg.OrbitLo, cfg.OrbitHi, nrates,
		)
	}
	return nil
}

// BucketReport describes how one bucket was reconstructed.
type BucketReport struct {
	Bucket
	Anchor  float64 // absolute time the bucket ramps were offset by
	Ramps   int     // number of ramps found
	Mapped  int     // number of events given a time
	Overrun bool    // whether the bucket ran past Anchor+BucketSeconds
}

// Result is the outcome of a time reconstruction.
type Result struct {
	Times    []float64 // absolute time of each mapped event, non-decreasing
	Valid    []int     // index of each mapped event
	Mapped   int       // number of mapped events
	Overruns int       // number of buckets whose last event overran the bucket
	Buckets  []BucketReport
}

// Reconcile assigns an absolute time to the events, using the ramp counter
// of events and the rate table of rates.
//
// Each bucket anchors the ramps of the events it claims. When the last
// event of a bucket lands after the nominal end of the bucket, the next
// bucket is anchored on that event instead. Times of earlier buckets are
// not revisited.
func Reconcile(events, rates *record.Dataset, cfg Config) (*Result, error) {
	if events == nil || rates == nil {
		return nil, fmt.Errorf("timing: nil dataset")
	}

	cfg.defaults()
	if !rates.Schema().Has(cfg.RateField) {
		return nil, fmt.Errorf("timing: rate table has no field %q", cfg.RateField)
	}
	table := rates.Column(cfg.RateField)
	err := cfg.validate(len(table))
	if err != nil {
		return nil, err
	}

	if !events.Schema().Has(cfg.CounterField) {
		return nil, fmt.Errorf("timing: events have no field %q", cfg.CounterField)
	}
	counter := events.Column(cfg.CounterField)

	rs := make([]float64, len(table))
	for i, v := range table {
		rs[i] = float64(v)
	}

	var (
		res     = new(Result)
		buckets = MapCounts(rs, cfg.BucketSeconds, cfg.OrbitLo, cfg.OrbitHi, len(counter))
		anchor  = float64(cfg.OrbitLo) * cfg.BucketSeconds
	)
	for _, b := range buckets {
		rr := ExtractRamps(counter, cfg.ramp(), b.Lo, b.Hi)
		rep := BucketReport{
			Bucket: b,
			Anchor: anchor,
			Ramps:  len(rr.Ramps),
			Mapped: len(rr.Valid),
		}
		for i, t := range rr.Times {
			res.Times = append(res.Times, anchor+t)
			res.Valid = append(res.Valid, rr.Valid[i])
		}

		next := anchor + cfg.BucketSeconds
		if n := len(rr.Times); n > 0 {
			if last := anchor + rr.Times[n-1]; last > next {
				next = last
				rep.Overrun = true
				res.Overruns++
			}
		}
		res.Buckets = append(res.Buckets, rep)
		anchor = next
	}
	res.Mapped = len(res.Valid)

	return res, nil
}
