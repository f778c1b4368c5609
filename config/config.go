// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config describes instrument modes: the record layout of the
// telemetry buffers of one mode, how to verify them and how to
// reconstruct their event times.
package config // import "github.com/go-lpc/tgf/config"

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-lpc/tgf/bitio"
	"github.com/go-lpc/tgf/record"
	"github.com/go-lpc/tgf/timing"
)

// Mode describes one instrument mode.
//
// A mode is written in TOML as:
//
//	name     = "tgf"
//	ordering = "standard"
//	verify   = true
//
//	[[field]]
//	name = "channel"
//	bits = 4
//
//	[[field]]
//	name = "stimestamp"
//	bits = 48
//
//	[timing]
//	counter_field  = "fpga"
//	rate_field     = "rate"
//	bucket_seconds = 1.0
//	rise_time      = 0.2
//	const_time     = 0.05
//	max_value      = 65535
//
//	[[timing.rate]]
//	name = "rate"
//	bits = 16
type Mode struct {
	Name            string  `toml:"name"`
	Ordering        string  `toml:"ordering"`
	Verify          bool    `toml:"verify"`
	VerifyThreshold float64 `toml:"verify_threshold"`
	MaxRecords      int     `toml:"max_records"`
	Fields          []Field `toml:"field"`
	Timing          Timing  `toml:"timing"`
}

// Field is one field of a record.
type Field struct {
	Name string `toml:"name"`
	Bits int    `toml:"bits"`
}

// Timing holds the time reconstruction constants of a mode.
type Timing struct {
	CounterField  string  `toml:"counter_field"`
	RateField     string  `toml:"rate_field"`
	BucketSeconds float64 `toml:"bucket_seconds"`
	RiseTime      float64 `toml:"rise_time"`
	ConstTime     float64 `toml:"const_time"`
	MaxValue      int64   `toml:"max_value"`
	Rates         []Field `toml:"rate"` // layout of the rate table records
}

// Load loads the mode described by the TOML file fname.
func Load(fname string) (Mode, error) {
	f, err := os.Open(fname)
	if err != nil {
		return Mode{}, fmt.Errorf("config: could not open mode file: %w", err)
	}
	defer f.Close()

	mode, err := Decode(f)
	if err != nil {
		return mode, fmt.Errorf("config: could not load %q: %w", fname, err)
	}
	return mode, nil
}

// Decode decodes a TOML mode description from r.
func Decode(r io.Reader) (Mode, error) {
	var mode Mode
	meta, err := toml.NewDecoder(r).Decode(&mode)
	if err != nil {
		return mode, fmt.Errorf("config: could not decode mode: %w", err)
	}

	if keys := meta.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return mode, fmt.Errorf("config: unknown keys: %s", strings.Join(names, ", "))
	}

	err = mode.Validate()
	if err != nil {
		return mode, err
	}
	return mode, nil
}

// Validate checks the mode is usable.
func (mode Mode) Validate() error {
	if _, err := bitio.ParseOrdering(mode.Ordering); err != nil {
		return fmt.Errorf("config: invalid mode %q: %w", mode.Name, err)
	}
	if _, err := mode.Schema(); err != nil {
		return fmt.Errorf("config: invalid mode %q: %w", mode.Name, err)
	}
	if mode.VerifyThreshold < 0 {
		return fmt.Errorf("config: invalid mode %q: negative verify threshold", mode.Name)
	}
	return nil
}

// Schema returns the record schema of the mode.
func (mode Mode) Schema() (*record.Schema, error) {
	return schema(mode.Fields)
}

// RateSchema returns the record schema of the rate table of the mode.
func (mode Mode) RateSchema() (*record.Schema, error) {
	if len(mode.Timing.Rates) == 0 {
		return nil, fmt.Errorf("config: mode %q has no rate table layout", mode.Name)
	}
	return schema(mode.Timing.Rates)
}

func schema(fields []Field) (*record.Schema, error) {
	fs := make([]record.Field, len(fields))
	for i, f := range fields {
		fs[i] = record.Field{Name: f.Name, Bits: f.Bits}
	}
	return record.NewSchema(fs...)
}

// DecoderOptions returns the record decoder options of the mode.
func (mode Mode) DecoderOptions() ([]record.Option, error) {
	ord, err := bitio.ParseOrdering(mode.Ordering)
	if err != nil {
		return nil, fmt.Errorf("config: invalid mode %q: %w", mode.Name, err)
	}

	opts := []record.Option{
		record.WithOrdering(ord),
		record.WithVerify(mode.Verify),
		record.WithMaxRecords(mode.MaxRecords),
	}
	if mode.VerifyThreshold > 0 {
		opts = append(opts, record.WithVerifyThreshold(mode.VerifyThreshold))
	}
	return opts, nil
}

// TimingConfig returns the time reconstruction configuration of the mode,
// restricted to the rate table buckets in [lo, hi).
func (mode Mode) TimingConfig(lo, hi int) timing.Config {
	return timing.Config{
		CounterField:  mode.Timing.CounterField,
		RateField:     mode.Timing.RateField,
		BucketSeconds: mode.Timing.BucketSeconds,
		OrbitLo:       lo,
		OrbitHi:       hi,
		RiseTime:      mode.Timing.RiseTime,
		ConstTime:     mode.Timing.ConstTime,
		MaxValue:      mode.Timing.MaxValue,
	}
}
