// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-lpc/tgf/bitflip"
	"github.com/go-lpc/tgf/bitio"
	"golang.org/x/sync/errgroup"
)

const (
	// TemperatureOffset is the calibration offset subtracted from
	// every decoded temperature value.
	TemperatureOffset = 55

	// DefaultVerifyThreshold is the default relative timestamp jump
	// above which a record is considered out of frame.
	DefaultVerifyThreshold = 5e-5
)

// Report holds the diagnostics of one Decode call.
type Report struct {
	Records  int  // number of records in the returned dataset
	Resyncs  int  // number of records discarded by the online verification
	Trailing int  // number of trailing bytes not making up a full record
	Pairs    int  // number of bit-flip regions corrected
	Unpaired int  // number of bit-flip candidates left uncorrected
	Filtered bool // whether the filter was applied
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxRecords limits the number of decoded records.
// A value n <= 0 means no limit.
func WithMaxRecords(n int) Option {
	return func(dec *Decoder) {
		dec.max = n
	}
}

// WithOrdering sets the bit ordering of the record fields.
func WithOrdering(ord bitio.Ordering) Option {
	return func(dec *Decoder) {
		dec.ord = ord
	}
}

// WithFilter selects the records matching p.
func WithFilter(p Predicate) Option {
	return func(dec *Decoder) {
		dec.filter = p
	}
}

// WithVerify enables the online timestamp verification and the
// bit-flip correction of the timestamp field.
func WithVerify(v bool) Option {
	return func(dec *Decoder) {
		dec.verify = v
	}
}

// WithVerifyThreshold sets the timestamp jump threshold.
// Values <= 1 are relative to the full range of the timestamp field,
// larger values are absolute.
func WithVerifyThreshold(v float64) Option {
	return func(dec *Decoder) {
		dec.thresh = v
	}
}

// WithLogger sets the logger used to report anomalies.
func WithLogger(msg *log.Logger) Option {
	return func(dec *Decoder) {
		dec.msg = msg
	}
}

type state uint8

const (
	scanning state = iota
	resyncing
)

// Decoder decodes raw buffers into datasets.
type Decoder struct {
	schema *Schema
	ord    bitio.Ordering
	max    int
	filter Predicate
	verify bool
	thresh float64
	msg    *log.Logger

	rep Report
}

// NewDecoder creates a decoder for records laid out according to sc.
func NewDecoder(sc *Schema, opts ...Option) *Decoder {
	dec := &Decoder{
		schema: sc,
		ord:    bitio.Standard,
		thresh: DefaultVerifyThreshold,
	}
	for _, opt := range opts {
		opt(dec)
	}
	if dec.msg == nil {
		dec.msg = log.New(os.Stdout, "record: ", 0)
	}
	return dec
}

// Report returns the diagnostics of the last Decode call.
func (dec *Decoder) Report() Report { return dec.rep }

// Decode decodes all the full records held by buf.
func (dec *Decoder) Decode(buf []byte) (*Dataset, error) {
	dec.rep = Report{}

	nbits := dec.schema.Bits()
	if nbits%8 != 0 {
		return nil, fmt.Errorf("record: record size (%d bits) is not byte-aligned", nbits)
	}

	var (
		bpr    = nbits / 8
		ds     = NewDataset(dec.schema)
		row    = make([]int64, dec.schema.Len())
		its    = dec.schema.Index(FieldTimestamp)
		online = dec.verify && its >= 0
		limit  = dec.threshold()
		cur    = scanning
		off    = 0
	)

	for off+bpr <= len(buf) {
		if dec.max > 0 && ds.Len() >= dec.max {
			break
		}

		err := dec.readRow(row, buf, off)
		if err != nil {
			return nil, fmt.Errorf("record: could not decode record at byte %d: %w", off, err)
		}
		ds.appendRow(row)

		if online && jumped(ds.cols[its], limit) {
			// assume a 2-byte framing slip and retry from there.
			ds.truncate(ds.Len() - 1)
			dec.rep.Resyncs++
			cur = resyncing
			off += 2
			continue
		}

		if cur == resyncing {
			dec.msg.Printf("resynchronized at byte %d", off)
			cur = scanning
		}
		off += bpr
	}
	if off < len(buf) && (dec.max <= 0 || ds.Len() < dec.max) {
		dec.rep.Trailing = len(buf) - off
	}
	if dec.rep.Resyncs > 0 {
		dec.msg.Printf("discarded %d out-of-frame records", dec.rep.Resyncs)
	}

	if dec.schema.Has(FieldTemperature) {
		col := ds.Column(FieldTemperature)
		for i := range col {
			col[i] -= TemperatureOffset
		}
	}

	if dec.verify && its >= 0 {
		err := dec.correct(ds)
		if err != nil {
			return nil, fmt.Errorf("record: could not correct timestamps: %w", err)
		}
	}

	if dec.filter != nil {
		ds = dec.apply(ds)
	}

	dec.rep.Records = ds.Len()
	return ds, nil
}

func (dec *Decoder) readRow(row []int64, buf []byte, off int) error {
	beg := 8 * off
	for i, f := range dec.schema.fields {
		v, err := bitio.GetBits(beg, f.Bits, buf, dec.ord)
		if err != nil {
			return fmt.Errorf("could not read field %q: %w", f.Name, err)
		}
		row[i] = int64(v)
		beg += f.Bits
	}
	return nil
}

func (dec *Decoder) threshold() float64 {
	if dec.thresh > 1 {
		return dec.thresh
	}
	w := dec.schema.Width(FieldTimestamp)
	return dec.thresh * (math.Ldexp(1, w+1) - 1)
}

func jumped(ts []int64, limit float64) bool {
	n := len(ts)
	if n < 2 {
		return false
	}
	d := ts[n-1] - ts[n-2]
	if d < 0 {
		d = -d
	}
	return float64(d) > limit
}

// correct repairs bit flips of the timestamp field, channel by channel.
func (dec *Decoder) correct(ds *Dataset) error {
	var (
		width = dec.schema.Width(FieldTimestamp)
		subs  = []*Dataset{ds}
		idxs  = [][]int{nil}
	)

	if dec.schema.Has(FieldChannel) {
		var err error
		subs, idxs, err = SplitByChannel(ds)
		if err != nil {
			return fmt.Errorf("could not split dataset by channel: %w", err)
		}
	}

	var (
		grp errgroup.Group
		res = make([]bitflip.Result, len(subs))
	)
	for i := range subs {
		i := i
		grp.Go(func() error {
			res[i] = bitflip.Correct(subs[i].Column(FieldTimestamp), width)
			return nil
		})
	}
	err := grp.Wait()
	if err != nil {
		return err
	}

	for i, sub := range subs {
		if idxs[i] != nil {
			err := ds.Scatter(FieldTimestamp, idxs[i], sub.Column(FieldTimestamp))
			if err != nil {
				return fmt.Errorf("could not scatter corrected timestamps: %w", err)
			}
		}
		dec.rep.Pairs += len(res[i].Pairs)
		dec.rep.Unpaired += res[i].Unpaired
		if res[i].Unpaired > 0 {
			dec.msg.Printf(
				"sub-stream %d: %d bit-flip candidates left uncorrected",
				i, res[i].Unpaired,
			)
		}
	}
	return nil
}

func (dec *Decoder) apply(ds *Dataset) *Dataset {
	for _, name := range dec.filter.Fields() {
		if !dec.schema.Has(name) {
			dec.msg.Printf(
				"invalid filter %v: unknown field %q, filtering skipped",
				dec.filter, name,
			)
			return ds
		}
	}

	mask := make([]bool, ds.Len())
	for i := range mask {
		mask[i] = dec.filter.Match(ds, i)
	}
	dec.rep.Filtered = true
	return ds.Subset(mask)
}
