// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"errors"
	"sort"
)

// ErrNoChannel is returned when a dataset has no channel field.
var ErrNoChannel = errors.New("record: no channel field")

// SplitByChannel partitions ds by the value of its channel field.
// Channels are returned in ascending order, along with the indices of
// their records in ds.
func SplitByChannel(ds *Dataset) ([]*Dataset, [][]int, error) {
	if !ds.Schema().Has(FieldChannel) {
		return nil, nil, ErrNoChannel
	}
	chans := ds.Column(FieldChannel)

	var (
		keys   []int64
		groups = make(map[int64][]int)
	)
	for i, c := range chans {
		if _, ok := groups[c]; !ok {
			keys = append(keys, c)
		}
		groups[c] = append(groups[c], i)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	var (
		subs = make([]*Dataset, len(keys))
		idxs = make([][]int, len(keys))
	)
	for i, k := range keys {
		idxs[i] = groups[k]
		subs[i] = ds.Take(groups[k])
	}
	return subs, idxs, nil
}
