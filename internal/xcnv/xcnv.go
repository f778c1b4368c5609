// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert decoded telemetry records
// to/from LCIO.
//
// Each record is stored as one LCIO event holding a single generic object
// under the "TGF_RECORD" collection: field values are stored as pairs of
// int32 (low, high words), the reconstructed time as a float64.
// The record layout is stored in the run header parameters.
package xcnv // import "github.com/go-lpc/tgf/internal/xcnv"

const (
	detector = "TGF"
	collName = "TGF_RECORD"

	paramFields = "Fields"
	paramBits   = "Bits"
)

func split64(v int64) (lo, hi int32) {
	return int32(uint32(v)), int32(uint32(uint64(v) >> 32))
}

func join64(lo, hi int32) int64 {
	return int64(uint64(uint32(hi))<<32 | uint64(uint32(lo)))
}
