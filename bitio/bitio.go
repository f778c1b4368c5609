// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bitio extracts and packs arbitrary-width unsigned integers at
// arbitrary bit offsets of a byte buffer.
//
// Bits are numbered from the most-significant bit of byte 0.
// Two field conventions are supported: Standard, where the first bit of a
// field carries the weight 2^0 and bytes are walked least-significant bit
// first, and Reversed, where the bits of the field are taken in reverse
// order (this is what two of the telemetry formats emit).
package bitio // import "github.com/go-lpc/tgf/bitio"

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIndex is returned when a bit index falls outside of the buffer.
var ErrIndex = errors.New("bitio: bit index out of range")

// Ordering selects how the bits of a field are laid out.
type Ordering uint8

const (
	Standard Ordering = iota
	Reversed
)

func (ord Ordering) String() string {
	switch ord {
	case Standard:
		return "standard"
	case Reversed:
		return "reversed"
	default:
		return fmt.Sprintf("Ordering(%d)", uint8(ord))
	}
}

// ParseOrdering returns the ordering named by s.
// "stupid" is accepted as an alias for Reversed.
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "std":
		return Standard, nil
	case "reversed", "reverse", "stupid":
		return Reversed, nil
	}
	return Standard, fmt.Errorf("bitio: unknown ordering %q", s)
}

// phys maps the n-th bit of the stream onto its buffer bit index.
func phys(n int) int {
	return 8 - 1 - n%8 + (n/8)*8
}

// GetBit returns the bit at index i of buf.
func GetBit(i int, buf []byte) (uint8, error) {
	if i < 0 || i/8 >= len(buf) {
		return 0, fmt.Errorf("%w: bit=%d, len=%d", ErrIndex, i, len(buf))
	}
	return (buf[i/8] >> (7 - uint(i%8))) & 1, nil
}

func setBit(i int, buf []byte, v uint8) error {
	if i < 0 || i/8 >= len(buf) {
		return fmt.Errorf("%w: bit=%d, len=%d", ErrIndex, i, len(buf))
	}
	mask := byte(1) << (7 - uint(i%8))
	switch v {
	case 0:
		buf[i/8] &^= mask
	default:
		buf[i/8] |= mask
	}
	return nil
}

// bitIndex returns the buffer bit index holding the weight 2^(i-start)
// of a length-bit field starting at start.
func bitIndex(i, start, length int, ord Ordering) int {
	if ord == Reversed {
		return phys(2*start + length - i - 1)
	}
	return phys(i)
}

func checkField(start, length int) error {
	switch {
	case start < 0:
		return fmt.Errorf("%w: start=%d", ErrIndex, start)
	case length < 0 || length > 64:
		return fmt.Errorf("bitio: invalid field length %d", length)
	}
	return nil
}

// GetBits returns the length-bit unsigned integer starting at bit start.
func GetBits(start, length int, buf []byte, ord Ordering) (uint64, error) {
	err := checkField(start, length)
	if err != nil {
		return 0, err
	}

	var v uint64
	for i := start; i < start+length; i++ {
		bit, err := GetBit(bitIndex(i, start, length, ord), buf)
		if err != nil {
			return 0, err
		}
		v |= uint64(bit) << uint(i-start)
	}
	return v, nil
}

// PutBits packs the length low bits of v at bit start of buf.
// PutBits is the inverse of GetBits for the same ordering.
func PutBits(start, length int, buf []byte, v uint64, ord Ordering) error {
	err := checkField(start, length)
	if err != nil {
		return err
	}
	if length < 64 && v>>uint(length) != 0 {
		return fmt.Errorf("bitio: value %d overflows %d bits", v, length)
	}

	for i := start; i < start+length; i++ {
		bit := uint8(v>>uint(i-start)) & 1
		err := setBit(bitIndex(i, start, length, ord), buf, bit)
		if err != nil {
			return err
		}
	}
	return nil
}
