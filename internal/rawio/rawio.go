// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rawio materializes raw telemetry buffers from files.
//
// Plain files are memory-mapped. Files compressed with zstd, s2 (or
// snappy), lz4 or gzip are recognized by their extension or, failing
// that, by their magic bytes, and decompressed in memory.
package rawio // import "github.com/go-lpc/tgf/internal/rawio"

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-lpc/tgf/internal/mmap"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies how a raw buffer file is compressed.
type Codec uint8

const (
	Raw Codec = iota
	Zstd
	S2
	LZ4
	Gzip
)

func (c Codec) String() string {
	switch c {
	case Raw:
		return "raw"
	case Zstd:
		return "zstd"
	case S2:
		return "s2"
	case LZ4:
		return "lz4"
	case Gzip:
		return "gzip"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

var magics = []struct {
	codec Codec
	magic []byte
}{
	{Zstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{LZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
	{Gzip, []byte{0x1f, 0x8b}},
	{S2, []byte("\xff\x06\x00\x00S2sTwO")},
	{S2, []byte("\xff\x06\x00\x00sNaPpY")},
}

// Sniff returns the codec of a file starting with p.
func Sniff(p []byte) Codec {
	for _, m := range magics {
		if bytes.HasPrefix(p, m.magic) {
			return m.codec
		}
	}
	return Raw
}

// CodecFor returns the codec conventionally associated with the
// extension of fname.
func CodecFor(fname string) Codec {
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".zst", ".zstd":
		return Zstd
	case ".s2", ".sz":
		return S2
	case ".lz4":
		return LZ4
	case ".gz":
		return Gzip
	default:
		return Raw
	}
}

// Buffer is a raw buffer read from a file.
type Buffer struct {
	data  []byte
	codec Codec
	h     *mmap.Handle
}

// Open reads the raw buffer held by the named file.
// The buffer must be closed after use.
func Open(fname string) (*Buffer, error) {
	h, err := mmap.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("rawio: could not open %q: %w", fname, err)
	}

	codec := CodecFor(fname)
	if codec == Raw {
		codec = Sniff(h.Bytes())
	}
	if codec == Raw {
		return &Buffer{data: h.Bytes(), codec: codec, h: h}, nil
	}
	defer h.Close()

	data, err := decompress(codec, io.NewSectionReader(h, 0, int64(h.Len())))
	if err != nil {
		return nil, fmt.Errorf("rawio: could not decompress %q (%v): %w", fname, codec, err)
	}
	return &Buffer{data: data, codec: codec}, nil
}

// Bytes returns the content of the raw buffer.
// The returned slice must not be modified, nor used after Close.
func (buf *Buffer) Bytes() []byte { return buf.data }

// Codec returns the codec the buffer was stored with.
func (buf *Buffer) Codec() Codec { return buf.codec }

// Close releases the resources held by the buffer.
func (buf *Buffer) Close() error {
	buf.data = nil
	if buf.h == nil {
		return nil
	}
	err := buf.h.Close()
	buf.h = nil
	if err != nil {
		return fmt.Errorf("rawio: could not unmap buffer: %w", err)
	}
	return nil
}

func decompress(codec Codec, r io.Reader) ([]byte, error) {
	switch codec {
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)
	case S2:
		return io.ReadAll(s2.NewReader(r))
	case LZ4:
		return io.ReadAll(lz4.NewReader(r))
	case Gzip:
		dec, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)
	default:
		return nil, fmt.Errorf("unknown codec %v", codec)
	}
}

// WriteFile writes data to the named file, compressed with codec.
func WriteFile(fname string, data []byte, codec Codec) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("rawio: could not create %q: %w", fname, err)
	}
	defer f.Close()

	w, err := compressor(f, codec)
	if err != nil {
		return fmt.Errorf("rawio: could not create %v writer for %q: %w", codec, fname, err)
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("rawio: could not write %q: %w", fname, err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("rawio: could not flush %q: %w", fname, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("rawio: could not close %q: %w", fname, err)
	}
	return nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func compressor(w io.Writer, codec Codec) (io.WriteCloser, error) {
	switch codec {
	case Raw:
		return nopCloser{w}, nil
	case Zstd:
		return zstd.NewWriter(w)
	case S2:
		return s2.NewWriter(w), nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case Gzip:
		return gzip.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown codec %v", codec)
	}
}
