// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package locs reads Illumina compressed cluster-position (.clocs)
// files. Positions are stored as byte offsets within 25-pixel bins
// laid out in rows across a 2048-pixel-wide image; coordinates come
// back in the 10x-scaled, 1000-offset convention the rest of the
// pipeline expects.
package locs

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	binSize     = 25
	imageWidth  = 2048
	binsPerLine = (imageWidth + binSize - 1) / binSize
)

var ErrFormat = errors.New("locs: not a clocs file")

type Reader struct {
	f  *os.File
	br *bufio.Reader

	Version     uint8
	TotalBlocks uint32

	block  uint32 // 1-based index of the current bin
	unread uint8  // clusters left in the current bin
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	var hdr [6]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: truncated header", ErrFormat, path)
	}
	return &Reader{
		f:           f,
		br:          br,
		Version:     hdr[0],
		TotalBlocks: binary.LittleEndian.Uint32(hdr[1:5]),
		unread:      hdr[5],
		block:       1,
	}, nil
}

// Next returns the next cluster's flow-cell coordinates, io.EOF after
// the last.
func (r *Reader) Next() (x, y int, err error) {
	for r.unread == 0 && r.block < r.TotalBlocks {
		n, err := r.br.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		r.unread = n
		r.block++
	}
	if r.unread == 0 {
		return 0, 0, io.EOF
	}
	r.unread--

	var d [2]byte
	if _, err := io.ReadFull(r.br, d[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, 0, err
	}
	x = 10*binSize*int((r.block-1)%binsPerLine) + int(d[0]) + 1000
	y = 10*binSize*int((r.block-1)/binsPerLine) + int(d[1]) + 1000
	return x, y, nil
}

// Close releases the file. Closing twice is a no-op.
func (r *Reader) Close() error {
	if r == nil || r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
