// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package filter reads Illumina pass-filter files: after a 12-byte
// header, one byte per cluster with bit 0 set when the cluster passed
// instrument quality filtering.
package filter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

var ErrFormat = errors.New("filter: not a pass-filter file")

type Filter struct {
	Version uint32
	Total   uint32 // declared cluster count
	Passed  uint32 // clusters with the pass bit set

	mask []bool
}

// Read parses a whole filter file eagerly.
func Read(path string) (*Filter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 12 {
		return nil, fmt.Errorf("%w: %s: truncated header", ErrFormat, path)
	}
	if binary.LittleEndian.Uint32(raw) != 0 {
		return nil, fmt.Errorf("%w: %s: first word is not zero", ErrFormat, path)
	}
	f := &Filter{
		Version: binary.LittleEndian.Uint32(raw[4:]),
		Total:   binary.LittleEndian.Uint32(raw[8:]),
	}
	body := raw[12:]
	if uint32(len(body)) < f.Total {
		return nil, fmt.Errorf("%w: %s: %d clusters declared, %d present", ErrFormat, path, f.Total, len(body))
	}
	f.mask = make([]bool, f.Total)
	for i := range f.mask {
		if body[i]&1 != 0 {
			f.mask[i] = true
			f.Passed++
		}
	}
	return f, nil
}

// Mask has one entry per cluster, true = passed. The slice is owned by
// the Filter; treat it as read-only.
func (f *Filter) Mask() []bool { return f.mask }
