// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package basecall

import (
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// inflate decompresses a tile block, which must yield exactly want
// bytes. The writer deflates with zlib's automatic header detection
// (windowBits 15+32), so either a gzip or a zlib wrapper is accepted,
// sniffed by magic.
func inflate(comp []byte, want int) ([]byte, error) {
	var (
		zr  io.ReadCloser
		err error
	)
	if len(comp) >= 2 && comp[0] == 0x1f && comp[1] == 0x8b {
		zr, err = gzip.NewReader(bytes.NewReader(comp))
	} else {
		zr, err = zlib.NewReader(bytes.NewReader(comp))
	}
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	raw := make([]byte, want)
	if _, err := io.ReadFull(zr, raw); err != nil {
		return nil, err
	}
	var extra [1]byte
	if n, _ := zr.Read(extra[:]); n != 0 {
		return nil, errors.New("block inflates beyond its declared size")
	}
	return raw, nil
}

// unpackClusters walks an inflated block LSB-first: each cluster is
// bpb base bits then bpq quality-bin bits, back to back, with padding
// only at the end of the block. bpb+bpq divides 8 (validated at open),
// so clusters never straddle byte boundaries.
func unpackClusters(raw []byte, n, bpb, bpq int, binToQual []byte) []Call {
	baseMask := byte(1)<<bpb - 1
	qualMask := byte(1)<<bpq - 1
	per := 8 / (bpb + bpq) // whole clusters per byte

	calls := make([]Call, n)
	for i := range calls {
		b := raw[i/per]
		shift := (i % per) * (bpb + bpq)
		bin := b >> (shift + bpb) & qualMask
		q := binToQual[bin]
		calls[i] = Call{Base: baseChars[b>>shift&baseMask&3], Qual: q}
		if q == 0 {
			// same rule as the legacy decoder: zero quality means the
			// call is unknown, whatever the base bits say
			calls[i].Base = unknownBase
		}
	}
	return calls
}
