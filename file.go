// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package basecall

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/elliotnunn/basecall/internal/bytesource"
)

// A File is a handle on one cycle's base calls. Headers and tile
// directories are parsed eagerly by Open, so a File that exists is
// structurally sound. A File is not safe for concurrent use: the
// cursor and the buffered partial byte are mutated in place. Open one
// handle per goroutine instead.
type File struct {
	path    string
	variant Variant
	machine Machine
	src     *bytesource.Source

	total  uint32 // declared cluster count
	cursor uint32 // next cluster to decode

	// Legacy2Bit packs four clusters per byte. subBase is which 2-bit
	// field comes next and cur holds the backing byte; the byte is
	// fetched from the source exactly when subBase wraps to 0 (or after
	// a seek discarded it).
	subBase  int
	cur      byte
	haveByte bool

	tiled *tiledFile // nil unless variant == Tiled
}

// Open parses the file's header (and, for tiled files, its whole tile
// directory) before returning, so structural errors surface here and
// not mid-stream. No handle is returned on error.
func Open(path string, machine Machine) (*File, error) {
	variant, err := detectVariant(path, machine)
	if err != nil {
		return nil, err
	}
	src, err := bytesource.Open(path)
	if err != nil {
		return nil, err
	}

	f := &File{path: path, variant: variant, machine: machine, src: src}
	switch variant {
	case Legacy1Byte, Legacy2Bit:
		var hdr [4]byte
		if _, err := io.ReadFull(src, hdr[:]); err != nil {
			src.Close()
			return nil, fmt.Errorf("%w: %s: truncated cluster-count header", ErrFormat, path)
		}
		f.total = binary.LittleEndian.Uint32(hdr[:])
		src.SetBase()
	case Tiled:
		t, err := parseTiled(src, path)
		if err != nil {
			src.Close()
			return nil, err
		}
		f.tiled = t
		f.total = t.total
	}
	return f, nil
}

func (f *File) Variant() Variant      { return f.variant }
func (f *File) Machine() Machine      { return f.machine }
func (f *File) TotalClusters() uint32 { return f.total }
func (f *File) Cursor() uint32        { return f.cursor }

// Next decodes the cluster at the cursor and advances it. io.EOF means
// no more clusters at the cursor; it is not an error and the handle
// stays usable.
func (f *File) Next() (Call, error) {
	if f.cursor >= f.total {
		return Call{}, io.EOF
	}
	var c Call
	var err error
	switch f.variant {
	case Legacy1Byte:
		c, err = f.nextBCL()
	case Legacy2Bit:
		c, err = f.nextSCL()
	case Tiled:
		c, err = f.nextTiled()
	}
	if err != nil {
		return Call{}, err
	}
	f.cursor++
	return c, nil
}

// Seek repositions the cursor to an absolute cluster index. Seeking
// past the declared total is not an error; the next call to Next
// reports io.EOF. Repeated seeks to the same index followed by a
// decode return the same pair every time.
func (f *File) Seek(cluster uint32) error {
	switch f.variant {
	case Legacy1Byte:
		if err := f.src.Seek(int64(cluster)); err != nil {
			return err
		}
		f.haveByte = false
	case Legacy2Bit:
		if err := f.src.Seek(int64(cluster / 4)); err != nil {
			return err
		}
		f.subBase = int(cluster % 4)
		f.haveByte = false
	case Tiled:
		// nothing to do yet: the containing tile is located and
		// inflated lazily by the next read
	}
	f.cursor = cluster
	return nil
}

// Close releases the underlying stream. Closing twice, or closing a
// nil handle, is a no-op.
func (f *File) Close() error {
	if f == nil || f.src == nil {
		return nil
	}
	err := f.src.Close()
	f.src = nil
	return err
}
