// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package bytesource opens a base-call file as a uniform byte stream.
// A path is resolved by trying the plain file, then a ".gz" sibling,
// then a ".bgzf" sibling, decompressing transparently. Seeks are
// payload-relative: offset 0 is the first byte after whatever header
// the caller has declared with SetBase.
package bytesource

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/compress/gzip"
)

type kind int

const (
	raw kind = iota
	gzipped
	bgzipped
)

type Source struct {
	f  *os.File
	k  kind
	zr *gzip.Reader // gzipped only
	bz *bgzf.Reader // bgzipped only
	br *bufio.Reader

	base   int64 // payload starts this many bytes into the stream
	abs    int64 // bytes consumed since the start of the stream
	closed bool
}

// Open resolves path to a readable stream. The error from a failed
// resolution carries the last underlying OS error so a missing file is
// distinguishable from a permission problem.
func Open(path string) (*Source, error) {
	if f, err := os.Open(path); err == nil {
		s := &Source{f: f, k: raw}
		s.br = bufio.NewReader(f)
		return s, nil
	}
	if f, err := os.Open(path + ".gz"); err == nil {
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s.gz: %w", path, err)
		}
		s := &Source{f: f, k: gzipped, zr: zr}
		s.br = bufio.NewReader(zr)
		return s, nil
	}
	f, err := os.Open(path + ".bgzf")
	if err != nil {
		return nil, fmt.Errorf("open %s (no plain, .gz or .bgzf file): %w", path, err)
	}
	bz, err := bgzf.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s.bgzf: %w", path, err)
	}
	s := &Source{f: f, k: bgzipped, bz: bz}
	s.br = bufio.NewReader(bz)
	return s, nil
}

// SetBase declares that everything consumed so far was header, so that
// payload offset 0 is the current position.
func (s *Source) SetBase() {
	s.base = s.abs
}

func (s *Source) ReadByte() (byte, error) {
	b, err := s.br.ReadByte()
	if err == nil {
		s.abs++
	}
	return b, err
}

func (s *Source) Read(p []byte) (int, error) {
	n, err := s.br.Read(p)
	s.abs += int64(n)
	return n, err
}

// Seek repositions to the given payload offset. Compressed streams
// cannot jump backward, so a backward seek rewinds the decompressor to
// the start of the file and reads forward again.
func (s *Source) Seek(off int64) error {
	target := s.base + off
	switch s.k {
	case raw:
		if _, err := s.f.Seek(target, io.SeekStart); err != nil {
			return err
		}
		s.br.Reset(s.f)
		s.abs = target
		return nil
	case gzipped:
		if target < s.abs {
			if _, err := s.f.Seek(0, io.SeekStart); err != nil {
				return err
			}
			if err := s.zr.Reset(s.f); err != nil {
				return err
			}
			s.br.Reset(s.zr)
			s.abs = 0
		}
	case bgzipped:
		if target < s.abs {
			if err := s.bz.Seek(bgzf.Offset{}); err != nil {
				return err
			}
			s.br.Reset(s.bz)
			s.abs = 0
		}
	}
	return s.discard(target - s.abs)
}

func (s *Source) discard(n int64) error {
	got, err := io.CopyN(io.Discard, s.br, n)
	s.abs += got
	if err == io.EOF {
		// seeking beyond the data is allowed; the next read reports it
		err = nil
	}
	return err
}

// Close releases the stream. It is safe to call more than once, and on
// a nil receiver.
func (s *Source) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	if s.bz != nil {
		s.bz.Close()
	}
	if s.zr != nil {
		s.zr.Close()
	}
	return s.f.Close()
}
