// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Tiled (.cbcl) layout, little-endian throughout:
//
//	version      u16   must be 1
//	header_size  u32   file offset of the first tile's block
//	bits_per_base u8
//	bits_per_qual u8
//	bin count    u32   == 1<<bits_per_qual
//	bins         count * (bin u32, quality u32)
//	tile count   u32
//	directory    count * (tile u32, clusters u32, uncompressed u32, compressed u32)
//	excludeNonPF u8
//
// Tile blocks follow back to back in directory order starting at
// header_size. Within a block, each cluster is bits_per_base base bits
// then bits_per_qual quality-bin bits, packed LSB-first with padding
// only at the end of the block.

package basecall

import (
	"encoding/binary"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/elliotnunn/basecall/internal/bytesource"
)

// A Tile is one directory entry of a tiled file. Offset is derived
// once at open time: header_size plus the compressed sizes of all
// prior tiles.
type Tile struct {
	Number       uint32
	Clusters     uint32
	Uncompressed uint32
	Compressed   uint32
	Offset       int64

	start uint32 // index of the tile's first cluster within the file
}

// TiledHeader is the fixed part of a tiled file's header.
type TiledHeader struct {
	Version     uint16
	HeaderSize  uint32
	BitsPerBase uint8
	BitsPerQual uint8
	// BinToQual maps a stored quality-bin index to the quality value
	// it stands for; it has exactly 1<<BitsPerQual entries.
	BinToQual []byte
	// ExcludesNonPF means tile blocks store only clusters that passed
	// instrument filtering.
	ExcludesNonPF bool
}

type tiledFile struct {
	hdr   TiledHeader
	tiles []Tile
	total uint32
	cache *tileCache
}

func parseTiled(src *bytesource.Source, path string) (*tiledFile, error) {
	var fixed [12]byte
	if _, err := io.ReadFull(src, fixed[:]); err != nil {
		return nil, fmt.Errorf("%w: %s: truncated header", ErrFormat, path)
	}
	t := &tiledFile{hdr: TiledHeader{
		Version:     binary.LittleEndian.Uint16(fixed[0:]),
		HeaderSize:  binary.LittleEndian.Uint32(fixed[2:]),
		BitsPerBase: fixed[6],
		BitsPerQual: fixed[7],
	}}
	if t.hdr.Version != 1 {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrFormat, path, t.hdr.Version)
	}
	bpb, bpq := int(t.hdr.BitsPerBase), int(t.hdr.BitsPerQual)
	if bpb < 1 || bpq < 1 || bpb+bpq > 8 || 8%(bpb+bpq) != 0 {
		return nil, fmt.Errorf("%w: %s: %d+%d bit clusters do not pack into bytes", ErrFormat, path, bpb, bpq)
	}

	nbins := binary.LittleEndian.Uint32(fixed[8:])
	if nbins != 1<<bpq {
		return nil, fmt.Errorf("%w: %s: %d quality bins for %d-bit bin field, want %d", ErrFormat, path, nbins, bpq, 1<<bpq)
	}
	bins := make([]byte, 8*nbins)
	if _, err := io.ReadFull(src, bins); err != nil {
		return nil, fmt.Errorf("%w: %s: truncated quality-bin table", ErrFormat, path)
	}
	t.hdr.BinToQual = make([]byte, nbins)
	for i := uint32(0); i < nbins; i++ {
		bin := binary.LittleEndian.Uint32(bins[8*i:])
		qual := binary.LittleEndian.Uint32(bins[8*i+4:])
		if bin >= nbins || qual > 0xff {
			return nil, fmt.Errorf("%w: %s: quality bin entry %d -> %d out of range", ErrFormat, path, bin, qual)
		}
		t.hdr.BinToQual[bin] = byte(qual)
	}

	var count [4]byte
	if _, err := io.ReadFull(src, count[:]); err != nil {
		return nil, fmt.Errorf("%w: %s: truncated tile count", ErrFormat, path)
	}
	ntiles := binary.LittleEndian.Uint32(count[:])
	dir := make([]byte, 16*ntiles)
	if _, err := io.ReadFull(src, dir); err != nil {
		return nil, fmt.Errorf("%w: %s: truncated tile directory", ErrFormat, path)
	}
	pf, err := src.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: truncated header", ErrFormat, path)
	}
	t.hdr.ExcludesNonPF = pf != 0

	parsed := uint32(12 + 8*nbins + 4 + 16*ntiles + 1)
	if t.hdr.HeaderSize < parsed {
		return nil, fmt.Errorf("%w: %s: header size %d overlaps the %d-byte directory", ErrFormat, path, t.hdr.HeaderSize, parsed)
	}

	offset := int64(t.hdr.HeaderSize)
	t.tiles = make([]Tile, ntiles)
	for i := range t.tiles {
		ent := dir[16*i:]
		t.tiles[i] = Tile{
			Number:       binary.LittleEndian.Uint32(ent[0:]),
			Clusters:     binary.LittleEndian.Uint32(ent[4:]),
			Uncompressed: binary.LittleEndian.Uint32(ent[8:]),
			Compressed:   binary.LittleEndian.Uint32(ent[12:]),
			Offset:       offset,
			start:        t.total,
		}
		offset += int64(t.tiles[i].Compressed)
		t.total += t.tiles[i].Clusters
	}
	t.cache = newTileCache()
	return t, nil
}

// Tiles lists the tile directory in on-disk order. Nil for non-tiled
// files.
func (f *File) Tiles() []Tile {
	if f.tiled == nil {
		return nil
	}
	return slices.Clone(f.tiled.tiles)
}

// Header returns the tiled header; ok is false for non-tiled files.
func (f *File) Header() (hdr TiledHeader, ok bool) {
	if f.tiled == nil {
		return TiledHeader{}, false
	}
	return f.tiled.hdr, true
}

// LoadTile inflates and unpacks one tile's block into its decoded
// clusters. Corruption is fatal to this tile's load only: the handle,
// and sibling tiles, stay usable.
//
// mask is an optional pass-filter mask, one entry per flow-cell
// cluster, true = passed. With a mask, failed clusters come back with
// Filtered set; when the file stores only passing clusters, the block
// is also expanded so that every flow-cell position gets an entry
// (failed positions read as N with quality 0).
//
// Without a mask the returned slice is shared with the handle's tile
// cache; treat it as read-only.
func (f *File) LoadTile(tile uint32, mask []bool) ([]Call, error) {
	if f.variant != Tiled {
		return nil, fmt.Errorf("%w: %s is not a tiled file", ErrFormat, f.path)
	}
	i := slices.IndexFunc(f.tiled.tiles, func(t Tile) bool { return t.Number == tile })
	if i < 0 {
		return nil, fmt.Errorf("%w: tile %d in %s", ErrNoTile, tile, f.path)
	}
	calls, err := f.loadBlock(i)
	if err != nil {
		return nil, err
	}
	if mask == nil {
		return calls, nil
	}
	return applyMask(calls, mask, f.tiled.hdr.ExcludesNonPF), nil
}

// loadBlock returns tile i's decoded clusters, reading and inflating
// the block unless a cached copy is live.
func (f *File) loadBlock(i int) ([]Call, error) {
	t := f.tiled
	tile := &t.tiles[i]
	if calls, ok := t.cache.get(tile.Number); ok {
		return calls, nil
	}

	bits := int(t.hdr.BitsPerBase) + int(t.hdr.BitsPerQual)
	if need := (int64(tile.Clusters)*int64(bits) + 7) / 8; int64(tile.Uncompressed) != need {
		return nil, fmt.Errorf("%w: tile %d of %s: %d clusters need %d bytes, directory says %d",
			ErrCorrupt, tile.Number, f.path, tile.Clusters, need, tile.Uncompressed)
	}
	if err := f.src.Seek(tile.Offset); err != nil {
		return nil, err
	}
	comp := make([]byte, tile.Compressed)
	if n, err := io.ReadFull(f.src, comp); err != nil {
		return nil, fmt.Errorf("%w: tile %d of %s: block truncated at %d of %d bytes",
			ErrCorrupt, tile.Number, f.path, n, tile.Compressed)
	}
	raw, err := inflate(comp, int(tile.Uncompressed))
	if err != nil {
		return nil, fmt.Errorf("%w: tile %d of %s: %v", ErrCorrupt, tile.Number, f.path, err)
	}

	calls := unpackClusters(raw, int(tile.Clusters), int(t.hdr.BitsPerBase), int(t.hdr.BitsPerQual), t.hdr.BinToQual)
	t.cache.add(tile.Number, calls)
	return calls, nil
}

func (f *File) nextTiled() (Call, error) {
	t := f.tiled
	i := sort.Search(len(t.tiles), func(i int) bool {
		return t.tiles[i].start+t.tiles[i].Clusters > f.cursor
	})
	if i == len(t.tiles) {
		return Call{}, io.EOF
	}
	calls, err := f.loadBlock(i)
	if err != nil {
		return Call{}, err
	}
	return calls[f.cursor-t.tiles[i].start], nil
}

func applyMask(calls []Call, mask []bool, excludesNonPF bool) []Call {
	if !excludesNonPF {
		out := slices.Clone(calls)
		for i := range out {
			if i < len(mask) && !mask[i] {
				out[i].Filtered = true
			}
		}
		return out
	}
	// the block stored only passing clusters; spread them back over
	// flow-cell positions
	out := make([]Call, len(mask))
	j := 0
	for i, pass := range mask {
		if pass && j < len(calls) {
			out[i] = calls[j]
			j++
		} else {
			out[i] = Call{Base: unknownBase, Filtered: true}
		}
	}
	return out
}

// TileSurface returns the most significant digit of a tile number,
// which names the flow-cell surface the tile was imaged on.
func TileSurface(tile uint32) int {
	s := tile / 1000
	for s > 9 {
		s /= 10
	}
	return int(s)
}
