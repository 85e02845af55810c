// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package basecall

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// Decoded tile blocks are expensive (seek + inflate + unpack) and seek
// patterns bounce between neighbouring tiles, so each tiled handle
// keeps a few of them behind an admission-controlled cache.
const cachedTiles = 8

type tileCache struct {
	lfu *tinylfu.T[uint32, []Call]
}

func newTileCache() *tileCache {
	return &tileCache{lfu: tinylfu.New[uint32, []Call](cachedTiles, cachedTiles*10, tileHash)}
}

func (c *tileCache) get(tile uint32) ([]Call, bool) {
	return c.lfu.Get(tile)
}

func (c *tileCache) add(tile uint32, calls []Call) {
	c.lfu.Add(tile, calls)
}

func tileHash(tile uint32) uint64 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], tile)
	return xxhash.Sum64(b[:])
}
