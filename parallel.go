package basecall

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LoadTiles decodes a set of tiles from one tiled file concurrently.
// Handles are not safe for shared use, so each worker opens its own;
// the workers share nothing but immutable tables. workers <= 0 means
// one per CPU. The first error aborts the whole load.
func LoadTiles(path string, machine Machine, tiles []uint32, workers int) (map[uint32][]Call, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var mu sync.Mutex
	out := make(map[uint32][]Call, len(tiles))

	var g errgroup.Group
	g.SetLimit(workers)
	for _, tile := range tiles {
		tile := tile
		g.Go(func() error {
			f, err := Open(path, machine)
			if err != nil {
				return err
			}
			defer f.Close()
			calls, err := f.LoadTile(tile, nil)
			if err != nil {
				return err
			}
			mu.Lock()
			out[tile] = calls
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
