// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package runfolder locates base-call files within an Illumina run
// folder and works out which instrument generation wrote them.
package runfolder

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/elliotnunn/basecall"
)

// DetectMachine inspects a basecalls directory. The instrument
// generation is betrayed only by the files it leaves behind:
// NextSeq-style runs keep lane-level .bcl.bgzf files, the others keep
// per-cycle C<n>.1 directories of .bcl, .bcl.gz or .cbcl files.
func DetectMachine(basecalls string) (basecall.Machine, error) {
	fsys := os.DirFS(basecalls)
	for _, probe := range []struct {
		pattern string
		machine basecall.Machine
	}{
		{"L*/*.bcl.bgzf", basecall.NextSeq},
		{"L*/C*.1/*.cbcl", basecall.NovaSeq},
		{"L*/C*.1/*.bcl.gz", basecall.HiSeqX},
		{"L*/C*.1/*.bcl", basecall.MiSeq},
	} {
		if m, _ := doublestar.Glob(fsys, probe.pattern); len(m) > 0 {
			return probe.machine, nil
		}
	}
	return basecall.MachineUnknown, fmt.Errorf("no base-call files under %s", basecalls)
}

// CyclePath names the base-call file for one lane and cycle the way
// each instrument generation lays it out. The name is the logical
// (uncompressed) one; basecall.Open resolves .gz/.bgzf siblings
// itself.
func CyclePath(basecalls string, m basecall.Machine, lane, cycle, tile, surface int) string {
	laneDir := fmt.Sprintf("L%03d", lane)
	switch m {
	case basecall.NextSeq:
		return filepath.Join(basecalls, laneDir, fmt.Sprintf("%04d.bcl", cycle))
	case basecall.NovaSeq:
		return filepath.Join(basecalls, laneDir, fmt.Sprintf("C%d.1", cycle), fmt.Sprintf("%s_%d.cbcl", laneDir, surface))
	default: // MiSeq, HiSeqX
		return filepath.Join(basecalls, laneDir, fmt.Sprintf("C%d.1", cycle), fmt.Sprintf("s_%d_%04d.bcl", lane, tile))
	}
}

// FilterPath names a lane's pass-filter file, preferring a per-tile
// file over the lane-wide one.
func FilterPath(basecalls string, lane, tile int) string {
	perTile := filepath.Join(basecalls, fmt.Sprintf("L%03d", lane), fmt.Sprintf("s_%d_%04d.filter", lane, tile))
	if _, err := os.Stat(perTile); err == nil {
		return perTile
	}
	return filepath.Join(basecalls, fmt.Sprintf("s_%d.filter", lane))
}

// Cycles lists a lane's cycle numbers, sorted, from its C<n>.1
// directories.
func Cycles(basecalls string, lane int) ([]int, error) {
	fsys := os.DirFS(basecalls)
	dirs, err := doublestar.Glob(fsys, fmt.Sprintf("L%03d/C*.1", lane))
	if err != nil {
		return nil, err
	}
	var cycles []int
	for _, d := range dirs {
		name := strings.TrimSuffix(strings.TrimPrefix(path.Base(d), "C"), ".1")
		n, err := strconv.Atoi(name)
		if err != nil {
			continue // stray directory, not a cycle
		}
		cycles = append(cycles, n)
	}
	slices.Sort(cycles)
	return cycles, nil
}
