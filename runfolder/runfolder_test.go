// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package runfolder

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/elliotnunn/basecall"
)

func touch(t *testing.T, parts ...string) {
	t.Helper()
	path := filepath.Join(parts...)
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o666); err != nil {
		t.Fatal(err)
	}
}

func TestDetectMachine(t *testing.T) {
	for name, tc := range map[string]struct {
		layout []string
		want   basecall.Machine
	}{
		"miseq":   {[]string{"L001/C1.1/s_1_1101.bcl"}, basecall.MiSeq},
		"hiseqx":  {[]string{"L001/C1.1/s_1_1101.bcl.gz"}, basecall.HiSeqX},
		"nextseq": {[]string{"L001/0001.bcl.bgzf"}, basecall.NextSeq},
		"novaseq": {[]string{"L001/C1.1/L001_1.cbcl"}, basecall.NovaSeq},
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for _, p := range tc.layout {
				touch(t, dir, p)
			}
			m, err := DetectMachine(dir)
			if err != nil {
				t.Fatal(err)
			}
			if m != tc.want {
				t.Errorf("detected %v, want %v", m, tc.want)
			}
		})
	}
}

func TestDetectMachineEmpty(t *testing.T) {
	m, err := DetectMachine(t.TempDir())
	if err == nil {
		t.Error("an empty basecalls directory detected as something")
	}
	if m != basecall.MachineUnknown {
		t.Errorf("got %v alongside the error", m)
	}
}

func TestCyclePath(t *testing.T) {
	for _, tc := range []struct {
		machine basecall.Machine
		want    string
	}{
		{basecall.MiSeq, "bc/L002/C7.1/s_2_1103.bcl"},
		{basecall.HiSeqX, "bc/L002/C7.1/s_2_1103.bcl"},
		{basecall.NextSeq, "bc/L002/0007.bcl"},
		{basecall.NovaSeq, "bc/L002/C7.1/L002_1.cbcl"},
	} {
		got := CyclePath("bc", tc.machine, 2, 7, 1103, 1)
		if got != filepath.FromSlash(tc.want) {
			t.Errorf("%v: %s, want %s", tc.machine, got, tc.want)
		}
	}
}

func TestFilterPath(t *testing.T) {
	dir := t.TempDir()

	// without a per-tile file the lane-wide one is named
	if got, want := FilterPath(dir, 1, 1101), filepath.Join(dir, "s_1.filter"); got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	perTile := filepath.Join(dir, "L001", "s_1_1101.filter")
	touch(t, perTile)
	if got := FilterPath(dir, 1, 1101); got != perTile {
		t.Errorf("got %s, want the per-tile %s", got, perTile)
	}
}

func TestCycles(t *testing.T) {
	dir := t.TempDir()
	for _, c := range []string{"C10.1", "C2.1", "C1.1", "Cfoo.1", "Offsets"} {
		if err := os.MkdirAll(filepath.Join(dir, "L001", c), 0o777); err != nil {
			t.Fatal(err)
		}
	}
	got, err := Cycles(dir, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{1, 2, 10}) {
		t.Errorf("cycles = %v, want [1 2 10]", got)
	}
}
