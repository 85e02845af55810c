// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package basecall decodes Illumina base-call files: the per-cycle,
// per-cluster record of which DNA base was read and with what
// confidence. Three on-disk layouts are understood: one byte per
// cluster (".bcl"), four 2-bit bases per byte (".scl"), and the tiled
// compressed layout (".cbcl") written by the newest instruments.
//
// A File is single-threaded; to decode in parallel, open one File per
// goroutine (see LoadTiles). The only process-wide state is the
// immutable base-symbol table.
package basecall

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFormat  = errors.New("basecall: unrecognized or malformed file")
	ErrCorrupt = errors.New("basecall: corrupt block")
	ErrNoTile  = errors.New("basecall: no such tile")
)

// Variant selects one of the three decode strategies.
type Variant int

const (
	Legacy1Byte Variant = iota // .bcl: [quality:6][base:2] per cluster
	Legacy2Bit                 // .scl: four 2-bit bases per byte, no quality
	Tiled                      // .cbcl: compressed per-tile blocks
)

func (v Variant) String() string {
	switch v {
	case Legacy1Byte:
		return "bcl"
	case Legacy2Bit:
		return "scl"
	case Tiled:
		return "cbcl"
	}
	return "invalid"
}

// Machine is the instrument generation that wrote a run. File content
// alone cannot always disambiguate the variants, so every Open takes
// one as a hint and fails fast on a mismatch.
type Machine int

const (
	MachineUnknown Machine = iota
	MiSeq
	HiSeqX // also HiSeq 3000/4000
	NextSeq
	NovaSeq
)

func (m Machine) String() string {
	switch m {
	case MiSeq:
		return "miseq"
	case HiSeqX:
		return "hiseqx"
	case NextSeq:
		return "nextseq"
	case NovaSeq:
		return "novaseq"
	}
	return "unknown"
}

// ParseMachine maps a user-facing name to a Machine.
func ParseMachine(s string) (Machine, error) {
	switch strings.ToLower(s) {
	case "miseq":
		return MiSeq, nil
	case "hiseq", "hiseqx":
		return HiSeqX, nil
	case "nextseq", "miniseq":
		return NextSeq, nil
	case "novaseq":
		return NovaSeq, nil
	}
	return MachineUnknown, fmt.Errorf("unknown machine type %q", s)
}

// A Call is one decoded cluster: the called base (A, C, G, T or N) and
// its quality. Filtered is set only when a pass-filter mask marked the
// cluster as having failed instrument filtering.
type Call struct {
	Base     byte
	Qual     byte
	Filtered bool
}

var baseChars = [4]byte{'A', 'C', 'G', 'T'}

const unknownBase = 'N'
