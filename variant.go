// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package basecall

import (
	"fmt"
	"path/filepath"
	"strings"
)

// detectVariant validates the caller's machine hint against the file's
// naming pattern. Guessing the variant from the extension alone
// mistakes compressed or extensionless names, so a mismatch or an
// unrecognized name is an error at open time, never a guess.
func detectVariant(path string, m Machine) (Variant, error) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".bgzf")

	switch {
	case strings.HasSuffix(name, ".cbcl"):
		if m != NovaSeq {
			return 0, fmt.Errorf("%w: %s is tiled but the machine hint is %s", ErrFormat, path, m)
		}
		return Tiled, nil
	case strings.HasSuffix(name, ".bcl"):
		if err := wantLegacy(path, m); err != nil {
			return 0, err
		}
		return Legacy1Byte, nil
	case strings.HasSuffix(name, ".scl"):
		if err := wantLegacy(path, m); err != nil {
			return 0, err
		}
		return Legacy2Bit, nil
	}
	return 0, fmt.Errorf("%w: %s has no recognized base-call extension", ErrFormat, path)
}

func wantLegacy(path string, m Machine) error {
	switch m {
	case MiSeq, HiSeqX, NextSeq:
		return nil
	case NovaSeq:
		return fmt.Errorf("%w: %s is a legacy file but the machine hint is %s", ErrFormat, path, m)
	}
	return fmt.Errorf("%w: %s needs a machine type hint", ErrFormat, path)
}
