// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package basecall

// nextBCL decodes one byte into (base, quality): base in the low 2
// bits, quality in the high 6.
func (f *File) nextBCL() (Call, error) {
	b, err := f.src.ReadByte()
	if err != nil {
		return Call{}, err
	}
	c := Call{Base: baseChars[b&3], Qual: b >> 2}
	if c.Qual == 0 {
		// a zero-confidence call is reported as unknown, whatever the
		// base bits happen to hold
		c.Base = unknownBase
	}
	return c, nil
}

// nextSCL consumes one of four 2-bit fields packed MSB-first in the
// current byte. The format carries no quality, so Qual stays 0.
func (f *File) nextSCL() (Call, error) {
	if !f.haveByte {
		b, err := f.src.ReadByte()
		if err != nil {
			// don't let a stale byte be replayed after EndOfData
			f.subBase = 0
			return Call{}, err
		}
		f.cur, f.haveByte = b, true
	}
	shift := 6 - 2*f.subBase
	c := Call{Base: baseChars[(f.cur>>shift)&3]}
	f.subBase++
	if f.subBase == 4 {
		f.subBase, f.haveByte = 0, false
	}
	return c, nil
}
