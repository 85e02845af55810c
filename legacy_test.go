// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package basecall

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/compress/gzip"
)

func writeLegacy(t *testing.T, name string, total uint32, payload []byte) string {
	t.Helper()
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], total)
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, append(hdr[:], payload...), 0o666); err != nil {
		t.Fatal(err)
	}
	return path
}

func mustNext(t *testing.T, f *File) Call {
	t.Helper()
	c, err := f.Next()
	if err != nil {
		t.Fatalf("Next at cluster %d: %v", f.Cursor(), err)
	}
	return c
}

func TestBCLDecode(t *testing.T) {
	// the shape of a real first cycle: a huge declared total backed by
	// however much data we care to provide
	payload := make([]byte, 400)
	for i := range payload {
		payload[i] = byte(i%4) | 20<<2
	}
	payload[0] = 0          // no confident call at all
	payload[1] = 2          // base bits G but quality 0
	payload[306] = 0 | 30<<2 // base A, quality 30

	f, err := Open(writeLegacy(t, "s_1_1101.bcl", 2609912, payload), MiSeq)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if f.Variant() != Legacy1Byte {
		t.Errorf("variant = %v, want bcl", f.Variant())
	}
	if f.TotalClusters() != 2609912 {
		t.Errorf("total clusters = %d, want 2609912", f.TotalClusters())
	}
	if f.Cursor() != 0 {
		t.Errorf("fresh cursor = %d", f.Cursor())
	}

	if c := mustNext(t, f); c.Base != 'N' || c.Qual != 0 {
		t.Errorf("cluster 0 = %c/%d, want N/0", c.Base, c.Qual)
	}
	if f.Cursor() != 1 {
		t.Errorf("cursor after one decode = %d", f.Cursor())
	}
	if c := mustNext(t, f); c.Base != 'N' || c.Qual != 0 {
		t.Errorf("cluster 1 = %c/%d, want N/0 (zero quality overrides base bits)", c.Base, c.Qual)
	}

	if err := f.Seek(306); err != nil {
		t.Fatal(err)
	}
	if c := mustNext(t, f); c.Base != 'A' || c.Qual != 30 {
		t.Errorf("cluster 306 = %c/%d, want A/30", c.Base, c.Qual)
	}
	if f.Cursor() != 307 {
		t.Errorf("cursor after seek+decode = %d, want 307", f.Cursor())
	}
}

func TestBCLSeekMatchesSequential(t *testing.T) {
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i*37 + 1) // keep quality nonzero-ish, any value decodes
	}
	f, err := Open(writeLegacy(t, "c1.bcl", 64, payload), HiSeqX)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var seq []Call
	for {
		c, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		seq = append(seq, c)
	}
	if len(seq) != 64 {
		t.Fatalf("decoded %d clusters, want 64", len(seq))
	}

	for _, k := range []uint32{0, 1, 5, 33, 63} {
		for i := 0; i < 2; i++ { // seeking is idempotent
			if err := f.Seek(k); err != nil {
				t.Fatal(err)
			}
			if c := mustNext(t, f); c != seq[k] {
				t.Errorf("seek(%d) decoded %+v, sequential gave %+v", k, c, seq[k])
			}
		}
	}
}

func TestSCLDecode(t *testing.T) {
	// 0x1b = 00 01 10 11 -> A C G T, 0xe4 = 11 10 01 00 -> T G C A
	f, err := Open(writeLegacy(t, "s_1_1101.scl", 8, []byte{0x1b, 0xe4}), MiSeq)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if f.Variant() != Legacy2Bit {
		t.Errorf("variant = %v, want scl", f.Variant())
	}

	want := "ACGTTGCA"
	for i := range want {
		c := mustNext(t, f)
		if c.Base != want[i] {
			t.Errorf("cluster %d = %c, want %c", i, c.Base, want[i])
		}
		if c.Qual != 0 {
			t.Errorf("cluster %d quality = %d, scl carries none", i, c.Qual)
		}
		if f.Cursor() != uint32(i+1) {
			t.Errorf("cursor = %d after %d decodes", f.Cursor(), i+1)
		}
	}
	if _, err := f.Next(); err != io.EOF {
		t.Errorf("decode past the last cluster: %v, want io.EOF", err)
	}

	// mid-byte seeks land on the right 2-bit field
	for _, k := range []uint32{5, 2, 7, 0, 3} {
		if err := f.Seek(k); err != nil {
			t.Fatal(err)
		}
		if c := mustNext(t, f); c.Base != want[k] {
			t.Errorf("seek(%d) = %c, want %c", k, c.Base, want[k])
		}
	}
}

func TestEndOfData(t *testing.T) {
	// short data: the declared total outruns the bytes present
	f, err := Open(writeLegacy(t, "short.bcl", 100, []byte{0x78, 0x79}), MiSeq)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	mustNext(t, f)
	mustNext(t, f)
	if _, err := f.Next(); err != io.EOF {
		t.Fatalf("decode past the data: %v, want io.EOF", err)
	}
	// the handle survives end-of-data
	if err := f.Seek(0); err != nil {
		t.Fatal(err)
	}
	if c := mustNext(t, f); c.Base != 'A' || c.Qual != 30 {
		t.Errorf("after rewind got %c/%d, want A/30", c.Base, c.Qual)
	}

	// short total: trailing bytes beyond the declared total are ignored
	f2, err := Open(writeLegacy(t, "short2.bcl", 1, []byte{0x78, 0x79, 0x7a}), MiSeq)
	if err != nil {
		t.Fatal(err)
	}
	defer f2.Close()
	mustNext(t, f2)
	if _, err := f2.Next(); err != io.EOF {
		t.Errorf("decode past the declared total: %v, want io.EOF", err)
	}

	// seeking past the total is not an error, just end-of-data
	if err := f2.Seek(500); err != nil {
		t.Fatal(err)
	}
	if _, err := f2.Next(); err != io.EOF {
		t.Errorf("decode after seeking past the total: %v, want io.EOF", err)
	}
}

func TestOpenMissing(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "nope.bcl"), MiSeq)
	if err == nil {
		f.Close()
		t.Fatal("opening a nonexistent path succeeded")
	}
	if err.Error() == "" {
		t.Error("open failure carries no message")
	}
	if f != nil {
		t.Error("got a non-nil handle alongside the error")
	}
}

func TestVariantMismatch(t *testing.T) {
	dir := t.TempDir()
	for _, tc := range []struct {
		name    string
		machine Machine
	}{
		{"L001_1.cbcl", MiSeq},       // tiled file, legacy hint
		{"s_1_1101.bcl", NovaSeq},    // legacy file, tiled hint
		{"s_1_1101.bcl", MachineUnknown}, // hint is mandatory
		{"mystery", MiSeq},           // no recognized extension
	} {
		path := filepath.Join(dir, tc.name)
		os.WriteFile(path, make([]byte, 16), 0o666)
		if _, err := Open(path, tc.machine); !errors.Is(err, ErrFormat) {
			t.Errorf("Open(%s, %v) = %v, want ErrFormat", tc.name, tc.machine, err)
		}
	}
}

func TestCompressedSiblings(t *testing.T) {
	payload := make([]byte, 32)
	for i := range payload {
		payload[i] = byte(i) | 15<<2
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], 32)
	whole := append(hdr[:], payload...)

	dir := t.TempDir()

	gz := filepath.Join(dir, "c5.bcl.gz")
	gf, err := os.Create(gz)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(gf)
	zw.Write(whole)
	zw.Close()
	gf.Close()

	bg := filepath.Join(dir, "c6.bcl.bgzf")
	bf, err := os.Create(bg)
	if err != nil {
		t.Fatal(err)
	}
	bw := bgzf.NewWriter(bf, 1)
	bw.Write(whole)
	bw.Close()
	bf.Close()

	for _, name := range []string{"c5.bcl", "c6.bcl"} {
		f, err := Open(filepath.Join(dir, name), HiSeqX)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if f.TotalClusters() != 32 {
			t.Errorf("%s: total = %d, want 32", name, f.TotalClusters())
		}
		var seq []Call
		for {
			c, err := f.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatal(err)
			}
			seq = append(seq, c)
		}
		// backward seeks force the decompressor to rewind
		for _, k := range []uint32{20, 3, 31, 0} {
			if err := f.Seek(k); err != nil {
				t.Fatal(err)
			}
			if c := mustNext(t, f); c != seq[k] {
				t.Errorf("%s: seek(%d) = %+v, want %+v", name, k, c, seq[k])
			}
		}
		f.Close()
	}
}

func TestDoubleClose(t *testing.T) {
	f, err := Open(writeLegacy(t, "c9.bcl", 1, []byte{0x78}), MiSeq)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close: %v, want nil", err)
	}
}
