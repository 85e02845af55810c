// Command bclcat dumps the base calls of one or more cycle files,
// one "base<TAB>quality" line per cluster.
//
//	bclcat -machine miseq s_1_1101.bcl
//	bclcat -machine novaseq -tile 1101 -filter s_1_1101.filter L001_1.cbcl
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/elliotnunn/basecall"
	"github.com/elliotnunn/basecall/filter"
)

func main() {
	machine := flag.String("machine", "", "instrument generation: miseq, hiseqx, nextseq or novaseq")
	tile := flag.Uint("tile", 0, "dump a single tile of a tiled file")
	limit := flag.Int("limit", 0, "stop after this many clusters (0 = all)")
	filterPath := flag.String("filter", "", "pass-filter file to annotate clusters with")
	flag.Parse()

	m, err := basecall.ParseMachine(*machine)
	if err != nil {
		slog.Error("bad -machine flag", "err", err)
		os.Exit(2)
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: bclcat -machine TYPE [-tile N] [-limit N] [-filter FILE] file...")
		os.Exit(2)
	}

	var mask []bool
	if *filterPath != "" {
		pf, err := filter.Read(*filterPath)
		if err != nil {
			slog.Error("cannot read pass-filter file", "path", *filterPath, "err", err)
			os.Exit(1)
		}
		mask = pf.Mask()
	}

	status := 0
	w := bufio.NewWriter(os.Stdout)
	for _, path := range flag.Args() {
		if err := dump(w, path, m, uint32(*tile), *limit, mask); err != nil {
			slog.Error("dump failed", "path", path, "err", err)
			status = 1
		}
	}
	w.Flush()
	os.Exit(status)
}

func dump(w io.Writer, path string, m basecall.Machine, tile uint32, limit int, mask []bool) error {
	f, err := basecall.Open(path, m)
	if err != nil {
		return err
	}
	defer f.Close()

	if tile != 0 {
		calls, err := f.LoadTile(tile, mask)
		if err != nil {
			return err
		}
		if limit > 0 && len(calls) > limit {
			calls = calls[:limit]
		}
		for _, c := range calls {
			printCall(w, c)
		}
		return nil
	}

	for n := 0; limit == 0 || n < limit; n++ {
		c, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		printCall(w, c)
	}
	return nil
}

func printCall(w io.Writer, c basecall.Call) {
	if c.Filtered {
		fmt.Fprintf(w, "%c\t%d\tfiltered\n", c.Base, c.Qual)
	} else {
		fmt.Fprintf(w, "%c\t%d\n", c.Base, c.Qual)
	}
}
