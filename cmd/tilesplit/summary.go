package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/vearutop/tilesplit"
	"github.com/vearutop/tilesplit/internal/fileutil"
)

func printSummary(out io.Writer, input string, res *tilesplit.Result) {
	mode := "SDR"
	if res.Mode == tilesplit.ModeHDR {
		mode = "Ultra HDR"
	}
	fmt.Fprintf(out, "Split %s into %s tiles (tier %s", input, mode, res.Tier)
	if res.MetadataSource != "" {
		fmt.Fprintf(out, ", metadata from %s", res.MetadataSource)
	}
	fmt.Fprintln(out, ")")

	rows := make([][]string, 0, 2)
	for _, t := range []struct {
		side string
		tile tilesplit.TileResult
	}{{"left", res.Left}, {"right", res.Right}} {
		rows = append(rows, []string{
			t.side,
			t.tile.Path,
			t.tile.Rect.String(),
			humanize.Bytes(uint64(t.tile.Size)),
			fileutil.FormatHash(t.tile.Digest),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Tile", "Path", "Crop", "Size", "xxHash"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		shouldColorize(out),
	))
}
