package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vearutop/tilesplit"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <image>",
		Short: "Show dimensions, tile size and Ultra HDR details of an image",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", tilesplit.ErrIO, err)
			}
			log, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			info, err := tilesplit.Inspect(data, func(o *tilesplit.Options) { o.Logger = log })
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Property", "Value"}, inspectRows(info), nil, shouldColorize(out)))
			return nil
		},
	}
}

func inspectRows(info *tilesplit.Info) [][]string {
	tile := "unsupported aspect"
	if info.TileWidth > 0 {
		tile = fmt.Sprintf("%dx%d", info.TileWidth, info.TileHeight)
	}
	rows := [][]string{
		{"Dimensions", fmt.Sprintf("%dx%d", info.Width, info.Height)},
		{"Aspect", info.Aspect},
		{"Tile", tile},
		{"Gamut", info.Gamut.String()},
		{"ICC profile", iccLabel(info.ICCSize)},
		{"Ultra HDR", yesNo(info.UltraHDR)},
		{"Gain map metadata", yesNo(info.GainmapMetadata)},
	}
	if !info.UltraHDR {
		return rows
	}

	m := info.Metadata
	rows = append(rows,
		[]string{"Tier", info.Tier},
		[]string{"Metadata", info.MetadataSource},
		[]string{"Gain map", fmt.Sprintf("%dx%d, %d channel(s)", info.GainmapWidth, info.GainmapHeight, info.GainmapChannels)},
		[]string{"Max boost", formatChannels(m.MaxContentBoost)},
		[]string{"Min boost", formatChannels(m.MinContentBoost)},
		[]string{"Gamma", formatChannels(m.Gamma)},
		[]string{"Offset SDR", formatChannels(m.OffsetSDR)},
		[]string{"Offset HDR", formatChannels(m.OffsetHDR)},
		[]string{"HDR capacity", fmt.Sprintf("%.4g to %.4g", m.HDRCapacityMin, m.HDRCapacityMax)},
	)
	return rows
}

func formatChannels(v [3]float32) string {
	if v[0] == v[1] && v[1] == v[2] {
		return fmt.Sprintf("%.4g", v[0])
	}
	return fmt.Sprintf("%.4g, %.4g, %.4g", v[0], v[1], v[2])
}

func iccLabel(size int) string {
	if size == 0 {
		return "none"
	}
	return fmt.Sprintf("%d bytes", size)
}
