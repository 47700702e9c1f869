package tilesplit

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/vearutop/tilesplit/internal/jpegx"
	"github.com/vearutop/tilesplit/internal/uhdr"
)

// Info describes how an input would be split.
type Info struct {
	Width, Height uint32
	// Aspect is "16:10", "3:2" or "unknown".
	Aspect string
	// TileWidth and TileHeight are zero when the aspect is unsupported.
	TileWidth, TileHeight uint32

	UltraHDR bool
	// GainmapMetadata reports whether a streaming marker scan found a second
	// image carrying its own hdrgm XMP or ISO 21496-1 block.
	GainmapMetadata bool
	Tier            string
	MetadataSource  string
	Metadata        *GainMapMetadata
	GainmapWidth    uint32
	GainmapHeight   uint32
	GainmapChannels uint8
	Gamut           ColorGamut
	ICCSize         int
}

// Inspect reports dimensions, aspect, tile size and Ultra HDR details of an image.
func Inspect(data []byte, opts ...func(o *Options)) (*Info, error) {
	o := newOptions(false, opts)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode config: %w", ErrIO, err)
	}
	info := &Info{
		Width:  uint32(cfg.Width),
		Height: uint32(cfg.Height),
		Aspect: AspectLabel(uint32(cfg.Width), uint32(cfg.Height)),
		Gamut:  GamutBT709,
	}
	if w, h, err := TileSize(info.Width, info.Height); err == nil {
		info.TileWidth, info.TileHeight = w, h
	}

	if !jpegx.HasSOI(data) {
		return info, nil
	}
	if found, err := uhdr.Detect(bytes.NewReader(data)); err != nil {
		o.Logger.Debug("inspect: marker scan failed", "error", err)
	} else {
		info.GainmapMetadata = found
	}
	if segs, err := jpegx.HeaderSegments(data); err == nil {
		icc := jpegx.CollectICC(segs)
		info.ICCSize = len(icc)
		info.Gamut = gamutFromICC(icc)
	}

	src, tier, err := extractHDR(data, o.extractors, o.Logger)
	if errors.Is(err, ErrNotUltraHDR) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}
	meta := src.meta
	info.UltraHDR = true
	info.Tier = tier
	info.MetadataSource = src.metaSource
	info.Metadata = &meta
	info.GainmapWidth = src.gainmap.Width
	info.GainmapHeight = src.gainmap.Height
	info.GainmapChannels = src.gainmap.Channels
	return info, nil
}
