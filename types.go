package tilesplit

import "fmt"

// ColorGamut identifies a supported color gamut.
type ColorGamut int

const (
	GamutBT709 ColorGamut = iota
	GamutDisplayP3
	GamutBT2100
)

func (g ColorGamut) String() string {
	switch g {
	case GamutDisplayP3:
		return "Display P3"
	case GamutBT2100:
		return "BT.2100"
	default:
		return "BT.709"
	}
}

// ColorTransfer identifies a supported transfer function.
type ColorTransfer int

const (
	TransferSRGB ColorTransfer = iota
	TransferLinear
	TransferPQ
	TransferHLG
)

// PixelFormat is the layout of a RawImage pixel.
type PixelFormat int

const (
	PixelRGB8 PixelFormat = iota
	PixelRGBA8
)

// Channels returns bytes per pixel, or 0 for an unknown format.
func (f PixelFormat) Channels() int {
	switch f {
	case PixelRGB8:
		return 3
	case PixelRGBA8:
		return 4
	default:
		return 0
	}
}

// Rect is a pixel-space rectangle.
type Rect struct {
	X, Y          uint32
	Width, Height uint32
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d,%d", r.Width, r.Height, r.X, r.Y)
}

// GainMapMetadata holds gain map parameters. Boost and capacity values are linear.
type GainMapMetadata struct {
	MinContentBoost   [3]float32
	MaxContentBoost   [3]float32
	Gamma             [3]float32
	OffsetSDR         [3]float32
	OffsetHDR         [3]float32
	HDRCapacityMin    float32
	HDRCapacityMax    float32
	UseBaseColorSpace bool
}

// RawImage is a row-major primary image buffer.
type RawImage struct {
	Width    uint32
	Height   uint32
	Stride   uint32 // bytes per row
	Format   PixelFormat
	Gamut    ColorGamut
	Transfer ColorTransfer
	Data     []byte
}

// GainMap is a row-major gain map buffer with 1 or 3 channels and no row padding.
type GainMap struct {
	Width    uint32
	Height   uint32
	Channels uint8
	Data     []byte
}

// SplitParams describes one split invocation.
type SplitParams struct {
	Input       string
	LeftOutput  string
	RightOutput string
	Debug       bool
}
