package uhdr

import "math"

// ColorGamut identifies a supported color gamut.
type ColorGamut int

const (
	GamutUnspecified ColorGamut = iota
	GamutBT709
	GamutDisplayP3
	GamutBT2100
)

// ColorTransfer identifies a supported transfer function.
type ColorTransfer int

const (
	TransferUnspecified ColorTransfer = iota
	TransferSRGB
	TransferLinear
	TransferPQ
	TransferHLG
)

const jpegrVersion = "1.0"

// Metadata holds gain map parameters in linear scale.
type Metadata struct {
	Version         string
	MaxContentBoost [3]float32
	MinContentBoost [3]float32
	Gamma           [3]float32
	OffsetSDR       [3]float32
	OffsetHDR       [3]float32
	HDRCapacityMin  float32
	HDRCapacityMax  float32
	UseBaseCG       bool
}

// Picture is a decoded primary image as packed RGBA8.
type Picture struct {
	Width    int
	Height   int
	Stride   int // bytes per row
	Pix      []byte
	Gamut    ColorGamut
	Transfer ColorTransfer
}

// Gainmap is a decoded gain map with 1 or 3 interleaved channels.
type Gainmap struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

func log2f(v float32) float32 { return float32(math.Log2(float64(v))) }
func exp2f(v float32) float32 { return float32(math.Exp2(float64(v))) }
