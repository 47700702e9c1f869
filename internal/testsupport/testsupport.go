// Package testsupport builds synthetic inputs for tests.
package testsupport

import (
	"bytes"
	"image"
	"image/color"

	"github.com/gen2brain/jpegli"
	"github.com/nfnt/resize"
	"github.com/vearutop/tilesplit/internal/uhdr"
)

// Fixture controls BuildUltraHDR.
type Fixture struct {
	// GainmapScale is the primary to gain map downscale factor, 4 by default.
	GainmapScale int
	// GainmapValue is the flat gain map level, 128 by default.
	GainmapValue uint8
	// OmitPrimaryXMP leaves the gain map XMP as the only metadata copy.
	OmitPrimaryXMP bool
	// Metadata overrides the default max boost 4, capacity 4 metadata.
	Metadata *uhdr.Metadata
}

// DefaultMetadata returns single-channel metadata with max boost and capacity 4.
func DefaultMetadata() *uhdr.Metadata {
	return &uhdr.Metadata{
		Version:         "1.0",
		MinContentBoost: [3]float32{1, 1, 1},
		MaxContentBoost: [3]float32{4, 4, 4},
		Gamma:           [3]float32{1, 1, 1},
		OffsetSDR:       [3]float32{1.0 / 64, 1.0 / 64, 1.0 / 64},
		OffsetHDR:       [3]float32{1.0 / 64, 1.0 / 64, 1.0 / 64},
		HDRCapacityMin:  1,
		HDRCapacityMax:  4,
	}
}

// Gradient returns an RGBA image whose red channel ramps horizontally and
// green channel ramps vertically.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: 96,
				A: 0xFF,
			})
		}
	}
	return img
}

// EncodeJPEG encodes img with jpegli.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpegli.Encode(&buf, img, &jpegli.EncodingOptions{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PlainJPEG returns a w x h gradient JPEG without a gain map.
func PlainJPEG(w, h int) ([]byte, error) {
	return EncodeJPEG(Gradient(w, h), 90)
}

// BuildUltraHDR returns a w x h Ultra HDR JPEG built from a gradient SDR image
// and a flat gray gain map.
func BuildUltraHDR(w, h int, f Fixture) ([]byte, error) {
	if f.GainmapScale <= 0 {
		f.GainmapScale = 4
	}
	if f.GainmapValue == 0 {
		f.GainmapValue = 128
	}
	meta := f.Metadata
	if meta == nil {
		meta = DefaultMetadata()
	}

	sdr, err := PlainJPEG(w, h)
	if err != nil {
		return nil, err
	}

	full := image.NewGray(image.Rect(0, 0, w, h))
	for i := range full.Pix {
		full.Pix[i] = f.GainmapValue
	}
	gmW, gmH := max(w/f.GainmapScale, 1), max(h/f.GainmapScale, 1)
	gm := resize.Resize(uint(gmW), uint(gmH), full, resize.Bilinear)
	gmJPEG, err := EncodeJPEG(gm, 90)
	if err != nil {
		return nil, err
	}

	return uhdr.NewEncoder().
		SetCompressedSDR(sdr).
		SetExistingGainmapJPEG(gmJPEG, meta).
		OmitPrimaryXMP(f.OmitPrimaryXMP).
		Encode()
}
