package uhdr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/vearutop/tilesplit/internal/jpegx"
	xdraw "golang.org/x/image/draw"
)

var xmpSignatureString = string(jpegx.XMPSignature)

// Decoder reads an UltraHDR container held in memory.
type Decoder struct {
	primary []byte
	gainmap []byte
	meta    *Metadata
	metaErr error
	icc     []byte
}

// NewDecoder splits data into its primary and gain map images and recovers metadata.
// Data without a gain map is accepted; IsUltraHDR reports false for it.
func NewDecoder(data []byte) (*Decoder, error) {
	if !jpegx.HasSOI(data) {
		return nil, jpegx.ErrNotJPEG
	}
	ranges := splitRanges(data)
	if len(ranges) == 0 {
		return nil, errors.New("no JPEG images found")
	}

	d := &Decoder{primary: data[ranges[0][0]:ranges[0][1]]}
	if segs, err := jpegx.HeaderSegments(d.primary); err == nil {
		d.icc = jpegx.CollectICC(segs)
	}
	if len(ranges) < 2 {
		d.metaErr = errors.New("gainmap image not found")
		return d, nil
	}
	d.gainmap = data[ranges[1][0]:ranges[1][1]]
	d.meta, d.metaErr = findMetadata(d.primary, d.gainmap)
	return d, nil
}

// splitRanges prefers the MPF directory and falls back to a marker scan.
func splitRanges(data []byte) [][2]int {
	if ranges, err := jpegx.LocateMPF(data); err == nil && len(ranges) >= 2 {
		p, g := ranges[0], ranges[1]
		if p[0] == 0 && p[1] <= len(data) && jpegx.IsValidRange(data, g[0], g[1]) {
			if end, err := jpegx.FindJPEGEnd(data, 0); err == nil {
				return [][2]int{{0, end}, g}
			}
		}
	}
	return jpegx.ScanJPEGs(data)
}

// findMetadata prefers the gain map XMP, then the primary XMP. The gain map
// ISO block is read only when neither XMP copy parses.
func findMetadata(primary, gainmap []byte) (*Metadata, error) {
	gSegs, err := jpegx.HeaderSegments(gainmap)
	if err != nil {
		return nil, fmt.Errorf("gainmap segments: %w", err)
	}
	pSegs, err := jpegx.HeaderSegments(primary)
	if err != nil {
		return nil, fmt.Errorf("primary segments: %w", err)
	}

	var xmpErr error
	for _, xmp := range [][]byte{jpegx.FindXMP(gSegs), jpegx.FindXMP(pSegs)} {
		if xmp == nil {
			continue
		}
		meta, err := ParseXMP(xmp)
		if err == nil {
			return meta, nil
		}
		xmpErr = err
	}
	if iso := jpegx.FindISO(gSegs); len(iso) > 4 {
		return decodeISO(iso)
	}
	if xmpErr != nil {
		return nil, xmpErr
	}
	return nil, errors.New("no gainmap metadata found")
}

// IsUltraHDR reports whether the container has a gain map and usable metadata.
func (d *Decoder) IsUltraHDR() bool {
	return d.gainmap != nil && d.meta != nil
}

// Metadata returns a copy of the gain map metadata, or nil.
func (d *Decoder) Metadata() *Metadata {
	if d.meta == nil {
		return nil
	}
	m := *d.meta
	return &m
}

// MetadataError explains why Metadata is nil.
func (d *Decoder) MetadataError() error {
	return d.metaErr
}

// ICCProfile returns the ICC profile of the primary image, or nil.
func (d *Decoder) ICCProfile() []byte {
	return d.icc
}

// DecodeSDR decodes the primary image. The gamut is always reported as BT.709.
func (d *Decoder) DecodeSDR() (*Picture, error) {
	img, err := jpeg.Decode(bytes.NewReader(d.primary))
	if err != nil {
		return nil, fmt.Errorf("decode primary: %w", err)
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return &Picture{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Stride:   rgba.Stride,
		Pix:      rgba.Pix,
		Gamut:    GamutBT709,
		Transfer: TransferSRGB,
	}, nil
}

// DecodeGainmap decodes the gain map image.
func (d *Decoder) DecodeGainmap() (*Gainmap, error) {
	if d.gainmap == nil {
		return nil, errors.New("gainmap image not found")
	}
	img, err := jpeg.Decode(bytes.NewReader(d.gainmap))
	if err != nil {
		return nil, fmt.Errorf("decode gainmap: %w", err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if g, ok := img.(*image.Gray); ok {
		pix := make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(pix[y*w:(y+1)*w], g.Pix[y*g.Stride:y*g.Stride+w])
		}
		return &Gainmap{Width: w, Height: h, Channels: 1, Pix: pix}, nil
	}
	pix := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			pix = append(pix, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return &Gainmap{Width: w, Height: h, Channels: 3, Pix: pix}, nil
}
