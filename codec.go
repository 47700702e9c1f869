package tilesplit

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gen2brain/jpegli"
	"github.com/vearutop/tilesplit/internal/jpegx"
	xdraw "golang.org/x/image/draw"
)

// decodeJPEG decodes data with jpegli behind the fault barrier.
func decodeJPEG(name string, data []byte) (image.Image, error) {
	return guard(name, func() (image.Image, error) {
		return jpegli.Decode(bytes.NewReader(data))
	})
}

// encodeJPEG encodes img with jpegli at 4:4:4 and embeds icc when present.
func encodeJPEG(img image.Image, quality int, icc []byte) ([]byte, error) {
	out, err := guard("jpegli encode", func() ([]byte, error) {
		var buf bytes.Buffer
		err := jpegli.Encode(&buf, img, &jpegli.EncodingOptions{
			Quality:           quality,
			ChromaSubsampling: image.YCbCrSubsampleRatio444,
		})
		return buf.Bytes(), err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode jpeg: %w", ErrIO, err)
	}
	if len(icc) == 0 {
		return out, nil
	}
	return embedICC(out, icc)
}

func embedICC(data, icc []byte) ([]byte, error) {
	payloads, err := jpegx.ICCPayloads(icc)
	if err != nil {
		return nil, fmt.Errorf("%w: icc profile: %w", ErrIO, err)
	}
	pos, err := jpegx.AppInsertPosition(data)
	if err != nil {
		return nil, fmt.Errorf("%w: icc insert position: %w", ErrIO, err)
	}
	out, err := jpegx.InsertSegments(data, pos, jpegx.MarkerAPP2, payloads...)
	if err != nil {
		return nil, fmt.Errorf("%w: embed icc: %w", ErrIO, err)
	}
	return out, nil
}

// toRGBA returns img as a zero-origin RGBA image, converting when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return rgba
}

// rawFromImage packs img into a tightly packed RGB8 buffer.
func rawFromImage(img image.Image, gamut ColorGamut) *RawImage {
	rgba := toRGBA(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	return &RawImage{
		Width:    uint32(w),
		Height:   uint32(h),
		Stride:   uint32(w * 3),
		Format:   PixelRGB8,
		Gamut:    gamut,
		Transfer: TransferSRGB,
		Data:     packRGB(rgba),
	}
}

func packRGB(rgba *image.RGBA) []byte {
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	out := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			out = append(out, row[x], row[x+1], row[x+2])
		}
	}
	return out
}

// imageFromRaw wraps a cropped tile as an image for encoding.
func imageFromRaw(r *RawImage) (image.Image, error) {
	w, h := int(r.Width), int(r.Height)
	channels := r.Format.Channels()
	if channels == 0 || int(r.Stride) < w*channels || len(r.Data) < int(r.Stride)*h {
		return nil, fmt.Errorf("%w: inconsistent %dx%d image buffer", ErrIO, w, h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := r.Data[y*int(r.Stride):]
		dst := img.Pix[y*img.Stride:]
		if channels == 4 {
			copy(dst[:w*4], src[:w*4])
			continue
		}
		for x := 0; x < w; x++ {
			dst[x*4], dst[x*4+1], dst[x*4+2], dst[x*4+3] = src[x*3], src[x*3+1], src[x*3+2], 0xFF
		}
	}
	return img, nil
}

// imageFromGainmap wraps a gain map as a gray or RGBA image for encoding.
func imageFromGainmap(g *GainMap) (image.Image, error) {
	w, h, c := int(g.Width), int(g.Height), int(g.Channels)
	if (c != 1 && c != 3) || len(g.Data) < w*h*c {
		return nil, fmt.Errorf("%w: inconsistent %dx%dx%d gain map buffer", ErrIO, w, h, c)
	}
	if c == 1 {
		gray := image.NewGray(image.Rect(0, 0, w, h))
		copy(gray.Pix, g.Data[:w*h])
		return gray, nil
	}
	return imageFromRaw(&RawImage{Width: g.Width, Height: g.Height, Stride: g.Width * 3, Format: PixelRGB8, Data: g.Data})
}

// decodeGainmapJPEG decodes a gain map with jpegli, keeping gray maps single
// channel and reducing color maps to RGB. When jpegli fails the map is decoded
// with image/jpeg and collapsed to luminance with gamut weights.
func decodeGainmapJPEG(data []byte, gamut ColorGamut) (*GainMap, error) {
	img, err := decodeJPEG("jpegli decode gainmap", data)
	if err == nil {
		return gainmapFromImage(img), nil
	}

	img, ferr := guard("jpeg decode gainmap", func() (image.Image, error) {
		return jpeg.Decode(bytes.NewReader(data))
	})
	if ferr != nil {
		return nil, fmt.Errorf("%w: decode gainmap: %w", ErrIO, ferr)
	}
	if gray, ok := img.(*image.Gray); ok {
		return grayGainmap(gray), nil
	}
	rgba := toRGBA(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	out := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			out = append(out, luminance(row[x], row[x+1], row[x+2], gamut))
		}
	}
	return &GainMap{Width: uint32(w), Height: uint32(h), Channels: 1, Data: out}, nil
}

func gainmapFromImage(img image.Image) *GainMap {
	if gray, ok := img.(*image.Gray); ok {
		return grayGainmap(gray)
	}
	rgba := toRGBA(img)
	return &GainMap{
		Width:    uint32(rgba.Rect.Dx()),
		Height:   uint32(rgba.Rect.Dy()),
		Channels: 3,
		Data:     packRGB(rgba),
	}
}

func grayGainmap(g *image.Gray) *GainMap {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*w:(y+1)*w], g.Pix[off:off+w])
	}
	return &GainMap{Width: uint32(w), Height: uint32(h), Channels: 1, Data: out}
}
