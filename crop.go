package tilesplit

import (
	"fmt"
	"math/bits"
)

// CropRawImage copies r out of src into a new tightly packed image.
func CropRawImage(src *RawImage, r Rect) (*RawImage, error) {
	channels := src.Format.Channels()
	if channels == 0 {
		return nil, fmt.Errorf("%w: unsupported pixel format %d", ErrIO, src.Format)
	}
	if err := checkRect(r, src.Width, src.Height); err != nil {
		return nil, err
	}
	minStride, ok := mulInt(int(src.Width), channels)
	if !ok || int(src.Stride) < minStride {
		return nil, fmt.Errorf("%w: stride %d shorter than %d pixels", ErrIO, src.Stride, src.Width)
	}
	out, err := cropRows(src.Data, int(src.Stride), channels, r)
	if err != nil {
		return nil, err
	}
	return &RawImage{
		Width:    r.Width,
		Height:   r.Height,
		Stride:   r.Width * uint32(channels),
		Format:   src.Format,
		Gamut:    src.Gamut,
		Transfer: src.Transfer,
		Data:     out,
	}, nil
}

// CropGainmap copies r out of src into a new gain map with the same channel count.
func CropGainmap(src *GainMap, r Rect) (*GainMap, error) {
	channels := int(src.Channels)
	if channels == 0 {
		return nil, fmt.Errorf("%w: gain map without channels", ErrInvalidCrop)
	}
	if err := checkRect(r, src.Width, src.Height); err != nil {
		return nil, err
	}
	stride, ok := mulInt(int(src.Width), channels)
	if !ok {
		return nil, fmt.Errorf("%w: gain map row overflows", ErrIO)
	}
	out, err := cropRows(src.Data, stride, channels, r)
	if err != nil {
		return nil, err
	}
	return &GainMap{Width: r.Width, Height: r.Height, Channels: src.Channels, Data: out}, nil
}

func checkRect(r Rect, w, h uint32) error {
	if r.Width == 0 || r.Height == 0 {
		return fmt.Errorf("%w: empty rectangle %s", ErrInvalidCrop, r)
	}
	xEnd, cx := bits.Add32(r.X, r.Width, 0)
	yEnd, cy := bits.Add32(r.Y, r.Height, 0)
	if cx != 0 || cy != 0 || xEnd > w || yEnd > h {
		return fmt.Errorf("%w: rectangle %s outside %dx%d", ErrInvalidCrop, r, w, h)
	}
	return nil
}

// cropRows copies r from a row-major buffer whose rows are stride bytes apart.
func cropRows(data []byte, stride, channels int, r Rect) ([]byte, error) {
	need, ok := mulInt(stride, int(r.Y)+int(r.Height))
	if !ok || len(data) < need {
		return nil, fmt.Errorf("%w: buffer of %d bytes is too short for the declared dimensions", ErrIO, len(data))
	}
	rowLen, ok1 := mulInt(int(r.Width), channels)
	outLen, ok2 := mulInt(rowLen, int(r.Height))
	xOff, ok3 := mulInt(int(r.X), channels)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: crop size overflows", ErrIO)
	}

	out := make([]byte, outLen)
	for row := 0; row < int(r.Height); row++ {
		src := (int(r.Y)+row)*stride + xOff
		end := src + rowLen
		if end > len(data) {
			return nil, fmt.Errorf("%w: row %d out of range", ErrIO, row)
		}
		copy(out[row*rowLen:(row+1)*rowLen], data[src:end])
	}
	return out, nil
}

func mulInt(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > uint64(maxInt) {
		return 0, false
	}
	return int(lo), true
}

const maxInt = int(^uint(0) >> 1)
