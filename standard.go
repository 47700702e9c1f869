package tilesplit

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/vearutop/tilesplit/internal/jpegx"

	// Registered for imaging.Open on non-JPEG inputs.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// splitStandard produces plain tiles. JPEG inputs go through jpegli so the ICC
// profile survives; anything else, or a failed jpegli attempt, goes through imaging.
func splitStandard(params SplitParams, o *Options) (*Result, error) {
	if isJPEGPath(params.Input) {
		res, err := splitStandardJPEG(params, o)
		if err == nil {
			return res, nil
		}
		o.Logger.Debug("Standard split: jpegli JPEG path failed, falling back to imaging", "error", err)
	}
	return splitStandardImage(params, o)
}

func splitStandardJPEG(params SplitParams, o *Options) (*Result, error) {
	data, err := os.ReadFile(params.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: read input: %w", ErrIO, err)
	}
	img, err := decodeJPEG("jpegli decode", data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrIO, err)
	}
	var icc []byte
	if segs, err := jpegx.HeaderSegments(data); err == nil {
		icc = jpegx.CollectICC(segs)
	}

	src := rawFromImage(img, gamutFromICC(icc))
	left, right, err := ComputeSplitRectangles(src.Width, src.Height)
	if err != nil {
		return nil, err
	}

	res := &Result{Mode: ModeSDR, Tier: TierJpegli}
	for _, t := range []struct {
		rect Rect
		path string
		out  *TileResult
	}{{left, params.LeftOutput, &res.Left}, {right, params.RightOutput, &res.Right}} {
		tile, err := CropRawImage(src, t.rect)
		if err != nil {
			return nil, err
		}
		timg, err := imageFromRaw(tile)
		if err != nil {
			return nil, err
		}
		encoded, err := encodeJPEG(timg, o.SDRQuality, icc)
		if err != nil {
			return nil, err
		}
		if *t.out, err = writeTile(t.path, encoded, t.rect); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func splitStandardImage(params SplitParams, o *Options) (*Result, error) {
	img, err := imaging.Open(params.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: open input: %w", ErrIO, err)
	}
	b := img.Bounds()
	left, right, err := ComputeSplitRectangles(uint32(b.Dx()), uint32(b.Dy()))
	if err != nil {
		return nil, err
	}

	res := &Result{Mode: ModeSDR, Tier: TierImaging}
	for _, t := range []struct {
		rect Rect
		path string
		out  *TileResult
	}{{left, params.LeftOutput, &res.Left}, {right, params.RightOutput, &res.Right}} {
		format, err := imaging.FormatFromFilename(t.path)
		if err != nil {
			return nil, fmt.Errorf("%w: output %s: %w", ErrIO, t.path, err)
		}
		x, y := b.Min.X+int(t.rect.X), b.Min.Y+int(t.rect.Y)
		tile := imaging.Crop(img, image.Rect(x, y, x+int(t.rect.Width), y+int(t.rect.Height)))

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, tile, format, imaging.JPEGQuality(o.FallbackQuality)); err != nil {
			return nil, fmt.Errorf("%w: encode %s: %w", ErrIO, t.path, err)
		}
		if *t.out, err = writeTile(t.path, buf.Bytes(), t.rect); err != nil {
			return nil, err
		}
	}
	return res, nil
}
