package tilesplit

import (
	"fmt"
	"math"
	"math/bits"
)

// ComputeSplitRectangles returns the left and right tiles of a centered 16:10 crop.
// The source must be 16:10 or 3:2 within an absolute ratio tolerance of 0.01.
func ComputeSplitRectangles(width, height uint32) (Rect, Rect, error) {
	if height == 0 || width == 0 {
		return Rect{}, Rect{}, fmt.Errorf("%w: %dx%d", ErrInvalidInput, width, height)
	}

	aspect := float64(width) / float64(height)
	if !isClose(aspect, aspect16x10) && !isClose(aspect, aspect3x2) {
		return Rect{}, Rect{}, fmt.Errorf("%w: %dx%d (%.4f)", ErrUnsupportedAspect, width, height, aspect)
	}

	// targetW exceeds uint32 for heights above about 2.68e9.
	targetW := uint64(math.Round(float64(height) * aspect16x10))
	targetH := uint32(math.Round(float64(width) / aspect16x10))

	var cropX, cropY uint32
	cropW, cropH := width, height
	if targetW <= uint64(width) {
		cropW = uint32(targetW)
		cropX = (width - cropW) / 2
	} else {
		cropH = targetH
		cropY = (height - targetH) / 2
	}
	cropW &^= 1

	if cropW == 0 || cropH == 0 {
		return Rect{}, Rect{}, fmt.Errorf("%w: crop %dx%d", ErrInvalidCrop, cropW, cropH)
	}

	half := cropW / 2
	left := Rect{X: cropX, Y: cropY, Width: half, Height: cropH}
	right := Rect{X: cropX + half, Y: cropY, Width: half, Height: cropH}
	return left, right, nil
}

// TileSize returns the dimensions of one tile for a source resolution.
func TileSize(width, height uint32) (uint32, uint32, error) {
	left, _, err := ComputeSplitRectangles(width, height)
	if err != nil {
		return 0, 0, err
	}
	return left.Width, left.Height, nil
}

// MapRectToGainmap scales r from primary image space into gain map space.
// The top-left corner is floored and the bottom-right corner is ceiled so the
// result covers every gain map pixel under r. The result is never empty when the
// gain map has at least one pixel in each dimension.
func MapRectToGainmap(r Rect, srcW, srcH, gmW, gmH uint32) Rect {
	if srcW == 0 || srcH == 0 {
		return Rect{}
	}
	x0 := scale(uint64(r.X), gmW, srcW, false)
	y0 := scale(uint64(r.Y), gmH, srcH, false)
	x1 := scale(uint64(r.X)+uint64(r.Width), gmW, srcW, true)
	y1 := scale(uint64(r.Y)+uint64(r.Height), gmH, srcH, true)

	x1 = min(x1, uint64(gmW))
	y1 = min(y1, uint64(gmH))
	x0 = min(x0, uint64(gmW))
	y0 = min(y0, uint64(gmH))

	if x1 <= x0 {
		x1 = min(x0+1, uint64(gmW))
	}
	if y1 <= y0 {
		y1 = min(y0+1, uint64(gmH))
	}

	return Rect{
		X:      uint32(x0),
		Y:      uint32(y0),
		Width:  uint32(x1 - x0),
		Height: uint32(y1 - y0),
	}
}

// AspectLabel names the supported aspect ratio of a resolution, or "unknown".
func AspectLabel(width, height uint32) string {
	if height == 0 {
		return "unknown"
	}
	aspect := float64(width) / float64(height)
	switch {
	case isClose(aspect, aspect16x10):
		return "16:10"
	case isClose(aspect, aspect3x2):
		return "3:2"
	default:
		return "unknown"
	}
}

func isClose(a, b float64) bool {
	return math.Abs(a-b) <= aspectTolerance
}

// scale returns v*num/den rounded down or up, saturating on overflow.
func scale(v uint64, num, den uint32, ceil bool) uint64 {
	hi, lo := bits.Mul64(v, uint64(num))
	if hi >= uint64(den) {
		return math.MaxUint64
	}
	q, rem := bits.Div64(hi, lo, uint64(den))
	if ceil && rem != 0 {
		q++
	}
	return q
}
