package tilesplit

import (
	"errors"
	"testing"
)

func TestComputeSplitRectangles(t *testing.T) {
	for _, tc := range []struct {
		w, h        uint32
		left, right Rect
	}{
		{1500, 1000, Rect{0, 31, 750, 938}, Rect{750, 31, 750, 938}},
		{1600, 1000, Rect{0, 0, 800, 1000}, Rect{800, 0, 800, 1000}},
		{1920, 1200, Rect{0, 0, 960, 1200}, Rect{960, 0, 960, 1200}},
		{6000, 4000, Rect{0, 125, 3000, 3750}, Rect{3000, 125, 3000, 3750}},
		{1601, 1000, Rect{0, 0, 800, 1000}, Rect{800, 0, 800, 1000}},
		// height*1.6 is past the uint32 range, so the crop is vertical.
		{4294967295, 2863311530, Rect{0, 89478485, 2147483647, 2684354559}, Rect{2147483647, 89478485, 2147483647, 2684354559}},
	} {
		left, right, err := ComputeSplitRectangles(tc.w, tc.h)
		if err != nil {
			t.Fatalf("%dx%d: %v", tc.w, tc.h, err)
		}
		if left != tc.left || right != tc.right {
			t.Fatalf("%dx%d: got %s %s, want %s %s", tc.w, tc.h, left, right, tc.left, tc.right)
		}
	}
}

func TestComputeSplitRectanglesErrors(t *testing.T) {
	for _, tc := range []struct {
		w, h uint32
		want error
	}{
		{1000, 0, ErrInvalidInput},
		{0, 1000, ErrInvalidInput},
		{1000, 1000, ErrUnsupportedAspect},
		{1920, 1080, ErrUnsupportedAspect},
		{1, 1, ErrUnsupportedAspect},
	} {
		_, _, err := ComputeSplitRectangles(tc.w, tc.h)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%dx%d: got %v, want %v", tc.w, tc.h, err, tc.want)
		}
	}
}

func TestComputeSplitRectanglesTiling(t *testing.T) {
	for h := uint32(2); h <= 1200; h += 7 {
		for _, ratio := range []float64{aspect16x10, aspect3x2} {
			for _, d := range []int{-1, 0, 1} {
				w := uint32(int(float64(h)*ratio) + d)
				if !isClose(float64(w)/float64(h), aspect16x10) && !isClose(float64(w)/float64(h), aspect3x2) {
					continue
				}
				left, right, err := ComputeSplitRectangles(w, h)
				if err != nil {
					t.Fatalf("%dx%d: %v", w, h, err)
				}
				if left.Width != right.Width || left.Height != right.Height || left.Y != right.Y {
					t.Fatalf("%dx%d: tiles differ: %s %s", w, h, left, right)
				}
				if left.Width == 0 || left.Height == 0 {
					t.Fatalf("%dx%d: empty tile", w, h)
				}
				if right.X != left.X+left.Width || right.X+right.Width > w || left.Y+left.Height > h {
					t.Fatalf("%dx%d: tiles do not tile the crop: %s %s", w, h, left, right)
				}
				// Centered on the cropped axis, give or take rounding and the even width.
				if gap := w - (right.X + right.Width); gap < left.X || gap > left.X+2 {
					t.Fatalf("%dx%d: crop not centered horizontally: %s %s", w, h, left, right)
				}
				if gap := h - (left.Y + left.Height); gap != left.Y && gap != left.Y+1 {
					t.Fatalf("%dx%d: crop not centered vertically: %s", w, h, left)
				}
			}
		}
	}
}

func TestMapRectToGainmapCoverage(t *testing.T) {
	for _, tc := range []struct {
		r          Rect
		srcW, srcH uint32
		gmW, gmH   uint32
	}{
		{Rect{0, 31, 750, 938}, 1500, 1000, 375, 250},
		{Rect{750, 31, 750, 938}, 1500, 1000, 375, 250},
		{Rect{333, 17, 1, 1}, 1000, 1000, 10, 10},
		{Rect{999, 999, 1, 1}, 1000, 1000, 3, 3},
		{Rect{0, 0, 1500, 1000}, 1500, 1000, 1, 1},
		{Rect{7, 3, 11, 5}, 23, 13, 17, 29},
	} {
		g := MapRectToGainmap(tc.r, tc.srcW, tc.srcH, tc.gmW, tc.gmH)
		if g.Width == 0 || g.Height == 0 {
			t.Fatalf("%s: empty gainmap rect", tc.r)
		}
		if g.X+g.Width > tc.gmW || g.Y+g.Height > tc.gmH {
			t.Fatalf("%s: %s exceeds %dx%d", tc.r, g, tc.gmW, tc.gmH)
		}
		// The scaled region must lie inside the mapped rect.
		sx0 := float64(tc.r.X) * float64(tc.gmW) / float64(tc.srcW)
		sx1 := float64(tc.r.X+tc.r.Width) * float64(tc.gmW) / float64(tc.srcW)
		sy0 := float64(tc.r.Y) * float64(tc.gmH) / float64(tc.srcH)
		sy1 := float64(tc.r.Y+tc.r.Height) * float64(tc.gmH) / float64(tc.srcH)
		if float64(g.X) > sx0 || float64(g.X+g.Width) < sx1 || float64(g.Y) > sy0 || float64(g.Y+g.Height) < sy1 {
			t.Fatalf("%s: %s does not cover [%.2f,%.2f]x[%.2f,%.2f]", tc.r, g, sx0, sx1, sy0, sy1)
		}
	}

	if got := MapRectToGainmap(Rect{0, 31, 750, 938}, 1500, 1000, 375, 250); got != (Rect{0, 7, 188, 236}) {
		t.Fatalf("left tile maps to %s", got)
	}
}

func TestAspectLabel(t *testing.T) {
	for _, tc := range []struct {
		w, h uint32
		want string
	}{
		{1920, 1200, "16:10"},
		{1500, 1000, "3:2"},
		{1920, 1080, "unknown"},
		{10, 0, "unknown"},
	} {
		if got := AspectLabel(tc.w, tc.h); got != tc.want {
			t.Fatalf("%dx%d: got %q, want %q", tc.w, tc.h, got, tc.want)
		}
	}
}
