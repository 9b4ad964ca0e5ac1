package facematch

import (
	"image"
	"math"
)

// ScaleRectToFrame maps a box found on a frame downscaled by scale back to the
// coordinates of the full-size frame.
func ScaleRectToFrame(r image.Rectangle, scale float64) image.Rectangle {
	if scale <= 0 || scale == 1 {
		return r
	}
	inv := 1 / scale
	return image.Rect(
		int(math.Round(float64(r.Min.X)*inv)),
		int(math.Round(float64(r.Min.Y)*inv)),
		int(math.Round(float64(r.Max.X)*inv)),
		int(math.Round(float64(r.Max.Y)*inv)),
	)
}

// RelativeBBox converts a pixel box to relative [x, y, w, h] in 0-1 coordinates
// of bounds, clamped to the frame.
func RelativeBBox(r image.Rectangle, bounds image.Rectangle) []float64 {
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}
	c := r.Intersect(bounds)
	if c.Empty() {
		return []float64{0, 0, 0, 0}
	}
	return []float64{
		float64(c.Min.X-bounds.Min.X) / float64(w),
		float64(c.Min.Y-bounds.Min.Y) / float64(h),
		float64(c.Dx()) / float64(w),
		float64(c.Dy()) / float64(h),
	}
}
