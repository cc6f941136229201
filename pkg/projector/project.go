package projector

import (
	"image"
	"math"

	"github.com/menta2k/snapcrop/pkg/types"
)

// Project maps a view-space selection onto the source bitmap.
//
// displayed is the image display rectangle (see DisplayGeometry.Rect) in the
// same space as selection. The result is a non-empty rectangle inside
// [0,srcW] x [0,srcH], or a *ProjectionError.
func Project(selection, displayed types.Rect, srcW, srcH int) (image.Rectangle, error) {
	selection = selection.Canon()

	// A zero-extent display can never overlap the selection, so it has to be
	// reported before the overlap test to be distinguishable.
	if displayed.Empty() || srcW <= 0 || srcH <= 0 {
		return image.Rectangle{}, &ProjectionError{Kind: DegenerateDisplay, Selection: selection, Displayed: displayed}
	}
	if !selection.Intersects(displayed) {
		return image.Rectangle{}, &ProjectionError{Kind: OutsideImage, Selection: selection, Displayed: displayed}
	}

	clamped := Clamp(selection, displayed)
	return ToPixels(Normalize(clamped, displayed), srcW, srcH), nil
}

// Clamp limits every edge of r to the bounds of within, independently.
func Clamp(r, within types.Rect) types.Rect {
	return types.Rect{
		Left:   clamp(r.Left, within.Left, within.Right),
		Top:    clamp(r.Top, within.Top, within.Bottom),
		Right:  clamp(r.Right, within.Left, within.Right),
		Bottom: clamp(r.Bottom, within.Top, within.Bottom),
	}
}

// Normalize expresses r relative to displayed as a [0,1] box.
// displayed must have positive extent.
func Normalize(r, displayed types.Rect) types.Box {
	w, h := displayed.Width(), displayed.Height()
	left := (r.Left - displayed.Left) / w
	top := (r.Top - displayed.Top) / h
	right := (r.Right - displayed.Left) / w
	bottom := (r.Bottom - displayed.Top) / h
	return types.Box{X: left, Y: top, W: right - left, H: bottom - top}
}

// ToPixels scales a normalized box onto a srcW x srcH bitmap.
//
// Left/top clamp into [0, dim-1] and right/bottom into [0, dim], then any
// span that rounding collapsed is widened to one pixel. The result is never
// empty and never leaves the bitmap.
//
// TODO(crop): left/top can sit one unit inside the top-left pixel row or
// column at the far edge; review whether consumers need the symmetric clamp.
func ToPixels(b types.Box, srcW, srcH int) image.Rectangle {
	left := clampInt(floor(b.X*float64(srcW)), 0, srcW-1)
	top := clampInt(floor(b.Y*float64(srcH)), 0, srcH-1)
	right := clampInt(floor(b.Right()*float64(srcW)), 0, srcW)
	bottom := clampInt(floor(b.Bottom()*float64(srcH)), 0, srcH)

	if right-left < 1 {
		right = left + 1
	}
	if bottom-top < 1 {
		bottom = top + 1
	}
	return image.Rect(left, top, right, bottom)
}

// Unproject maps a normalized image box back into the space of displayed.
// It is the inverse of Normalize and is used to place a selection over a
// detected subject.
func Unproject(b types.Box, displayed types.Rect) types.Rect {
	w, h := displayed.Width(), displayed.Height()
	return types.Rect{
		Left:   displayed.Left + clamp(b.X, 0, 1)*w,
		Top:    displayed.Top + clamp(b.Y, 0, 1)*h,
		Right:  displayed.Left + clamp(b.Right(), 0, 1)*w,
		Bottom: displayed.Top + clamp(b.Bottom(), 0, 1)*h,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floor(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Floor(v))
}
