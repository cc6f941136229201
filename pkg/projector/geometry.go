// Package projector maps a selection drawn over a displayed image onto the
// pixels of the full-resolution source bitmap.
//
// The mapping runs through three coordinate spaces:
//
//	view space          the overlay surface, device pixels from its top-left
//	image display space the part of the container the image is drawn into
//	pixel space         the source bitmap
//
// with a normalized [0,1] box as the intermediate step. Every function here
// is pure; nothing is cached between calls because the container size can
// change at any time (rotation, relayout).
package projector

import (
	"math"

	"github.com/menta2k/snapcrop/pkg/types"
)

// DisplayGeometry describes where an image lands inside its container under
// "fit inside, centered, preserve aspect ratio" rendering.
type DisplayGeometry struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
	Width   float64
	Height  float64
}

// Rect returns the image display rectangle in container coordinates
func (g DisplayGeometry) Rect() types.Rect {
	return types.R(g.OffsetX, g.OffsetY, g.OffsetX+g.Width, g.OffsetY+g.Height)
}

// Empty reports whether the geometry has no drawable extent
func (g DisplayGeometry) Empty() bool {
	return g.Width <= 0 || g.Height <= 0
}

// ToImage maps a container point to intrinsic image coordinates.
func (g DisplayGeometry) ToImage(x, y float64) (float64, float64) {
	if g.Scale == 0 {
		return 0, 0
	}
	return (x - g.OffsetX) / g.Scale, (y - g.OffsetY) / g.Scale
}

// ComputeDisplayGeometry derives the fit-center geometry of an image of
// intrinsic size imageW x imageH inside a containerW x containerH box.
// Non-positive sizes produce a zero geometry.
func ComputeDisplayGeometry(containerW, containerH, imageW, imageH float64) DisplayGeometry {
	if containerW <= 0 || containerH <= 0 || imageW <= 0 || imageH <= 0 {
		return DisplayGeometry{}
	}

	scale := math.Min(containerW/imageW, containerH/imageH)
	w := imageW * scale
	h := imageH * scale

	return DisplayGeometry{
		Scale:   scale,
		OffsetX: (containerW - w) / 2,
		OffsetY: (containerH - h) / 2,
		Width:   w,
		Height:  h,
	}
}
