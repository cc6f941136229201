package suggest

import (
	"math"
	"strings"

	"github.com/menta2k/snapcrop/pkg/overlay"
	"github.com/menta2k/snapcrop/pkg/projector"
	"github.com/menta2k/snapcrop/pkg/types"
)

// SeedSelection places the overlay selection over subject. The subject box
// is mapped from the displayed image into view space, grown to the overlay's
// minimum size and shifted back inside the view. It reports false, leaving
// the overlay untouched, when the subject is unusable.
func SeedSelection(ov *overlay.Overlay, subject types.Subject, geom projector.DisplayGeometry, minConfidence float64) bool {
	if geom.Empty() || subject.Confidence < minConfidence || strings.EqualFold(subject.Label, "none") {
		return false
	}
	if subject.Box.W <= 0 || subject.Box.H <= 0 {
		return false
	}
	viewW, viewH := ov.ViewSize()
	if viewW <= 0 || viewH <= 0 {
		return false
	}

	r := projector.Unproject(subject.Box, geom.Rect())
	minSize := ov.Config().MinSize
	r.Left, r.Right = grow(r.Left, r.Right, minSize, viewW)
	r.Top, r.Bottom = grow(r.Top, r.Bottom, minSize, viewH)
	ov.SetCropRect(r)
	return true
}

// grow widens [lo, hi] to at least minSize around its center and shifts it
// into [0, limit]. A span wider than limit is cut to the limit.
func grow(lo, hi, minSize, limit float64) (float64, float64) {
	if span := hi - lo; span < minSize {
		c := (lo + hi) / 2
		lo, hi = c-minSize/2, c+minSize/2
	}
	if hi-lo >= limit {
		return 0, limit
	}
	if lo < 0 {
		lo, hi = 0, hi-lo
	}
	if hi > limit {
		lo, hi = lo-(hi-limit), limit
	}
	return math.Max(lo, 0), hi
}
