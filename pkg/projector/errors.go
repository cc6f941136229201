package projector

import (
	"fmt"

	"github.com/menta2k/snapcrop/pkg/types"
)

// ErrorKind classifies a projection failure
type ErrorKind int

const (
	// OutsideImage means the selection does not overlap the rendered image.
	OutsideImage ErrorKind = iota + 1
	// DegenerateDisplay means the rendered image has no extent yet.
	DegenerateDisplay
)

func (k ErrorKind) String() string {
	switch k {
	case OutsideImage:
		return "selection outside image"
	case DegenerateDisplay:
		return "degenerate display geometry"
	default:
		return fmt.Sprintf("projection error %d", int(k))
	}
}

// ProjectionError is returned by Project. Both kinds are recoverable: the
// caller reselects, waits for layout, or falls back to the full image.
type ProjectionError struct {
	Kind      ErrorKind
	Selection types.Rect
	Displayed types.Rect
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("%s (selection %.1f,%.1f,%.1f,%.1f; displayed %.1f,%.1f,%.1f,%.1f)",
		e.Kind,
		e.Selection.Left, e.Selection.Top, e.Selection.Right, e.Selection.Bottom,
		e.Displayed.Left, e.Displayed.Top, e.Displayed.Right, e.Displayed.Bottom)
}

// Is matches any ProjectionError of the same kind, so the sentinels below
// work with errors.Is.
func (e *ProjectionError) Is(target error) bool {
	t, ok := target.(*ProjectionError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrOutsideImage      = &ProjectionError{Kind: OutsideImage}
	ErrDegenerateDisplay = &ProjectionError{Kind: DegenerateDisplay}
)
