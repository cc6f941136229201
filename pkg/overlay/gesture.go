package overlay

import (
	"math"

	"github.com/menta2k/snapcrop/pkg/types"
)

// Mode is the interaction the current pointer gesture performs
type Mode int

const (
	ModeNone Mode = iota
	ModeMove
	ModeResizeTopLeft
	ModeResizeTopRight
	ModeResizeBottomLeft
	ModeResizeBottomRight
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeMove:
		return "move"
	case ModeResizeTopLeft:
		return "resize-top-left"
	case ModeResizeTopRight:
		return "resize-top-right"
	case ModeResizeBottomLeft:
		return "resize-bottom-left"
	case ModeResizeBottomRight:
		return "resize-bottom-right"
	default:
		return "unknown"
	}
}

// EventKind identifies a raw pointer event
type EventKind int

const (
	EventDown EventKind = iota
	EventMove
	EventUp
	EventCancel
)

// PointerEvent is a pointer sample in the overlay's own coordinates
type PointerEvent struct {
	Kind EventKind
	X    float64
	Y    float64
}

// Gesture holds the active mode and the last pointer position seen.
type Gesture struct {
	Mode  Mode
	LastX float64
	LastY float64
}

// State is everything a pointer event can change.
type State struct {
	Rect    types.Rect
	Gesture Gesture
}

// Limits are the constraints a transition works under.
type Limits struct {
	Width        float64
	Height       float64
	HandleRadius float64
	MinSize      float64
}

// Step applies one pointer event to s and returns the resulting state.
// It has no side effects. Events that do not apply (a move with no active
// gesture) are absorbed and return s unchanged.
func Step(s State, ev PointerEvent, lim Limits) State {
	switch ev.Kind {
	case EventDown:
		s.Gesture = Gesture{
			Mode:  hitTest(s.Rect, ev.X, ev.Y, lim.HandleRadius),
			LastX: ev.X,
			LastY: ev.Y,
		}
	case EventMove:
		if s.Gesture.Mode == ModeNone {
			return s
		}
		dx := ev.X - s.Gesture.LastX
		dy := ev.Y - s.Gesture.LastY
		s.Rect = apply(s.Gesture.Mode, s.Rect, dx, dy, lim)
		s.Gesture.LastX = ev.X
		s.Gesture.LastY = ev.Y
	case EventUp, EventCancel:
		s.Gesture.Mode = ModeNone
	}
	return s
}

// hitTest picks the mode for a pointer going down at (x, y). Corner handles
// win over the inside test since they sit on the rectangle's border.
func hitTest(r types.Rect, x, y, radius float64) Mode {
	reach := radius * 1.5
	switch {
	case near(x, y, r.Left, r.Top, reach):
		return ModeResizeTopLeft
	case near(x, y, r.Right, r.Top, reach):
		return ModeResizeTopRight
	case near(x, y, r.Left, r.Bottom, reach):
		return ModeResizeBottomLeft
	case near(x, y, r.Right, r.Bottom, reach):
		return ModeResizeBottomRight
	case r.Contains(x, y):
		return ModeMove
	default:
		return ModeNone
	}
}

func near(x, y, cx, cy, reach float64) bool {
	return math.Hypot(x-cx, y-cy) <= reach
}

func apply(mode Mode, r types.Rect, dx, dy float64, lim Limits) types.Rect {
	switch mode {
	case ModeMove:
		return moveWithin(r, dx, dy, lim.Width, lim.Height)
	case ModeResizeTopLeft:
		r.Left = moveLow(r.Left, dx, r.Right, lim.MinSize)
		r.Top = moveLow(r.Top, dy, r.Bottom, lim.MinSize)
	case ModeResizeTopRight:
		r.Right = moveHigh(r.Right, dx, r.Left, lim.MinSize, lim.Width)
		r.Top = moveLow(r.Top, dy, r.Bottom, lim.MinSize)
	case ModeResizeBottomLeft:
		r.Left = moveLow(r.Left, dx, r.Right, lim.MinSize)
		r.Bottom = moveHigh(r.Bottom, dy, r.Top, lim.MinSize, lim.Height)
	case ModeResizeBottomRight:
		r.Right = moveHigh(r.Right, dx, r.Left, lim.MinSize, lim.Width)
		r.Bottom = moveHigh(r.Bottom, dy, r.Top, lim.MinSize, lim.Height)
	}
	return r
}

// moveWithin translates r and then pushes it back inside the view per
// axis, so a drag that hits one wall still slides along the other.
func moveWithin(r types.Rect, dx, dy, width, height float64) types.Rect {
	w, h := r.Width(), r.Height()
	r = r.Offset(dx, dy)

	switch {
	case r.Left < 0:
		r.Left, r.Right = 0, w
	case r.Right > width:
		r.Left, r.Right = width-w, width
	}
	switch {
	case r.Top < 0:
		r.Top, r.Bottom = 0, h
	case r.Bottom > height:
		r.Top, r.Bottom = height-h, height
	}
	return r
}

// moveLow moves a left or top edge, keeping minSize to the opposite edge
// and staying at or above zero.
func moveLow(edge, d, opposite, minSize float64) float64 {
	edge = math.Min(edge+d, opposite-minSize)
	if edge < 0 {
		edge = 0
	}
	return edge
}

// moveHigh moves a right or bottom edge, keeping minSize to the opposite
// edge and staying at or below limit.
func moveHigh(edge, d, opposite, minSize, limit float64) float64 {
	edge = math.Max(edge+d, opposite+minSize)
	if edge > limit {
		edge = limit
	}
	return edge
}
