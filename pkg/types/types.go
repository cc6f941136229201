package types

import "math"

// Rect is an axis-aligned rectangle with floating point edges.
//
// A Rect carries no coordinate space of its own; the function that
// produces it names the space (view, image display). Values are copied,
// never shared, between spaces.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// R is shorthand for Rect{l, t, r, b}.
func R(l, t, r, b float64) Rect {
	return Rect{Left: l, Top: t, Right: r, Bottom: b}
}

// Width returns the horizontal span
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical span
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Empty reports whether the rectangle has no positive area
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// Intersects reports whether r and o share a region of positive area.
func (r Rect) Intersects(o Rect) bool {
	return r.Left < o.Right && o.Left < r.Right && r.Top < o.Bottom && o.Top < r.Bottom
}

// Offset returns r translated by (dx, dy)
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

// Canon returns r with swapped edges put back in order.
func (r Rect) Canon() Rect {
	return Rect{
		Left:   math.Min(r.Left, r.Right),
		Top:    math.Min(r.Top, r.Bottom),
		Right:  math.Max(r.Left, r.Right),
		Bottom: math.Max(r.Top, r.Bottom),
	}
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the right edge of the box
func (b Box) Right() float64 { return b.X + b.W }

// Bottom returns the bottom edge of the box
func (b Box) Bottom() float64 { return b.Y + b.H }

// Subject is the dominant subject reported by a detector
type Subject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Detection is the parsed answer of a vision model
type Detection struct {
	Subject     Subject  `json:"subject"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// HistoryItem is one entry of the capture history log
type HistoryItem struct {
	ID        string `json:"id"`
	ImagePath string `json:"image_path"`
	Example   string `json:"example"`
	Timestamp int64  `json:"timestamp"`
}

// OutputOptions controls how a cropped image is written
type OutputOptions struct {
	Dir       string
	Prefix    string
	Extension string
	Quality   int
	Lossless  bool
}
