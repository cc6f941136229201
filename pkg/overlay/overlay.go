// Package overlay implements the interactive crop selection drawn above a
// displayed photo: a rectangle that can be moved by dragging its inside and
// resized by dragging one of its four corner handles.
//
// The overlay works purely in its own coordinate space. It does not know
// about the photo underneath; mapping the selection onto the bitmap is the
// job of package projector.
//
// An Overlay is driven from a single goroutine (the UI loop) and is not
// safe for concurrent use.
package overlay

import (
	"errors"
	"image/color"

	"github.com/menta2k/snapcrop/pkg/types"
)

// ErrInvalidSize is returned when the overlay is seeded with a non-positive size.
var ErrInvalidSize = errors.New("overlay: view size must be positive")

// Config holds the geometry and look of the overlay
type Config struct {
	HandleRadius float64
	MinSize      float64
	SeedRatio    float64

	DimColor    color.NRGBA
	FrameColor  color.NRGBA
	HandleColor color.NRGBA
	FrameWidth  float64
}

// DefaultConfig returns the stock overlay configuration
func DefaultConfig() Config {
	return Config{
		HandleRadius: 24,
		MinSize:      80,
		SeedRatio:    0.6,
		DimColor:     color.NRGBA{0, 0, 0, 0x66},
		FrameColor:   color.NRGBA{255, 255, 255, 255},
		HandleColor:  color.NRGBA{255, 255, 255, 255},
		FrameWidth:   4,
	}
}

// Option customizes an Overlay
type Option func(*Overlay)

// WithInvalidate registers the redraw request hook. It is called after
// every change to the rectangle or the gesture.
func WithInvalidate(fn func()) Option {
	return func(o *Overlay) { o.invalidate = fn }
}

// Overlay is the selection rectangle editor
type Overlay struct {
	cfg         Config
	state       State
	width       float64
	height      float64
	initialized bool
	invalidate  func()
}

// New creates an overlay with the given configuration
func New(cfg Config, opts ...Option) *Overlay {
	o := &Overlay{cfg: cfg}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewDefault creates an overlay with DefaultConfig
func NewDefault(opts ...Option) *Overlay {
	return New(DefaultConfig(), opts...)
}

// Config returns the overlay configuration
func (o *Overlay) Config() Config { return o.cfg }

// Resize records a new layout size. The rectangle is seeded on the first
// non-zero size only; later size changes never re-center it.
func (o *Overlay) Resize(width, height float64) {
	o.width, o.height = width, height
	if !o.initialized && width > 0 && height > 0 {
		_ = o.InitCenteredRect(width, height)
	}
}

// InitCenteredRect places a centered rectangle covering SeedRatio of each
// dimension of a width x height view.
func (o *Overlay) InitCenteredRect(width, height float64) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidSize
	}
	o.width, o.height = width, height

	rw := width * o.cfg.SeedRatio
	rh := height * o.cfg.SeedRatio
	left := (width - rw) / 2
	top := (height - rh) / 2
	o.state.Rect = types.R(left, top, left+rw, top+rh)
	o.initialized = true
	o.redraw()
	return nil
}

// SetCropRect places the selection explicitly. Swapped edges are put back
// in order and, once the view size is known, the rectangle is clamped into it.
func (o *Overlay) SetCropRect(r types.Rect) {
	r = r.Canon()
	if o.width > 0 && o.height > 0 {
		r.Left = clamp(r.Left, 0, o.width)
		r.Right = clamp(r.Right, 0, o.width)
		r.Top = clamp(r.Top, 0, o.height)
		r.Bottom = clamp(r.Bottom, 0, o.height)
	}
	o.state.Rect = r
	o.initialized = true
	o.redraw()
}

// CropRect returns a snapshot of the selection in view coordinates.
func (o *Overlay) CropRect() types.Rect { return o.state.Rect }

// Mode returns the active gesture mode
func (o *Overlay) Mode() Mode { return o.state.Gesture.Mode }

// Initialized reports whether the rectangle has been seeded or set
func (o *Overlay) Initialized() bool { return o.initialized }

// ViewSize returns the last known view size
func (o *Overlay) ViewSize() (float64, float64) { return o.width, o.height }

// PointerDown starts a gesture at (x, y)
func (o *Overlay) PointerDown(x, y float64) { o.Handle(PointerEvent{Kind: EventDown, X: x, Y: y}) }

// PointerMove continues the active gesture
func (o *Overlay) PointerMove(x, y float64) { o.Handle(PointerEvent{Kind: EventMove, X: x, Y: y}) }

// PointerUp ends the active gesture
func (o *Overlay) PointerUp() { o.Handle(PointerEvent{Kind: EventUp}) }

// PointerCancel aborts the active gesture. The rectangle keeps its place.
func (o *Overlay) PointerCancel() { o.Handle(PointerEvent{Kind: EventCancel}) }

// Handle feeds one pointer event through Step
func (o *Overlay) Handle(ev PointerEvent) {
	next := Step(o.state, ev, o.limits())
	if next == o.state {
		return
	}
	o.state = next
	o.redraw()
}

func (o *Overlay) limits() Limits {
	return Limits{
		Width:        o.width,
		Height:       o.height,
		HandleRadius: o.cfg.HandleRadius,
		MinSize:      o.cfg.MinSize,
	}
}

func (o *Overlay) redraw() {
	if o.invalidate != nil {
		o.invalidate()
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
