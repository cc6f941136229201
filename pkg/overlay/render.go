package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter circle
const kappa = 0.5522847498

// Render draws the overlay into dst, which is expected to be a transparent
// layer the size of the view: a dim over the whole surface with the
// selection cut out, the selection frame, and a disk on every corner.
func (o *Overlay) Render(dst draw.Image) {
	b := dst.Bounds()
	r := o.state.Rect

	draw.Draw(dst, b, image.NewUniform(o.cfg.DimColor), image.Point{}, draw.Src)

	inner := image.Rect(round(r.Left), round(r.Top), round(r.Right), round(r.Bottom)).Add(b.Min).Intersect(b)
	draw.Draw(dst, inner, image.Transparent, image.Point{}, draw.Src)

	o.strokeFrame(dst, inner)
	o.drawHandles(dst)
}

// Composite renders the overlay above base. base is drawn at the view's
// origin; the returned image has the view's size when it is known.
func (o *Overlay) Composite(base image.Image) *image.NRGBA {
	w, h := round(o.width), round(o.height)
	if w <= 0 || h <= 0 {
		w, h = base.Bounds().Dx(), base.Bounds().Dy()
	}

	layer := image.NewNRGBA(image.Rect(0, 0, w, h))
	o.Render(layer)

	canvas := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	canvas = imaging.Paste(canvas, base, image.Pt(0, 0))
	return imaging.Overlay(canvas, layer, image.Pt(0, 0), 1.0)
}

func (o *Overlay) strokeFrame(dst draw.Image, r image.Rectangle) {
	if r.Empty() {
		return
	}
	half := int(math.Ceil(o.cfg.FrameWidth / 2))
	if half < 1 {
		half = 1
	}
	src := image.NewUniform(o.cfg.FrameColor)
	edges := []image.Rectangle{
		image.Rect(r.Min.X-half, r.Min.Y-half, r.Max.X+half, r.Min.Y+half),
		image.Rect(r.Min.X-half, r.Max.Y-half, r.Max.X+half, r.Max.Y+half),
		image.Rect(r.Min.X-half, r.Min.Y-half, r.Min.X+half, r.Max.Y+half),
		image.Rect(r.Max.X-half, r.Min.Y-half, r.Max.X+half, r.Max.Y+half),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	}
}

func (o *Overlay) drawHandles(dst draw.Image) {
	b := dst.Bounds()
	if b.Empty() || o.cfg.HandleRadius <= 0 {
		return
	}
	r := o.state.Rect
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	for _, c := range [][2]float64{
		{r.Left, r.Top},
		{r.Right, r.Top},
		{r.Left, r.Bottom},
		{r.Right, r.Bottom},
	} {
		addDisk(z, float32(c[0]), float32(c[1]), float32(o.cfg.HandleRadius))
	}
	z.Draw(dst, b, image.NewUniform(o.cfg.HandleColor), image.Point{})
}

// addDisk appends a closed circle path built from four cubic arcs
func addDisk(z *vector.Rasterizer, cx, cy, rad float32) {
	k := rad * kappa
	z.MoveTo(cx+rad, cy)
	z.CubeTo(cx+rad, cy+k, cx+k, cy+rad, cx, cy+rad)
	z.CubeTo(cx-k, cy+rad, cx-rad, cy+k, cx-rad, cy)
	z.CubeTo(cx-rad, cy-k, cx-k, cy-rad, cx, cy-rad)
	z.CubeTo(cx+k, cy-rad, cx+rad, cy-k, cx+rad, cy)
	z.ClosePath()
}

func round(v float64) int {
	return int(math.Round(v))
}
