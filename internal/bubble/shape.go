package bubble

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter-circle arc.
const kappa = 0.5522847498

type roundRect struct {
	x0, y0, x1, y1 float32
	r              float32
}

// inset shrinks rr by d on every side, keeping corners concentric.
func (rr roundRect) inset(d float32) roundRect {
	return roundRect{
		x0: rr.x0 + d, y0: rr.y0 + d,
		x1: rr.x1 - d, y1: rr.y1 - d,
		r: max(rr.r-d, 0),
	}
}

func (rr roundRect) empty() bool {
	return rr.x1 <= rr.x0 || rr.y1 <= rr.y0
}

// addTo appends rr as a closed subpath. Clockwise and counter-clockwise
// subpaths cancel, which is how the border ring gets its hole.
func (rr roundRect) addTo(z *vector.Rasterizer, clockwise bool) {
	x0, y0, x1, y1, r := rr.x0, rr.y0, rr.x1, rr.y1, rr.r
	z.MoveTo(x0+r, y0)
	if clockwise {
		z.LineTo(x1-r, y0)
		corner(z, x1-r, y0, x1, y0, x1, y0+r)
		z.LineTo(x1, y1-r)
		corner(z, x1, y1-r, x1, y1, x1-r, y1)
		z.LineTo(x0+r, y1)
		corner(z, x0+r, y1, x0, y1, x0, y1-r)
		z.LineTo(x0, y0+r)
		corner(z, x0, y0+r, x0, y0, x0+r, y0)
	} else {
		corner(z, x0+r, y0, x0, y0, x0, y0+r)
		z.LineTo(x0, y1-r)
		corner(z, x0, y1-r, x0, y1, x0+r, y1)
		z.LineTo(x1-r, y1)
		corner(z, x1-r, y1, x1, y1, x1, y1-r)
		z.LineTo(x1, y0+r)
		corner(z, x1, y0+r, x1, y0, x1-r, y0)
	}
	z.ClosePath()
}

// corner draws the quarter arc from (ax,ay) to (bx,by) bending towards the
// rectangle corner (cx,cy).
func corner(z *vector.Rasterizer, ax, ay, cx, cy, bx, by float32) {
	z.CubeTo(
		ax+kappa*(cx-ax), ay+kappa*(cy-ay),
		bx+kappa*(cx-bx), by+kappa*(cy-by),
		bx, by,
	)
}

// drawRoundedBox paints a white box of the given opacity with a border ring
// at rect. Only the part of rect inside dst is rasterized.
func drawRoundedBox(dst *image.RGBA, rect image.Rectangle, radius, border int, opacity float64, borderColor color.Color) {
	w, h := rect.Dx(), rect.Dy()
	if w <= 0 || h <= 0 {
		return
	}
	vis := rect.Intersect(dst.Bounds())
	if vis.Empty() {
		return
	}
	// box coordinates relative to the visible window
	ox := float32(rect.Min.X - vis.Min.X)
	oy := float32(rect.Min.Y - vis.Min.Y)
	outer := roundRect{
		x0: ox, y0: oy,
		x1: ox + float32(w), y1: oy + float32(h),
		r: float32(min(radius, w/2, h/2)),
	}

	z := vector.NewRasterizer(vis.Dx(), vis.Dy())
	z.DrawOp = draw.Over
	outer.addTo(z, true)
	fill := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: alpha8(opacity)}
	z.Draw(dst, vis, image.NewUniform(fill), image.Point{})

	if border <= 0 {
		return
	}
	z = vector.NewRasterizer(vis.Dx(), vis.Dy())
	outer.addTo(z, true)
	if inner := outer.inset(float32(border)); !inner.empty() {
		inner.addTo(z, false)
	}
	z.Draw(dst, vis, image.NewUniform(borderColor), image.Point{})
}

// drawAsset scales the bubble artwork to rect and blends it at opacity.
func drawAsset(dst *image.RGBA, rect image.Rectangle, asset image.Image, opacity float64) {
	w, h := rect.Dx(), rect.Dy()
	if w <= 0 || h <= 0 {
		return
	}
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), asset, asset.Bounds(), draw.Src, nil)
	mask := image.NewUniform(color.Alpha{A: alpha8(opacity)})
	draw.DrawMask(dst, rect, scaled, image.Point{}, mask, image.Point{}, draw.Over)
}

func alpha8(opacity float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(opacity, 0), 1) * 0xff))
}
