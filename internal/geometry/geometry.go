// Package geometry fits panel images to the output frame: a uniform
// cover-fit scale followed by a symmetric center crop. Both functions are
// pure and safe to call from any goroutine.
package geometry

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/ivlev/panel2video/internal/errs"
)

// ScaleToCover resizes img uniformly so that it covers a w×h box. One axis
// matches the box exactly, the other may overshoot it.
func ScaleToCover(img image.Image, w, h int) (*image.RGBA, error) {
	if err := checkSizes(img, w, h); err != nil {
		return nil, err
	}
	b := img.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())

	scale := math.Max(float64(w)/iw, float64(h)/ih)
	nw := int(math.Round(iw * scale))
	nh := int(math.Round(ih * scale))
	// rounding must never leave a gap
	if nw < w {
		nw = w
	}
	if nh < h {
		nh = h
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	if nw == b.Dx() && nh == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst, nil
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

// CropCenter trims symmetric margins so the result is exactly w×h. img must
// be at least as large as the target on both axes.
func CropCenter(img image.Image, w, h int) (*image.RGBA, error) {
	if err := checkSizes(img, w, h); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() < w || b.Dy() < h {
		return nil, errs.New(errs.KindGeometry, "crop",
			fmt.Errorf("image %dx%d is smaller than target %dx%d", b.Dx(), b.Dy(), w, h))
	}

	left := b.Min.X + (b.Dx()-w)/2
	top := b.Min.Y + (b.Dy()-h)/2

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(left, top), draw.Src)
	return dst, nil
}

// Cover is ScaleToCover followed by CropCenter. It also returns the scaled,
// uncropped canvas which bubble coordinates refer to.
func Cover(img image.Image, w, h int) (scaled, cropped *image.RGBA, err error) {
	scaled, err = ScaleToCover(img, w, h)
	if err != nil {
		return nil, nil, err
	}
	cropped, err = CropCenter(scaled, w, h)
	if err != nil {
		return nil, nil, err
	}
	return scaled, cropped, nil
}

func checkSizes(img image.Image, w, h int) error {
	if img == nil {
		return errs.New(errs.KindGeometry, "input", fmt.Errorf("nil image"))
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return errs.New(errs.KindGeometry, "input", fmt.Errorf("degenerate image %dx%d", b.Dx(), b.Dy()))
	}
	if w <= 0 || h <= 0 {
		return errs.New(errs.KindGeometry, "target", fmt.Errorf("degenerate target %dx%d", w, h))
	}
	return nil
}
