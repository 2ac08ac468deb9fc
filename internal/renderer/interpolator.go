package renderer

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// ScrollState is the vertical placement of the two panels during a transition
type ScrollState struct {
	Current int // Top edge of the outgoing panel (<= 0)
	Next    int // Top edge of the incoming panel (>= 0)
}

// ScrollAt returns the placement for progress p in [0,1] on a canvas of the given height.
// The incoming panel always starts exactly where the outgoing one ends.
func ScrollAt(p float64, height int) ScrollState {
	eased := EaseInOutQuad(clamp01(p))
	cur := -int(math.Round(lerp(0, float64(height), eased)))
	return ScrollState{Current: cur, Next: height + cur}
}

// ScrollFrame composes one transition frame: from moved up, to entering from below,
// both drawn on a blank w×h canvas
func ScrollFrame(from, to *image.RGBA, w, h int, p float64) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	DrawScroll(frame, from, to, p)
	return frame
}

// DrawScroll is ScrollFrame into an existing frame. Every pixel of dst is
// overwritten, so recycled buffers need no clearing.
func DrawScroll(dst, from, to *image.RGBA, p float64) {
	bounds := dst.Bounds()
	draw.Draw(dst, bounds, image.NewUniform(color.RGBA{A: 0xff}), image.Point{}, draw.Src)

	s := ScrollAt(p, bounds.Dy())
	if from != nil {
		draw.Draw(dst, bounds.Add(image.Pt(0, s.Current)), from, from.Bounds().Min, draw.Src)
	}
	if to != nil {
		draw.Draw(dst, bounds.Add(image.Pt(0, s.Next)), to, to.Bounds().Min, draw.Src)
	}
}

// EaseInOutQuad accelerates until the midpoint and decelerates after it
func EaseInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - 2*(1-t)*(1-t)
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(t float64) float64 {
	return math.Min(math.Max(t, 0), 1)
}
