// Package bubble draws dialogue bubbles onto panel canvases.
//
// A bubble is anchored at its top-left corner, given in percent of the
// canvas it is drawn on. With both width and height percentages the box is
// fixed and the text is wrapped into it; otherwise the box is sized around a
// single measured line. Render never modifies its input canvas.
package bubble

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"log"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/ivlev/panel2video/internal/config"
	"github.com/ivlev/panel2video/internal/job"
)

// maxAutoWidth caps the measured text width relative to the canvas width.
const maxAutoWidth = 0.85

// charWidthRatio approximates an average glyph advance as a share of the font size.
const charWidthRatio = 0.5

// Renderer holds the immutable styling of one build. It is safe for
// concurrent use.
type Renderer struct {
	font     *opentype.Font
	fontSize float64

	padding   int
	border    int
	radius    int
	opacity   float64
	borderClr color.RGBA
	textClr   color.RGBA

	asset image.Image // nil when no bubble artwork is configured

	logger *log.Logger
}

// Box is the laid-out geometry of one bubble on a canvas.
type Box struct {
	Rect  image.Rectangle
	Lines []string
}

// New prepares a renderer from cfg. Font and artwork are loaded once here.
func New(cfg config.VideoConfig, logger *log.Logger) (*Renderer, error) {
	if logger == nil {
		logger = log.Default()
	}
	borderClr, err := config.ParseHexColor(cfg.BubbleBorderColor)
	if err != nil {
		return nil, fmt.Errorf("border color: %w", err)
	}
	textClr, err := config.ParseHexColor(cfg.BubbleTextColor)
	if err != nil {
		return nil, fmt.Errorf("text color: %w", err)
	}
	if cfg.FontSize <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %v", cfg.FontSize)
	}

	f, name, err := loadFont(cfg.FontPaths, logger)
	if err != nil {
		return nil, err
	}
	logger.Printf("[*] Шрифт для реплик: %s (%.0f pt)", name, cfg.FontSize)

	r := &Renderer{
		font:      f,
		fontSize:  cfg.FontSize,
		padding:   cfg.BubblePadding,
		border:    cfg.BubbleBorderWidth,
		radius:    cfg.BubbleRadius,
		opacity:   cfg.BubbleOpacity,
		borderClr: borderClr,
		textClr:   textClr,
		logger:    logger,
	}

	if cfg.BubbleAssetPath != "" {
		asset, err := loadAsset(cfg.BubbleAssetPath)
		if err != nil {
			// falls back to the drawn rounded box
			logger.Printf("[!] Не удалось загрузить фон реплики %s: %v", cfg.BubbleAssetPath, err)
		} else {
			r.asset = asset
		}
	}
	return r, nil
}

func loadAsset(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	return img, nil
}

// Layout computes where b lands on a canvasW×canvasH canvas and how its text
// is broken into lines.
func (r *Renderer) Layout(canvasW, canvasH int, b job.Bubble) (Box, error) {
	face, err := newFace(r.font, r.fontSize)
	if err != nil {
		return Box{}, err
	}
	defer face.Close()
	return r.layout(face, canvasW, canvasH, b), nil
}

func (r *Renderer) layout(face font.Face, canvasW, canvasH int, b job.Bubble) Box {
	text := norm.NFC.String(b.Text)
	x := int(b.XPercent / 100 * float64(canvasW))
	y := int(b.YPercent / 100 * float64(canvasH))

	if b.HasExplicitSize() {
		bw := int(*b.WidthPercent / 100 * float64(canvasW))
		bh := int(*b.HeightPercent / 100 * float64(canvasH))
		cols := max(int(float64(bw)/(r.fontSize*charWidthRatio)), minCharsPerLine)
		return Box{
			Rect:  image.Rect(x, y, x+bw, y+bh),
			Lines: Wrap(text, cols),
		}
	}

	tw, th := inkSize(face, text)
	if limit := int(float64(canvasW) * maxAutoWidth); tw > limit {
		tw = limit
	}
	bw := tw + 2*r.padding
	bh := th + 2*r.padding
	return Box{
		Rect:  image.Rect(x, y, x+bw, y+bh),
		Lines: []string{text},
	}
}

// Render returns a copy of canvas with b drawn on it.
func (r *Renderer) Render(canvas *image.RGBA, b job.Bubble) (*image.RGBA, error) {
	face, err := newFace(r.font, r.fontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	out := cloneRGBA(canvas)
	bounds := canvas.Bounds()
	box := r.layout(face, bounds.Dx(), bounds.Dy(), b)
	rect := box.Rect.Add(bounds.Min)

	if r.asset != nil {
		drawAsset(out, rect, r.asset, r.opacity)
	} else {
		drawRoundedBox(out, rect, r.radius, r.border, r.opacity, r.borderClr)
	}
	r.drawText(out, face, rect, box.Lines)
	return out, nil
}

// drawText centers lines both ways inside rect.
func (r *Renderer) drawText(dst *image.RGBA, face font.Face, rect image.Rectangle, lines []string) {
	if len(lines) == 0 {
		return
	}
	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	lineH := ascent + m.Descent.Ceil()
	_, blockH := textBlock(face, lines)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(r.textClr),
		Face: face,
	}
	cx := rect.Min.X + rect.Dx()/2
	top := rect.Min.Y + (rect.Dy()-blockH)/2
	for i, line := range lines {
		lw := d.MeasureString(line).Ceil()
		baseline := top + i*(lineH+lineSpacing) + ascent
		d.Dot = fixed.P(cx-lw/2, baseline)
		d.DrawString(line)
	}
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := &image.RGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	return dst
}
