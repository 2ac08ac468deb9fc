package bubble

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ivlev/panel2video/internal/config"
	"github.com/ivlev/panel2video/internal/job"
)

func ptr(v float64) *float64 { return &v }

func testConfig() config.VideoConfig {
	cfg := config.Default()
	cfg.FontPaths = nil // embedded face only, identical on every host
	return cfg
}

func newTestRenderer(t *testing.T, cfg config.VideoConfig) *Renderer {
	t.Helper()
	r, err := New(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d >= -tol && d <= tol
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		columns int
		want    []string
	}{
		{"words", "hello world foo", 11, []string{"hello world", "foo"}},
		{"long word", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"newline folds into space", "a\nb", 10, []string{"a b"}},
		{"hangul counts runes", "안녕하세요 여러분 반갑습니다", 10, []string{"안녕하세요 여러분", "반갑습니다"}},
		{"long cjk word", "日本語です", 4, []string{"日本語で", "す"}},
		{"empty", "", 5, []string{""}},
		{"collapses spaces", "  a   b  ", 10, []string{"a b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, tt.columns)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Wrap(%q, %d) = %q, want %q", tt.text, tt.columns, got, tt.want)
			}
		})
	}
}

func TestRenderIsDeterministicAndCopyOnWrite(t *testing.T) {
	r := newTestRenderer(t, testConfig())
	canvas := solid(320, 400, color.RGBA{R: 30, G: 60, B: 90, A: 255})
	before := append([]uint8(nil), canvas.Pix...)

	b := job.Bubble{Text: "Где все?", XPercent: 10, YPercent: 10}
	first, err := r.Render(canvas, b)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	second, err := r.Render(canvas, b)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !bytes.Equal(canvas.Pix, before) {
		t.Error("input canvas was modified")
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("two renders of the same bubble differ")
	}
	if bytes.Equal(first.Pix, before) {
		t.Error("bubble left no trace on the canvas")
	}
}

func TestExplicitBoxIsAnchoredTopLeft(t *testing.T) {
	cfg := testConfig()
	r := newTestRenderer(t, cfg)
	canvas := solid(200, 100, color.RGBA{A: 255})

	b := job.Bubble{Text: "hi", XPercent: 10, YPercent: 20, WidthPercent: ptr(50), HeightPercent: ptr(50)}
	box, err := r.Layout(200, 100, b)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if want := image.Rect(20, 20, 120, 70); box.Rect != want {
		t.Fatalf("expected box %v, got %v", want, box.Rect)
	}

	out, err := r.Render(canvas, b)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// top edge lies on the border ring
	if got := out.RGBAAt(70, 21); !near(got.R, 0x4a, 1) || !near(got.G, 0x4a, 1) || !near(got.B, 0x4a, 1) {
		t.Errorf("expected border color at top edge, got %v", got)
	}
	// rounded corner stays transparent
	if got := out.RGBAAt(20, 20); got != (color.RGBA{A: 255}) {
		t.Errorf("expected untouched corner, got %v", got)
	}
	// outside the box
	if got := out.RGBAAt(15, 15); got != (color.RGBA{A: 255}) {
		t.Errorf("expected untouched pixel outside the box, got %v", got)
	}
	// fill is white blended over black at the configured opacity
	want := uint8(cfg.BubbleOpacity * 255)
	if got := out.RGBAAt(30, 45); !near(got.R, want, 2) || got.A != 255 {
		t.Errorf("expected fill ~%d, got %v", want, got)
	}
}

func TestExplicitBoxWrapsText(t *testing.T) {
	cfg := testConfig()
	r := newTestRenderer(t, cfg)

	// 300 px wide box at font 39 gives int(300/19.5) = 15 columns
	b := job.Bubble{
		Text:          "this line is long enough to wrap twice",
		WidthPercent:  ptr(50),
		HeightPercent: ptr(20),
	}
	box, err := r.Layout(600, 600, b)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if len(box.Lines) < 3 {
		t.Fatalf("expected at least 3 lines, got %q", box.Lines)
	}
	for _, line := range box.Lines {
		if n := utf8.RuneCountInString(line); n > 15 {
			t.Errorf("line %q has %d characters, limit 15", line, n)
		}
	}

	// Hangul is counted per character, not per display column
	b.Text = "안녕하세요 여러분 오늘\n날씨가 정말 좋네요 그렇죠"
	box, err = r.Layout(600, 600, b)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	want := []string{"안녕하세요 여러분 오늘", "날씨가 정말 좋네요 그렇죠"}
	if !reflect.DeepEqual(box.Lines, want) {
		t.Errorf("expected %q, got %q", want, box.Lines)
	}

	// narrow boxes still get the minimum line length
	b.WidthPercent = ptr(1)
	box, err = r.Layout(600, 600, b)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	for _, line := range box.Lines {
		if utf8.RuneCountInString(line) > minCharsPerLine {
			t.Errorf("line %q exceeds minimum width %d", line, minCharsPerLine)
		}
	}
}

func TestAutoBoxIsPaddedAndClamped(t *testing.T) {
	cfg := testConfig()
	r := newTestRenderer(t, cfg)

	box, err := r.Layout(1080, 1350, job.Bubble{Text: "Hi!", XPercent: 50, YPercent: 50})
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if box.Rect.Min != image.Pt(540, 675) {
		t.Errorf("expected anchor (540,675), got %v", box.Rect.Min)
	}
	if box.Rect.Dx() <= 2*cfg.BubblePadding || box.Rect.Dy() <= 2*cfg.BubblePadding {
		t.Errorf("box %v is not padded around the text", box.Rect)
	}
	if len(box.Lines) != 1 {
		t.Errorf("auto box must keep a single line, got %q", box.Lines)
	}

	long := strings.Repeat("word ", 80)
	box, err = r.Layout(400, 400, job.Bubble{Text: long})
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if want := int(400*maxAutoWidth) + 2*cfg.BubblePadding; box.Rect.Dx() != want {
		t.Errorf("expected clamped width %d, got %d", want, box.Rect.Dx())
	}
}

func TestBubblePastCanvasEdgeIsClipped(t *testing.T) {
	r := newTestRenderer(t, testConfig())
	canvas := solid(100, 100, color.RGBA{A: 255})

	b := job.Bubble{Text: "edge", XPercent: 95, YPercent: 95, WidthPercent: ptr(50), HeightPercent: ptr(50)}
	out, err := r.Render(canvas, b)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out.Bounds() != canvas.Bounds() {
		t.Errorf("canvas bounds changed: %v", out.Bounds())
	}
}

func TestRoundedBoxIsClippedToCanvas(t *testing.T) {
	black := color.RGBA{A: 255}
	fillR := alpha8(0.85)

	tests := []struct {
		name  string
		rect  image.Rectangle
		probe map[image.Point]uint8 // expected red channel
	}{
		{
			name: "bottom edge",
			rect: image.Rect(50, 90, 90, 130),
			probe: map[image.Point]uint8{
				{70, 89}: 0,
				{70, 91}: 0x4a,
				{70, 97}: fillR,
			},
		},
		{
			name: "larger than canvas",
			rect: image.Rect(-10000, -10000, 10000, 10000),
			probe: map[image.Point]uint8{
				{0, 0}:   fillR,
				{99, 99}: fillR,
			},
		},
		{
			name:  "outside canvas",
			rect:  image.Rect(200, 200, 300, 300),
			probe: map[image.Point]uint8{{99, 99}: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canvas := solid(100, 100, black)
			drawRoundedBox(canvas, tt.rect, 20, 4, 0.85, color.RGBA{R: 0x4a, G: 0x4a, B: 0x4a, A: 255})
			for p, want := range tt.probe {
				if got := canvas.RGBAAt(p.X, p.Y); !near(got.R, want, 2) || got.A != 255 {
					t.Errorf("pixel %v: expected red ~%d, got %v", p, want, got)
				}
			}
		})
	}
}

func TestAssetBackgroundIsBlendedAtOpacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bubble.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, solid(16, 16, color.RGBA{R: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg := testConfig()
	cfg.BubbleAssetPath = path
	cfg.BubbleOpacity = 0.5
	r := newTestRenderer(t, cfg)
	if r.asset == nil {
		t.Fatal("asset was not loaded")
	}

	b := job.Bubble{XPercent: 0, YPercent: 0, WidthPercent: ptr(50), HeightPercent: ptr(50)}
	out, err := r.Render(solid(100, 100, color.RGBA{A: 255}), b)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	got := out.RGBAAt(10, 10)
	if !near(got.R, 128, 2) || got.G != 0 || got.B != 0 {
		t.Errorf("expected half red, got %v", got)
	}
	if got := out.RGBAAt(75, 75); got != (color.RGBA{A: 255}) {
		t.Errorf("expected untouched pixel outside the asset, got %v", got)
	}
}

func TestMissingAssetFallsBackToDrawnBox(t *testing.T) {
	cfg := testConfig()
	cfg.BubbleAssetPath = filepath.Join(t.TempDir(), "missing.png")
	r := newTestRenderer(t, cfg)
	if r.asset != nil {
		t.Error("expected no asset for a missing file")
	}
}
