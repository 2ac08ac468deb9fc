package workspace

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ivlev/panel2video/internal/errs"
)

func TestAcquireAndClose(t *testing.T) {
	ws, err := Acquire("panel2video_test_")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if fi, err := os.Stat(ws.Dir()); err != nil || !fi.IsDir() {
		t.Fatalf("workspace dir missing: %v", err)
	}

	if got, want := ws.FramePath(42), filepath.Join(ws.Dir(), "frame_000042.png"); got != want {
		t.Errorf("FramePath: expected %s, got %s", want, got)
	}
	if got, want := ws.FramePattern(), filepath.Join(ws.Dir(), "frame_%06d.png"); got != want {
		t.Errorf("FramePattern: expected %s, got %s", want, got)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Errorf("workspace dir still exists after Close: %v", err)
	}
}

func TestFrameWriter(t *testing.T) {
	ws, err := Acquire("panel2video_test_")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer ws.Close()

	opaque := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range opaque.Pix {
		opaque.Pix[i] = 0xff
	}
	// fully transparent pixels come out black
	transparent := image.NewRGBA(image.Rect(0, 0, 4, 4))

	fw := NewFrameWriter(context.Background(), ws, 2)
	if err := fw.Write(0, 3, opaque); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := fw.Write(3, 2, transparent); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	n, err := fw.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 frames written, got %d", n)
	}

	tests := []struct {
		frame int
		want  color.RGBA
	}{
		{0, color.RGBA{255, 255, 255, 255}},
		{2, color.RGBA{255, 255, 255, 255}},
		{3, color.RGBA{0, 0, 0, 255}},
		{4, color.RGBA{0, 0, 0, 255}},
	}
	for _, tt := range tests {
		f, err := os.Open(ws.FramePath(tt.frame))
		if err != nil {
			t.Fatalf("frame %d missing: %v", tt.frame, err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("frame %d: %v", tt.frame, err)
		}
		r, g, b, a := img.At(1, 1).RGBA()
		got := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
		if got != tt.want {
			t.Errorf("frame %d: expected %v, got %v", tt.frame, tt.want, got)
		}
	}
	if _, err := os.Stat(ws.FramePath(5)); !os.IsNotExist(err) {
		t.Errorf("unexpected frame 5: %v", err)
	}
}

func TestFrameWriterCanceled(t *testing.T) {
	ws, err := Acquire("panel2video_test_")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fw := NewFrameWriter(ctx, ws, 1)
	err = fw.Write(0, 1, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if !errors.Is(err, errs.KindWorkspace) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected canceled workspace error, got %v", err)
	}
	if n, _ := fw.Wait(); n != 0 {
		t.Errorf("expected no frames, got %d", n)
	}
}

func TestFrameWriterReleasesBorrowedFrames(t *testing.T) {
	ws, err := Acquire("panel2video_test_")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer ws.Close()

	var released atomic.Int32
	release := func() { released.Add(1) }

	fw := NewFrameWriter(context.Background(), ws, 2)
	for i := 0; i < 5; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		if err := fw.WriteAndRelease(i, 1, img, release); err != nil {
			t.Fatalf("WriteAndRelease failed: %v", err)
		}
	}
	if n, err := fw.Wait(); err != nil || n != 5 {
		t.Fatalf("Wait = %d, %v; expected 5 frames", n, err)
	}
	if got := released.Load(); got != 5 {
		t.Errorf("expected 5 releases, got %d", got)
	}

	// a refused write still returns the frame
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fw = NewFrameWriter(ctx, ws, 1)
	if err := fw.WriteAndRelease(9, 1, image.NewRGBA(image.Rect(0, 0, 4, 4)), release); err == nil {
		t.Error("expected refusal after cancellation")
	}
	if got := released.Load(); got != 6 {
		t.Errorf("expected refused frame to be released, got %d releases", got)
	}
}

func TestExport(t *testing.T) {
	ws, err := Acquire("panel2video_test_")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer ws.Close()

	if err := os.WriteFile(ws.Path("output.mp4"), []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(t.TempDir(), "nested", "out.mp4")
	if err := ws.Export("output.mp4", dst); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "video" {
		t.Errorf("unexpected export content %q: %v", data, err)
	}
	if _, err := os.Stat(dst + ".part"); !os.IsNotExist(err) {
		t.Errorf("part file left behind: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "missing.mp4")
	err = ws.Export("nothing.mp4", missing)
	if errs.KindOf(err) != errs.KindWorkspace {
		t.Errorf("expected workspace error, got %v", err)
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Errorf("destination created on failure: %v", err)
	}
}
