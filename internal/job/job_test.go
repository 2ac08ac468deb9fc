package job

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivlev/panel2video/internal/errs"
)

const sampleJob = `
output: out/story.mp4
config:
  fps: 24
  transition_duration_ms: 0
  encoder_timeout: 90s
panels:
  - panel_number: 1
    image_reference: cache:p1.png
    bubbles:
      - text: "Hello!"
        x_percent: 10
        y_percent: 20
  - panel_number: 2
    image_reference: https://img.example.com/p2.webp
    bubbles:
      - text: "Sized"
        x_percent: 5
        y_percent: 60
        width_percent: 40
        height_percent: 15
`

func TestReadJobKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	if err := os.WriteFile(path, []byte(sampleJob), 0644); err != nil {
		t.Fatal(err)
	}

	j, err := ReadJob(path)
	if err != nil {
		t.Fatalf("ReadJob failed: %v", err)
	}

	if j.Config.FPS != 24 {
		t.Errorf("expected fps 24, got %d", j.Config.FPS)
	}
	if j.Config.Width != 1080 || j.Config.Height != 1350 {
		t.Errorf("defaults lost: %dx%d", j.Config.Width, j.Config.Height)
	}
	if j.Config.Timeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %s", j.Config.Timeout)
	}
	if j.Output != "out/story.mp4" {
		t.Errorf("unexpected output %q", j.Output)
	}
	if len(j.Panels) != 2 {
		t.Fatalf("expected 2 panels, got %d", len(j.Panels))
	}
	if j.Panels[0].Bubbles[0].HasExplicitSize() {
		t.Error("first bubble has no explicit size")
	}
	if !j.Panels[1].Bubbles[0].HasExplicitSize() {
		t.Error("second bubble has an explicit size")
	}
	if err := j.Validate(); err != nil {
		t.Errorf("sample job should validate: %v", err)
	}
	if got := j.BubbleCounts(); len(got) != 2 || got[0] != 1 || got[1] != 1 {
		t.Errorf("unexpected bubble counts %v", got)
	}
}

func TestValidate(t *testing.T) {
	ok := Panel{Number: 1, ImageReference: "cache:a.png"}

	tests := []struct {
		name      string
		panels    []Panel
		wantPanel int
	}{
		{"no panels", nil, 0},
		{"duplicate number", []Panel{ok, {Number: 1, ImageReference: "cache:b.png"}}, 1},
		{"descending", []Panel{{Number: 3, ImageReference: "x"}, {Number: 2, ImageReference: "y"}}, 2},
		{"empty reference", []Panel{{Number: 4}}, 4},
		{"empty text", []Panel{{Number: 5, ImageReference: "x", Bubbles: []Bubble{{XPercent: 1}}}}, 5},
		{"out of range", []Panel{{Number: 6, ImageReference: "x", Bubbles: []Bubble{{Text: "hi", XPercent: 101}}}}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Job{Panels: tt.panels}
			err := j.Validate()
			if !errors.Is(err, errs.KindInvalidConfig) {
				t.Fatalf("expected invalid_config, got %v", err)
			}
			if got := errs.PanelOf(err); got != tt.wantPanel {
				t.Errorf("expected panel %d, got %d", tt.wantPanel, got)
			}
		})
	}
}

func TestFindLatestJob(t *testing.T) {
	dir := t.TempDir()
	files := []string{"a.yaml", "b.yml", "c.yaml"}
	for i, name := range files {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte("panels: []"), 0644)
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(path, modTime, modTime)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	latest, err := FindLatestJob(dir)
	if err != nil {
		t.Fatalf("FindLatestJob failed: %v", err)
	}
	if filepath.Base(latest) != "c.yaml" {
		t.Errorf("expected c.yaml, got %s", latest)
	}

	if _, err := FindLatestJob(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}
