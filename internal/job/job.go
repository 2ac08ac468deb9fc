package job

import (
	"fmt"

	"github.com/ivlev/panel2video/internal/config"
	"github.com/ivlev/panel2video/internal/errs"
)

// Job is one video build request
type Job struct {
	Panels []Panel             `yaml:"panels"`
	Config *config.VideoConfig `yaml:"config,omitempty"`
	Output string              `yaml:"output,omitempty"` // Destination path, generated when empty
}

// Panel is a single still scene of the output
type Panel struct {
	Number         int      `yaml:"panel_number"`
	ImageReference string   `yaml:"image_reference"`
	Bubbles        []Bubble `yaml:"bubbles"` // Reveal order
}

// Bubble is a dialogue overlay anchored at its top-left corner
type Bubble struct {
	Text          string   `yaml:"text"`
	XPercent      float64  `yaml:"x_percent"`
	YPercent      float64  `yaml:"y_percent"`
	WidthPercent  *float64 `yaml:"width_percent,omitempty"`
	HeightPercent *float64 `yaml:"height_percent,omitempty"`
}

// HasExplicitSize reports whether the bubble box comes from the authoring tool
func (b Bubble) HasExplicitSize() bool {
	return b.WidthPercent != nil && b.HeightPercent != nil
}

// BubbleCounts returns the number of bubbles per panel, in panel order
func (j *Job) BubbleCounts() []int {
	counts := make([]int, len(j.Panels))
	for i, p := range j.Panels {
		counts[i] = len(p.Bubbles)
	}
	return counts
}

// Validate checks the input contract of the generation pipeline
func (j *Job) Validate() error {
	if len(j.Panels) == 0 {
		return errs.New(errs.KindInvalidConfig, "job", fmt.Errorf("no panels"))
	}

	prev := 0
	for i, p := range j.Panels {
		if i > 0 && p.Number <= prev {
			return invalidPanel(p.Number, fmt.Errorf("panel numbers must be unique and ascending (after %d)", prev))
		}
		prev = p.Number
		if p.ImageReference == "" {
			return invalidPanel(p.Number, fmt.Errorf("empty image_reference"))
		}
		for k, b := range p.Bubbles {
			if b.Text == "" {
				return invalidPanel(p.Number, fmt.Errorf("bubble %d has empty text", k))
			}
			if b.XPercent < 0 || b.XPercent > 100 || b.YPercent < 0 || b.YPercent > 100 {
				return invalidPanel(p.Number, fmt.Errorf("bubble %d position (%.2f, %.2f) outside [0,100]", k, b.XPercent, b.YPercent))
			}
			if (b.WidthPercent != nil && *b.WidthPercent <= 0) || (b.HeightPercent != nil && *b.HeightPercent <= 0) {
				return invalidPanel(p.Number, fmt.Errorf("bubble %d size must be positive", k))
			}
		}
	}
	return nil
}

func invalidPanel(number int, err error) error {
	return &errs.Error{Kind: errs.KindInvalidConfig, Panel: number, Op: "job", Err: err}
}
