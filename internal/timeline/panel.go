package timeline

import (
	"image"

	"github.com/ivlev/panel2video/internal/config"
	"github.com/ivlev/panel2video/internal/errs"
	"github.com/ivlev/panel2video/internal/geometry"
	"github.com/ivlev/panel2video/internal/job"
)

// PreparedPanel is a resolved panel ready for composition. Its images are
// shared by every frame that shows them and are never written again.
type PreparedPanel struct {
	Number  int
	Bubbles []job.Bubble
	Scaled  *image.RGBA // Cover-scaled, uncropped; bubble coordinates refer to it
	Base    *image.RGBA // Scaled and center-cropped to the output size
}

// Prepare applies cover geometry once per panel.
func Prepare(img image.Image, number int, bubbles []job.Bubble, cfg config.VideoConfig) (*PreparedPanel, error) {
	scaled, base, err := geometry.Cover(img, cfg.Width, cfg.Height)
	if err != nil {
		return nil, errs.WithPanel(err, number, errs.KindGeometry)
	}
	return &PreparedPanel{
		Number:  number,
		Bubbles: bubbles,
		Scaled:  scaled,
		Base:    base,
	}, nil
}
