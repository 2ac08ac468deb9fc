package timeline

import (
	"context"
	"image"
	"log"

	"github.com/ivlev/panel2video/internal/config"
	"github.com/ivlev/panel2video/internal/errs"
	"github.com/ivlev/panel2video/internal/geometry"
	"github.com/ivlev/panel2video/internal/job"
	"github.com/ivlev/panel2video/internal/renderer"
	"github.com/ivlev/panel2video/internal/system"
)

// BubbleRenderer draws one bubble onto a copy of a canvas.
type BubbleRenderer interface {
	Render(canvas *image.RGBA, b job.Bubble) (*image.RGBA, error)
}

// Segment is a run of Count identical frames starting at sequence number Start.
type Segment struct {
	Panel int // panel_number
	Phase Phase
	Start int
	Count int
	Image *image.RGBA

	// Release hands Image back once it is no longer read. Nil for images
	// shared between segments.
	Release func()
}

// Builder composes the frames of a job. It keeps no state between builds.
type Builder struct {
	cfg     config.VideoConfig
	bubbles BubbleRenderer
	frames  *system.ImagePool
	logger  *log.Logger
}

func NewBuilder(cfg config.VideoConfig, bubbles BubbleRenderer, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{cfg: cfg, bubbles: bubbles, logger: logger}
}

// WithFramePool makes transition frames come from pool. Consumers must call
// Segment.Release when done with them.
func (b *Builder) WithFramePool(pool *system.ImagePool) *Builder {
	b.frames = pool
	return b
}

// Build streams the segments of panels to emit in sequence order and returns
// the number of frames emitted. Cancellation is checked between phases.
func (b *Builder) Build(ctx context.Context, panels []*PreparedPanel, emit func(Segment) error) (int, error) {
	counts := make([]int, len(panels))
	for i, p := range panels {
		counts[i] = len(p.Bubbles)
	}

	w, h := b.cfg.Width, b.cfg.Height
	emitted := 0
	for _, span := range Plan(b.cfg, counts) {
		p := panels[span.Panel]
		if err := ctx.Err(); err != nil {
			return emitted, errs.WithPanel(errs.New(errs.KindCanceled, "timeline", err), p.Number, errs.KindCanceled)
		}

		switch span.Phase {
		case PhaseBase:
			b.logger.Printf("[>] Панель %d: %d реплик", p.Number, len(p.Bubbles))
			fallthrough
		case PhasePause:
			if err := emit(Segment{Panel: p.Number, Phase: span.Phase, Start: span.Start, Count: span.Count, Image: p.Base}); err != nil {
				return emitted, err
			}
			emitted += span.Count

		case PhaseBubble:
			// bubbles are placed on the uncropped canvas, then cropped
			withBubble, err := b.bubbles.Render(p.Scaled, p.Bubbles[span.Bubble])
			if err != nil {
				return emitted, errs.WithPanel(err, p.Number, errs.KindGeometry)
			}
			frame, err := geometry.CropCenter(withBubble, w, h)
			if err != nil {
				return emitted, errs.WithPanel(err, p.Number, errs.KindGeometry)
			}
			if err := emit(Segment{Panel: p.Number, Phase: span.Phase, Start: span.Start, Count: span.Count, Image: frame}); err != nil {
				return emitted, err
			}
			emitted += span.Count

		case PhaseTransition:
			next := panels[span.Panel+1]
			for t := 0; t < span.Count; t++ {
				seg := Segment{Panel: p.Number, Phase: span.Phase, Start: span.Start + t, Count: 1}
				progress := float64(t) / float64(span.Count)
				if b.frames != nil {
					frame := b.frames.Get(w, h)
					renderer.DrawScroll(frame, p.Base, next.Base, progress)
					seg.Image = frame
					seg.Release = func() { b.frames.Put(frame) }
				} else {
					seg.Image = renderer.ScrollFrame(p.Base, next.Base, w, h, progress)
				}
				if err := emit(seg); err != nil {
					return emitted, err
				}
				emitted++
			}
		}
	}
	return emitted, nil
}
